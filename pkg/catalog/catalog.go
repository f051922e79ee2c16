// Package catalog models the real-world material stock that classified
// shapes are resolved against: dimensional lumber, sheet goods, bulk
// volume fill, prefabricated modules and straw bales.
package catalog

import (
	"fmt"
	"sort"
)

// Kind enumerates material catalog entry kinds.
type Kind int

const (
	Dimensional Kind = iota // cross-section stock (studs, beams)
	Sheet                   // sheet goods (OSB, plasterboard)
	Volume                  // bulk fill (clay plaster, cellulose)
	Prefab                  // prefabricated modules, always virtual
	Strawbale               // straw bales, bucketed by category tag
	Generic                 // no matching rules, volume only
)

func (k Kind) String() string {
	switch k {
	case Dimensional:
		return "dimensional"
	case Sheet:
		return "sheet"
	case Volume:
		return "volume"
	case Prefab:
		return "prefab"
	case Strawbale:
		return "strawbale"
	case Generic:
		return "generic"
	default:
		return "unknown"
	}
}

// CrossSection is a stock cross-section, stored smaller-first.
type CrossSection struct {
	Smaller float64 `json:"smaller" yaml:"smaller"`
	Bigger  float64 `json:"bigger" yaml:"bigger"`
}

func (cs CrossSection) String() string {
	return fmt.Sprintf("%gx%g", cs.Smaller, cs.Bigger)
}

// SheetSize is an available sheet format, stored smaller-first.
type SheetSize struct {
	Smaller float64 `json:"smaller" yaml:"smaller"`
	Bigger  float64 `json:"bigger" yaml:"bigger"`
}

// Material is one catalog entry. Only the fields relevant to its kind
// are populated.
type Material struct {
	ID            string         `json:"id"`
	Name          string         `json:"name,omitempty"`
	Kind          Kind           `json:"kind"`
	CrossSections []CrossSection `json:"cross_sections,omitempty"` // dimensional
	Lengths       []float64      `json:"lengths,omitempty"`        // dimensional stock lengths
	Thicknesses   []float64      `json:"thicknesses,omitempty"`    // sheet
	SheetSizes    []SheetSize    `json:"sheet_sizes,omitempty"`    // sheet
}

// MaxLength returns the largest available stock length, or 0 when the
// catalog declares none.
func (m *Material) MaxLength() float64 {
	var max float64
	for _, l := range m.Lengths {
		if l > max {
			max = l
		}
	}
	return max
}

// Catalog is a read-only material lookup.
type Catalog struct {
	materials map[string]*Material
}

// New builds a catalog from materials. Duplicate ids are an error.
func New(materials []*Material) (*Catalog, error) {
	c := &Catalog{materials: make(map[string]*Material, len(materials))}
	for _, m := range materials {
		if m.ID == "" {
			return nil, fmt.Errorf("catalog: material with empty id")
		}
		if _, dup := c.materials[m.ID]; dup {
			return nil, fmt.Errorf("catalog: duplicate material id %q", m.ID)
		}
		c.materials[m.ID] = m
	}
	return c, nil
}

// Get returns the material with the given id, or nil.
func (c *Catalog) Get(id string) *Material {
	if c == nil {
		return nil
	}
	return c.materials[id]
}

// IDs returns all material ids, sorted.
func (c *Catalog) IDs() []string {
	ids := make([]string, 0, len(c.materials))
	for id := range c.materials {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Len returns the number of materials.
func (c *Catalog) Len() int {
	return len(c.materials)
}
