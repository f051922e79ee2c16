package catalog

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// yamlMaterial is the on-disk YAML form of a material entry.
type yamlMaterial struct {
	ID            string         `yaml:"id"`
	Name          string         `yaml:"name"`
	Kind          string         `yaml:"kind"`
	CrossSections []CrossSection `yaml:"cross_sections"`
	Lengths       []float64      `yaml:"lengths"`
	Thicknesses   []float64      `yaml:"thicknesses"`
	SheetSizes    []SheetSize    `yaml:"sheet_sizes"`
}

type yamlCatalog struct {
	Materials []yamlMaterial `yaml:"materials"`
}

var kindNames = map[string]Kind{
	"dimensional": Dimensional,
	"sheet":       Sheet,
	"volume":      Volume,
	"prefab":      Prefab,
	"strawbale":   Strawbale,
	"generic":     Generic,
}

// Parse decodes a YAML catalog document.
func Parse(data []byte) (*Catalog, error) {
	var doc yamlCatalog
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("catalog: parse: %w", err)
	}
	materials := make([]*Material, 0, len(doc.Materials))
	for _, ym := range doc.Materials {
		kind, ok := kindNames[ym.Kind]
		if !ok {
			return nil, fmt.Errorf("catalog: material %q has unknown kind %q", ym.ID, ym.Kind)
		}
		m := &Material{
			ID:            ym.ID,
			Name:          ym.Name,
			Kind:          kind,
			CrossSections: normalizePairs(ym.CrossSections),
			Lengths:       ym.Lengths,
			Thicknesses:   ym.Thicknesses,
			SheetSizes:    normalizeSheets(ym.SheetSizes),
		}
		materials = append(materials, m)
	}
	return New(materials)
}

// LoadFile reads and parses a YAML catalog file.
func LoadFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("catalog: read %s: %w", path, err)
	}
	return Parse(data)
}

// normalizePairs enforces the smaller-first convention regardless of how
// the file was authored.
func normalizePairs(in []CrossSection) []CrossSection {
	out := make([]CrossSection, len(in))
	for i, cs := range in {
		if cs.Smaller > cs.Bigger {
			cs.Smaller, cs.Bigger = cs.Bigger, cs.Smaller
		}
		out[i] = cs
	}
	return out
}

func normalizeSheets(in []SheetSize) []SheetSize {
	out := make([]SheetSize, len(in))
	for i, s := range in {
		if s.Smaller > s.Bigger {
			s.Smaller, s.Bigger = s.Bigger, s.Smaller
		}
		out[i] = s
	}
	return out
}
