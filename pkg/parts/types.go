// Package parts resolves classified shapes against the material catalog,
// derives stable part identities, aggregates the element tree into part
// definitions and occurrences, and serves filtered per-identity totals.
package parts

import (
	"fmt"

	"github.com/baleframe/tally/pkg/catalog"
	"github.com/baleframe/tally/pkg/geom"
	"github.com/baleframe/tally/pkg/model"
)

// Source tells what kind of element produced a definition.
type Source int

const (
	SourceElement Source = iota // leaf solid
	SourceGroup                 // container with its own semantic hint
)

func (s Source) String() string {
	switch s {
	case SourceElement:
		return "element"
	case SourceGroup:
		return "group"
	default:
		return "unknown"
	}
}

// Issue flags a manufacturability problem found while matching a part
// against catalog stock. Issues are warnings carried as data; a part with
// an issue is still counted, labeled and aggregated.
type Issue int

const (
	IssueNone Issue = iota
	CrossSectionMismatch
	LengthExceedsAvailable
	ThicknessMismatch
	SheetSizeExceeded
)

func (i Issue) String() string {
	switch i {
	case IssueNone:
		return ""
	case CrossSectionMismatch:
		return "cross_section_mismatch"
	case LengthExceedsAvailable:
		return "length_exceeds_available"
	case ThicknessMismatch:
		return "thickness_mismatch"
	case SheetSizeExceeded:
		return "sheet_size_exceeded"
	default:
		return fmt.Sprintf("Issue(%d)", int(i))
	}
}

// Definition is the per-identity record: every occurrence of one part
// identity shares these metrics and metadata.
type Definition struct {
	Identity string `json:"identity"`
	Source   Source `json:"source"`
	// Material is the catalog id; empty for group-sourced parts.
	Material    string `json:"material,omitempty"`
	Type        string `json:"type,omitempty"`
	Subtype     string `json:"subtype,omitempty"`
	Description string `json:"description,omitempty"`
	// Size is the normalized dims triple, sorted ascending.
	Size   [3]float64 `json:"size"`
	Volume float64    `json:"volume"`

	Area         *float64              `json:"area,omitempty"`
	Length       *float64              `json:"length,omitempty"`
	Thickness    *float64              `json:"thickness,omitempty"`
	CrossSection *catalog.CrossSection `json:"cross_section,omitempty"`
	Issue        Issue                 `json:"issue,omitempty"`

	RequiresSinglePiece bool                `json:"requires_single_piece,omitempty"`
	StrawCategory       model.StrawCategory `json:"straw_category,omitempty"`
	// SidePolygons are face outlines usable for nesting and cut-list
	// visuals on sheet/extrusion parts.
	SidePolygons []geom.SidePolygon `json:"side_polygons,omitempty"`
}

// Occurrence is one physical instance of a part identity.
type Occurrence struct {
	ElementID string         `json:"element_id"`
	Identity  string         `json:"identity"`
	// Virtual marks prefab and group-sourced pieces that are not
	// individually cut.
	Virtual  bool           `json:"virtual,omitempty"`
	Location model.Location `json:"location"`
}

// Result is one rebuild's complete output. Definitions and occurrences
// are regenerated in full on every rebuild.
type Result struct {
	Definitions map[string]*Definition `json:"definitions"`
	Occurrences []Occurrence           `json:"occurrences"`
}

// NewResult returns an empty result.
func NewResult() *Result {
	return &Result{Definitions: make(map[string]*Definition)}
}

// GroupID returns the label pool a definition belongs to: "virtual" for
// group-sourced parts, "material:<id>" otherwise.
func GroupID(d *Definition) string {
	if d.Source == SourceGroup {
		return "virtual"
	}
	return "material:" + d.Material
}
