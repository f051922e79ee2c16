// Package model defines the construction-element tree consumed by the
// parts engine: leaf solids carrying a material and a boundary mesh, and
// containers grouping children with their own bounding box. The tree is
// read-only input; the engine never mutates it.
package model

import (
	"github.com/baleframe/tally/pkg/geom"
	"github.com/baleframe/tally/pkg/mesh"
)

// ElementKind enumerates the element variants.
type ElementKind int

const (
	KindLeaf      ElementKind = iota // solid with material and boundary mesh
	KindContainer                    // grouping with children and a bounding box
)

func (k ElementKind) String() string {
	switch k {
	case KindLeaf:
		return "leaf"
	case KindContainer:
		return "container"
	default:
		return "unknown"
	}
}

// PartInfo is the optional semantic hint attached by the construction
// pipeline: what this element is, in building terms.
type PartInfo struct {
	Type                string `json:"type"`
	Subtype             string `json:"subtype,omitempty"`
	Description         string `json:"description,omitempty"`
	RequiresSinglePiece bool   `json:"requires_single_piece,omitempty"`
}

// Element is one node of the construction tree.
type Element struct {
	ID       string      `json:"id"`
	Kind     ElementKind `json:"kind"`
	SourceID string      `json:"source_id,omitempty"` // location inference on containers
	Tags     []Tag       `json:"tags,omitempty"`
	Info     *PartInfo   `json:"info,omitempty"`
	Children []*Element  `json:"children,omitempty"`
	Data     ElementData `json:"-"`
}

// ElementData is the interface for kind-specific element payloads.
type ElementData interface {
	elementData() // marker method restricting implementations to this package
}

// LeafData is the payload of a leaf element.
type LeafData struct {
	Material string     `json:"material"`
	Mesh     *mesh.Mesh `json:"mesh"`
}

func (LeafData) elementData() {}

// ContainerData is the payload of a container element.
type ContainerData struct {
	// Bounds is the container's own bounding box dims; containers have no
	// boundary mesh of their own.
	Bounds [3]float64 `json:"bounds"`
	// SidePolygon optionally designates a side face used for area and
	// labeling of the container's virtual part.
	SidePolygon *geom.SidePolygon `json:"side_polygon,omitempty"`
}

func (ContainerData) elementData() {}

// Leaf returns the leaf payload, or nil for containers.
func (e *Element) Leaf() *LeafData {
	if d, ok := e.Data.(LeafData); ok {
		return &d
	}
	return nil
}

// Container returns the container payload, or nil for leaves.
func (e *Element) Container() *ContainerData {
	if d, ok := e.Data.(ContainerData); ok {
		return &d
	}
	return nil
}
