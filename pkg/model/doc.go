package model

import (
	"encoding/json"
	"fmt"

	"github.com/baleframe/tally/pkg/geom"
	"github.com/baleframe/tally/pkg/mesh"
)

// jsonElement is the on-disk JSON form of an element. Leaf and container
// payloads are flattened into optional fields keyed by "kind".
type jsonElement struct {
	ID          string            `json:"id"`
	Kind        string            `json:"kind"`
	SourceID    string            `json:"source_id,omitempty"`
	Tags        []Tag             `json:"tags,omitempty"`
	Info        *PartInfo         `json:"info,omitempty"`
	Material    string            `json:"material,omitempty"`
	Mesh        *mesh.Mesh        `json:"mesh,omitempty"`
	Bounds      *[3]float64       `json:"bounds,omitempty"`
	SidePolygon *geom.SidePolygon `json:"side_polygon,omitempty"`
	Children    []jsonElement     `json:"children,omitempty"`
}

type jsonDocument struct {
	Elements []jsonElement `json:"elements"`
}

// DecodeDocument parses a JSON construction model document into an
// element tree.
func DecodeDocument(data []byte) ([]*Element, error) {
	var doc jsonDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("model: decode document: %w", err)
	}
	roots := make([]*Element, 0, len(doc.Elements))
	for i := range doc.Elements {
		e, err := buildElement(&doc.Elements[i])
		if err != nil {
			return nil, err
		}
		roots = append(roots, e)
	}
	return roots, nil
}

func buildElement(je *jsonElement) (*Element, error) {
	if je.ID == "" {
		return nil, fmt.Errorf("model: element missing id")
	}
	e := &Element{
		ID:       je.ID,
		SourceID: je.SourceID,
		Tags:     je.Tags,
		Info:     je.Info,
	}
	switch je.Kind {
	case "leaf":
		if je.Mesh == nil {
			return nil, fmt.Errorf("model: leaf %s has no mesh", je.ID)
		}
		e.Kind = KindLeaf
		e.Data = LeafData{Material: je.Material, Mesh: je.Mesh}
		if len(je.Children) > 0 {
			return nil, fmt.Errorf("model: leaf %s has children", je.ID)
		}
	case "container":
		e.Kind = KindContainer
		cd := ContainerData{SidePolygon: je.SidePolygon}
		if je.Bounds != nil {
			cd.Bounds = *je.Bounds
		}
		e.Data = cd
		for i := range je.Children {
			child, err := buildElement(&je.Children[i])
			if err != nil {
				return nil, err
			}
			e.Children = append(e.Children, child)
		}
	default:
		return nil, fmt.Errorf("model: element %s has unknown kind %q", je.ID, je.Kind)
	}
	return e, nil
}

// EncodeDocument renders an element tree back into the JSON document
// form, mainly for fixtures and round-trip tests.
func EncodeDocument(roots []*Element) ([]byte, error) {
	doc := jsonDocument{Elements: make([]jsonElement, 0, len(roots))}
	for _, e := range roots {
		doc.Elements = append(doc.Elements, flattenElement(e))
	}
	return json.MarshalIndent(doc, "", "  ")
}

func flattenElement(e *Element) jsonElement {
	je := jsonElement{
		ID:       e.ID,
		SourceID: e.SourceID,
		Tags:     e.Tags,
		Info:     e.Info,
	}
	switch d := e.Data.(type) {
	case LeafData:
		je.Kind = "leaf"
		je.Material = d.Material
		je.Mesh = d.Mesh
	case ContainerData:
		je.Kind = "container"
		b := d.Bounds
		je.Bounds = &b
		je.SidePolygon = d.SidePolygon
		for _, c := range e.Children {
			je.Children = append(je.Children, flattenElement(c))
		}
	}
	return je
}
