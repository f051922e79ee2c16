// Package classify turns a boundary mesh into a canonical primitive
// description: an axis-independent box, a polygon extruded along one axis,
// or an unknown solid. The identity key is invariant under rigid
// transforms, which downstream deduplication depends on.
package classify

import (
	"encoding/binary"
	"fmt"
	"math"
	"sort"

	v2 "github.com/deadsy/sdfx/vec/v2"
	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/google/uuid"

	"github.com/baleframe/tally/pkg/geom"
	"github.com/baleframe/tally/pkg/mesh"
)

const (
	// sameDirection is the |dot| threshold for treating two unit normals
	// as parallel.
	sameDirection = 0.999
	// orthoTol is the |dot| threshold below which directions count as
	// perpendicular.
	orthoTol = 1e-3
	// volumeRelTol is the relative tolerance for the box volume check.
	volumeRelTol = 1e-6
	// simplifyTol is the collinear-point removal tolerance for cap
	// polygons, in model units.
	simplifyTol = 0.1
)

// Kind discriminates the classified shape variants.
type Kind int

const (
	KindBox      Kind = iota // axis-aligned box in its own frame
	KindExtruded             // polygon extruded along one axis
	KindUnknown              // unclassifiable solid
)

func (k Kind) String() string {
	switch k {
	case KindBox:
		return "box"
	case KindExtruded:
		return "extruded_polygon"
	case KindUnknown:
		return "unknown"
	default:
		return "invalid"
	}
}

// Shape is the canonical description of a classified solid.
type Shape struct {
	Kind Kind
	// Key uniquely identifies the shape irrespective of position and
	// rotation in world space.
	Key string
	// Dims is the solid's extent along its three canonical axes, sorted
	// ascending.
	Dims [3]float64
	// Data carries kind-specific payload (ExtrusionData for KindExtruded,
	// nil otherwise).
	Data ShapeData
}

// ShapeData is the interface for kind-specific shape payloads.
type ShapeData interface {
	shapeData() // marker method restricting implementations to this package
}

// ExtrusionData describes a detected extrusion.
type ExtrusionData struct {
	// Thickness is the extrusion depth (distance between the end caps).
	Thickness float64
	// DimIndex is the index in Dims that the thickness corresponds to.
	DimIndex int
	// Polygon is the cap outline normalized into its bounding box with
	// the minimum corner at the origin and integer coordinates.
	Polygon geom.Polygon
}

func (ExtrusionData) shapeData() {}

// Classify determines the canonical shape of a boundary mesh. It never
// fails: meshes that neither detector accepts degrade to KindUnknown with
// a content-derived key and bounding-box dims.
func Classify(m *mesh.Mesh) Shape {
	if m == nil || m.IsEmpty() || m.Validate() != nil {
		return unknownShape(m)
	}
	if s, ok := detectBox(m); ok {
		return s
	}
	if s, ok := detectExtrusion(m); ok {
		return s
	}
	return unknownShape(m)
}

// detectBox checks whether the mesh is a rectangular box in some rigid
// orientation. The extent product must match the enclosed volume: that
// catches non-convex solids that happen to have only three face
// orientations.
func detectBox(m *mesh.Mesh) (Shape, bool) {
	var dirs []v3.Vec
	for t := 0; t < m.TriangleCount(); t++ {
		n := m.TriangleNormal(t)
		if n.Length() < 0.5 {
			continue
		}
		found := false
		for _, d := range dirs {
			if math.Abs(d.Dot(n)) > sameDirection {
				found = true
				break
			}
		}
		if !found {
			dirs = append(dirs, n)
			if len(dirs) > 3 {
				return Shape{}, false
			}
		}
	}
	if len(dirs) != 3 {
		return Shape{}, false
	}
	for i := 0; i < 3; i++ {
		for j := i + 1; j < 3; j++ {
			if math.Abs(dirs[i].Dot(dirs[j])) > orthoTol {
				return Shape{}, false
			}
		}
	}

	var extents [3]float64
	for i, d := range dirs {
		lo, hi := math.Inf(1), math.Inf(-1)
		for v := 0; v < m.VertexCount(); v++ {
			p := d.Dot(m.Vertex(v))
			lo = math.Min(lo, p)
			hi = math.Max(hi, p)
		}
		extents[i] = hi - lo
	}

	product := extents[0] * extents[1] * extents[2]
	if product <= 0 {
		return Shape{}, false
	}
	if math.Abs(product-m.Volume()) > volumeRelTol*product {
		return Shape{}, false
	}

	dims := sortedDims(extents[0], extents[1], extents[2])
	return Shape{
		Kind: KindBox,
		Key:  fmt.Sprintf("box:%s", dimsKey(dims)),
		Dims: dims,
	}, true
}

// detectExtrusion checks whether the mesh is a polygon (with holes)
// extruded along one axis. Every valid cap pairing is evaluated and the
// one with the smallest key wins, so the result does not depend on face
// discovery order.
func detectExtrusion(m *mesh.Mesh) (Shape, bool) {
	faces := m.PlanarFaces()
	if len(faces) < 3 {
		return Shape{}, false
	}

	var candidates []Shape
	for i := range faces {
		for j := i + 1; j < len(faces); j++ {
			if faces[i].Normal.Dot(faces[j].Normal) >= -sameDirection {
				continue
			}
			if s, ok := tryCapPair(faces, i, j); ok {
				candidates = append(candidates, s)
			}
		}
	}
	if len(candidates) == 0 {
		return Shape{}, false
	}
	sort.Slice(candidates, func(a, b int) bool {
		return candidates[a].Key < candidates[b].Key
	})
	return candidates[0], true
}

// tryCapPair validates faces a and b as opposite end caps and, on success,
// builds the extrusion shape from cap a.
func tryCapPair(faces []mesh.Face, a, b int) (Shape, bool) {
	ca, cb := &faces[a], &faces[b]

	// Identical ring structure between the two caps.
	if len(ca.Outer) != len(cb.Outer) || len(ca.Holes) != len(cb.Holes) {
		return Shape{}, false
	}
	ha := holeEdgeCounts(ca)
	hb := holeEdgeCounts(cb)
	for i := range ha {
		if ha[i] != hb[i] {
			return Shape{}, false
		}
	}

	// Every remaining face must be exactly one side wall per cap edge.
	if ca.EdgeCount() != len(faces)-2 {
		return Shape{}, false
	}

	// Side walls must be parallel to the extrusion axis.
	for k := range faces {
		if k == a || k == b {
			continue
		}
		if math.Abs(faces[k].Normal.Dot(ca.Normal)) > orthoTol {
			return Shape{}, false
		}
	}

	// Signed distance between the two cap planes. The normals oppose, so
	// the second offset is measured against the flipped axis.
	thickness := math.Abs(ca.Offset + cb.Offset)
	if thickness <= 0 {
		return Shape{}, false
	}

	// Project cap a into a 2D basis orthogonal to the extrusion axis.
	u, v := planeBasis(ca.Normal)
	project := func(ring []v3.Vec) []v2.Vec {
		out := make([]v2.Vec, len(ring))
		for i, p := range ring {
			out[i] = v2.Vec{X: u.Dot(p), Y: v.Dot(p)}
		}
		return out
	}
	poly := geom.Polygon{Outer: project(ca.Outer)}
	for _, h := range ca.Holes {
		poly.Holes = append(poly.Holes, project(h))
	}

	poly = poly.Simplify(simplifyTol)
	if len(poly.Outer) < 3 {
		return Shape{}, false
	}
	normalized, w, h := poly.Normalize()

	dims := sortedDims(thickness, w, h)
	dimIndex := 0
	for i, d := range dims {
		if d == thickness {
			dimIndex = i
			break
		}
	}

	key := fmt.Sprintf("ext:%s:%s", dimsKey(dims), geom.CanonicalKey(normalized, w, h))
	return Shape{
		Kind: KindExtruded,
		Key:  key,
		Dims: dims,
		Data: ExtrusionData{
			Thickness: thickness,
			DimIndex:  dimIndex,
			Polygon:   normalized,
		},
	}, true
}

// unknownNamespace scopes the content-derived ids of unclassifiable
// solids.
var unknownNamespace = uuid.MustParse("8e38bd3f-2ca0-4b1c-9e0e-4f8a3e6b9d21")

// unknownShape is the defined fallback for unclassifiable input: it is
// still counted downstream, with only bounding-box dims. The key is
// derived from the mesh content so that rebuilding an unchanged model
// yields the same identity (and keeps its label), while solids with
// different geometry stay apart.
func unknownShape(m *mesh.Mesh) Shape {
	var dims [3]float64
	var buf []byte
	if m != nil && !m.IsEmpty() {
		min, max := m.Bounds()
		e := max.Sub(min)
		dims = sortedDims(e.X, e.Y, e.Z)
		buf = make([]byte, 0, len(m.Vertices)*8+len(m.Indices)*4)
		for _, f := range m.Vertices {
			buf = binary.LittleEndian.AppendUint64(buf, math.Float64bits(f))
		}
		for _, idx := range m.Indices {
			buf = binary.LittleEndian.AppendUint32(buf, idx)
		}
	}
	return Shape{
		Kind: KindUnknown,
		Key:  "unknown:" + uuid.NewSHA1(unknownNamespace, buf).String(),
		Dims: dims,
	}
}

func holeEdgeCounts(f *mesh.Face) []int {
	counts := make([]int, len(f.Holes))
	for i, h := range f.Holes {
		counts[i] = len(h)
	}
	sort.Ints(counts)
	return counts
}

// planeBasis builds an orthonormal basis (u, v) spanning the plane with
// the given unit normal.
func planeBasis(n v3.Vec) (u, v v3.Vec) {
	axis := v3.Vec{X: 1}
	if math.Abs(n.X) > math.Abs(n.Y) {
		axis = v3.Vec{Y: 1}
	}
	u = n.Cross(axis).Normalize()
	v = n.Cross(u)
	return u, v
}

func sortedDims(a, b, c float64) [3]float64 {
	d := []float64{a, b, c}
	sort.Float64s(d)
	return [3]float64{d[0], d[1], d[2]}
}

// dimsKey renders a dims triple rounded to 0.1 units for identity keys.
func dimsKey(dims [3]float64) string {
	return fmt.Sprintf("%.1fx%.1fx%.1f", dims[0], dims[1], dims[2])
}
