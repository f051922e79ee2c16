// Package mesh defines the triangle boundary mesh consumed by shape
// classification. All arrays are flat: vertices has 3 floats per vertex
// (x,y,z), indices has 3 uint32s per triangle. The mesh is a triangle
// soup; no topology is assumed beyond manifoldness.
package mesh

import (
	"fmt"
	"math"

	v3 "github.com/deadsy/sdfx/vec/v3"
)

// weldEpsilon is the positional tolerance used when merging coincident
// vertices. Tessellators routinely emit duplicated vertices per triangle,
// so all topological queries weld first.
const weldEpsilon = 1e-6

// Mesh is a triangle boundary mesh.
type Mesh struct {
	Vertices []float64 `json:"vertices"` // [x0,y0,z0, x1,y1,z1, ...]
	Indices  []uint32  `json:"indices"`  // [i0,i1,i2, ...] triangles
}

// VertexCount returns the number of vertices.
func (m *Mesh) VertexCount() int {
	return len(m.Vertices) / 3
}

// TriangleCount returns the number of triangles.
func (m *Mesh) TriangleCount() int {
	return len(m.Indices) / 3
}

// IsEmpty returns true if the mesh has no geometry.
func (m *Mesh) IsEmpty() bool {
	return len(m.Vertices) == 0 || len(m.Indices) == 0
}

// Vertex returns vertex i as a vector.
func (m *Mesh) Vertex(i int) v3.Vec {
	return v3.Vec{
		X: m.Vertices[i*3],
		Y: m.Vertices[i*3+1],
		Z: m.Vertices[i*3+2],
	}
}

// Triangle returns the three corner vertices of triangle t.
func (m *Mesh) Triangle(t int) [3]v3.Vec {
	return [3]v3.Vec{
		m.Vertex(int(m.Indices[t*3])),
		m.Vertex(int(m.Indices[t*3+1])),
		m.Vertex(int(m.Indices[t*3+2])),
	}
}

// TriangleNormal returns the unit normal of triangle t, or the zero
// vector for a degenerate triangle.
func (m *Mesh) TriangleNormal(t int) v3.Vec {
	tri := m.Triangle(t)
	n := tri[1].Sub(tri[0]).Cross(tri[2].Sub(tri[0]))
	l := n.Length()
	if l < 1e-12 {
		return v3.Vec{}
	}
	return n.DivScalar(l)
}

// Volume returns the enclosed volume of the mesh, computed as the sum of
// signed tetrahedron volumes. The result is the absolute value, so winding
// order does not matter as long as it is consistent.
func (m *Mesh) Volume() float64 {
	var sum float64
	for t := 0; t < m.TriangleCount(); t++ {
		tri := m.Triangle(t)
		sum += tri[0].Dot(tri[1].Cross(tri[2]))
	}
	return math.Abs(sum / 6)
}

// Bounds returns the axis-aligned bounding box of all vertices.
func (m *Mesh) Bounds() (min, max v3.Vec) {
	if m.VertexCount() == 0 {
		return v3.Vec{}, v3.Vec{}
	}
	min = m.Vertex(0)
	max = min
	for i := 1; i < m.VertexCount(); i++ {
		v := m.Vertex(i)
		min = min.Min(v)
		max = max.Max(v)
	}
	return min, max
}

// Validate checks structural sanity: the mesh has geometry, index arrays
// are whole triangles, and every index is in range.
func (m *Mesh) Validate() error {
	if m.IsEmpty() {
		return fmt.Errorf("mesh: no geometry")
	}
	if len(m.Vertices)%3 != 0 {
		return fmt.Errorf("mesh: vertex array length %d is not a multiple of 3", len(m.Vertices))
	}
	if len(m.Indices)%3 != 0 {
		return fmt.Errorf("mesh: index array length %d is not a multiple of 3", len(m.Indices))
	}
	n := uint32(m.VertexCount())
	for _, idx := range m.Indices {
		if idx >= n {
			return fmt.Errorf("mesh: index %d out of range (have %d vertices)", idx, n)
		}
	}
	return nil
}

// Transformed returns a copy of the mesh with the given rotation (applied
// first, row-major 3x3) and translation applied to every vertex.
func (m *Mesh) Transformed(rot [3][3]float64, trans v3.Vec) *Mesh {
	out := &Mesh{
		Vertices: make([]float64, len(m.Vertices)),
		Indices:  append([]uint32(nil), m.Indices...),
	}
	for i := 0; i < m.VertexCount(); i++ {
		v := m.Vertex(i)
		r := v3.Vec{
			X: rot[0][0]*v.X + rot[0][1]*v.Y + rot[0][2]*v.Z,
			Y: rot[1][0]*v.X + rot[1][1]*v.Y + rot[1][2]*v.Z,
			Z: rot[2][0]*v.X + rot[2][1]*v.Y + rot[2][2]*v.Z,
		}
		r = r.Add(trans)
		out.Vertices[i*3] = r.X
		out.Vertices[i*3+1] = r.Y
		out.Vertices[i*3+2] = r.Z
	}
	return out
}

// weld maps every vertex index to a canonical index shared by all
// coincident vertices. This turns the triangle soup into a topological
// mesh so that edge adjacency queries work.
func (m *Mesh) weld() []int {
	type key struct{ x, y, z int64 }
	quantize := func(v v3.Vec) key {
		return key{
			x: int64(math.Round(v.X / weldEpsilon)),
			y: int64(math.Round(v.Y / weldEpsilon)),
			z: int64(math.Round(v.Z / weldEpsilon)),
		}
	}
	canonical := make(map[key]int)
	remap := make([]int, m.VertexCount())
	for i := 0; i < m.VertexCount(); i++ {
		k := quantize(m.Vertex(i))
		if c, ok := canonical[k]; ok {
			remap[i] = c
		} else {
			canonical[k] = i
			remap[i] = i
		}
	}
	return remap
}
