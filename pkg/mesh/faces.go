package mesh

import (
	"math"
	"sort"

	v3 "github.com/deadsy/sdfx/vec/v3"
)

const (
	// sameDirection is the |dot| threshold above which two unit normals
	// are treated as the same plane direction.
	sameDirection = 0.999
	// samePlane is the offset tolerance for coplanarity, relative to the
	// mesh extent.
	samePlane = 1e-5
)

// Face is a maximal planar region of the mesh: all triangles sharing one
// plane (same normal direction and offset), with its boundary extracted
// as an outer ring plus zero or more hole rings.
type Face struct {
	Normal v3.Vec     // unit normal
	Offset float64    // plane offset: Normal · p for any point p on the face
	Outer  []v3.Vec   // outer boundary ring, ordered
	Holes  [][]v3.Vec // hole rings, ordered
}

// EdgeCount returns the total number of boundary edges (outer + holes).
func (f *Face) EdgeCount() int {
	n := len(f.Outer)
	for _, h := range f.Holes {
		n += len(h)
	}
	return n
}

// PlanarFaces groups the mesh triangles into maximal planar faces and
// extracts each face's boundary rings. Degenerate triangles are skipped.
// Returns nil if any face boundary cannot be chained into closed loops
// (non-manifold input).
func (m *Mesh) PlanarFaces() []Face {
	min, max := m.Bounds()
	scale := max.Sub(min).Length()
	if scale == 0 {
		return nil
	}
	offsetTol := samePlane * scale

	type group struct {
		normal    v3.Vec
		offset    float64
		triangles []int
	}
	var groups []*group

	for t := 0; t < m.TriangleCount(); t++ {
		n := m.TriangleNormal(t)
		if n.Length() < 0.5 {
			continue // degenerate
		}
		offset := n.Dot(m.Triangle(t)[0])
		found := false
		for _, g := range groups {
			if g.normal.Dot(n) > sameDirection && math.Abs(g.offset-offset) < offsetTol {
				g.triangles = append(g.triangles, t)
				found = true
				break
			}
		}
		if !found {
			groups = append(groups, &group{normal: n, offset: offset, triangles: []int{t}})
		}
	}

	remap := m.weld()

	faces := make([]Face, 0, len(groups))
	for _, g := range groups {
		rings := m.boundaryRings(g.triangles, remap)
		if rings == nil {
			return nil
		}
		f := Face{Normal: g.normal, Offset: g.offset}
		// The ring enclosing the largest area is the outer boundary.
		best, bestArea := -1, -1.0
		for i, r := range rings {
			a := ringArea3(r, g.normal)
			if a > bestArea {
				best, bestArea = i, a
			}
		}
		for i, r := range rings {
			if i == best {
				f.Outer = r
			} else {
				f.Holes = append(f.Holes, r)
			}
		}
		// Deterministic hole order: by ring length, then by first vertex.
		sort.Slice(f.Holes, func(i, j int) bool {
			if len(f.Holes[i]) != len(f.Holes[j]) {
				return len(f.Holes[i]) < len(f.Holes[j])
			}
			return lessVec(f.Holes[i][0], f.Holes[j][0])
		})
		faces = append(faces, f)
	}
	return faces
}

// boundaryRings extracts the closed boundary loops of a set of triangles.
// A directed edge is a boundary edge when its reverse does not appear in
// the same set; consistent winding guarantees the boundary chains into
// closed loops for manifold input.
func (m *Mesh) boundaryRings(triangles []int, remap []int) [][]v3.Vec {
	type edge struct{ a, b int }
	directed := make(map[edge]bool)
	for _, t := range triangles {
		i0 := remap[int(m.Indices[t*3])]
		i1 := remap[int(m.Indices[t*3+1])]
		i2 := remap[int(m.Indices[t*3+2])]
		directed[edge{i0, i1}] = true
		directed[edge{i1, i2}] = true
		directed[edge{i2, i0}] = true
	}

	// next[a] = b for each boundary edge a->b.
	next := make(map[int]int)
	for e := range directed {
		if !directed[edge{e.b, e.a}] {
			if _, dup := next[e.a]; dup {
				return nil // vertex on more than one boundary loop: non-manifold
			}
			next[e.a] = e.b
		}
	}
	if len(next) == 0 {
		return nil // closed triangle set has no boundary
	}

	// Chain the boundary edges into loops, starting each loop at its
	// smallest vertex index for determinism.
	starts := make([]int, 0, len(next))
	for a := range next {
		starts = append(starts, a)
	}
	sort.Ints(starts)

	visited := make(map[int]bool)
	var rings [][]v3.Vec
	for _, start := range starts {
		if visited[start] {
			continue
		}
		var ring []v3.Vec
		at := start
		for {
			if visited[at] {
				return nil // chain re-enters a consumed vertex
			}
			visited[at] = true
			ring = append(ring, m.Vertex(at))
			n, ok := next[at]
			if !ok {
				return nil // open chain
			}
			at = n
			if at == start {
				break
			}
		}
		if len(ring) < 3 {
			return nil
		}
		rings = append(rings, ring)
	}
	return rings
}

// ringArea3 returns the absolute area of a planar 3D ring with the given
// plane normal, via the shoelace formula lifted to 3D.
func ringArea3(ring []v3.Vec, normal v3.Vec) float64 {
	var sum v3.Vec
	for i := range ring {
		j := (i + 1) % len(ring)
		sum = sum.Add(ring[i].Cross(ring[j]))
	}
	return math.Abs(sum.Dot(normal)) / 2
}

func lessVec(a, b v3.Vec) bool {
	if a.X != b.X {
		return a.X < b.X
	}
	if a.Y != b.Y {
		return a.Y < b.Y
	}
	return a.Z < b.Z
}
