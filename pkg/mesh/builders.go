package mesh

import (
	"math"

	v2 "github.com/deadsy/sdfx/vec/v2"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Box returns a triangulated axis-aligned box with its minimum corner at
// the origin, sized (dx, dy, dz). Winding is outward.
func Box(dx, dy, dz float64) *Mesh {
	corners := []v3.Vec{
		{X: 0, Y: 0, Z: 0}, {X: dx, Y: 0, Z: 0}, {X: dx, Y: dy, Z: 0}, {X: 0, Y: dy, Z: 0},
		{X: 0, Y: 0, Z: dz}, {X: dx, Y: 0, Z: dz}, {X: dx, Y: dy, Z: dz}, {X: 0, Y: dy, Z: dz},
	}
	quads := [][4]int{
		{3, 2, 1, 0}, // bottom (z=0), outward -z
		{4, 5, 6, 7}, // top (z=dz), outward +z
		{0, 1, 5, 4}, // front (y=0), outward -y
		{2, 3, 7, 6}, // back (y=dy), outward +y
		{1, 2, 6, 5}, // right (x=dx), outward +x
		{3, 0, 4, 7}, // left (x=0), outward -x
	}
	m := &Mesh{}
	for _, c := range corners {
		m.Vertices = append(m.Vertices, c.X, c.Y, c.Z)
	}
	for _, q := range quads {
		m.Indices = append(m.Indices,
			uint32(q[0]), uint32(q[1]), uint32(q[2]),
			uint32(q[0]), uint32(q[2]), uint32(q[3]))
	}
	return m
}

// Prism returns a triangulated right prism: the given simple polygon
// (without holes, in counter-clockwise order) extruded along +Z by depth.
// Cap triangulation is by ear clipping, so non-convex outlines work.
func Prism(outline []v2.Vec, depth float64) *Mesh {
	n := len(outline)
	m := &Mesh{}
	// Bottom ring then top ring.
	for _, p := range outline {
		m.Vertices = append(m.Vertices, p.X, p.Y, 0)
	}
	for _, p := range outline {
		m.Vertices = append(m.Vertices, p.X, p.Y, depth)
	}

	ears := earClip(outline)
	for _, tri := range ears {
		// Bottom cap faces -Z: reverse winding.
		m.Indices = append(m.Indices, uint32(tri[0]), uint32(tri[2]), uint32(tri[1]))
		// Top cap faces +Z.
		m.Indices = append(m.Indices, uint32(n+tri[0]), uint32(n+tri[1]), uint32(n+tri[2]))
	}
	// Side walls, outward for a CCW outline.
	for i := 0; i < n; i++ {
		j := (i + 1) % n
		m.Indices = append(m.Indices,
			uint32(i), uint32(j), uint32(n+j),
			uint32(i), uint32(n+j), uint32(n+i))
	}
	return m
}

// earClip triangulates a simple CCW polygon by ear clipping, returning
// index triples into the input slice.
func earClip(poly []v2.Vec) [][3]int {
	idx := make([]int, len(poly))
	for i := range idx {
		idx[i] = i
	}
	var tris [][3]int
	for len(idx) > 3 {
		clipped := false
		for i := 0; i < len(idx); i++ {
			prev := idx[(i+len(idx)-1)%len(idx)]
			cur := idx[i]
			next := idx[(i+1)%len(idx)]
			if !isEar(poly, idx, prev, cur, next) {
				continue
			}
			tris = append(tris, [3]int{prev, cur, next})
			idx = append(idx[:i], idx[i+1:]...)
			clipped = true
			break
		}
		if !clipped {
			return nil // degenerate outline
		}
	}
	tris = append(tris, [3]int{idx[0], idx[1], idx[2]})
	return tris
}

func isEar(poly []v2.Vec, idx []int, prev, cur, next int) bool {
	a, b, c := poly[prev], poly[cur], poly[next]
	// Convex corner for a CCW polygon.
	if cross2(b.Sub(a), c.Sub(b)) <= 0 {
		return false
	}
	// No other active vertex inside the candidate ear.
	for _, k := range idx {
		if k == prev || k == cur || k == next {
			continue
		}
		if pointInTriangle(poly[k], a, b, c) {
			return false
		}
	}
	return true
}

func pointInTriangle(p, a, b, c v2.Vec) bool {
	d1 := cross2(b.Sub(a), p.Sub(a))
	d2 := cross2(c.Sub(b), p.Sub(b))
	d3 := cross2(a.Sub(c), p.Sub(c))
	hasNeg := d1 < 0 || d2 < 0 || d3 < 0
	hasPos := d1 > 0 || d2 > 0 || d3 > 0
	return !(hasNeg && hasPos)
}

func cross2(a, b v2.Vec) float64 {
	return a.X*b.Y - a.Y*b.X
}

// RotationMatrix builds a row-major rotation matrix from Euler angles in
// degrees, applied in Z·Y·X order.
func RotationMatrix(xDeg, yDeg, zDeg float64) [3][3]float64 {
	rx := xDeg * math.Pi / 180
	ry := yDeg * math.Pi / 180
	rz := zDeg * math.Pi / 180
	sx, cx := math.Sin(rx), math.Cos(rx)
	sy, cy := math.Sin(ry), math.Cos(ry)
	sz, cz := math.Sin(rz), math.Cos(rz)

	mx := [3][3]float64{{1, 0, 0}, {0, cx, -sx}, {0, sx, cx}}
	my := [3][3]float64{{cy, 0, sy}, {0, 1, 0}, {-sy, 0, cy}}
	mz := [3][3]float64{{cz, -sz, 0}, {sz, cz, 0}, {0, 0, 1}}
	return matMul(mz, matMul(my, mx))
}

func matMul(a, b [3][3]float64) [3][3]float64 {
	var out [3][3]float64
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			for k := 0; k < 3; k++ {
				out[i][j] += a[i][k] * b[k][j]
			}
		}
	}
	return out
}
