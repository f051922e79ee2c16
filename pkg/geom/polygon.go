// Package geom provides 2D polygon-with-holes support for shape
// canonicalization: hole-aware area, collinear simplification, minimum-area
// bounding box normalization and an orientation-independent encoding.
package geom

import (
	"fmt"
	"math"
	"sort"
	"strings"

	v2 "github.com/deadsy/sdfx/vec/v2"
)

// Polygon is a planar region bounded by an outer ring with optional hole
// rings. Rings are open (no repeated end vertex).
type Polygon struct {
	Outer []v2.Vec   `json:"outer"`
	Holes [][]v2.Vec `json:"holes,omitempty"`
}

// Area returns the hole-aware area: outer ring area minus hole areas.
func (p *Polygon) Area() float64 {
	a := ringArea(p.Outer)
	for _, h := range p.Holes {
		a -= ringArea(h)
	}
	return a
}

// ringArea returns the absolute shoelace area of a ring.
func ringArea(ring []v2.Vec) float64 {
	var sum float64
	for i := range ring {
		j := (i + 1) % len(ring)
		sum += ring[i].X*ring[j].Y - ring[j].X*ring[i].Y
	}
	return math.Abs(sum) / 2
}

// Simplify returns a copy with collinear ring points removed. A point is
// dropped when its perpendicular distance to the line through its
// neighbours is below tol.
func (p *Polygon) Simplify(tol float64) Polygon {
	out := Polygon{Outer: simplifyRing(p.Outer, tol)}
	for _, h := range p.Holes {
		s := simplifyRing(h, tol)
		if len(s) >= 3 {
			out.Holes = append(out.Holes, s)
		}
	}
	return out
}

func simplifyRing(ring []v2.Vec, tol float64) []v2.Vec {
	if len(ring) < 4 {
		return append([]v2.Vec(nil), ring...)
	}
	kept := append([]v2.Vec(nil), ring...)
	for {
		removed := false
		for i := 0; i < len(kept) && len(kept) > 3; i++ {
			prev := kept[(i+len(kept)-1)%len(kept)]
			next := kept[(i+1)%len(kept)]
			if pointLineDistance(kept[i], prev, next) < tol {
				kept = append(kept[:i], kept[i+1:]...)
				removed = true
				i--
			}
		}
		if !removed {
			return kept
		}
	}
}

// pointLineDistance returns the perpendicular distance from p to the
// infinite line through a and b.
func pointLineDistance(p, a, b v2.Vec) float64 {
	d := b.Sub(a)
	l := d.Length()
	if l < 1e-12 {
		return p.Sub(a).Length()
	}
	return math.Abs(d.X*(p.Y-a.Y)-d.Y*(p.X-a.X)) / l
}

// Normalize rotates the polygon into its minimum-area bounding box
// orientation, translates the box's minimum corner to the origin, and
// rounds every coordinate to the nearest integer. The returned width and
// height are the integer bounding box dimensions.
func (p *Polygon) Normalize() (Polygon, float64, float64) {
	angle := minAreaAngle(p.Outer)
	cos, sin := math.Cos(-angle), math.Sin(-angle)
	rot := func(v v2.Vec) v2.Vec {
		return v2.Vec{X: v.X*cos - v.Y*sin, Y: v.X*sin + v.Y*cos}
	}

	rotated := Polygon{Outer: mapRing(p.Outer, rot)}
	for _, h := range p.Holes {
		rotated.Holes = append(rotated.Holes, mapRing(h, rot))
	}

	min, max := ringBounds(rotated.Outer)
	shift := func(v v2.Vec) v2.Vec {
		return v2.Vec{X: math.Round(v.X - min.X), Y: math.Round(v.Y - min.Y)}
	}
	out := Polygon{Outer: mapRing(rotated.Outer, shift)}
	for _, h := range rotated.Holes {
		out.Holes = append(out.Holes, mapRing(h, shift))
	}
	return out, math.Round(max.X - min.X), math.Round(max.Y - min.Y)
}

func mapRing(ring []v2.Vec, f func(v2.Vec) v2.Vec) []v2.Vec {
	out := make([]v2.Vec, len(ring))
	for i, v := range ring {
		out[i] = f(v)
	}
	return out
}

func ringBounds(ring []v2.Vec) (min, max v2.Vec) {
	min, max = ring[0], ring[0]
	for _, v := range ring[1:] {
		min.X = math.Min(min.X, v.X)
		min.Y = math.Min(min.Y, v.Y)
		max.X = math.Max(max.X, v.X)
		max.Y = math.Max(max.Y, v.Y)
	}
	return min, max
}

// minAreaAngle returns the rotation angle of the ring's minimum-area
// bounding box. Per rotating calipers, the minimum-area box shares an
// orientation with some edge of the convex hull.
func minAreaAngle(ring []v2.Vec) float64 {
	hull := convexHull(ring)
	if len(hull) < 3 {
		return 0
	}
	bestAngle, bestArea := 0.0, math.Inf(1)
	for i := range hull {
		e := hull[(i+1)%len(hull)].Sub(hull[i])
		angle := math.Atan2(e.Y, e.X)
		cos, sin := math.Cos(-angle), math.Sin(-angle)
		minX, minY := math.Inf(1), math.Inf(1)
		maxX, maxY := math.Inf(-1), math.Inf(-1)
		for _, v := range hull {
			x := v.X*cos - v.Y*sin
			y := v.X*sin + v.Y*cos
			minX, maxX = math.Min(minX, x), math.Max(maxX, x)
			minY, maxY = math.Min(minY, y), math.Max(maxY, y)
		}
		area := (maxX - minX) * (maxY - minY)
		if area < bestArea-1e-9 {
			bestArea = area
			bestAngle = angle
		}
	}
	return bestAngle
}

// convexHull returns the convex hull in counter-clockwise order
// (Andrew's monotone chain).
func convexHull(points []v2.Vec) []v2.Vec {
	pts := append([]v2.Vec(nil), points...)
	sort.Slice(pts, func(i, j int) bool {
		if pts[i].X != pts[j].X {
			return pts[i].X < pts[j].X
		}
		return pts[i].Y < pts[j].Y
	})
	if len(pts) < 3 {
		return pts
	}
	cross := func(o, a, b v2.Vec) float64 {
		return (a.X-o.X)*(b.Y-o.Y) - (a.Y-o.Y)*(b.X-o.X)
	}
	var lower, upper []v2.Vec
	for _, p := range pts {
		for len(lower) >= 2 && cross(lower[len(lower)-2], lower[len(lower)-1], p) <= 0 {
			lower = lower[:len(lower)-1]
		}
		lower = append(lower, p)
	}
	for i := len(pts) - 1; i >= 0; i-- {
		p := pts[i]
		for len(upper) >= 2 && cross(upper[len(upper)-2], upper[len(upper)-1], p) <= 0 {
			upper = upper[:len(upper)-1]
		}
		upper = append(upper, p)
	}
	return append(lower[:len(lower)-1], upper[:len(upper)-1]...)
}

// CanonicalKey returns an encoding of a normalized polygon that is
// invariant under the eight symmetries of its bounding box and under ring
// starting point and direction. Two congruent polygons produce the same
// key regardless of the orientation they were normalized in.
func CanonicalKey(p Polygon, width, height float64) string {
	type xform struct {
		f        func(v2.Vec) v2.Vec
		swapWH   bool
	}
	w, h := width, height
	xforms := []xform{
		{func(v v2.Vec) v2.Vec { return v }, false},
		{func(v v2.Vec) v2.Vec { return v2.Vec{X: w - v.X, Y: v.Y} }, false},
		{func(v v2.Vec) v2.Vec { return v2.Vec{X: v.X, Y: h - v.Y} }, false},
		{func(v v2.Vec) v2.Vec { return v2.Vec{X: w - v.X, Y: h - v.Y} }, false},
		{func(v v2.Vec) v2.Vec { return v2.Vec{X: v.Y, Y: v.X} }, true},
		{func(v v2.Vec) v2.Vec { return v2.Vec{X: h - v.Y, Y: v.X} }, true},
		{func(v v2.Vec) v2.Vec { return v2.Vec{X: v.Y, Y: w - v.X} }, true},
		{func(v v2.Vec) v2.Vec { return v2.Vec{X: h - v.Y, Y: w - v.X} }, true},
	}

	best := ""
	for _, x := range xforms {
		q := Polygon{Outer: mapRing(p.Outer, x.f)}
		for _, hole := range p.Holes {
			q.Holes = append(q.Holes, mapRing(hole, x.f))
		}
		bw, bh := w, h
		if x.swapWH {
			bw, bh = h, w
		}
		enc := encodePolygon(q, bw, bh)
		if best == "" || enc < best {
			best = enc
		}
	}
	return best
}

// encodePolygon serializes a polygon with each ring in canonical cycle
// order: direction and starting vertex chosen to minimize the encoding.
func encodePolygon(p Polygon, w, h float64) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%dx%d:", int(w), int(h))
	sb.WriteString(canonicalRing(p.Outer))
	holes := make([]string, len(p.Holes))
	for i, hole := range p.Holes {
		holes[i] = canonicalRing(hole)
	}
	sort.Strings(holes)
	for _, hs := range holes {
		sb.WriteString("/")
		sb.WriteString(hs)
	}
	return sb.String()
}

// canonicalRing encodes a ring choosing the cyclic rotation and direction
// with the lexicographically smallest result.
func canonicalRing(ring []v2.Vec) string {
	n := len(ring)
	reversed := make([]v2.Vec, n)
	for i, v := range ring {
		reversed[n-1-i] = v
	}
	best := ""
	for _, r := range [][]v2.Vec{ring, reversed} {
		for start := 0; start < n; start++ {
			var sb strings.Builder
			for k := 0; k < n; k++ {
				v := r[(start+k)%n]
				fmt.Fprintf(&sb, "%d,%d;", int(v.X), int(v.Y))
			}
			if best == "" || sb.String() < best {
				best = sb.String()
			}
		}
	}
	return best
}

// SidePolygon ties a face outline to the index of the dimension its
// thickness corresponds to in a sorted dims triple.
type SidePolygon struct {
	Polygon  Polygon `json:"polygon"`
	DimIndex int     `json:"dim_index"`
}
