package parts

import (
	"math"

	"github.com/baleframe/tally/pkg/catalog"
	"github.com/baleframe/tally/pkg/classify"
	"github.com/baleframe/tally/pkg/geom"
)

// Metrics are the manufacturable part measurements resolved from a
// classified shape against one catalog entry.
type Metrics struct {
	Volume       float64
	Area         *float64
	Length       *float64
	Thickness    *float64
	CrossSection *catalog.CrossSection
	Issue        Issue
	SidePolygons []geom.SidePolygon
}

// Resolve computes part metrics for a classified shape and its material.
// hasPartInfo tells whether the element carries an explicit semantic
// hint: geometry without one is never flagged for cross-section
// mismatches (its identity was already narrowed by a tag bucket), and its
// per-instance side polygons are not retained.
func Resolve(shape classify.Shape, mat *catalog.Material, hasPartInfo bool) Metrics {
	m := Metrics{Volume: shape.Dims[0] * shape.Dims[1] * shape.Dims[2]}

	if ext, ok := shape.Data.(classify.ExtrusionData); ok && hasPartInfo {
		m.SidePolygons = []geom.SidePolygon{{Polygon: ext.Polygon, DimIndex: ext.DimIndex}}
	}

	if mat == nil {
		return m
	}
	switch mat.Kind {
	case catalog.Dimensional:
		resolveDimensional(&m, shape, mat, hasPartInfo)
	case catalog.Sheet:
		resolveSheet(&m, shape, mat)
	case catalog.Volume:
		resolveVolume(&m, shape, hasPartInfo)
	case catalog.Prefab, catalog.Strawbale, catalog.Generic:
		// Volume only. Straw bucketing happens in identity resolution.
	}
	return m
}

// dimPairs enumerates the 3-choose-2 pairings of a dims triple; the third
// value is the leftover index.
var dimPairs = [3][3]int{{0, 1, 2}, {1, 2, 0}, {0, 2, 1}}

// resolveDimensional matches any two of the three dims against a catalog
// cross-section; the remaining dim is the cut length.
func resolveDimensional(m *Metrics, shape classify.Shape, mat *catalog.Material, hasPartInfo bool) {
	r := roundedDims(shape.Dims)
	for _, cs := range mat.CrossSections {
		for _, p := range dimPairs {
			lo := math.Min(r[p[0]], r[p[1]])
			hi := math.Max(r[p[0]], r[p[1]])
			if lo != cs.Smaller || hi != cs.Bigger {
				continue
			}
			matched := cs
			m.CrossSection = &matched
			length := shape.Dims[p[2]]
			m.Length = &length
			if max := mat.MaxLength(); max > 0 && length > max {
				m.Issue = LengthExceedsAvailable
			}
			return
		}
	}
	if hasPartInfo {
		m.Issue = CrossSectionMismatch
	}
}

// resolveSheet finds the dim matching a catalog thickness; the other two
// dims must fit inside some available sheet size.
func resolveSheet(m *Metrics, shape classify.Shape, mat *catalog.Material) {
	r := roundedDims(shape.Dims)

	thicknessIdx := -1
	for i, d := range r {
		for _, t := range mat.Thicknesses {
			if d == math.Round(t) {
				thicknessIdx = i
				break
			}
		}
		if thicknessIdx >= 0 {
			break
		}
	}
	if thicknessIdx < 0 {
		// The smallest dim is assumed to be thickness as a fallback for
		// area/volume computation; the issue is still raised.
		m.Issue = ThicknessMismatch
		thicknessIdx = 0
	}
	thickness := shape.Dims[thicknessIdx]
	m.Thickness = &thickness

	var rest [2]float64
	k := 0
	for i, d := range shape.Dims {
		if i != thicknessIdx {
			rest[k] = d
			k++
		}
	}
	smaller := math.Min(rest[0], rest[1])
	bigger := math.Max(rest[0], rest[1])

	if m.Issue == IssueNone {
		fits := false
		for _, s := range mat.SheetSizes {
			if math.Round(smaller) <= s.Smaller && math.Round(bigger) <= s.Bigger {
				fits = true
				break
			}
		}
		if !fits {
			m.Issue = SheetSizeExceeded
		}
	}

	// Prefer the shape's own polygon-derived area over the raw bounding
	// rectangle when the polygon's thickness dim matches.
	area := smaller * bigger
	if poly := sidePolygonFor(shape, thicknessIdx); poly != nil {
		area = poly.Polygon.Area()
	}
	m.Area = &area
	m.Volume = area * thickness
}

// resolveVolume computes bulk-fill metrics: polygon-derived when a side
// polygon is available on a hinted element, sorted-dims heuristic
// otherwise (smallest dim is thickness, the other two span the area).
func resolveVolume(m *Metrics, shape classify.Shape, hasPartInfo bool) {
	if hasPartInfo {
		if ext, ok := shape.Data.(classify.ExtrusionData); ok {
			area := ext.Polygon.Area()
			thickness := shape.Dims[ext.DimIndex]
			m.Area = &area
			m.Thickness = &thickness
			return
		}
	}
	thickness := shape.Dims[0]
	area := shape.Dims[1] * shape.Dims[2]
	m.Area = &area
	m.Thickness = &thickness
}

// sidePolygonFor returns the shape's side polygon when its thickness dim
// index matches the resolved one.
func sidePolygonFor(shape classify.Shape, thicknessIdx int) *geom.SidePolygon {
	ext, ok := shape.Data.(classify.ExtrusionData)
	if !ok || ext.DimIndex != thicknessIdx {
		return nil
	}
	return &geom.SidePolygon{Polygon: ext.Polygon, DimIndex: ext.DimIndex}
}

func roundedDims(dims [3]float64) [3]float64 {
	return [3]float64{
		math.Round(dims[0]),
		math.Round(dims[1]),
		math.Round(dims[2]),
	}
}
