package parts

import (
	"log/slog"
	"sort"

	"github.com/baleframe/tally/pkg/catalog"
	"github.com/baleframe/tally/pkg/classify"
	"github.com/baleframe/tally/pkg/geom"
	"github.com/baleframe/tally/pkg/model"
)

// Aggregator walks a construction-element tree and produces one Result:
// a flat set of part definitions (one per distinct identity) and part
// occurrences (one per physical element/group instance).
type Aggregator struct {
	Catalog *catalog.Catalog
	Matcher model.IDMatcher
	Logger  *slog.Logger
}

// NewAggregator creates an aggregator with the default location matcher.
func NewAggregator(cat *catalog.Catalog, logger *slog.Logger) *Aggregator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Aggregator{Catalog: cat, Matcher: model.DefaultMatcher, Logger: logger}
}

// Build performs one full traversal. Each element is visited exactly
// once; the result is regenerated from scratch and carries no state from
// previous builds.
func (a *Aggregator) Build(roots []*model.Element) *Result {
	res := NewResult()
	// Classification memo for leaves sharing one mesh within this build;
	// classification is pure, so caching by element id is sound here.
	shapes := make(map[string]classify.Shape)
	for _, root := range roots {
		a.walk(root, nil, model.Location{}, res, shapes)
	}
	return res
}

func (a *Aggregator) walk(e *model.Element, inherited []model.Tag, loc model.Location, res *Result, shapes map[string]classify.Shape) {
	tags := make([]model.Tag, 0, len(inherited)+len(e.Tags))
	tags = append(tags, inherited...)
	tags = append(tags, e.Tags...)
	loc = a.Matcher.Update(loc, e.SourceID)

	switch e.Kind {
	case model.KindLeaf:
		a.leafPart(e, tags, loc, res, shapes)
	case model.KindContainer:
		for _, child := range e.Children {
			a.walk(child, tags, loc, res, shapes)
		}
		// A container with its own hint also yields one virtual part; it
		// never suppresses its children's parts.
		if e.Info != nil {
			a.containerPart(e, loc, res)
		}
	}
}

func (a *Aggregator) leafPart(e *model.Element, tags []model.Tag, loc model.Location, res *Result, shapes map[string]classify.Shape) {
	ld := e.Leaf()
	if ld == nil {
		return
	}
	mat := a.Catalog.Get(ld.Material)

	shape, ok := shapes[e.ID]
	if !ok {
		shape = classify.Classify(ld.Mesh)
		shapes[e.ID] = shape
	}
	hasInfo := e.Info != nil
	metrics := Resolve(shape, mat, hasInfo)

	var identity, typ, subtype, description string
	var straw model.StrawCategory
	switch {
	case mat != nil && mat.Kind == catalog.Strawbale:
		straw = model.StrawCategoryFromTags(tags)
		identity = StrawIdentity(mat.ID, straw)
		typ = "straw"
		if hasInfo {
			typ, subtype, description = e.Info.Type, e.Info.Subtype, e.Info.Description
		}
	case hasInfo:
		identity = IdentityWithHint(e.Info, ld.Material, shape.Key)
		typ, subtype, description = e.Info.Type, e.Info.Subtype, e.Info.Description
	default:
		if model.MappedTagCount(tags) > 1 {
			a.Logger.Debug("element carries multiple mapped tags; first match wins",
				"element", e.ID)
		}
		auto := IdentityWithoutHint(tags, mat, shape, metrics)
		identity = auto.Identity
		typ = auto.Type
		description = auto.Description
	}

	if _, exists := res.Definitions[identity]; !exists {
		d := &Definition{
			Identity:     identity,
			Source:       SourceElement,
			Material:     ld.Material,
			Type:         typ,
			Subtype:      subtype,
			Description:  description,
			Size:         shape.Dims,
			Volume:       metrics.Volume,
			Area:         metrics.Area,
			Length:       metrics.Length,
			Thickness:    metrics.Thickness,
			CrossSection: metrics.CrossSection,
			Issue:        metrics.Issue,
			StrawCategory: straw,
			SidePolygons: metrics.SidePolygons,
		}
		if hasInfo {
			d.RequiresSinglePiece = e.Info.RequiresSinglePiece
		}
		res.Definitions[identity] = d
	}

	res.Occurrences = append(res.Occurrences, Occurrence{
		ElementID: e.ID,
		Identity:  identity,
		Virtual:   mat != nil && mat.Kind == catalog.Prefab,
		Location:  loc,
	})
}

func (a *Aggregator) containerPart(e *model.Element, loc model.Location, res *Result) {
	cd := e.Container()
	if cd == nil {
		return
	}
	dims := sortedBounds(cd.Bounds)
	identity := ContainerIdentity(e.Info, dims)

	if _, exists := res.Definitions[identity]; !exists {
		d := &Definition{
			Identity:            identity,
			Source:              SourceGroup,
			Type:                e.Info.Type,
			Subtype:             e.Info.Subtype,
			Description:         e.Info.Description,
			Size:                dims,
			Volume:              dims[0] * dims[1] * dims[2],
			RequiresSinglePiece: e.Info.RequiresSinglePiece,
		}
		if cd.SidePolygon != nil {
			area := cd.SidePolygon.Polygon.Area()
			thickness := dims[cd.SidePolygon.DimIndex]
			d.Area = &area
			d.Thickness = &thickness
			d.SidePolygons = []geom.SidePolygon{*cd.SidePolygon}
		}
		res.Definitions[identity] = d
	}

	res.Occurrences = append(res.Occurrences, Occurrence{
		ElementID: e.ID,
		Identity:  identity,
		Virtual:   true,
		Location:  loc,
	})
}

func sortedBounds(b [3]float64) [3]float64 {
	d := []float64{b[0], b[1], b[2]}
	sort.Float64s(d)
	return [3]float64{d[0], d[1], d[2]}
}
