package parts_test

import (
	"math"
	"testing"

	v2 "github.com/deadsy/sdfx/vec/v2"

	"github.com/baleframe/tally/pkg/catalog"
	"github.com/baleframe/tally/pkg/classify"
	"github.com/baleframe/tally/pkg/mesh"
	"github.com/baleframe/tally/pkg/model"
	"github.com/baleframe/tally/pkg/parts"
)

// testCatalog builds the fixture stock used across these tests: C24
// dimensional lumber, 18mm OSB, clay fill, straw bales and a prefab
// window module.
func testCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	cat, err := catalog.New([]*catalog.Material{
		{
			ID:   "c24-spruce",
			Kind: catalog.Dimensional,
			CrossSections: []catalog.CrossSection{
				{Smaller: 50, Bigger: 100},
				{Smaller: 50, Bigger: 150},
			},
			Lengths: []float64{2000, 3000, 4000},
		},
		{
			ID:          "osb3",
			Kind:        catalog.Sheet,
			Thicknesses: []float64{18},
			SheetSizes:  []catalog.SheetSize{{Smaller: 1250, Bigger: 2500}},
		},
		{ID: "clay-plaster", Kind: catalog.Volume},
		{ID: "wheat-bale", Kind: catalog.Strawbale},
		{ID: "window-std", Kind: catalog.Prefab},
		{ID: "misc", Kind: catalog.Generic},
	})
	if err != nil {
		t.Fatal(err)
	}
	return cat
}

func leaf(id, material string, m *mesh.Mesh) *model.Element {
	return &model.Element{
		ID:   id,
		Kind: model.KindLeaf,
		Data: model.LeafData{Material: material, Mesh: m},
	}
}

func withTags(e *model.Element, ids ...string) *model.Element {
	for _, id := range ids {
		e.Tags = append(e.Tags, model.Tag{ID: id})
	}
	return e
}

func withInfo(e *model.Element, typ, subtype string) *model.Element {
	e.Info = &model.PartInfo{Type: typ, Subtype: subtype}
	return e
}

// ---- metric resolution ----

func TestResolveDimensional(t *testing.T) {
	cat := testCatalog(t)
	spruce := cat.Get("c24-spruce")

	tests := []struct {
		name       string
		dims       [3]float64
		hinted     bool
		wantCS     string
		wantLength float64
		wantIssue  parts.Issue
	}{
		{"stock stud", [3]float64{50, 100, 2000}, true, "50x100", 2000, parts.IssueNone},
		{"wide section", [3]float64{150, 50, 3000}, true, "50x150", 3000, parts.IssueNone},
		{"too long", [3]float64{50, 100, 5000}, true, "50x100", 5000, parts.LengthExceedsAvailable},
		{"no such section hinted", [3]float64{75, 75, 2000}, true, "", 0, parts.CrossSectionMismatch},
		{"no such section unhinted", [3]float64{75, 75, 2000}, false, "", 0, parts.IssueNone},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			shape := classify.Classify(mesh.Box(tt.dims[0], tt.dims[1], tt.dims[2]))
			m := parts.Resolve(shape, spruce, tt.hinted)
			if m.Issue != tt.wantIssue {
				t.Errorf("Issue = %v, want %v", m.Issue, tt.wantIssue)
			}
			if tt.wantCS == "" {
				if m.CrossSection != nil {
					t.Errorf("CrossSection = %v, want nil", m.CrossSection)
				}
				return
			}
			if m.CrossSection == nil || m.CrossSection.String() != tt.wantCS {
				t.Fatalf("CrossSection = %v, want %s", m.CrossSection, tt.wantCS)
			}
			if m.Length == nil || *m.Length != tt.wantLength {
				t.Errorf("Length = %v, want %g", m.Length, tt.wantLength)
			}
		})
	}
}

func TestResolveDimensionalNearStockRounds(t *testing.T) {
	// Real meshes carry float noise; 49.9997 must still match 50x100.
	spruce := testCatalog(t).Get("c24-spruce")
	shape := classify.Classify(mesh.Box(49.9997, 100.0002, 1800))
	m := parts.Resolve(shape, spruce, true)
	if m.CrossSection == nil || m.CrossSection.String() != "50x100" {
		t.Fatalf("CrossSection = %v, want 50x100", m.CrossSection)
	}
	if m.Issue != parts.IssueNone {
		t.Errorf("Issue = %v, want none", m.Issue)
	}
}

func TestResolveSheet(t *testing.T) {
	osb := testCatalog(t).Get("osb3")

	tests := []struct {
		name      string
		dims      [3]float64
		wantIssue parts.Issue
	}{
		{"fits", [3]float64{18, 1200, 2400}, parts.IssueNone},
		{"exact sheet", [3]float64{18, 1250, 2500}, parts.IssueNone},
		{"too large", [3]float64{18, 1300, 2600}, parts.SheetSizeExceeded},
		{"wrong thickness", [3]float64{22, 1200, 2400}, parts.ThicknessMismatch},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			shape := classify.Classify(mesh.Box(tt.dims[0], tt.dims[1], tt.dims[2]))
			m := parts.Resolve(shape, osb, true)
			if m.Issue != tt.wantIssue {
				t.Errorf("Issue = %v, want %v", m.Issue, tt.wantIssue)
			}
			if m.Thickness == nil {
				t.Fatal("Thickness = nil")
			}
			if m.Area == nil {
				t.Fatal("Area = nil")
			}
			wantVolume := *m.Area * *m.Thickness
			if math.Abs(m.Volume-wantVolume) > 1e-6 {
				t.Errorf("Volume = %g, want area*thickness = %g", m.Volume, wantVolume)
			}
		})
	}
}

func TestResolveSheetPolygonArea(t *testing.T) {
	// An L-shaped sheet part must report the outline's true area, not the
	// bounding rectangle.
	osb := testCatalog(t).Get("osb3")
	m18 := mesh.Prism([]v2.Vec{
		{X: 0, Y: 0}, {X: 1000, Y: 0}, {X: 1000, Y: 300},
		{X: 400, Y: 300}, {X: 400, Y: 800}, {X: 0, Y: 800},
	}, 18)
	shape := classify.Classify(m18)
	m := parts.Resolve(shape, osb, true)
	if m.Area == nil {
		t.Fatal("Area = nil")
	}
	want := 1000*300 + 400*500.0
	if math.Abs(*m.Area-want) > want*1e-3 {
		t.Errorf("Area = %g, want %g (bounding rect is %g)", *m.Area, want, 1000*800.0)
	}
	if len(m.SidePolygons) != 1 {
		t.Errorf("SidePolygons = %d, want 1", len(m.SidePolygons))
	}
}

func TestResolveVolume(t *testing.T) {
	clay := testCatalog(t).Get("clay-plaster")

	// Unhinted box: smallest dim is thickness, other two span the area.
	shape := classify.Classify(mesh.Box(40, 1000, 2000))
	m := parts.Resolve(shape, clay, false)
	if m.Thickness == nil || *m.Thickness != 40 {
		t.Errorf("Thickness = %v, want 40", m.Thickness)
	}
	if m.Area == nil || *m.Area != 1000*2000 {
		t.Errorf("Area = %v, want 2000000", m.Area)
	}
	if m.Volume != 40*1000*2000 {
		t.Errorf("Volume = %g, want dims product", m.Volume)
	}
}

func TestResolvePrefabVolumeOnly(t *testing.T) {
	window := testCatalog(t).Get("window-std")
	shape := classify.Classify(mesh.Box(100, 900, 1200))
	m := parts.Resolve(shape, window, true)
	if m.Area != nil || m.Length != nil || m.CrossSection != nil {
		t.Errorf("prefab resolved extra metrics: %+v", m)
	}
	if m.Volume != 100*900*1200 {
		t.Errorf("Volume = %g, want dims product", m.Volume)
	}
}

// ---- identity derivation ----

func TestStrawIdentity(t *testing.T) {
	got := parts.StrawIdentity("wheat-bale", model.StrawFull)
	if got != "straw|wheat-bale|full" {
		t.Errorf("StrawIdentity() = %q", got)
	}
}

func TestIdentityWithHint(t *testing.T) {
	info := &model.PartInfo{Type: "frame", Subtype: "post"}
	got := parts.IdentityWithHint(info, "c24-spruce", "box:50.0x100.0x2000.0")
	if got != "part|frame|post|c24-spruce|box:50.0x100.0x2000.0" {
		t.Errorf("IdentityWithHint() = %q", got)
	}
}

func TestIdentityWithoutHintMergesLengths(t *testing.T) {
	// Two unhinted studs of the same stock but different cut lengths are
	// one auto part; a different cross-section is another.
	cat := testCatalog(t)
	spruce := cat.Get("c24-spruce")

	id := func(dx, dy, dz float64) string {
		shape := classify.Classify(mesh.Box(dx, dy, dz))
		m := parts.Resolve(shape, spruce, false)
		auto := parts.IdentityWithoutHint([]model.Tag{{ID: "post"}}, spruce, shape, m)
		return auto.Identity
	}

	short := id(50, 100, 1800)
	long := id(50, 100, 2600)
	wide := id(50, 150, 1800)

	if short != long {
		t.Errorf("same stock split: %q vs %q", short, long)
	}
	if short == wide {
		t.Errorf("different stock merged: %q", short)
	}
	if short != "auto|post|c24-spruce|50x100" {
		t.Errorf("identity = %q", short)
	}
}

func TestIdentityWithoutHintMiscBucket(t *testing.T) {
	cat := testCatalog(t)
	spruce := cat.Get("c24-spruce")
	shape := classify.Classify(mesh.Box(50, 100, 1000))
	m := parts.Resolve(shape, spruce, false)

	auto := parts.IdentityWithoutHint(nil, spruce, shape, m)
	if auto.Type != "misc" {
		t.Errorf("Type = %q, want misc", auto.Type)
	}
	if auto.Identity != "auto|misc|c24-spruce|50x100" {
		t.Errorf("Identity = %q", auto.Identity)
	}
}

func TestIdentityWithoutHintCustomDescription(t *testing.T) {
	cat := testCatalog(t)
	spruce := cat.Get("c24-spruce")
	shape := classify.Classify(mesh.Box(50, 100, 1000))
	m := parts.Resolve(shape, spruce, false)

	tags := []model.Tag{
		{Category: "frame", ID: "post"},
		{Category: "frame", ID: "corner-post", Label: "Corner post"},
	}
	auto := parts.IdentityWithoutHint(tags, spruce, shape, m)
	if auto.Description != "Corner post" {
		t.Errorf("Description = %q, want Corner post", auto.Description)
	}
}

func TestContainerIdentity(t *testing.T) {
	info := &model.PartInfo{Type: "wall", Subtype: "straw"}
	got := parts.ContainerIdentity(info, [3]float64{400, 2400, 3000})
	if got != "group|wall|straw|bounds:400.0x2400.0x3000.0" {
		t.Errorf("ContainerIdentity() = %q", got)
	}
}

func TestGroupID(t *testing.T) {
	elem := &parts.Definition{Source: parts.SourceElement, Material: "osb3"}
	if got := parts.GroupID(elem); got != "material:osb3" {
		t.Errorf("GroupID(element) = %q", got)
	}
	group := &parts.Definition{Source: parts.SourceGroup}
	if got := parts.GroupID(group); got != "virtual" {
		t.Errorf("GroupID(group) = %q", got)
	}
}

// ---- aggregation ----

func TestBuildDeduplicatesStuds(t *testing.T) {
	cat := testCatalog(t)
	agg := parts.NewAggregator(cat, nil)

	stud := func(id string) *model.Element {
		return withInfo(leaf(id, "c24-spruce", mesh.Box(50, 100, 2000)), "frame", "post")
	}
	res := agg.Build([]*model.Element{stud("s1"), stud("s2"), stud("s3")})

	if len(res.Definitions) != 1 {
		t.Fatalf("got %d definitions, want 1", len(res.Definitions))
	}
	if len(res.Occurrences) != 3 {
		t.Fatalf("got %d occurrences, want 3", len(res.Occurrences))
	}
	for _, d := range res.Definitions {
		if d.CrossSection == nil || d.CrossSection.String() != "50x100" {
			t.Errorf("CrossSection = %v", d.CrossSection)
		}
		if d.Length == nil || *d.Length != 2000 {
			t.Errorf("Length = %v", d.Length)
		}
	}
}

func TestBuildStrawBucketsByCategory(t *testing.T) {
	cat := testCatalog(t)
	agg := parts.NewAggregator(cat, nil)

	// Different geometry, same category: one part. A second category
	// makes a second part.
	els := []*model.Element{
		withTags(leaf("b1", "wheat-bale", mesh.Box(360, 500, 800)), "bale-full"),
		withTags(leaf("b2", "wheat-bale", mesh.Box(360, 500, 450)), "bale-full"),
		withTags(leaf("b3", "wheat-bale", mesh.Box(100, 200, 300)), "bale-flakes"),
		leaf("b4", "wheat-bale", mesh.Box(50, 60, 70)), // untagged: stuffed
	}
	res := agg.Build(els)

	if len(res.Definitions) != 3 {
		t.Fatalf("got %d definitions, want 3", len(res.Definitions))
	}
	d, ok := res.Definitions["straw|wheat-bale|full"]
	if !ok {
		t.Fatal("missing straw|wheat-bale|full definition")
	}
	if d.StrawCategory != model.StrawFull {
		t.Errorf("StrawCategory = %q", d.StrawCategory)
	}
	if _, ok := res.Definitions["straw|wheat-bale|stuffed"]; !ok {
		t.Error("untagged bale did not default to stuffed")
	}
}

func TestBuildPrefabIsVirtual(t *testing.T) {
	cat := testCatalog(t)
	agg := parts.NewAggregator(cat, nil)
	res := agg.Build([]*model.Element{
		withInfo(leaf("w1", "window-std", mesh.Box(100, 900, 1200)), "opening", "window"),
		withInfo(leaf("s1", "c24-spruce", mesh.Box(50, 100, 2000)), "frame", "post"),
	})

	virtuals := map[string]bool{}
	for _, o := range res.Occurrences {
		virtuals[o.ElementID] = o.Virtual
	}
	if !virtuals["w1"] {
		t.Error("prefab occurrence not virtual")
	}
	if virtuals["s1"] {
		t.Error("lumber occurrence marked virtual")
	}
}

func TestBuildHintedContainer(t *testing.T) {
	cat := testCatalog(t)
	agg := parts.NewAggregator(cat, nil)

	wall := &model.Element{
		ID:   "wall-1",
		Kind: model.KindContainer,
		Info: &model.PartInfo{Type: "wall", Subtype: "straw"},
		Data: model.ContainerData{Bounds: [3]float64{3000, 2400, 400}},
		Children: []*model.Element{
			withInfo(leaf("s1", "c24-spruce", mesh.Box(50, 100, 2000)), "frame", "post"),
		},
	}
	res := agg.Build([]*model.Element{wall})

	// The container part never suppresses its children's parts.
	if len(res.Definitions) != 2 {
		t.Fatalf("got %d definitions, want 2", len(res.Definitions))
	}
	d, ok := res.Definitions["group|wall|straw|bounds:400.0x2400.0x3000.0"]
	if !ok {
		t.Fatal("missing group definition")
	}
	if d.Source != parts.SourceGroup {
		t.Errorf("Source = %v, want group", d.Source)
	}
	for _, o := range res.Occurrences {
		if o.ElementID == "wall-1" && !o.Virtual {
			t.Error("group occurrence not virtual")
		}
	}
}

func TestBuildInheritsTagsAndLocation(t *testing.T) {
	cat := testCatalog(t)
	agg := parts.NewAggregator(cat, nil)

	tree := &model.Element{
		ID:       "storey",
		Kind:     model.KindContainer,
		SourceID: "storey-0",
		Data:     model.ContainerData{},
		Children: []*model.Element{
			{
				ID:       "wall",
				Kind:     model.KindContainer,
				SourceID: "pwall-3",
				Tags:     []model.Tag{{ID: "post"}},
				Data:     model.ContainerData{},
				Children: []*model.Element{
					leaf("s1", "c24-spruce", mesh.Box(50, 100, 2000)),
				},
			},
		},
	}
	res := agg.Build([]*model.Element{tree})

	if len(res.Occurrences) != 1 {
		t.Fatalf("got %d occurrences, want 1", len(res.Occurrences))
	}
	o := res.Occurrences[0]
	if o.Location.Storey != "storey-0" || o.Location.Wall != "pwall-3" {
		t.Errorf("location = %+v", o.Location)
	}
	// The inherited "post" tag drives the auto identity bucket.
	d := res.Definitions[o.Identity]
	if d.Type != "frame" {
		t.Errorf("Type = %q, want frame (from inherited post tag)", d.Type)
	}
}

func TestBuildIsIdempotent(t *testing.T) {
	cat := testCatalog(t)
	agg := parts.NewAggregator(cat, nil)
	els := []*model.Element{
		withInfo(leaf("s1", "c24-spruce", mesh.Box(50, 100, 2000)), "frame", "post"),
		withTags(leaf("b1", "wheat-bale", mesh.Box(360, 500, 800)), "bale-full"),
	}

	r1 := agg.Build(els)
	r2 := agg.Build(els)
	if len(r1.Definitions) != len(r2.Definitions) {
		t.Fatalf("definition counts differ: %d vs %d", len(r1.Definitions), len(r2.Definitions))
	}
	for id := range r1.Definitions {
		if _, ok := r2.Definitions[id]; !ok {
			t.Errorf("identity %q missing from second build", id)
		}
	}
}

// ---- queries ----

func buildQueryFixture(t *testing.T) *parts.Result {
	t.Helper()
	cat := testCatalog(t)
	agg := parts.NewAggregator(cat, nil)

	storey := func(n string, children ...*model.Element) *model.Element {
		return &model.Element{
			ID: n, Kind: model.KindContainer, SourceID: n,
			Data: model.ContainerData{}, Children: children,
		}
	}
	stud := func(id string) *model.Element {
		return withInfo(leaf(id, "c24-spruce", mesh.Box(50, 100, 2000)), "frame", "post")
	}
	window := func(id string) *model.Element {
		return withInfo(leaf(id, "window-std", mesh.Box(100, 900, 1200)), "opening", "window")
	}

	return agg.Build([]*model.Element{
		storey("storey-0", stud("s1"), stud("s2"), window("w1")),
		storey("storey-1", stud("s3")),
	})
}

func TestQueryFilterAdditivity(t *testing.T) {
	res := buildQueryFixture(t)

	quantity := func(f parts.Filter) int {
		total := 0
		for _, item := range parts.Query(res, nil, f) {
			total += item.Quantity
		}
		return total
	}

	all := quantity(parts.Filter{})
	s0 := quantity(parts.Filter{Storey: "storey-0"})
	s1 := quantity(parts.Filter{Storey: "storey-1"})
	if all != s0+s1 {
		t.Errorf("all = %d, storeys sum to %d", all, s0+s1)
	}
	if s0 != 3 || s1 != 1 {
		t.Errorf("per-storey quantities = %d, %d; want 3, 1", s0, s1)
	}
}

func TestQueryVirtualFilter(t *testing.T) {
	res := buildQueryFixture(t)

	phys := false
	items := parts.Query(res, nil, parts.Filter{Virtual: &phys})
	for _, item := range items {
		if item.Definition.Material == "window-std" {
			t.Error("virtual prefab returned by physical-only query")
		}
	}

	virt := true
	items = parts.Query(res, nil, parts.Filter{Virtual: &virt})
	if len(items) != 1 || items[0].Quantity != 1 {
		t.Fatalf("virtual query = %+v", items)
	}
}

func TestQueryTotals(t *testing.T) {
	res := buildQueryFixture(t)

	items := parts.Query(res, nil, parts.Filter{Storey: "storey-0"})
	for _, item := range items {
		if item.Definition.Material != "c24-spruce" {
			continue
		}
		if item.Quantity != 2 {
			t.Fatalf("stud quantity = %d, want 2", item.Quantity)
		}
		if item.TotalLength == nil || *item.TotalLength != 4000 {
			t.Errorf("TotalLength = %v, want 4000", item.TotalLength)
		}
		if item.TotalVolume != 2*50*100*2000 {
			t.Errorf("TotalVolume = %g", item.TotalVolume)
		}
	}
}

func TestQuerySortedByLabel(t *testing.T) {
	res := buildQueryFixture(t)

	labels := map[string]string{}
	for id := range res.Definitions {
		labels[id] = "Z"
	}
	// Give the window the first label; it must sort first.
	for id, d := range res.Definitions {
		if d.Material == "window-std" {
			labels[id] = "A"
		}
	}

	items := parts.Query(res, labels, parts.Filter{})
	if len(items) < 2 {
		t.Fatalf("got %d items", len(items))
	}
	if items[0].Definition.Material != "window-std" {
		t.Errorf("first item is %q, want window-std", items[0].Definition.Material)
	}
}
