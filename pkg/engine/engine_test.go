package engine_test

import (
	"errors"
	"testing"

	"github.com/baleframe/tally/pkg/catalog"
	"github.com/baleframe/tally/pkg/engine"
	"github.com/baleframe/tally/pkg/labels"
	"github.com/baleframe/tally/pkg/mesh"
	"github.com/baleframe/tally/pkg/model"
	"github.com/baleframe/tally/pkg/parts"
)

func testCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	cat, err := catalog.New([]*catalog.Material{
		{
			ID:            "c24-spruce",
			Kind:          catalog.Dimensional,
			CrossSections: []catalog.CrossSection{{Smaller: 50, Bigger: 100}},
			Lengths:       []float64{2000, 3000, 4000},
		},
		{ID: "window-std", Kind: catalog.Prefab},
	})
	if err != nil {
		t.Fatal(err)
	}
	return cat
}

func stud(id string, length float64) *model.Element {
	return &model.Element{
		ID:   id,
		Kind: model.KindLeaf,
		Info: &model.PartInfo{Type: "frame", Subtype: "post"},
		Data: model.LeafData{Material: "c24-spruce", Mesh: mesh.Box(50, 100, length)},
	}
}

func fixedSource(roots ...*model.Element) engine.ModelFunc {
	return func() ([]*model.Element, error) { return roots, nil }
}

func newEngine(t *testing.T, source engine.ModelSource) (*engine.Engine, *labels.MemoryStore) {
	t.Helper()
	store := labels.NewMemoryStore()
	eng, err := engine.New(source, testCatalog(t), store)
	if err != nil {
		t.Fatal(err)
	}
	return eng, store
}

func TestRebuildAdvancesGeneration(t *testing.T) {
	eng, _ := newEngine(t, fixedSource(stud("s1", 2000)))

	if got := eng.Generation(); got != 0 {
		t.Fatalf("initial Generation() = %d, want 0", got)
	}
	gen, err := eng.Rebuild()
	if err != nil {
		t.Fatalf("Rebuild() error: %v", err)
	}
	if gen != 1 {
		t.Errorf("Rebuild() generation = %d, want 1", gen)
	}
	gen, err = eng.Rebuild()
	if err != nil {
		t.Fatal(err)
	}
	if gen != 2 {
		t.Errorf("second Rebuild() generation = %d, want 2", gen)
	}
}

func TestRebuildSnapshot(t *testing.T) {
	eng, _ := newEngine(t, fixedSource(stud("s1", 2000), stud("s2", 2000), stud("s3", 3000)))
	if _, err := eng.Rebuild(); err != nil {
		t.Fatal(err)
	}

	snap := eng.Snapshot()
	if len(snap.Definitions) != 2 {
		t.Errorf("got %d definitions, want 2", len(snap.Definitions))
	}
	if len(snap.Occurrences) != 3 {
		t.Errorf("got %d occurrences, want 3", len(snap.Occurrences))
	}
	if len(snap.Labels) != 2 {
		t.Errorf("got %d labels, want 2", len(snap.Labels))
	}
}

func TestRebuildIdempotentOutput(t *testing.T) {
	eng, _ := newEngine(t, fixedSource(stud("s1", 2000), stud("s2", 3000)))
	if _, err := eng.Rebuild(); err != nil {
		t.Fatal(err)
	}
	first := eng.Snapshot()
	if _, err := eng.Rebuild(); err != nil {
		t.Fatal(err)
	}
	second := eng.Snapshot()

	if len(first.Definitions) != len(second.Definitions) {
		t.Fatalf("definition counts differ")
	}
	for id, l := range first.Labels {
		if second.Labels[id] != l {
			t.Errorf("label %q moved: %q -> %q", id, l, second.Labels[id])
		}
	}
}

func TestRebuildStableForUnclassifiedSolid(t *testing.T) {
	// A hinted leaf whose mesh neither detector accepts still keeps the
	// same identity and label across rebuilds of an unchanged model.
	wedge := &model.Element{
		ID:   "w1",
		Kind: model.KindLeaf,
		Info: &model.PartInfo{Type: "frame", Subtype: "wedge"},
		Data: model.LeafData{Material: "c24-spruce", Mesh: &mesh.Mesh{
			Vertices: []float64{0, 0, 0, 100, 0, 0, 0, 100, 0, 0, 0, 100},
			Indices:  []uint32{0, 2, 1, 0, 1, 3, 0, 3, 2, 1, 2, 3},
		}},
	}
	eng, _ := newEngine(t, fixedSource(wedge))
	if _, err := eng.Rebuild(); err != nil {
		t.Fatal(err)
	}
	first := eng.Snapshot().Labels
	if len(first) != 1 {
		t.Fatalf("got %d labels, want 1", len(first))
	}

	for i := 0; i < 3; i++ {
		if _, err := eng.Rebuild(); err != nil {
			t.Fatal(err)
		}
	}
	second := eng.Snapshot().Labels
	if len(second) != len(first) {
		t.Fatalf("rebuilds grew the label set: %d -> %d", len(first), len(second))
	}
	for id, l := range first {
		if second[id] != l {
			t.Errorf("label %q moved: %q -> %q", id, l, second[id])
		}
	}
	// No counter slots leaked either.
	if eng.HasUnusedLabels("material:c24-spruce") {
		t.Error("rebuilds of an unchanged model retired labels")
	}
}

func TestRebuildErrorKeepsSnapshot(t *testing.T) {
	good := fixedSource(stud("s1", 2000))
	fail := false
	src := engine.ModelFunc(func() ([]*model.Element, error) {
		if fail {
			return nil, errors.New("model unavailable")
		}
		return good()
	})

	eng, _ := newEngine(t, src)
	if _, err := eng.Rebuild(); err != nil {
		t.Fatal(err)
	}
	before := eng.Snapshot()

	fail = true
	if _, err := eng.Rebuild(); err == nil {
		t.Fatal("Rebuild() succeeded, want error")
	}
	after := eng.Snapshot()
	if after.Generation != before.Generation {
		t.Errorf("failed rebuild advanced generation: %d -> %d", before.Generation, after.Generation)
	}
	if len(after.Definitions) != len(before.Definitions) {
		t.Errorf("failed rebuild replaced snapshot")
	}
}

func TestLabelsPersistAcrossEngines(t *testing.T) {
	store := labels.NewMemoryStore()
	src := fixedSource(stud("s1", 2000), stud("s2", 3000))

	eng, err := engine.New(src, testCatalog(t), store)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := eng.Rebuild(); err != nil {
		t.Fatal(err)
	}
	first := eng.Snapshot().Labels

	// A new engine over the same store sees the same labels.
	eng2, err := engine.New(src, testCatalog(t), store)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := eng2.Rebuild(); err != nil {
		t.Fatal(err)
	}
	for id, l := range first {
		if got := eng2.Snapshot().Labels[id]; got != l {
			t.Errorf("label %q changed across restart: %q -> %q", id, l, got)
		}
	}
}

func TestResetLabelsScoped(t *testing.T) {
	window := &model.Element{
		ID:   "w1",
		Kind: model.KindLeaf,
		Info: &model.PartInfo{Type: "opening", Subtype: "window"},
		Data: model.LeafData{Material: "window-std", Mesh: mesh.Box(100, 900, 1200)},
	}
	eng, _ := newEngine(t, fixedSource(stud("s1", 2000), window))
	if _, err := eng.Rebuild(); err != nil {
		t.Fatal(err)
	}

	snap := eng.Snapshot()
	var windowIdentity string
	for id, d := range snap.Definitions {
		if d.Material == "window-std" {
			windowIdentity = id
		}
	}
	windowLabel := snap.Labels[windowIdentity]

	if err := eng.ResetLabels("material:c24-spruce"); err != nil {
		t.Fatalf("ResetLabels() error: %v", err)
	}
	if got := eng.Snapshot().Labels[windowIdentity]; got != windowLabel {
		t.Errorf("unrelated group's label moved: %q -> %q", windowLabel, got)
	}
}

func TestResetLabelsUnknownGroup(t *testing.T) {
	eng, _ := newEngine(t, fixedSource(stud("s1", 2000)))
	if _, err := eng.Rebuild(); err != nil {
		t.Fatal(err)
	}
	// Resetting a group with no current definitions is logged, not fatal.
	if err := eng.ResetLabels("material:vanished"); err != nil {
		t.Errorf("ResetLabels(vanished) error: %v", err)
	}
}

func TestQueryThroughEngine(t *testing.T) {
	storey := &model.Element{
		ID:       "storey-0",
		Kind:     model.KindContainer,
		SourceID: "storey-0",
		Data:     model.ContainerData{},
		Children: []*model.Element{stud("s1", 2000), stud("s2", 2000)},
	}
	eng, _ := newEngine(t, fixedSource(storey))
	if _, err := eng.Rebuild(); err != nil {
		t.Fatal(err)
	}

	items := eng.Query(parts.Filter{Storey: "storey-0"})
	if len(items) != 1 || items[0].Quantity != 2 {
		t.Fatalf("Query() = %+v", items)
	}
	if items[0].Label == "" {
		t.Error("aggregated item has no label")
	}

	if got := eng.Query(parts.Filter{Storey: "storey-9"}); len(got) != 0 {
		t.Errorf("empty storey returned %d items", len(got))
	}
}

func TestDefinitionLookup(t *testing.T) {
	eng, _ := newEngine(t, fixedSource(stud("s1", 2000)))
	if _, err := eng.Rebuild(); err != nil {
		t.Fatal(err)
	}
	snap := eng.Snapshot()
	for id := range snap.Definitions {
		if _, ok := eng.Definition(id); !ok {
			t.Errorf("Definition(%q) not found", id)
		}
	}
	if _, ok := eng.Definition("part|no|such|identity"); ok {
		t.Error("Definition() found a nonexistent identity")
	}
}

func TestAttachOnce(t *testing.T) {
	eng, _ := newEngine(t, fixedSource(stud("s1", 2000)))

	ch := make(chan struct{})
	close(ch)
	if err := eng.Attach(ch); err != nil {
		t.Fatalf("Attach() error: %v", err)
	}
	if err := eng.Attach(ch); !errors.Is(err, engine.ErrAlreadyAttached) {
		t.Errorf("second Attach() = %v, want ErrAlreadyAttached", err)
	}
}
