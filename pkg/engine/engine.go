// Package engine drives the parts pipeline: one synchronous rebuild per
// model-change notification, atomically replacing definitions,
// occurrences and labels as a single generation. Consumers always see a
// fully-old or fully-new generation, never a mix.
package engine

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/baleframe/tally/pkg/catalog"
	"github.com/baleframe/tally/pkg/labels"
	"github.com/baleframe/tally/pkg/model"
	"github.com/baleframe/tally/pkg/parts"
)

// ErrRebuildInProgress is returned when a rebuild request arrives while
// one is in flight. Callers are expected to coalesce or ignore it, not
// queue it.
var ErrRebuildInProgress = errors.New("engine: rebuild already in progress")

// ErrAlreadyAttached is returned by Attach when the engine is already
// wired to a change source.
var ErrAlreadyAttached = errors.New("engine: change source already attached")

// ModelSource supplies the current construction-element tree.
type ModelSource interface {
	Model() ([]*model.Element, error)
}

// ModelFunc adapts a function to the ModelSource interface.
type ModelFunc func() ([]*model.Element, error)

// Model calls f.
func (f ModelFunc) Model() ([]*model.Element, error) { return f() }

// Snapshot is one generation's complete, read-only output.
type Snapshot struct {
	Generation  uint64                       `json:"generation"`
	Definitions map[string]*parts.Definition `json:"definitions"`
	Occurrences []parts.Occurrence           `json:"occurrences"`
	Labels      map[string]string            `json:"labels"`
}

// Engine owns the rebuild lifecycle and the label state. All mutation
// happens inside Rebuild and ResetLabels; both are synchronous.
type Engine struct {
	mu         sync.Mutex
	rebuilding bool
	attached   bool
	generation uint64

	source     ModelSource
	aggregator *parts.Aggregator
	store      labels.Store
	state      *labels.State
	snapshot   *Snapshot
	logger     *slog.Logger
	metrics    *engineMetrics
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithMatcher overrides the location id matcher.
func WithMatcher(m model.IDMatcher) Option {
	return func(e *Engine) { e.aggregator.Matcher = m }
}

// WithRegisterer registers engine metrics with reg.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(e *Engine) { e.metrics = newEngineMetrics(reg) }
}

// New creates an engine and loads the durable label state from the
// store. The snapshot is empty until the first Rebuild.
func New(source ModelSource, cat *catalog.Catalog, store labels.Store, opts ...Option) (*Engine, error) {
	e := &Engine{
		source: source,
		store:  store,
		logger: slog.Default(),
	}
	e.aggregator = parts.NewAggregator(cat, nil)
	for _, opt := range opts {
		opt(e)
	}
	e.aggregator.Logger = e.logger
	if e.metrics == nil {
		e.metrics = newEngineMetrics(nil)
	}

	durable, err := store.Load()
	if err != nil {
		return nil, fmt.Errorf("engine: load label state: %w", err)
	}
	e.state = labels.FromDurable(durable)
	e.snapshot = &Snapshot{
		Definitions: map[string]*parts.Definition{},
		Labels:      e.state.Labels(),
	}
	return e, nil
}

// Rebuild regenerates definitions and occurrences from the model source,
// reconciles labels, persists the durable label subset, and installs the
// result as the next generation. Rebuilding twice from an unchanged model
// yields identical output.
func (e *Engine) Rebuild() (uint64, error) {
	e.mu.Lock()
	if e.rebuilding {
		gen := e.generation
		e.mu.Unlock()
		return gen, ErrRebuildInProgress
	}
	e.rebuilding = true
	e.mu.Unlock()

	defer func() {
		e.mu.Lock()
		e.rebuilding = false
		e.mu.Unlock()
	}()

	start := time.Now()
	roots, err := e.source.Model()
	if err != nil {
		return e.Generation(), fmt.Errorf("engine: load model: %w", err)
	}
	result := e.aggregator.Build(roots)

	e.mu.Lock()
	e.state.Reconcile(result.Definitions)
	durable := e.state.Durable()
	e.generation++
	e.snapshot = &Snapshot{
		Generation:  e.generation,
		Definitions: result.Definitions,
		Occurrences: result.Occurrences,
		Labels:      e.state.Labels(),
	}
	gen := e.generation
	e.mu.Unlock()

	e.metrics.observeRebuild(time.Since(start), gen, len(result.Definitions), len(result.Occurrences))
	e.logger.Debug("rebuild complete",
		"generation", gen,
		"definitions", len(result.Definitions),
		"occurrences", len(result.Occurrences))

	if err := e.store.Save(durable); err != nil {
		return gen, fmt.Errorf("engine: persist label state: %w", err)
	}
	return gen, nil
}

// ResetLabels discards and regenerates labels for one group, or for all
// groups when group is "". Definitions are unchanged; only labels move.
func (e *Engine) ResetLabels(group string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if group != "" {
		found := false
		for _, d := range e.snapshot.Definitions {
			if parts.GroupID(d) == group {
				found = true
				break
			}
		}
		if !found {
			// Not a failure: the reset still clears the group's counter
			// so stale state cannot linger.
			e.logger.Warn("label reset for group with no current definitions", "group", group)
		}
	}

	e.state.Reset(e.snapshot.Definitions, group)
	e.snapshot = &Snapshot{
		Generation:  e.snapshot.Generation,
		Definitions: e.snapshot.Definitions,
		Occurrences: e.snapshot.Occurrences,
		Labels:      e.state.Labels(),
	}
	if err := e.store.Save(e.state.Durable()); err != nil {
		return fmt.Errorf("engine: persist label state: %w", err)
	}
	return nil
}

// Query aggregates the current generation's occurrences under a filter.
func (e *Engine) Query(f parts.Filter) []parts.AggregatedItem {
	snap := e.Snapshot()
	return parts.Query(
		&parts.Result{Definitions: snap.Definitions, Occurrences: snap.Occurrences},
		snap.Labels, f)
}

// Definition returns the current definition for a part identity.
func (e *Engine) Definition(identity string) (*parts.Definition, bool) {
	snap := e.Snapshot()
	d, ok := snap.Definitions[identity]
	return d, ok
}

// Snapshot returns the current generation. The returned value is never
// mutated after installation and is safe to read without locking.
func (e *Engine) Snapshot() *Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshot
}

// Generation returns the current generation counter.
func (e *Engine) Generation() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.generation
}

// HasUnusedLabels reports whether a reset of the group would shrink the
// visible label range.
func (e *Engine) HasUnusedLabels(group string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.HasUnusedLabels(group)
}

// LabelGroups returns all known label groups.
func (e *Engine) LabelGroups() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.Groups()
}

// Attach wires the engine to a change-notification source: every receive
// triggers a rebuild until the channel closes. Attach may be called once;
// subsequent calls return ErrAlreadyAttached.
func (e *Engine) Attach(changes <-chan struct{}) error {
	e.mu.Lock()
	if e.attached {
		e.mu.Unlock()
		return ErrAlreadyAttached
	}
	e.attached = true
	e.mu.Unlock()

	go func() {
		for range changes {
			if _, err := e.Rebuild(); err != nil && !errors.Is(err, ErrRebuildInProgress) {
				e.logger.Error("rebuild failed", "error", err)
			}
		}
	}()
	return nil
}
