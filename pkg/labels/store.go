package labels

// Durable is the persisted subset of the label state: the label map and
// the per-group counters. Used-label lists are derivable and are not
// stored.
type Durable struct {
	Labels    map[string]string `json:"labels"`
	NextIndex map[string]int    `json:"next_index"`
}

// Store is the durable key/label storage boundary. Implementations must
// round-trip a Durable across process restarts. The engine loads once at
// startup and saves after each reconcile or reset.
type Store interface {
	Load() (Durable, error)
	Save(Durable) error
}

// MemoryStore keeps the durable state in memory. Useful for tests and
// for callers that handle persistence elsewhere.
type MemoryStore struct {
	state Durable
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Load returns the stored state.
func (m *MemoryStore) Load() (Durable, error) {
	return cloneDurable(m.state), nil
}

// Save replaces the stored state.
func (m *MemoryStore) Save(d Durable) error {
	m.state = cloneDurable(d)
	return nil
}

func cloneDurable(d Durable) Durable {
	out := Durable{
		Labels:    make(map[string]string, len(d.Labels)),
		NextIndex: make(map[string]int, len(d.NextIndex)),
	}
	for k, v := range d.Labels {
		out.Labels[k] = v
	}
	for k, v := range d.NextIndex {
		out.NextIndex[k] = v
	}
	return out
}
