// Package labels maintains the persistent mapping from part identity to
// a short human-readable label, grouped into pools: one per material and
// one for virtual (group-sourced) parts. Labels survive rebuilds as long
// as the identity survives; counters only ever grow, so a label value is
// never reassigned to a different identity within an un-reset lineage.
package labels

import (
	"sort"

	"github.com/baleframe/tally/pkg/parts"
)

// State is the label assignment state machine. Definitions and
// occurrences are rebuilt from scratch each generation; this is the only
// state carried across rebuilds.
type State struct {
	labels      map[string]string // part identity -> label
	nextIndex   map[string]int    // group -> next unassigned index
	usedByGroup map[string][]string
}

// NewState returns an empty label state.
func NewState() *State {
	return &State{
		labels:      make(map[string]string),
		nextIndex:   make(map[string]int),
		usedByGroup: make(map[string][]string),
	}
}

// FromDurable restores a state from its persisted subset. The used-label
// lists are derivable and rebuilt on the next reconcile.
func FromDurable(d Durable) *State {
	s := NewState()
	for id, l := range d.Labels {
		s.labels[id] = l
	}
	for g, n := range d.NextIndex {
		s.nextIndex[g] = n
	}
	return s
}

// Durable returns the subset of the state that must survive restarts.
func (s *State) Durable() Durable {
	d := Durable{
		Labels:    make(map[string]string, len(s.labels)),
		NextIndex: make(map[string]int, len(s.nextIndex)),
	}
	for id, l := range s.labels {
		d.Labels[id] = l
	}
	for g, n := range s.nextIndex {
		d.NextIndex[g] = n
	}
	return d
}

// Label returns the label for a part identity, or "".
func (s *State) Label(identity string) string {
	return s.labels[identity]
}

// Labels returns a copy of the identity -> label mapping.
func (s *State) Labels() map[string]string {
	out := make(map[string]string, len(s.labels))
	for id, l := range s.labels {
		out[id] = l
	}
	return out
}

// UsedLabels returns the labels currently in use in a group.
func (s *State) UsedLabels(group string) []string {
	return append([]string(nil), s.usedByGroup[group]...)
}

// HasUnusedLabels reports whether a group's counter has outrun its used
// labels, i.e. a reset would shrink the visible label range.
func (s *State) HasUnusedLabels(group string) bool {
	return s.nextIndex[group] > len(s.usedByGroup[group])
}

// Groups returns all groups with a counter or used labels, sorted.
func (s *State) Groups() []string {
	set := make(map[string]bool)
	for g := range s.nextIndex {
		set[g] = true
	}
	for g := range s.usedByGroup {
		set[g] = true
	}
	groups := make([]string, 0, len(set))
	for g := range set {
		groups = append(groups, g)
	}
	sort.Strings(groups)
	return groups
}

// Reconcile brings the state in line with a new definition set: surviving
// identities keep their labels, new identities get the next label from
// their group's counter, and labels of vanished identities are dropped —
// but their counter slots are never reclaimed.
func (s *State) Reconcile(defs map[string]*parts.Definition) {
	for _, identity := range sortedIdentities(defs) {
		if _, ok := s.labels[identity]; ok {
			continue
		}
		group := parts.GroupID(defs[identity])
		s.labels[identity] = Base26(s.nextIndex[group])
		s.nextIndex[group]++
	}
	s.rebuildUsed(defs)
}

// Reset discards labels and counters for the targeted group ("" targets
// every group) and regenerates from index 0 in identity order. Unaffected
// groups are untouched.
func (s *State) Reset(defs map[string]*parts.Definition, group string) {
	targeted := func(g string) bool { return group == "" || g == group }

	for identity, d := range defs {
		if targeted(parts.GroupID(d)) {
			delete(s.labels, identity)
		}
	}
	// Also drop stale labels whose identity is no longer defined; their
	// group cannot be derived, so a full reset clears them all.
	if group == "" {
		s.labels = make(map[string]string)
		s.nextIndex = make(map[string]int)
	} else {
		s.nextIndex[group] = 0
	}

	for _, identity := range sortedIdentities(defs) {
		if _, ok := s.labels[identity]; ok {
			continue
		}
		g := parts.GroupID(defs[identity])
		if !targeted(g) {
			continue
		}
		s.labels[identity] = Base26(s.nextIndex[g])
		s.nextIndex[g]++
	}
	s.rebuildUsed(defs)
}

// rebuildUsed recomputes the used-label lists strictly from the labels of
// identities present in defs, dropping everything else from the label
// map.
func (s *State) rebuildUsed(defs map[string]*parts.Definition) {
	used := make(map[string][]string)
	surviving := make(map[string]string, len(defs))
	for _, identity := range sortedIdentities(defs) {
		l, ok := s.labels[identity]
		if !ok {
			continue
		}
		surviving[identity] = l
		g := parts.GroupID(defs[identity])
		used[g] = append(used[g], l)
	}
	for g := range used {
		sort.Strings(used[g])
	}
	s.labels = surviving
	s.usedByGroup = used
}

func sortedIdentities(defs map[string]*parts.Definition) []string {
	ids := make([]string, 0, len(defs))
	for id := range defs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Base26 encodes a 0-based index as a bijective base-26 letter label:
// A, B, ..., Z, AA, AB, ...
func Base26(i int) string {
	n := i + 1
	var out []byte
	for n > 0 {
		n--
		out = append([]byte{byte('A' + n%26)}, out...)
		n /= 26
	}
	return string(out)
}
