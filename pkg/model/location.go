package model

import "strings"

// Location is the context an occurrence sits in, propagated down the
// element tree from ancestor container source ids.
type Location struct {
	Storey    string `json:"storey,omitempty"`
	Perimeter string `json:"perimeter,omitempty"`
	Wall      string `json:"wall,omitempty"`
	Roof      string `json:"roof,omitempty"`
}

// IDMatcher infers location kinds from container source ids by prefix.
// The external model may use different id shapes; callers can swap the
// prefixes accordingly.
type IDMatcher struct {
	Storey    string
	Roof      string
	Perimeter string
	Wall      string
}

// DefaultMatcher matches the id shapes used by the construction pipeline.
var DefaultMatcher = IDMatcher{
	Storey:    "storey-",
	Roof:      "roof-",
	Perimeter: "perimeter-",
	Wall:      "pwall-",
}

// Update returns loc with the field matching sourceID replaced. Ids that
// match no pattern leave the location untouched.
func (m IDMatcher) Update(loc Location, sourceID string) Location {
	switch {
	case sourceID == "":
		return loc
	case strings.HasPrefix(sourceID, m.Storey):
		loc.Storey = sourceID
	case strings.HasPrefix(sourceID, m.Roof):
		loc.Roof = sourceID
	case strings.HasPrefix(sourceID, m.Wall):
		// Wall before perimeter: wall ids embed the perimeter prefix in
		// some model versions.
		loc.Wall = sourceID
	case strings.HasPrefix(sourceID, m.Perimeter):
		loc.Perimeter = sourceID
	}
	return loc
}
