package model

// Tag is a category/id pair from the tag taxonomy. User-defined tags
// carry a display label and an id outside the fixed set.
type Tag struct {
	Category string `json:"category"`
	ID       string `json:"id"`
	Label    string `json:"label,omitempty"`
}

// StrawCategory buckets straw-bale pieces. Straw materials key on the
// category alone; geometry is irrelevant to their identity.
type StrawCategory string

const (
	StrawFull    StrawCategory = "full"
	StrawPartial StrawCategory = "partial"
	StrawFlakes  StrawCategory = "flakes"
	StrawStuffed StrawCategory = "stuffed"
)

// strawCategoryByTag maps tag ids to straw categories. Elements without
// any of these tags default to StrawStuffed.
var strawCategoryByTag = map[string]StrawCategory{
	"bale-full":    StrawFull,
	"bale-partial": StrawPartial,
	"bale-flakes":  StrawFlakes,
	"bale-stuffed": StrawStuffed,
}

// StrawCategoryFromTags reads the straw category from the first matching
// tag, defaulting to stuffed.
func StrawCategoryFromTags(tags []Tag) StrawCategory {
	for _, t := range tags {
		if c, ok := strawCategoryByTag[t.ID]; ok {
			return c
		}
	}
	return StrawStuffed
}

// AutoMapping maps a tag id to the semantic type and description category
// used by the no-hint identity path.
type AutoMapping struct {
	Tag                 string
	Type                string
	DescriptionCategory string
}

// autoMappings is the fixed, ordered tag mapping table. Order matters:
// when an element carries several mapped tags, the first match in tag
// order wins.
var autoMappings = []AutoMapping{
	{Tag: "post", Type: "frame", DescriptionCategory: "frame"},
	{Tag: "beam", Type: "frame", DescriptionCategory: "frame"},
	{Tag: "plate", Type: "frame", DescriptionCategory: "frame"},
	{Tag: "noggin", Type: "frame", DescriptionCategory: "frame"},
	{Tag: "lintel", Type: "opening", DescriptionCategory: "opening"},
	{Tag: "sill", Type: "opening", DescriptionCategory: "opening"},
	{Tag: "batten", Type: "cladding", DescriptionCategory: "cladding"},
	{Tag: "sheathing", Type: "cladding", DescriptionCategory: "cladding"},
	{Tag: "infill", Type: "infill", DescriptionCategory: "infill"},
}

// MatchAutoType finds the first tag (in tag order) present in the fixed
// mapping table.
func MatchAutoType(tags []Tag) (AutoMapping, bool) {
	for _, t := range tags {
		for _, m := range autoMappings {
			if m.Tag == t.ID {
				return m, true
			}
		}
	}
	return AutoMapping{}, false
}

// MappedTagCount returns how many of the element's tags appear in the
// mapping table. More than one signals an order-dependent bucket choice.
func MappedTagCount(tags []Tag) int {
	n := 0
	for _, t := range tags {
		for _, m := range autoMappings {
			if m.Tag == t.ID {
				n++
				break
			}
		}
	}
	return n
}

// knownTag reports whether a tag id belongs to the fixed taxonomy.
func knownTag(id string) bool {
	if _, ok := strawCategoryByTag[id]; ok {
		return true
	}
	for _, m := range autoMappings {
		if m.Tag == id {
			return true
		}
	}
	return false
}

// CustomDescription returns the label of the first user-defined tag in
// the given description category, or "".
func CustomDescription(tags []Tag, category string) string {
	for _, t := range tags {
		if t.Category == category && t.Label != "" && !knownTag(t.ID) {
			return t.Label
		}
	}
	return ""
}
