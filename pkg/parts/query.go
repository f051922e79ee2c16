package parts

import "sort"

// Filter selects occurrences by location context and virtual flag. Zero
// fields do not constrain.
type Filter struct {
	Storey    string `json:"storey,omitempty"`
	Perimeter string `json:"perimeter,omitempty"`
	Wall      string `json:"wall,omitempty"`
	Roof      string `json:"roof,omitempty"`
	Virtual   *bool  `json:"virtual,omitempty"`
}

// Matches reports whether an occurrence passes the filter.
func (f Filter) Matches(o Occurrence) bool {
	if f.Storey != "" && o.Location.Storey != f.Storey {
		return false
	}
	if f.Perimeter != "" && o.Location.Perimeter != f.Perimeter {
		return false
	}
	if f.Wall != "" && o.Location.Wall != f.Wall {
		return false
	}
	if f.Roof != "" && o.Location.Roof != f.Roof {
		return false
	}
	if f.Virtual != nil && o.Virtual != *f.Virtual {
		return false
	}
	return true
}

// AggregatedItem is one per-identity row of a query result. Totals are
// quantity times the definition metric: by construction all occurrences
// of one identity share identical metrics.
type AggregatedItem struct {
	Identity    string      `json:"identity"`
	Label       string      `json:"label,omitempty"`
	Quantity    int         `json:"quantity"`
	ElementIDs  []string    `json:"element_ids"`
	TotalVolume float64     `json:"total_volume"`
	TotalArea   *float64    `json:"total_area,omitempty"`
	TotalLength *float64    `json:"total_length,omitempty"`
	Definition  *Definition `json:"definition"`
}

// Query selects matching occurrences, groups them by identity, and emits
// one aggregated record per identity. Results are sorted by label, then
// identity, for stable reporting output.
func Query(res *Result, labels map[string]string, f Filter) []AggregatedItem {
	byIdentity := make(map[string]*AggregatedItem)
	for _, o := range res.Occurrences {
		if !f.Matches(o) {
			continue
		}
		item, ok := byIdentity[o.Identity]
		if !ok {
			item = &AggregatedItem{
				Identity:   o.Identity,
				Label:      labels[o.Identity],
				Definition: res.Definitions[o.Identity],
			}
			byIdentity[o.Identity] = item
		}
		item.Quantity++
		item.ElementIDs = append(item.ElementIDs, o.ElementID)
	}

	items := make([]AggregatedItem, 0, len(byIdentity))
	for _, item := range byIdentity {
		d := item.Definition
		if d != nil {
			item.TotalVolume = float64(item.Quantity) * d.Volume
			if d.Area != nil {
				total := float64(item.Quantity) * *d.Area
				item.TotalArea = &total
			}
			if d.Length != nil {
				total := float64(item.Quantity) * *d.Length
				item.TotalLength = &total
			}
		}
		items = append(items, *item)
	}

	sort.Slice(items, func(i, j int) bool {
		if items[i].Label != items[j].Label {
			return items[i].Label < items[j].Label
		}
		return items[i].Identity < items[j].Identity
	})
	return items
}
