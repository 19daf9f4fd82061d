package dashboard

import "github.com/rohithpranav45/storeiq/internal/domain/catalog"

// StatusCount is one entry of the rendered filter set.
type StatusCount struct {
	Status Status `json:"status"`
	Count  int    `json:"count"`
}

// StatusCounts tallies statuses over the given products. Products with no
// entry in the status map are excluded entirely, not bucketed as unknown.
func StatusCounts(products []catalog.Product, statuses StatusMap) map[Status]int {
	counts := make(map[Status]int)
	for _, p := range products {
		if st, ok := statuses[p.ID]; ok {
			counts[st]++
		}
	}
	return counts
}

// OrderedCounts renders the counts in the fixed display priority order,
// omitting zero-count statuses.
func OrderedCounts(counts map[Status]int) []StatusCount {
	var out []StatusCount
	for _, st := range DisplayOrder {
		if n := counts[st]; n > 0 {
			out = append(out, StatusCount{Status: st, Count: n})
		}
	}
	return out
}

// FilterByStatus returns the products whose status matches the filter.
// FilterAll is the identity filter: the input slice is returned as-is,
// order preserved.
func FilterByStatus(products []catalog.Product, statuses StatusMap, filter string) []catalog.Product {
	if filter == FilterAll {
		return products
	}
	want := Status(filter)
	out := make([]catalog.Product, 0, len(products))
	for _, p := range products {
		if statuses[p.ID] == want {
			out = append(out, p)
		}
	}
	return out
}
