package catalog

import "strings"

// DedupRegistry is the set of identifiers already known for a site.
// It is owned by a single run and is not safe for concurrent use.
type DedupRegistry struct {
	ids map[string]struct{}
}

// NewDedupRegistry creates a registry seeded with ids
func NewDedupRegistry(ids ...string) *DedupRegistry {
	r := &DedupRegistry{ids: make(map[string]struct{}, len(ids))}
	for _, id := range ids {
		r.Add(id)
	}
	return r
}

// Has reports whether id is known
func (r *DedupRegistry) Has(id string) bool {
	_, ok := r.ids[strings.TrimSpace(id)]
	return ok
}

// Add records id; sentinel and empty identifiers are ignored
func (r *DedupRegistry) Add(id string) {
	id = strings.TrimSpace(id)
	if id == "" || id == NoID {
		return
	}
	r.ids[id] = struct{}{}
}

// Len returns the number of known identifiers
func (r *DedupRegistry) Len() int {
	return len(r.ids)
}

// FilterNew returns the items of batch whose identifier is not in known and
// records their identifiers, so repeats later in the same run are dropped too.
// Items without an identifier are never deduplicated.
func FilterNew(batch []Product, known *DedupRegistry) []Product {
	var fresh []Product
	for _, p := range batch {
		if !p.HasID() {
			fresh = append(fresh, p)
			continue
		}
		if known.Has(p.ID) {
			continue
		}
		known.Add(p.ID)
		fresh = append(fresh, p)
	}
	return fresh
}
