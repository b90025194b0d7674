package catalog

import "time"

// History maps a product identifier to its price series
type History map[string]*ProductHistory

// RecordInitial adds the first observation for p. It does nothing when p has
// no identifier or a series already exists.
func (h History) RecordInitial(p Product, ts time.Time) bool {
	if !p.HasID() {
		return false
	}
	if series := h[p.ID]; series != nil {
		return false
	}
	h[p.ID] = &ProductHistory{
		Title:  p.Title,
		Prices: []PriceEntry{{Price: p.Price, Timestamp: ts, IsInitial: true}},
	}
	return true
}

// RecordChange appends a change from oldPrice to newPrice. A product without
// a series gets oldPrice as its initial entry, stamped with since.
func (h History) RecordChange(id, title, oldPrice, newPrice string, since, ts time.Time) {
	series := h[id]
	if series == nil {
		series = &ProductHistory{
			Title:  title,
			Prices: []PriceEntry{{Price: oldPrice, Timestamp: since, IsInitial: true}},
		}
		h[id] = series
	}
	series.Title = title
	series.Prices = append(series.Prices, PriceEntry{
		Price:         newPrice,
		Timestamp:     ts,
		PreviousPrice: oldPrice,
	})
}

// ChangeCount returns the number of entries beyond the initial one
func (h History) ChangeCount(id string) int {
	series := h[id]
	if series == nil {
		return 0
	}
	count := 0
	for _, entry := range series.Prices {
		if !entry.IsInitial {
			count++
		}
	}
	return count
}
