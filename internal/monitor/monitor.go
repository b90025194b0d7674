// Package monitor compares a fresh listing against the stored catalog,
// records price changes in the history and reports them.
package monitor

import (
	"time"

	"github.com/dealmungchi/pharmacrawler/internal/catalog"
)

// ChangeEvent is one observed price change
type ChangeEvent struct {
	Site      string    `json:"site,omitempty"`
	ProductID string    `json:"productId"`
	Title     string    `json:"title"`
	OldPrice  string    `json:"oldPrice"`
	NewPrice  string    `json:"newPrice"`
	Timestamp time.Time `json:"timestamp"`
	Trend     Trend     `json:"trend"`
}

// Options tunes a comparison
type Options struct {
	Site string
	// AppendNew adds products missing from the catalog to it
	AppendNew bool
}

// Result is the outcome of comparing one listing against the catalog
type Result struct {
	// Products is the updated catalog, in stored order with appended products last
	Products []catalog.Product
	Events   []ChangeEvent

	Checked   int
	Unchanged int
	Unpriced  int
	// Priced counts stored products whose first real price was seen
	Priced   int
	NotFound int
	// New lists identified products the catalog did not know
	New      []catalog.Product
	Appended int
}

// Compare matches current against stored by identifier. Matched products
// are updated in the returned catalog and their changes appended to
// history; stored products absent from current are kept and marked
// not_found. Stored products without an identifier are left untouched, and
// a stored product that had no price takes the current one as its first
// observation rather than as a change.
func Compare(stored, current []catalog.Product, history catalog.History, now time.Time, opts Options) Result {
	lookup := make(map[string]catalog.Product, len(current))
	for _, p := range current {
		if !p.HasID() {
			continue
		}
		if _, ok := lookup[p.ID]; !ok {
			lookup[p.ID] = p
		}
	}

	res := Result{Products: make([]catalog.Product, 0, len(stored))}
	known := catalog.NewDedupRegistry()

	for _, s := range stored {
		if !s.HasID() {
			res.Products = append(res.Products, s)
			continue
		}
		known.Add(s.ID)
		res.Checked++

		c, ok := lookup[s.ID]
		switch {
		case !ok:
			s.Status = catalog.StatusNotFound
			res.NotFound++

		case !c.HasPrice():
			s.LastUpdated = now
			s.Status = ""
			res.Unpriced++

		case !s.HasPrice():
			s.Price = c.Price
			if c.Image != "" && c.Image != catalog.NoImage {
				s.Image = c.Image
			}
			s.LastUpdated = now
			s.PriceChanged = boolPtr(false)
			s.Status = ""
			history.RecordInitial(s, now)
			res.Priced++

		case samePrice(s.Price, c.Price):
			s.LastUpdated = now
			s.PriceChanged = boolPtr(false)
			s.Status = ""
			res.Unchanged++

		default:
			title := s.Title
			if c.Title != "" && c.Title != catalog.NoTitle {
				title = c.Title
			}
			res.Events = append(res.Events, ChangeEvent{
				Site:      opts.Site,
				ProductID: s.ID,
				Title:     title,
				OldPrice:  s.Price,
				NewPrice:  c.Price,
				Timestamp: now,
				Trend:     ClassifyTrend(s.Price, c.Price),
			})
			history.RecordChange(s.ID, title, s.Price, c.Price, s.LastUpdated, now)

			s.Price = c.Price
			if c.Image != "" && c.Image != catalog.NoImage {
				s.Image = c.Image
			}
			s.LastUpdated = now
			s.PriceChanged = boolPtr(true)
			s.Status = ""
		}
		res.Products = append(res.Products, s)
	}

	for _, c := range catalog.FilterNew(current, known) {
		if !c.HasID() {
			continue
		}
		res.New = append(res.New, c)
		if !opts.AppendNew {
			continue
		}
		c.LastUpdated = now
		res.Products = append(res.Products, c)
		history.RecordInitial(c, now)
		res.Appended++
	}

	return res
}

func boolPtr(b bool) *bool {
	return &b
}
