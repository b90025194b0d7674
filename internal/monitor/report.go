package monitor

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dealmungchi/pharmacrawler/internal/catalog"
)

// TopEntry is a product ranked by how often its price changed
type TopEntry struct {
	ProductID string
	Title     string
	Changes   int
}

// Report summarizes a monitoring pass
type Report struct {
	Site      string
	Generated time.Time

	Total     int
	Checked   int
	Changed   int
	Increased int
	Decreased int
	// Reformatted counts changes of the displayed text with the same amount
	Reformatted int
	Unknown     int
	Unchanged   int
	NotFound    int
	New         int

	Changes []ChangeEvent
	Top     []TopEntry
}

// BuildReport summarizes res and ranks up to topN products by recorded
// changes, most first with ties broken by identifier.
func BuildReport(site string, res Result, history catalog.History, now time.Time, topN int) Report {
	r := Report{
		Site:      site,
		Generated: now,
		Total:     len(res.Products),
		Checked:   res.Checked,
		Changed:   len(res.Events),
		Unchanged: res.Unchanged,
		NotFound:  res.NotFound,
		New:       len(res.New),
		Changes:   res.Events,
	}
	for _, e := range res.Events {
		switch e.Trend {
		case TrendIncreased:
			r.Increased++
		case TrendDecreased:
			r.Decreased++
		case TrendUnchanged:
			r.Reformatted++
		default:
			r.Unknown++
		}
	}

	for id, series := range history {
		if n := history.ChangeCount(id); n > 0 {
			r.Top = append(r.Top, TopEntry{ProductID: id, Title: series.Title, Changes: n})
		}
	}
	sort.Slice(r.Top, func(i, j int) bool {
		if r.Top[i].Changes != r.Top[j].Changes {
			return r.Top[i].Changes > r.Top[j].Changes
		}
		return r.Top[i].ProductID < r.Top[j].ProductID
	})
	if topN >= 0 && len(r.Top) > topN {
		r.Top = r.Top[:topN]
	}
	return r
}

// Write prints the report for operators
func (r Report) Write(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	fmt.Fprintf(tw, "Price report: %s (%s)\n", r.Site, r.Generated.Format(time.RFC3339))
	fmt.Fprintln(tw, strings.Repeat("=", 40))
	fmt.Fprintf(tw, "Products in catalog:\t%d\n", r.Total)
	fmt.Fprintf(tw, "Checked:\t%d\n", r.Checked)
	fmt.Fprintf(tw, "Price changes:\t%d\n", r.Changed)
	fmt.Fprintf(tw, "  Increased:\t%d\n", r.Increased)
	fmt.Fprintf(tw, "  Decreased:\t%d\n", r.Decreased)
	if r.Reformatted > 0 {
		fmt.Fprintf(tw, "  Same amount:\t%d\n", r.Reformatted)
	}
	fmt.Fprintf(tw, "  Unknown:\t%d\n", r.Unknown)
	fmt.Fprintf(tw, "Unchanged:\t%d\n", r.Unchanged)
	fmt.Fprintf(tw, "Not found:\t%d\n", r.NotFound)
	fmt.Fprintf(tw, "New products:\t%d\n", r.New)

	if len(r.Changes) > 0 {
		fmt.Fprintln(tw)
		fmt.Fprintln(tw, "Changes:")
		for _, e := range r.Changes {
			fmt.Fprintf(tw, "  %s\t%s\t%s -> %s\t%s\n", e.ProductID, e.Title, e.OldPrice, e.NewPrice, e.Trend)
		}
	}

	if len(r.Top) > 0 {
		fmt.Fprintln(tw)
		fmt.Fprintln(tw, "Most changed:")
		for i, entry := range r.Top {
			fmt.Fprintf(tw, "  %d.\t%s\t%s\t%d\n", i+1, entry.ProductID, entry.Title, entry.Changes)
		}
	}

	return tw.Flush()
}
