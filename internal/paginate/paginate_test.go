package paginate

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dealmungchi/pharmacrawler/internal/browser/browsertest"
	"github.com/dealmungchi/pharmacrawler/internal/catalog"
	"github.com/dealmungchi/pharmacrawler/internal/extract"
	"github.com/dealmungchi/pharmacrawler/internal/locator"
)

func newExtractor() *extract.Extractor {
	return extract.New(extract.Config{
		Site:      "test",
		Container: locator.Chain{Candidates: []locator.Locator{locator.CSS("div.grid")}},
		Items:     locator.Chain{Candidates: []locator.Locator{locator.CSS("div.tile")}},
		ID:        locator.Chain{Candidates: []locator.Locator{locator.SelfAttr("data-pid")}},
		Title:     locator.Chain{Candidates: []locator.Locator{{}}},
	}, nil, nil)
}

func tile(id string) *browsertest.Node {
	return browsertest.NewNode("Product "+id, "data-pid", id)
}

func fastOptions(mode Mode, max int) Options {
	return Options{
		Mode:          mode,
		MaxIterations: max,
		Control:       locator.Chain{Target: "control", Candidates: []locator.Locator{locator.CSS("button.more"), locator.CSS("a.next")}},
		WaitTimeout:   50 * time.Millisecond,
		SettleTimeout: 50 * time.Millisecond,
		PollInterval:  time.Millisecond,
	}
}

func ids(products []catalog.Product) []string {
	out := make([]string, 0, len(products))
	for _, p := range products {
		out = append(out, p.ID)
	}
	return out
}

func TestLoadMoreStopsExactlyAtCap(t *testing.T) {
	page := browsertest.NewPage()
	grid := browsertest.NewNode("").Add("div.tile", tile("0"))
	page.Root.Add("div.grid", grid)

	next := 1
	button := browsertest.NewNode("Ver más")
	button.OnClick = func() error {
		grid.Add("div.tile", tile(fmt.Sprint(next)))
		next++
		return nil
	}
	page.Root.Add("button.more", button)

	var batches [][]string
	c := New(fastOptions(ModeLoadMore, 3), newExtractor(), nil, nil)
	res, err := c.Run(context.Background(), page, func(ctx context.Context, n int, products []catalog.Product) error {
		batches = append(batches, ids(products))
		return nil
	})
	require.NoError(t, err)

	assert.Equal(t, StopMaxIterations, res.Stop)
	assert.Equal(t, 3, res.Iterations)
	assert.Equal(t, 3, button.Clicks())
	assert.Equal(t, []string{"0", "1", "2", "3"}, ids(res.Products))
	assert.Equal(t, [][]string{{"0"}, {"1"}, {"2"}, {"3"}}, batches)
	assert.Equal(t, 3, page.Scrolls())
}

func TestLoadMoreStopsWhenControlDisappears(t *testing.T) {
	page := browsertest.NewPage()
	grid := browsertest.NewNode("").Add("div.tile", tile("a"), tile("b"))
	page.Root.Add("div.grid", grid)

	button := browsertest.NewNode("Cargar más")
	button.OnClick = func() error {
		grid.Add("div.tile", tile("c"))
		page.Root.Remove("button.more")
		return nil
	}
	page.Root.Add("button.more", button)

	res, err := New(fastOptions(ModeLoadMore, 20), newExtractor(), nil, nil).Run(context.Background(), page, nil)
	require.NoError(t, err)
	assert.Equal(t, StopNoControl, res.Stop)
	assert.Equal(t, 1, res.Iterations)
	assert.Equal(t, []string{"a", "b", "c"}, ids(res.Products))
}

func TestLoadMoreDisabledControl(t *testing.T) {
	page := browsertest.NewPage()
	page.Root.Add("div.grid", browsertest.NewNode("").Add("div.tile", tile("a")))
	button := browsertest.NewNode("Ver más", "class", "btn btn--disabled")
	page.Root.Add("button.more", button)

	res, err := New(fastOptions(ModeLoadMore, 20), newExtractor(), nil, nil).Run(context.Background(), page, nil)
	require.NoError(t, err)
	assert.Equal(t, StopNoControl, res.Stop)
	assert.Equal(t, 0, button.Clicks())
}

func TestDiffIsPositionalPlusIdentifier(t *testing.T) {
	seen := map[string]struct{}{"1": {}}
	batch := extract.Batch{Items: []extract.Item{
		{Index: 0, Product: catalog.Product{ID: "1"}},
		{Index: 1, Product: catalog.Product{ID: catalog.NoID, Title: "old unidentified"}},
		{Index: 2, Product: catalog.Product{ID: "1"}},
		{Index: 3, Product: catalog.Product{ID: "2"}},
		{Index: 4, Product: catalog.Product{ID: catalog.NoID, Title: "new unidentified"}},
		{Index: 5, Err: errors.New("broken tile")},
	}}

	fresh, dropped := diff(batch, 2, seen)
	require.Len(t, fresh, 2)
	assert.Equal(t, "2", fresh[0].ID)
	assert.Equal(t, "new unidentified", fresh[1].Title)
	assert.Equal(t, 1, dropped)
	assert.Contains(t, seen, "2")
}

func TestPageTurnUntilDisabledNext(t *testing.T) {
	page := browsertest.NewPage()
	grid := browsertest.NewNode("").Add("div.tile", tile("p1a"), tile("p1b"))
	page.Root.Add("div.grid", grid)

	pages := [][]*browsertest.Node{{tile("p2a")}, {tile("p3a"), tile("p3b")}}
	next := browsertest.NewNode("Siguiente")
	next.OnClick = func() error {
		grid.Set("div.tile", pages[0]...)
		pages = pages[1:]
		if len(pages) == 0 {
			page.Root.Set("a.next", browsertest.NewNode("Siguiente", "aria-disabled", "true"))
		}
		return nil
	}
	page.Root.Add("a.next", next)

	var pageNums []int
	res, err := New(fastOptions(ModePageTurn, 20), newExtractor(), nil, nil).Run(context.Background(), page, func(ctx context.Context, n int, products []catalog.Product) error {
		pageNums = append(pageNums, n)
		return nil
	})
	require.NoError(t, err)

	assert.Equal(t, StopNoControl, res.Stop)
	assert.Equal(t, 3, res.Pages)
	assert.Equal(t, 2, res.Iterations)
	assert.Equal(t, []int{1, 2, 3}, pageNums)
	assert.Equal(t, []string{"p1a", "p1b", "p2a", "p3a", "p3b"}, ids(res.Products))
}

func TestPageTurnStopsAtCap(t *testing.T) {
	page := browsertest.NewPage()
	grid := browsertest.NewNode("").Add("div.tile", tile("0"))
	page.Root.Add("div.grid", grid)

	n := 0
	next := browsertest.NewNode("›")
	next.OnClick = func() error {
		n++
		grid.Set("div.tile", tile(fmt.Sprint(n)))
		return nil
	}
	page.Root.Add("a.next", next)

	res, err := New(fastOptions(ModePageTurn, 2), newExtractor(), nil, nil).Run(context.Background(), page, nil)
	require.NoError(t, err)
	assert.Equal(t, StopMaxIterations, res.Stop)
	assert.Equal(t, 2, next.Clicks())
	assert.Equal(t, 3, res.Pages)
}

func TestPageTurnReloadsOnceWhenNotReady(t *testing.T) {
	page := browsertest.NewPage()
	page.OnReload = func() {
		page.Root.Set("div.grid", browsertest.NewNode("").Add("div.tile", tile("x")))
	}

	res, err := New(fastOptions(ModePageTurn, 20), newExtractor(), nil, nil).Run(context.Background(), page, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Reloads)
	assert.Equal(t, []string{"x"}, ids(res.Products))
	assert.Equal(t, StopNoControl, res.Stop)
}

func TestPageTurnBrokenSelectorsAfterReload(t *testing.T) {
	page := browsertest.NewPage()
	page.Root.Add("section.new-layout", browsertest.NewNode(""))

	res, err := New(fastOptions(ModePageTurn, 20), newExtractor(), nil, nil).Run(context.Background(), page, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, page.Reloads())
	assert.Equal(t, StopSelectorBroken, res.Stop)
	assert.Empty(t, res.Products)
}

func TestRunCancelled(t *testing.T) {
	page := browsertest.NewPage()
	page.Root.Add("div.grid", browsertest.NewNode("").Add("div.tile", tile("a")))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	for _, mode := range []Mode{ModeLoadMore, ModePageTurn} {
		res, err := New(fastOptions(mode, 20), newExtractor(), nil, nil).Run(ctx, page, nil)
		assert.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, StopCancelled, res.Stop)
	}
}

func TestBatchFuncErrorStopsRun(t *testing.T) {
	page := browsertest.NewPage()
	page.Root.Add("div.grid", browsertest.NewNode("").Add("div.tile", tile("a")))
	page.Root.Add("a.next", browsertest.NewNode("next"))
	boom := errors.New("disk full")

	_, err := New(fastOptions(ModePageTurn, 20), newExtractor(), nil, nil).Run(context.Background(), page, func(context.Context, int, []catalog.Product) error {
		return boom
	})
	assert.ErrorIs(t, err, boom)
}

func TestDisabled(t *testing.T) {
	ctx := context.Background()
	assert.True(t, Disabled(ctx, browsertest.NewNode("", "disabled", "")))
	assert.True(t, Disabled(ctx, browsertest.NewNode("", "aria-disabled", "TRUE")))
	assert.True(t, Disabled(ctx, browsertest.NewNode("", "class", "page-link disabled")))
	assert.False(t, Disabled(ctx, browsertest.NewNode("", "aria-disabled", "false")))
	assert.False(t, Disabled(ctx, browsertest.NewNode("", "class", "page-link")))
}
