package browser

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/dealmungchi/pharmacrawler/pkg/errors"
)

func TestStaticPageQueriesAndAttributes(t *testing.T) {
	html := `
		<div class="grid">
			<div class="tile" data-pid="A"><span class="name"> Tapsin </span></div>
			<div class="tile" style="display: none"><span class="name">Hidden</span></div>
		</div>`
	page, err := ParsePage(strings.NewReader(html), "https://example.com/listing")
	require.NoError(t, err)

	ctx := context.Background()
	tiles, err := page.Elements(ctx, "div.tile")
	require.NoError(t, err)
	require.Len(t, tiles, 2)

	pid, ok, err := tiles[0].Attribute(ctx, "data-pid")
	assert.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "A", pid)

	names, err := tiles[0].Elements(ctx, "span.name")
	require.NoError(t, err)
	text, _ := names[0].Text(ctx)
	assert.Equal(t, " Tapsin ", text)

	visible, _ := tiles[1].Visible(ctx)
	assert.False(t, visible)

	_, err = page.ElementsX(ctx, "//div")
	assert.ErrorIs(t, err, ErrUnsupported)
}

func TestStaticSessionFollowsLinks(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/listing", func(w http.ResponseWriter, r *http.Request) {
		page := r.URL.Query().Get("page")
		if page == "" {
			page = "1"
		}
		fmt.Fprintf(w, `<html><body><h1>page %s</h1><a class="next" href="/listing?page=2">next</a><button class="noop">x</button></body></html>`, page)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	ctx := context.Background()
	session := NewStaticSession()
	page, err := session.NewPage(ctx)
	require.NoError(t, err)
	require.NoError(t, page.Navigate(ctx, server.URL+"/listing"))

	next, err := page.Elements(ctx, "a.next")
	require.NoError(t, err)
	require.NoError(t, next[0].Click(ctx))
	assert.Equal(t, server.URL+"/listing?page=2", page.URL())

	headings, _ := page.Elements(ctx, "h1")
	text, _ := headings[0].Text(ctx)
	assert.Equal(t, "page 2", text)

	buttons, _ := page.Elements(ctx, "button.noop")
	assert.ErrorIs(t, buttons[0].Click(ctx), ErrNotClickable)

	require.NoError(t, page.Reload(ctx))
	assert.Equal(t, server.URL+"/listing?page=2", page.URL())
}

func TestWaitForAnyReturnsFirstMatchingSelector(t *testing.T) {
	page, err := ParsePage(strings.NewReader(`<ul class="alt"><li>x</li></ul>`), "https://example.com")
	require.NoError(t, err)

	sel, err := WaitForAny(context.Background(), page, []string{"div.primary", "ul.alt"}, time.Second, 10*time.Millisecond)
	assert.NoError(t, err)
	assert.Equal(t, "ul.alt", sel)
}

func TestWaitForAnyTimesOutSoftly(t *testing.T) {
	page, err := ParsePage(strings.NewReader(`<p>empty</p>`), "https://example.com")
	require.NoError(t, err)

	start := time.Now()
	sel, err := WaitForAny(context.Background(), page, []string{"div.primary"}, 50*time.Millisecond, 10*time.Millisecond)
	assert.Empty(t, sel)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeWaitTimeout))
	assert.Less(t, time.Since(start), time.Second)
}

func TestWaitForAnyCancelled(t *testing.T) {
	page, err := ParsePage(strings.NewReader(`<p>empty</p>`), "https://example.com")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = WaitForAny(ctx, page, []string{"div.primary"}, time.Second, 10*time.Millisecond)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestWaitForCountWaitsForGrowthThenStability(t *testing.T) {
	counts := []int{3, 3, 5, 7, 7, 9}
	calls := 0
	count := func(ctx context.Context) (int, error) {
		n := counts[calls]
		if calls < len(counts)-1 {
			calls++
		}
		return n, nil
	}

	n, err := WaitForCount(context.Background(), count, 3, time.Second, time.Millisecond)
	assert.NoError(t, err)
	assert.Equal(t, 7, n)
}

func TestWaitForCountTimesOutWithoutGrowth(t *testing.T) {
	count := func(ctx context.Context) (int, error) { return 4, nil }

	n, err := WaitForCount(context.Background(), count, 4, 30*time.Millisecond, 5*time.Millisecond)
	assert.Equal(t, 4, n)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeWaitTimeout))
}
