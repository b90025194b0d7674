package locator

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dealmungchi/pharmacrawler/internal/browser"
	"github.com/dealmungchi/pharmacrawler/internal/browser/browsertest"
)

func parse(t *testing.T, html string) *browser.StaticPage {
	t.Helper()
	page, err := browser.ParsePage(strings.NewReader(html), "https://example.com/listing")
	require.NoError(t, err)
	return page
}

func TestResolveTriesCandidatesInOrder(t *testing.T) {
	page := parse(t, `<button class="secondary">Later</button><button id="accept">OK</button>`)
	r := NewResolver(nil)

	match, ok := r.Resolve(context.Background(), page, Chain{
		Target:     "accept cookies",
		Candidates: []Locator{CSS("#onetrust-accept-btn-handler"), CSS("#accept"), CSS("button.secondary")},
	})
	require.True(t, ok)
	assert.Equal(t, "css:#accept", match.Locator.String())
	assert.False(t, match.ByText)
}

func TestResolveFallsBackToTextLast(t *testing.T) {
	page := parse(t, `
		<div class="banner">
			<a href="/privacy">Política de privacidad</a>
			<button style="display:none">Aceptar</button>
			<button>  ACEPTAR   todas </button>
		</div>`)
	r := NewResolver(nil)

	match, ok := r.Resolve(context.Background(), page, Chain{
		Target:     "accept cookies",
		Candidates: []Locator{CSS("#missing")},
		Text:       &TextFallback{Phrases: []string{"aceptar todas", "acepto"}},
	})
	require.True(t, ok)
	assert.True(t, match.ByText)
	text, _ := match.Element.Text(context.Background())
	assert.Contains(t, text, "ACEPTAR")
}

func TestResolveNotFoundIsNotAnError(t *testing.T) {
	page := parse(t, `<p>nothing to click</p>`)
	r := NewResolver(nil)

	_, ok := r.Resolve(context.Background(), page, Chain{
		Target:     "next page",
		Candidates: []Locator{CSS("a.next"), {XPath: "//a[@rel='next']"}},
		Text:       &TextFallback{Phrases: []string{"Siguiente"}},
	})
	assert.False(t, ok)
	assert.False(t, r.Click(context.Background(), page, Chain{Candidates: []Locator{CSS("a.next")}}))
}

func TestResolveVisibleSkipsHiddenElements(t *testing.T) {
	page := parse(t, `<a class="next" hidden href="?p=2">2</a><a class="next alt" href="?p=3">3</a>`)
	r := NewResolver(nil)

	match, ok := r.Resolve(context.Background(), page, Chain{Candidates: []Locator{CSS("a.next")}, Visible: true})
	require.True(t, ok)
	href, _, _ := match.Element.Attribute(context.Background(), "href")
	assert.Equal(t, "?p=3", href)
}

func TestValueSkipsEmptyCandidates(t *testing.T) {
	page := parse(t, `
		<div class="tile" data-pid="778">
			<span class="price"></span>
			<span class="price-alt">  $4.990 </span>
			<img class="lazy" data-src="/img/a.png">
		</div>`)
	ctx := context.Background()
	tiles, err := page.Elements(ctx, "div.tile")
	require.NoError(t, err)
	r := NewResolver(nil)

	price, ok := r.Value(ctx, tiles[0], Chain{Candidates: []Locator{CSS("span.price"), CSS("span.price-alt")}})
	assert.True(t, ok)
	assert.Equal(t, "$4.990", price)

	image, ok := r.Value(ctx, tiles[0], Chain{Candidates: []Locator{CSSAttr("img", "src"), CSSAttr("img", "data-src")}})
	assert.True(t, ok)
	assert.Equal(t, "/img/a.png", image)

	id, ok := r.Value(ctx, tiles[0], Chain{Candidates: []Locator{SelfAttr("data-pid")}})
	assert.True(t, ok)
	assert.Equal(t, "778", id)

	_, ok = r.Value(ctx, page, Chain{Candidates: []Locator{SelfAttr("data-pid")}})
	assert.False(t, ok, "a page is not an element")
}

func TestXPathUnsupportedFallsThrough(t *testing.T) {
	page := parse(t, `<ul class="pager"><li class="next"><a href="?p=2">›</a></li></ul>`)
	r := NewResolver(nil)

	match, ok := r.Resolve(context.Background(), page, Chain{
		Candidates: []Locator{{XPath: "//li[@class='next']/a"}, CSS("li.next a")},
	})
	require.True(t, ok)
	assert.Equal(t, "css:li.next a", match.Locator.String())
}

func TestClickReportsFailure(t *testing.T) {
	page := browsertest.NewPage()
	button := browsertest.NewNode("Ver más")
	button.OnClick = func() error { return errors.New("element detached") }
	page.Root.Add("button.more", button)
	r := NewResolver(nil)

	assert.False(t, r.Click(context.Background(), page, Chain{Candidates: []Locator{CSS("button.more")}}))
	assert.Equal(t, 1, button.Clicks())

	button.OnClick = nil
	assert.True(t, r.Click(context.Background(), page, Chain{Candidates: []Locator{CSS("button.more")}}))
}

func TestResolveAllUsesFirstNonEmptyCandidate(t *testing.T) {
	page := parse(t, `<div class="product">a</div><div class="product">b</div><li class="tile">c</li>`)
	r := NewResolver(nil)

	els, loc, ok := r.ResolveAll(context.Background(), page, Chain{
		Candidates: []Locator{CSS("div.product-tile"), CSS("div.product"), CSS("li.tile")},
	})
	require.True(t, ok)
	assert.Len(t, els, 2)
	assert.Equal(t, "div.product", loc.CSS)
}
