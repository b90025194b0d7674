package extract

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dealmungchi/pharmacrawler/helpers"
	"github.com/dealmungchi/pharmacrawler/internal/browser"
	"github.com/dealmungchi/pharmacrawler/internal/browser/browsertest"
	"github.com/dealmungchi/pharmacrawler/internal/catalog"
	"github.com/dealmungchi/pharmacrawler/internal/locator"
	apperrors "github.com/dealmungchi/pharmacrawler/pkg/errors"
)

func testConfig() Config {
	return Config{
		Site: "test",
		Container: locator.Chain{Target: "listing", Candidates: []locator.Locator{
			locator.CSS("div.product-grid"), locator.CSS("ul.search-results"),
		}},
		Items: locator.Chain{Target: "tiles", Candidates: []locator.Locator{
			locator.CSS("div.product-tile"), locator.CSS("li.item"),
		}},
		EmptyMarker: locator.Chain{Candidates: []locator.Locator{locator.CSS("div.no-results")}},
		ID:          locator.Chain{Candidates: []locator.Locator{locator.SelfAttr("data-pid")}},
		Title:       locator.Chain{Candidates: []locator.Locator{locator.CSS("a.name"), locator.CSS("h3")}},
		Price:       locator.Chain{Candidates: []locator.Locator{locator.CSS("span.sales"), locator.CSS("span.price")}},
		Image:       locator.Chain{Candidates: []locator.Locator{locator.CSSAttr("img", "data-src"), locator.CSSAttr("img", "src")}},
		Brand:       locator.Chain{Candidates: []locator.Locator{locator.CSS("div.brand")}},
		Link:        locator.Chain{Candidates: []locator.Locator{locator.CSSAttr("a.name", "href")}},
		IDFromLink: func(link string) (string, error) {
			return helpers.LastPathSegment(link)
		},
		BaseURL: "https://www.example.cl/",
	}
}

func parse(t *testing.T, html string) *browser.StaticPage {
	t.Helper()
	page, err := browser.ParsePage(strings.NewReader(html), "https://www.example.cl/medicamentos")
	require.NoError(t, err)
	return page
}

func TestExtractPage(t *testing.T) {
	page := parse(t, `
		<div class="product-grid">
			<div class="product-tile" data-pid="100">
				<a class="name" href="/tapsin-dia/100.html">  Tapsin   Día  </a>
				<span class="sales">$1.990</span>
				<img src="/img/tapsin.png">
				<div class="brand">Tapsin</div>
			</div>
			<div class="product-tile">
				<a class="name" href="/aspirina-100/200.html">Aspirina 100</a>
				<span class="price">$2.490</span>
				<img src="data:image/gif;base64,R0lGOD" >
			</div>
			<div class="product-tile" data-pid="300">
				<a class="name" href="/ibuprofeno/300.html">Ibuprofeno 400</a>
			</div>
			<div class="product-tile"><div class="banner">Promo</div></div>
		</div>`)

	e := New(testConfig(), nil, nil)
	batch := e.ExtractPage(context.Background(), page)

	assert.Equal(t, OutcomeOK, batch.Outcome)
	assert.Equal(t, 4, batch.Rendered())
	assert.Equal(t, 1, batch.Dropped)
	require.Len(t, batch.Products, 3)

	first := batch.Products[0]
	assert.Equal(t, "100", first.ID)
	assert.Equal(t, "Tapsin Día", first.Title)
	assert.Equal(t, "$1.990", first.Price)
	assert.Equal(t, "https://www.example.cl/img/tapsin.png", first.Image)
	assert.Equal(t, "Tapsin", first.Brand)
	assert.Equal(t, "https://www.example.cl/tapsin-dia/100.html", first.Link)

	second := batch.Products[1]
	assert.Equal(t, "200", second.ID, "identifier derived from link")
	assert.Equal(t, "$2.490", second.Price, "alternative price locator")
	assert.Equal(t, catalog.NoImage, second.Image, "inline placeholder is not an image")
	assert.Equal(t, catalog.NoBrand, second.Brand)

	third := batch.Products[2]
	assert.Equal(t, catalog.NoPrice, third.Price)
	assert.Equal(t, catalog.NoImage, third.Image)

	assert.True(t, apperrors.IsType(batch.Items[3].Err, apperrors.ErrorTypeExtraction))
}

func TestMissingPriceIsSentinelNotFailure(t *testing.T) {
	page := parse(t, `<div class="product-grid"><div class="product-tile" data-pid="9"><h3>Omeprazol 20 mg</h3></div></div>`)
	e := New(testConfig(), nil, nil)

	tiles, found := e.Tiles(context.Background(), page)
	require.True(t, found)
	require.Len(t, tiles, 1)

	item := e.ExtractItem(context.Background(), tiles[0])
	assert.NoError(t, item.Err)
	assert.Equal(t, "No price found", item.Product.Price)
	assert.Equal(t, "Omeprazol 20 mg", item.Product.Title)
	assert.Equal(t, catalog.NoLink, item.Product.Link)
}

func TestAlternativeContainer(t *testing.T) {
	page := parse(t, `<ul class="search-results"><li class="item" data-pid="1"><h3>Loratadina</h3></li></ul>`)
	e := New(testConfig(), nil, nil)

	batch := e.ExtractPage(context.Background(), page)
	assert.Equal(t, OutcomeOK, batch.Outcome)
	require.Len(t, batch.Products, 1)
	assert.Equal(t, "1", batch.Products[0].ID)
	assert.Equal(t, "Loratadina", batch.Products[0].Title)
}

func TestMissingContainerOutcome(t *testing.T) {
	e := New(testConfig(), nil, nil)

	broken := e.ExtractPage(context.Background(), parse(t, `<div class="new-grid"></div>`))
	assert.Empty(t, broken.Products)
	assert.Equal(t, OutcomeSelectorBroken, broken.Outcome)
	require.Error(t, broken.Err)
	assert.True(t, apperrors.IsType(broken.Err, apperrors.ErrorTypeLocatorNotFound))

	empty := e.ExtractPage(context.Background(), parse(t, `<div class="no-results">Sin resultados</div>`))
	assert.Empty(t, empty.Products)
	assert.Equal(t, OutcomeEndOfResults, empty.Outcome)
	assert.NoError(t, empty.Err)

	emptyGrid := e.ExtractPage(context.Background(), parse(t, `<div class="product-grid"></div>`))
	assert.Equal(t, OutcomeEndOfResults, emptyGrid.Outcome)
}

func TestNormalizeTitles(t *testing.T) {
	cfg := testConfig()
	cfg.NormalizeTitles = true
	page := parse(t, `<div class="product-grid"><div class="product-tile" data-pid="5"><h3>Ibuprofeno  Niños Suspensión</h3></div></div>`)

	batch := New(cfg, nil, nil).ExtractPage(context.Background(), page)
	require.Len(t, batch.Products, 1)
	assert.Equal(t, "Ibuprofeno Ninos Suspension", batch.Products[0].Title)

	assert.Equal(t, "Acido Acetilsalicilico", NormalizeTitle(" Ácido   Acetilsalicílico "))
}

type panickyElement struct {
	*browsertest.Node
}

func (p panickyElement) Elements(ctx context.Context, css string) ([]browser.Element, error) {
	panic("detached node")
}

func TestItemPanicIsIsolated(t *testing.T) {
	tile := browsertest.NewNode("", "data-pid", "1")
	tile.Add("h3", browsertest.NewNode("x"))
	page := browsertest.NewPage()
	page.Root.Add("div.product-grid", browsertest.NewNode("").Add("div.product-tile", tile))

	e := New(testConfig(), nil, nil)
	item := e.ExtractItem(context.Background(), panickyElement{tile})
	assert.True(t, apperrors.IsType(item.Err, apperrors.ErrorTypeExtraction))

	// The same tile through the page extracts normally
	batch := e.ExtractPage(context.Background(), page)
	require.Len(t, batch.Products, 1)
	assert.Equal(t, "x", batch.Products[0].Title)
}

func TestExtractItemCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	item := New(testConfig(), nil, nil).ExtractItem(ctx, browsertest.NewNode("x"))
	assert.Error(t, item.Err)
}

func TestReadySelectors(t *testing.T) {
	assert.Equal(t, []string{"div.product-grid", "ul.search-results"}, New(testConfig(), nil, nil).ReadySelectors())
}
