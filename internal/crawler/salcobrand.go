package crawler

import (
	"strings"

	"github.com/dealmungchi/pharmacrawler/config"
	"github.com/dealmungchi/pharmacrawler/helpers"
	"github.com/dealmungchi/pharmacrawler/internal/extract"
	"github.com/dealmungchi/pharmacrawler/internal/locator"
	"github.com/dealmungchi/pharmacrawler/internal/paginate"
)

// salcobrandSite describes Salcobrand. Its search is served by Algolia
// widgets; product links carry the SKU as the default_sku query parameter.
func salcobrandSite(cfg *config.Config) SiteConfig {
	base := "https://salcobrand.cl"
	return SiteConfig{
		Name:       config.SiteSalcobrand,
		Provider:   "Salcobrand",
		URL:        cfg.SalcobrandURL,
		BaseURL:    base,
		Pagination: paginate.ModePageTurn,
		Consent:    consentChain(),
		Control: locator.Chain{
			Target: "next page",
			Candidates: []locator.Locator{
				locator.CSS("li.ais-Pagination-item--nextPage a.ais-Pagination-link"),
				locator.CSS("ul.pagination li.next a"),
				locator.CSS("a[rel='next']"),
			},
			Text:    &locator.TextFallback{Within: "ul.pagination a, nav a", Phrases: []string{"siguiente", "›"}},
			Visible: true,
		},
		Extract: extract.Config{
			Site:        config.SiteSalcobrand,
			Container:   locator.Chain{Target: "product grid", Candidates: css("div#hits ol.ais-Hits-list", "div.products-grid", "ul.products")},
			Items:       locator.Chain{Target: "product tiles", Candidates: css("li.ais-Hits-item", "div.product", "li.product")},
			EmptyMarker: locator.Chain{Target: "no results", Candidates: css("div.ais-Hits--empty", "div.no-results")},
			ID:          locator.Chain{Target: "product id", Candidates: []locator.Locator{locator.CSSAttr("[data-sku]", "data-sku")}},
			Title:       locator.Chain{Target: "title", Candidates: css("span.product-name", "div.product-info h4", "a.product-link span")},
			Price:       locator.Chain{Target: "price", Candidates: css("span.product-prices__value--best-price", "div.sale-price span", "span.product-prices__value", "span.price")},
			Image:       locator.Chain{Target: "image", Candidates: cssAttr("src", "img.product-image", "div.product-image img", "img")},
			Brand:       locator.Chain{Target: "brand", Candidates: css("span.product-brand", "div.brand")},
			Link:        locator.Chain{Target: "link", Candidates: cssAttr("href", "a.product-image-link", "a.product-link", "a[href]")},
			IDFromLink: func(link string) (string, error) {
				sku, err := helpers.GetSplitPart(link, "default_sku=", 1)
				if err != nil {
					return "", err
				}
				return helpers.GetSplitPart(strings.Split(sku, "#")[0], "&", 0)
			},
			BaseURL: base,
		},
	}
}
