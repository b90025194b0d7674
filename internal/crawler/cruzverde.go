package crawler

import (
	"github.com/dealmungchi/pharmacrawler/config"
	"github.com/dealmungchi/pharmacrawler/helpers"
	"github.com/dealmungchi/pharmacrawler/internal/extract"
	"github.com/dealmungchi/pharmacrawler/internal/locator"
	"github.com/dealmungchi/pharmacrawler/internal/paginate"
)

// cruzVerdeSite describes Cruz Verde. Listings are paged and product links
// end in the product code, e.g. /paracetamol-500-mg/273389.html.
func cruzVerdeSite(cfg *config.Config) SiteConfig {
	base := "https://www.cruzverde.cl"
	return SiteConfig{
		Name:       config.SiteCruzVerde,
		Provider:   "CruzVerde",
		URL:        cfg.CruzVerdeURL,
		BaseURL:    base,
		Pagination: paginate.ModePageTurn,
		Consent:    consentChain(),
		Control: locator.Chain{
			Target: "next page",
			Candidates: []locator.Locator{
				locator.CSS("ml-pagination button[aria-label='Siguiente']"),
				locator.CSS("ul.pagination li.next a"),
				locator.CSS("a[rel='next']"),
				{XPath: "//ml-pagination//li[last()]/button"},
			},
			Text:    &locator.TextFallback{Within: "ml-pagination button, ul.pagination a", Phrases: []string{"siguiente"}},
			Visible: true,
		},
		Extract: extract.Config{
			Site:        config.SiteCruzVerde,
			Container:   locator.Chain{Target: "product grid", Candidates: css("ml-search-result div.grid", "div.product-grid", "div.search-result")},
			Items:       locator.Chain{Target: "product tiles", Candidates: css("ml-new-card-product", "ml-card-product", "div.product-card")},
			EmptyMarker: locator.Chain{Target: "no results", Candidates: css("ml-empty-search", "div.no-results")},
			ID:          locator.Chain{Target: "product id", Candidates: []locator.Locator{locator.SelfAttr("data-id"), locator.CSSAttr("[data-product-id]", "data-product-id")}},
			Title:       locator.Chain{Target: "title", Candidates: css("a.new-ellipsis span", "p.product-name", "a.product-name", "h4")},
			Price:       locator.Chain{Target: "price", Candidates: css("ml-price-tag-v2 span.font-bold", "span.price-sale", "span.price", "div.price")},
			Image:       locator.Chain{Target: "image", Candidates: cssAttr("src", "at-image img", "img.product-image", "img")},
			Brand:       locator.Chain{Target: "brand", Candidates: css("p.brand", "span.brand", "div.product-brand")},
			Link:        locator.Chain{Target: "link", Candidates: cssAttr("href", "a.new-ellipsis", "a.product-name", "a[href]")},
			IDFromLink: func(link string) (string, error) {
				return helpers.LastPathSegment(link)
			},
			BaseURL:         base,
			NormalizeTitles: true,
		},
	}
}
