package crawler

import (
	"github.com/dealmungchi/pharmacrawler/config"
	"github.com/dealmungchi/pharmacrawler/internal/extract"
	"github.com/dealmungchi/pharmacrawler/internal/locator"
	"github.com/dealmungchi/pharmacrawler/internal/paginate"
)

// ahumadaSite describes Farmacias Ahumada. The storefront appends tiles to
// the grid behind a "Ver más" button.
func ahumadaSite(cfg *config.Config) SiteConfig {
	base := "https://www.farmaciasahumada.cl"
	return SiteConfig{
		Name:       config.SiteAhumada,
		Provider:   "Ahumada",
		URL:        cfg.AhumadaURL,
		BaseURL:    base,
		Pagination: paginate.ModeLoadMore,
		Consent:    consentChain(),
		Control: locator.Chain{
			Target:     "load more",
			Candidates: css("div.show-more button", "button.more", "button.js-show-more"),
			Text:       &locator.TextFallback{Within: "button", Phrases: []string{"ver más", "mostrar más", "cargar más"}},
			Visible:    true,
		},
		Extract: extract.Config{
			Site:        config.SiteAhumada,
			Container:   locator.Chain{Target: "product grid", Candidates: css("div.product-grid", "div.search-results div.row.product-grid", "div.search-results")},
			Items:       locator.Chain{Target: "product tiles", Candidates: css("div.product-tile", "div.product[data-pid]", "div.product")},
			EmptyMarker: locator.Chain{Target: "no results", Candidates: css("div.no-results", "div.search-no-results")},
			ID: locator.Chain{Target: "product id", Candidates: []locator.Locator{
				locator.SelfAttr("data-pid"),
				locator.CSSAttr("div.product-tile", "data-pid"),
				locator.CSSAttr("[data-pid]", "data-pid"),
			}},
			Title:   locator.Chain{Target: "title", Candidates: css("div.pdp-link a.link", "a.link", "div.tile-body .pdp-link")},
			Price:   locator.Chain{Target: "price", Candidates: css("span.sales span.value", "span.sales", "div.price")},
			Image:   locator.Chain{Target: "image", Candidates: cssAttr("src", "img.tile-image", "div.image-container img")},
			Brand:   locator.Chain{Target: "brand", Candidates: css("div.product-tile-brand", "span.brand", "div.tile-brand")},
			Link:    locator.Chain{Target: "link", Candidates: cssAttr("href", "div.pdp-link a.link", "a.link", "div.image-container a")},
			BaseURL: base,
		},
	}
}
