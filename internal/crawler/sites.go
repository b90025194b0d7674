package crawler

import (
	"github.com/dealmungchi/pharmacrawler/internal/locator"
)

// consentChain is shared by the storefronts; all of them ship OneTrust or a
// home-made banner with a Spanish accept button.
func consentChain() locator.Chain {
	return locator.Chain{
		Target: "accept cookies",
		Candidates: []locator.Locator{
			locator.CSS("#onetrust-accept-btn-handler"),
			locator.CSS("button#accept-cookies"),
			locator.CSS("button.cookie-accept"),
			{XPath: "//button[contains(@class, 'accept')]"},
		},
		Text: &locator.TextFallback{
			Phrases: []string{"aceptar todas", "aceptar", "acepto", "entendido"},
		},
		Visible: true,
	}
}

func css(selectors ...string) []locator.Locator {
	out := make([]locator.Locator, 0, len(selectors))
	for _, s := range selectors {
		out = append(out, locator.CSS(s))
	}
	return out
}

func cssAttr(attr string, selectors ...string) []locator.Locator {
	out := make([]locator.Locator, 0, len(selectors))
	for _, s := range selectors {
		out = append(out, locator.CSSAttr(s, attr))
	}
	return out
}
