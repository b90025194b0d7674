package crawler

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/dealmungchi/pharmacrawler/internal/locator"
	apperrors "github.com/dealmungchi/pharmacrawler/pkg/errors"
)

// SiteOverride replaces built-in locator chains of one site. A non-empty
// list replaces the candidates of the matching chain; text fallbacks stay.
type SiteOverride struct {
	Container []locator.Locator `yaml:"container"`
	Items     []locator.Locator `yaml:"items"`
	Control   []locator.Locator `yaml:"control"`
	Consent   []locator.Locator `yaml:"consent"`
	ID        []locator.Locator `yaml:"id"`
	Title     []locator.Locator `yaml:"title"`
	Price     []locator.Locator `yaml:"price"`
	Image     []locator.Locator `yaml:"image"`
	Brand     []locator.Locator `yaml:"brand"`
	Link      []locator.Locator `yaml:"link"`
}

// Overrides maps a site name to its locator overrides
type Overrides map[string]SiteOverride

// LoadOverrides reads a YAML locator override file, e.g.
//
//	ahumada:
//	  price:
//	    - css: span.sales span.value
//	  id:
//	    - attr: data-pid
func LoadOverrides(path string) (Overrides, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, apperrors.NewConfiguration("read locator overrides", err)
	}
	var overrides Overrides
	if err := yaml.Unmarshal(data, &overrides); err != nil {
		return nil, apperrors.NewConfiguration("parse locator overrides", err)
	}
	for site, o := range overrides {
		if err := o.validate(); err != nil {
			return nil, apperrors.NewConfiguration(fmt.Sprintf("locator overrides for %s", site), err)
		}
	}
	return overrides, nil
}

func (o SiteOverride) validate() error {
	for name, locs := range map[string][]locator.Locator{
		"container": o.Container, "items": o.Items, "control": o.Control,
		"consent": o.Consent, "id": o.ID, "title": o.Title, "price": o.Price,
		"image": o.Image, "brand": o.Brand, "link": o.Link,
	} {
		for i, loc := range locs {
			if loc.CSS != "" && loc.XPath != "" {
				return fmt.Errorf("%s[%d]: css and xpath are exclusive", name, i)
			}
		}
	}
	for i, loc := range append(append([]locator.Locator{}, o.Container...), o.Items...) {
		if loc.CSS == "" && loc.XPath == "" {
			return fmt.Errorf("container/items[%d]: css or xpath required", i)
		}
	}
	return nil
}

// Apply patches site with the override
func (o SiteOverride) Apply(site *SiteConfig) {
	replace(&site.Extract.Container, o.Container)
	replace(&site.Extract.Items, o.Items)
	replace(&site.Control, o.Control)
	replace(&site.Consent, o.Consent)
	replace(&site.Extract.ID, o.ID)
	replace(&site.Extract.Title, o.Title)
	replace(&site.Extract.Price, o.Price)
	replace(&site.Extract.Image, o.Image)
	replace(&site.Extract.Brand, o.Brand)
	replace(&site.Extract.Link, o.Link)
}

func replace(chain *locator.Chain, candidates []locator.Locator) {
	if len(candidates) > 0 {
		chain.Candidates = candidates
	}
}
