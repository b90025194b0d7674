package extract

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/dealmungchi/pharmacrawler/internal/browser"
	"github.com/dealmungchi/pharmacrawler/internal/catalog"
	"github.com/dealmungchi/pharmacrawler/internal/locator"
	"github.com/dealmungchi/pharmacrawler/logger"
	apperrors "github.com/dealmungchi/pharmacrawler/pkg/errors"
)

// IDExtractorFunc derives a product identifier from its link
type IDExtractorFunc func(link string) (string, error)

// Config describes where a site keeps its listing and product fields
type Config struct {
	Site string

	// Container is the listing grid, primary locator first
	Container locator.Chain
	// Items are the product tiles within the container
	Items locator.Chain
	// EmptyMarker is shown by the site when a listing has no results
	EmptyMarker locator.Chain

	ID    locator.Chain
	Title locator.Chain
	Price locator.Chain
	Image locator.Chain
	Brand locator.Chain
	Link  locator.Chain

	// IDFromLink is used when the ID chain finds nothing
	IDFromLink IDExtractorFunc
	// BaseURL resolves relative image and product links
	BaseURL string
	// NormalizeTitles strips diacritics from titles
	NormalizeTitles bool
}

// Outcome classifies a page extraction
type Outcome string

const (
	OutcomeOK             Outcome = "ok"
	OutcomeEndOfResults   Outcome = "end_of_results"
	OutcomeSelectorBroken Outcome = "selector_broken"
)

// Item is the extraction result of one tile; Err marks it for removal
type Item struct {
	Index   int
	Product catalog.Product
	Err     error
}

// Batch is the extraction result of one rendered listing
type Batch struct {
	Items    []Item
	Products []catalog.Product
	Outcome  Outcome
	Dropped  int
	// Err names the container chain when the outcome is selector_broken
	Err error
}

// Rendered returns the number of tiles seen on the page
func (b Batch) Rendered() int {
	return len(b.Items)
}

// Extractor turns listing tiles into products
type Extractor struct {
	cfg      Config
	resolver *locator.Resolver
	base     *url.URL
	log      *logger.Logger
}

// New creates an extractor for cfg
func New(cfg Config, resolver *locator.Resolver, log *logger.Logger) *Extractor {
	if log == nil {
		log = logger.Nop()
	}
	if resolver == nil {
		resolver = locator.NewResolver(log)
	}
	e := &Extractor{cfg: cfg, resolver: resolver, log: log}
	if cfg.BaseURL != "" {
		if base, err := url.Parse(cfg.BaseURL); err == nil {
			e.base = base
		}
	}
	return e
}

// ReadySelectors returns the CSS selectors of the container chain, in order,
// for waits that race the primary container against the alternatives.
func (e *Extractor) ReadySelectors() []string {
	var selectors []string
	for _, loc := range e.cfg.Container.Candidates {
		if loc.CSS != "" {
			selectors = append(selectors, loc.CSS)
		}
	}
	return selectors
}

// Tiles locates the container and returns the product tiles within it.
// found is false when no container could be located.
func (e *Extractor) Tiles(ctx context.Context, scope browser.Scope) (tiles []browser.Element, found bool) {
	containers, _, ok := e.resolver.ResolveAll(ctx, scope, e.cfg.Container)
	if !ok {
		return nil, false
	}
	tiles, _, _ = e.resolver.ResolveAll(ctx, containers[0], e.cfg.Items)
	return tiles, true
}

// ExtractPage extracts every tile currently rendered in scope. A missing
// container yields an empty batch whose outcome tells whether the site
// reported no results or the selectors no longer match.
func (e *Extractor) ExtractPage(ctx context.Context, scope browser.Scope) Batch {
	tiles, found := e.Tiles(ctx, scope)
	if !found {
		if !e.cfg.EmptyMarker.Empty() {
			if _, empty := e.resolver.Resolve(ctx, scope, e.cfg.EmptyMarker); empty {
				return Batch{Outcome: OutcomeEndOfResults}
			}
		}
		target := e.cfg.Container.Target
		if target == "" {
			target = "listing container"
		}
		return Batch{Outcome: OutcomeSelectorBroken, Err: apperrors.NewLocatorNotFound(e.cfg.Site, target)}
	}

	batch := Batch{Outcome: OutcomeOK}
	if len(tiles) == 0 {
		batch.Outcome = OutcomeEndOfResults
	}
	for i, tile := range tiles {
		item := e.ExtractItem(ctx, tile)
		item.Index = i
		batch.Items = append(batch.Items, item)
		if item.Err != nil {
			batch.Dropped++
			e.log.Debug().Err(item.Err).Int("index", i).Msg("Dropped listing item")
			continue
		}
		batch.Products = append(batch.Products, item.Product)
	}
	return batch
}

// ExtractItem extracts one tile. Missing fields become sentinel values; only
// structural failures produce an error-tagged item.
func (e *Extractor) ExtractItem(ctx context.Context, tile browser.Element) (item Item) {
	defer func() {
		if r := recover(); r != nil {
			item = Item{Err: apperrors.NewExtraction(e.cfg.Site, "item extraction panicked", fmt.Errorf("%v", r))}
		}
	}()

	if err := ctx.Err(); err != nil {
		return Item{Err: apperrors.NewExtraction(e.cfg.Site, "extraction cancelled", err)}
	}

	title := e.field(ctx, tile, e.cfg.Title, catalog.NoTitle)
	if title != catalog.NoTitle {
		if e.cfg.NormalizeTitles {
			title = NormalizeTitle(title)
		} else {
			title = CollapseSpace(title)
		}
	}

	price := e.field(ctx, tile, e.cfg.Price, catalog.NoPrice)
	if price != catalog.NoPrice {
		price = CollapseSpace(price)
	}

	link := e.field(ctx, tile, e.cfg.Link, catalog.NoLink)
	if link != catalog.NoLink {
		link = e.absolute(link)
	}

	image := e.field(ctx, tile, e.cfg.Image, catalog.NoImage)
	if strings.HasPrefix(image, "data:") {
		image = catalog.NoImage
	} else if image != catalog.NoImage {
		image = e.absolute(image)
	}

	id := e.field(ctx, tile, e.cfg.ID, catalog.NoID)
	if id == catalog.NoID && link != catalog.NoLink && e.cfg.IDFromLink != nil {
		if derived, err := e.cfg.IDFromLink(link); err == nil && strings.TrimSpace(derived) != "" {
			id = strings.TrimSpace(derived)
		}
	}

	if id == catalog.NoID && title == catalog.NoTitle && price == catalog.NoPrice {
		return Item{Err: apperrors.NewExtraction(e.cfg.Site, "tile has no identifier, title or price", nil)}
	}

	return Item{Product: catalog.Product{
		ID:    id,
		Title: title,
		Price: price,
		Image: image,
		Brand: e.field(ctx, tile, e.cfg.Brand, catalog.NoBrand),
		Link:  link,
	}}
}

func (e *Extractor) field(ctx context.Context, tile browser.Element, chain locator.Chain, sentinel string) string {
	if chain.Empty() {
		return sentinel
	}
	value, ok := e.resolver.Value(ctx, tile, chain)
	if !ok {
		return sentinel
	}
	return value
}

func (e *Extractor) absolute(raw string) string {
	if e.base == nil {
		return raw
	}
	ref, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	return e.base.ResolveReference(ref).String()
}
