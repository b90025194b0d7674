// Package paginate drives a listing through its "load more" or page-turn
// controls and hands every extracted batch to a callback.
package paginate

import (
	"context"
	"strings"
	"time"

	"github.com/dealmungchi/pharmacrawler/internal/browser"
	"github.com/dealmungchi/pharmacrawler/internal/catalog"
	"github.com/dealmungchi/pharmacrawler/internal/extract"
	"github.com/dealmungchi/pharmacrawler/internal/locator"
	"github.com/dealmungchi/pharmacrawler/logger"
	apperrors "github.com/dealmungchi/pharmacrawler/pkg/errors"
)

// Mode selects the pagination variant
type Mode string

const (
	// ModeLoadMore appends tiles to the same listing on every click
	ModeLoadMore Mode = "load_more"
	// ModePageTurn replaces the listing with the next page on every click
	ModePageTurn Mode = "page_turn"
)

// DefaultMaxIterations bounds control clicks when Options leaves it unset
const DefaultMaxIterations = 20

// StopReason tells why a pagination run ended
type StopReason string

const (
	StopNoControl      StopReason = "no_control"
	StopMaxIterations  StopReason = "max_iterations"
	StopEndOfResults   StopReason = "end_of_results"
	StopSelectorBroken StopReason = "selector_broken"
	StopCancelled      StopReason = "cancelled"
)

// Options configures a Controller
type Options struct {
	Mode Mode
	// MaxIterations is the maximum number of control clicks
	MaxIterations int
	Control       locator.Chain
	// ReadySelectors are raced to decide the listing has rendered
	ReadySelectors []string

	WaitTimeout   time.Duration
	SettleTimeout time.Duration
	PollInterval  time.Duration
}

func (o Options) withDefaults() Options {
	if o.MaxIterations <= 0 {
		o.MaxIterations = DefaultMaxIterations
	}
	if o.WaitTimeout <= 0 {
		o.WaitTimeout = 15 * time.Second
	}
	if o.SettleTimeout <= 0 {
		o.SettleTimeout = 3 * time.Second
	}
	if o.PollInterval <= 0 {
		o.PollInterval = 250 * time.Millisecond
	}
	return o
}

// BatchFunc receives the products first seen on one page or load. A
// returned error stops pagination and is returned by Run.
type BatchFunc func(ctx context.Context, page int, products []catalog.Product) error

// Result summarizes a pagination run
type Result struct {
	Products   []catalog.Product
	Iterations int
	Pages      int
	Reloads    int
	Dropped    int
	Stop       StopReason
}

// Controller paginates one listing with one extractor
type Controller struct {
	opts      Options
	extractor *extract.Extractor
	resolver  *locator.Resolver
	log       *logger.Logger
}

// New creates a controller. When opts has no ReadySelectors the extractor's
// container selectors are used.
func New(opts Options, extractor *extract.Extractor, resolver *locator.Resolver, log *logger.Logger) *Controller {
	if log == nil {
		log = logger.Nop()
	}
	if resolver == nil {
		resolver = locator.NewResolver(log)
	}
	opts = opts.withDefaults()
	if len(opts.ReadySelectors) == 0 {
		opts.ReadySelectors = extractor.ReadySelectors()
	}
	return &Controller{opts: opts, extractor: extractor, resolver: resolver, log: log}
}

// Run paginates page, which must already be navigated to the listing. It
// returns the partial result together with the error when ctx is cancelled
// or fn fails.
func (c *Controller) Run(ctx context.Context, page browser.Page, fn BatchFunc) (Result, error) {
	if c.opts.Mode == ModeLoadMore {
		return c.runLoadMore(ctx, page, fn)
	}
	return c.runPageTurn(ctx, page, fn)
}

type state int

const (
	stateIdle state = iota
	stateLoading
	stateDegraded
	stateExtracting
	stateDone
)

func (s state) String() string {
	switch s {
	case stateIdle:
		return "idle"
	case stateLoading:
		return "loading"
	case stateDegraded:
		return "degraded"
	case stateExtracting:
		return "extracting"
	default:
		return "done"
	}
}

func (c *Controller) runPageTurn(ctx context.Context, page browser.Page, fn BatchFunc) (Result, error) {
	var (
		res      Result
		current  state = stateIdle
		pageNum  int
		reloaded bool
		err      error
	)

	for current != stateDone {
		if ctxErr := ctx.Err(); ctxErr != nil {
			res.Stop = StopCancelled
			return res, ctxErr
		}
		c.log.Debug().Stringer("state", current).Int("page", pageNum).Msg("Pagination state")

		switch current {
		case stateIdle:
			pageNum = 1
			current = stateLoading

		case stateLoading:
			if waitErr := c.waitReady(ctx, page); waitErr != nil {
				if ctx.Err() != nil {
					continue
				}
				if reloaded {
					c.log.Warn().Err(waitErr).Int("page", pageNum).Msg("Listing still not ready after reload, extracting what is present")
					current = stateExtracting
					continue
				}
				current = stateDegraded
				continue
			}
			current = stateExtracting

		case stateDegraded:
			c.log.Warn().Int("page", pageNum).Msg("Listing not ready, reloading once")
			reloaded = true
			res.Reloads++
			if reloadErr := page.Reload(ctx); reloadErr != nil {
				c.log.Warn().Err(reloadErr).Int("page", pageNum).Msg("Reload failed")
			}
			current = stateLoading

		case stateExtracting:
			batch := c.extractor.ExtractPage(ctx, page)
			res.Pages++
			res.Dropped += batch.Dropped
			if stop, ok := stopFor(batch.Outcome); ok {
				if batch.Err != nil {
					c.log.Warn().Err(batch.Err).Int("page", pageNum).Msg("Listing container not found")
				}
				res.Stop = stop
				current = stateDone
				continue
			}
			if err = c.emit(ctx, &res, pageNum, batch.Products, fn); err != nil {
				return res, err
			}

			if res.Iterations >= c.opts.MaxIterations {
				res.Stop = StopMaxIterations
				current = stateDone
				continue
			}
			before := c.signature(ctx, page)
			if !c.clickControl(ctx, page) {
				res.Stop = StopNoControl
				current = stateDone
				continue
			}
			res.Iterations++
			c.waitReplaced(ctx, page, before)
			pageNum++
			reloaded = false
			current = stateLoading
		}
	}

	c.log.Info().
		Int("pages", res.Pages).
		Int("iterations", res.Iterations).
		Int("products", len(res.Products)).
		Str("stop", string(res.Stop)).
		Msg("Pagination finished")
	return res, nil
}

func (c *Controller) runLoadMore(ctx context.Context, page browser.Page, fn BatchFunc) (Result, error) {
	var res Result

	if err := c.waitReady(ctx, page); err != nil {
		if ctx.Err() != nil {
			res.Stop = StopCancelled
			return res, ctx.Err()
		}
		c.log.Warn().Err(err).Msg("Listing not ready, reloading once")
		res.Reloads++
		if reloadErr := page.Reload(ctx); reloadErr != nil {
			c.log.Warn().Err(reloadErr).Msg("Reload failed")
		}
		if err := c.waitReady(ctx, page); err != nil && ctx.Err() == nil {
			c.log.Warn().Err(err).Msg("Listing still not ready after reload, extracting what is present")
		}
	}

	seen := make(map[string]struct{})
	rendered := 0

	for {
		if err := ctx.Err(); err != nil {
			res.Stop = StopCancelled
			return res, err
		}

		batch := c.extractor.ExtractPage(ctx, page)
		res.Pages++
		if stop, ok := stopFor(batch.Outcome); ok && rendered == 0 {
			if batch.Err != nil {
				c.log.Warn().Err(batch.Err).Msg("Listing container not found")
			}
			res.Stop = stop
			break
		}

		fresh, dropped := diff(batch, rendered, seen)
		res.Dropped += dropped
		if batch.Rendered() > rendered {
			rendered = batch.Rendered()
		}
		if err := c.emit(ctx, &res, res.Pages, fresh, fn); err != nil {
			return res, err
		}

		if res.Iterations >= c.opts.MaxIterations {
			res.Stop = StopMaxIterations
			break
		}
		if err := page.ScrollToBottom(ctx); err != nil {
			c.log.Debug().Err(err).Msg("Scroll failed")
		}
		if !c.clickControl(ctx, page) {
			res.Stop = StopNoControl
			break
		}
		res.Iterations++

		if _, err := browser.WaitForCount(ctx, c.tileCount(page), rendered, c.opts.SettleTimeout, c.opts.PollInterval); err != nil && ctx.Err() == nil {
			c.log.Debug().Err(err).Int("iteration", res.Iterations).Msg("Listing did not grow")
		}
	}

	c.log.Info().
		Int("loads", res.Pages).
		Int("iterations", res.Iterations).
		Int("products", len(res.Products)).
		Str("stop", string(res.Stop)).
		Msg("Pagination finished")
	return res, nil
}

// diff returns the items of batch not emitted before: identified items
// whose identifier is new, and unidentified items past the previously
// rendered count.
func diff(batch extract.Batch, rendered int, seen map[string]struct{}) ([]catalog.Product, int) {
	var (
		fresh   []catalog.Product
		dropped int
	)
	for _, item := range batch.Items {
		if item.Err != nil {
			if item.Index >= rendered {
				dropped++
			}
			continue
		}
		p := item.Product
		if p.HasID() {
			if _, ok := seen[p.ID]; ok {
				continue
			}
			seen[p.ID] = struct{}{}
			fresh = append(fresh, p)
			continue
		}
		if item.Index >= rendered {
			fresh = append(fresh, p)
		}
	}
	return fresh, dropped
}

func (c *Controller) emit(ctx context.Context, res *Result, page int, products []catalog.Product, fn BatchFunc) error {
	if len(products) == 0 {
		return nil
	}
	res.Products = append(res.Products, products...)
	if fn == nil {
		return nil
	}
	return fn(ctx, page, products)
}

// waitReady races the container selectors until one renders
func (c *Controller) waitReady(ctx context.Context, page browser.Page) error {
	if len(c.opts.ReadySelectors) == 0 {
		return nil
	}
	matched, err := browser.WaitForAny(ctx, page, c.opts.ReadySelectors, c.opts.WaitTimeout, c.opts.PollInterval)
	if err == nil {
		c.log.Debug().Str("selector", matched).Msg("Listing ready")
	}
	return err
}

// clickControl resolves the pagination control and clicks it unless it is disabled
func (c *Controller) clickControl(ctx context.Context, page browser.Page) bool {
	match, ok := c.resolver.Resolve(ctx, page, c.opts.Control)
	if !ok {
		return false
	}
	if Disabled(ctx, match.Element) {
		c.log.Debug().Str("locator", match.Locator.String()).Msg("Pagination control is disabled")
		return false
	}
	if err := match.Element.Click(ctx); err != nil {
		c.log.Debug().Err(err).Str("locator", match.Locator.String()).Msg("Pagination control click failed")
		return false
	}
	return true
}

// Disabled reports whether a control is rendered in a disabled state
func Disabled(ctx context.Context, el browser.Element) bool {
	if _, ok, err := el.Attribute(ctx, "disabled"); err == nil && ok {
		return true
	}
	if v, ok, err := el.Attribute(ctx, "aria-disabled"); err == nil && ok && strings.EqualFold(strings.TrimSpace(v), "true") {
		return true
	}
	if v, ok, err := el.Attribute(ctx, "class"); err == nil && ok {
		for _, class := range strings.Fields(v) {
			if strings.Contains(strings.ToLower(class), "disabled") {
				return true
			}
		}
	}
	return false
}

// signature identifies the rendered page so a page turn can be detected
func (c *Controller) signature(ctx context.Context, page browser.Page) string {
	sig := page.URL()
	tiles, _ := c.extractor.Tiles(ctx, page)
	if len(tiles) > 0 {
		if text, err := tiles[0].Text(ctx); err == nil {
			sig += "|" + strings.Join(strings.Fields(text), " ")
		}
	}
	return sig
}

// waitReplaced waits for the listing to change after a page turn. A
// timeout is soft; the following readiness wait decides what happens next.
func (c *Controller) waitReplaced(ctx context.Context, page browser.Page, before string) {
	err := browser.WaitUntil(ctx, "waiting for next page", c.opts.SettleTimeout, c.opts.PollInterval, func(ctx context.Context) bool {
		return c.signature(ctx, page) != before
	})
	if err != nil && apperrors.IsType(err, apperrors.ErrorTypeWaitTimeout) {
		c.log.Debug().Msg("Listing unchanged after page turn")
	}
}

func (c *Controller) tileCount(page browser.Page) func(ctx context.Context) (int, error) {
	return func(ctx context.Context) (int, error) {
		tiles, _ := c.extractor.Tiles(ctx, page)
		return len(tiles), nil
	}
}

func stopFor(outcome extract.Outcome) (StopReason, bool) {
	switch outcome {
	case extract.OutcomeEndOfResults:
		return StopEndOfResults, true
	case extract.OutcomeSelectorBroken:
		return StopSelectorBroken, true
	}
	return "", false
}
