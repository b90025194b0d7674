package crawler

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/dealmungchi/pharmacrawler/internal/browser"
	"github.com/dealmungchi/pharmacrawler/internal/catalog"
	"github.com/dealmungchi/pharmacrawler/internal/extract"
	"github.com/dealmungchi/pharmacrawler/internal/locator"
	"github.com/dealmungchi/pharmacrawler/internal/monitor"
	"github.com/dealmungchi/pharmacrawler/internal/paginate"
	"github.com/dealmungchi/pharmacrawler/logger"
	apperrors "github.com/dealmungchi/pharmacrawler/pkg/errors"
	"github.com/dealmungchi/pharmacrawler/services/cache"
	"github.com/dealmungchi/pharmacrawler/services/publisher"
)

// RunOptions bounds and tunes a run
type RunOptions struct {
	Mode              Mode
	MaxIterations     int
	NavigationTimeout time.Duration
	WaitTimeout       time.Duration
	SettleTimeout     time.Duration
	PollInterval      time.Duration
	AppendNew         bool
	ReportTopN        int
}

// Runner crawls one site: it opens a session, dismisses the consent
// banner, paginates the listing and builds or monitors the catalog.
type Runner struct {
	site      SiteConfig
	opts      RunOptions
	store     *catalog.Store
	guard     *cache.SiteGuard
	sessions  browser.SessionFactory
	publisher publisher.Publisher
	out       io.Writer
	now       func() time.Time
}

// NewRunner creates a runner. pub may be nil to disable change fan-out.
func NewRunner(site SiteConfig, opts RunOptions, store *catalog.Store, guard *cache.SiteGuard, sessions browser.SessionFactory, pub publisher.Publisher) *Runner {
	if opts.Mode == "" {
		opts.Mode = ModeAuto
	}
	if opts.NavigationTimeout <= 0 {
		opts.NavigationTimeout = 30 * time.Second
	}
	if opts.SettleTimeout <= 0 {
		opts.SettleTimeout = 3 * time.Second
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = 250 * time.Millisecond
	}
	if guard == nil {
		guard = cache.NewSiteGuard(nil, site.Name, 0, 0)
	}
	return &Runner{
		site:      site,
		opts:      opts,
		store:     store,
		guard:     guard,
		sessions:  sessions,
		publisher: pub,
		out:       os.Stdout,
		now:       time.Now,
	}
}

// WithOutput redirects the run report
func (r *Runner) WithOutput(w io.Writer) *Runner {
	r.out = w
	return r
}

// WithClock replaces the clock used for timestamps
func (r *Runner) WithClock(now func() time.Time) *Runner {
	r.now = now
	r.store.WithClock(now)
	return r
}

// GetName returns the site name
func (r *Runner) GetName() string {
	return r.site.Name
}

// GetProvider returns the storefront name
func (r *Runner) GetProvider() string {
	return r.site.Provider
}

// Crawl performs one run. Only session-level failures are returned; the
// browser session is closed on every path. A panic during the run is
// returned as an extraction error once the session and lock are released.
func (r *Runner) Crawl(ctx context.Context) (result *RunResult, err error) {
	runID := uuid.NewString()
	log := logger.ForRun(r.site.Name, runID)
	res := &RunResult{RunID: runID, Site: r.site.Name, Started: r.now()}
	defer func() { res.Duration = r.now().Sub(res.Started) }()
	defer func() {
		if p := recover(); p != nil {
			log.Error().Interface("panic", p).Msg("Run panicked")
			result, err = nil, apperrors.NewExtraction(r.site.Name, fmt.Sprintf("run panicked: %v", p), nil)
		}
	}()

	if err := r.guard.Blocked(); err != nil {
		return nil, err
	}
	release, err := r.guard.Acquire(runID)
	if err != nil {
		return nil, err
	}
	defer release()

	stored, state := r.store.Load()
	res.Mode = r.mode(state)
	log.Info().Str("mode", string(res.Mode)).Int("stored", stored.Len()).Str("url", r.site.URL).Msg("Starting run")

	session, err := r.sessions(ctx)
	if err != nil {
		return nil, apperrors.NewNavigation(r.site.Name, "failed to open browser session", err)
	}
	defer func() {
		if err := session.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to close browser session")
		}
	}()

	page, err := session.NewPage(ctx)
	if err != nil {
		return nil, apperrors.NewNavigation(r.site.Name, "failed to open page", err)
	}
	defer page.Close()

	navCtx, cancel := context.WithTimeout(ctx, r.opts.NavigationTimeout)
	err = page.Navigate(navCtx, r.site.URL)
	cancel()
	if err != nil {
		if ctx.Err() == nil {
			r.guard.Block()
		}
		return nil, apperrors.NewNavigation(r.site.Name, "failed to open "+r.site.URL, err)
	}

	resolver := locator.NewResolver(log)
	r.dismissConsent(ctx, page, resolver, log)

	extractor := extract.New(r.site.Extract, resolver, log)
	controller := paginate.New(paginate.Options{
		Mode:          r.site.Pagination,
		MaxIterations: r.opts.MaxIterations,
		Control:       r.site.Control,
		WaitTimeout:   r.opts.WaitTimeout,
		SettleTimeout: r.opts.SettleTimeout,
		PollInterval:  r.opts.PollInterval,
	}, extractor, resolver, log)

	if res.Mode == ModeBuild {
		err = r.build(ctx, page, controller, stored, res, log)
	} else {
		err = r.monitor(ctx, page, controller, stored, res, log)
	}
	return res, err
}

func (r *Runner) mode(state catalog.LoadState) Mode {
	switch r.opts.Mode {
	case ModeBuild:
		return ModeBuild
	case ModeMonitor:
		if !state.FirstBuild() {
			return ModeMonitor
		}
	}
	if state.FirstBuild() {
		return ModeBuild
	}
	return ModeMonitor
}

// dismissConsent clicks the cookie banner away when there is one
func (r *Runner) dismissConsent(ctx context.Context, page browser.Page, resolver *locator.Resolver, log *logger.Logger) {
	if r.site.Consent.Empty() || !resolver.Click(ctx, page, r.site.Consent) {
		log.Debug().Msg("No consent banner dismissed")
		return
	}
	err := browser.WaitUntil(ctx, "consent banner to close", r.opts.SettleTimeout, r.opts.PollInterval, func(ctx context.Context) bool {
		_, visible := resolver.Resolve(ctx, page, r.site.Consent)
		return !visible
	})
	if err != nil {
		log.Debug().Err(err).Msg("Consent banner still visible")
	}
}

// build appends every unseen product, checkpointing after each batch
func (r *Runner) build(ctx context.Context, page browser.Page, controller *paginate.Controller, stored *catalog.Catalog, res *RunResult, log *logger.Logger) error {
	known := stored.Identifiers()
	history := r.store.LoadHistory()

	pres, err := controller.Run(ctx, page, func(ctx context.Context, n int, products []catalog.Product) error {
		fresh := catalog.FilterNew(products, known)
		if len(fresh) == 0 {
			return nil
		}
		if err := r.store.Append(stored, fresh); err != nil {
			return err
		}
		now := r.now()
		for _, p := range fresh {
			history.RecordInitial(p, now)
		}
		if err := r.store.SaveHistory(history); err != nil {
			return err
		}
		res.Added += len(fresh)
		log.Debug().Int("page", n).Int("new", len(fresh)).Int("catalog", stored.Len()).Msg("Checkpoint saved")
		return nil
	})
	res.fill(pres)
	res.CatalogSize = stored.Len()

	if err != nil {
		log.Warn().Err(err).Int("added", res.Added).Msg("Build interrupted, completed checkpoints kept")
		return err
	}
	log.Info().
		Int("added", res.Added).
		Int("catalog", res.CatalogSize).
		Str("stop", string(res.Stop)).
		Msg("Build finished")
	fmt.Fprintf(r.out, "Catalog build: %s: %d new products, %d in catalog (%s)\n", r.site.Name, res.Added, res.CatalogSize, res.Stop)
	return nil
}

// monitor compares the whole current listing against the catalog and
// persists once at the end
func (r *Runner) monitor(ctx context.Context, page browser.Page, controller *paginate.Controller, stored *catalog.Catalog, res *RunResult, log *logger.Logger) error {
	pres, err := controller.Run(ctx, page, nil)
	res.fill(pres)
	res.CatalogSize = stored.Len()
	if err != nil {
		log.Warn().Err(err).Msg("Monitoring pass interrupted, nothing persisted")
		return err
	}
	if len(pres.Products) == 0 {
		log.Warn().Str("stop", string(pres.Stop)).Msg("Listing yielded no products, leaving catalog untouched")
		return nil
	}

	history := r.store.LoadHistory()
	now := r.now()
	cmp := monitor.Compare(stored.Products, pres.Products, history, now, monitor.Options{
		Site:      r.site.Name,
		AppendNew: r.opts.AppendNew,
	})
	stored.Products = cmp.Products

	if err := r.store.Save(stored); err != nil {
		return err
	}
	if err := r.store.SaveHistory(history); err != nil {
		return err
	}
	res.Added = cmp.Appended
	res.CatalogSize = stored.Len()
	res.Events = cmp.Events

	report := monitor.BuildReport(r.site.Name, cmp, history, now, r.opts.ReportTopN)
	res.Report = &report
	if err := report.Write(r.out); err != nil {
		log.Warn().Err(err).Msg("Failed to write report")
	}
	r.publish(cmp.Events, log)

	log.Info().
		Int("changes", len(cmp.Events)).
		Int("not_found", cmp.NotFound).
		Int("new", len(cmp.New)).
		Msg("Monitoring finished")
	return nil
}

func (r *Runner) publish(events []monitor.ChangeEvent, log *logger.Logger) {
	if r.publisher == nil {
		return
	}
	for _, e := range events {
		data, err := json.Marshal(e)
		if err != nil {
			log.Error().Err(err).Str("product_id", e.ProductID).Msg("Failed to encode change event")
			continue
		}
		if err := r.publisher.Publish(r.site.Name, data); err != nil {
			log.Error().Err(err).Str("product_id", e.ProductID).Msg("Failed to publish change event")
		}
	}
}

func (res *RunResult) fill(p paginate.Result) {
	res.Stop = p.Stop
	res.Pages = p.Pages
	res.Iterations = p.Iterations
	res.Reloads = p.Reloads
	res.Extracted = len(p.Products)
	res.Dropped = p.Dropped
}
