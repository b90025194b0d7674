package crawler

import (
	"io"
	"time"

	"github.com/dealmungchi/pharmacrawler/config"
	"github.com/dealmungchi/pharmacrawler/internal/browser"
	"github.com/dealmungchi/pharmacrawler/internal/catalog"
	"github.com/dealmungchi/pharmacrawler/logger"
	apperrors "github.com/dealmungchi/pharmacrawler/pkg/errors"
	"github.com/dealmungchi/pharmacrawler/services/cache"
	"github.com/dealmungchi/pharmacrawler/services/publisher"
)

// Dependencies are the services shared by every crawler
type Dependencies struct {
	// Cache may be nil to disable run locks and back-off
	Cache cache.CacheService
	// Publisher may be nil to disable change fan-out
	Publisher publisher.Publisher
	Sessions  browser.SessionFactory
	// Out receives run reports; nil keeps stdout
	Out io.Writer
}

// Sites returns the built-in definition of every known site
func Sites(cfg *config.Config) map[string]SiteConfig {
	return map[string]SiteConfig{
		config.SiteAhumada:    ahumadaSite(cfg),
		config.SiteCruzVerde:  cruzVerdeSite(cfg),
		config.SiteSalcobrand: salcobrandSite(cfg),
	}
}

// CreateCrawlers creates a crawler for every configured site, applying the
// locator override file when one is configured
func CreateCrawlers(cfg *config.Config, deps Dependencies) ([]Crawler, error) {
	if deps.Sessions == nil {
		return nil, apperrors.NewConfiguration("no browser session factory", nil)
	}

	var overrides Overrides
	if cfg.LocatorsFile != "" {
		var err error
		if overrides, err = LoadOverrides(cfg.LocatorsFile); err != nil {
			return nil, err
		}
	}

	sites := Sites(cfg)
	opts := RunOptions{
		Mode:              Mode(cfg.RunMode),
		MaxIterations:     cfg.MaxIterations,
		NavigationTimeout: cfg.NavigationTimeout,
		WaitTimeout:       cfg.WaitTimeout,
		SettleTimeout:     cfg.SettleTimeout,
		PollInterval:      cfg.PollInterval,
		AppendNew:         cfg.AppendNewInMonitor,
		ReportTopN:        cfg.ReportTopN,
	}
	// A run never takes longer than navigation plus every wait of every
	// iteration; the lock outlives that so a crashed run frees it eventually.
	lockTTL := cfg.NavigationTimeout + time.Duration(cfg.MaxIterations+1)*(2*cfg.WaitTimeout+2*cfg.SettleTimeout)

	var crawlers []Crawler
	for _, name := range cfg.Sites {
		site, ok := sites[name]
		if !ok {
			return nil, apperrors.NewConfiguration("unknown site "+name, nil)
		}
		if o, ok := overrides[name]; ok {
			o.Apply(&site)
			logger.ForCrawler(name).Info().Str("file", cfg.LocatorsFile).Msg("Applied locator overrides")
		}

		runner := NewRunner(
			site,
			opts,
			catalog.NewStore(cfg.DataDir, name),
			cache.NewSiteGuard(deps.Cache, name, lockTTL, cfg.BlockTime),
			deps.Sessions,
			deps.Publisher,
		)
		if deps.Out != nil {
			runner.WithOutput(deps.Out)
		}
		crawlers = append(crawlers, runner)

		logger.ForCrawler(name).Debug().
			Str("url", site.URL).
			Str("pagination", string(site.Pagination)).
			Msg("Crawler created")
	}

	return crawlers, nil
}
