package crawler

import (
	"context"
	"time"

	"github.com/dealmungchi/pharmacrawler/internal/extract"
	"github.com/dealmungchi/pharmacrawler/internal/locator"
	"github.com/dealmungchi/pharmacrawler/internal/monitor"
	"github.com/dealmungchi/pharmacrawler/internal/paginate"
)

// Crawler interface defines the contract for all site crawlers
type Crawler interface {
	// Crawl performs one run against the site and persists its results
	Crawl(ctx context.Context) (*RunResult, error)

	// GetName returns the crawler's name for logging and identification
	GetName() string

	// GetProvider returns the storefront name
	GetProvider() string
}

// Mode is the kind of run a crawler performs
type Mode string

const (
	// ModeAuto builds when no usable catalog exists and monitors otherwise
	ModeAuto Mode = "auto"
	// ModeBuild appends unseen products to the catalog
	ModeBuild Mode = "build"
	// ModeMonitor compares prices against the catalog
	ModeMonitor Mode = "monitor"
)

// SiteConfig contains everything a runner needs to know about one storefront
type SiteConfig struct {
	Name     string
	Provider string
	URL      string
	BaseURL  string

	Pagination paginate.Mode
	Consent    locator.Chain
	Control    locator.Chain
	Extract    extract.Config
}

// RunResult summarizes one crawl
type RunResult struct {
	RunID    string
	Site     string
	Mode     Mode
	Started  time.Time
	Duration time.Duration

	Stop       paginate.StopReason
	Pages      int
	Iterations int
	Reloads    int
	Extracted  int
	Dropped    int

	// Added counts products appended to the catalog
	Added       int
	CatalogSize int

	Events []monitor.ChangeEvent
	Report *monitor.Report
}
