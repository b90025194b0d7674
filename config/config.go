package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Known site names
const (
	SiteAhumada    = "ahumada"
	SiteCruzVerde  = "cruzverde"
	SiteSalcobrand = "salcobrand"
)

// Run modes
const (
	RunModeAuto    = "auto"
	RunModeBuild   = "build"
	RunModeMonitor = "monitor"
)

// Browser drivers
const (
	DriverRod    = "rod"
	DriverStatic = "static"
)

// Config represents the application configuration
type Config struct {
	// Redis configuration (empty address disables change fan-out)
	RedisAddr            string
	RedisDB              int
	RedisStream          string
	RedisStreamCount     int
	RedisStreamMaxLength int

	// Memcache configuration (empty address disables locking and back-off)
	MemcacheAddr string
	BlockTime    time.Duration

	// Scheduling; zero runs every site once and exits
	CrawlInterval time.Duration

	// Storage
	DataDir      string
	ErrorLogFile string

	// Scraping
	Sites              []string
	MaxIterations      int
	NavigationTimeout  time.Duration
	WaitTimeout        time.Duration
	SettleTimeout      time.Duration
	PollInterval       time.Duration
	LocatorsFile       string
	AppendNewInMonitor bool
	ReportTopN         int
	// RunMode is auto, build or monitor
	RunMode string

	// Browser
	BrowserDriver    string
	BrowserBin       string
	BrowserHeadless  bool
	// BrowserNoSandbox is needed when Chrome runs as root in a container
	BrowserNoSandbox bool

	// Listing URLs per site
	AhumadaURL    string
	CruzVerdeURL  string
	SalcobrandURL string

	// Environment
	Environment string
}

// LoadConfig loads the configuration from environment variables with defaults
func LoadConfig() *Config {
	redisDB, _ := strconv.Atoi(getEnv("REDIS_DB", "0"))
	redisStreamCount, _ := strconv.Atoi(getEnv("REDIS_STREAM_COUNT", "1"))
	redisStreamMaxLength, _ := strconv.Atoi(getEnv("REDIS_STREAM_MAX_LENGTH", "1000"))
	blockTime, _ := strconv.Atoi(getEnv("BLOCK_TIME_SECONDS", "600"))
	crawlInterval, _ := strconv.Atoi(getEnv("CRAWL_INTERVAL_SECONDS", "0"))
	maxIterations, _ := strconv.Atoi(getEnv("MAX_PAGINATION_ITERATIONS", "20"))
	navigationTimeout, _ := strconv.Atoi(getEnv("NAVIGATION_TIMEOUT_SECONDS", "30"))
	waitTimeout, _ := strconv.Atoi(getEnv("WAIT_TIMEOUT_SECONDS", "15"))
	settleTimeout, _ := strconv.Atoi(getEnv("SETTLE_TIMEOUT_SECONDS", "3"))
	pollInterval, _ := strconv.Atoi(getEnv("POLL_INTERVAL_MS", "250"))
	reportTopN, _ := strconv.Atoi(getEnv("REPORT_TOP_N", "10"))
	appendNew, _ := strconv.ParseBool(getEnv("APPEND_NEW_IN_MONITOR", "false"))
	noSandbox, _ := strconv.ParseBool(getEnv("BROWSER_NO_SANDBOX", "false"))
	headless, err := strconv.ParseBool(getEnv("BROWSER_HEADLESS", "true"))
	if err != nil {
		headless = true
	}

	return &Config{
		RedisAddr:            os.Getenv("REDIS_ADDR"),
		RedisDB:              redisDB,
		RedisStream:          getEnv("REDIS_STREAM", "price_changes"),
		RedisStreamCount:     redisStreamCount,
		RedisStreamMaxLength: redisStreamMaxLength,
		MemcacheAddr:         os.Getenv("MEMCACHE_ADDR"),
		BlockTime:            time.Duration(blockTime) * time.Second,
		CrawlInterval:        time.Duration(crawlInterval) * time.Second,
		DataDir:              getEnv("DATA_DIR", "./data"),
		ErrorLogFile:         getEnv("ERROR_LOG_FILE", "error.log"),
		Sites:                splitList(getEnv("SITES", strings.Join(KnownSites(), ","))),
		MaxIterations:        maxIterations,
		NavigationTimeout:    time.Duration(navigationTimeout) * time.Second,
		WaitTimeout:          time.Duration(waitTimeout) * time.Second,
		SettleTimeout:        time.Duration(settleTimeout) * time.Second,
		PollInterval:         time.Duration(pollInterval) * time.Millisecond,
		LocatorsFile:         os.Getenv("LOCATORS_FILE"),
		AppendNewInMonitor:   appendNew,
		ReportTopN:           reportTopN,
		RunMode:              strings.ToLower(getEnv("RUN_MODE", RunModeAuto)),
		BrowserDriver:        getEnv("BROWSER_DRIVER", DriverRod),
		BrowserBin:           os.Getenv("BROWSER_BIN"),
		BrowserHeadless:      headless,
		BrowserNoSandbox:     noSandbox,
		AhumadaURL:           getEnv("AHUMADA_URL", "https://www.farmaciasahumada.cl/medicamentos"),
		CruzVerdeURL:         getEnv("CRUZVERDE_URL", "https://www.cruzverde.cl/medicamentos/"),
		SalcobrandURL:        getEnv("SALCOBRAND_URL", "https://salcobrand.cl/t/medicamentos"),
		Environment:          getEnv("PHARMA_ENVIRONMENT", "development"),
	}
}

// KnownSites returns every site this build can scrape
func KnownSites() []string {
	return []string{SiteAhumada, SiteCruzVerde, SiteSalcobrand}
}

// Validate checks the configuration for values that would make a run unbounded or unusable
func (c *Config) Validate() error {
	if c.MaxIterations <= 0 {
		return fmt.Errorf("MAX_PAGINATION_ITERATIONS must be positive, got %d", c.MaxIterations)
	}
	if c.NavigationTimeout <= 0 || c.WaitTimeout <= 0 || c.SettleTimeout <= 0 {
		return fmt.Errorf("navigation, wait and settle timeouts must be positive")
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("POLL_INTERVAL_MS must be positive")
	}
	if c.CrawlInterval < 0 {
		return fmt.Errorf("CRAWL_INTERVAL_SECONDS must not be negative")
	}
	if c.DataDir == "" {
		return fmt.Errorf("DATA_DIR must not be empty")
	}
	if c.BrowserDriver != DriverRod && c.BrowserDriver != DriverStatic {
		return fmt.Errorf("unknown BROWSER_DRIVER %q", c.BrowserDriver)
	}
	switch c.RunMode {
	case RunModeAuto, RunModeBuild, RunModeMonitor:
	default:
		return fmt.Errorf("unknown RUN_MODE %q", c.RunMode)
	}
	if len(c.Sites) == 0 {
		return fmt.Errorf("SITES must name at least one site")
	}
	for _, site := range c.Sites {
		if c.SiteURL(site) == "" {
			return fmt.Errorf("unknown site %q", site)
		}
	}
	if c.RedisAddr != "" && c.RedisStreamCount <= 0 {
		return fmt.Errorf("REDIS_STREAM_COUNT must be positive")
	}
	return nil
}

// SiteURL returns the listing URL for a site, or "" for unknown sites
func (c *Config) SiteURL(site string) string {
	switch site {
	case SiteAhumada:
		return c.AhumadaURL
	case SiteCruzVerde:
		return c.CruzVerdeURL
	case SiteSalcobrand:
		return c.SalcobrandURL
	}
	return ""
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(strings.ToLower(part)); part != "" {
			out = append(out, part)
		}
	}
	return out
}
