package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/dealmungchi/pharmacrawler/config"
	"github.com/dealmungchi/pharmacrawler/helpers"
	"github.com/dealmungchi/pharmacrawler/internal/browser"
	"github.com/dealmungchi/pharmacrawler/internal/crawler"
	"github.com/dealmungchi/pharmacrawler/logger"
	"github.com/dealmungchi/pharmacrawler/services/cache"
	"github.com/dealmungchi/pharmacrawler/services/publisher"
	"github.com/dealmungchi/pharmacrawler/services/worker"

	"github.com/joho/godotenv"
)

func main() {
	// Load environment variables
	godotenv.Load()

	// Initialize logger first
	logger.Init()
	log := logger.Default

	// Load and validate configuration
	cfg := config.LoadConfig()
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	log.Info().
		Str("environment", cfg.Environment).
		Strs("sites", cfg.Sites).
		Str("mode", cfg.RunMode).
		Str("driver", cfg.BrowserDriver).
		Dur("crawl_interval", cfg.CrawlInterval).
		Msg("Starting application")

	// Set up context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Set up signal handling
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	services := initializeServices(ctx, cfg)
	defer services.Cleanup()

	crawlers, err := crawler.CreateCrawlers(cfg, crawler.Dependencies{
		Cache:     services.Cache,
		Publisher: services.Publisher,
		Sessions:  sessionFactory(cfg),
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create crawlers")
	}
	if len(crawlers) == 0 {
		log.Fatal().Msg("No crawlers were created")
	}

	log.Info().
		Int("crawler_count", len(crawlers)).
		Msg("Created crawlers")

	w := worker.NewWorker(
		ctx,
		crawlers,
		services.Publisher,
		helpers.NewLogger(cfg.ErrorLogFile),
		cfg.CrawlInterval,
	)

	// Start worker in a goroutine
	workerDone := make(chan error, 1)
	go func() {
		log.Info().Msg("Starting pharmacy crawler")
		workerDone <- w.Start()
	}()

	// Wait for shutdown signal or worker exit
	select {
	case sig := <-sigChan:
		log.Info().
			Str("signal", sig.String()).
			Msg("Received shutdown signal")
		cancel()
		// Runs close their browser sessions on cancellation
		<-workerDone
	case err := <-workerDone:
		if err != nil {
			log.Error().Err(err).Msg("Worker exited with error")
		} else {
			log.Info().Msg("Worker exited normally")
		}
	}

	log.Info().Msg("Shutting down gracefully...")
}

// Services holds the optional backing services
type Services struct {
	Cache     cache.CacheService
	Publisher publisher.Publisher
}

// Cleanup cleans up all services
func (s *Services) Cleanup() {
	if s.Publisher != nil {
		s.Publisher.Close()
	}
}

// initializeServices connects to Memcache and Redis when they are
// configured. Neither is required to run.
func initializeServices(ctx context.Context, cfg *config.Config) *Services {
	services := &Services{}

	if cfg.MemcacheAddr != "" {
		memcache := cache.NewMemcacheService(cfg.MemcacheAddr)
		if err := memcache.Ping(); err != nil {
			logger.Warn("Memcache at %s is not reachable yet: %v", cfg.MemcacheAddr, err)
		}
		services.Cache = memcache
		logger.Info("Using Memcache at %s for run locks and back-off", cfg.MemcacheAddr)
	} else {
		logger.Info("MEMCACHE_ADDR not set, run locks and back-off disabled")
	}

	if cfg.RedisAddr != "" {
		redisPublisher := publisher.NewRedisPublisher(
			ctx,
			cfg.RedisAddr,
			cfg.RedisDB,
			cfg.RedisStream,
			cfg.RedisStreamCount,
			cfg.RedisStreamMaxLength,
		)
		if err := redisPublisher.Ping(); err != nil {
			logger.Warn("Redis at %s is not reachable yet: %v", cfg.RedisAddr, err)
		}
		services.Publisher = redisPublisher
		logger.Info("Publishing price changes to Redis at %s (DB: %d, Stream: %s)",
			cfg.RedisAddr, cfg.RedisDB, cfg.RedisStream)
	} else {
		logger.Info("REDIS_ADDR not set, price changes are not published")
	}

	return services
}

// sessionFactory returns the browser driver selected by BROWSER_DRIVER.
// Every run gets its own session.
func sessionFactory(cfg *config.Config) browser.SessionFactory {
	if cfg.BrowserDriver == config.DriverStatic {
		return func(ctx context.Context) (browser.Session, error) {
			return browser.NewStaticSession(), nil
		}
	}
	opts := browser.RodOptions{
		Bin:       cfg.BrowserBin,
		Headless:  cfg.BrowserHeadless,
		NoSandbox: cfg.BrowserNoSandbox,
	}
	return func(ctx context.Context) (browser.Session, error) {
		session, err := browser.NewRodSession(ctx, opts)
		if err != nil {
			return nil, err
		}
		return session, nil
	}
}
