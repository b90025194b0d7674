package worker

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"
	"time"

	"github.com/dealmungchi/pharmacrawler/helpers"
	"github.com/dealmungchi/pharmacrawler/internal/crawler"
	apperrors "github.com/dealmungchi/pharmacrawler/pkg/errors"
	"github.com/dealmungchi/pharmacrawler/services/cache"
	"github.com/dealmungchi/pharmacrawler/services/publisher"
)

// Worker runs every site crawler, once or on a fixed interval
type Worker struct {
	ctx           context.Context
	crawlers      []crawler.Crawler
	publisher     publisher.Publisher
	logger        helpers.LoggerInterface
	crawlInterval time.Duration
}

// NewWorker creates a new worker. pub may be nil; a zero crawlInterval makes
// Start return after a single pass.
func NewWorker(
	ctx context.Context,
	crawlers []crawler.Crawler,
	pub publisher.Publisher,
	logger helpers.LoggerInterface,
	crawlInterval time.Duration,
) *Worker {
	return &Worker{
		ctx:           ctx,
		crawlers:      crawlers,
		publisher:     pub,
		logger:        logger,
		crawlInterval: crawlInterval,
	}
}

// Start runs passes until the context is cancelled. It returns nil after a
// single pass when no interval is configured.
func (w *Worker) Start() error {
	for {
		start := time.Now()
		failed := w.runCrawlers()
		w.logger.LogInfo("Crawl pass finished in %s (%d/%d sites failed)", time.Since(start).Round(time.Millisecond), failed, len(w.crawlers))

		if w.crawlInterval <= 0 {
			return nil
		}
		select {
		case <-w.ctx.Done():
			return nil
		case <-time.After(w.crawlInterval):
		}
	}
}

// runCrawlers runs all crawlers in parallel, trims the change streams and
// returns how many runs failed
func (w *Worker) runCrawlers() int {
	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		failed int
	)
	for _, c := range w.crawlers {
		wg.Add(1)
		go func(c crawler.Crawler) {
			defer wg.Done()
			if !w.crawl(c) {
				mu.Lock()
				failed++
				mu.Unlock()
			}
		}(c)
	}
	wg.Wait()

	if w.publisher != nil {
		if err := w.publisher.TrimStreams(); err != nil {
			w.logger.LogError("StreamTrimming", err)
		}
	}
	return failed
}

// crawl performs one run of c and reports whether it succeeded. Skipped
// runs (locked or backed off) are not failures.
func (w *Worker) crawl(c crawler.Crawler) (ok bool) {
	name := c.GetName()
	if name == "" {
		name = reflect.TypeOf(c).Elem().Name()
	}
	defer func() {
		if p := recover(); p != nil {
			w.logger.LogError(name, fmt.Errorf("crawler panicked: %v", p))
			ok = false
		}
	}()

	res, err := c.Crawl(w.ctx)
	switch {
	case err == nil:
	case errors.Is(err, cache.ErrLocked), apperrors.IsType(err, apperrors.ErrorTypeRateLimit):
		w.logger.LogInfo("%s skipped: %v", name, err)
		return true
	case errors.Is(err, context.Canceled):
		w.logger.LogInfo("%s cancelled", name)
		return true
	default:
		w.logger.LogError(name, err)
		return false
	}

	w.logger.LogInfo("%s (%s): %s run, %d pages, %d extracted, %d added, %d changes, %d in catalog, stopped on %s",
		name, c.GetProvider(), res.Mode, res.Pages, res.Extracted, res.Added, len(res.Events), res.CatalogSize, res.Stop)
	return true
}
