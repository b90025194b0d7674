package cache

import (
	"errors"
	"fmt"
	"time"

	"github.com/dealmungchi/pharmacrawler/logger"
	apperrors "github.com/dealmungchi/pharmacrawler/pkg/errors"
)

// ErrLocked is returned by Acquire when another run holds the site lock
var ErrLocked = errors.New("another run holds the site lock")

// SiteGuard keeps runs of one site from overlapping and backs a site off
// after it refused navigation. A guard without a cache allows everything.
type SiteGuard struct {
	cache     CacheService
	site      string
	lockTTL   time.Duration
	blockTime time.Duration
	log       *logger.Logger
}

// NewSiteGuard creates a guard for site. lockTTL bounds how long a crashed
// run can hold the lock.
func NewSiteGuard(c CacheService, site string, lockTTL, blockTime time.Duration) *SiteGuard {
	return &SiteGuard{
		cache:     c,
		site:      site,
		lockTTL:   lockTTL,
		blockTime: blockTime,
		log:       logger.ForCache().WithField("site", site),
	}
}

func (g *SiteGuard) lockKey() string    { return g.site + "_running" }
func (g *SiteGuard) blockedKey() string { return g.site + "_blocked" }

// Acquire takes the run lock. The returned release func is safe to call
// more than once. Cache failures other than a held lock are logged and
// the run proceeds unlocked.
func (g *SiteGuard) Acquire(runID string) (func(), error) {
	if g.cache == nil {
		return func() {}, nil
	}
	err := g.cache.Add(g.lockKey(), []byte(runID), g.lockTTL)
	if errors.Is(err, ErrExists) {
		return nil, apperrors.NewCache(g.site, "site run already in progress", ErrLocked)
	}
	if err != nil {
		g.log.Warn().Err(err).Msg("Failed to take run lock, continuing unlocked")
		return func() {}, nil
	}

	released := false
	return func() {
		if released {
			return
		}
		released = true
		if err := g.cache.Delete(g.lockKey()); err != nil {
			g.log.Warn().Err(err).Msg("Failed to release run lock")
		}
	}, nil
}

// Blocked returns a rate-limit error while the site is backed off
func (g *SiteGuard) Blocked() error {
	if g.cache == nil {
		return nil
	}
	if _, err := g.cache.Get(g.blockedKey()); err == nil {
		return apperrors.NewRateLimit(g.site, g.blockTime)
	}
	return nil
}

// Block backs the site off for the configured block time
func (g *SiteGuard) Block() {
	if g.cache == nil || g.blockTime <= 0 {
		return
	}
	value := []byte(fmt.Sprintf("%d", int(g.blockTime.Seconds())))
	if err := g.cache.Set(g.blockedKey(), value, g.blockTime); err != nil {
		g.log.Warn().Err(err).Msg("Failed to set back-off")
		return
	}
	g.log.Warn().Dur("block_time", g.blockTime).Msg("Site backed off")
}
