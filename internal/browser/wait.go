package browser

import (
	"context"
	"strings"
	"time"

	apperrors "github.com/dealmungchi/pharmacrawler/pkg/errors"
)

// WaitUntil polls cond every interval until it returns true or timeout
// elapses. Cancellation of ctx is returned as ctx.Err(); an elapsed timeout
// is returned as a wait-timeout CrawlerError.
func WaitUntil(ctx context.Context, what string, timeout, interval time.Duration, cond func(ctx context.Context) bool) error {
	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if interval <= 0 {
		interval = 100 * time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if cond(waitCtx) {
			return nil
		}
		select {
		case <-waitCtx.Done():
			if err := ctx.Err(); err != nil {
				return err
			}
			return apperrors.NewWaitTimeout("", what, timeout)
		case <-ticker.C:
		}
	}
}

// WaitForAny waits until one of selectors matches at least one element and
// returns the first selector that matched.
func WaitForAny(ctx context.Context, scope Scope, selectors []string, timeout, interval time.Duration) (string, error) {
	var matched string
	err := WaitUntil(ctx, "waiting for "+strings.Join(selectors, " | "), timeout, interval, func(ctx context.Context) bool {
		for _, sel := range selectors {
			els, err := scope.Elements(ctx, sel)
			if err == nil && len(els) > 0 {
				matched = sel
				return true
			}
		}
		return false
	})
	return matched, err
}

// WaitForCount waits until count grows beyond baseline and then holds the
// same value for one further poll. It returns the last observed count even
// when the wait times out.
func WaitForCount(ctx context.Context, count func(ctx context.Context) (int, error), baseline int, timeout, interval time.Duration) (int, error) {
	last := baseline
	grown := false
	err := WaitUntil(ctx, "waiting for listing to grow", timeout, interval, func(ctx context.Context) bool {
		n, err := count(ctx)
		if err != nil {
			return false
		}
		stable := grown && n == last
		if n > baseline {
			grown = true
		}
		last = n
		return stable
	})
	return last, err
}
