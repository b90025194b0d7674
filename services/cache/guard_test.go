package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/dealmungchi/pharmacrawler/pkg/errors"
)

func TestSiteGuardLock(t *testing.T) {
	mem := NewMemoryCache()
	guard := NewSiteGuard(mem, "ahumada", time.Minute, time.Minute)

	release, err := guard.Acquire("run-1")
	require.NoError(t, err)

	_, err = guard.Acquire("run-2")
	assert.ErrorIs(t, err, ErrLocked)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeCache))

	release()
	release()

	release, err = guard.Acquire("run-3")
	require.NoError(t, err)
	value, err := mem.Get("ahumada_running")
	require.NoError(t, err)
	assert.Equal(t, "run-3", string(value))
	release()
}

func TestSiteGuardBackOff(t *testing.T) {
	mem := NewMemoryCache()
	now := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	mem.now = func() time.Time { return now }
	guard := NewSiteGuard(mem, "salcobrand", time.Minute, 10*time.Minute)

	assert.NoError(t, guard.Blocked())
	guard.Block()

	err := guard.Blocked()
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeRateLimit))

	now = now.Add(11 * time.Minute)
	assert.NoError(t, guard.Blocked(), "back-off expires")
}

func TestSiteGuardWithoutCache(t *testing.T) {
	guard := NewSiteGuard(nil, "cruzverde", time.Minute, time.Minute)

	release, err := guard.Acquire("run")
	require.NoError(t, err)
	release()
	guard.Block()
	assert.NoError(t, guard.Blocked())
}
