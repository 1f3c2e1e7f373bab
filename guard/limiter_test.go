package guard

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/quizcraft-go/config"
)

func testLimiter(t *testing.T) (*Limiter, *MemoryStore, *time.Time) {
	t.Helper()
	store := NewMemoryStore()
	l := NewLimiter(store, &config.GuardConfig{
		Window:     15 * time.Minute,
		EmailLimit: 3,
		IPLimit:    6,
	})
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }
	return l, store, &now
}

func TestLimiterAllowsUnderLimit(t *testing.T) {
	l, _, _ := testLimiter(t)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		d, err := l.Check(ctx, "jo@x.com", "10.0.0.1")
		require.NoError(t, err)
		assert.True(t, d.Allowed)
		require.NoError(t, l.Record(ctx, "jo@x.com", "10.0.0.1"))
	}
}

// A 4th attempt with the same email inside the window is denied regardless
// of IP.
func TestLimiterDeniesFourthEmailAttempt(t *testing.T) {
	l, _, _ := testLimiter(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, l.Record(ctx, "jo@x.com", fmt.Sprintf("10.0.0.%d", i)))
	}

	d, err := l.Check(ctx, "jo@x.com", "192.168.1.99")
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Contains(t, d.Reason, "Too many signup attempts")
	assert.Greater(t, d.RetryAfter, time.Duration(0))
}

// A 7th attempt from the same IP inside the window is denied regardless of
// email.
func TestLimiterDeniesSeventhIPAttempt(t *testing.T) {
	l, _, _ := testLimiter(t)
	ctx := context.Background()

	for i := 0; i < 6; i++ {
		require.NoError(t, l.Record(ctx, fmt.Sprintf("user%d@x.com", i), "10.0.0.1"))
	}

	d, err := l.Check(ctx, "fresh@x.com", "10.0.0.1")
	require.NoError(t, err)
	assert.False(t, d.Allowed)
}

// Email comparisons are case-insensitive: case variants share one bucket.
func TestLimiterNormalizesEmailKeys(t *testing.T) {
	l, _, _ := testLimiter(t)
	ctx := context.Background()

	require.NoError(t, l.Record(ctx, "Jo@X.com", "10.0.0.1"))
	require.NoError(t, l.Record(ctx, "JO@x.COM", "10.0.0.2"))
	require.NoError(t, l.Record(ctx, "jo@x.com", "10.0.0.3"))

	d, err := l.Check(ctx, " jo@x.com ", "10.0.0.4")
	require.NoError(t, err)
	assert.False(t, d.Allowed)
}

// Attempts that leave the 15-minute window stop counting.
func TestLimiterWindowSlides(t *testing.T) {
	l, _, now := testLimiter(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, l.Record(ctx, "jo@x.com", "10.0.0.1"))
	}

	d, err := l.Check(ctx, "jo@x.com", "10.0.0.1")
	require.NoError(t, err)
	require.False(t, d.Allowed)

	*now = now.Add(16 * time.Minute)

	d, err = l.Check(ctx, "jo@x.com", "10.0.0.1")
	require.NoError(t, err)
	assert.True(t, d.Allowed)
}

func TestLimiterRetryAfterTracksOldestAttempt(t *testing.T) {
	l, _, now := testLimiter(t)
	ctx := context.Background()

	require.NoError(t, l.Record(ctx, "jo@x.com", "10.0.0.1"))
	*now = now.Add(5 * time.Minute)
	require.NoError(t, l.Record(ctx, "jo@x.com", "10.0.0.1"))
	require.NoError(t, l.Record(ctx, "jo@x.com", "10.0.0.1"))

	// Oldest attempt was 5 minutes ago, so a slot opens in 10 minutes.
	d, err := l.Check(ctx, "jo@x.com", "10.0.0.1")
	require.NoError(t, err)
	require.False(t, d.Allowed)
	assert.Equal(t, 10*time.Minute, d.RetryAfter)
	assert.Contains(t, d.Reason, "10 minutes")
}

// An unknown IP sentinel shares one bucket but never blocks by email.
func TestLimiterUnknownIPBucket(t *testing.T) {
	l, _, _ := testLimiter(t)
	ctx := context.Background()

	for i := 0; i < 6; i++ {
		require.NoError(t, l.Record(ctx, fmt.Sprintf("user%d@x.com", i), "unknown"))
	}

	d, err := l.Check(ctx, "fresh@x.com", "unknown")
	require.NoError(t, err)
	assert.False(t, d.Allowed)

	// A known IP is unaffected by the unknown bucket.
	d, err = l.Check(ctx, "fresh@x.com", "10.0.0.1")
	require.NoError(t, err)
	assert.True(t, d.Allowed)
}

func TestMemoryStorePrune(t *testing.T) {
	l, store, now := testLimiter(t)
	ctx := context.Background()

	require.NoError(t, l.Record(ctx, "old@x.com", "10.0.0.1"))
	*now = now.Add(20 * time.Minute)
	require.NoError(t, l.Record(ctx, "new@x.com", "10.0.0.2"))

	require.NoError(t, l.Prune(ctx))

	// old@x.com and its IP key fell out of the window entirely.
	assert.Equal(t, 2, store.Len())

	count, _, ok, err := store.Window(ctx, "email:new@x.com", now.Add(-15*time.Minute))
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 1, count)
}
