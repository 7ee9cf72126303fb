package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pricewatch/internal/models"
	"pricewatch/internal/structures"
)

func testConfig() *structures.Config {
	return &structures.Config{
		Scheduler: structures.SchedulerConfig{
			Interval:          time.Minute,
			BaseCheckInterval: time.Hour,
			MaxBackoff:        24 * time.Hour,
			BackoffCeiling:    6,
			DormantThreshold:  12,
			MaxConcurrency:    4,
		},
	}
}

func newTestService() TrackerServiceInterface {
	return NewTrackerService(testConfig(), models.NewMemoryHistoryStore(0))
}

func TestTrackProduct_Idempotent(t *testing.T) {
	ts := newTestService()
	now := time.Now()

	first, created := ts.TrackProduct("https://www.amazon.in/dp/B0ABCD1234", now)
	assert.True(t, created)
	assert.Equal(t, "AMZ-B0ABCD1234", first.ID)

	second, created := ts.TrackProduct("https://www.amazon.in/dp/B0ABCD1234", now.Add(time.Hour))
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)
	assert.True(t, second.CreatedAt.Equal(first.CreatedAt))
}

func TestEffectiveInterval_BackoffGrowthAndClamp(t *testing.T) {
	ts := newTestService()

	p := &models.TrackedProduct{}
	assert.Equal(t, time.Hour, ts.EffectiveInterval(p))

	p.FailureStreak = 2
	assert.Equal(t, 4*time.Hour, ts.EffectiveInterval(p))

	// 2^6 * 1h = 64h, clamped to 24h; the ceiling also caps the exponent.
	p.FailureStreak = 6
	assert.Equal(t, 24*time.Hour, ts.EffectiveInterval(p))
	p.FailureStreak = 50
	assert.Equal(t, 24*time.Hour, ts.EffectiveInterval(p))
}

func TestEffectiveInterval_HintOverridesBase(t *testing.T) {
	ts := newTestService()
	p := &models.TrackedProduct{CheckIntervalHint: 30 * time.Minute}
	assert.Equal(t, 30*time.Minute, ts.EffectiveInterval(p))
}

func TestDueProducts(t *testing.T) {
	ts := newTestService()
	now := time.Now()

	fresh, _ := ts.TrackProduct("https://shop.example.com/a", now)
	checked, _ := ts.TrackProduct("https://shop.example.com/b", now)
	require.NoError(t, ts.CompleteRun(checked.ID, nil, now.Add(-30*time.Minute)))

	due := ts.DueProducts(now)
	require.Len(t, due, 1)
	assert.Equal(t, fresh.ID, due[0].ID)

	// After the base interval elapses the checked one comes due too.
	assert.Len(t, ts.DueProducts(now.Add(time.Hour)), 2)
}

func TestDueProducts_SkipsDormant(t *testing.T) {
	ts := newTestService()
	now := time.Now()

	p, _ := ts.TrackProduct("https://shop.example.com/a", now)
	for i := 0; i < 12; i++ {
		require.NoError(t, ts.FailRun(p.ID, false, "timeout", now))
	}

	got, _ := ts.GetProduct(p.ID)
	assert.True(t, got.Dormant)
	assert.Empty(t, ts.DueProducts(now.Add(48*time.Hour)))
}

func TestFailRun_BlockedCountsDouble(t *testing.T) {
	ts := newTestService()
	now := time.Now()
	p, _ := ts.TrackProduct("https://shop.example.com/a", now)

	require.NoError(t, ts.FailRun(p.ID, true, "captcha wall", now))
	got, _ := ts.GetProduct(p.ID)
	assert.Equal(t, 2, got.FailureStreak)
	assert.Equal(t, "captcha wall", got.LastFailure)
}

func TestCompleteRun_ResetsStreak(t *testing.T) {
	ts := newTestService()
	now := time.Now()
	p, _ := ts.TrackProduct("https://shop.example.com/a", now)

	require.NoError(t, ts.FailRun(p.ID, false, "timeout", now))
	listing := &models.ExtractedListing{Title: "Widget", PriceMinor: 4999, Currency: "USD"}
	require.NoError(t, ts.CompleteRun(p.ID, listing, now.Add(time.Minute)))

	got, _ := ts.GetProduct(p.ID)
	assert.Equal(t, 0, got.FailureStreak)
	assert.Empty(t, got.LastFailure)
	require.NotNil(t, got.CurrentListing)
	assert.Equal(t, int64(4999), got.CurrentListing.PriceMinor)
}

func TestWakeProduct(t *testing.T) {
	ts := newTestService()
	now := time.Now()
	p, _ := ts.TrackProduct("https://shop.example.com/a", now)
	for i := 0; i < 12; i++ {
		require.NoError(t, ts.FailRun(p.ID, false, "timeout", now))
	}

	require.NoError(t, ts.WakeProduct(p.ID))
	got, _ := ts.GetProduct(p.ID)
	assert.False(t, got.Dormant)
	assert.Equal(t, 0, got.FailureStreak)
	assert.True(t, got.LastCheckedAt.IsZero())
	assert.Len(t, ts.DueProducts(now), 1)
}

func TestRetireProduct(t *testing.T) {
	ts := newTestService()
	now := time.Now()
	p, _ := ts.TrackProduct("https://shop.example.com/a", now)

	require.NoError(t, ts.RetireProduct(p.ID, "gone (404)", now))
	got, _ := ts.GetProduct(p.ID)
	assert.True(t, got.Dormant)
	assert.Equal(t, "gone (404)", got.LastFailure)
	assert.Empty(t, ts.DueProducts(now.Add(48*time.Hour)))

	degraded := ts.DegradedProducts()
	require.Len(t, degraded, 1)
	assert.Equal(t, p.ID, degraded[0].ID)

	// Waking brings a retired product back into rotation.
	require.NoError(t, ts.WakeProduct(p.ID))
	assert.Len(t, ts.DueProducts(now), 1)
}

func TestDegradedProducts(t *testing.T) {
	ts := newTestService()
	now := time.Now()

	healthy, _ := ts.TrackProduct("https://shop.example.com/a", now)
	require.NoError(t, ts.CompleteRun(healthy.ID, nil, now))
	failing, _ := ts.TrackProduct("https://shop.example.com/b", now)
	require.NoError(t, ts.FailRun(failing.ID, false, "timeout", now))

	got := ts.DegradedProducts()
	require.Len(t, got, 1)
	assert.Equal(t, failing.ID, got[0].ID)
}

func TestSnapshotRoundTrip(t *testing.T) {
	ts := newTestService()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	p, _ := ts.TrackProduct("https://shop.example.com/a", now)
	ts.Alerts().Put(&models.Alert{ID: "a1", ProductID: p.ID, UserID: "u1", TargetPriceMinor: 1000, Active: true})
	_, err := ts.History().Append(t.Context(), models.PricePoint{ProductID: p.ID, ObservedAt: now, PriceMinor: 1234, Currency: "USD"})
	require.NoError(t, err)
	ts.PutComparison(&models.ComparisonSnapshot{ProductID: p.ID, GeneratedAt: now})

	restored := newTestService()
	restored.PutSnapshot(ts.GetSnapshot())

	got, ok := restored.GetProduct(p.ID)
	require.True(t, ok)
	assert.Equal(t, p.SourceURL, got.SourceURL)

	_, ok = restored.Alerts().Get("a1")
	assert.True(t, ok)

	latest, ok, err := restored.History().Latest(t.Context(), p.ID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, int64(1234), latest.PriceMinor)

	_, ok = restored.GetComparison(p.ID)
	assert.True(t, ok)
}

func TestCounts(t *testing.T) {
	ts := newTestService()
	now := time.Now()

	a, _ := ts.TrackProduct("https://shop.example.com/a", now)
	ts.TrackProduct("https://shop.example.com/b", now)
	for i := 0; i < 12; i++ {
		require.NoError(t, ts.FailRun(a.ID, false, "timeout", now))
	}

	assert.Equal(t, 2, ts.TrackedCount())
	assert.Equal(t, 1, ts.DormantCount())
}
