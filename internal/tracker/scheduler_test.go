package tracker

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pricewatch/internal/models"
	"pricewatch/internal/services"
	"pricewatch/internal/structures"
	"pricewatch/internal/testutil"
)

func schedulerConfig(dir string) *structures.Config {
	return &structures.Config{
		Scheduler: structures.SchedulerConfig{
			Interval:             time.Minute,
			BaseCheckInterval:    time.Hour,
			MaxBackoff:           24 * time.Hour,
			BackoffCeiling:       6,
			DormantThreshold:     12,
			MaxConcurrency:       4,
			PerSourceConcurrency: 2,
		},
		Extractor: structures.ExtractorConfig{ConfidenceThreshold: 0.9},
		Search:    structures.SearchConfig{MaxCandidates: 3},
		Persistence: structures.Persistence{
			FilePath:     filepath.Join(dir, "pricewatch.db"),
			SaveInterval: time.Minute,
		},
	}
}

func productPage(price string) string {
	return fmt.Sprintf(`<html><body>
<span id="productTitle">Acme Widget Pro 2000</span>
<span class="a-price"><span class="a-offscreen">%s</span></span>
<div id="availability"><span>In Stock</span></div>
</body></html>`, price)
}

type schedulerFixture struct {
	conf      *structures.Config
	service   services.TrackerServiceInterface
	fetcher   *testutil.MockFetcher
	notifier  *testutil.MockNotifier
	search    *testutil.MockSearchClient
	metrics   *testutil.MockMetrics
	scheduler *Scheduler
}

func newSchedulerFixture(t *testing.T) *schedulerFixture {
	conf := schedulerConfig(t.TempDir())
	logger := &testutil.MockLogger{}
	metrics := testutil.NewMockMetrics()
	service := services.NewTrackerService(conf, models.NewMemoryHistoryStore(0))
	fileManager := NewFileManager(&testutil.MockCompressor{}, service, logger)
	fetcher := &testutil.MockFetcher{}
	extractor := NewExtractor(conf, logger, nil)
	notifier := &testutil.MockNotifier{}
	search := &testutil.MockSearchClient{}
	evaluator := NewAlertEvaluator(service, notifier, logger, metrics)

	sched := NewScheduler(conf, logger, metrics, service, fileManager, fetcher, extractor, nil, search, evaluator).(*Scheduler)
	return &schedulerFixture{
		conf:      conf,
		service:   service,
		fetcher:   fetcher,
		notifier:  notifier,
		search:    search,
		metrics:   metrics,
		scheduler: sched,
	}
}

func (f *schedulerFixture) servePrices(prices ...string) {
	var mu sync.Mutex
	call := 0
	f.fetcher.FetchFn = func(_ context.Context, sourceURL string) (*models.RawDocument, error) {
		mu.Lock()
		price := prices[min(call, len(prices)-1)]
		call++
		mu.Unlock()
		return &models.RawDocument{
			SourceURL: sourceURL,
			Source:    models.SourceClass(sourceURL),
			Body:      []byte(productPage(price)),
			FetchedAt: time.Now().UTC(),
		}, nil
	}
}

func TestRefreshProduct_PipelineEndToEnd(t *testing.T) {
	f := newSchedulerFixture(t)
	f.servePrices("$50.00", "$45.00", "$44.00", "$43.00")

	p, _ := f.service.TrackProduct("https://www.amazon.com/dp/B0ABCD1234", time.Now())
	f.service.Alerts().Put(&models.Alert{
		ID: "a1", ProductID: p.ID, UserID: "u1", TargetPriceMinor: 4500, Active: true,
	})

	for i := 0; i < 4; i++ {
		require.NoError(t, f.scheduler.RefreshProduct(context.Background(), p.ID))
	}

	history, err := f.service.History().Range(context.Background(), p.ID, time.Time{}, time.Time{})
	require.NoError(t, err)
	require.Len(t, history, 4)
	assert.Equal(t, int64(5000), history[0].PriceMinor)
	assert.Equal(t, int64(4300), history[3].PriceMinor)

	// 45.00 fires, 44.00 and 43.00 each fire again (strictly lower).
	fired := f.notifier.Fired()
	require.Len(t, fired, 3)
	assert.Equal(t, int64(4500), fired[0].PriceMinor)
	assert.Equal(t, int64(4400), fired[1].PriceMinor)
	assert.Equal(t, int64(4300), fired[2].PriceMinor)

	got, ok := f.service.GetProduct(p.ID)
	require.True(t, ok)
	require.NotNil(t, got.CurrentListing)
	assert.Equal(t, int64(4300), got.CurrentListing.PriceMinor)
	assert.Equal(t, 0, got.FailureStreak)
	assert.Equal(t, 4, f.metrics.RefreshCount("ok"))
}

func TestRefreshProduct_BlockedFetchBacksOffDouble(t *testing.T) {
	f := newSchedulerFixture(t)
	f.fetcher.FetchFn = func(_ context.Context, sourceURL string) (*models.RawDocument, error) {
		return nil, &FetchError{Kind: FetchBlocked, URL: sourceURL, Status: 403}
	}

	p, _ := f.service.TrackProduct("https://www.amazon.com/dp/B0ABCD1234", time.Now())
	err := f.scheduler.RefreshProduct(context.Background(), p.ID)
	require.Error(t, err)

	got, _ := f.service.GetProduct(p.ID)
	assert.Equal(t, 2, got.FailureStreak)
	assert.Equal(t, 1, f.metrics.RefreshCount("blocked"))
}

func TestRefreshProduct_GoneListingRetiresImmediately(t *testing.T) {
	f := newSchedulerFixture(t)
	f.fetcher.FetchFn = func(_ context.Context, sourceURL string) (*models.RawDocument, error) {
		return nil, &FetchError{Kind: FetchPermanent, URL: sourceURL, Status: 404}
	}

	p, _ := f.service.TrackProduct("https://www.amazon.com/dp/B0ABCD1234", time.Now())
	err := f.scheduler.RefreshProduct(context.Background(), p.ID)
	require.Error(t, err)

	// A 404 takes the product out of rotation right away instead of
	// walking the backoff ladder toward the dormant threshold.
	got, _ := f.service.GetProduct(p.ID)
	assert.True(t, got.Dormant)
	assert.Contains(t, got.LastFailure, "permanent")
	assert.Empty(t, f.service.DueProducts(time.Now().Add(48*time.Hour)))

	f.scheduler.RunDueRefreshes()
	assert.Equal(t, 1, f.fetcher.CallCount())

	degraded := f.service.DegradedProducts()
	require.Len(t, degraded, 1)
	assert.Equal(t, p.ID, degraded[0].ID)
}

func TestRefreshProduct_ExtractFailureCountsSingle(t *testing.T) {
	f := newSchedulerFixture(t)
	f.fetcher.FetchFn = func(_ context.Context, sourceURL string) (*models.RawDocument, error) {
		return &models.RawDocument{
			SourceURL: sourceURL,
			Source:    models.SourceClass(sourceURL),
			Body:      []byte("<html><body>nothing here</body></html>"),
			FetchedAt: time.Now().UTC(),
		}, nil
	}

	p, _ := f.service.TrackProduct("https://www.amazon.com/dp/B0ABCD1234", time.Now())
	err := f.scheduler.RefreshProduct(context.Background(), p.ID)
	require.Error(t, err)

	got, _ := f.service.GetProduct(p.ID)
	assert.Equal(t, 1, got.FailureStreak)
	assert.Equal(t, 1, f.metrics.RefreshCount("extract_error"))
}

func TestRefreshProduct_SingleInFlight(t *testing.T) {
	f := newSchedulerFixture(t)
	release := make(chan struct{})
	f.fetcher.FetchFn = func(_ context.Context, sourceURL string) (*models.RawDocument, error) {
		<-release
		return &models.RawDocument{
			SourceURL: sourceURL,
			Source:    models.SourceClass(sourceURL),
			Body:      []byte(productPage("$50.00")),
			FetchedAt: time.Now().UTC(),
		}, nil
	}

	p, _ := f.service.TrackProduct("https://www.amazon.com/dp/B0ABCD1234", time.Now())

	done := make(chan error, 1)
	go func() {
		done <- f.scheduler.RefreshProduct(context.Background(), p.ID)
	}()

	// Wait for the first refresh to claim its slot.
	require.Eventually(t, func() bool { return f.fetcher.CallCount() == 1 }, time.Second, time.Millisecond)

	// Second refresh is skipped, not queued.
	require.NoError(t, f.scheduler.RefreshProduct(context.Background(), p.ID))
	assert.Equal(t, 1, f.fetcher.CallCount())

	close(release)
	require.NoError(t, <-done)
	assert.Equal(t, 1, f.fetcher.CallCount())
}

func TestRefreshProduct_NotFound(t *testing.T) {
	f := newSchedulerFixture(t)
	assert.ErrorIs(t, f.scheduler.RefreshProduct(context.Background(), "nope"), models.ErrNotFound)
}

func TestRefreshProduct_WakesDormant(t *testing.T) {
	f := newSchedulerFixture(t)
	f.servePrices("$50.00")

	p, _ := f.service.TrackProduct("https://www.amazon.com/dp/B0ABCD1234", time.Now())
	for i := 0; i < 12; i++ {
		require.NoError(t, f.service.FailRun(p.ID, false, "timeout", time.Now()))
	}
	got, _ := f.service.GetProduct(p.ID)
	require.True(t, got.Dormant)

	require.NoError(t, f.scheduler.RefreshProduct(context.Background(), p.ID))
	got, _ = f.service.GetProduct(p.ID)
	assert.False(t, got.Dormant)
	assert.Equal(t, 0, got.FailureStreak)
}

func TestRefresh_ConflictingReobservationKeepsFirstWrite(t *testing.T) {
	f := newSchedulerFixture(t)
	observed := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	var mu sync.Mutex
	call := 0
	f.fetcher.FetchFn = func(_ context.Context, sourceURL string) (*models.RawDocument, error) {
		mu.Lock()
		price := []string{"$50.00", "$49.00"}[min(call, 1)]
		call++
		mu.Unlock()
		return &models.RawDocument{
			SourceURL: sourceURL,
			Source:    models.SourceClass(sourceURL),
			Body:      []byte(productPage(price)),
			FetchedAt: observed,
		}, nil
	}

	p, _ := f.service.TrackProduct("https://www.amazon.com/dp/B0ABCD1234", time.Now())
	f.service.Alerts().Put(&models.Alert{
		ID: "a1", ProductID: p.ID, UserID: "u1", TargetPriceMinor: 4900, Active: true,
	})
	require.NoError(t, f.scheduler.RefreshProduct(context.Background(), p.ID))
	require.NoError(t, f.scheduler.RefreshProduct(context.Background(), p.ID))

	// First write wins; the conflicting observation is counted, not stored.
	latest, ok, err := f.service.History().Latest(context.Background(), p.ID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, int64(5000), latest.PriceMinor)
	assert.Equal(t, 1, f.metrics.Conflicts)

	// The product state still reflects the newest extraction.
	got, _ := f.service.GetProduct(p.ID)
	assert.Equal(t, int64(4900), got.CurrentListing.PriceMinor)

	// The rejected point never reaches alert evaluation, so the 49.00
	// observation cannot fire the alert.
	assert.Empty(t, f.notifier.Fired())
}

func TestRunDueRefreshes_RefreshesAllDue(t *testing.T) {
	f := newSchedulerFixture(t)
	f.servePrices("$50.00")

	f.service.TrackProduct("https://www.amazon.com/dp/B0ABCD1234", time.Now())
	f.service.TrackProduct("https://shop.example.com/item/42", time.Now())

	f.scheduler.RunDueRefreshes()

	assert.Equal(t, 2, f.fetcher.CallCount())
	for _, p := range f.service.Products().List() {
		assert.False(t, p.LastCheckedAt.IsZero())
	}
}

func TestRunComparison_BuildsSnapshot(t *testing.T) {
	f := newSchedulerFixture(t)
	f.servePrices("$100.00")

	p, _ := f.service.TrackProduct("https://www.amazon.com/dp/B0ABCD1234", time.Now())
	require.NoError(t, f.scheduler.RefreshProduct(context.Background(), p.ID))

	f.search.SearchFn = func(_ context.Context, query string) ([]models.CandidateRaw, error) {
		assert.NotEmpty(t, query)
		return []models.CandidateRaw{
			{Platform: "flipkart", URL: "https://flipkart.com/a", Title: "Acme Widget Pro 2000", PriceMinor: 9800, Currency: "USD"},
			{Platform: "meesho", URL: "https://meesho.com/b", Title: "Garden Hose", PriceMinor: 500, Currency: "USD"},
		}, nil
	}

	require.NoError(t, f.scheduler.RunComparison(context.Background(), p.ID))

	snap, ok := f.service.GetComparison(p.ID)
	require.True(t, ok)
	require.Len(t, snap.Candidates, 1)
	assert.Equal(t, "flipkart", snap.Candidates[0].Platform)
}

func TestRunComparison_NoListingYet(t *testing.T) {
	f := newSchedulerFixture(t)
	p, _ := f.service.TrackProduct("https://www.amazon.com/dp/B0ABCD1234", time.Now())
	assert.Error(t, f.scheduler.RunComparison(context.Background(), p.ID))
}

func TestRunComparison_SearchNotConfigured(t *testing.T) {
	f := newSchedulerFixture(t)
	f.scheduler.search = nil
	assert.Error(t, f.scheduler.RunComparison(context.Background(), "any"))
}
