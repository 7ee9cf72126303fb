package testutil

import (
	"context"
	"sync"
	"time"

	"pricewatch/internal/models"
	"pricewatch/internal/providers"
)

// MockLogger implements providers.Logger and records calls.
type MockLogger struct {
	mu   sync.Mutex
	Logs []LogEntry
}

type LogEntry struct {
	Level  string
	Type   providers.TypeEnum
	Format string
	Args   []interface{}
}

func (m *MockLogger) record(level string, t providers.TypeEnum, format string, args ...interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Logs = append(m.Logs, LogEntry{Level: level, Type: t, Format: format, Args: args})
}

func (m *MockLogger) Errorf(t providers.TypeEnum, format string, args ...interface{}) {
	m.record("error", t, format, args...)
}
func (m *MockLogger) Warnf(t providers.TypeEnum, format string, args ...interface{}) {
	m.record("warn", t, format, args...)
}
func (m *MockLogger) Debugf(t providers.TypeEnum, format string, args ...interface{}) {
	m.record("debug", t, format, args...)
}
func (m *MockLogger) Infof(t providers.TypeEnum, format string, args ...interface{}) {
	m.record("info", t, format, args...)
}
func (m *MockLogger) Fatalf(t providers.TypeEnum, format string, args ...interface{}) {
	m.record("fatal", t, format, args...)
}
func (m *MockLogger) Close() {}

// CountByLevel reports how many entries were logged at a level.
func (m *MockLogger) CountByLevel(level string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, e := range m.Logs {
		if e.Level == level {
			count++
		}
	}
	return count
}

// MockCache implements providers.CacheProviderInterface.
type MockCache struct {
	mu   sync.Mutex
	Data map[string][]byte
}

func NewMockCache() *MockCache {
	return &MockCache{Data: make(map[string][]byte)}
}

func (m *MockCache) Get(key string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	val, ok := m.Data[key]
	return val, ok
}

func (m *MockCache) Set(key string, value []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Data[key] = value
}

// MockCompressor implements interfaces.CompressorInterface with injectable behavior.
type MockCompressor struct {
	CompressFn   func([]byte) ([]byte, error)
	DecompressFn func([]byte) ([]byte, error)
}

func (m *MockCompressor) Compress(val []byte) ([]byte, error) {
	if m.CompressFn != nil {
		return m.CompressFn(val)
	}
	// Default: return as-is (identity)
	out := make([]byte, len(val))
	copy(out, val)
	return out, nil
}

func (m *MockCompressor) Decompress(val []byte) ([]byte, error) {
	if m.DecompressFn != nil {
		return m.DecompressFn(val)
	}
	out := make([]byte, len(val))
	copy(out, val)
	return out, nil
}

func (m *MockCompressor) Close() {}

// MockFetcher implements tracker.Fetcher with injectable behavior.
type MockFetcher struct {
	mu      sync.Mutex
	FetchFn func(ctx context.Context, sourceURL string) (*models.RawDocument, error)
	Calls   []string
}

func (m *MockFetcher) Fetch(ctx context.Context, sourceURL string) (*models.RawDocument, error) {
	m.mu.Lock()
	m.Calls = append(m.Calls, sourceURL)
	m.mu.Unlock()
	if m.FetchFn != nil {
		return m.FetchFn(ctx, sourceURL)
	}
	return &models.RawDocument{
		SourceURL: sourceURL,
		Source:    models.SourceClass(sourceURL),
		FetchedAt: time.Now().UTC(),
	}, nil
}

func (m *MockFetcher) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}

// MockAIExtractor implements tracker.AIExtractor.
type MockAIExtractor struct {
	mu           sync.Mutex
	ListingFn    func(ctx context.Context, doc *models.RawDocument) (*models.ExtractedListing, error)
	KeywordsFn   func(ctx context.Context, title string) ([]string, error)
	ListingCalls int
}

func (m *MockAIExtractor) ExtractListing(ctx context.Context, doc *models.RawDocument) (*models.ExtractedListing, error) {
	m.mu.Lock()
	m.ListingCalls++
	m.mu.Unlock()
	if m.ListingFn != nil {
		return m.ListingFn(ctx, doc)
	}
	return nil, context.Canceled
}

func (m *MockAIExtractor) ExtractKeywords(ctx context.Context, title string) ([]string, error) {
	if m.KeywordsFn != nil {
		return m.KeywordsFn(ctx, title)
	}
	return nil, context.Canceled
}

func (m *MockAIExtractor) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ListingCalls
}

// MockSearchClient implements tracker.SearchClient.
type MockSearchClient struct {
	SearchFn func(ctx context.Context, query string) ([]models.CandidateRaw, error)
	Queries  []string
}

func (m *MockSearchClient) Search(ctx context.Context, query string) ([]models.CandidateRaw, error) {
	m.Queries = append(m.Queries, query)
	if m.SearchFn != nil {
		return m.SearchFn(ctx, query)
	}
	return nil, nil
}

// MockNotifier implements tracker.Notifier and records fired intents.
type MockNotifier struct {
	mu      sync.Mutex
	Err     error
	Intents []models.FireIntent
}

func (m *MockNotifier) Notify(_ context.Context, intent models.FireIntent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Intents = append(m.Intents, intent)
	return m.Err
}

func (m *MockNotifier) Fired() []models.FireIntent {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.FireIntent, len(m.Intents))
	copy(out, m.Intents)
	return out
}

// MockMetrics implements providers.MetricsProviderInterface with counters.
type MockMetrics struct {
	mu             sync.Mutex
	Requests       int
	Refreshes      map[string]int
	AlertsFired    int
	Conflicts      int
	CacheHitCount  int
	CacheMissCount int
}

func NewMockMetrics() *MockMetrics {
	return &MockMetrics{Refreshes: make(map[string]int)}
}

func (m *MockMetrics) IncRequestsTotal(_ string, _ int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Requests++
}
func (m *MockMetrics) ObserveRequestDuration(_ string, _ time.Duration) {}
func (m *MockMetrics) IncCacheHits() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CacheHitCount++
}
func (m *MockMetrics) IncCacheMisses() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CacheMissCount++
}
func (m *MockMetrics) ObservePersistenceDuration(_ time.Duration)     {}
func (m *MockMetrics) ObserveFetchDuration(_ string, _ time.Duration) {}
func (m *MockMetrics) IncRefreshTotal(_ string, outcome string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Refreshes[outcome]++
}
func (m *MockMetrics) IncAlertsFired() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.AlertsFired++
}
func (m *MockMetrics) IncHistoryConflicts() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Conflicts++
}

func (m *MockMetrics) RefreshCount(outcome string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Refreshes[outcome]
}
