package services

import (
	"sync"
	"time"

	"pricewatch/internal/models"
	"pricewatch/internal/structures"
)

type TrackerServiceInterface interface {
	TrackProduct(sourceURL string, now time.Time) (models.TrackedProduct, bool)
	GetProduct(id string) (models.TrackedProduct, bool)
	RemoveProduct(id string) error
	WakeProduct(id string) error
	RetireProduct(id, reason string, now time.Time) error
	DueProducts(now time.Time) []models.TrackedProduct
	EffectiveInterval(p *models.TrackedProduct) time.Duration
	CompleteRun(id string, listing *models.ExtractedListing, now time.Time) error
	FailRun(id string, blocked bool, reason string, now time.Time) error
	DegradedProducts() []models.TrackedProduct
	Products() *models.ProductStore
	Alerts() *models.AlertStore
	History() models.HistoryStore
	PutComparison(snap *models.ComparisonSnapshot)
	GetComparison(productID string) (*models.ComparisonSnapshot, bool)
	TrackedCount() int
	DormantCount() int
	GetSnapshot() *models.Storage
	PutSnapshot(data *models.Storage)
}

type TrackerService struct {
	conf     *structures.Config
	products *models.ProductStore
	alerts   *models.AlertStore
	history  models.HistoryStore

	compMu      sync.RWMutex
	comparisons map[string]*models.ComparisonSnapshot
}

func NewTrackerService(conf *structures.Config, history models.HistoryStore) TrackerServiceInterface {
	return &TrackerService{
		conf:        conf,
		products:    models.NewProductStore(),
		alerts:      models.NewAlertStore(),
		history:     history,
		comparisons: make(map[string]*models.ComparisonSnapshot),
	}
}

// TrackProduct registers a URL for tracking. Registration is idempotent:
// re-tracking an existing product returns the current record and reports
// created=false.
func (ts *TrackerService) TrackProduct(sourceURL string, now time.Time) (models.TrackedProduct, bool) {
	id := models.ProductIDFromURL(sourceURL)
	if existing, ok := ts.products.Get(id); ok && !existing.Removed {
		return existing, false
	}

	p := &models.TrackedProduct{
		ID:        id,
		SourceURL: sourceURL,
		Source:    models.SourceClass(sourceURL),
		CreatedAt: now,
	}
	ts.products.Put(p)
	return *p, true
}

func (ts *TrackerService) GetProduct(id string) (models.TrackedProduct, bool) {
	p, ok := ts.products.Get(id)
	if !ok || p.Removed {
		return models.TrackedProduct{}, false
	}
	return p, true
}

func (ts *TrackerService) RemoveProduct(id string) error {
	return ts.products.Remove(id)
}

// WakeProduct clears the dormant flag and failure streak so the next
// scheduler pass picks the product up again. The last-checked timestamp
// is zeroed so the woken product is immediately due instead of waiting
// out an interval that started during its failure run.
func (ts *TrackerService) WakeProduct(id string) error {
	return ts.products.Update(id, func(p *models.TrackedProduct) {
		p.Dormant = false
		p.FailureStreak = 0
		p.LastFailure = ""
		p.LastCheckedAt = time.Time{}
	})
}

// RetireProduct takes a product out of rotation right away, without
// walking the backoff ladder. Used when a source answers with a
// permanent condition such as 404 or the URL itself is unusable; the
// product stays visible under the degraded listing and WakeProduct
// brings it back.
func (ts *TrackerService) RetireProduct(id, reason string, now time.Time) error {
	return ts.products.Update(id, func(p *models.TrackedProduct) {
		p.Dormant = true
		p.FailureStreak++
		p.LastFailure = reason
		p.LastCheckedAt = now
	})
}

// EffectiveInterval is the base check interval stretched exponentially by
// the failure streak and clamped to the configured maximum.
func (ts *TrackerService) EffectiveInterval(p *models.TrackedProduct) time.Duration {
	base := ts.conf.Scheduler.BaseCheckInterval
	if p.CheckIntervalHint > 0 {
		base = p.CheckIntervalHint
	}

	streak := p.FailureStreak
	if streak > ts.conf.Scheduler.BackoffCeiling {
		streak = ts.conf.Scheduler.BackoffCeiling
	}
	interval := base << uint(streak)
	if interval > ts.conf.Scheduler.MaxBackoff || interval <= 0 {
		interval = ts.conf.Scheduler.MaxBackoff
	}
	return interval
}

// DueProducts returns the non-dormant products whose effective interval
// has elapsed. Never-checked products are always due.
func (ts *TrackerService) DueProducts(now time.Time) []models.TrackedProduct {
	all := ts.products.List()
	due := make([]models.TrackedProduct, 0, len(all))
	for i := range all {
		p := all[i]
		if p.Dormant {
			continue
		}
		if p.LastCheckedAt.IsZero() || !now.Before(p.LastCheckedAt.Add(ts.EffectiveInterval(&p))) {
			due = append(due, p)
		}
	}
	return due
}

func (ts *TrackerService) CompleteRun(id string, listing *models.ExtractedListing, now time.Time) error {
	return ts.products.Update(id, func(p *models.TrackedProduct) {
		p.CurrentListing = listing
		p.LastCheckedAt = now
		p.FailureStreak = 0
		p.LastFailure = ""
		p.Dormant = false
	})
}

// FailRun records a failed refresh. Blocked fetches count double so a
// source that is actively refusing us backs off faster.
func (ts *TrackerService) FailRun(id string, blocked bool, reason string, now time.Time) error {
	return ts.products.Update(id, func(p *models.TrackedProduct) {
		step := 1
		if blocked {
			step = 2
		}
		p.FailureStreak += step
		p.LastFailure = reason
		p.LastCheckedAt = now
		if p.FailureStreak >= ts.conf.Scheduler.DormantThreshold {
			p.Dormant = true
		}
	})
}

func (ts *TrackerService) DegradedProducts() []models.TrackedProduct {
	all := ts.products.List()
	out := make([]models.TrackedProduct, 0)
	for _, p := range all {
		if p.FailureStreak > 0 || p.Dormant {
			out = append(out, p)
		}
	}
	return out
}

func (ts *TrackerService) Products() *models.ProductStore { return ts.products }
func (ts *TrackerService) Alerts() *models.AlertStore     { return ts.alerts }
func (ts *TrackerService) History() models.HistoryStore   { return ts.history }

func (ts *TrackerService) PutComparison(snap *models.ComparisonSnapshot) {
	ts.compMu.Lock()
	defer ts.compMu.Unlock()
	ts.comparisons[snap.ProductID] = snap
}

func (ts *TrackerService) GetComparison(productID string) (*models.ComparisonSnapshot, bool) {
	ts.compMu.RLock()
	defer ts.compMu.RUnlock()
	snap, ok := ts.comparisons[productID]
	return snap, ok
}

func (ts *TrackerService) TrackedCount() int {
	return len(ts.products.List())
}

func (ts *TrackerService) DormantCount() int {
	count := 0
	for _, p := range ts.products.List() {
		if p.Dormant {
			count++
		}
	}
	return count
}

func (ts *TrackerService) GetSnapshot() *models.Storage {
	st := &models.Storage{
		Products: ts.products.Snapshot(),
		Alerts:   ts.alerts.Snapshot(),
	}
	if hs, ok := ts.history.(models.HistorySnapshotter); ok {
		st.History = hs.Snapshot()
	}

	ts.compMu.RLock()
	defer ts.compMu.RUnlock()
	if len(ts.comparisons) > 0 {
		st.Comparisons = make(map[string]*models.ComparisonSnapshot, len(ts.comparisons))
		for id, snap := range ts.comparisons {
			cp := *snap
			st.Comparisons[id] = &cp
		}
	}
	return st
}

func (ts *TrackerService) PutSnapshot(data *models.Storage) {
	if data == nil {
		return
	}
	if data.Products != nil {
		ts.products.Restore(data.Products)
	}
	if data.Alerts != nil {
		ts.alerts.Restore(data.Alerts)
	}
	if data.History != nil {
		if hs, ok := ts.history.(models.HistorySnapshotter); ok {
			hs.Restore(data.History)
		}
	}

	ts.compMu.Lock()
	defer ts.compMu.Unlock()
	ts.comparisons = make(map[string]*models.ComparisonSnapshot, len(data.Comparisons))
	for id, snap := range data.Comparisons {
		cp := *snap
		ts.comparisons[id] = &cp
	}
}
