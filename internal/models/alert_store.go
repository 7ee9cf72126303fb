package models

import (
	"sync"
	"time"
)

// AlertStore owns alert records and the fired-state transition. MarkFired
// re-checks the monotone condition under the store lock, so the decision
// commits exactly once even when evaluations race with restarts.
type AlertStore struct {
	mu     sync.RWMutex
	alerts map[string]*Alert
}

func NewAlertStore() *AlertStore {
	return &AlertStore{alerts: make(map[string]*Alert)}
}

func (s *AlertStore) Put(a *Alert) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *a
	s.alerts[a.ID] = &cp
}

func (s *AlertStore) Get(id string) (Alert, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.alerts[id]
	if !ok {
		return Alert{}, false
	}
	return *a, true
}

// ActiveForProduct returns copies of all active alerts on a product.
func (s *AlertStore) ActiveForProduct(productID string) []Alert {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Alert
	for _, a := range s.alerts {
		if a.Active && a.ProductID == productID {
			out = append(out, *a)
		}
	}
	return out
}

// MarkFired commits the fired-state for one triggering point. It returns
// false without touching the alert when the transition no longer
// qualifies: alert gone or inactive, price not strictly below the last
// fired price, or the same observedAt already recorded (idempotent per
// triggering point).
func (s *AlertStore) MarkFired(alertID string, observedAt time.Time, priceMinor int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.alerts[alertID]
	if !ok || !a.Active {
		return false
	}
	if a.LastFiredAt != nil && a.LastFiredAt.Equal(observedAt) {
		return false
	}
	if a.LastFiredPrice != nil && priceMinor >= *a.LastFiredPrice {
		return false
	}
	at := observedAt
	price := priceMinor
	a.LastFiredAt = &at
	a.LastFiredPrice = &price
	return true
}

// Reset clears the fired-state so the alert may fire again at any
// qualifying price. Exposed to the user-facing layer.
func (s *AlertStore) Reset(alertID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.alerts[alertID]
	if !ok {
		return false
	}
	a.LastFiredAt = nil
	a.LastFiredPrice = nil
	return true
}

func (s *AlertStore) Snapshot() map[string]*Alert {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]*Alert, len(s.alerts))
	for id, a := range s.alerts {
		cp := *a
		out[id] = &cp
	}
	return out
}

func (s *AlertStore) Restore(data map[string]*Alert) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.alerts = make(map[string]*Alert, len(data))
	for id, a := range data {
		cp := *a
		s.alerts[id] = &cp
	}
}
