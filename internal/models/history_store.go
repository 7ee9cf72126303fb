package models

import (
	"context"
	"sort"
	"sync"
	"time"
)

type AppendResult int

const (
	// AppendInserted: new point stored.
	AppendInserted AppendResult = iota
	// AppendDuplicate: same (product, observedAt, price) already stored.
	AppendDuplicate
	// AppendConflict: (product, observedAt) exists with a different price.
	// First write wins; callers log, the stored point is untouched.
	AppendConflict
)

// HistoryStore is the append-only per-product price series. Append is
// idempotent per (ProductID, ObservedAt); Range returns ascending order
// with no duplicates; Latest reflects the newest successfully appended
// point, inserts arriving out of order included.
// Zero from/to bounds mean unbounded on that side.
type HistoryStore interface {
	Append(ctx context.Context, point PricePoint) (AppendResult, error)
	Latest(ctx context.Context, productID string) (PricePoint, bool, error)
	Range(ctx context.Context, productID string, from, to time.Time) ([]PricePoint, error)
}

// MemoryHistoryStore keeps sorted per-product slices behind an RWMutex.
// Safe for concurrent writers on different products; the scheduler's
// single-in-flight guarantee covers same-product writers.
type MemoryHistoryStore struct {
	mu            sync.RWMutex
	points        map[string][]PricePoint
	maxPerProduct int
}

// NewMemoryHistoryStore creates an in-memory history. maxPerProduct <= 0
// means unbounded; otherwise the oldest points are dropped past the cap.
func NewMemoryHistoryStore(maxPerProduct int) *MemoryHistoryStore {
	return &MemoryHistoryStore{
		points:        make(map[string][]PricePoint),
		maxPerProduct: maxPerProduct,
	}
}

func (s *MemoryHistoryStore) Append(_ context.Context, point PricePoint) (AppendResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	series := s.points[point.ProductID]
	idx := sort.Search(len(series), func(i int) bool {
		return !series[i].ObservedAt.Before(point.ObservedAt)
	})
	if idx < len(series) && series[idx].ObservedAt.Equal(point.ObservedAt) {
		if series[idx].PriceMinor == point.PriceMinor && series[idx].Currency == point.Currency {
			return AppendDuplicate, nil
		}
		return AppendConflict, nil
	}

	series = append(series, PricePoint{})
	copy(series[idx+1:], series[idx:])
	series[idx] = point

	if s.maxPerProduct > 0 && len(series) > s.maxPerProduct {
		series = series[len(series)-s.maxPerProduct:]
	}
	s.points[point.ProductID] = series
	return AppendInserted, nil
}

func (s *MemoryHistoryStore) Latest(_ context.Context, productID string) (PricePoint, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	series := s.points[productID]
	if len(series) == 0 {
		return PricePoint{}, false, nil
	}
	return series[len(series)-1], true, nil
}

func (s *MemoryHistoryStore) Range(_ context.Context, productID string, from, to time.Time) ([]PricePoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	series := s.points[productID]

	out := make([]PricePoint, 0, len(series))
	for _, p := range series {
		if !from.IsZero() && p.ObservedAt.Before(from) {
			continue
		}
		if !to.IsZero() && p.ObservedAt.After(to) {
			break
		}
		out = append(out, p)
	}
	return out, nil
}

// Snapshot exports all series for the persistence snapshot.
func (s *MemoryHistoryStore) Snapshot() map[string][]PricePoint {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string][]PricePoint, len(s.points))
	for id, series := range s.points {
		cp := make([]PricePoint, len(series))
		copy(cp, series)
		out[id] = cp
	}
	return out
}

// Restore replaces all series from a persistence snapshot.
func (s *MemoryHistoryStore) Restore(data map[string][]PricePoint) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.points = make(map[string][]PricePoint, len(data))
	for id, series := range data {
		cp := make([]PricePoint, len(series))
		copy(cp, series)
		sort.Slice(cp, func(i, j int) bool { return cp[i].ObservedAt.Before(cp[j].ObservedAt) })
		s.points[id] = cp
	}
}

// HistorySnapshotter is implemented by history stores whose contents live
// in the engine snapshot file (the Postgres store keeps its own data).
type HistorySnapshotter interface {
	Snapshot() map[string][]PricePoint
	Restore(data map[string][]PricePoint)
}
