package models

import (
	"errors"
	"sync"
)

var ErrNotFound = errors.New("not found")

// ProductStore holds tracked products behind an RWMutex. Reads return
// copies; mutation goes through Update so pipeline writes stay atomic.
type ProductStore struct {
	mu       sync.RWMutex
	products map[string]*TrackedProduct
}

func NewProductStore() *ProductStore {
	return &ProductStore{products: make(map[string]*TrackedProduct)}
}

func (s *ProductStore) Put(p *TrackedProduct) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *p
	s.products[p.ID] = &cp
}

func (s *ProductStore) Get(id string) (TrackedProduct, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.products[id]
	if !ok {
		return TrackedProduct{}, false
	}
	return *p, true
}

func (s *ProductStore) Update(id string, fn func(*TrackedProduct)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[id]
	if !ok {
		return ErrNotFound
	}
	fn(p)
	return nil
}

// List returns copies of all non-removed products.
func (s *ProductStore) List() []TrackedProduct {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]TrackedProduct, 0, len(s.products))
	for _, p := range s.products {
		if p.Removed {
			continue
		}
		out = append(out, *p)
	}
	return out
}

// Remove soft-removes a product; history and alert references keep the
// record recoverable.
func (s *ProductStore) Remove(id string) error {
	return s.Update(id, func(p *TrackedProduct) { p.Removed = true })
}

func (s *ProductStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.products)
}

func (s *ProductStore) Snapshot() map[string]*TrackedProduct {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]*TrackedProduct, len(s.products))
	for id, p := range s.products {
		cp := *p
		out[id] = &cp
	}
	return out
}

func (s *ProductStore) Restore(data map[string]*TrackedProduct) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.products = make(map[string]*TrackedProduct, len(data))
	for id, p := range data {
		cp := *p
		s.products[id] = &cp
	}
}
