package models

import "time"

// PricePoint is one observation in a product's append-only history,
// keyed by (ProductID, ObservedAt).
type PricePoint struct {
	ProductID  string    `json:"product_id"`
	ObservedAt time.Time `json:"observed_at"`
	PriceMinor int64     `json:"price_minor"`
	Currency   string    `json:"currency"`
}
