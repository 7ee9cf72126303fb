package models

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"time"
)

// Alert is created by the user-facing layer; the evaluator only writes
// LastFiredAt/LastFiredPrice, and only through AlertStore.MarkFired.
type Alert struct {
	ID               string     `json:"id"`
	ProductID        string     `json:"product_id"`
	UserID           string     `json:"user_id"`
	TargetPriceMinor int64      `json:"target_price_minor"`
	Active           bool       `json:"active"`
	LastFiredAt      *time.Time `json:"last_fired_at,omitempty"`
	LastFiredPrice   *int64     `json:"last_fired_price,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
}

// FireIntent is the durable "notify now" decision for one alert and one
// triggering price point.
type FireIntent struct {
	AlertID    string    `json:"alert_id"`
	ProductID  string    `json:"product_id"`
	UserID     string    `json:"user_id"`
	PriceMinor int64     `json:"price_minor"`
	Currency   string    `json:"currency"`
	ObservedAt time.Time `json:"observed_at"`
}

// AlertID is deterministic over (product, user, target) so re-submitting
// the same alert is idempotent.
func AlertID(productID, userID string, targetPriceMinor int64) string {
	sum := md5.Sum([]byte(fmt.Sprintf("%s|%s|%d", productID, userID, targetPriceMinor)))
	return "ALR-" + hex.EncodeToString(sum[:8])
}
