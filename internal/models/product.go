package models

import (
	"crypto/md5"
	"encoding/hex"
	"net/url"
	"regexp"
	"strings"
	"time"
)

// TrackedProduct is mutated only by the refresh pipeline (CurrentListing,
// LastCheckedAt, FailureStreak, Dormant, LastFailure); everything else is
// read-only after creation.
type TrackedProduct struct {
	ID                string            `json:"id"`
	SourceURL         string            `json:"source_url"`
	Source            string            `json:"source"`
	CurrentListing    *ExtractedListing `json:"current_listing,omitempty"`
	LastCheckedAt     time.Time         `json:"last_checked_at"`
	CheckIntervalHint time.Duration     `json:"check_interval_hint,omitempty"`
	FailureStreak     int               `json:"failure_streak"`
	LastFailure       string            `json:"last_failure,omitempty"`
	Dormant           bool              `json:"dormant"`
	Removed           bool              `json:"removed"`
	CreatedAt         time.Time         `json:"created_at"`
}

var asinPattern = regexp.MustCompile(`/(?:dp|gp/product)/([A-Z0-9]{10})(?:[/?]|$)`)

// ProductIDFromURL derives a stable identity from the canonical source URL.
// Amazon item pages map to their ASIN so the same product tracked through
// different URL decorations collapses to one record.
func ProductIDFromURL(sourceURL string) string {
	if m := asinPattern.FindStringSubmatch(sourceURL); m != nil {
		return "AMZ-" + m[1]
	}
	sum := md5.Sum([]byte(sourceURL))
	return "URL-" + hex.EncodeToString(sum[:])
}

// SourceClass buckets a URL by host for politeness and per-source
// concurrency limits.
func SourceClass(sourceURL string) string {
	u, err := url.Parse(sourceURL)
	if err != nil || u.Hostname() == "" {
		return "unknown"
	}
	return strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
}
