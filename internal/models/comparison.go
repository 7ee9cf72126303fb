package models

import "time"

// CandidateRaw is what the cross-platform search capability returns before
// matching; prices may be missing (zero) when the snippet carried none.
type CandidateRaw struct {
	Platform     string       `json:"platform"`
	URL          string       `json:"url"`
	Title        string       `json:"title"`
	Brand        string       `json:"brand,omitempty"`
	Snippet      string       `json:"snippet,omitempty"`
	PriceMinor   int64        `json:"price_minor"`
	Currency     string       `json:"currency,omitempty"`
	ImageURL     string       `json:"image_url,omitempty"`
	Availability Availability `json:"availability,omitempty"`
}

type CandidateListing struct {
	Platform   string           `json:"platform"`
	URL        string           `json:"url"`
	Listing    ExtractedListing `json:"listing"`
	MatchScore float64          `json:"match_score"`
}

// ComparisonSnapshot is replaced wholesale on each comparison run; serving
// a stale one until then is fine.
type ComparisonSnapshot struct {
	ProductID   string             `json:"product_id"`
	GeneratedAt time.Time          `json:"generated_at"`
	Candidates  []CandidateListing `json:"candidates"`
}
