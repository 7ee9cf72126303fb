package tracker

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pricewatch/internal/models"
)

func refListing() *models.ExtractedListing {
	return &models.ExtractedListing{
		Title:      "Acme Widget Pro 2000 Stainless Steel",
		Brand:      "Acme",
		PriceMinor: 10000,
		Currency:   "USD",
	}
}

func TestScore_IdenticalCandidate(t *testing.T) {
	m := NewMatcher()
	cand := &models.CandidateRaw{
		Title:      "Acme Widget Pro 2000 Stainless Steel",
		Brand:      "Acme",
		PriceMinor: 10000,
	}
	assert.InDelta(t, 1.0, m.Score(refListing(), cand), 0.001)
}

func TestScore_UnrelatedCandidateBelowFloor(t *testing.T) {
	m := NewMatcher()
	cand := &models.CandidateRaw{
		Title:      "Garden Hose 25ft",
		PriceMinor: 9900,
	}
	assert.Less(t, m.Score(refListing(), cand), matchFloor)
}

func TestPriceBandScore(t *testing.T) {
	// Full credit inside ±20%.
	assert.Equal(t, 1.0, priceBandScore(10000, 11000))
	assert.Equal(t, 1.0, priceBandScore(10000, 8000))
	// Zero at or beyond ±60%.
	assert.Equal(t, 0.0, priceBandScore(10000, 16000))
	assert.Equal(t, 0.0, priceBandScore(10000, 25000))
	// Linear in between: 40% off is halfway through the band.
	assert.InDelta(t, 0.5, priceBandScore(10000, 14000), 0.001)
	// Missing price is neutral, not disqualifying.
	assert.Equal(t, priceBandMiss, priceBandScore(10000, 0))
}

func TestSelectCandidates_FloorAndPlatformCap(t *testing.T) {
	m := NewMatcher()
	raws := []models.CandidateRaw{
		{Platform: "flipkart", URL: "https://flipkart.com/a", Title: "Acme Widget Pro 2000 Stainless Steel", Brand: "Acme", PriceMinor: 9800},
		{Platform: "flipkart", URL: "https://flipkart.com/b", Title: "Acme Widget Pro 2000", PriceMinor: 10000},
		{Platform: "meesho", URL: "https://meesho.com/c", Title: "Acme Widget Pro 2000 Stainless Steel", PriceMinor: 9000},
		{Platform: "ebay", URL: "https://ebay.com/d", Title: "Totally Different Gadget", PriceMinor: 500},
	}

	picked := m.SelectCandidates(refListing(), raws, 3)
	require.Len(t, picked, 2)

	platforms := []string{picked[0].Platform, picked[1].Platform}
	assert.Contains(t, platforms, "flipkart")
	assert.Contains(t, platforms, "meesho")
	// Best flipkart hit wins its platform slot.
	for _, c := range picked {
		if c.Platform == "flipkart" {
			assert.Equal(t, "https://flipkart.com/a", c.URL)
		}
	}
}

func TestSelectCandidates_Limit(t *testing.T) {
	m := NewMatcher()
	raws := []models.CandidateRaw{
		{Platform: "amazon", URL: "https://amazon.com/a", Title: "Acme Widget Pro 2000 Stainless Steel", Brand: "Acme", PriceMinor: 10000},
		{Platform: "flipkart", URL: "https://flipkart.com/b", Title: "Acme Widget Pro 2000 Stainless Steel", Brand: "Acme", PriceMinor: 10000},
		{Platform: "meesho", URL: "https://meesho.com/c", Title: "Acme Widget Pro 2000 Stainless Steel", Brand: "Acme", PriceMinor: 10000},
		{Platform: "ebay", URL: "https://ebay.com/d", Title: "Acme Widget Pro 2000 Stainless Steel", Brand: "Acme", PriceMinor: 10000},
	}

	picked := m.SelectCandidates(refListing(), raws, 3)
	require.Len(t, picked, 3)
	// Equal scores fall back to platform preference.
	assert.Equal(t, "amazon", picked[0].Platform)
	assert.Equal(t, "flipkart", picked[1].Platform)
	assert.Equal(t, "meesho", picked[2].Platform)
}

func TestBetter_TieBreaks(t *testing.T) {
	inStock := models.CandidateListing{
		Platform:   "ebay",
		MatchScore: 0.8,
		Listing:    models.ExtractedListing{Availability: models.AvailabilityInStock, PriceMinor: 1000},
	}
	unknown := models.CandidateListing{
		Platform:   "amazon",
		MatchScore: 0.8,
		Listing:    models.ExtractedListing{Availability: models.AvailabilityUnknown, PriceMinor: 900},
	}
	// Availability beats platform preference and price.
	assert.True(t, better(inStock, unknown))
	assert.False(t, better(unknown, inStock))
}

func TestTitleSimilarity(t *testing.T) {
	assert.Equal(t, 1.0, titleSimilarity("Acme Widget", "acme widget"))
	assert.Equal(t, 0.0, titleSimilarity("Acme Widget", "Garden Hose"))
	assert.Equal(t, 0.0, titleSimilarity("", "anything"))
}
