package tracker

import (
	"sort"
	"strings"

	"pricewatch/internal/models"
)

// Matching weights and the acceptance floor. Title similarity dominates;
// the price band mostly filters out accessories and multi-packs that share
// the title words.
const (
	weightTitle   = 0.5
	weightBrand   = 0.2
	weightPrice   = 0.3
	matchFloor    = 0.35
	priceBandFull = 0.2
	priceBandZero = 0.6
	priceBandMiss = 0.5
)

// Cross-platform preference order for tie-breaking.
var platformRank = map[string]int{"amazon": 0, "flipkart": 1, "meesho": 2}

type Matcher struct{}

func NewMatcher() *Matcher { return &Matcher{} }

// Score rates how likely a search candidate is the same product as the
// reference listing, in [0,1].
func (m *Matcher) Score(ref *models.ExtractedListing, cand *models.CandidateRaw) float64 {
	score := weightTitle * titleSimilarity(ref.Title, cand.Title)

	if ref.Brand != "" && cand.Brand != "" && strings.EqualFold(ref.Brand, cand.Brand) {
		score += weightBrand
	}

	score += weightPrice * priceBandScore(ref.PriceMinor, cand.PriceMinor)
	return score
}

// priceBandScore is 1 within ±20% of the reference, falls linearly to 0 at
// ±60%, and is neutral when the candidate carries no price.
func priceBandScore(ref, cand int64) float64 {
	if ref <= 0 || cand <= 0 {
		return priceBandMiss
	}
	diff := float64(cand-ref) / float64(ref)
	if diff < 0 {
		diff = -diff
	}
	switch {
	case diff <= priceBandFull:
		return 1
	case diff >= priceBandZero:
		return 0
	}
	return 1 - (diff-priceBandFull)/(priceBandZero-priceBandFull)
}

// titleSimilarity is token overlap (Jaccard) over normalized words.
func titleSimilarity(a, b string) float64 {
	ta := titleTokens(a)
	tb := titleTokens(b)
	if len(ta) == 0 || len(tb) == 0 {
		return 0
	}

	intersection := 0
	for token := range ta {
		if tb[token] {
			intersection++
		}
	}
	union := len(ta) + len(tb) - intersection
	return float64(intersection) / float64(union)
}

func titleTokens(title string) map[string]bool {
	out := map[string]bool{}
	for _, token := range strings.Fields(strings.ToLower(title)) {
		token = nonWordRe.ReplaceAllString(token, "")
		if len(token) < 2 {
			continue
		}
		out[token] = true
	}
	return out
}

// SelectCandidates scores raw candidates against the reference, drops
// anything below the floor, keeps the best hit per platform and returns
// at most limit of them in preference order.
func (m *Matcher) SelectCandidates(ref *models.ExtractedListing, raws []models.CandidateRaw, limit int) []models.CandidateListing {
	bestPerPlatform := map[string]models.CandidateListing{}

	for i := range raws {
		raw := raws[i]
		score := m.Score(ref, &raw)
		if score < matchFloor {
			continue
		}

		cand := models.CandidateListing{
			Platform: raw.Platform,
			URL:      raw.URL,
			Listing: models.ExtractedListing{
				Title:        raw.Title,
				Brand:        raw.Brand,
				PriceMinor:   raw.PriceMinor,
				Currency:     raw.Currency,
				Availability: raw.Availability,
				ImageURL:     raw.ImageURL,
			},
			MatchScore: score,
		}

		current, exists := bestPerPlatform[raw.Platform]
		if !exists || better(cand, current) {
			bestPerPlatform[raw.Platform] = cand
		}
	}

	picked := make([]models.CandidateListing, 0, len(bestPerPlatform))
	for _, cand := range bestPerPlatform {
		picked = append(picked, cand)
	}

	sort.Slice(picked, func(i, j int) bool { return better(picked[i], picked[j]) })
	if limit > 0 && len(picked) > limit {
		picked = picked[:limit]
	}
	return picked
}

// better orders candidates by score, then availability, then platform
// preference, then lower price.
func better(a, b models.CandidateListing) bool {
	if a.MatchScore != b.MatchScore {
		return a.MatchScore > b.MatchScore
	}
	aStock := a.Listing.Availability == models.AvailabilityInStock
	bStock := b.Listing.Availability == models.AvailabilityInStock
	if aStock != bStock {
		return aStock
	}
	ar, aKnown := platformRank[a.Platform]
	br, bKnown := platformRank[b.Platform]
	if aKnown != bKnown {
		return aKnown
	}
	if aKnown && ar != br {
		return ar < br
	}
	if a.Listing.PriceMinor > 0 && b.Listing.PriceMinor > 0 && a.Listing.PriceMinor != b.Listing.PriceMinor {
		return a.Listing.PriceMinor < b.Listing.PriceMinor
	}
	return a.URL < b.URL
}
