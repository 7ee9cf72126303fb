package tracker

import (
	"context"
	"regexp"
	"strings"
)

// Marketing filler that hurts search recall when left in the query.
var fillerWords = map[string]bool{
	"with": true, "and": true, "for": true, "the": true, "of": true,
	"pack": true, "combo": true, "offer": true, "sale": true, "new": true,
	"latest": true, "best": true, "original": true, "genuine": true,
	"free": true, "deal": true, "edition": true,
}

var parentheticalRe = regexp.MustCompile(`[(\[][^)\]]*[)\]]`)
var nonWordRe = regexp.MustCompile(`[^a-z0-9+]+`)

const maxQueryKeywords = 6

// SearchQueryFor builds a comparison search query from a listing title,
// via the AI keyword capability when available, falling back to
// rule-based trimming otherwise.
func SearchQueryFor(ctx context.Context, ai AIExtractor, title, brand string) string {
	if ai != nil {
		if keywords, err := ai.ExtractKeywords(ctx, title); err == nil {
			return strings.Join(keywords, " ")
		}
	}
	return ruleBasedQuery(title, brand)
}

// ruleBasedQuery strips parentheticals and filler and keeps the leading
// tokens; product titles front-load the identifying words.
func ruleBasedQuery(title, brand string) string {
	cleaned := parentheticalRe.ReplaceAllString(strings.ToLower(title), " ")

	keywords := make([]string, 0, maxQueryKeywords)
	seen := map[string]bool{}
	if brand != "" {
		b := strings.ToLower(brand)
		keywords = append(keywords, b)
		seen[b] = true
	}

	for _, token := range strings.Fields(cleaned) {
		token = nonWordRe.ReplaceAllString(token, "")
		if token == "" || len(token) < 2 || fillerWords[token] || seen[token] {
			continue
		}
		keywords = append(keywords, token)
		seen[token] = true
		if len(keywords) >= maxQueryKeywords {
			break
		}
	}
	return strings.Join(keywords, " ")
}
