package tracker

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"pricewatch/internal/models"
	"pricewatch/internal/providers"
	"pricewatch/internal/structures"
)

// Confidence levels assigned by the deterministic ladder. Anything below
// the configured threshold triggers the AI fallback.
const (
	confidenceSourceRule = 0.95
	confidenceStructured = 0.8
	confidenceTextScan   = 0.4
)

type ExtractionError struct {
	URL    string
	Reason string
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extract %s: %s", e.URL, e.Reason)
}

// sourceRule is a per-source selector set. Rules are keyed by a substring
// of the source host so regional domains share one rule.
type sourceRule struct {
	title        string
	price        string
	brand        string
	image        string
	availability string
	currency     string
}

var sourceRules = map[string]sourceRule{
	"amazon.": {
		title:        "span#productTitle",
		price:        "span.a-price span.a-offscreen",
		brand:        "#bylineInfo",
		image:        "img#landingImage",
		availability: "#availability span",
	},
	"mercadolivre": {
		title:    "h1.ui-pdp-title",
		price:    ".ui-pdp-price__second-line .andes-money-amount__fraction, .andes-money-amount__fraction",
		image:    ".ui-pdp-gallery__figure img",
		currency: "BRL",
	},
	"flipkart": {
		title: "span.B_NuCI, h1._6EBuvT",
		price: "div._30jeq3, div.Nx9bqj",
	},
}

type Extractor struct {
	conf   *structures.Config
	logger providers.Logger
	ai     AIExtractor
}

func NewExtractor(conf *structures.Config, logger providers.Logger, ai AIExtractor) *Extractor {
	return &Extractor{conf: conf, logger: logger, ai: ai}
}

// Extract runs the deterministic ladder and falls back to the AI
// capability when the result is missing fields or below the confidence
// threshold. The AI never overrides a confident deterministic hit.
func (e *Extractor) Extract(ctx context.Context, doc *models.RawDocument) (*models.ExtractedListing, error) {
	gq, err := goquery.NewDocumentFromReader(bytes.NewReader(doc.Body))
	if err != nil {
		return nil, &ExtractionError{URL: doc.SourceURL, Reason: "unparseable document"}
	}

	listing := e.deterministic(doc, gq)
	reason, valid := validateListing(listing)

	if valid && listing.Confidence >= e.conf.Extractor.ConfidenceThreshold {
		return listing, nil
	}

	if e.ai != nil {
		aiListing, aiErr := e.ai.ExtractListing(ctx, doc)
		if aiErr != nil {
			e.logger.Warnf(providers.TypeFetch, "AI extraction failed for %s: %s", doc.SourceURL, aiErr)
		} else if _, ok := validateListing(aiListing); ok {
			aiListing.Method = models.MethodAIAssisted
			aiListing.ExtractedAt = doc.FetchedAt
			return aiListing, nil
		}
		// The fallback ran and came back with nothing usable. A
		// sub-threshold deterministic guess does not enter the history on
		// its own.
		return nil, &ExtractionError{URL: doc.SourceURL, Reason: "inconsistent"}
	}

	if valid {
		// No AI configured: a structurally sound listing is returned with
		// its low confidence attached for callers to judge.
		return listing, nil
	}
	return nil, &ExtractionError{URL: doc.SourceURL, Reason: reason}
}

func (e *Extractor) deterministic(doc *models.RawDocument, gq *goquery.Document) *models.ExtractedListing {
	listing := &models.ExtractedListing{
		Availability: models.AvailabilityUnknown,
		Method:       models.MethodDeterministic,
		ExtractedAt:  doc.FetchedAt,
	}

	if rule, ok := ruleFor(doc.Source); ok {
		applyRule(gq, rule, listing)
		if listing.Title != "" && listing.PriceMinor > 0 {
			listing.Confidence = confidenceSourceRule
			return listing
		}
	}

	if fillStructured(gq, listing) {
		listing.Confidence = confidenceStructured
		return listing
	}

	fillTextScan(gq, listing)
	listing.Confidence = confidenceTextScan
	return listing
}

func ruleFor(source string) (sourceRule, bool) {
	for key, rule := range sourceRules {
		if strings.Contains(source, key) {
			return rule, true
		}
	}
	return sourceRule{}, false
}

func applyRule(gq *goquery.Document, rule sourceRule, listing *models.ExtractedListing) {
	listing.Title = strings.TrimSpace(gq.Find(rule.title).First().Text())

	raw := strings.TrimSpace(gq.Find(rule.price).First().Text())
	if raw != "" {
		if minor, currency, ok := parsePrice(raw, rule.currency); ok {
			listing.PriceMinor = minor
			listing.Currency = currency
		}
	}

	if rule.brand != "" {
		listing.Brand = cleanBrand(gq.Find(rule.brand).First().Text())
	}
	if rule.image != "" {
		if src, ok := gq.Find(rule.image).First().Attr("src"); ok {
			listing.ImageURL = src
		}
	}
	if rule.availability != "" {
		listing.Availability = classifyAvailability(gq.Find(rule.availability).First().Text())
	}
}

// fillStructured reads machine-readable metadata: OpenGraph and product
// meta tags first, then JSON-LD product blocks.
func fillStructured(gq *goquery.Document, listing *models.ExtractedListing) bool {
	if listing.Title == "" {
		if title, ok := gq.Find(`meta[property="og:title"]`).First().Attr("content"); ok {
			listing.Title = strings.TrimSpace(title)
		}
	}
	if listing.Title == "" {
		listing.Title = strings.TrimSpace(gq.Find("h1").First().Text())
	}

	if listing.PriceMinor == 0 {
		amount, _ := gq.Find(`meta[property="product:price:amount"]`).First().Attr("content")
		if amount == "" {
			amount, _ = gq.Find(`[itemprop="price"]`).First().Attr("content")
		}
		currency, _ := gq.Find(`meta[property="product:price:currency"]`).First().Attr("content")
		if currency == "" {
			currency, _ = gq.Find(`[itemprop="priceCurrency"]`).First().Attr("content")
		}
		if amount != "" {
			if minor, cur, ok := parsePrice(amount, currency); ok {
				listing.PriceMinor = minor
				listing.Currency = cur
			}
		}
	}

	if listing.PriceMinor == 0 {
		fillFromJSONLD(gq, listing)
	}

	if listing.ImageURL == "" {
		if img, ok := gq.Find(`meta[property="og:image"]`).First().Attr("content"); ok {
			listing.ImageURL = img
		}
	}

	return listing.Title != "" && listing.PriceMinor > 0
}

var (
	ldPriceRe        = regexp.MustCompile(`"price"\s*:\s*"?([0-9][0-9.,]*)"?`)
	ldCurrencyRe     = regexp.MustCompile(`"priceCurrency"\s*:\s*"([A-Z]{3})"`)
	ldNameRe         = regexp.MustCompile(`"name"\s*:\s*"([^"]+)"`)
	ldBrandRe        = regexp.MustCompile(`"brand"\s*:\s*(?:\{[^}]*"name"\s*:\s*)?"([^"]+)"`)
	ldAvailabilityRe = regexp.MustCompile(`"availability"\s*:\s*"[^"]*/(InStock|OutOfStock)"`)
)

// fillFromJSONLD scans ld+json blocks with regexes instead of decoding;
// product pages routinely ship JSON-LD that is not valid JSON.
func fillFromJSONLD(gq *goquery.Document, listing *models.ExtractedListing) {
	gq.Find(`script[type="application/ld+json"]`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		text := s.Text()
		m := ldPriceRe.FindStringSubmatch(text)
		if m == nil {
			return true
		}

		currency := ""
		if cm := ldCurrencyRe.FindStringSubmatch(text); cm != nil {
			currency = cm[1]
		}
		minor, cur, ok := parsePrice(m[1], currency)
		if !ok {
			return true
		}
		listing.PriceMinor = minor
		listing.Currency = cur

		if listing.Title == "" {
			if nm := ldNameRe.FindStringSubmatch(text); nm != nil {
				listing.Title = nm[1]
			}
		}
		if listing.Brand == "" {
			if bm := ldBrandRe.FindStringSubmatch(text); bm != nil {
				listing.Brand = bm[1]
			}
		}
		if am := ldAvailabilityRe.FindStringSubmatch(text); am != nil {
			if am[1] == "InStock" {
				listing.Availability = models.AvailabilityInStock
			} else {
				listing.Availability = models.AvailabilityOutOfStock
			}
		}
		return false
	})
}

var textPriceRe = regexp.MustCompile(`(?:R\$|US\$|₹|€|£|¥|\$)\s*[0-9][0-9.,]*`)

// fillTextScan is the last rung: grab the first currency-looking token
// from the page text.
func fillTextScan(gq *goquery.Document, listing *models.ExtractedListing) {
	if listing.Title == "" {
		listing.Title = strings.TrimSpace(gq.Find("title").First().Text())
	}
	if listing.PriceMinor > 0 {
		return
	}
	body := gq.Find("body").Text()
	if m := textPriceRe.FindString(body); m != "" {
		if minor, currency, ok := parsePrice(m, ""); ok {
			listing.PriceMinor = minor
			listing.Currency = currency
		}
	}
}

func classifyAvailability(text string) models.Availability {
	lower := strings.ToLower(strings.TrimSpace(text))
	switch {
	case lower == "":
		return models.AvailabilityUnknown
	case strings.Contains(lower, "out of stock") || strings.Contains(lower, "unavailable"):
		return models.AvailabilityOutOfStock
	case strings.Contains(lower, "in stock") || strings.Contains(lower, "available"):
		return models.AvailabilityInStock
	}
	return models.AvailabilityUnknown
}

func cleanBrand(raw string) string {
	brand := strings.TrimSpace(raw)
	brand = strings.TrimPrefix(brand, "Brand:")
	brand = strings.TrimPrefix(brand, "Visit the ")
	brand = strings.TrimSuffix(brand, " Store")
	return strings.TrimSpace(brand)
}

// validateListing rejects observations that would poison the history:
// a listing needs a title, a positive price and a known currency.
func validateListing(listing *models.ExtractedListing) (string, bool) {
	if listing == nil {
		return "empty listing", false
	}
	switch {
	case listing.Title == "":
		return "missing title", false
	case listing.PriceMinor <= 0:
		return "missing price", false
	case !models.IsKnownCurrency(listing.Currency):
		return "unknown currency " + listing.Currency, false
	}
	return "", true
}
