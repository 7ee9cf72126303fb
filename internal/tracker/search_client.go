package tracker

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-resty/resty/v2"
	json "github.com/goccy/go-json"
	"pricewatch/internal/models"
	"pricewatch/internal/structures"
)

// SearchClient finds candidate listings on other platforms for a query.
type SearchClient interface {
	Search(ctx context.Context, query string) ([]models.CandidateRaw, error)
}

type shoppingResult struct {
	Title          string  `json:"title"`
	Link           string  `json:"link"`
	Source         string  `json:"source"`
	Snippet        string  `json:"snippet"`
	Thumbnail      string  `json:"thumbnail"`
	ExtractedPrice float64 `json:"extracted_price"`
	Price          string  `json:"price"`
	Currency       string  `json:"currency"`
	InStock        *bool   `json:"in_stock"`
}

type searchResponse struct {
	ShoppingResults []shoppingResult `json:"shopping_results"`
}

// HTTPSearchClient queries a shopping-search endpoint (SerpAPI-style
// response shape).
type HTTPSearchClient struct {
	client   *resty.Client
	endpoint string
}

func NewHTTPSearchClient(conf *structures.Config) SearchClient {
	if conf.Search.Endpoint == "" {
		return nil
	}
	return &HTTPSearchClient{
		client:   resty.New().SetTimeout(conf.Search.Timeout),
		endpoint: conf.Search.Endpoint,
	}
}

func (c *HTTPSearchClient) Search(ctx context.Context, query string) ([]models.CandidateRaw, error) {
	resp, err := c.client.R().
		SetContext(ctx).
		SetQueryParam("q", query).
		Get(c.endpoint)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode() != 200 {
		return nil, fmt.Errorf("search endpoint returned status %d", resp.StatusCode())
	}

	var out searchResponse
	if err := json.Unmarshal(resp.Body(), &out); err != nil {
		return nil, fmt.Errorf("search endpoint returned invalid json: %w", err)
	}

	candidates := make([]models.CandidateRaw, 0, len(out.ShoppingResults))
	for _, r := range out.ShoppingResults {
		if r.Link == "" || r.Title == "" {
			continue
		}

		cand := models.CandidateRaw{
			Platform:     platformOf(r.Source, r.Link),
			URL:          r.Link,
			Title:        r.Title,
			Snippet:      r.Snippet,
			ImageURL:     r.Thumbnail,
			Availability: models.AvailabilityUnknown,
		}
		if r.InStock != nil {
			if *r.InStock {
				cand.Availability = models.AvailabilityInStock
			} else {
				cand.Availability = models.AvailabilityOutOfStock
			}
		}

		// Prefer the pre-extracted numeric price; fall back to parsing
		// the display string.
		switch {
		case r.ExtractedPrice > 0:
			currency := r.Currency
			if currency == "" {
				_, currency, _ = parsePrice(r.Price, "")
			}
			if currency != "" {
				cand.PriceMinor = int64(r.ExtractedPrice*pow10(models.CurrencyExponent(currency)) + 0.5)
				cand.Currency = currency
			}
		case r.Price != "":
			if minor, currency, ok := parsePrice(r.Price, r.Currency); ok {
				cand.PriceMinor = minor
				cand.Currency = currency
			}
		}

		candidates = append(candidates, cand)
	}
	return candidates, nil
}

func pow10(exp int) float64 {
	out := 1.0
	for i := 0; i < exp; i++ {
		out *= 10
	}
	return out
}

// platformOf normalizes the marketplace name from the result source or,
// failing that, the link host.
func platformOf(source, link string) string {
	s := strings.ToLower(source)
	host := models.SourceClass(link)
	for _, known := range []string{"amazon", "flipkart", "meesho", "mercadolivre", "ebay", "walmart"} {
		if strings.Contains(s, known) || strings.Contains(host, known) {
			return known
		}
	}
	if s != "" {
		return s
	}
	return host
}
