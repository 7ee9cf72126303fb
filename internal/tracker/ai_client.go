package tracker

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-resty/resty/v2"
	json "github.com/goccy/go-json"
	"pricewatch/internal/models"
	"pricewatch/internal/structures"
)

// AIExtractor is the structured-output model capability behind the
// deterministic ladder. Implementations must return validated fields or
// an error; callers never trust free text.
type AIExtractor interface {
	ExtractListing(ctx context.Context, doc *models.RawDocument) (*models.ExtractedListing, error)
	ExtractKeywords(ctx context.Context, title string) ([]string, error)
}

var ErrAIDisabled = errors.New("ai extraction disabled")

type aiExtractRequest struct {
	Task    string `json:"task"`
	URL     string `json:"url,omitempty"`
	Content string `json:"content,omitempty"`
	Title   string `json:"title,omitempty"`
}

type aiExtractResponse struct {
	Title        string   `json:"title"`
	Brand        string   `json:"brand"`
	PriceMinor   int64    `json:"price_minor"`
	Currency     string   `json:"currency"`
	Availability string   `json:"availability"`
	ImageURL     string   `json:"image_url"`
	Confidence   float64  `json:"confidence"`
	Keywords     []string `json:"keywords"`
}

// AIClient talks to an external structured-extraction endpoint. The page
// body is truncated before sending; prices live near the top of product
// pages and full documents blow the model context.
type AIClient struct {
	client   *resty.Client
	endpoint string
	maxChars int
}

func NewAIClient(conf *structures.Config) AIExtractor {
	if conf.Extractor.AIEndpoint == "" {
		return nil
	}
	return &AIClient{
		client:   resty.New().SetTimeout(conf.Extractor.AITimeout),
		endpoint: conf.Extractor.AIEndpoint,
		maxChars: conf.Extractor.MaxDocumentChars,
	}
}

func (c *AIClient) call(ctx context.Context, req aiExtractRequest) (*aiExtractResponse, error) {
	resp, err := c.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(req).
		Post(c.endpoint)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode() != 200 {
		return nil, fmt.Errorf("ai endpoint returned status %d", resp.StatusCode())
	}

	var out aiExtractResponse
	if err := json.Unmarshal(resp.Body(), &out); err != nil {
		return nil, fmt.Errorf("ai endpoint returned invalid json: %w", err)
	}
	return &out, nil
}

func (c *AIClient) ExtractListing(ctx context.Context, doc *models.RawDocument) (*models.ExtractedListing, error) {
	content := string(doc.Body)
	if c.maxChars > 0 && len(content) > c.maxChars {
		content = content[:c.maxChars]
	}

	out, err := c.call(ctx, aiExtractRequest{Task: "listing", URL: doc.SourceURL, Content: content})
	if err != nil {
		return nil, err
	}

	availability := models.Availability(out.Availability)
	switch availability {
	case models.AvailabilityInStock, models.AvailabilityOutOfStock:
	default:
		availability = models.AvailabilityUnknown
	}

	return &models.ExtractedListing{
		Title:        out.Title,
		Brand:        out.Brand,
		PriceMinor:   out.PriceMinor,
		Currency:     out.Currency,
		Availability: availability,
		ImageURL:     out.ImageURL,
		Confidence:   out.Confidence,
		Method:       models.MethodAIAssisted,
		ExtractedAt:  doc.FetchedAt,
	}, nil
}

func (c *AIClient) ExtractKeywords(ctx context.Context, title string) ([]string, error) {
	out, err := c.call(ctx, aiExtractRequest{Task: "keywords", Title: title})
	if err != nil {
		return nil, err
	}
	if len(out.Keywords) == 0 {
		return nil, errors.New("ai endpoint returned no keywords")
	}
	return out.Keywords, nil
}
