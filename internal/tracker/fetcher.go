package tracker

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"pricewatch/internal/models"
	"pricewatch/internal/providers"
	"pricewatch/internal/structures"
)

type Fetcher interface {
	Fetch(ctx context.Context, sourceURL string) (*models.RawDocument, error)
}

type FetchErrorKind string

const (
	// FetchTransient: timeouts, connection errors, 429 and 5xx. Retried on
	// the next cycle with backoff.
	FetchTransient FetchErrorKind = "transient"
	// FetchPermanent: the listing is gone (404, 410) or the URL itself is
	// unusable. Never retried automatically.
	FetchPermanent FetchErrorKind = "permanent"
	// FetchBlocked: the source is refusing us (403, captcha walls). Counts
	// double toward the failure streak.
	FetchBlocked FetchErrorKind = "blocked"
)

type FetchError struct {
	Kind   FetchErrorKind
	URL    string
	Status int
	Err    error
}

func (e *FetchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("fetch %s: %s: %s", e.URL, e.Kind, e.Err)
	}
	return fmt.Sprintf("fetch %s: %s: status %d", e.URL, e.Kind, e.Status)
}

func (e *FetchError) Unwrap() error { return e.Err }

// HTTPFetcher fetches product pages with a shared resty client. A per-host
// reservation enforces the configured minimum spacing between requests to
// the same source even across concurrent workers.
type HTTPFetcher struct {
	client *resty.Client
	logger providers.Logger

	spacing  time.Duration
	hostMu   sync.Mutex
	nextSlot map[string]time.Time
}

func NewHTTPFetcher(conf *structures.Config, logger providers.Logger) Fetcher {
	client := resty.New().
		SetTimeout(conf.Sources.FetchTimeout).
		SetHeader("User-Agent", conf.Sources.UserAgent).
		SetHeader("Accept-Language", "en-US,en;q=0.9").
		SetRedirectPolicy(resty.FlexibleRedirectPolicy(5))

	return &HTTPFetcher{
		client:   client,
		logger:   logger,
		spacing:  conf.Sources.MinSpacing,
		nextSlot: make(map[string]time.Time),
	}
}

// reserve claims the next request slot for a host and returns how long the
// caller must wait before using it.
func (f *HTTPFetcher) reserve(host string) time.Duration {
	f.hostMu.Lock()
	defer f.hostMu.Unlock()

	now := time.Now()
	slot := f.nextSlot[host]
	if slot.Before(now) {
		slot = now
	}
	f.nextSlot[host] = slot.Add(f.spacing)
	return slot.Sub(now)
}

func (f *HTTPFetcher) Fetch(ctx context.Context, sourceURL string) (*models.RawDocument, error) {
	u, err := url.Parse(sourceURL)
	if err != nil {
		return nil, &FetchError{Kind: FetchPermanent, URL: sourceURL, Err: err}
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		// A URL we can never fetch is not a transient condition; retrying
		// it would only burn the backoff ladder.
		return nil, &FetchError{Kind: FetchPermanent, URL: sourceURL, Err: fmt.Errorf("unusable url")}
	}

	host := models.SourceClass(sourceURL)
	if wait := f.reserve(host); wait > 0 {
		f.logger.Debugf(providers.TypeFetch, "Spacing %s request by %s", host, wait)
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return nil, &FetchError{Kind: FetchTransient, URL: sourceURL, Err: ctx.Err()}
		}
	}

	resp, err := f.client.R().SetContext(ctx).Get(sourceURL)
	if err != nil {
		return nil, &FetchError{Kind: FetchTransient, URL: sourceURL, Err: err}
	}

	status := resp.StatusCode()

	switch {
	case status == 404 || status == 410:
		return nil, &FetchError{Kind: FetchPermanent, URL: sourceURL, Status: status}
	case status == 403:
		return nil, &FetchError{Kind: FetchBlocked, URL: sourceURL, Status: status}
	case status == 429 || status >= 500:
		return nil, &FetchError{Kind: FetchTransient, URL: sourceURL, Status: status}
	case status != 200:
		return nil, &FetchError{Kind: FetchTransient, URL: sourceURL, Status: status}
	}

	if looksLikeBotWall(resp.String()) {
		return nil, &FetchError{Kind: FetchBlocked, URL: sourceURL, Status: status}
	}

	return &models.RawDocument{
		SourceURL:   sourceURL,
		Source:      host,
		Body:        resp.Body(),
		ContentType: resp.Header().Get("Content-Type"),
		StatusCode:  status,
		FetchedAt:   time.Now().UTC(),
	}, nil
}

// looksLikeBotWall catches 200 responses that are really an anti-bot
// interstitial instead of the product page.
func looksLikeBotWall(body string) bool {
	if len(body) > 4096 {
		body = body[:4096]
	}
	lower := strings.ToLower(body)
	return strings.Contains(lower, "captcha") ||
		strings.Contains(lower, "robot check") ||
		strings.Contains(lower, "automated access")
}

// FetchKindOf classifies any error from Fetch; non-FetchError failures are
// treated as transient.
func FetchKindOf(err error) FetchErrorKind {
	if fe, ok := err.(*FetchError); ok {
		return fe.Kind
	}
	return FetchTransient
}
