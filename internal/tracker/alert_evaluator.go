package tracker

import (
	"context"
	"fmt"

	"github.com/go-resty/resty/v2"
	"pricewatch/internal/models"
	"pricewatch/internal/providers"
	"pricewatch/internal/services"
	"pricewatch/internal/structures"
)

// Notifier delivers a fired alert. Delivery is best-effort; the fired
// state is recorded before delivery and never rolled back.
type Notifier interface {
	Notify(ctx context.Context, intent models.FireIntent) error
}

type AlertEvaluator struct {
	service  services.TrackerServiceInterface
	notifier Notifier
	logger   providers.Logger
	metrics  providers.MetricsProviderInterface
}

func NewAlertEvaluator(service services.TrackerServiceInterface, notifier Notifier, logger providers.Logger, metrics providers.MetricsProviderInterface) *AlertEvaluator {
	return &AlertEvaluator{service: service, notifier: notifier, logger: logger, metrics: metrics}
}

// Evaluate runs every active alert on the product against a new price
// point. The store's mark-then-notify ordering makes firing at-most-once
// per point and monotone per alert: an alert re-fires only on a price
// strictly below the one it last fired at.
func (e *AlertEvaluator) Evaluate(ctx context.Context, point models.PricePoint) {
	for _, alert := range e.service.Alerts().ActiveForProduct(point.ProductID) {
		if point.PriceMinor > alert.TargetPriceMinor {
			continue
		}
		if !e.service.Alerts().MarkFired(alert.ID, point.ObservedAt, point.PriceMinor) {
			continue
		}

		e.metrics.IncAlertsFired()
		e.logger.Infof(providers.TypeAlert, "Alert %s fired for product %s at %d %s (target %d)",
			alert.ID, point.ProductID, point.PriceMinor, point.Currency, alert.TargetPriceMinor)

		intent := models.FireIntent{
			AlertID:    alert.ID,
			ProductID:  point.ProductID,
			UserID:     alert.UserID,
			PriceMinor: point.PriceMinor,
			Currency:   point.Currency,
			ObservedAt: point.ObservedAt,
		}
		if err := e.notifier.Notify(ctx, intent); err != nil {
			// Fired state stands; the user misses one delivery rather
			// than getting duplicates on every later cycle.
			e.logger.Errorf(providers.TypeAlert, "Alert %s delivery failed: %s", alert.ID, err)
		}
	}
}

// WebhookNotifier posts fire intents to a configured webhook.
type WebhookNotifier struct {
	client *resty.Client
	url    string
}

func NewNotifier(conf *structures.Config, logger providers.Logger) Notifier {
	if conf.Alerts.WebhookURL == "" {
		return &LogNotifier{logger: logger}
	}
	return &WebhookNotifier{
		client: resty.New().SetTimeout(conf.Alerts.WebhookTimeout),
		url:    conf.Alerts.WebhookURL,
	}
}

func (n *WebhookNotifier) Notify(ctx context.Context, intent models.FireIntent) error {
	resp, err := n.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(intent).
		Post(n.url)
	if err != nil {
		return err
	}
	if resp.StatusCode() >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode())
	}
	return nil
}

// LogNotifier is the delivery sink when no webhook is configured.
type LogNotifier struct {
	logger providers.Logger
}

func (n *LogNotifier) Notify(_ context.Context, intent models.FireIntent) error {
	n.logger.Infof(providers.TypeAlert, "Price drop for user %s: product %s now at %d %s",
		intent.UserID, intent.ProductID, intent.PriceMinor, intent.Currency)
	return nil
}
