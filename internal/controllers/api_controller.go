package controllers

import (
	"net/http"
	"time"

	json "github.com/goccy/go-json"
	"pricewatch/internal/models"
	"pricewatch/internal/providers"
	"pricewatch/internal/services"
	"pricewatch/internal/tracker/interfaces"
)

const maxRequestBodySize = 1 << 20 // 1 MB

type ApiController struct {
	logger    providers.Logger
	service   services.TrackerServiceInterface
	cache     providers.CacheProviderInterface
	scheduler interfaces.SchedulerInterface
}

func NewApiController(logger providers.Logger, service services.TrackerServiceInterface, cache providers.CacheProviderInterface, scheduler interfaces.SchedulerInterface) *ApiController {
	return &ApiController{
		logger:    logger,
		service:   service,
		cache:     cache,
		scheduler: scheduler,
	}
}

func (ac *ApiController) serveFromCacheOrCompute(w http.ResponseWriter, cacheKey string, compute func() (any, error)) {
	if data, ok := ac.cache.Get(cacheKey); ok {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(data)
		return
	}

	result, err := compute()
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	gson, err := json.Marshal(result)
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	ac.cache.Set(cacheKey, gson)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(gson)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	gson, err := json.Marshal(payload)
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(gson)
}

type trackRequest struct {
	URL               string        `json:"url"`
	CheckIntervalHint time.Duration `json:"check_interval_hint,omitempty"`
	UserID            string        `json:"user_id,omitempty"`
	TargetPriceMinor  int64         `json:"target_price_minor,omitempty"`
}

// TrackProduct registers a URL and runs the first refresh inline, so the
// response already carries the initial listing when the source
// cooperates. A user and target price in the same request also register
// a price-drop alert.
func (ac *ApiController) TrackProduct(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	var payload trackRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil || payload.URL == "" {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	product, created := ac.service.TrackProduct(payload.URL, time.Now().UTC())
	if created && payload.CheckIntervalHint > 0 {
		_ = ac.service.Products().Update(product.ID, func(p *models.TrackedProduct) {
			p.CheckIntervalHint = payload.CheckIntervalHint
		})
	}

	if payload.UserID != "" && payload.TargetPriceMinor > 0 {
		id := models.AlertID(product.ID, payload.UserID, payload.TargetPriceMinor)
		if _, ok := ac.service.Alerts().Get(id); !ok {
			ac.service.Alerts().Put(&models.Alert{
				ID:               id,
				ProductID:        product.ID,
				UserID:           payload.UserID,
				TargetPriceMinor: payload.TargetPriceMinor,
				Active:           true,
				CreatedAt:        time.Now().UTC(),
			})
		}
	}

	if err := ac.scheduler.RefreshProduct(r.Context(), product.ID); err != nil {
		ac.logger.Warnf(providers.TypePost, "Initial refresh of %s failed: %s", product.ID, err)
	}

	product, _ = ac.service.GetProduct(product.ID)
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	writeJSON(w, status, product)
}

func (ac *ApiController) GetProduct(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")
	product, ok := ac.service.GetProduct(id)
	if !ok {
		http.Error(w, "Not Found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, product)
}

func (ac *ApiController) ListProducts(w http.ResponseWriter, r *http.Request) {
	ac.serveFromCacheOrCompute(w, "products", func() (any, error) {
		return ac.service.Products().List(), nil
	})
}

// GetPrices returns the price history for a product, optionally bounded
// by RFC 3339 "from"/"to" query parameters.
func (ac *ApiController) GetPrices(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")
	if _, ok := ac.service.GetProduct(id); !ok {
		http.Error(w, "Not Found", http.StatusNotFound)
		return
	}

	var from, to time.Time
	var err error
	if raw := r.URL.Query().Get("from"); raw != "" {
		if from, err = time.Parse(time.RFC3339, raw); err != nil {
			http.Error(w, "Bad Request", http.StatusBadRequest)
			return
		}
	}
	if raw := r.URL.Query().Get("to"); raw != "" {
		if to, err = time.Parse(time.RFC3339, raw); err != nil {
			http.Error(w, "Bad Request", http.StatusBadRequest)
			return
		}
	}

	cacheKey := "prices:" + id + ":" + r.URL.Query().Get("from") + ":" + r.URL.Query().Get("to")
	ctx := r.Context()
	ac.serveFromCacheOrCompute(w, cacheKey, func() (any, error) {
		return ac.service.History().Range(ctx, id, from, to)
	})
}

func (ac *ApiController) GetComparison(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")
	snap, ok := ac.service.GetComparison(id)
	if !ok {
		http.Error(w, "Not Found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

type compareRequest struct {
	ProductID string `json:"product_id"`
}

// RunComparison triggers a fresh cross-platform search and returns the
// rebuilt snapshot.
func (ac *ApiController) RunComparison(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	var payload compareRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil || payload.ProductID == "" {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	if err := ac.scheduler.RunComparison(r.Context(), payload.ProductID); err != nil {
		if err == models.ErrNotFound {
			http.Error(w, "Not Found", http.StatusNotFound)
			return
		}
		ac.logger.Errorf(providers.TypePost, "Comparison for %s failed: %s", payload.ProductID, err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	snap, _ := ac.service.GetComparison(payload.ProductID)
	writeJSON(w, http.StatusOK, snap)
}

type refreshRequest struct {
	ProductID string `json:"product_id"`
}

func (ac *ApiController) RefreshProduct(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	var payload refreshRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil || payload.ProductID == "" {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	if err := ac.scheduler.RefreshProduct(r.Context(), payload.ProductID); err != nil {
		if err == models.ErrNotFound {
			http.Error(w, "Not Found", http.StatusNotFound)
			return
		}
		ac.logger.Warnf(providers.TypePost, "Manual refresh of %s failed: %s", payload.ProductID, err)
	}

	product, ok := ac.service.GetProduct(payload.ProductID)
	if !ok {
		http.Error(w, "Not Found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, product)
}

type alertRequest struct {
	ProductID        string `json:"product_id"`
	UserID           string `json:"user_id"`
	TargetPriceMinor int64  `json:"target_price_minor"`
}

// CreateAlert registers a price-drop alert. The alert ID is derived from
// (product, user, target) so re-posting the same alert is a no-op.
func (ac *ApiController) CreateAlert(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	var payload alertRequest
	err := json.NewDecoder(r.Body).Decode(&payload)
	if err != nil || payload.ProductID == "" || payload.UserID == "" || payload.TargetPriceMinor <= 0 {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	if _, ok := ac.service.GetProduct(payload.ProductID); !ok {
		http.Error(w, "Not Found", http.StatusNotFound)
		return
	}

	id := models.AlertID(payload.ProductID, payload.UserID, payload.TargetPriceMinor)
	if existing, ok := ac.service.Alerts().Get(id); ok && existing.Active {
		writeJSON(w, http.StatusOK, existing)
		return
	}

	alert := &models.Alert{
		ID:               id,
		ProductID:        payload.ProductID,
		UserID:           payload.UserID,
		TargetPriceMinor: payload.TargetPriceMinor,
		Active:           true,
		CreatedAt:        time.Now().UTC(),
	}
	ac.service.Alerts().Put(alert)
	writeJSON(w, http.StatusCreated, alert)
}

type alertResetRequest struct {
	AlertID string `json:"alert_id"`
}

// ResetAlert clears an alert's fired state so it can fire again at any
// qualifying price.
func (ac *ApiController) ResetAlert(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	var payload alertResetRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil || payload.AlertID == "" {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	if !ac.service.Alerts().Reset(payload.AlertID) {
		http.Error(w, "Not Found", http.StatusNotFound)
		return
	}
	alert, _ := ac.service.Alerts().Get(payload.AlertID)
	writeJSON(w, http.StatusOK, alert)
}

// GetDegraded lists products with a non-zero failure streak, dormant ones
// included. This is the operator's view of sources going bad.
func (ac *ApiController) GetDegraded(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, ac.service.DegradedProducts())
}
