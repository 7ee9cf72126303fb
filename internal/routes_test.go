package internal

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pricewatch/internal/controllers"
	"pricewatch/internal/models"
	"pricewatch/internal/providers"
	"pricewatch/internal/services"
	"pricewatch/internal/structures"
)

// --- minimal mocks for routes test ---

type routeTestLogger struct{}

func (m *routeTestLogger) Errorf(_ providers.TypeEnum, _ string, _ ...interface{}) {}
func (m *routeTestLogger) Warnf(_ providers.TypeEnum, _ string, _ ...interface{})  {}
func (m *routeTestLogger) Debugf(_ providers.TypeEnum, _ string, _ ...interface{}) {}
func (m *routeTestLogger) Infof(_ providers.TypeEnum, _ string, _ ...interface{})  {}
func (m *routeTestLogger) Fatalf(_ providers.TypeEnum, _ string, _ ...interface{}) {}
func (m *routeTestLogger) Close()                                                  {}

type routeTestCache struct{}

func (m *routeTestCache) Get(_ string) ([]byte, bool) { return nil, false }
func (m *routeTestCache) Set(_ string, _ []byte)      {}

type routeTestScheduler struct{}

func (m *routeTestScheduler) Init()            {}
func (m *routeTestScheduler) Stop()            {}
func (m *routeTestScheduler) Restore() error   { return nil }
func (m *routeTestScheduler) Persist() error   { return nil }
func (m *routeTestScheduler) RunDueRefreshes() {}
func (m *routeTestScheduler) RefreshProduct(_ context.Context, _ string) error { return nil }
func (m *routeTestScheduler) RunComparison(_ context.Context, _ string) error  { return nil }

func routesTestController() *controllers.ApiController {
	conf := &structures.Config{
		Scheduler: structures.SchedulerConfig{
			BaseCheckInterval: time.Hour,
			MaxBackoff:        24 * time.Hour,
			BackoffCeiling:    6,
			DormantThreshold:  12,
		},
	}
	service := services.NewTrackerService(conf, models.NewMemoryHistoryStore(0))
	return controllers.NewApiController(&routeTestLogger{}, service, &routeTestCache{}, &routeTestScheduler{})
}

func TestInitRoutes_RegistersAllRoutes(t *testing.T) {
	router := InitRoutes(routesTestController(), &structures.Config{})
	routes := router.GetRoutes()

	require.Len(t, routes, 10)

	urls := make([]string, len(routes))
	for i, r := range routes {
		urls[i] = r.Url
	}

	assert.Contains(t, urls, "/track")
	assert.Contains(t, urls, "/refresh")
	assert.Contains(t, urls, "/products")
	assert.Contains(t, urls, "/product")
	assert.Contains(t, urls, "/prices")
	assert.Contains(t, urls, "/comparison")
	assert.Contains(t, urls, "/compare")
	assert.Contains(t, urls, "/alerts")
	assert.Contains(t, urls, "/alerts/reset")
	assert.Contains(t, urls, "/degraded")
}

func TestInitRoutes_MethodEnforcement(t *testing.T) {
	router := InitRoutes(routesTestController(), &structures.Config{})

	mux := http.NewServeMux()
	for _, r := range router.GetRoutes() {
		mux.Handle(r.Url, r.Handler)
	}

	// GET-only route rejects POST.
	req := httptest.NewRequest(http.MethodPost, "/products", nil)
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)

	// POST-only route rejects GET.
	req = httptest.NewRequest(http.MethodGet, "/track", nil)
	rr = httptest.NewRecorder()
	mux.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
}
