package internal

import (
	"net/http"

	"pricewatch/internal/controllers"
	"pricewatch/internal/providers"
	"pricewatch/internal/structures"
)

func InitRoutes(apiController *controllers.ApiController, conf *structures.Config) providers.RouterProviderInterface {
	routers := providers.NewRouterProvider()

	routers.Post("/track", http.HandlerFunc(apiController.TrackProduct))
	routers.Post("/refresh", http.HandlerFunc(apiController.RefreshProduct))
	routers.Get("/products", http.HandlerFunc(apiController.ListProducts))
	routers.Get("/product", http.HandlerFunc(apiController.GetProduct))
	routers.Get("/prices", http.HandlerFunc(apiController.GetPrices))
	routers.Get("/comparison", http.HandlerFunc(apiController.GetComparison))
	routers.Post("/compare", http.HandlerFunc(apiController.RunComparison))
	routers.Post("/alerts", http.HandlerFunc(apiController.CreateAlert))
	routers.Post("/alerts/reset", http.HandlerFunc(apiController.ResetAlert))
	routers.Get("/degraded", http.HandlerFunc(apiController.GetDegraded))
	return routers
}
