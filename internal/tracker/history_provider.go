package tracker

import (
	"context"

	"pricewatch/internal/models"
	"pricewatch/internal/providers"
	"pricewatch/internal/structures"
)

// NewHistoryStore selects the price history backend. The memory store
// lives inside the engine snapshot file; Postgres keeps its own data and
// is the choice when several engine instances share a history.
func NewHistoryStore(conf *structures.Config, logger providers.Logger) (models.HistoryStore, error) {
	if conf.History.Driver == "postgres" {
		store, err := NewPgHistoryStore(context.Background(), conf.History.DSN)
		if err != nil {
			return nil, err
		}
		logger.Infof(providers.TypeApp, "Price history backed by Postgres")
		return store, nil
	}
	logger.Infof(providers.TypeApp, "Price history in memory, capped at %d points per product", conf.History.MaxPointsPerProduct)
	return models.NewMemoryHistoryStore(conf.History.MaxPointsPerProduct), nil
}
