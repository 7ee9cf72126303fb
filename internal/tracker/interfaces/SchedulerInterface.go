package interfaces

import "context"

type SchedulerInterface interface {
	Init()
	Stop()
	Restore() error
	Persist() error
	RunDueRefreshes()
	RefreshProduct(ctx context.Context, productID string) error
	RunComparison(ctx context.Context, productID string) error
}
