package analysis

import (
	"context"

	"github.com/rohithpranav45/storeiq/internal/domain/catalog"
	"github.com/rohithpranav45/storeiq/internal/domain/dashboard"
)

// AnalyzeRequest is the input to one remote scoring call.
type AnalyzeRequest struct {
	ProductID    catalog.ProductID
	StoreID      catalog.StoreID
	CustomTariff *float64
	CustomDemand *float64
}

// Client port: typed boundary to the remote analysis/dashboard/product/tariff
// service. Implementations validate responses and fail with the taxonomy in
// errors.go; no partial objects cross this boundary.
type Client interface {
	ListStores(ctx context.Context) ([]catalog.Store, error)
	ListProducts(ctx context.Context) ([]catalog.Product, error)
	DashboardStatuses(ctx context.Context) (dashboard.StatusMap, error)
	TariffTable(ctx context.Context) (catalog.TariffTable, error)
	Analyze(ctx context.Context, req AnalyzeRequest) (*Result, []byte, error)
}

// HistoryRepository port for the analysis-run audit trail.
type HistoryRepository interface {
	Save(ctx context.Context, r *Run) error
	Paginate(ctx context.Context, operator string, page, pageSize int) ([]*Run, error)
	Count(ctx context.Context, operator string) (int64, error)
}

// SnapshotStore port: archives the raw analyze response for a run.
type SnapshotStore interface {
	Put(ctx context.Context, key string, body []byte) (string, error)
}
