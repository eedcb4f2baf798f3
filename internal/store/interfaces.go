package store

import (
	"context"

	"norko-pos-edge/internal/model"
)

// Store defines durable keyed storage for mirror data, local sales, the
// pending-operation log, and settings. Implementations serialize write
// transactions against the same table; no partial sale is ever observable.
type Store interface {
	// Open prepares the store for use. It is idempotent: concurrent and
	// repeated callers share the same initialization result. A platform
	// refusal surfaces as ErrStorageUnavailable.
	Open(ctx context.Context) error

	// Mirror tables: replaced wholesale per pull, never merged.
	ReplaceProducts(ctx context.Context, products []model.Product) error
	ReplaceCategories(ctx context.Context, categories []model.Category) error
	ReplaceCustomers(ctx context.Context, customers []model.Customer) error

	// Filtered in-memory reads. No network access.
	Products(ctx context.Context, filter ProductFilter) ([]model.Product, error)
	Categories(ctx context.Context) ([]model.Category, error)
	Customers(ctx context.Context, filter CustomerFilter) ([]model.Customer, error)
	Sales(ctx context.Context, filter SaleFilter) ([]model.Sale, error)
	Sale(ctx context.Context, localID int64) (*model.Sale, error)

	// CreateSale atomically inserts the sale, its items, and a create_sale
	// pending operation referencing it. All three commit or none do; a
	// rejected write returns ErrWriteFailed. The assigned local id and
	// client_ref are written back into sale.
	CreateSale(ctx context.Context, sale *model.Sale) error

	// MarkSaleSynced records the server-assigned id and flips sync_status
	// to synced in one update.
	MarkSaleSynced(ctx context.Context, localID, serverID int64) error

	// Pending-operation log, drained only by the sync engine.
	AddPendingOperation(ctx context.Context, op *model.PendingOperation) error
	PendingOperations(ctx context.Context) ([]model.PendingOperation, error)
	RemovePendingOperation(ctx context.Context, id int64) error
	SetPendingRetryCount(ctx context.Context, id int64, retryCount int) error
	PendingCount(ctx context.Context) (int, error)

	// Settings, upserted by key.
	Setting(ctx context.Context, key string) (string, error)
	SetSetting(ctx context.Context, key, value string) error

	// Stats returns row counts and storage size for the health surface.
	Stats(ctx context.Context) (map[string]interface{}, error)

	// ClearAll empties every container.
	ClearAll(ctx context.Context) error

	// Close closes the store connection.
	Close() error
}
