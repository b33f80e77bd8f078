package port

import (
	"context"
	"iter"

	"github.com/shopspring/decimal"

	"github.com/rl1809/inventory-pos/internal/core/domain"
)

type StockRepository interface {
	CreateItem(ctx context.Context, item domain.StockItem) error

	// GetItem returns *domain.NotFoundError for unknown ids.
	GetItem(ctx context.Context, id string) (*domain.StockItem, error)

	ListItems(ctx context.Context, filter domain.ItemFilter) ([]domain.StockItem, error)

	// UpdateItem applies patch atomically with respect to concurrent sales and
	// returns the updated item.
	UpdateItem(ctx context.Context, id string, patch domain.ItemPatch) (*domain.StockItem, error)

	DeleteItem(ctx context.Context, id string) error

	// Restock increases quantity by amount and returns the new quantity.
	Restock(ctx context.Context, id string, amount int) (int, error)

	Categories(ctx context.Context) ([]string, error)

	CountItems(ctx context.Context) (int, error)

	// CountLowStock counts items whose quantity is strictly below threshold.
	CountLowStock(ctx context.Context, threshold int) (int, error)
}

// LedgerRepository is read-only on purpose: entries are only ever written through SaleUnit.
type LedgerRepository interface {
	GetEntry(ctx context.Context, id string) (*domain.LedgerEntry, error)

	// Entries yields matching entries lazily. Ranging over the result again re-reads the store.
	Entries(ctx context.Context, filter domain.EntryFilter) iter.Seq2[domain.LedgerEntry, error]

	CountEntries(ctx context.Context) (int, error)

	TotalRevenue(ctx context.Context) (decimal.Decimal, error)
}

type DirectoryRepository interface {
	CreateCustomer(ctx context.Context, c domain.Customer) error
	GetCustomer(ctx context.Context, id string) (*domain.Customer, error)
	CountCustomers(ctx context.Context) (int, error)

	CreateStaff(ctx context.Context, s domain.Staff) error
	CountStaff(ctx context.Context) (int, error)
}

// SaleUnit is the write side of one atomic sale.
type SaleUnit interface {
	// TryDecrement subtracts amount only if the current quantity covers it, returning
	// the new quantity and the unit price read in the same step. Otherwise it returns
	// *domain.InsufficientStockError carrying the pre-decrement quantity.
	TryDecrement(ctx context.Context, itemID string, amount int) (int, decimal.Decimal, error)

	// AppendEntry assigns entry.ID and entry.CreatedAt and persists it.
	AppendEntry(ctx context.Context, entry *domain.LedgerEntry) error
}

type Store interface {
	StockRepository
	LedgerRepository
	DirectoryRepository

	// WithSale runs fn as one unit of work on itemID. If fn returns an error every
	// change made through the SaleUnit is discarded.
	WithSale(ctx context.Context, itemID string, fn func(SaleUnit) error) error

	Close() error
}
