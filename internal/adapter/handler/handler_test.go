package handler

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rl1809/inventory-pos/internal/adapter/storage"
	"github.com/rl1809/inventory-pos/internal/core/domain"
	"github.com/rl1809/inventory-pos/internal/core/service"
)

type testEnv struct {
	store     *storage.MemoryStore
	sales     *service.SaleService
	stats     *service.StatsService
	catalog   *service.CatalogService
	directory *service.DirectoryService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store := storage.NewMemoryStore()
	cache := storage.NewMemoryCache(time.Minute)
	logger := zap.NewNop()

	env := &testEnv{
		store:     store,
		sales:     service.NewSaleService(store, cache, service.DefaultSaleOptions(), logger),
		stats:     service.NewStatsService(store, cache, 0, logger),
		catalog:   service.NewCatalogService(store, cache, 0, logger),
		directory: service.NewDirectoryService(store, store, cache, logger),
	}

	ctx := context.Background()
	require.NoError(t, store.CreateCustomer(ctx, domain.Customer{
		ID: "cust-1", Name: "John Customer", Email: "customer@example.com", CreatedAt: time.Now().UTC(),
	}))
	require.NoError(t, store.CreateItem(ctx, domain.StockItem{
		ID: "laptop", Name: "Laptop Dell XPS 15", Quantity: 25, Category: "Electronics",
		Price: decimal.RequireFromString("1299.99"), UpdatedAt: time.Now().UTC(),
	}))
	require.NoError(t, store.CreateItem(ctx, domain.StockItem{
		ID: "hub", Name: "USB-C Hub", Quantity: 5, Category: "Electronics",
		Price: decimal.RequireFromString("79.99"), UpdatedAt: time.Now().UTC(),
	}))
	return env
}
