package service

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rl1809/inventory-pos/internal/adapter/storage"
	"github.com/rl1809/inventory-pos/internal/core/domain"
	"github.com/rl1809/inventory-pos/internal/port"
)

func ptr[T any](v T) *T { return &v }

func TestCatalog_CreateAndUpdate(t *testing.T) {
	stores(t, func(t *testing.T, store port.Store) {
		ctx := context.Background()
		svc := NewCatalogService(store, nil, 0, zap.NewNop())

		item, err := svc.CreateItem(ctx, domain.StockItem{
			Name:     "Keyboard",
			Quantity: 12,
			Category: "Electronics",
			Price:    decimal.RequireFromString("49.999"),
		})
		require.NoError(t, err)
		assert.NotEmpty(t, item.ID)
		assert.True(t, decimal.RequireFromString("50.00").Equal(item.Price))

		updated, err := svc.UpdateItem(ctx, item.ID, domain.ItemPatch{
			Quantity:    ptr(3),
			Description: ptr("mechanical"),
		})
		require.NoError(t, err)
		assert.Equal(t, "Keyboard", updated.Name)
		assert.Equal(t, 3, updated.Quantity)
		assert.Equal(t, "mechanical", updated.Description)
		assert.True(t, decimal.RequireFromString("50.00").Equal(updated.Price))

		got, err := svc.GetItem(ctx, item.ID)
		require.NoError(t, err)
		assert.Equal(t, 3, got.Quantity)

		_, err = svc.UpdateItem(ctx, item.ID, domain.ItemPatch{Quantity: ptr(-1)})
		assert.ErrorIs(t, err, domain.ErrValidation)

		_, err = svc.UpdateItem(ctx, "missing", domain.ItemPatch{Quantity: ptr(1)})
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}

func TestCatalog_CreateValidation(t *testing.T) {
	svc := NewCatalogService(storage.NewMemoryStore(), nil, 0, zap.NewNop())
	ctx := context.Background()

	_, err := svc.CreateItem(ctx, domain.StockItem{Quantity: 1, Price: decimal.NewFromInt(1)})
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = svc.CreateItem(ctx, domain.StockItem{Name: "x", Quantity: -1, Price: decimal.NewFromInt(1)})
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = svc.CreateItem(ctx, domain.StockItem{Name: "x", Quantity: 1, Price: decimal.NewFromInt(-1)})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestCatalog_ListAndFilter(t *testing.T) {
	stores(t, func(t *testing.T, store port.Store) {
		ctx := context.Background()
		seedDemo(t, store, nil)
		svc := NewCatalogService(store, nil, 0, zap.NewNop())

		all, err := svc.ListItems(ctx, domain.ItemFilter{})
		require.NoError(t, err)
		assert.Len(t, all, 5)

		furniture, err := svc.ListItems(ctx, domain.ItemFilter{Category: "Furniture"})
		require.NoError(t, err)
		assert.Len(t, furniture, 2)

		search, err := svc.ListItems(ctx, domain.ItemFilter{Search: "MOUSE"})
		require.NoError(t, err)
		require.Len(t, search, 1)
		assert.Equal(t, "Wireless Mouse", search[0].Name)

		hub := itemByName(t, store, "hub")
		_, err = svc.UpdateItem(ctx, hub.ID, domain.ItemPatch{Quantity: ptr(0)})
		require.NoError(t, err)
		available, err := svc.ListItems(ctx, domain.ItemFilter{AvailableOnly: true})
		require.NoError(t, err)
		assert.Len(t, available, 4)

		categories, err := svc.Categories(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"Electronics", "Furniture"}, categories)
	})
}

func TestCatalog_LowStockAndRestock(t *testing.T) {
	stores(t, func(t *testing.T, store port.Store) {
		ctx := context.Background()
		seedDemo(t, store, nil)
		svc := NewCatalogService(store, nil, 0, zap.NewNop())

		low, err := svc.LowStockItems(ctx, 0)
		require.NoError(t, err)
		require.Len(t, low, 1)
		assert.Equal(t, "USB-C Hub", low[0].Name)

		quantity, err := svc.Restock(ctx, low[0].ID, 10)
		require.NoError(t, err)
		assert.Equal(t, 15, quantity)

		low, err = svc.LowStockItems(ctx, 0)
		require.NoError(t, err)
		assert.Empty(t, low)

		_, err = svc.Restock(ctx, itemByName(t, store, "hub").ID, 0)
		assert.ErrorIs(t, err, domain.ErrValidation)

		_, err = svc.Restock(ctx, "missing", 1)
		assert.ErrorIs(t, err, domain.ErrNotFound)

		hub := itemByName(t, store, "hub")
		_, err = svc.Restock(ctx, hub.ID, domain.MaxStockQuantity)
		assert.ErrorIs(t, err, domain.ErrValidation)
		assert.Equal(t, 15, quantityOf(t, store, hub.ID))
	})
}

func TestCatalog_Delete(t *testing.T) {
	stores(t, func(t *testing.T, store port.Store) {
		ctx := context.Background()
		cache := storage.NewMemoryCache(time.Minute)
		svc := NewCatalogService(store, cache, 0, zap.NewNop())
		stats := NewStatsService(store, cache, 0, zap.NewNop())

		item, err := svc.CreateItem(ctx, domain.StockItem{Name: "Cable", Quantity: 100, Price: decimal.NewFromInt(5)})
		require.NoError(t, err)

		before, err := stats.Stats(ctx, 0)
		require.NoError(t, err)
		assert.Equal(t, 1, before.ItemCount)

		require.NoError(t, svc.DeleteItem(ctx, item.ID))
		_, err = svc.GetItem(ctx, item.ID)
		assert.ErrorIs(t, err, domain.ErrNotFound)
		assert.ErrorIs(t, svc.DeleteItem(ctx, item.ID), domain.ErrNotFound)

		after, err := stats.Stats(ctx, 0)
		require.NoError(t, err)
		assert.Equal(t, 0, after.ItemCount)
	})
}
