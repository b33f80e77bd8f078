package storage

import (
	"context"
	"errors"
	"math"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rl1809/inventory-pos/internal/core/domain"
	"github.com/rl1809/inventory-pos/internal/port"
)

// testStore exercises the behaviour every port.Store must share. Ids are random so
// the same suite can run against a long-lived MySQL or PostgreSQL database.
func testStore(t *testing.T, store port.Store) {
	t.Run("ItemLifecycle", func(t *testing.T) { testItemLifecycle(t, store) })
	t.Run("TryDecrement", func(t *testing.T) { testTryDecrement(t, store) })
	t.Run("RollbackOnError", func(t *testing.T) { testRollbackOnError(t, store) })
	t.Run("DuplicateRequestID", func(t *testing.T) { testDuplicateRequestID(t, store) })
	t.Run("RestockOverflow", func(t *testing.T) { testRestockOverflow(t, store) })
	t.Run("ReadsWhileRangingEntries", func(t *testing.T) { testReadsWhileRangingEntries(t, store) })
	t.Run("ConcurrentDecrement", func(t *testing.T) { testConcurrentDecrement(t, store) })
	t.Run("Entries", func(t *testing.T) { testEntries(t, store) })
	t.Run("Directory", func(t *testing.T) { testDirectory(t, store) })
}

func newItem(t *testing.T, store port.Store, quantity int, price string) domain.StockItem {
	t.Helper()
	item := domain.StockItem{
		ID:          uuid.NewString(),
		Name:        "item-" + uuid.NewString()[:8],
		Quantity:    quantity,
		Category:    "Test",
		Price:       decimal.RequireFromString(price),
		Description: "contract test item",
		UpdatedAt:   time.Now().UTC().Truncate(time.Microsecond),
	}
	require.NoError(t, store.CreateItem(context.Background(), item))
	return item
}

func sell(ctx context.Context, store port.Store, itemID, customerID string, quantity int) (*domain.LedgerEntry, error) {
	entry := &domain.LedgerEntry{CustomerID: customerID, ItemID: itemID, Quantity: quantity}
	err := store.WithSale(ctx, itemID, func(unit port.SaleUnit) error {
		_, price, err := unit.TryDecrement(ctx, itemID, quantity)
		if err != nil {
			return err
		}
		entry.UnitPrice = price
		entry.TotalPrice = domain.LineTotal(price, quantity)
		return unit.AppendEntry(ctx, entry)
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

func testItemLifecycle(t *testing.T, store port.Store) {
	ctx := context.Background()
	item := newItem(t, store, 8, "12.50")

	got, err := store.GetItem(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, item.Name, got.Name)
	assert.Equal(t, 8, got.Quantity)
	assert.True(t, item.Price.Equal(got.Price))

	name := item.Name + "-renamed"
	updated, err := store.UpdateItem(ctx, item.ID, domain.ItemPatch{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, name, updated.Name)
	assert.Equal(t, 8, updated.Quantity)
	assert.Equal(t, "contract test item", updated.Description)

	quantity, err := store.Restock(ctx, item.ID, 4)
	require.NoError(t, err)
	assert.Equal(t, 12, quantity)

	found, err := store.ListItems(ctx, domain.ItemFilter{Search: name})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, item.ID, found[0].ID)

	categories, err := store.Categories(ctx)
	require.NoError(t, err)
	assert.Contains(t, categories, "Test")

	require.NoError(t, store.DeleteItem(ctx, item.ID))
	_, err = store.GetItem(ctx, item.ID)
	var nf *domain.NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "item", nf.Kind)

	_, err = store.UpdateItem(ctx, item.ID, domain.ItemPatch{Name: &name})
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = store.Restock(ctx, item.ID, 1)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.ErrorIs(t, store.DeleteItem(ctx, item.ID), domain.ErrNotFound)
}

func testTryDecrement(t *testing.T, store port.Store) {
	ctx := context.Background()
	item := newItem(t, store, 10, "3.30")

	entry, err := sell(ctx, store, item.ID, "c-1", 4)
	require.NoError(t, err)
	assert.NotEmpty(t, entry.ID)
	assert.False(t, entry.CreatedAt.IsZero())
	assert.True(t, decimal.RequireFromString("13.2").Equal(entry.TotalPrice))

	_, err = sell(ctx, store, item.ID, "c-1", 7)
	var insufficient *domain.InsufficientStockError
	require.ErrorAs(t, err, &insufficient)
	assert.Equal(t, 6, insufficient.Available)

	_, err = sell(ctx, store, item.ID, "c-1", 6)
	require.NoError(t, err)

	got, err := store.GetItem(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.Quantity)

	_, err = sell(ctx, store, uuid.NewString(), "c-1", 1)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func testRollbackOnError(t *testing.T, store port.Store) {
	ctx := context.Background()
	item := newItem(t, store, 5, "1.00")
	boom := errors.New("boom")

	err := store.WithSale(ctx, item.ID, func(unit port.SaleUnit) error {
		if _, _, err := unit.TryDecrement(ctx, item.ID, 3); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	got, err := store.GetItem(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, got.Quantity)

	entries := 0
	for _, err := range store.Entries(ctx, domain.EntryFilter{ItemID: item.ID}) {
		require.NoError(t, err)
		entries++
	}
	assert.Equal(t, 0, entries)
}

func testDuplicateRequestID(t *testing.T, store port.Store) {
	ctx := context.Background()
	item := newItem(t, store, 5, "3.00")
	requestID := uuid.NewString()

	record := func() error {
		return store.WithSale(ctx, item.ID, func(unit port.SaleUnit) error {
			_, price, err := unit.TryDecrement(ctx, item.ID, 1)
			if err != nil {
				return err
			}
			return unit.AppendEntry(ctx, &domain.LedgerEntry{
				CustomerID: "c-1",
				ItemID:     item.ID,
				Quantity:   1,
				UnitPrice:  price,
				TotalPrice: price,
				RequestID:  requestID,
			})
		})
	}

	require.NoError(t, record())
	assert.ErrorIs(t, record(), domain.ErrDuplicateRequest)

	got, err := store.GetItem(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, got.Quantity)
}

func testRestockOverflow(t *testing.T, store port.Store) {
	ctx := context.Background()
	item := newItem(t, store, domain.MaxStockQuantity-5, "1.00")

	_, err := store.Restock(ctx, item.ID, 6)
	var ve *domain.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "amount", ve.Field)

	_, err = store.Restock(ctx, item.ID, math.MaxInt)
	assert.ErrorIs(t, err, domain.ErrValidation)

	got, err := store.GetItem(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.MaxStockQuantity-5, got.Quantity)

	quantity, err := store.Restock(ctx, item.ID, 5)
	require.NoError(t, err)
	assert.Equal(t, domain.MaxStockQuantity, quantity)
}

func testReadsWhileRangingEntries(t *testing.T, store port.Store) {
	ctx := context.Background()
	item := newItem(t, store, 10, "1.00")
	for range 2 {
		_, err := sell(ctx, store, item.ID, "c-1", 1)
		require.NoError(t, err)
	}

	ranged := 0
	for _, err := range store.Entries(ctx, domain.EntryFilter{ItemID: item.ID}) {
		require.NoError(t, err)
		ranged++
		if ranged > 1 {
			continue
		}

		readCtx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
		_, getErr := store.GetItem(readCtx, item.ID)
		_, sellErr := sell(readCtx, store, item.ID, "c-1", 1)
		cancel()
		require.NoError(t, getErr)
		require.NoError(t, sellErr)
	}
	assert.Equal(t, 2, ranged)
}

func testConcurrentDecrement(t *testing.T, store port.Store) {
	ctx := context.Background()
	item := newItem(t, store, 20, "2.00")

	var successCount atomic.Int32
	var wg sync.WaitGroup
	for range 40 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				_, err := sell(ctx, store, item.ID, "c-2", 1)
				if errors.Is(err, domain.ErrConflict) {
					continue
				}
				if err == nil {
					successCount.Add(1)
				} else if !errors.Is(err, domain.ErrInsufficientStock) {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(20), successCount.Load())
	got, err := store.GetItem(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.Quantity)
}

func testEntries(t *testing.T, store port.Store) {
	ctx := context.Background()
	item := newItem(t, store, 100, "0.10")
	customer := uuid.NewString()

	var ids []string
	for q := 1; q <= 3; q++ {
		entry, err := sell(ctx, store, item.ID, customer, q)
		require.NoError(t, err)
		ids = append(ids, entry.ID)
	}

	var oldestFirst []string
	for e, err := range store.Entries(ctx, domain.EntryFilter{CustomerID: customer}) {
		require.NoError(t, err)
		oldestFirst = append(oldestFirst, e.ID)
	}
	assert.Equal(t, ids, oldestFirst)

	var newestFirst []string
	for e, err := range store.Entries(ctx, domain.EntryFilter{ItemID: item.ID, NewestFirst: true}) {
		require.NoError(t, err)
		newestFirst = append(newestFirst, e.ID)
	}
	assert.Equal(t, []string{ids[2], ids[1], ids[0]}, newestFirst)

	// Stopping early must release the underlying cursor.
	for range store.Entries(ctx, domain.EntryFilter{ItemID: item.ID}) {
		break
	}

	entry, err := store.GetEntry(ctx, ids[1])
	require.NoError(t, err)
	assert.Equal(t, 2, entry.Quantity)
	assert.True(t, decimal.RequireFromString("0.2").Equal(entry.TotalPrice))

	_, err = store.GetEntry(ctx, uuid.NewString())
	assert.ErrorIs(t, err, domain.ErrNotFound)

	revenue, err := store.TotalRevenue(ctx)
	require.NoError(t, err)
	assert.True(t, revenue.GreaterThanOrEqual(decimal.RequireFromString("0.6")))
}

func testDirectory(t *testing.T, store port.Store) {
	ctx := context.Background()
	before, err := store.CountCustomers(ctx)
	require.NoError(t, err)

	c := domain.Customer{
		ID:        uuid.NewString(),
		Name:      "Contract Customer",
		Email:     "contract@example.com",
		CreatedAt: time.Now().UTC().Truncate(time.Microsecond),
	}
	require.NoError(t, store.CreateCustomer(ctx, c))
	got, err := store.GetCustomer(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, c.Email, got.Email)

	after, err := store.CountCustomers(ctx)
	require.NoError(t, err)
	assert.Equal(t, before+1, after)

	require.NoError(t, store.CreateStaff(ctx, domain.Staff{
		ID: uuid.NewString(), Name: "Contract Staff", Email: "staff@example.com",
		Designation: "STAFF", CreatedAt: time.Now().UTC(),
	}))
	staff, err := store.CountStaff(ctx)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, staff, 1)

	_, err = store.GetCustomer(ctx, uuid.NewString())
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestMemoryStore(t *testing.T) {
	testStore(t, NewMemoryStore())
}

func TestSQLiteStore(t *testing.T) {
	store, err := OpenSQL(context.Background(), "sqlite", ":memory:")
	require.NoError(t, err)
	defer store.Close()

	testStore(t, store)
}

type brokenResult struct{}

func (brokenResult) LastInsertId() (int64, error) { return 0, nil }
func (brokenResult) RowsAffected() (int64, error) {
	return 0, errors.New("driver does not report affected rows")
}

func TestRowsAffected(t *testing.T) {
	_, err := rowsAffected(brokenResult{}, "delete item")
	assert.ErrorContains(t, err, "delete item: rows affected: driver does not report affected rows")
}

func TestOpenSQL_UnknownDriver(t *testing.T) {
	_, err := OpenSQL(context.Background(), "oracle", "whatever")
	assert.ErrorContains(t, err, "unsupported store driver")
}
