package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/rl1809/inventory-pos/internal/adapter/storage"
	"github.com/rl1809/inventory-pos/internal/core/domain"
	"github.com/rl1809/inventory-pos/internal/core/service"
	"github.com/rl1809/inventory-pos/internal/port"
)

const (
	itemID     = "stress-item"
	customerID = "stress-customer"
)

func main() {
	driver := flag.String("driver", "memory", "store driver: memory, sqlite, mysql or postgres")
	dsn := flag.String("dsn", ":memory:", "database DSN")
	initialStock := flag.Int("stock", 20, "initial stock")
	totalRequests := flag.Int("requests", 50, "number of concurrent single-unit sales")
	flag.Parse()

	if err := run(*driver, *dsn, *initialStock, *totalRequests); err != nil {
		fmt.Fprintf(os.Stderr, "FAIL: %v\n", err)
		os.Exit(1)
	}
}

func run(driver, dsn string, initialStock, totalRequests int) error {
	ctx := context.Background()

	var store port.Store = storage.NewMemoryStore()
	if driver != "memory" {
		sqlStore, err := storage.OpenSQL(ctx, driver, dsn)
		if err != nil {
			return err
		}
		store = sqlStore
	}
	defer store.Close()

	// Fresh ids per run so a shared database can be reused
	runID := time.Now().Format("20060102150405.000000")
	item := domain.StockItem{
		ID:        itemID + "-" + runID,
		Name:      "Stress Item " + runID,
		Quantity:  initialStock,
		Price:     decimal.RequireFromString("9.99"),
		UpdatedAt: time.Now().UTC(),
	}
	if err := store.CreateItem(ctx, item); err != nil {
		return fmt.Errorf("create item: %w", err)
	}
	customer := domain.Customer{
		ID: customerID + "-" + runID, Name: "Stress", Email: "stress@example.com", CreatedAt: time.Now().UTC(),
	}
	if err := store.CreateCustomer(ctx, customer); err != nil {
		return fmt.Errorf("create customer: %w", err)
	}

	opts := service.DefaultSaleOptions()
	opts.LockTimeout = 10 * time.Second
	sales := service.NewSaleService(store, storage.NewMemoryCache(0), opts, zap.NewNop())

	// Counters
	var successCount, soldOutCount, otherCount atomic.Int32

	// Spawn concurrent requests
	var g errgroup.Group
	start := time.Now()

	for i := range totalRequests {
		g.Go(func() error {
			_, err := sales.RecordSale(ctx, domain.SaleRequest{
				CustomerID: customer.ID,
				ItemID:     item.ID,
				Quantity:   1,
				RequestID:  fmt.Sprintf("%s-%d", runID, i),
			})
			switch {
			case err == nil:
				successCount.Add(1)
			case errors.Is(err, domain.ErrInsufficientStock):
				soldOutCount.Add(1)
			default:
				otherCount.Add(1)
				return err
			}
			return nil
		})
	}

	waitErr := g.Wait()
	elapsed := time.Since(start)

	// Results
	success := successCount.Load()
	soldOut := soldOutCount.Load()
	wantSuccess := int32(min(initialStock, totalRequests))

	fmt.Println("========== STRESS TEST RESULTS ==========")
	fmt.Printf("Store:            %s\n", driver)
	fmt.Printf("Initial Stock:    %d\n", initialStock)
	fmt.Printf("Total Requests:   %d\n", totalRequests)
	fmt.Printf("Successful:       %d\n", success)
	fmt.Printf("Sold out:         %d\n", soldOut)
	fmt.Printf("Other errors:     %d\n", otherCount.Load())
	fmt.Printf("Duration:         %v\n", elapsed)
	fmt.Println("==========================================")

	if waitErr != nil {
		return fmt.Errorf("unexpected sale error: %w", waitErr)
	}
	if success != wantSuccess {
		return fmt.Errorf("expected %d successful sales, got %d", wantSuccess, success)
	}

	// Verify final stock and ledger
	final, err := store.GetItem(ctx, item.ID)
	if err != nil {
		return err
	}
	if want := initialStock - int(success); final.Quantity != want {
		return fmt.Errorf("expected final stock %d, got %d", want, final.Quantity)
	}

	entries, err := service.CollectEntries(sales.ByItem(ctx, item.ID))
	if err != nil {
		return err
	}
	if len(entries) != int(success) {
		return fmt.Errorf("expected %d ledger entries, got %d", success, len(entries))
	}

	fmt.Printf("PASS: %d sales recorded, final stock %d, no oversell\n", success, final.Quantity)
	return nil
}
