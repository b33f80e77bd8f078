package service

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/rl1809/inventory-pos/internal/core/domain"
)

var demoItems = []domain.StockItem{
	{Name: "Laptop Dell XPS 15", Quantity: 25, Category: "Electronics",
		Price: decimal.RequireFromString("1299.99"), Description: "High-performance laptop with 15-inch display"},
	{Name: "Wireless Mouse", Quantity: 150, Category: "Electronics",
		Price: decimal.RequireFromString("29.99"), Description: "Ergonomic wireless mouse with USB receiver"},
	{Name: "Office Chair", Quantity: 45, Category: "Furniture",
		Price: decimal.RequireFromString("299.99"), Description: "Ergonomic office chair with lumbar support"},
	{Name: "Standing Desk", Quantity: 20, Category: "Furniture",
		Price: decimal.RequireFromString("499.99"), Description: "Electric height-adjustable standing desk"},
	{Name: "USB-C Hub", Quantity: 5, Category: "Electronics",
		Price: decimal.RequireFromString("79.99"), Description: "7-in-1 USB-C hub with HDMI and card reader"},
}

// SeedDemoData fills an empty catalog with sample staff, a customer and five items.
// It does nothing if any item already exists.
func SeedDemoData(ctx context.Context, catalog *CatalogService, directory *DirectoryService) error {
	existing, err := catalog.ListItems(ctx, domain.ItemFilter{})
	if err != nil {
		return fmt.Errorf("check catalog: %w", err)
	}
	if len(existing) > 0 {
		return nil
	}

	if _, err := directory.RegisterStaff(ctx, "Admin User", "admin@inventory.com", "ADMIN"); err != nil {
		return err
	}
	if _, err := directory.RegisterStaff(ctx, "Staff User", "staff@inventory.com", "STAFF"); err != nil {
		return err
	}
	if _, err := directory.RegisterCustomer(ctx, "John Customer", "customer@example.com"); err != nil {
		return err
	}
	for _, item := range demoItems {
		if _, err := catalog.CreateItem(ctx, item); err != nil {
			return err
		}
	}
	return nil
}
