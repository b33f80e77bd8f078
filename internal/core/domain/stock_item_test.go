package domain

import (
	"math"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestStockItemValidate(t *testing.T) {
	valid := StockItem{Name: "Wireless Mouse", Quantity: 0, Price: decimal.Zero}
	assert.NoError(t, valid.Validate())

	noName := valid
	noName.Name = "  "
	assert.ErrorIs(t, noName.Validate(), ErrValidation)

	negative := valid
	negative.Quantity = -1
	assert.ErrorIs(t, negative.Validate(), ErrValidation)

	negativePrice := valid
	negativePrice.Price = decimal.RequireFromString("-0.01")
	assert.ErrorIs(t, negativePrice.Validate(), ErrValidation)
}

func TestCheckRestock(t *testing.T) {
	assert.NoError(t, CheckRestock(10, 5))
	assert.NoError(t, CheckRestock(MaxStockQuantity-5, 5))
	assert.ErrorIs(t, CheckRestock(10, 0), ErrValidation)
	assert.ErrorIs(t, CheckRestock(MaxStockQuantity-5, 6), ErrValidation)
	assert.ErrorIs(t, CheckRestock(1, math.MaxInt), ErrValidation)

	tooMany := StockItem{Name: "Pallet", Quantity: MaxStockQuantity + 1}
	assert.ErrorIs(t, tooMany.Validate(), ErrValidation)
}

func TestLowStockIsStrict(t *testing.T) {
	quantities := []int{25, 150, 45, 20, 5}
	low := 0
	for _, q := range quantities {
		if (StockItem{Quantity: q}).IsLowStock(DefaultLowStockThreshold) {
			low++
		}
	}
	assert.Equal(t, 1, low)
	assert.False(t, StockItem{Quantity: 10}.IsLowStock(10))
}

func TestItemFilterMatch(t *testing.T) {
	item := StockItem{Name: "Standing Desk", Category: "Furniture", Quantity: 0}

	assert.True(t, ItemFilter{}.Match(item))
	assert.True(t, ItemFilter{Search: "desk"}.Match(item))
	assert.True(t, ItemFilter{Category: "Furniture"}.Match(item))
	assert.False(t, ItemFilter{Category: "Electronics"}.Match(item))
	assert.False(t, ItemFilter{AvailableOnly: true}.Match(item))
}

func TestItemPatch(t *testing.T) {
	item := StockItem{Name: "Chair", Quantity: 4, Category: "Furniture", Price: decimal.NewFromInt(100)}
	name, quantity := "Office Chair", 9

	patched := ItemPatch{Name: &name, Quantity: &quantity}.Apply(item)
	assert.Equal(t, "Office Chair", patched.Name)
	assert.Equal(t, 9, patched.Quantity)
	assert.Equal(t, "Furniture", patched.Category)
	assert.True(t, patched.Price.Equal(item.Price))

	negative := -2
	assert.ErrorIs(t, ItemPatch{Quantity: &negative}.Validate(), ErrValidation)
	empty := ""
	assert.ErrorIs(t, ItemPatch{Name: &empty}.Validate(), ErrValidation)
	assert.NoError(t, ItemPatch{}.Validate())
}

func TestSaleRequestAndLineTotal(t *testing.T) {
	assert.NoError(t, SaleRequest{CustomerID: "c", ItemID: "i", Quantity: 1}.Validate())
	assert.ErrorIs(t, SaleRequest{CustomerID: "c", ItemID: "i", Quantity: 0}.Validate(), ErrValidation)

	total := LineTotal(decimal.RequireFromString("1299.99"), 5)
	assert.Equal(t, "6499.95", total.StringFixed(2))

	sum := decimal.Zero
	for range 3 {
		sum = sum.Add(LineTotal(decimal.RequireFromString("0.1"), 1))
	}
	assert.True(t, sum.Equal(decimal.RequireFromString("0.3")))
}

func TestEntryFilterBounds(t *testing.T) {
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	e := LedgerEntry{CustomerID: "c", ItemID: "i", CreatedAt: at}

	assert.True(t, EntryFilter{From: at, To: at}.Match(e), "bounds are inclusive")
	assert.False(t, EntryFilter{From: at.Add(time.Second)}.Match(e))
	assert.False(t, EntryFilter{To: at.Add(-time.Second)}.Match(e))
	assert.False(t, EntryFilter{CustomerID: "other"}.Match(e))
}
