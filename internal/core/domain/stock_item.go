package domain

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const DefaultLowStockThreshold = 10

// MaxStockQuantity is the largest quantity any store can hold; MySQL and PostgreSQL
// keep quantities in 32-bit INT columns.
const MaxStockQuantity = math.MaxInt32

type StockItem struct {
	ID          string
	Name        string
	Quantity    int
	Category    string
	Price       decimal.Decimal
	Description string
	UpdatedAt   time.Time
}

// Validate checks the catalog invariants: a name, non-negative quantity and price.
func (i StockItem) Validate() error {
	if strings.TrimSpace(i.Name) == "" {
		return &ValidationError{Field: "name", Reason: "must not be empty"}
	}
	if i.Quantity < 0 {
		return &ValidationError{Field: "quantity", Reason: "must not be negative"}
	}
	if i.Quantity > MaxStockQuantity {
		return &ValidationError{Field: "quantity", Reason: fmt.Sprintf("must not exceed %d", MaxStockQuantity)}
	}
	if i.Price.IsNegative() {
		return &ValidationError{Field: "price", Reason: "must not be negative"}
	}
	return nil
}

// CheckRestock rejects an increment that is not positive or would take current
// past MaxStockQuantity.
func CheckRestock(current, amount int) error {
	if amount <= 0 {
		return &ValidationError{Field: "amount", Reason: "must be a positive integer"}
	}
	if amount > MaxStockQuantity-current {
		return &ValidationError{Field: "amount", Reason: fmt.Sprintf("would raise stock above %d", MaxStockQuantity)}
	}
	return nil
}

func (i StockItem) IsLowStock(threshold int) bool {
	return i.Quantity < threshold
}

// ItemFilter narrows catalog listings. Zero value matches everything.
type ItemFilter struct {
	Category      string
	Search        string
	AvailableOnly bool
}

func (f ItemFilter) Match(i StockItem) bool {
	if f.Category != "" && i.Category != f.Category {
		return false
	}
	if f.Search != "" && !strings.Contains(strings.ToLower(i.Name), strings.ToLower(f.Search)) {
		return false
	}
	if f.AvailableOnly && i.Quantity <= 0 {
		return false
	}
	return true
}

// ItemPatch carries a partial catalog update; nil fields are left unchanged.
type ItemPatch struct {
	Name        *string
	Quantity    *int
	Category    *string
	Price       *decimal.Decimal
	Description *string
}

func (p ItemPatch) Validate() error {
	if p.Name != nil && strings.TrimSpace(*p.Name) == "" {
		return &ValidationError{Field: "name", Reason: "must not be empty"}
	}
	if p.Quantity != nil && *p.Quantity < 0 {
		return &ValidationError{Field: "quantity", Reason: "must not be negative"}
	}
	if p.Quantity != nil && *p.Quantity > MaxStockQuantity {
		return &ValidationError{Field: "quantity", Reason: fmt.Sprintf("must not exceed %d", MaxStockQuantity)}
	}
	if p.Price != nil && p.Price.IsNegative() {
		return &ValidationError{Field: "price", Reason: "must not be negative"}
	}
	return nil
}

func (p ItemPatch) Apply(i StockItem) StockItem {
	if p.Name != nil {
		i.Name = *p.Name
	}
	if p.Quantity != nil {
		i.Quantity = *p.Quantity
	}
	if p.Category != nil {
		i.Category = *p.Category
	}
	if p.Price != nil {
		i.Price = *p.Price
	}
	if p.Description != nil {
		i.Description = *p.Description
	}
	return i
}
