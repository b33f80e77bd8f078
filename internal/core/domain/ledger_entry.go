package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// LedgerEntry records one completed sale. It is written once and never updated.
type LedgerEntry struct {
	ID         string
	CustomerID string
	ItemID     string
	Quantity   int
	UnitPrice  decimal.Decimal // price at sale time
	TotalPrice decimal.Decimal
	RequestID  string
	CreatedAt  time.Time
}

type SaleRequest struct {
	CustomerID string
	ItemID     string
	Quantity   int
	RequestID  string // optional idempotency key
}

func (r SaleRequest) Validate() error {
	if r.CustomerID == "" {
		return &ValidationError{Field: "customerId", Reason: "is required"}
	}
	if r.ItemID == "" {
		return &ValidationError{Field: "itemId", Reason: "is required"}
	}
	if r.Quantity <= 0 {
		return &ValidationError{Field: "quantity", Reason: "must be a positive integer"}
	}
	return nil
}

// LineTotal is the snapshot total for quantity units at unitPrice.
func LineTotal(unitPrice decimal.Decimal, quantity int) decimal.Decimal {
	return unitPrice.Mul(decimal.NewFromInt(int64(quantity)))
}

// EntryFilter selects ledger entries. Empty fields are ignored; From/To are inclusive.
type EntryFilter struct {
	CustomerID  string
	ItemID      string
	From        time.Time
	To          time.Time
	NewestFirst bool
}

func (f EntryFilter) Match(e LedgerEntry) bool {
	if f.CustomerID != "" && e.CustomerID != f.CustomerID {
		return false
	}
	if f.ItemID != "" && e.ItemID != f.ItemID {
		return false
	}
	if !f.From.IsZero() && e.CreatedAt.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && e.CreatedAt.After(f.To) {
		return false
	}
	return true
}
