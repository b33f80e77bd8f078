package handler

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/rl1809/inventory-pos/internal/core/domain"
)

type SaleRequest struct {
	CustomerID string `json:"customerId"`
	ItemID     string `json:"itemId"`
	Quantity   int    `json:"quantity"`
	RequestID  string `json:"requestId,omitempty"`
}

type TransactionResponse struct {
	ID         string          `json:"id"`
	CustomerID string          `json:"customerId"`
	ItemID     string          `json:"itemId"`
	Quantity   int             `json:"quantity"`
	UnitPrice  decimal.Decimal `json:"unitPrice"`
	TotalPrice decimal.Decimal `json:"totalPrice"`
	RequestID  string          `json:"requestId,omitempty"`
	CreatedAt  time.Time       `json:"createdAt"`
}

func toTransactionResponse(e domain.LedgerEntry) TransactionResponse {
	return TransactionResponse{
		ID:         e.ID,
		CustomerID: e.CustomerID,
		ItemID:     e.ItemID,
		Quantity:   e.Quantity,
		UnitPrice:  e.UnitPrice,
		TotalPrice: e.TotalPrice,
		RequestID:  e.RequestID,
		CreatedAt:  e.CreatedAt,
	}
}

func toTransactionResponses(entries []domain.LedgerEntry) []TransactionResponse {
	out := make([]TransactionResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, toTransactionResponse(e))
	}
	return out
}

type ItemRequest struct {
	Name        string          `json:"name"`
	Quantity    int             `json:"quantity"`
	Category    string          `json:"category"`
	Price       decimal.Decimal `json:"price"`
	Description string          `json:"description"`
}

// ItemPatchRequest mirrors ItemRequest with every field optional.
type ItemPatchRequest struct {
	Name        *string          `json:"name"`
	Quantity    *int             `json:"quantity"`
	Category    *string          `json:"category"`
	Price       *decimal.Decimal `json:"price"`
	Description *string          `json:"description"`
}

func (p ItemPatchRequest) toPatch() domain.ItemPatch {
	return domain.ItemPatch{
		Name:        p.Name,
		Quantity:    p.Quantity,
		Category:    p.Category,
		Price:       p.Price,
		Description: p.Description,
	}
}

type ItemResponse struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Quantity    int             `json:"quantity"`
	Category    string          `json:"category"`
	Price       decimal.Decimal `json:"price"`
	Description string          `json:"description"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

func toItemResponse(i domain.StockItem) ItemResponse {
	return ItemResponse{
		ID:          i.ID,
		Name:        i.Name,
		Quantity:    i.Quantity,
		Category:    i.Category,
		Price:       i.Price,
		Description: i.Description,
		UpdatedAt:   i.UpdatedAt,
	}
}

func toItemResponses(items []domain.StockItem) []ItemResponse {
	out := make([]ItemResponse, 0, len(items))
	for _, i := range items {
		out = append(out, toItemResponse(i))
	}
	return out
}

type RestockRequest struct {
	Amount int `json:"amount"`
}

type RestockResponse struct {
	ID       string `json:"id"`
	Quantity int    `json:"quantity"`
}

type PartyRequest struct {
	Name        string `json:"name"`
	Email       string `json:"email"`
	Designation string `json:"designation,omitempty"`
}

type PartyResponse struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Email       string    `json:"email"`
	Designation string    `json:"designation,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

type RevenueResponse struct {
	TotalRevenue decimal.Decimal `json:"totalRevenue"`
}

type ErrorResponse struct {
	Error     string `json:"error"`
	Details   string `json:"details,omitempty"`
	Available *int   `json:"available,omitempty"`
}
