package domain

import "github.com/shopspring/decimal"

// Stats is a point-in-time dashboard view derived from the stock and ledger stores.
type Stats struct {
	StaffCount        int             `json:"staffCount"`
	CustomerCount     int             `json:"customerCount"`
	ItemCount         int             `json:"itemCount"`
	TransactionCount  int             `json:"transactionCount"`
	LowStockCount     int             `json:"lowStockCount"`
	LowStockThreshold int             `json:"lowStockThreshold"`
	TotalRevenue      decimal.Decimal `json:"totalRevenue"`
}
