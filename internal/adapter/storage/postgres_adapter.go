package storage

import (
	"database/sql"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
)

const (
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
	pgLockNotAvailable     = "55P03"
	pgUniqueViolation      = "23505"
)

func PostgresDialect() Dialect {
	return Dialect{
		Name:   "postgres",
		Driver: "pgx",
		Schema: []string{
			`CREATE TABLE IF NOT EXISTS stock_items (
				id TEXT PRIMARY KEY,
				name TEXT NOT NULL,
				quantity INTEGER NOT NULL CHECK (quantity >= 0),
				category TEXT NOT NULL DEFAULT '',
				price NUMERIC(12,2) NOT NULL CHECK (price >= 0),
				description TEXT NOT NULL DEFAULT '',
				updated_at TIMESTAMPTZ NOT NULL
			)`,
			`CREATE INDEX IF NOT EXISTS idx_stock_items_quantity ON stock_items(quantity)`,
			`CREATE INDEX IF NOT EXISTS idx_stock_items_category ON stock_items(category)`,
			`CREATE TABLE IF NOT EXISTS ledger_entries (
				id TEXT PRIMARY KEY,
				customer_id TEXT NOT NULL,
				item_id TEXT NOT NULL,
				quantity INTEGER NOT NULL CHECK (quantity > 0),
				unit_price NUMERIC(12,2) NOT NULL,
				total_price NUMERIC(14,2) NOT NULL,
				request_id TEXT UNIQUE,
				created_at TIMESTAMPTZ NOT NULL
			)`,
			`CREATE INDEX IF NOT EXISTS idx_ledger_customer ON ledger_entries(customer_id)`,
			`CREATE INDEX IF NOT EXISTS idx_ledger_item ON ledger_entries(item_id)`,
			`CREATE INDEX IF NOT EXISTS idx_ledger_created ON ledger_entries(created_at)`,
			`CREATE TABLE IF NOT EXISTS customers (
				id TEXT PRIMARY KEY,
				name TEXT NOT NULL,
				email TEXT NOT NULL,
				created_at TIMESTAMPTZ NOT NULL
			)`,
			`CREATE TABLE IF NOT EXISTS staff (
				id TEXT PRIMARY KEY,
				name TEXT NOT NULL,
				email TEXT NOT NULL,
				designation TEXT NOT NULL DEFAULT '',
				created_at TIMESTAMPTZ NOT NULL
			)`,
		},
		Rebind: rebindDollar,
		IsConflict: func(err error) bool {
			var pe *pgconn.PgError
			if !errors.As(err, &pe) {
				return false
			}
			switch pe.Code {
			case pgSerializationFailure, pgDeadlockDetected, pgLockNotAvailable:
				return true
			}
			return false
		},
		IsDuplicate: func(err error) bool {
			var pe *pgconn.PgError
			return errors.As(err, &pe) && pe.Code == pgUniqueViolation
		},
		ConfigurePool: func(db *sql.DB) {
			db.SetMaxOpenConns(50)
			db.SetMaxIdleConns(25)
			db.SetConnMaxLifetime(5 * time.Minute)
		},
	}
}

// rebindDollar turns '?' placeholders into $1, $2, ...
func rebindDollar(query string) string {
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
