package storage

import (
	"database/sql"
	"errors"
	"strings"

	"github.com/mattn/go-sqlite3"
)

func SQLiteDialect() Dialect {
	return Dialect{
		Name:   "sqlite",
		Driver: "sqlite3",
		Schema: []string{
			`CREATE TABLE IF NOT EXISTS stock_items (
				id TEXT PRIMARY KEY,
				name TEXT NOT NULL,
				quantity INTEGER NOT NULL CHECK (quantity >= 0),
				category TEXT NOT NULL DEFAULT '',
				price TEXT NOT NULL,
				description TEXT NOT NULL DEFAULT '',
				updated_at DATETIME NOT NULL
			)`,
			`CREATE INDEX IF NOT EXISTS idx_stock_items_quantity ON stock_items(quantity)`,
			`CREATE INDEX IF NOT EXISTS idx_stock_items_category ON stock_items(category)`,
			`CREATE TABLE IF NOT EXISTS ledger_entries (
				id TEXT PRIMARY KEY,
				customer_id TEXT NOT NULL,
				item_id TEXT NOT NULL,
				quantity INTEGER NOT NULL CHECK (quantity > 0),
				unit_price TEXT NOT NULL,
				total_price TEXT NOT NULL,
				request_id TEXT UNIQUE,
				created_at DATETIME NOT NULL
			)`,
			`CREATE INDEX IF NOT EXISTS idx_ledger_customer ON ledger_entries(customer_id)`,
			`CREATE INDEX IF NOT EXISTS idx_ledger_item ON ledger_entries(item_id)`,
			`CREATE INDEX IF NOT EXISTS idx_ledger_created ON ledger_entries(created_at)`,
			`CREATE TABLE IF NOT EXISTS customers (
				id TEXT PRIMARY KEY,
				name TEXT NOT NULL,
				email TEXT NOT NULL,
				created_at DATETIME NOT NULL
			)`,
			`CREATE TABLE IF NOT EXISTS staff (
				id TEXT PRIMARY KEY,
				name TEXT NOT NULL,
				email TEXT NOT NULL,
				designation TEXT NOT NULL DEFAULT '',
				created_at DATETIME NOT NULL
			)`,
		},
		IsConflict: func(err error) bool {
			var se sqlite3.Error
			return errors.As(err, &se) && (se.Code == sqlite3.ErrBusy || se.Code == sqlite3.ErrLocked)
		},
		IsDuplicate: func(err error) bool {
			var se sqlite3.Error
			return errors.As(err, &se) && se.ExtendedCode == sqlite3.ErrConstraintUnique
		},
		BufferEntries: true,
		// SQLite has a single writer anyway; one connection also keeps ":memory:"
		// databases from splitting into one database per connection.
		ConfigurePool: func(db *sql.DB) {
			db.SetMaxOpenConns(1)
		},
	}
}

func sqliteDSN(path string) string {
	if strings.Contains(path, "?") {
		return path
	}
	return path + "?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000"
}
