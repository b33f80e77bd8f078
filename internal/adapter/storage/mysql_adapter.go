package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"
)

const (
	mysqlErrDuplicateEntry  = 1062
	mysqlErrLockWaitTimeout = 1205
	mysqlErrDeadlock        = 1213
)

func MySQLDialect() Dialect {
	return Dialect{
		Name:   "mysql",
		Driver: "mysql",
		Schema: []string{
			`CREATE TABLE IF NOT EXISTS stock_items (
				id VARCHAR(64) PRIMARY KEY,
				name VARCHAR(255) NOT NULL,
				quantity INT NOT NULL CHECK (quantity >= 0),
				category VARCHAR(255) NOT NULL DEFAULT '',
				price DECIMAL(12,2) NOT NULL CHECK (price >= 0),
				description TEXT NOT NULL,
				updated_at DATETIME(6) NOT NULL,
				INDEX idx_stock_items_quantity (quantity),
				INDEX idx_stock_items_category (category)
			) ENGINE=InnoDB`,
			`CREATE TABLE IF NOT EXISTS ledger_entries (
				id VARCHAR(64) PRIMARY KEY,
				customer_id VARCHAR(64) NOT NULL,
				item_id VARCHAR(64) NOT NULL,
				quantity INT NOT NULL CHECK (quantity > 0),
				unit_price DECIMAL(12,2) NOT NULL,
				total_price DECIMAL(14,2) NOT NULL,
				request_id VARCHAR(255) NULL UNIQUE,
				created_at DATETIME(6) NOT NULL,
				INDEX idx_ledger_customer (customer_id),
				INDEX idx_ledger_item (item_id),
				INDEX idx_ledger_created (created_at)
			) ENGINE=InnoDB`,
			`CREATE TABLE IF NOT EXISTS customers (
				id VARCHAR(64) PRIMARY KEY,
				name VARCHAR(255) NOT NULL,
				email VARCHAR(255) NOT NULL,
				created_at DATETIME(6) NOT NULL
			) ENGINE=InnoDB`,
			`CREATE TABLE IF NOT EXISTS staff (
				id VARCHAR(64) PRIMARY KEY,
				name VARCHAR(255) NOT NULL,
				email VARCHAR(255) NOT NULL,
				designation VARCHAR(64) NOT NULL DEFAULT '',
				created_at DATETIME(6) NOT NULL
			) ENGINE=InnoDB`,
		},
		IsConflict: func(err error) bool {
			var me *mysql.MySQLError
			return errors.As(err, &me) &&
				(me.Number == mysqlErrDeadlock || me.Number == mysqlErrLockWaitTimeout)
		},
		IsDuplicate: func(err error) bool {
			var me *mysql.MySQLError
			return errors.As(err, &me) && me.Number == mysqlErrDuplicateEntry
		},
		ConfigurePool: func(db *sql.DB) {
			db.SetMaxOpenConns(50)
			db.SetMaxIdleConns(25)
			db.SetConnMaxLifetime(5 * time.Minute)
		},
	}
}

// mysqlDSN forces parseTime so DATETIME columns scan into time.Time, and reports
// matched rather than changed rows so RowsAffected means "row exists".
func mysqlDSN(dsn string) (string, error) {
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return "", fmt.Errorf("parse mysql dsn: %w", err)
	}
	cfg.ParseTime = true
	cfg.ClientFoundRows = true
	cfg.Loc = time.UTC
	return cfg.FormatDSN(), nil
}
