package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"iter"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rl1809/inventory-pos/internal/core/domain"
	"github.com/rl1809/inventory-pos/internal/port"
)

// Dialect captures what differs between the SQL engines behind SQLAdapter.
type Dialect struct {
	Name   string
	Driver string
	Schema []string

	// Rebind rewrites '?' placeholders for engines that number them.
	Rebind func(query string) string

	// IsConflict reports deadlocks, lock wait timeouts and busy databases.
	IsConflict func(err error) bool

	// IsDuplicate reports unique constraint violations.
	IsDuplicate func(err error) bool

	// BufferEntries makes Entries read each result set fully and release its
	// connection before yielding. Set for pools of one connection, where an open
	// cursor would block every other statement until the caller finished ranging.
	BufferEntries bool

	ConfigurePool func(db *sql.DB)
}

type SQLAdapter struct {
	db      *sql.DB
	dialect Dialect
}

var _ port.Store = (*SQLAdapter)(nil)

func NewSQLAdapter(db *sql.DB, dialect Dialect) *SQLAdapter {
	return &SQLAdapter{db: db, dialect: dialect}
}

// OpenSQL opens, pings and migrates a store for driver ("mysql", "postgres" or "sqlite").
func OpenSQL(ctx context.Context, driver, dsn string) (*SQLAdapter, error) {
	var (
		dialect Dialect
		err     error
	)
	switch driver {
	case "mysql":
		dialect = MySQLDialect()
		dsn, err = mysqlDSN(dsn)
	case "postgres":
		dialect = PostgresDialect()
	case "sqlite":
		dialect = SQLiteDialect()
		dsn = sqliteDSN(dsn)
	default:
		return nil, fmt.Errorf("unsupported store driver %q", driver)
	}
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(dialect.Driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", dialect.Name, err)
	}
	if dialect.ConfigurePool != nil {
		dialect.ConfigurePool(db)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping %s: %w", dialect.Name, err)
	}

	s := NewSQLAdapter(db, dialect)
	if err := s.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLAdapter) Migrate(ctx context.Context) error {
	for _, stmt := range s.dialect.Schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate %s: %w", s.dialect.Name, err)
		}
	}
	return nil
}

func (s *SQLAdapter) Close() error {
	return s.db.Close()
}

func (s *SQLAdapter) q(query string) string {
	if s.dialect.Rebind == nil {
		return query
	}
	return s.dialect.Rebind(query)
}

// classify turns driver errors into domain sentinels where the engine needs to react.
func (s *SQLAdapter) classify(err error) error {
	if err == nil {
		return nil
	}
	if s.dialect.IsConflict != nil && s.dialect.IsConflict(err) {
		return fmt.Errorf("%w: %v", domain.ErrConflict, err)
	}
	return err
}

// rowsAffected reports how many rows result touched, treating a driver that cannot
// tell as an error rather than as zero rows.
func rowsAffected(result sql.Result, op string) (int64, error) {
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: rows affected: %w", op, err)
	}
	return n, nil
}

func now() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}

// =============================================================================
// STOCK
// =============================================================================

const itemColumns = `id, name, quantity, category, price, description, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanItem(row rowScanner) (domain.StockItem, error) {
	var item domain.StockItem
	err := row.Scan(&item.ID, &item.Name, &item.Quantity, &item.Category,
		&item.Price, &item.Description, &item.UpdatedAt)
	return item, err
}

func (s *SQLAdapter) CreateItem(ctx context.Context, item domain.StockItem) error {
	_, err := s.db.ExecContext(ctx, s.q(`
		INSERT INTO stock_items (`+itemColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?)`),
		item.ID, item.Name, item.Quantity, item.Category, item.Price.StringFixed(2),
		item.Description, item.UpdatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert item: %w", err)
	}
	return nil
}

func (s *SQLAdapter) GetItem(ctx context.Context, id string) (*domain.StockItem, error) {
	item, err := scanItem(s.db.QueryRowContext(ctx, s.q(`
		SELECT `+itemColumns+` FROM stock_items WHERE id = ?`), id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &domain.NotFoundError{Kind: "item", ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("query item: %w", err)
	}
	return &item, nil
}

func (s *SQLAdapter) ListItems(ctx context.Context, filter domain.ItemFilter) ([]domain.StockItem, error) {
	var (
		where []string
		args  []any
	)
	if filter.Category != "" {
		where = append(where, "category = ?")
		args = append(args, filter.Category)
	}
	if filter.Search != "" {
		where = append(where, "LOWER(name) LIKE ?")
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}
	if filter.AvailableOnly {
		where = append(where, "quantity > 0")
	}

	query := `SELECT ` + itemColumns + ` FROM stock_items`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY name, id`

	rows, err := s.db.QueryContext(ctx, s.q(query), args...)
	if err != nil {
		return nil, fmt.Errorf("query items: %w", err)
	}
	defer rows.Close()

	var items []domain.StockItem
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// UpdateItem leaves columns whose patch field is nil untouched, so a concurrent
// sale's decrement is never overwritten with a stale quantity.
func (s *SQLAdapter) UpdateItem(ctx context.Context, id string, patch domain.ItemPatch) (*domain.StockItem, error) {
	var price any
	if patch.Price != nil {
		price = patch.Price.StringFixed(2)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, s.q(`
		UPDATE stock_items
		SET name = COALESCE(?, name),
		    quantity = COALESCE(?, quantity),
		    category = COALESCE(?, category),
		    price = COALESCE(?, price),
		    description = COALESCE(?, description),
		    updated_at = ?
		WHERE id = ?`),
		optional(patch.Name), optional(patch.Quantity), optional(patch.Category), price,
		optional(patch.Description), now(), id,
	)
	if err != nil {
		return nil, fmt.Errorf("update item: %w", s.classify(err))
	}
	rows, err := rowsAffected(result, "update item")
	if err != nil {
		return nil, err
	}
	if rows == 0 {
		return nil, &domain.NotFoundError{Kind: "item", ID: id}
	}

	item, err := scanItem(tx.QueryRowContext(ctx, s.q(`
		SELECT `+itemColumns+` FROM stock_items WHERE id = ?`), id))
	if err != nil {
		return nil, fmt.Errorf("read updated item: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit item update: %w", s.classify(err))
	}
	return &item, nil
}

func (s *SQLAdapter) DeleteItem(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, s.q(`DELETE FROM stock_items WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("delete item: %w", err)
	}
	rows, err := rowsAffected(result, "delete item")
	if err != nil {
		return err
	}
	if rows == 0 {
		return &domain.NotFoundError{Kind: "item", ID: id}
	}
	return nil
}

// Restock adds amount only while the result stays within MaxStockQuantity.
func (s *SQLAdapter) Restock(ctx context.Context, id string, amount int) (int, error) {
	if err := domain.CheckRestock(0, amount); err != nil {
		return 0, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, s.q(`
		UPDATE stock_items SET quantity = quantity + ?, updated_at = ?
		WHERE id = ? AND quantity <= ?`),
		amount, now(), id, domain.MaxStockQuantity-amount,
	)
	if err != nil {
		return 0, fmt.Errorf("restock item: %w", s.classify(err))
	}
	rows, err := rowsAffected(result, "restock item")
	if err != nil {
		return 0, err
	}

	var quantity int
	err = tx.QueryRowContext(ctx, s.q(`SELECT quantity FROM stock_items WHERE id = ?`), id).Scan(&quantity)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, &domain.NotFoundError{Kind: "item", ID: id}
	}
	if err != nil {
		return 0, fmt.Errorf("read restocked quantity: %w", err)
	}
	if rows == 0 {
		if err := domain.CheckRestock(quantity, amount); err != nil {
			return 0, err
		}
		// A sale lowered the quantity between the update and the read.
		return 0, fmt.Errorf("restock item: %w", domain.ErrConflict)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit restock: %w", s.classify(err))
	}
	return quantity, nil
}

func (s *SQLAdapter) Categories(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT category FROM stock_items WHERE category <> '' ORDER BY category`)
	if err != nil {
		return nil, fmt.Errorf("query categories: %w", err)
	}
	defer rows.Close()

	var categories []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

func (s *SQLAdapter) count(ctx context.Context, query string, args ...any) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, s.q(query), args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count: %w", err)
	}
	return n, nil
}

func (s *SQLAdapter) CountItems(ctx context.Context) (int, error) {
	return s.count(ctx, `SELECT COUNT(*) FROM stock_items`)
}

func (s *SQLAdapter) CountLowStock(ctx context.Context, threshold int) (int, error) {
	return s.count(ctx, `SELECT COUNT(*) FROM stock_items WHERE quantity < ?`, threshold)
}

// =============================================================================
// LEDGER (no UPDATE or DELETE statement touches ledger_entries)
// =============================================================================

const entryColumns = `id, customer_id, item_id, quantity, unit_price, total_price, request_id, created_at`

func scanEntry(row rowScanner) (domain.LedgerEntry, error) {
	var (
		e         domain.LedgerEntry
		requestID sql.NullString
	)
	err := row.Scan(&e.ID, &e.CustomerID, &e.ItemID, &e.Quantity,
		&e.UnitPrice, &e.TotalPrice, &requestID, &e.CreatedAt)
	e.RequestID = requestID.String
	e.CreatedAt = e.CreatedAt.UTC()
	return e, err
}

func (s *SQLAdapter) GetEntry(ctx context.Context, id string) (*domain.LedgerEntry, error) {
	e, err := scanEntry(s.db.QueryRowContext(ctx, s.q(`
		SELECT `+entryColumns+` FROM ledger_entries WHERE id = ?`), id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &domain.NotFoundError{Kind: "transaction", ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("query transaction: %w", err)
	}
	return &e, nil
}

// Entries streams rows as the caller ranges, or reads them up front when the dialect
// sets BufferEntries. Each range issues a fresh query.
func (s *SQLAdapter) Entries(ctx context.Context, filter domain.EntryFilter) iter.Seq2[domain.LedgerEntry, error] {
	var (
		where []string
		args  []any
	)
	if filter.CustomerID != "" {
		where = append(where, "customer_id = ?")
		args = append(args, filter.CustomerID)
	}
	if filter.ItemID != "" {
		where = append(where, "item_id = ?")
		args = append(args, filter.ItemID)
	}
	if !filter.From.IsZero() {
		where = append(where, "created_at >= ?")
		args = append(args, filter.From.UTC())
	}
	if !filter.To.IsZero() {
		where = append(where, "created_at <= ?")
		args = append(args, filter.To.UTC())
	}

	query := `SELECT ` + entryColumns + ` FROM ledger_entries`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	if filter.NewestFirst {
		query += ` ORDER BY created_at DESC, id DESC`
	} else {
		query += ` ORDER BY created_at ASC, id ASC`
	}
	query = s.q(query)

	return func(yield func(domain.LedgerEntry, error) bool) {
		if s.dialect.BufferEntries {
			entries, err := s.queryEntries(ctx, query, args)
			if err != nil {
				yield(domain.LedgerEntry{}, err)
				return
			}
			for _, e := range entries {
				if !yield(e, nil) {
					return
				}
			}
			return
		}

		rows, err := s.db.QueryContext(ctx, query, args...)
		if err != nil {
			yield(domain.LedgerEntry{}, fmt.Errorf("query transactions: %w", err))
			return
		}
		defer rows.Close()

		for rows.Next() {
			e, err := scanEntry(rows)
			if err != nil {
				yield(domain.LedgerEntry{}, fmt.Errorf("scan transaction: %w", err))
				return
			}
			if !yield(e, nil) {
				return
			}
		}
		if err := rows.Err(); err != nil {
			yield(domain.LedgerEntry{}, err)
		}
	}
}

func (s *SQLAdapter) queryEntries(ctx context.Context, query string, args []any) ([]domain.LedgerEntry, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}
	defer rows.Close()

	var entries []domain.LedgerEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (s *SQLAdapter) CountEntries(ctx context.Context) (int, error) {
	return s.count(ctx, `SELECT COUNT(*) FROM ledger_entries`)
}

// TotalRevenue sums in decimal rather than SQL so SQLite's float SUM never leaks in.
func (s *SQLAdapter) TotalRevenue(ctx context.Context) (decimal.Decimal, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT total_price FROM ledger_entries`)
	if err != nil {
		return decimal.Zero, fmt.Errorf("query revenue: %w", err)
	}
	defer rows.Close()

	total := decimal.Zero
	for rows.Next() {
		var price decimal.Decimal
		if err := rows.Scan(&price); err != nil {
			return decimal.Zero, fmt.Errorf("scan revenue: %w", err)
		}
		total = total.Add(price)
	}
	return total, rows.Err()
}

// =============================================================================
// SALE UNIT
// =============================================================================

func (s *SQLAdapter) WithSale(ctx context.Context, itemID string, fn func(port.SaleUnit) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", s.classify(err))
	}
	defer tx.Rollback()

	if err := fn(&sqlSaleUnit{tx: tx, parent: s}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit sale: %w", s.classify(err))
	}
	return nil
}

type sqlSaleUnit struct {
	tx     *sql.Tx
	parent *SQLAdapter
}

func (u *sqlSaleUnit) TryDecrement(ctx context.Context, itemID string, amount int) (int, decimal.Decimal, error) {
	s := u.parent
	result, err := u.tx.ExecContext(ctx, s.q(`
		UPDATE stock_items
		SET quantity = quantity - ?, updated_at = ?
		WHERE id = ? AND quantity >= ?`),
		amount, now(), itemID, amount,
	)
	if err != nil {
		return 0, decimal.Zero, fmt.Errorf("decrement stock: %w", s.classify(err))
	}
	rows, err := rowsAffected(result, "decrement stock")
	if err != nil {
		return 0, decimal.Zero, err
	}

	var (
		quantity int
		price    decimal.Decimal
	)
	err = u.tx.QueryRowContext(ctx, s.q(`SELECT quantity, price FROM stock_items WHERE id = ?`), itemID).
		Scan(&quantity, &price)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, decimal.Zero, &domain.NotFoundError{Kind: "item", ID: itemID}
	}
	if err != nil {
		return 0, decimal.Zero, fmt.Errorf("read stock: %w", s.classify(err))
	}

	if rows == 0 {
		return 0, decimal.Zero, &domain.InsufficientStockError{ItemID: itemID, Available: quantity, Requested: amount}
	}
	return quantity, price, nil
}

func (u *sqlSaleUnit) AppendEntry(ctx context.Context, entry *domain.LedgerEntry) error {
	s := u.parent
	id, err := uuid.NewV7()
	if err != nil {
		return fmt.Errorf("generate ledger id: %w", err)
	}
	entry.ID = id.String()
	entry.CreatedAt = now()

	_, err = u.tx.ExecContext(ctx, s.q(`
		INSERT INTO ledger_entries (`+entryColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`),
		entry.ID, entry.CustomerID, entry.ItemID, entry.Quantity,
		entry.UnitPrice.String(), entry.TotalPrice.String(),
		nullString(entry.RequestID), entry.CreatedAt,
	)
	if err != nil {
		if s.dialect.IsDuplicate != nil && s.dialect.IsDuplicate(err) {
			return fmt.Errorf("%w: request %s already recorded", domain.ErrDuplicateRequest, entry.RequestID)
		}
		return fmt.Errorf("insert transaction: %w", s.classify(err))
	}
	return nil
}

// =============================================================================
// DIRECTORY
// =============================================================================

func (s *SQLAdapter) CreateCustomer(ctx context.Context, c domain.Customer) error {
	_, err := s.db.ExecContext(ctx, s.q(`
		INSERT INTO customers (id, name, email, created_at) VALUES (?, ?, ?, ?)`),
		c.ID, c.Name, c.Email, c.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert customer: %w", err)
	}
	return nil
}

func (s *SQLAdapter) GetCustomer(ctx context.Context, id string) (*domain.Customer, error) {
	var c domain.Customer
	err := s.db.QueryRowContext(ctx, s.q(`
		SELECT id, name, email, created_at FROM customers WHERE id = ?`), id,
	).Scan(&c.ID, &c.Name, &c.Email, &c.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &domain.NotFoundError{Kind: "customer", ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("query customer: %w", err)
	}
	return &c, nil
}

func (s *SQLAdapter) CountCustomers(ctx context.Context) (int, error) {
	return s.count(ctx, `SELECT COUNT(*) FROM customers`)
}

func (s *SQLAdapter) CreateStaff(ctx context.Context, st domain.Staff) error {
	_, err := s.db.ExecContext(ctx, s.q(`
		INSERT INTO staff (id, name, email, designation, created_at) VALUES (?, ?, ?, ?, ?)`),
		st.ID, st.Name, st.Email, st.Designation, st.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert staff: %w", err)
	}
	return nil
}

func (s *SQLAdapter) CountStaff(ctx context.Context) (int, error) {
	return s.count(ctx, `SELECT COUNT(*) FROM staff`)
}

func optional[T any](v *T) any {
	if v == nil {
		return nil
	}
	return *v
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
