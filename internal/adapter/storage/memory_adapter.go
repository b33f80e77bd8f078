package storage

import (
	"context"
	"fmt"
	"iter"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rl1809/inventory-pos/internal/core/domain"
	"github.com/rl1809/inventory-pos/internal/port"
)

// MemoryStore keeps everything in process. Each item carries its own mutex, held for
// the whole of a sale on that item, so sales on different items never wait on each
// other. Lock order is item -> ledger; readers of items never touch the ledger lock.
type MemoryStore struct {
	itemsMu sync.RWMutex
	items   map[string]*memItem

	ledgerMu sync.RWMutex
	ledger   []domain.LedgerEntry
	byID     map[string]int
	requests map[string]bool

	partiesMu sync.RWMutex
	customers map[string]domain.Customer
	staff     map[string]domain.Staff
}

type memItem struct {
	mu   sync.Mutex
	item domain.StockItem
}

func (it *memItem) snapshot() domain.StockItem {
	it.mu.Lock()
	defer it.mu.Unlock()
	return it.item
}

var _ port.Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		items:     make(map[string]*memItem),
		byID:      make(map[string]int),
		requests:  make(map[string]bool),
		customers: make(map[string]domain.Customer),
		staff:     make(map[string]domain.Staff),
	}
}

func (m *MemoryStore) Close() error { return nil }

func (m *MemoryStore) lookup(id string) (*memItem, error) {
	m.itemsMu.RLock()
	defer m.itemsMu.RUnlock()

	it, ok := m.items[id]
	if !ok {
		return nil, &domain.NotFoundError{Kind: "item", ID: id}
	}
	return it, nil
}

func (m *MemoryStore) CreateItem(_ context.Context, item domain.StockItem) error {
	m.itemsMu.Lock()
	defer m.itemsMu.Unlock()

	if _, ok := m.items[item.ID]; ok {
		return fmt.Errorf("item %s already exists", item.ID)
	}
	m.items[item.ID] = &memItem{item: item}
	return nil
}

func (m *MemoryStore) GetItem(_ context.Context, id string) (*domain.StockItem, error) {
	it, err := m.lookup(id)
	if err != nil {
		return nil, err
	}
	item := it.snapshot()
	return &item, nil
}

func (m *MemoryStore) allItems() []domain.StockItem {
	m.itemsMu.RLock()
	defer m.itemsMu.RUnlock()

	result := make([]domain.StockItem, 0, len(m.items))
	for _, it := range m.items {
		result = append(result, it.snapshot())
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result
}

func (m *MemoryStore) ListItems(_ context.Context, filter domain.ItemFilter) ([]domain.StockItem, error) {
	var result []domain.StockItem
	for _, item := range m.allItems() {
		if filter.Match(item) {
			result = append(result, item)
		}
	}
	return result, nil
}

func (m *MemoryStore) UpdateItem(_ context.Context, id string, patch domain.ItemPatch) (*domain.StockItem, error) {
	it, err := m.lookup(id)
	if err != nil {
		return nil, err
	}
	it.mu.Lock()
	defer it.mu.Unlock()

	it.item = patch.Apply(it.item)
	it.item.UpdatedAt = time.Now().UTC()
	item := it.item
	return &item, nil
}

func (m *MemoryStore) DeleteItem(_ context.Context, id string) error {
	m.itemsMu.Lock()
	defer m.itemsMu.Unlock()

	if _, ok := m.items[id]; !ok {
		return &domain.NotFoundError{Kind: "item", ID: id}
	}
	delete(m.items, id)
	return nil
}

func (m *MemoryStore) Restock(_ context.Context, id string, amount int) (int, error) {
	it, err := m.lookup(id)
	if err != nil {
		return 0, err
	}
	it.mu.Lock()
	defer it.mu.Unlock()

	if err := domain.CheckRestock(it.item.Quantity, amount); err != nil {
		return 0, err
	}
	it.item.Quantity += amount
	it.item.UpdatedAt = time.Now().UTC()
	return it.item.Quantity, nil
}

func (m *MemoryStore) Categories(_ context.Context) ([]string, error) {
	seen := make(map[string]bool)
	var result []string
	for _, item := range m.allItems() {
		if item.Category != "" && !seen[item.Category] {
			seen[item.Category] = true
			result = append(result, item.Category)
		}
	}
	sort.Strings(result)
	return result, nil
}

func (m *MemoryStore) CountItems(_ context.Context) (int, error) {
	m.itemsMu.RLock()
	defer m.itemsMu.RUnlock()
	return len(m.items), nil
}

func (m *MemoryStore) CountLowStock(_ context.Context, threshold int) (int, error) {
	count := 0
	for _, item := range m.allItems() {
		if item.IsLowStock(threshold) {
			count++
		}
	}
	return count, nil
}

// =============================================================================
// LEDGER
// =============================================================================

func (m *MemoryStore) GetEntry(_ context.Context, id string) (*domain.LedgerEntry, error) {
	m.ledgerMu.RLock()
	defer m.ledgerMu.RUnlock()

	i, ok := m.byID[id]
	if !ok {
		return nil, &domain.NotFoundError{Kind: "transaction", ID: id}
	}
	entry := m.ledger[i]
	return &entry, nil
}

// view returns the committed prefix of the ledger. Entries are never modified after
// commit, so the slice can be read without holding the lock.
func (m *MemoryStore) view() []domain.LedgerEntry {
	m.ledgerMu.RLock()
	defer m.ledgerMu.RUnlock()
	return m.ledger[:len(m.ledger):len(m.ledger)]
}

func (m *MemoryStore) Entries(ctx context.Context, filter domain.EntryFilter) iter.Seq2[domain.LedgerEntry, error] {
	return func(yield func(domain.LedgerEntry, error) bool) {
		entries := m.view()
		for n := range entries {
			i := n
			if filter.NewestFirst {
				i = len(entries) - 1 - n
			}
			if err := ctx.Err(); err != nil {
				yield(domain.LedgerEntry{}, err)
				return
			}
			if !filter.Match(entries[i]) {
				continue
			}
			if !yield(entries[i], nil) {
				return
			}
		}
	}
}

func (m *MemoryStore) CountEntries(_ context.Context) (int, error) {
	return len(m.view()), nil
}

func (m *MemoryStore) TotalRevenue(_ context.Context) (decimal.Decimal, error) {
	total := decimal.Zero
	for _, e := range m.view() {
		total = total.Add(e.TotalPrice)
	}
	return total, nil
}

// =============================================================================
// SALE UNIT
// =============================================================================

// WithSale holds the item's mutex for the duration of fn. The ledger entry is staged
// and only published once fn returns nil; on error the decrement is undone before the
// mutex is released, so no partial sale is ever visible.
func (m *MemoryStore) WithSale(ctx context.Context, itemID string, fn func(port.SaleUnit) error) error {
	it, err := m.lookup(itemID)
	if err != nil {
		return err
	}
	it.mu.Lock()
	defer it.mu.Unlock()

	unit := &memSaleUnit{item: it, before: it.item}
	if err := fn(unit); err != nil {
		it.item = unit.before
		return err
	}
	if err := ctx.Err(); err != nil {
		it.item = unit.before
		return err
	}
	if err := m.commit(unit.staged); err != nil {
		it.item = unit.before
		return err
	}
	return nil
}

func (m *MemoryStore) commit(staged []*domain.LedgerEntry) error {
	if len(staged) == 0 {
		return nil
	}
	m.ledgerMu.Lock()
	defer m.ledgerMu.Unlock()

	for _, entry := range staged {
		if entry.RequestID != "" && m.requests[entry.RequestID] {
			return fmt.Errorf("%w: request %s already recorded", domain.ErrDuplicateRequest, entry.RequestID)
		}
	}
	for _, entry := range staged {
		id, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("generate ledger id: %w", err)
		}
		entry.ID = id.String()
		entry.CreatedAt = time.Now().UTC()
		m.byID[entry.ID] = len(m.ledger)
		if entry.RequestID != "" {
			m.requests[entry.RequestID] = true
		}
		m.ledger = append(m.ledger, *entry)
	}
	return nil
}

type memSaleUnit struct {
	item   *memItem
	before domain.StockItem
	staged []*domain.LedgerEntry
}

func (u *memSaleUnit) TryDecrement(_ context.Context, itemID string, amount int) (int, decimal.Decimal, error) {
	if itemID != u.item.item.ID {
		return 0, decimal.Zero, fmt.Errorf("sale unit is bound to item %s, not %s", u.item.item.ID, itemID)
	}
	current := u.item.item.Quantity
	if current < amount {
		return 0, decimal.Zero, &domain.InsufficientStockError{ItemID: itemID, Available: current, Requested: amount}
	}
	u.item.item.Quantity = current - amount
	u.item.item.UpdatedAt = time.Now().UTC()
	return u.item.item.Quantity, u.item.item.Price, nil
}

func (u *memSaleUnit) AppendEntry(_ context.Context, entry *domain.LedgerEntry) error {
	u.staged = append(u.staged, entry)
	return nil
}

// =============================================================================
// DIRECTORY
// =============================================================================

func (m *MemoryStore) CreateCustomer(_ context.Context, c domain.Customer) error {
	m.partiesMu.Lock()
	defer m.partiesMu.Unlock()
	m.customers[c.ID] = c
	return nil
}

func (m *MemoryStore) GetCustomer(_ context.Context, id string) (*domain.Customer, error) {
	m.partiesMu.RLock()
	defer m.partiesMu.RUnlock()

	c, ok := m.customers[id]
	if !ok {
		return nil, &domain.NotFoundError{Kind: "customer", ID: id}
	}
	return &c, nil
}

func (m *MemoryStore) CountCustomers(_ context.Context) (int, error) {
	m.partiesMu.RLock()
	defer m.partiesMu.RUnlock()
	return len(m.customers), nil
}

func (m *MemoryStore) CreateStaff(_ context.Context, s domain.Staff) error {
	m.partiesMu.Lock()
	defer m.partiesMu.Unlock()
	m.staff[s.ID] = s
	return nil
}

func (m *MemoryStore) CountStaff(_ context.Context) (int, error) {
	m.partiesMu.RLock()
	defer m.partiesMu.RUnlock()
	return len(m.staff), nil
}
