package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"norko-pos-edge/internal/model"
	"norko-pos-edge/pkg/uid"

	_ "modernc.org/sqlite" // Pure Go SQLite driver - no CGO required
)

// SQLiteStore implements Store on a local SQLite file. WAL mode with a
// single writer connection serializes same-table transactions.
type SQLiteStore struct {
	path string

	mu       sync.RWMutex
	db       *sql.DB
	openOnce sync.Once
	openErr  error
}

// NewSQLiteStore creates an unopened SQLite store for the given file path.
func NewSQLiteStore(path string) *SQLiteStore {
	return &SQLiteStore{path: path}
}

// Open opens the database, applies pragmas, and creates the schema.
// Repeated and concurrent callers share the first initialization result.
func (s *SQLiteStore) Open(ctx context.Context) error {
	s.openOnce.Do(func() {
		s.openErr = s.open(ctx)
	})
	return s.openErr
}

func (s *SQLiteStore) open(ctx context.Context) error {
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
		}
	}

	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000", s.path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}

	// SQLite only supports 1 writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys=ON;"); err != nil {
		db.Close()
		return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}

	if err := createSchema(ctx, db); err != nil {
		db.Close()
		return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}

	s.mu.Lock()
	s.db = db
	s.mu.Unlock()

	log.Printf("[SQLiteStore] Initialized with database: %s", s.path)
	return nil
}

func createSchema(ctx context.Context, db *sql.DB) error {
	query := `
	CREATE TABLE IF NOT EXISTS products (
		id INTEGER PRIMARY KEY,
		name_ar TEXT NOT NULL,
		description_ar TEXT NOT NULL DEFAULT '',
		category_id INTEGER NOT NULL DEFAULT 0,
		wholesale_price REAL NOT NULL DEFAULT 0,
		retail_price REAL NOT NULL DEFAULT 0,
		stock_quantity REAL NOT NULL DEFAULT 0,
		min_stock_threshold REAL NOT NULL DEFAULT 10,
		unit_type TEXT NOT NULL DEFAULT '',
		last_updated TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_products_category ON products(category_id);
	CREATE TABLE IF NOT EXISTS categories (
		id INTEGER PRIMARY KEY,
		name_ar TEXT NOT NULL,
		description_ar TEXT NOT NULL DEFAULT '',
		last_updated TEXT NOT NULL
	);
	CREATE TABLE IF NOT EXISTS customers (
		id INTEGER PRIMARY KEY,
		name TEXT NOT NULL,
		phone TEXT NOT NULL DEFAULT '',
		address TEXT NOT NULL DEFAULT '',
		notes TEXT NOT NULL DEFAULT '',
		last_updated TEXT NOT NULL
	);
	CREATE TABLE IF NOT EXISTS sales (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		server_id INTEGER NOT NULL DEFAULT 0,
		client_ref TEXT NOT NULL,
		subtotal REAL NOT NULL DEFAULT 0,
		discount_type TEXT NOT NULL DEFAULT 'none',
		discount_value REAL NOT NULL DEFAULT 0,
		discount_amount REAL NOT NULL DEFAULT 0,
		total_amount REAL NOT NULL,
		customer_id INTEGER NOT NULL DEFAULT 0,
		payment_status TEXT NOT NULL DEFAULT 'paid',
		payment_type TEXT NOT NULL DEFAULT 'cash',
		notes TEXT NOT NULL DEFAULT '',
		sync_status TEXT NOT NULL DEFAULT 'pending',
		created_offline INTEGER NOT NULL DEFAULT 1,
		sale_date TEXT NOT NULL,
		created_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_sales_sync_status ON sales(sync_status);
	CREATE INDEX IF NOT EXISTS idx_sales_customer ON sales(customer_id);
	CREATE TABLE IF NOT EXISTS sale_items (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		sale_id INTEGER NOT NULL REFERENCES sales(id),
		product_id INTEGER NOT NULL,
		quantity REAL NOT NULL,
		unit_price REAL NOT NULL,
		total_price REAL NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_sale_items_sale ON sale_items(sale_id);
	CREATE TABLE IF NOT EXISTS pending_operations (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		operation_type TEXT NOT NULL,
		data TEXT NOT NULL,
		priority INTEGER NOT NULL,
		timestamp INTEGER NOT NULL,
		retry_count INTEGER NOT NULL DEFAULT 0
	);
	CREATE INDEX IF NOT EXISTS idx_pending_order ON pending_operations(priority, timestamp);
	CREATE TABLE IF NOT EXISTS app_settings (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);`
	_, err := db.ExecContext(ctx, query)
	return err
}

// conn returns the open database handle or ErrNotInitialized.
func (s *SQLiteStore) conn() (*sql.DB, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.db == nil {
		return nil, ErrNotInitialized
	}
	return s.db, nil
}

// ReplaceProducts replaces the product mirror wholesale inside one
// transaction, stamping last_updated on every row.
func (s *SQLiteStore) ReplaceProducts(ctx context.Context, products []model.Product) error {
	db, err := s.conn()
	if err != nil {
		return err
	}
	now := formatTime(time.Now())
	return replaceAll(ctx, db, "products", func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO products (id, name_ar, description_ar, category_id, wholesale_price,
				retail_price, stock_quantity, min_stock_threshold, unit_type, last_updated)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return err
		}
		defer stmt.Close()
		for _, p := range products {
			_, err := stmt.ExecContext(ctx, p.ID, p.NameAr, p.DescriptionAr, p.CategoryID,
				p.WholesalePrice, p.RetailPrice, p.StockQuantity, p.MinStockThreshold, p.UnitType, now)
			if err != nil {
				return err
			}
		}
		return nil
	})
}

// ReplaceCategories replaces the category mirror wholesale.
func (s *SQLiteStore) ReplaceCategories(ctx context.Context, categories []model.Category) error {
	db, err := s.conn()
	if err != nil {
		return err
	}
	now := formatTime(time.Now())
	return replaceAll(ctx, db, "categories", func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO categories (id, name_ar, description_ar, last_updated)
			VALUES (?, ?, ?, ?)`)
		if err != nil {
			return err
		}
		defer stmt.Close()
		for _, c := range categories {
			if _, err := stmt.ExecContext(ctx, c.ID, c.NameAr, c.DescriptionAr, now); err != nil {
				return err
			}
		}
		return nil
	})
}

// ReplaceCustomers replaces the customer mirror wholesale.
func (s *SQLiteStore) ReplaceCustomers(ctx context.Context, customers []model.Customer) error {
	db, err := s.conn()
	if err != nil {
		return err
	}
	now := formatTime(time.Now())
	return replaceAll(ctx, db, "customers", func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO customers (id, name, phone, address, notes, last_updated)
			VALUES (?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return err
		}
		defer stmt.Close()
		for _, c := range customers {
			if _, err := stmt.ExecContext(ctx, c.ID, c.Name, c.Phone, c.Address, c.Notes, now); err != nil {
				return err
			}
		}
		return nil
	})
}

// replaceAll deletes every row in table, runs insert, and commits, so a
// pull always leaves the mirror equal to the server's last-known state.
func replaceAll(ctx context.Context, db *sql.DB, table string, insert func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrWriteFailed, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
		return fmt.Errorf("%w: %v", ErrWriteFailed, err)
	}
	if err := insert(tx); err != nil {
		return fmt.Errorf("%w: %v", ErrWriteFailed, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: %v", ErrWriteFailed, err)
	}
	return nil
}

// Products returns products matching the filter. Filtering happens in
// memory over the full table, mirroring the original local reads.
func (s *SQLiteStore) Products(ctx context.Context, filter ProductFilter) ([]model.Product, error) {
	db, err := s.conn()
	if err != nil {
		return nil, err
	}
	rows, err := db.QueryContext(ctx, `
		SELECT id, name_ar, description_ar, category_id, wholesale_price, retail_price,
			stock_quantity, min_stock_threshold, unit_type, last_updated
		FROM products`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var products []model.Product
	for rows.Next() {
		var p model.Product
		var lastUpdated string
		err := rows.Scan(&p.ID, &p.NameAr, &p.DescriptionAr, &p.CategoryID, &p.WholesalePrice,
			&p.RetailPrice, &p.StockQuantity, &p.MinStockThreshold, &p.UnitType, &lastUpdated)
		if err != nil {
			return nil, err
		}
		p.LastUpdated = parseTime(lastUpdated)
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return FilterProducts(products, filter), nil
}

// Categories returns all mirrored categories.
func (s *SQLiteStore) Categories(ctx context.Context) ([]model.Category, error) {
	db, err := s.conn()
	if err != nil {
		return nil, err
	}
	rows, err := db.QueryContext(ctx,
		"SELECT id, name_ar, description_ar, last_updated FROM categories")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var categories []model.Category
	for rows.Next() {
		var c model.Category
		var lastUpdated string
		if err := rows.Scan(&c.ID, &c.NameAr, &c.DescriptionAr, &lastUpdated); err != nil {
			return nil, err
		}
		c.LastUpdated = parseTime(lastUpdated)
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

// Customers returns customers matching the filter.
func (s *SQLiteStore) Customers(ctx context.Context, filter CustomerFilter) ([]model.Customer, error) {
	db, err := s.conn()
	if err != nil {
		return nil, err
	}
	rows, err := db.QueryContext(ctx,
		"SELECT id, name, phone, address, notes, last_updated FROM customers")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var customers []model.Customer
	for rows.Next() {
		var c model.Customer
		var lastUpdated string
		if err := rows.Scan(&c.ID, &c.Name, &c.Phone, &c.Address, &c.Notes, &lastUpdated); err != nil {
			return nil, err
		}
		c.LastUpdated = parseTime(lastUpdated)
		customers = append(customers, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return FilterCustomers(customers, filter), nil
}

const saleColumns = `id, server_id, client_ref, subtotal, discount_type, discount_value,
	discount_amount, total_amount, customer_id, payment_status, payment_type, notes,
	sync_status, created_offline, sale_date, created_at`

func scanSale(scan func(dest ...interface{}) error) (model.Sale, error) {
	var s model.Sale
	var saleDate, createdAt string
	var createdOffline int
	err := scan(&s.ID, &s.ServerID, &s.ClientRef, &s.Subtotal, &s.DiscountType, &s.DiscountValue,
		&s.DiscountAmount, &s.TotalAmount, &s.CustomerID, &s.PaymentStatus, &s.PaymentType,
		&s.Notes, &s.SyncStatus, &createdOffline, &saleDate, &createdAt)
	if err != nil {
		return s, err
	}
	s.CreatedOffline = createdOffline != 0
	s.SaleDate = parseTime(saleDate)
	s.CreatedAt = parseTime(createdAt)
	return s, nil
}

// Sales returns local sales matching the filter, newest first, with items
// attached.
func (s *SQLiteStore) Sales(ctx context.Context, filter SaleFilter) ([]model.Sale, error) {
	db, err := s.conn()
	if err != nil {
		return nil, err
	}
	rows, err := db.QueryContext(ctx, "SELECT "+saleColumns+" FROM sales")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sales []model.Sale
	for rows.Next() {
		sale, err := scanSale(rows.Scan)
		if err != nil {
			return nil, err
		}
		sales = append(sales, sale)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sales = FilterSales(sales, filter)
	for i := range sales {
		items, err := s.saleItems(ctx, db, sales[i].ID)
		if err != nil {
			return nil, err
		}
		sales[i].Items = items
	}
	return sales, nil
}

// Sale returns one local sale by its local id, or nil if absent.
func (s *SQLiteStore) Sale(ctx context.Context, localID int64) (*model.Sale, error) {
	db, err := s.conn()
	if err != nil {
		return nil, err
	}
	row := db.QueryRowContext(ctx, "SELECT "+saleColumns+" FROM sales WHERE id = ?", localID)
	sale, err := scanSale(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	sale.Items, err = s.saleItems(ctx, db, sale.ID)
	if err != nil {
		return nil, err
	}
	return &sale, nil
}

func (s *SQLiteStore) saleItems(ctx context.Context, db *sql.DB, saleID int64) ([]model.SaleItem, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, sale_id, product_id, quantity, unit_price, total_price
		FROM sale_items WHERE sale_id = ? ORDER BY id`, saleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []model.SaleItem
	for rows.Next() {
		var it model.SaleItem
		if err := rows.Scan(&it.ID, &it.SaleID, &it.ProductID, &it.Quantity, &it.UnitPrice, &it.TotalPrice); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// CreateSale inserts the sale, its items, and the create_sale pending
// operation in one transaction. The sale row is written before its items,
// and the items before the operation entry.
func (s *SQLiteStore) CreateSale(ctx context.Context, sale *model.Sale) error {
	db, err := s.conn()
	if err != nil {
		return err
	}

	now := time.Now()
	if sale.ClientRef == "" {
		sale.ClientRef = uid.New()
	}
	if sale.SaleDate.IsZero() {
		sale.SaleDate = now
	}
	sale.SyncStatus = model.SyncStatusPending
	sale.CreatedOffline = true
	sale.CreatedAt = now

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrWriteFailed, err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		INSERT INTO sales (server_id, client_ref, subtotal, discount_type, discount_value,
			discount_amount, total_amount, customer_id, payment_status, payment_type, notes,
			sync_status, created_offline, sale_date, created_at)
		VALUES (0, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 1, ?, ?)`,
		sale.ClientRef, sale.Subtotal, sale.DiscountType, sale.DiscountValue, sale.DiscountAmount,
		sale.TotalAmount, sale.CustomerID, sale.PaymentStatus, sale.PaymentType, sale.Notes,
		sale.SyncStatus, formatTime(sale.SaleDate), formatTime(sale.CreatedAt))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrWriteFailed, err)
	}
	saleID, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrWriteFailed, err)
	}

	for i := range sale.Items {
		sale.Items[i].SaleID = saleID
		res, err := tx.ExecContext(ctx, `
			INSERT INTO sale_items (sale_id, product_id, quantity, unit_price, total_price)
			VALUES (?, ?, ?, ?, ?)`,
			saleID, sale.Items[i].ProductID, sale.Items[i].Quantity,
			sale.Items[i].UnitPrice, sale.Items[i].TotalPrice)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrWriteFailed, err)
		}
		sale.Items[i].ID, _ = res.LastInsertId()
	}

	payload, err := json.Marshal(model.CreateSalePayload{SaleID: saleID, ClientRef: sale.ClientRef})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrWriteFailed, err)
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO pending_operations (operation_type, data, priority, timestamp, retry_count)
		VALUES (?, ?, ?, ?, 0)`,
		model.OpCreateSale, string(payload), model.DefaultPriority(model.OpCreateSale), now.UnixMilli())
	if err != nil {
		return fmt.Errorf("%w: %v", ErrWriteFailed, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: %v", ErrWriteFailed, err)
	}
	sale.ID = saleID
	return nil
}

// MarkSaleSynced records the server id and flips sync_status in one update.
func (s *SQLiteStore) MarkSaleSynced(ctx context.Context, localID, serverID int64) error {
	db, err := s.conn()
	if err != nil {
		return err
	}
	_, err = db.ExecContext(ctx,
		"UPDATE sales SET server_id = ?, sync_status = ? WHERE id = ?",
		serverID, model.SyncStatusSynced, localID)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrWriteFailed, err)
	}
	return nil
}

// AddPendingOperation appends an operation row, stamping the current time
// when the caller left it unset.
func (s *SQLiteStore) AddPendingOperation(ctx context.Context, op *model.PendingOperation) error {
	db, err := s.conn()
	if err != nil {
		return err
	}
	if op.Timestamp == 0 {
		op.Timestamp = time.Now().UnixMilli()
	}
	res, err := db.ExecContext(ctx, `
		INSERT INTO pending_operations (operation_type, data, priority, timestamp, retry_count)
		VALUES (?, ?, ?, ?, ?)`,
		op.OperationType, string(op.Data), op.Priority, op.Timestamp, op.RetryCount)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrWriteFailed, err)
	}
	op.ID, _ = res.LastInsertId()
	return nil
}

// PendingOperations returns every queued operation in total order:
// priority ascending, then timestamp ascending.
func (s *SQLiteStore) PendingOperations(ctx context.Context) ([]model.PendingOperation, error) {
	db, err := s.conn()
	if err != nil {
		return nil, err
	}
	rows, err := db.QueryContext(ctx, `
		SELECT id, operation_type, data, priority, timestamp, retry_count
		FROM pending_operations
		ORDER BY priority ASC, timestamp ASC, id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ops []model.PendingOperation
	for rows.Next() {
		var op model.PendingOperation
		var data string
		if err := rows.Scan(&op.ID, &op.OperationType, &data, &op.Priority, &op.Timestamp, &op.RetryCount); err != nil {
			return nil, err
		}
		op.Data = json.RawMessage(data)
		ops = append(ops, op)
	}
	return ops, rows.Err()
}

// RemovePendingOperation deletes one operation row.
func (s *SQLiteStore) RemovePendingOperation(ctx context.Context, id int64) error {
	db, err := s.conn()
	if err != nil {
		return err
	}
	if _, err := db.ExecContext(ctx, "DELETE FROM pending_operations WHERE id = ?", id); err != nil {
		return fmt.Errorf("%w: %v", ErrWriteFailed, err)
	}
	return nil
}

// SetPendingRetryCount updates the retry counter of one operation row.
func (s *SQLiteStore) SetPendingRetryCount(ctx context.Context, id int64, retryCount int) error {
	db, err := s.conn()
	if err != nil {
		return err
	}
	_, err = db.ExecContext(ctx,
		"UPDATE pending_operations SET retry_count = ? WHERE id = ?", retryCount, id)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrWriteFailed, err)
	}
	return nil
}

// PendingCount returns the number of queued operations.
func (s *SQLiteStore) PendingCount(ctx context.Context) (int, error) {
	db, err := s.conn()
	if err != nil {
		return 0, err
	}
	var count int
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM pending_operations").Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

// Setting returns a settings value, or empty string when the key is absent.
func (s *SQLiteStore) Setting(ctx context.Context, key string) (string, error) {
	db, err := s.conn()
	if err != nil {
		return "", err
	}
	var value string
	err = db.QueryRowContext(ctx, "SELECT value FROM app_settings WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return value, nil
}

// SetSetting upserts a settings value, stamping updated_at.
func (s *SQLiteStore) SetSetting(ctx context.Context, key, value string) error {
	db, err := s.conn()
	if err != nil {
		return err
	}
	_, err = db.ExecContext(ctx, `
		INSERT INTO app_settings (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, formatTime(time.Now()))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrWriteFailed, err)
	}
	return nil
}

// Stats returns row counts per container and the approximate file size.
func (s *SQLiteStore) Stats(ctx context.Context) (map[string]interface{}, error) {
	db, err := s.conn()
	if err != nil {
		return nil, err
	}

	stats := make(map[string]interface{})
	for _, table := range storeTables {
		var count int64
		if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table).Scan(&count); err != nil {
			return nil, err
		}
		stats[table] = count
	}

	var pageCount, pageSize int64
	db.QueryRowContext(ctx, "PRAGMA page_count").Scan(&pageCount)
	db.QueryRowContext(ctx, "PRAGMA page_size").Scan(&pageSize)
	stats["db_size_bytes"] = pageCount * pageSize

	return stats, nil
}

var storeTables = []string{
	"products", "categories", "customers",
	"sales", "sale_items", "pending_operations", "app_settings",
}

// ClearAll empties every container in one transaction.
func (s *SQLiteStore) ClearAll(ctx context.Context) error {
	db, err := s.conn()
	if err != nil {
		return err
	}
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrWriteFailed, err)
	}
	defer tx.Rollback()

	// children before parents to keep the FK happy
	for _, table := range []string{"sale_items", "sales", "pending_operations",
		"products", "categories", "customers", "app_settings"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("%w: %v", ErrWriteFailed, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: %v", ErrWriteFailed, err)
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

// Ensure SQLiteStore implements Store
var _ Store = (*SQLiteStore)(nil)
