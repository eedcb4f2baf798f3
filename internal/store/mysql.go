package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"norko-pos-edge/internal/model"
	"norko-pos-edge/pkg/uid"

	_ "github.com/go-sql-driver/mysql"
)

// MySQLStore implements Store on a MySQL server, for shops that already
// run one next to the register. Same contract as SQLiteStore; timestamps
// are stored as RFC3339 text so both backends share the scan helpers.
type MySQLStore struct {
	dsn string

	mu       sync.RWMutex
	db       *sql.DB
	openOnce sync.Once
	openErr  error
}

// NewMySQLStore creates an unopened MySQL store for the given DSN.
func NewMySQLStore(dsn string) *MySQLStore {
	return &MySQLStore{dsn: dsn}
}

// Open connects, verifies the server, and creates the schema. Idempotent.
func (s *MySQLStore) Open(ctx context.Context) error {
	s.openOnce.Do(func() {
		s.openErr = s.open(ctx)
	})
	return s.openErr
}

func (s *MySQLStore) open(ctx context.Context) error {
	db, err := sql.Open("mysql", s.dsn)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	if err := createMySQLSchema(ctx, db); err != nil {
		db.Close()
		return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}

	s.mu.Lock()
	s.db = db
	s.mu.Unlock()

	log.Printf("[MySQLStore] Initialized")
	return nil
}

func createMySQLSchema(ctx context.Context, db *sql.DB) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS products (
			id BIGINT PRIMARY KEY,
			name_ar VARCHAR(200) NOT NULL,
			description_ar TEXT,
			category_id BIGINT NOT NULL DEFAULT 0,
			wholesale_price DOUBLE NOT NULL DEFAULT 0,
			retail_price DOUBLE NOT NULL DEFAULT 0,
			stock_quantity DOUBLE NOT NULL DEFAULT 0,
			min_stock_threshold DOUBLE NOT NULL DEFAULT 10,
			unit_type VARCHAR(50) NOT NULL DEFAULT '',
			last_updated VARCHAR(40) NOT NULL,
			INDEX idx_products_category (category_id)
		)`,
		`CREATE TABLE IF NOT EXISTS categories (
			id BIGINT PRIMARY KEY,
			name_ar VARCHAR(100) NOT NULL,
			description_ar TEXT,
			last_updated VARCHAR(40) NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS customers (
			id BIGINT PRIMARY KEY,
			name VARCHAR(200) NOT NULL,
			phone VARCHAR(20) NOT NULL DEFAULT '',
			address TEXT,
			notes TEXT,
			last_updated VARCHAR(40) NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS sales (
			id BIGINT PRIMARY KEY AUTO_INCREMENT,
			server_id BIGINT NOT NULL DEFAULT 0,
			client_ref VARCHAR(64) NOT NULL,
			subtotal DOUBLE NOT NULL DEFAULT 0,
			discount_type VARCHAR(20) NOT NULL DEFAULT 'none',
			discount_value DOUBLE NOT NULL DEFAULT 0,
			discount_amount DOUBLE NOT NULL DEFAULT 0,
			total_amount DOUBLE NOT NULL,
			customer_id BIGINT NOT NULL DEFAULT 0,
			payment_status VARCHAR(20) NOT NULL DEFAULT 'paid',
			payment_type VARCHAR(20) NOT NULL DEFAULT 'cash',
			notes TEXT,
			sync_status VARCHAR(20) NOT NULL DEFAULT 'pending',
			created_offline TINYINT NOT NULL DEFAULT 1,
			sale_date VARCHAR(40) NOT NULL,
			created_at VARCHAR(40) NOT NULL,
			INDEX idx_sales_sync_status (sync_status),
			INDEX idx_sales_customer (customer_id)
		)`,
		`CREATE TABLE IF NOT EXISTS sale_items (
			id BIGINT PRIMARY KEY AUTO_INCREMENT,
			sale_id BIGINT NOT NULL,
			product_id BIGINT NOT NULL,
			quantity DOUBLE NOT NULL,
			unit_price DOUBLE NOT NULL,
			total_price DOUBLE NOT NULL,
			INDEX idx_sale_items_sale (sale_id),
			CONSTRAINT fk_sale_items_sale FOREIGN KEY (sale_id) REFERENCES sales(id)
		)`,
		`CREATE TABLE IF NOT EXISTS pending_operations (
			id BIGINT PRIMARY KEY AUTO_INCREMENT,
			operation_type VARCHAR(50) NOT NULL,
			data TEXT NOT NULL,
			priority INT NOT NULL,
			timestamp BIGINT NOT NULL,
			retry_count INT NOT NULL DEFAULT 0,
			INDEX idx_pending_order (priority, timestamp)
		)`,
		"CREATE TABLE IF NOT EXISTS app_settings (" +
			"`key` VARCHAR(191) PRIMARY KEY, " +
			"value TEXT NOT NULL, " +
			"updated_at VARCHAR(40) NOT NULL)",
	}
	for _, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

func (s *MySQLStore) conn() (*sql.DB, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.db == nil {
		return nil, ErrNotInitialized
	}
	return s.db, nil
}

// ReplaceProducts replaces the product mirror wholesale.
func (s *MySQLStore) ReplaceProducts(ctx context.Context, products []model.Product) error {
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
func (s *MySQLStore) ReplaceCategories(ctx context.Context, categories []model.Category) error {
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
func (s *MySQLStore) ReplaceCustomers(ctx context.Context, customers []model.Customer) error {
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

// Products returns products matching the filter.
func (s *MySQLStore) Products(ctx context.Context, filter ProductFilter) ([]model.Product, error) {
	db, err := s.conn()
	if err != nil {
		return nil, err
	}
	rows, err := db.QueryContext(ctx, `
		SELECT id, name_ar, COALESCE(description_ar, ''), category_id, wholesale_price,
			retail_price, stock_quantity, min_stock_threshold, unit_type, last_updated
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
func (s *MySQLStore) Categories(ctx context.Context) ([]model.Category, error) {
	db, err := s.conn()
	if err != nil {
		return nil, err
	}
	rows, err := db.QueryContext(ctx,
		"SELECT id, name_ar, COALESCE(description_ar, ''), last_updated FROM categories")
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
func (s *MySQLStore) Customers(ctx context.Context, filter CustomerFilter) ([]model.Customer, error) {
	db, err := s.conn()
	if err != nil {
		return nil, err
	}
	rows, err := db.QueryContext(ctx, `
		SELECT id, name, phone, COALESCE(address, ''), COALESCE(notes, ''), last_updated
		FROM customers`)
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

const mysqlSaleColumns = `id, server_id, client_ref, subtotal, discount_type, discount_value,
	discount_amount, total_amount, customer_id, payment_status, payment_type,
	COALESCE(notes, ''), sync_status, created_offline, sale_date, created_at`

// Sales returns local sales matching the filter, newest first.
func (s *MySQLStore) Sales(ctx context.Context, filter SaleFilter) ([]model.Sale, error) {
	db, err := s.conn()
	if err != nil {
		return nil, err
	}
	rows, err := db.QueryContext(ctx, "SELECT "+mysqlSaleColumns+" FROM sales")
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
func (s *MySQLStore) Sale(ctx context.Context, localID int64) (*model.Sale, error) {
	db, err := s.conn()
	if err != nil {
		return nil, err
	}
	row := db.QueryRowContext(ctx, "SELECT "+mysqlSaleColumns+" FROM sales WHERE id = ?", localID)
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

func (s *MySQLStore) saleItems(ctx context.Context, db *sql.DB, saleID int64) ([]model.SaleItem, error) {
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
// operation in one transaction.
func (s *MySQLStore) CreateSale(ctx context.Context, sale *model.Sale) error {
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
func (s *MySQLStore) MarkSaleSynced(ctx context.Context, localID, serverID int64) error {
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

// AddPendingOperation appends an operation row.
func (s *MySQLStore) AddPendingOperation(ctx context.Context, op *model.PendingOperation) error {
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

// PendingOperations returns every queued operation in total order.
func (s *MySQLStore) PendingOperations(ctx context.Context) ([]model.PendingOperation, error) {
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
func (s *MySQLStore) RemovePendingOperation(ctx context.Context, id int64) error {
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
func (s *MySQLStore) SetPendingRetryCount(ctx context.Context, id int64, retryCount int) error {
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
func (s *MySQLStore) PendingCount(ctx context.Context) (int, error) {
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

// Setting returns a settings value, or empty string when absent.
func (s *MySQLStore) Setting(ctx context.Context, key string) (string, error) {
	db, err := s.conn()
	if err != nil {
		return "", err
	}
	var value string
	err = db.QueryRowContext(ctx, "SELECT value FROM app_settings WHERE `key` = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return value, nil
}

// SetSetting upserts a settings value.
func (s *MySQLStore) SetSetting(ctx context.Context, key, value string) error {
	db, err := s.conn()
	if err != nil {
		return err
	}
	_, err = db.ExecContext(ctx, `
		INSERT INTO app_settings (`+"`key`"+`, value, updated_at) VALUES (?, ?, ?)
		ON DUPLICATE KEY UPDATE value = VALUES(value), updated_at = VALUES(updated_at)`,
		key, value, formatTime(time.Now()))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrWriteFailed, err)
	}
	return nil
}

// Stats returns row counts per container.
func (s *MySQLStore) Stats(ctx context.Context) (map[string]interface{}, error) {
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
	return stats, nil
}

// ClearAll empties every container in one transaction.
func (s *MySQLStore) ClearAll(ctx context.Context) error {
	db, err := s.conn()
	if err != nil {
		return err
	}
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrWriteFailed, err)
	}
	defer tx.Rollback()

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
func (s *MySQLStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

// Ensure MySQLStore implements Store
var _ Store = (*MySQLStore)(nil)
