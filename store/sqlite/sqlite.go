/*
Package sqlite provides the SQLite-backed implementation of the storage
interfaces.

PURPOSE:
  Implements ledger.Store (atomic units, records, lines, stock movements)
  plus the product and expense CRUD consumed directly by the API layer.
  In production the same patterns apply to PostgreSQL - only minor SQL
  dialect differences.

KEY TABLES:
  products:   inventory rows; stock_quantity carries a CHECK (>= 0)
  records:    sale/service rows, discriminated by kind
  line_items: consumed-product entries, owned by their record
  expenses:   simple money-out entries, no stock interaction

STOCK GUARD:
  DecrementStock is a single conditional UPDATE:

    UPDATE products SET stock_quantity = stock_quantity - ?
    WHERE id = ? AND stock_quantity >= ?

  evaluated inside the enclosing SQL transaction, so the check observes
  credits applied earlier in the same unit, and two concurrent units cannot
  both pass the guard on the same row. The CHECK constraint is a backstop,
  not the mechanism.

WEAK PRODUCT REFERENCE:
  line_items.product_id has no foreign key to products. Deleting a product
  leaves historical lines intact; they carry their own part_name and
  price_at_sale snapshots.

CONCURRENCY:
  sync.RWMutex serializes writers within the process; SQLite WAL mode keeps
  readers unblocked.

USAGE:
  store, err := sqlite.New("./data/shop.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  engine := ledger.NewEngine(store, logger)

SEE ALSO:
  - ledger/store.go: interface definitions
  - ledger/store/memory.go: in-memory implementation for tests
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/partsdesk/shop-engine/ledger"
)

// Store implements ledger.Store and the product/expense CRUD using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a SQLite store at the given path. Use ":memory:" for an
// in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// A ":memory:" database exists per connection; one connection keeps
	// every caller on the same data. Writers are serialized anyway.
	db.SetMaxOpenConns(1)

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS products (
		id TEXT PRIMARY KEY,
		part_name TEXT NOT NULL,
		category TEXT NOT NULL,
		car_brand TEXT NOT NULL,
		car_model TEXT NOT NULL,
		year_range TEXT NOT NULL,
		stock_quantity INTEGER NOT NULL DEFAULT 0 CHECK (stock_quantity >= 0),
		cost_price TEXT NOT NULL,
		selling_price TEXT NOT NULL,
		bin_location TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_products_category
		ON products(category);
	CREATE INDEX IF NOT EXISTS idx_products_created
		ON products(created_at DESC);

	-- Sale and service records in one table, discriminated by kind.
	-- Kind-specific columns are NULL for the other kind.
	CREATE TABLE IF NOT EXISTS records (
		id TEXT PRIMARY KEY,
		kind TEXT NOT NULL CHECK (kind IN ('sale', 'service')),
		total_amount TEXT,
		tax_amount TEXT,
		status TEXT,
		customer_name TEXT,
		car_plate_number TEXT,
		service_type TEXT,
		technician_notes TEXT,
		total_price TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_records_kind_created
		ON records(kind, created_at DESC);

	-- Lines reference their record strongly and their product weakly:
	-- products may be deleted out from under historical lines.
	CREATE TABLE IF NOT EXISTS line_items (
		id TEXT PRIMARY KEY,
		record_id TEXT NOT NULL REFERENCES records(id),
		product_id TEXT NOT NULL,
		part_name TEXT NOT NULL DEFAULT '',
		quantity INTEGER NOT NULL CHECK (quantity > 0),
		price_at_sale TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_line_items_record
		ON line_items(record_id);
	CREATE INDEX IF NOT EXISTS idx_line_items_product
		ON line_items(product_id);

	CREATE TABLE IF NOT EXISTS expenses (
		id TEXT PRIMARY KEY,
		type TEXT NOT NULL,
		description TEXT NOT NULL,
		amount TEXT NOT NULL,
		expense_date TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_expenses_date
		ON expenses(expense_date DESC);
	`

	_, err := s.db.Exec(schema)
	return err
}

// dbtx abstracts *sql.DB and *sql.Tx so row operations can run standalone
// or inside an atomic unit.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// =============================================================================
// ATOMIC UNITS (ledger.Store interface)
// =============================================================================

// WithTx executes fn within one database transaction. An error from fn
// rolls back every write made through its Tx.
func (s *Store) WithTx(ctx context.Context, fn func(tx ledger.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if err := fn(&txHandle{q: sqlTx, parent: s}); err != nil {
		return err
	}
	return sqlTx.Commit()
}

type txHandle struct {
	q      *sql.Tx
	parent *Store
}

func (t *txHandle) GetProduct(ctx context.Context, id string) (*ledger.Product, error) {
	return t.parent.getProduct(ctx, t.q, id)
}

func (t *txHandle) GetRecord(ctx context.Context, id string) (*ledger.Record, error) {
	return t.parent.getRecord(ctx, t.q, id)
}

func (t *txHandle) InsertRecord(ctx context.Context, rec ledger.Record) error {
	return t.parent.insertRecord(ctx, t.q, rec)
}

func (t *txHandle) UpdateRecord(ctx context.Context, rec ledger.Record) error {
	return t.parent.updateRecord(ctx, t.q, rec)
}

func (t *txHandle) DeleteRecord(ctx context.Context, id string) error {
	_, err := t.q.ExecContext(ctx, "DELETE FROM records WHERE id = ?", id)
	return err
}

func (t *txHandle) InsertLines(ctx context.Context, recordID string, lines []ledger.LineItem) error {
	return t.parent.insertLines(ctx, t.q, recordID, lines)
}

func (t *txHandle) DeleteLines(ctx context.Context, recordID string) error {
	_, err := t.q.ExecContext(ctx, "DELETE FROM line_items WHERE record_id = ?", recordID)
	return err
}

// IncrementStock adds qty to a product's stock.
func (t *txHandle) IncrementStock(ctx context.Context, productID string, qty int) error {
	res, err := t.q.ExecContext(ctx,
		"UPDATE products SET stock_quantity = stock_quantity + ?, updated_at = ? WHERE id = ?",
		qty, now(), productID,
	)
	if err != nil {
		return fmt.Errorf("failed to credit stock: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return &ledger.ProductNotFoundError{ProductID: productID}
	}
	return nil
}

// DecrementStock is the check-and-decrement. The WHERE clause is the stock
// guard; a zero row count means either a missing product or a shortfall,
// distinguished by a follow-up read in the same transaction.
func (t *txHandle) DecrementStock(ctx context.Context, productID string, qty int) error {
	res, err := t.q.ExecContext(ctx,
		"UPDATE products SET stock_quantity = stock_quantity - ?, updated_at = ? WHERE id = ? AND stock_quantity >= ?",
		qty, now(), productID, qty,
	)
	if err != nil {
		return fmt.Errorf("failed to debit stock: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 1 {
		return nil
	}

	product, err := t.parent.getProduct(ctx, t.q, productID)
	if err != nil {
		return err
	}
	if product == nil {
		return &ledger.ProductNotFoundError{ProductID: productID}
	}
	return &ledger.InsufficientStockError{
		ProductID:   product.ID,
		ProductName: product.PartName,
		Available:   product.StockQuantity,
		Requested:   qty,
	}
}

// =============================================================================
// PRODUCTS
// =============================================================================

const productColumns = `id, part_name, category, car_brand, car_model, year_range,
	stock_quantity, cost_price, selling_price, bin_location, created_at, updated_at`

// GetProduct returns a product by id, or nil when absent.
func (s *Store) GetProduct(ctx context.Context, id string) (*ledger.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.getProduct(ctx, s.db, id)
}

func (s *Store) getProduct(ctx context.Context, q dbtx, id string) (*ledger.Product, error) {
	row := q.QueryRowContext(ctx,
		"SELECT "+productColumns+" FROM products WHERE id = ?", id)

	p, err := scanProduct(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

// ListProducts returns products matching the filter, newest first. The
// query matches part name, car brand, and car model, case-insensitively;
// an empty query matches everything.
func (s *Store) ListProducts(ctx context.Context, filter ledger.ProductFilter) ([]ledger.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT ` + productColumns + `
		FROM products
		WHERE (part_name LIKE ? OR car_brand LIKE ? OR car_model LIKE ?)
		  AND (? = '' OR category = ?)
		ORDER BY created_at DESC, id
	`

	pattern := "%" + filter.Query + "%"
	rows, err := s.db.QueryContext(ctx, query,
		pattern, pattern, pattern, filter.Category, filter.Category)
	if err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	defer rows.Close()

	var products []ledger.Product
	for rows.Next() {
		p, err := scanProduct(rows.Scan)
		if err != nil {
			return nil, err
		}
		products = append(products, *p)
	}
	return products, rows.Err()
}

// SaveProduct inserts a new product.
func (s *Store) SaveProduct(ctx context.Context, p ledger.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO products
		(` + productColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	ts := now()
	_, err := s.db.ExecContext(ctx, query,
		p.ID, p.PartName, p.Category, p.CarBrand, p.CarModel, p.YearRange,
		p.StockQuantity, p.CostPrice.String(), p.SellingPrice.String(),
		nullString(p.BinLocation), ts, ts,
	)
	if err != nil {
		return fmt.Errorf("failed to insert product: %w", err)
	}
	return nil
}

// UpdateProduct applies a partial update and returns the updated product.
// Setting StockQuantity here is the direct-adjustment path that bypasses
// the debit/credit flow.
func (s *Store) UpdateProduct(ctx context.Context, id string, patch ledger.ProductPatch) (*ledger.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := s.getProduct(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, &ledger.ProductNotFoundError{ProductID: id}
	}

	if patch.PartName != nil {
		p.PartName = *patch.PartName
	}
	if patch.Category != nil {
		p.Category = *patch.Category
	}
	if patch.CarBrand != nil {
		p.CarBrand = *patch.CarBrand
	}
	if patch.CarModel != nil {
		p.CarModel = *patch.CarModel
	}
	if patch.YearRange != nil {
		p.YearRange = *patch.YearRange
	}
	if patch.StockQuantity != nil {
		p.StockQuantity = *patch.StockQuantity
	}
	if patch.CostPrice != nil {
		p.CostPrice = *patch.CostPrice
	}
	if patch.SellingPrice != nil {
		p.SellingPrice = *patch.SellingPrice
	}
	if patch.BinLocation != nil {
		p.BinLocation = *patch.BinLocation
	}

	query := `
		UPDATE products SET
			part_name = ?, category = ?, car_brand = ?, car_model = ?,
			year_range = ?, stock_quantity = ?, cost_price = ?,
			selling_price = ?, bin_location = ?, updated_at = ?
		WHERE id = ?
	`

	ts := now()
	_, err = s.db.ExecContext(ctx, query,
		p.PartName, p.Category, p.CarBrand, p.CarModel, p.YearRange,
		p.StockQuantity, p.CostPrice.String(), p.SellingPrice.String(),
		nullString(p.BinLocation), ts, id,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to update product: %w", err)
	}

	p.UpdatedAt, _ = time.Parse(time.RFC3339, ts)
	return p, nil
}

// DeleteProduct removes a product. Historical line items keep their
// snapshots and are not touched.
func (s *Store) DeleteProduct(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, "DELETE FROM products WHERE id = ?", id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return &ledger.ProductNotFoundError{ProductID: id}
	}
	return nil
}

func scanProduct(scan func(dest ...any) error) (*ledger.Product, error) {
	var (
		p                       ledger.Product
		costPrice, sellingPrice string
		binLocation             sql.NullString
		createdAt, updatedAt    string
	)

	err := scan(
		&p.ID, &p.PartName, &p.Category, &p.CarBrand, &p.CarModel, &p.YearRange,
		&p.StockQuantity, &costPrice, &sellingPrice, &binLocation,
		&createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	p.CostPrice = mustDecimal(costPrice)
	p.SellingPrice = mustDecimal(sellingPrice)
	p.BinLocation = binLocation.String
	p.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	p.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return &p, nil
}

// =============================================================================
// RECORDS
// =============================================================================

const recordColumns = `id, kind, total_amount, tax_amount, status,
	customer_name, car_plate_number, service_type, technician_notes, total_price,
	created_at, updated_at`

// GetRecord returns a record with its lines, or nil when absent.
func (s *Store) GetRecord(ctx context.Context, id string) (*ledger.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.getRecord(ctx, s.db, id)
}

func (s *Store) getRecord(ctx context.Context, q dbtx, id string) (*ledger.Record, error) {
	row := q.QueryRowContext(ctx,
		"SELECT "+recordColumns+" FROM records WHERE id = ?", id)

	rec, err := scanRecord(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	rec.Lines, err = s.queryLines(ctx, q, id)
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// ListRecords returns records of one kind with their lines, newest first.
func (s *Store) ListRecords(ctx context.Context, kind ledger.Kind) ([]ledger.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.listRecords(ctx, s.db, kind, time.Time{}, time.Time{})
}

// ListRecordsInRange returns records of one kind created in [from, to).
// Zero times leave the respective bound open.
func (s *Store) ListRecordsInRange(ctx context.Context, kind ledger.Kind, from, to time.Time) ([]ledger.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.listRecords(ctx, s.db, kind, from, to)
}

func (s *Store) listRecords(ctx context.Context, q dbtx, kind ledger.Kind, from, to time.Time) ([]ledger.Record, error) {
	query := "SELECT " + recordColumns + " FROM records WHERE kind = ?"
	args := []any{string(kind)}
	if !from.IsZero() {
		query += " AND created_at >= ?"
		args = append(args, from.UTC().Format(time.RFC3339))
	}
	if !to.IsZero() {
		query += " AND created_at < ?"
		args = append(args, to.UTC().Format(time.RFC3339))
	}
	query += " ORDER BY created_at DESC, id"

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query records: %w", err)
	}
	defer rows.Close()

	var records []ledger.Record
	for rows.Next() {
		rec, err := scanRecord(rows.Scan)
		if err != nil {
			return nil, err
		}
		records = append(records, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range records {
		records[i].Lines, err = s.queryLines(ctx, q, records[i].ID)
		if err != nil {
			return nil, err
		}
	}
	return records, nil
}

func (s *Store) insertRecord(ctx context.Context, q dbtx, rec ledger.Record) error {
	query := `
		INSERT INTO records
		(` + recordColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	args := append([]any{rec.ID, string(rec.Kind)}, recordArgs(rec)...)
	args = append(args,
		rec.CreatedAt.UTC().Format(time.RFC3339),
		rec.UpdatedAt.UTC().Format(time.RFC3339),
	)

	if _, err := q.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to insert record: %w", err)
	}
	return nil
}

func (s *Store) updateRecord(ctx context.Context, q dbtx, rec ledger.Record) error {
	query := `
		UPDATE records SET
			total_amount = ?, tax_amount = ?, status = ?,
			customer_name = ?, car_plate_number = ?, service_type = ?,
			technician_notes = ?, total_price = ?, updated_at = ?
		WHERE id = ?
	`

	args := append(recordArgs(rec), rec.UpdatedAt.UTC().Format(time.RFC3339), rec.ID)

	res, err := q.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update record: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ledger.ErrRecordNotFound
	}
	return nil
}

// recordArgs returns the kind-specific column values in schema order.
func recordArgs(rec ledger.Record) []any {
	if rec.Kind == ledger.KindSale {
		return []any{
			rec.Sale.TotalAmount.String(), rec.Sale.TaxAmount.String(),
			string(rec.Sale.Status),
			nil, nil, nil, nil, nil,
		}
	}
	return []any{
		nil, nil, nil,
		rec.Service.CustomerName, rec.Service.CarPlateNumber,
		rec.Service.ServiceType, nullString(rec.Service.TechnicianNotes),
		rec.Service.TotalPrice.String(),
	}
}

func scanRecord(scan func(dest ...any) error) (*ledger.Record, error) {
	var (
		rec                            ledger.Record
		kind                           string
		totalAmount, taxAmount, status sql.NullString
		customerName, carPlate         sql.NullString
		serviceType, notes, totalPrice sql.NullString
		createdAt, updatedAt           string
	)

	err := scan(
		&rec.ID, &kind, &totalAmount, &taxAmount, &status,
		&customerName, &carPlate, &serviceType, &notes, &totalPrice,
		&createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	rec.Kind = ledger.Kind(kind)
	rec.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	rec.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)

	if rec.Kind == ledger.KindSale {
		rec.Sale = ledger.SaleDetails{
			TotalAmount: mustDecimal(totalAmount.String),
			TaxAmount:   mustDecimal(taxAmount.String),
			Status:      ledger.SaleStatus(status.String),
		}
	} else {
		rec.Service = ledger.ServiceDetails{
			CustomerName:    customerName.String,
			CarPlateNumber:  carPlate.String,
			ServiceType:     serviceType.String,
			TechnicianNotes: notes.String,
			TotalPrice:      mustDecimal(totalPrice.String),
		}
	}
	return &rec, nil
}

// =============================================================================
// LINE ITEMS
// =============================================================================

func (s *Store) insertLines(ctx context.Context, q dbtx, recordID string, lines []ledger.LineItem) error {
	query := `
		INSERT INTO line_items (id, record_id, product_id, part_name, quantity, price_at_sale)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	for _, line := range lines {
		_, err := q.ExecContext(ctx, query,
			line.ID, recordID, line.ProductID, line.PartName,
			line.Quantity, line.PriceAtSale.String(),
		)
		if err != nil {
			return fmt.Errorf("failed to insert line item: %w", err)
		}
	}
	return nil
}

func (s *Store) queryLines(ctx context.Context, q dbtx, recordID string) ([]ledger.LineItem, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, product_id, part_name, quantity, price_at_sale
		FROM line_items
		WHERE record_id = ?
		ORDER BY rowid
	`, recordID)
	if err != nil {
		return nil, fmt.Errorf("failed to query line items: %w", err)
	}
	defer rows.Close()

	var lines []ledger.LineItem
	for rows.Next() {
		var (
			line  ledger.LineItem
			price string
		)
		if err := rows.Scan(&line.ID, &line.ProductID, &line.PartName, &line.Quantity, &price); err != nil {
			return nil, err
		}
		line.PriceAtSale = mustDecimal(price)
		lines = append(lines, line)
	}
	return lines, rows.Err()
}

// =============================================================================
// EXPENSES
// =============================================================================

// SaveExpense inserts a new expense.
func (s *Store) SaveExpense(ctx context.Context, e ledger.Expense) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO expenses (id, type, description, amount, expense_date, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		e.ID, string(e.Type), e.Description, e.Amount.String(),
		e.ExpenseDate.UTC().Format(time.RFC3339), now(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert expense: %w", err)
	}
	return nil
}

// GetExpense returns an expense by id, or nil when absent.
func (s *Store) GetExpense(ctx context.Context, id string) (*ledger.Expense, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		"SELECT id, type, description, amount, expense_date, created_at FROM expenses WHERE id = ?",
		id,
	)

	e, err := scanExpense(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return e, nil
}

// UpdateExpense rewrites an expense's fields.
func (s *Store) UpdateExpense(ctx context.Context, e ledger.Expense) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		UPDATE expenses SET type = ?, description = ?, amount = ?, expense_date = ?
		WHERE id = ?
	`

	res, err := s.db.ExecContext(ctx, query,
		string(e.Type), e.Description, e.Amount.String(),
		e.ExpenseDate.UTC().Format(time.RFC3339), e.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update expense: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ledger.ErrExpenseNotFound
	}
	return nil
}

// DeleteExpense removes an expense.
func (s *Store) DeleteExpense(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, "DELETE FROM expenses WHERE id = ?", id)
	return err
}

// ListExpenses returns expenses with expense_date in [from, to), newest
// first. Zero times leave the respective bound open.
func (s *Store) ListExpenses(ctx context.Context, from, to time.Time) ([]ledger.Expense, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := "SELECT id, type, description, amount, expense_date, created_at FROM expenses"
	var args []any
	switch {
	case !from.IsZero() && !to.IsZero():
		query += " WHERE expense_date >= ? AND expense_date < ?"
		args = append(args, from.UTC().Format(time.RFC3339), to.UTC().Format(time.RFC3339))
	case !from.IsZero():
		query += " WHERE expense_date >= ?"
		args = append(args, from.UTC().Format(time.RFC3339))
	case !to.IsZero():
		query += " WHERE expense_date < ?"
		args = append(args, to.UTC().Format(time.RFC3339))
	}
	query += " ORDER BY expense_date DESC, id"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query expenses: %w", err)
	}
	defer rows.Close()

	var expenses []ledger.Expense
	for rows.Next() {
		e, err := scanExpense(rows.Scan)
		if err != nil {
			return nil, err
		}
		expenses = append(expenses, *e)
	}
	return expenses, rows.Err()
}

func scanExpense(scan func(dest ...any) error) (*ledger.Expense, error) {
	var (
		e                      ledger.Expense
		typ, amount            string
		expenseDate, createdAt string
	)

	if err := scan(&e.ID, &typ, &e.Description, &amount, &expenseDate, &createdAt); err != nil {
		return nil, err
	}

	e.Type = ledger.ExpenseType(typ)
	e.Amount = mustDecimal(amount)
	e.ExpenseDate, _ = time.Parse(time.RFC3339, expenseDate)
	e.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return &e, nil
}

// =============================================================================
// UTILITIES
// =============================================================================

func now() string {
	return time.Now().UTC().Format(time.RFC3339)
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func mustDecimal(s string) decimal.Decimal {
	if s == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}
