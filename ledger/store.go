/*
store.go - Persistence interfaces for the inventory core

PURPOSE:
  Defines what the Engine needs from storage. Implementations:
  - store/sqlite: production SQLite store
  - ledger/store: in-memory store for tests

ATOMIC UNITS:
  WithTx opens one atomic unit. Every read and write made through the Tx it
  passes to the callback commits or aborts together; returning an error from
  the callback rolls everything back. Reads through a Tx observe earlier
  writes in the same unit (read-your-writes).

STOCK DISCIPLINE:
  IncrementStock/DecrementStock are the only stock mutations, and they only
  exist on Tx - stock never moves outside an atomic unit. DecrementStock is
  a check-and-decrement: it must evaluate the guard against the current
  in-transaction value and refuse to go negative. Engine code reaches these
  through the StockLedger, never directly.

SEE ALSO:
  - ledger.go: StockLedger, the debit/credit gateway
  - engine.go: the only consumer of these interfaces
*/
package ledger

import "context"

// Store is the engine-facing persistence surface.
type Store interface {
	// WithTx runs fn inside one atomic unit. If fn returns an error, every
	// write made through its Tx is rolled back and the error is returned.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	// GetProduct returns the product or nil when absent. Used for the
	// advisory pre-check before an atomic unit is opened.
	GetProduct(ctx context.Context, id string) (*Product, error)

	// GetRecord returns the record with its lines, or nil when absent.
	GetRecord(ctx context.Context, id string) (*Record, error)

	// ListRecords returns records of one kind with their lines, newest first.
	ListRecords(ctx context.Context, kind Kind) ([]Record, error)
}

// Tx is the handle to one open atomic unit.
type Tx interface {
	// GetProduct returns the product as of the current unit, or nil.
	GetProduct(ctx context.Context, id string) (*Product, error)

	// GetRecord returns the record with its lines as of the current unit,
	// or nil when absent.
	GetRecord(ctx context.Context, id string) (*Record, error)

	// InsertRecord writes a record row (not its lines).
	InsertRecord(ctx context.Context, rec Record) error

	// UpdateRecord rewrites the kind-specific fields and UpdatedAt of an
	// existing record row.
	UpdateRecord(ctx context.Context, rec Record) error

	// DeleteRecord removes the record row.
	DeleteRecord(ctx context.Context, id string) error

	// InsertLines writes line items for a record.
	InsertLines(ctx context.Context, recordID string, lines []LineItem) error

	// DeleteLines removes all line items for a record.
	DeleteLines(ctx context.Context, recordID string) error

	// IncrementStock adds qty to a product's stock.
	// Fails with ErrProductNotFound when the product is absent.
	IncrementStock(ctx context.Context, productID string, qty int) error

	// DecrementStock subtracts qty from a product's stock only when the
	// current stock covers it. Fails with *ProductNotFoundError or
	// *InsufficientStockError; either failure must abort the unit.
	DecrementStock(ctx context.Context, productID string, qty int) error
}
