/*
Package ledger is the transactional inventory core.

PURPOSE:
  This package owns every mutation of product stock. Sales and service
  records both consume parts from inventory; the Engine runs their
  create/update/delete flows as atomic units, and the StockLedger is the
  only component allowed to increment or decrement stock while one of
  those units is open.

KEY CONCEPTS IN THIS FILE (types.go):
  - Product: an inventory row; StockQuantity is the guarded value
  - LineItem: one (product, quantity, price snapshot) entry on a record
  - Record: a closed tagged union over the two transaction kinds
  - Expense: a plain ledger entry with no stock interaction

DESIGN PRINCIPLES:
  1. Conservation: stock only changes through debit/credit, and every
     debit/credit commits in the same atomic unit as the record it serves
  2. Precision: decimal.Decimal for all money, never float64
  3. Snapshots: a line item records the unit price (and part name) at the
     time it was written; it never chases the product's current values

SEE ALSO:
  - engine.go: create/update/delete flows
  - ledger.go: stock debit/credit
  - store.go: persistence interfaces
*/
package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// PRODUCT
// =============================================================================

// Product is an inventory item. StockQuantity never goes negative as the
// result of a committed sale or service mutation.
type Product struct {
	ID            string
	PartName      string
	Category      string
	CarBrand      string
	CarModel      string
	YearRange     string
	StockQuantity int
	CostPrice     decimal.Decimal
	SellingPrice  decimal.Decimal
	BinLocation   string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// ProductPatch is a partial product update. Nil fields are left untouched.
// StockQuantity here is the direct-adjustment path; it bypasses the
// debit/credit flow and is only reachable through the inventory API.
type ProductPatch struct {
	PartName      *string
	Category      *string
	CarBrand      *string
	CarModel      *string
	YearRange     *string
	StockQuantity *int
	CostPrice     *decimal.Decimal
	SellingPrice  *decimal.Decimal
	BinLocation   *string
}

// ProductFilter narrows a product listing. Query matches part name, car
// brand, and car model; Category matches exactly. Empty fields match all.
type ProductFilter struct {
	Query    string
	Category string
}

// =============================================================================
// RECORDS - Sale and Service transactions
// =============================================================================

// Kind discriminates the two transaction kinds. The set is closed.
type Kind string

const (
	KindSale    Kind = "sale"
	KindService Kind = "service"
)

// SaleStatus for Sale records. The engine only ever produces COMPLETED;
// the column exists so the reporting side can filter on it.
type SaleStatus string

const StatusCompleted SaleStatus = "COMPLETED"

// LineItem is one consumed-product entry on a record. It holds a weak
// reference to the product plus snapshots taken when the line was written,
// so history survives later price changes or product deletion.
type LineItem struct {
	ID          string
	ProductID   string
	PartName    string
	Quantity    int
	PriceAtSale decimal.Decimal
}

// Record is a sale or a service. Exactly one of Sale/Service carries
// meaningful data, selected by Kind.
type Record struct {
	ID        string
	Kind      Kind
	Lines     []LineItem
	CreatedAt time.Time
	UpdatedAt time.Time

	Sale    SaleDetails
	Service ServiceDetails
}

// SaleDetails is the sale-specific half of the union.
// TotalAmount = sum(quantity * priceAtSale) + TaxAmount; TaxAmount is a
// flat zero placeholder until tax handling exists.
type SaleDetails struct {
	TotalAmount decimal.Decimal
	TaxAmount   decimal.Decimal
	Status      SaleStatus
}

// ServiceDetails is the service-specific half of the union. TotalPrice is
// entered by the operator and is deliberately independent of parts cost.
type ServiceDetails struct {
	CustomerName    string
	CarPlateNumber  string
	ServiceType     string
	TechnicianNotes string
	TotalPrice      decimal.Decimal
}

// =============================================================================
// INPUTS - What callers submit to the Engine
// =============================================================================

// SaleItemInput is one requested sale line. PriceAtSale is client-supplied
// and becomes the snapshot as-is.
type SaleItemInput struct {
	ProductID   string
	Quantity    int
	PriceAtSale decimal.Decimal
}

// SaleInput is the payload for creating or updating a sale. Updates replace
// the full line set; there is no partial line editing.
type SaleInput struct {
	Items []SaleItemInput
}

// PartInput is one requested service part. The price snapshot is not
// client-supplied: the engine resolves the product's current selling price
// inside the atomic unit.
type PartInput struct {
	ProductID string
	Quantity  int
}

// ServiceInput is the payload for creating or updating a service record.
type ServiceInput struct {
	CustomerName    string
	CarPlateNumber  string
	ServiceType     string
	TechnicianNotes string
	TotalPrice      decimal.Decimal
	PartsUsed       []PartInput
}

// =============================================================================
// EXPENSE - Simple ledger entry, no stock interaction
// =============================================================================

// ExpenseType enumerates the expense categories.
type ExpenseType string

const (
	ExpenseParts     ExpenseType = "PARTS"
	ExpenseService   ExpenseType = "SERVICE"
	ExpenseRent      ExpenseType = "RENT"
	ExpenseUtilities ExpenseType = "UTILITIES"
	ExpenseOther     ExpenseType = "OTHER"
)

// ValidExpenseType reports whether t is one of the known categories.
func ValidExpenseType(t ExpenseType) bool {
	switch t {
	case ExpenseParts, ExpenseService, ExpenseRent, ExpenseUtilities, ExpenseOther:
		return true
	}
	return false
}

// Expense is a money-out entry. It feeds the unified-records and report
// views but never touches stock.
type Expense struct {
	ID          string
	Type        ExpenseType
	Description string
	Amount      decimal.Decimal
	ExpenseDate time.Time
	CreatedAt   time.Time
}

// =============================================================================
// HELPERS
// =============================================================================

// SaleTotal computes sum(quantity * priceAtSale) over the given items.
// Tax is added by the caller (currently always zero).
func SaleTotal(items []SaleItemInput) decimal.Decimal {
	total := decimal.Zero
	for _, it := range items {
		total = total.Add(it.PriceAtSale.Mul(decimal.NewFromInt(int64(it.Quantity))))
	}
	return total
}
