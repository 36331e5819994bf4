/*
ledger.go - Stock debit/credit gateway

PURPOSE:
  StockLedger is the single source of truth for stock on hand. It is bound
  to one open atomic unit and is the only component permitted to move
  Product.StockQuantity while a sale or service mutation is in flight.

CRITICAL INVARIANTS:
  1. A debit or credit never commits independently of the record mutation
     it accompanies - the ledger only exists inside WithTx.
  2. Debit is check-then-decrement against the in-transaction stock value,
     including the effect of credits applied earlier in the same unit.
  3. No component writes StockQuantity directly. The one exception is the
     explicit stock-adjustment edit on the inventory API, which is a direct
     product update, not a ledger movement.

SEE ALSO:
  - store.go: Tx, which carries the raw increment/decrement operations
  - engine.go: the only caller
*/
package ledger

import "context"

// StockLedger applies stock movements within one atomic unit.
type StockLedger struct {
	tx Tx
}

// BindStockLedger binds a ledger to an open atomic unit.
func BindStockLedger(tx Tx) *StockLedger {
	return &StockLedger{tx: tx}
}

// Credit increments the product's stock by qty. The only failure mode
// besides storage errors is a missing product.
func (l *StockLedger) Credit(ctx context.Context, productID string, qty int) error {
	return l.tx.IncrementStock(ctx, productID, qty)
}

// Debit decrements the product's stock by qty, only if current stock
// covers it. Returns *InsufficientStockError or *ProductNotFoundError;
// the caller must abort the unit on either.
func (l *StockLedger) Debit(ctx context.Context, productID string, qty int) error {
	return l.tx.DecrementStock(ctx, productID, qty)
}
