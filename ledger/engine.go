/*
engine.go - Create/Update/Delete for sale and service records

PURPOSE:
  The Engine runs the transactional protocol shared by both record kinds.
  A record and its stock movements always commit or abort together; callers
  never observe a half-applied request.

THE PROTOCOL:
  Create:  validate -> advisory stock pre-check -> atomic unit:
           insert record, snapshot + insert lines, debit each line.
  Update:  validate -> atomic unit: credit every existing line (revert),
           delete old lines, re-snapshot prices, rewrite record fields,
           insert new lines, re-check + debit each new line (re-apply).
  Delete:  atomic unit: credit every line, delete lines, delete record.
           A missing record is a silent no-op, so retrying a delete is safe.

WHY REVERT-THEN-REAPPLY?
  Updating by undoing all old lines and redoing all new ones handles every
  shape of change (quantity up/down, product swapped, line added/removed)
  with one uniform pass. The cost is O(lines) extra writes; the payoff is
  that no stale quantity can survive an update.

  The debit inside the unit re-checks stock against the post-revert value,
  so the create-time pre-check is advisory only - stock can move between
  check and debit, and the debit is the authority.

PRICE SNAPSHOTS:
  Sale lines carry the client-supplied priceAtSale. Service lines snapshot
  the product's current sellingPrice at write time, falling back to zero
  when the product cannot be resolved. Both also snapshot the part name so
  history stays readable if the product row is later deleted.

SEE ALSO:
  - ledger.go: the debit/credit gateway used here
  - store.go: the atomic-unit contract
*/
package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Engine coordinates record mutations and stock movements.
type Engine struct {
	store Store
	log   zerolog.Logger
}

// NewEngine creates an Engine over the given store.
func NewEngine(store Store, log zerolog.Logger) *Engine {
	return &Engine{store: store, log: log}
}

// lineSpec is a requested line before snapshot resolution. A nil price
// means "snapshot the product's current selling price inside the unit".
type lineSpec struct {
	productID string
	quantity  int
	price     *decimal.Decimal
}

func saleSpecs(items []SaleItemInput) []lineSpec {
	specs := make([]lineSpec, len(items))
	for i, it := range items {
		price := it.PriceAtSale
		specs[i] = lineSpec{productID: it.ProductID, quantity: it.Quantity, price: &price}
	}
	return specs
}

func serviceSpecs(parts []PartInput) []lineSpec {
	specs := make([]lineSpec, len(parts))
	for i, p := range parts {
		specs[i] = lineSpec{productID: p.ProductID, quantity: p.Quantity}
	}
	return specs
}

// =============================================================================
// SALE OPERATIONS
// =============================================================================

// CreateSale creates a sale with its lines and debits stock for each line,
// all in one atomic unit.
func (e *Engine) CreateSale(ctx context.Context, in SaleInput) (*Record, error) {
	if err := ValidateSaleInput(in); err != nil {
		return nil, err
	}

	subtotal := SaleTotal(in.Items)
	rec := Record{
		ID:   uuid.New().String(),
		Kind: KindSale,
		Sale: SaleDetails{
			TotalAmount: subtotal, // subtotal + tax, with tax a flat zero
			TaxAmount:   decimal.Zero,
			Status:      StatusCompleted,
		},
	}
	return e.create(ctx, rec, saleSpecs(in.Items))
}

// UpdateSale replaces the sale's full line set, reverting the old stock
// debits and re-applying new ones in the same atomic unit.
func (e *Engine) UpdateSale(ctx context.Context, id string, in SaleInput) (*Record, error) {
	if err := ValidateSaleInput(in); err != nil {
		return nil, err
	}
	subtotal := SaleTotal(in.Items)
	return e.update(ctx, id, KindSale, saleSpecs(in.Items), func(rec *Record) {
		rec.Sale.TotalAmount = subtotal
		rec.Sale.TaxAmount = decimal.Zero
	})
}

// DeleteSale reverses the sale's stock debits and removes the record.
// Deleting an absent sale is a no-op.
func (e *Engine) DeleteSale(ctx context.Context, id string) error {
	return e.delete(ctx, id, KindSale)
}

// GetSale returns a sale with its lines, or ErrRecordNotFound.
func (e *Engine) GetSale(ctx context.Context, id string) (*Record, error) {
	return e.get(ctx, id, KindSale)
}

// ListSales returns all sales, newest first.
func (e *Engine) ListSales(ctx context.Context) ([]Record, error) {
	return e.store.ListRecords(ctx, KindSale)
}

// =============================================================================
// SERVICE OPERATIONS
// =============================================================================

// CreateService creates a service record, consuming its parts from stock.
// TotalPrice is stored as entered; it is not derived from the parts.
func (e *Engine) CreateService(ctx context.Context, in ServiceInput) (*Record, error) {
	if err := ValidateServiceInput(in); err != nil {
		return nil, err
	}

	rec := Record{
		ID:   uuid.New().String(),
		Kind: KindService,
		Service: ServiceDetails{
			CustomerName:    in.CustomerName,
			CarPlateNumber:  in.CarPlateNumber,
			ServiceType:     in.ServiceType,
			TechnicianNotes: in.TechnicianNotes,
			TotalPrice:      in.TotalPrice,
		},
	}
	return e.create(ctx, rec, serviceSpecs(in.PartsUsed))
}

// UpdateService replaces the service's fields and full parts set. Part
// prices are re-snapshotted from the products' current selling prices.
func (e *Engine) UpdateService(ctx context.Context, id string, in ServiceInput) (*Record, error) {
	if err := ValidateServiceInput(in); err != nil {
		return nil, err
	}
	return e.update(ctx, id, KindService, serviceSpecs(in.PartsUsed), func(rec *Record) {
		rec.Service = ServiceDetails{
			CustomerName:    in.CustomerName,
			CarPlateNumber:  in.CarPlateNumber,
			ServiceType:     in.ServiceType,
			TechnicianNotes: in.TechnicianNotes,
			TotalPrice:      in.TotalPrice,
		}
	})
}

// DeleteService reverses the service's stock debits and removes the record.
func (e *Engine) DeleteService(ctx context.Context, id string) error {
	return e.delete(ctx, id, KindService)
}

// GetService returns a service with its lines, or ErrRecordNotFound.
func (e *Engine) GetService(ctx context.Context, id string) (*Record, error) {
	return e.get(ctx, id, KindService)
}

// ListServices returns all service records, newest first.
func (e *Engine) ListServices(ctx context.Context) ([]Record, error) {
	return e.store.ListRecords(ctx, KindService)
}

// =============================================================================
// SHARED PROTOCOL
// =============================================================================

// precheck verifies, outside any atomic unit, that every requested product
// exists and currently has enough stock. Advisory: the in-unit debit is the
// authoritative check.
func (e *Engine) precheck(ctx context.Context, specs []lineSpec) error {
	for _, spec := range specs {
		product, err := e.store.GetProduct(ctx, spec.productID)
		if err != nil {
			return fmt.Errorf("stock pre-check: %w", err)
		}
		if product == nil {
			return &ProductNotFoundError{ProductID: spec.productID}
		}
		if product.StockQuantity < spec.quantity {
			return &InsufficientStockError{
				ProductID:   product.ID,
				ProductName: product.PartName,
				Available:   product.StockQuantity,
				Requested:   spec.quantity,
			}
		}
	}
	return nil
}

// resolveLines turns specs into line items, snapshotting price and part
// name from the in-unit product state. Specs with a nil price take the
// product's current selling price, or zero when the product is missing
// (the debit will still refuse a missing product).
func resolveLines(ctx context.Context, tx Tx, specs []lineSpec) ([]LineItem, error) {
	lines := make([]LineItem, 0, len(specs))
	for _, spec := range specs {
		product, err := tx.GetProduct(ctx, spec.productID)
		if err != nil {
			return nil, err
		}

		line := LineItem{
			ID:        uuid.New().String(),
			ProductID: spec.productID,
			Quantity:  spec.quantity,
		}
		if product != nil {
			line.PartName = product.PartName
		}
		switch {
		case spec.price != nil:
			line.PriceAtSale = *spec.price
		case product != nil:
			line.PriceAtSale = product.SellingPrice
		default:
			line.PriceAtSale = decimal.Zero
		}
		lines = append(lines, line)
	}
	return lines, nil
}

func (e *Engine) create(ctx context.Context, rec Record, specs []lineSpec) (*Record, error) {
	if err := e.precheck(ctx, specs); err != nil {
		e.logRefusal("create", rec.Kind, err)
		return nil, err
	}

	now := time.Now().UTC()
	rec.CreatedAt = now
	rec.UpdatedAt = now

	err := e.store.WithTx(ctx, func(tx Tx) error {
		if err := tx.InsertRecord(ctx, rec); err != nil {
			return err
		}

		lines, err := resolveLines(ctx, tx, specs)
		if err != nil {
			return err
		}
		if err := tx.InsertLines(ctx, rec.ID, lines); err != nil {
			return err
		}

		stock := BindStockLedger(tx)
		for _, line := range lines {
			if err := stock.Debit(ctx, line.ProductID, line.Quantity); err != nil {
				return err
			}
		}

		rec.Lines = lines
		return nil
	})
	if err != nil {
		e.logRefusal("create", rec.Kind, err)
		return nil, err
	}

	e.log.Info().Str("kind", string(rec.Kind)).Str("record_id", rec.ID).
		Int("lines", len(rec.Lines)).Msg("record created")
	return &rec, nil
}

func (e *Engine) update(ctx context.Context, id string, kind Kind, specs []lineSpec, apply func(*Record)) (*Record, error) {
	var updated Record

	err := e.store.WithTx(ctx, func(tx Tx) error {
		rec, err := tx.GetRecord(ctx, id)
		if err != nil {
			return err
		}
		if rec == nil || rec.Kind != kind {
			return ErrRecordNotFound
		}

		stock := BindStockLedger(tx)

		// Revert: undo every existing debit, then drop the old lines.
		for _, line := range rec.Lines {
			if err := stock.Credit(ctx, line.ProductID, line.Quantity); err != nil {
				return err
			}
		}
		if err := tx.DeleteLines(ctx, rec.ID); err != nil {
			return err
		}

		lines, err := resolveLines(ctx, tx, specs)
		if err != nil {
			return err
		}

		apply(rec)
		rec.UpdatedAt = time.Now().UTC()
		if err := tx.UpdateRecord(ctx, *rec); err != nil {
			return err
		}
		if err := tx.InsertLines(ctx, rec.ID, lines); err != nil {
			return err
		}

		// Re-apply: debit each new line against post-revert stock. Any
		// shortfall aborts the whole unit, restoring the record as it was.
		for _, line := range lines {
			if err := stock.Debit(ctx, line.ProductID, line.Quantity); err != nil {
				return err
			}
		}

		rec.Lines = lines
		updated = *rec
		return nil
	})
	if err != nil {
		e.logRefusal("update", kind, err)
		return nil, err
	}

	e.log.Info().Str("kind", string(kind)).Str("record_id", id).
		Int("lines", len(updated.Lines)).Msg("record updated")
	return &updated, nil
}

func (e *Engine) delete(ctx context.Context, id string, kind Kind) error {
	err := e.store.WithTx(ctx, func(tx Tx) error {
		rec, err := tx.GetRecord(ctx, id)
		if err != nil {
			return err
		}
		if rec == nil || rec.Kind != kind {
			// Already gone; deleting twice is safe.
			return nil
		}

		stock := BindStockLedger(tx)
		for _, line := range rec.Lines {
			if err := stock.Credit(ctx, line.ProductID, line.Quantity); err != nil {
				return err
			}
		}
		if err := tx.DeleteLines(ctx, rec.ID); err != nil {
			return err
		}
		return tx.DeleteRecord(ctx, rec.ID)
	})
	if err != nil {
		e.logRefusal("delete", kind, err)
		return err
	}

	e.log.Info().Str("kind", string(kind)).Str("record_id", id).Msg("record deleted")
	return nil
}

func (e *Engine) get(ctx context.Context, id string, kind Kind) (*Record, error) {
	rec, err := e.store.GetRecord(ctx, id)
	if err != nil {
		return nil, err
	}
	if rec == nil || rec.Kind != kind {
		return nil, ErrRecordNotFound
	}
	return rec, nil
}

// logRefusal logs business-rule refusals at debug and storage failures at
// error level; callers still receive the error either way.
func (e *Engine) logRefusal(op string, kind Kind, err error) {
	ev := e.log.Error()
	if IsClientError(err) || IsNotFound(err) {
		ev = e.log.Debug()
	}
	ev.Str("op", op).Str("kind", string(kind)).Err(err).Msg("record operation refused")
}
