package ledger_test

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/partsdesk/shop-engine/ledger"
	"github.com/partsdesk/shop-engine/ledger/store"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestEngine(t *testing.T) (*ledger.Engine, *store.Memory) {
	t.Helper()
	mem := store.NewMemory()
	return ledger.NewEngine(mem, zerolog.Nop()), mem
}

func seedProduct(t *testing.T, mem *store.Memory, id string, name string, stock int, sellingPrice float64) {
	t.Helper()
	err := mem.SaveProduct(context.Background(), ledger.Product{
		ID:            id,
		PartName:      name,
		Category:      "Brakes",
		CarBrand:      "Toyota",
		CarModel:      "Corolla",
		YearRange:     "2015-2020",
		StockQuantity: stock,
		CostPrice:     decimal.NewFromFloat(sellingPrice / 2),
		SellingPrice:  decimal.NewFromFloat(sellingPrice),
	})
	require.NoError(t, err)
}

func stockOf(t *testing.T, mem *store.Memory, id string) int {
	t.Helper()
	p, err := mem.GetProduct(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, p)
	return p.StockQuantity
}

func saleItem(productID string, qty int, price float64) ledger.SaleItemInput {
	return ledger.SaleItemInput{
		ProductID:   productID,
		Quantity:    qty,
		PriceAtSale: decimal.NewFromFloat(price),
	}
}

func serviceInput(parts ...ledger.PartInput) ledger.ServiceInput {
	return ledger.ServiceInput{
		CustomerName:   "Sam Patel",
		CarPlateNumber: "ABC-123",
		ServiceType:    "Brake replacement",
		TotalPrice:     decimal.NewFromInt(150),
		PartsUsed:      parts,
	}
}

// =============================================================================
// SALE CREATE
// =============================================================================

func TestCreateSale_DebitsStockAndSnapshotsLines(t *testing.T) {
	// GIVEN: A product with 10 in stock
	// WHEN: Selling 3 of it
	// THEN: Stock drops to 7 and the line carries name + price snapshots

	engine, mem := newTestEngine(t)
	ctx := context.Background()
	seedProduct(t, mem, "p1", "Brake Pad", 10, 25.00)

	rec, err := engine.CreateSale(ctx, ledger.SaleInput{
		Items: []ledger.SaleItemInput{saleItem("p1", 3, 25.00)},
	})
	require.NoError(t, err)

	assert.Equal(t, 7, stockOf(t, mem, "p1"))
	require.Len(t, rec.Lines, 1)
	assert.Equal(t, "Brake Pad", rec.Lines[0].PartName)
	assert.True(t, rec.Lines[0].PriceAtSale.Equal(decimal.NewFromFloat(25.00)))
	assert.True(t, rec.Sale.TotalAmount.Equal(decimal.NewFromInt(75)), "3 * 25.00")
	assert.True(t, rec.Sale.TaxAmount.IsZero())
	assert.Equal(t, ledger.StatusCompleted, rec.Sale.Status)
}

func TestCreateSale_InsufficientStock_NothingCommits(t *testing.T) {
	// GIVEN: A product with 2 in stock
	// WHEN: Selling 5 of it
	// THEN: The sale is refused and no record or stock change exists

	engine, mem := newTestEngine(t)
	ctx := context.Background()
	seedProduct(t, mem, "p1", "Oil Filter", 2, 8.00)

	rec, err := engine.CreateSale(ctx, ledger.SaleInput{
		Items: []ledger.SaleItemInput{saleItem("p1", 5, 8.00)},
	})
	require.Error(t, err)
	assert.Nil(t, rec)

	var stockErr *ledger.InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, "Oil Filter", stockErr.ProductName)
	assert.Equal(t, 2, stockErr.Available)
	assert.Contains(t, stockErr.Error(), "insufficient stock for Oil Filter. Available: 2")

	assert.Equal(t, 2, stockOf(t, mem, "p1"))
	sales, err := engine.ListSales(ctx)
	require.NoError(t, err)
	assert.Empty(t, sales)
}

func TestCreateSale_MultiLine_PartialShortfallRollsBackAll(t *testing.T) {
	// GIVEN: One product with plenty of stock and one without
	// WHEN: A sale consumes both
	// THEN: The whole sale aborts; the well-stocked product is untouched

	engine, mem := newTestEngine(t)
	ctx := context.Background()
	seedProduct(t, mem, "p1", "Brake Pad", 10, 25.00)
	seedProduct(t, mem, "p2", "Rotor", 1, 40.00)

	_, err := engine.CreateSale(ctx, ledger.SaleInput{
		Items: []ledger.SaleItemInput{
			saleItem("p1", 2, 25.00),
			saleItem("p2", 3, 40.00),
		},
	})
	require.ErrorIs(t, err, ledger.ErrInsufficientStock)

	assert.Equal(t, 10, stockOf(t, mem, "p1"))
	assert.Equal(t, 1, stockOf(t, mem, "p2"))
}

func TestCreateSale_UnknownProduct_Rejected(t *testing.T) {
	engine, _ := newTestEngine(t)

	_, err := engine.CreateSale(context.Background(), ledger.SaleInput{
		Items: []ledger.SaleItemInput{saleItem("ghost", 1, 5.00)},
	})
	require.Error(t, err)

	var nfErr *ledger.ProductNotFoundError
	require.ErrorAs(t, err, &nfErr)
	assert.Equal(t, "ghost", nfErr.ProductID)
}

func TestCreateSale_Validation(t *testing.T) {
	engine, mem := newTestEngine(t)
	ctx := context.Background()
	seedProduct(t, mem, "p1", "Brake Pad", 10, 25.00)

	tests := []struct {
		name  string
		input ledger.SaleInput
		field string
	}{
		{"no items", ledger.SaleInput{}, "items"},
		{"missing product id", ledger.SaleInput{
			Items: []ledger.SaleItemInput{saleItem("", 1, 5.00)},
		}, "items[0].productId"},
		{"zero quantity", ledger.SaleInput{
			Items: []ledger.SaleItemInput{saleItem("p1", 0, 5.00)},
		}, "items[0].quantity"},
		{"negative price", ledger.SaleInput{
			Items: []ledger.SaleItemInput{saleItem("p1", 1, -5.00)},
		}, "items[0].priceAtSale"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := engine.CreateSale(ctx, tc.input)
			require.ErrorIs(t, err, ledger.ErrValidation)

			var verr *ledger.ValidationError
			require.ErrorAs(t, err, &verr)
			fields := make([]string, len(verr.Fields))
			for i, f := range verr.Fields {
				fields[i] = f.Field
			}
			assert.Contains(t, fields, tc.field)
		})
	}

	// Nothing above should have touched stock.
	assert.Equal(t, 10, stockOf(t, mem, "p1"))
}

// =============================================================================
// SALE UPDATE - revert then re-apply
// =============================================================================

func TestUpdateSale_QuantityIncrease(t *testing.T) {
	// GIVEN: A sale of 3 units out of 10
	// WHEN: Updating the sale to 5 units
	// THEN: Stock ends at 5, total reflects the new quantity

	engine, mem := newTestEngine(t)
	ctx := context.Background()
	seedProduct(t, mem, "p1", "Brake Pad", 10, 25.00)

	rec, err := engine.CreateSale(ctx, ledger.SaleInput{
		Items: []ledger.SaleItemInput{saleItem("p1", 3, 25.00)},
	})
	require.NoError(t, err)
	require.Equal(t, 7, stockOf(t, mem, "p1"))

	updated, err := engine.UpdateSale(ctx, rec.ID, ledger.SaleInput{
		Items: []ledger.SaleItemInput{saleItem("p1", 5, 25.00)},
	})
	require.NoError(t, err)

	assert.Equal(t, 5, stockOf(t, mem, "p1"))
	assert.True(t, updated.Sale.TotalAmount.Equal(decimal.NewFromInt(125)))
}

func TestUpdateSale_QuantityDecrease_RestoresStock(t *testing.T) {
	engine, mem := newTestEngine(t)
	ctx := context.Background()
	seedProduct(t, mem, "p1", "Brake Pad", 10, 25.00)

	rec, err := engine.CreateSale(ctx, ledger.SaleInput{
		Items: []ledger.SaleItemInput{saleItem("p1", 5, 25.00)},
	})
	require.NoError(t, err)

	_, err = engine.UpdateSale(ctx, rec.ID, ledger.SaleInput{
		Items: []ledger.SaleItemInput{saleItem("p1", 2, 25.00)},
	})
	require.NoError(t, err)

	assert.Equal(t, 8, stockOf(t, mem, "p1"))
}

func TestUpdateSale_SwapProduct_MovesStockBetweenProducts(t *testing.T) {
	// GIVEN: A sale consuming product A
	// WHEN: The update swaps the line to product B
	// THEN: A's stock is restored and B's is debited

	engine, mem := newTestEngine(t)
	ctx := context.Background()
	seedProduct(t, mem, "a", "Brake Pad", 10, 25.00)
	seedProduct(t, mem, "b", "Rotor", 10, 40.00)

	rec, err := engine.CreateSale(ctx, ledger.SaleInput{
		Items: []ledger.SaleItemInput{saleItem("a", 4, 25.00)},
	})
	require.NoError(t, err)

	updated, err := engine.UpdateSale(ctx, rec.ID, ledger.SaleInput{
		Items: []ledger.SaleItemInput{saleItem("b", 2, 40.00)},
	})
	require.NoError(t, err)

	assert.Equal(t, 10, stockOf(t, mem, "a"))
	assert.Equal(t, 8, stockOf(t, mem, "b"))
	require.Len(t, updated.Lines, 1)
	assert.Equal(t, "Rotor", updated.Lines[0].PartName)
}

func TestUpdateSale_SameLines_Idempotent(t *testing.T) {
	// Re-submitting the exact same line set must leave stock unchanged:
	// the revert credit and the re-apply debit cancel out.

	engine, mem := newTestEngine(t)
	ctx := context.Background()
	seedProduct(t, mem, "p1", "Brake Pad", 10, 25.00)

	rec, err := engine.CreateSale(ctx, ledger.SaleInput{
		Items: []ledger.SaleItemInput{saleItem("p1", 4, 25.00)},
	})
	require.NoError(t, err)

	_, err = engine.UpdateSale(ctx, rec.ID, ledger.SaleInput{
		Items: []ledger.SaleItemInput{saleItem("p1", 4, 25.00)},
	})
	require.NoError(t, err)

	assert.Equal(t, 6, stockOf(t, mem, "p1"))
}

func TestUpdateSale_ReusesFreedStock(t *testing.T) {
	// GIVEN: 10 in stock, a sale of 8 (2 left)
	// WHEN: Updating the same sale to 10 units
	// THEN: The update succeeds because the revert frees the 8 first

	engine, mem := newTestEngine(t)
	ctx := context.Background()
	seedProduct(t, mem, "p1", "Brake Pad", 10, 25.00)

	rec, err := engine.CreateSale(ctx, ledger.SaleInput{
		Items: []ledger.SaleItemInput{saleItem("p1", 8, 25.00)},
	})
	require.NoError(t, err)
	require.Equal(t, 2, stockOf(t, mem, "p1"))

	_, err = engine.UpdateSale(ctx, rec.ID, ledger.SaleInput{
		Items: []ledger.SaleItemInput{saleItem("p1", 10, 25.00)},
	})
	require.NoError(t, err)

	assert.Equal(t, 0, stockOf(t, mem, "p1"))
}

func TestUpdateSale_Shortfall_LeavesOriginalIntact(t *testing.T) {
	// GIVEN: A committed sale of 3 units
	// WHEN: An update asks for more than revert can free
	// THEN: The whole unit aborts; the original sale and stock stand

	engine, mem := newTestEngine(t)
	ctx := context.Background()
	seedProduct(t, mem, "p1", "Brake Pad", 10, 25.00)

	rec, err := engine.CreateSale(ctx, ledger.SaleInput{
		Items: []ledger.SaleItemInput{saleItem("p1", 3, 25.00)},
	})
	require.NoError(t, err)

	_, err = engine.UpdateSale(ctx, rec.ID, ledger.SaleInput{
		Items: []ledger.SaleItemInput{saleItem("p1", 99, 25.00)},
	})
	require.ErrorIs(t, err, ledger.ErrInsufficientStock)

	assert.Equal(t, 7, stockOf(t, mem, "p1"), "stock as after the original sale")

	got, err := engine.GetSale(ctx, rec.ID)
	require.NoError(t, err)
	require.Len(t, got.Lines, 1)
	assert.Equal(t, 3, got.Lines[0].Quantity, "original line survives the failed update")
	assert.True(t, got.Sale.TotalAmount.Equal(rec.Sale.TotalAmount))
}

func TestUpdateSale_MissingRecord(t *testing.T) {
	engine, mem := newTestEngine(t)
	seedProduct(t, mem, "p1", "Brake Pad", 10, 25.00)

	_, err := engine.UpdateSale(context.Background(), "nope", ledger.SaleInput{
		Items: []ledger.SaleItemInput{saleItem("p1", 1, 25.00)},
	})
	require.ErrorIs(t, err, ledger.ErrRecordNotFound)
	assert.Equal(t, 10, stockOf(t, mem, "p1"))
}

func TestUpdateSale_WrongKind_NotFound(t *testing.T) {
	// A service id must not be reachable through the sale operations.

	engine, mem := newTestEngine(t)
	ctx := context.Background()
	seedProduct(t, mem, "p1", "Brake Pad", 10, 25.00)

	svc, err := engine.CreateService(ctx, serviceInput())
	require.NoError(t, err)

	_, err = engine.UpdateSale(ctx, svc.ID, ledger.SaleInput{
		Items: []ledger.SaleItemInput{saleItem("p1", 1, 25.00)},
	})
	require.ErrorIs(t, err, ledger.ErrRecordNotFound)
}

// =============================================================================
// SALE DELETE
// =============================================================================

func TestDeleteSale_RestoresStock(t *testing.T) {
	engine, mem := newTestEngine(t)
	ctx := context.Background()
	seedProduct(t, mem, "p1", "Brake Pad", 10, 25.00)

	rec, err := engine.CreateSale(ctx, ledger.SaleInput{
		Items: []ledger.SaleItemInput{saleItem("p1", 4, 25.00)},
	})
	require.NoError(t, err)
	require.Equal(t, 6, stockOf(t, mem, "p1"))

	require.NoError(t, engine.DeleteSale(ctx, rec.ID))
	assert.Equal(t, 10, stockOf(t, mem, "p1"))

	_, err = engine.GetSale(ctx, rec.ID)
	require.ErrorIs(t, err, ledger.ErrRecordNotFound)
}

func TestDeleteSale_Twice_NoDoubleCredit(t *testing.T) {
	// Deleting an already-deleted sale is a no-op; stock must not be
	// credited a second time.

	engine, mem := newTestEngine(t)
	ctx := context.Background()
	seedProduct(t, mem, "p1", "Brake Pad", 10, 25.00)

	rec, err := engine.CreateSale(ctx, ledger.SaleInput{
		Items: []ledger.SaleItemInput{saleItem("p1", 4, 25.00)},
	})
	require.NoError(t, err)

	require.NoError(t, engine.DeleteSale(ctx, rec.ID))
	require.NoError(t, engine.DeleteSale(ctx, rec.ID))

	assert.Equal(t, 10, stockOf(t, mem, "p1"))
}

func TestDeleteSale_Absent_NoOp(t *testing.T) {
	engine, _ := newTestEngine(t)
	require.NoError(t, engine.DeleteSale(context.Background(), "never-existed"))
}

// =============================================================================
// SERVICES
// =============================================================================

func TestCreateService_SnapshotsSellingPrice(t *testing.T) {
	// Service part prices are not client-supplied; the engine snapshots
	// the product's selling price at write time.

	engine, mem := newTestEngine(t)
	ctx := context.Background()
	seedProduct(t, mem, "p1", "Brake Pad", 10, 25.00)

	rec, err := engine.CreateService(ctx, serviceInput(
		ledger.PartInput{ProductID: "p1", Quantity: 2},
	))
	require.NoError(t, err)

	assert.Equal(t, 8, stockOf(t, mem, "p1"))
	require.Len(t, rec.Lines, 1)
	assert.True(t, rec.Lines[0].PriceAtSale.Equal(decimal.NewFromFloat(25.00)))
	assert.Equal(t, "Brake Pad", rec.Lines[0].PartName)
	assert.True(t, rec.Service.TotalPrice.Equal(decimal.NewFromInt(150)),
		"total price is operator-entered, not derived from parts")
}

func TestCreateService_NoParts_Valid(t *testing.T) {
	engine, _ := newTestEngine(t)

	rec, err := engine.CreateService(context.Background(), serviceInput())
	require.NoError(t, err)
	assert.Empty(t, rec.Lines)
	assert.Equal(t, ledger.KindService, rec.Kind)
}

func TestCreateService_Validation(t *testing.T) {
	engine, _ := newTestEngine(t)

	in := serviceInput()
	in.CustomerName = ""
	in.CarPlateNumber = ""
	in.TotalPrice = decimal.Zero

	_, err := engine.CreateService(context.Background(), in)
	require.ErrorIs(t, err, ledger.ErrValidation)

	var verr *ledger.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Len(t, verr.Fields, 3)
}

func TestUpdateService_ResnapshotsPriceAfterChange(t *testing.T) {
	// GIVEN: A service whose part was snapshotted at 25.00
	// WHEN: The product price rises and the service is updated
	// THEN: The rewritten line carries the new price; the old snapshot is gone

	engine, mem := newTestEngine(t)
	ctx := context.Background()
	seedProduct(t, mem, "p1", "Brake Pad", 10, 25.00)

	rec, err := engine.CreateService(ctx, serviceInput(
		ledger.PartInput{ProductID: "p1", Quantity: 1},
	))
	require.NoError(t, err)
	require.True(t, rec.Lines[0].PriceAtSale.Equal(decimal.NewFromFloat(25.00)))

	// Price change between create and update.
	seedProduct(t, mem, "p1", "Brake Pad", stockOf(t, mem, "p1"), 30.00)

	updated, err := engine.UpdateService(ctx, rec.ID, serviceInput(
		ledger.PartInput{ProductID: "p1", Quantity: 1},
	))
	require.NoError(t, err)

	require.Len(t, updated.Lines, 1)
	assert.True(t, updated.Lines[0].PriceAtSale.Equal(decimal.NewFromFloat(30.00)))
}

func TestUpdateService_ReplacesFields(t *testing.T) {
	engine, mem := newTestEngine(t)
	ctx := context.Background()
	seedProduct(t, mem, "p1", "Brake Pad", 10, 25.00)

	rec, err := engine.CreateService(ctx, serviceInput(
		ledger.PartInput{ProductID: "p1", Quantity: 3},
	))
	require.NoError(t, err)

	in := ledger.ServiceInput{
		CustomerName:    "Lee Wong",
		CarPlateNumber:  "XYZ-999",
		ServiceType:     "Oil change",
		TechnicianNotes: "drain plug replaced",
		TotalPrice:      decimal.NewFromInt(60),
	}
	updated, err := engine.UpdateService(ctx, rec.ID, in)
	require.NoError(t, err)

	assert.Equal(t, "Lee Wong", updated.Service.CustomerName)
	assert.Equal(t, "Oil change", updated.Service.ServiceType)
	assert.Empty(t, updated.Lines)
	assert.Equal(t, 10, stockOf(t, mem, "p1"), "dropped parts are credited back")
}

func TestDeleteService_RestoresParts(t *testing.T) {
	engine, mem := newTestEngine(t)
	ctx := context.Background()
	seedProduct(t, mem, "p1", "Brake Pad", 10, 25.00)

	rec, err := engine.CreateService(ctx, serviceInput(
		ledger.PartInput{ProductID: "p1", Quantity: 4},
	))
	require.NoError(t, err)
	require.Equal(t, 6, stockOf(t, mem, "p1"))

	require.NoError(t, engine.DeleteService(ctx, rec.ID))
	assert.Equal(t, 10, stockOf(t, mem, "p1"))
}

// =============================================================================
// LISTING AND KIND SEPARATION
// =============================================================================

func TestListRecords_SeparatesKinds(t *testing.T) {
	engine, mem := newTestEngine(t)
	ctx := context.Background()
	seedProduct(t, mem, "p1", "Brake Pad", 100, 25.00)

	_, err := engine.CreateSale(ctx, ledger.SaleInput{
		Items: []ledger.SaleItemInput{saleItem("p1", 1, 25.00)},
	})
	require.NoError(t, err)
	_, err = engine.CreateService(ctx, serviceInput())
	require.NoError(t, err)

	sales, err := engine.ListSales(ctx)
	require.NoError(t, err)
	services, err := engine.ListServices(ctx)
	require.NoError(t, err)

	assert.Len(t, sales, 1)
	assert.Len(t, services, 1)
	assert.Equal(t, ledger.KindSale, sales[0].Kind)
	assert.Equal(t, ledger.KindService, services[0].Kind)
}
