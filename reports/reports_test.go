package reports

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/partsdesk/shop-engine/ledger"
	"github.com/partsdesk/shop-engine/store/sqlite"
)

// =============================================================================
// TEST SETUP
// =============================================================================

// Mid-May, mid-morning. Day boundaries land on May 15 and May 14.
var testNow = time.Date(2026, time.May, 15, 10, 30, 0, 0, time.UTC)

func newTestReporter(t *testing.T) (*Reporter, *sqlite.Store) {
	t.Helper()
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	r := New(store)
	r.now = func() time.Time { return testNow }
	return r, store
}

func insertSale(t *testing.T, store *sqlite.Store, id string, total float64, at time.Time, lines ...ledger.LineItem) {
	t.Helper()
	rec := ledger.Record{
		ID:   id,
		Kind: ledger.KindSale,
		Sale: ledger.SaleDetails{
			TotalAmount: decimal.NewFromFloat(total),
			TaxAmount:   decimal.Zero,
			Status:      ledger.StatusCompleted,
		},
		CreatedAt: at,
		UpdatedAt: at,
	}
	err := store.WithTx(context.Background(), func(tx ledger.Tx) error {
		if err := tx.InsertRecord(context.Background(), rec); err != nil {
			return err
		}
		return tx.InsertLines(context.Background(), id, lines)
	})
	require.NoError(t, err)
}

func insertService(t *testing.T, store *sqlite.Store, id string, price float64, at time.Time) {
	t.Helper()
	rec := ledger.Record{
		ID:   id,
		Kind: ledger.KindService,
		Service: ledger.ServiceDetails{
			CustomerName:   "Sam Patel",
			CarPlateNumber: "ABC-123",
			ServiceType:    "Oil change",
			TotalPrice:     decimal.NewFromFloat(price),
		},
		CreatedAt: at,
		UpdatedAt: at,
	}
	err := store.WithTx(context.Background(), func(tx ledger.Tx) error {
		return tx.InsertRecord(context.Background(), rec)
	})
	require.NoError(t, err)
}

func insertExpense(t *testing.T, store *sqlite.Store, id string, amount float64, at time.Time) {
	t.Helper()
	err := store.SaveExpense(context.Background(), ledger.Expense{
		ID:          id,
		Type:        ledger.ExpenseRent,
		Description: "rent",
		Amount:      decimal.NewFromFloat(amount),
		ExpenseDate: at,
	})
	require.NoError(t, err)
}

func insertProduct(t *testing.T, store *sqlite.Store, id, category string, stock int, cost float64) {
	t.Helper()
	err := store.SaveProduct(context.Background(), ledger.Product{
		ID:            id,
		PartName:      "Part " + id,
		Category:      category,
		CarBrand:      "Toyota",
		CarModel:      "Corolla",
		YearRange:     "2015-2020",
		StockQuantity: stock,
		CostPrice:     decimal.NewFromFloat(cost),
		SellingPrice:  decimal.NewFromFloat(cost * 2),
	})
	require.NoError(t, err)
}

// =============================================================================
// UNIFIED RECORDS
// =============================================================================

func TestUnifiedRecords_MergesAndSortsNewestFirst(t *testing.T) {
	r, store := newTestReporter(t)
	ctx := context.Background()

	day := func(d int) time.Time {
		return time.Date(2026, time.May, d, 12, 0, 0, 0, time.UTC)
	}
	insertSale(t, store, "sale-1", 75, day(10), ledger.LineItem{
		ID: "l1", ProductID: "p1", PartName: "Brake Pad", Quantity: 3,
		PriceAtSale: decimal.NewFromFloat(25.00),
	})
	insertService(t, store, "svc-1", 150, day(12))
	insertExpense(t, store, "exp-1", 800, day(11))

	records, err := r.UnifiedRecords(ctx)
	require.NoError(t, err)
	require.Len(t, records, 3)

	assert.Equal(t, TypeService, records[0].Type)
	assert.Equal(t, TypeExpense, records[1].Type)
	assert.Equal(t, TypeSale, records[2].Type)

	assert.Equal(t, "Sam Patel", records[0].CustomerName)
	assert.Equal(t, "ABC-123", records[0].CarPlateNumber)
	assert.Equal(t, "RENT", records[1].ExpenseType)
	assert.Equal(t, "rent", records[1].Description)

	require.Len(t, records[2].Items, 1)
	assert.Equal(t, "Brake Pad", records[2].Items[0].Name)
	assert.Equal(t, 3, records[2].Items[0].Quantity)
	assert.True(t, records[2].TotalAmount.Equal(decimal.NewFromInt(75)))
}

func TestUnifiedRecords_EmptyStore(t *testing.T) {
	r, _ := newTestReporter(t)

	records, err := r.UnifiedRecords(context.Background())
	require.NoError(t, err)
	assert.Empty(t, records)
}

// =============================================================================
// DASHBOARD
// =============================================================================

func TestDashboard_Metrics(t *testing.T) {
	r, store := newTestReporter(t)
	ctx := context.Background()

	today := time.Date(2026, time.May, 15, 9, 0, 0, 0, time.UTC)
	yesterday := time.Date(2026, time.May, 14, 9, 0, 0, 0, time.UTC)
	lastMonth := time.Date(2026, time.April, 10, 9, 0, 0, 0, time.UTC)

	insertSale(t, store, "sale-today", 100, today)
	insertService(t, store, "svc-today", 30, today)
	insertSale(t, store, "sale-yesterday", 50, yesterday)

	insertExpense(t, store, "exp-today", 20, today)
	insertExpense(t, store, "exp-old", 10, lastMonth)

	// One low-stock product (2 <= threshold), one healthy.
	insertProduct(t, store, "low", "Brakes", 2, 10)
	insertProduct(t, store, "ok", "Engine", 10, 5)

	d, err := r.Dashboard(ctx)
	require.NoError(t, err)

	assert.True(t, d.DailyRevenue.Equal(decimal.NewFromInt(130)), "sale 100 + service 30")
	assert.True(t, d.RevenueChangePct.Equal(decimal.NewFromInt(160)), "(130-50)/50 * 100")
	assert.Equal(t, 1, d.ServicesToday)
	assert.Equal(t, 1, d.LowStockCount)
	assert.True(t, d.InventoryValue.Equal(decimal.NewFromInt(70)), "2*10 + 10*5")
	assert.True(t, d.TodayExpenses.Equal(decimal.NewFromInt(20)))
	assert.True(t, d.AllTimeExpenses.Equal(decimal.NewFromInt(30)))
	assert.True(t, d.NetToday.Equal(decimal.NewFromInt(110)), "130 - 20")
}

func TestDashboard_NoYesterdayRevenue_ZeroChange(t *testing.T) {
	r, store := newTestReporter(t)

	today := time.Date(2026, time.May, 15, 9, 0, 0, 0, time.UTC)
	insertSale(t, store, "sale-today", 100, today)

	d, err := r.Dashboard(context.Background())
	require.NoError(t, err)
	assert.True(t, d.RevenueChangePct.IsZero(), "no baseline means no percentage")
}

// =============================================================================
// MONTHLY REPORT
// =============================================================================

func TestMonthly_SummariesAndDistribution(t *testing.T) {
	r, store := newTestReporter(t)
	ctx := context.Background()

	april := time.Date(2026, time.April, 10, 12, 0, 0, 0, time.UTC)
	may := time.Date(2026, time.May, 5, 12, 0, 0, 0, time.UTC)

	insertSale(t, store, "sale-apr", 200, april)
	insertService(t, store, "svc-may", 80, may)
	insertExpense(t, store, "exp-apr", 50, april)

	insertProduct(t, store, "p1", "Brakes", 4, 10)
	insertProduct(t, store, "p2", "Brakes", 1, 20)
	insertProduct(t, store, "p3", "Engine", 2, 5)

	report, err := r.Monthly(ctx, 3)
	require.NoError(t, err)
	require.Len(t, report.Monthly, 3)

	// Oldest first: Mar, Apr, May.
	assert.Equal(t, "Mar", report.Monthly[0].Name)
	assert.Equal(t, "Apr", report.Monthly[1].Name)
	assert.Equal(t, "May", report.Monthly[2].Name)

	assert.True(t, report.Monthly[0].Sales.IsZero())
	assert.True(t, report.Monthly[1].Sales.Equal(decimal.NewFromInt(200)))
	assert.True(t, report.Monthly[1].Expenses.Equal(decimal.NewFromInt(50)))
	assert.True(t, report.Monthly[1].Net.Equal(decimal.NewFromInt(150)))
	assert.True(t, report.Monthly[2].Sales.Equal(decimal.NewFromInt(80)))

	require.Len(t, report.InventoryDistribution, 2)
	assert.Equal(t, "Brakes", report.InventoryDistribution[0].Name)
	assert.Equal(t, 5, report.InventoryDistribution[0].Count)
	assert.True(t, report.InventoryDistribution[0].Value.Equal(decimal.NewFromInt(60)), "4*10 + 1*20")
	assert.Equal(t, "Engine", report.InventoryDistribution[1].Name)
	assert.Equal(t, 2, report.InventoryDistribution[1].Count)
}

func TestMonthly_DefaultsToSixMonths(t *testing.T) {
	r, _ := newTestReporter(t)

	report, err := r.Monthly(context.Background(), 0)
	require.NoError(t, err)
	assert.Len(t, report.Monthly, 6)
	assert.Equal(t, "May", report.Monthly[5].Name)
}
