/*
Package reports holds the read-side projections: the unified records view,
the dashboard metrics, and the monthly report.

PURPOSE:
  Everything here is a stateless query over the ledger's committed state.
  There are no cached counters to keep in sync; every call re-derives its
  numbers from storage, so a reader can never observe a partially-applied
  transaction (the core's atomic units guarantee that).

  Money sums are computed in Go with decimal so stored amounts are never
  coerced through floating point by the database.

SEE ALSO:
  - ledger/engine.go: the write side these views project
  - api/handlers.go: HTTP exposure
*/
package reports

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/partsdesk/shop-engine/ledger"
)

// LowStockThreshold is the stock level at or below which a product counts
// as low stock on the dashboard.
const LowStockThreshold = 3

// Store is the read surface the projections need.
type Store interface {
	ListRecords(ctx context.Context, kind ledger.Kind) ([]ledger.Record, error)
	ListRecordsInRange(ctx context.Context, kind ledger.Kind, from, to time.Time) ([]ledger.Record, error)
	ListExpenses(ctx context.Context, from, to time.Time) ([]ledger.Expense, error)
	ListProducts(ctx context.Context, filter ledger.ProductFilter) ([]ledger.Product, error)
}

// Reporter computes the projections.
type Reporter struct {
	store Store
	now   func() time.Time
}

// New creates a Reporter. Day and month boundaries are computed in UTC.
func New(store Store) *Reporter {
	return &Reporter{store: store, now: time.Now}
}

// =============================================================================
// UNIFIED RECORDS
// =============================================================================

// RecordType tags entries in the unified view.
type RecordType string

const (
	TypeSale    RecordType = "sale"
	TypeService RecordType = "service"
	TypeExpense RecordType = "expense"
)

// ItemSummary is a name+quantity pair for display.
type ItemSummary struct {
	Name     string
	Quantity int
}

// UnifiedRecord flattens sales, services, and expenses into one shape for
// the combined activity view. Fields that do not apply to an entry's type
// are empty.
type UnifiedRecord struct {
	ID          string
	Type        RecordType
	CreatedAt   time.Time
	TotalAmount decimal.Decimal

	// Service fields
	CustomerName   string
	CarPlateNumber string
	ServiceType    string

	// Expense fields
	ExpenseType string
	Description string

	Items []ItemSummary
}

// UnifiedRecords returns all sales, services, and expenses merged, newest
// first. Line items display their part-name snapshot, so entries stay
// readable after the product is deleted.
func (r *Reporter) UnifiedRecords(ctx context.Context) ([]UnifiedRecord, error) {
	sales, err := r.store.ListRecords(ctx, ledger.KindSale)
	if err != nil {
		return nil, err
	}
	services, err := r.store.ListRecords(ctx, ledger.KindService)
	if err != nil {
		return nil, err
	}
	expenses, err := r.store.ListExpenses(ctx, time.Time{}, time.Time{})
	if err != nil {
		return nil, err
	}

	combined := make([]UnifiedRecord, 0, len(sales)+len(services)+len(expenses))
	for _, s := range sales {
		if s.Sale.Status != ledger.StatusCompleted {
			continue
		}
		combined = append(combined, UnifiedRecord{
			ID:          s.ID,
			Type:        TypeSale,
			CreatedAt:   s.CreatedAt,
			TotalAmount: s.Sale.TotalAmount,
			Items:       itemSummaries(s.Lines),
		})
	}
	for _, s := range services {
		combined = append(combined, UnifiedRecord{
			ID:             s.ID,
			Type:           TypeService,
			CreatedAt:      s.CreatedAt,
			TotalAmount:    s.Service.TotalPrice,
			CustomerName:   s.Service.CustomerName,
			CarPlateNumber: s.Service.CarPlateNumber,
			ServiceType:    s.Service.ServiceType,
			Items:          itemSummaries(s.Lines),
		})
	}
	for _, e := range expenses {
		combined = append(combined, UnifiedRecord{
			ID:          e.ID,
			Type:        TypeExpense,
			CreatedAt:   e.ExpenseDate,
			TotalAmount: e.Amount,
			ExpenseType: string(e.Type),
			Description: e.Description,
			Items:       []ItemSummary{},
		})
	}

	sort.Slice(combined, func(i, j int) bool {
		if !combined[i].CreatedAt.Equal(combined[j].CreatedAt) {
			return combined[i].CreatedAt.After(combined[j].CreatedAt)
		}
		return combined[i].ID < combined[j].ID
	})
	return combined, nil
}

func itemSummaries(lines []ledger.LineItem) []ItemSummary {
	items := make([]ItemSummary, len(lines))
	for i, line := range lines {
		items[i] = ItemSummary{Name: line.PartName, Quantity: line.Quantity}
	}
	return items
}

// =============================================================================
// DASHBOARD
// =============================================================================

// Dashboard is the front-page metric set.
type Dashboard struct {
	DailyRevenue     decimal.Decimal
	RevenueChangePct decimal.Decimal // vs yesterday; zero when yesterday had no revenue
	ServicesToday    int
	LowStockCount    int
	InventoryValue   decimal.Decimal // sum(costPrice * stockQuantity)
	TodayExpenses    decimal.Decimal
	AllTimeExpenses  decimal.Decimal
	NetToday         decimal.Decimal
}

// Dashboard computes today's metrics with a yesterday comparison.
func (r *Reporter) Dashboard(ctx context.Context) (*Dashboard, error) {
	now := r.now().UTC()
	todayStart := now.Truncate(24 * time.Hour)
	todayEnd := todayStart.Add(24 * time.Hour)
	yesterdayStart := todayStart.Add(-24 * time.Hour)

	todayRevenue, err := r.revenueBetween(ctx, todayStart, todayEnd)
	if err != nil {
		return nil, err
	}
	yesterdayRevenue, err := r.revenueBetween(ctx, yesterdayStart, todayStart)
	if err != nil {
		return nil, err
	}

	changePct := decimal.Zero
	if yesterdayRevenue.IsPositive() {
		changePct = todayRevenue.Sub(yesterdayRevenue).
			Div(yesterdayRevenue).Mul(decimal.NewFromInt(100))
	}

	todayServices, err := r.store.ListRecordsInRange(ctx, ledger.KindService, todayStart, todayEnd)
	if err != nil {
		return nil, err
	}

	products, err := r.store.ListProducts(ctx, ledger.ProductFilter{})
	if err != nil {
		return nil, err
	}
	lowStock := 0
	inventoryValue := decimal.Zero
	for _, p := range products {
		if p.StockQuantity <= LowStockThreshold {
			lowStock++
		}
		inventoryValue = inventoryValue.Add(
			p.CostPrice.Mul(decimal.NewFromInt(int64(p.StockQuantity))))
	}

	todayExpenses, err := r.sumExpenses(ctx, todayStart, todayEnd)
	if err != nil {
		return nil, err
	}
	allExpenses, err := r.sumExpenses(ctx, time.Time{}, time.Time{})
	if err != nil {
		return nil, err
	}

	return &Dashboard{
		DailyRevenue:     todayRevenue,
		RevenueChangePct: changePct,
		ServicesToday:    len(todayServices),
		LowStockCount:    lowStock,
		InventoryValue:   inventoryValue,
		TodayExpenses:    todayExpenses,
		AllTimeExpenses:  allExpenses,
		NetToday:         todayRevenue.Sub(todayExpenses),
	}, nil
}

// revenueBetween sums completed-sale totals and service prices in [from, to).
func (r *Reporter) revenueBetween(ctx context.Context, from, to time.Time) (decimal.Decimal, error) {
	sales, err := r.store.ListRecordsInRange(ctx, ledger.KindSale, from, to)
	if err != nil {
		return decimal.Zero, err
	}
	services, err := r.store.ListRecordsInRange(ctx, ledger.KindService, from, to)
	if err != nil {
		return decimal.Zero, err
	}

	revenue := decimal.Zero
	for _, s := range sales {
		if s.Sale.Status == ledger.StatusCompleted {
			revenue = revenue.Add(s.Sale.TotalAmount)
		}
	}
	for _, s := range services {
		revenue = revenue.Add(s.Service.TotalPrice)
	}
	return revenue, nil
}

func (r *Reporter) sumExpenses(ctx context.Context, from, to time.Time) (decimal.Decimal, error) {
	expenses, err := r.store.ListExpenses(ctx, from, to)
	if err != nil {
		return decimal.Zero, err
	}
	total := decimal.Zero
	for _, e := range expenses {
		total = total.Add(e.Amount)
	}
	return total, nil
}

// =============================================================================
// MONTHLY REPORT
// =============================================================================

// MonthlySummary is one month's revenue/expense/net row.
type MonthlySummary struct {
	Name     string // "Jan", "Feb", ...
	Sales    decimal.Decimal
	Expenses decimal.Decimal
	Net      decimal.Decimal
}

// CategorySummary is one inventory-category row: unit count and cost value.
type CategorySummary struct {
	Name  string
	Count int
	Value decimal.Decimal
}

// Report is the monthly report plus the inventory distribution.
type Report struct {
	Monthly               []MonthlySummary
	InventoryDistribution []CategorySummary
}

// Monthly computes the last `months` calendar months (oldest first) and
// the inventory distribution by category.
func (r *Reporter) Monthly(ctx context.Context, months int) (*Report, error) {
	if months <= 0 {
		months = 6
	}

	now := r.now().UTC()
	currentMonth := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)

	summaries := make([]MonthlySummary, 0, months)
	for i := months - 1; i >= 0; i-- {
		start := currentMonth.AddDate(0, -i, 0)
		end := start.AddDate(0, 1, 0)

		revenue, err := r.revenueBetween(ctx, start, end)
		if err != nil {
			return nil, err
		}
		expenses, err := r.sumExpenses(ctx, start, end)
		if err != nil {
			return nil, err
		}

		summaries = append(summaries, MonthlySummary{
			Name:     start.Format("Jan"),
			Sales:    revenue,
			Expenses: expenses,
			Net:      revenue.Sub(expenses),
		})
	}

	products, err := r.store.ListProducts(ctx, ledger.ProductFilter{})
	if err != nil {
		return nil, err
	}

	byCategory := make(map[string]*CategorySummary)
	var order []string
	for _, p := range products {
		cat := p.Category
		if cat == "" {
			cat = "Other"
		}
		entry, ok := byCategory[cat]
		if !ok {
			entry = &CategorySummary{Name: cat, Value: decimal.Zero}
			byCategory[cat] = entry
			order = append(order, cat)
		}
		entry.Count += p.StockQuantity
		entry.Value = entry.Value.Add(
			p.CostPrice.Mul(decimal.NewFromInt(int64(p.StockQuantity))))
	}

	sort.Strings(order)
	distribution := make([]CategorySummary, 0, len(order))
	for _, cat := range order {
		distribution = append(distribution, *byCategory[cat])
	}

	return &Report{Monthly: summaries, InventoryDistribution: distribution}, nil
}
