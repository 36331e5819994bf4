/*
handlers.go - HTTP API handlers for the shop engine

PURPOSE:
  Exposes the inventory core and reporting views via REST API. Handles HTTP
  request/response, JSON serialization, and delegates to domain logic.

ENDPOINTS:
  Inventory:
    GET    /api/inventory          List products (?q=, ?category=)
    POST   /api/inventory          Create product
    GET    /api/inventory/{id}     Get product
    PUT    /api/inventory/{id}     Partial update (incl. stock adjustment)
    DELETE /api/inventory/{id}     Delete product

  Sales:
    GET    /api/sales              List sales
    POST   /api/sales              Create sale (debits stock)
    GET    /api/sales/{id}         Get sale
    PUT    /api/sales/{id}         Replace line set (revert + re-apply)
    DELETE /api/sales/{id}         Delete sale (credits stock back)

  Services:
    GET    /api/services           List service records
    POST   /api/services           Create service (debits parts)
    GET    /api/services/{id}      Get service
    PUT    /api/services/{id}      Update service
    DELETE /api/services/{id}      Delete service (credits parts back)

  Expenses:
    GET    /api/expenses           List expenses
    POST   /api/expenses           Create expense
    PUT    /api/expenses/{id}      Update expense
    DELETE /api/expenses/{id}      Delete expense

  Read views:
    GET    /api/records            Unified sales+services+expenses view
    GET    /api/dashboard          Today's metrics
    GET    /api/reports            Monthly report (?months=)

ERROR HANDLING:
  Domain errors are mapped centrally by writeDomainError:
  - 400: validation errors (with per-field details), unknown product
  - 404: missing sale/service/expense/product resource
  - 409: insufficient stock
  - 500: storage failures

  Deleting an absent sale or service returns 200: the engine treats it as
  a no-op so retried deletes are safe.

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
  - ledger/engine.go: The transactional core behind the write endpoints
*/
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/partsdesk/shop-engine/ledger"
	"github.com/partsdesk/shop-engine/reports"
	"github.com/partsdesk/shop-engine/store/sqlite"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store   *sqlite.Store
	Engine  *ledger.Engine
	Reports *reports.Reporter

	log zerolog.Logger
}

// NewHandler wires the handler over the given store.
func NewHandler(store *sqlite.Store, log zerolog.Logger) *Handler {
	return &Handler{
		Store:   store,
		Engine:  ledger.NewEngine(store, log),
		Reports: reports.New(store),
		log:     log,
	}
}

// =============================================================================
// INVENTORY ENDPOINTS
// =============================================================================

// ListProducts returns products matching the optional query and category.
// GET /api/inventory?q=brake&category=Brakes
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	filter := ledger.ProductFilter{
		Query:    r.URL.Query().Get("q"),
		Category: r.URL.Query().Get("category"),
	}
	products, err := h.Store.ListProducts(r.Context(), filter)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	dtos := make([]ProductDTO, len(products))
	for i, p := range products {
		dtos[i] = toProductDTO(p)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetProduct returns one product.
// GET /api/inventory/{id}
func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	product, err := h.Store.GetProduct(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	if product == nil {
		writeError(w, http.StatusNotFound, "Product not found")
		return
	}
	writeJSON(w, http.StatusOK, toProductDTO(*product))
}

// CreateProduct creates an inventory item.
// POST /api/inventory
func (h *Handler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var req CreateProductRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	now := time.Now().UTC()
	product := ledger.Product{
		ID:            uuid.New().String(),
		PartName:      req.PartName,
		Category:      req.Category,
		CarBrand:      req.CarBrand,
		CarModel:      req.CarModel,
		YearRange:     req.YearRange,
		StockQuantity: req.StockQuantity,
		CostPrice:     decimal.NewFromFloat(req.CostPrice),
		SellingPrice:  decimal.NewFromFloat(req.SellingPrice),
		BinLocation:   req.BinLocation,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := ledger.ValidateProduct(product); err != nil {
		h.writeDomainError(w, err)
		return
	}

	if err := h.Store.SaveProduct(r.Context(), product); err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toProductDTO(product))
}

// UpdateProduct applies a partial update. Setting stockQuantity here is the
// direct adjustment path for receiving deliveries or correcting counts.
// PUT /api/inventory/{id}
func (h *Handler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	var req UpdateProductRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	patch := ledger.ProductPatch{
		PartName:      req.PartName,
		Category:      req.Category,
		CarBrand:      req.CarBrand,
		CarModel:      req.CarModel,
		YearRange:     req.YearRange,
		StockQuantity: req.StockQuantity,
		BinLocation:   req.BinLocation,
	}
	if req.CostPrice != nil {
		d := decimal.NewFromFloat(*req.CostPrice)
		patch.CostPrice = &d
	}
	if req.SellingPrice != nil {
		d := decimal.NewFromFloat(*req.SellingPrice)
		patch.SellingPrice = &d
	}
	if err := ledger.ValidateProductPatch(patch); err != nil {
		h.writeDomainError(w, err)
		return
	}

	product, err := h.Store.UpdateProduct(r.Context(), chi.URLParam(r, "id"), patch)
	if err != nil {
		if errors.Is(err, ledger.ErrProductNotFound) {
			writeError(w, http.StatusNotFound, "Product not found")
			return
		}
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toProductDTO(*product))
}

// DeleteProduct removes a product. Historical line items keep their name
// and price snapshots, so past sales stay readable.
// DELETE /api/inventory/{id}
func (h *Handler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.DeleteProduct(r.Context(), chi.URLParam(r, "id")); err != nil {
		if errors.Is(err, ledger.ErrProductNotFound) {
			writeError(w, http.StatusNotFound, "Product not found")
			return
		}
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"deleted": true})
}

// =============================================================================
// SALE ENDPOINTS
// =============================================================================

// ListSales returns all sales, newest first.
// GET /api/sales
func (h *Handler) ListSales(w http.ResponseWriter, r *http.Request) {
	sales, err := h.Engine.ListSales(r.Context())
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	dtos := make([]SaleDTO, len(sales))
	for i, s := range sales {
		dtos[i] = toSaleDTO(s)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetSale returns one sale with its lines.
// GET /api/sales/{id}
func (h *Handler) GetSale(w http.ResponseWriter, r *http.Request) {
	rec, err := h.Engine.GetSale(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toSaleDTO(*rec))
}

// CreateSale creates a sale and debits stock atomically.
// POST /api/sales
func (h *Handler) CreateSale(w http.ResponseWriter, r *http.Request) {
	var req SaleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	rec, err := h.Engine.CreateSale(r.Context(), req.toInput())
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toSaleDTO(*rec))
}

// UpdateSale replaces the sale's full line set.
// PUT /api/sales/{id}
func (h *Handler) UpdateSale(w http.ResponseWriter, r *http.Request) {
	var req SaleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	rec, err := h.Engine.UpdateSale(r.Context(), chi.URLParam(r, "id"), req.toInput())
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toSaleDTO(*rec))
}

// DeleteSale removes a sale, restoring its stock. Deleting an absent sale
// succeeds as a no-op.
// DELETE /api/sales/{id}
func (h *Handler) DeleteSale(w http.ResponseWriter, r *http.Request) {
	if err := h.Engine.DeleteSale(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"deleted": true})
}

// =============================================================================
// SERVICE ENDPOINTS
// =============================================================================

// ListServices returns all service records, newest first.
// GET /api/services
func (h *Handler) ListServices(w http.ResponseWriter, r *http.Request) {
	services, err := h.Engine.ListServices(r.Context())
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	dtos := make([]ServiceDTO, len(services))
	for i, s := range services {
		dtos[i] = toServiceDTO(s)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetService returns one service record with its parts.
// GET /api/services/{id}
func (h *Handler) GetService(w http.ResponseWriter, r *http.Request) {
	rec, err := h.Engine.GetService(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toServiceDTO(*rec))
}

// CreateService creates a service record, consuming parts from stock.
// POST /api/services
func (h *Handler) CreateService(w http.ResponseWriter, r *http.Request) {
	var req ServiceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	rec, err := h.Engine.CreateService(r.Context(), req.toInput())
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toServiceDTO(*rec))
}

// UpdateService replaces the service's fields and full parts set.
// PUT /api/services/{id}
func (h *Handler) UpdateService(w http.ResponseWriter, r *http.Request) {
	var req ServiceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	rec, err := h.Engine.UpdateService(r.Context(), chi.URLParam(r, "id"), req.toInput())
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toServiceDTO(*rec))
}

// DeleteService removes a service record, restoring its parts to stock.
// DELETE /api/services/{id}
func (h *Handler) DeleteService(w http.ResponseWriter, r *http.Request) {
	if err := h.Engine.DeleteService(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"deleted": true})
}

// =============================================================================
// EXPENSE ENDPOINTS
// =============================================================================

// ListExpenses returns expenses, newest first, optionally limited to
// [from, to).
// GET /api/expenses?from=2026-03-01&to=2026-04-01
func (h *Handler) ListExpenses(w http.ResponseWriter, r *http.Request) {
	var from, to time.Time
	var err error
	if s := r.URL.Query().Get("from"); s != "" {
		if from, err = parseExpenseDate(s); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid from date (use RFC 3339 or YYYY-MM-DD)")
			return
		}
	}
	if s := r.URL.Query().Get("to"); s != "" {
		if to, err = parseExpenseDate(s); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid to date (use RFC 3339 or YYYY-MM-DD)")
			return
		}
	}

	expenses, err := h.Store.ListExpenses(r.Context(), from, to)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	dtos := make([]ExpenseDTO, len(expenses))
	for i, e := range expenses {
		dtos[i] = toExpenseDTO(e)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateExpense records an expense.
// POST /api/expenses
func (h *Handler) CreateExpense(w http.ResponseWriter, r *http.Request) {
	var req ExpenseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	expenseDate, err := parseExpenseDate(req.ExpenseDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid expenseDate (use RFC 3339 or YYYY-MM-DD)")
		return
	}

	expense := ledger.Expense{
		ID:          uuid.New().String(),
		Type:        ledger.ExpenseType(req.Type),
		Description: req.Description,
		Amount:      decimal.NewFromFloat(req.Amount),
		ExpenseDate: expenseDate,
		CreatedAt:   time.Now().UTC(),
	}
	if err := ledger.ValidateExpense(expense); err != nil {
		h.writeDomainError(w, err)
		return
	}

	if err := h.Store.SaveExpense(r.Context(), expense); err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toExpenseDTO(expense))
}

// UpdateExpense rewrites an expense.
// PUT /api/expenses/{id}
func (h *Handler) UpdateExpense(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	existing, err := h.Store.GetExpense(r.Context(), id)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	if existing == nil {
		writeError(w, http.StatusNotFound, "Expense not found")
		return
	}

	var req ExpenseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	expenseDate := existing.ExpenseDate
	if req.ExpenseDate != "" {
		expenseDate, err = parseExpenseDate(req.ExpenseDate)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid expenseDate (use RFC 3339 or YYYY-MM-DD)")
			return
		}
	}

	expense := ledger.Expense{
		ID:          id,
		Type:        ledger.ExpenseType(req.Type),
		Description: req.Description,
		Amount:      decimal.NewFromFloat(req.Amount),
		ExpenseDate: expenseDate,
		CreatedAt:   existing.CreatedAt,
	}
	if err := ledger.ValidateExpense(expense); err != nil {
		h.writeDomainError(w, err)
		return
	}

	if err := h.Store.UpdateExpense(r.Context(), expense); err != nil {
		if errors.Is(err, ledger.ErrExpenseNotFound) {
			writeError(w, http.StatusNotFound, "Expense not found")
			return
		}
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toExpenseDTO(expense))
}

// DeleteExpense removes an expense. Idempotent.
// DELETE /api/expenses/{id}
func (h *Handler) DeleteExpense(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.DeleteExpense(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"deleted": true})
}

// parseExpenseDate accepts RFC 3339 or a bare date; empty means now.
func parseExpenseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Now().UTC(), nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}

// =============================================================================
// READ-VIEW ENDPOINTS
// =============================================================================

// ListRecords returns the unified sales+services+expenses view.
// GET /api/records
func (h *Handler) ListRecords(w http.ResponseWriter, r *http.Request) {
	records, err := h.Reports.UnifiedRecords(r.Context())
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	dtos := make([]UnifiedRecordDTO, len(records))
	for i, rec := range records {
		dtos[i] = toUnifiedRecordDTO(rec)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetDashboard returns today's metrics.
// GET /api/dashboard
func (h *Handler) GetDashboard(w http.ResponseWriter, r *http.Request) {
	d, err := h.Reports.Dashboard(r.Context())
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, DashboardDTO{
		DailyRevenue:     d.DailyRevenue.InexactFloat64(),
		RevenueChangePct: d.RevenueChangePct.InexactFloat64(),
		ServicesToday:    d.ServicesToday,
		LowStockCount:    d.LowStockCount,
		InventoryValue:   d.InventoryValue.InexactFloat64(),
		TodayExpenses:    d.TodayExpenses.InexactFloat64(),
		AllTimeExpenses:  d.AllTimeExpenses.InexactFloat64(),
		NetToday:         d.NetToday.InexactFloat64(),
	})
}

// GetReport returns the monthly report.
// GET /api/reports?months=6
func (h *Handler) GetReport(w http.ResponseWriter, r *http.Request) {
	months := 0
	if s := r.URL.Query().Get("months"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 || n > 36 {
			writeError(w, http.StatusBadRequest, "months must be an integer between 1 and 36")
			return
		}
		months = n
	}

	report, err := h.Reports.Monthly(r.Context(), months)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	dto := ReportDTO{
		MonthlyData:           make([]MonthlySummaryDTO, len(report.Monthly)),
		InventoryDistribution: make([]CategorySummaryDTO, len(report.InventoryDistribution)),
	}
	for i, m := range report.Monthly {
		dto.MonthlyData[i] = MonthlySummaryDTO{
			Name:     m.Name,
			Sales:    m.Sales.InexactFloat64(),
			Expenses: m.Expenses.InexactFloat64(),
			Net:      m.Net.InexactFloat64(),
		}
	}
	for i, c := range report.InventoryDistribution {
		dto.InventoryDistribution[i] = CategorySummaryDTO{
			Name:  c.Name,
			Count: c.Count,
			Value: c.Value.InexactFloat64(),
		}
	}
	writeJSON(w, http.StatusOK, dto)
}

func toUnifiedRecordDTO(rec reports.UnifiedRecord) UnifiedRecordDTO {
	dto := UnifiedRecordDTO{
		ID:          rec.ID,
		Type:        string(rec.Type),
		CreatedAt:   rec.CreatedAt.Format(time.RFC3339),
		TotalAmount: rec.TotalAmount.InexactFloat64(),
		Items:       make([]RecordItemDTO, len(rec.Items)),
	}
	for i, it := range rec.Items {
		dto.Items[i] = RecordItemDTO{Name: it.Name, Quantity: it.Quantity}
	}
	if rec.Type == reports.TypeService {
		dto.CustomerName = strPtr(rec.CustomerName)
		dto.CarPlateNumber = strPtr(rec.CarPlateNumber)
		dto.ServiceType = strPtr(rec.ServiceType)
	}
	if rec.Type == reports.TypeExpense {
		dto.ExpenseType = strPtr(rec.ExpenseType)
		dto.Description = strPtr(rec.Description)
	}
	return dto
}

// =============================================================================
// RESPONSE HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Error: message})
}

// writeDomainError maps core errors onto HTTP statuses. Unmapped errors
// are storage failures and surface as 500 with a generic body.
func (h *Handler) writeDomainError(w http.ResponseWriter, err error) {
	var verr *ledger.ValidationError
	if errors.As(err, &verr) {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   "Validation failed",
			Details: verr.Fields,
		})
		return
	}

	var stockErr *ledger.InsufficientStockError
	if errors.As(err, &stockErr) {
		writeError(w, http.StatusConflict, stockErr.Error())
		return
	}

	if errors.Is(err, ledger.ErrProductNotFound) {
		// A sale or service naming an unknown product is a bad request,
		// not a missing resource.
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if errors.Is(err, ledger.ErrRecordNotFound) {
		writeError(w, http.StatusNotFound, "Record not found")
		return
	}
	if errors.Is(err, ledger.ErrExpenseNotFound) {
		writeError(w, http.StatusNotFound, "Expense not found")
		return
	}

	h.log.Error().Err(err).Msg("request failed")
	writeError(w, http.StatusInternalServerError, "Internal server error")
}

func strPtr(s string) *string {
	return &s
}
