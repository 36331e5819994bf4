/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract, allowing:
  - Field renaming without breaking clients
  - API-specific validation
  - Version evolution

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

MONEY:
  Wire format is plain JSON numbers. DTOs convert decimal values at the
  boundary; nothing inside the core ever touches float64.

SEE ALSO:
  - handlers.go: Uses these types
  - ledger/types.go: The domain model these map onto
*/
package api

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/partsdesk/shop-engine/ledger"
)

// =============================================================================
// PRODUCTS
// =============================================================================

// ProductDTO represents an inventory item in API responses.
type ProductDTO struct {
	ID            string  `json:"id"`
	PartName      string  `json:"partName"`
	Category      string  `json:"category"`
	CarBrand      string  `json:"carBrand"`
	CarModel      string  `json:"carModel"`
	YearRange     string  `json:"yearRange"`
	StockQuantity int     `json:"stockQuantity"`
	CostPrice     float64 `json:"costPrice"`
	SellingPrice  float64 `json:"sellingPrice"`
	BinLocation   string  `json:"binLocation,omitempty"`
	CreatedAt     string  `json:"createdAt"`
	UpdatedAt     string  `json:"updatedAt"`
}

// CreateProductRequest is the request to create a product.
type CreateProductRequest struct {
	PartName      string  `json:"partName"`
	Category      string  `json:"category"`
	CarBrand      string  `json:"carBrand"`
	CarModel      string  `json:"carModel"`
	YearRange     string  `json:"yearRange"`
	StockQuantity int     `json:"stockQuantity"`
	CostPrice     float64 `json:"costPrice"`
	SellingPrice  float64 `json:"sellingPrice"`
	BinLocation   string  `json:"binLocation,omitempty"`
}

// UpdateProductRequest is a partial product update; absent fields are left
// unchanged. stockQuantity here is the direct stock-adjustment path.
type UpdateProductRequest struct {
	PartName      *string  `json:"partName,omitempty"`
	Category      *string  `json:"category,omitempty"`
	CarBrand      *string  `json:"carBrand,omitempty"`
	CarModel      *string  `json:"carModel,omitempty"`
	YearRange     *string  `json:"yearRange,omitempty"`
	StockQuantity *int     `json:"stockQuantity,omitempty"`
	CostPrice     *float64 `json:"costPrice,omitempty"`
	SellingPrice  *float64 `json:"sellingPrice,omitempty"`
	BinLocation   *string  `json:"binLocation,omitempty"`
}

func toProductDTO(p ledger.Product) ProductDTO {
	return ProductDTO{
		ID:            p.ID,
		PartName:      p.PartName,
		Category:      p.Category,
		CarBrand:      p.CarBrand,
		CarModel:      p.CarModel,
		YearRange:     p.YearRange,
		StockQuantity: p.StockQuantity,
		CostPrice:     p.CostPrice.InexactFloat64(),
		SellingPrice:  p.SellingPrice.InexactFloat64(),
		BinLocation:   p.BinLocation,
		CreatedAt:     p.CreatedAt.Format(time.RFC3339),
		UpdatedAt:     p.UpdatedAt.Format(time.RFC3339),
	}
}

// =============================================================================
// SALES
// =============================================================================

// LineItemDTO represents a consumed-product line.
type LineItemDTO struct {
	ID          string  `json:"id"`
	ProductID   string  `json:"productId"`
	PartName    string  `json:"partName"`
	Quantity    int     `json:"quantity"`
	PriceAtSale float64 `json:"priceAtSale"`
}

// SaleDTO represents a sale with its lines.
type SaleDTO struct {
	ID          string        `json:"id"`
	Items       []LineItemDTO `json:"items"`
	TotalAmount float64       `json:"totalAmount"`
	TaxAmount   float64       `json:"taxAmount"`
	Status      string        `json:"status"`
	CreatedAt   string        `json:"createdAt"`
	UpdatedAt   string        `json:"updatedAt"`
}

// SaleItemRequest is one requested sale line.
type SaleItemRequest struct {
	ProductID   string  `json:"productId"`
	Quantity    int     `json:"quantity"`
	PriceAtSale float64 `json:"priceAtSale"`
}

// SaleRequest is the create/update payload. Updates replace the full set.
type SaleRequest struct {
	Items []SaleItemRequest `json:"items"`
}

func (r SaleRequest) toInput() ledger.SaleInput {
	in := ledger.SaleInput{Items: make([]ledger.SaleItemInput, len(r.Items))}
	for i, it := range r.Items {
		in.Items[i] = ledger.SaleItemInput{
			ProductID:   it.ProductID,
			Quantity:    it.Quantity,
			PriceAtSale: decimal.NewFromFloat(it.PriceAtSale),
		}
	}
	return in
}

func toSaleDTO(rec ledger.Record) SaleDTO {
	return SaleDTO{
		ID:          rec.ID,
		Items:       toLineItemDTOs(rec.Lines),
		TotalAmount: rec.Sale.TotalAmount.InexactFloat64(),
		TaxAmount:   rec.Sale.TaxAmount.InexactFloat64(),
		Status:      string(rec.Sale.Status),
		CreatedAt:   rec.CreatedAt.Format(time.RFC3339),
		UpdatedAt:   rec.UpdatedAt.Format(time.RFC3339),
	}
}

func toLineItemDTOs(lines []ledger.LineItem) []LineItemDTO {
	dtos := make([]LineItemDTO, len(lines))
	for i, line := range lines {
		dtos[i] = LineItemDTO{
			ID:          line.ID,
			ProductID:   line.ProductID,
			PartName:    line.PartName,
			Quantity:    line.Quantity,
			PriceAtSale: line.PriceAtSale.InexactFloat64(),
		}
	}
	return dtos
}

// =============================================================================
// SERVICES
// =============================================================================

// ServiceDTO represents a service record with its consumed parts.
type ServiceDTO struct {
	ID              string        `json:"id"`
	CustomerName    string        `json:"customerName"`
	CarPlateNumber  string        `json:"carPlateNumber"`
	ServiceType     string        `json:"serviceType"`
	TechnicianNotes string        `json:"technicianNotes,omitempty"`
	TotalPrice      float64       `json:"totalPrice"`
	PartsUsed       []LineItemDTO `json:"partsUsed"`
	CreatedAt       string        `json:"createdAt"`
	UpdatedAt       string        `json:"updatedAt"`
}

// ServicePartRequest is one requested part. Price is not client-supplied;
// the engine snapshots the product's current selling price.
type ServicePartRequest struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

// ServiceRequest is the create/update payload for a service record.
type ServiceRequest struct {
	CustomerName    string               `json:"customerName"`
	CarPlateNumber  string               `json:"carPlateNumber"`
	ServiceType     string               `json:"serviceType"`
	TechnicianNotes string               `json:"technicianNotes,omitempty"`
	TotalPrice      float64              `json:"totalPrice"`
	PartsUsed       []ServicePartRequest `json:"partsUsed,omitempty"`
}

func (r ServiceRequest) toInput() ledger.ServiceInput {
	in := ledger.ServiceInput{
		CustomerName:    r.CustomerName,
		CarPlateNumber:  r.CarPlateNumber,
		ServiceType:     r.ServiceType,
		TechnicianNotes: r.TechnicianNotes,
		TotalPrice:      decimal.NewFromFloat(r.TotalPrice),
		PartsUsed:       make([]ledger.PartInput, len(r.PartsUsed)),
	}
	for i, p := range r.PartsUsed {
		in.PartsUsed[i] = ledger.PartInput{ProductID: p.ProductID, Quantity: p.Quantity}
	}
	return in
}

func toServiceDTO(rec ledger.Record) ServiceDTO {
	return ServiceDTO{
		ID:              rec.ID,
		CustomerName:    rec.Service.CustomerName,
		CarPlateNumber:  rec.Service.CarPlateNumber,
		ServiceType:     rec.Service.ServiceType,
		TechnicianNotes: rec.Service.TechnicianNotes,
		TotalPrice:      rec.Service.TotalPrice.InexactFloat64(),
		PartsUsed:       toLineItemDTOs(rec.Lines),
		CreatedAt:       rec.CreatedAt.Format(time.RFC3339),
		UpdatedAt:       rec.UpdatedAt.Format(time.RFC3339),
	}
}

// =============================================================================
// EXPENSES
// =============================================================================

// ExpenseDTO represents an expense entry.
type ExpenseDTO struct {
	ID          string  `json:"id"`
	Type        string  `json:"type"`
	Description string  `json:"description"`
	Amount      float64 `json:"amount"`
	ExpenseDate string  `json:"expenseDate"`
	CreatedAt   string  `json:"createdAt"`
}

// ExpenseRequest is the create/update payload. expenseDate accepts
// RFC 3339 or YYYY-MM-DD; empty means "now" on create.
type ExpenseRequest struct {
	Type        string  `json:"type"`
	Description string  `json:"description"`
	Amount      float64 `json:"amount"`
	ExpenseDate string  `json:"expenseDate,omitempty"`
}

func toExpenseDTO(e ledger.Expense) ExpenseDTO {
	return ExpenseDTO{
		ID:          e.ID,
		Type:        string(e.Type),
		Description: e.Description,
		Amount:      e.Amount.InexactFloat64(),
		ExpenseDate: e.ExpenseDate.Format(time.RFC3339),
		CreatedAt:   e.CreatedAt.Format(time.RFC3339),
	}
}

// =============================================================================
// REPORTING VIEWS
// =============================================================================

// RecordItemDTO is a name+quantity pair on the unified view.
type RecordItemDTO struct {
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
}

// UnifiedRecordDTO is one entry of the combined records view.
type UnifiedRecordDTO struct {
	ID             string          `json:"id"`
	Type           string          `json:"type"`
	CreatedAt      string          `json:"createdAt"`
	TotalAmount    float64         `json:"totalAmount"`
	CustomerName   *string         `json:"customerName"`
	CarPlateNumber *string         `json:"carPlateNumber"`
	ServiceType    *string         `json:"serviceType"`
	ExpenseType    *string         `json:"expenseType,omitempty"`
	Description    *string         `json:"description,omitempty"`
	Items          []RecordItemDTO `json:"items"`
}

// DashboardDTO is the front-page metric set.
type DashboardDTO struct {
	DailyRevenue     float64 `json:"dailyRevenue"`
	RevenueChangePct float64 `json:"revenueChangePct"`
	ServicesToday    int     `json:"servicesToday"`
	LowStockCount    int     `json:"lowStockCount"`
	InventoryValue   float64 `json:"inventoryValue"`
	TodayExpenses    float64 `json:"todayExpenses"`
	AllTimeExpenses  float64 `json:"allTimeExpenses"`
	NetToday         float64 `json:"netToday"`
}

// MonthlySummaryDTO is one month on the report.
type MonthlySummaryDTO struct {
	Name     string  `json:"name"`
	Sales    float64 `json:"sales"`
	Expenses float64 `json:"expenses"`
	Net      float64 `json:"net"`
}

// CategorySummaryDTO is one inventory-category row.
type CategorySummaryDTO struct {
	Name  string  `json:"name"`
	Count int     `json:"count"`
	Value float64 `json:"value"`
}

// ReportDTO is the monthly report response.
type ReportDTO struct {
	MonthlyData           []MonthlySummaryDTO  `json:"monthlyData"`
	InventoryDistribution []CategorySummaryDTO `json:"inventoryDistribution"`
}

// ErrorResponse is the uniform error body.
type ErrorResponse struct {
	Error   string              `json:"error"`
	Details []ledger.FieldError `json:"details,omitempty"`
}
