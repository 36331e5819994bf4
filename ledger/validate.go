/*
validate.go - Input validation for core payloads

PURPOSE:
  Structural validation of everything callers submit, before any storage
  work starts. Checks are accumulated per field so one response tells the
  caller everything wrong with the payload.

  Referential checks (does the product exist, is there stock) are not done
  here - those belong to the Engine, inside or right before the atomic unit.
*/
package ledger

import (
	"fmt"
)

// ValidateSaleInput checks a sale payload: at least one item, and each
// item naming a product with a positive integer quantity and positive price.
func ValidateSaleInput(in SaleInput) error {
	verr := &ValidationError{}
	if len(in.Items) == 0 {
		verr.add("items", "at least one item is required")
	}
	for i, it := range in.Items {
		field := func(name string) string { return fmt.Sprintf("items[%d].%s", i, name) }
		if it.ProductID == "" {
			verr.add(field("productId"), "is required")
		}
		if it.Quantity <= 0 {
			verr.add(field("quantity"), "must be a positive integer")
		}
		if !it.PriceAtSale.IsPositive() {
			verr.add(field("priceAtSale"), "must be positive")
		}
	}
	return verr.or()
}

// ValidateServiceInput checks a service payload. PartsUsed may be empty;
// a service with no consumed parts is valid.
func ValidateServiceInput(in ServiceInput) error {
	verr := &ValidationError{}
	if in.CarPlateNumber == "" {
		verr.add("carPlateNumber", "is required")
	}
	if in.CustomerName == "" {
		verr.add("customerName", "is required")
	}
	if in.ServiceType == "" {
		verr.add("serviceType", "is required")
	}
	if !in.TotalPrice.IsPositive() {
		verr.add("totalPrice", "must be positive")
	}
	for i, p := range in.PartsUsed {
		field := func(name string) string { return fmt.Sprintf("partsUsed[%d].%s", i, name) }
		if p.ProductID == "" {
			verr.add(field("productId"), "is required")
		}
		if p.Quantity <= 0 {
			verr.add(field("quantity"), "must be a positive integer")
		}
	}
	return verr.or()
}

// ValidateProduct checks a full product payload (creation).
func ValidateProduct(p Product) error {
	verr := &ValidationError{}
	if p.PartName == "" {
		verr.add("partName", "is required")
	}
	if p.Category == "" {
		verr.add("category", "is required")
	}
	if p.CarBrand == "" {
		verr.add("carBrand", "is required")
	}
	if p.CarModel == "" {
		verr.add("carModel", "is required")
	}
	if p.YearRange == "" {
		verr.add("yearRange", "is required")
	}
	if p.StockQuantity < 0 {
		verr.add("stockQuantity", "must not be negative")
	}
	if !p.CostPrice.IsPositive() {
		verr.add("costPrice", "must be positive")
	}
	if !p.SellingPrice.IsPositive() {
		verr.add("sellingPrice", "must be positive")
	}
	return verr.or()
}

// ValidateProductPatch checks the provided fields of a partial update.
func ValidateProductPatch(p ProductPatch) error {
	verr := &ValidationError{}
	check := func(field string, s *string) {
		if s != nil && *s == "" {
			verr.add(field, "must not be empty")
		}
	}
	check("partName", p.PartName)
	check("category", p.Category)
	check("carBrand", p.CarBrand)
	check("carModel", p.CarModel)
	check("yearRange", p.YearRange)
	if p.StockQuantity != nil && *p.StockQuantity < 0 {
		verr.add("stockQuantity", "must not be negative")
	}
	if p.CostPrice != nil && !p.CostPrice.IsPositive() {
		verr.add("costPrice", "must be positive")
	}
	if p.SellingPrice != nil && !p.SellingPrice.IsPositive() {
		verr.add("sellingPrice", "must be positive")
	}
	return verr.or()
}

// ValidateExpense checks an expense payload.
func ValidateExpense(e Expense) error {
	verr := &ValidationError{}
	if !ValidExpenseType(e.Type) {
		verr.add("type", "must be one of PARTS, SERVICE, RENT, UTILITIES, OTHER")
	}
	if e.Description == "" {
		verr.add("description", "is required")
	}
	if !e.Amount.IsPositive() {
		verr.add("amount", "must be positive")
	}
	return verr.or()
}
