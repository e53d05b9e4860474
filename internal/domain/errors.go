package domain

import (
	"fmt"

	apperrors "github.com/utafrali/storefront/pkg/errors"
)

// Error codes returned to callers.
const (
	CodeCartNotFound        = "CART_NOT_FOUND"
	CodeProductNotFound     = "PRODUCT_NOT_FOUND"
	CodeOrderNotFound       = "ORDER_NOT_FOUND"
	CodeLineNotFound        = "LINE_NOT_FOUND"
	CodeCategoryNotFound    = "CATEGORY_NOT_FOUND"
	CodeSubcategoryNotFound = "SUBCATEGORY_NOT_FOUND"

	CodeInvalidQuantity   = "INVALID_QUANTITY"
	CodeInsufficientStock = "INSUFFICIENT_STOCK"
	CodeEmptyCart         = "EMPTY_CART"
	CodeNegativePrice     = "NEGATIVE_PRICE"
	CodeNegativeStock     = "NEGATIVE_STOCK"
	CodeDuplicateName     = "DUPLICATE_NAME"
	CodeHasDependents     = "HAS_DEPENDENTS"

	CodeInvalidEmail     = "INVALID_EMAIL"
	CodeInvalidDateRange = "INVALID_DATE_RANGE"
	CodeInvalidStatus    = "INVALID_STATUS"
)

func ErrCartNotFound(sessionID string) *apperrors.AppError {
	return apperrors.NotFound("cart for session", sessionID).WithCode(CodeCartNotFound)
}

func ErrProductNotFound(id string) *apperrors.AppError {
	return apperrors.NotFound("product", id).WithCode(CodeProductNotFound)
}

func ErrOrderNotFound(id string) *apperrors.AppError {
	return apperrors.NotFound("order", id).WithCode(CodeOrderNotFound)
}

func ErrLineNotFound(productID string) *apperrors.AppError {
	return apperrors.NotFound("cart line for product", productID).WithCode(CodeLineNotFound)
}

func ErrCategoryNotFound(id string) *apperrors.AppError {
	return apperrors.NotFound("category", id).WithCode(CodeCategoryNotFound)
}

func ErrSubcategoryNotFound(id string) *apperrors.AppError {
	return apperrors.NotFound("subcategory", id).WithCode(CodeSubcategoryNotFound)
}

func ErrInvalidQuantity(qty int) *apperrors.AppError {
	return apperrors.BusinessRule(CodeInvalidQuantity, fmt.Sprintf("quantity must be positive, got %d", qty))
}

// ErrInsufficientStock names the product whose stock cannot cover the request.
func ErrInsufficientStock(p *Product, requested int) *apperrors.AppError {
	return apperrors.BusinessRule(CodeInsufficientStock,
		fmt.Sprintf("insufficient stock for product %q: requested %d, available %d", p.Name, requested, p.Stock))
}

func ErrEmptyCart() *apperrors.AppError {
	return apperrors.BusinessRule(CodeEmptyCart, "cart has no items")
}

func ErrInvalidEmail(email string) *apperrors.AppError {
	return apperrors.Validation(CodeInvalidEmail, fmt.Sprintf("invalid email address %q", email))
}

func ErrDuplicateName(kind, name string) *apperrors.AppError {
	return apperrors.BusinessRule(CodeDuplicateName, fmt.Sprintf("%s named %q already exists", kind, name))
}

func ErrHasDependents(kind, id, dependents string) *apperrors.AppError {
	return apperrors.BusinessRule(CodeHasDependents, fmt.Sprintf("%s %s still has %s", kind, id, dependents))
}
