package http

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/repository"
	"github.com/utafrali/storefront/internal/service"
	apperrors "github.com/utafrali/storefront/pkg/errors"
	"github.com/utafrali/storefront/pkg/httputil"
	"github.com/utafrali/storefront/pkg/pagination"
	"github.com/utafrali/storefront/pkg/validator"
)

// ProductHandler serves the catalog to shoppers and admins.
type ProductHandler struct {
	service *service.ProductService
	logger  *slog.Logger
}

// NewProductHandler creates a new product HTTP handler.
func NewProductHandler(svc *service.ProductService, logger *slog.Logger) *ProductHandler {
	return &ProductHandler{service: svc, logger: logger}
}

// ListProducts handles GET /api/v1/products and GET /api/v1/admin/products.
func (h *ProductHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	filter, err := productFilterFromQuery(r)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	res, err := h.service.ListProducts(r.Context(), filter)
	h.writeProducts(w, r, res, err)
}

// SearchProducts handles GET /api/v1/products/search. Only products in
// stock are returned.
func (h *ProductHandler) SearchProducts(w http.ResponseWriter, r *http.Request) {
	h.search(w, r, true)
}

// AdminSearchProducts handles GET /api/v1/admin/products/search.
func (h *ProductHandler) AdminSearchProducts(w http.ResponseWriter, r *http.Request) {
	h.search(w, r, false)
}

func (h *ProductHandler) search(w http.ResponseWriter, r *http.Request, inStockOnly bool) {
	res, err := h.service.SearchProducts(r.Context(), r.URL.Query().Get("q"), inStockOnly,
		pagination.FromRequest(r, repository.ProductSorting))
	h.writeProducts(w, r, res, err)
}

// ListOutOfStock handles GET /api/v1/admin/products/out-of-stock.
func (h *ProductHandler) ListOutOfStock(w http.ResponseWriter, r *http.Request) {
	res, err := h.service.ListOutOfStock(r.Context(), pagination.FromRequest(r, repository.ProductSorting))
	h.writeProducts(w, r, res, err)
}

// GetProduct handles GET /api/v1/products/{id}.
func (h *ProductHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}
	product, err := h.service.GetProduct(r.Context(), id.String())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, product)
}

// CreateProduct handles POST /api/v1/admin/products.
func (h *ProductHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateProductInput
	if err := validator.DecodeAndValidate(w, r, &req); err != nil {
		httputil.WriteValidationError(w, r, err)
		return
	}
	product, err := h.service.CreateProduct(r.Context(), req)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusCreated, product)
}

// UpdateProduct handles PATCH /api/v1/admin/products/{id}.
func (h *ProductHandler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}
	var req domain.UpdateProductInput
	if err := validator.DecodeAndValidate(w, r, &req); err != nil {
		httputil.WriteValidationError(w, r, err)
		return
	}
	product, err := h.service.UpdateProduct(r.Context(), id.String(), req)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, product)
}

// DeleteProduct handles DELETE /api/v1/admin/products/{id}.
func (h *ProductHandler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}
	if err := h.service.DeleteProduct(r.Context(), id.String()); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *ProductHandler) writeProducts(w http.ResponseWriter, r *http.Request, res pagination.Result[domain.Product], err error) {
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, res)
}

func productFilterFromQuery(r *http.Request) (repository.ProductFilter, error) {
	q := r.URL.Query()
	filter := repository.ProductFilter{Page: pagination.FromRequest(r, repository.ProductSorting)}

	if v := q.Get("subcategory_id"); v != "" {
		filter.SubcategoryID = &v
	}
	if v := q.Get("category_id"); v != "" {
		filter.CategoryID = &v
	}
	var err error
	if filter.MinPrice, err = centsParam(q.Get("min_price"), "min_price"); err != nil {
		return filter, err
	}
	if filter.MaxPrice, err = centsParam(q.Get("max_price"), "max_price"); err != nil {
		return filter, err
	}
	if v := q.Get("in_stock"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return filter, apperrors.Validation("INVALID_PARAMETER", "in_stock must be true or false")
		}
		filter.InStock = &b
	}
	return filter, nil
}

func centsParam(v, name string) (*int64, error) {
	if v == "" {
		return nil, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return nil, apperrors.Validation("INVALID_PARAMETER", name+" must be an integer amount in cents")
	}
	return &n, nil
}
