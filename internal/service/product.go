package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/repository"
	apperrors "github.com/utafrali/storefront/pkg/errors"
	"github.com/utafrali/storefront/pkg/pagination"
)

// ProductService implements catalog administration and browsing.
type ProductService struct {
	uow    repository.UnitOfWork
	logger *slog.Logger
	now    func() time.Time
}

// NewProductService creates a new product service.
func NewProductService(uow repository.UnitOfWork, logger *slog.Logger) *ProductService {
	return &ProductService{
		uow:    uow,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// CreateProduct adds a product to an existing subcategory.
func (s *ProductService) CreateProduct(ctx context.Context, input domain.CreateProductInput) (*domain.Product, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, apperrors.InvalidInput("name is required")
	}
	if err := checkAmounts(&input.Price, &input.Stock); err != nil {
		return nil, err
	}

	now := s.now()
	product := &domain.Product{
		ID:            uuid.NewString(),
		Name:          name,
		Description:   strings.TrimSpace(input.Description),
		Price:         input.Price,
		Stock:         input.Stock,
		SubcategoryID: input.SubcategoryID,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	err := s.uow.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		if err := subcategoryExists(ctx, repos, input.SubcategoryID); err != nil {
			return err
		}
		exists, err := repos.Products.ExistsByName(ctx, name)
		if err != nil {
			return err
		}
		if exists {
			return domain.ErrDuplicateName("product", name)
		}
		return repos.Products.Create(ctx, product)
	})
	if err != nil {
		return nil, fmt.Errorf("create product: %w", err)
	}

	s.logger.InfoContext(ctx, "product created",
		slog.String("product_id", product.ID),
		slog.String("name", product.Name),
	)
	return product, nil
}

// GetProduct retrieves a product by its ID.
func (s *ProductService) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	product, err := s.uow.Repositories().Products.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, domain.ErrProductNotFound(id)
		}
		return nil, fmt.Errorf("get product by id: %w", err)
	}
	return product, nil
}

// UpdateProduct applies the non-nil fields of input. The product row is
// locked for the read-modify-write.
func (s *ProductService) UpdateProduct(ctx context.Context, id string, input domain.UpdateProductInput) (*domain.Product, error) {
	if err := checkAmounts(input.Price, input.Stock); err != nil {
		return nil, err
	}

	var product *domain.Product
	err := s.uow.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		locked, err := repos.Products.GetForUpdate(ctx, []string{id})
		if err != nil {
			return err
		}
		p, ok := locked[id]
		if !ok {
			return domain.ErrProductNotFound(id)
		}

		if input.Name != nil {
			name := strings.TrimSpace(*input.Name)
			if name == "" {
				return apperrors.InvalidInput("name must not be empty")
			}
			if !strings.EqualFold(name, p.Name) {
				exists, err := repos.Products.ExistsByName(ctx, name)
				if err != nil {
					return err
				}
				if exists {
					return domain.ErrDuplicateName("product", name)
				}
			}
			p.Name = name
		}
		if input.Description != nil {
			p.Description = strings.TrimSpace(*input.Description)
		}
		if input.Price != nil {
			p.Price = *input.Price
		}
		if input.Stock != nil {
			p.Stock = *input.Stock
		}
		if input.SubcategoryID != nil && *input.SubcategoryID != p.SubcategoryID {
			if err := subcategoryExists(ctx, repos, *input.SubcategoryID); err != nil {
				return err
			}
			p.SubcategoryID = *input.SubcategoryID
		}
		p.UpdatedAt = s.now()

		if err := repos.Products.Update(ctx, p); err != nil {
			return err
		}
		product = p
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("update product: %w", err)
	}

	s.logger.InfoContext(ctx, "product updated", slog.String("product_id", id))
	return product, nil
}

// DeleteProduct removes a product. Carts and orders keep their snapshots.
func (s *ProductService) DeleteProduct(ctx context.Context, id string) error {
	if err := s.uow.Repositories().Products.Delete(ctx, id); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return domain.ErrProductNotFound(id)
		}
		return fmt.Errorf("delete product: %w", err)
	}
	s.logger.InfoContext(ctx, "product deleted", slog.String("product_id", id))
	return nil
}

// ListProducts returns one page of products matching filter.
func (s *ProductService) ListProducts(ctx context.Context, filter repository.ProductFilter) (pagination.Result[domain.Product], error) {
	filter.Page = filter.Page.Normalize(repository.ProductSorting)
	products, total, err := s.uow.Repositories().Products.List(ctx, filter)
	if err != nil {
		return pagination.Result[domain.Product]{}, fmt.Errorf("list products: %w", err)
	}
	return pagination.NewResult(products, total, filter.Page), nil
}

// ListOutOfStock returns products with no stock left.
func (s *ProductService) ListOutOfStock(ctx context.Context, page pagination.Params) (pagination.Result[domain.Product], error) {
	inStock := false
	return s.ListProducts(ctx, repository.ProductFilter{InStock: &inStock, Page: page})
}

// SearchProducts matches products whose name or description contains any
// word of query. With inStockOnly only purchasable products are returned.
func (s *ProductService) SearchProducts(ctx context.Context, query string, inStockOnly bool, page pagination.Params) (pagination.Result[domain.Product], error) {
	terms := SearchTerms(query)
	if len(terms) == 0 {
		return pagination.Result[domain.Product]{}, apperrors.InvalidInput("search query is required")
	}
	filter := repository.ProductFilter{Terms: terms, Page: page}
	if inStockOnly {
		inStock := true
		filter.InStock = &inStock
	}
	return s.ListProducts(ctx, filter)
}

// SearchTerms splits query into distinct lower-case words.
func SearchTerms(query string) []string {
	seen := make(map[string]struct{})
	var terms []string
	for _, w := range strings.Fields(strings.ToLower(query)) {
		if _, ok := seen[w]; ok {
			continue
		}
		seen[w] = struct{}{}
		terms = append(terms, w)
	}
	return terms
}

func checkAmounts(price *int64, stock *int) error {
	if price != nil && *price < 0 {
		return apperrors.BusinessRule(domain.CodeNegativePrice, "price must not be negative")
	}
	if stock != nil && *stock < 0 {
		return apperrors.BusinessRule(domain.CodeNegativeStock, "stock must not be negative")
	}
	return nil
}

func subcategoryExists(ctx context.Context, repos repository.Repositories, id string) error {
	if _, err := repos.Subcategories.GetByID(ctx, id); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return domain.ErrSubcategoryNotFound(id)
		}
		return err
	}
	return nil
}
