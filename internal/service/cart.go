package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/repository"
	apperrors "github.com/utafrali/storefront/pkg/errors"
)

// CartService implements the session-scoped shopping cart.
type CartService struct {
	uow    repository.UnitOfWork
	logger *slog.Logger
	now    func() time.Time
}

// NewCartService creates a new cart service.
func NewCartService(uow repository.UnitOfWork, logger *slog.Logger) *CartService {
	return &CartService{
		uow:    uow,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// AddItemInput holds the parameters for adding a product to a cart.
type AddItemInput struct {
	SessionID string
	ProductID string
	Quantity  int
}

// GetOrCreate returns the cart of sessionID, creating an empty one on first
// access.
func (s *CartService) GetOrCreate(ctx context.Context, sessionID string) (*domain.Cart, error) {
	if err := requireSession(sessionID); err != nil {
		return nil, err
	}

	var cart *domain.Cart
	err := s.uow.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		var err error
		cart, err = repos.Carts.Upsert(ctx, sessionID, s.now())
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("get or create cart: %w", err)
	}
	return cart, nil
}

// AddItem merges quantity units of a product into the cart. The stock check
// here is advisory; checkout re-checks under lock.
func (s *CartService) AddItem(ctx context.Context, input AddItemInput) (*domain.Cart, error) {
	if err := requireSession(input.SessionID); err != nil {
		return nil, err
	}
	if input.Quantity <= 0 {
		return nil, domain.ErrInvalidQuantity(input.Quantity)
	}

	var cart *domain.Cart
	err := s.uow.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		now := s.now()
		c, err := repos.Carts.Upsert(ctx, input.SessionID, now)
		if err != nil {
			return err
		}

		product, err := repos.Products.GetByID(ctx, input.ProductID)
		if err != nil {
			if errors.Is(err, apperrors.ErrNotFound) {
				return domain.ErrProductNotFound(input.ProductID)
			}
			return err
		}

		wanted := c.QuantityOf(product.ID) + input.Quantity
		if !product.InStock(wanted) {
			return domain.ErrInsufficientStock(product, wanted)
		}

		c.AddItem(product, input.Quantity)
		c.UpdatedAt = now
		if err := repos.Carts.Save(ctx, c); err != nil {
			return err
		}
		cart = c
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("add cart item: %w", err)
	}

	s.logger.InfoContext(ctx, "cart item added",
		slog.String("cart_id", cart.ID),
		slog.String("product_id", input.ProductID),
		slog.Int("quantity", input.Quantity),
	)
	return cart, nil
}

// RemoveItem drops the line of productID.
func (s *CartService) RemoveItem(ctx context.Context, sessionID, productID string) (*domain.Cart, error) {
	if err := requireSession(sessionID); err != nil {
		return nil, err
	}

	var cart *domain.Cart
	err := s.uow.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		now := s.now()
		c, err := repos.Carts.Upsert(ctx, sessionID, now)
		if err != nil {
			return err
		}
		if !c.RemoveItem(productID) {
			return domain.ErrLineNotFound(productID)
		}
		c.UpdatedAt = now
		if err := repos.Carts.Save(ctx, c); err != nil {
			return err
		}
		cart = c
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("remove cart item: %w", err)
	}
	return cart, nil
}

// Clear empties the cart. Clearing an empty cart is a no-op.
func (s *CartService) Clear(ctx context.Context, sessionID string) error {
	if err := requireSession(sessionID); err != nil {
		return err
	}

	err := s.uow.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		now := s.now()
		c, err := repos.Carts.Upsert(ctx, sessionID, now)
		if err != nil {
			return err
		}
		if c.IsEmpty() {
			return nil
		}
		c.Clear()
		c.UpdatedAt = now
		return repos.Carts.Save(ctx, c)
	})
	if err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}
	return nil
}

func requireSession(sessionID string) error {
	if strings.TrimSpace(sessionID) == "" {
		return apperrors.InvalidInput("session id is required")
	}
	return nil
}
