package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/utafrali/storefront/internal/auth"
	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/repository"
	apperrors "github.com/utafrali/storefront/pkg/errors"
)

var errBadCredentials = apperrors.Unauthorized("invalid email or password")

// AuthService logs back-office users in.
type AuthService struct {
	uow    repository.UnitOfWork
	tokens *auth.JWTManager
	logger *slog.Logger
	now    func() time.Time
}

// NewAuthService creates a new auth service.
func NewAuthService(uow repository.UnitOfWork, tokens *auth.JWTManager, logger *slog.Logger) *AuthService {
	return &AuthService{
		uow:    uow,
		tokens: tokens,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Login checks the credentials and issues a token pair.
func (s *AuthService) Login(ctx context.Context, email, password string) (*auth.TokenPair, error) {
	user, err := s.uow.Repositories().Users.GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, errBadCredentials
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	if !auth.CheckPassword(user.PasswordHash, password) {
		s.logger.WarnContext(ctx, "login rejected", slog.String("user_id", user.ID))
		return nil, errBadCredentials
	}

	pair, err := s.tokens.IssuePair(user.ID, user.Email, user.Role)
	if err != nil {
		return nil, fmt.Errorf("issue tokens: %w", err)
	}
	s.logger.InfoContext(ctx, "user logged in", slog.String("user_id", user.ID))
	return pair, nil
}

// Refresh exchanges a refresh token for a new pair. The user is reloaded
// so a role change takes effect.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*auth.TokenPair, error) {
	claims, err := s.tokens.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, apperrors.Unauthorized("invalid refresh token")
	}

	user, err := s.uow.Repositories().Users.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.Unauthorized("invalid refresh token")
		}
		return nil, fmt.Errorf("get user: %w", err)
	}

	pair, err := s.tokens.IssuePair(user.ID, user.Email, user.Role)
	if err != nil {
		return nil, fmt.Errorf("issue tokens: %w", err)
	}
	return pair, nil
}

// EnsureAdmin creates the bootstrap admin, or resets its password when the
// configured one no longer matches.
func (s *AuthService) EnsureAdmin(ctx context.Context, email, password string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil
	}
	if len(password) < auth.MinPasswordLength {
		return apperrors.InvalidInput(fmt.Sprintf("admin password must be at least %d characters", auth.MinPasswordLength))
	}

	return s.uow.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		now := s.now()
		existing, err := repos.Users.GetByEmail(ctx, email)
		switch {
		case err == nil:
			if auth.CheckPassword(existing.PasswordHash, password) {
				return nil
			}
			hash, err := auth.HashPassword(password)
			if err != nil {
				return err
			}
			if err := repos.Users.UpdatePassword(ctx, existing.ID, hash, now); err != nil {
				return err
			}
			s.logger.InfoContext(ctx, "admin password reset", slog.String("user_id", existing.ID))
			return nil
		case !errors.Is(err, apperrors.ErrNotFound):
			return err
		}

		hash, err := auth.HashPassword(password)
		if err != nil {
			return err
		}
		user := &domain.User{
			ID:           uuid.NewString(),
			Email:        email,
			PasswordHash: hash,
			Role:         domain.RoleAdmin,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if err := repos.Users.Create(ctx, user); err != nil {
			return err
		}
		s.logger.InfoContext(ctx, "admin created", slog.String("user_id", user.ID), slog.String("email", email))
		return nil
	})
}
