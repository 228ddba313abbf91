// Package directory registers shops and users and resolves who is notified
// on a shop's behalf.
package directory

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mamadbah2/supplychain/internal/apperror"
	"github.com/mamadbah2/supplychain/internal/domain/models"
	"github.com/mamadbah2/supplychain/internal/id"
	"github.com/mamadbah2/supplychain/internal/repository"
	"github.com/mamadbah2/supplychain/internal/requestctx"
)

// UserInput registers a user.
type UserInput struct {
	Name  string          `json:"name"`
	Email string          `json:"email"`
	Phone string          `json:"phone"`
	Role  models.UserRole `json:"role"`
}

// ShopInput registers a shop owned by an existing user.
type ShopInput struct {
	Name        string `json:"name"`
	Email       string `json:"email"`
	Address     string `json:"address"`
	OwnerUserID string `json:"owner_user_id"`
}

// Service manages the shop and user directory.
type Service struct {
	repo   repository.DirectoryRepository
	logger *zap.Logger
	now    func() time.Time
}

// NewService wires a directory service.
func NewService(repo repository.DirectoryRepository, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{repo: repo, logger: logger, now: time.Now}
}

// CreateUser registers a user in the caller's tenant.
func (s *Service) CreateUser(ctx context.Context, in UserInput) (*models.User, error) {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return nil, apperror.NewValidation("name is required")
	}
	if !in.Role.Valid() {
		return nil, apperror.NewValidation("role must be one of admin, shop, farm").WithDetail("role", in.Role)
	}

	user := models.User{
		ID:        id.New(),
		TenantID:  requestctx.Tenant(ctx),
		Name:      in.Name,
		Email:     strings.TrimSpace(in.Email),
		Phone:     strings.TrimSpace(in.Phone),
		Role:      in.Role,
		CreatedAt: s.now().UTC(),
	}
	if err := s.repo.CreateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.logger.Info("user registered", zap.String("user_id", user.ID), zap.String("role", string(user.Role)))
	return &user, nil
}

// GetUser loads a user.
func (s *Service) GetUser(ctx context.Context, userID string) (*models.User, error) {
	user, err := s.repo.GetUser(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperror.NewNotFound("user", userID)
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if !requestctx.Owns(ctx, user.TenantID) {
		return nil, apperror.NewNotFound("user", userID)
	}
	return user, nil
}

// CreateShop registers a shop. The owner must already exist.
func (s *Service) CreateShop(ctx context.Context, in ShopInput) (*models.Shop, error) {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return nil, apperror.NewValidation("name is required")
	}
	if in.OwnerUserID == "" {
		return nil, apperror.NewValidation("owner_user_id is required")
	}
	if _, err := s.GetUser(ctx, in.OwnerUserID); err != nil {
		return nil, err
	}

	shop := models.Shop{
		ID:          id.New(),
		TenantID:    requestctx.Tenant(ctx),
		Name:        in.Name,
		Email:       strings.TrimSpace(in.Email),
		Address:     strings.TrimSpace(in.Address),
		OwnerUserID: in.OwnerUserID,
		CreatedAt:   s.now().UTC(),
	}
	if err := s.repo.CreateShop(ctx, shop); err != nil {
		return nil, fmt.Errorf("create shop: %w", err)
	}
	return &shop, nil
}

// GetShop loads a shop.
func (s *Service) GetShop(ctx context.Context, shopID string) (*models.Shop, error) {
	shop, err := s.repo.GetShop(ctx, shopID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperror.NewNotFound("shop", shopID)
	}
	if err != nil {
		return nil, fmt.Errorf("get shop: %w", err)
	}
	if !requestctx.Owns(ctx, shop.TenantID) {
		return nil, apperror.NewNotFound("shop", shopID)
	}
	return shop, nil
}

// ResolveShopOwner returns the id of the user notified for shopID.
func (s *Service) ResolveShopOwner(ctx context.Context, shopID string) (string, error) {
	shop, err := s.GetShop(ctx, shopID)
	if err != nil {
		return "", err
	}
	if shop.OwnerUserID == "" {
		return "", apperror.NewNotFound("shop owner", shopID)
	}
	return shop.OwnerUserID, nil
}

// Admins lists the administrators of tenantID.
func (s *Service) Admins(ctx context.Context, tenantID string) ([]models.User, error) {
	users, err := s.repo.ListUsersByRole(ctx, tenantID, models.RoleAdmin)
	if err != nil {
		return nil, fmt.Errorf("list admins: %w", err)
	}
	return users, nil
}
