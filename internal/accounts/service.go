package accounts

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/paymint-app/paymint-backend/pkg/db/models"
	apperrors "github.com/paymint-app/paymint-backend/pkg/errors"
)

// Service exposes wallet account reads and account provisioning.
type Service interface {
	CreateForUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (*models.Account, error)
	AccountForUser(ctx context.Context, userID uuid.UUID) (*models.Account, error)
	BalanceForUser(ctx context.Context, userID uuid.UUID) (decimal.Decimal, error)
}

type service struct {
	repo Repository
}

// NewService wires an accounts service with the provided repository.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("accounts repository required")
	}
	return &service{repo: repo}, nil
}

// CreateForUser provisions a zero-balance account, optionally inside the
// caller's transaction so signup stays atomic.
func (s *service) CreateForUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (*models.Account, error) {
	if userID == uuid.Nil {
		return nil, apperrors.New(apperrors.CodeValidation, "user id is required")
	}

	account := &models.Account{
		ID:      uuid.New(),
		UserID:  userID,
		Balance: decimal.Zero,
	}
	if err := s.repo.WithTx(tx).Create(ctx, account); err != nil {
		return nil, err
	}
	return account, nil
}

func (s *service) AccountForUser(ctx context.Context, userID uuid.UUID) (*models.Account, error) {
	if userID == uuid.Nil {
		return nil, apperrors.New(apperrors.CodeValidation, "user id is required")
	}
	return s.repo.GetByUserID(ctx, userID)
}

func (s *service) BalanceForUser(ctx context.Context, userID uuid.UUID) (decimal.Decimal, error) {
	account, err := s.AccountForUser(ctx, userID)
	if err != nil {
		return decimal.Zero, err
	}
	return account.Balance, nil
}
