package accounts

import (
	"context"
	"sort"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/paymint-app/paymint-backend/pkg/db/models"
	apperrors "github.com/paymint-app/paymint-backend/pkg/errors"
)

// BalanceDelta pairs an account with a signed balance adjustment.
type BalanceDelta struct {
	AccountID uuid.UUID
	Delta     decimal.Decimal
}

// Repository manages persistence for wallet accounts. Balance writes go
// through Adjust/AdjustMany only; no caller reads a balance and writes it back.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, account *models.Account) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Account, error)
	GetByUserID(ctx context.Context, userID uuid.UUID) (*models.Account, error)
	Adjust(ctx context.Context, id uuid.UUID, delta decimal.Decimal) error
	AdjustMany(ctx context.Context, deltas []BalanceDelta) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns an accounts repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, account *models.Account) error {
	return r.db.WithContext(ctx).Create(account).Error
}

func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	var account models.Account
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&account).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperrors.New(apperrors.CodeNotFound, "account not found")
		}
		return nil, err
	}
	return &account, nil
}

func (r *repository) GetByUserID(ctx context.Context, userID uuid.UUID) (*models.Account, error) {
	var account models.Account
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&account).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperrors.New(apperrors.CodeNotFound, "account not found")
		}
		return nil, err
	}
	return &account, nil
}

// Adjust applies a signed delta with the non-negative guard folded into the
// UPDATE predicate, so two concurrent debits can never both pass a stale read.
func (r *repository) Adjust(ctx context.Context, id uuid.UUID, delta decimal.Decimal) error {
	res := r.db.WithContext(ctx).
		Model(&models.Account{}).
		Where("id = ? AND balance + ? >= 0", id, delta).
		Update("balance", gorm.Expr("balance + ?", delta))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 1 {
		return nil
	}

	// Zero rows means either the account does not exist or the guard tripped.
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.Account{}).
		Where("id = ?", id).
		Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return apperrors.New(apperrors.CodeNotFound, "account not found")
	}
	return apperrors.New(apperrors.CodeInsufficientBalance, "insufficient balance")
}

// AdjustMany applies deltas in ascending account-id order so concurrent
// multi-account updates acquire row locks in a consistent order.
func (r *repository) AdjustMany(ctx context.Context, deltas []BalanceDelta) error {
	ordered := make([]BalanceDelta, len(deltas))
	copy(ordered, deltas)
	sort.Slice(ordered, func(i, j int) bool {
		return ordered[i].AccountID.String() < ordered[j].AccountID.String()
	})

	for _, d := range ordered {
		if err := r.Adjust(ctx, d.AccountID, d.Delta); err != nil {
			return err
		}
	}
	return nil
}
