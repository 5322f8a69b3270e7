package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/paymint-app/paymint-backend/pkg/db"
	"github.com/paymint-app/paymint-backend/pkg/db/models"
	"github.com/paymint-app/paymint-backend/pkg/enums"
	apperrors "github.com/paymint-app/paymint-backend/pkg/errors"
	"github.com/paymint-app/paymint-backend/pkg/pagination"
)

// ListFilter narrows a ledger listing to one account with optional
// kind/status filters and cursor pagination.
type ListFilter struct {
	AccountID uuid.UUID
	Kind      *enums.EntryKind
	Status    *enums.EntryStatus
	From      *time.Time
	To        *time.Time
	Page      pagination.Params
}

// Repository manages persistence for ledger entries.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, entry *models.LedgerEntry) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.LedgerEntry, error)
	GetByIdempotencyKey(ctx context.Context, key string) (*models.LedgerEntry, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, to enums.EntryStatus, description string) error
	List(ctx context.Context, filter ListFilter) ([]models.LedgerEntry, string, error)
	SoftDelete(ctx context.Context, id, accountID uuid.UUID) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a ledger repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, entry *models.LedgerEntry) error {
	if err := r.db.WithContext(ctx).Create(entry).Error; err != nil {
		if db.IsUniqueViolation(err, "idempotency_key") || db.IsUniqueViolation(err, "") {
			return apperrors.Wrap(apperrors.CodeDuplicateKey, err, "idempotency key already used")
		}
		return err
	}
	return nil
}

func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*models.LedgerEntry, error) {
	var entry models.LedgerEntry
	if err := r.db.WithContext(ctx).
		Where("id = ? AND deleted_at IS NULL", id).
		First(&entry).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperrors.New(apperrors.CodeNotFound, "ledger entry not found")
		}
		return nil, err
	}
	return &entry, nil
}

func (r *repository) GetByIdempotencyKey(ctx context.Context, key string) (*models.LedgerEntry, error) {
	var entry models.LedgerEntry
	if err := r.db.WithContext(ctx).
		Where("idempotency_key = ?", key).
		First(&entry).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperrors.New(apperrors.CodeNotFound, "ledger entry not found")
		}
		return nil, err
	}
	return &entry, nil
}

// UpdateStatus moves a PENDING entry to a terminal status. The PENDING guard
// sits in the UPDATE predicate so a settled entry can never flip again.
func (r *repository) UpdateStatus(ctx context.Context, id uuid.UUID, to enums.EntryStatus, description string) error {
	if !to.IsTerminal() {
		return apperrors.New(apperrors.CodeStateConflict, "entries only transition to a terminal status")
	}

	updates := map[string]any{"status": to}
	if description != "" {
		updates["description"] = description
	}

	res := r.db.WithContext(ctx).
		Model(&models.LedgerEntry{}).
		Where("id = ? AND status = ?", id, enums.EntryStatusPending).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 1 {
		return nil
	}

	var current models.LedgerEntry
	if err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&current).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return apperrors.New(apperrors.CodeNotFound, "ledger entry not found")
		}
		return err
	}
	// Re-applying the status an entry already holds is a no-op.
	if current.Status == to {
		return nil
	}
	return apperrors.New(apperrors.CodeStateConflict, "ledger entry already settled")
}

func (r *repository) List(ctx context.Context, filter ListFilter) ([]models.LedgerEntry, string, error) {
	query := r.db.WithContext(ctx).
		Model(&models.LedgerEntry{}).
		Where("account_id = ? AND deleted_at IS NULL", filter.AccountID)

	if filter.Kind != nil {
		query = query.Where("kind = ?", *filter.Kind)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.From != nil {
		query = query.Where("created_at >= ?", *filter.From)
	}
	if filter.To != nil {
		query = query.Where("created_at <= ?", *filter.To)
	}

	cursor, err := pagination.ParseCursor(filter.Page.Cursor)
	if err != nil {
		return nil, "", apperrors.Wrap(apperrors.CodeValidation, err, "invalid cursor")
	}
	if cursor != nil {
		query = query.Where(
			"(created_at < ?) OR (created_at = ? AND id < ?)",
			cursor.CreatedAt, cursor.CreatedAt, cursor.ID,
		)
	}

	limit := pagination.NormalizeLimit(filter.Page.Limit)
	var entries []models.LedgerEntry
	if err := query.
		Order("created_at DESC, id DESC").
		Limit(pagination.LimitWithBuffer(filter.Page.Limit)).
		Find(&entries).Error; err != nil {
		return nil, "", err
	}

	nextCursor := ""
	if len(entries) > limit {
		entries = entries[:limit]
		last := entries[len(entries)-1]
		nextCursor = pagination.EncodeCursor(pagination.Cursor{
			CreatedAt: last.CreatedAt,
			ID:        last.ID,
		})
	}
	return entries, nextCursor, nil
}

// SoftDelete hides an entry from listings. The row itself stays; money
// movement history is never physically removed.
func (r *repository) SoftDelete(ctx context.Context, id, accountID uuid.UUID) error {
	res := r.db.WithContext(ctx).
		Model(&models.LedgerEntry{}).
		Where("id = ? AND account_id = ? AND deleted_at IS NULL", id, accountID).
		Update("deleted_at", time.Now().UTC())
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperrors.New(apperrors.CodeNotFound, "ledger entry not found")
	}
	return nil
}
