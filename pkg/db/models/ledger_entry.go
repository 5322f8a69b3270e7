package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/paymint-app/paymint-backend/pkg/enums"
)

// LedgerEntry records a single-sided money movement with its own lifecycle.
// Entries are created PENDING and move to exactly one terminal status; rows
// are never physically deleted, only marked via deleted_at.
type LedgerEntry struct {
	ID             uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	IdempotencyKey string            `gorm:"column:idempotency_key;not null;uniqueIndex"`
	AccountID      uuid.UUID         `gorm:"column:account_id;type:uuid;not null;index"`
	Amount         decimal.Decimal   `gorm:"column:amount;type:numeric(14,2);not null"`
	Kind           enums.EntryKind   `gorm:"column:kind;type:entry_kind_enum;not null"`
	Status         enums.EntryStatus `gorm:"column:status;type:entry_status_enum;not null"`
	Description    string            `gorm:"column:description;not null"`
	CreatedAt      time.Time         `gorm:"column:created_at;autoCreateTime"`
	DeletedAt      *time.Time        `gorm:"column:deleted_at"`
}
