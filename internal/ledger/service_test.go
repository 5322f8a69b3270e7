package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/paymint-app/paymint-backend/pkg/db/models"
	"github.com/paymint-app/paymint-backend/pkg/enums"
	apperrors "github.com/paymint-app/paymint-backend/pkg/errors"
)

type fakeRepository struct {
	listFn       func(ctx context.Context, filter ListFilter) ([]models.LedgerEntry, string, error)
	getByIDFn    func(ctx context.Context, id uuid.UUID) (*models.LedgerEntry, error)
	softDeleteFn func(ctx context.Context, id, accountID uuid.UUID) error
}

func (f *fakeRepository) WithTx(tx *gorm.DB) Repository { return f }

func (f *fakeRepository) Create(ctx context.Context, entry *models.LedgerEntry) error {
	return nil
}

func (f *fakeRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.LedgerEntry, error) {
	if f.getByIDFn != nil {
		return f.getByIDFn(ctx, id)
	}
	return nil, apperrors.New(apperrors.CodeNotFound, "ledger entry not found")
}

func (f *fakeRepository) GetByIdempotencyKey(ctx context.Context, key string) (*models.LedgerEntry, error) {
	return nil, apperrors.New(apperrors.CodeNotFound, "ledger entry not found")
}

func (f *fakeRepository) UpdateStatus(ctx context.Context, id uuid.UUID, to enums.EntryStatus, description string) error {
	return nil
}

func (f *fakeRepository) List(ctx context.Context, filter ListFilter) ([]models.LedgerEntry, string, error) {
	if f.listFn != nil {
		return f.listFn(ctx, filter)
	}
	return nil, "", nil
}

func (f *fakeRepository) SoftDelete(ctx context.Context, id, accountID uuid.UUID) error {
	if f.softDeleteFn != nil {
		return f.softDeleteFn(ctx, id, accountID)
	}
	return nil
}

func TestService_ListParsesFilters(t *testing.T) {
	repo := &fakeRepository{}
	svc, err := NewService(repo)
	if err != nil {
		t.Fatalf("unexpected service error: %v", err)
	}

	accountID := uuid.New()
	var captured ListFilter
	repo.listFn = func(ctx context.Context, filter ListFilter) ([]models.LedgerEntry, string, error) {
		captured = filter
		return []models.LedgerEntry{{AccountID: filter.AccountID}}, "next", nil
	}

	result, err := svc.List(context.Background(), ListInput{
		AccountID: accountID,
		Kind:      "DEBIT",
		Status:    "PENDING",
		From:      "2026-02-01T00:00:00Z",
		To:        "2026-02-02T00:00:00Z",
		Limit:     10,
	})
	if err != nil {
		t.Fatalf("List error: %v", err)
	}
	if captured.AccountID != accountID {
		t.Fatalf("unexpected account filter: %s", captured.AccountID)
	}
	if captured.Kind == nil || *captured.Kind != enums.EntryKindDebit {
		t.Fatalf("expected DEBIT kind filter, got %v", captured.Kind)
	}
	if captured.Status == nil || *captured.Status != enums.EntryStatusPending {
		t.Fatalf("expected PENDING status filter, got %v", captured.Status)
	}
	if captured.From == nil || !captured.From.Equal(time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("expected from filter, got %v", captured.From)
	}
	if captured.To == nil || !captured.To.Equal(time.Date(2026, 2, 2, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("expected to filter, got %v", captured.To)
	}
	if result.NextCursor != "next" {
		t.Fatalf("unexpected next cursor: %q", result.NextCursor)
	}
	if len(result.Entries) != 1 {
		t.Fatalf("expected one entry, got %d", len(result.Entries))
	}
}

func TestService_ListValidation(t *testing.T) {
	svc, err := NewService(&fakeRepository{})
	if err != nil {
		t.Fatalf("unexpected service error: %v", err)
	}

	tests := []struct {
		name  string
		input ListInput
	}{
		{name: "missing account", input: ListInput{Kind: "DEBIT"}},
		{name: "bad kind", input: ListInput{AccountID: uuid.New(), Kind: "REFUND"}},
		{name: "bad status", input: ListInput{AccountID: uuid.New(), Status: "DONE"}},
		{name: "bad from", input: ListInput{AccountID: uuid.New(), From: "yesterday"}},
		{name: "bad to", input: ListInput{AccountID: uuid.New(), To: "02/02/2026"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := svc.List(context.Background(), tc.input); !apperrors.HasCode(err, apperrors.CodeValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}

func TestService_GetEnforcesOwnership(t *testing.T) {
	repo := &fakeRepository{}
	svc, err := NewService(repo)
	if err != nil {
		t.Fatalf("unexpected service error: %v", err)
	}

	owner := uuid.New()
	entry := &models.LedgerEntry{ID: uuid.New(), AccountID: owner}
	repo.getByIDFn = func(ctx context.Context, id uuid.UUID) (*models.LedgerEntry, error) {
		return entry, nil
	}

	got, err := svc.Get(context.Background(), owner, entry.ID)
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if got.ID != entry.ID {
		t.Fatalf("unexpected entry: %s", got.ID)
	}

	if _, err := svc.Get(context.Background(), uuid.New(), entry.ID); !apperrors.HasCode(err, apperrors.CodeNotFound) {
		t.Fatalf("expected not found for foreign account, got %v", err)
	}
}

func TestService_DeleteDelegatesToRepo(t *testing.T) {
	repo := &fakeRepository{}
	svc, err := NewService(repo)
	if err != nil {
		t.Fatalf("unexpected service error: %v", err)
	}

	accountID := uuid.New()
	entryID := uuid.New()
	var gotID, gotAccount uuid.UUID
	repo.softDeleteFn = func(ctx context.Context, id, account uuid.UUID) error {
		gotID, gotAccount = id, account
		return nil
	}

	if err := svc.Delete(context.Background(), accountID, entryID); err != nil {
		t.Fatalf("Delete error: %v", err)
	}
	if gotID != entryID || gotAccount != accountID {
		t.Fatalf("repo called with %s/%s", gotID, gotAccount)
	}

	if err := svc.Delete(context.Background(), uuid.Nil, entryID); !apperrors.HasCode(err, apperrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
