package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/paymint-app/paymint-backend/pkg/db/models"
	"github.com/paymint-app/paymint-backend/pkg/enums"
	apperrors "github.com/paymint-app/paymint-backend/pkg/errors"
	"github.com/paymint-app/paymint-backend/pkg/pagination"
)

// ListInput carries the caller-facing filters for a ledger listing. From and
// To bound the entry creation time; either side may be empty.
type ListInput struct {
	AccountID uuid.UUID
	Kind      string
	Status    string
	From      string
	To        string
	Limit     int
	Cursor    string
}

// ListResult pairs a page of entries with the cursor for the next page.
type ListResult struct {
	Entries    []models.LedgerEntry
	NextCursor string
}

// Service exposes read and housekeeping operations over the ledger. Entry
// creation and settlement belong to the funds coordinators.
type Service interface {
	List(ctx context.Context, input ListInput) (*ListResult, error)
	Get(ctx context.Context, accountID, entryID uuid.UUID) (*models.LedgerEntry, error)
	Delete(ctx context.Context, accountID, entryID uuid.UUID) error
}

type service struct {
	repo Repository
}

// NewService wires a ledger service with the provided repository.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("ledger repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) List(ctx context.Context, input ListInput) (*ListResult, error) {
	if input.AccountID == uuid.Nil {
		return nil, apperrors.New(apperrors.CodeValidation, "account id is required")
	}

	filter := ListFilter{
		AccountID: input.AccountID,
		Page: pagination.Params{
			Limit:  input.Limit,
			Cursor: input.Cursor,
		},
	}
	if input.Kind != "" {
		kind, err := enums.ParseEntryKind(input.Kind)
		if err != nil {
			return nil, apperrors.Wrap(apperrors.CodeValidation, err, "invalid kind filter")
		}
		filter.Kind = &kind
	}
	if input.Status != "" {
		status, err := enums.ParseEntryStatus(input.Status)
		if err != nil {
			return nil, apperrors.Wrap(apperrors.CodeValidation, err, "invalid status filter")
		}
		filter.Status = &status
	}
	if input.From != "" {
		from, err := time.Parse(time.RFC3339, input.From)
		if err != nil {
			return nil, apperrors.Wrap(apperrors.CodeValidation, err, "invalid from filter")
		}
		filter.From = &from
	}
	if input.To != "" {
		to, err := time.Parse(time.RFC3339, input.To)
		if err != nil {
			return nil, apperrors.Wrap(apperrors.CodeValidation, err, "invalid to filter")
		}
		filter.To = &to
	}

	entries, nextCursor, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	return &ListResult{Entries: entries, NextCursor: nextCursor}, nil
}

func (s *service) Get(ctx context.Context, accountID, entryID uuid.UUID) (*models.LedgerEntry, error) {
	if accountID == uuid.Nil || entryID == uuid.Nil {
		return nil, apperrors.New(apperrors.CodeValidation, "account id and entry id are required")
	}

	entry, err := s.repo.GetByID(ctx, entryID)
	if err != nil {
		return nil, err
	}
	// Ownership failures read as not-found so entry ids are not probeable.
	if entry.AccountID != accountID {
		return nil, apperrors.New(apperrors.CodeNotFound, "ledger entry not found")
	}
	return entry, nil
}

func (s *service) Delete(ctx context.Context, accountID, entryID uuid.UUID) error {
	if accountID == uuid.Nil || entryID == uuid.Nil {
		return apperrors.New(apperrors.CodeValidation, "account id and entry id are required")
	}
	return s.repo.SoftDelete(ctx, entryID, accountID)
}
