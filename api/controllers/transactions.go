package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/paymint-app/paymint-backend/api/responses"
	"github.com/paymint-app/paymint-backend/api/validators"
	"github.com/paymint-app/paymint-backend/internal/accounts"
	"github.com/paymint-app/paymint-backend/internal/funds"
	"github.com/paymint-app/paymint-backend/internal/ledger"
	"github.com/paymint-app/paymint-backend/pkg/db/models"
	pkgerrors "github.com/paymint-app/paymint-backend/pkg/errors"
	"github.com/paymint-app/paymint-backend/pkg/logger"
	"github.com/paymint-app/paymint-backend/pkg/pagination"
)

type transferRequest struct {
	ReceiverID  string `json:"receiver_id" validate:"required,uuid"`
	Amount      string `json:"amount" validate:"required"`
	Description string `json:"description" validate:"omitempty,max=255"`
}

type depositRequest struct {
	Amount      string `json:"amount" validate:"required"`
	Description string `json:"description" validate:"omitempty,max=255"`
}

type entryDTO struct {
	ID          uuid.UUID `json:"id"`
	AccountID   uuid.UUID `json:"account_id"`
	Amount      string    `json:"amount"`
	Kind        string    `json:"kind"`
	Status      string    `json:"status"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

func toEntryDTO(entry *models.LedgerEntry) entryDTO {
	return entryDTO{
		ID:          entry.ID,
		AccountID:   entry.AccountID,
		Amount:      entry.Amount.StringFixed(2),
		Kind:        entry.Kind.String(),
		Status:      entry.Status.String(),
		Description: entry.Description,
		CreatedAt:   entry.CreatedAt,
	}
}

// TransactionTransfer moves money from the authenticated user to a receiver.
func TransactionTransfer(svc funds.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			err := pkgerrors.New(pkgerrors.CodeInternal, "funds service unavailable")
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		senderID, err := requestUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		key, err := idempotencyKey(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body transferRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		receiverID, err := uuid.Parse(body.ReceiverID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid receiver id"))
			return
		}
		amount, err := parseAmount(body.Amount)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Transfer(r.Context(), funds.TransferInput{
			SenderUserID:   senderID,
			ReceiverUserID: receiverID,
			Amount:         amount,
			IdempotencyKey: key,
			Description:    strings.TrimSpace(body.Description),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		payload := map[string]any{
			"debit":  toEntryDTO(result.Debit),
			"credit": toEntryDTO(result.Credit),
		}
		if result.Fee != nil {
			payload["fee"] = toEntryDTO(result.Fee)
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, payload)
	}
}

// TransactionDeposit tops up the authenticated user's account.
func TransactionDeposit(svc funds.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			err := pkgerrors.New(pkgerrors.CodeInternal, "funds service unavailable")
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		userID, err := requestUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		key, err := idempotencyKey(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body depositRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		amount, err := parseAmount(body.Amount)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		entry, err := svc.Deposit(r.Context(), funds.DepositInput{
			UserID:         userID,
			Amount:         amount,
			IdempotencyKey: key,
			Description:    strings.TrimSpace(body.Description),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, map[string]any{"credit": toEntryDTO(entry)})
	}
}

// TransactionList pages through the authenticated user's ledger entries.
func TransactionList(accountsSvc accounts.Service, ledgerSvc ledger.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if accountsSvc == nil || ledgerSvc == nil {
			err := pkgerrors.New(pkgerrors.CodeInternal, "ledger service unavailable")
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		userID, err := requestUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		account, err := accountsSvc.AccountForUser(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := ledgerSvc.List(r.Context(), ledger.ListInput{
			AccountID: account.ID,
			Kind:      strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("kind"))),
			Status:    strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("status"))),
			From:      strings.TrimSpace(r.URL.Query().Get("from")),
			To:        strings.TrimSpace(r.URL.Query().Get("to")),
			Limit:     limit,
			Cursor:    strings.TrimSpace(r.URL.Query().Get("cursor")),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		entries := make([]entryDTO, 0, len(result.Entries))
		for i := range result.Entries {
			entries = append(entries, toEntryDTO(&result.Entries[i]))
		}
		responses.WriteSuccess(w, map[string]any{
			"entries":     entries,
			"next_cursor": result.NextCursor,
		})
	}
}

// TransactionDetail fetches one of the authenticated user's ledger entries.
func TransactionDetail(accountsSvc accounts.Service, ledgerSvc ledger.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if accountsSvc == nil || ledgerSvc == nil {
			err := pkgerrors.New(pkgerrors.CodeInternal, "ledger service unavailable")
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		userID, err := requestUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		entryID, err := entryIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		account, err := accountsSvc.AccountForUser(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		entry, err := ledgerSvc.Get(r.Context(), account.ID, entryID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, toEntryDTO(entry))
	}
}

// TransactionDelete hides a ledger entry from the user's history.
func TransactionDelete(accountsSvc accounts.Service, ledgerSvc ledger.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if accountsSvc == nil || ledgerSvc == nil {
			err := pkgerrors.New(pkgerrors.CodeInternal, "ledger service unavailable")
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		userID, err := requestUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		entryID, err := entryIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		account, err := accountsSvc.AccountForUser(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := ledgerSvc.Delete(r.Context(), account.ID, entryID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"deleted": true})
	}
}

func entryIDParam(r *http.Request) (uuid.UUID, error) {
	raw := chi.URLParam(r, "entryId")
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid entry id")
	}
	return id, nil
}

func idempotencyKey(r *http.Request) (string, error) {
	key := strings.TrimSpace(r.Header.Get("Idempotency-Key"))
	if key == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "Idempotency-Key header required")
	}
	return key, nil
}

func parseAmount(raw string) (decimal.Decimal, error) {
	amount, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return decimal.Zero, pkgerrors.Wrap(pkgerrors.CodeInvalidAmount, err, "amount must be a decimal string")
	}
	return amount, nil
}
