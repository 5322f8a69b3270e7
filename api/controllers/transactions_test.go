package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/paymint-app/paymint-backend/api/middleware"
	"github.com/paymint-app/paymint-backend/internal/accounts"
	"github.com/paymint-app/paymint-backend/internal/funds"
	"github.com/paymint-app/paymint-backend/internal/ledger"
	"github.com/paymint-app/paymint-backend/pkg/db/models"
	"github.com/paymint-app/paymint-backend/pkg/enums"
	pkgerrors "github.com/paymint-app/paymint-backend/pkg/errors"
)

type stubFundsService struct {
	transferResult *funds.TransferResult
	transferErr    error
	depositResult  *models.LedgerEntry
	depositErr     error

	lastTransfer funds.TransferInput
	lastDeposit  funds.DepositInput
}

func (s *stubFundsService) Transfer(ctx context.Context, input funds.TransferInput) (*funds.TransferResult, error) {
	s.lastTransfer = input
	return s.transferResult, s.transferErr
}

func (s *stubFundsService) Deposit(ctx context.Context, input funds.DepositInput) (*models.LedgerEntry, error) {
	s.lastDeposit = input
	return s.depositResult, s.depositErr
}

var _ funds.Service = (*stubFundsService)(nil)

type stubAccountService struct {
	account *models.Account
	err     error
}

func (s *stubAccountService) CreateForUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (*models.Account, error) {
	return s.account, s.err
}

func (s *stubAccountService) AccountForUser(ctx context.Context, userID uuid.UUID) (*models.Account, error) {
	return s.account, s.err
}

func (s *stubAccountService) BalanceForUser(ctx context.Context, userID uuid.UUID) (decimal.Decimal, error) {
	if s.account == nil {
		return decimal.Zero, s.err
	}
	return s.account.Balance, s.err
}

var _ accounts.Service = (*stubAccountService)(nil)

type stubLedgerService struct {
	listResult *ledger.ListResult
	listErr    error
	entry      *models.LedgerEntry
	getErr     error
	deleteErr  error

	lastList     ledger.ListInput
	lastAccount  uuid.UUID
	lastEntryID  uuid.UUID
	deleteCalled bool
}

func (s *stubLedgerService) List(ctx context.Context, input ledger.ListInput) (*ledger.ListResult, error) {
	s.lastList = input
	return s.listResult, s.listErr
}

func (s *stubLedgerService) Get(ctx context.Context, accountID, entryID uuid.UUID) (*models.LedgerEntry, error) {
	s.lastAccount = accountID
	s.lastEntryID = entryID
	return s.entry, s.getErr
}

func (s *stubLedgerService) Delete(ctx context.Context, accountID, entryID uuid.UUID) error {
	s.lastAccount = accountID
	s.lastEntryID = entryID
	s.deleteCalled = true
	return s.deleteErr
}

var _ ledger.Service = (*stubLedgerService)(nil)

func withChiParam(r *http.Request, key, value string) *http.Request {
	rc := chi.NewRouteContext()
	rc.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rc))
}

func authedRequest(method, target string, body []byte, userID uuid.UUID) *http.Request {
	var req *http.Request
	if body != nil {
		req = httptest.NewRequest(method, target, bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	return req.WithContext(middleware.WithUserID(req.Context(), userID.String()))
}

func sampleEntry(accountID uuid.UUID, kind enums.EntryKind, amount string) *models.LedgerEntry {
	return &models.LedgerEntry{
		ID:             uuid.New(),
		IdempotencyKey: "txn-1-" + string(kind),
		AccountID:      accountID,
		Amount:         decimal.RequireFromString(amount),
		Kind:           kind,
		Status:         enums.EntryStatusSuccess,
		CreatedAt:      time.Now().UTC(),
	}
}

func TestTransactionTransferSuccess(t *testing.T) {
	senderID := uuid.New()
	senderAccount := uuid.New()
	receiverAccount := uuid.New()
	svc := &stubFundsService{
		transferResult: &funds.TransferResult{
			Debit:  sampleEntry(senderAccount, enums.EntryKindDebit, "50.00"),
			Fee:    sampleEntry(senderAccount, enums.EntryKindFee, "1.00"),
			Credit: sampleEntry(receiverAccount, enums.EntryKindCredit, "50.00"),
		},
	}

	receiverID := uuid.New()
	body := []byte(`{"receiver_id":"` + receiverID.String() + `","amount":"50.00","description":"Rent split"}`)
	req := authedRequest(http.MethodPost, "/api/v1/transactions/transfer", body, senderID)
	req.Header.Set("Idempotency-Key", "txn-1")
	resp := httptest.NewRecorder()

	TransactionTransfer(svc, nil).ServeHTTP(resp, req)
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", resp.Code, resp.Body.String())
	}

	var envelope struct {
		Data struct {
			Debit  entryDTO  `json:"debit"`
			Fee    *entryDTO `json:"fee"`
			Credit entryDTO  `json:"credit"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.Debit.Amount != "50.00" {
		t.Fatalf("expected debit amount 50.00 got %s", envelope.Data.Debit.Amount)
	}
	if envelope.Data.Fee == nil || envelope.Data.Fee.Amount != "1.00" {
		t.Fatalf("expected fee entry in payload got %+v", envelope.Data.Fee)
	}
	if envelope.Data.Credit.AccountID != receiverAccount {
		t.Fatalf("expected credit on receiver account got %s", envelope.Data.Credit.AccountID)
	}

	if svc.lastTransfer.SenderUserID != senderID {
		t.Fatalf("expected sender forwarded got %s", svc.lastTransfer.SenderUserID)
	}
	if svc.lastTransfer.ReceiverUserID != receiverID {
		t.Fatalf("expected receiver forwarded got %s", svc.lastTransfer.ReceiverUserID)
	}
	if svc.lastTransfer.IdempotencyKey != "txn-1" {
		t.Fatalf("expected idempotency key forwarded got %s", svc.lastTransfer.IdempotencyKey)
	}
	if !svc.lastTransfer.Amount.Equal(decimal.RequireFromString("50.00")) {
		t.Fatalf("expected amount forwarded got %s", svc.lastTransfer.Amount)
	}
	if svc.lastTransfer.Description != "Rent split" {
		t.Fatalf("expected description forwarded got %q", svc.lastTransfer.Description)
	}
}

func TestTransactionTransferOmitsZeroFee(t *testing.T) {
	senderID := uuid.New()
	svc := &stubFundsService{
		transferResult: &funds.TransferResult{
			Debit:  sampleEntry(uuid.New(), enums.EntryKindDebit, "0.10"),
			Credit: sampleEntry(uuid.New(), enums.EntryKindCredit, "0.10"),
		},
	}

	body := []byte(`{"receiver_id":"` + uuid.NewString() + `","amount":"0.10"}`)
	req := authedRequest(http.MethodPost, "/api/v1/transactions/transfer", body, senderID)
	req.Header.Set("Idempotency-Key", "txn-2")
	resp := httptest.NewRecorder()

	TransactionTransfer(svc, nil).ServeHTTP(resp, req)
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d", resp.Code)
	}

	var envelope struct {
		Data map[string]json.RawMessage `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if _, ok := envelope.Data["fee"]; ok {
		t.Fatal("expected fee omitted when no fee entry was produced")
	}
}

func TestTransactionTransferRequiresIdempotencyKey(t *testing.T) {
	body := []byte(`{"receiver_id":"` + uuid.NewString() + `","amount":"50.00"}`)
	req := authedRequest(http.MethodPost, "/api/v1/transactions/transfer", body, uuid.New())
	resp := httptest.NewRecorder()

	TransactionTransfer(&stubFundsService{}, nil).ServeHTTP(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestTransactionTransferRejectsMalformedAmount(t *testing.T) {
	body := []byte(`{"receiver_id":"` + uuid.NewString() + `","amount":"ten dollars"}`)
	req := authedRequest(http.MethodPost, "/api/v1/transactions/transfer", body, uuid.New())
	req.Header.Set("Idempotency-Key", "txn-3")
	resp := httptest.NewRecorder()

	TransactionTransfer(&stubFundsService{}, nil).ServeHTTP(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestTransactionTransferRequiresAuth(t *testing.T) {
	body := []byte(`{"receiver_id":"` + uuid.NewString() + `","amount":"50.00"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/transactions/transfer", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Idempotency-Key", "txn-4")
	resp := httptest.NewRecorder()

	TransactionTransfer(&stubFundsService{}, nil).ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestTransactionTransferMapsInsufficientBalance(t *testing.T) {
	svc := &stubFundsService{transferErr: pkgerrors.New(pkgerrors.CodeInsufficientBalance, "insufficient balance")}
	body := []byte(`{"receiver_id":"` + uuid.NewString() + `","amount":"50.00"}`)
	req := authedRequest(http.MethodPost, "/api/v1/transactions/transfer", body, uuid.New())
	req.Header.Set("Idempotency-Key", "txn-5")
	resp := httptest.NewRecorder()

	TransactionTransfer(svc, nil).ServeHTTP(resp, req)
	if resp.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 got %d", resp.Code)
	}
}

func TestTransactionDepositSuccess(t *testing.T) {
	userID := uuid.New()
	accountID := uuid.New()
	svc := &stubFundsService{depositResult: sampleEntry(accountID, enums.EntryKindCredit, "25.00")}

	body := []byte(`{"amount":"25.00","description":"Payroll top-up"}`)
	req := authedRequest(http.MethodPost, "/api/v1/transactions/deposit", body, userID)
	req.Header.Set("Idempotency-Key", "dep-1")
	resp := httptest.NewRecorder()

	TransactionDeposit(svc, nil).ServeHTTP(resp, req)
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", resp.Code, resp.Body.String())
	}

	var envelope struct {
		Data struct {
			Credit entryDTO `json:"credit"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.Credit.Amount != "25.00" {
		t.Fatalf("expected credit amount 25.00 got %s", envelope.Data.Credit.Amount)
	}
	if svc.lastDeposit.UserID != userID {
		t.Fatalf("expected user forwarded got %s", svc.lastDeposit.UserID)
	}
	if svc.lastDeposit.Description != "Payroll top-up" {
		t.Fatalf("expected description forwarded got %q", svc.lastDeposit.Description)
	}
}

func TestTransactionListForwardsFilters(t *testing.T) {
	userID := uuid.New()
	accountID := uuid.New()
	accountSvc := &stubAccountService{account: &models.Account{ID: accountID, UserID: userID}}
	ledgerSvc := &stubLedgerService{
		listResult: &ledger.ListResult{
			Entries:    []models.LedgerEntry{*sampleEntry(accountID, enums.EntryKindCredit, "5.00")},
			NextCursor: "cursor-1",
		},
	}

	req := authedRequest(http.MethodGet, "/api/v1/transactions/?kind=credit&status=success&limit=10&cursor=abc", nil, userID)
	resp := httptest.NewRecorder()

	TransactionList(accountSvc, ledgerSvc, nil).ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}

	if ledgerSvc.lastList.AccountID != accountID {
		t.Fatalf("expected account scope got %s", ledgerSvc.lastList.AccountID)
	}
	if ledgerSvc.lastList.Kind != "CREDIT" || ledgerSvc.lastList.Status != "SUCCESS" {
		t.Fatalf("expected uppercased filters got %+v", ledgerSvc.lastList)
	}
	if ledgerSvc.lastList.Limit != 10 || ledgerSvc.lastList.Cursor != "abc" {
		t.Fatalf("expected paging forwarded got %+v", ledgerSvc.lastList)
	}

	var envelope struct {
		Data struct {
			Entries    []entryDTO `json:"entries"`
			NextCursor string     `json:"next_cursor"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(envelope.Data.Entries) != 1 || envelope.Data.NextCursor != "cursor-1" {
		t.Fatalf("unexpected page payload %+v", envelope.Data)
	}
}

func TestTransactionDetailScopesToOwnAccount(t *testing.T) {
	userID := uuid.New()
	accountID := uuid.New()
	entry := sampleEntry(accountID, enums.EntryKindDebit, "12.00")
	accountSvc := &stubAccountService{account: &models.Account{ID: accountID, UserID: userID}}
	ledgerSvc := &stubLedgerService{entry: entry}

	req := authedRequest(http.MethodGet, "/api/v1/transactions/"+entry.ID.String(), nil, userID)
	req = withChiParam(req, "entryId", entry.ID.String())
	resp := httptest.NewRecorder()

	TransactionDetail(accountSvc, ledgerSvc, nil).ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	if ledgerSvc.lastAccount != accountID {
		t.Fatalf("expected lookup scoped to %s got %s", accountID, ledgerSvc.lastAccount)
	}
	if ledgerSvc.lastEntryID != entry.ID {
		t.Fatalf("expected entry id forwarded got %s", ledgerSvc.lastEntryID)
	}
}

func TestTransactionDetailRejectsMalformedID(t *testing.T) {
	accountSvc := &stubAccountService{account: &models.Account{ID: uuid.New()}}
	req := authedRequest(http.MethodGet, "/api/v1/transactions/not-a-uuid", nil, uuid.New())
	req = withChiParam(req, "entryId", "not-a-uuid")
	resp := httptest.NewRecorder()

	TransactionDetail(accountSvc, &stubLedgerService{}, nil).ServeHTTP(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestTransactionDeleteSuccess(t *testing.T) {
	userID := uuid.New()
	accountID := uuid.New()
	entryID := uuid.New()
	accountSvc := &stubAccountService{account: &models.Account{ID: accountID, UserID: userID}}
	ledgerSvc := &stubLedgerService{}

	req := authedRequest(http.MethodDelete, "/api/v1/transactions/"+entryID.String(), nil, userID)
	req = withChiParam(req, "entryId", entryID.String())
	resp := httptest.NewRecorder()

	TransactionDelete(accountSvc, ledgerSvc, nil).ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	if !ledgerSvc.deleteCalled {
		t.Fatal("expected delete to reach the ledger service")
	}
}

func TestTransactionDeleteMissingEntry(t *testing.T) {
	accountSvc := &stubAccountService{account: &models.Account{ID: uuid.New()}}
	ledgerSvc := &stubLedgerService{deleteErr: pkgerrors.New(pkgerrors.CodeNotFound, "entry not found")}
	entryID := uuid.New()

	req := authedRequest(http.MethodDelete, "/api/v1/transactions/"+entryID.String(), nil, uuid.New())
	req = withChiParam(req, "entryId", entryID.String())
	resp := httptest.NewRecorder()

	TransactionDelete(accountSvc, ledgerSvc, nil).ServeHTTP(resp, req)
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", resp.Code)
	}
}
