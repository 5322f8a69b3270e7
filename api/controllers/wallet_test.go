package controllers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/paymint-app/paymint-backend/pkg/db/models"
	pkgerrors "github.com/paymint-app/paymint-backend/pkg/errors"
)

func TestWalletBalanceSuccess(t *testing.T) {
	userID := uuid.New()
	accountID := uuid.New()
	svc := &stubAccountService{account: &models.Account{
		ID:      accountID,
		UserID:  userID,
		Balance: decimal.RequireFromString("42.50"),
	}}

	req := authedRequest(http.MethodGet, "/api/v1/wallet/balance", nil, userID)
	resp := httptest.NewRecorder()

	WalletBalance(svc, nil).ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}

	var envelope struct {
		Data struct {
			AccountID uuid.UUID `json:"account_id"`
			Balance   string    `json:"balance"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.AccountID != accountID {
		t.Fatalf("expected account id %s got %s", accountID, envelope.Data.AccountID)
	}
	if envelope.Data.Balance != "42.50" {
		t.Fatalf("expected balance 42.50 got %s", envelope.Data.Balance)
	}
}

func TestWalletBalanceRequiresAuth(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/wallet/balance", nil)
	resp := httptest.NewRecorder()

	WalletBalance(&stubAccountService{}, nil).ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestWalletBalanceMissingAccount(t *testing.T) {
	svc := &stubAccountService{err: pkgerrors.New(pkgerrors.CodeNotFound, "account not found")}
	req := authedRequest(http.MethodGet, "/api/v1/wallet/balance", nil, uuid.New())
	resp := httptest.NewRecorder()

	WalletBalance(svc, nil).ServeHTTP(resp, req)
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", resp.Code)
	}
}
