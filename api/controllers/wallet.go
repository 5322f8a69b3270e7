package controllers

import (
	"net/http"

	"github.com/paymint-app/paymint-backend/api/responses"
	"github.com/paymint-app/paymint-backend/internal/accounts"
	pkgerrors "github.com/paymint-app/paymint-backend/pkg/errors"
	"github.com/paymint-app/paymint-backend/pkg/logger"
)

// WalletBalance returns the authenticated user's account id and balance.
func WalletBalance(svc accounts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			err := pkgerrors.New(pkgerrors.CodeInternal, "accounts service unavailable")
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		userID, err := requestUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		account, err := svc.AccountForUser(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{
			"account_id": account.ID,
			"balance":    account.Balance.StringFixed(2),
		})
	}
}
