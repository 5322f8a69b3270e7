package funds

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/paymint-app/paymint-backend/internal/accounts"
	"github.com/paymint-app/paymint-backend/internal/ledger"
	"github.com/paymint-app/paymint-backend/pkg/db/models"
	"github.com/paymint-app/paymint-backend/pkg/enums"
	apperrors "github.com/paymint-app/paymint-backend/pkg/errors"
	"github.com/paymint-app/paymint-backend/pkg/logger"
	"github.com/paymint-app/paymint-backend/pkg/metrics"
)

const (
	opTransfer = "transfer"
	opDeposit  = "deposit"

	descTransferOut    = "Transfer out"
	descTransferIn     = "Transfer in"
	descTransferFee    = "Transfer fee"
	descDeposit        = "Deposit"
	descInsufficient   = "Insufficient balance"
	descTransferFailed = "Transfer failed"
	descFeeFailed      = "Fee charge failed"
	descDepositFailed  = "Deposit failed"
)

// TxRunner executes fn inside a database transaction.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// TransferInput describes a peer transfer between two users' accounts.
type TransferInput struct {
	SenderUserID   uuid.UUID
	ReceiverUserID uuid.UUID
	Amount         decimal.Decimal
	IdempotencyKey string
	Description    string
}

// TransferResult returns the ledger entries a settled transfer produced.
// Fee is nil when the configured rate rounds to zero for the amount.
type TransferResult struct {
	Debit  *models.LedgerEntry
	Fee    *models.LedgerEntry
	Credit *models.LedgerEntry
}

// DepositInput describes an external top-up into a user's account.
type DepositInput struct {
	UserID         uuid.UUID
	Amount         decimal.Decimal
	IdempotencyKey string
	Description    string
}

// Service coordinates funds movement. Each operation stages provisional
// ledger entries, settles balances atomically, and reverses the provisional
// entries when settlement fails.
type Service interface {
	Transfer(ctx context.Context, input TransferInput) (*TransferResult, error)
	Deposit(ctx context.Context, input DepositInput) (*models.LedgerEntry, error)
}

// Deps lists the collaborators a funds service needs.
type Deps struct {
	Runner   TxRunner
	Accounts accounts.Repository
	Entries  ledger.Repository
	Fees     *FeeCalculator
	Metrics  *metrics.FundsMetrics
	Logger   *logger.Logger
}

type service struct {
	runner   TxRunner
	accounts accounts.Repository
	entries  ledger.Repository
	fees     *FeeCalculator
	metrics  *metrics.FundsMetrics
	log      *logger.Logger
}

// NewService wires a funds service from its dependencies.
func NewService(deps Deps) (Service, error) {
	if deps.Runner == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if deps.Accounts == nil {
		return nil, fmt.Errorf("accounts repository required")
	}
	if deps.Entries == nil {
		return nil, fmt.Errorf("ledger repository required")
	}
	if deps.Fees == nil {
		return nil, fmt.Errorf("fee calculator required")
	}
	return &service{
		runner:   deps.Runner,
		accounts: deps.Accounts,
		entries:  deps.Entries,
		fees:     deps.Fees,
		metrics:  deps.Metrics,
		log:      deps.Logger,
	}, nil
}

func (s *service) Transfer(ctx context.Context, input TransferInput) (*TransferResult, error) {
	start := time.Now()
	result, err := s.transfer(ctx, input)
	s.metrics.ObserveDuration(opTransfer, time.Since(start))
	if err != nil {
		s.metrics.IncFailure(opTransfer, failureReason(err))
		return nil, err
	}
	s.metrics.IncSuccess(opTransfer)
	return result, nil
}

func (s *service) transfer(ctx context.Context, input TransferInput) (*TransferResult, error) {
	if err := validateAmount(input.Amount); err != nil {
		return nil, err
	}
	// Callers that do not supply a key get a generated one; retries then
	// rely on the HTTP idempotency layer rather than the ledger unique index.
	if input.IdempotencyKey == "" {
		input.IdempotencyKey = uuid.NewString()
	}
	if input.SenderUserID == uuid.Nil || input.ReceiverUserID == uuid.Nil {
		return nil, apperrors.New(apperrors.CodeValidation, "sender and receiver are required")
	}
	if input.SenderUserID == input.ReceiverUserID {
		return nil, apperrors.New(apperrors.CodeSameAccount, "cannot transfer to own account")
	}

	sender, err := s.accounts.GetByUserID(ctx, input.SenderUserID)
	if err != nil {
		return nil, err
	}
	receiver, err := s.accounts.GetByUserID(ctx, input.ReceiverUserID)
	if err != nil {
		return nil, err
	}

	fee := s.fees.Fee(input.Amount)

	// A caller-supplied description lands on the debit entry; the fee and
	// credit entries keep their fixed descriptions.
	debitDesc := strings.TrimSpace(input.Description)
	if debitDesc == "" {
		debitDesc = descTransferOut
	}

	// Stage one: provisional entries, written outside any transaction so the
	// in-flight movement is observable before its outcome is known.
	debit := &models.LedgerEntry{
		ID:             uuid.New(),
		IdempotencyKey: input.IdempotencyKey + "-debit",
		AccountID:      sender.ID,
		Amount:         input.Amount,
		Kind:           enums.EntryKindDebit,
		Status:         enums.EntryStatusPending,
		Description:    debitDesc,
	}
	if err := s.entries.Create(ctx, debit); err != nil {
		return nil, err
	}

	var feeEntry *models.LedgerEntry
	if fee.IsPositive() {
		feeEntry = &models.LedgerEntry{
			ID:             uuid.New(),
			IdempotencyKey: input.IdempotencyKey + "-fee",
			AccountID:      sender.ID,
			Amount:         fee,
			Kind:           enums.EntryKindFee,
			Status:         enums.EntryStatusPending,
			Description:    descTransferFee,
		}
		if err := s.entries.Create(ctx, feeEntry); err != nil {
			if compErr := s.compensate(ctx, opTransfer, failureMark{debit.ID, descTransferFailed}); compErr != nil {
				return nil, stuckError(err, compErr)
			}
			return nil, err
		}
	}

	// Stage two: settle atomically. The sender is charged amount plus fee in
	// one guarded adjustment, so a concurrent debit cannot overdraw.
	total := input.Amount.Add(fee)
	credit := &models.LedgerEntry{
		ID:             uuid.New(),
		IdempotencyKey: input.IdempotencyKey + "-credit",
		AccountID:      receiver.ID,
		Amount:         input.Amount,
		Kind:           enums.EntryKindCredit,
		Status:         enums.EntryStatusSuccess,
		Description:    descTransferIn,
	}
	txErr := s.runner.WithTx(ctx, func(tx *gorm.DB) error {
		accts := s.accounts.WithTx(tx)
		if err := accts.AdjustMany(ctx, []accounts.BalanceDelta{
			{AccountID: sender.ID, Delta: total.Neg()},
			{AccountID: receiver.ID, Delta: input.Amount},
		}); err != nil {
			return err
		}

		entries := s.entries.WithTx(tx)
		if err := entries.Create(ctx, credit); err != nil {
			return err
		}
		if err := entries.UpdateStatus(ctx, debit.ID, enums.EntryStatusSuccess, ""); err != nil {
			return err
		}
		if feeEntry != nil {
			if err := entries.UpdateStatus(ctx, feeEntry.ID, enums.EntryStatusSuccess, ""); err != nil {
				return err
			}
		}
		return nil
	})
	if txErr != nil {
		failDesc := descTransferFailed
		if apperrors.HasCode(txErr, apperrors.CodeInsufficientBalance) {
			failDesc = descInsufficient
		}
		marks := []failureMark{{debit.ID, failDesc}}
		if feeEntry != nil {
			marks = append(marks, failureMark{feeEntry.ID, descFeeFailed})
		}
		if compErr := s.compensate(ctx, opTransfer, marks...); compErr != nil {
			return nil, stuckError(txErr, compErr)
		}
		return nil, txErr
	}

	debit.Status = enums.EntryStatusSuccess
	if feeEntry != nil {
		feeEntry.Status = enums.EntryStatusSuccess
	}
	return &TransferResult{Debit: debit, Fee: feeEntry, Credit: credit}, nil
}

func (s *service) Deposit(ctx context.Context, input DepositInput) (*models.LedgerEntry, error) {
	start := time.Now()
	entry, err := s.deposit(ctx, input)
	s.metrics.ObserveDuration(opDeposit, time.Since(start))
	if err != nil {
		s.metrics.IncFailure(opDeposit, failureReason(err))
		return nil, err
	}
	s.metrics.IncSuccess(opDeposit)
	return entry, nil
}

func (s *service) deposit(ctx context.Context, input DepositInput) (*models.LedgerEntry, error) {
	if err := validateAmount(input.Amount); err != nil {
		return nil, err
	}
	if input.IdempotencyKey == "" {
		input.IdempotencyKey = uuid.NewString()
	}
	if input.UserID == uuid.Nil {
		return nil, apperrors.New(apperrors.CodeValidation, "user id is required")
	}

	account, err := s.accounts.GetByUserID(ctx, input.UserID)
	if err != nil {
		return nil, err
	}

	desc := strings.TrimSpace(input.Description)
	if desc == "" {
		desc = descDeposit
	}
	credit := &models.LedgerEntry{
		ID:             uuid.New(),
		IdempotencyKey: input.IdempotencyKey + "-credit",
		AccountID:      account.ID,
		Amount:         input.Amount,
		Kind:           enums.EntryKindCredit,
		Status:         enums.EntryStatusPending,
		Description:    desc,
	}
	if err := s.entries.Create(ctx, credit); err != nil {
		return nil, err
	}

	txErr := s.runner.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.accounts.WithTx(tx).Adjust(ctx, account.ID, input.Amount); err != nil {
			return err
		}
		return s.entries.WithTx(tx).UpdateStatus(ctx, credit.ID, enums.EntryStatusSuccess, "")
	})
	if txErr != nil {
		if compErr := s.compensate(ctx, opDeposit, failureMark{credit.ID, descDepositFailed}); compErr != nil {
			return nil, stuckError(txErr, compErr)
		}
		return nil, txErr
	}

	credit.Status = enums.EntryStatusSuccess
	return credit, nil
}

type failureMark struct {
	entryID     uuid.UUID
	description string
}

// compensate flips provisional entries to FAILED. It runs on a
// cancellation-free context so an aborted request cannot strand entries, and
// it is attempted exactly once per entry.
func (s *service) compensate(ctx context.Context, operation string, marks ...failureMark) error {
	ctx = context.WithoutCancel(ctx)
	var err error
	for _, mark := range marks {
		if markErr := s.entries.UpdateStatus(ctx, mark.entryID, enums.EntryStatusFailed, mark.description); markErr != nil {
			err = multierr.Append(err, markErr)
		}
	}
	if err != nil {
		s.metrics.IncCompensationFailure(operation)
		if s.log != nil {
			s.log.Error(ctx, "compensation failed, provisional entries left pending", err)
		}
	}
	return err
}

func stuckError(cause, compErr error) error {
	return apperrors.Wrap(apperrors.CodeCompensation, multierr.Append(cause, compErr),
		"operation failed and could not be fully reversed")
}

func validateAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return apperrors.New(apperrors.CodeInvalidAmount, "amount must be greater than zero")
	}
	if !amount.Equal(amount.Round(2)) {
		return apperrors.New(apperrors.CodeInvalidAmount, "amount cannot exceed two decimal places")
	}
	return nil
}

func failureReason(err error) string {
	if typed := apperrors.As(err); typed != nil {
		return strings.ToLower(string(typed.Code()))
	}
	return "internal"
}
