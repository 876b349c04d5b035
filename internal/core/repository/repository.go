package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/muchaeljohn739337-cloud/m-odular-saas-platform-adv-sub001/internal/core/models"
)

var (
	// ErrNotFound is returned when a referenced transaction or user does not exist.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyFinalized is returned when a status update targets a transaction
	// that already left the pending state.
	ErrAlreadyFinalized = errors.New("transaction already finalized")
	// ErrInsufficientFunds is returned when a conditional debit affects no rows.
	ErrInsufficientFunds = errors.New("insufficient funds")
)

// TransactionRepository is the storage contract the validation and processing
// engine requires. Time windows are passed as absolute cutoffs so callers own
// the clock.
type TransactionRepository interface {
	// GetTransaction fetches a transaction together with its owning user's
	// current balance and account creation time.
	GetTransaction(ctx context.Context, id uuid.UUID) (*models.Transaction, error)

	// CountDuplicates counts transactions of the same user with identical
	// amount and type created at or after the cutoff, excluding excludeID.
	CountDuplicates(ctx context.Context, userID uuid.UUID, amount decimal.Decimal, txType models.TransactionType, cutoff time.Time, excludeID uuid.UUID) (int64, error)

	// SumAmountsSince sums all transaction amounts of a user created at or
	// after the cutoff.
	SumAmountsSince(ctx context.Context, userID uuid.UUID, cutoff time.Time) (decimal.Decimal, error)

	// CountSince counts all transactions of a user created at or after the cutoff.
	CountSince(ctx context.Context, userID uuid.UUID, cutoff time.Time) (int64, error)

	// CountAtLeast counts all transactions of a user with amount >= minAmount,
	// over the whole account lifetime.
	CountAtLeast(ctx context.Context, userID uuid.UUID, minAmount decimal.Decimal) (int64, error)

	// CountByTypeSince counts a user's transactions per type created at or
	// after the cutoff.
	CountByTypeSince(ctx context.Context, userID uuid.UUID, cutoff time.Time) (map[models.TransactionType]int64, error)

	// ListPending returns up to limit pending transactions, oldest first.
	ListPending(ctx context.Context, limit int) ([]models.Transaction, error)

	// UpdateTransactionStatus moves a pending transaction to a terminal status
	// and sets its description. Returns ErrAlreadyFinalized when the
	// transaction is absent or no longer pending.
	UpdateTransactionStatus(ctx context.Context, id uuid.UUID, status models.TransactionStatus, description string) error

	// CreditBalance increments the user balance by amount and returns the new balance.
	CreditBalance(ctx context.Context, userID uuid.UUID, amount decimal.Decimal) (decimal.Decimal, error)

	// DebitBalance decrements the user balance by amount only when the balance
	// covers it, returning the new balance. Returns ErrInsufficientFunds when
	// the conditional update matches no row.
	DebitBalance(ctx context.Context, userID uuid.UUID, amount decimal.Decimal) (decimal.Decimal, error)

	// AppendAuditEntry persists an audit record.
	AppendAuditEntry(ctx context.Context, entry models.AuditLogEntry) error
}
