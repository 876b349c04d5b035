package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/muchaeljohn739337-cloud/m-odular-saas-platform-adv-sub001/internal/core/logger"
	"github.com/muchaeljohn739337-cloud/m-odular-saas-platform-adv-sub001/internal/core/models"
	"github.com/muchaeljohn739337-cloud/m-odular-saas-platform-adv-sub001/internal/core/repository"
	"github.com/muchaeljohn739337-cloud/m-odular-saas-platform-adv-sub001/pkg/config"
)

// Confidence penalties per check.
const (
	penaltyAmountNotPositive   = 0.3
	penaltyInsufficientBalance = 0.5
	penaltyDuplicate           = 0.1
	penaltyDailyLimit          = 0.15
	penaltyPerFraudIndicator   = 0.1
	fraudScorePerIndicator     = 0.2
)

// ValidationResult is the verdict for a single transaction. It is never
// persisted; everything worth keeping goes into the audit trail.
type ValidationResult struct {
	IsValid    bool     `json:"is_valid"`
	Confidence float64  `json:"confidence"`
	Errors     []string `json:"errors"`
	Warnings   []string `json:"warnings"`
	FraudScore float64  `json:"fraud_score"`
}

// Validator decides whether a pending transaction is safe to commit. It reads
// the store but never mutates it.
type Validator struct {
	repo repository.TransactionRepository
	cfg  config.ProcessingConfig
	log  logger.Logger
	now  func() time.Time
}

func NewValidator(repo repository.TransactionRepository, cfg config.ProcessingConfig, log logger.Logger) *Validator {
	return &Validator{
		repo: repo,
		cfg:  cfg,
		log:  log,
		now:  time.Now,
	}
}

// WithClock replaces the time source. Used in tests.
func (v *Validator) WithClock(now func() time.Time) {
	v.now = now
}

// Validate runs all checks against the transaction and returns the verdict.
// Checks do not short-circuit: every check runs regardless of earlier
// failures, so the error list is complete. Storage failures are converted to
// a negative verdict and never escape to the caller.
func (v *Validator) Validate(ctx context.Context, transactionID uuid.UUID) ValidationResult {
	result := ValidationResult{
		IsValid:    true,
		Confidence: 1.0,
		Errors:     []string{},
		Warnings:   []string{},
	}

	tx, err := v.repo.GetTransaction(ctx, transactionID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ValidationResult{
				Confidence: 0,
				Errors:     []string{MsgTransactionNotFound},
				Warnings:   []string{},
			}
		}
		return v.systemError(transactionID, err)
	}

	now := v.now()

	// Rule 1: amount must be positive.
	if tx.Amount.Sign() <= 0 {
		result.IsValid = false
		result.Errors = append(result.Errors, MsgAmountNotPositive)
		result.Confidence -= penaltyAmountNotPositive
	}

	// Rule 2: debits need a covering balance.
	if tx.Type == models.TransactionDebit && tx.User.Balance.LessThan(tx.Amount) {
		result.IsValid = false
		result.Errors = append(result.Errors, MsgInsufficientBalance)
		result.Confidence -= penaltyInsufficientBalance
	}

	// Rule 3: identical transactions in the trailing minute are suspicious
	// but not blocking.
	duplicates, err := v.repo.CountDuplicates(ctx, tx.UserID, tx.Amount, tx.Type, now.Add(-v.cfg.DuplicateWindow), tx.ID)
	if err != nil {
		return v.systemError(transactionID, err)
	}
	if duplicates > 0 {
		result.Warnings = append(result.Warnings, MsgPossibleDuplicate)
		result.Confidence -= penaltyDuplicate
	}

	// Rule 4: daily volume limit. The sum includes the transaction under
	// validation since it is already persisted.
	dailySum, err := v.repo.SumAmountsSince(ctx, tx.UserID, now.Add(-v.cfg.DailyWindow))
	if err != nil {
		return v.systemError(transactionID, err)
	}
	if dailySum.GreaterThan(v.cfg.DailyLimit) {
		result.Warnings = append(result.Warnings, MsgDailyLimitExceeded)
		result.Confidence -= penaltyDailyLimit
	}

	// Rule 5: fraud pattern indicators.
	indicators, err := v.detectFraudPatterns(ctx, tx, now)
	if err != nil {
		return v.systemError(transactionID, err)
	}
	if indicators > 0 {
		if indicators > 1 {
			result.Warnings = append(result.Warnings, MsgFraudIndicators)
		}
		result.FraudScore = float64(indicators) * fraudScorePerIndicator
		result.Confidence -= float64(indicators) * penaltyPerFraudIndicator
	}

	if result.Confidence < v.cfg.MinConfidence {
		result.IsValid = false
		result.Errors = append(result.Errors, MsgConfidenceBelowThreshold)
	}
	if result.Confidence < 0 {
		result.Confidence = 0
	}

	return result
}

// detectFraudPatterns counts the independent binary fraud indicators for the
// transaction's user: rapid succession, large transactions on a new account,
// and credit/debit round-trip cycling.
func (v *Validator) detectFraudPatterns(ctx context.Context, tx *models.Transaction, now time.Time) (int, error) {
	indicators := 0

	recent, err := v.repo.CountSince(ctx, tx.UserID, now.Add(-v.cfg.RapidWindow))
	if err != nil {
		return 0, err
	}
	if recent > v.cfg.RapidCount {
		indicators++
	}

	if now.Sub(tx.User.CreatedAt) < v.cfg.NewAccountAge {
		large, err := v.repo.CountAtLeast(ctx, tx.UserID, v.cfg.LargeAmount)
		if err != nil {
			return 0, err
		}
		if large > 0 {
			indicators++
		}
	}

	byType, err := v.repo.CountByTypeSince(ctx, tx.UserID, now.Add(-v.cfg.RoundTrip))
	if err != nil {
		return 0, err
	}
	credits := byType[models.TransactionCredit]
	debits := byType[models.TransactionDebit]
	if min(credits, debits) > v.cfg.RoundTripEach {
		indicators++
	}

	return indicators, nil
}

func (v *Validator) systemError(transactionID uuid.UUID, err error) ValidationResult {
	v.log.Error("Validation error",
		logger.StringField("transaction_id", transactionID.String()),
		logger.ErrorField("error", err),
	)
	return ValidationResult{
		Confidence: 0,
		Errors:     []string{MsgValidationSystemError},
		Warnings:   []string{},
	}
}
