package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/muchaeljohn739337-cloud/m-odular-saas-platform-adv-sub001/internal/core/logger"
	"github.com/muchaeljohn739337-cloud/m-odular-saas-platform-adv-sub001/internal/core/models"
	"github.com/muchaeljohn739337-cloud/m-odular-saas-platform-adv-sub001/internal/core/models/events"
	"github.com/muchaeljohn739337-cloud/m-odular-saas-platform-adv-sub001/internal/core/repository"
	"github.com/muchaeljohn739337-cloud/m-odular-saas-platform-adv-sub001/pkg/config"
)

// EventPublisher notifies downstream consumers about committed transactions.
type EventPublisher interface {
	Publish(topic string, event any) error
}

// Processor drives pending transactions to a terminal state: it validates,
// applies the monetary effect, updates the status and appends the audit
// record. Nothing it does ever panics or returns an error to the caller; the
// boolean result, the persisted status and the audit trail are the only
// externally visible signals.
type Processor struct {
	repo      repository.TransactionRepository
	validator *Validator
	cfg       config.ProcessingConfig
	log       logger.Logger
	publisher EventPublisher
	now       func() time.Time

	// Per-user locks serialize validate-then-mutate for the same user, so two
	// concurrent debits cannot both pass the sufficiency check.
	userLocks map[uuid.UUID]*sync.Mutex
	locksMu   sync.Mutex
}

func NewProcessor(repo repository.TransactionRepository, validator *Validator, cfg config.ProcessingConfig, log logger.Logger) *Processor {
	return &Processor{
		repo:      repo,
		validator: validator,
		cfg:       cfg,
		log:       log,
		now:       time.Now,
		userLocks: make(map[uuid.UUID]*sync.Mutex),
	}
}

// WithPublisher attaches an event publisher. Publishing is best-effort: a
// publish failure never fails the transaction.
func (p *Processor) WithPublisher(publisher EventPublisher) {
	p.publisher = publisher
}

// WithClock replaces the time source. Used in tests.
func (p *Processor) WithClock(now func() time.Time) {
	p.now = now
}

func (p *Processor) userLock(userID uuid.UUID) *sync.Mutex {
	p.locksMu.Lock()
	defer p.locksMu.Unlock()

	if _, exists := p.userLocks[userID]; !exists {
		p.userLocks[userID] = &sync.Mutex{}
	}
	return p.userLocks[userID]
}

// ProcessTransaction validates a transaction and commits or rejects it.
// Returns true only when the monetary effect was applied and the status
// reached completed.
func (p *Processor) ProcessTransaction(ctx context.Context, transactionID uuid.UUID) bool {
	tx, err := p.repo.GetTransaction(ctx, transactionID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			p.log.Warn("Transaction not found",
				logger.StringField("transaction_id", transactionID.String()))
		} else {
			p.log.Error("Failed to fetch transaction",
				logger.StringField("transaction_id", transactionID.String()),
				logger.ErrorField("error", err))
		}
		transactionsProcessed.WithLabelValues(outcomeError).Inc()
		return false
	}

	lock := p.userLock(tx.UserID)
	lock.Lock()
	defer lock.Unlock()

	validation := p.validator.Validate(ctx, transactionID)

	if !validation.IsValid {
		p.reject(ctx, transactionID, validation)
		return false
	}

	// Re-fetch under the lock: the transaction must still exist and still be
	// pending before money moves.
	tx, err = p.repo.GetTransaction(ctx, transactionID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			p.log.Warn("Transaction disappeared before processing",
				logger.StringField("transaction_id", transactionID.String()))
			transactionsProcessed.WithLabelValues(outcomeError).Inc()
			return false
		}
		p.failBestEffort(ctx, transactionID, err)
		return false
	}
	if tx.Status.IsTerminal() {
		p.log.Warn("Transaction already finalized",
			logger.StringField("transaction_id", transactionID.String()),
			logger.StringField("status", string(tx.Status)))
		transactionsProcessed.WithLabelValues(outcomeError).Inc()
		return false
	}

	switch tx.Type {
	case models.TransactionCredit:
		_, err = p.repo.CreditBalance(ctx, tx.UserID, tx.Amount)
	case models.TransactionDebit:
		_, err = p.repo.DebitBalance(ctx, tx.UserID, tx.Amount)
	default:
		err = fmt.Errorf("unknown transaction type %q", tx.Type)
	}
	if err != nil {
		p.failBestEffort(ctx, transactionID, err)
		return false
	}

	if err := p.repo.UpdateTransactionStatus(ctx, transactionID, models.StatusCompleted, tx.Description); err != nil {
		p.failBestEffort(ctx, transactionID, err)
		return false
	}

	p.appendAudit(ctx, transactionID, models.AuditActionProcessed, validation)
	p.publish(tx, validation)

	p.log.Info("Successfully processed transaction",
		logger.StringField("transaction_id", transactionID.String()),
		logger.StringField("type", string(tx.Type)),
		logger.StringField("amount", tx.Amount.String()),
		logger.Float64Field("confidence", validation.Confidence),
	)
	transactionsProcessed.WithLabelValues(outcomeCompleted).Inc()
	return true
}

// BatchProcess pulls up to the configured number of pending transactions,
// oldest first, and processes them one at a time with a fixed delay between
// items. Per-item failures are isolated; the batch never aborts.
func (p *Processor) BatchProcess(ctx context.Context) {
	start := p.now()
	p.log.Info("Starting batch transaction processing",
		logger.IntField("batch_size", p.cfg.BatchSize))

	pending, err := p.repo.ListPending(ctx, p.cfg.BatchSize)
	if err != nil {
		p.log.Error("Failed to list pending transactions", logger.ErrorField("error", err))
		return
	}

	p.log.Info("Found pending transactions", logger.IntField("count", len(pending)))

	processed := 0
	for i, tx := range pending {
		if ctx.Err() != nil {
			p.log.Warn("Batch processing interrupted",
				logger.IntField("remaining", len(pending)-i),
				logger.ErrorField("error", ctx.Err()))
			break
		}

		if p.ProcessTransaction(ctx, tx.ID) {
			processed++
		}

		// Throttle between items to avoid hammering the store.
		if i < len(pending)-1 && p.cfg.BatchDelay > 0 {
			select {
			case <-time.After(p.cfg.BatchDelay):
			case <-ctx.Done():
			}
		}
	}

	batchDuration.Observe(time.Since(start).Seconds())
	p.log.Info("Batch processing complete",
		logger.IntField("total", len(pending)),
		logger.IntField("completed", processed))
}

// reject marks the transaction failed with the accumulated reasons and,
// when configured, audits the rejection.
func (p *Processor) reject(ctx context.Context, transactionID uuid.UUID, validation ValidationResult) {
	p.log.Warn("Transaction failed validation",
		logger.StringField("transaction_id", transactionID.String()),
		logger.StringsField("errors", validation.Errors))

	description := "Failed: " + strings.Join(validation.Errors, ", ")
	if err := p.repo.UpdateTransactionStatus(ctx, transactionID, models.StatusFailed, description); err != nil {
		p.log.Error("Failed to mark transaction as failed",
			logger.StringField("transaction_id", transactionID.String()),
			logger.ErrorField("error", err))
	}

	if p.cfg.AuditFailures {
		p.appendAudit(ctx, transactionID, models.AuditActionRejected, validation)
	}
	transactionsProcessed.WithLabelValues(outcomeRejected).Inc()
}

// failBestEffort handles unexpected errors after validation passed: the
// transaction is marked failed, and a failure of that fallback write is
// logged distinctly so operators can find transactions stuck in pending.
func (p *Processor) failBestEffort(ctx context.Context, transactionID uuid.UUID, cause error) {
	p.log.Error("Error processing transaction",
		logger.StringField("transaction_id", transactionID.String()),
		logger.ErrorField("error", cause))

	if err := p.repo.UpdateTransactionStatus(ctx, transactionID, models.StatusFailed, "Failed: processing error"); err != nil {
		p.log.Error("Transaction may be stuck in pending state",
			logger.StringField("transaction_id", transactionID.String()),
			logger.ErrorField("error", err))
	}
	transactionsProcessed.WithLabelValues(outcomeError).Inc()
}

func (p *Processor) appendAudit(ctx context.Context, transactionID uuid.UUID, action string, validation ValidationResult) {
	entry := models.AuditLogEntry{
		ID:           uuid.New(),
		Action:       action,
		ResourceType: models.AuditResourceTransaction,
		ResourceID:   transactionID,
		Metadata: models.AuditMetadata{
			Confidence: validation.Confidence,
			FraudScore: validation.FraudScore,
			Warnings:   validation.Warnings,
		},
		Actor:     models.AuditActorSystem,
		CreatedAt: p.now(),
	}

	if err := p.repo.AppendAuditEntry(ctx, entry); err != nil {
		p.log.Error("Failed to append audit entry",
			logger.StringField("transaction_id", transactionID.String()),
			logger.ErrorField("error", err))
	}
}

func (p *Processor) publish(tx *models.Transaction, validation ValidationResult) {
	if p.publisher == nil {
		return
	}

	event := events.TransactionProcessed{
		TransactionID: tx.ID,
		UserID:        tx.UserID,
		Amount:        tx.Amount,
		Type:          string(tx.Type),
		Confidence:    validation.Confidence,
		FraudScore:    validation.FraudScore,
		OccurredAt:    p.now(),
	}
	if err := p.publisher.Publish(p.cfg.KafkaTopic, event); err != nil {
		p.log.Warn("Failed to publish transaction event",
			logger.StringField("transaction_id", tx.ID.String()),
			logger.ErrorField("error", err))
	}
}
