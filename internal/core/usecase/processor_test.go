package usecase_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/muchaeljohn739337-cloud/m-odular-saas-platform-adv-sub001/internal/core/logger"
	"github.com/muchaeljohn739337-cloud/m-odular-saas-platform-adv-sub001/internal/core/models"
	"github.com/muchaeljohn739337-cloud/m-odular-saas-platform-adv-sub001/internal/core/repository"
	"github.com/muchaeljohn739337-cloud/m-odular-saas-platform-adv-sub001/internal/core/repository/memory"
	"github.com/muchaeljohn739337-cloud/m-odular-saas-platform-adv-sub001/internal/core/usecase"
	"github.com/muchaeljohn739337-cloud/m-odular-saas-platform-adv-sub001/pkg/config"
)

// failingRepo wraps a real store and fails selected operations.
type failingRepo struct {
	repository.TransactionRepository
	failCountDuplicates bool
	failCredit          bool
	failStatusUpdate    bool
}

var errStore = errors.New("store unavailable")

func (f *failingRepo) CountDuplicates(ctx context.Context, userID uuid.UUID, amount decimal.Decimal, txType models.TransactionType, cutoff time.Time, excludeID uuid.UUID) (int64, error) {
	if f.failCountDuplicates {
		return 0, errStore
	}
	return f.TransactionRepository.CountDuplicates(ctx, userID, amount, txType, cutoff, excludeID)
}

func (f *failingRepo) CreditBalance(ctx context.Context, userID uuid.UUID, amount decimal.Decimal) (decimal.Decimal, error) {
	if f.failCredit {
		return decimal.Zero, errStore
	}
	return f.TransactionRepository.CreditBalance(ctx, userID, amount)
}

func (f *failingRepo) UpdateTransactionStatus(ctx context.Context, id uuid.UUID, status models.TransactionStatus, description string) error {
	if f.failStatusUpdate {
		return errStore
	}
	return f.TransactionRepository.UpdateTransactionStatus(ctx, id, status, description)
}

// recordingPublisher captures published events.
type recordingPublisher struct {
	topics []string
	events []any
}

func (r *recordingPublisher) Publish(topic string, event any) error {
	r.topics = append(r.topics, topic)
	r.events = append(r.events, event)
	return nil
}

func newTestProcessor(repo repository.TransactionRepository, mutate func(*config.ProcessingConfig)) *usecase.Processor {
	cfg := config.DefaultProcessingConfig()
	cfg.BatchDelay = 0
	if mutate != nil {
		mutate(&cfg)
	}

	validator := usecase.NewValidator(repo, cfg, logger.NewNop())
	validator.WithClock(func() time.Time { return testNow })
	processor := usecase.NewProcessor(repo, validator, cfg, logger.NewNop())
	processor.WithClock(func() time.Time { return testNow })
	return processor
}

func TestProcessValidCredit(t *testing.T) {
	store := memory.NewStore()
	user := seedUser(store, "100.00", 30*24*time.Hour)
	tx := seedTransaction(store, user.ID, "50.05", models.TransactionCredit, 0)

	processor := newTestProcessor(store, nil)

	require.True(t, processor.ProcessTransaction(context.Background(), tx.ID))

	updatedUser, ok := store.User(user.ID)
	require.True(t, ok)
	assert.True(t, updatedUser.Balance.Equal(decimal.RequireFromString("150.05")),
		"balance = %s", updatedUser.Balance)

	updatedTx, ok := store.Transaction(tx.ID)
	require.True(t, ok)
	assert.Equal(t, models.StatusCompleted, updatedTx.Status)

	entries := store.AuditEntries()
	require.Len(t, entries, 1)
	assert.Equal(t, models.AuditActionProcessed, entries[0].Action)
	assert.Equal(t, models.AuditResourceTransaction, entries[0].ResourceType)
	assert.Equal(t, tx.ID, entries[0].ResourceID)
	assert.Equal(t, models.AuditActorSystem, entries[0].Actor)
	assert.InDelta(t, 1.0, entries[0].Metadata.Confidence, 1e-9)
}

func TestProcessValidDebit(t *testing.T) {
	store := memory.NewStore()
	user := seedUser(store, "100.00", 30*24*time.Hour)
	tx := seedTransaction(store, user.ID, "40.25", models.TransactionDebit, 0)

	processor := newTestProcessor(store, nil)

	require.True(t, processor.ProcessTransaction(context.Background(), tx.ID))

	updatedUser, _ := store.User(user.ID)
	assert.True(t, updatedUser.Balance.Equal(decimal.RequireFromString("59.75")),
		"balance = %s", updatedUser.Balance)

	updatedTx, _ := store.Transaction(tx.ID)
	assert.Equal(t, models.StatusCompleted, updatedTx.Status)
}

func TestProcessInvalidDebitLeavesBalanceUntouched(t *testing.T) {
	store := memory.NewStore()
	user := seedUser(store, "100.00", 30*24*time.Hour)
	tx := seedTransaction(store, user.ID, "150.00", models.TransactionDebit, 0)

	processor := newTestProcessor(store, nil)

	require.False(t, processor.ProcessTransaction(context.Background(), tx.ID))

	updatedUser, _ := store.User(user.ID)
	assert.True(t, updatedUser.Balance.Equal(decimal.RequireFromString("100.00")))

	updatedTx, _ := store.Transaction(tx.ID)
	assert.Equal(t, models.StatusFailed, updatedTx.Status)
	assert.Equal(t, "Failed: Insufficient balance, Transaction confidence below threshold", updatedTx.Description)
}

func TestProcessRejectionIsAudited(t *testing.T) {
	store := memory.NewStore()
	user := seedUser(store, "0", 30*24*time.Hour)
	tx := seedTransaction(store, user.ID, "10", models.TransactionDebit, 0)

	processor := newTestProcessor(store, nil)
	require.False(t, processor.ProcessTransaction(context.Background(), tx.ID))

	entries := store.AuditEntries()
	require.Len(t, entries, 1)
	assert.Equal(t, models.AuditActionRejected, entries[0].Action)
}

func TestProcessRejectionAuditDisabled(t *testing.T) {
	store := memory.NewStore()
	user := seedUser(store, "0", 30*24*time.Hour)
	tx := seedTransaction(store, user.ID, "10", models.TransactionDebit, 0)

	processor := newTestProcessor(store, func(cfg *config.ProcessingConfig) {
		cfg.AuditFailures = false
	})
	require.False(t, processor.ProcessTransaction(context.Background(), tx.ID))

	assert.Empty(t, store.AuditEntries())
}

func TestProcessUnknownTransaction(t *testing.T) {
	store := memory.NewStore()
	processor := newTestProcessor(store, nil)

	assert.False(t, processor.ProcessTransaction(context.Background(), uuid.New()))
	assert.Empty(t, store.AuditEntries())
}

func TestProcessStoreFailureMarksTransactionFailed(t *testing.T) {
	store := memory.NewStore()
	user := seedUser(store, "100", 30*24*time.Hour)
	tx := seedTransaction(store, user.ID, "50", models.TransactionCredit, 0)

	repo := &failingRepo{TransactionRepository: store, failCredit: true}
	processor := newTestProcessor(repo, nil)

	require.False(t, processor.ProcessTransaction(context.Background(), tx.ID))

	updatedUser, _ := store.User(user.ID)
	assert.True(t, updatedUser.Balance.Equal(decimal.RequireFromString("100")))

	updatedTx, _ := store.Transaction(tx.ID)
	assert.Equal(t, models.StatusFailed, updatedTx.Status)
}

func TestProcessFallbackFailureIsSwallowed(t *testing.T) {
	store := memory.NewStore()
	user := seedUser(store, "100", 30*24*time.Hour)
	tx := seedTransaction(store, user.ID, "50", models.TransactionCredit, 0)

	repo := &failingRepo{TransactionRepository: store, failCredit: true, failStatusUpdate: true}
	processor := newTestProcessor(repo, nil)

	// Even the fallback status write fails; the call must still return
	// cleanly and leave the transaction pending.
	require.False(t, processor.ProcessTransaction(context.Background(), tx.ID))

	updatedTx, _ := store.Transaction(tx.ID)
	assert.Equal(t, models.StatusPending, updatedTx.Status)
}

func TestProcessPublishesEvent(t *testing.T) {
	store := memory.NewStore()
	user := seedUser(store, "100", 30*24*time.Hour)
	tx := seedTransaction(store, user.ID, "50", models.TransactionCredit, 0)

	publisher := &recordingPublisher{}
	processor := newTestProcessor(store, nil)
	processor.WithPublisher(publisher)

	require.True(t, processor.ProcessTransaction(context.Background(), tx.ID))
	require.Len(t, publisher.events, 1)
	assert.Equal(t, "transaction_processed", publisher.topics[0])
}

func TestBatchProcessIsIdempotent(t *testing.T) {
	store := memory.NewStore()
	user := seedUser(store, "1000", 30*24*time.Hour)
	for i := 0; i < 3; i++ {
		seedTransaction(store, user.ID, decimal.NewFromInt(int64(10+i)).String(), models.TransactionCredit, time.Duration(3-i)*time.Minute)
	}

	processor := newTestProcessor(store, nil)

	processor.BatchProcess(context.Background())
	firstRunAudit := len(store.AuditEntries())
	assert.Equal(t, 3, firstRunAudit)

	pending, err := store.ListPending(context.Background(), 100)
	require.NoError(t, err)
	assert.Empty(t, pending)

	// A second run finds nothing pending and changes nothing.
	processor.BatchProcess(context.Background())
	assert.Equal(t, firstRunAudit, len(store.AuditEntries()))

	updatedUser, _ := store.User(user.ID)
	assert.True(t, updatedUser.Balance.Equal(decimal.RequireFromString("1033")),
		"balance = %s", updatedUser.Balance)
}

func TestBatchProcessRespectsBatchSize(t *testing.T) {
	store := memory.NewStore()
	user := seedUser(store, "1000", 30*24*time.Hour)
	for i := 0; i < 5; i++ {
		seedTransaction(store, user.ID, decimal.NewFromInt(int64(100+i)).String(), models.TransactionCredit, time.Duration(10-i)*time.Hour)
	}

	processor := newTestProcessor(store, func(cfg *config.ProcessingConfig) {
		cfg.BatchSize = 2
	})
	processor.BatchProcess(context.Background())

	pending, err := store.ListPending(context.Background(), 100)
	require.NoError(t, err)
	assert.Len(t, pending, 3)
}

func TestBatchProcessIsolatesFailures(t *testing.T) {
	store := memory.NewStore()
	user := seedUser(store, "100", 30*24*time.Hour)
	bad := seedTransaction(store, user.ID, "500", models.TransactionDebit, 2*time.Minute)
	good := seedTransaction(store, user.ID, "30", models.TransactionDebit, time.Minute)

	processor := newTestProcessor(store, nil)
	processor.BatchProcess(context.Background())

	badTx, _ := store.Transaction(bad.ID)
	assert.Equal(t, models.StatusFailed, badTx.Status)

	goodTx, _ := store.Transaction(good.ID)
	assert.Equal(t, models.StatusCompleted, goodTx.Status)

	updatedUser, _ := store.User(user.ID)
	assert.True(t, updatedUser.Balance.Equal(decimal.RequireFromString("70")))
}

func TestBatchProcessDuplicatesBothComplete(t *testing.T) {
	store := memory.NewStore()
	user := seedUser(store, "500", 30*24*time.Hour)
	first := seedTransaction(store, user.ID, "42.00", models.TransactionCredit, 30*time.Second)
	second := seedTransaction(store, user.ID, "42.00", models.TransactionCredit, 0)

	processor := newTestProcessor(store, nil)
	processor.BatchProcess(context.Background())

	// Duplicate detection is a warning, not a blocker: both land in
	// completed, each carrying the penalty in its audit metadata.
	firstTx, _ := store.Transaction(first.ID)
	secondTx, _ := store.Transaction(second.ID)
	assert.Equal(t, models.StatusCompleted, firstTx.Status)
	assert.Equal(t, models.StatusCompleted, secondTx.Status)

	updatedUser, _ := store.User(user.ID)
	assert.True(t, updatedUser.Balance.Equal(decimal.RequireFromString("584.00")),
		"balance = %s", updatedUser.Balance)

	entries := store.AuditEntries()
	require.Len(t, entries, 2)
	for _, entry := range entries {
		assert.Contains(t, entry.Metadata.Warnings, usecase.MsgPossibleDuplicate)
		assert.InDelta(t, 0.9, entry.Metadata.Confidence, 1e-9)
	}
}
