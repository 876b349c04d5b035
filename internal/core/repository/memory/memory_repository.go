package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/muchaeljohn739337-cloud/m-odular-saas-platform-adv-sub001/internal/core/models"
	"github.com/muchaeljohn739337-cloud/m-odular-saas-platform-adv-sub001/internal/core/repository"
)

// Store is an in-memory implementation of repository.TransactionRepository.
// It backs unit tests and local runs without a database.
type Store struct {
	mu           sync.Mutex
	users        map[uuid.UUID]*models.User
	transactions map[uuid.UUID]*models.Transaction
	audit        []models.AuditLogEntry
}

func NewStore() *Store {
	return &Store{
		users:        make(map[uuid.UUID]*models.User),
		transactions: make(map[uuid.UUID]*models.Transaction),
	}
}

var _ repository.TransactionRepository = (*Store)(nil)

// PutUser seeds or replaces a user.
func (s *Store) PutUser(user models.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := user
	s.users[user.ID] = &u
}

// PutTransaction seeds or replaces a transaction.
func (s *Store) PutTransaction(tx models.Transaction) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := tx
	s.transactions[tx.ID] = &t
}

// User returns a copy of the stored user.
func (s *Store) User(id uuid.UUID) (models.User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return models.User{}, false
	}
	return *u, true
}

// Transaction returns a copy of the stored transaction.
func (s *Store) Transaction(id uuid.UUID) (models.Transaction, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.transactions[id]
	if !ok {
		return models.Transaction{}, false
	}
	return *t, true
}

// AuditEntries returns a copy of all appended audit records.
func (s *Store) AuditEntries() []models.AuditLogEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := make([]models.AuditLogEntry, len(s.audit))
	copy(copied, s.audit)
	return copied
}

func (s *Store) GetTransaction(ctx context.Context, id uuid.UUID) (*models.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, ok := s.transactions[id]
	if !ok {
		return nil, fmt.Errorf("%w: transaction with id %s", repository.ErrNotFound, id)
	}

	result := *tx
	if user, ok := s.users[tx.UserID]; ok {
		result.User = *user
	}
	return &result, nil
}

func (s *Store) CountDuplicates(ctx context.Context, userID uuid.UUID, amount decimal.Decimal, txType models.TransactionType, cutoff time.Time, excludeID uuid.UUID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var count int64
	for _, tx := range s.transactions {
		if tx.ID == excludeID || tx.UserID != userID {
			continue
		}
		if tx.Type == txType && tx.Amount.Equal(amount) && !tx.CreatedAt.Before(cutoff) {
			count++
		}
	}
	return count, nil
}

func (s *Store) SumAmountsSince(ctx context.Context, userID uuid.UUID, cutoff time.Time) (decimal.Decimal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sum := decimal.Zero
	for _, tx := range s.transactions {
		if tx.UserID == userID && !tx.CreatedAt.Before(cutoff) {
			sum = sum.Add(tx.Amount)
		}
	}
	return sum, nil
}

func (s *Store) CountSince(ctx context.Context, userID uuid.UUID, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var count int64
	for _, tx := range s.transactions {
		if tx.UserID == userID && !tx.CreatedAt.Before(cutoff) {
			count++
		}
	}
	return count, nil
}

func (s *Store) CountAtLeast(ctx context.Context, userID uuid.UUID, minAmount decimal.Decimal) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var count int64
	for _, tx := range s.transactions {
		if tx.UserID == userID && tx.Amount.GreaterThanOrEqual(minAmount) {
			count++
		}
	}
	return count, nil
}

func (s *Store) CountByTypeSince(ctx context.Context, userID uuid.UUID, cutoff time.Time) (map[models.TransactionType]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	counts := make(map[models.TransactionType]int64)
	for _, tx := range s.transactions {
		if tx.UserID == userID && !tx.CreatedAt.Before(cutoff) {
			counts[tx.Type]++
		}
	}
	return counts, nil
}

func (s *Store) ListPending(ctx context.Context, limit int) ([]models.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var pending []models.Transaction
	for _, tx := range s.transactions {
		if tx.Status != models.StatusPending {
			continue
		}
		result := *tx
		if user, ok := s.users[tx.UserID]; ok {
			result.User = *user
		}
		pending = append(pending, result)
	}

	sort.Slice(pending, func(i, j int) bool {
		return pending[i].CreatedAt.Before(pending[j].CreatedAt)
	})

	if limit > 0 && len(pending) > limit {
		pending = pending[:limit]
	}
	return pending, nil
}

func (s *Store) UpdateTransactionStatus(ctx context.Context, id uuid.UUID, status models.TransactionStatus, description string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, ok := s.transactions[id]
	if !ok {
		return fmt.Errorf("%w: transaction with id %s", repository.ErrNotFound, id)
	}
	if !tx.Status.CanTransitionTo(status) {
		return fmt.Errorf("%w: transaction %s", repository.ErrAlreadyFinalized, id)
	}

	tx.Status = status
	tx.Description = description
	return nil
}

func (s *Store) CreditBalance(ctx context.Context, userID uuid.UUID, amount decimal.Decimal) (decimal.Decimal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[userID]
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: user %s", repository.ErrNotFound, userID)
	}

	user.Balance = user.Balance.Add(amount)
	return user.Balance, nil
}

func (s *Store) DebitBalance(ctx context.Context, userID uuid.UUID, amount decimal.Decimal) (decimal.Decimal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[userID]
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: user %s", repository.ErrNotFound, userID)
	}
	if user.Balance.LessThan(amount) {
		return decimal.Zero, fmt.Errorf("%w: user %s", repository.ErrInsufficientFunds, userID)
	}

	user.Balance = user.Balance.Sub(amount)
	return user.Balance, nil
}

func (s *Store) AppendAuditEntry(ctx context.Context, entry models.AuditLogEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.audit = append(s.audit, entry)
	return nil
}
