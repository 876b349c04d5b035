package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/muchaeljohn739337-cloud/m-odular-saas-platform-adv-sub001/internal/core/logger"
	"github.com/muchaeljohn739337-cloud/m-odular-saas-platform-adv-sub001/internal/core/models"
	"github.com/muchaeljohn739337-cloud/m-odular-saas-platform-adv-sub001/internal/core/repository"
)

type postgresProcessingRepo struct {
	db  *sqlx.DB
	log logger.Logger
}

func NewPostgresProcessingRepo(db *sqlx.DB, log logger.Logger) repository.TransactionRepository {
	return &postgresProcessingRepo{
		db:  db,
		log: log,
	}
}

func (r *postgresProcessingRepo) GetTransaction(ctx context.Context, id uuid.UUID) (*models.Transaction, error) {
	var tx models.Transaction
	query := `
		SELECT t.id, t.user_id, t.amount, t.type, t.status, t.description, t.created_at,
		       u.id AS "user.id", u.balance AS "user.balance", u.created_at AS "user.created_at"
		FROM transactions t
		JOIN users u ON u.id = t.user_id
		WHERE t.id = $1`
	err := r.db.GetContext(ctx, &tx, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: transaction with id %s", repository.ErrNotFound, id)
		}
		return nil, fmt.Errorf("error getting transaction: %w", err)
	}

	return &tx, nil
}

func (r *postgresProcessingRepo) CountDuplicates(ctx context.Context, userID uuid.UUID, amount decimal.Decimal, txType models.TransactionType, cutoff time.Time, excludeID uuid.UUID) (int64, error) {
	var count int64
	query := `
		SELECT COUNT(*) FROM transactions
		WHERE user_id = $1 AND amount = $2 AND type = $3 AND created_at >= $4 AND id <> $5`
	err := r.db.GetContext(ctx, &count, query, userID, amount, txType, cutoff, excludeID)
	if err != nil {
		return 0, fmt.Errorf("error counting duplicates: %w", err)
	}

	return count, nil
}

func (r *postgresProcessingRepo) SumAmountsSince(ctx context.Context, userID uuid.UUID, cutoff time.Time) (decimal.Decimal, error) {
	var sum decimal.Decimal
	query := `
		SELECT COALESCE(SUM(amount), 0) FROM transactions
		WHERE user_id = $1 AND created_at >= $2`
	err := r.db.GetContext(ctx, &sum, query, userID, cutoff)
	if err != nil {
		return decimal.Zero, fmt.Errorf("error summing amounts: %w", err)
	}

	return sum, nil
}

func (r *postgresProcessingRepo) CountSince(ctx context.Context, userID uuid.UUID, cutoff time.Time) (int64, error) {
	var count int64
	query := `SELECT COUNT(*) FROM transactions WHERE user_id = $1 AND created_at >= $2`
	err := r.db.GetContext(ctx, &count, query, userID, cutoff)
	if err != nil {
		return 0, fmt.Errorf("error counting transactions: %w", err)
	}

	return count, nil
}

func (r *postgresProcessingRepo) CountAtLeast(ctx context.Context, userID uuid.UUID, minAmount decimal.Decimal) (int64, error) {
	var count int64
	query := `SELECT COUNT(*) FROM transactions WHERE user_id = $1 AND amount >= $2`
	err := r.db.GetContext(ctx, &count, query, userID, minAmount)
	if err != nil {
		return 0, fmt.Errorf("error counting large transactions: %w", err)
	}

	return count, nil
}

func (r *postgresProcessingRepo) CountByTypeSince(ctx context.Context, userID uuid.UUID, cutoff time.Time) (map[models.TransactionType]int64, error) {
	rows := []struct {
		Type  models.TransactionType `db:"type"`
		Count int64                  `db:"count"`
	}{}
	query := `
		SELECT type, COUNT(*) AS count FROM transactions
		WHERE user_id = $1 AND created_at >= $2
		GROUP BY type`
	if err := r.db.SelectContext(ctx, &rows, query, userID, cutoff); err != nil {
		return nil, fmt.Errorf("error counting transactions by type: %w", err)
	}

	counts := make(map[models.TransactionType]int64, len(rows))
	for _, row := range rows {
		counts[row.Type] = row.Count
	}
	return counts, nil
}

func (r *postgresProcessingRepo) ListPending(ctx context.Context, limit int) ([]models.Transaction, error) {
	var txs []models.Transaction
	query := `
		SELECT t.id, t.user_id, t.amount, t.type, t.status, t.description, t.created_at,
		       u.id AS "user.id", u.balance AS "user.balance", u.created_at AS "user.created_at"
		FROM transactions t
		JOIN users u ON u.id = t.user_id
		WHERE t.status = $1
		ORDER BY t.created_at ASC
		LIMIT $2`
	if err := r.db.SelectContext(ctx, &txs, query, models.StatusPending, limit); err != nil {
		return nil, fmt.Errorf("error listing pending transactions: %w", err)
	}

	return txs, nil
}

func (r *postgresProcessingRepo) UpdateTransactionStatus(ctx context.Context, id uuid.UUID, status models.TransactionStatus, description string) error {
	if !models.StatusPending.CanTransitionTo(status) {
		return fmt.Errorf("invalid status transition to %s", status)
	}

	// The status guard in the WHERE clause makes the pending->terminal
	// transition one-shot even under concurrent processors.
	query := `
		UPDATE transactions
		SET status = $1, description = $2
		WHERE id = $3 AND status = $4`
	res, err := r.db.ExecContext(ctx, query, status, description, id, models.StatusPending)
	if err != nil {
		return fmt.Errorf("error updating transaction status: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("error reading rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: transaction %s", repository.ErrAlreadyFinalized, id)
	}

	return nil
}

func (r *postgresProcessingRepo) CreditBalance(ctx context.Context, userID uuid.UUID, amount decimal.Decimal) (decimal.Decimal, error) {
	var newBalance decimal.Decimal
	query := `
		UPDATE users
		SET balance = balance + $1
		WHERE id = $2
		RETURNING balance`
	err := r.db.GetContext(ctx, &newBalance, query, amount, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return decimal.Zero, fmt.Errorf("%w: user %s", repository.ErrNotFound, userID)
		}
		return decimal.Zero, fmt.Errorf("error crediting balance: %w", err)
	}

	return newBalance, nil
}

func (r *postgresProcessingRepo) DebitBalance(ctx context.Context, userID uuid.UUID, amount decimal.Decimal) (decimal.Decimal, error) {
	var newBalance decimal.Decimal
	// The balance check is part of the update itself, so two concurrent
	// debits cannot both pass a stale sufficiency check.
	query := `
		UPDATE users
		SET balance = balance - $1
		WHERE id = $2 AND balance >= $1
		RETURNING balance`
	err := r.db.GetContext(ctx, &newBalance, query, amount, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return decimal.Zero, fmt.Errorf("%w: user %s", repository.ErrInsufficientFunds, userID)
		}
		return decimal.Zero, fmt.Errorf("error debiting balance: %w", err)
	}

	return newBalance, nil
}

func (r *postgresProcessingRepo) AppendAuditEntry(ctx context.Context, entry models.AuditLogEntry) error {
	metadata, err := json.Marshal(entry.Metadata)
	if err != nil {
		return fmt.Errorf("error encoding audit metadata: %w", err)
	}

	const query = `INSERT INTO audit_log
		(id, action, resource_type, resource_id, metadata, actor, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err = r.db.ExecContext(ctx, query,
		entry.ID,
		entry.Action,
		entry.ResourceType,
		entry.ResourceID,
		metadata,
		entry.Actor,
		entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("error appending audit entry: %w", err)
	}

	return nil
}
