package events

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransactionProcessed is published after a transaction commits.
type TransactionProcessed struct {
	TransactionID uuid.UUID       `json:"transaction_id"`
	UserID        uuid.UUID       `json:"user_id"`
	Amount        decimal.Decimal `json:"amount"`
	Type          string          `json:"type"`
	Confidence    float64         `json:"confidence"`
	FraudScore    float64         `json:"fraud_score"`
	OccurredAt    time.Time       `json:"occurred_at"`
}
