package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// User carries the slice of the account entity the processing engine needs:
// the available USD-equivalent balance and the account creation time used by
// the new-account fraud indicator.
type User struct {
	ID        uuid.UUID       `json:"id" db:"id"`
	Balance   decimal.Decimal `json:"balance" db:"balance"`
	CreatedAt time.Time       `json:"created_at" db:"created_at"`
}
