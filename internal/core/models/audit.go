package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	// AuditActorSystem identifies the automated processor in audit records.
	AuditActorSystem = "RPA-System"

	AuditResourceTransaction = "Transaction"

	AuditActionProcessed = "transaction_processed"
	AuditActionRejected  = "transaction_rejected"
)

// AuditMetadata is the structured payload attached to an audit entry.
type AuditMetadata struct {
	Confidence float64  `json:"confidence"`
	FraudScore float64  `json:"fraud_score"`
	Warnings   []string `json:"warnings"`
}

// AuditLogEntry is an append-only record of a processing outcome.
// Entries are never updated or deleted.
type AuditLogEntry struct {
	ID           uuid.UUID     `json:"id" db:"id"`
	Action       string        `json:"action" db:"action"`
	ResourceType string        `json:"resource_type" db:"resource_type"`
	ResourceID   uuid.UUID     `json:"resource_id" db:"resource_id"`
	Metadata     AuditMetadata `json:"metadata" db:"-"`
	Actor        string        `json:"actor" db:"actor"`
	CreatedAt    time.Time     `json:"created_at" db:"created_at"`
}
