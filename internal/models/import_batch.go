package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	BatchStatusProcessing = "processing"
	BatchStatusCompleted  = "completed"
	BatchStatusFailed     = "failed"
)

// ImportBatch tracks one CSV statement import and the outcome counts of the
// reconciliation run over it.
type ImportBatch struct {
	ID                uuid.UUID `gorm:"type:uuid;primaryKey"`
	OrganizationID    uuid.UUID `gorm:"type:uuid;index"`
	Filename          string
	TotalTransactions int
	MatchedCount      int
	PotentialCount    int
	UnmatchedCount    int
	Status            string
	StartedAt         time.Time
	CompletedAt       *time.Time
	CreatedAt         time.Time
}
