package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	MatchStatusMatched   = "matched"
	MatchStatusPotential = "potential"
	MatchStatusUnmatched = "unmatched"
)

// ReconciliationMatch pairs one bank transaction with at most one system
// transaction for a given import batch. Matches are never deleted; manual
// resolutions are layered on top and recorded in the audit log.
type ReconciliationMatch struct {
	ID                  uuid.UUID `gorm:"type:uuid;primaryKey"`
	ImportBatchID       uuid.UUID `gorm:"index"`
	BankTransactionID   uuid.UUID `gorm:"index"`
	SystemTransactionID *uuid.UUID
	Status              string `gorm:"index"`
	Confidence          float64
	ManuallyResolved    bool
	MatchDetails        datatypes.JSON
	CreatedAt           time.Time
	UpdatedAt           time.Time
}
