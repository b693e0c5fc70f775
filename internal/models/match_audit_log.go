package models

import (
	"time"

	"github.com/google/uuid"
)

// MatchAuditLog records every manual resolution of a reconciliation match.
type MatchAuditLog struct {
	ID                        uuid.UUID `gorm:"type:uuid;primaryKey"`
	MatchID                   uuid.UUID `gorm:"index"`
	Action                    string
	PreviousSystemTransaction *uuid.UUID
	NewSystemTransaction      *uuid.UUID
	PerformedBy               string
	Reason                    string
	CreatedAt                 time.Time
}
