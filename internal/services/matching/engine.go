package matching

import (
	"math"
	"sort"
	"time"

	"property-ledger-backend/internal/models"

	"github.com/google/uuid"
)

const (
	// Amounts closer than this are considered equal.
	amountTolerance = 0.01

	confidenceExact  = 95
	confidencePotent = 70
	confidenceManual = 100
)

// Outcome is the engine's verdict for one bank transaction.
type Outcome struct {
	BankTransactionID   uuid.UUID
	SystemTransactionID *uuid.UUID
	Status              string
	Confidence          float64
	CandidateCount      int
}

// Reconcile classifies every bank transaction against the offered system
// transactions. The run is deterministic: bank rows are processed in
// ascending date order with ties broken by import order, and a system
// transaction is consumed by at most one exact match per run. Amount signs
// are ignored (bank debits and system expenses use opposite conventions);
// dates must match to the day.
func Reconcile(bankTxs []models.BankTransaction, sysTxs []models.SystemTransaction) []Outcome {
	ordered := make([]models.BankTransaction, len(bankTxs))
	copy(ordered, bankTxs)
	sort.SliceStable(ordered, func(i, j int) bool {
		if !ordered[i].TransactionDate.Equal(ordered[j].TransactionDate) {
			return ordered[i].TransactionDate.Before(ordered[j].TransactionDate)
		}
		return ordered[i].ImportOrder < ordered[j].ImportOrder
	})

	consumed := make(map[uuid.UUID]bool)
	outcomes := make([]Outcome, 0, len(ordered))

	for _, bankTx := range ordered {
		var candidates []models.SystemTransaction
		for _, sysTx := range sysTxs {
			if consumed[sysTx.ID] {
				continue
			}
			if !sameDay(bankTx.TransactionDate, sysTx.Date) {
				continue
			}
			if math.Abs(math.Abs(bankTx.Amount)-sysTx.Amount) >= amountTolerance {
				continue
			}
			candidates = append(candidates, sysTx)
		}

		outcome := Outcome{
			BankTransactionID: bankTx.ID,
			CandidateCount:    len(candidates),
		}
		switch len(candidates) {
		case 0:
			outcome.Status = models.MatchStatusUnmatched
		case 1:
			id := candidates[0].ID
			outcome.Status = models.MatchStatusMatched
			outcome.Confidence = confidenceExact
			outcome.SystemTransactionID = &id
			consumed[id] = true
		default:
			// Ambiguous: suggest the first candidate but leave it in the
			// pool for manual resolution.
			id := candidates[0].ID
			outcome.Status = models.MatchStatusPotential
			outcome.Confidence = confidencePotent
			outcome.SystemTransactionID = &id
		}
		outcomes = append(outcomes, outcome)
	}

	return outcomes
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
