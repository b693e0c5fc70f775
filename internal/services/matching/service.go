package matching

import (
	"context"
	"encoding/json"
	"time"

	"property-ledger-backend/internal/models"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/datatypes"
)

// Store is what the matching service needs from the ledger.
type Store interface {
	CreateBatch(ctx context.Context, batch *models.ImportBatch) error
	SaveBatch(ctx context.Context, batch *models.ImportBatch) error
	GetBatch(ctx context.Context, id uuid.UUID) (*models.ImportBatch, error)
	CreateBankTransactions(ctx context.Context, txs []models.BankTransaction) error
	ListBankTransactions(ctx context.Context, batchID uuid.UUID) ([]models.BankTransaction, error)
	ListOpenSystemTransactions(ctx context.Context, orgID uuid.UUID) ([]models.SystemTransaction, error)
	GetSystemTransaction(ctx context.Context, id uuid.UUID) (*models.SystemTransaction, error)
	SetSystemTransactionReconciled(ctx context.Context, id uuid.UUID, reconciled bool) error
	CreateMatches(ctx context.Context, matches []models.ReconciliationMatch) error
	GetMatch(ctx context.Context, id uuid.UUID) (*models.ReconciliationMatch, error)
	SaveMatch(ctx context.Context, m *models.ReconciliationMatch) error
	ListMatchesByBatch(ctx context.Context, batchID uuid.UUID) ([]models.ReconciliationMatch, error)
	ListMatchesPage(ctx context.Context, batchID uuid.UUID, status, cursor string, limit int) ([]models.ReconciliationMatch, string, bool, error)
	CreateAuditLog(ctx context.Context, entry *models.MatchAuditLog) error
}

type Service struct {
	store Store
	log   zerolog.Logger
}

func NewService(store Store, log zerolog.Logger) *Service {
	return &Service{store: store, log: log.With().Str("component", "matching").Logger()}
}

// BankTransactionInput is one statement row handed in by the importer.
type BankTransactionInput struct {
	Date        time.Time
	Amount      float64
	Description string
	Reference   string
}

// ImportBatch records the statement rows, runs the matching engine over them
// against the open system transactions, and persists the classified matches.
func (s *Service) ImportBatch(ctx context.Context, orgID uuid.UUID, filename string, rows []BankTransactionInput) (*models.ImportBatch, []models.ReconciliationMatch, error) {
	now := time.Now()
	batch := &models.ImportBatch{
		ID:                uuid.New(),
		OrganizationID:    orgID,
		Filename:          filename,
		TotalTransactions: len(rows),
		Status:            models.BatchStatusProcessing,
		StartedAt:         now,
		CreatedAt:         now,
	}
	if err := s.store.CreateBatch(ctx, batch); err != nil {
		return nil, nil, err
	}

	bankTxs := make([]models.BankTransaction, len(rows))
	for i, row := range rows {
		bankTxs[i] = models.BankTransaction{
			ID:              uuid.New(),
			ImportBatchID:   batch.ID,
			TransactionDate: row.Date,
			Description:     row.Description,
			Amount:          row.Amount,
			ReferenceNumber: row.Reference,
			ImportOrder:     i,
			CreatedAt:       now,
		}
	}
	if err := s.store.CreateBankTransactions(ctx, bankTxs); err != nil {
		return nil, nil, err
	}

	sysTxs, err := s.store.ListOpenSystemTransactions(ctx, orgID)
	if err != nil {
		return nil, nil, err
	}

	outcomes := Reconcile(bankTxs, sysTxs)
	matches := make([]models.ReconciliationMatch, len(outcomes))
	for i, out := range outcomes {
		matches[i] = s.buildMatch(batch.ID, out, now)
		switch out.Status {
		case models.MatchStatusMatched:
			batch.MatchedCount++
			if err := s.store.SetSystemTransactionReconciled(ctx, *out.SystemTransactionID, true); err != nil {
				return nil, nil, err
			}
		case models.MatchStatusPotential:
			batch.PotentialCount++
		default:
			batch.UnmatchedCount++
		}
	}
	if err := s.store.CreateMatches(ctx, matches); err != nil {
		return nil, nil, err
	}

	completed := time.Now()
	batch.Status = models.BatchStatusCompleted
	batch.CompletedAt = &completed
	if err := s.store.SaveBatch(ctx, batch); err != nil {
		return nil, nil, err
	}

	s.log.Info().
		Str("batch_id", batch.ID.String()).
		Int("total", batch.TotalTransactions).
		Int("matched", batch.MatchedCount).
		Int("potential", batch.PotentialCount).
		Int("unmatched", batch.UnmatchedCount).
		Msg("import batch reconciled")
	return batch, matches, nil
}

// RerunBatch reclassifies a batch's matches against the currently open
// system transactions. Manually resolved matches are left untouched.
func (s *Service) RerunBatch(ctx context.Context, batchID uuid.UUID) ([]models.ReconciliationMatch, error) {
	batch, err := s.store.GetBatch(ctx, batchID)
	if err != nil {
		return nil, err
	}
	bankTxs, err := s.store.ListBankTransactions(ctx, batchID)
	if err != nil {
		return nil, err
	}
	existing, err := s.store.ListMatchesByBatch(ctx, batchID)
	if err != nil {
		return nil, err
	}
	sysTxs, err := s.store.ListOpenSystemTransactions(ctx, batch.OrganizationID)
	if err != nil {
		return nil, err
	}

	byBankTx := make(map[uuid.UUID]*models.ReconciliationMatch, len(existing))
	for i := range existing {
		byBankTx[existing[i].BankTransactionID] = &existing[i]
	}

	// System transactions held by this batch's own automatic matches are
	// marked reconciled and so missing from the open listing. Offer them back
	// to their rows, otherwise rerunning an unchanged batch would unmatch
	// every one of them.
	for i := range existing {
		m := &existing[i]
		if m.ManuallyResolved || m.Status != models.MatchStatusMatched || m.SystemTransactionID == nil {
			continue
		}
		held, err := s.store.GetSystemTransaction(ctx, *m.SystemTransactionID)
		if err != nil {
			return nil, err
		}
		sysTxs = append(sysTxs, *held)
	}

	var rerun []models.BankTransaction
	for _, tx := range bankTxs {
		if m, ok := byBankTx[tx.ID]; ok && m.ManuallyResolved {
			continue
		}
		rerun = append(rerun, tx)
	}

	now := time.Now()
	batch.MatchedCount, batch.PotentialCount, batch.UnmatchedCount = 0, 0, 0
	for _, out := range Reconcile(rerun, sysTxs) {
		m := byBankTx[out.BankTransactionID]
		if m == nil {
			continue
		}
		// Release a system transaction held by the previous automatic match.
		if m.Status == models.MatchStatusMatched && m.SystemTransactionID != nil &&
			(out.SystemTransactionID == nil || *m.SystemTransactionID != *out.SystemTransactionID) {
			if err := s.store.SetSystemTransactionReconciled(ctx, *m.SystemTransactionID, false); err != nil {
				return nil, err
			}
		}
		m.Status = out.Status
		m.Confidence = out.Confidence
		m.SystemTransactionID = out.SystemTransactionID
		m.MatchDetails = matchDetails(out)
		m.UpdatedAt = now
		if out.Status == models.MatchStatusMatched {
			if err := s.store.SetSystemTransactionReconciled(ctx, *out.SystemTransactionID, true); err != nil {
				return nil, err
			}
		}
		if err := s.store.SaveMatch(ctx, m); err != nil {
			return nil, err
		}
	}

	result := make([]models.ReconciliationMatch, 0, len(existing))
	for _, tx := range bankTxs {
		if m, ok := byBankTx[tx.ID]; ok {
			switch m.Status {
			case models.MatchStatusMatched:
				batch.MatchedCount++
			case models.MatchStatusPotential:
				batch.PotentialCount++
			default:
				batch.UnmatchedCount++
			}
			result = append(result, *m)
		}
	}
	if err := s.store.SaveBatch(ctx, batch); err != nil {
		return nil, err
	}
	return result, nil
}

// ResolveMatch is the operator override: force-set or clear the system
// transaction on a match. A confirmed resolution gets confidence 100 and is
// the only path by which a potential or unmatched row becomes eligible for
// downstream application. Every resolution is appended to the audit log.
func (s *Service) ResolveMatch(ctx context.Context, matchID uuid.UUID, systemTransactionID *uuid.UUID, performedBy, reason string) (*models.ReconciliationMatch, error) {
	m, err := s.store.GetMatch(ctx, matchID)
	if err != nil {
		return nil, err
	}

	previous := m.SystemTransactionID
	action := "manual_match"

	// Release whatever the match previously held.
	if previous != nil && m.Status == models.MatchStatusMatched {
		if err := s.store.SetSystemTransactionReconciled(ctx, *previous, false); err != nil {
			return nil, err
		}
	}

	if systemTransactionID != nil {
		if _, err := s.store.GetSystemTransaction(ctx, *systemTransactionID); err != nil {
			return nil, err
		}
		m.SystemTransactionID = systemTransactionID
		m.Status = models.MatchStatusMatched
		m.Confidence = confidenceManual
		if err := s.store.SetSystemTransactionReconciled(ctx, *systemTransactionID, true); err != nil {
			return nil, err
		}
	} else {
		action = "manual_clear"
		m.SystemTransactionID = nil
		m.Status = models.MatchStatusUnmatched
		m.Confidence = 0
	}
	m.ManuallyResolved = true
	m.UpdatedAt = time.Now()
	if err := s.store.SaveMatch(ctx, m); err != nil {
		return nil, err
	}

	entry := &models.MatchAuditLog{
		ID:                        uuid.New(),
		MatchID:                   m.ID,
		Action:                    action,
		PreviousSystemTransaction: previous,
		NewSystemTransaction:      systemTransactionID,
		PerformedBy:               performedBy,
		Reason:                    reason,
		CreatedAt:                 time.Now(),
	}
	if err := s.store.CreateAuditLog(ctx, entry); err != nil {
		return nil, err
	}

	s.log.Info().
		Str("match_id", m.ID.String()).
		Str("action", action).
		Str("performed_by", performedBy).
		Msg("match resolved")
	return m, nil
}

func (s *Service) GetBatch(ctx context.Context, batchID uuid.UUID) (*models.ImportBatch, error) {
	return s.store.GetBatch(ctx, batchID)
}

func (s *Service) ListMatches(ctx context.Context, batchID uuid.UUID, status, cursor string, limit int) ([]models.ReconciliationMatch, string, bool, error) {
	return s.store.ListMatchesPage(ctx, batchID, status, cursor, limit)
}

func (s *Service) buildMatch(batchID uuid.UUID, out Outcome, now time.Time) models.ReconciliationMatch {
	return models.ReconciliationMatch{
		ID:                  uuid.New(),
		ImportBatchID:       batchID,
		BankTransactionID:   out.BankTransactionID,
		SystemTransactionID: out.SystemTransactionID,
		Status:              out.Status,
		Confidence:          out.Confidence,
		MatchDetails:        matchDetails(out),
		CreatedAt:           now,
		UpdatedAt:           now,
	}
}

func matchDetails(out Outcome) datatypes.JSON {
	details := map[string]interface{}{
		"candidate_count": out.CandidateCount,
		"decision":        out.Status,
		"confidence":      out.Confidence,
	}
	b, _ := json.Marshal(details)
	return datatypes.JSON(b)
}
