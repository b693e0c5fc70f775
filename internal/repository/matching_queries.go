package repository

import (
	"context"

	"property-ledger-backend/internal/models"

	"github.com/google/uuid"
)

// CreateBatch inserts a new ImportBatch.
func (l *Ledger) CreateBatch(ctx context.Context, batch *models.ImportBatch) error {
	return l.db.WithContext(ctx).Create(batch).Error
}

func (l *Ledger) SaveBatch(ctx context.Context, batch *models.ImportBatch) error {
	return l.db.WithContext(ctx).Save(batch).Error
}

func (l *Ledger) GetBatch(ctx context.Context, id uuid.UUID) (*models.ImportBatch, error) {
	var batch models.ImportBatch
	if err := l.db.WithContext(ctx).First(&batch, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &batch, nil
}

func (l *Ledger) CreateBankTransactions(ctx context.Context, txs []models.BankTransaction) error {
	if len(txs) == 0 {
		return nil
	}
	return l.db.WithContext(ctx).Create(&txs).Error
}

func (l *Ledger) ListBankTransactions(ctx context.Context, batchID uuid.UUID) ([]models.BankTransaction, error) {
	var txs []models.BankTransaction
	err := l.db.WithContext(ctx).
		Where("import_batch_id = ?", batchID).
		Order("import_order ASC").
		Find(&txs).Error
	return txs, err
}

// ListOpenSystemTransactions returns the system transactions still available
// to the matching engine, oldest first for deterministic candidate order.
func (l *Ledger) ListOpenSystemTransactions(ctx context.Context, orgID uuid.UUID) ([]models.SystemTransaction, error) {
	var txs []models.SystemTransaction
	err := l.db.WithContext(ctx).
		Where("organization_id = ? AND reconciled = ?", orgID, false).
		Order("date ASC, created_at ASC").
		Find(&txs).Error
	return txs, err
}

func (l *Ledger) GetSystemTransaction(ctx context.Context, id uuid.UUID) (*models.SystemTransaction, error) {
	var st models.SystemTransaction
	if err := l.db.WithContext(ctx).First(&st, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &st, nil
}

func (l *Ledger) SetSystemTransactionReconciled(ctx context.Context, id uuid.UUID, reconciled bool) error {
	return l.db.WithContext(ctx).Model(&models.SystemTransaction{}).
		Where("id = ?", id).
		Update("reconciled", reconciled).Error
}

func (l *Ledger) CreateMatches(ctx context.Context, matches []models.ReconciliationMatch) error {
	if len(matches) == 0 {
		return nil
	}
	return l.db.WithContext(ctx).Create(&matches).Error
}

func (l *Ledger) GetMatch(ctx context.Context, id uuid.UUID) (*models.ReconciliationMatch, error) {
	var m models.ReconciliationMatch
	if err := l.db.WithContext(ctx).First(&m, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &m, nil
}

func (l *Ledger) SaveMatch(ctx context.Context, m *models.ReconciliationMatch) error {
	return l.db.WithContext(ctx).Save(m).Error
}

func (l *Ledger) ListMatchesByBatch(ctx context.Context, batchID uuid.UUID) ([]models.ReconciliationMatch, error) {
	var matches []models.ReconciliationMatch
	err := l.db.WithContext(ctx).
		Where("import_batch_id = ?", batchID).
		Order("created_at ASC, id ASC").
		Find(&matches).Error
	return matches, err
}

// ListMatchesPage returns a page of a batch's matches with cursor pagination.
func (l *Ledger) ListMatchesPage(ctx context.Context, batchID uuid.UUID, status, cursor string, limit int) ([]models.ReconciliationMatch, string, bool, error) {
	var matches []models.ReconciliationMatch
	query := l.db.WithContext(ctx).
		Where("import_batch_id = ?", batchID).
		Order("id ASC").
		Limit(limit + 1)

	if status != "" && status != "all" {
		query = query.Where("status = ?", status)
	}
	if cursor != "" {
		query = query.Where("id > ?", cursor)
	}

	if err := query.Find(&matches).Error; err != nil {
		return nil, "", false, err
	}

	hasMore := false
	var nextCursor string
	if len(matches) > limit {
		hasMore = true
		nextCursor = matches[limit-1].ID.String()
		matches = matches[:limit]
	}
	return matches, nextCursor, hasMore, nil
}

func (l *Ledger) CreateAuditLog(ctx context.Context, entry *models.MatchAuditLog) error {
	return l.db.WithContext(ctx).Create(entry).Error
}
