package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/atelier-labs/commission-api/internal/models"
)

// StateLogRepository handles the append-only commission transition ledger.
type StateLogRepository struct {
	db *sqlx.DB
}

// NewStateLogRepository constructs the repository.
func NewStateLogRepository(db *sqlx.DB) *StateLogRepository {
	return &StateLogRepository{db: db}
}

// Append records one accepted transition. Entries are never updated or
// deleted.
func (r *StateLogRepository) Append(ctx context.Context, entry *models.StateLogEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.ChangedAt.IsZero() {
		entry.ChangedAt = time.Now().UTC()
	}
	const query = `INSERT INTO commission_state_log (id, commission_id, from_status, to_status, changed_at)
        VALUES (:id, :commission_id, :from_status, :to_status, :changed_at)`
	if _, err := r.db.NamedExecContext(ctx, query, entry); err != nil {
		return fmt.Errorf("append state log: %w", err)
	}
	return nil
}

// ListByCommission returns the commission's ledger ordered by change time.
func (r *StateLogRepository) ListByCommission(ctx context.Context, commissionID string) ([]models.StateLogEntry, error) {
	const query = `SELECT id, commission_id, from_status, to_status, changed_at
        FROM commission_state_log WHERE commission_id = $1 ORDER BY changed_at ASC`
	var entries []models.StateLogEntry
	if err := r.db.SelectContext(ctx, &entries, query, commissionID); err != nil {
		return nil, fmt.Errorf("list state log: %w", err)
	}
	return entries, nil
}
