package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/atelier-labs/commission-api/internal/models"
)

// QueueSettingsRepository handles persistence of per-artist capacity policy.
type QueueSettingsRepository struct {
	db *sqlx.DB
}

// NewQueueSettingsRepository constructs the repository.
func NewQueueSettingsRepository(db *sqlx.DB) *QueueSettingsRepository {
	return &QueueSettingsRepository{db: db}
}

// Find returns the artist's settings. Callers translate sql.ErrNoRows into
// the default policy.
func (r *QueueSettingsRepository) Find(ctx context.Context, artistID string) (*models.QueueSettings, error) {
	const query = `SELECT artist_id, max_queue_slots, allow_waitlist, auto_promote_waitlist, is_open, updated_at
        FROM queue_settings WHERE artist_id = $1`
	var settings models.QueueSettings
	if err := r.db.GetContext(ctx, &settings, query, artistID); err != nil {
		return nil, err
	}
	return &settings, nil
}

// Upsert saves the artist's settings, replacing any previous row.
func (r *QueueSettingsRepository) Upsert(ctx context.Context, settings *models.QueueSettings) error {
	settings.UpdatedAt = time.Now().UTC()
	const query = `INSERT INTO queue_settings (artist_id, max_queue_slots, allow_waitlist, auto_promote_waitlist, is_open, updated_at)
        VALUES (:artist_id, :max_queue_slots, :allow_waitlist, :auto_promote_waitlist, :is_open, :updated_at)
        ON CONFLICT (artist_id) DO UPDATE SET
            max_queue_slots = EXCLUDED.max_queue_slots,
            allow_waitlist = EXCLUDED.allow_waitlist,
            auto_promote_waitlist = EXCLUDED.auto_promote_waitlist,
            is_open = EXCLUDED.is_open,
            updated_at = EXCLUDED.updated_at`
	if _, err := r.db.NamedExecContext(ctx, query, settings); err != nil {
		return fmt.Errorf("upsert queue settings: %w", err)
	}
	return nil
}
