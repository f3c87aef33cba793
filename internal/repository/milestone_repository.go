package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/atelier-labs/commission-api/internal/models"
)

// MilestoneRepository handles persistence of milestones and approval
// checkpoints.
type MilestoneRepository struct {
	db *sqlx.DB
}

// NewMilestoneRepository constructs the repository.
func NewMilestoneRepository(db *sqlx.DB) *MilestoneRepository {
	return &MilestoneRepository{db: db}
}

// FindByID returns a milestone by its ID.
func (r *MilestoneRepository) FindByID(ctx context.Context, id string) (*models.Milestone, error) {
	const query = `SELECT id, commission_id, number, title, description, amount, payment_status, is_locked, created_at
        FROM milestones WHERE id = $1`
	var m models.Milestone
	if err := r.db.GetContext(ctx, &m, query, id); err != nil {
		return nil, err
	}
	return &m, nil
}

// ListByCommission returns a commission's milestones ordered by number.
func (r *MilestoneRepository) ListByCommission(ctx context.Context, commissionID string) ([]models.Milestone, error) {
	const query = `SELECT id, commission_id, number, title, description, amount, payment_status, is_locked, created_at
        FROM milestones WHERE commission_id = $1 ORDER BY number ASC`
	var milestones []models.Milestone
	if err := r.db.SelectContext(ctx, &milestones, query, commissionID); err != nil {
		return nil, fmt.Errorf("list milestones: %w", err)
	}
	return milestones, nil
}

// FindByCommissionAndNumber returns one milestone of a commission by its
// 1-based number.
func (r *MilestoneRepository) FindByCommissionAndNumber(ctx context.Context, commissionID string, number int) (*models.Milestone, error) {
	const query = `SELECT id, commission_id, number, title, description, amount, payment_status, is_locked, created_at
        FROM milestones WHERE commission_id = $1 AND number = $2`
	var m models.Milestone
	if err := r.db.GetContext(ctx, &m, query, commissionID, number); err != nil {
		return nil, err
	}
	return &m, nil
}

// Counts aggregates total and paid milestone counts for a commission.
func (r *MilestoneRepository) Counts(ctx context.Context, commissionID string) (models.MilestoneCounts, error) {
	const query = `SELECT COUNT(*) AS total, COUNT(*) FILTER (WHERE payment_status = $2) AS paid
        FROM milestones WHERE commission_id = $1`
	var counts models.MilestoneCounts
	if err := r.db.GetContext(ctx, &counts, query, commissionID, models.PaymentStatusPaid); err != nil {
		return models.MilestoneCounts{}, fmt.Errorf("count milestones: %w", err)
	}
	return counts, nil
}

// Unlock clears a milestone's lock.
func (r *MilestoneRepository) Unlock(ctx context.Context, id string) error {
	const query = `UPDATE milestones SET is_locked = FALSE WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("unlock milestone: %w", err)
	}
	return nil
}

// MarkPaid flips a milestone to PAID. Only the payment capture path calls
// this. Returns sql.ErrNoRows when the milestone was already paid, which
// keeps capture retries idempotent.
func (r *MilestoneRepository) MarkPaid(ctx context.Context, id string) error {
	const query = `UPDATE milestones SET payment_status = $2 WHERE id = $1 AND payment_status = $3`
	res, err := r.db.ExecContext(ctx, query, id, models.PaymentStatusPaid, models.PaymentStatusUnpaid)
	if err != nil {
		return fmt.Errorf("mark milestone paid: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark milestone paid: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// CreateCheckpoint appends a new approval checkpoint row.
func (r *MilestoneRepository) CreateCheckpoint(ctx context.Context, cp *models.ApprovalCheckpoint) error {
	if cp.ID == "" {
		cp.ID = uuid.NewString()
	}
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = time.Now().UTC()
	}
	if cp.ApprovalStatus == "" {
		cp.ApprovalStatus = models.ApprovalStatusPending
	}
	const query = `INSERT INTO approval_checkpoints (id, milestone_id, image_url, additional_images, notes, approval_status, approval_notes, approved_at, created_at)
        VALUES (:id, :milestone_id, :image_url, :additional_images, :notes, :approval_status, :approval_notes, :approved_at, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, cp); err != nil {
		return fmt.Errorf("create checkpoint: %w", err)
	}
	return nil
}

// FindCheckpointByID returns a checkpoint by its ID.
func (r *MilestoneRepository) FindCheckpointByID(ctx context.Context, id string) (*models.ApprovalCheckpoint, error) {
	const query = `SELECT id, milestone_id, image_url, additional_images, notes, approval_status, approval_notes, approved_at, created_at
        FROM approval_checkpoints WHERE id = $1`
	var cp models.ApprovalCheckpoint
	if err := r.db.GetContext(ctx, &cp, query, id); err != nil {
		return nil, err
	}
	return &cp, nil
}

// ListCheckpointsByMilestone returns a milestone's checkpoint rows, oldest
// first. Superseded rejections stay in the list for audit.
func (r *MilestoneRepository) ListCheckpointsByMilestone(ctx context.Context, milestoneID string) ([]models.ApprovalCheckpoint, error) {
	const query = `SELECT id, milestone_id, image_url, additional_images, notes, approval_status, approval_notes, approved_at, created_at
        FROM approval_checkpoints WHERE milestone_id = $1 ORDER BY created_at ASC`
	var checkpoints []models.ApprovalCheckpoint
	if err := r.db.SelectContext(ctx, &checkpoints, query, milestoneID); err != nil {
		return nil, fmt.Errorf("list checkpoints: %w", err)
	}
	return checkpoints, nil
}

// HasPendingCheckpoint checks whether an undecided checkpoint exists for the
// milestone.
func (r *MilestoneRepository) HasPendingCheckpoint(ctx context.Context, milestoneID string) (bool, error) {
	const query = `SELECT 1 FROM approval_checkpoints WHERE milestone_id = $1 AND approval_status = $2 LIMIT 1`
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, milestoneID, models.ApprovalStatusPending); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check pending checkpoint: %w", err)
	}
	return true, nil
}

// DecideCheckpoint records the client's approve/reject decision on a pending
// checkpoint. Returns sql.ErrNoRows when the checkpoint was already decided.
func (r *MilestoneRepository) DecideCheckpoint(ctx context.Context, id string, status models.ApprovalStatus, notes *string, approvedAt *time.Time) error {
	const query = `UPDATE approval_checkpoints SET approval_status = $2, approval_notes = $3, approved_at = $4 WHERE id = $1 AND approval_status = $5`
	res, err := r.db.ExecContext(ctx, query, id, status, notes, approvedAt, models.ApprovalStatusPending)
	if err != nil {
		return fmt.Errorf("decide checkpoint: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("decide checkpoint: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
