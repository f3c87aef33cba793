package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/atelier-labs/commission-api/internal/models"
)

// BidAward carries the request/bid pair settled alongside commission
// creation when a bid is accepted.
type BidAward struct {
	RequestID string
	BidID     string
}

// CommissionRepository handles persistence of commissions and their queue
// placement.
type CommissionRepository struct {
	db *sqlx.DB
}

// NewCommissionRepository constructs the repository.
func NewCommissionRepository(db *sqlx.DB) *CommissionRepository {
	return &CommissionRepository{db: db}
}

// FindByID returns a commission by its ID.
func (r *CommissionRepository) FindByID(ctx context.Context, id string) (*models.Commission, error) {
	const query = `SELECT id, request_id, client_id, artist_id, status, queue_state, queue_position, final_price, cancellation_reason, created_at, updated_at
        FROM commissions WHERE id = $1`
	var c models.Commission
	if err := r.db.GetContext(ctx, &c, query, id); err != nil {
		return nil, err
	}
	return &c, nil
}

// CountByQueueState returns how many of the artist's commissions sit in the
// given queue partition.
func (r *CommissionRepository) CountByQueueState(ctx context.Context, artistID string, state models.QueueState) (int, error) {
	const query = `SELECT COUNT(*) FROM commissions WHERE artist_id = $1 AND queue_state = $2`
	var count int
	if err := r.db.GetContext(ctx, &count, query, artistID, state); err != nil {
		return 0, fmt.Errorf("count queue partition: %w", err)
	}
	return count, nil
}

// ListByArtistAndState returns the artist's commissions in one queue
// partition ordered by position.
func (r *CommissionRepository) ListByArtistAndState(ctx context.Context, artistID string, state models.QueueState) ([]models.Commission, error) {
	const query = `SELECT id, request_id, client_id, artist_id, status, queue_state, queue_position, final_price, cancellation_reason, created_at, updated_at
        FROM commissions WHERE artist_id = $1 AND queue_state = $2 ORDER BY queue_position ASC`
	var commissions []models.Commission
	if err := r.db.SelectContext(ctx, &commissions, query, artistID, state); err != nil {
		return nil, fmt.Errorf("list queue partition: %w", err)
	}
	return commissions, nil
}

// List returns commissions filtered by the provided criteria.
func (r *CommissionRepository) List(ctx context.Context, filter models.CommissionFilter) ([]models.Commission, int, error) {
	base := "FROM commissions"
	var conditions []string
	var args []interface{}

	if filter.ClientID != "" {
		conditions = append(conditions, fmt.Sprintf("client_id = $%d", len(args)+1))
		args = append(args, filter.ClientID)
	}
	if filter.ArtistID != "" {
		conditions = append(conditions, fmt.Sprintf("artist_id = $%d", len(args)+1))
		args = append(args, filter.ArtistID)
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}
	if filter.QueueState != "" {
		conditions = append(conditions, fmt.Sprintf("queue_state = $%d", len(args)+1))
		args = append(args, filter.QueueState)
	}

	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT id, request_id, client_id, artist_id, status, queue_state, queue_position, final_price, cancellation_reason, created_at, updated_at
        %s ORDER BY created_at DESC LIMIT %d OFFSET %d`, base+clause, size, offset)

	var commissions []models.Commission
	if err := r.db.SelectContext(ctx, &commissions, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list commissions: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base+clause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count commissions: %w", err)
	}
	return commissions, total, nil
}

// CreateWithMilestones inserts a commission with its fixed milestone batch,
// and, when award is set, settles the originating request and bids in the
// same transaction. Partial application is never observable.
func (r *CommissionRepository) CreateWithMilestones(ctx context.Context, c *models.Commission, milestones []models.Milestone, award *BidAward) (err error) {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	c.UpdatedAt = now

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin commission transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	const insertCommission = `INSERT INTO commissions (id, request_id, client_id, artist_id, status, queue_state, queue_position, final_price, cancellation_reason, created_at, updated_at)
        VALUES (:id, :request_id, :client_id, :artist_id, :status, :queue_state, :queue_position, :final_price, :cancellation_reason, :created_at, :updated_at)`
	if _, err = tx.NamedExecContext(ctx, insertCommission, c); err != nil {
		return fmt.Errorf("insert commission: %w", err)
	}

	const insertMilestone = `INSERT INTO milestones (id, commission_id, number, title, description, amount, payment_status, is_locked, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	for i := range milestones {
		m := &milestones[i]
		if m.ID == "" {
			m.ID = uuid.NewString()
		}
		m.CommissionID = c.ID
		if m.CreatedAt.IsZero() {
			m.CreatedAt = now
		}
		if _, err = tx.ExecContext(ctx, insertMilestone, m.ID, m.CommissionID, m.Number, m.Title, m.Description, m.Amount, m.PaymentStatus, m.IsLocked, m.CreatedAt); err != nil {
			return fmt.Errorf("insert milestone %d: %w", m.Number, err)
		}
	}

	if award != nil {
		const acceptBid = `UPDATE bids SET status = $2 WHERE id = $1`
		if _, err = tx.ExecContext(ctx, acceptBid, award.BidID, models.BidStatusAccepted); err != nil {
			return fmt.Errorf("accept bid: %w", err)
		}
		const rejectSiblings = `UPDATE bids SET status = $3 WHERE request_id = $1 AND id <> $2 AND status = $4`
		if _, err = tx.ExecContext(ctx, rejectSiblings, award.RequestID, award.BidID, models.BidStatusRejected, models.BidStatusPending); err != nil {
			return fmt.Errorf("reject sibling bids: %w", err)
		}
		const awardRequest = `UPDATE commission_requests SET status = $2 WHERE id = $1`
		if _, err = tx.ExecContext(ctx, awardRequest, award.RequestID, models.RequestStatusAwarded); err != nil {
			return fmt.Errorf("award request: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit commission transaction: %w", err)
	}
	return nil
}

// TransitionStatus flips the commission status only when the current status
// still matches the expected one, recording the cancellation reason when one
// applies. A lost race surfaces as sql.ErrNoRows instead of a silent
// overwrite, the same contract MarkPaid and DecideCheckpoint follow.
func (r *CommissionRepository) TransitionStatus(ctx context.Context, id string, from, to models.CommissionStatus, cancellationReason *string) error {
	const query = `UPDATE commissions SET status = $3, cancellation_reason = $4, updated_at = $5 WHERE id = $1 AND status = $2`
	res, err := r.db.ExecContext(ctx, query, id, from, to, cancellationReason, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("transition commission status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("transition commission status: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ReleasePlacement removes the commission from its queue partition and
// closes the positional gap, keeping positions dense 1..N. Both writes
// happen in one transaction. The clear is conditional on the placement the
// caller observed; an already-released commission returns sql.ErrNoRows so
// the gap is never compacted twice.
func (r *CommissionRepository) ReleasePlacement(ctx context.Context, id, artistID string, state models.QueueState, position int) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin release transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	const clear = `UPDATE commissions SET queue_state = $4, queue_position = NULL, updated_at = $5 WHERE id = $1 AND queue_state = $2 AND queue_position = $3`
	res, err := tx.ExecContext(ctx, clear, id, state, position, models.QueueStateNone, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("clear queue placement: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("clear queue placement: %w", err)
	}
	if affected == 0 {
		err = sql.ErrNoRows
		return err
	}

	const shift = `UPDATE commissions SET queue_position = queue_position - 1 WHERE artist_id = $1 AND queue_state = $2 AND queue_position > $3`
	if _, err = tx.ExecContext(ctx, shift, artistID, state, position); err != nil {
		return fmt.Errorf("compact queue positions: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit release transaction: %w", err)
	}
	return nil
}

// PromoteFirstWaitlisted moves the head of the artist's waitlist into the
// active partition at the given position and renumbers the remaining
// waitlist densely from 1. Returns nil when the waitlist is empty.
func (r *CommissionRepository) PromoteFirstWaitlisted(ctx context.Context, artistID string, activePosition int) (promoted *models.Commission, err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin promote transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var head models.Commission
	const selectHead = `SELECT id, request_id, client_id, artist_id, status, queue_state, queue_position, final_price, cancellation_reason, created_at, updated_at
        FROM commissions WHERE artist_id = $1 AND queue_state = $2 ORDER BY queue_position ASC LIMIT 1 FOR UPDATE`
	if err = tx.GetContext(ctx, &head, selectHead, artistID, models.QueueStateWaitlisted); err != nil {
		if err == sql.ErrNoRows {
			err = nil
			_ = tx.Rollback()
			return nil, nil
		}
		return nil, fmt.Errorf("lock waitlist head: %w", err)
	}

	const promote = `UPDATE commissions SET queue_state = $2, queue_position = $3, updated_at = $4 WHERE id = $1`
	if _, err = tx.ExecContext(ctx, promote, head.ID, models.QueueStateActive, activePosition, time.Now().UTC()); err != nil {
		return nil, fmt.Errorf("promote waitlist head: %w", err)
	}

	headPosition := 0
	if head.QueuePosition != nil {
		headPosition = *head.QueuePosition
	}
	const renumber = `UPDATE commissions SET queue_position = queue_position - 1 WHERE artist_id = $1 AND queue_state = $2 AND queue_position > $3`
	if _, err = tx.ExecContext(ctx, renumber, artistID, models.QueueStateWaitlisted, headPosition); err != nil {
		return nil, fmt.Errorf("renumber waitlist: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit promote transaction: %w", err)
	}

	head.QueueState = models.QueueStateActive
	pos := activePosition
	head.QueuePosition = &pos
	return &head, nil
}
