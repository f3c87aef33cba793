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

// RequestRepository handles persistence of commission requests and bids.
type RequestRepository struct {
	db *sqlx.DB
}

// NewRequestRepository constructs the repository.
func NewRequestRepository(db *sqlx.DB) *RequestRepository {
	return &RequestRepository{db: db}
}

// CreateRequest persists a new commission request.
func (r *RequestRepository) CreateRequest(ctx context.Context, req *models.CommissionRequest) error {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	if req.CreatedAt.IsZero() {
		req.CreatedAt = time.Now().UTC()
	}
	if req.Status == "" {
		req.Status = models.RequestStatusOpen
	}
	const query = `INSERT INTO commission_requests (id, client_id, title, description, budget_min, budget_max, preferred_styles, reference_images, status, created_at)
        VALUES (:id, :client_id, :title, :description, :budget_min, :budget_max, :preferred_styles, :reference_images, :status, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, req); err != nil {
		return fmt.Errorf("create commission request: %w", err)
	}
	return nil
}

// FindRequestByID returns a request by its ID.
func (r *RequestRepository) FindRequestByID(ctx context.Context, id string) (*models.CommissionRequest, error) {
	const query = `SELECT id, client_id, title, description, budget_min, budget_max, preferred_styles, reference_images, status, created_at
        FROM commission_requests WHERE id = $1`
	var req models.CommissionRequest
	if err := r.db.GetContext(ctx, &req, query, id); err != nil {
		return nil, err
	}
	return &req, nil
}

// ListRequests returns requests filtered by the provided criteria.
func (r *RequestRepository) ListRequests(ctx context.Context, filter models.RequestFilter) ([]models.CommissionRequest, int, error) {
	base := "FROM commission_requests"
	var conditions []string
	var args []interface{}

	if filter.ClientID != "" {
		conditions = append(conditions, fmt.Sprintf("client_id = $%d", len(args)+1))
		args = append(args, filter.ClientID)
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}

	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
	}

	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "DESC"
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

	query := fmt.Sprintf(`SELECT id, client_id, title, description, budget_min, budget_max, preferred_styles, reference_images, status, created_at
        %s ORDER BY created_at %s LIMIT %d OFFSET %d`, base+clause, order, size, offset)

	var requests []models.CommissionRequest
	if err := r.db.SelectContext(ctx, &requests, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list commission requests: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base+clause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count commission requests: %w", err)
	}
	return requests, total, nil
}

// CloseRequest flips an open request to CLOSED. Returns sql.ErrNoRows when
// the request is absent or no longer open.
func (r *RequestRepository) CloseRequest(ctx context.Context, id string) error {
	const query = `UPDATE commission_requests SET status = $2 WHERE id = $1 AND status = $3`
	res, err := r.db.ExecContext(ctx, query, id, models.RequestStatusClosed, models.RequestStatusOpen)
	if err != nil {
		return fmt.Errorf("close commission request: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("close commission request: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// CreateBid persists a new bid on a request.
func (r *RequestRepository) CreateBid(ctx context.Context, bid *models.Bid) error {
	if bid.ID == "" {
		bid.ID = uuid.NewString()
	}
	if bid.CreatedAt.IsZero() {
		bid.CreatedAt = time.Now().UTC()
	}
	if bid.Status == "" {
		bid.Status = models.BidStatusPending
	}
	const query = `INSERT INTO bids (id, request_id, artist_id, amount, estimated_delivery_days, message, status, created_at)
        VALUES (:id, :request_id, :artist_id, :amount, :estimated_delivery_days, :message, :status, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, bid); err != nil {
		return fmt.Errorf("create bid: %w", err)
	}
	return nil
}

// FindBidByID returns a bid by its ID.
func (r *RequestRepository) FindBidByID(ctx context.Context, id string) (*models.Bid, error) {
	const query = `SELECT id, request_id, artist_id, amount, estimated_delivery_days, message, status, created_at FROM bids WHERE id = $1`
	var bid models.Bid
	if err := r.db.GetContext(ctx, &bid, query, id); err != nil {
		return nil, err
	}
	return &bid, nil
}

// ListBidsByRequest returns all bids on a request ordered by creation time.
func (r *RequestRepository) ListBidsByRequest(ctx context.Context, requestID string) ([]models.Bid, error) {
	const query = `SELECT id, request_id, artist_id, amount, estimated_delivery_days, message, status, created_at
        FROM bids WHERE request_id = $1 ORDER BY created_at ASC`
	var bids []models.Bid
	if err := r.db.SelectContext(ctx, &bids, query, requestID); err != nil {
		return nil, fmt.Errorf("list bids: %w", err)
	}
	return bids, nil
}

// HasPendingBid checks whether the artist already has a pending bid on the
// request.
func (r *RequestRepository) HasPendingBid(ctx context.Context, requestID, artistID string) (bool, error) {
	const query = `SELECT 1 FROM bids WHERE request_id = $1 AND artist_id = $2 AND status = $3 LIMIT 1`
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, requestID, artistID, models.BidStatusPending); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check pending bid: %w", err)
	}
	return true, nil
}
