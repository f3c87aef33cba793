package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/atelier-labs/commission-api/internal/dto"
	"github.com/atelier-labs/commission-api/internal/models"
	"github.com/atelier-labs/commission-api/internal/repository"
	appErrors "github.com/atelier-labs/commission-api/pkg/errors"
)

type requestStore interface {
	CreateRequest(ctx context.Context, req *models.CommissionRequest) error
	FindRequestByID(ctx context.Context, id string) (*models.CommissionRequest, error)
	ListRequests(ctx context.Context, filter models.RequestFilter) ([]models.CommissionRequest, int, error)
	CloseRequest(ctx context.Context, id string) error
	CreateBid(ctx context.Context, bid *models.Bid) error
	FindBidByID(ctx context.Context, id string) (*models.Bid, error)
	ListBidsByRequest(ctx context.Context, requestID string) ([]models.Bid, error)
	HasPendingBid(ctx context.Context, requestID, artistID string) (bool, error)
}

// BoardService owns the public request board: open calls, artist bids, and
// the accept handshake that turns a bid into a queued commission.
type BoardService struct {
	requests  requestStore
	queue     *QueueService
	notify    *NotificationService
	validator *validator.Validate
	logger    *zap.Logger
}

func NewBoardService(requests requestStore, queue *QueueService, notify *NotificationService, validate *validator.Validate, logger *zap.Logger) *BoardService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BoardService{
		requests:  requests,
		queue:     queue,
		notify:    notify,
		validator: validate,
		logger:    logger,
	}
}

// CreateRequest posts a new open call on the board.
func (s *BoardService) CreateRequest(ctx context.Context, clientID string, input dto.CreateRequestInput) (*models.CommissionRequest, error) {
	if err := s.validator.Struct(input); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid commission request")
	}
	if input.BudgetMin != nil && input.BudgetMax != nil && *input.BudgetMax < *input.BudgetMin {
		return nil, appErrors.Clone(appErrors.ErrValidation, "budget_max must not be below budget_min")
	}

	req := &models.CommissionRequest{
		ID:              uuid.NewString(),
		ClientID:        clientID,
		Title:           input.Title,
		Description:     input.Description,
		BudgetMin:       input.BudgetMin,
		BudgetMax:       input.BudgetMax,
		PreferredStyles: input.PreferredStyles,
		ReferenceImages: input.ReferenceImages,
		Status:          models.RequestStatusOpen,
		CreatedAt:       time.Now().UTC(),
	}
	if err := s.requests.CreateRequest(ctx, req); err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	s.logger.Info("commission request posted",
		zap.String("request_id", req.ID),
		zap.String("client_id", clientID))
	return req, nil
}

// GetRequest returns one request together with its bids.
func (s *BoardService) GetRequest(ctx context.Context, id string) (*dto.BidListing, error) {
	req, err := s.findRequest(ctx, id)
	if err != nil {
		return nil, err
	}
	bids, err := s.requests.ListBidsByRequest(ctx, id)
	if err != nil {
		return nil, err
	}
	return &dto.BidListing{Request: req, Bids: bids}, nil
}

// ListRequests pages through board requests.
func (s *BoardService) ListRequests(ctx context.Context, filter models.RequestFilter) ([]models.CommissionRequest, int, error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 || filter.PageSize > 100 {
		filter.PageSize = 20
	}
	return s.requests.ListRequests(ctx, filter)
}

// SubmitBid places an artist's offer on an open request. An artist may hold
// at most one undecided bid per request.
func (s *BoardService) SubmitBid(ctx context.Context, artistID, requestID string, input dto.PlaceBidInput) (*models.Bid, error) {
	if err := s.validator.Struct(input); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid bid")
	}

	req, err := s.findRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if req.Status != models.RequestStatusOpen {
		return nil, appErrors.Clone(appErrors.ErrConflict, "request is no longer open for bids")
	}
	if req.ClientID == artistID {
		return nil, appErrors.Clone(appErrors.ErrValidation, "cannot bid on your own request")
	}

	exists, err := s.requests.HasPendingBid(ctx, requestID, artistID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, appErrors.ErrDuplicateBid
	}

	bid := &models.Bid{
		ID:                    uuid.NewString(),
		RequestID:             requestID,
		ArtistID:              artistID,
		Amount:                input.Amount,
		EstimatedDeliveryDays: input.EstimatedDeliveryDays,
		Message:               input.Message,
		Status:                models.BidStatusPending,
		CreatedAt:             time.Now().UTC(),
	}
	if err := s.requests.CreateBid(ctx, bid); err != nil {
		return nil, fmt.Errorf("create bid: %w", err)
	}

	s.notify.Publish(models.NotificationEvent{Type: models.NotifyBidReceived, CommissionID: requestID, RecipientID: req.ClientID})
	return bid, nil
}

// AcceptBid turns a pending bid into a commission: the winning bid is marked
// accepted, sibling bids rejected, the request awarded, the milestone plan
// materialised, and the commission admitted to the artist's queue — all in
// one persistence transaction driven by the admission decision.
func (s *BoardService) AcceptBid(ctx context.Context, clientID, bidID string, input dto.AcceptBidInput) (*models.Commission, error) {
	if err := s.validator.Struct(input); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid milestone plan")
	}

	bid, err := s.requests.FindBidByID(ctx, bidID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "bid not found")
		}
		return nil, err
	}
	if bid.Status != models.BidStatusPending {
		return nil, appErrors.Clone(appErrors.ErrConflict, "bid has already been decided")
	}

	req, err := s.findRequest(ctx, bid.RequestID)
	if err != nil {
		return nil, err
	}
	if req.ClientID != clientID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "request belongs to another client")
	}
	if req.Status != models.RequestStatusOpen {
		return nil, appErrors.Clone(appErrors.ErrConflict, "request has already been awarded or closed")
	}

	commission := &models.Commission{
		ID:         uuid.NewString(),
		RequestID:  &req.ID,
		ClientID:   clientID,
		ArtistID:   bid.ArtistID,
		FinalPrice: bid.Amount,
		CreatedAt:  time.Now().UTC(),
		UpdatedAt:  time.Now().UTC(),
	}
	milestones := buildMilestones(commission.ID, bid.Amount, input.Milestones)
	award := &repository.BidAward{RequestID: req.ID, BidID: bid.ID}

	if err := s.queue.Admit(ctx, commission, milestones, award); err != nil {
		return nil, err
	}

	s.notify.Publish(models.NotificationEvent{Type: models.NotifyCommissionCreated, CommissionID: commission.ID, RecipientID: bid.ArtistID})
	s.logger.Info("bid accepted",
		zap.String("bid_id", bid.ID),
		zap.String("commission_id", commission.ID),
		zap.String("queue_state", string(commission.QueueState)))
	return commission, nil
}

// WithdrawRequest closes an open request before any bid is accepted.
func (s *BoardService) WithdrawRequest(ctx context.Context, clientID, requestID string) error {
	req, err := s.findRequest(ctx, requestID)
	if err != nil {
		return err
	}
	if req.ClientID != clientID {
		return appErrors.Clone(appErrors.ErrForbidden, "request belongs to another client")
	}

	if err := s.requests.CloseRequest(ctx, requestID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrConflict, "request is no longer open")
		}
		return fmt.Errorf("close request: %w", err)
	}
	return nil
}

func (s *BoardService) findRequest(ctx context.Context, id string) (*models.CommissionRequest, error) {
	req, err := s.requests.FindRequestByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "request not found")
		}
		return nil, err
	}
	return req, nil
}

// buildMilestones materialises the plan fixed at acceptance time. An empty
// plan becomes a single milestone covering the full price. Only the first
// milestone starts unlocked.
func buildMilestones(commissionID string, finalPrice float64, plans []models.MilestonePlan) []models.Milestone {
	if len(plans) == 0 {
		plans = []models.MilestonePlan{{Title: "Full delivery", Amount: finalPrice}}
	}
	now := time.Now().UTC()
	milestones := make([]models.Milestone, 0, len(plans))
	for i, plan := range plans {
		milestones = append(milestones, models.Milestone{
			ID:            uuid.NewString(),
			CommissionID:  commissionID,
			Number:        i + 1,
			Title:         plan.Title,
			Description:   plan.Description,
			Amount:        plan.Amount,
			PaymentStatus: models.PaymentStatusUnpaid,
			IsLocked:      i > 0,
			CreatedAt:     now,
		})
	}
	return milestones
}
