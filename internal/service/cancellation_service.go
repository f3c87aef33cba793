package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/atelier-labs/commission-api/internal/dto"
	"github.com/atelier-labs/commission-api/internal/models"
	appErrors "github.com/atelier-labs/commission-api/pkg/errors"
)

// cancellationThresholdPct is the completion percentage above which an
// in-progress commission can no longer be cancelled by the client.
const cancellationThresholdPct = 50.0

type cancellationMilestoneStore interface {
	Counts(ctx context.Context, commissionID string) (models.MilestoneCounts, error)
}

// CancellationService evaluates and executes client cancellations. Pending
// work cancels freely; in-progress work cancels only while half or less of
// its milestones are paid; terminal work never cancels. Cancel runs under
// the per-commission lock shared with MilestoneService so it never races a
// settlement.
type CancellationService struct {
	commissions     milestoneCommissionStore
	milestones      cancellationMilestoneStore
	queue           *QueueService
	history         *HistoryService
	notify          *NotificationService
	validator       *validator.Validate
	logger          *zap.Logger
	commissionLocks *KeyedLocks
}

// NewCancellationService constructs the service. locks must be the same
// instance MilestoneService holds.
func NewCancellationService(
	commissions milestoneCommissionStore,
	milestones cancellationMilestoneStore,
	queue *QueueService,
	history *HistoryService,
	notify *NotificationService,
	locks *KeyedLocks,
	validate *validator.Validate,
	logger *zap.Logger,
) *CancellationService {
	if locks == nil {
		locks = NewKeyedLocks()
	}
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CancellationService{
		commissions:     commissions,
		milestones:      milestones,
		queue:           queue,
		history:         history,
		notify:          notify,
		validator:       validate,
		logger:          logger,
		commissionLocks: locks,
	}
}

// CanCancel evaluates the policy without mutating anything.
func (s *CancellationService) CanCancel(ctx context.Context, commissionID string) (*dto.CancellationCheck, error) {
	commission, err := s.findCommission(ctx, commissionID)
	if err != nil {
		return nil, err
	}
	check, _, err := s.evaluate(ctx, commission)
	return check, err
}

// Cancel re-evaluates the policy server-side and, when allowed, flips the
// commission to cancelled, records the transition, and frees its queue slot.
func (s *CancellationService) Cancel(ctx context.Context, clientID, commissionID string, input dto.CancelCommissionInput) (*models.Commission, error) {
	if err := s.validator.Struct(input); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid cancellation")
	}

	unlock := s.commissionLocks.lock(commissionID)
	defer unlock()

	commission, err := s.findCommission(ctx, commissionID)
	if err != nil {
		return nil, err
	}
	if commission.ClientID != clientID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "commission belongs to another client")
	}

	check, counts, err := s.evaluate(ctx, commission)
	if err != nil {
		return nil, err
	}
	if !check.Allowed {
		if commission.Status.Terminal() {
			return nil, appErrors.ErrTerminalCommission
		}
		return nil, appErrors.WithDetails(appErrors.ErrCancellationBlocked, map[string]interface{}{
			"completion_pct":   check.CompletionPct,
			"paid_milestones":  counts.Paid,
			"total_milestones": counts.Total,
		})
	}

	if err := s.commissions.TransitionStatus(ctx, commissionID, commission.Status, models.CommissionStatusCancelled, input.Reason); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// Someone else moved the commission between our read and the
			// update; report the current state instead of clobbering it.
			current, findErr := s.findCommission(ctx, commissionID)
			if findErr == nil && current.Status.Terminal() {
				return nil, appErrors.ErrTerminalCommission
			}
			return nil, appErrors.Clone(appErrors.ErrConflict, "commission state has changed")
		}
		return nil, fmt.Errorf("cancel commission: %w", err)
	}

	from := commission.Status
	commission.Status = models.CommissionStatusCancelled
	commission.CancellationReason = input.Reason
	s.history.Record(ctx, commission.ID, &from, models.CommissionStatusCancelled)
	s.notify.Publish(models.NotificationEvent{Type: models.NotifyCancelled, CommissionID: commission.ID, RecipientID: commission.ArtistID})

	if err := s.queue.Release(ctx, commission); err != nil {
		s.logger.Error("release queue slot after cancellation",
			zap.String("commission_id", commission.ID), zap.Error(err))
	}

	s.logger.Info("commission cancelled",
		zap.String("commission_id", commission.ID),
		zap.Float64("completion_pct", check.CompletionPct))
	return commission, nil
}

func (s *CancellationService) evaluate(ctx context.Context, commission *models.Commission) (*dto.CancellationCheck, models.MilestoneCounts, error) {
	counts, err := s.milestones.Counts(ctx, commission.ID)
	if err != nil {
		return nil, counts, err
	}
	pct := counts.CompletionPct()

	check := &dto.CancellationCheck{
		CompletionPct:   pct,
		PaidMilestones:  counts.Paid,
		TotalMilestones: counts.Total,
	}

	switch {
	case commission.Status.Terminal():
		check.Reason = "terminal"
	case commission.Status == models.CommissionStatusPending:
		check.Allowed = true
	case pct <= cancellationThresholdPct:
		check.Allowed = true
	default:
		check.Reason = "completion threshold exceeded"
	}
	return check, counts, nil
}

func (s *CancellationService) findCommission(ctx context.Context, id string) (*models.Commission, error) {
	c, err := s.commissions.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "commission not found")
		}
		return nil, err
	}
	return c, nil
}
