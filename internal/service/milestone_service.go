package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/atelier-labs/commission-api/internal/dto"
	"github.com/atelier-labs/commission-api/internal/models"
	"github.com/atelier-labs/commission-api/internal/payment"
	appErrors "github.com/atelier-labs/commission-api/pkg/errors"
)

type milestoneStore interface {
	FindByID(ctx context.Context, id string) (*models.Milestone, error)
	ListByCommission(ctx context.Context, commissionID string) ([]models.Milestone, error)
	FindByCommissionAndNumber(ctx context.Context, commissionID string, number int) (*models.Milestone, error)
	Counts(ctx context.Context, commissionID string) (models.MilestoneCounts, error)
	Unlock(ctx context.Context, id string) error
	MarkPaid(ctx context.Context, id string) error
	CreateCheckpoint(ctx context.Context, cp *models.ApprovalCheckpoint) error
	FindCheckpointByID(ctx context.Context, id string) (*models.ApprovalCheckpoint, error)
	ListCheckpointsByMilestone(ctx context.Context, milestoneID string) ([]models.ApprovalCheckpoint, error)
	HasPendingCheckpoint(ctx context.Context, milestoneID string) (bool, error)
	DecideCheckpoint(ctx context.Context, id string, status models.ApprovalStatus, notes *string, approvedAt *time.Time) error
}

type milestoneCommissionStore interface {
	FindByID(ctx context.Context, id string) (*models.Commission, error)
	TransitionStatus(ctx context.Context, id string, from, to models.CommissionStatus, cancellationReason *string) error
}

type paymentCapturer interface {
	Capture(ctx context.Context, checkpointID, milestoneID string, amount float64) (*payment.CaptureOut, error)
}

// MilestoneService drives the ordered milestone ledger: completion
// submissions by the artist, approval decisions by the client, payment
// capture, and the unlock-next-or-complete step. All settlement for one
// commission runs under that commission's lock so concurrent approvals can
// never double-capture or double-unlock.
type MilestoneService struct {
	milestones      milestoneStore
	commissions     milestoneCommissionStore
	payments        paymentCapturer
	queue           *QueueService
	history         *HistoryService
	notify          *NotificationService
	metrics         *MetricsService
	validator       *validator.Validate
	logger          *zap.Logger
	commissionLocks *KeyedLocks
}

// NewMilestoneService constructs the service. locks must be the same
// instance CancellationService holds so settlement and cancellation of one
// commission serialize against each other.
func NewMilestoneService(
	milestones milestoneStore,
	commissions milestoneCommissionStore,
	payments paymentCapturer,
	queue *QueueService,
	history *HistoryService,
	notify *NotificationService,
	metrics *MetricsService,
	locks *KeyedLocks,
	validate *validator.Validate,
	logger *zap.Logger,
) *MilestoneService {
	if locks == nil {
		locks = NewKeyedLocks()
	}
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MilestoneService{
		milestones:      milestones,
		commissions:     commissions,
		payments:        payments,
		queue:           queue,
		history:         history,
		notify:          notify,
		metrics:         metrics,
		validator:       validate,
		logger:          logger,
		commissionLocks: locks,
	}
}

// ListMilestones returns the ledger for one commission in number order.
func (s *MilestoneService) ListMilestones(ctx context.Context, commissionID string) ([]models.Milestone, error) {
	milestones, err := s.milestones.ListByCommission(ctx, commissionID)
	if err != nil {
		return nil, err
	}
	if len(milestones) == 0 {
		if _, err := s.findCommission(ctx, commissionID); err != nil {
			return nil, err
		}
	}
	return milestones, nil
}

// ListCheckpoints returns every submission made against one milestone.
func (s *MilestoneService) ListCheckpoints(ctx context.Context, milestoneID string) ([]models.ApprovalCheckpoint, error) {
	if _, err := s.findMilestone(ctx, milestoneID); err != nil {
		return nil, err
	}
	return s.milestones.ListCheckpointsByMilestone(ctx, milestoneID)
}

// CompleteMilestone files the artist's completion submission as a pending
// checkpoint. Locked milestones and milestones with an undecided checkpoint
// are rejected.
func (s *MilestoneService) CompleteMilestone(ctx context.Context, artistID, milestoneID string, input dto.SubmitCheckpointInput) (*models.ApprovalCheckpoint, error) {
	if err := s.validator.Struct(input); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid checkpoint submission")
	}

	milestone, err := s.findMilestone(ctx, milestoneID)
	if err != nil {
		return nil, err
	}

	unlock := s.commissionLocks.lock(milestone.CommissionID)
	defer unlock()

	commission, err := s.findCommission(ctx, milestone.CommissionID)
	if err != nil {
		return nil, err
	}
	if commission.ArtistID != artistID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "commission belongs to another artist")
	}
	if commission.Status.Terminal() {
		return nil, appErrors.ErrTerminalCommission
	}

	// Re-read under the lock: a concurrent approval may have flipped the
	// lock flag since the first load.
	milestone, err = s.findMilestone(ctx, milestoneID)
	if err != nil {
		return nil, err
	}
	if milestone.IsLocked {
		return nil, appErrors.ErrMilestoneLocked
	}
	if milestone.PaymentStatus == models.PaymentStatusPaid {
		return nil, appErrors.Clone(appErrors.ErrConflict, "milestone is already paid")
	}

	pending, err := s.milestones.HasPendingCheckpoint(ctx, milestoneID)
	if err != nil {
		return nil, err
	}
	if pending {
		return nil, appErrors.ErrDuplicateSubmission
	}

	checkpoint := &models.ApprovalCheckpoint{
		MilestoneID:      milestoneID,
		ImageURL:         input.ImageURL,
		AdditionalImages: input.AdditionalImages,
		Notes:            input.Notes,
		ApprovalStatus:   models.ApprovalStatusPending,
		CreatedAt:        time.Now().UTC(),
	}
	if err := s.milestones.CreateCheckpoint(ctx, checkpoint); err != nil {
		return nil, fmt.Errorf("create checkpoint: %w", err)
	}

	s.notify.Publish(models.NotificationEvent{Type: models.NotifyCheckpointReady, CommissionID: commission.ID, RecipientID: commission.ClientID})
	s.logger.Info("checkpoint submitted",
		zap.String("checkpoint_id", checkpoint.ID),
		zap.String("milestone_id", milestoneID))
	return checkpoint, nil
}

// DecideApproval records the client's decision on a pending checkpoint.
// Approval triggers payment capture and the unlock-next-or-complete step;
// rejection leaves the milestone open for a fresh submission. Re-invoking
// approval after a capture failure retries capture only — the checkpoint
// stays approved and the milestone unpaid until capture succeeds.
func (s *MilestoneService) DecideApproval(ctx context.Context, clientID, checkpointID string, input dto.DecideCheckpointInput) (*dto.CheckpointDecision, error) {
	if err := s.validator.Struct(input); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid approval decision")
	}

	checkpoint, err := s.findCheckpoint(ctx, checkpointID)
	if err != nil {
		return nil, err
	}
	milestone, err := s.findMilestone(ctx, checkpoint.MilestoneID)
	if err != nil {
		return nil, err
	}

	unlock := s.commissionLocks.lock(milestone.CommissionID)
	defer unlock()

	commission, err := s.findCommission(ctx, milestone.CommissionID)
	if err != nil {
		return nil, err
	}
	if commission.ClientID != clientID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "commission belongs to another client")
	}
	if commission.Status.Terminal() {
		return nil, appErrors.ErrTerminalCommission
	}

	// Re-read under the lock: a settled retry may have paid the milestone
	// after the first load.
	milestone, err = s.findMilestone(ctx, checkpoint.MilestoneID)
	if err != nil {
		return nil, err
	}

	if !input.Approve {
		if err := s.milestones.DecideCheckpoint(ctx, checkpointID, models.ApprovalStatusRejected, input.Notes, nil); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrConflict, "checkpoint has already been decided")
			}
			return nil, fmt.Errorf("reject checkpoint: %w", err)
		}
		checkpoint.ApprovalStatus = models.ApprovalStatusRejected
		checkpoint.ApprovalNotes = input.Notes
		s.notify.Publish(models.NotificationEvent{Type: models.NotifyCheckpointDecided, CommissionID: commission.ID, RecipientID: commission.ArtistID})
		return &dto.CheckpointDecision{Checkpoint: checkpoint, Milestone: milestone}, nil
	}

	now := time.Now().UTC()
	if err := s.milestones.DecideCheckpoint(ctx, checkpointID, models.ApprovalStatusApproved, input.Notes, &now); err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("approve checkpoint: %w", err)
		}
		// Already decided. Only an approved-but-uncaptured checkpoint may
		// proceed: that is the retry path after a capture failure.
		checkpoint, err = s.findCheckpoint(ctx, checkpointID)
		if err != nil {
			return nil, err
		}
		if checkpoint.ApprovalStatus != models.ApprovalStatusApproved || milestone.PaymentStatus == models.PaymentStatusPaid {
			return nil, appErrors.Clone(appErrors.ErrConflict, "checkpoint has already been decided")
		}
	} else {
		checkpoint.ApprovalStatus = models.ApprovalStatusApproved
		checkpoint.ApprovalNotes = input.Notes
		checkpoint.ApprovedAt = &now
	}

	return s.settleApproved(ctx, commission, milestone, checkpoint)
}

// settleApproved captures payment for an approved checkpoint and advances
// the ledger. Caller holds the commission lock.
func (s *MilestoneService) settleApproved(ctx context.Context, commission *models.Commission, milestone *models.Milestone, checkpoint *models.ApprovalCheckpoint) (*dto.CheckpointDecision, error) {
	start := time.Now()
	result, err := s.payments.Capture(ctx, checkpoint.ID, milestone.ID, milestone.Amount)
	s.metrics.ObserveCapture(time.Since(start))
	if err != nil {
		// Checkpoint stays approved, milestone stays unpaid; a retried
		// approval re-attempts capture under the same idempotency key.
		s.logger.Warn("payment capture failed",
			zap.String("checkpoint_id", checkpoint.ID),
			zap.String("milestone_id", milestone.ID),
			zap.Error(err))
		return nil, err
	}

	if err := s.milestones.MarkPaid(ctx, milestone.ID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// Paid by an earlier retry; the ledger already advanced.
			return nil, appErrors.Clone(appErrors.ErrConflict, "milestone is already paid")
		}
		return nil, fmt.Errorf("mark milestone paid: %w", err)
	}
	milestone.PaymentStatus = models.PaymentStatusPaid

	s.logger.Info("milestone paid",
		zap.String("milestone_id", milestone.ID),
		zap.String("transaction_ref", result.TransactionRef))
	s.notify.Publish(models.NotificationEvent{Type: models.NotifyMilestonePaid, CommissionID: commission.ID, RecipientID: commission.ArtistID})

	decision := &dto.CheckpointDecision{Checkpoint: checkpoint, Milestone: milestone}

	next, err := s.milestones.FindByCommissionAndNumber(ctx, commission.ID, milestone.Number+1)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if next != nil {
		if err := s.milestones.Unlock(ctx, next.ID); err != nil {
			return nil, fmt.Errorf("unlock next milestone: %w", err)
		}
		decision.UnlockedMilestoneID = &next.ID
		return decision, nil
	}

	// Last milestone paid: the commission is complete and its slot frees up.
	if err := s.commissions.TransitionStatus(ctx, commission.ID, commission.Status, models.CommissionStatusCompleted, nil); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "commission state has changed")
		}
		return nil, fmt.Errorf("complete commission: %w", err)
	}
	from := commission.Status
	commission.Status = models.CommissionStatusCompleted
	s.history.Record(ctx, commission.ID, &from, models.CommissionStatusCompleted)
	s.notify.Publish(models.NotificationEvent{Type: models.NotifyCompleted, CommissionID: commission.ID, RecipientID: commission.ArtistID})

	if err := s.queue.Release(ctx, commission); err != nil {
		s.logger.Error("release queue slot after completion",
			zap.String("commission_id", commission.ID), zap.Error(err))
	}
	decision.CommissionCompleted = true
	return decision, nil
}

func (s *MilestoneService) findMilestone(ctx context.Context, id string) (*models.Milestone, error) {
	m, err := s.milestones.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "milestone not found")
		}
		return nil, err
	}
	return m, nil
}

func (s *MilestoneService) findCheckpoint(ctx context.Context, id string) (*models.ApprovalCheckpoint, error) {
	cp, err := s.milestones.FindCheckpointByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "checkpoint not found")
		}
		return nil, err
	}
	return cp, nil
}

func (s *MilestoneService) findCommission(ctx context.Context, id string) (*models.Commission, error) {
	c, err := s.commissions.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "commission not found")
		}
		return nil, err
	}
	return c, nil
}
