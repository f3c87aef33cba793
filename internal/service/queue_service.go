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
	"github.com/atelier-labs/commission-api/internal/repository"
	appErrors "github.com/atelier-labs/commission-api/pkg/errors"
)

type queueCommissionStore interface {
	FindByID(ctx context.Context, id string) (*models.Commission, error)
	CountByQueueState(ctx context.Context, artistID string, state models.QueueState) (int, error)
	ListByArtistAndState(ctx context.Context, artistID string, state models.QueueState) ([]models.Commission, error)
	CreateWithMilestones(ctx context.Context, c *models.Commission, milestones []models.Milestone, award *repository.BidAward) error
	TransitionStatus(ctx context.Context, id string, from, to models.CommissionStatus, cancellationReason *string) error
	ReleasePlacement(ctx context.Context, id, artistID string, state models.QueueState, position int) error
	PromoteFirstWaitlisted(ctx context.Context, artistID string, activePosition int) (*models.Commission, error)
	List(ctx context.Context, filter models.CommissionFilter) ([]models.Commission, int, error)
}

type queueSettingsStore interface {
	Find(ctx context.Context, artistID string) (*models.QueueSettings, error)
	Upsert(ctx context.Context, settings *models.QueueSettings) error
}

// QueueService enforces per-artist capacity: bounded active slots, optional
// waitlist overflow, and dense position maintenance. All admission and
// release paths for one artist run under that artist's lock.
type QueueService struct {
	commissions     queueCommissionStore
	settings        queueSettingsStore
	history         *HistoryService
	cache           *CacheService
	metrics         *MetricsService
	notify          *NotificationService
	validator       *validator.Validate
	logger          *zap.Logger
	artistLocks     *KeyedLocks
	defaultMaxSlots int
}

func NewQueueService(
	commissions queueCommissionStore,
	settings queueSettingsStore,
	history *HistoryService,
	cache *CacheService,
	metrics *MetricsService,
	notify *NotificationService,
	validate *validator.Validate,
	logger *zap.Logger,
	defaultMaxSlots int,
) *QueueService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &QueueService{
		commissions:     commissions,
		settings:        settings,
		history:         history,
		cache:           cache,
		metrics:         metrics,
		notify:          notify,
		validator:       validate,
		logger:          logger,
		artistLocks:     NewKeyedLocks(),
		defaultMaxSlots: defaultMaxSlots,
	}
}

func queueSnapshotKey(artistID string) string {
	return fmt.Sprintf("queue:snapshot:%s", artistID)
}

// Settings returns the artist's effective capacity policy, falling back to
// defaults for artists that never saved one.
func (s *QueueService) Settings(ctx context.Context, artistID string) (*models.QueueSettings, error) {
	settings, err := s.settings.Find(ctx, artistID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			fallback := models.DefaultQueueSettings(artistID, s.defaultMaxSlots)
			return &fallback, nil
		}
		return nil, err
	}
	return settings, nil
}

// UpdateSettings saves the artist's capacity policy. Changes apply to future
// admissions only; existing placements are never evicted or reshuffled.
func (s *QueueService) UpdateSettings(ctx context.Context, artistID string, input dto.UpdateQueueSettingsInput) (*models.QueueSettings, error) {
	if err := s.validator.Struct(input); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid queue settings")
	}

	unlock := s.artistLocks.lock(artistID)
	defer unlock()

	settings := &models.QueueSettings{
		ArtistID:            artistID,
		MaxQueueSlots:       input.MaxQueueSlots,
		AllowWaitlist:       input.AllowWaitlist,
		AutoPromoteWaitlist: input.AutoPromoteWaitlist,
		IsOpen:              input.IsOpen,
		UpdatedAt:           time.Now().UTC(),
	}
	if err := s.settings.Upsert(ctx, settings); err != nil {
		return nil, fmt.Errorf("save queue settings: %w", err)
	}

	s.cache.InvalidatePattern(ctx, queueSnapshotKey(artistID))
	return settings, nil
}

// Admit places a new commission in the artist's queue and persists it
// together with its milestone plan (and bid award, when present) in one
// transaction. The slot is consumed at acceptance time regardless of when
// work starts.
func (s *QueueService) Admit(ctx context.Context, c *models.Commission, milestones []models.Milestone, award *repository.BidAward) error {
	unlock := s.artistLocks.lock(c.ArtistID)
	defer unlock()

	settings, err := s.Settings(ctx, c.ArtistID)
	if err != nil {
		return err
	}
	if !settings.IsOpen {
		s.metrics.RecordAdmission("rejected_paused")
		return appErrors.ErrCommissionsPaused
	}

	activeCount, err := s.commissions.CountByQueueState(ctx, c.ArtistID, models.QueueStateActive)
	if err != nil {
		return err
	}

	var event models.NotificationType
	switch {
	case activeCount < settings.MaxQueueSlots:
		position := activeCount + 1
		c.Status = models.CommissionStatusPending
		c.QueueState = models.QueueStateActive
		c.QueuePosition = &position
		event = models.NotifyCommissionCreated
	case settings.AllowWaitlist:
		waitCount, err := s.commissions.CountByQueueState(ctx, c.ArtistID, models.QueueStateWaitlisted)
		if err != nil {
			return err
		}
		position := waitCount + 1
		c.Status = models.CommissionStatusPending
		c.QueueState = models.QueueStateWaitlisted
		c.QueuePosition = &position
		event = models.NotifyWaitlisted
	default:
		s.metrics.RecordAdmission("rejected_full")
		return appErrors.ErrQueueFull
	}

	if err := s.commissions.CreateWithMilestones(ctx, c, milestones, award); err != nil {
		return fmt.Errorf("create commission: %w", err)
	}

	if c.QueueState == models.QueueStateActive {
		s.metrics.RecordAdmission("admitted")
	} else {
		s.metrics.RecordAdmission("waitlisted")
	}
	s.history.Record(ctx, c.ID, nil, c.Status)
	s.notify.Publish(models.NotificationEvent{Type: event, CommissionID: c.ID, RecipientID: c.ClientID})
	s.cache.InvalidatePattern(ctx, queueSnapshotKey(c.ArtistID))

	s.logger.Info("commission admitted",
		zap.String("commission_id", c.ID),
		zap.String("artist_id", c.ArtistID),
		zap.String("queue_state", string(c.QueueState)))
	return nil
}

// StartCommission flips a pending active commission to in-progress. Only the
// owning artist may start it, and waitlisted work cannot start.
func (s *QueueService) StartCommission(ctx context.Context, artistID, commissionID string) (*models.Commission, error) {
	unlock := s.artistLocks.lock(artistID)
	defer unlock()

	c, err := s.commissions.FindByID(ctx, commissionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "commission not found")
		}
		return nil, err
	}
	if c.ArtistID != artistID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "commission belongs to another artist")
	}
	if c.Status.Terminal() {
		return nil, appErrors.ErrTerminalCommission
	}
	if c.Status != models.CommissionStatusPending {
		return nil, appErrors.Clone(appErrors.ErrConflict, "commission already started")
	}
	if c.QueueState != models.QueueStateActive {
		return nil, appErrors.Clone(appErrors.ErrConflict, "waitlisted commissions cannot start")
	}

	if err := s.commissions.TransitionStatus(ctx, commissionID, models.CommissionStatusPending, models.CommissionStatusInProgress, nil); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "commission already started")
		}
		return nil, fmt.Errorf("start commission: %w", err)
	}

	from := c.Status
	c.Status = models.CommissionStatusInProgress
	s.history.Record(ctx, c.ID, &from, c.Status)
	s.notify.Publish(models.NotificationEvent{Type: models.NotifyCommissionStarted, CommissionID: c.ID, RecipientID: c.ClientID})
	s.cache.InvalidatePattern(ctx, queueSnapshotKey(artistID))
	return c, nil
}

// Release removes a commission's queue placement after a terminal
// transition, keeps positions dense, and auto-promotes the waitlist head
// when a slot opened under the artist's policy.
func (s *QueueService) Release(ctx context.Context, c *models.Commission) error {
	if c.QueueState == models.QueueStateNone || c.QueuePosition == nil {
		return nil
	}

	unlock := s.artistLocks.lock(c.ArtistID)
	defer unlock()

	// Re-read under the artist lock: another release may have shifted this
	// commission's position, or cleared it entirely, since the caller's read.
	current, err := s.commissions.FindByID(ctx, c.ID)
	if err != nil {
		return fmt.Errorf("load commission for release: %w", err)
	}
	if current.QueueState == models.QueueStateNone || current.QueuePosition == nil {
		c.QueueState = models.QueueStateNone
		c.QueuePosition = nil
		return nil
	}

	vacatedState := current.QueueState
	if err := s.commissions.ReleasePlacement(ctx, c.ID, c.ArtistID, vacatedState, *current.QueuePosition); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// Already released by a concurrent transition; no slot opened
			// here, so no promotion either.
			c.QueueState = models.QueueStateNone
			c.QueuePosition = nil
			return nil
		}
		return fmt.Errorf("release queue placement: %w", err)
	}
	c.QueueState = models.QueueStateNone
	c.QueuePosition = nil

	defer s.cache.InvalidatePattern(ctx, queueSnapshotKey(c.ArtistID))

	if vacatedState != models.QueueStateActive {
		return nil
	}

	settings, err := s.Settings(ctx, c.ArtistID)
	if err != nil {
		return err
	}
	if !settings.AutoPromoteWaitlist {
		return nil
	}

	activeCount, err := s.commissions.CountByQueueState(ctx, c.ArtistID, models.QueueStateActive)
	if err != nil {
		return err
	}
	if activeCount >= settings.MaxQueueSlots {
		return nil
	}

	promoted, err := s.commissions.PromoteFirstWaitlisted(ctx, c.ArtistID, activeCount+1)
	if err != nil {
		return fmt.Errorf("promote waitlist head: %w", err)
	}
	if promoted != nil {
		s.notify.Publish(models.NotificationEvent{Type: models.NotifyPromoted, CommissionID: promoted.ID, RecipientID: promoted.ClientID})
		s.logger.Info("waitlist head promoted",
			zap.String("commission_id", promoted.ID),
			zap.String("artist_id", c.ArtistID))
	}
	return nil
}

// GetCommission returns one commission by ID.
func (s *QueueService) GetCommission(ctx context.Context, id string) (*models.Commission, error) {
	c, err := s.commissions.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "commission not found")
		}
		return nil, err
	}
	return c, nil
}

// ListCommissions pages through commissions with optional filters.
func (s *QueueService) ListCommissions(ctx context.Context, filter models.CommissionFilter) ([]models.Commission, int, error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 || filter.PageSize > 100 {
		filter.PageSize = 20
	}
	return s.commissions.List(ctx, filter)
}

// Snapshot assembles the artist's queue view: active partition, waitlist
// partition and the policy in force. Served from cache when fresh.
func (s *QueueService) Snapshot(ctx context.Context, artistID string) (*dto.QueueSnapshot, error) {
	key := queueSnapshotKey(artistID)
	var cached dto.QueueSnapshot
	if err := s.cache.Get(ctx, key, &cached); err == nil {
		return &cached, nil
	}

	settings, err := s.Settings(ctx, artistID)
	if err != nil {
		return nil, err
	}
	active, err := s.commissions.ListByArtistAndState(ctx, artistID, models.QueueStateActive)
	if err != nil {
		return nil, err
	}
	waitlist, err := s.commissions.ListByArtistAndState(ctx, artistID, models.QueueStateWaitlisted)
	if err != nil {
		return nil, err
	}

	snapshot := &dto.QueueSnapshot{
		ArtistID:      artistID,
		Settings:      *settings,
		Active:        toQueueEntries(active),
		Waitlist:      toQueueEntries(waitlist),
		SlotsUsed:     len(active),
		SlotsTotal:    settings.MaxQueueSlots,
		WaitlistDepth: len(waitlist),
	}

	s.metrics.SetQueueDepth(artistID, string(models.QueueStateActive), len(active))
	s.metrics.SetQueueDepth(artistID, string(models.QueueStateWaitlisted), len(waitlist))
	s.cache.Set(ctx, key, snapshot)
	return snapshot, nil
}

func toQueueEntries(commissions []models.Commission) []dto.QueueEntry {
	entries := make([]dto.QueueEntry, 0, len(commissions))
	for _, c := range commissions {
		position := 0
		if c.QueuePosition != nil {
			position = *c.QueuePosition
		}
		entries = append(entries, dto.QueueEntry{
			CommissionID: c.ID,
			ClientID:     c.ClientID,
			Status:       c.Status,
			Position:     position,
			FinalPrice:   c.FinalPrice,
		})
	}
	return entries
}
