package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/atelier-labs/commission-api/internal/models"
	"github.com/atelier-labs/commission-api/pkg/jobs"
)

const jobTypeNotify = "notify"

// NotificationService fans lifecycle events out to an external webhook
// through the background job queue. Delivery is best-effort with retries;
// an empty webhook URL turns the service into a log-only sink.
type NotificationService struct {
	queue      *jobs.Queue
	webhookURL string
	httpClient *http.Client
	logger     *zap.Logger
}

func NewNotificationService(webhookURL string, cfg jobs.QueueConfig, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &NotificationService{
		webhookURL: webhookURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		logger:     logger,
	}
	if cfg.Logger == nil {
		cfg.Logger = s.logger
	}
	s.queue = jobs.NewQueue("notifications", s.handle, cfg)
	return s
}

// Start launches the delivery workers.
func (s *NotificationService) Start(ctx context.Context) {
	s.queue.Start(ctx)
}

// Stop drains the workers.
func (s *NotificationService) Stop() {
	s.queue.Stop()
}

// Publish enqueues one lifecycle event. Callers never block on delivery.
func (s *NotificationService) Publish(event models.NotificationEvent) {
	if s == nil {
		return
	}
	err := s.queue.Enqueue(jobs.Job{
		ID:      uuid.NewString(),
		Type:    jobTypeNotify,
		Payload: event,
	})
	if err != nil {
		s.logger.Warn("enqueue notification failed",
			zap.String("type", string(event.Type)), zap.Error(err))
	}
}

func (s *NotificationService) handle(ctx context.Context, job jobs.Job) error {
	event, ok := job.Payload.(models.NotificationEvent)
	if !ok {
		return fmt.Errorf("unexpected payload type %T", job.Payload)
	}
	if s.webhookURL == "" {
		s.logger.Info("notification",
			zap.String("type", string(event.Type)),
			zap.String("commission_id", event.CommissionID),
			zap.String("recipient_id", event.RecipientID))
		return nil
	}

	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("post webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("webhook responded %d", resp.StatusCode)
	}
	return nil
}
