package handler

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atelier-labs/commission-api/internal/middleware"
	"github.com/atelier-labs/commission-api/internal/models"
	"github.com/atelier-labs/commission-api/internal/repository"
	"github.com/atelier-labs/commission-api/internal/service"
)

type stubRequestStore struct {
	request *models.CommissionRequest
	bid     *models.Bid
	created []*models.CommissionRequest
}

func (s *stubRequestStore) CreateRequest(_ context.Context, req *models.CommissionRequest) error {
	s.created = append(s.created, req)
	return nil
}

func (s *stubRequestStore) FindRequestByID(_ context.Context, id string) (*models.CommissionRequest, error) {
	if s.request != nil && s.request.ID == id {
		cp := *s.request
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (s *stubRequestStore) ListRequests(context.Context, models.RequestFilter) ([]models.CommissionRequest, int, error) {
	if s.request == nil {
		return nil, 0, nil
	}
	return []models.CommissionRequest{*s.request}, 1, nil
}

func (s *stubRequestStore) CloseRequest(_ context.Context, id string) error {
	if s.request == nil || s.request.ID != id || s.request.Status != models.RequestStatusOpen {
		return sql.ErrNoRows
	}
	s.request.Status = models.RequestStatusClosed
	return nil
}

func (s *stubRequestStore) CreateBid(context.Context, *models.Bid) error { return nil }

func (s *stubRequestStore) FindBidByID(_ context.Context, id string) (*models.Bid, error) {
	if s.bid != nil && s.bid.ID == id {
		cp := *s.bid
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (s *stubRequestStore) ListBidsByRequest(context.Context, string) ([]models.Bid, error) {
	if s.bid == nil {
		return nil, nil
	}
	return []models.Bid{*s.bid}, nil
}

func (s *stubRequestStore) HasPendingBid(context.Context, string, string) (bool, error) {
	return false, nil
}

type stubCommissionStore struct {
	commission *models.Commission
	updates    map[string]models.CommissionStatus
}

func (s *stubCommissionStore) FindByID(_ context.Context, id string) (*models.Commission, error) {
	if s.commission != nil && s.commission.ID == id {
		cp := *s.commission
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (s *stubCommissionStore) CountByQueueState(context.Context, string, models.QueueState) (int, error) {
	return 0, nil
}

func (s *stubCommissionStore) ListByArtistAndState(_ context.Context, artistID string, state models.QueueState) ([]models.Commission, error) {
	if s.commission != nil && s.commission.ArtistID == artistID && s.commission.QueueState == state {
		return []models.Commission{*s.commission}, nil
	}
	return nil, nil
}

func (s *stubCommissionStore) CreateWithMilestones(_ context.Context, c *models.Commission, _ []models.Milestone, _ *repository.BidAward) error {
	cp := *c
	s.commission = &cp
	return nil
}

func (s *stubCommissionStore) TransitionStatus(_ context.Context, id string, from, to models.CommissionStatus, reason *string) error {
	if s.commission == nil || s.commission.ID != id || s.commission.Status != from {
		return sql.ErrNoRows
	}
	if s.updates == nil {
		s.updates = make(map[string]models.CommissionStatus)
	}
	s.updates[id] = to
	s.commission.Status = to
	s.commission.CancellationReason = reason
	return nil
}

func (s *stubCommissionStore) ReleasePlacement(_ context.Context, id, _ string, _ models.QueueState, _ int) error {
	if s.commission != nil && s.commission.ID == id {
		s.commission.QueueState = models.QueueStateNone
		s.commission.QueuePosition = nil
	}
	return nil
}

func (s *stubCommissionStore) PromoteFirstWaitlisted(context.Context, string, int) (*models.Commission, error) {
	return nil, nil
}

func (s *stubCommissionStore) List(context.Context, models.CommissionFilter) ([]models.Commission, int, error) {
	if s.commission == nil {
		return nil, 0, nil
	}
	return []models.Commission{*s.commission}, 1, nil
}

type stubSettingsStore struct{ settings *models.QueueSettings }

func (s *stubSettingsStore) Find(_ context.Context, artistID string) (*models.QueueSettings, error) {
	if s.settings != nil && s.settings.ArtistID == artistID {
		cp := *s.settings
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (s *stubSettingsStore) Upsert(_ context.Context, settings *models.QueueSettings) error {
	cp := *settings
	s.settings = &cp
	return nil
}

type stubMilestoneStore struct {
	milestone  *models.Milestone
	checkpoint *models.ApprovalCheckpoint
	counts     models.MilestoneCounts
}

func (s *stubMilestoneStore) FindByID(_ context.Context, id string) (*models.Milestone, error) {
	if s.milestone != nil && s.milestone.ID == id {
		cp := *s.milestone
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (s *stubMilestoneStore) ListByCommission(context.Context, string) ([]models.Milestone, error) {
	if s.milestone == nil {
		return nil, nil
	}
	return []models.Milestone{*s.milestone}, nil
}

func (s *stubMilestoneStore) FindByCommissionAndNumber(context.Context, string, int) (*models.Milestone, error) {
	return nil, sql.ErrNoRows
}

func (s *stubMilestoneStore) Counts(context.Context, string) (models.MilestoneCounts, error) {
	return s.counts, nil
}

func (s *stubMilestoneStore) Unlock(context.Context, string) error { return nil }

func (s *stubMilestoneStore) MarkPaid(_ context.Context, id string) error {
	if s.milestone != nil && s.milestone.ID == id && s.milestone.PaymentStatus == models.PaymentStatusUnpaid {
		s.milestone.PaymentStatus = models.PaymentStatusPaid
		return nil
	}
	return sql.ErrNoRows
}

func (s *stubMilestoneStore) CreateCheckpoint(_ context.Context, cp *models.ApprovalCheckpoint) error {
	clone := *cp
	s.checkpoint = &clone
	return nil
}

func (s *stubMilestoneStore) FindCheckpointByID(_ context.Context, id string) (*models.ApprovalCheckpoint, error) {
	if s.checkpoint != nil && s.checkpoint.ID == id {
		clone := *s.checkpoint
		return &clone, nil
	}
	return nil, sql.ErrNoRows
}

func (s *stubMilestoneStore) ListCheckpointsByMilestone(context.Context, string) ([]models.ApprovalCheckpoint, error) {
	if s.checkpoint == nil {
		return nil, nil
	}
	return []models.ApprovalCheckpoint{*s.checkpoint}, nil
}

func (s *stubMilestoneStore) HasPendingCheckpoint(context.Context, string) (bool, error) {
	return s.checkpoint != nil && s.checkpoint.ApprovalStatus == models.ApprovalStatusPending, nil
}

func (s *stubMilestoneStore) DecideCheckpoint(_ context.Context, id string, status models.ApprovalStatus, notes *string, approvedAt *time.Time) error {
	if s.checkpoint == nil || s.checkpoint.ID != id || s.checkpoint.ApprovalStatus != models.ApprovalStatusPending {
		return sql.ErrNoRows
	}
	s.checkpoint.ApprovalStatus = status
	s.checkpoint.ApprovalNotes = notes
	s.checkpoint.ApprovedAt = approvedAt
	return nil
}

func openSettings(artistID string) *stubSettingsStore {
	return &stubSettingsStore{settings: &models.QueueSettings{
		ArtistID:            artistID,
		MaxQueueSlots:       3,
		AllowWaitlist:       true,
		AutoPromoteWaitlist: true,
		IsOpen:              true,
	}}
}

func testContext(t *testing.T, method, target string, body interface{}) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	c.Request = httptest.NewRequest(method, target, reader)
	c.Request.Header.Set("Content-Type", "application/json")
	return c, rec
}

func asClient(c *gin.Context, actorID string) {
	c.Set(middleware.ContextUserKey, &models.Claims{ActorID: actorID, Role: models.RoleClient})
}

func asArtist(c *gin.Context, actorID string) {
	c.Set(middleware.ContextUserKey, &models.Claims{ActorID: actorID, Role: models.RoleArtist})
}

func TestBoardHandlerCreateUnauthorized(t *testing.T) {
	board := service.NewBoardService(&stubRequestStore{}, nil, nil, nil, nil)
	handler := NewBoardHandler(board)

	c, rec := testContext(t, http.MethodPost, "/requests", map[string]interface{}{"title": "x"})
	handler.Create(c)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestBoardHandlerCreate(t *testing.T) {
	requests := &stubRequestStore{}
	board := service.NewBoardService(requests, nil, nil, nil, nil)
	handler := NewBoardHandler(board)

	c, rec := testContext(t, http.MethodPost, "/requests", map[string]interface{}{
		"title":            "Character sheet",
		"description":      "Full body character sheet in ink",
		"reference_images": []string{"https://assets.example.com/ref.png"},
	})
	asClient(c, "client-1")
	handler.Create(c)

	assert.Equal(t, http.StatusCreated, rec.Code)
	require.Len(t, requests.created, 1)
	assert.Equal(t, "client-1", requests.created[0].ClientID)
}

func TestBoardHandlerCreateValidation(t *testing.T) {
	board := service.NewBoardService(&stubRequestStore{}, nil, nil, nil, nil)
	handler := NewBoardHandler(board)

	// Missing reference images.
	c, rec := testContext(t, http.MethodPost, "/requests", map[string]interface{}{
		"title":       "Character sheet",
		"description": "Full body character sheet in ink",
	})
	asClient(c, "client-1")
	handler.Create(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestBoardHandlerAcceptBidQueueFull(t *testing.T) {
	requests := &stubRequestStore{
		request: &models.CommissionRequest{ID: "r1", ClientID: "client-1", Status: models.RequestStatusOpen},
		bid:     &models.Bid{ID: "b1", RequestID: "r1", ArtistID: "artist-1", Amount: 100, Status: models.BidStatusPending},
	}
	settings := openSettings("artist-1")
	settings.settings.MaxQueueSlots = 0
	settings.settings.AllowWaitlist = false
	// CountByQueueState returns 0; with zero slots and no waitlist the
	// admission must fail.
	queue := service.NewQueueService(&stubCommissionStore{}, settings, nil, nil, nil, nil, nil, nil, 3)
	board := service.NewBoardService(requests, queue, nil, nil, nil)
	handler := NewBoardHandler(board)

	c, rec := testContext(t, http.MethodPost, "/bids/b1/accept", map[string]interface{}{})
	c.Params = gin.Params{{Key: "id", Value: "b1"}}
	asClient(c, "client-1")
	handler.AcceptBid(c)

	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestCommissionHandlerCanCancel(t *testing.T) {
	commissions := &stubCommissionStore{commission: &models.Commission{
		ID: "c1", ClientID: "client-1", ArtistID: "artist-1",
		Status: models.CommissionStatusInProgress, QueueState: models.QueueStateActive,
	}}
	milestones := &stubMilestoneStore{counts: models.MilestoneCounts{Total: 4, Paid: 3}}
	queue := service.NewQueueService(commissions, openSettings("artist-1"), nil, nil, nil, nil, nil, nil, 3)
	cancellation := service.NewCancellationService(commissions, milestones, queue, nil, nil, nil, nil, nil)
	handler := NewCommissionHandler(queue, cancellation, nil, nil)

	c, rec := testContext(t, http.MethodGet, "/commissions/c1/can-cancel", nil)
	c.Params = gin.Params{{Key: "id", Value: "c1"}}
	handler.CanCancel(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	var envelope struct {
		Data struct {
			Allowed       bool    `json:"allowed"`
			CompletionPct float64 `json:"completion_pct"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.False(t, envelope.Data.Allowed)
	assert.Equal(t, 75.0, envelope.Data.CompletionPct)
}

func TestCommissionHandlerCancelBlocked(t *testing.T) {
	commissions := &stubCommissionStore{commission: &models.Commission{
		ID: "c1", ClientID: "client-1", ArtistID: "artist-1",
		Status: models.CommissionStatusInProgress, QueueState: models.QueueStateActive,
	}}
	milestones := &stubMilestoneStore{counts: models.MilestoneCounts{Total: 4, Paid: 3}}
	queue := service.NewQueueService(commissions, openSettings("artist-1"), nil, nil, nil, nil, nil, nil, 3)
	cancellation := service.NewCancellationService(commissions, milestones, queue, nil, nil, nil, nil, nil)
	handler := NewCommissionHandler(queue, cancellation, nil, nil)

	c, rec := testContext(t, http.MethodPost, "/commissions/c1/cancel", nil)
	c.Params = gin.Params{{Key: "id", Value: "c1"}}
	asClient(c, "client-1")
	handler.Cancel(c)

	assert.Equal(t, http.StatusPreconditionFailed, rec.Code)
	var envelope struct {
		Error struct {
			Code    string                 `json:"code"`
			Details map[string]interface{} `json:"details"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, "CANCELLATION_BLOCKED", envelope.Error.Code)
	assert.Equal(t, 3.0, envelope.Error.Details["paid_milestones"])
}

func TestCommissionHandlerStart(t *testing.T) {
	position := 1
	commissions := &stubCommissionStore{commission: &models.Commission{
		ID: "c1", ClientID: "client-1", ArtistID: "artist-1",
		Status: models.CommissionStatusPending, QueueState: models.QueueStateActive, QueuePosition: &position,
	}}
	queue := service.NewQueueService(commissions, openSettings("artist-1"), nil, nil, nil, nil, nil, nil, 3)
	handler := NewCommissionHandler(queue, nil, nil, nil)

	c, rec := testContext(t, http.MethodPost, "/commissions/c1/start", nil)
	c.Params = gin.Params{{Key: "id", Value: "c1"}}
	asArtist(c, "artist-1")
	handler.Start(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, models.CommissionStatusInProgress, commissions.updates["c1"])
}

func TestQueueHandlerSnapshot(t *testing.T) {
	position := 1
	commissions := &stubCommissionStore{commission: &models.Commission{
		ID: "c1", ClientID: "client-1", ArtistID: "artist-1",
		Status: models.CommissionStatusPending, QueueState: models.QueueStateActive, QueuePosition: &position,
	}}
	queue := service.NewQueueService(commissions, openSettings("artist-1"), nil, nil, nil, nil, nil, nil, 3)
	handler := NewQueueHandler(queue, nil)

	c, rec := testContext(t, http.MethodGet, "/artists/artist-1/queue", nil)
	c.Params = gin.Params{{Key: "id", Value: "artist-1"}}
	handler.Snapshot(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	var envelope struct {
		Data struct {
			SlotsUsed  int `json:"slots_used"`
			SlotsTotal int `json:"slots_total"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, 1, envelope.Data.SlotsUsed)
	assert.Equal(t, 3, envelope.Data.SlotsTotal)
}

func TestQueueHandlerUpdateSettings(t *testing.T) {
	settings := openSettings("artist-1")
	queue := service.NewQueueService(&stubCommissionStore{}, settings, nil, nil, nil, nil, nil, nil, 3)
	handler := NewQueueHandler(queue, nil)

	c, rec := testContext(t, http.MethodPut, "/queue-settings", map[string]interface{}{
		"max_queue_slots": 5,
		"allow_waitlist":  true,
		"is_open":         true,
	})
	asArtist(c, "artist-1")
	handler.UpdateSettings(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 5, settings.settings.MaxQueueSlots)
}

func TestMilestoneHandlerCompleteLocked(t *testing.T) {
	commissions := &stubCommissionStore{commission: &models.Commission{
		ID: "c1", ClientID: "client-1", ArtistID: "artist-1",
		Status: models.CommissionStatusInProgress, QueueState: models.QueueStateActive,
	}}
	milestones := &stubMilestoneStore{milestone: &models.Milestone{
		ID: "m2", CommissionID: "c1", Number: 2, IsLocked: true,
		PaymentStatus: models.PaymentStatusUnpaid,
	}}
	queue := service.NewQueueService(commissions, openSettings("artist-1"), nil, nil, nil, nil, nil, nil, 3)
	milestoneSvc := service.NewMilestoneService(milestones, commissions, nil, queue, nil, nil, nil, nil, nil, nil)
	handler := NewMilestoneHandler(milestoneSvc)

	c, rec := testContext(t, http.MethodPost, "/milestones/m2/complete", map[string]interface{}{
		"image_url": "https://assets.example.com/final.png",
	})
	c.Params = gin.Params{{Key: "id", Value: "m2"}}
	asArtist(c, "artist-1")
	handler.Complete(c)

	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestMilestoneHandlerDecideValidationError(t *testing.T) {
	milestoneSvc := service.NewMilestoneService(&stubMilestoneStore{}, &stubCommissionStore{}, nil, nil, nil, nil, nil, nil, nil, nil)
	handler := NewMilestoneHandler(milestoneSvc)

	c, rec := testContext(t, http.MethodPost, "/checkpoints/cp1/decide", nil)
	c.Params = gin.Params{{Key: "id", Value: "cp1"}}
	asClient(c, "client-1")
	handler.Decide(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
