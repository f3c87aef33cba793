package service

import (
	"context"
	"database/sql"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atelier-labs/commission-api/internal/dto"
	"github.com/atelier-labs/commission-api/internal/models"
	"github.com/atelier-labs/commission-api/internal/payment"
	appErrors "github.com/atelier-labs/commission-api/pkg/errors"
)

type mockMilestoneStore struct {
	mu          sync.Mutex
	milestones  map[string]*models.Milestone
	checkpoints map[string]*models.ApprovalCheckpoint
	unlocked    []string
	paid        []string
}

func newMockMilestoneStore(milestones ...*models.Milestone) *mockMilestoneStore {
	store := &mockMilestoneStore{
		milestones:  make(map[string]*models.Milestone),
		checkpoints: make(map[string]*models.ApprovalCheckpoint),
	}
	for _, m := range milestones {
		cp := *m
		store.milestones[m.ID] = &cp
	}
	return store
}

func (m *mockMilestoneStore) FindByID(ctx context.Context, id string) (*models.Milestone, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if ms, ok := m.milestones[id]; ok {
		cp := *ms
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockMilestoneStore) ListByCommission(ctx context.Context, commissionID string) ([]models.Milestone, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Milestone
	for _, ms := range m.milestones {
		if ms.CommissionID == commissionID {
			out = append(out, *ms)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out, nil
}

func (m *mockMilestoneStore) FindByCommissionAndNumber(ctx context.Context, commissionID string, number int) (*models.Milestone, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, ms := range m.milestones {
		if ms.CommissionID == commissionID && ms.Number == number {
			cp := *ms
			return &cp, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockMilestoneStore) Counts(ctx context.Context, commissionID string) (models.MilestoneCounts, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var counts models.MilestoneCounts
	for _, ms := range m.milestones {
		if ms.CommissionID == commissionID {
			counts.Total++
			if ms.PaymentStatus == models.PaymentStatusPaid {
				counts.Paid++
			}
		}
	}
	return counts, nil
}

func (m *mockMilestoneStore) Unlock(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	ms, ok := m.milestones[id]
	if !ok {
		return sql.ErrNoRows
	}
	ms.IsLocked = false
	m.unlocked = append(m.unlocked, id)
	return nil
}

func (m *mockMilestoneStore) MarkPaid(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	ms, ok := m.milestones[id]
	if !ok || ms.PaymentStatus == models.PaymentStatusPaid {
		return sql.ErrNoRows
	}
	ms.PaymentStatus = models.PaymentStatusPaid
	m.paid = append(m.paid, id)
	return nil
}

func (m *mockMilestoneStore) CreateCheckpoint(ctx context.Context, cp *models.ApprovalCheckpoint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if cp.ID == "" {
		cp.ID = uuid.NewString()
	}
	clone := *cp
	m.checkpoints[cp.ID] = &clone
	return nil
}

func (m *mockMilestoneStore) FindCheckpointByID(ctx context.Context, id string) (*models.ApprovalCheckpoint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if cp, ok := m.checkpoints[id]; ok {
		clone := *cp
		return &clone, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockMilestoneStore) ListCheckpointsByMilestone(ctx context.Context, milestoneID string) ([]models.ApprovalCheckpoint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.ApprovalCheckpoint
	for _, cp := range m.checkpoints {
		if cp.MilestoneID == milestoneID {
			out = append(out, *cp)
		}
	}
	return out, nil
}

func (m *mockMilestoneStore) HasPendingCheckpoint(ctx context.Context, milestoneID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, cp := range m.checkpoints {
		if cp.MilestoneID == milestoneID && cp.ApprovalStatus == models.ApprovalStatusPending {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockMilestoneStore) DecideCheckpoint(ctx context.Context, id string, status models.ApprovalStatus, notes *string, approvedAt *time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp, ok := m.checkpoints[id]
	if !ok || cp.ApprovalStatus != models.ApprovalStatusPending {
		return sql.ErrNoRows
	}
	cp.ApprovalStatus = status
	cp.ApprovalNotes = notes
	cp.ApprovedAt = approvedAt
	return nil
}

type mockPayments struct {
	mu       sync.Mutex
	captured []string
	failWith error
}

func (m *mockPayments) Capture(ctx context.Context, checkpointID, milestoneID string, amount float64) (*payment.CaptureOut, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return nil, m.failWith
	}
	m.captured = append(m.captured, checkpointID)
	return &payment.CaptureOut{Success: true, TransactionRef: "txn-" + checkpointID}, nil
}

func milestoneFixture(id, commissionID string, number int, locked bool) *models.Milestone {
	return &models.Milestone{
		ID:            id,
		CommissionID:  commissionID,
		Number:        number,
		Title:         "Step",
		Amount:        50,
		PaymentStatus: models.PaymentStatusUnpaid,
		IsLocked:      locked,
	}
}

func inProgressCommission(id string) *models.Commission {
	c := queued(id, "artist-1", models.QueueStateActive, 1)
	c.Status = models.CommissionStatusInProgress
	return c
}

func newMilestoneFixture(milestones *mockMilestoneStore, commissions *mockCommissionStore, payments *mockPayments, settings *mockSettingsStore) *MilestoneService {
	queue := NewQueueService(commissions, settings, nil, nil, nil, nil, nil, nil, 3)
	return NewMilestoneService(milestones, commissions, payments, queue, nil, nil, nil, nil, nil, nil)
}

func TestMilestoneServiceCompleteMilestone(t *testing.T) {
	milestones := newMockMilestoneStore(milestoneFixture("m1", "c1", 1, false))
	commissions := newMockCommissionStore(inProgressCommission("c1"))
	service := newMilestoneFixture(milestones, commissions, &mockPayments{}, settingsWith("artist-1", 3, true, true, true))

	checkpoint, err := service.CompleteMilestone(context.Background(), "artist-1", "m1", dto.SubmitCheckpointInput{
		ImageURL: "https://assets.example.com/final.png",
	})
	require.NoError(t, err)
	assert.Equal(t, models.ApprovalStatusPending, checkpoint.ApprovalStatus)
	assert.Len(t, milestones.checkpoints, 1)
}

func TestMilestoneServiceCompleteMilestoneLocked(t *testing.T) {
	milestones := newMockMilestoneStore(milestoneFixture("m2", "c1", 2, true))
	commissions := newMockCommissionStore(inProgressCommission("c1"))
	service := newMilestoneFixture(milestones, commissions, &mockPayments{}, settingsWith("artist-1", 3, true, true, true))

	_, err := service.CompleteMilestone(context.Background(), "artist-1", "m2", dto.SubmitCheckpointInput{
		ImageURL: "https://assets.example.com/final.png",
	})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrMilestoneLocked))
}

func TestMilestoneServiceCompleteMilestoneDuplicatePending(t *testing.T) {
	milestones := newMockMilestoneStore(milestoneFixture("m1", "c1", 1, false))
	milestones.checkpoints["cp1"] = &models.ApprovalCheckpoint{
		ID: "cp1", MilestoneID: "m1", ImageURL: "https://assets.example.com/v1.png",
		ApprovalStatus: models.ApprovalStatusPending,
	}
	commissions := newMockCommissionStore(inProgressCommission("c1"))
	service := newMilestoneFixture(milestones, commissions, &mockPayments{}, settingsWith("artist-1", 3, true, true, true))

	_, err := service.CompleteMilestone(context.Background(), "artist-1", "m1", dto.SubmitCheckpointInput{
		ImageURL: "https://assets.example.com/v2.png",
	})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrDuplicateSubmission))
}

func TestMilestoneServiceCompleteMilestoneWrongArtist(t *testing.T) {
	milestones := newMockMilestoneStore(milestoneFixture("m1", "c1", 1, false))
	commissions := newMockCommissionStore(inProgressCommission("c1"))
	service := newMilestoneFixture(milestones, commissions, &mockPayments{}, settingsWith("artist-1", 3, true, true, true))

	_, err := service.CompleteMilestone(context.Background(), "artist-2", "m1", dto.SubmitCheckpointInput{
		ImageURL: "https://assets.example.com/final.png",
	})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrForbidden))
}

func TestMilestoneServiceApproveUnlocksNext(t *testing.T) {
	milestones := newMockMilestoneStore(
		milestoneFixture("m1", "c1", 1, false),
		milestoneFixture("m2", "c1", 2, true),
	)
	milestones.checkpoints["cp1"] = &models.ApprovalCheckpoint{
		ID: "cp1", MilestoneID: "m1", ImageURL: "https://assets.example.com/v1.png",
		ApprovalStatus: models.ApprovalStatusPending,
	}
	commissions := newMockCommissionStore(inProgressCommission("c1"))
	payments := &mockPayments{}
	service := newMilestoneFixture(milestones, commissions, payments, settingsWith("artist-1", 3, true, true, true))

	decision, err := service.DecideApproval(context.Background(), "client-1", "cp1", dto.DecideCheckpointInput{Approve: true})
	require.NoError(t, err)

	assert.Equal(t, models.ApprovalStatusApproved, decision.Checkpoint.ApprovalStatus)
	assert.Equal(t, models.PaymentStatusPaid, decision.Milestone.PaymentStatus)
	assert.Equal(t, []string{"cp1"}, payments.captured)
	require.NotNil(t, decision.UnlockedMilestoneID)
	assert.Equal(t, "m2", *decision.UnlockedMilestoneID)
	assert.False(t, milestones.milestones["m2"].IsLocked)
	assert.False(t, decision.CommissionCompleted)
	assert.Equal(t, models.CommissionStatusInProgress, commissions.items["c1"].Status)
}

func TestMilestoneServiceApproveLastMilestoneCompletes(t *testing.T) {
	milestones := newMockMilestoneStore(milestoneFixture("m1", "c1", 1, false))
	milestones.checkpoints["cp1"] = &models.ApprovalCheckpoint{
		ID: "cp1", MilestoneID: "m1", ImageURL: "https://assets.example.com/v1.png",
		ApprovalStatus: models.ApprovalStatusPending,
	}
	commissions := newMockCommissionStore(
		inProgressCommission("c1"),
		queued("w1", "artist-1", models.QueueStateWaitlisted, 1),
	)
	service := newMilestoneFixture(milestones, commissions, &mockPayments{}, settingsWith("artist-1", 1, true, true, true))

	decision, err := service.DecideApproval(context.Background(), "client-1", "cp1", dto.DecideCheckpointInput{Approve: true})
	require.NoError(t, err)

	assert.True(t, decision.CommissionCompleted)
	assert.Equal(t, models.CommissionStatusCompleted, commissions.items["c1"].Status)

	// Completing the commission frees the slot and promotes the waitlist.
	assert.Equal(t, models.QueueStateNone, commissions.items["c1"].QueueState)
	promoted := commissions.items["w1"]
	assert.Equal(t, models.QueueStateActive, promoted.QueueState)
	assert.Equal(t, 1, *promoted.QueuePosition)
}

func TestMilestoneServiceRejectAllowsResubmission(t *testing.T) {
	milestones := newMockMilestoneStore(milestoneFixture("m1", "c1", 1, false))
	milestones.checkpoints["cp1"] = &models.ApprovalCheckpoint{
		ID: "cp1", MilestoneID: "m1", ImageURL: "https://assets.example.com/v1.png",
		ApprovalStatus: models.ApprovalStatusPending,
	}
	commissions := newMockCommissionStore(inProgressCommission("c1"))
	payments := &mockPayments{}
	service := newMilestoneFixture(milestones, commissions, payments, settingsWith("artist-1", 3, true, true, true))

	notes := "lines too rough"
	decision, err := service.DecideApproval(context.Background(), "client-1", "cp1", dto.DecideCheckpointInput{Approve: false, Notes: &notes})
	require.NoError(t, err)

	assert.Equal(t, models.ApprovalStatusRejected, decision.Checkpoint.ApprovalStatus)
	assert.Empty(t, payments.captured)
	assert.Equal(t, models.PaymentStatusUnpaid, milestones.milestones["m1"].PaymentStatus)

	// The artist may now file a fresh checkpoint.
	checkpoint, err := service.CompleteMilestone(context.Background(), "artist-1", "m1", dto.SubmitCheckpointInput{
		ImageURL: "https://assets.example.com/v2.png",
	})
	require.NoError(t, err)
	assert.Equal(t, models.ApprovalStatusPending, checkpoint.ApprovalStatus)
	assert.Len(t, milestones.checkpoints, 2)
}

func TestMilestoneServiceCaptureFailureLeavesRetryable(t *testing.T) {
	milestones := newMockMilestoneStore(
		milestoneFixture("m1", "c1", 1, false),
		milestoneFixture("m2", "c1", 2, true),
	)
	milestones.checkpoints["cp1"] = &models.ApprovalCheckpoint{
		ID: "cp1", MilestoneID: "m1", ImageURL: "https://assets.example.com/v1.png",
		ApprovalStatus: models.ApprovalStatusPending,
	}
	commissions := newMockCommissionStore(inProgressCommission("c1"))
	payments := &mockPayments{failWith: appErrors.ErrDependency}
	service := newMilestoneFixture(milestones, commissions, payments, settingsWith("artist-1", 3, true, true, true))

	_, err := service.DecideApproval(context.Background(), "client-1", "cp1", dto.DecideCheckpointInput{Approve: true})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrDependency))

	// Checkpoint approved, milestone unpaid, next milestone still locked.
	assert.Equal(t, models.ApprovalStatusApproved, milestones.checkpoints["cp1"].ApprovalStatus)
	assert.Equal(t, models.PaymentStatusUnpaid, milestones.milestones["m1"].PaymentStatus)
	assert.True(t, milestones.milestones["m2"].IsLocked)

	// Retrying the same approval re-attempts capture only.
	payments.failWith = nil
	decision, err := service.DecideApproval(context.Background(), "client-1", "cp1", dto.DecideCheckpointInput{Approve: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"cp1"}, payments.captured)
	assert.Equal(t, models.PaymentStatusPaid, decision.Milestone.PaymentStatus)
	assert.False(t, milestones.milestones["m2"].IsLocked)
}

func TestMilestoneServiceConcurrentApprovalCapturesOnce(t *testing.T) {
	milestones := newMockMilestoneStore(
		milestoneFixture("m1", "c1", 1, false),
		milestoneFixture("m2", "c1", 2, true),
	)
	milestones.checkpoints["cp1"] = &models.ApprovalCheckpoint{
		ID: "cp1", MilestoneID: "m1", ImageURL: "https://assets.example.com/v1.png",
		ApprovalStatus: models.ApprovalStatusPending,
	}
	commissions := newMockCommissionStore(inProgressCommission("c1"))
	payments := &mockPayments{}
	service := newMilestoneFixture(milestones, commissions, payments, settingsWith("artist-1", 3, true, true, true))

	errs := make(chan error, 2)
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := service.DecideApproval(context.Background(), "client-1", "cp1", dto.DecideCheckpointInput{Approve: true})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	var failures []error
	for err := range errs {
		if err != nil {
			failures = append(failures, err)
		}
	}
	require.Len(t, failures, 1)
	assert.True(t, appErrors.Is(failures[0], appErrors.ErrConflict))

	// Exactly one capture, one payment, one unlock.
	assert.Equal(t, []string{"cp1"}, payments.captured)
	assert.Equal(t, []string{"m1"}, milestones.paid)
	assert.Equal(t, []string{"m2"}, milestones.unlocked)
}

func TestMilestoneServiceDecideApprovalAlreadyDecided(t *testing.T) {
	milestones := newMockMilestoneStore(milestoneFixture("m1", "c1", 1, false))
	milestones.checkpoints["cp1"] = &models.ApprovalCheckpoint{
		ID: "cp1", MilestoneID: "m1", ImageURL: "https://assets.example.com/v1.png",
		ApprovalStatus: models.ApprovalStatusRejected,
	}
	commissions := newMockCommissionStore(inProgressCommission("c1"))
	service := newMilestoneFixture(milestones, commissions, &mockPayments{}, settingsWith("artist-1", 3, true, true, true))

	_, err := service.DecideApproval(context.Background(), "client-1", "cp1", dto.DecideCheckpointInput{Approve: true})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrConflict))
}

func TestMilestoneServiceDecideApprovalWrongClient(t *testing.T) {
	milestones := newMockMilestoneStore(milestoneFixture("m1", "c1", 1, false))
	milestones.checkpoints["cp1"] = &models.ApprovalCheckpoint{
		ID: "cp1", MilestoneID: "m1", ImageURL: "https://assets.example.com/v1.png",
		ApprovalStatus: models.ApprovalStatusPending,
	}
	commissions := newMockCommissionStore(inProgressCommission("c1"))
	service := newMilestoneFixture(milestones, commissions, &mockPayments{}, settingsWith("artist-1", 3, true, true, true))

	_, err := service.DecideApproval(context.Background(), "client-9", "cp1", dto.DecideCheckpointInput{Approve: true})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrForbidden))
}
