package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/atelier-labs/commission-api/internal/dto"
	"github.com/atelier-labs/commission-api/internal/models"
	appErrors "github.com/atelier-labs/commission-api/pkg/errors"
)

type stateLogStore interface {
	Append(ctx context.Context, entry *models.StateLogEntry) error
	ListByCommission(ctx context.Context, commissionID string) ([]models.StateLogEntry, error)
}

type historyCommissionStore interface {
	FindByID(ctx context.Context, id string) (*models.Commission, error)
}

// HistoryService owns the append-only commission transition ledger.
type HistoryService struct {
	entries     stateLogStore
	commissions historyCommissionStore
	logger      *zap.Logger
}

func NewHistoryService(entries stateLogStore, commissions historyCommissionStore, logger *zap.Logger) *HistoryService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HistoryService{entries: entries, commissions: commissions, logger: logger}
}

// Record appends one accepted transition. Ledger writes are best-effort: a
// failure is logged but never rolls back the transition that caused it.
func (s *HistoryService) Record(ctx context.Context, commissionID string, from *models.CommissionStatus, to models.CommissionStatus) {
	if s == nil || s.entries == nil {
		return
	}
	entry := &models.StateLogEntry{
		ID:           uuid.NewString(),
		CommissionID: commissionID,
		FromStatus:   from,
		ToStatus:     to,
		ChangedAt:    time.Now().UTC(),
	}
	if err := s.entries.Append(ctx, entry); err != nil {
		s.logger.Error("append state log entry",
			zap.String("commission_id", commissionID),
			zap.String("to_status", string(to)),
			zap.Error(err))
	}
}

// History returns the ordered ledger for one commission.
func (s *HistoryService) History(ctx context.Context, commissionID string) (*dto.CommissionHistory, error) {
	if _, err := s.commissions.FindByID(ctx, commissionID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "commission not found")
		}
		return nil, err
	}

	entries, err := s.entries.ListByCommission(ctx, commissionID)
	if err != nil {
		return nil, err
	}
	return &dto.CommissionHistory{CommissionID: commissionID, Entries: entries}, nil
}
