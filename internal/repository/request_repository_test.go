package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atelier-labs/commission-api/internal/models"
)

func newRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestRequestRepositoryCreateRequest(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewRequestRepository(db)

	mock.ExpectExec("INSERT INTO commission_requests").
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	req := &models.CommissionRequest{
		ClientID:        "client-1",
		Title:           "Fantasy portrait",
		Description:     "Half body painted portrait of my OC with armor",
		ReferenceImages: pq.StringArray{"https://cdn.example.com/ref1.png"},
	}
	err := repo.CreateRequest(context.Background(), req)
	require.NoError(t, err)
	assert.NotEmpty(t, req.ID)
	assert.Equal(t, models.RequestStatusOpen, req.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRequestRepositoryFindRequestByID(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewRequestRepository(db)

	rows := sqlmock.NewRows([]string{"id", "client_id", "title", "description", "budget_min", "budget_max", "preferred_styles", "reference_images", "status", "created_at"}).
		AddRow("req-1", "client-1", "Portrait", "A painted half body portrait", nil, nil, pq.StringArray{}, pq.StringArray{"https://cdn.example.com/ref1.png"}, models.RequestStatusOpen, time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, client_id, title, description, budget_min, budget_max, preferred_styles, reference_images, status, created_at")).
		WithArgs("req-1").
		WillReturnRows(rows)

	req, err := repo.FindRequestByID(context.Background(), "req-1")
	require.NoError(t, err)
	assert.Equal(t, "client-1", req.ClientID)
	assert.Len(t, []string(req.ReferenceImages), 1)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRequestRepositoryCloseRequestAlreadyClosed(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewRequestRepository(db)

	mock.ExpectExec("UPDATE commission_requests SET status").
		WithArgs("req-1", models.RequestStatusClosed, models.RequestStatusOpen).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.CloseRequest(context.Background(), "req-1")
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRequestRepositoryHasPendingBid(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewRequestRepository(db)

	rows := sqlmock.NewRows([]string{"?column?"}).AddRow(1)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM bids WHERE request_id = $1 AND artist_id = $2 AND status = $3 LIMIT 1")).
		WithArgs("req-1", "artist-1", models.BidStatusPending).
		WillReturnRows(rows)

	exists, err := repo.HasPendingBid(context.Background(), "req-1", "artist-1")
	require.NoError(t, err)
	assert.True(t, exists)
	require.NoError(t, mock.ExpectationsWereMet())
}
