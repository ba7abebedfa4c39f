package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unimark/attendance-api/internal/models"
)

func newQRSessionMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestQRSessionFindByIDExcludesClosed(t *testing.T) {
	db, mock, cleanup := newQRSessionMock(t)
	defer cleanup()
	repo := NewQRSessionRepository(db)

	rows := sqlmock.NewRows([]string{"id", "attendance_session_id", "class_id", "session_date", "expires_at", "scan_count", "status", "latitude", "longitude", "radius", "created_by", "created_at"}).
		AddRow("qr-1", "att-1", "cls-1", time.Now(), time.Now().Add(5*time.Minute), 3, "active", nil, nil, nil, "staff-1", time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, attendance_session_id, class_id, session_date, expires_at, scan_count, status, latitude, longitude, radius, created_by, created_at FROM qr_sessions WHERE id = $1 AND status <> $2 LIMIT 1")).
		WithArgs("qr-1", models.QRSessionClosed).
		WillReturnRows(rows)

	session, err := repo.FindByID(context.Background(), "qr-1")
	require.NoError(t, err)
	assert.Equal(t, "qr-1", session.ID)
	assert.Equal(t, 3, session.ScanCount)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestQRSessionFindByIDNotFound(t *testing.T) {
	db, mock, cleanup := newQRSessionMock(t)
	defer cleanup()
	repo := NewQRSessionRepository(db)

	mock.ExpectQuery("SELECT .+ FROM qr_sessions").WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByID(context.Background(), "missing")
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestQRSessionIncrementScanCount(t *testing.T) {
	db, mock, cleanup := newQRSessionMock(t)
	defer cleanup()
	repo := NewQRSessionRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE qr_sessions SET scan_count = scan_count + 1 WHERE id = $1")).
		WithArgs("qr-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.IncrementScanCount(context.Background(), "qr-1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestQRSessionCreate(t *testing.T) {
	db, mock, cleanup := newQRSessionMock(t)
	defer cleanup()
	repo := NewQRSessionRepository(db)

	mock.ExpectExec("INSERT INTO qr_sessions").
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	session := &models.QRSession{
		ID:                  "qr-1",
		AttendanceSessionID: "att-1",
		ClassID:             "cls-1",
		SessionDate:         time.Now(),
		ExpiresAt:           time.Now().Add(5 * time.Minute),
		Status:              models.QRSessionActive,
		CreatedBy:           "staff-1",
	}
	require.NoError(t, repo.Create(context.Background(), session))
	assert.NoError(t, mock.ExpectationsWereMet())
}
