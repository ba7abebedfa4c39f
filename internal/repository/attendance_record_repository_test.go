package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unimark/attendance-api/internal/models"
)

func newRecordMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestAttendanceRecordFindExisting(t *testing.T) {
	db, mock, cleanup := newRecordMock(t)
	defer cleanup()
	repo := NewAttendanceRecordRepository(db)

	day := time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"id", "student_id", "class_id", "session_date", "status", "method", "qr_session_id", "distance_meters", "location_verified", "notes", "created_at"}).
		AddRow("rec-1", "stu-1", "cls-1", day, "present", "qr", "qr-1", nil, false, nil, time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, student_id, class_id, session_date, status, method, qr_session_id, distance_meters, location_verified, notes, created_at FROM attendance_records WHERE student_id = $1 AND class_id = $2 AND session_date = $3::date LIMIT 1")).
		WithArgs("stu-1", "cls-1", day).
		WillReturnRows(rows)

	record, err := repo.FindExisting(context.Background(), "stu-1", "cls-1", day)
	require.NoError(t, err)
	assert.Equal(t, "rec-1", record.ID)
	assert.Equal(t, models.AttendanceStatusPresent, record.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAttendanceRecordFindExistingNoRows(t *testing.T) {
	db, mock, cleanup := newRecordMock(t)
	defer cleanup()
	repo := NewAttendanceRecordRepository(db)

	mock.ExpectQuery("SELECT .+ FROM attendance_records").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindExisting(context.Background(), "stu-1", "cls-1", time.Now())
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestAttendanceRecordCreate(t *testing.T) {
	db, mock, cleanup := newRecordMock(t)
	defer cleanup()
	repo := NewAttendanceRecordRepository(db)

	mock.ExpectExec("INSERT INTO attendance_records").
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	record := &models.AttendanceRecord{
		StudentID:   "stu-1",
		ClassID:     "cls-1",
		SessionDate: time.Now(),
		Status:      models.AttendanceStatusPresent,
		Method:      models.AttendanceMethodQR,
	}
	require.NoError(t, repo.Create(context.Background(), record))
	assert.NotEmpty(t, record.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAttendanceRecordCreateUniqueViolation(t *testing.T) {
	db, mock, cleanup := newRecordMock(t)
	defer cleanup()
	repo := NewAttendanceRecordRepository(db)

	mock.ExpectExec("INSERT INTO attendance_records").
		WillReturnError(&pq.Error{Code: "23505", Constraint: "attendance_records_student_class_date_key"})

	err := repo.Create(context.Background(), &models.AttendanceRecord{
		StudentID:   "stu-1",
		ClassID:     "cls-1",
		SessionDate: time.Now(),
		Status:      models.AttendanceStatusPresent,
		Method:      models.AttendanceMethodQR,
	})
	assert.ErrorIs(t, err, ErrDuplicateRecord)
}
