package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/unimark/attendance-api/internal/models"
)

const attendanceSessionColumns = `id, class_id, session_date, starts_at, expires_at, latitude, longitude, radius, created_by, active, closed_at, created_at`

// AttendanceSessionRepository persists the long-lived class meeting windows.
type AttendanceSessionRepository struct {
	db *sqlx.DB
}

// NewAttendanceSessionRepository constructs the repository.
func NewAttendanceSessionRepository(db *sqlx.DB) *AttendanceSessionRepository {
	return &AttendanceSessionRepository{db: db}
}

// Create inserts a new attendance session.
func (r *AttendanceSessionRepository) Create(ctx context.Context, session *models.AttendanceSession) error {
	if session.ID == "" {
		session.ID = uuid.NewString()
	}
	if session.CreatedAt.IsZero() {
		session.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO attendance_sessions (id, class_id, session_date, starts_at, expires_at, latitude, longitude, radius, created_by, active, closed_at, created_at)
VALUES (:id, :class_id, :session_date, :starts_at, :expires_at, :latitude, :longitude, :radius, :created_by, :active, :closed_at, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, session); err != nil {
		return fmt.Errorf("create attendance session: %w", err)
	}
	return nil
}

// FindByID returns a session by identifier.
func (r *AttendanceSessionRepository) FindByID(ctx context.Context, id string) (*models.AttendanceSession, error) {
	query := fmt.Sprintf(`SELECT %s FROM attendance_sessions WHERE id = $1 LIMIT 1`, attendanceSessionColumns)
	var session models.AttendanceSession
	if err := r.db.GetContext(ctx, &session, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find attendance session: %w", err)
	}
	return &session, nil
}

// FindActiveForClass returns today's open session for a class, if any.
func (r *AttendanceSessionRepository) FindActiveForClass(ctx context.Context, classID string, date time.Time) (*models.AttendanceSession, error) {
	query := fmt.Sprintf(`SELECT %s FROM attendance_sessions WHERE class_id = $1 AND session_date = $2::date AND active = TRUE ORDER BY created_at DESC LIMIT 1`, attendanceSessionColumns)
	var session models.AttendanceSession
	if err := r.db.GetContext(ctx, &session, query, classID, date); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find active session for class: %w", err)
	}
	return &session, nil
}

// Close marks a session inactive.
func (r *AttendanceSessionRepository) Close(ctx context.Context, id string, closedAt time.Time) error {
	const query = `UPDATE attendance_sessions SET active = FALSE, closed_at = $2 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, closedAt); err != nil {
		return fmt.Errorf("close attendance session: %w", err)
	}
	return nil
}
