package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/unimark/attendance-api/internal/models"
)

const qrSessionColumns = `id, attendance_session_id, class_id, session_date, expires_at, scan_count, status, latitude, longitude, radius, created_by, created_at`

// QRSessionRepository persists the short-lived scan sessions. Rows are never
// deleted; sessions expire or are closed.
type QRSessionRepository struct {
	db *sqlx.DB
}

// NewQRSessionRepository constructs the repository.
func NewQRSessionRepository(db *sqlx.DB) *QRSessionRepository {
	return &QRSessionRepository{db: db}
}

// Create inserts a new QR session. The caller supplies the capability-token
// id.
func (r *QRSessionRepository) Create(ctx context.Context, session *models.QRSession) error {
	if session.CreatedAt.IsZero() {
		session.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO qr_sessions (id, attendance_session_id, class_id, session_date, expires_at, scan_count, status, latitude, longitude, radius, created_by, created_at)
VALUES (:id, :attendance_session_id, :class_id, :session_date, :expires_at, :scan_count, :status, :latitude, :longitude, :radius, :created_by, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, session); err != nil {
		return fmt.Errorf("create qr session: %w", err)
	}
	return nil
}

// FindByID returns a QR session by its token id. Closed sessions are treated
// the same as missing ones, so callers see a single not-found path.
func (r *QRSessionRepository) FindByID(ctx context.Context, id string) (*models.QRSession, error) {
	query := fmt.Sprintf(`SELECT %s FROM qr_sessions WHERE id = $1 AND status <> $2 LIMIT 1`, qrSessionColumns)
	var session models.QRSession
	if err := r.db.GetContext(ctx, &session, query, id, models.QRSessionClosed); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find qr session: %w", err)
	}
	return &session, nil
}

// IncrementScanCount bumps the advisory scan counter. The increment happens
// in the database so concurrent scans cannot lose updates.
func (r *QRSessionRepository) IncrementScanCount(ctx context.Context, id string) error {
	const query = `UPDATE qr_sessions SET scan_count = scan_count + 1 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("increment scan count: %w", err)
	}
	return nil
}

// UpdateStatus transitions a session's lifecycle state.
func (r *QRSessionRepository) UpdateStatus(ctx context.Context, id string, status models.QRSessionStatus) error {
	const query = `UPDATE qr_sessions SET status = $2 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, status); err != nil {
		return fmt.Errorf("update qr session status: %w", err)
	}
	return nil
}

// ScannedStudents lists the students who checked in through this session,
// most recent first, for the staff polling view.
func (r *QRSessionRepository) ScannedStudents(ctx context.Context, id string) ([]models.ScannedStudent, error) {
	const query = `SELECT s.id AS student_id, s.full_name, s.student_number, ar.created_at AS scanned_at
FROM attendance_records ar
JOIN students s ON s.id = ar.student_id
WHERE ar.qr_session_id = $1
ORDER BY ar.created_at DESC`
	var rows []models.ScannedStudent
	if err := r.db.SelectContext(ctx, &rows, query, id); err != nil {
		return nil, fmt.Errorf("list scanned students: %w", err)
	}
	return rows, nil
}
