package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/unimark/attendance-api/internal/models"
)

// ErrDuplicateRecord signals the unique constraint on
// (student_id, class_id, session_date) rejected an insert. The constraint is
// the correctness backstop for concurrent check-ins; the application-level
// duplicate check is only a fast path.
var ErrDuplicateRecord = errors.New("attendance record already exists")

// uniqueViolation is the PostgreSQL error code for unique_violation.
const uniqueViolation = "23505"

const attendanceRecordColumns = `id, student_id, class_id, session_date, status, method, qr_session_id, distance_meters, location_verified, notes, created_at`

// AttendanceRecordRepository persists finalized check-ins.
type AttendanceRecordRepository struct {
	db *sqlx.DB
}

// NewAttendanceRecordRepository constructs the repository.
func NewAttendanceRecordRepository(db *sqlx.DB) *AttendanceRecordRepository {
	return &AttendanceRecordRepository{db: db}
}

// FindExisting returns the record for the (student, class, calendar day)
// tuple, or sql.ErrNoRows when none exists. Dates are compared by day, not
// timestamp.
func (r *AttendanceRecordRepository) FindExisting(ctx context.Context, studentID, classID string, sessionDate time.Time) (*models.AttendanceRecord, error) {
	query := fmt.Sprintf(`SELECT %s FROM attendance_records WHERE student_id = $1 AND class_id = $2 AND session_date = $3::date LIMIT 1`, attendanceRecordColumns)
	var record models.AttendanceRecord
	if err := r.db.GetContext(ctx, &record, query, studentID, classID, sessionDate); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find existing attendance record: %w", err)
	}
	return &record, nil
}

// Create inserts a new record. A storage-level unique violation surfaces as
// ErrDuplicateRecord so the orchestrator can report it as an ordinary
// duplicate rather than a server fault.
func (r *AttendanceRecordRepository) Create(ctx context.Context, record *models.AttendanceRecord) error {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO attendance_records (id, student_id, class_id, session_date, status, method, qr_session_id, distance_meters, location_verified, notes, created_at)
VALUES (:id, :student_id, :class_id, :session_date, :status, :method, :qr_session_id, :distance_meters, :location_verified, :notes, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, record); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation {
			return ErrDuplicateRecord
		}
		return fmt.Errorf("create attendance record: %w", err)
	}
	return nil
}

// List returns records matching the provided filter with student metadata.
func (r *AttendanceRecordRepository) List(ctx context.Context, filter models.AttendanceFilter) ([]models.AttendanceRecordDetail, int, error) {
	base := `FROM attendance_records ar
JOIN students s ON s.id = ar.student_id
JOIN classes c ON c.id = ar.class_id`
	where := []string{"1=1"}
	args := []interface{}{}
	if filter.ClassID != "" {
		where = append(where, fmt.Sprintf("ar.class_id = $%d", len(args)+1))
		args = append(args, filter.ClassID)
	}
	if filter.StudentID != "" {
		where = append(where, fmt.Sprintf("ar.student_id = $%d", len(args)+1))
		args = append(args, filter.StudentID)
	}
	if filter.Status != nil && filter.Status.Valid() {
		where = append(where, fmt.Sprintf("ar.status = $%d", len(args)+1))
		args = append(args, *filter.Status)
	}
	if filter.Method != nil {
		where = append(where, fmt.Sprintf("ar.method = $%d", len(args)+1))
		args = append(args, *filter.Method)
	}
	if filter.DateFrom != nil {
		where = append(where, fmt.Sprintf("ar.session_date >= $%d", len(args)+1))
		args = append(args, *filter.DateFrom)
	}
	if filter.DateTo != nil {
		where = append(where, fmt.Sprintf("ar.session_date <= $%d", len(args)+1))
		args = append(args, *filter.DateTo)
	}
	whereClause := strings.Join(where, " AND ")

	allowedSort := map[string]string{
		"session_date": "ar.session_date",
		"status":       "ar.status",
		"created_at":   "ar.created_at",
	}
	sortColumn, ok := allowedSort[filter.SortBy]
	if !ok {
		sortColumn = "ar.created_at"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "DESC"
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 200 {
		size = 50
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT ar.id, ar.student_id, ar.class_id, ar.session_date, ar.status, ar.method, ar.qr_session_id, ar.distance_meters, ar.location_verified, ar.notes, ar.created_at,
        s.full_name AS student_name, s.student_number, c.name AS class_name
        %s WHERE %s
        ORDER BY %s %s
        LIMIT %d OFFSET %d`, base, whereClause, sortColumn, order, size, offset)

	var rows []models.AttendanceRecordDetail
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list attendance records: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s WHERE %s", base, whereClause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count attendance records: %w", err)
	}
	return rows, total, nil
}

// UpdateStatus flips a record's status, used when a justification is
// approved.
func (r *AttendanceRecordRepository) UpdateStatus(ctx context.Context, studentID, classID string, sessionDate time.Time, status models.AttendanceStatus) error {
	const query = `UPDATE attendance_records SET status = $4 WHERE student_id = $1 AND class_id = $2 AND session_date = $3::date`
	if _, err := r.db.ExecContext(ctx, query, studentID, classID, sessionDate, status); err != nil {
		return fmt.Errorf("update attendance record status: %w", err)
	}
	return nil
}

// StudentSummary aggregates per-status counts for a student.
func (r *AttendanceRecordRepository) StudentSummary(ctx context.Context, studentID string) (*models.AttendanceSummary, error) {
	const query = `SELECT status, COUNT(*) AS cnt FROM attendance_records WHERE student_id = $1 GROUP BY status`
	rows := []struct {
		Status string `db:"status"`
		Count  int    `db:"cnt"`
	}{}
	if err := r.db.SelectContext(ctx, &rows, query, studentID); err != nil {
		return nil, fmt.Errorf("student attendance summary: %w", err)
	}
	summary := &models.AttendanceSummary{}
	for _, row := range rows {
		switch models.AttendanceStatus(row.Status) {
		case models.AttendanceStatusPresent:
			summary.Present += row.Count
		case models.AttendanceStatusAbsent:
			summary.Absent += row.Count
		case models.AttendanceStatusLate:
			summary.Late += row.Count
		case models.AttendanceStatusExcused:
			summary.Excused += row.Count
		}
		summary.Total += row.Count
	}
	if summary.Total > 0 {
		summary.Percent = float64(summary.Present+summary.Late) / float64(summary.Total) * 100
	}
	return summary, nil
}
