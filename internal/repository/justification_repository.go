package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/unimark/attendance-api/internal/models"
)

const justificationColumns = `id, student_id, class_id, session_date, reason, status, reviewed_by, reviewed_at, review_note, created_at`

// JustificationRepository persists absence justifications.
type JustificationRepository struct {
	db *sqlx.DB
}

// NewJustificationRepository constructs the repository.
func NewJustificationRepository(db *sqlx.DB) *JustificationRepository {
	return &JustificationRepository{db: db}
}

// Create inserts a pending justification.
func (r *JustificationRepository) Create(ctx context.Context, j *models.Justification) error {
	if j.ID == "" {
		j.ID = uuid.NewString()
	}
	if j.CreatedAt.IsZero() {
		j.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO justifications (id, student_id, class_id, session_date, reason, status, reviewed_by, reviewed_at, review_note, created_at)
VALUES (:id, :student_id, :class_id, :session_date, :reason, :status, :reviewed_by, :reviewed_at, :review_note, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, j); err != nil {
		return fmt.Errorf("create justification: %w", err)
	}
	return nil
}

// FindByID returns a justification by identifier.
func (r *JustificationRepository) FindByID(ctx context.Context, id string) (*models.Justification, error) {
	query := fmt.Sprintf(`SELECT %s FROM justifications WHERE id = $1 LIMIT 1`, justificationColumns)
	var j models.Justification
	if err := r.db.GetContext(ctx, &j, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find justification: %w", err)
	}
	return &j, nil
}

// List returns justifications, optionally scoped by student or status.
func (r *JustificationRepository) List(ctx context.Context, studentID string, status *models.JustificationStatus) ([]models.Justification, error) {
	where := []string{"1=1"}
	args := []interface{}{}
	if studentID != "" {
		where = append(where, fmt.Sprintf("student_id = $%d", len(args)+1))
		args = append(args, studentID)
	}
	if status != nil {
		where = append(where, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, *status)
	}
	query := fmt.Sprintf(`SELECT %s FROM justifications WHERE %s ORDER BY created_at DESC`, justificationColumns, strings.Join(where, " AND "))
	var rows []models.Justification
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list justifications: %w", err)
	}
	return rows, nil
}

// Review records the staff decision on a pending justification.
func (r *JustificationRepository) Review(ctx context.Context, id string, status models.JustificationStatus, reviewerID string, note *string, reviewedAt time.Time) error {
	const query = `UPDATE justifications SET status = $2, reviewed_by = $3, review_note = $4, reviewed_at = $5 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, status, reviewerID, note, reviewedAt); err != nil {
		return fmt.Errorf("review justification: %w", err)
	}
	return nil
}
