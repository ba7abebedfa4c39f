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

// PointsRepository writes the gamification ledger. The check-in hook is the
// only writer here; scoring and ranking live elsewhere.
type PointsRepository struct {
	db *sqlx.DB
}

// NewPointsRepository constructs the repository.
func NewPointsRepository(db *sqlx.DB) *PointsRepository {
	return &PointsRepository{db: db}
}

// InsertEntry appends a ledger row.
func (r *PointsRepository) InsertEntry(ctx context.Context, entry *models.PointsEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO points_ledger (id, student_id, points, reason, created_at)
VALUES (:id, :student_id, :points, :reason, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, entry); err != nil {
		return fmt.Errorf("insert points entry: %w", err)
	}
	return nil
}

// Totals returns a student's aggregate points and current streak.
func (r *PointsRepository) Totals(ctx context.Context, studentID string) (*models.StudentPoints, error) {
	const query = `SELECT sp.student_id, sp.total_points, sp.streak
FROM student_points sp WHERE sp.student_id = $1 LIMIT 1`
	var totals models.StudentPoints
	if err := r.db.GetContext(ctx, &totals, query, studentID); err != nil {
		if err == sql.ErrNoRows {
			return &models.StudentPoints{StudentID: studentID}, nil
		}
		return nil, fmt.Errorf("load student points: %w", err)
	}
	return &totals, nil
}

// BumpStreak upserts the rollup row: adds points and advances the streak by
// one.
func (r *PointsRepository) BumpStreak(ctx context.Context, studentID string, points int) error {
	const query = `INSERT INTO student_points (student_id, total_points, streak)
VALUES ($1, $2, 1)
ON CONFLICT (student_id)
DO UPDATE SET total_points = student_points.total_points + EXCLUDED.total_points, streak = student_points.streak + 1`
	if _, err := r.db.ExecContext(ctx, query, studentID, points); err != nil {
		return fmt.Errorf("bump student streak: %w", err)
	}
	return nil
}
