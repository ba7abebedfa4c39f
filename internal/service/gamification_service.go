package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/unimark/attendance-api/internal/models"
	appErrors "github.com/unimark/attendance-api/pkg/errors"
)

type pointsStore interface {
	InsertEntry(ctx context.Context, entry *models.PointsEntry) error
	Totals(ctx context.Context, studentID string) (*models.StudentPoints, error)
	BumpStreak(ctx context.Context, studentID string, points int) error
}

// GamificationService maintains the points ledger. It only appends flat
// awards; ranking and score computation are not its concern.
type GamificationService struct {
	repo          pointsStore
	checkInPoints int
	enabled       bool
	logger        *zap.Logger
}

func NewGamificationService(repo pointsStore, enabled bool, checkInPoints int, logger *zap.Logger) *GamificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GamificationService{
		repo:          repo,
		checkInPoints: checkInPoints,
		enabled:       enabled,
		logger:        logger,
	}
}

// AwardCheckIn appends a flat award for a successful check-in. The check-in
// is already durable when this runs, so failures are logged and dropped.
func (s *GamificationService) AwardCheckIn(ctx context.Context, studentID string) {
	if !s.enabled {
		return
	}
	entry := &models.PointsEntry{
		ID:        uuid.NewString(),
		StudentID: studentID,
		Points:    s.checkInPoints,
		Reason:    "attendance_check_in",
		CreatedAt: time.Now().UTC(),
	}
	if err := s.repo.InsertEntry(ctx, entry); err != nil {
		s.logger.Warn("failed to insert points entry", zap.String("student_id", studentID), zap.Error(err))
		return
	}
	if err := s.repo.BumpStreak(ctx, studentID, s.checkInPoints); err != nil {
		s.logger.Warn("failed to bump streak", zap.String("student_id", studentID), zap.Error(err))
	}
}

// StudentPoints returns the student's running total and streak.
func (s *GamificationService) StudentPoints(ctx context.Context, studentID string) (*models.StudentPoints, error) {
	totals, err := s.repo.Totals(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student points")
	}
	return totals, nil
}
