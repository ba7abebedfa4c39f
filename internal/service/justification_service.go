package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/unimark/attendance-api/internal/models"
	appErrors "github.com/unimark/attendance-api/pkg/errors"
)

type justificationStore interface {
	Create(ctx context.Context, j *models.Justification) error
	FindByID(ctx context.Context, id string) (*models.Justification, error)
	List(ctx context.Context, studentID string, status *models.JustificationStatus) ([]models.Justification, error)
	Review(ctx context.Context, id string, status models.JustificationStatus, reviewerID string, note *string, reviewedAt time.Time) error
}

type recordStatusUpdater interface {
	UpdateStatus(ctx context.Context, studentID, classID string, sessionDate time.Time, status models.AttendanceStatus) error
}

type justificationNotifier interface {
	JustificationDecided(ctx context.Context, studentID string, approved bool)
}

// JustificationService manages student absence excuses and their review.
type JustificationService struct {
	repo      justificationStore
	records   recordStatusUpdater
	notifier  justificationNotifier
	validator *validator.Validate
	logger    *zap.Logger
}

func NewJustificationService(repo justificationStore, records recordStatusUpdater, notifier justificationNotifier, validate *validator.Validate, logger *zap.Logger) *JustificationService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &JustificationService{
		repo:      repo,
		records:   records,
		notifier:  notifier,
		validator: validate,
		logger:    logger,
	}
}

// Submit files a new justification for the calling student.
func (s *JustificationService) Submit(ctx context.Context, studentID string, req models.SubmitJustificationRequest) (*models.Justification, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid justification payload")
	}
	j := &models.Justification{
		ID:          uuid.NewString(),
		StudentID:   studentID,
		ClassID:     req.ClassID,
		SessionDate: req.SessionDate,
		Reason:      req.Reason,
		Status:      models.JustificationPending,
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.repo.Create(ctx, j); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create justification")
	}
	return j, nil
}

// List returns justifications, optionally scoped to a student or status.
func (s *JustificationService) List(ctx context.Context, studentID string, status *models.JustificationStatus) ([]models.Justification, error) {
	rows, err := s.repo.List(ctx, studentID, status)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list justifications")
	}
	return rows, nil
}

// Review decides a pending justification. Approval flips the matching
// attendance record to excused; a missing record is tolerated since the
// student may never have been marked absent in the first place.
func (s *JustificationService) Review(ctx context.Context, id, reviewerID string, req models.ReviewJustificationRequest) (*models.Justification, error) {
	j, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load justification")
	}
	if j.Status != models.JustificationPending {
		return nil, appErrors.Clone(appErrors.ErrConflict, "justification already reviewed")
	}

	status := models.JustificationRejected
	if req.Approve {
		status = models.JustificationApproved
	}
	var note *string
	if req.Note != "" {
		note = &req.Note
	}
	reviewedAt := time.Now().UTC()
	if err := s.repo.Review(ctx, id, status, reviewerID, note, reviewedAt); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to review justification")
	}

	if req.Approve {
		if err := s.records.UpdateStatus(ctx, j.StudentID, j.ClassID, j.SessionDate, models.AttendanceStatusExcused); err != nil {
			if !errors.Is(err, sql.ErrNoRows) {
				s.logger.Warn("failed to excuse attendance record",
					zap.String("justification_id", id),
					zap.Error(err),
				)
			}
		}
	}
	if s.notifier != nil {
		s.notifier.JustificationDecided(ctx, j.StudentID, req.Approve)
	}

	j.Status = status
	j.ReviewedBy = &reviewerID
	j.ReviewedAt = &reviewedAt
	j.ReviewNote = note
	return j, nil
}
