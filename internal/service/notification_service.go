package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/unimark/attendance-api/internal/models"
	appErrors "github.com/unimark/attendance-api/pkg/errors"
	"github.com/unimark/attendance-api/pkg/jobs"
)

type notificationStore interface {
	Create(ctx context.Context, n *models.Notification) error
	ListForUser(ctx context.Context, userID string, unreadOnly bool) ([]models.Notification, error)
	MarkRead(ctx context.Context, id, userID string) error
}

// NotificationService fans user-facing notifications through a background
// queue so the request path never waits on notification storage.
type NotificationService struct {
	repo   notificationStore
	queue  *jobs.Queue
	logger *zap.Logger
}

// NewNotificationService wires the dispatch queue. Call Start before
// enqueueing and Stop on shutdown.
func NewNotificationService(repo notificationStore, workers, retries int, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &NotificationService{repo: repo, logger: logger}
	s.queue = jobs.NewQueue("notifications", s.deliver, jobs.QueueConfig{
		Workers:    workers,
		MaxRetries: retries,
		Logger:     logger,
	})
	return s
}

func (s *NotificationService) Start(ctx context.Context) { s.queue.Start(ctx) }
func (s *NotificationService) Stop()                     { s.queue.Stop() }

func (s *NotificationService) deliver(ctx context.Context, job jobs.Job) error {
	n, ok := job.Payload.(*models.Notification)
	if !ok {
		return fmt.Errorf("unexpected payload type %T", job.Payload)
	}
	if err := s.repo.Create(ctx, n); err != nil {
		return fmt.Errorf("failed to persist notification: %w", err)
	}
	return nil
}

// enqueue is a no-op on a nil receiver. The hook interfaces treat a nil
// collaborator as disabled, and a conditionally wired *NotificationService
// stored in one of them is non-nil even when the pointer is.
func (s *NotificationService) enqueue(n *models.Notification) {
	if s == nil {
		return
	}
	n.ID = uuid.NewString()
	n.CreatedAt = time.Now().UTC()
	job := jobs.Job{ID: n.ID, Type: string(n.Kind), Payload: n}
	if err := s.queue.Enqueue(job); err != nil {
		s.logger.Warn("failed to enqueue notification",
			zap.String("kind", string(n.Kind)),
			zap.String("user_id", n.UserID),
			zap.Error(err),
		)
	}
}

// CheckInRecorded notifies a student that their check-in was accepted.
// Safe on a nil receiver.
func (s *NotificationService) CheckInRecorded(ctx context.Context, student *models.Student, classID string) {
	s.enqueue(&models.Notification{
		UserID: student.ID,
		Kind:   models.NotificationCheckIn,
		Title:  "Attendance recorded",
		Body:   fmt.Sprintf("Your attendance for class %s was recorded.", classID),
	})
}

// JustificationDecided notifies a student of a review decision. Safe on a
// nil receiver.
func (s *NotificationService) JustificationDecided(ctx context.Context, studentID string, approved bool) {
	body := "Your absence justification was rejected."
	if approved {
		body = "Your absence justification was approved."
	}
	s.enqueue(&models.Notification{
		UserID: studentID,
		Kind:   models.NotificationJustification,
		Title:  "Justification reviewed",
		Body:   body,
	})
}

// ListForUser returns a user's notifications, newest first.
func (s *NotificationService) ListForUser(ctx context.Context, userID string, unreadOnly bool) ([]models.Notification, error) {
	rows, err := s.repo.ListForUser(ctx, userID, unreadOnly)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list notifications")
	}
	return rows, nil
}

// MarkRead marks one of the user's own notifications as read.
func (s *NotificationService) MarkRead(ctx context.Context, id, userID string) error {
	if err := s.repo.MarkRead(ctx, id, userID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to mark notification read")
	}
	return nil
}
