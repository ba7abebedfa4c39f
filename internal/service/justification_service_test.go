package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/unimark/attendance-api/internal/models"
	appErrors "github.com/unimark/attendance-api/pkg/errors"
)

type justificationStoreStub struct {
	byID     map[string]*models.Justification
	created  *models.Justification
	reviewed []string
}

func (s *justificationStoreStub) Create(ctx context.Context, j *models.Justification) error {
	s.created = j
	return nil
}

func (s *justificationStoreStub) FindByID(ctx context.Context, id string) (*models.Justification, error) {
	if j, ok := s.byID[id]; ok {
		return j, nil
	}
	return nil, sql.ErrNoRows
}

func (s *justificationStoreStub) List(ctx context.Context, studentID string, status *models.JustificationStatus) ([]models.Justification, error) {
	return nil, nil
}

func (s *justificationStoreStub) Review(ctx context.Context, id string, status models.JustificationStatus, reviewerID string, note *string, reviewedAt time.Time) error {
	s.reviewed = append(s.reviewed, id)
	return nil
}

type statusUpdaterStub struct {
	updates []models.AttendanceStatus
}

func (s *statusUpdaterStub) UpdateStatus(ctx context.Context, studentID, classID string, sessionDate time.Time, status models.AttendanceStatus) error {
	s.updates = append(s.updates, status)
	return nil
}

type decisionNotifierStub struct {
	decisions []bool
}

func (s *decisionNotifierStub) JustificationDecided(ctx context.Context, studentID string, approved bool) {
	s.decisions = append(s.decisions, approved)
}

func pendingJustification() *models.Justification {
	return &models.Justification{
		ID:          "just-1",
		StudentID:   "stu-1",
		ClassID:     "class-1",
		SessionDate: time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC),
		Reason:      "medical appointment with documentation",
		Status:      models.JustificationPending,
	}
}

func TestSubmitCreatesPending(t *testing.T) {
	store := &justificationStoreStub{}
	svc := NewJustificationService(store, &statusUpdaterStub{}, nil, nil, zap.NewNop())

	j, err := svc.Submit(context.Background(), "stu-1", models.SubmitJustificationRequest{
		ClassID:     "class-1",
		SessionDate: time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC),
		Reason:      "medical appointment with documentation",
	})
	require.NoError(t, err)
	assert.Equal(t, models.JustificationPending, j.Status)
	assert.Equal(t, "stu-1", j.StudentID)
	require.NotNil(t, store.created)
}

func TestSubmitRejectsShortReason(t *testing.T) {
	svc := NewJustificationService(&justificationStoreStub{}, &statusUpdaterStub{}, nil, nil, zap.NewNop())

	_, err := svc.Submit(context.Background(), "stu-1", models.SubmitJustificationRequest{
		ClassID:     "class-1",
		SessionDate: time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC),
		Reason:      "sick",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestReviewApprovalExcusesRecord(t *testing.T) {
	store := &justificationStoreStub{byID: map[string]*models.Justification{"just-1": pendingJustification()}}
	records := &statusUpdaterStub{}
	notifier := &decisionNotifierStub{}
	svc := NewJustificationService(store, records, notifier, nil, zap.NewNop())

	j, err := svc.Review(context.Background(), "just-1", "staff-1", models.ReviewJustificationRequest{Approve: true, Note: "documented"})
	require.NoError(t, err)

	assert.Equal(t, models.JustificationApproved, j.Status)
	require.NotNil(t, j.ReviewedBy)
	assert.Equal(t, "staff-1", *j.ReviewedBy)
	require.Len(t, records.updates, 1)
	assert.Equal(t, models.AttendanceStatusExcused, records.updates[0])
	assert.Equal(t, []bool{true}, notifier.decisions)
}

func TestReviewRejectionLeavesRecord(t *testing.T) {
	store := &justificationStoreStub{byID: map[string]*models.Justification{"just-1": pendingJustification()}}
	records := &statusUpdaterStub{}
	svc := NewJustificationService(store, records, nil, nil, zap.NewNop())

	j, err := svc.Review(context.Background(), "just-1", "staff-1", models.ReviewJustificationRequest{Approve: false})
	require.NoError(t, err)

	assert.Equal(t, models.JustificationRejected, j.Status)
	assert.Empty(t, records.updates)
}

func TestReviewNilNotifierPointerIsNoOp(t *testing.T) {
	store := &justificationStoreStub{byID: map[string]*models.Justification{"just-1": pendingJustification()}}
	svc := NewJustificationService(store, &statusUpdaterStub{}, (*NotificationService)(nil), nil, zap.NewNop())

	j, err := svc.Review(context.Background(), "just-1", "staff-1", models.ReviewJustificationRequest{Approve: true})
	require.NoError(t, err)
	assert.Equal(t, models.JustificationApproved, j.Status)
}

func TestReviewAlreadyDecided(t *testing.T) {
	decided := pendingJustification()
	decided.Status = models.JustificationApproved
	store := &justificationStoreStub{byID: map[string]*models.Justification{"just-1": decided}}
	svc := NewJustificationService(store, &statusUpdaterStub{}, nil, nil, zap.NewNop())

	_, err := svc.Review(context.Background(), "just-1", "staff-1", models.ReviewJustificationRequest{Approve: true})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestReviewUnknownJustification(t *testing.T) {
	svc := NewJustificationService(&justificationStoreStub{}, &statusUpdaterStub{}, nil, nil, zap.NewNop())

	_, err := svc.Review(context.Background(), "missing", "staff-1", models.ReviewJustificationRequest{Approve: true})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
