package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/unimark/attendance-api/internal/models"
	appErrors "github.com/unimark/attendance-api/pkg/errors"
	"github.com/unimark/attendance-api/pkg/qr"
)

type qrSessionRepository interface {
	Create(ctx context.Context, session *models.QRSession) error
	FindByID(ctx context.Context, id string) (*models.QRSession, error)
	UpdateStatus(ctx context.Context, id string, status models.QRSessionStatus) error
	ScannedStudents(ctx context.Context, id string) ([]models.ScannedStudent, error)
}

type attendanceSessionRepository interface {
	Create(ctx context.Context, session *models.AttendanceSession) error
	FindActiveForClass(ctx context.Context, classID string, date time.Time) (*models.AttendanceSession, error)
}

type classReader interface {
	FindByID(ctx context.Context, id string) (*models.Class, error)
}

type statusCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// QRSessionConfig tunes the scan-session lifecycle.
type QRSessionConfig struct {
	Expiry       time.Duration
	PollInterval time.Duration
	BaseURL      string
}

// QRSessionService creates scan sessions and serves their live status. A QR
// session never outlives its parent attendance session; its expiry is
// clamped to the parent window at creation.
type QRSessionService struct {
	sessions  qrSessionRepository
	parents   attendanceSessionRepository
	classes   classReader
	cache     statusCache
	validator *validator.Validate
	logger    *zap.Logger
	config    QRSessionConfig
}

// NewQRSessionService constructs QRSessionService.
func NewQRSessionService(sessions qrSessionRepository, parents attendanceSessionRepository, classes classReader, cache statusCache, validate *validator.Validate, logger *zap.Logger, config QRSessionConfig) *QRSessionService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &QRSessionService{sessions: sessions, parents: parents, classes: classes, cache: cache, validator: validate, logger: logger, config: config}
}

// Generate starts QR-mode attendance for a class. Today's open attendance
// session is reused when one exists; otherwise a fresh window is opened on
// behalf of the caller.
func (s *QRSessionService) Generate(ctx context.Context, req models.GenerateQRRequest, actor *models.JWTClaims) (*models.GenerateQRResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid qr generation payload")
	}

	class, err := s.classes.FindByID(ctx, req.ClassID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
	}

	now := time.Now().UTC()
	today := now.Truncate(24 * time.Hour)

	parent, err := s.parents.FindActiveForClass(ctx, class.ID, today)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load attendance session")
		}
		parent = &models.AttendanceSession{
			ClassID:     class.ID,
			SessionDate: today,
			StartsAt:    now,
			ExpiresAt:   now.Add(s.config.Expiry),
			CreatedBy:   actor.UserID,
			Active:      true,
		}
		if err := s.parents.Create(ctx, parent); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open attendance session")
		}
	}

	expiresAt := now.Add(s.config.Expiry)
	if expiresAt.After(parent.ExpiresAt) {
		expiresAt = parent.ExpiresAt
	}
	if !expiresAt.After(now) {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "attendance session window already closed")
	}

	session := &models.QRSession{
		ID:                  uuid.NewString(),
		AttendanceSessionID: parent.ID,
		ClassID:             class.ID,
		SessionDate:         parent.SessionDate,
		ExpiresAt:           expiresAt,
		Status:              models.QRSessionActive,
		Latitude:            parent.Latitude,
		Longitude:           parent.Longitude,
		Radius:              parent.Radius,
		CreatedBy:           actor.UserID,
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create qr session")
	}

	className := req.ClassName
	if className == "" {
		className = class.Name
	}
	payload, err := qr.Encode(session.ID, className)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to encode qr payload")
	}

	s.logger.Info("qr session created",
		zap.String("session_id", session.ID),
		zap.String("class_id", class.ID),
		zap.Time("expires_at", session.ExpiresAt),
	)

	return &models.GenerateQRResponse{
		SessionID: session.ID,
		QRData:    payload,
		ExpiresIn: int64(time.Until(session.ExpiresAt).Seconds()),
	}, nil
}

// Resolve returns the session behind a token id, or ErrSessionNotFound.
// Expiry is intentionally not checked here so callers can report "expired"
// and "not found" as distinct outcomes.
func (s *QRSessionService) Resolve(ctx context.Context, sessionID string) (*models.QRSession, error) {
	session, err := s.sessions.FindByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrSessionNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load qr session")
	}
	return session, nil
}

// Status serves the polling projection for staff clients, cached for one
// poll interval so a classroom of students scanning does not turn the
// dashboard into a query storm.
func (s *QRSessionService) Status(ctx context.Context, sessionID string) (*models.QRSessionStatusView, error) {
	key := qrStatusCacheKey(sessionID)
	if s.cache != nil {
		var cached models.QRSessionStatusView
		if err := s.cache.Get(ctx, key, &cached); err == nil {
			return &cached, nil
		}
	}

	session, err := s.Resolve(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	status := session.Status
	if status == models.QRSessionActive && session.Expired(time.Now().UTC()) {
		status = models.QRSessionExpired
	}

	students, err := s.sessions.ScannedStudents(ctx, sessionID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load scan feed")
	}

	view := &models.QRSessionStatusView{
		SessionID:       session.ID,
		Status:          status,
		ScanCount:       session.ScanCount,
		ExpiresAt:       session.ExpiresAt,
		ScannedStudents: students,
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, view, s.config.PollInterval); err != nil {
			s.logger.Warn("failed to cache qr session status", zap.Error(err))
		}
	}
	return view, nil
}

// Close transitions a session to closed; subsequent lookups treat it as
// missing.
func (s *QRSessionService) Close(ctx context.Context, sessionID string) error {
	if _, err := s.Resolve(ctx, sessionID); err != nil {
		return err
	}
	if err := s.sessions.UpdateStatus(ctx, sessionID, models.QRSessionClosed); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to close qr session")
	}
	if s.cache != nil {
		if err := s.cache.Delete(ctx, qrStatusCacheKey(sessionID)); err != nil {
			s.logger.Warn("failed to invalidate qr status cache", zap.Error(err))
		}
	}
	return nil
}

func qrStatusCacheKey(sessionID string) string {
	return fmt.Sprintf("qr:status:%s", sessionID)
}
