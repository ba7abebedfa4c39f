package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/unimark/attendance-api/internal/models"
	"github.com/unimark/attendance-api/internal/repository"
	appErrors "github.com/unimark/attendance-api/pkg/errors"
	"github.com/unimark/attendance-api/pkg/geo"
)

type qrSessionStore interface {
	FindByID(ctx context.Context, id string) (*models.QRSession, error)
	IncrementScanCount(ctx context.Context, id string) error
	UpdateStatus(ctx context.Context, id string, status models.QRSessionStatus) error
}

type attendanceRecordStore interface {
	FindExisting(ctx context.Context, studentID, classID string, sessionDate time.Time) (*models.AttendanceRecord, error)
	Create(ctx context.Context, record *models.AttendanceRecord) error
	List(ctx context.Context, filter models.AttendanceFilter) ([]models.AttendanceRecordDetail, int, error)
	UpdateStatus(ctx context.Context, studentID, classID string, sessionDate time.Time, status models.AttendanceStatus) error
	StudentSummary(ctx context.Context, studentID string) (*models.AttendanceSummary, error)
}

type studentResolver interface {
	Resolve(ctx context.Context, identity models.StudentIdentity) (*models.Student, error)
}

type geofenceReader interface {
	Settings(ctx context.Context, fallback models.GeofenceSettings) (models.GeofenceSettings, error)
	LocationForClass(ctx context.Context, classID string) (*models.ClassLocation, error)
}

type checkInAwarder interface {
	AwardCheckIn(ctx context.Context, studentID string)
}

type checkInNotifier interface {
	CheckInRecorded(ctx context.Context, student *models.Student, classID string)
}

type checkInObserver interface {
	ObserveCheckIn(outcome string)
}

type cacheInvalidator interface {
	Delete(ctx context.Context, key string) error
}

// geofenceCheck is the outcome of anchor resolution and distance validation
// for a single check-in.
type geofenceCheck struct {
	distance *float64
	verified bool
}

// AttendanceService orchestrates the check-in protocol and the staff-facing
// attendance surface.
type AttendanceService struct {
	sessions  qrSessionStore
	records   attendanceRecordStore
	students  studentResolver
	geofence  geofenceReader
	awarder   checkInAwarder
	notifier  checkInNotifier
	metrics   checkInObserver
	cache     cacheInvalidator
	validator *validator.Validate
	logger    *zap.Logger
	defaults  models.GeofenceSettings
}

// NewAttendanceService constructs AttendanceService. The awarder, notifier,
// metrics and cache collaborators are optional; a nil value disables that
// hook.
func NewAttendanceService(
	sessions qrSessionStore,
	records attendanceRecordStore,
	students studentResolver,
	geofence geofenceReader,
	validate *validator.Validate,
	logger *zap.Logger,
	defaults models.GeofenceSettings,
) *AttendanceService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AttendanceService{
		sessions:  sessions,
		records:   records,
		students:  students,
		geofence:  geofence,
		validator: validate,
		logger:    logger,
		defaults:  defaults,
	}
}

// WithHooks attaches the optional post-persist collaborators.
func (s *AttendanceService) WithHooks(awarder checkInAwarder, notifier checkInNotifier, metrics checkInObserver, cache cacheInvalidator) *AttendanceService {
	s.awarder = awarder
	s.notifier = notifier
	s.metrics = metrics
	s.cache = cache
	return s
}

// MarkByQR runs the full check-in protocol for a scanned session: resolve
// session, check expiry, resolve student, duplicate check, geofence
// validation, persist, then best-effort bookkeeping. Every failure is one of
// the named protocol outcomes; only storage faults surface as internal
// errors.
func (s *AttendanceService) MarkByQR(ctx context.Context, sessionID string, req models.MarkAttendanceRequest) (*models.MarkAttendanceResponse, error) {
	resp, err := s.markByQR(ctx, sessionID, req)
	if s.metrics != nil {
		s.metrics.ObserveCheckIn(checkInOutcome(err))
	}
	return resp, err
}

func (s *AttendanceService) markByQR(ctx context.Context, sessionID string, req models.MarkAttendanceRequest) (*models.MarkAttendanceResponse, error) {
	session, err := s.sessions.FindByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrSessionNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load qr session")
	}

	// Expiry is evaluated once, here. A request that started before expiry
	// and persists after it is accepted; the staleness window is one
	// request's latency.
	now := time.Now().UTC()
	if session.Expired(now) {
		if err := s.sessions.UpdateStatus(ctx, session.ID, models.QRSessionExpired); err != nil {
			s.logger.Warn("failed to mark qr session expired", zap.String("session_id", session.ID), zap.Error(err))
		}
		return nil, appErrors.ErrSessionExpired
	}

	student, err := s.students.Resolve(ctx, models.StudentIdentity{Email: req.Email, StudentNumber: req.StudentID})
	if err != nil {
		return nil, err
	}

	// Fast-path duplicate check for a friendly error; the unique constraint
	// below is the actual guarantee under concurrency.
	if _, err := s.records.FindExisting(ctx, student.ID, session.ClassID, session.SessionDate); err == nil {
		return nil, appErrors.ErrAlreadyMarked
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed duplicate check")
	}

	check, err := s.validateGeofence(ctx, session, req.Latitude, req.Longitude)
	if err != nil {
		return nil, err
	}

	record := &models.AttendanceRecord{
		StudentID:        student.ID,
		ClassID:          session.ClassID,
		SessionDate:      session.SessionDate,
		Status:           models.AttendanceStatusPresent,
		Method:           models.AttendanceMethodQR,
		QRSessionID:      &session.ID,
		DistanceMeters:   check.distance,
		LocationVerified: check.verified,
	}
	if err := s.records.Create(ctx, record); err != nil {
		if errors.Is(err, repository.ErrDuplicateRecord) {
			return nil, appErrors.ErrAlreadyMarked
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist attendance record")
	}

	s.afterCheckIn(ctx, session, student)

	return &models.MarkAttendanceResponse{Record: record, Student: student.Info()}, nil
}

// afterCheckIn runs the advisory post-persist steps. None of them may fail
// the check-in; the record is already durable.
func (s *AttendanceService) afterCheckIn(ctx context.Context, session *models.QRSession, student *models.Student) {
	if err := s.sessions.IncrementScanCount(ctx, session.ID); err != nil {
		s.logger.Warn("failed to increment scan count", zap.String("session_id", session.ID), zap.Error(err))
	}
	if s.cache != nil {
		if err := s.cache.Delete(ctx, qrStatusCacheKey(session.ID)); err != nil {
			s.logger.Warn("failed to invalidate qr status cache", zap.Error(err))
		}
	}
	if s.awarder != nil {
		s.awarder.AwardCheckIn(ctx, student.ID)
	}
	if s.notifier != nil {
		s.notifier.CheckInRecorded(ctx, student, session.ClassID)
	}
}

// validateGeofence resolves the anchor for a session and gates the check-in
// on distance. Precedence: the session's own anchor, then the class
// location. With no anchor configured validation cannot run, so the
// check-in passes with location_verified=false.
func (s *AttendanceService) validateGeofence(ctx context.Context, session *models.QRSession, lat, lon *float64) (geofenceCheck, error) {
	if lat == nil || lon == nil {
		return geofenceCheck{}, nil
	}

	settings, err := s.geofence.Settings(ctx, s.defaults)
	if err != nil {
		s.logger.Warn("failed to load geofence settings, using defaults", zap.Error(err))
		settings = s.defaults
	}
	if !settings.Enabled {
		return geofenceCheck{}, nil
	}

	var anchorLat, anchorLon float64
	var radius float64
	switch {
	case session.HasAnchor():
		anchorLat, anchorLon = *session.Latitude, *session.Longitude
		radius = settings.DefaultRadius
		if session.Radius != nil {
			radius = *session.Radius
		}
	default:
		loc, err := s.geofence.LocationForClass(ctx, session.ClassID)
		if err != nil {
			return geofenceCheck{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class location")
		}
		if loc == nil {
			return geofenceCheck{}, nil
		}
		anchorLat, anchorLon = loc.Latitude, loc.Longitude
		radius = settings.DefaultRadius
		if loc.Radius != nil {
			radius = *loc.Radius
		}
	}

	// The raw distance gates acceptance; rounding is display-only.
	distance := geo.Distance(*lat, *lon, anchorLat, anchorLon)
	if !geo.WithinRadius(distance, &radius) {
		return geofenceCheck{}, appErrors.Clone(appErrors.ErrOutOfGeofence,
			fmt.Sprintf("you are %.0fm from class, limit is %.0fm", math.Round(distance), radius))
	}
	return geofenceCheck{distance: &distance, verified: true}, nil
}

// ManualMarkRequest records attendance on a staff member's authority.
type ManualMarkRequest struct {
	StudentID   string                  `json:"student_id"`
	Email       string                  `json:"email"`
	ClassID     string                  `json:"class_id" validate:"required"`
	SessionDate time.Time               `json:"session_date" validate:"required"`
	Status      models.AttendanceStatus `json:"status" validate:"required"`
	Latitude    *float64                `json:"latitude,omitempty"`
	Longitude   *float64                `json:"longitude,omitempty"`
	Notes       *string                 `json:"notes,omitempty"`
}

// MarkManual records a staff-entered attendance record. Location, when
// submitted, is advisory metadata here: staff entries are presumed
// authorized regardless of where the device was, so an out-of-range
// distance is stored but never rejects.
func (s *AttendanceService) MarkManual(ctx context.Context, req ManualMarkRequest, actor *models.JWTClaims) (*models.AttendanceRecord, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid manual mark payload")
	}
	if !req.Status.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unsupported attendance status")
	}

	student, err := s.students.Resolve(ctx, models.StudentIdentity{Email: req.Email, StudentNumber: req.StudentID})
	if err != nil {
		return nil, err
	}

	if _, err := s.records.FindExisting(ctx, student.ID, req.ClassID, req.SessionDate); err == nil {
		return nil, appErrors.ErrAlreadyMarked
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed duplicate check")
	}

	record := &models.AttendanceRecord{
		StudentID:   student.ID,
		ClassID:     req.ClassID,
		SessionDate: req.SessionDate,
		Status:      req.Status,
		Method:      models.AttendanceMethodManual,
		Notes:       req.Notes,
	}

	if req.Latitude != nil && req.Longitude != nil {
		loc, locErr := s.geofence.LocationForClass(ctx, req.ClassID)
		if locErr != nil {
			s.logger.Warn("failed to load class location for manual mark", zap.Error(locErr))
		} else if loc != nil {
			settings, serr := s.geofence.Settings(ctx, s.defaults)
			if serr != nil {
				settings = s.defaults
			}
			radius := settings.DefaultRadius
			if loc.Radius != nil {
				radius = *loc.Radius
			}
			distance := geo.Distance(*req.Latitude, *req.Longitude, loc.Latitude, loc.Longitude)
			record.DistanceMeters = &distance
			record.LocationVerified = geo.WithinRadius(distance, &radius)
		}
	}

	if err := s.records.Create(ctx, record); err != nil {
		if errors.Is(err, repository.ErrDuplicateRecord) {
			return nil, appErrors.ErrAlreadyMarked
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist attendance record")
	}

	s.logger.Info("manual attendance recorded",
		zap.String("student_id", student.ID),
		zap.String("class_id", req.ClassID),
		zap.String("by", actor.UserID),
	)
	return record, nil
}

// List returns attendance records with pagination metadata.
func (s *AttendanceService) List(ctx context.Context, filter models.AttendanceFilter) ([]models.AttendanceRecordDetail, *models.Pagination, error) {
	rows, total, err := s.records.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list attendance records")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 50
	}
	return rows, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// StudentSummary aggregates a student's counts across all classes.
func (s *AttendanceService) StudentSummary(ctx context.Context, studentID string) (*models.AttendanceSummary, error) {
	summary, err := s.records.StudentSummary(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load attendance summary")
	}
	return summary, nil
}

// checkInOutcome labels a protocol result for metrics.
func checkInOutcome(err error) string {
	if err == nil {
		return "success"
	}
	appErr := appErrors.FromError(err)
	switch appErr.Code {
	case appErrors.ErrSessionNotFound.Code,
		appErrors.ErrSessionExpired.Code,
		appErrors.ErrStudentNotFound.Code,
		appErrors.ErrAlreadyMarked.Code,
		appErrors.ErrOutOfGeofence.Code:
		return appErr.Code
	default:
		return "error"
	}
}
