package handler

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/unimark/attendance-api/internal/models"
	"github.com/unimark/attendance-api/internal/service"
	appErrors "github.com/unimark/attendance-api/pkg/errors"
	"github.com/unimark/attendance-api/pkg/middleware/requestid"
	"github.com/unimark/attendance-api/pkg/response"
)

type fakeQRStore struct {
	session *models.QRSession
}

func (f *fakeQRStore) FindByID(ctx context.Context, id string) (*models.QRSession, error) {
	if f.session == nil || f.session.ID != id {
		return nil, sql.ErrNoRows
	}
	return f.session, nil
}

func (f *fakeQRStore) IncrementScanCount(ctx context.Context, id string) error { return nil }

func (f *fakeQRStore) UpdateStatus(ctx context.Context, id string, status models.QRSessionStatus) error {
	return nil
}

type fakeRecordStore struct {
	existing bool
}

func (f *fakeRecordStore) FindExisting(ctx context.Context, studentID, classID string, sessionDate time.Time) (*models.AttendanceRecord, error) {
	if f.existing {
		return &models.AttendanceRecord{ID: "rec-1"}, nil
	}
	return nil, sql.ErrNoRows
}

func (f *fakeRecordStore) Create(ctx context.Context, record *models.AttendanceRecord) error {
	return nil
}

func (f *fakeRecordStore) List(ctx context.Context, filter models.AttendanceFilter) ([]models.AttendanceRecordDetail, int, error) {
	return nil, 0, nil
}

func (f *fakeRecordStore) UpdateStatus(ctx context.Context, studentID, classID string, sessionDate time.Time, status models.AttendanceStatus) error {
	return nil
}

func (f *fakeRecordStore) StudentSummary(ctx context.Context, studentID string) (*models.AttendanceSummary, error) {
	return &models.AttendanceSummary{}, nil
}

type fakeResolver struct {
	student *models.Student
}

func (f *fakeResolver) Resolve(ctx context.Context, identity models.StudentIdentity) (*models.Student, error) {
	if f.student == nil {
		return nil, appErrors.ErrStudentNotFound
	}
	return f.student, nil
}

type fakeGeofence struct{}

func (fakeGeofence) Settings(ctx context.Context, fallback models.GeofenceSettings) (models.GeofenceSettings, error) {
	return fallback, nil
}

func (fakeGeofence) LocationForClass(ctx context.Context, classID string) (*models.ClassLocation, error) {
	return nil, nil
}

func markRouter(sessions *fakeQRStore, records *fakeRecordStore, resolver *fakeResolver) *gin.Engine {
	gin.SetMode(gin.TestMode)
	attendance := service.NewAttendanceService(
		sessions, records, resolver, fakeGeofence{},
		nil, zap.NewNop(),
		models.GeofenceSettings{Enabled: true, DefaultRadius: 100},
	)
	h := NewQRHandler(nil, attendance, nil)

	r := gin.New()
	r.Use(requestid.Middleware())
	r.POST("/qr/mark/:sessionId", h.Mark)
	return r
}

func postMark(t *testing.T, router *gin.Engine, sessionID string, payload map[string]interface{}) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(payload)
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/qr/mark/"+sessionID, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(rec, req)
	return rec
}

func liveSession() *models.QRSession {
	return &models.QRSession{
		ID:          "qr-1",
		ClassID:     "class-1",
		SessionDate: time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC),
		ExpiresAt:   time.Now().UTC().Add(time.Minute),
		Status:      models.QRSessionActive,
	}
}

func knownStudent() *models.Student {
	return &models.Student{ID: "stu-1", FullName: "Alice Martin", Email: "alice@example.edu"}
}

func TestMarkEndpointSuccess(t *testing.T) {
	router := markRouter(&fakeQRStore{session: liveSession()}, &fakeRecordStore{}, &fakeResolver{student: knownStudent()})

	rec := postMark(t, router, "qr-1", map[string]interface{}{"email": "alice@example.edu"})
	require.Equal(t, http.StatusOK, rec.Code)

	var envelope response.Envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Nil(t, envelope.Error)
	assert.NotNil(t, envelope.Data)
}

func TestMarkEndpointUnknownSession(t *testing.T) {
	router := markRouter(&fakeQRStore{}, &fakeRecordStore{}, &fakeResolver{student: knownStudent()})

	rec := postMark(t, router, "missing", map[string]interface{}{"email": "alice@example.edu"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMarkEndpointExpiredSession(t *testing.T) {
	session := liveSession()
	session.ExpiresAt = time.Now().UTC().Add(-time.Second)
	router := markRouter(&fakeQRStore{session: session}, &fakeRecordStore{}, &fakeResolver{student: knownStudent()})

	rec := postMark(t, router, "qr-1", map[string]interface{}{"email": "alice@example.edu"})
	assert.Equal(t, http.StatusGone, rec.Code)
}

func TestMarkEndpointUnknownStudent(t *testing.T) {
	router := markRouter(&fakeQRStore{session: liveSession()}, &fakeRecordStore{}, &fakeResolver{})

	rec := postMark(t, router, "qr-1", map[string]interface{}{"email": "nobody@example.edu"})
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestMarkEndpointAlreadyMarked(t *testing.T) {
	router := markRouter(&fakeQRStore{session: liveSession()}, &fakeRecordStore{existing: true}, &fakeResolver{student: knownStudent()})

	rec := postMark(t, router, "qr-1", map[string]interface{}{"email": "alice@example.edu"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	var envelope response.Envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	require.NotNil(t, envelope.Error)
	assert.Equal(t, "ALREADY_MARKED", envelope.Error.Code)
	assert.NotEmpty(t, envelope.Meta["request_id"], "error envelopes carry the request id")
}

func TestMarkEndpointRejectsBadJSON(t *testing.T) {
	router := markRouter(&fakeQRStore{session: liveSession()}, &fakeRecordStore{}, &fakeResolver{student: knownStudent()})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/qr/mark/qr-1", bytes.NewReader([]byte("{not json")))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
