package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/unimark/attendance-api/internal/models"
	appErrors "github.com/unimark/attendance-api/pkg/errors"
	"github.com/unimark/attendance-api/pkg/qr"
)

type qrRepoStub struct {
	created *models.QRSession
	session *models.QRSession
	findErr error
	scanned []models.ScannedStudent
	closed  []models.QRSessionStatus
}

func (s *qrRepoStub) Create(ctx context.Context, session *models.QRSession) error {
	s.created = session
	return nil
}

func (s *qrRepoStub) FindByID(ctx context.Context, id string) (*models.QRSession, error) {
	if s.findErr != nil {
		return nil, s.findErr
	}
	return s.session, nil
}

func (s *qrRepoStub) UpdateStatus(ctx context.Context, id string, status models.QRSessionStatus) error {
	s.closed = append(s.closed, status)
	return nil
}

func (s *qrRepoStub) ScannedStudents(ctx context.Context, id string) ([]models.ScannedStudent, error) {
	return s.scanned, nil
}

type parentRepoStub struct {
	active  *models.AttendanceSession
	created *models.AttendanceSession
}

func (s *parentRepoStub) Create(ctx context.Context, session *models.AttendanceSession) error {
	session.ID = "as-1"
	s.created = session
	return nil
}

func (s *parentRepoStub) FindActiveForClass(ctx context.Context, classID string, date time.Time) (*models.AttendanceSession, error) {
	if s.active == nil {
		return nil, sql.ErrNoRows
	}
	return s.active, nil
}

type classReaderStub struct {
	class *models.Class
}

func (s classReaderStub) FindByID(ctx context.Context, id string) (*models.Class, error) {
	if s.class == nil {
		return nil, sql.ErrNoRows
	}
	return s.class, nil
}

type memoryCacheStub struct {
	values map[string][]byte
	ttls   map[string]time.Duration
}

func newMemoryCacheStub() *memoryCacheStub {
	return &memoryCacheStub{values: map[string][]byte{}, ttls: map[string]time.Duration{}}
}

func (c *memoryCacheStub) Get(ctx context.Context, key string, dest interface{}) error {
	raw, ok := c.values[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (c *memoryCacheStub) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.values[key] = raw
	c.ttls[key] = ttl
	return nil
}

func (c *memoryCacheStub) Delete(ctx context.Context, key string) error {
	delete(c.values, key)
	return nil
}

func qrTestConfig() QRSessionConfig {
	return QRSessionConfig{Expiry: 5 * time.Minute, PollInterval: 3 * time.Second}
}

func staffClaims() *models.JWTClaims {
	return &models.JWTClaims{UserID: "staff-1", Role: models.RoleStaff}
}

func TestGenerateOpensAttendanceSession(t *testing.T) {
	repo := &qrRepoStub{}
	parents := &parentRepoStub{}
	svc := NewQRSessionService(repo, parents, classReaderStub{class: &models.Class{ID: "class-1", Name: "Linear Algebra"}}, nil, nil, zap.NewNop(), qrTestConfig())

	resp, err := svc.Generate(context.Background(), models.GenerateQRRequest{ClassID: "class-1"}, staffClaims())
	require.NoError(t, err)

	require.NotNil(t, parents.created, "expected a fresh attendance session")
	require.NotNil(t, repo.created)
	assert.Equal(t, "as-1", repo.created.AttendanceSessionID)
	assert.Equal(t, models.QRSessionActive, repo.created.Status)
	assert.Equal(t, repo.created.ID, resp.SessionID)
	assert.InDelta(t, 300, resp.ExpiresIn, 2)

	decoded, err := qr.Decode(resp.QRData)
	require.NoError(t, err)
	assert.Equal(t, resp.SessionID, decoded)

	var payload qr.Payload
	require.NoError(t, json.Unmarshal([]byte(resp.QRData), &payload))
	assert.Equal(t, "Linear Algebra", payload.ClassName)
}

func TestGenerateClampsExpiryToParentWindow(t *testing.T) {
	now := time.Now().UTC()
	parents := &parentRepoStub{active: &models.AttendanceSession{
		ID:          "as-1",
		ClassID:     "class-1",
		SessionDate: now.Truncate(24 * time.Hour),
		ExpiresAt:   now.Add(time.Minute),
		Active:      true,
	}}
	repo := &qrRepoStub{}
	svc := NewQRSessionService(repo, parents, classReaderStub{class: &models.Class{ID: "class-1"}}, nil, nil, zap.NewNop(), qrTestConfig())

	resp, err := svc.Generate(context.Background(), models.GenerateQRRequest{ClassID: "class-1"}, staffClaims())
	require.NoError(t, err)
	assert.LessOrEqual(t, resp.ExpiresIn, int64(60))
}

func TestGenerateRejectsClosedWindow(t *testing.T) {
	now := time.Now().UTC()
	parents := &parentRepoStub{active: &models.AttendanceSession{
		ID:        "as-1",
		ClassID:   "class-1",
		ExpiresAt: now.Add(-time.Minute),
	}}
	svc := NewQRSessionService(&qrRepoStub{}, parents, classReaderStub{class: &models.Class{ID: "class-1"}}, nil, nil, zap.NewNop(), qrTestConfig())

	_, err := svc.Generate(context.Background(), models.GenerateQRRequest{ClassID: "class-1"}, staffClaims())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrPreconditionFailed.Code, appErrors.FromError(err).Code)
}

func TestGenerateCopiesParentAnchor(t *testing.T) {
	now := time.Now().UTC()
	lat, lon, radius := 48.85, 2.35, 75.0
	parents := &parentRepoStub{active: &models.AttendanceSession{
		ID:        "as-1",
		ClassID:   "class-1",
		ExpiresAt: now.Add(time.Hour),
		Latitude:  &lat,
		Longitude: &lon,
		Radius:    &radius,
	}}
	repo := &qrRepoStub{}
	svc := NewQRSessionService(repo, parents, classReaderStub{class: &models.Class{ID: "class-1"}}, nil, nil, zap.NewNop(), qrTestConfig())

	_, err := svc.Generate(context.Background(), models.GenerateQRRequest{ClassID: "class-1"}, staffClaims())
	require.NoError(t, err)
	require.NotNil(t, repo.created.Latitude)
	assert.Equal(t, lat, *repo.created.Latitude)
	assert.Equal(t, radius, *repo.created.Radius)
}

func TestResolveMapsNoRows(t *testing.T) {
	svc := NewQRSessionService(&qrRepoStub{findErr: sql.ErrNoRows}, &parentRepoStub{}, classReaderStub{}, nil, nil, zap.NewNop(), qrTestConfig())

	_, err := svc.Resolve(context.Background(), "missing")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrSessionNotFound.Code, appErrors.FromError(err).Code)
}

func TestStatusComputesEffectiveExpiry(t *testing.T) {
	repo := &qrRepoStub{
		session: &models.QRSession{
			ID:        "qr-1",
			Status:    models.QRSessionActive,
			ExpiresAt: time.Now().UTC().Add(-time.Second),
			ScanCount: 4,
		},
		scanned: []models.ScannedStudent{{StudentID: "stu-1", FullName: "Alice"}},
	}
	svc := NewQRSessionService(repo, &parentRepoStub{}, classReaderStub{}, nil, nil, zap.NewNop(), qrTestConfig())

	view, err := svc.Status(context.Background(), "qr-1")
	require.NoError(t, err)
	assert.Equal(t, models.QRSessionExpired, view.Status)
	assert.Equal(t, 4, view.ScanCount)
	require.Len(t, view.ScannedStudents, 1)
}

func TestStatusUsesCache(t *testing.T) {
	cache := newMemoryCacheStub()
	repo := &qrRepoStub{session: &models.QRSession{
		ID:        "qr-1",
		Status:    models.QRSessionActive,
		ExpiresAt: time.Now().UTC().Add(time.Minute),
	}}
	svc := NewQRSessionService(repo, &parentRepoStub{}, classReaderStub{}, cache, nil, zap.NewNop(), qrTestConfig())

	first, err := svc.Status(context.Background(), "qr-1")
	require.NoError(t, err)
	assert.Equal(t, 3*time.Second, cache.ttls[qrStatusCacheKey("qr-1")])

	// second read is served from cache even after the store is emptied
	repo.session = nil
	repo.findErr = sql.ErrNoRows
	second, err := svc.Status(context.Background(), "qr-1")
	require.NoError(t, err)
	assert.Equal(t, first.SessionID, second.SessionID)
}

func TestCloseInvalidatesCache(t *testing.T) {
	cache := newMemoryCacheStub()
	repo := &qrRepoStub{session: &models.QRSession{
		ID:        "qr-1",
		Status:    models.QRSessionActive,
		ExpiresAt: time.Now().UTC().Add(time.Minute),
	}}
	svc := NewQRSessionService(repo, &parentRepoStub{}, classReaderStub{}, cache, nil, zap.NewNop(), qrTestConfig())

	_, err := svc.Status(context.Background(), "qr-1")
	require.NoError(t, err)

	require.NoError(t, svc.Close(context.Background(), "qr-1"))
	require.Len(t, repo.closed, 1)
	assert.Equal(t, models.QRSessionClosed, repo.closed[0])
	_, ok := cache.values[qrStatusCacheKey("qr-1")]
	assert.False(t, ok)
}
