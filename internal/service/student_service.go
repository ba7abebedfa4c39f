package service

import (
	"context"
	"database/sql"
	"errors"

	"go.uber.org/zap"

	"github.com/unimark/attendance-api/internal/models"
	appErrors "github.com/unimark/attendance-api/pkg/errors"
)

type studentRepository interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
	FindByEmail(ctx context.Context, email string) (*models.Student, error)
	FindByStudentNumber(ctx context.Context, number string) (*models.Student, error)
}

// StudentService resolves the identity behind a check-in. Scanning clients
// may only hold an email or a student number depending on how the student
// authenticated, so both paths are supported.
type StudentService struct {
	repo   studentRepository
	logger *zap.Logger
}

// NewStudentService constructs StudentService.
func NewStudentService(repo studentRepository, logger *zap.Logger) *StudentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StudentService{repo: repo, logger: logger}
}

// Resolve looks up a student by the submitted identity, trying email first
// and falling back to the student number. The not-found error deliberately
// does not reveal which lookup failed.
func (s *StudentService) Resolve(ctx context.Context, identity models.StudentIdentity) (*models.Student, error) {
	if identity.Empty() {
		return nil, appErrors.Clone(appErrors.ErrStudentNotFound, "no student identity supplied")
	}

	if identity.Email != "" {
		student, err := s.repo.FindByEmail(ctx, identity.Email)
		if err == nil {
			return student, nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve student")
		}
	}

	if identity.StudentNumber != "" {
		student, err := s.repo.FindByStudentNumber(ctx, identity.StudentNumber)
		if err == nil {
			return student, nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve student")
		}
	}

	return nil, appErrors.ErrStudentNotFound
}

// FindByID returns a student by primary identifier.
func (s *StudentService) FindByID(ctx context.Context, id string) (*models.Student, error) {
	student, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	return student, nil
}
