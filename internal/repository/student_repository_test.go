package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStudentMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func studentRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "user_id", "student_number", "full_name", "email", "department", "active", "created_at", "updated_at"}).
		AddRow("stu-1", nil, "20260101", "Alice Example", "alice@uni.edu", "Computer Science", true, time.Now(), time.Now())
}

func TestStudentFindByEmail(t *testing.T) {
	db, mock, cleanup := newStudentMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, user_id, student_number, full_name, email, department, active, created_at, updated_at FROM students WHERE LOWER(email) = LOWER($1) LIMIT 1")).
		WithArgs("alice@uni.edu").
		WillReturnRows(studentRows())

	student, err := repo.FindByEmail(context.Background(), "alice@uni.edu")
	require.NoError(t, err)
	assert.Equal(t, "20260101", student.StudentNumber)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentFindByStudentNumberNotFound(t *testing.T) {
	db, mock, cleanup := newStudentMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectQuery("SELECT .+ FROM students WHERE student_number").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByStudentNumber(context.Background(), "nope")
	assert.ErrorIs(t, err, sql.ErrNoRows)
}
