package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ridepool/ridepool-go/internal/model"
)

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db, mock
}

var userRowColumns = []string{"id", "username", "email", "password_hash", "security_answer_hash", "is_admin", "created_at"}

func TestUserRepository_Create(t *testing.T) {
	db, mock := newMock(t)
	repo := NewUserRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO users (username, email, password_hash, security_answer_hash, is_admin)")).
		WithArgs("alice123", sql.NullString{String: "alice@my.unt.edu", Valid: true}, "hash", sql.NullString{String: "answer", Valid: true}, false).
		WillReturnResult(sqlmock.NewResult(7, 1))

	user := &model.User{Username: "alice123", Email: "alice@my.unt.edu", PasswordHash: "hash", SecurityAnswerHash: "answer"}
	require.NoError(t, repo.Create(context.Background(), user))
	assert.Equal(t, int64(7), user.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_CreateDuplicate(t *testing.T) {
	tests := []struct {
		name    string
		message string
		want    error
	}{
		{name: "username mysql 8", message: "Duplicate entry 'alice123' for key 'users.users_username'", want: ErrDuplicateUsername},
		{name: "email mysql 8", message: "Duplicate entry 'a@my.unt.edu' for key 'users.users_email'", want: ErrDuplicateEmail},
		{name: "email mysql 5.7", message: "Duplicate entry 'a@my.unt.edu' for key 'users_email'", want: ErrDuplicateEmail},
		{name: "username that looks like email", message: "Duplicate entry 'email1' for key 'users.users_username'", want: ErrDuplicateUsername},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock := newMock(t)
			repo := NewUserRepository(db)

			mock.ExpectExec(regexp.QuoteMeta("INSERT INTO users")).
				WillReturnError(&mysql.MySQLError{Number: mysqlDuplicateEntry, Message: tt.message})

			err := repo.Create(context.Background(), &model.User{Username: "alice123", PasswordHash: "hash"})
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestUserRepository_GetByUsername(t *testing.T) {
	db, mock := newMock(t)
	repo := NewUserRepository(db)
	created := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE username = ?")).
		WithArgs("alice123").
		WillReturnRows(sqlmock.NewRows(userRowColumns).
			AddRow(1, "alice123", nil, "hash", nil, true, created))

	user, err := repo.GetByUsername(context.Background(), "alice123")
	require.NoError(t, err)
	assert.Equal(t, int64(1), user.ID)
	assert.Equal(t, "", user.Email)
	assert.True(t, user.IsAdmin)
	assert.False(t, user.HasSecurityAnswer())
	assert.Equal(t, created, user.CreatedAt)
}

func TestUserRepository_GetByIDNotFound(t *testing.T) {
	db, mock := newMock(t)
	repo := NewUserRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE id = ?")).
		WithArgs(int64(99)).
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByID(context.Background(), 99)
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestUserRepository_UpdatePassword(t *testing.T) {
	db, mock := newMock(t)
	repo := NewUserRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE users SET password_hash = ? WHERE id = ?")).
		WithArgs("new-hash", int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE users SET password_hash = ? WHERE id = ?")).
		WithArgs("new-hash", int64(2)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, repo.UpdatePassword(context.Background(), 1, "new-hash"))
	assert.ErrorIs(t, repo.UpdatePassword(context.Background(), 2, "new-hash"), ErrUserNotFound)
}

func TestUserRepository_UpdateSettingsKeepsAnswer(t *testing.T) {
	db, mock := newMock(t)
	repo := NewUserRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("COALESCE(?, security_answer_hash)")).
		WithArgs(sql.NullString{String: "new@my.unt.edu", Valid: true}, sql.NullString{}, int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.UpdateSettings(context.Background(), 1, "new@my.unt.edu", ""))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_PromoteAdmins(t *testing.T) {
	db, mock := newMock(t)
	repo := NewUserRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE users SET is_admin = TRUE WHERE username IN (?, ?)")).
		WithArgs("root", "moderator").
		WillReturnResult(sqlmock.NewResult(0, 2))

	n, err := repo.PromoteAdmins(context.Background(), []string{"root", "moderator"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	n, err = repo.PromoteAdmins(context.Background(), nil)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMigrate(t *testing.T) {
	db, mock := newMock(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS users")).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS posts")).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS ride_requests")).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	require.NoError(t, Migrate(context.Background(), db))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDuplicateKey(t *testing.T) {
	_, ok := duplicateKey(nil)
	assert.False(t, ok)
	_, ok = duplicateKey(ErrUserNotFound)
	assert.False(t, ok)
	_, ok = duplicateKey(&mysql.MySQLError{Number: 1452, Message: "foreign key"})
	assert.False(t, ok)
}
