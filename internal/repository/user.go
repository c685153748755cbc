package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/ridepool/ridepool-go/internal/model"
)

const userColumns = `id, username, email, password_hash, security_answer_hash, is_admin, created_at`

// UserRepository handles credential persistence operations.
type UserRepository struct {
	db *sql.DB
}

// NewUserRepository creates a new UserRepository.
func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create inserts a new user and sets the generated ID on the user struct.
// Unique constraints on username and email surface as ErrDuplicateUsername
// and ErrDuplicateEmail.
func (r *UserRepository) Create(ctx context.Context, user *model.User) error {
	query := `INSERT INTO users (username, email, password_hash, security_answer_hash, is_admin)
		VALUES (?, ?, ?, ?, ?)`

	result, err := r.db.ExecContext(ctx, query,
		user.Username,
		nullString(user.Email),
		user.PasswordHash,
		nullString(user.SecurityAnswerHash),
		user.IsAdmin,
	)
	if err != nil {
		return userConflict(err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}

	user.ID = id
	return nil
}

// GetByUsername retrieves a user by username.
func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE username = ?`, username)
}

// GetByEmail retrieves a user by email address.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`, email)
}

// GetByID retrieves a user by ID.
func (r *UserRepository) GetByID(ctx context.Context, id int64) (*model.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
}

// UpdatePassword overwrites the password hash only.
func (r *UserRepository) UpdatePassword(ctx context.Context, id int64, passwordHash string) error {
	result, err := r.db.ExecContext(ctx, `UPDATE users SET password_hash = ? WHERE id = ?`, passwordHash, id)
	if err != nil {
		return err
	}
	return expectRow(result, ErrUserNotFound)
}

// UpdateSettings changes the email and, when answerHash is non-empty, the
// security answer.
func (r *UserRepository) UpdateSettings(ctx context.Context, id int64, email, answerHash string) error {
	query := `UPDATE users SET email = ?, security_answer_hash = COALESCE(?, security_answer_hash) WHERE id = ?`

	result, err := r.db.ExecContext(ctx, query, nullString(email), nullString(answerHash), id)
	if err != nil {
		return userConflict(err)
	}
	return expectRow(result, ErrUserNotFound)
}

// PromoteAdmins sets the admin flag for every listed username. It returns the
// number of rows changed.
func (r *UserRepository) PromoteAdmins(ctx context.Context, usernames []string) (int64, error) {
	if len(usernames) == 0 {
		return 0, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(usernames)), ", ")
	args := make([]any, len(usernames))
	for i, u := range usernames {
		args[i] = u
	}

	result, err := r.db.ExecContext(ctx,
		`UPDATE users SET is_admin = TRUE WHERE username IN (`+placeholders+`)`, args...)
	if err != nil {
		return 0, fmt.Errorf("promoting admins: %w", err)
	}
	return result.RowsAffected()
}

func (r *UserRepository) getOne(ctx context.Context, query string, arg any) (*model.User, error) {
	var (
		user   model.User
		email  sql.NullString
		answer sql.NullString
	)

	err := r.db.QueryRowContext(ctx, query, arg).Scan(
		&user.ID, &user.Username, &email, &user.PasswordHash, &answer, &user.IsAdmin, &user.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	user.Email = email.String
	user.SecurityAnswerHash = answer.String
	return &user, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func expectRow(result sql.Result, notFound error) error {
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return notFound
	}
	return nil
}
