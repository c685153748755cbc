package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/ridepool/ridepool-go/internal/model"
)

const selectPost = `SELECT p.id, p.created_at, p.ride_to, p.ride_from, p.ride_at, p.fare,
		p.author_id, u.username, p.status, p.flag_reason
	FROM posts p
	INNER JOIN users u ON u.id = p.author_id`

// PostRepository handles ride post persistence operations.
type PostRepository struct {
	db *sql.DB
}

// NewPostRepository creates a new PostRepository.
func NewPostRepository(db *sql.DB) *PostRepository {
	return &PostRepository{db: db}
}

// Create inserts a new post and sets the generated ID on the post struct.
func (r *PostRepository) Create(ctx context.Context, post *model.Post) error {
	query := `INSERT INTO posts (created_at, ride_to, ride_from, ride_at, fare, author_id, status)
		VALUES (?, ?, ?, ?, ?, ?, ?)`

	result, err := r.db.ExecContext(ctx, query,
		post.CreatedAt,
		post.RideTo,
		post.RideFrom,
		post.RideAt,
		post.Fare,
		post.AuthorID,
		string(post.Status),
	)
	if err != nil {
		return err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}

	post.ID = id
	return nil
}

// GetByID retrieves a post with its author's username.
func (r *PostRepository) GetByID(ctx context.Context, id int64) (*model.Post, error) {
	row := r.db.QueryRowContext(ctx, selectPost+` WHERE p.id = ?`, id)

	post, err := scanPost(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPostNotFound
		}
		return nil, err
	}
	return post, nil
}

// ListAll retrieves every post regardless of status, newest first.
func (r *PostRepository) ListAll(ctx context.Context) ([]model.Post, error) {
	return r.list(ctx, selectPost+` ORDER BY p.created_at DESC, p.id DESC`)
}

// ListByAuthor retrieves the posts written by one user, newest first.
func (r *PostRepository) ListByAuthor(ctx context.Context, authorID int64) ([]model.Post, error) {
	return r.list(ctx, selectPost+` WHERE p.author_id = ? ORDER BY p.created_at DESC, p.id DESC`, authorID)
}

// ListByStatus retrieves the posts in one moderation status, newest first.
func (r *PostRepository) ListByStatus(ctx context.Context, status model.PostStatus) ([]model.Post, error) {
	return r.list(ctx, selectPost+` WHERE p.status = ? ORDER BY p.created_at DESC, p.id DESC`, string(status))
}

// Update overwrites the editable ride fields. Author, creation time and
// status are left untouched.
func (r *PostRepository) Update(ctx context.Context, post *model.Post) error {
	query := `UPDATE posts SET ride_to = ?, ride_from = ?, ride_at = ?, fare = ? WHERE id = ?`

	result, err := r.db.ExecContext(ctx, query, post.RideTo, post.RideFrom, post.RideAt, post.Fare, post.ID)
	if err != nil {
		return err
	}
	return expectRow(result, ErrPostNotFound)
}

// UpdateStatus overwrites the moderation status and flag reason in place.
func (r *PostRepository) UpdateStatus(ctx context.Context, id int64, status model.PostStatus, reason string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE posts SET status = ?, flag_reason = ? WHERE id = ?`, string(status), nullString(reason), id)
	if err != nil {
		return err
	}
	return expectRow(result, ErrPostNotFound)
}

// Delete removes a post row.
func (r *PostRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM posts WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return expectRow(result, ErrPostNotFound)
}

func (r *PostRepository) list(ctx context.Context, query string, args ...any) ([]model.Post, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	posts := []model.Post{}
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		posts = append(posts, *post)
	}

	return posts, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanPost(s scanner) (*model.Post, error) {
	var (
		post   model.Post
		status string
		reason sql.NullString
	)

	if err := s.Scan(
		&post.ID, &post.CreatedAt, &post.RideTo, &post.RideFrom, &post.RideAt, &post.Fare,
		&post.AuthorID, &post.AuthorUsername, &status, &reason,
	); err != nil {
		return nil, err
	}

	post.Status = model.PostStatus(status)
	post.FlagReason = reason.String
	return &post, nil
}
