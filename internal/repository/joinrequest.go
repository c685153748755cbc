package repository

import (
	"context"
	"database/sql"

	"github.com/ridepool/ridepool-go/internal/model"
)

// JoinRequestRepository stores riders' requests to join a posted ride.
type JoinRequestRepository struct {
	db *sql.DB
}

// NewJoinRequestRepository creates a new JoinRequestRepository.
func NewJoinRequestRepository(db *sql.DB) *JoinRequestRepository {
	return &JoinRequestRepository{db: db}
}

// Create records a join request. A second request by the same rider for the
// same post returns ErrDuplicateJoinRequest.
func (r *JoinRequestRepository) Create(ctx context.Context, req *model.JoinRequest) error {
	result, err := r.db.ExecContext(ctx,
		`INSERT INTO ride_requests (post_id, user_id) VALUES (?, ?)`, req.PostID, req.UserID)
	if err != nil {
		if _, dup := duplicateKey(err); dup {
			return ErrDuplicateJoinRequest
		}
		return err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}

	req.ID = id
	return nil
}

// ListByPost retrieves the requests for a post, oldest first.
func (r *JoinRequestRepository) ListByPost(ctx context.Context, postID int64) ([]model.JoinRequest, error) {
	query := `SELECT rr.id, rr.post_id, rr.user_id, u.username, rr.created_at
		FROM ride_requests rr
		INNER JOIN users u ON u.id = rr.user_id
		WHERE rr.post_id = ?
		ORDER BY rr.created_at ASC, rr.id ASC`

	rows, err := r.db.QueryContext(ctx, query, postID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	requests := []model.JoinRequest{}
	for rows.Next() {
		var jr model.JoinRequest
		if err := rows.Scan(&jr.ID, &jr.PostID, &jr.UserID, &jr.Username, &jr.CreatedAt); err != nil {
			return nil, err
		}
		requests = append(requests, jr)
	}

	return requests, rows.Err()
}
