package service

import (
	"context"
	"time"

	"github.com/ridepool/ridepool-go/internal/model"
)

// UserStore persists credential records. repository.UserRepository and
// memory.UserStore implement it.
type UserStore interface {
	Create(ctx context.Context, user *model.User) error
	GetByUsername(ctx context.Context, username string) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	GetByID(ctx context.Context, id int64) (*model.User, error)
	UpdatePassword(ctx context.Context, id int64, passwordHash string) error
	UpdateSettings(ctx context.Context, id int64, email, answerHash string) error
}

// PostStore persists ride posts.
type PostStore interface {
	Create(ctx context.Context, post *model.Post) error
	GetByID(ctx context.Context, id int64) (*model.Post, error)
	ListAll(ctx context.Context) ([]model.Post, error)
	ListByAuthor(ctx context.Context, authorID int64) ([]model.Post, error)
	ListByStatus(ctx context.Context, status model.PostStatus) ([]model.Post, error)
	Update(ctx context.Context, post *model.Post) error
	UpdateStatus(ctx context.Context, id int64, status model.PostStatus, reason string) error
	Delete(ctx context.Context, id int64) error
}

// JoinRequestStore persists requests to join a ride.
type JoinRequestStore interface {
	Create(ctx context.Context, req *model.JoinRequest) error
	ListByPost(ctx context.Context, postID int64) ([]model.JoinRequest, error)
}

// Denylist revokes session tokens by ID before they expire.
type Denylist interface {
	Revoke(ctx context.Context, tokenID string, ttl time.Duration) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}
