// Package memory provides mutex-guarded in-process stores with the same
// semantics and sentinel errors as the MySQL repositories. It backs the server
// when no database is configured and the higher-level tests.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/ridepool/ridepool-go/internal/model"
	"github.com/ridepool/ridepool-go/internal/repository"
)

// Store holds every table. Use Users, Posts and JoinRequests to get typed views.
type Store struct {
	mu       sync.RWMutex
	users    map[int64]model.User
	posts    map[int64]model.Post
	requests map[int64]model.JoinRequest

	nextUserID    int64
	nextPostID    int64
	nextRequestID int64

	now func() time.Time
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{
		users:    make(map[int64]model.User),
		posts:    make(map[int64]model.Post),
		requests: make(map[int64]model.JoinRequest),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Users returns the user table.
func (s *Store) Users() *UserStore { return &UserStore{s: s} }

// Posts returns the post table.
func (s *Store) Posts() *PostStore { return &PostStore{s: s} }

// JoinRequests returns the join request table.
func (s *Store) JoinRequests() *JoinRequestStore { return &JoinRequestStore{s: s} }

// UserStore is the in-memory users table. Usernames and emails compare
// case-insensitively, as they do under MySQL's default collation.
type UserStore struct {
	s *Store
}

// Create inserts a user and assigns its ID.
func (u *UserStore) Create(_ context.Context, user *model.User) error {
	s := u.s
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.users {
		if strings.EqualFold(existing.Username, user.Username) {
			return repository.ErrDuplicateUsername
		}
		if user.Email != "" && strings.EqualFold(existing.Email, user.Email) {
			return repository.ErrDuplicateEmail
		}
	}

	s.nextUserID++
	user.ID = s.nextUserID
	if user.CreatedAt.IsZero() {
		user.CreatedAt = s.now()
	}
	s.users[user.ID] = *user
	return nil
}

// GetByUsername retrieves a user by username.
func (u *UserStore) GetByUsername(_ context.Context, username string) (*model.User, error) {
	return u.find(func(user model.User) bool { return strings.EqualFold(user.Username, username) })
}

// GetByEmail retrieves a user by email address.
func (u *UserStore) GetByEmail(_ context.Context, email string) (*model.User, error) {
	if email == "" {
		return nil, repository.ErrUserNotFound
	}
	return u.find(func(user model.User) bool { return strings.EqualFold(user.Email, email) })
}

// GetByID retrieves a user by ID.
func (u *UserStore) GetByID(_ context.Context, id int64) (*model.User, error) {
	u.s.mu.RLock()
	defer u.s.mu.RUnlock()

	user, ok := u.s.users[id]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	return &user, nil
}

// UpdatePassword overwrites the password hash only.
func (u *UserStore) UpdatePassword(_ context.Context, id int64, passwordHash string) error {
	s := u.s
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[id]
	if !ok {
		return repository.ErrUserNotFound
	}
	user.PasswordHash = passwordHash
	s.users[id] = user
	return nil
}

// UpdateSettings changes the email and, when answerHash is non-empty, the
// security answer.
func (u *UserStore) UpdateSettings(_ context.Context, id int64, email, answerHash string) error {
	s := u.s
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[id]
	if !ok {
		return repository.ErrUserNotFound
	}
	if email != "" {
		for otherID, other := range s.users {
			if otherID != id && strings.EqualFold(other.Email, email) {
				return repository.ErrDuplicateEmail
			}
		}
	}

	user.Email = email
	if answerHash != "" {
		user.SecurityAnswerHash = answerHash
	}
	s.users[id] = user
	return nil
}

// PromoteAdmins sets the admin flag for every listed username.
func (u *UserStore) PromoteAdmins(_ context.Context, usernames []string) (int64, error) {
	s := u.s
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for id, user := range s.users {
		for _, name := range usernames {
			if strings.EqualFold(user.Username, name) && !user.IsAdmin {
				user.IsAdmin = true
				s.users[id] = user
				n++
			}
		}
	}
	return n, nil
}

func (u *UserStore) find(match func(model.User) bool) (*model.User, error) {
	u.s.mu.RLock()
	defer u.s.mu.RUnlock()

	for _, user := range u.s.users {
		if match(user) {
			return &user, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

// PostStore is the in-memory posts table.
type PostStore struct {
	s *Store
}

// Create inserts a post and assigns its ID.
func (p *PostStore) Create(_ context.Context, post *model.Post) error {
	s := p.s
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextPostID++
	post.ID = s.nextPostID
	if author, ok := s.users[post.AuthorID]; ok {
		post.AuthorUsername = author.Username
	}
	s.posts[post.ID] = *post
	return nil
}

// GetByID retrieves a post with its author's username.
func (p *PostStore) GetByID(_ context.Context, id int64) (*model.Post, error) {
	p.s.mu.RLock()
	defer p.s.mu.RUnlock()

	post, ok := p.s.posts[id]
	if !ok {
		return nil, repository.ErrPostNotFound
	}
	p.s.withAuthor(&post)
	return &post, nil
}

// ListAll retrieves every post, newest first.
func (p *PostStore) ListAll(_ context.Context) ([]model.Post, error) {
	return p.list(func(model.Post) bool { return true }), nil
}

// ListByAuthor retrieves one user's posts, newest first.
func (p *PostStore) ListByAuthor(_ context.Context, authorID int64) ([]model.Post, error) {
	return p.list(func(post model.Post) bool { return post.AuthorID == authorID }), nil
}

// ListByStatus retrieves the posts in one moderation status, newest first.
func (p *PostStore) ListByStatus(_ context.Context, status model.PostStatus) ([]model.Post, error) {
	return p.list(func(post model.Post) bool { return post.Status == status }), nil
}

// Update overwrites the editable ride fields.
func (p *PostStore) Update(_ context.Context, post *model.Post) error {
	s := p.s
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.posts[post.ID]
	if !ok {
		return repository.ErrPostNotFound
	}
	stored.RideTo = post.RideTo
	stored.RideFrom = post.RideFrom
	stored.RideAt = post.RideAt
	stored.Fare = post.Fare
	s.posts[post.ID] = stored
	return nil
}

// UpdateStatus overwrites the moderation status and flag reason.
func (p *PostStore) UpdateStatus(_ context.Context, id int64, status model.PostStatus, reason string) error {
	s := p.s
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.posts[id]
	if !ok {
		return repository.ErrPostNotFound
	}
	stored.Status = status
	stored.FlagReason = reason
	s.posts[id] = stored
	return nil
}

// Delete removes a post and its join requests.
func (p *PostStore) Delete(_ context.Context, id int64) error {
	s := p.s
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.posts[id]; !ok {
		return repository.ErrPostNotFound
	}
	delete(s.posts, id)
	for reqID, req := range s.requests {
		if req.PostID == id {
			delete(s.requests, reqID)
		}
	}
	return nil
}

func (p *PostStore) list(match func(model.Post) bool) []model.Post {
	p.s.mu.RLock()
	defer p.s.mu.RUnlock()

	posts := []model.Post{}
	for _, post := range p.s.posts {
		if match(post) {
			p.s.withAuthor(&post)
			posts = append(posts, post)
		}
	}

	sort.Slice(posts, func(i, j int) bool {
		if !posts[i].CreatedAt.Equal(posts[j].CreatedAt) {
			return posts[i].CreatedAt.After(posts[j].CreatedAt)
		}
		return posts[i].ID > posts[j].ID
	})
	return posts
}

// withAuthor fills the joined username. Callers hold the lock.
func (s *Store) withAuthor(post *model.Post) {
	if author, ok := s.users[post.AuthorID]; ok {
		post.AuthorUsername = author.Username
	}
}

// JoinRequestStore is the in-memory ride_requests table.
type JoinRequestStore struct {
	s *Store
}

// Create records a join request, rejecting a repeat by the same rider.
func (j *JoinRequestStore) Create(_ context.Context, req *model.JoinRequest) error {
	s := j.s
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.requests {
		if existing.PostID == req.PostID && existing.UserID == req.UserID {
			return repository.ErrDuplicateJoinRequest
		}
	}

	s.nextRequestID++
	req.ID = s.nextRequestID
	if req.CreatedAt.IsZero() {
		req.CreatedAt = s.now()
	}
	s.requests[req.ID] = *req
	return nil
}

// ListByPost retrieves the requests for a post, oldest first.
func (j *JoinRequestStore) ListByPost(_ context.Context, postID int64) ([]model.JoinRequest, error) {
	j.s.mu.RLock()
	defer j.s.mu.RUnlock()

	requests := []model.JoinRequest{}
	for _, req := range j.s.requests {
		if req.PostID != postID {
			continue
		}
		if user, ok := j.s.users[req.UserID]; ok {
			req.Username = user.Username
		}
		requests = append(requests, req)
	}

	sort.Slice(requests, func(a, b int) bool {
		if !requests[a].CreatedAt.Equal(requests[b].CreatedAt) {
			return requests[a].CreatedAt.Before(requests[b].CreatedAt)
		}
		return requests[a].ID < requests[b].ID
	})
	return requests, nil
}

// Denylist is an in-process session revocation list.
type Denylist struct {
	mu      sync.Mutex
	revoked map[string]time.Time
	now     func() time.Time
}

// NewDenylist creates an empty Denylist.
func NewDenylist() *Denylist {
	return &Denylist{revoked: make(map[string]time.Time), now: time.Now}
}

// Revoke marks a token ID as revoked for ttl. Entries that have already
// expired are swept on every call.
func (d *Denylist) Revoke(_ context.Context, tokenID string, ttl time.Duration) error {
	if strings.TrimSpace(tokenID) == "" || ttl <= 0 {
		return nil
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	for id, until := range d.revoked {
		if !now.Before(until) {
			delete(d.revoked, id)
		}
	}
	d.revoked[tokenID] = now.Add(ttl)
	return nil
}

// IsRevoked reports whether a token ID is revoked and not yet expired.
func (d *Denylist) IsRevoked(_ context.Context, tokenID string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	until, ok := d.revoked[tokenID]
	if !ok {
		return false, nil
	}
	if !d.now().Before(until) {
		delete(d.revoked, tokenID)
		return false, nil
	}
	return true, nil
}
