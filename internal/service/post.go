package service

import (
	"context"
	"errors"
	"html"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"

	"github.com/ridepool/ridepool-go/internal/model"
	"github.com/ridepool/ridepool-go/internal/repository"
)

// FareMessage is reported for a fare that is present but not a non-negative number.
const FareMessage = "Fare must be a valid non-negative number."

// maxFare fits DECIMAL(10, 2).
const maxFare = 99999999.99

var (
	ErrPostNotFound     = errors.New("post not found")
	ErrForbidden        = errors.New("not allowed")
	ErrOwnRide          = invalid("You cannot request to join your own ride.")
	ErrAlreadyRequested = invalid("You have already requested to join this ride.")
)

// PostDetail is a post as seen by one viewer.
type PostDetail struct {
	Post         *model.Post
	IsAuthor     bool
	JoinRequests []model.JoinRequest
}

// PostService handles ride posts and their moderation.
type PostService struct {
	posts    PostStore
	requests JoinRequestStore
	policy   *bluemonday.Policy
	now      func() time.Time
}

// NewPostService creates a new PostService.
func NewPostService(posts PostStore, requests JoinRequestStore) *PostService {
	return &PostService{
		posts:    posts,
		requests: requests,
		policy:   bluemonday.StrictPolicy(),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Create validates the form and stores a new active post by author.
func (s *PostService) Create(ctx context.Context, author model.Identity, form model.PostForm) (*model.Post, error) {
	if !author.IsAuthenticated() {
		return nil, ErrForbidden
	}

	post, err := s.parseForm(form)
	if err != nil {
		return nil, err
	}

	post.CreatedAt = s.now().Truncate(time.Millisecond)
	post.AuthorID = author.UserID
	post.AuthorUsername = author.Username
	post.Status = model.StatusActive

	if err := s.posts.Create(ctx, post); err != nil {
		return nil, err
	}
	return post, nil
}

// Get loads a post for display. The author also sees who asked to join.
func (s *PostService) Get(ctx context.Context, viewer model.Identity, id int64) (*PostDetail, error) {
	post, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	detail := &PostDetail{Post: post, IsAuthor: viewer.Owns(post.AuthorID)}
	if detail.IsAuthor {
		requests, err := s.requests.ListByPost(ctx, post.ID)
		if err != nil {
			return nil, err
		}
		detail.JoinRequests = requests
	}
	return detail, nil
}

// GetForEdit loads a post only for its author.
func (s *PostService) GetForEdit(ctx context.Context, viewer model.Identity, id int64) (*model.Post, error) {
	return s.ownedPost(ctx, viewer, id)
}

// Update overwrites the ride fields of a post owned by viewer. Ownership is
// checked before the form is validated.
func (s *PostService) Update(ctx context.Context, viewer model.Identity, id int64, form model.PostForm) (*model.Post, error) {
	post, err := s.ownedPost(ctx, viewer, id)
	if err != nil {
		return nil, err
	}

	changes, err := s.parseForm(form)
	if err != nil {
		return nil, err
	}

	post.RideTo = changes.RideTo
	post.RideFrom = changes.RideFrom
	post.RideAt = changes.RideAt
	post.Fare = changes.Fare

	if err := s.posts.Update(ctx, post); err != nil {
		return nil, notFound(err)
	}
	return post, nil
}

// Delete removes a post owned by viewer.
func (s *PostService) Delete(ctx context.Context, viewer model.Identity, id int64) error {
	if _, err := s.ownedPost(ctx, viewer, id); err != nil {
		return err
	}
	return notFound(s.posts.Delete(ctx, id))
}

// Flag reports a post for review. Any signed-in user may flag any post,
// including one that is already flagged or approved.
func (s *PostService) Flag(ctx context.Context, viewer model.Identity, id int64) error {
	if !viewer.IsAuthenticated() {
		return ErrForbidden
	}
	return s.transition(ctx, id, model.StatusFlagged, model.DefaultFlagReason)
}

// Approve marks a post as reviewed. Admin only.
func (s *PostService) Approve(ctx context.Context, viewer model.Identity, id int64) error {
	if !viewer.IsAdministrator() {
		return ErrForbidden
	}
	return s.transition(ctx, id, model.StatusApproved, "")
}

// Dismiss returns a flagged post to active. Admin only.
func (s *PostService) Dismiss(ctx context.Context, viewer model.Identity, id int64) error {
	if !viewer.IsAdministrator() {
		return ErrForbidden
	}
	return s.transition(ctx, id, model.StatusActive, "")
}

// AdminDelete removes any post. Admin only.
func (s *PostService) AdminDelete(ctx context.Context, viewer model.Identity, id int64) error {
	if !viewer.IsAdministrator() {
		return ErrForbidden
	}
	return notFound(s.posts.Delete(ctx, id))
}

// ListAll returns every post regardless of status, newest first.
func (s *PostService) ListAll(ctx context.Context) ([]model.Post, error) {
	return s.posts.ListAll(ctx)
}

// ListByAuthor returns the posts written by one user, newest first.
func (s *PostService) ListByAuthor(ctx context.Context, authorID int64) ([]model.Post, error) {
	return s.posts.ListByAuthor(ctx, authorID)
}

// ListFlagged returns the posts awaiting moderation.
func (s *PostService) ListFlagged(ctx context.Context) ([]model.Post, error) {
	return s.posts.ListByStatus(ctx, model.StatusFlagged)
}

// RequestToJoin records viewer's request for a seat on a post.
func (s *PostService) RequestToJoin(ctx context.Context, viewer model.Identity, postID int64) error {
	if !viewer.IsAuthenticated() {
		return ErrForbidden
	}

	post, err := s.load(ctx, postID)
	if err != nil {
		return err
	}
	if viewer.Owns(post.AuthorID) {
		return ErrOwnRide
	}

	err = s.requests.Create(ctx, &model.JoinRequest{
		PostID:   post.ID,
		UserID:   viewer.UserID,
		Username: viewer.Username,
	})
	if errors.Is(err, repository.ErrDuplicateJoinRequest) {
		return ErrAlreadyRequested
	}
	return err
}

// ownedPost loads a post and checks that viewer wrote it. A missing post and
// someone else's post are indistinguishable to the caller.
func (s *PostService) ownedPost(ctx context.Context, viewer model.Identity, id int64) (*model.Post, error) {
	post, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !viewer.Owns(post.AuthorID) {
		return nil, ErrPostNotFound
	}
	return post, nil
}

func (s *PostService) load(ctx context.Context, id int64) (*model.Post, error) {
	if id <= 0 {
		return nil, ErrPostNotFound
	}
	post, err := s.posts.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err)
	}
	return post, nil
}

func (s *PostService) transition(ctx context.Context, id int64, next model.PostStatus, reason string) error {
	post, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if !post.Status.CanTransition(next) {
		return model.ErrInvalidTransition
	}
	return notFound(s.posts.UpdateStatus(ctx, id, next, reason))
}

// parseForm trims and strips markup from every field, then validates. All
// problems are reported together.
func (s *PostService) parseForm(form model.PostForm) (*model.Post, error) {
	rideTo := s.clean(form.RideTo)
	rideFrom := s.clean(form.RideFrom)
	rideDate := strings.TrimSpace(form.RideDate)
	rideTime := strings.TrimSpace(form.RideTime)
	fareText := strings.TrimSpace(form.Fare)

	var p problems
	if rideTo == "" {
		p.add("Must Provide Destination")
	}
	if rideFrom == "" {
		p.add("Must Provide Starting Location")
	}
	if rideDate == "" {
		p.add("Must Provide The Date For The Ride")
	}
	if rideTime == "" {
		p.add("Must Provide The Time For The Ride")
	}

	var fare float64
	if fareText == "" {
		p.add("Must Provide The Fare")
	} else if f, ok := parseFare(fareText); ok {
		fare = f
	} else {
		p.add(FareMessage)
	}

	var rideAt time.Time
	if rideDate != "" && rideTime != "" {
		t, err := time.ParseInLocation("2006-01-02 15:04", rideDate+" "+rideTime, time.UTC)
		if err != nil {
			p.add("Please provide a valid date and time for the ride.")
		}
		rideAt = t
	}

	if err := p.err(); err != nil {
		return nil, err
	}

	return &model.Post{
		RideTo:   rideTo,
		RideFrom: rideFrom,
		RideAt:   rideAt,
		Fare:     fare,
	}, nil
}

// clean strips all markup. The policy escapes entities, which templates would
// escape again, so they are decoded afterwards.
func (s *PostService) clean(v string) string {
	return strings.TrimSpace(html.UnescapeString(s.policy.Sanitize(strings.TrimSpace(v))))
}

func parseFare(v string) (float64, bool) {
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f < 0 || f > maxFare {
		return 0, false
	}
	if f == 0 {
		return 0, true
	}
	return math.Round(f*100) / 100, true
}

func notFound(err error) error {
	if errors.Is(err, repository.ErrPostNotFound) {
		return ErrPostNotFound
	}
	return err
}
