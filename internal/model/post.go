package model

import (
	"errors"
	"strconv"
	"time"
)

// PostStatus is the moderation state of a ride post.
type PostStatus string

const (
	StatusActive   PostStatus = "active"
	StatusFlagged  PostStatus = "flagged"
	StatusApproved PostStatus = "approved"
)

// DefaultFlagReason is recorded when a rider reports a post.
const DefaultFlagReason = "Reported by a rider for review"

var ErrInvalidTransition = errors.New("invalid post status transition")

// transitions lists the statuses reachable from each status. Deletion is not a
// status; it removes the row from any state.
var transitions = map[PostStatus][]PostStatus{
	StatusActive:   {StatusFlagged, StatusApproved},
	StatusFlagged:  {StatusFlagged, StatusApproved, StatusActive},
	StatusApproved: {StatusFlagged, StatusApproved},
}

// Valid reports whether s is a known status.
func (s PostStatus) Valid() bool {
	_, ok := transitions[s]
	return ok
}

// CanTransition reports whether a post in status s may move to next.
func (s PostStatus) CanTransition(next PostStatus) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Post represents a ride offer.
type Post struct {
	ID             int64
	CreatedAt      time.Time
	RideTo         string
	RideFrom       string
	RideAt         time.Time
	Fare           float64
	AuthorID       int64
	AuthorUsername string
	Status         PostStatus
	FlagReason     string
}

// RideDate formats the ride date for display, e.g. "3/7/2025".
func (p *Post) RideDate() string {
	return p.RideAt.Format("1/2/2006")
}

// RideTime formats the ride time for display, e.g. "9:05 AM".
func (p *Post) RideTime() string {
	return p.RideAt.Format("3:04 PM")
}

// FareDisplay formats the fare with two decimals, e.g. "12.50".
func (p *Post) FareDisplay() string {
	return formatFare(p.Fare)
}

func formatFare(f float64) string {
	return strconv.FormatFloat(f, 'f', 2, 64)
}

// PostForm holds the submitted ride fields before validation.
type PostForm struct {
	RideTo   string
	RideFrom string
	RideDate string
	RideTime string
	Fare     string
}

// FormFromPost fills a form with a stored post for the edit page.
func FormFromPost(p *Post) PostForm {
	return PostForm{
		RideTo:   p.RideTo,
		RideFrom: p.RideFrom,
		RideDate: p.RideAt.Format("2006-01-02"),
		RideTime: p.RideAt.Format("15:04"),
		Fare:     formatFare(p.Fare),
	}
}

// JoinRequest records a rider asking for a seat on a post.
type JoinRequest struct {
	ID        int64
	PostID    int64
	UserID    int64
	Username  string
	CreatedAt time.Time
}
