package model

import "time"

// Identity is the authenticated-or-anonymous subject of a request. It is rebuilt
// from the session token on every request and never persisted.
type Identity struct {
	UserID    int64
	Username  string
	IsAdmin   bool
	TokenID   string
	ExpiresAt time.Time
}

// Anonymous is the identity of a request without a valid session.
var Anonymous = Identity{}

// IsAuthenticated reports whether the identity belongs to a signed-in user.
func (i Identity) IsAuthenticated() bool {
	return i.UserID > 0
}

// IsAdministrator reports whether the identity is a signed-in admin.
// An anonymous identity is never an admin.
func (i Identity) IsAdministrator() bool {
	return i.IsAuthenticated() && i.IsAdmin
}

// Owns reports whether the identity authored a resource with the given author ID.
func (i Identity) Owns(authorID int64) bool {
	return i.IsAuthenticated() && i.UserID == authorID
}
