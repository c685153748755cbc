package model

import "time"

// User represents a credential record in the database.
type User struct {
	ID                 int64
	Username           string
	Email              string
	PasswordHash       string
	SecurityAnswerHash string
	IsAdmin            bool
	CreatedAt          time.Time
}

// HasSecurityAnswer reports whether password recovery is possible for the user.
func (u *User) HasSecurityAnswer() bool {
	return u.SecurityAnswerHash != ""
}

// LoginForm holds the submitted login fields.
type LoginForm struct {
	Username string
	Password string
}

// RegisterForm holds the submitted sign-up fields.
type RegisterForm struct {
	Username        string
	Email           string
	Password        string
	ConfirmPassword string
}

// ForgotPasswordForm holds the submitted password recovery fields.
type ForgotPasswordForm struct {
	Username        string
	SecurityAnswer  string
	Password        string
	ConfirmPassword string
}

// SettingsForm holds the editable account settings. An empty SecurityAnswer
// keeps the current answer.
type SettingsForm struct {
	Email          string
	SecurityAnswer string
}
