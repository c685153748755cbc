package repository

import (
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"
)

var (
	ErrUserNotFound         = errors.New("user not found")
	ErrDuplicateUsername    = errors.New("username already exists")
	ErrDuplicateEmail       = errors.New("email already exists")
	ErrPostNotFound         = errors.New("post not found")
	ErrDuplicateJoinRequest = errors.New("join request already exists")
)

const mysqlDuplicateEntry = 1062

// duplicateKey reports whether err is a MySQL duplicate entry error and returns
// the server message, which names the violated key.
func duplicateKey(err error) (string, bool) {
	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) && mysqlErr.Number == mysqlDuplicateEntry {
		return mysqlErr.Message, true
	}
	return "", false
}

// userConflict maps a duplicate entry on the users table to a sentinel error.
func userConflict(err error) error {
	msg, ok := duplicateKey(err)
	if !ok {
		return err
	}
	// MySQL 8 reports "for key 'users.users_email'", 5.7 "for key 'users_email'".
	if strings.HasSuffix(msg, "users_email'") {
		return ErrDuplicateEmail
	}
	return ErrDuplicateUsername
}
