package service

import (
	"errors"
	"strings"
)

// ValidationError carries every problem found in a submitted form, in the
// order the fields were checked.
type ValidationError struct {
	Messages []string
}

func (e *ValidationError) Error() string {
	return strings.Join(e.Messages, "; ")
}

// Messages returns the user-facing messages of a ValidationError anywhere in
// err's chain, or nil.
func Messages(err error) []string {
	var verr *ValidationError
	if errors.As(err, &verr) {
		return verr.Messages
	}
	return nil
}

func invalid(msg string) *ValidationError {
	return &ValidationError{Messages: []string{msg}}
}

// problems collects validation messages.
type problems []string

func (p *problems) add(msg string) {
	*p = append(*p, msg)
}

func (p problems) err() error {
	if len(p) == 0 {
		return nil
	}
	return &ValidationError{Messages: []string(p)}
}
