package delivery

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound  = errors.New("notification not found")
	ErrForbidden = errors.New("notification belongs to another user")
)

// RecipientError isolates one recipient's persistence failure inside a
// project fan-out. Sibling recipients are unaffected.
type RecipientError struct {
	UserId int64
	Err    error
}

func (e RecipientError) Error() string {
	return fmt.Sprintf("delivery to user %d failed: %v", e.UserId, e.Err)
}

func (e RecipientError) Unwrap() error {
	return e.Err
}
