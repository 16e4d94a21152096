package workflow

import "errors"

var (
	ErrIncorrectCode      = errors.New("incorrect confirmation code")
	ErrTokenNotFound      = errors.New("confirmation token not found")
	ErrAlreadyVerified    = errors.New("record already verified")
	ErrNotificationFailed = errors.New("notification could not be sent")
	ErrFinalizeInProgress = errors.New("finalization already in progress for record")
)

// ValidationError reports a form input the user must correct. Nothing has
// been written when it is returned.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}
