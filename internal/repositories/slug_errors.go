package repositories

import "fmt"

// SlugErrorCode enumerates failure reasons for slug reservation operations.
type SlugErrorCode string

const (
	// SlugErrorUnknown represents an unspecified failure.
	SlugErrorUnknown SlugErrorCode = "slug_unknown"
	// SlugErrorOwnedByOther indicates the reservation belongs to another user.
	SlugErrorOwnedByOther SlugErrorCode = "slug_owned_by_other"
)

// SlugError wraps slug-specific failures with machine readable codes.
type SlugError struct {
	Op      string
	Code    SlugErrorCode
	Message string
	Err     error
}

// Error implements the error interface.
func (e *SlugError) Error() string {
	if e == nil {
		return ""
	}
	if e.Op != "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}
	return e.Message
}

// Unwrap exposes the underlying error, if any.
func (e *SlugError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// IsConflict marks ownership clashes as conflicts for the service layer.
func (e *SlugError) IsConflict() bool {
	return e != nil && e.Code == SlugErrorOwnedByOther
}

// IsNotFound implements RepositoryError.
func (e *SlugError) IsNotFound() bool { return false }

// IsUnavailable implements RepositoryError.
func (e *SlugError) IsUnavailable() bool { return false }

// NewSlugError constructs a typed slug error.
func NewSlugError(code SlugErrorCode, message string, err error) *SlugError {
	if message == "" {
		message = string(code)
	}
	return &SlugError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}
