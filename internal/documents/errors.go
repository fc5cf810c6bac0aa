package documents

import "errors"

var (
	ErrNotFound = errors.New("document not found")
	// ErrConflict means a status guard did not match the stored row; the
	// attempted transition loses the race and must not be retried blindly.
	ErrConflict = errors.New("document status conflict")
)
