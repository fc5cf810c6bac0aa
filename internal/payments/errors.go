package payments

import "errors"

var (
	ErrNotFound = errors.New("payment not found")
	// ErrDuplicateIntent means a payment row already exists for the intent
	// reference; callers must reconcile against it instead of inserting.
	ErrDuplicateIntent = errors.New("payment intent already recorded")
)
