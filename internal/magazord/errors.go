package magazord

import "errors"

// Error kinds for the fetch/aggregate pipeline. Callers branch on these
// with errors.Is — never on message text.
var (
	// ErrNotFound means the entity does not exist upstream. Terminal for
	// that record; never retried.
	ErrNotFound = errors.New("record not found upstream")

	// ErrInvalidState means the entity exists but fails a business
	// precondition (e.g. a cart that never reached checkout).
	ErrInvalidState = errors.New("record in unexpected state")

	// ErrMissingLink means an expected foreign key is absent.
	ErrMissingLink = errors.New("expected record reference missing")

	// ErrContactMissing means the person has neither email nor phone.
	// Orchestration treats this as skip-and-continue, not a failure.
	ErrContactMissing = errors.New("person has no email or phone")

	// ErrValidation means a structural data defect caught by the validator.
	ErrValidation = errors.New("record failed validation")
)
