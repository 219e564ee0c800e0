package service

import (
	"errors"
	"fmt"
)

// Error taxonomy. Every error a service returns on purpose wraps one of these,
// so callers classify with errors.Is.
var (
	ErrNotFound   = errors.New("not found")
	ErrConflict   = errors.New("conflict")
	ErrValidation = errors.New("validation failed")
)

var (
	ErrSessionNotFound = fmt.Errorf("%w: session", ErrNotFound)
	ErrBankNotFound    = fmt.Errorf("%w: question bank", ErrNotFound)
	ErrBankExhausted   = fmt.Errorf("%w: question bank has no questions left", ErrNotFound)

	ErrSessionCompleted   = fmt.Errorf("%w: session already completed", ErrConflict)
	ErrStaleQuestion      = fmt.Errorf("%w: question is not the outstanding question", ErrConflict)
	ErrSubmissionInFlight = fmt.Errorf("%w: another submission for this session is in progress", ErrConflict)
	ErrSessionChanged     = fmt.Errorf("%w: session changed during submission", ErrConflict)

	ErrAnswerTypeMismatch = fmt.Errorf("%w: selected option is only valid for multiple choice questions", ErrValidation)
	ErrOptionOutOfRange   = fmt.Errorf("%w: selected option is out of range", ErrValidation)
	ErrInvalidTimeSpent   = fmt.Errorf("%w: time spent must be a non-negative number", ErrValidation)
)
