package order

import (
	"errors"
	"fmt"
)

// Error kinds returned by the order service. Callers match them with
// errors.Is; the refined errors below wrap one of these.
var (
	ErrNotFound            = errors.New("not found")
	ErrInvalidState        = errors.New("invalid state")
	ErrPolicyLimitExceeded = errors.New("policy limit exceeded")
	ErrBanned              = errors.New("account banned")
	ErrValidation          = errors.New("validation error")
)

var (
	ErrAlreadyTerminal = fmt.Errorf("%w: order is already closed", ErrInvalidState)
	ErrLimitExhausted  = fmt.Errorf("%w: extension limit exhausted", ErrPolicyLimitExceeded)
	ErrAlreadyLapsed   = fmt.Errorf("%w: reservation already lapsed", ErrPolicyLimitExceeded)

	ErrNoCityChosen = errors.New("no city chosen")
	ErrCityMismatch = errors.New("product is not sold in the chosen city")
)

// IsDomainError reports whether err is a business outcome rather than a
// storage failure.
func IsDomainError(err error) bool {
	for _, kind := range []error{
		ErrNotFound, ErrInvalidState, ErrPolicyLimitExceeded, ErrBanned,
		ErrValidation, ErrNoCityChosen, ErrCityMismatch,
	} {
		if errors.Is(err, kind) {
			return true
		}
	}
	return false
}
