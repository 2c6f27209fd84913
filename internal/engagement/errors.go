package engagement

import "errors"

var (
	// ErrProfileNotFound is returned when an operation targets an unknown user.
	ErrProfileNotFound = errors.New("engagement profile not found")
	// ErrNoFreezeAvailable means the user has no freeze tokens left.
	ErrNoFreezeAvailable = errors.New("no streak freeze available")
	// ErrFreezeAlreadyUsed means a freeze was already consumed today.
	ErrFreezeAlreadyUsed = errors.New("streak freeze already used today")
)
