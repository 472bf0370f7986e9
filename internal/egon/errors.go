package egon

import "errors"

var (
	// ErrUnauthorized is returned by GetCurrentState when the module rejects
	// the credentials or cannot be reached for authorization
	ErrUnauthorized = errors.New("egon: authorization failed")

	// ErrConfigurationUnavailable is returned when the element inventory
	// could not be fetched within the retry budget
	ErrConfigurationUnavailable = errors.New("egon: configuration unavailable")

	// ErrStateUnavailable is returned when a poll could not fetch element states
	ErrStateUnavailable = errors.New("egon: element state unavailable")

	// ErrDuplicateElement means the module listed the same element id twice
	ErrDuplicateElement = errors.New("egon: duplicate element id")
)
