package upload

import "errors"

var (
	ErrInvalidTickPeriod      = errors.New("tick period must be positive")
	ErrInvalidTickStep        = errors.New("tick step must be positive")
	ErrInvalidCompletionDelay = errors.New("completion delay must not be negative")
	ErrNoAuthorizer           = errors.New("authorizer is required")

	// ErrEmptyContent is reported when a read finishes without producing
	// encoded content.
	ErrEmptyContent = errors.New("read produced no content")
)
