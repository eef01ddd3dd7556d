package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrConfiguration is reported before any connect attempt.
	ErrConfiguration   = errors.New("configuration error")
	ErrIndexOutOfRange = fmt.Errorf("%w: credential index out of range", ErrConfiguration)

	ErrInvalidState = errors.New("invalid slot state")

	ErrConnectFailure   = errors.New("connect failure")
	ErrPublishFailure   = errors.New("publish failure")
	ErrSubscribeFailure = errors.New("subscribe failure")

	// ErrResolutionMiss marks an event whose handle matches no owned slot.
	ErrResolutionMiss = errors.New("owning slot not found")
)
