package ops

import "errors"

var (
	// ErrUnknownOperation is returned by Build for an unregistered name.
	ErrUnknownOperation = errors.New("unknown operation")

	// ErrInvalidParameter is wrapped by every parameter validation failure.
	ErrInvalidParameter = errors.New("invalid parameter")

	// ErrRegionOutOfBounds is returned when a region does not fit the image
	// a command runs on.
	ErrRegionOutOfBounds = errors.New("region outside image bounds")
)
