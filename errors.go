package sparsebit

import "errors"

var (
	// ErrInvalidSnapshot is returned when snapshot data cannot be decoded.
	ErrInvalidSnapshot = errors.New("invalid snapshot")

	// ErrUnknownCompression is returned when a snapshot declares a
	// compression type this library does not know.
	ErrUnknownCompression = errors.New("unknown compression type")
)
