package internalerr

import "errors"

// Sentinel errors for common cases
var (
	ErrNotFound           = errors.New("not found")
	ErrInvalidInput       = errors.New("invalid input")
	ErrMalformedRow       = errors.New("malformed row")
	ErrInvalidIndex       = errors.New("invalid index")
	ErrUnsupportedVersion = errors.New("unsupported index version")
	ErrChecksumMismatch   = errors.New("index checksum mismatch")
	ErrInvalidConfig      = errors.New("invalid configuration")
)
