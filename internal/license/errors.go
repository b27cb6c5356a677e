package license

import "errors"

// Sentinel errors for the expected validation outcomes. Anything else
// returned by the registry is an unexpected store or serialization
// failure and is mapped to an opaque 500 at the transport boundary.
var (
	ErrInvalidFormat = errors.New("invalid license key format")
	ErrNotFound      = errors.New("license not found")
	ErrExpired       = errors.New("license expired")
	ErrDeviceLimit   = errors.New("too many devices linked")
)
