package grabber

import "errors"

// Sentinel errors for common error conditions.
var (
	// ErrNoDevice is returned when no capture device matches the request.
	ErrNoDevice = errors.New("grabber: no device available")

	// ErrClosed is returned when operating on a closed grabber.
	ErrClosed = errors.New("grabber: device closed")

	// ErrBadThreshold is returned for confidence values outside [0,15].
	ErrBadThreshold = errors.New("grabber: confidence threshold out of range")

	// ErrBadWindow is returned for temporal window sizes below 1.
	ErrBadWindow = errors.New("grabber: temporal window must be at least 1")
)
