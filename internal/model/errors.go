package model

import "errors"

// Error kinds. Components wrap concrete failures with one of these so callers
// can classify them with errors.Is.
var (
	// ErrConfiguration covers unknown exchanges, malformed correlation ids and
	// invalid settings. Fatal at startup or first occurrence.
	ErrConfiguration = errors.New("configuration error")

	// ErrTransientIO marks a sink that is temporarily unavailable. It is not
	// retried here.
	ErrTransientIO = errors.New("transient io error")

	// ErrDataFormat marks an event that is missing expected bid/ask elements
	// or carries unparsable values.
	ErrDataFormat = errors.New("data format error")
)
