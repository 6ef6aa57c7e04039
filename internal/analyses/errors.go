package analyses

import "errors"

var (
	// ErrMissingInput is returned when a required request field is absent
	// or mediaType is not video or photo.
	ErrMissingInput = errors.New("missing required input")
	// ErrAnalysisFailed wraps any failure after validation. Nothing is
	// persisted when it is returned.
	ErrAnalysisFailed = errors.New("analysis failed")
	ErrNotFound       = errors.New("not found")
)
