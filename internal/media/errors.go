package media

import "errors"

var (
	ErrUnsupportedType = errors.New("unsupported media type")
	ErrFileTooLarge    = errors.New("file too large")
	ErrInvalidInput    = errors.New("invalid input")
	ErrForbiddenPath   = errors.New("path outside caller namespace")
	ErrNotFound        = errors.New("media not found")
	ErrExists          = errors.New("media already exists")
)
