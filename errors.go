package omr

import (
	"github.com/omrscan/omr/internal/grading"
	"github.com/omrscan/omr/internal/imaging"
)

// ImageLoadError reports a sheet image that could not be read, decoded, or
// that has zero area. It is fatal: no partial detection result exists.
// Match with errors.As:
//
//	var loadErr *omr.ImageLoadError
//	if errors.As(err, &loadErr) { ... }
type ImageLoadError = imaging.LoadError

// ErrEmptyAnswerKey is returned by evaluation when the answer key has no
// entries. Detection-only calls never return it.
var ErrEmptyAnswerKey = grading.ErrEmptyAnswerKey
