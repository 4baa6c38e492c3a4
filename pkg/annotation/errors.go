package annotation

import "errors"

// Sentinel errors for the non-fatal skip conditions in the pipeline.
// Callers match them with errors.Is, count the skip and continue; only
// manifest I/O failures (plain wrapped errors from the writer) abort a run.
var (
	// ErrImageUnavailable means a source image could not be resolved or
	// decoded; all regions of that image are skipped.
	ErrImageUnavailable = errors.New("source image unavailable")

	// ErrInvalidAnnotation means a region is structurally unusable
	// (missing label, fewer than 3 polygon points).
	ErrInvalidAnnotation = errors.New("invalid annotation")

	// ErrDegenerateRegion means a region's polygon has no usable area
	// after normalization to pixel space.
	ErrDegenerateRegion = errors.New("degenerate region")
)
