// Package errdefs defines the error taxonomy shared by the roadnet engine.
//
// Callers classify failures with errors.Is against the sentinels below; the
// engine wraps them with contextual detail via fmt.Errorf("%w: ...").
package errdefs

import "errors"

var (
	// ErrInvalidArgument indicates a caller-supplied parameter that cannot be
	// used: a non-positive tolerance or target length, or geometry with fewer
	// than two points.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrNotFound indicates a segment id referenced by a traversal that does
	// not exist in the candidate set.
	ErrNotFound = errors.New("not found")

	// ErrLimitExceeded indicates a configured fetch bound was hit: the
	// candidate-road cap or the pagination cap.
	ErrLimitExceeded = errors.New("limit exceeded")

	// ErrUpstreamFetch indicates the external road-fetch collaborator failed.
	// The engine never retries; the wrapped cause is preserved.
	ErrUpstreamFetch = errors.New("upstream fetch failed")

	// ErrDecode indicates a geometry string that matches neither the encoded
	// polyline format nor the JSON coordinate array format.
	ErrDecode = errors.New("geometry decode failed")
)
