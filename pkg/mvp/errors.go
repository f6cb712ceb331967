package mvp

import "errors"

// ErrVantagePointExists indicates insert_vantage_point was called with a
// value that already names an existing vantage point. Callers may treat
// this as idempotent.
var ErrVantagePointExists = errors.New("mvp: vantage point already exists")

// ErrEmptyIndex indicates find_vantage_point was called against an index
// with zero points.
var ErrEmptyIndex = errors.New("mvp: index has no points")

// ErrInvalidShell indicates a distance function returned a value that maps
// outside shells {0,1,2,3}, or stored boundaries are corrupted.
var ErrInvalidShell = errors.New("mvp: invalid shell")

// ErrCapacity indicates a 33rd vantage point was attempted; the two-bit
// partition codec supports at most 32.
var ErrCapacity = errors.New("mvp: vantage point capacity exceeded")

// ErrPointNotFound indicates PointValue was called with an id that does not
// name an existing point.
var ErrPointNotFound = errors.New("mvp: point not found")
