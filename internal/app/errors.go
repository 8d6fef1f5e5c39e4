package service

import "github.com/pkg/errors"

// Step sentinels. Run wraps the failing step's error with one of these, so
// callers can tell which precondition was missing.
var (
	ErrFetchMetadata = errors.New("fetch boundary metadata")
	ErrLoadGeometry  = errors.New("load boundary geometry")
	ErrBuildTopology = errors.New("build topology")
	ErrSimplify      = errors.New("simplify topology")
)
