package topology

import "github.com/pkg/errors"

// Sentinel kinds for topology errors.
var (
	ErrNilTable         = errors.New("nil geometry table")
	ErrNilTopology      = errors.New("nil topology")
	ErrInvalidTolerance = errors.New("invalid simplification tolerance")
	ErrUnknownAlgorithm = errors.New("unknown simplification algorithm")
)
