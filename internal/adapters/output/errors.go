package output

import "github.com/pkg/errors"

// Sentinel kinds for writing results.
var (
	ErrUnknownFormat = errors.New("unknown output format")
	ErrNilTopology   = errors.New("nothing to write")
	ErrWrite         = errors.New("write output")
)
