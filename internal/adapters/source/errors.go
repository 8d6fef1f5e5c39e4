package source

import "github.com/pkg/errors"

// Sentinel kinds for dataset access.
var (
	ErrEmptyLocation = errors.New("empty dataset location")
	ErrDownload      = errors.New("download dataset")
	ErrOpen          = errors.New("open dataset")
)
