package geoboundaries

import "github.com/pkg/errors"

// Sentinel kinds for metadata lookups.
var (
	ErrInvalidQuery       = errors.New("invalid boundary query")
	ErrUnexpectedStatus   = errors.New("unexpected metadata status")
	ErrDecodeMetadata     = errors.New("decode boundary metadata")
	ErrMissingDownloadURL = errors.New("metadata has no geojson download url")
)
