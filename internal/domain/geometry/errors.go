package geometry

import "github.com/pkg/errors"

// Sentinel kinds for geometry errors.
var (
	ErrDecode              = errors.New("decode geojson")
	ErrUnsupportedGeometry = errors.New("unsupported geometry type")
	ErrEncode              = errors.New("encode geojson")
)
