// Package output writes simplified boundaries to disk.
package output

import (
	"bufio"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-json"
	"github.com/okian/geosimplify/internal/domain/geometry"
	"github.com/okian/geosimplify/internal/domain/topology"
	"github.com/pkg/errors"
)

// Format is an output encoding.
type Format string

// Supported formats.
const (
	TopoJSON Format = "topojson"
	GeoJSON  Format = "geojson"
)

// ParseFormat accepts a format name in any case.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case TopoJSON, GeoJSON:
		return f, nil
	default:
		return "", errors.Wrapf(ErrUnknownFormat, "%q", s)
	}
}

// Encode writes topo to w in the given format.
func Encode(w io.Writer, format Format, topo *topology.Topology) error {
	if topo == nil {
		return ErrNilTopology
	}
	switch format {
	case TopoJSON:
		return json.NewEncoder(w).Encode(topo)
	case GeoJSON:
		return geometry.Encode(w, topo.Features())
	default:
		return errors.Wrapf(ErrUnknownFormat, "%q", format)
	}
}

// Write encodes topo into path. The file is written next to its target and
// renamed into place, so readers never see a partial document. An empty
// path writes nothing.
func Write(ctx context.Context, path string, format Format, topo *topology.Topology) error {
	if path == "" {
		return nil
	}
	if topo == nil {
		return ErrNilTopology
	}
	if _, err := ParseFormat(string(format)); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return errors.Wrap(ErrWrite, err.Error())
	}
	committed := false
	defer func() {
		if !committed {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	bw := bufio.NewWriter(tmp)
	if err := Encode(bw, format, topo); err != nil {
		return errors.Wrapf(ErrWrite, "encode %s: %v", format, err)
	}
	if err := bw.Flush(); err != nil {
		return errors.Wrap(ErrWrite, err.Error())
	}
	if err := tmp.Sync(); err != nil {
		return errors.Wrap(ErrWrite, err.Error())
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(ErrWrite, err.Error())
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return errors.Wrap(ErrWrite, err.Error())
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return errors.Wrap(ErrWrite, err.Error())
	}
	committed = true
	return nil
}
