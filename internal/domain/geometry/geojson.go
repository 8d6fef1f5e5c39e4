package geometry

import (
	"io"

	"github.com/goccy/go-json"
	"github.com/pkg/errors"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"
)

// Decode reads a GeoJSON FeatureCollection into a Table. Polygon and
// MultiPolygon geometries are supported; null geometries produce a feature
// without polygons. Unclosed rings are closed.
func Decode(r io.Reader) (*Table, error) {
	var fc geojson.FeatureCollection
	if err := json.NewDecoder(r).Decode(&fc); err != nil {
		return nil, errors.Wrapf(ErrDecode, "%v", err)
	}

	t := &Table{Features: make([]Feature, 0, len(fc.Features))}
	for i, gf := range fc.Features {
		if gf == nil {
			continue
		}
		polys, err := polygonsOf(gf.Geometry)
		if err != nil {
			return nil, errors.Wrapf(err, "feature %d", i)
		}
		t.Features = append(t.Features, Feature{
			ID:         gf.ID,
			Properties: gf.Properties,
			Polygons:   polys,
		})
	}
	return t, nil
}

func polygonsOf(g geom.T) ([]Polygon, error) {
	switch g := g.(type) {
	case nil:
		return nil, nil
	case *geom.Polygon:
		return []Polygon{polygonFromCoords(g.Coords())}, nil
	case *geom.MultiPolygon:
		coords := g.Coords()
		polys := make([]Polygon, 0, len(coords))
		for _, pc := range coords {
			polys = append(polys, polygonFromCoords(pc))
		}
		return polys, nil
	default:
		return nil, errors.Wrapf(ErrUnsupportedGeometry, "%T", g)
	}
}

func polygonFromCoords(coords [][]geom.Coord) Polygon {
	poly := make(Polygon, 0, len(coords))
	for _, rc := range coords {
		if len(rc) == 0 {
			continue
		}
		ring := make(Ring, 0, len(rc)+1)
		for _, c := range rc {
			ring = append(ring, Point{X: c.X(), Y: c.Y()})
		}
		if !ring.Closed() {
			ring = append(ring, ring[0])
		}
		poly = append(poly, ring)
	}
	return poly
}

type featureCollectionJSON struct {
	Type     string        `json:"type"`
	Features []featureJSON `json:"features"`
}

type featureJSON struct {
	Type       string            `json:"type"`
	ID         string            `json:"id,omitempty"`
	Properties map[string]any    `json:"properties"`
	Geometry   *geojson.Geometry `json:"geometry"`
}

// Encode writes t as a GeoJSON FeatureCollection. A feature with one
// polygon is written as a Polygon, several as a MultiPolygon.
func Encode(w io.Writer, t *Table) error {
	out := featureCollectionJSON{Type: "FeatureCollection", Features: make([]featureJSON, 0, len(t.Features))}
	for i, f := range t.Features {
		g, err := geometryOf(f.Polygons)
		if err != nil {
			return errors.Wrapf(ErrEncode, "feature %d: %v", i, err)
		}
		var gj *geojson.Geometry
		if g != nil {
			if gj, err = geojson.Encode(g); err != nil {
				return errors.Wrapf(ErrEncode, "feature %d: %v", i, err)
			}
		}
		props := f.Properties
		if props == nil {
			props = map[string]any{}
		}
		out.Features = append(out.Features, featureJSON{Type: "Feature", ID: f.ID, Properties: props, Geometry: gj})
	}
	if err := json.NewEncoder(w).Encode(out); err != nil {
		return errors.Wrapf(ErrEncode, "%v", err)
	}
	return nil
}

func geometryOf(polys []Polygon) (geom.T, error) {
	switch len(polys) {
	case 0:
		return nil, nil
	case 1:
		return geom.NewPolygon(geom.XY).SetCoords(coordsOf(polys[0]))
	default:
		coords := make([][][]geom.Coord, len(polys))
		for i, p := range polys {
			coords[i] = coordsOf(p)
		}
		return geom.NewMultiPolygon(geom.XY).SetCoords(coords)
	}
}

func coordsOf(p Polygon) [][]geom.Coord {
	coords := make([][]geom.Coord, len(p))
	for i, r := range p {
		rc := make([]geom.Coord, len(r))
		for j, pt := range r {
			rc[j] = geom.Coord{pt.X, pt.Y}
		}
		coords[i] = rc
	}
	return coords
}
