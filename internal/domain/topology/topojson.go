package topology

import (
	"github.com/goccy/go-json"
	"github.com/okian/geosimplify/internal/domain/geometry"
)

type topologyJSON struct {
	Type      string                `json:"type"`
	BBox      [4]float64            `json:"bbox"`
	Transform *transformJSON        `json:"transform,omitempty"`
	Objects   map[string]collection `json:"objects"`
	Arcs      [][][2]float64        `json:"arcs"`
}

type transformJSON struct {
	Scale     [2]float64 `json:"scale"`
	Translate [2]float64 `json:"translate"`
}

type collection struct {
	Type       string         `json:"type"`
	Geometries []geometryJSON `json:"geometries"`
}

type geometryJSON struct {
	// Type is null for features without geometry.
	Type       *string        `json:"type"`
	ID         string         `json:"id,omitempty"`
	Properties map[string]any `json:"properties,omitempty"`
	Arcs       any            `json:"arcs,omitempty"`
}

// MarshalJSON encodes the topology as a TopoJSON document with a single
// GeometryCollection named t.Name. Quantized arcs are delta-encoded.
func (t *Topology) MarshalJSON() ([]byte, error) {
	name := t.Name
	if name == "" {
		name = DefaultName
	}

	doc := topologyJSON{
		Type: "Topology",
		BBox: [4]float64{t.BBox.Min.X, t.BBox.Min.Y, t.BBox.Max.X, t.BBox.Max.Y},
		Arcs: make([][][2]float64, len(t.Arcs)),
	}
	if t.Transform != nil {
		doc.Transform = &transformJSON{Scale: t.Transform.Scale, Translate: t.Transform.Translate}
	}
	for i, arc := range t.Arcs {
		doc.Arcs[i] = encodeArc(arc, t.Transform != nil)
	}

	geoms := make([]geometryJSON, len(t.Objects))
	for i, o := range t.Objects {
		g := geometryJSON{ID: o.ID, Properties: o.Properties}
		switch len(o.Polygons) {
		case 0:
		case 1:
			typ := "Polygon"
			g.Type, g.Arcs = &typ, indices(o.Polygons[0])
		default:
			typ := "MultiPolygon"
			polys := make([][][]int, len(o.Polygons))
			for j, p := range o.Polygons {
				polys[j] = indices(p)
			}
			g.Type, g.Arcs = &typ, polys
		}
		geoms[i] = g
	}
	doc.Objects = map[string]collection{name: {Type: "GeometryCollection", Geometries: geoms}}

	return json.Marshal(doc)
}

func encodeArc(arc []geometry.Point, delta bool) [][2]float64 {
	out := make([][2]float64, len(arc))
	var prev geometry.Point
	for i, p := range arc {
		if delta {
			out[i] = [2]float64{p.X - prev.X, p.Y - prev.Y}
			prev = p
			continue
		}
		out[i] = [2]float64{p.X, p.Y}
	}
	return out
}

func indices(rings [][]ArcRef) [][]int {
	out := make([][]int, len(rings))
	for i, refs := range rings {
		ring := make([]int, len(refs))
		for j, r := range refs {
			ring[j] = int(r)
		}
		out[i] = ring
	}
	return out
}
