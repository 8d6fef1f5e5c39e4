// Package topology converts a geometry table into a topology of shared
// arcs and simplifies it without breaking the boundaries neighbouring
// polygons have in common.
//
// Arcs are stored with absolute coordinates. When the topology is
// quantized the coordinates are integral grid positions and Transform maps
// them back to the input space.
package topology

import (
	"github.com/okian/geosimplify/internal/domain/geometry"
)

// DefaultName is the object collection name used in TopoJSON output.
const DefaultName = "boundaries"

// Transform maps quantized positions back to input coordinates:
// x = qx*Scale[0] + Translate[0], y = qy*Scale[1] + Translate[1].
type Transform struct {
	Scale     [2]float64
	Translate [2]float64
}

// Apply dequantizes p.
func (t Transform) Apply(p geometry.Point) geometry.Point {
	return geometry.Point{
		X: p.X*t.Scale[0] + t.Translate[0],
		Y: p.Y*t.Scale[1] + t.Translate[1],
	}
}

// ArcRef references an arc. Non-negative values index Topology.Arcs
// directly; a negative value r refers to arc ^r traversed backwards.
type ArcRef int

// Index returns the referenced arc index.
func (r ArcRef) Index() int {
	if r < 0 {
		return int(^r)
	}
	return int(r)
}

// Reversed reports whether the arc is traversed backwards.
func (r ArcRef) Reversed() bool { return r < 0 }

// Object is a feature whose rings are expressed as arc references:
// Polygons[polygon][ring] is the list of arcs forming that ring.
type Object struct {
	ID         string
	Properties map[string]any
	Polygons   [][][]ArcRef
}

// Topology is a set of shared arcs plus the objects that reference them.
type Topology struct {
	Name string
	// BBox is the bounding box in input coordinates.
	BBox geometry.Bounds
	// Transform is nil when the topology is not quantized.
	Transform *Transform
	Arcs      [][]geometry.Point
	Objects   []Object
}

// Stats summarizes a topology.
type Stats struct {
	Objects    int
	Rings      int
	Arcs       int
	SharedArcs int
	Vertices   int
}

// Stats counts objects, rings, arcs and vertices. An arc is shared when
// more than one ring references it.
func (t *Topology) Stats() Stats {
	s := Stats{Objects: len(t.Objects), Arcs: len(t.Arcs)}
	refs := make([]int, len(t.Arcs))
	for _, o := range t.Objects {
		for _, p := range o.Polygons {
			for _, ring := range p {
				s.Rings++
				for _, r := range ring {
					refs[r.Index()]++
				}
			}
		}
	}
	for i, a := range t.Arcs {
		s.Vertices += len(a)
		if refs[i] > 1 {
			s.SharedArcs++
		}
	}
	return s
}

// Point returns arc vertex p in input coordinates.
func (t *Topology) Point(p geometry.Point) geometry.Point {
	if t.Transform == nil {
		return p
	}
	return t.Transform.Apply(p)
}

// Ring stitches the arcs of a ring into a closed ring in input coordinates.
func (t *Topology) Ring(refs []ArcRef) geometry.Ring {
	var ring geometry.Ring
	for k, r := range refs {
		arc := t.Arcs[r.Index()]
		for j := range arc {
			i := j
			if r.Reversed() {
				i = len(arc) - 1 - j
			}
			if k > 0 && j == 0 {
				continue
			}
			ring = append(ring, t.Point(arc[i]))
		}
	}
	return ring
}

// Features rebuilds the geometry table the topology describes.
func (t *Topology) Features() *geometry.Table {
	table := &geometry.Table{Features: make([]geometry.Feature, len(t.Objects))}
	for i, o := range t.Objects {
		f := geometry.Feature{ID: o.ID, Properties: o.Properties}
		for _, p := range o.Polygons {
			poly := make(geometry.Polygon, 0, len(p))
			for _, refs := range p {
				poly = append(poly, t.Ring(refs))
			}
			f.Polygons = append(f.Polygons, poly)
		}
		table.Features[i] = f
	}
	return table
}
