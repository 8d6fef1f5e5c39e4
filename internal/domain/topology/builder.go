package topology

import (
	"encoding/binary"
	"math"
	"strings"

	"github.com/okian/geosimplify/internal/domain/geometry"
)

type builder struct {
	quantization int
	name         string

	transform *Transform
	bbox      geometry.Bounds

	arcs   [][]geometry.Point
	lookup map[string]int
}

type ringRef struct {
	feature, polygon, ring int
}

// neighbours is the pair of points adjacent to a ring vertex.
type neighbours struct {
	prev, next geometry.Point
}

// New builds a topology from t. Rings are cut at junctions (vertices
// where rings stop running alongside each other) and identical arcs,
// in either direction, are stored once.
func New(t *geometry.Table, opts ...Option) (*Topology, error) {
	if t == nil {
		return nil, ErrNilTable
	}
	b := &builder{name: DefaultName, lookup: make(map[string]int)}
	for _, opt := range opts {
		opt(b)
	}

	b.bbox = t.Bounds()
	if b.quantization > 1 && !b.bbox.Empty() {
		b.transform = quantizeTransform(b.bbox, b.quantization)
	}

	var (
		rings []geometry.Ring
		refs  []ringRef
	)
	for fi, f := range t.Features {
		for pi, p := range f.Polygons {
			for ri, r := range p {
				rings = append(rings, b.prepare(r))
				refs = append(refs, ringRef{feature: fi, polygon: pi, ring: ri})
			}
		}
	}

	junctions := findJunctions(rings)

	objects := make([]Object, len(t.Features))
	for fi, f := range t.Features {
		objects[fi] = Object{ID: f.ID, Properties: f.Properties, Polygons: make([][][]ArcRef, len(f.Polygons))}
		for pi, p := range f.Polygons {
			objects[fi].Polygons[pi] = make([][]ArcRef, len(p))
		}
	}
	for i, r := range rings {
		ref := refs[i]
		objects[ref.feature].Polygons[ref.polygon][ref.ring] = b.cut(r, junctions)
	}

	bbox := b.bbox
	if bbox.Empty() {
		bbox = geometry.Bounds{}
	}
	return &Topology{
		Name:      b.name,
		BBox:      bbox,
		Transform: b.transform,
		Arcs:      b.arcs,
		Objects:   objects,
	}, nil
}

func quantizeTransform(bb geometry.Bounds, q int) *Transform {
	kx, ky := 1.0, 1.0
	if dx := bb.Max.X - bb.Min.X; dx > 0 {
		kx = float64(q-1) / dx
	}
	if dy := bb.Max.Y - bb.Min.Y; dy > 0 {
		ky = float64(q-1) / dy
	}
	return &Transform{
		Scale:     [2]float64{1 / kx, 1 / ky},
		Translate: [2]float64{bb.Min.X, bb.Min.Y},
	}
}

// prepare quantizes a ring, drops consecutive duplicates and closes it.
func (b *builder) prepare(r geometry.Ring) geometry.Ring {
	out := make(geometry.Ring, 0, len(r)+1)
	for _, p := range r {
		if b.transform != nil {
			p = geometry.Point{
				X: math.Round((p.X - b.transform.Translate[0]) / b.transform.Scale[0]),
				Y: math.Round((p.Y - b.transform.Translate[1]) / b.transform.Scale[1]),
			}
		}
		if len(out) > 0 && out[len(out)-1] == p {
			continue
		}
		out = append(out, p)
	}
	if len(out) > 0 && !out.Closed() {
		out = append(out, out[0])
	}
	return out
}

// findJunctions marks every vertex that is reached with different
// neighbours by two ring passes. Passing a vertex the other way round
// with the same neighbours does not make it a junction.
func findJunctions(rings []geometry.Ring) map[geometry.Point]bool {
	seen := make(map[geometry.Point]neighbours)
	junctions := make(map[geometry.Point]bool)
	for _, r := range rings {
		m := len(r) - 1
		if m < 1 {
			continue
		}
		for i := 0; i < m; i++ {
			p := r[i]
			n := neighbours{prev: r[(i-1+m)%m], next: r[i+1]}
			s, ok := seen[p]
			if !ok {
				seen[p] = n
				continue
			}
			if s != n && (s.prev != n.next || s.next != n.prev) {
				junctions[p] = true
			}
		}
	}
	return junctions
}

// cut splits a prepared ring into arcs at its junctions and returns the
// references to the deduplicated arcs.
func (b *builder) cut(r geometry.Ring, junctions map[geometry.Point]bool) []ArcRef {
	m := len(r) - 1
	if m < 1 {
		if len(r) == 0 {
			return nil
		}
		return []ArcRef{b.closedArc(r)}
	}

	start := -1
	for i := 0; i < m; i++ {
		if junctions[r[i]] {
			start = i
			break
		}
	}
	if start < 0 {
		return []ArcRef{b.closedArc(r)}
	}

	rotated := make(geometry.Ring, 0, m+1)
	rotated = append(rotated, r[start:m]...)
	rotated = append(rotated, r[:start]...)
	rotated = append(rotated, rotated[0])

	var refs []ArcRef
	from := 0
	for i := 1; i <= m; i++ {
		if i == m || junctions[rotated[i]] {
			refs = append(refs, b.openArc(rotated[from:i+1]))
			from = i
		}
	}
	return refs
}

// openArc stores an arc between two junctions, reusing an identical or
// reversed arc when one exists.
func (b *builder) openArc(arc []geometry.Point) ArcRef {
	if i, ok := b.lookup[arcKey(arc)]; ok {
		return ArcRef(i)
	}
	rev := reversed(arc)
	if i, ok := b.lookup[arcKey(rev)]; ok {
		return ArcRef(^i)
	}
	return b.store(append([]geometry.Point(nil), arc...))
}

// closedArc stores a ring without junctions. Rings are compared after
// rotating them to start at their smallest vertex, so the same ring found
// with another start or direction maps to the same arc.
func (b *builder) closedArc(r geometry.Ring) ArcRef {
	fwd := rotateToMin(r)
	if i, ok := b.lookup[arcKey(fwd)]; ok {
		return ArcRef(i)
	}
	if i, ok := b.lookup[arcKey(rotateToMin(reversed(r)))]; ok {
		return ArcRef(^i)
	}
	return b.store(fwd)
}

func (b *builder) store(arc []geometry.Point) ArcRef {
	i := len(b.arcs)
	b.arcs = append(b.arcs, arc)
	b.lookup[arcKey(arc)] = i
	return ArcRef(i)
}

func rotateToMin(r []geometry.Point) []geometry.Point {
	m := len(r) - 1
	if m < 1 {
		return append([]geometry.Point(nil), r...)
	}
	lo := 0
	for i := 1; i < m; i++ {
		if less(r[i], r[lo]) {
			lo = i
		}
	}
	out := make([]geometry.Point, 0, m+1)
	out = append(out, r[lo:m]...)
	out = append(out, r[:lo]...)
	return append(out, out[0])
}

func less(a, b geometry.Point) bool {
	if a.X != b.X {
		return a.X < b.X
	}
	return a.Y < b.Y
}

func reversed(arc []geometry.Point) []geometry.Point {
	out := make([]geometry.Point, len(arc))
	for i, p := range arc {
		out[len(arc)-1-i] = p
	}
	return out
}

func arcKey(arc []geometry.Point) string {
	var sb strings.Builder
	sb.Grow(len(arc) * 16)
	var buf [16]byte
	for _, p := range arc {
		// +0 folds -0 into 0 so that equal points share a key.
		binary.LittleEndian.PutUint64(buf[:8], math.Float64bits(p.X+0))
		binary.LittleEndian.PutUint64(buf[8:], math.Float64bits(p.Y+0))
		sb.Write(buf[:])
	}
	return sb.String()
}
