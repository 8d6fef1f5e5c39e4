package topology

import (
	"math"
	"sort"

	"github.com/okian/geosimplify/internal/domain/geometry"
	"github.com/okian/geosimplify/internal/domain/simplify"
	"github.com/pkg/errors"
)

// Algorithm names a simplification algorithm.
type Algorithm string

// Supported algorithms.
const (
	// VisvalingamWhyatt drops vertices whose effective triangle area is below epsilon².
	VisvalingamWhyatt Algorithm = "vw"
	// DouglasPeucker drops vertices closer than epsilon to the simplified line.
	DouglasPeucker Algorithm = "dp"
)

// minRingVertices is the number of distinct vertices a ring keeps when
// oversimplification is prevented.
const minRingVertices = 3

type simplifier struct {
	algorithm           Algorithm
	preventOversimplify bool
}

// Simplify returns a simplified copy of t. Each arc is simplified once in
// input coordinates, so rings sharing an arc keep sharing it. epsilon is a
// length in input units. t is not modified.
func Simplify(t *Topology, epsilon float64, opts ...SimplifyOption) (*Topology, error) {
	s := &simplifier{algorithm: VisvalingamWhyatt, preventOversimplify: true}
	for _, opt := range opts {
		opt(s)
	}
	if t == nil {
		return nil, ErrNilTopology
	}
	if !(epsilon > 0) || math.IsInf(epsilon, 1) {
		return nil, errors.Wrapf(ErrInvalidTolerance, "epsilon %v", epsilon)
	}

	var (
		weigh     func([]geometry.Point) []float64
		threshold float64
	)
	switch s.algorithm {
	case VisvalingamWhyatt:
		weigh, threshold = simplify.Visvalingam, epsilon*epsilon
	case DouglasPeucker:
		weigh, threshold = simplify.DouglasPeucker, epsilon
	default:
		return nil, errors.Wrapf(ErrUnknownAlgorithm, "%q", s.algorithm)
	}

	weights := make([][]float64, len(t.Arcs))
	keep := make([][]bool, len(t.Arcs))
	for i, arc := range t.Arcs {
		pts := make([]geometry.Point, len(arc))
		for j, p := range arc {
			pts[j] = t.Point(p)
		}
		weights[i] = weigh(pts)
		keep[i] = make([]bool, len(arc))
		for _, j := range simplify.Keep(weights[i], threshold) {
			keep[i][j] = true
		}
	}

	if s.preventOversimplify {
		for _, o := range t.Objects {
			for _, p := range o.Polygons {
				for _, ring := range p {
					restoreRing(ring, weights, keep)
				}
			}
		}
	}

	arcs := make([][]geometry.Point, len(t.Arcs))
	for i, arc := range t.Arcs {
		out := make([]geometry.Point, 0, len(arc))
		for j, p := range arc {
			if keep[i][j] {
				out = append(out, p)
			}
		}
		arcs[i] = out
	}

	return &Topology{
		Name:      t.Name,
		BBox:      t.BBox,
		Transform: t.Transform,
		Arcs:      arcs,
		Objects:   t.Objects,
	}, nil
}

type candidate struct {
	arc, vertex int
	weight      float64
}

// restoreRing re-adds the heaviest dropped vertices of a ring until it has
// minRingVertices distinct vertices again, or as many as it had.
func restoreRing(ring []ArcRef, weights [][]float64, keep [][]bool) {
	have, had := 0, 0
	var dropped []candidate
	for _, r := range ring {
		i := r.Index()
		n := len(keep[i])
		if n == 0 {
			continue
		}
		had += n - 1
		for j, k := range keep[i] {
			if k {
				if j > 0 {
					have++
				}
				continue
			}
			dropped = append(dropped, candidate{arc: i, vertex: j, weight: weights[i][j]})
		}
	}

	want := minRingVertices
	if had < want {
		want = had
	}
	if have >= want {
		return
	}

	sort.SliceStable(dropped, func(a, b int) bool { return dropped[a].weight > dropped[b].weight })
	for _, c := range dropped {
		if have >= want {
			return
		}
		if keep[c.arc][c.vertex] {
			continue
		}
		keep[c.arc][c.vertex] = true
		have++
	}
}
