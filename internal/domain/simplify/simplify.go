// Package simplify computes per-vertex significance weights for polylines.
//
// A weight says how large a tolerance must be before the vertex is dropped:
// filtering a line by "weight >= threshold" yields the simplified line.
// Endpoints always weigh +Inf. Weights never increase from a vertex to the
// vertices it makes removable, so filtering is monotone in the threshold.
package simplify

import (
	"container/heap"
	"math"

	"github.com/okian/geosimplify/internal/domain/geometry"
)

// Visvalingam returns Visvalingam-Whyatt effective areas.
func Visvalingam(pts []geometry.Point) []float64 {
	n := len(pts)
	w := make([]float64, n)
	for i := range w {
		w[i] = math.Inf(1)
	}
	if n < 3 {
		return w
	}

	prev := make([]int, n)
	next := make([]int, n)
	for i := range pts {
		prev[i] = i - 1
		next[i] = i + 1
	}

	h := make(areaHeap, 0, n-2)
	items := make([]*areaItem, n)
	for i := 1; i < n-1; i++ {
		it := &areaItem{vertex: i, area: triangleArea(pts[i-1], pts[i], pts[i+1]), index: len(h)}
		items[i] = it
		h = append(h, it)
	}
	heap.Init(&h)

	maxArea := 0.0
	for h.Len() > 0 {
		it := heap.Pop(&h).(*areaItem)
		if it.area < maxArea {
			it.area = maxArea
		} else {
			maxArea = it.area
		}
		w[it.vertex] = it.area

		p, nx := prev[it.vertex], next[it.vertex]
		next[p] = nx
		prev[nx] = p
		if p > 0 {
			items[p].area = triangleArea(pts[prev[p]], pts[p], pts[nx])
			heap.Fix(&h, items[p].index)
		}
		if nx < n-1 {
			items[nx].area = triangleArea(pts[p], pts[nx], pts[next[nx]])
			heap.Fix(&h, items[nx].index)
		}
	}
	return w
}

// DouglasPeucker returns Douglas-Peucker distances, capped by the distance
// of the vertex that split the enclosing segment.
func DouglasPeucker(pts []geometry.Point) []float64 {
	n := len(pts)
	w := make([]float64, n)
	for i := range w {
		w[i] = math.Inf(1)
	}
	if n < 3 {
		return w
	}

	type span struct {
		first, last int
		cap         float64
	}
	stack := []span{{first: 0, last: n - 1, cap: math.Inf(1)}}
	for len(stack) > 0 {
		s := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if s.last-s.first < 2 {
			continue
		}

		split, maxDist := s.first+1, -1.0
		for i := s.first + 1; i < s.last; i++ {
			if d := segmentDistance(pts[i], pts[s.first], pts[s.last]); d > maxDist {
				split, maxDist = i, d
			}
		}
		w[split] = math.Min(maxDist, s.cap)
		stack = append(stack,
			span{first: s.first, last: split, cap: w[split]},
			span{first: split, last: s.last, cap: w[split]},
		)
	}
	return w
}

// Keep returns the indices whose weight is at least threshold.
func Keep(weights []float64, threshold float64) []int {
	idx := make([]int, 0, len(weights))
	for i, w := range weights {
		if w >= threshold {
			idx = append(idx, i)
		}
	}
	return idx
}

func triangleArea(a, b, c geometry.Point) float64 {
	return math.Abs((b.X-a.X)*(c.Y-a.Y)-(c.X-a.X)*(b.Y-a.Y)) / 2
}

func segmentDistance(p, a, b geometry.Point) float64 {
	dx, dy := b.X-a.X, b.Y-a.Y
	if dx == 0 && dy == 0 {
		return math.Hypot(p.X-a.X, p.Y-a.Y)
	}
	t := ((p.X-a.X)*dx + (p.Y-a.Y)*dy) / (dx*dx + dy*dy)
	t = math.Max(0, math.Min(1, t))
	return math.Hypot(p.X-(a.X+t*dx), p.Y-(a.Y+t*dy))
}

type areaItem struct {
	vertex int
	area   float64
	index  int
}

type areaHeap []*areaItem

func (h areaHeap) Len() int { return len(h) }

func (h areaHeap) Less(i, j int) bool {
	if h[i].area == h[j].area {
		return h[i].vertex < h[j].vertex
	}
	return h[i].area < h[j].area
}

func (h areaHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *areaHeap) Push(x any) {
	it := x.(*areaItem)
	it.index = len(*h)
	*h = append(*h, it)
}

func (h *areaHeap) Pop() any {
	old := *h
	n := len(old)
	it := old[n-1]
	old[n-1] = nil
	it.index = -1
	*h = old[:n-1]
	return it
}
