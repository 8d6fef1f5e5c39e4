// Package geometry holds the in-memory geometry table: polygon features
// with their attributes, decoded from and encoded to GeoJSON.
package geometry

import (
	"math"
)

// Point is a planar coordinate, X = longitude and Y = latitude for WGS84 data.
type Point struct {
	X, Y float64
}

// Ring is a closed sequence of points; the first point equals the last.
type Ring []Point

// Polygon is a list of rings. The first ring is the outer boundary, the rest are holes.
type Polygon []Ring

// Feature is one row of the table.
type Feature struct {
	ID         string
	Properties map[string]any
	// Polygons holds one entry for a Polygon geometry and several for a
	// MultiPolygon. It is empty for a null geometry.
	Polygons []Polygon
}

// Table is a geometry collection loaded wholesale into memory.
type Table struct {
	Features []Feature
}

// Bounds is an axis-aligned bounding box.
type Bounds struct {
	Min, Max Point
}

// EmptyBounds returns bounds that any Extend call replaces.
func EmptyBounds() Bounds {
	return Bounds{
		Min: Point{X: math.Inf(1), Y: math.Inf(1)},
		Max: Point{X: math.Inf(-1), Y: math.Inf(-1)},
	}
}

// Empty reports whether no point was added.
func (b Bounds) Empty() bool { return b.Min.X > b.Max.X || b.Min.Y > b.Max.Y }

// Extend grows b to contain p.
func (b Bounds) Extend(p Point) Bounds {
	b.Min.X = math.Min(b.Min.X, p.X)
	b.Min.Y = math.Min(b.Min.Y, p.Y)
	b.Max.X = math.Max(b.Max.X, p.X)
	b.Max.Y = math.Max(b.Max.Y, p.Y)
	return b
}

// Closed reports whether the ring's first and last points coincide.
func (r Ring) Closed() bool {
	return len(r) > 0 && r[0] == r[len(r)-1]
}

// Vertices returns the number of coordinates in the table, closing points included.
func (t *Table) Vertices() int {
	n := 0
	for _, f := range t.Features {
		for _, p := range f.Polygons {
			for _, r := range p {
				n += len(r)
			}
		}
	}
	return n
}

// Rings returns the number of rings in the table.
func (t *Table) Rings() int {
	n := 0
	for _, f := range t.Features {
		for _, p := range f.Polygons {
			n += len(p)
		}
	}
	return n
}

// Bounds returns the bounding box of all coordinates.
func (t *Table) Bounds() Bounds {
	b := EmptyBounds()
	for _, f := range t.Features {
		for _, p := range f.Polygons {
			for _, r := range p {
				for _, pt := range r {
					b = b.Extend(pt)
				}
			}
		}
	}
	return b
}
