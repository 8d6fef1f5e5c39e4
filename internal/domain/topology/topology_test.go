package topology_test

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/okian/geosimplify/internal/domain/geometry"
	"github.com/okian/geosimplify/internal/domain/topology"
	. "github.com/smartystreets/goconvey/convey"
)

func ring(xy ...float64) geometry.Ring {
	r := make(geometry.Ring, 0, len(xy)/2)
	for i := 0; i+1 < len(xy); i += 2 {
		r = append(r, geometry.Point{X: xy[i], Y: xy[i+1]})
	}
	return r
}

func feature(id string, rings ...geometry.Ring) geometry.Feature {
	return geometry.Feature{ID: id, Properties: map[string]any{"shapeName": id}, Polygons: []geometry.Polygon{rings}}
}

// Two unit squares sharing the edge x=1.
func twoSquares() *geometry.Table {
	return &geometry.Table{Features: []geometry.Feature{
		feature("A", ring(0, 0, 1, 0, 1, 1, 0, 1, 0, 0)),
		feature("B", ring(1, 0, 2, 0, 2, 1, 1, 1, 1, 0)),
	}}
}

func TestNew(t *testing.T) {
	Convey("Given two squares sharing an edge", t, func() {
		topo, err := topology.New(twoSquares(), topology.WithPrequantize(0))
		So(err, ShouldBeNil)

		Convey("Then the shared edge becomes a single arc", func() {
			So(topo.Arcs, ShouldHaveLength, 3)
			So(topo.Arcs[0], ShouldResemble, []geometry.Point{{X: 1, Y: 0}, {X: 1, Y: 1}})
			So(topo.Objects[0].Polygons[0][0], ShouldResemble, []topology.ArcRef{0, 1})
			So(topo.Objects[1].Polygons[0][0], ShouldResemble, []topology.ArcRef{2, -1})
		})

		Convey("Then a negative reference reads the arc backwards", func() {
			ref := topo.Objects[1].Polygons[0][0][1]
			So(ref.Reversed(), ShouldBeTrue)
			So(ref.Index(), ShouldEqual, 0)
		})

		Convey("Then stats count the shared arc once", func() {
			s := topo.Stats()
			So(s.Objects, ShouldEqual, 2)
			So(s.Rings, ShouldEqual, 2)
			So(s.Arcs, ShouldEqual, 3)
			So(s.SharedArcs, ShouldEqual, 1)
			So(s.Vertices, ShouldEqual, 10)
		})

		Convey("Then the features can be rebuilt", func() {
			table := topo.Features()
			So(table.Features, ShouldHaveLength, 2)
			So(table.Features[0].ID, ShouldEqual, "A")
			So(table.Features[0].Polygons[0][0], ShouldResemble, ring(1, 0, 1, 1, 0, 1, 0, 0, 1, 0))
			So(table.Features[1].Polygons[0][0], ShouldResemble, ring(1, 0, 2, 0, 2, 1, 1, 1, 1, 0))
		})

		Convey("Then the bounding box covers both squares", func() {
			So(topo.BBox.Min, ShouldResemble, geometry.Point{X: 0, Y: 0})
			So(topo.BBox.Max, ShouldResemble, geometry.Point{X: 2, Y: 1})
			So(topo.Transform, ShouldBeNil)
			So(topo.Name, ShouldEqual, topology.DefaultName)
		})
	})

	Convey("Given an island filling a hole", t, func() {
		table := &geometry.Table{Features: []geometry.Feature{
			feature("mainland", ring(0, 0, 3, 0, 3, 3, 0, 3, 0, 0), ring(1, 1, 1, 2, 2, 2, 2, 1, 1, 1)),
			feature("enclave", ring(2, 1, 2, 2, 1, 2, 1, 1, 2, 1)),
		}}
		topo, err := topology.New(table, topology.WithPrequantize(0), topology.WithName("enclaves"))
		So(err, ShouldBeNil)

		Convey("Then the hole and the island share one closed arc", func() {
			So(topo.Arcs, ShouldHaveLength, 2)
			hole := topo.Objects[0].Polygons[0][1]
			island := topo.Objects[1].Polygons[0][0]
			So(hole, ShouldHaveLength, 1)
			So(island, ShouldHaveLength, 1)
			So(hole[0].Index(), ShouldEqual, island[0].Index())
			So(hole[0].Reversed(), ShouldNotEqual, island[0].Reversed())
			So(topo.Stats().SharedArcs, ShouldEqual, 1)
			So(topo.Name, ShouldEqual, "enclaves")
		})

		Convey("Then the island keeps its orientation when rebuilt", func() {
			rebuilt := topo.Features().Features[1].Polygons[0][0]
			So(rebuilt, ShouldHaveLength, 5)
			So(rebuilt.Closed(), ShouldBeTrue)
			So(signedArea(rebuilt), ShouldBeGreaterThan, 0)
		})
	})

	Convey("Given a quantization grid", t, func() {
		topo, err := topology.New(twoSquares(), topology.WithPrequantize(3))
		So(err, ShouldBeNil)

		Convey("Then arcs hold grid positions", func() {
			So(topo.Transform, ShouldNotBeNil)
			So(topo.Transform.Scale, ShouldResemble, [2]float64{1, 0.5})
			So(topo.Transform.Translate, ShouldResemble, [2]float64{0, 0})
			So(topo.Arcs[0], ShouldResemble, []geometry.Point{{X: 1, Y: 0}, {X: 1, Y: 2}})
		})

		Convey("Then rebuilding dequantizes", func() {
			So(topo.Features().Features[0].Polygons[0][0], ShouldResemble, ring(1, 0, 1, 1, 0, 1, 0, 0, 1, 0))
		})
	})

	Convey("Given vertices closer than one grid cell", t, func() {
		table := &geometry.Table{Features: []geometry.Feature{
			feature("A", ring(0, 0, 10, 0, 10.001, 0.001, 10, 10, 0, 10, 0, 0)),
		}}
		topo, err := topology.New(table, topology.WithPrequantize(11))
		So(err, ShouldBeNil)

		Convey("Then they collapse into one vertex", func() {
			So(topo.Arcs, ShouldHaveLength, 1)
			So(topo.Arcs[0], ShouldHaveLength, 5)
		})
	})

	Convey("Given a nil table", t, func() {
		_, err := topology.New(nil)

		Convey("Then ErrNilTable is returned", func() {
			So(errors.Is(err, topology.ErrNilTable), ShouldBeTrue)
		})
	})

	Convey("Given an empty table", t, func() {
		topo, err := topology.New(&geometry.Table{}, topology.WithPrequantize(1000))

		Convey("Then the topology is empty", func() {
			So(err, ShouldBeNil)
			So(topo.Arcs, ShouldBeEmpty)
			So(topo.Objects, ShouldBeEmpty)
			So(topo.Transform, ShouldBeNil)
		})
	})
}

func TestMarshalJSON(t *testing.T) {
	Convey("Given a quantized topology", t, func() {
		topo, err := topology.New(twoSquares(), topology.WithPrequantize(3))
		So(err, ShouldBeNil)

		Convey("When encoding it as TopoJSON", func() {
			b, err := json.Marshal(topo)
			So(err, ShouldBeNil)

			var doc struct {
				Type      string
				BBox      []float64
				Transform struct{ Scale, Translate []float64 }
				Arcs      [][][]float64
				Objects   map[string]struct {
					Type       string
					Geometries []struct {
						Type       string
						ID         string
						Properties map[string]any
						Arcs       [][]int
					}
				}
			}
			So(json.Unmarshal(b, &doc), ShouldBeNil)

			Convey("Then arcs are delta-encoded grid positions", func() {
				So(doc.Type, ShouldEqual, "Topology")
				So(doc.BBox, ShouldResemble, []float64{0, 0, 2, 1})
				So(doc.Transform.Scale, ShouldResemble, []float64{1, 0.5})
				So(doc.Arcs[0], ShouldResemble, [][]float64{{1, 0}, {0, 2}})
			})

			Convey("Then objects reference arcs with one's complement for reversal", func() {
				coll := doc.Objects[topology.DefaultName]
				So(coll.Type, ShouldEqual, "GeometryCollection")
				So(coll.Geometries, ShouldHaveLength, 2)
				So(coll.Geometries[0].Type, ShouldEqual, "Polygon")
				So(coll.Geometries[0].ID, ShouldEqual, "A")
				So(coll.Geometries[0].Properties["shapeName"], ShouldEqual, "A")
				So(coll.Geometries[1].Arcs, ShouldResemble, [][]int{{2, -1}})
			})
		})
	})

	Convey("Given an unquantized topology with a multipolygon and an empty feature", t, func() {
		table := &geometry.Table{Features: []geometry.Feature{
			{ID: "M", Polygons: []geometry.Polygon{
				{ring(0, 0, 1, 0, 1, 1, 0, 0)},
				{ring(5, 5, 6, 5, 6, 6, 5, 5)},
			}},
			{ID: "empty"},
		}}
		topo, err := topology.New(table, topology.WithPrequantize(0))
		So(err, ShouldBeNil)

		b, err := json.Marshal(topo)
		So(err, ShouldBeNil)

		var doc struct {
			Transform *struct{}
			Arcs      [][][]float64
			Objects   map[string]struct {
				Geometries []struct {
					Type *string
					Arcs json.RawMessage
				}
			}
		}
		So(json.Unmarshal(b, &doc), ShouldBeNil)

		Convey("Then coordinates are absolute and types follow polygon counts", func() {
			So(doc.Transform, ShouldBeNil)
			So(doc.Arcs[1][1], ShouldResemble, []float64{6, 5})
			geoms := doc.Objects[topology.DefaultName].Geometries
			So(*geoms[0].Type, ShouldEqual, "MultiPolygon")
			So(string(geoms[0].Arcs), ShouldEqual, "[[[0]],[[1]]]")
			So(geoms[1].Type, ShouldBeNil)
		})
	})
}

func signedArea(r geometry.Ring) float64 {
	a := 0.0
	for i := 0; i+1 < len(r); i++ {
		a += r[i].X*r[i+1].Y - r[i+1].X*r[i].Y
	}
	return a / 2
}
