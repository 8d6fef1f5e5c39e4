package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/okian/geosimplify/internal/domain/geometry"
	"github.com/smartystreets/goconvey/convey"
)

const dataset = `{"type":"FeatureCollection","features":[
{"type":"Feature","id":"A","properties":{"shapeName":"A"},"geometry":{"type":"Polygon","coordinates":[[[0,0],[1,0],[1,1],[0,1],[0,0]]]}},
{"type":"Feature","id":"B","properties":{"shapeName":"B"},"geometry":{"type":"Polygon","coordinates":[[[1,0],[2,0],[2,1],[1,1],[1,0]]]}}
]}`

func newAPI(metaStatus int) *httptest.Server {
	var srv *httptest.Server
	mux := http.NewServeMux()
	mux.HandleFunc("/api/gbOpen/AUT/ADM2/", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(metaStatus)
		_, _ = fmt.Fprintf(w, `{"boundaryID":"AUT-ADM2-1","admUnitCount":"2","gjDownloadURL":%q}`, srv.URL+"/data/aut.geojson")
	})
	mux.HandleFunc("/data/aut.geojson", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, dataset)
	})
	srv = httptest.NewServer(mux)
	return srv
}

func clearEnv(t *testing.T) {
	for _, kv := range os.Environ() {
		if k, _, _ := strings.Cut(kv, "="); strings.HasPrefix(k, "GEOSIMPLIFY_") {
			t.Setenv(k, "")
			_ = os.Unsetenv(k)
		}
	}
}

func TestRun(t *testing.T) {
	convey.Convey("Given the command line", t, func() {
		clearEnv(t)
		dir := t.TempDir()
		noEnv := "-env=" + filepath.Join(dir, "missing.env")
		var stderr bytes.Buffer

		convey.Convey("When asking for help", func() {
			code := run(context.Background(), []string{"-help"}, &stderr)

			convey.Convey("Then usage is printed", func() {
				convey.So(code, convey.ShouldEqual, exitOK)
				convey.So(stderr.String(), convey.ShouldContainSubstring, "-iso")
			})
		})

		convey.Convey("When passing an unknown flag", func() {
			code := run(context.Background(), []string{"-bogus"}, &stderr)

			convey.Convey("Then it is a usage error", func() {
				convey.So(code, convey.ShouldEqual, exitUsage)
			})
		})

		convey.Convey("When passing an unknown output format", func() {
			code := run(context.Background(), []string{noEnv, "-format", "kml"}, &stderr)

			convey.Convey("Then validation rejects it", func() {
				convey.So(code, convey.ShouldEqual, exitUsage)
				convey.So(stderr.String(), convey.ShouldContainSubstring, "output_format")
			})
		})

		convey.Convey("When the API serves a dataset", func() {
			srv := newAPI(http.StatusOK)
			defer srv.Close()
			t.Setenv("GEOSIMPLIFY_BASE_URL", srv.URL+"/api")
			t.Setenv("GEOSIMPLIFY_METRICS_FILE", filepath.Join(dir, "geosimplify.prom"))
			out := filepath.Join(dir, "aut.geojson")

			code := run(context.Background(), []string{noEnv, "-iso", "aut", "-adm", "adm2", "-out", out, "-format", "geojson"}, &stderr)

			convey.Convey("Then the simplified boundaries are written", func() {
				convey.So(code, convey.ShouldEqual, exitOK)
				fh, err := os.Open(out)
				convey.So(err, convey.ShouldBeNil)
				defer fh.Close()
				table, err := geometry.Decode(fh)
				convey.So(err, convey.ShouldBeNil)
				convey.So(table.Features, convey.ShouldHaveLength, 2)
			})

			convey.Convey("Then the metrics textfile is written", func() {
				b, err := os.ReadFile(filepath.Join(dir, "geosimplify.prom"))
				convey.So(err, convey.ShouldBeNil)
				convey.So(string(b), convey.ShouldContainSubstring, "geosimplify_pipeline_runs_total")
			})
		})

		convey.Convey("When no output path is configured", func() {
			srv := newAPI(http.StatusOK)
			defer srv.Close()
			t.Setenv("GEOSIMPLIFY_BASE_URL", srv.URL+"/api")

			code := run(context.Background(), []string{noEnv, "-iso", "AUT", "-adm", "ADM2"}, &stderr)

			convey.Convey("Then the run succeeds and the result is discarded", func() {
				convey.So(code, convey.ShouldEqual, exitOK)
				convey.So(stderr.String(), convey.ShouldContainSubstring, "result discarded")
			})
		})

		convey.Convey("When the metadata endpoint fails", func() {
			srv := newAPI(http.StatusInternalServerError)
			defer srv.Close()
			t.Setenv("GEOSIMPLIFY_BASE_URL", srv.URL+"/api")
			out := filepath.Join(dir, "never.topojson")

			code := run(context.Background(), []string{noEnv, "-iso", "AUT", "-adm", "ADM2", "-out", out}, &stderr)

			convey.Convey("Then the run fails and nothing is written", func() {
				convey.So(code, convey.ShouldEqual, exitFailure)
				_, err := os.Stat(out)
				convey.So(os.IsNotExist(err), convey.ShouldBeTrue)
				convey.So(stderr.String(), convey.ShouldContainSubstring, "fetch boundary metadata")
			})
		})
	})
}
