package geoboundaries_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/okian/geosimplify/internal/adapters/geoboundaries"
	"github.com/okian/geosimplify/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

const deuADM1 = `{
	"boundaryID": "DEU-ADM1-12345",
	"boundaryName": "Germany",
	"boundaryISO": "DEU",
	"boundaryType": "ADM1",
	"boundaryLicense": "CC BY 4.0",
	"admUnitCount": "16",
	"buildDate": "Dec 12, 2023",
	"gjDownloadURL": "https://example.org/geoBoundaries-DEU-ADM1.geojson",
	"tjDownloadURL": "https://example.org/geoBoundaries-DEU-ADM1.topojson"
}`

func newServer(status int, body string, seen *http.Request) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if seen != nil {
			*seen = *r.Clone(context.Background())
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
}

func TestQuery_Normalize(t *testing.T) {
	Convey("Given boundary queries", t, func() {
		cases := []struct {
			name  string
			query geoboundaries.Query
			ok    bool
		}{
			{"lower-case iso and level", geoboundaries.Query{Release: "gbOpen", ISO: "deu", Level: "adm1"}, true},
			{"all levels", geoboundaries.Query{Release: "gbOpen", ISO: "PHL", Level: "ALL"}, true},
			{"two-letter iso", geoboundaries.Query{Release: "gbOpen", ISO: "DE", Level: "ADM1"}, false},
			{"level out of range", geoboundaries.Query{Release: "gbOpen", ISO: "DEU", Level: "ADM6"}, false},
			{"empty release", geoboundaries.Query{ISO: "DEU", Level: "ADM1"}, false},
			{"release with path", geoboundaries.Query{Release: "gbOpen/../x", ISO: "DEU", Level: "ADM1"}, false},
		}

		for _, tc := range cases {
			Convey("Then "+tc.name+" is handled", func() {
				q, err := tc.query.Normalize()
				if tc.ok {
					So(err, ShouldBeNil)
					So(q.ISO, ShouldHaveLength, 3)
					So(q.Level, ShouldNotBeEmpty)
				} else {
					So(errors.Is(err, geoboundaries.ErrInvalidQuery), ShouldBeTrue)
				}
			})
		}

		Convey("Then codes are upper-cased", func() {
			q, err := geoboundaries.Query{Release: "gbOpen", ISO: " deu ", Level: "adm1"}.Normalize()
			So(err, ShouldBeNil)
			So(q.ISO, ShouldEqual, "DEU")
			So(q.Level, ShouldEqual, "ADM1")
		})
	})
}

func TestClient_Metadata(t *testing.T) {
	query := geoboundaries.Query{Release: "gbOpen", ISO: "deu", Level: "ADM1"}

	Convey("Given an API that returns metadata", t, func() {
		var seen http.Request
		srv := newServer(http.StatusOK, deuADM1, &seen)
		defer srv.Close()

		m := metrics.NewManager()
		client := geoboundaries.NewClient(
			geoboundaries.WithBaseURL(srv.URL+"/api/current/"),
			geoboundaries.WithUserAgent("geosimplify-test"),
			geoboundaries.WithMetrics(m),
		)

		Convey("When fetching metadata", func() {
			md, err := client.Metadata(context.Background(), query)

			Convey("Then the document is decoded", func() {
				So(err, ShouldBeNil)
				So(md.BoundaryID, ShouldEqual, "DEU-ADM1-12345")
				So(md.GeoJSONURL, ShouldEqual, "https://example.org/geoBoundaries-DEU-ADM1.geojson")
				n, ok := md.UnitCount()
				So(ok, ShouldBeTrue)
				So(n, ShouldEqual, 16)
			})

			Convey("Then the endpoint path is built from the query", func() {
				So(seen.URL.Path, ShouldEqual, "/api/current/gbOpen/DEU/ADM1/")
				So(seen.Header.Get("User-Agent"), ShouldEqual, "geosimplify-test")
			})

			Convey("Then the request is counted", func() {
				So(series(m, "geosimplify_pipeline_http_requests_total"), ShouldEqual, 1)
			})
		})
	})

	Convey("Given an API that answers with a list", t, func() {
		srv := newServer(http.StatusOK, "["+deuADM1+"]", nil)
		defer srv.Close()
		client := geoboundaries.NewClient(geoboundaries.WithBaseURL(srv.URL), geoboundaries.WithMetrics(metrics.NewManager()))

		Convey("Then the first entry is used", func() {
			md, err := client.Metadata(context.Background(), geoboundaries.Query{Release: "gbOpen", ISO: "DEU", Level: "ALL"})
			So(err, ShouldBeNil)
			So(md.BoundaryType, ShouldEqual, "ADM1")
		})
	})

	Convey("Given failing responses", t, func() {
		cases := []struct {
			name   string
			status int
			body   string
			want   error
		}{
			{"not found", http.StatusNotFound, "not found", geoboundaries.ErrUnexpectedStatus},
			{"server error", http.StatusBadGateway, "", geoboundaries.ErrUnexpectedStatus},
			{"malformed json", http.StatusOK, "{not json", geoboundaries.ErrDecodeMetadata},
			{"empty list", http.StatusOK, "[]", geoboundaries.ErrDecodeMetadata},
			{"no download url", http.StatusOK, `{"boundaryID":"X"}`, geoboundaries.ErrMissingDownloadURL},
		}

		for _, tc := range cases {
			Convey("Then "+tc.name+" is reported", func() {
				srv := newServer(tc.status, tc.body, nil)
				defer srv.Close()
				client := geoboundaries.NewClient(geoboundaries.WithBaseURL(srv.URL), geoboundaries.WithMetrics(metrics.NewManager()))

				md, err := client.Metadata(context.Background(), query)
				So(md, ShouldBeNil)
				So(errors.Is(err, tc.want), ShouldBeTrue)
			})
		}
	})

	Convey("Given an invalid query", t, func() {
		client := geoboundaries.NewClient(geoboundaries.WithBaseURL("http://127.0.0.1:1"))

		Convey("Then no request is made", func() {
			_, err := client.Metadata(context.Background(), geoboundaries.Query{Release: "gbOpen", ISO: "Germany", Level: "ADM1"})
			So(errors.Is(err, geoboundaries.ErrInvalidQuery), ShouldBeTrue)
		})
	})

	Convey("Given a cancelled context", t, func() {
		srv := newServer(http.StatusOK, deuADM1, nil)
		defer srv.Close()
		client := geoboundaries.NewClient(geoboundaries.WithBaseURL(srv.URL), geoboundaries.WithMetrics(metrics.NewManager()))

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		Convey("Then the request fails with the context error", func() {
			_, err := client.Metadata(ctx, query)
			So(errors.Is(err, context.Canceled), ShouldBeTrue)
		})
	})
}

func series(m *metrics.Manager, name string) int {
	n, err := testutil.GatherAndCount(m.Registry(), name)
	if err != nil {
		panic(err)
	}
	return n
}
