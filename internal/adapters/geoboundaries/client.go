// Package geoboundaries reads boundary metadata from the geoBoundaries API.
package geoboundaries

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/okian/geosimplify/pkg/logger"
	"github.com/okian/geosimplify/pkg/metrics"
	"github.com/pkg/errors"
)

// DefaultBaseURL is the public API root.
const DefaultBaseURL = "https://www.geoboundaries.org/api/current"

// maxMetadataBytes caps the metadata response body.
const maxMetadataBytes = 4 << 20

var (
	isoPattern   = regexp.MustCompile(`^[A-Z]{3}$`)
	levelPattern = regexp.MustCompile(`^(ADM[0-5]|ALL)$`)
)

// Query selects one boundary dataset.
type Query struct {
	Release string // gbOpen, gbHumanitarian, gbAuthoritative
	ISO     string // ISO 3166-1 alpha-3
	Level   string // ADM0..ADM5 or ALL
}

// Normalize upper-cases the ISO code and level and validates all parts.
func (q Query) Normalize() (Query, error) {
	q.Release = strings.TrimSpace(q.Release)
	q.ISO = strings.ToUpper(strings.TrimSpace(q.ISO))
	q.Level = strings.ToUpper(strings.TrimSpace(q.Level))
	if q.Release == "" || strings.ContainsAny(q.Release, "/?#") {
		return q, errors.Wrapf(ErrInvalidQuery, "release %q", q.Release)
	}
	if !isoPattern.MatchString(q.ISO) {
		return q, errors.Wrapf(ErrInvalidQuery, "iso %q", q.ISO)
	}
	if !levelPattern.MatchString(q.Level) {
		return q, errors.Wrapf(ErrInvalidQuery, "level %q", q.Level)
	}
	return q, nil
}

// Metadata is the subset of the API document the pipeline reads. Counts
// arrive as strings.
type Metadata struct {
	BoundaryID        string `json:"boundaryID"`
	BoundaryName      string `json:"boundaryName"`
	BoundaryISO       string `json:"boundaryISO"`
	BoundaryType      string `json:"boundaryType"`
	BoundaryCanonical string `json:"boundaryCanonical"`
	BoundarySource    string `json:"boundarySource"`
	BoundaryLicense   string `json:"boundaryLicense"`
	AdmUnitCount      string `json:"admUnitCount"`
	GeoJSONURL        string `json:"gjDownloadURL"`
	TopoJSONURL       string `json:"tjDownloadURL"`
	SimplifiedURL     string `json:"simplifiedGeometryGeoJSON"`
	BuildDate         string `json:"buildDate"`
}

// UnitCount parses AdmUnitCount. ok is false when the field is absent or
// not a number.
func (m *Metadata) UnitCount() (n int, ok bool) {
	n, err := strconv.Atoi(strings.TrimSpace(m.AdmUnitCount))
	if err != nil {
		return 0, false
	}
	return n, true
}

// Client fetches boundary metadata.
type Client struct {
	baseURL   string
	http      *http.Client
	timeout   time.Duration
	userAgent string
	logger    logger.Logger
	metrics   *metrics.Manager
}

// NewClient constructs a Client with defaults.
func NewClient(opts ...Option) *Client {
	c := &Client{
		baseURL:   DefaultBaseURL,
		http:      &http.Client{},
		timeout:   2 * time.Minute,
		userAgent: "geosimplify/1.0",
		logger:    logger.Nop(),
		metrics:   metrics.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// URL returns the metadata endpoint for q. q must be normalized.
func (c *Client) URL(q Query) string {
	return strings.TrimRight(c.baseURL, "/") + "/" + q.Release + "/" + q.ISO + "/" + q.Level + "/"
}

// Metadata issues a single GET for q and returns the decoded document.
// When the API answers with a list (level ALL) the first entry is used.
func (c *Client) Metadata(ctx context.Context, q Query) (*Metadata, error) {
	q, err := q.Normalize()
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	u := c.URL(q)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, errors.Wrap(err, "build metadata request")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	c.logger.Debug(ctx, "requesting boundary metadata", logger.String("url", u))
	resp, err := c.http.Do(req)
	if err != nil {
		c.metrics.RecordHTTPRequest(req.URL.Host, 0)
		return nil, errors.Wrapf(err, "get %s", u)
	}
	defer resp.Body.Close()
	c.metrics.RecordHTTPRequest(req.URL.Host, resp.StatusCode)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, errors.Wrapf(ErrUnexpectedStatus, "get %s: status %d", u, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxMetadataBytes))
	if err != nil {
		return nil, errors.Wrapf(err, "read %s", u)
	}
	md, err := decode(body)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(md.GeoJSONURL) == "" {
		return nil, errors.Wrapf(ErrMissingDownloadURL, "%s %s", q.ISO, q.Level)
	}

	c.logger.Info(ctx, "boundary metadata received",
		logger.String("boundary_id", md.BoundaryID),
		logger.String("boundary_name", md.BoundaryName),
		logger.String("build_date", md.BuildDate),
		logger.String("download_url", md.GeoJSONURL))
	return md, nil
}

func decode(body []byte) (*Metadata, error) {
	body = bytes.TrimSpace(body)
	if len(body) > 0 && body[0] == '[' {
		var list []Metadata
		if err := json.Unmarshal(body, &list); err != nil {
			return nil, errors.Wrap(ErrDecodeMetadata, err.Error())
		}
		if len(list) == 0 {
			return nil, errors.Wrap(ErrDecodeMetadata, "empty metadata list")
		}
		return &list[0], nil
	}
	var md Metadata
	if err := json.Unmarshal(body, &md); err != nil {
		return nil, errors.Wrap(ErrDecodeMetadata, err.Error())
	}
	return &md, nil
}
