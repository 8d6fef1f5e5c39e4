// Package config defines the pipeline configuration and its loading hooks.
//
// Conventions:
//   - New(ctx) returns a Config populated with defaults.
//   - Load(ctx) layers defaults, an optional YAML file and environment variables.
//   - Validation failures wrap ErrInvalidConfig; loading failures wrap ErrLoadConfig.
package config

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// MetersPerDegree is the length of one degree of longitude at the equator
// on the WGS84 ellipsoid.
const MetersPerDegree = 111_319.49

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the log handler: text or json.
	LogFormat string `koanf:"log_format"`

	// BaseURL is the geoBoundaries API root, e.g. https://www.geoboundaries.org/api/current.
	BaseURL string `koanf:"base_url"`

	// ReleaseType is the geoBoundaries release: gbOpen, gbHumanitarian or gbAuthoritative.
	ReleaseType string `koanf:"release_type"`

	// ISO is the ISO 3166-1 alpha-3 country code.
	ISO string `koanf:"iso"`

	// AdmLevel is the administrative level, ADM0..ADM5 or ALL.
	AdmLevel string `koanf:"adm_level"`

	// HTTPTimeout bounds the metadata request and the dataset download.
	HTTPTimeout time.Duration `koanf:"http_timeout"`

	// UserAgent is sent with every outbound request.
	UserAgent string `koanf:"user_agent"`

	// DownloadDir is the parent of the per-run scratch directory. Empty means os.TempDir().
	DownloadDir string `koanf:"download_dir"`

	// Prequantize is the quantization grid size used when building the topology. 0 disables it.
	Prequantize int `koanf:"prequantize"`

	// ToleranceMeters is the simplification tolerance in meters, converted to degrees at the equator.
	ToleranceMeters float64 `koanf:"tolerance_meters"`

	// Epsilon, when positive, is the tolerance in coordinate units and takes precedence over ToleranceMeters.
	Epsilon float64 `koanf:"epsilon"`

	// Algorithm is the simplification algorithm: vw or dp.
	Algorithm string `koanf:"algorithm"`

	// PreventOversimplify keeps at least three distinct vertices per ring.
	PreventOversimplify bool `koanf:"prevent_oversimplify"`

	// OutputPath is where the simplified result is written. Empty discards it.
	OutputPath string `koanf:"output_path"`

	// OutputFormat is topojson or geojson.
	OutputFormat string `koanf:"output_format"`

	// MetricsFile, when set, receives the run metrics in node_exporter textfile format.
	MetricsFile string `koanf:"metrics_file"`
}

// New creates a Config with defaults. The defaults reproduce the 30 m
// simplification of the German ADM1 boundaries.
func New(_ context.Context) *Config {
	return &Config{
		LogLevel:            "info",
		LogFormat:           "text",
		BaseURL:             "https://www.geoboundaries.org/api/current",
		ReleaseType:         "gbOpen",
		ISO:                 "DEU",
		AdmLevel:            "ADM1",
		HTTPTimeout:         2 * time.Minute,
		UserAgent:           "geosimplify/1.0",
		Prequantize:         1_000_000,
		ToleranceMeters:     30,
		Algorithm:           "vw",
		PreventOversimplify: true,
		OutputFormat:        "topojson",
	}
}

// Tolerance returns the simplification epsilon in coordinate units (degrees).
func (c *Config) Tolerance() float64 {
	if c.Epsilon > 0 {
		return c.Epsilon
	}
	return c.ToleranceMeters / MetersPerDegree
}

// Validate checks the configuration for values the pipeline cannot run with.
func (c *Config) Validate() error {
	u, err := url.Parse(c.BaseURL)
	if c.BaseURL == "" || err != nil || u.Scheme == "" || u.Host == "" {
		return errors.Wrapf(ErrInvalidConfig, "base_url %q must be an absolute URL", c.BaseURL)
	}
	if strings.TrimSpace(c.ReleaseType) == "" {
		return errors.Wrap(ErrInvalidConfig, "release_type must not be empty")
	}
	if strings.TrimSpace(c.ISO) == "" {
		return errors.Wrap(ErrInvalidConfig, "iso must not be empty")
	}
	if strings.TrimSpace(c.AdmLevel) == "" {
		return errors.Wrap(ErrInvalidConfig, "adm_level must not be empty")
	}
	if c.HTTPTimeout <= 0 {
		return errors.Wrap(ErrInvalidConfig, "http_timeout must be positive")
	}
	if c.Prequantize < 0 || c.Prequantize == 1 {
		return errors.Wrapf(ErrInvalidConfig, "prequantize must be 0 or at least 2, got %d", c.Prequantize)
	}
	if c.Tolerance() <= 0 {
		return errors.Wrap(ErrInvalidConfig, "tolerance_meters or epsilon must be positive")
	}
	switch c.Algorithm {
	case "vw", "dp":
	default:
		return errors.Wrapf(ErrInvalidConfig, "algorithm %q must be vw or dp", c.Algorithm)
	}
	switch c.OutputFormat {
	case "topojson", "geojson":
	default:
		return errors.Wrapf(ErrInvalidConfig, "output_format %q must be topojson or geojson", c.OutputFormat)
	}
	return nil
}
