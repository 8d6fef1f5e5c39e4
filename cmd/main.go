package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/okian/geosimplify/internal/adapters/output"
	app "github.com/okian/geosimplify/internal/app"
	"github.com/okian/geosimplify/internal/config"
	"github.com/okian/geosimplify/pkg/logger"
	"github.com/okian/geosimplify/pkg/metrics"
)

// Exit codes.
const (
	exitOK      = 0
	exitFailure = 1
	exitUsage   = 2
)

func main() {
	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stderr)
	stop()
	os.Exit(code)
}

// flags holds command line overrides. Empty values leave the
// configuration untouched.
type flags struct {
	configPath string
	envFile    string
	iso        string
	adm        string
	release    string
	out        string
	format     string
	algorithm  string
	help       bool
}

func parseFlags(args []string, stderr io.Writer) (*flags, error) {
	f := &flags{}
	fs := flag.NewFlagSet("geosimplify", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&f.configPath, "config", "", "YAML configuration file (default $GEOSIMPLIFY_CONFIG)")
	fs.StringVar(&f.envFile, "env", ".env", "dotenv file loaded before the environment is read")
	fs.StringVar(&f.iso, "iso", "", "ISO 3166-1 alpha-3 country code (default from config: DEU)")
	fs.StringVar(&f.adm, "adm", "", "administrative level ADM0..ADM5 or ALL (default from config: ADM1)")
	fs.StringVar(&f.release, "release", "", "geoBoundaries release type (default from config: gbOpen)")
	fs.StringVar(&f.out, "out", "", "write the simplified boundaries to this file")
	fs.StringVar(&f.format, "format", "", "output format: topojson or geojson")
	fs.StringVar(&f.algorithm, "algorithm", "", "simplification algorithm: vw or dp")
	fs.BoolVar(&f.help, "help", false, "show help")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if f.help {
		fs.Usage()
	}
	return f, nil
}

func (f *flags) apply(cfg *config.Config) error {
	set := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	set(&cfg.ISO, strings.ToUpper(f.iso))
	set(&cfg.AdmLevel, strings.ToUpper(f.adm))
	set(&cfg.ReleaseType, f.release)
	set(&cfg.OutputPath, f.out)
	set(&cfg.OutputFormat, strings.ToLower(f.format))
	set(&cfg.Algorithm, strings.ToLower(f.algorithm))
	return cfg.Validate()
}

// run executes one pipeline run and returns the process exit code.
func run(ctx context.Context, args []string, stderr io.Writer) int {
	f, err := parseFlags(args, stderr)
	if errors.Is(err, flag.ErrHelp) {
		return exitOK
	}
	if err != nil {
		return exitUsage
	}
	if f.help {
		return exitOK
	}

	if err := config.LoadDotEnv(f.envFile); err != nil {
		// Use fmt for initialization errors since logger isn't available yet
		_, _ = fmt.Fprintln(stderr, "failed to load env file:", err)
		return exitFailure
	}

	// Load configuration (defaults -> optional file -> env -> flags)
	path := f.configPath
	if path == "" {
		path = os.Getenv("GEOSIMPLIFY_CONFIG")
	}
	cfg, err := config.LoadFile(ctx, path)
	if err != nil {
		_, _ = fmt.Fprintln(stderr, "failed to load config:", err)
		return exitFailure
	}
	if err := f.apply(cfg); err != nil {
		_, _ = fmt.Fprintln(stderr, "invalid arguments:", err)
		return exitUsage
	}

	// Initialize logging
	if err := logger.Init(logger.WithWriter(stderr), logger.WithFormat(cfg.LogFormat)); err != nil {
		_, _ = fmt.Fprintln(stderr, "failed to initialize logging:", err)
		return exitFailure
	}
	log := logger.Get()

	// Apply configured log level (fallback to info on invalid input)
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	m := metrics.Default()
	svc := app.New(app.FromConfig(cfg, log, m)...)

	ok := execute(ctx, cfg, svc, m, log)
	m.RecordRun(ok)
	if cfg.MetricsFile != "" {
		if err := m.WriteTextfile(cfg.MetricsFile); err != nil {
			log.Error(ctx, "failed to write metrics", logger.String("path", cfg.MetricsFile), logger.Error(err))
		}
	}
	if !ok {
		return exitFailure
	}
	return exitOK
}

func execute(ctx context.Context, cfg *config.Config, svc *app.Service, m *metrics.Manager, log logger.Logger) bool {
	res, err := svc.Run(ctx)
	if err != nil {
		log.Error(ctx, "run failed", logger.Error(err))
		return false
	}
	if cfg.OutputPath == "" {
		log.Info(ctx, "no output_path configured; result discarded", logger.String("run_id", res.RunID))
		return true
	}

	format, err := output.ParseFormat(cfg.OutputFormat)
	if err != nil {
		log.Error(ctx, "invalid output format", logger.Error(err))
		return false
	}
	start := time.Now()
	err = output.Write(ctx, cfg.OutputPath, format, res.Simplified)
	m.ObserveStage(metrics.StageOutput, time.Since(start), err)
	if err != nil {
		log.Error(ctx, "failed to write output", logger.String("path", cfg.OutputPath), logger.Error(err))
		return false
	}
	log.Info(ctx, "output written",
		logger.String("run_id", res.RunID),
		logger.String("path", cfg.OutputPath),
		logger.String("format", string(format)))
	return true
}
