// Package source opens boundary datasets from URLs or local paths.
package source

import (
	"context"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/cavaliergopher/grab/v3"
	"github.com/okian/geosimplify/pkg/logger"
	"github.com/okian/geosimplify/pkg/metrics"
	"github.com/pkg/errors"
)

// File is an opened dataset. Closing it removes any downloaded copy.
type File struct {
	*os.File

	// Location is what Open was called with.
	Location string
	// Remote reports whether the file was downloaded.
	Remote bool
	// Size is the file size in bytes.
	Size int64

	scratch string
}

// Close closes the file and removes its scratch directory.
func (f *File) Close() error {
	err := f.File.Close()
	if f.scratch != "" {
		if rerr := os.RemoveAll(f.scratch); rerr != nil && err == nil {
			err = rerr
		}
	}
	return err
}

// Fetcher opens datasets. http and https locations are downloaded once
// into a fresh scratch directory; anything else is read from disk.
type Fetcher struct {
	client  *grab.Client
	dir     string
	timeout time.Duration
	logger  logger.Logger
	metrics *metrics.Manager
}

// NewFetcher constructs a Fetcher with defaults.
func NewFetcher(opts ...Option) *Fetcher {
	f := &Fetcher{
		client:  grab.NewClient(),
		timeout: 2 * time.Minute,
		logger:  logger.Nop(),
		metrics: metrics.Default(),
	}
	f.client.UserAgent = "geosimplify/1.0"
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Open returns the dataset at location.
func (f *Fetcher) Open(ctx context.Context, location string) (*File, error) {
	location = strings.TrimSpace(location)
	if location == "" {
		return nil, ErrEmptyLocation
	}
	u, err := url.Parse(location)
	if err == nil {
		switch strings.ToLower(u.Scheme) {
		case "http", "https":
			return f.download(ctx, location, u.Host)
		case "file":
			return openLocal(location, u.Path)
		}
	}
	return openLocal(location, location)
}

func (f *Fetcher) download(ctx context.Context, location, host string) (*File, error) {
	scratch, err := os.MkdirTemp(f.dir, "geosimplify-*")
	if err != nil {
		return nil, errors.Wrap(ErrDownload, err.Error())
	}
	cleanup := func() { _ = os.RemoveAll(scratch) }

	req, err := grab.NewRequest(scratch, location)
	if err != nil {
		cleanup()
		return nil, errors.Wrapf(ErrDownload, "%s: %v", location, err)
	}
	req.NoResume = true

	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()
	req = req.WithContext(ctx)

	f.logger.Debug(ctx, "downloading dataset", logger.String("url", location), logger.String("dir", scratch))
	start := time.Now()
	resp := f.client.Do(req)
	err = resp.Err()
	if resp.HTTPResponse != nil {
		f.metrics.RecordHTTPRequest(host, resp.HTTPResponse.StatusCode)
	} else {
		f.metrics.RecordHTTPRequest(host, 0)
	}
	if err != nil {
		cleanup()
		if ctx.Err() != nil {
			return nil, errors.Wrapf(ctx.Err(), "download %s", location)
		}
		return nil, errors.Wrapf(ErrDownload, "%s: %v", location, err)
	}
	f.metrics.AddDownloadBytes(resp.BytesComplete())
	f.logger.Info(ctx, "dataset downloaded",
		logger.String("file", resp.Filename),
		logger.Any("bytes", resp.BytesComplete()),
		logger.Duration("took", time.Since(start)))

	file, err := openLocal(location, resp.Filename)
	if err != nil {
		cleanup()
		return nil, err
	}
	file.Remote = true
	file.scratch = scratch
	return file, nil
}

func openLocal(location, path string) (*File, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(ErrOpen, err.Error())
	}
	st, err := fh.Stat()
	if err != nil {
		_ = fh.Close()
		return nil, errors.Wrap(ErrOpen, err.Error())
	}
	if st.IsDir() {
		_ = fh.Close()
		return nil, errors.Wrapf(ErrOpen, "%s is a directory", path)
	}
	return &File{File: fh, Location: location, Size: st.Size()}, nil
}
