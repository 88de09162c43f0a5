// Package dataset downloads SMILES datasets and reads them into a molecule
// library.
package dataset

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/turtacn/molsim/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/molsim/pkg/errors"
)

const defaultUserAgent = "molsim/1.0"

// FetchResult describes a completed download.
type FetchResult struct {
	URL        string
	Path       string
	Bytes      int64
	StatusCode int
	Duration   time.Duration
}

// Fetcher downloads a remote file to local disk with a single HTTP GET.
type Fetcher struct {
	httpClient *http.Client
	userAgent  string
	logger     logging.Logger
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(f *Fetcher) {
		if c != nil {
			f.httpClient = c
		}
	}
}

// WithTimeout sets the overall request timeout. Zero disables it.
func WithTimeout(d time.Duration) Option {
	return func(f *Fetcher) {
		f.httpClient.Timeout = d
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(f *Fetcher) {
		if ua != "" {
			f.userAgent = ua
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logging.Logger) Option {
	return func(f *Fetcher) {
		if l != nil {
			f.logger = l
		}
	}
}

// NewFetcher creates a Fetcher. Options apply in order.
func NewFetcher(opts ...Option) *Fetcher {
	f := &Fetcher{
		httpClient: &http.Client{Timeout: 60 * time.Second},
		userAgent:  defaultUserAgent,
		logger:     logging.NewNopLogger(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch downloads url into dest. Parent directories are created and an
// existing file is replaced. The body is staged in a temporary file beside
// dest and renamed into place, so a failed download leaves any previous copy
// untouched. A non-2xx status is an error. There is no retry.
func (f *Fetcher) Fetch(ctx context.Context, url, dest string) (*FetchResult, error) {
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDataSourceUnavailable, "failed to build dataset request").WithDetail(url)
	}
	req.Header.Set("User-Agent", f.userAgent)

	f.logger.Debug("fetching dataset", logging.String("url", url), logging.String("dest", dest))

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDataSourceUnavailable, "dataset download failed").WithDetail(url)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, errors.Errorf(errors.ErrCodeDataSourceUnavailable,
			"dataset download failed: HTTP %d", resp.StatusCode).WithDetail(url)
	}

	n, err := writeAtomically(dest, resp.Body)
	if err != nil {
		return nil, err
	}

	res := &FetchResult{
		URL:        url,
		Path:       dest,
		Bytes:      n,
		StatusCode: resp.StatusCode,
		Duration:   time.Since(start),
	}
	f.logger.Info("dataset downloaded",
		logging.String("url", url),
		logging.String("path", dest),
		logging.Int64("bytes", n),
		logging.Duration("took", res.Duration))
	return res, nil
}

func writeAtomically(dest string, body io.Reader) (n int64, err error) {
	dir := filepath.Dir(dest)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, errors.Wrap(err, errors.ErrCodeDataSourceUnavailable, "failed to create dataset directory").WithDetail(dir)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(dest)+".*.part")
	if err != nil {
		return 0, errors.Wrap(err, errors.ErrCodeDataSourceUnavailable, "failed to create dataset file").WithDetail(dest)
	}
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	n, err = io.Copy(tmp, body)
	if err != nil {
		return n, errors.Wrap(err, errors.ErrCodeDataSourceUnavailable, "failed to read dataset body").WithDetail(dest)
	}
	if err = tmp.Chmod(0o644); err != nil {
		return n, errors.Wrap(err, errors.ErrCodeDataSourceUnavailable, "failed to set dataset file mode").WithDetail(dest)
	}
	if err = tmp.Close(); err != nil {
		return n, errors.Wrap(err, errors.ErrCodeDataSourceUnavailable, "failed to flush dataset file").WithDetail(dest)
	}
	if err = os.Rename(tmp.Name(), dest); err != nil {
		return n, errors.Wrap(err, errors.ErrCodeDataSourceUnavailable,
			fmt.Sprintf("failed to move dataset into place at %s", dest))
	}
	return n, nil
}
