package dataset

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/molsim/internal/testutil"
	"github.com/turtacn/molsim/pkg/errors"
)

const sampleSMI = "smiles zinc_id\nCCO mol1\nCCC mol2\n"

func TestFetcher_Fetch_WritesBodyVerbatim(t *testing.T) {
	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		_, _ = w.Write([]byte(sampleSMI))
	}))
	defer srv.Close()

	log := testutil.NewMockLogger()
	dest := filepath.Join(t.TempDir(), "nested", "data", "AAAA.smi")
	f := NewFetcher(WithUserAgent("molsim-test"), WithLogger(log), WithTimeout(5*time.Second))

	res, err := f.Fetch(context.Background(), srv.URL+"/2D/AA/AAAA.smi", dest)
	require.NoError(t, err)

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, sampleSMI, string(data))
	assert.Equal(t, int64(len(sampleSMI)), res.Bytes)
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, "molsim-test", gotUA)
	assert.True(t, log.HasMessage("info", "dataset downloaded"))

	entries, err := os.ReadDir(filepath.Dir(dest))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temporary files left behind")
}

func TestFetcher_Fetch_FileMode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(sampleSMI))
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "AAAA.smi")
	_, err := NewFetcher().Fetch(context.Background(), srv.URL, dest)
	require.NoError(t, err)

	info, err := os.Stat(dest)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o644), info.Mode().Perm())
}

func TestFetcher_Fetch_OverwritesExistingFile(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("short\n"))
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "AAAA.smi")
	require.NoError(t, os.WriteFile(dest, []byte("a much longer previous body\n"), 0o644))

	_, err := NewFetcher().Fetch(context.Background(), srv.URL, dest)
	require.NoError(t, err)

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "short\n", string(data))
}

func TestFetcher_Fetch_NotFound(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "AAAA.smi")
	require.NoError(t, os.WriteFile(dest, []byte("previous"), 0o644))

	_, err := NewFetcher().Fetch(context.Background(), srv.URL, dest)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeDataSourceUnavailable))
	assert.Contains(t, err.Error(), "HTTP 404")

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "previous", string(data))
}

func TestFetcher_Fetch_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := NewFetcher().Fetch(context.Background(), url, filepath.Join(t.TempDir(), "x.smi"))
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeDataSourceUnavailable))
}

func TestFetcher_Fetch_ContextCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(sampleSMI))
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewFetcher().Fetch(ctx, srv.URL, filepath.Join(t.TempDir(), "x.smi"))
	assert.Error(t, err)
}

func TestFetcher_Fetch_BadURL(t *testing.T) {
	_, err := NewFetcher().Fetch(context.Background(), "http://[::1", filepath.Join(t.TempDir(), "x.smi"))
	assert.Error(t, err)
}

func TestNewFetcher_Options(t *testing.T) {
	hc := &http.Client{}
	f := NewFetcher(WithHTTPClient(hc), WithTimeout(3*time.Second), WithUserAgent(""), WithLogger(nil))
	assert.Same(t, hc, f.httpClient)
	assert.Equal(t, 3*time.Second, hc.Timeout)
	assert.Equal(t, defaultUserAgent, f.userAgent)
	assert.NotNil(t, f.logger)
}
