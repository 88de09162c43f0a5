//go:build integration

// Integration tests against a real MinIO server. They require Docker and are
// gated behind the "integration" build tag.
package minio_test

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/turtacn/molsim/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/molsim/internal/infrastructure/storage/minio"
)

const (
	minioUser     = "molsim"
	minioPassword = "molsim-secret"
)

// startMinIO launches a MinIO container and returns its host:port endpoint.
func startMinIO(t *testing.T) string {
	t.Helper()
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "minio/minio:RELEASE.2024-01-16T16-07-38Z",
		ExposedPorts: []string{"9000/tcp"},
		Env: map[string]string{
			"MINIO_ROOT_USER":     minioUser,
			"MINIO_ROOT_PASSWORD": minioPassword,
		},
		Cmd:        []string{"server", "/data"},
		WaitingFor: wait.ForListeningPort("9000/tcp").WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "9000")
	require.NoError(t, err)
	return fmt.Sprintf("%s:%s", host, port.Port())
}

func TestArtifactRepository_RoundTrip(t *testing.T) {
	endpoint := startMinIO(t)
	ctx := context.Background()

	client, err := minio.NewMinIOClient(ctx, &minio.MinIOConfig{
		Endpoint:        endpoint,
		AccessKeyID:     minioUser,
		SecretAccessKey: minioPassword,
		Bucket:          "molsim-it",
		Prefix:          "/runs/",
	}, logging.NewNopLogger())
	require.NoError(t, err)

	health, err := client.HealthCheck(ctx)
	require.NoError(t, err)
	assert.True(t, health.Healthy)
	assert.True(t, health.BucketExists)

	repo := minio.NewArtifactRepository(client, nil)

	dir := t.TempDir()
	report := filepath.Join(dir, "report.json")
	require.NoError(t, os.WriteFile(report, []byte(`{"query":"q"}`), 0o644))

	res, err := repo.UploadFile(ctx, "run1/report.json", report)
	require.NoError(t, err)
	assert.Equal(t, "runs/run1/report.json", res.ObjectKey)
	assert.Equal(t, int64(13), res.Size)

	exists, err := repo.Exists(ctx, "run1/report.json")
	require.NoError(t, err)
	assert.True(t, exists)

	meta, err := repo.GetMetadata(ctx, "run1/report.json")
	require.NoError(t, err)
	assert.Equal(t, "application/json", meta.ContentType)

	objs, err := repo.List(ctx, "run1/")
	require.NoError(t, err)
	require.Len(t, objs, 1)

	url, err := repo.PresignedURL(ctx, "run1/report.json", time.Minute)
	require.NoError(t, err)
	resp, err := http.Get(url)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	require.NoError(t, repo.Delete(ctx, "run1/report.json"))
	exists, err = repo.Exists(ctx, "run1/report.json")
	require.NoError(t, err)
	assert.False(t, exists)
}
