package minio

import (
	"bytes"
	"context"
	"mime"
	"net/http"
	"os"
	"path"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"

	"github.com/turtacn/molsim/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/molsim/pkg/errors"
)

var (
	ErrObjectNotFound = errors.NotFound("object not found")
	ErrInvalidRequest = errors.New(errors.ErrCodeValidation, "invalid request")
)

// ArtifactRepository stores run artifacts under the client's key prefix.
// Keys passed to its methods are relative to that prefix.
type ArtifactRepository interface {
	Upload(ctx context.Context, req *UploadRequest) (*UploadResult, error)
	UploadFile(ctx context.Context, key, filePath string) (*UploadResult, error)
	Exists(ctx context.Context, key string) (bool, error)
	GetMetadata(ctx context.Context, key string) (*ObjectMetadata, error)
	List(ctx context.Context, prefix string) ([]*ObjectMetadata, error)
	Delete(ctx context.Context, key string) error
	PresignedURL(ctx context.Context, key string, expiry time.Duration) (string, error)
}

type UploadRequest struct {
	Key         string
	Data        []byte
	ContentType string
	Metadata    map[string]string
}

type UploadResult struct {
	Bucket     string
	ObjectKey  string
	ETag       string
	Size       int64
	Location   string
	UploadedAt time.Time
}

type ObjectMetadata struct {
	Bucket       string
	ObjectKey    string
	Size         int64
	ContentType  string
	ETag         string
	LastModified time.Time
	Metadata     map[string]string
}

type minioRepository struct {
	client *MinIOClient
	logger logging.Logger
}

// NewArtifactRepository returns a repository backed by client.
func NewArtifactRepository(client *MinIOClient, log logging.Logger) ArtifactRepository {
	if log == nil {
		log = client.logger
	}
	return &minioRepository{client: client, logger: log}
}

// ObjectKey joins prefix and key into a slash-separated object name.
func ObjectKey(prefix, key string) string {
	return strings.TrimPrefix(path.Join(prefix, key), "/")
}

func (r *minioRepository) fullKey(key string) string {
	return ObjectKey(r.client.Prefix(), key)
}

func (r *minioRepository) Upload(ctx context.Context, req *UploadRequest) (*UploadResult, error) {
	if req == nil || strings.Trim(req.Key, "/") == "" {
		return nil, ErrInvalidRequest
	}
	contentType := req.ContentType
	if contentType == "" {
		contentType = detectContentType(req.Key, req.Data)
	}

	bucket, key := r.client.Bucket(), r.fullKey(req.Key)
	info, err := r.client.GetClient().PutObject(ctx, bucket, key,
		bytes.NewReader(req.Data), int64(len(req.Data)),
		minio.PutObjectOptions{ContentType: contentType, UserMetadata: req.Metadata})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeStorage, "upload failed").WithDetail(key)
	}

	r.logger.Debug("artifact uploaded",
		logging.String("bucket", bucket),
		logging.String("key", key),
		logging.Int64("size", info.Size))

	return &UploadResult{
		Bucket:     bucket,
		ObjectKey:  key,
		ETag:       info.ETag,
		Size:       info.Size,
		Location:   info.Location,
		UploadedAt: time.Now().UTC(),
	}, nil
}

func (r *minioRepository) UploadFile(ctx context.Context, key, filePath string) (*UploadResult, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeStorage, "failed to read artifact").WithDetail(filePath)
	}
	if key == "" {
		key = path.Base(filePath)
	}
	return r.Upload(ctx, &UploadRequest{Key: key, Data: data})
}

func (r *minioRepository) Exists(ctx context.Context, key string) (bool, error) {
	_, err := r.GetMetadata(ctx, key)
	if err == nil {
		return true, nil
	}
	if errors.IsCode(err, errors.ErrCodeNotFound) {
		return false, nil
	}
	return false, err
}

func (r *minioRepository) GetMetadata(ctx context.Context, key string) (*ObjectMetadata, error) {
	bucket, full := r.client.Bucket(), r.fullKey(key)
	info, err := r.client.GetClient().StatObject(ctx, bucket, full, minio.StatObjectOptions{})
	if err != nil {
		if isNotFound(err) {
			return nil, ErrObjectNotFound
		}
		return nil, errors.Wrap(err, errors.ErrCodeStorage, "stat failed").WithDetail(full)
	}
	return toMetadata(bucket, info), nil
}

func (r *minioRepository) List(ctx context.Context, prefix string) ([]*ObjectMetadata, error) {
	bucket := r.client.Bucket()
	full := r.fullKey(prefix)
	if full != "" && strings.HasSuffix(prefix, "/") {
		full += "/"
	}

	var out []*ObjectMetadata
	for obj := range r.client.GetClient().ListObjects(ctx, bucket, minio.ListObjectsOptions{Prefix: full, Recursive: true}) {
		if obj.Err != nil {
			return nil, errors.Wrap(obj.Err, errors.ErrCodeStorage, "list failed").WithDetail(full)
		}
		out = append(out, toMetadata(bucket, obj))
	}
	return out, nil
}

func (r *minioRepository) Delete(ctx context.Context, key string) error {
	full := r.fullKey(key)
	if err := r.client.GetClient().RemoveObject(ctx, r.client.Bucket(), full, minio.RemoveObjectOptions{}); err != nil {
		return errors.Wrap(err, errors.ErrCodeStorage, "delete failed").WithDetail(full)
	}
	return nil
}

func (r *minioRepository) PresignedURL(ctx context.Context, key string, expiry time.Duration) (string, error) {
	if expiry <= 0 {
		expiry = r.client.config.PresignExpiry
	}
	full := r.fullKey(key)
	u, err := r.client.GetClient().PresignedGetObject(ctx, r.client.Bucket(), full, expiry, nil)
	if err != nil {
		return "", errors.Wrap(err, errors.ErrCodeStorage, "presign failed").WithDetail(full)
	}
	return u.String(), nil
}

func toMetadata(bucket string, info minio.ObjectInfo) *ObjectMetadata {
	return &ObjectMetadata{
		Bucket:       bucket,
		ObjectKey:    info.Key,
		Size:         info.Size,
		ContentType:  info.ContentType,
		ETag:         info.ETag,
		LastModified: info.LastModified,
		Metadata:     info.UserMetadata,
	}
}

func detectContentType(key string, data []byte) string {
	if ct := mime.TypeByExtension(path.Ext(key)); ct != "" {
		return ct
	}
	return http.DetectContentType(data[:min(512, len(data))])
}

func isNotFound(err error) bool {
	switch minio.ToErrorResponse(err).Code {
	case "NoSuchKey", "NoSuchObject", "NotFound":
		return true
	}
	return false
}
