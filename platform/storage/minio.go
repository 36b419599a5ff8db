// Package storage wraps MinIO for archiving uploaded files.
package storage

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"admissions_crm/platform/config"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// ObjectStore is the subset of object storage the application relies on.
type ObjectStore interface {
	EnsureBucketExists(ctx context.Context, bucket string) error
	UploadFile(ctx context.Context, bucket, folder, fileName, contentType string, reader io.Reader, size int64) (string, error)
	DownloadFile(ctx context.Context, bucket, fileKey string) (io.ReadCloser, error)
	ValidateFileSize(sizeBytes int64) error
}

// MinIOService implements ObjectStore using MinIO.
type MinIOService struct {
	client      *minio.Client
	maxFileSize int64
}

var _ ObjectStore = (*MinIOService)(nil)

func NewMinIOService(cfg config.MinIOConfig) (*MinIOService, error) {
	if !cfg.IsMinIOEnabled() {
		return nil, fmt.Errorf("MinIO is not configured")
	}

	client, err := minio.New(cfg.GetMinIOEndpoint(), &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.GetMinIOAccessKey(), cfg.GetMinIOSecretKey(), ""),
		Secure: cfg.GetMinIOUseSSL(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}

	return &MinIOService{client: client, maxFileSize: cfg.GetMinIOMaxFileSize()}, nil
}

func (s *MinIOService) EnsureBucketExists(ctx context.Context, bucket string) error {
	exists, err := s.client.BucketExists(ctx, bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket existence: %w", err)
	}
	if exists {
		return nil
	}
	if err := s.client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("failed to create bucket %s: %w", bucket, err)
	}
	return nil
}

// UploadFile stores reader under folder/<name>_<date>_<short id><ext> and returns the key.
func (s *MinIOService) UploadFile(ctx context.Context, bucket, folder, fileName, contentType string, reader io.Reader, size int64) (string, error) {
	fileKey := ObjectKey(folder, fileName, time.Now())

	_, err := s.client.PutObject(ctx, bucket, fileKey, reader, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload file %s: %w", fileKey, err)
	}
	return fileKey, nil
}

// DownloadFile opens an object; the caller closes it.
func (s *MinIOService) DownloadFile(ctx context.Context, bucket, fileKey string) (io.ReadCloser, error) {
	obj, err := s.client.GetObject(ctx, bucket, fileKey, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to get object %s: %w", fileKey, err)
	}
	return obj, nil
}

func (s *MinIOService) ValidateFileSize(sizeBytes int64) error {
	if sizeBytes <= 0 {
		return fmt.Errorf("file is empty")
	}
	if s.maxFileSize > 0 && sizeBytes > s.maxFileSize {
		return fmt.Errorf("file exceeds maximum size of %d bytes", s.maxFileSize)
	}
	return nil
}

// ObjectKey builds a collision-resistant key for an uploaded file.
func ObjectKey(folder, fileName string, now time.Time) string {
	base := path.Base(strings.ReplaceAll(fileName, "\\", "/"))
	ext := path.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	if stem == "" || stem == "." || stem == "/" {
		stem = "upload"
	}
	unique := fmt.Sprintf("%s_%s_%s%s", stem, now.UTC().Format("20060102T150405"), uuid.NewString()[:8], ext)
	return path.Join(folder, unique)
}
