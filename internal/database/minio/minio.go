package minio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"proacademics-service/internal/config"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

var ErrInvalidObjectName = errors.New("invalid object name")

// FileStore keeps past-paper PDFs in a single bucket.
type FileStore struct {
	client        *minio.Client
	bucket        string
	publicBaseURL string
}

// NewFileStore returns nil, nil when no endpoint is configured.
func NewFileStore(cfg config.MinIOConfig) (*FileStore, error) {
	if cfg.Endpoint == "" {
		log.Println("Warning: MinIO endpoint is empty, past-paper uploads are disabled")
		return nil, nil
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize MinIO client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	exists, err := client.BucketExists(ctx, cfg.PaperBucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket %s: %w", cfg.PaperBucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.PaperBucket, minio.MakeBucketOptions{Region: cfg.Region}); err != nil {
			return nil, fmt.Errorf("failed to create bucket %s: %w", cfg.PaperBucket, err)
		}
		log.Printf("Created bucket: %s", cfg.PaperBucket)
	}

	log.Println("Successfully initialized MinIO client")
	return &FileStore{
		client:        client,
		bucket:        cfg.PaperBucket,
		publicBaseURL: strings.TrimRight(cfg.PublicBaseURL, "/"),
	}, nil
}

// Upload stores the object and returns the URL clients should use to read it.
func (s *FileStore) Upload(ctx context.Context, objectName string, reader io.Reader, size int64, contentType string) (string, error) {
	if strings.Contains(objectName, "..") {
		return "", ErrInvalidObjectName
	}

	_, err := s.client.PutObject(ctx, s.bucket, objectName, reader, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload %s: %w", objectName, err)
	}

	if s.publicBaseURL != "" {
		return fmt.Sprintf("%s/%s/%s", s.publicBaseURL, s.bucket, objectName), nil
	}
	return s.PresignedURL(ctx, objectName, 7*24*time.Hour)
}

func (s *FileStore) PresignedURL(ctx context.Context, objectName string, expiry time.Duration) (string, error) {
	if strings.Contains(objectName, "..") {
		return "", ErrInvalidObjectName
	}

	u, err := s.client.PresignedGetObject(ctx, s.bucket, objectName, expiry, nil)
	if err != nil {
		return "", fmt.Errorf("failed to presign %s: %w", objectName, err)
	}
	return u.String(), nil
}

func (s *FileStore) Delete(ctx context.Context, objectName string) error {
	err := s.client.RemoveObject(ctx, s.bucket, objectName, minio.RemoveObjectOptions{})
	if err != nil {
		return fmt.Errorf("failed to delete %s: %w", objectName, err)
	}
	return nil
}
