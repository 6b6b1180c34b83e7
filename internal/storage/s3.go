package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"gymatlas/internal/keys"
	"gymatlas/internal/models"
)

// S3Service is a client for the S3-compatible bucket holding gym list
// snapshots (written by the dashboard backend) and map exports (written by
// this system).
type S3Service struct {
	client *minio.Client
}

// NewS3Service connects to the MinIO endpoint configured via MINIO_ENDPOINT,
// MINIO_ACCESS_KEY, MINIO_SECRET_KEY and MINIO_USE_SSL.
func NewS3Service() (*S3Service, error) {
	endpoint := os.Getenv("MINIO_ENDPOINT")
	accessKey := os.Getenv("MINIO_ACCESS_KEY")
	secretKey := os.Getenv("MINIO_SECRET_KEY")
	useSSL := os.Getenv("MINIO_USE_SSL") == "true"

	if endpoint == "" || accessKey == "" || secretKey == "" {
		return nil, fmt.Errorf("missing one or more required environment variables: MINIO_ENDPOINT, MINIO_ACCESS_KEY, MINIO_SECRET_KEY")
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}

	return &S3Service{client: client}, nil
}

// EnsureBucket creates the bucket if it does not already exist.
func (s *S3Service) EnsureBucket(ctx context.Context, bucketName, region string) error {
	exists, err := s.client.BucketExists(ctx, bucketName)
	if err != nil {
		return fmt.Errorf("error checking bucket existence: %w", err)
	}
	if !exists {
		if err := s.client.MakeBucket(ctx, bucketName, minio.MakeBucketOptions{Region: region}); err != nil {
			return err
		}
	}
	return nil
}

// GetSnapshot loads and decodes a gym list snapshot from the bucket.
func (s *S3Service) GetSnapshot(ctx context.Context, bucketName, objectKey string) (*models.Snapshot, error) {
	object, err := s.client.GetObject(ctx, bucketName, objectKey, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to get snapshot from S3: %w", err)
	}
	defer object.Close()

	var snapshot models.Snapshot
	if err := json.NewDecoder(object).Decode(&snapshot); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot %s: %w", objectKey, err)
	}
	return &snapshot, nil
}

// StoreExport writes an organization's rendered map export (a GeoJSON
// document) under its canonical key, replacing any previous export.
func (s *S3Service) StoreExport(ctx context.Context, bucketName, organizationID string, geojson []byte) error {
	objectKey := keys.Export(organizationID)
	_, err := s.client.PutObject(
		ctx,
		bucketName,
		objectKey,
		bytes.NewReader(geojson),
		int64(len(geojson)),
		minio.PutObjectOptions{ContentType: "application/geo+json"},
	)
	if err != nil {
		return fmt.Errorf("failed to store export %s: %w", objectKey, err)
	}
	return nil
}
