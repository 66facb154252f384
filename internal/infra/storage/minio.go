package storage

import (
	"context"
	"net/http"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/bryanwahyu/remix-lens/internal/application"
	"github.com/bryanwahyu/remix-lens/internal/domain/media"
)

type Store struct {
	client     *minio.Client
	bucketName string
	region     string
	expiry     time.Duration
	clock      application.Clock
}

// New buat koneksi MinIO dan pastikan bucket ada
func New(ctx context.Context, endpoint, region, bucket, accessKey, secretKey string, useSSL bool, expiry time.Duration) (*Store, error) {
	cli, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
		Region: region,
	})
	if err != nil {
		return nil, err
	}

	exists, err := cli.BucketExists(ctx, bucket)
	if err != nil {
		return nil, err
	}
	if !exists {
		if err := cli.MakeBucket(ctx, bucket, minio.MakeBucketOptions{Region: region}); err != nil {
			return nil, err
		}
	}

	return &Store{client: cli, bucketName: bucket, region: region, expiry: expiry, clock: application.SystemClock{}}, nil
}

// PresignUpload returns a PUT URL the browser uploads the image to directly.
func (s *Store) PresignUpload(ctx context.Context, key string) (media.PresignedURL, error) {
	if _, err := media.ContentType(key); err != nil {
		return media.PresignedURL{}, err
	}
	expires := s.clock.Now().Add(s.expiry)
	u, err := s.client.PresignedPutObject(ctx, s.bucketName, key, s.expiry)
	if err != nil {
		return media.PresignedURL{}, err
	}
	return media.PresignedURL{Key: key, URL: u.String(), Method: http.MethodPut, ExpiresAt: expires}, nil
}

// PresignDownload returns a GET URL handed to the model so it can fetch a private object.
func (s *Store) PresignDownload(ctx context.Context, key string) (media.PresignedURL, error) {
	expires := s.clock.Now().Add(s.expiry)
	u, err := s.client.PresignedGetObject(ctx, s.bucketName, key, s.expiry, nil)
	if err != nil {
		return media.PresignedURL{}, err
	}
	return media.PresignedURL{Key: key, URL: u.String(), Method: http.MethodGet, ExpiresAt: expires}, nil
}

// Exists reports whether key has been uploaded.
func (s *Store) Exists(ctx context.Context, key string) (bool, error) {
	_, err := s.client.StatObject(ctx, s.bucketName, key, minio.StatObjectOptions{})
	if err == nil {
		return true, nil
	}
	if minio.ToErrorResponse(err).Code == "NoSuchKey" {
		return false, nil
	}
	return false, err
}

// Check implements the health checker used by /health.
func (s *Store) Check(ctx context.Context) error {
	_, err := s.client.BucketExists(ctx, s.bucketName)
	return err
}
