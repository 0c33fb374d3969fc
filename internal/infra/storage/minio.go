package storage

import (
	"context"
	"fmt"
	"net/url"
	"path"
	"path/filepath"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Store publishes exported reports to a MinIO/S3 bucket.
type Store struct {
	client     *minio.Client
	bucketName string
	region     string
	prefix     string
}

// New connects and makes sure the bucket exists.
func New(ctx context.Context, endpoint, region, bucket, accessKey, secretKey string, useSSL bool) (*Store, error) {
	cli, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
		Region: region,
	})
	if err != nil {
		return nil, fmt.Errorf("storage: connect: %w", err)
	}

	exists, err := cli.BucketExists(ctx, bucket)
	if err != nil {
		return nil, fmt.Errorf("storage: check bucket: %w", err)
	}
	if !exists {
		if err := cli.MakeBucket(ctx, bucket, minio.MakeBucketOptions{Region: region}); err != nil {
			return nil, fmt.Errorf("storage: create bucket: %w", err)
		}
	}

	return &Store{client: cli, bucketName: bucket, region: region, prefix: "reports"}, nil
}

// Upload stores the file under reports/<key> and returns its object URL.
func (s *Store) Upload(ctx context.Context, localPath, key string) (string, error) {
	object := objectKey(s.prefix, key)
	_, err := s.client.FPutObject(ctx, s.bucketName, object, localPath, minio.PutObjectOptions{
		ContentType: contentType(localPath),
	})
	if err != nil {
		return "", fmt.Errorf("storage: upload %s: %w", object, err)
	}
	return objectURL(s.client.EndpointURL(), s.bucketName, object), nil
}

func objectKey(prefix, key string) string {
	key = strings.TrimLeft(filepath.ToSlash(key), "/")
	if prefix == "" {
		return key
	}
	return path.Join(prefix, key)
}

// objectURL is the public path-style URL; private buckets need presigning.
func objectURL(endpoint *url.URL, bucket, object string) string {
	u := url.URL{Scheme: endpoint.Scheme, Host: endpoint.Host, Path: "/" + path.Join(bucket, object)}
	if u.Scheme == "" {
		u.Scheme = "http"
	}
	return u.String()
}

func contentType(localPath string) string {
	switch strings.ToLower(filepath.Ext(localPath)) {
	case ".pdf":
		return "application/pdf"
	case ".txt":
		return "text/plain; charset=utf-8"
	case ".json":
		return "application/json"
	}
	return "application/octet-stream"
}
