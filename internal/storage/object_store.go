package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"ridedesk/internal/config"
)

var ErrObjectNotFound = errors.New("object not found")

// ObjectStore keeps wizard captures in a single bucket keyed by users/<id>/...
type ObjectStore struct {
	client *minio.Client
	bucket string
	region string
}

func NewObjectStore(cfg config.StorageConfig) (*ObjectStore, error) {
	endpoint := cfg.Endpoint
	useSSL := cfg.UseSSL

	if strings.HasPrefix(endpoint, "http") {
		u, err := url.Parse(endpoint)
		if err != nil {
			return nil, fmt.Errorf("parse endpoint: %w", err)
		}
		endpoint = u.Host
		useSSL = u.Scheme == "https"
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: useSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("init minio: %w", err)
	}

	return &ObjectStore{
		client: client,
		bucket: cfg.BucketCaptures,
		region: cfg.Region,
	}, nil
}

func (s *ObjectStore) EnsureBuckets(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("bucket exists %s: %w", s.bucket, err)
	}
	if !exists {
		if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{Region: s.region}); err != nil {
			return fmt.Errorf("create bucket %s: %w", s.bucket, err)
		}
	}
	return nil
}

func (s *ObjectStore) Ping(ctx context.Context) error {
	if _, err := s.client.BucketExists(ctx, s.bucket); err != nil {
		return fmt.Errorf("object store ping: %w", err)
	}
	return nil
}

func (s *ObjectStore) Put(ctx context.Context, key string, data []byte, contentType string) error {
	_, err := s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return fmt.Errorf("put object %s: %w", key, err)
	}
	return nil
}

func (s *ObjectStore) Get(ctx context.Context, key string) ([]byte, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("get object %s: %w", key, err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, ErrObjectNotFound
		}
		return nil, fmt.Errorf("read object %s: %w", key, err)
	}
	return data, nil
}

func (s *ObjectStore) Remove(ctx context.Context, key string) error {
	if err := s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("remove object %s: %w", key, err)
	}
	return nil
}

// RemovePrefix deletes every object under prefix and returns how many were removed.
func (s *ObjectStore) RemovePrefix(ctx context.Context, prefix string) (int, error) {
	return s.removeMatching(ctx, prefix, func(minio.ObjectInfo) bool { return true })
}

// RemoveOlderThan deletes objects under prefix last modified before cutoff.
func (s *ObjectStore) RemoveOlderThan(ctx context.Context, prefix string, cutoff time.Time) (int, error) {
	return s.removeMatching(ctx, prefix, func(info minio.ObjectInfo) bool {
		return info.LastModified.Before(cutoff)
	})
}

func (s *ObjectStore) removeMatching(ctx context.Context, prefix string, match func(minio.ObjectInfo) bool) (int, error) {
	objects := make(chan minio.ObjectInfo)
	var listErr error

	go func() {
		defer close(objects)
		for info := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{Prefix: prefix, Recursive: true}) {
			if info.Err != nil {
				listErr = info.Err
				return
			}
			if match(info) {
				objects <- info
			}
		}
	}()

	attempted, failed := 0, 0
	var removeErr error
	for result := range s.client.RemoveObjects(ctx, s.bucket, countRemovals(objects, &attempted), minio.RemoveObjectsOptions{}) {
		if result.Err == nil {
			continue
		}
		failed++
		if removeErr == nil {
			removeErr = fmt.Errorf("remove %s: %w", result.ObjectName, result.Err)
		}
	}

	if listErr != nil {
		return attempted - failed, fmt.Errorf("list %s: %w", prefix, listErr)
	}
	return attempted - failed, removeErr
}

func countRemovals(in <-chan minio.ObjectInfo, n *int) <-chan minio.ObjectInfo {
	out := make(chan minio.ObjectInfo)
	go func() {
		defer close(out)
		for info := range in {
			*n++
			out <- info
		}
	}()
	return out
}

// UserPrefix is the key prefix owning every object of a user.
func UserPrefix(userID string) string {
	return "users/" + userID + "/"
}

// CaptureKey places a normalized capture of a wizard draft.
func CaptureKey(userID, draftID, captureType string) string {
	return fmt.Sprintf("%sdrafts/%s/%s.jpg", UserPrefix(userID), draftID, captureType)
}

// DraftPrefix is the key prefix of all captures in one draft.
func DraftPrefix(userID, draftID string) string {
	return fmt.Sprintf("%sdrafts/%s/", UserPrefix(userID), draftID)
}
