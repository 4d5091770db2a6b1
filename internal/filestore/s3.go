package filestore

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// S3Config configures an S3-compatible Store backend.
type S3Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
	Region    string
	Bucket    string
	// Prefix is the key prefix under which this export's output is placed,
	// equivalent to the "root directory" of a local store.
	Prefix string
}

// S3 is an S3-compatible Store, backing outputDir with an object-store
// bucket+prefix instead of a local directory. Grounded on the minio-go
// client wiring used for raw/processed buckets elsewhere in the retrieval
// pack; here there is a single bucket and the "directory" is a key prefix,
// since S3 has no real directories.
type S3 struct {
	client *minio.Client
	bucket string
	prefix string
}

// NewS3 constructs an S3 store from cfg.
func NewS3(cfg S3Config) (*S3, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("init minio client: %w", err)
	}
	return &S3{
		client: client,
		bucket: cfg.Bucket,
		prefix: strings.Trim(cfg.Prefix, "/"),
	}, nil
}

// Root implements Store.
func (s *S3) Root() Handle {
	return s3Handle{client: s.client, bucket: s.bucket, key: s.prefix}
}

type s3Handle struct {
	client *minio.Client
	bucket string
	key    string
}

// Exists reports whether any object exists under this key, treating the key
// as a directory-like prefix: a bare object at the key, or any object
// beneath it, both count as existing.
func (h s3Handle) Exists(ctx context.Context) (bool, error) {
	if _, err := h.client.StatObject(ctx, h.bucket, h.key, minio.StatObjectOptions{}); err == nil {
		return true, nil
	}
	opts := minio.ListObjectsOptions{Prefix: h.key + "/", Recursive: false}
	for obj := range h.client.ListObjects(ctx, h.bucket, opts) {
		if obj.Err != nil {
			return false, obj.Err
		}
		return true, nil
	}
	return false, nil
}

// Mkdir is a no-op beyond the existence check: S3 has no directories, so
// "creating" the destination directory only needs to refuse a collision.
func (h s3Handle) Mkdir(ctx context.Context) error {
	exists, err := h.Exists(ctx)
	if err != nil {
		return err
	}
	if exists {
		return fmt.Errorf("%w: s3://%s/%s", ErrAlreadyExists, h.bucket, h.key)
	}
	return nil
}

func (h s3Handle) Child(name string) Handle {
	return s3Handle{client: h.client, bucket: h.bucket, key: path.Join(h.key, name)}
}

func (h s3Handle) WriteAll(ctx context.Context, src io.Reader) (int64, error) {
	info, err := h.client.PutObject(ctx, h.bucket, h.key, src, -1, minio.PutObjectOptions{
		ContentType: "application/octet-stream",
	})
	if err != nil {
		return 0, fmt.Errorf("put object s3://%s/%s: %w", h.bucket, h.key, err)
	}
	return info.Size, nil
}

func (h s3Handle) URI() string {
	return fmt.Sprintf("s3://%s/%s", h.bucket, h.key)
}
