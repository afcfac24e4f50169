package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/sirupsen/logrus"

	"navi/internal/domain"
)

// MinioOptions configures the object-store backend.
type MinioOptions struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// MinioRepository stores records and documents in an S3-compatible bucket
// under json/{channelID}.json and docs/{channelID}.md.
type MinioRepository struct {
	client *minio.Client
	bucket string
	log    logrus.FieldLogger
}

// NewMinioRepository connects to the object store and creates the bucket if needed.
func NewMinioRepository(ctx context.Context, opts MinioOptions, logger logrus.FieldLogger) (*MinioRepository, error) {
	client, err := minio.New(opts.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(opts.AccessKey, opts.SecretKey, ""),
		Secure: opts.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	exists, err := client.BucketExists(ctx, opts.Bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket %s: %w", opts.Bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, opts.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create bucket %s: %w", opts.Bucket, err)
		}
	}

	log := logger.WithField("component", "repository")
	log.WithField("bucket", opts.Bucket).Info("Object store ready")
	return &MinioRepository{client: client, bucket: opts.Bucket, log: log}, nil
}

func recordObject(channelID string) string   { return "json/" + channelID + ".json" }
func documentObject(channelID string) string { return "docs/" + channelID + ".md" }

// LoadRecord fetches the structured record of a channel.
func (r *MinioRepository) LoadRecord(ctx context.Context, channelID string) ([]byte, error) {
	return r.get(ctx, channelID, recordObject(channelID))
}

// SaveRecord uploads the structured record of a channel.
func (r *MinioRepository) SaveRecord(ctx context.Context, channelID string, record []byte) error {
	return r.put(ctx, recordObject(channelID), record, "application/json")
}

// LoadDocument fetches the rendered document of a channel.
func (r *MinioRepository) LoadDocument(ctx context.Context, channelID string) ([]byte, error) {
	return r.get(ctx, channelID, documentObject(channelID))
}

// SaveDocument uploads the rendered document of a channel.
func (r *MinioRepository) SaveDocument(ctx context.Context, channelID string, doc []byte) error {
	return r.put(ctx, documentObject(channelID), doc, "text/markdown; charset=utf-8")
}

// Channels lists every channel with a record object.
func (r *MinioRepository) Channels(ctx context.Context) ([]string, error) {
	var ids []string
	for obj := range r.client.ListObjects(ctx, r.bucket, minio.ListObjectsOptions{Prefix: "json/", Recursive: true}) {
		if obj.Err != nil {
			return nil, fmt.Errorf("list records: %w", obj.Err)
		}
		name := strings.TrimPrefix(obj.Key, "json/")
		if strings.HasSuffix(name, ".json") {
			ids = append(ids, strings.TrimSuffix(name, ".json"))
		}
	}
	sort.Strings(ids)
	return ids, nil
}

// Close is a no-op; the minio client holds no persistent connection.
func (r *MinioRepository) Close() error {
	return nil
}

func (r *MinioRepository) put(ctx context.Context, key string, data []byte, contentType string) error {
	_, err := r.client.PutObject(ctx, r.bucket, key, bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		r.log.WithError(err).WithField("object", key).Error("Failed to upload object")
		return fmt.Errorf("put %s: %w", key, err)
	}
	return nil
}

func (r *MinioRepository) get(ctx context.Context, channelID, key string) ([]byte, error) {
	obj, err := r.client.GetObject(ctx, r.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, r.translate(channelID, key, err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, r.translate(channelID, key, err)
	}
	return data, nil
}

func (r *MinioRepository) translate(channelID, key string, err error) error {
	if minio.ToErrorResponse(err).Code == "NoSuchKey" {
		return fmt.Errorf("channel %s: %w", channelID, domain.ErrNotFound)
	}
	return fmt.Errorf("get %s: %w", key, err)
}
