// Package publish delivers finished artifacts to their consumers.
//
// With storage enabled, the final video and thumbnail are uploaded to an
// S3-compatible bucket through minio-go and the public object URL becomes the
// item's primary reference. Without storage, the reference is a download link
// built from notifications.download_base_url or the local final path.
package publish

import (
	"context"
	"fmt"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"narrator/internal/config"
	"narrator/internal/services"
)

// Artifacts are the local files produced by assembly.
type Artifacts struct {
	ItemID        int64
	VideoPath     string
	ThumbnailPath string
}

// Result carries the references consumers should use.
type Result struct {
	VideoRef     string
	ThumbnailRef string
	Uploaded     bool
}

// Publisher makes assembled artifacts reachable.
type Publisher interface {
	Publish(ctx context.Context, art Artifacts) (Result, error)
}

// NewFromConfig returns an S3 publisher when storage is enabled and a local
// reference publisher otherwise.
func NewFromConfig(cfg *config.Config) (Publisher, error) {
	local := LocalPublisher{DownloadBaseURL: cfg.Notifications.DownloadBaseURL}
	if !cfg.Storage.Enabled {
		return local, nil
	}
	s := cfg.Storage
	client, err := minio.New(s.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(s.AccessKey, s.SecretKey, ""),
		Secure: s.UseSSL,
		Region: s.Region,
	})
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "publish", "create client", "Failed to create S3 client", err)
	}
	return NewS3Publisher(client, S3Settings{
		Endpoint:      s.Endpoint,
		Bucket:        s.Bucket,
		Region:        s.Region,
		Prefix:        s.Prefix,
		UseSSL:        s.UseSSL,
		PublicBaseURL: s.PublicBaseURL,
	}, local), nil
}

// LocalPublisher uploads nothing and only computes references.
type LocalPublisher struct {
	DownloadBaseURL string
}

// Publish implements Publisher.
func (p LocalPublisher) Publish(_ context.Context, art Artifacts) (Result, error) {
	return Result{
		VideoRef:     p.Reference(art.ItemID, art.VideoPath),
		ThumbnailRef: art.ThumbnailPath,
	}, nil
}

// Reference returns the download link for id, or localPath when no download
// base URL is configured.
func (p LocalPublisher) Reference(id int64, localPath string) string {
	if base := strings.TrimRight(strings.TrimSpace(p.DownloadBaseURL), "/"); base != "" {
		return fmt.Sprintf("%s/%d", base, id)
	}
	return localPath
}

// ObjectStore is the subset of *minio.Client used for uploads.
type ObjectStore interface {
	BucketExists(ctx context.Context, bucketName string) (bool, error)
	MakeBucket(ctx context.Context, bucketName string, opts minio.MakeBucketOptions) error
	FPutObject(ctx context.Context, bucketName, objectName, filePath string, opts minio.PutObjectOptions) (minio.UploadInfo, error)
}

// S3Settings locates the target bucket.
type S3Settings struct {
	Endpoint      string
	Bucket        string
	Region        string
	Prefix        string
	UseSSL        bool
	PublicBaseURL string
}

// S3Publisher uploads artifacts to an S3-compatible bucket.
type S3Publisher struct {
	store    ObjectStore
	settings S3Settings
	fallback LocalPublisher

	mu          sync.Mutex
	bucketReady bool
}

// NewS3Publisher wraps store. fallback supplies references for artifacts that
// are not uploaded.
func NewS3Publisher(store ObjectStore, settings S3Settings, fallback LocalPublisher) *S3Publisher {
	return &S3Publisher{store: store, settings: settings, fallback: fallback}
}

// Publish uploads the video, then the thumbnail when present. A thumbnail
// upload failure still returns the video URL along with the error.
func (p *S3Publisher) Publish(ctx context.Context, art Artifacts) (Result, error) {
	result := Result{
		VideoRef:     p.fallback.Reference(art.ItemID, art.VideoPath),
		ThumbnailRef: art.ThumbnailPath,
	}
	if strings.TrimSpace(art.VideoPath) == "" {
		return result, services.Wrap(services.ErrValidation, "publish", "upload", "No video to publish", nil)
	}
	if err := p.ensureBucket(ctx); err != nil {
		return result, err
	}

	videoURL, err := p.upload(ctx, art.ItemID, art.VideoPath, "video/mp4")
	if err != nil {
		return result, err
	}
	result.VideoRef = videoURL
	result.Uploaded = true

	if strings.TrimSpace(art.ThumbnailPath) != "" {
		thumbURL, err := p.upload(ctx, art.ItemID, art.ThumbnailPath, "image/jpeg")
		if err != nil {
			return result, err
		}
		result.ThumbnailRef = thumbURL
	}
	return result, nil
}

func (p *S3Publisher) ensureBucket(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.bucketReady {
		return nil
	}
	exists, err := p.store.BucketExists(ctx, p.settings.Bucket)
	if err != nil {
		return services.Wrap(services.ErrTransient, "publish", "check bucket", "Failed to check bucket", err)
	}
	if !exists {
		if err := p.store.MakeBucket(ctx, p.settings.Bucket, minio.MakeBucketOptions{Region: p.settings.Region}); err != nil {
			return services.Wrap(services.ErrTransient, "publish", "create bucket", "Failed to create bucket", err)
		}
	}
	p.bucketReady = true
	return nil
}

func (p *S3Publisher) upload(ctx context.Context, id int64, localPath, contentType string) (string, error) {
	key := p.ObjectKey(id, filepath.Base(localPath))
	if _, err := p.store.FPutObject(ctx, p.settings.Bucket, key, localPath, minio.PutObjectOptions{ContentType: contentType}); err != nil {
		return "", services.Wrap(services.ErrTransient, "publish", "upload", fmt.Sprintf("Failed to upload %s", key), err)
	}
	return p.ObjectURL(key), nil
}

// ObjectKey returns the bucket key for an item artifact.
func (p *S3Publisher) ObjectKey(id int64, name string) string {
	return path.Join(p.settings.Prefix, fmt.Sprintf("item-%d", id), name)
}

// ObjectURL returns the public URL of key.
func (p *S3Publisher) ObjectURL(key string) string {
	if base := strings.TrimRight(p.settings.PublicBaseURL, "/"); base != "" {
		return base + "/" + key
	}
	scheme := "http"
	if p.settings.UseSSL {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s/%s/%s", scheme, p.settings.Endpoint, p.settings.Bucket, key)
}
