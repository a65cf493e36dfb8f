package publish_test

import (
	"context"
	"errors"
	"testing"

	"github.com/minio/minio-go/v7"

	"narrator/internal/config"
	"narrator/internal/publish"
	"narrator/internal/services"
)

type fakeStore struct {
	exists      bool
	made        []string
	puts        map[string]string
	contentType map[string]string
	failOn      string
}

func newFakeStore(exists bool) *fakeStore {
	return &fakeStore{exists: exists, puts: map[string]string{}, contentType: map[string]string{}}
}

func (f *fakeStore) BucketExists(context.Context, string) (bool, error) {
	return f.exists, nil
}

func (f *fakeStore) MakeBucket(_ context.Context, bucket string, _ minio.MakeBucketOptions) error {
	f.made = append(f.made, bucket)
	f.exists = true
	return nil
}

func (f *fakeStore) FPutObject(_ context.Context, _ string, key, filePath string, opts minio.PutObjectOptions) (minio.UploadInfo, error) {
	if f.failOn != "" && key == f.failOn {
		return minio.UploadInfo{}, errors.New("connection reset")
	}
	f.puts[key] = filePath
	f.contentType[key] = opts.ContentType
	return minio.UploadInfo{Key: key}, nil
}

func TestLocalPublisherReference(t *testing.T) {
	local := publish.LocalPublisher{}
	res, err := local.Publish(context.Background(), publish.Artifacts{ItemID: 5, VideoPath: "/staging/item-5/final.mp4"})
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if res.VideoRef != "/staging/item-5/final.mp4" || res.Uploaded {
		t.Fatalf("unexpected local result %+v", res)
	}

	withBase := publish.LocalPublisher{DownloadBaseURL: "https://api.example/videos/"}
	if got := withBase.Reference(5, "/x/final.mp4"); got != "https://api.example/videos/5" {
		t.Fatalf("unexpected download ref %q", got)
	}
}

func TestNewFromConfigWithoutStorageIsLocal(t *testing.T) {
	cfg := config.Default()
	pub, err := publish.NewFromConfig(&cfg)
	if err != nil {
		t.Fatalf("NewFromConfig: %v", err)
	}
	if _, ok := pub.(publish.LocalPublisher); !ok {
		t.Fatalf("expected LocalPublisher, got %T", pub)
	}
}

func TestS3PublisherUploadsArtifacts(t *testing.T) {
	store := newFakeStore(false)
	pub := publish.NewS3Publisher(store, publish.S3Settings{
		Endpoint: "s3.example.com",
		Bucket:   "videos",
		Prefix:   "narrator",
		UseSSL:   true,
	}, publish.LocalPublisher{})

	res, err := pub.Publish(context.Background(), publish.Artifacts{
		ItemID:        9,
		VideoPath:     "/staging/item-9/final.mp4",
		ThumbnailPath: "/staging/item-9/thumbnail.jpg",
	})
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if len(store.made) != 1 || store.made[0] != "videos" {
		t.Fatalf("expected bucket creation, got %v", store.made)
	}
	if store.puts["narrator/item-9/final.mp4"] != "/staging/item-9/final.mp4" {
		t.Fatalf("video not uploaded: %v", store.puts)
	}
	if store.contentType["narrator/item-9/thumbnail.jpg"] != "image/jpeg" {
		t.Fatalf("unexpected thumbnail content type: %v", store.contentType)
	}
	if res.VideoRef != "https://s3.example.com/videos/narrator/item-9/final.mp4" || !res.Uploaded {
		t.Fatalf("unexpected result %+v", res)
	}

	if _, err := pub.Publish(context.Background(), publish.Artifacts{ItemID: 10, VideoPath: "/v.mp4"}); err != nil {
		t.Fatalf("second Publish: %v", err)
	}
	if len(store.made) != 1 {
		t.Fatalf("bucket should be checked once, made=%v", store.made)
	}
}

func TestS3PublisherPublicBaseURL(t *testing.T) {
	pub := publish.NewS3Publisher(newFakeStore(true), publish.S3Settings{
		Endpoint:      "minio:9000",
		Bucket:        "videos",
		PublicBaseURL: "https://cdn.example/",
	}, publish.LocalPublisher{})
	if got := pub.ObjectURL(pub.ObjectKey(3, "final.mp4")); got != "https://cdn.example/item-3/final.mp4" {
		t.Fatalf("unexpected object URL %q", got)
	}
}

func TestS3PublisherUploadFailureKeepsFallbackRef(t *testing.T) {
	store := newFakeStore(true)
	store.failOn = "item-2/final.mp4"
	pub := publish.NewS3Publisher(store, publish.S3Settings{Endpoint: "s3", Bucket: "b"}, publish.LocalPublisher{})

	res, err := pub.Publish(context.Background(), publish.Artifacts{ItemID: 2, VideoPath: "/staging/item-2/final.mp4"})
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient error, got %v", err)
	}
	if res.VideoRef != "/staging/item-2/final.mp4" || res.Uploaded {
		t.Fatalf("expected local fallback ref, got %+v", res)
	}
}
