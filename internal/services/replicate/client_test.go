package replicate_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"narrator/internal/services"
	"narrator/internal/services/replicate"
)

func noSleep(context.Context, time.Duration) error { return nil }

func TestGenerateImageSubmitsPollsAndDownloads(t *testing.T) {
	var polls atomic.Int32
	var server *httptest.Server
	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/models/acme/flux/predictions":
			if got := r.Header.Get("Authorization"); got != "Bearer token" {
				t.Errorf("unexpected authorization %q", got)
			}
			var body map[string]map[string]any
			if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
				t.Errorf("decode request: %v", err)
			}
			if body["input"]["prompt"] != "a desert at dawn" || body["input"]["aspect_ratio"] != "16:9" {
				t.Errorf("unexpected input %v", body["input"])
			}
			_ = json.NewEncoder(w).Encode(map[string]any{"id": "p1", "status": "starting"})
		case r.Method == http.MethodGet && r.URL.Path == "/predictions/p1":
			if polls.Add(1) < 2 {
				_ = json.NewEncoder(w).Encode(map[string]any{"id": "p1", "status": "processing"})
				return
			}
			_ = json.NewEncoder(w).Encode(map[string]any{
				"id":     "p1",
				"status": "succeeded",
				"output": []string{server.URL + "/files/out.jpg"},
			})
		case r.URL.Path == "/files/out.jpg":
			_, _ = w.Write([]byte{0xFF, 0xD8, 0xFF, 0xE0, 'j', 'p', 'g'})
		default:
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	client := replicate.NewClient(replicate.Config{
		APIToken:    "token",
		BaseURL:     server.URL,
		Model:       "acme/flux",
		AspectRatio: "16:9",
		MaxPolls:    5,
	}, replicate.WithSleeper(noSleep))

	dest := filepath.Join(t.TempDir(), "scene_01.jpg")
	url, err := client.GenerateImage(context.Background(), "a desert at dawn", dest)
	if err != nil {
		t.Fatalf("GenerateImage returned error: %v", err)
	}
	if url != server.URL+"/files/out.jpg" {
		t.Fatalf("unexpected source url %q", url)
	}
	data, err := os.ReadFile(dest)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if len(data) != 7 || data[0] != 0xFF {
		t.Fatalf("unexpected output bytes %v", data)
	}
	if polls.Load() != 2 {
		t.Fatalf("expected 2 polls, got %d", polls.Load())
	}
}

func TestWaitFailedPredictionIsTransient(t *testing.T) {
	client := replicate.NewClient(replicate.Config{APIToken: "token"}, replicate.WithSleeper(noSleep))
	_, err := client.Wait(context.Background(), replicate.Prediction{ID: "p1", Status: replicate.StatusFailed, Error: "NSFW"})
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient error, got %v", err)
	}
}

func TestWaitTimesOutAfterMaxPolls(t *testing.T) {
	var polls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		polls.Add(1)
		_ = json.NewEncoder(w).Encode(map[string]any{"id": "p1", "status": "processing"})
	}))
	defer server.Close()

	var sleeps int
	client := replicate.NewClient(replicate.Config{APIToken: "token", BaseURL: server.URL, MaxPolls: 3},
		replicate.WithSleeper(func(context.Context, time.Duration) error {
			sleeps++
			return nil
		}))
	_, err := client.Wait(context.Background(), replicate.Prediction{ID: "p1", Status: replicate.StatusStarting})
	if !errors.Is(err, services.ErrTimeout) || !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient timeout, got %v", err)
	}
	if polls.Load() != 3 || sleeps != 3 {
		t.Fatalf("expected 3 polls and sleeps, got %d polls %d sleeps", polls.Load(), sleeps)
	}
}

func TestCreatePredictionQuotaIsFatal(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusPaymentRequired)
		_, _ = w.Write([]byte(`{"detail":"You have insufficient credit"}`))
	}))
	defer server.Close()

	client := replicate.NewClient(replicate.Config{APIToken: "token", BaseURL: server.URL, Model: "acme/flux"})
	_, err := client.CreatePrediction(context.Background(), "prompt")
	if !errors.Is(err, services.ErrFatal) {
		t.Fatalf("expected fatal error, got %v", err)
	}
}

func TestDownloadMissingOutputIsRetryable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer server.Close()

	client := replicate.NewClient(replicate.Config{APIToken: "token", BaseURL: server.URL})
	dest := filepath.Join(t.TempDir(), "scene_01.jpg")
	err := client.Download(context.Background(), server.URL+"/files/out.jpg", dest)
	if err == nil {
		t.Fatal("expected download error")
	}
	if !errors.Is(err, services.ErrTransient) || !services.IsRetryable(err) {
		t.Fatalf("expected retryable download error, got %v", err)
	}
	if _, statErr := os.Stat(dest); !os.IsNotExist(statErr) {
		t.Fatalf("failed download must not leave a file, stat err %v", statErr)
	}
}

func TestCreatePredictionRequiresToken(t *testing.T) {
	client := replicate.NewClient(replicate.Config{})
	_, err := client.CreatePrediction(context.Background(), "prompt")
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestPredictionOutputURL(t *testing.T) {
	cases := map[string]string{
		`"https://x/a.jpg"`:        "https://x/a.jpg",
		`["https://x/b.jpg","c"]`:  "https://x/b.jpg",
		`["", "https://x/c.webp"]`: "https://x/c.webp",
	}
	for raw, want := range cases {
		got, err := replicate.Prediction{Output: json.RawMessage(raw)}.OutputURL()
		if err != nil {
			t.Fatalf("OutputURL(%s) returned error: %v", raw, err)
		}
		if got != want {
			t.Fatalf("OutputURL(%s) = %q, want %q", raw, got, want)
		}
	}
	if _, err := (replicate.Prediction{Output: json.RawMessage(`null`)}).OutputURL(); err == nil {
		t.Fatal("expected error for null output")
	}
	if _, err := (replicate.Prediction{Output: json.RawMessage(`{"url":1}`)}).OutputURL(); err == nil {
		t.Fatal("expected error for object output")
	}
}
