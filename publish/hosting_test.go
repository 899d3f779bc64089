package publish

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func stageMediaFile(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte("media bytes"), 0o644); err != nil {
		t.Fatalf("stage media file: %v", err)
	}
	return path
}

// fakeObjectStore records puts and answers Exists from its object set.
type fakeObjectStore struct {
	objects map[string]bool
	puts    []string
}

func (f *fakeObjectStore) Put(ctx context.Context, bucket, key string, body io.Reader, contentType string) error {
	if f.objects == nil {
		f.objects = map[string]bool{}
	}
	f.objects[key] = true
	f.puts = append(f.puts, key)
	return nil
}

func (f *fakeObjectStore) Exists(ctx context.Context, bucket, key string) (bool, error) {
	return f.objects[key], nil
}

func TestBaseURLHostRewritesPath(t *testing.T) {
	h := BaseURLHost{Base: "https://media.example.com/out/"}
	url, err := h.HostFile(context.Background(), "/srv/output/run-1_reel.mp4")
	if err != nil {
		t.Fatalf("HostFile: %v", err)
	}
	if url != "https://media.example.com/out/run-1_reel.mp4" {
		t.Fatalf("url = %q", url)
	}
}

func TestS3HostUploadsAndBuildsObjectURL(t *testing.T) {
	store := &fakeObjectStore{}
	h := &S3Host{Client: store, Bucket: "stoicbot-media", Region: "ap-southeast-1", Prefix: "posts"}

	path := stageMediaFile(t, "run-1_reel.mp4")
	url, err := h.HostFile(context.Background(), path)
	if err != nil {
		t.Fatalf("HostFile: %v", err)
	}
	if url != "https://stoicbot-media.s3.ap-southeast-1.amazonaws.com/posts/run-1_reel.mp4" {
		t.Fatalf("url = %q", url)
	}
	if len(store.puts) != 1 || store.puts[0] != "posts/run-1_reel.mp4" {
		t.Fatalf("puts = %v; want the prefixed key", store.puts)
	}
}

func TestS3HostSkipsUploadWhenObjectExists(t *testing.T) {
	store := &fakeObjectStore{objects: map[string]bool{"run-1_reel.mp4": true}}
	h := &S3Host{Client: store, Bucket: "b", Region: "us-east-1", PublicBase: "https://cdn.example.com"}

	// A retried publish re-hosts the same artifact; it must not re-upload.
	path := stageMediaFile(t, "run-1_reel.mp4")
	url, err := h.HostFile(context.Background(), path)
	if err != nil {
		t.Fatalf("HostFile: %v", err)
	}
	if url != "https://cdn.example.com/run-1_reel.mp4" {
		t.Fatalf("url = %q", url)
	}
	if len(store.puts) != 0 {
		t.Fatalf("made %d uploads for an already-hosted object; want 0", len(store.puts))
	}
}

func TestFileHostParsesPlainTextURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse multipart: %v", err)
		}
		if r.FormValue("reqtype") != "fileupload" {
			t.Errorf("reqtype = %q", r.FormValue("reqtype"))
		}
		fmt.Fprint(w, "https://files.example.com/abc123.mp4\n")
	}))
	defer srv.Close()

	h := &FileHost{Endpoint: srv.URL}
	url, err := h.HostFile(context.Background(), stageMediaFile(t, "clip.mp4"))
	if err != nil {
		t.Fatalf("HostFile: %v", err)
	}
	if url != "https://files.example.com/abc123.mp4" {
		t.Fatalf("url = %q", url)
	}
}

func TestFileHostRejectsNonURLBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "Something went wrong")
	}))
	defer srv.Close()

	h := &FileHost{Endpoint: srv.URL}
	if _, err := h.HostFile(context.Background(), stageMediaFile(t, "clip.mp4")); err == nil {
		t.Fatal("expected an error for a non-URL response body")
	}
}

type failingHost struct{ err error }

func (h failingHost) HostFile(ctx context.Context, path string) (string, error) {
	return "", h.err
}

func TestHostChainFallsThroughToFirstSuccess(t *testing.T) {
	chain := HostChain{
		failingHost{err: fmt.Errorf("%w: not configured", ErrNoHost)},
		failingHost{err: errors.New("bucket unreachable")},
		BaseURLHost{Base: "https://media.example.com"},
	}

	url, err := chain.HostFile(context.Background(), "/out/run.mp4")
	if err != nil {
		t.Fatalf("HostFile: %v", err)
	}
	if url != "https://media.example.com/run.mp4" {
		t.Fatalf("url = %q", url)
	}
}

func TestHostChainReportsAllFailures(t *testing.T) {
	chain := HostChain{
		failingHost{err: errors.New("first down")},
		failingHost{err: errors.New("second down")},
	}

	_, err := chain.HostFile(context.Background(), "/out/run.mp4")
	if !errors.Is(err, ErrNoHost) {
		t.Fatalf("err = %v; want ErrNoHost", err)
	}
	if !strings.Contains(err.Error(), "first down") || !strings.Contains(err.Error(), "second down") {
		t.Fatalf("error does not carry every backend failure: %v", err)
	}
}
