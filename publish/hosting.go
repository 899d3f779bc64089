package publish

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"mime"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// ErrNoHost means no hosting backend could produce a public URL.
var ErrNoHost = errors.New("no media hosting backend available")

// Host turns a local media file into a publicly fetchable URL. The platform
// downloads containers from URLs, never accepts direct uploads.
type Host interface {
	HostFile(ctx context.Context, path string) (string, error)
}

// BaseURLHost assumes the output directory is already served at a public
// base URL, so hosting is just a path rewrite.
type BaseURLHost struct {
	Base string
}

func (h BaseURLHost) HostFile(ctx context.Context, path string) (string, error) {
	if h.Base == "" {
		return "", fmt.Errorf("%w: no public base url configured", ErrNoHost)
	}
	return strings.TrimRight(h.Base, "/") + "/" + filepath.Base(path), nil
}

// ObjectStore is the slice of the S3 wrapper the host needs.
type ObjectStore interface {
	Put(ctx context.Context, bucket, key string, body io.Reader, contentType string) error
	Exists(ctx context.Context, bucket, key string) (bool, error)
}

// S3Host uploads media to a bucket and returns its public object URL.
type S3Host struct {
	Client     ObjectStore
	Bucket     string
	Region     string
	Prefix     string
	PublicBase string
}

func (h *S3Host) HostFile(ctx context.Context, path string) (string, error) {
	if h.Client == nil || h.Bucket == "" {
		return "", fmt.Errorf("%w: s3 not configured", ErrNoHost)
	}

	key := filepath.Base(path)
	if h.Prefix != "" {
		key = h.Prefix + "/" + key
	}

	// Run IDs make keys unique, so an existing object is this artifact
	// already hosted by an earlier publish attempt. Skip the re-upload.
	if ok, err := h.Client.Exists(ctx, h.Bucket, key); err == nil && ok {
		return h.objectURL(key), nil
	}

	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open media file: %w", err)
	}
	defer f.Close()

	contentType := mime.TypeByExtension(filepath.Ext(path))
	if err := h.Client.Put(ctx, h.Bucket, key, f, contentType); err != nil {
		return "", fmt.Errorf("s3 upload: %w", err)
	}
	return h.objectURL(key), nil
}

func (h *S3Host) objectURL(key string) string {
	if h.PublicBase != "" {
		return strings.TrimRight(h.PublicBase, "/") + "/" + key
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", h.Bucket, h.Region, key)
}

// FileHost uploads to a catbox-style multipart endpoint that answers with
// the hosted URL as its plain-text body.
type FileHost struct {
	Endpoint   string
	HTTPClient *http.Client
}

func (h *FileHost) HostFile(ctx context.Context, path string) (string, error) {
	if h.Endpoint == "" {
		return "", fmt.Errorf("%w: no file host endpoint configured", ErrNoHost)
	}

	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open media file: %w", err)
	}
	defer f.Close()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if err := w.WriteField("reqtype", "fileupload"); err != nil {
		return "", err
	}
	part, err := w.CreateFormFile("fileToUpload", filepath.Base(path))
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(part, f); err != nil {
		return "", fmt.Errorf("stage upload: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.Endpoint, &buf)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	client := h.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 2 * time.Minute}
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("file host upload: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err != nil {
		return "", fmt.Errorf("read file host response: %w", err)
	}
	hosted := strings.TrimSpace(string(body))
	if resp.StatusCode != http.StatusOK || !strings.HasPrefix(hosted, "http") {
		return "", fmt.Errorf("file host returned %d: %s", resp.StatusCode, hosted)
	}
	return hosted, nil
}

// HostChain tries each backend in order and returns the first URL. All
// failures are reported together when nothing works.
type HostChain []Host

func (c HostChain) HostFile(ctx context.Context, path string) (string, error) {
	var errs []string
	for _, h := range c {
		hosted, err := h.HostFile(ctx, path)
		if err == nil {
			return hosted, nil
		}
		if !errors.Is(err, ErrNoHost) {
			log.Printf("hosting backend failed: %v", err)
		}
		errs = append(errs, err.Error())
	}
	return "", fmt.Errorf("%w: %s", ErrNoHost, strings.Join(errs, "; "))
}
