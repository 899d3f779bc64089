package publish

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func newTokenServer(t *testing.T, expiresAt time.Time, refreshed *int) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasPrefix(r.URL.Path, "/debug_token"):
			fmt.Fprintf(w, `{"data":{"is_valid":true,"expires_at":%d,"scopes":["content_publish"]}}`, expiresAt.Unix())
		case strings.HasPrefix(r.URL.Path, "/oauth/access_token"):
			if refreshed != nil {
				*refreshed++
			}
			fmt.Fprint(w, `{"access_token":"fresh-token","expires_in":5184000}`)
		default:
			t.Errorf("unexpected request to %s", r.URL.Path)
		}
	}))
}

func TestEnsureFreshRefreshesNearExpiry(t *testing.T) {
	now := time.Date(2026, 8, 23, 12, 0, 0, 0, time.UTC)
	refreshed := 0
	srv := newTokenServer(t, now.Add(3*24*time.Hour), &refreshed)
	defer srv.Close()

	client := newTestClient(srv.URL)
	tm := NewTokenManager(client, "app-id", "app-secret")
	tm.now = func() time.Time { return now }

	tm.EnsureFresh(context.Background())
	if refreshed != 1 {
		t.Fatalf("refreshed %d times; want 1 for token expiring in 3 days", refreshed)
	}
	if client.accessToken != "fresh-token" {
		t.Fatalf("client token = %q; want fresh-token", client.accessToken)
	}
}

func TestEnsureFreshSkipsHealthyToken(t *testing.T) {
	now := time.Date(2026, 8, 23, 12, 0, 0, 0, time.UTC)
	refreshed := 0
	srv := newTokenServer(t, now.Add(40*24*time.Hour), &refreshed)
	defer srv.Close()

	client := newTestClient(srv.URL)
	tm := NewTokenManager(client, "app-id", "app-secret")
	tm.now = func() time.Time { return now }

	tm.EnsureFresh(context.Background())
	if refreshed != 0 {
		t.Fatalf("refreshed %d times; want 0 for token with 40 days left", refreshed)
	}
	if client.accessToken != "test-token" {
		t.Fatalf("client token = %q; want unchanged", client.accessToken)
	}
}

func TestEnsureFreshToleratesRefreshFailure(t *testing.T) {
	now := time.Date(2026, 8, 23, 12, 0, 0, 0, time.UTC)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/debug_token") {
			fmt.Fprintf(w, `{"data":{"is_valid":true,"expires_at":%d}}`, now.Add(24*time.Hour).Unix())
			return
		}
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"error":{"message":"invalid app secret","code":101}}`)
	}))
	defer srv.Close()

	client := newTestClient(srv.URL)
	tm := NewTokenManager(client, "app-id", "bad-secret")
	tm.now = func() time.Time { return now }

	// Refresh failure must not panic or clear the working token.
	tm.EnsureFresh(context.Background())
	if client.accessToken != "test-token" {
		t.Fatalf("client token = %q; want original after failed refresh", client.accessToken)
	}
}

func TestInspectParsesExpiry(t *testing.T) {
	expires := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	srv := newTokenServer(t, expires, nil)
	defer srv.Close()

	client := newTestClient(srv.URL)
	tm := NewTokenManager(client, "", "")

	info, err := tm.Inspect(context.Background())
	if err != nil {
		t.Fatalf("Inspect: %v", err)
	}
	if !info.Valid {
		t.Fatal("token reported invalid")
	}
	if !info.ExpiresAt.Equal(expires) {
		t.Fatalf("expires = %v; want %v", info.ExpiresAt, expires)
	}
}
