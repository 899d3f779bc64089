package inspire

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

const feedXML = `<?xml version="1.0"?>
<rss version="2.0">
  <channel>
    <title>Business Briefs</title>
    <item><title>Discipline beats motivation</title></item>
    <item><title>The solo founder playbook</title></item>
    <item><title></title></item>
  </channel>
</rss>`

func TestThemeReturnsFeedTitle(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, feedXML)
	}))
	defer srv.Close()

	p := NewThemeProvider(srv.URL)
	theme := p.Theme(context.Background())
	if theme != "Discipline beats motivation" && theme != "The solo founder playbook" {
		t.Fatalf("theme = %q; want one of the feed titles", theme)
	}
}

func TestThemeCachesBetweenCalls(t *testing.T) {
	fetches := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fetches++
		fmt.Fprint(w, feedXML)
	}))
	defer srv.Close()

	p := NewThemeProvider(srv.URL)
	for i := 0; i < 5; i++ {
		if p.Theme(context.Background()) == "" {
			t.Fatal("Theme returned empty with a healthy feed")
		}
	}
	if fetches != 1 {
		t.Fatalf("fetched %d times; want 1 within the cache window", fetches)
	}
}

func TestThemeRefreshesAfterTTL(t *testing.T) {
	fetches := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fetches++
		fmt.Fprint(w, feedXML)
	}))
	defer srv.Close()

	p := NewThemeProvider(srv.URL)
	p.ttl = time.Nanosecond

	p.Theme(context.Background())
	time.Sleep(time.Millisecond)
	p.Theme(context.Background())
	if fetches != 2 {
		t.Fatalf("fetched %d times; want 2 after TTL expiry", fetches)
	}
}

func TestThemeDegradesOnFeedOutage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	p := NewThemeProvider(srv.URL)
	if theme := p.Theme(context.Background()); theme != "" {
		t.Fatalf("theme = %q; want empty on feed outage", theme)
	}
}

func TestThemeWithoutFeedConfigured(t *testing.T) {
	p := NewThemeProvider("")
	if theme := p.Theme(context.Background()); theme != "" {
		t.Fatalf("theme = %q; want empty with no feed", theme)
	}

	var nilProvider *ThemeProvider
	if theme := nilProvider.Theme(context.Background()); theme != "" {
		t.Fatal("nil provider must return empty theme")
	}
}
