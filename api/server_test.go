package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"stoicbot/assets"
	"stoicbot/state"
	"stoicbot/store"
	"stoicbot/types"
)

func newTestServer(t *testing.T) (*Server, *store.MemoryStore, *state.Manager) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	st := store.NewMemoryStore()
	status := state.NewManager()
	images := assets.NewImagePool(t.TempDir())
	s := NewServer(status, st, images, nil, "0")
	return s, st, status
}

func do(s *Server, method, path, body string) *httptest.ResponseRecorder {
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	w := httptest.NewRecorder()
	s.httpServer.Handler.ServeHTTP(w, req)
	return w
}

func TestHealthEndpoint(t *testing.T) {
	s, _, _ := newTestServer(t)
	w := do(s, http.MethodGet, "/api/health", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d; want 200", w.Code)
	}
}

func TestStatusEndpointReportsCounter(t *testing.T) {
	s, st, status := newTestServer(t)
	if err := st.WriteCounterIfUnchanged(context.Background(), 0, 12); err != nil {
		t.Fatalf("seed counter: %v", err)
	}
	status.SetNextFormat(types.FormatCarousel)

	w := do(s, http.MethodGet, "/api/status", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d; want 200", w.Code)
	}

	var resp types.StatusResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.PostCount != 12 {
		t.Fatalf("post_count = %d; want 12", resp.PostCount)
	}
	if resp.NextFormat != types.FormatCarousel {
		t.Fatalf("next_format = %s; want carousel", resp.NextFormat)
	}
}

func TestRunsEndpointFiltersByDate(t *testing.T) {
	s, st, _ := newTestServer(t)
	day := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	err := st.AppendRun(context.Background(), types.RunRecord{
		RunID:     "r1",
		Format:    types.FormatReel,
		Number:    1,
		StartTime: day,
		Status:    types.RunCompleted,
	})
	if err != nil {
		t.Fatalf("seed run: %v", err)
	}

	w := do(s, http.MethodGet, "/api/runs?date=2026-03-02", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d; want 200", w.Code)
	}
	var resp struct {
		Date string            `json:"date"`
		Runs []types.RunRecord `json:"runs"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Runs) != 1 || resp.Runs[0].RunID != "r1" {
		t.Fatalf("runs = %+v; want the seeded run", resp.Runs)
	}

	w = do(s, http.MethodGet, "/api/runs?date=2026-03-03", "")
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Runs) != 0 {
		t.Fatalf("runs = %+v; want empty for another day", resp.Runs)
	}
}

func TestRunsEndpointRejectsBadDate(t *testing.T) {
	s, _, _ := newTestServer(t)
	w := do(s, http.MethodGet, "/api/runs?date=yesterday", "")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d; want 400", w.Code)
	}
}

func TestTriggerRejectsUnknownFormat(t *testing.T) {
	s, _, _ := newTestServer(t)
	w := do(s, http.MethodPost, "/api/run", `{"format":"hologram"}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d; want 400", w.Code)
	}
}

func TestTriggerConflictsWhileBusy(t *testing.T) {
	s, _, status := newTestServer(t)
	status.SetState(types.StatePublishing)

	w := do(s, http.MethodPost, "/api/run", "")
	if w.Code != http.StatusConflict {
		t.Fatalf("status = %d; want 409 while publishing", w.Code)
	}
}

func TestAssetStatsEndpoint(t *testing.T) {
	s, _, _ := newTestServer(t)
	w := do(s, http.MethodGet, "/api/assets/stats", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d; want 200", w.Code)
	}
	var stats assets.Stats
	if err := json.Unmarshal(w.Body.Bytes(), &stats); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if stats.Curated != 0 || stats.Generated != 0 {
		t.Fatalf("stats = %+v; want empty library", stats)
	}
}
