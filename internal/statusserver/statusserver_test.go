package statusserver

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
)

func TestTrackerSetAndSnapshot(t *testing.T) {
	tr := NewTracker()
	if got := tr.Snapshot().Phase; got != PhaseInit {
		t.Fatalf("expected PhaseInit, got %s", got)
	}

	tr.Set(PhaseDownloading, 3, 1)
	snap := tr.Snapshot()
	if snap.Phase != PhaseDownloading || snap.FilesTotal != 3 || snap.FilesDone != 1 {
		t.Fatalf("unexpected snapshot %+v", snap)
	}
}

func TestTrackerFail(t *testing.T) {
	tr := NewTracker()
	tr.Fail(context.DeadlineExceeded)
	snap := tr.Snapshot()
	if snap.Phase != PhaseFailed {
		t.Fatalf("expected PhaseFailed, got %s", snap.Phase)
	}
	if snap.LastError == "" {
		t.Fatal("expected LastError to be populated")
	}
}

func TestHandlersServeSnapshot(t *testing.T) {
	tr := NewTracker()
	tr.Set(PhasePolling, 0, 0)
	srv := New(tr, zerolog.Nop())

	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	rec := httptest.NewRecorder()
	srv.echo.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var snap Snapshot
	if err := json.Unmarshal(rec.Body.Bytes(), &snap); err != nil {
		t.Fatal(err)
	}
	if snap.Phase != PhasePolling {
		t.Fatalf("expected PhasePolling, got %s", snap.Phase)
	}

	healthReq := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	healthRec := httptest.NewRecorder()
	srv.echo.ServeHTTP(healthRec, healthReq)
	if healthRec.Code != http.StatusOK {
		t.Fatalf("expected 200 from /healthz, got %d", healthRec.Code)
	}
}
