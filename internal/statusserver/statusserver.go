// Package statusserver is the optional --watch-addr companion to a running
// export(): a tiny read-only echo server exposing the phase, start time,
// and file counters held in a Tracker. The orchestrator does not write to
// the Tracker; cmd/bulkexport sets it to polling before Client.Export and
// to done or failed afterwards. It is never on the critical path of
// export() — a failure to serve status never fails an export
// (SPEC_FULL.md §3).
package statusserver

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// Phase names one state of the orchestrator's state machine.
type Phase string

const (
	PhaseInit        Phase = "init"
	PhasePolling     Phase = "polling"
	PhaseManifest    Phase = "manifest"
	PhaseDownloading Phase = "downloading"
	PhaseDone        Phase = "done"
	PhaseFailed      Phase = "failed"
)

// Snapshot is the current progress of one export() run, as published by
// the Tracker's owner via Tracker.Set and Tracker.Fail.
type Snapshot struct {
	Phase          Phase     `json:"phase"`
	StartedAt      time.Time `json:"startedAt"`
	FilesTotal     int       `json:"filesTotal"`
	FilesDone      int       `json:"filesDone"`
	LastError      string    `json:"lastError,omitempty"`
}

// Tracker is a concurrency-safe holder for the latest Snapshot, written by
// its owner and read by the HTTP handlers. NewTracker starts it at
// PhaseInit; the zero value reports an empty phase and zero StartedAt.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
}

// NewTracker constructs a Tracker with StartedAt set to now.
func NewTracker() *Tracker {
	return &Tracker{snap: Snapshot{Phase: PhaseInit, StartedAt: time.Now()}}
}

// Set replaces the current Snapshot's Phase and file counters.
func (t *Tracker) Set(phase Phase, filesTotal, filesDone int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.snap.Phase = phase
	t.snap.FilesTotal = filesTotal
	t.snap.FilesDone = filesDone
}

// Fail records a terminal error and transitions to PhaseFailed.
func (t *Tracker) Fail(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.snap.Phase = PhaseFailed
	if err != nil {
		t.snap.LastError = err.Error()
	}
}

// Snapshot returns a copy of the current state.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.snap
}

// Server is the echo-backed status server.
type Server struct {
	echo    *echo.Echo
	tracker *Tracker
	log     zerolog.Logger
}

// New builds a Server bound to tracker. Call Start to listen.
func New(tracker *Tracker, log zerolog.Logger) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	s := &Server{echo: e, tracker: tracker, log: log}

	e.GET("/healthz", s.handleHealthz)
	e.GET("/status", s.handleStatus)

	return s
}

func (s *Server) handleHealthz(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(c echo.Context) error {
	return c.JSON(http.StatusOK, s.tracker.Snapshot())
}

// Start listens on addr in the background. It never blocks export() — any
// listen failure is only logged, per this package's additive-only contract.
func (s *Server) Start(addr string) {
	go func() {
		if err := s.echo.Start(addr); err != nil && err != http.ErrServerClosed {
			s.log.Warn().Err(err).Str("addr", addr).Msg("status server stopped")
		}
	}()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}
