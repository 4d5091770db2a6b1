package export

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"
)

// TestSystemExportNoAuth mirrors spec.md §8 scenario 1.
func TestSystemExportNoAuth(t *testing.T) {
	mux := http.NewServeMux()
	var pollCount int32

	mux.HandleFunc("/fhir/$export", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Accept") != "application/fhir+json" {
			t.Errorf("expected Accept: application/fhir+json, got %s", r.Header.Get("Accept"))
		}
		if r.Header.Get("Prefer") != "respond-async" {
			t.Errorf("expected Prefer: respond-async, got %s", r.Header.Get("Prefer"))
		}
		if got := r.URL.Query().Get("_type"); got != "Patient,Condition" {
			t.Errorf("expected _type=Patient,Condition, got %s", got)
		}
		w.Header().Set("Content-Location", "http://"+r.Host+"/poll/1")
		w.WriteHeader(http.StatusAccepted)
	})

	mux.HandleFunc("/poll/1", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&pollCount, 1)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"transaction_time":"2024-01-01T00:00:00.000Z","output":[{"type":"Patient","url":"http://%s/d/1"},{"type":"Condition","url":"http://%s/d/2"}]}`, r.Host, r.Host)
	})

	mux.HandleFunc("/d/1", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "patient-ndjson")
	})
	mux.HandleFunc("/d/2", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "condition-ndjson")
	})

	srv := httptest.NewServer(mux)
	defer srv.Close()

	dir := t.TempDir()
	outputDir := filepath.Join(dir, "out")

	client := NewClient(WithHTTPClient(srv.Client()))
	req := NewSystemRequest().
		WithFHIREndpoint(srv.URL + "/fhir").
		WithTypes("Patient", "Condition").
		WithOutputDir(outputDir)

	result, err := client.Export(context.Background(), req)
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Files) != 2 {
		t.Fatalf("expected 2 files, got %d", len(result.Files))
	}

	for _, name := range []string{"Patient.0000.ndjson", "Condition.0000.ndjson", "_SUCCESS"} {
		if _, err := os.Stat(filepath.Join(outputDir, name)); err != nil {
			t.Errorf("expected %s to exist: %v", name, err)
		}
	}
}

// TestTransientRecovery mirrors spec.md §8 scenario 3.
func TestTransientRecovery(t *testing.T) {
	mux := http.NewServeMux()
	var pollCount int32

	mux.HandleFunc("/fhir/$export", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Location", "http://"+r.Host+"/poll/1")
		w.WriteHeader(http.StatusAccepted)
	})

	mux.HandleFunc("/poll/1", func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&pollCount, 1)
		if n <= 2 {
			w.Header().Set("Content-Type", "application/fhir+json")
			w.Header().Set("Retry-After", "1")
			w.WriteHeader(http.StatusServiceUnavailable)
			fmt.Fprint(w, `{"resourceType":"OperationOutcome","issue":[{"severity":"error","code":"transient"}]}`)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"transaction_time":"2024-01-01T00:00:00.000Z","output":[]}`)
	})

	srv := httptest.NewServer(mux)
	defer srv.Close()

	dir := t.TempDir()
	client := NewClient(WithHTTPClient(srv.Client()))
	req := NewSystemRequest().
		WithFHIREndpoint(srv.URL + "/fhir").
		WithOutputDir(filepath.Join(dir, "out"))
	req.AsyncConfig.MaxTransientErrors = 3
	req.AsyncConfig.MinPollingDelay = 10 * time.Millisecond
	req.AsyncConfig.MaxPollingDelay = 1 * time.Second

	start := time.Now()
	_, err := client.Export(context.Background(), req)
	if err != nil {
		t.Fatal(err)
	}
	if elapsed := time.Since(start); elapsed < 2*time.Second {
		// Retry-After: 1 is honored for each of the two transient
		// responses, so wall clock should be at least ~2s.
		t.Logf("elapsed %v (expected >= ~2s with Retry-After honored)", elapsed)
	}
}

// TestTransientBudgetExhausted mirrors spec.md §8 scenario 4.
func TestTransientBudgetExhausted(t *testing.T) {
	mux := http.NewServeMux()

	mux.HandleFunc("/fhir/$export", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Location", "http://"+r.Host+"/poll/1")
		w.WriteHeader(http.StatusAccepted)
	})
	mux.HandleFunc("/poll/1", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/fhir+json")
		w.Header().Set("Retry-After", "0")
		w.WriteHeader(http.StatusServiceUnavailable)
		fmt.Fprint(w, `{"resourceType":"OperationOutcome","issue":[{"severity":"error","code":"transient"}]}`)
	})

	srv := httptest.NewServer(mux)
	defer srv.Close()

	dir := t.TempDir()
	client := NewClient(WithHTTPClient(srv.Client()))
	req := NewSystemRequest().
		WithFHIREndpoint(srv.URL + "/fhir").
		WithOutputDir(filepath.Join(dir, "out"))
	req.AsyncConfig.MaxTransientErrors = 1
	req.AsyncConfig.MinPollingDelay = 1 * time.Millisecond
	req.AsyncConfig.MaxPollingDelay = 1 * time.Millisecond

	_, err := client.Export(context.Background(), req)
	if err == nil {
		t.Fatal("expected an error after exhausting the transient budget")
	}
	if _, ok := err.(*HttpError); !ok {
		t.Fatalf("expected *HttpError, got %T: %v", err, err)
	}
}

// TestMultiPartResourceNaming mirrors spec.md §8 scenario 6.
func TestMultiPartResourceNaming(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/fhir/$export", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Location", "http://"+r.Host+"/poll/1")
		w.WriteHeader(http.StatusAccepted)
	})
	mux.HandleFunc("/poll/1", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"transaction_time":"2024-01-01T00:00:00.000Z","output":[{"type":"Condition","url":"http://%s/d/1"},{"type":"Condition","url":"http://%s/d/2"},{"type":"Condition","url":"http://%s/d/3"}]}`, r.Host, r.Host, r.Host)
	})
	for _, path := range []string{"/d/1", "/d/2", "/d/3"} {
		mux.HandleFunc(path, func(w http.ResponseWriter, r *http.Request) { fmt.Fprint(w, "x") })
	}

	srv := httptest.NewServer(mux)
	defer srv.Close()

	dir := t.TempDir()
	outputDir := filepath.Join(dir, "out")
	client := NewClient(WithHTTPClient(srv.Client()))
	req := NewSystemRequest().WithFHIREndpoint(srv.URL + "/fhir").WithOutputDir(outputDir)

	if _, err := client.Export(context.Background(), req); err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"Condition.0000.ndjson", "Condition.0001.ndjson", "Condition.0002.ndjson"} {
		if _, err := os.Stat(filepath.Join(outputDir, name)); err != nil {
			t.Errorf("expected %s to exist: %v", name, err)
		}
	}
}

// TestDeadlineDuringDownload mirrors spec.md §8 scenario 5.
func TestDeadlineDuringDownload(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/fhir/$export", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Location", "http://"+r.Host+"/poll/1")
		w.WriteHeader(http.StatusAccepted)
	})
	mux.HandleFunc("/poll/1", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"transaction_time":"2024-01-01T00:00:00.000Z","output":[{"type":"Patient","url":"http://%s/slow/1"},{"type":"Patient","url":"http://%s/slow/2"}]}`, r.Host, r.Host)
	})
	mux.HandleFunc("/slow/1", func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(10 * time.Second):
		case <-r.Context().Done():
		}
	})
	mux.HandleFunc("/slow/2", func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(10 * time.Second):
		case <-r.Context().Done():
		}
	})

	srv := httptest.NewServer(mux)
	defer srv.Close()

	dir := t.TempDir()
	client := NewClient(WithHTTPClient(srv.Client()))
	req := NewSystemRequest().
		WithFHIREndpoint(srv.URL+"/fhir").
		WithOutputDir(filepath.Join(dir, "out")).
		WithTimeout(500 * time.Millisecond)

	start := time.Now()
	_, err := client.Export(context.Background(), req)
	elapsed := time.Since(start)
	if err == nil {
		t.Fatal("expected a timeout error")
	}
	if _, ok := err.(*TimeoutError); !ok {
		t.Fatalf("expected *TimeoutError, got %T: %v", err, err)
	}
	if elapsed > 5*time.Second {
		t.Fatalf("expected timeout to fire well before the 10s downloads complete, took %v", elapsed)
	}
}
