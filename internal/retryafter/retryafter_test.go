package retryafter

import (
	"net/http"
	"testing"
	"time"
)

func TestParseDeltaSeconds(t *testing.T) {
	d, ok := Parse("5")
	if !ok {
		t.Fatal("expected ok")
	}
	if d != 5*time.Second {
		t.Fatalf("expected 5s, got %v", d)
	}
}

func TestParseNegativeDeltaSecondsRejected(t *testing.T) {
	if _, ok := Parse("-1"); ok {
		t.Fatal("expected negative delta-seconds to be rejected")
	}
}

func TestParseFutureHTTPDate(t *testing.T) {
	future := time.Now().Add(1 * time.Hour).UTC().Format(http.TimeFormat)
	d, ok := Parse(future)
	if !ok {
		t.Fatal("expected ok")
	}
	if d <= 0 {
		t.Fatalf("expected positive duration, got %v", d)
	}
}

func TestParsePastHTTPDateYieldsZero(t *testing.T) {
	past := time.Now().Add(-1 * time.Hour).UTC().Format(http.TimeFormat)
	d, ok := Parse(past)
	if !ok {
		t.Fatal("expected ok")
	}
	if d != 0 {
		t.Fatalf("expected zero duration for past date, got %v", d)
	}
}

func TestParseEmptyAndGarbage(t *testing.T) {
	for _, v := range []string{"", "not-a-date", "  "} {
		if _, ok := Parse(v); ok {
			t.Fatalf("expected %q to be rejected", v)
		}
	}
}

func TestOrDefault(t *testing.T) {
	if got := OrDefault("", 3*time.Second); got != 3*time.Second {
		t.Fatalf("expected default, got %v", got)
	}
	if got := OrDefault("2", 3*time.Second); got != 2*time.Second {
		t.Fatalf("expected parsed value, got %v", got)
	}
}
