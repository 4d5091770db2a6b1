package export

import (
	"encoding/json"
	"testing"
	"time"
)

func TestInstantRoundTrip(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 123_000_000, time.UTC)
	s := formatFhirInstant(now)
	got, err := parseFhirInstant(s)
	if err != nil {
		t.Fatal(err)
	}
	if !got.Equal(now) {
		t.Fatalf("round trip mismatch: got %v want %v", got, now)
	}
}

func TestFormatIsUTCWithZ(t *testing.T) {
	loc := time.FixedZone("test", 3600)
	tm := time.Date(2024, 1, 1, 1, 0, 0, 0, loc)
	s := formatFhirInstant(tm)
	if s != "2024-01-01T00:00:00.000Z" {
		t.Fatalf("expected UTC rendering with Z, got %s", s)
	}
}

func TestParseLooseTransactionTimeString(t *testing.T) {
	got, err := parseLooseTransactionTime(json.RawMessage(`"2024-01-01T00:00:00.000Z"`))
	if err != nil {
		t.Fatal(err)
	}
	want := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("got %v want %v", got, want)
	}
}

func TestParseLooseTransactionTimeNumber(t *testing.T) {
	ms := int64(1704067200000)
	got, err := parseLooseTransactionTime(json.RawMessage("1704067200000"))
	if err != nil {
		t.Fatal(err)
	}
	if got.UnixMilli() != ms {
		t.Fatalf("got %v want ms=%d", got, ms)
	}
}

func TestParseLooseTransactionTimeNumericString(t *testing.T) {
	got, err := parseLooseTransactionTime(json.RawMessage(`"1704067200000"`))
	if err != nil {
		t.Fatal(err)
	}
	if got.UnixMilli() != 1704067200000 {
		t.Fatalf("unexpected result %v", got)
	}
}
