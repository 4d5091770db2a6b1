package history

import "testing"

func TestNullableString(t *testing.T) {
	if got := nullableString(""); got != nil {
		t.Errorf("expected nil for empty string, got %v", got)
	}
	if got := nullableString("boom"); got != "boom" {
		t.Errorf("expected 'boom', got %v", got)
	}
}

func TestRunFields(t *testing.T) {
	r := Run{
		ID:              "run-1",
		Level:            "System",
		FHIREndpointURL: "http://srv/fhir",
		Succeeded:       true,
		FileCount:       2,
		TotalBytes:      1024,
	}
	if r.Level != "System" {
		t.Errorf("expected Level System, got %s", r.Level)
	}
	if !r.Succeeded {
		t.Error("expected Succeeded true")
	}
	if r.FileCount != 2 || r.TotalBytes != 1024 {
		t.Errorf("unexpected counters: %+v", r)
	}
}
