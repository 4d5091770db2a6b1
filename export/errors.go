package export

import (
	"fmt"
	"time"
)

// ConfigurationError is raised when request validation fails, or when the
// destination directory already exists. Always raised before any network
// I/O (spec.md §7).
type ConfigurationError struct {
	Message string
}

func (e *ConfigurationError) Error() string { return e.Message }

// HttpError is raised for any non-classifiable non-2xx response from a
// protocol call, or a non-200 from a download.
type HttpError struct {
	Status     int
	Outcome    *OperationOutcome
	RetryAfter time.Duration
	HasRetry   bool
	Message    string
}

func (e *HttpError) Error() string {
	if e.Outcome != nil && len(e.Outcome.Issue) > 0 {
		return fmt.Sprintf("%s: HTTP %d: %s", e.Message, e.Status, e.Outcome.Issue[0].Diagnostics)
	}
	return fmt.Sprintf("%s: HTTP %d", e.Message, e.Status)
}

// transientError is the internal (unexported) signal used by the polling
// loop to distinguish a budgeted-retry response from a fatal one; it is
// never returned to callers of Client.Export — either the loop consumes it
// and retries, or the budget is exhausted and an *HttpError surfaces
// instead (spec.md §7).
type transientError struct {
	status  int
	outcome *OperationOutcome
	retryAfter time.Duration
	hasRetry   bool
}

func (e *transientError) Error() string {
	return fmt.Sprintf("transient error: HTTP %d", e.status)
}

// ProtocolError is raised for a malformed manifest, a missing
// Content-Location on an Accepted response, or unparseable JSON.
type ProtocolError struct {
	Message string
}

func (e *ProtocolError) Error() string { return e.Message }

// DownloadError wraps the first failure observed by the download engine.
type DownloadError struct {
	Cause error
}

func (e *DownloadError) Error() string { return fmt.Sprintf("download failed: %v", e.Cause) }
func (e *DownloadError) Unwrap() error { return e.Cause }

// TimeoutError is raised when the global deadline expires during polling or
// downloading.
type TimeoutError struct {
	Elapsed time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("export timed out after %s", e.Elapsed)
}

// SystemError wraps a task interruption or destination I/O failure outside
// the protocol itself.
type SystemError struct {
	Cause error
}

func (e *SystemError) Error() string { return fmt.Sprintf("system error: %v", e.Cause) }
func (e *SystemError) Unwrap() error { return e.Cause }
