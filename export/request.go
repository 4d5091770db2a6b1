package export

import (
	"time"

	"github.com/flatfhir/bulkexport/internal/auth"
)

// Reference is an opaque FHIR reference value carrier, e.g. "Patient/0001".
// The FHIR data model beyond this is explicitly out of scope (spec.md §1).
type Reference struct {
	Reference string
}

// AsyncConfig controls the polling half of the orchestrator (C6), per
// spec.md §4.7.
type AsyncConfig struct {
	// MaxTransientErrors bounds cumulative TransientError responses during
	// polling before the whole export fails.
	MaxTransientErrors int
	// MinPollingDelay is used when the status response carries no
	// Retry-After header.
	MinPollingDelay time.Duration
	// MaxPollingDelay ceilings any server-suggested delay.
	MaxPollingDelay time.Duration
}

// DefaultAsyncConfig mirrors the source's defaults: a modest transient
// budget and a 1s..60s polling delay window.
func DefaultAsyncConfig() AsyncConfig {
	return AsyncConfig{
		MaxTransientErrors: 5,
		MinPollingDelay:    1 * time.Second,
		MaxPollingDelay:    60 * time.Second,
	}
}

// HTTPClientConfig describes transport-level settings (C9), independent of
// the protocol-level classification in C5. It is carried on the Request,
// but Client does not read it: every request goes through the *http.Client
// given to NewClient (or its default), so none of the fields below takes
// effect and no connection-pool warning is logged.
type HTTPClientConfig struct {
	// RetryCount bounds transport-level retries on socket failures, never on
	// HTTP status — status-level retry is the orchestrator's job.
	RetryCount int
	// SocketTimeout is the per-request read timeout.
	SocketTimeout time.Duration
	// MaxConnectionsPerRoute ceilings the connection pool. A warning (not an
	// error) is logged if this is below MaxConcurrentDownloads.
	MaxConnectionsPerRoute int
}

// DefaultHTTPClientConfig mirrors the source's transport defaults.
func DefaultHTTPClientConfig() HTTPClientConfig {
	return HTTPClientConfig{
		RetryCount:             3,
		SocketTimeout:          30 * time.Second,
		MaxConnectionsPerRoute: 20,
	}
}

// Request is the validated input to the core orchestrator (C6). Build one
// with NewSystemRequest/NewPatientRequest/NewGroupRequest and the
// With* mutators, then Validate it before calling Client.Export.
type Request struct {
	Level Level

	OutputFormat string
	Since        *time.Time

	Types       []string
	Elements    []string
	TypeFilters []string

	IncludeAssociatedData []AssociatedData

	Patients []Reference

	OutputDir       string
	OutputExtension string
	FHIREndpointURL string

	AuthConfig        auth.Config
	AsyncConfig       AsyncConfig
	HTTPClientConfig  HTTPClientConfig
	MaxConcurrentDownloads int
	Timeout                time.Duration
}

// NewSystemRequest starts a Request at the System level, mirroring the
// source's BulkExportClient.systemBuilder() convenience entry point.
func NewSystemRequest() *Request { return newRequest(System()) }

// NewPatientRequest starts a Request at the Patient level, mirroring the
// source's patientBuilder().
func NewPatientRequest() *Request { return newRequest(Patient()) }

// NewGroupRequest starts a Request at the Group level for the given group
// id, mirroring the source's groupBuilder(id).
func NewGroupRequest(groupID string) *Request { return newRequest(Group(groupID)) }

func newRequest(level Level) *Request {
	return &Request{
		Level:                  level,
		OutputExtension:        "ndjson",
		AsyncConfig:            DefaultAsyncConfig(),
		HTTPClientConfig:       DefaultHTTPClientConfig(),
		MaxConcurrentDownloads: 10,
		AuthConfig:             auth.Config{UseSMART: true, TokenExpiryTolerance: 120 * time.Second},
	}
}

// WithTypes sets the resource types to export, in the order given.
func (r *Request) WithTypes(types ...string) *Request { r.Types = types; return r }

// WithElements sets the element whitelist.
func (r *Request) WithElements(elements ...string) *Request { r.Elements = elements; return r }

// WithTypeFilters sets the _typeFilter expressions.
func (r *Request) WithTypeFilters(filters ...string) *Request { r.TypeFilters = filters; return r }

// WithSince sets the _since cutoff.
func (r *Request) WithSince(since time.Time) *Request { r.Since = &since; return r }

// WithPatients sets the patient reference list.
func (r *Request) WithPatients(refs ...Reference) *Request { r.Patients = refs; return r }

// WithIncludeAssociatedData sets the includeAssociatedData list.
func (r *Request) WithIncludeAssociatedData(values ...AssociatedData) *Request {
	r.IncludeAssociatedData = values
	return r
}

// WithAssociatedDataCodes maps bare string codes through
// AssociatedDataFromCode, mirroring the source's
// withIncludeAssociatedData(List<String>) overload (see SPEC_FULL.md §3).
func (r *Request) WithAssociatedDataCodes(codes ...string) *Request {
	values := make([]AssociatedData, 0, len(codes))
	for _, c := range codes {
		values = append(values, AssociatedDataFromCode(c))
	}
	r.IncludeAssociatedData = values
	return r
}

// WithOutputDir sets the destination directory (or, for a non-local
// filestore.Store, the root prefix).
func (r *Request) WithOutputDir(dir string) *Request { r.OutputDir = dir; return r }

// WithFHIREndpoint sets the FHIR server base URL.
func (r *Request) WithFHIREndpoint(url string) *Request { r.FHIREndpointURL = url; return r }

// WithAuth sets the authentication configuration.
func (r *Request) WithAuth(cfg auth.Config) *Request { r.AuthConfig = cfg; return r }

// WithTimeout sets the global wall-clock deadline. A value <= 0 means no
// deadline.
func (r *Request) WithTimeout(d time.Duration) *Request { r.Timeout = d; return r }

// WithMaxConcurrentDownloads sets the download worker pool width.
func (r *Request) WithMaxConcurrentDownloads(n int) *Request {
	r.MaxConcurrentDownloads = n
	return r
}
