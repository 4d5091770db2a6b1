// Package export implements the core of the FHIR Bulk Data Access export
// client: the async protocol orchestrator (C6), its supporting protocol
// transport and classification (C5), the parallel download engine (C7),
// and the request builder (C8) and validator (C9). Authentication (C4) and
// file storage (C3) are supplied by internal/auth and internal/filestore
// respectively and injected at Client construction.
package export

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/flatfhir/bulkexport/internal/auth"
	"github.com/flatfhir/bulkexport/internal/filestore"
	"github.com/rs/zerolog"
)

// Client drives a single export() invocation end to end. Construct one with
// NewClient; it is safe to reuse across multiple Export calls against
// different requests, since it holds no per-export state itself — each
// call to Export acquires its own transport, deadline, and file store
// root (spec.md §5, "Resource scoping").
type Client struct {
	httpClient   *http.Client
	authProvider *auth.Provider
	log          zerolog.Logger
	storeFor     func(outputDir string) filestore.Store
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) { cl.httpClient = c }
}

// WithLogger overrides the default zerolog.Logger.
func WithLogger(log zerolog.Logger) Option {
	return func(cl *Client) { cl.log = log }
}

// WithAuthProvider overrides the default auth.Provider, e.g. to install a
// RedisCache-backed token cache.
func WithAuthProvider(p *auth.Provider) Option {
	return func(cl *Client) { cl.authProvider = p }
}

// WithFileStore overrides how a Request's OutputDir is turned into a
// filestore.Store. The default treats OutputDir as a local filesystem
// path; pass a function returning an *filestore.S3 to export into an
// S3-compatible object store instead.
func WithFileStore(f func(outputDir string) filestore.Store) Option {
	return func(cl *Client) { cl.storeFor = f }
}

// NewClient constructs a Client with sensible defaults, all overridable via
// Option.
func NewClient(opts ...Option) *Client {
	cl := &Client{
		httpClient:   &http.Client{Timeout: 60 * time.Second},
		authProvider: auth.NewProvider(nil),
		log:          zerolog.Nop(),
		storeFor: func(outputDir string) filestore.Store {
			return filestore.NewLocal(outputDir)
		},
	}
	for _, opt := range opts {
		opt(cl)
	}
	return cl
}

// Export runs a validated Request through the full protocol state machine
// and returns a Result on success. Validation (C9) runs before any network
// I/O; see Validate.
func (c *Client) Export(ctx context.Context, req *Request) (*Result, error) {
	if err := Validate(req); err != nil {
		return nil, err
	}

	t, err := newTransport(c.httpClient, c.authProvider, req.AuthConfig, req.FHIREndpointURL, c.log)
	if err != nil {
		return nil, fmt.Errorf("constructing transport: %w", err)
	}

	o := &orchestrator{
		transport: t,
		store:     c.storeFor(req.OutputDir),
		log:       c.log,
	}

	return o.run(ctx, req)
}
