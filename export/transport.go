package export

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/flatfhir/bulkexport/internal/auth"
	"github.com/flatfhir/bulkexport/internal/retryafter"
	"github.com/rs/zerolog"
)

// transport implements C5: issuing kick-off and status-poll HTTP calls and
// classifying their responses into {Accepted, Final, transient, fatal}.
// Auth-header injection is delegated to C4 (auth.Provider) on the kick-off
// and status requests this transport issues, but only when the request
// targets the same scheme+host+port as the FHIR endpoint — the spec narrows
// the source's indiscriminate bearer injection to same-origin only (see
// SPEC_FULL.md's Open Questions carry-through and DESIGN.md). Manifest file
// downloads (runDownloads) do not go through transport and carry no
// Authorization header, whatever their origin.
type transport struct {
	httpClient   *http.Client
	authProvider *auth.Provider
	authConfig   auth.Config
	fhirOrigin   string
	log          zerolog.Logger
}

func newTransport(httpClient *http.Client, provider *auth.Provider, authConfig auth.Config, fhirEndpoint string, log zerolog.Logger) (*transport, error) {
	u, err := url.Parse(fhirEndpoint)
	if err != nil {
		return nil, fmt.Errorf("parsing FHIR endpoint: %w", err)
	}
	return &transport{
		httpClient:   httpClient,
		authProvider: provider,
		authConfig:   authConfig,
		fhirOrigin:   u.Scheme + "://" + u.Host,
		log:          log,
	}, nil
}

func (t *transport) sameOrigin(target string) bool {
	u, err := url.Parse(target)
	if err != nil {
		return false
	}
	return u.Scheme+"://"+u.Host == t.fhirOrigin
}

func (t *transport) injectAuth(ctx context.Context, req *http.Request) error {
	if !t.sameOrigin(req.URL.String()) {
		return nil
	}
	cred, err := t.authProvider.Token(ctx, t.fhirOrigin, t.authConfig)
	if err != nil {
		return fmt.Errorf("acquiring token: %w", err)
	}
	if cred != nil {
		req.Header.Set("Authorization", "Bearer "+cred.Value)
	}
	return nil
}

// kickOff submits the initial export request built by C8.
func (t *transport) kickOff(ctx context.Context, req *http.Request) (*asyncResponse, error) {
	req.Header.Set("Accept", "application/fhir+json")
	req.Header.Set("Prefer", "respond-async")
	if err := t.injectAuth(ctx, req); err != nil {
		return nil, &SystemError{Cause: err}
	}

	t.log.Debug().Str("method", req.Method).Str("url", req.URL.String()).Msg("bulk export kick-off")

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return nil, &SystemError{Cause: fmt.Errorf("kick-off request failed: %w", err)}
	}
	defer resp.Body.Close()
	return t.classify(resp)
}

// checkStatus polls the status URL returned by kick-off.
func (t *transport) checkStatus(ctx context.Context, statusURL string) (*asyncResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, statusURL, nil)
	if err != nil {
		return nil, &ProtocolError{Message: fmt.Sprintf("building status request: %v", err)}
	}
	req.Header.Set("Accept", "application/json")
	if err := t.injectAuth(ctx, req); err != nil {
		return nil, &SystemError{Cause: err}
	}

	t.log.Debug().Str("url", statusURL).Msg("bulk export status poll")

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return nil, &SystemError{Cause: fmt.Errorf("status request failed: %w", err)}
	}
	defer resp.Body.Close()
	return t.classify(resp)
}

// classify maps an HTTP response onto {Accepted, Final} or raises the
// appropriate error, per spec.md §4.2.
func (t *transport) classify(resp *http.Response) (*asyncResponse, error) {
	switch {
	case resp.StatusCode == http.StatusOK:
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, &ProtocolError{Message: fmt.Sprintf("reading final response body: %v", err)}
		}
		manifest, err := decodeManifest(body)
		if err != nil {
			return nil, &ProtocolError{Message: fmt.Sprintf("decoding completion manifest: %v", err)}
		}
		return &asyncResponse{kind: asyncFinal, manifest: manifest}, nil

	case resp.StatusCode == http.StatusAccepted:
		io.Copy(io.Discard, resp.Body)
		ar := &asyncResponse{kind: asyncAccepted}
		if loc := resp.Header.Get("Content-Location"); loc != "" {
			ar.contentLocation = loc
			ar.hasContentLoc = true
		}
		ar.progress = resp.Header.Get("x-progress")
		if d, ok := retryafter.Parse(resp.Header.Get("Retry-After")); ok {
			ar.retryAfter = d
			ar.hasRetryAfter = true
		}
		return ar, nil

	default:
		return nil, t.classifyError(resp)
	}
}

func (t *transport) classifyError(resp *http.Response) error {
	body, _ := io.ReadAll(resp.Body)

	var outcome *OperationOutcome
	if looksLikeJSON(resp.Header.Get("Content-Type")) {
		if parsed, err := tryParseOutcome(body); err == nil {
			outcome = parsed
		}
	}

	retryAfter, hasRetry := retryafter.Parse(resp.Header.Get("Retry-After"))

	if resp.StatusCode >= 500 && outcome != nil && outcomeHasTransientIssue(outcome) {
		return &transientError{
			status:     resp.StatusCode,
			outcome:    outcome,
			retryAfter: retryAfter,
			hasRetry:   hasRetry,
		}
	}

	return &HttpError{
		Status:     resp.StatusCode,
		Outcome:    outcome,
		RetryAfter: retryAfter,
		HasRetry:   hasRetry,
		Message:    "async HTTP response error",
	}
}

func outcomeHasTransientIssue(o *OperationOutcome) bool {
	for _, issue := range o.Issue {
		if isTransientCode(issue.Code) {
			return true
		}
	}
	return false
}

func looksLikeJSON(contentType string) bool {
	return contentType != "" && strings.Contains(contentType, "json")
}
