package auth

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

// Provider implements C4: it resolves a token endpoint (via SMART discovery
// or explicit configuration), exchanges credentials for a bearer token
// using the symmetric or asymmetric profile, and caches the result so
// concurrent callers share one refresh per (endpoint, config) pair.
//
// Refresh is serialized with a plain mutex, matching the teacher's idiom
// throughout the pack (no singleflight dependency appears anywhere in the
// retrieval set).
type Provider struct {
	httpClient *http.Client
	cache      cacheBackend

	mu                 sync.Mutex
	resolvedTokenEndpoints map[string]string // fhirEndpoint -> token endpoint
}

// NewProvider constructs a Provider backed by httpClient. If httpClient is
// nil a default client with a 10s timeout is used, mirroring the teacher's
// OIDC discovery client in oidc.go.
func NewProvider(httpClient *http.Client) *Provider {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Provider{
		httpClient:             httpClient,
		cache:                  newMemoryCache(),
		resolvedTokenEndpoints: make(map[string]string),
	}
}

// WithCache swaps in a different cache backend (e.g. RedisCache) and
// returns the Provider for chaining.
func (p *Provider) WithCache(cache cacheBackend) *Provider {
	p.cache = cache
	return p
}

// Token returns a Credential valid for at least cfg.TokenExpiryTolerance
// beyond now, refreshing through the token endpoint if necessary. It
// returns nil, nil when cfg.Enabled is false — "no credential", per
// spec.md §4.3.
func (p *Provider) Token(ctx context.Context, fhirEndpoint string, cfg Config) (*Credential, error) {
	if !cfg.Enabled {
		return nil, nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	key := newCacheKey(fhirEndpoint, cfg)
	if cred, ok := p.cache.get(ctx, key); ok && cred.freshEnough(cfg.TokenExpiryTolerance) {
		return &cred, nil
	}

	tokenEndpoint, err := p.resolveTokenEndpoint(ctx, fhirEndpoint, cfg)
	if err != nil {
		return nil, fmt.Errorf("resolving token endpoint: %w", err)
	}

	cred, err := p.fetchToken(ctx, tokenEndpoint, cfg)
	if err != nil {
		return nil, err
	}

	p.cache.set(ctx, key, *cred)
	return cred, nil
}

func (p *Provider) resolveTokenEndpoint(ctx context.Context, fhirEndpoint string, cfg Config) (string, error) {
	if !cfg.UseSMART {
		return cfg.TokenEndpoint, nil
	}
	if endpoint, ok := p.resolvedTokenEndpoints[fhirEndpoint]; ok {
		return endpoint, nil
	}
	endpoint, err := discoverTokenEndpoint(ctx, p.httpClient, fhirEndpoint)
	if err != nil {
		return "", err
	}
	p.resolvedTokenEndpoints[fhirEndpoint] = endpoint
	return endpoint, nil
}

// tokenResponse is the OAuth2 client-credentials grant response.
type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
}

func (p *Provider) fetchToken(ctx context.Context, tokenEndpoint string, cfg Config) (*Credential, error) {
	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	if cfg.Scope != "" {
		form.Set("scope", cfg.Scope)
	}

	var basicAuthHeader string

	switch {
	case cfg.Asymmetric():
		assertion, err := buildClientAssertion(cfg.PrivateKeyJWK, cfg.ClientID, tokenEndpoint)
		if err != nil {
			return nil, fmt.Errorf("building client assertion: %w", err)
		}
		form.Set("client_assertion_type", "urn:ietf:params:oauth:client-assertion-type:jwt-bearer")
		form.Set("client_assertion", assertion)

	default:
		form.Set("client_id", cfg.ClientID)
		if cfg.UseFormForBasicAuth {
			form.Set("client_secret", cfg.ClientSecret)
		} else {
			basicAuthHeader = "Basic " + base64.StdEncoding.EncodeToString(
				[]byte(cfg.ClientID+":"+cfg.ClientSecret))
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tokenEndpoint,
		strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("building token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	if basicAuthHeader != "" {
		req.Header.Set("Authorization", basicAuthHeader)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("requesting token: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading token response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("token endpoint returned status %d: %s", resp.StatusCode, string(body))
	}

	received := time.Now()
	var tr tokenResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		return nil, fmt.Errorf("decoding token response: %w", err)
	}
	if tr.AccessToken == "" {
		return nil, fmt.Errorf("token response has no access_token")
	}

	return &Credential{
		Value:     tr.AccessToken,
		ExpiresAt: received.Add(time.Duration(tr.ExpiresIn) * time.Second),
	}, nil
}
