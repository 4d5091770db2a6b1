package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// smartConfiguration is the subset of the SMART configuration document this
// client needs. Grounded on the teacher's SMARTConfiguration struct in
// smart.go, trimmed to the one field the token provider reads.
type smartConfiguration struct {
	TokenEndpoint string `json:"token_endpoint"`
}

// discoverTokenEndpoint fetches {endpoint}/.well-known/smart-configuration
// and returns its token_endpoint, following the same GET-and-decode-JSON
// idiom as the teacher's NewOIDCProvider (oidc.go).
func discoverTokenEndpoint(ctx context.Context, client *http.Client, fhirEndpoint string) (string, error) {
	url := strings.TrimRight(fhirEndpoint, "/") + "/.well-known/smart-configuration"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("building SMART discovery request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetching SMART configuration: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("SMART configuration endpoint returned status %d", resp.StatusCode)
	}

	var cfg smartConfiguration
	if err := json.NewDecoder(resp.Body).Decode(&cfg); err != nil {
		return "", fmt.Errorf("decoding SMART configuration: %w", err)
	}
	if cfg.TokenEndpoint == "" {
		return "", fmt.Errorf("SMART configuration at %s has no token_endpoint", url)
	}
	return cfg.TokenEndpoint, nil
}
