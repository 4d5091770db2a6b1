// Package auth implements the C4 token credential provider: SMART
// configuration discovery, the symmetric and asymmetric OAuth2
// client-credentials profiles, and a cache that keeps one token per
// (endpoint, config) pair fresh within a configurable expiry tolerance.
//
// Grounded on the teacher's server-side verification code in
// backend_services.go, smart.go, oidc.go, and middleware.go's hand-rolled
// RSA JWK parsing — this package is the client-side mirror: it builds and
// signs assertions rather than verifying them, and fetches tokens rather
// than issuing them.
package auth

import "time"

// Config mirrors au.csiro.fhir.auth.AuthConfig (original_source/), the
// configuration shape this spec's authConfig is drawn from.
type Config struct {
	// Enabled turns authentication on. When false, Provider.Token always
	// returns a nil credential and the transport sends unauthenticated
	// requests.
	Enabled bool

	// UseSMART enables token-endpoint discovery via
	// {endpoint}/.well-known/smart-configuration. When false, TokenEndpoint
	// must be set explicitly.
	UseSMART bool

	// TokenEndpoint is the explicit OAuth2 token endpoint, used when
	// UseSMART is false.
	TokenEndpoint string

	// ClientID is the OAuth2 client_id.
	ClientID string

	// ClientSecret selects the symmetric client-authentication profile when
	// set.
	ClientSecret string

	// PrivateKeyJWK selects the asymmetric (signed JWT assertion)
	// client-authentication profile when set. It is the private key,
	// JSON-encoded in JWK format.
	PrivateKeyJWK string

	// UseFormForBasicAuth sends symmetric credentials in the token
	// request's form body instead of an Authorization: Basic header.
	UseFormForBasicAuth bool

	// Scope is the requested OAuth2 scope string.
	Scope string

	// TokenExpiryTolerance is the minimum remaining lifetime a cached token
	// must have to be reused without a refresh.
	TokenExpiryTolerance time.Duration
}

// Asymmetric reports whether the asymmetric (JWT assertion) profile
// applies: a private key is present. Validation (export/validate.go)
// requires at least one of ClientSecret/PrivateKeyJWK; if a config carries
// both, asymmetric wins, matching the source's precedence (privateKeyJWK
// checked first).
func (c Config) Asymmetric() bool {
	return c.PrivateKeyJWK != ""
}
