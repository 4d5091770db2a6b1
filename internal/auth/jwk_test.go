package auth

import (
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"fmt"
	"testing"
)

func generateTestJWK(t *testing.T, alg string) (string, *rsa.PrivateKey) {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatal(err)
	}
	enc := func(b []byte) string { return base64.RawURLEncoding.EncodeToString(b) }
	jwkJSON := fmt.Sprintf(`{"kty":"RSA","alg":%q,"n":%q,"e":%q,"d":%q,"p":%q,"q":%q}`,
		alg,
		enc(key.N.Bytes()),
		enc(big64(key.E)),
		enc(key.D.Bytes()),
		enc(key.Primes[0].Bytes()),
		enc(key.Primes[1].Bytes()),
	)
	return jwkJSON, key
}

func big64(e int) []byte {
	// Minimal big-endian encoding of a small int, as JWK expects for "e".
	if e == 0 {
		return []byte{0}
	}
	var b []byte
	for e > 0 {
		b = append([]byte{byte(e & 0xff)}, b...)
		e >>= 8
	}
	return b
}

func TestParsePrivateKeyJWKRoundTrip(t *testing.T) {
	jwkJSON, want := generateTestJWK(t, "RS256")

	got, alg, err := parsePrivateKeyJWK(jwkJSON)
	if err != nil {
		t.Fatal(err)
	}
	if alg != "RS256" {
		t.Fatalf("expected alg RS256, got %s", alg)
	}
	if got.N.Cmp(want.N) != 0 || got.D.Cmp(want.D) != 0 {
		t.Fatal("reconstructed key does not match source key")
	}
}

func TestParsePrivateKeyJWKRejectsNonRSA(t *testing.T) {
	if _, _, err := parsePrivateKeyJWK(`{"kty":"EC","alg":"ES256"}`); err == nil {
		t.Fatal("expected error for non-RSA kty")
	}
}

func TestParsePrivateKeyJWKRejectsMissingAlg(t *testing.T) {
	jwkJSON, _ := generateTestJWK(t, "")
	if _, _, err := parsePrivateKeyJWK(jwkJSON); err == nil {
		t.Fatal("expected error for missing alg")
	}
}
