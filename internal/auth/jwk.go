package auth

import (
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math/big"
)

// jwk is the subset of JSON Web Key fields needed to reconstruct an RSA
// private key for client-assertion signing. Grounded on the teacher's
// JWKSKey struct in middleware.go, which covers the public-key fields
// (kty, kid, use, alg, n, e); this adds the private-exponent field d (and
// the CRT primes p, q, which are optional but let rsa.PrivateKey.Precompute
// produce a faster key).
type jwk struct {
	Kty string `json:"kty"`
	Alg string `json:"alg"`
	Kid string `json:"kid"`
	N   string `json:"n"`
	E   string `json:"e"`
	D   string `json:"d"`
	P   string `json:"p"`
	Q   string `json:"q"`
}

// parsePrivateKeyJWK decodes a JSON-encoded JWK private key and returns the
// reconstructed RSA private key plus the signing algorithm named in the
// JWK's alg field. Mirrors parseRSAPublicKey's base64.RawURLEncoding +
// math/big approach (middleware.go), extended to the private exponent.
func parsePrivateKeyJWK(raw string) (*rsa.PrivateKey, string, error) {
	var k jwk
	if err := json.Unmarshal([]byte(raw), &k); err != nil {
		return nil, "", fmt.Errorf("parsing JWK: %w", err)
	}
	if k.Kty != "RSA" {
		return nil, "", fmt.Errorf("unsupported JWK key type %q (only RSA is supported)", k.Kty)
	}
	if k.Alg == "" {
		return nil, "", fmt.Errorf("JWK has no alg field")
	}

	n, err := decodeBigInt(k.N)
	if err != nil {
		return nil, "", fmt.Errorf("decoding JWK n: %w", err)
	}
	e, err := decodeBigInt(k.E)
	if err != nil {
		return nil, "", fmt.Errorf("decoding JWK e: %w", err)
	}
	d, err := decodeBigInt(k.D)
	if err != nil {
		return nil, "", fmt.Errorf("decoding JWK d: %w", err)
	}

	priv := &rsa.PrivateKey{
		PublicKey: rsa.PublicKey{N: n, E: int(e.Int64())},
		D:         d,
	}

	if k.P != "" && k.Q != "" {
		p, err := decodeBigInt(k.P)
		if err != nil {
			return nil, "", fmt.Errorf("decoding JWK p: %w", err)
		}
		q, err := decodeBigInt(k.Q)
		if err != nil {
			return nil, "", fmt.Errorf("decoding JWK q: %w", err)
		}
		priv.Primes = []*big.Int{p, q}
		priv.Precompute()

		if err := priv.Validate(); err != nil {
			return nil, "", fmt.Errorf("reconstructed RSA private key failed validation: %w", err)
		}
	}

	return priv, k.Alg, nil
}

func decodeBigInt(s string) (*big.Int, error) {
	if s == "" {
		return nil, fmt.Errorf("empty value")
	}
	b, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return nil, err
	}
	return new(big.Int).SetBytes(b), nil
}
