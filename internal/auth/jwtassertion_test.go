package auth

import (
	"testing"

	"github.com/golang-jwt/jwt/v5"
)

func TestBuildClientAssertionSignsWithClaims(t *testing.T) {
	jwkJSON, key := generateTestJWK(t, "RS256")

	assertion, err := buildClientAssertion(jwkJSON, "client-1", "https://auth.example/token")
	if err != nil {
		t.Fatal(err)
	}

	claims := jwt.MapClaims{}
	parsed, err := jwt.ParseWithClaims(assertion, &claims, func(*jwt.Token) (interface{}, error) {
		return &key.PublicKey, nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if !parsed.Valid {
		t.Fatal("expected a valid signature")
	}
	if claims["iss"] != "client-1" || claims["sub"] != "client-1" {
		t.Fatalf("expected iss=sub=client-1, got iss=%v sub=%v", claims["iss"], claims["sub"])
	}
	aud, ok := claims["aud"].(string)
	if !ok || aud != "https://auth.example/token" {
		t.Fatalf("unexpected aud claim: %v", claims["aud"])
	}
	if claims["jti"] == "" || claims["jti"] == nil {
		t.Fatal("expected non-empty jti")
	}
}
