package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// assertionLifetime is how far in the future the signed assertion's exp
// claim is set, per spec.md §4.3.
const assertionLifetime = 5 * time.Minute

// buildClientAssertion signs a JWT client assertion per spec.md §4.3:
// claims {iss=sub=clientID, aud=tokenEndpoint, jti=random, exp=now+5min},
// signed with privateKeyJWK using the algorithm named in the JWK. Grounded
// on the teacher's signAccessToken (backend_services.go), which builds a
// comparable JWT by hand for the server's own access tokens; here the
// golang-jwt library does the encoding since the teacher already depends
// on it for verification elsewhere in the same file.
func buildClientAssertion(privateKeyJWK, clientID, tokenEndpoint string) (string, error) {
	key, alg, err := parsePrivateKeyJWK(privateKeyJWK)
	if err != nil {
		return "", fmt.Errorf("parsing private key JWK: %w", err)
	}

	method := jwt.GetSigningMethod(alg)
	if method == nil {
		return "", fmt.Errorf("unsupported JWK alg %q", alg)
	}

	now := time.Now()
	// MapClaims keeps aud a single JSON string; RegisteredClaims would
	// encode it as a one-element array.
	claims := jwt.MapClaims{
		"iss": clientID,
		"sub": clientID,
		"aud": tokenEndpoint,
		"jti": uuid.NewString(),
		"exp": now.Add(assertionLifetime).Unix(),
		"iat": now.Unix(),
	}

	token := jwt.NewWithClaims(method, claims)
	signed, err := token.SignedString(key)
	if err != nil {
		return "", fmt.Errorf("signing client assertion: %w", err)
	}
	return signed, nil
}
