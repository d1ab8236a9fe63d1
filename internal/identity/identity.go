package identity

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// The engine never manages credentials. Tokens are minted by the external
// identity provider; this package only verifies them and extracts the
// opaque user identifier.

// Claims is the validated identity attached to a request.
type Claims struct {
	UserID string
	jwt.RegisteredClaims
}

var (
	ErrTokenInvalid = errors.New("token invalid")
	ErrTokenExpired = errors.New("token expired")
)

// Verifier validates bearer tokens issued by the identity provider.
type Verifier struct {
	secret []byte
}

// NewVerifier creates a Verifier with the shared signing secret.
func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret)}
}

// Verify parses and validates a token string, returning its claims.
func (v *Verifier) Verify(tokenStr string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}
	if !token.Valid {
		return nil, ErrTokenInvalid
	}

	// The subject claim carries the opaque user identifier.
	if claims.UserID == "" {
		claims.UserID = claims.Subject
	}
	if claims.UserID == "" {
		return nil, ErrTokenInvalid
	}

	return claims, nil
}
