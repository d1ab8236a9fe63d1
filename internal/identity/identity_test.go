package identity

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func mintToken(t *testing.T, secret, subject string, expiry time.Duration) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   subject,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(expiry)),
	})
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func TestVerifyExtractsSubject(t *testing.T) {
	v := NewVerifier("secret")
	claims, err := v.Verify(mintToken(t, "secret", "user-42", time.Hour))
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if claims.UserID != "user-42" {
		t.Fatalf("UserID = %s, want user-42", claims.UserID)
	}
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	v := NewVerifier("secret")
	if _, err := v.Verify(mintToken(t, "other-secret", "user-42", time.Hour)); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("err = %v, want ErrTokenInvalid", err)
	}
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	v := NewVerifier("secret")
	if _, err := v.Verify(mintToken(t, "secret", "user-42", -time.Minute)); !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("err = %v, want ErrTokenExpired", err)
	}
}

func TestVerifyRejectsMissingSubject(t *testing.T) {
	v := NewVerifier("secret")
	if _, err := v.Verify(mintToken(t, "secret", "", time.Hour)); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("err = %v, want ErrTokenInvalid", err)
	}
}

func TestVerifyRejectsGarbage(t *testing.T) {
	v := NewVerifier("secret")
	if _, err := v.Verify("not-a-token"); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("err = %v, want ErrTokenInvalid", err)
	}
}
