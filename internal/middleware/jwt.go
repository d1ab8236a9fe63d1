package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/skillproof/proctor-backend/internal/identity"
	"github.com/skillproof/proctor-backend/internal/response"
)

const (
	// ContextKeyClaims is the Gin context key for identity claims.
	ContextKeyClaims = "claims"
)

// RequireAuth validates a bearer token from the Authorization header.
func RequireAuth(verifier *identity.Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, err := extractAndVerifyClaims(c, verifier)
		if err != nil {
			if errors.Is(err, identity.ErrTokenExpired) {
				response.AbortFail(c, http.StatusUnauthorized, response.ErrTokenExpired)
			} else {
				response.AbortFail(c, http.StatusUnauthorized, response.ErrTokenInvalid)
			}
			return
		}

		c.Set(ContextKeyClaims, claims)
		c.Next()
	}
}

// RequireWSAuth validates a bearer token from the query param ?token=...
// Used for WebSocket upgrade requests, which cannot set headers from the browser.
func RequireWSAuth(verifier *identity.Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenStr := c.Query("token")
		if tokenStr == "" {
			response.AbortFail(c, http.StatusUnauthorized, response.ErrTokenRequired)
			return
		}

		claims, err := verifier.Verify(tokenStr)
		if err != nil {
			response.AbortFail(c, http.StatusUnauthorized, response.ErrTokenInvalid)
			return
		}

		c.Set(ContextKeyClaims, claims)
		c.Next()
	}
}

// GetClaims retrieves the identity claims from the Gin context.
func GetClaims(c *gin.Context) *identity.Claims {
	val, exists := c.Get(ContextKeyClaims)
	if !exists {
		return nil
	}
	claims, ok := val.(*identity.Claims)
	if !ok {
		return nil
	}
	return claims
}

func extractAndVerifyClaims(c *gin.Context, verifier *identity.Verifier) (*identity.Claims, error) {
	tokenStr := ""

	authHeader := c.GetHeader("Authorization")
	if authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
			tokenStr = parts[1]
		}
	}

	// Fallback for clients that cannot send headers.
	if tokenStr == "" {
		tokenStr = c.Query("token")
	}

	if tokenStr == "" {
		return nil, fmt.Errorf("authorization header or token query required")
	}

	return verifier.Verify(tokenStr)
}
