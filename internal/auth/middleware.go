package auth

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"rollcall/internal/identity"
)

const principalKey = "principal"

// Revocations is the subset of SessionStore the middleware needs.
type Revocations interface {
	Revoked(ctx context.Context, tokenID string) (bool, error)
}

// Require enforces bearer session tokens signed with HS256 and attaches
// the acting principal to the request context.
func Require(signingKey, issuer string, revocations Revocations) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, p, err := bearerPrincipal(c, signingKey, issuer)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "error": "authentication required"})
			return
		}
		if revocations != nil {
			revoked, err := revocations.Revoked(c.Request.Context(), claims.ID)
			if err != nil {
				// Revocation store outage degrades open; token signature
				// and expiry were already verified.
				log.Printf("revocation check failed: %v", err)
			} else if revoked {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "error": "authentication required"})
				return
			}
		}
		c.Set(principalKey, p)
		c.Next()
	}
}

// RequireTeacher rejects any principal that is not a teacher. It must
// run after Require.
func RequireTeacher() gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := PrincipalFrom(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "error": "authentication required"})
			return
		}
		if !p.IsTeacher() {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"success": false, "error": "teacher access required"})
			return
		}
		c.Next()
	}
}

// PrincipalFrom returns the authenticated principal set by Require.
func PrincipalFrom(c *gin.Context) (identity.Principal, bool) {
	v, ok := c.Get(principalKey)
	if !ok {
		return identity.Principal{}, false
	}
	p, ok := v.(identity.Principal)
	return p, ok
}

// BearerToken extracts the raw bearer token, if any.
func BearerToken(c *gin.Context) (string, bool) {
	authz := c.GetHeader("Authorization")
	if authz == "" || !strings.HasPrefix(strings.ToLower(authz), "bearer ") {
		return "", false
	}
	return strings.TrimSpace(authz[len("bearer "):]), true
}

func bearerPrincipal(c *gin.Context, signingKey, issuer string) (Claims, identity.Principal, error) {
	tokenStr, ok := BearerToken(c)
	if !ok {
		return Claims{}, identity.Principal{}, errors.New("missing bearer token")
	}
	return Parse(tokenStr, signingKey, issuer)
}
