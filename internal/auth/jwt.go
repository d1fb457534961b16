package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"rollcall/internal/identity"
)

// Claims represents the session token payload. Subject is the composite
// principal key ("student_5", "teacher_2"); ID is the jti used for
// logout revocation.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Session is an issued session token plus its metadata.
type Session struct {
	Token     string
	TokenID   string
	Principal identity.Principal
	ExpiresAt time.Time
}

// Issue signs a session token for the principal.
func Issue(p identity.Principal, issuer, key string, ttl time.Duration) (Session, error) {
	now := time.Now()
	exp := now.Add(ttl)
	jti := uuid.NewString()

	claims := Claims{
		Role: string(p.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   p.Key(),
			ID:        jti,
			ExpiresAt: jwt.NewNumericDate(exp),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(key))
	if err != nil {
		return Session{}, err
	}
	return Session{Token: token, TokenID: jti, Principal: p, ExpiresAt: exp}, nil
}

// Parse validates a token and resolves the acting principal.
func Parse(tokenStr, key, issuer string) (Claims, identity.Principal, error) {
	parsed, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(key), nil
	})
	if err != nil {
		return Claims{}, identity.Principal{}, err
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return Claims{}, identity.Principal{}, errors.New("invalid token")
	}
	if issuer != "" && claims.Issuer != issuer {
		return Claims{}, identity.Principal{}, errors.New("issuer mismatch")
	}

	p, err := identity.ParsePrincipal(claims.Subject)
	if err != nil {
		return Claims{}, identity.Principal{}, errors.New("invalid subject")
	}
	if string(p.Role) != claims.Role {
		return Claims{}, identity.Principal{}, errors.New("role mismatch")
	}
	return *claims, p, nil
}
