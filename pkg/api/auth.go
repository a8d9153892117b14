package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// ErrNoOwner is returned when a request carries no usable credential.
var ErrNoOwner = errors.New("no owner credential")

// OwnerResolver maps an incoming request to the owner id it acts as.
type OwnerResolver interface {
	ResolveOwner(r *http.Request) (string, error)
}

// StaticTokenResolver resolves owners from a fixed bearer-token map.
// Suitable for single-box and development deployments.
type StaticTokenResolver struct {
	tokens map[string]string // token -> owner id
}

// NewStaticTokenResolver creates a resolver over the given token map.
func NewStaticTokenResolver(tokens map[string]string) *StaticTokenResolver {
	return &StaticTokenResolver{tokens: tokens}
}

func (s *StaticTokenResolver) ResolveOwner(r *http.Request) (string, error) {
	token, err := bearerToken(r)
	if err != nil {
		return "", err
	}
	owner, ok := s.tokens[token]
	if !ok {
		return "", ErrNoOwner
	}
	return owner, nil
}

// JWTResolver resolves owners from HS256-signed JWTs; the subject
// claim is the owner id.
type JWTResolver struct {
	secret []byte
}

// NewJWTResolver creates a resolver verifying with the given secret.
func NewJWTResolver(secret []byte) *JWTResolver {
	return &JWTResolver{secret: secret}
}

func (j *JWTResolver) ResolveOwner(r *http.Request) (string, error) {
	raw, err := bearerToken(r)
	if err != nil {
		return "", err
	}

	token, err := jwt.Parse(raw, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return j.secret, nil
	})
	if err != nil || !token.Valid {
		return "", ErrNoOwner
	}
	sub, err := token.Claims.GetSubject()
	if err != nil || sub == "" {
		return "", ErrNoOwner
	}
	return sub, nil
}

func bearerToken(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || token == "" {
		return "", ErrNoOwner
	}
	return token, nil
}

type contextKey string

const ownerContextKey contextKey = "owner"

// ownerFrom returns the owner id the auth middleware attached.
func ownerFrom(ctx context.Context) string {
	owner, _ := ctx.Value(ownerContextKey).(string)
	return owner
}

// requireOwner resolves the request owner and rejects requests it
// cannot attribute.
func requireOwner(resolver OwnerResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			owner, err := resolver.ResolveOwner(r)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "unauthorized", "A valid bearer token is required")
				return
			}
			ctx := context.WithValue(r.Context(), ownerContextKey, owner)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
