// Package auth verifies bearer tokens and attaches the caller to the request.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/ora-civic/ora/internal/service"
	"github.com/ora-civic/ora/internal/setup/config"
	"github.com/uptrace/bunrouter"
	"go.uber.org/zap"
)

var (
	// ErrInvalidToken is returned for a malformed, expired or forged bearer token.
	ErrInvalidToken = errors.New("invalid access token")
	// ErrSecretMissing is returned when no signing secret is configured.
	ErrSecretMissing = errors.New("api.auth.jwt_secret is not set")
)

type callerCtxKey struct{}

// Claims are the access token claims. The subject is the account ID.
type Claims struct {
	Name string `json:"name,omitempty"`
	jwt.RegisteredClaims
}

// WithCaller returns a context carrying the caller.
func WithCaller(ctx context.Context, caller service.Caller) context.Context {
	return context.WithValue(ctx, callerCtxKey{}, caller)
}

// FromContext returns the caller attached to the context, or an anonymous caller.
func FromContext(ctx context.Context) service.Caller {
	if caller, ok := ctx.Value(callerCtxKey{}).(service.Caller); ok {
		return caller
	}
	return service.Caller{}
}

// Middleware authenticates requests carrying a bearer token. Requests without
// one pass through anonymously and protected operations reject them.
type Middleware struct {
	secret []byte
	parser *jwt.Parser
	logger *zap.Logger
}

// New creates a new auth middleware. An empty secret would let anyone sign
// tokens, so it is refused.
func New(config *config.Auth, logger *zap.Logger) (*Middleware, error) {
	if config.JWTSecret == "" {
		return nil, ErrSecretMissing
	}

	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if config.Issuer != "" {
		options = append(options, jwt.WithIssuer(config.Issuer))
	}

	return &Middleware{
		secret: []byte(config.JWTSecret),
		parser: jwt.NewParser(options...),
		logger: logger.Named("auth"),
	}, nil
}

// AsRESTMiddleware returns a bunrouter middleware handler for token verification.
func (m *Middleware) AsRESTMiddleware(next bunrouter.HandlerFunc) bunrouter.HandlerFunc {
	return func(w http.ResponseWriter, req bunrouter.Request) error {
		header := req.Header.Get("Authorization")
		if header == "" {
			return next(w, req)
		}

		caller, err := m.Verify(header)
		if err != nil {
			m.logger.Debug("Rejected bearer token", zap.Error(err))
			w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token"`)
			http.Error(w, ErrInvalidToken.Error(), http.StatusUnauthorized)
			return nil
		}

		return next(w, req.WithContext(WithCaller(req.Context(), caller)))
	}
}

// Verify parses an Authorization header value into the caller it identifies.
func (m *Middleware) Verify(header string) (service.Caller, error) {
	tokenStr, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || tokenStr == "" {
		return service.Caller{}, fmt.Errorf("%w: expected a bearer token", ErrInvalidToken)
	}

	var claims Claims
	_, err := m.parser.ParseWithClaims(tokenStr, &claims, func(*jwt.Token) (any, error) {
		return m.secret, nil
	})
	if err != nil {
		return service.Caller{}, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	if claims.Subject == "" {
		return service.Caller{}, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}

	return service.Caller{ID: claims.Subject, Name: claims.Name}, nil
}

// Issue signs an access token for an account.
func Issue(config *config.Auth, subject, name string, ttl time.Duration) (string, error) {
	if config.JWTSecret == "" {
		return "", ErrSecretMissing
	}

	now := time.Now()
	claims := Claims{
		Name: name,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    config.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(config.JWTSecret))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	return token, nil
}
