package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/Suhaibinator/SDispatch/pkg/common"
	"go.uber.org/zap"
)

var (
	// ErrNoCredentials is returned when a request carries no bearer token.
	ErrNoCredentials = common.NewAppError(http.StatusUnauthorized, "Authentication credentials were not provided.")

	// ErrInvalidToken is returned when the bearer token is rejected.
	ErrInvalidToken = common.NewAppError(http.StatusUnauthorized, "Invalid token.")
)

// userContextKey is a custom type for the user object context key to avoid collisions.
// It's generic to support different user object types.
type userContextKey[T any] struct{}

// BearerToken extracts the token from an "Authorization: Bearer <token>" header.
// It returns false if the header is missing or uses another scheme.
func BearerToken(req *common.Request) (string, bool) {
	authHeader := req.HeaderValue("Authorization")
	if authHeader == "" {
		return "", false
	}
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return "", false
	}
	token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	return token, token != ""
}

// Authentication is a middleware that requires a valid bearer token.
// Token verification is delegated to authFunc, which returns the authenticated
// user or an error. The user is stored in the request context and can be
// retrieved with GetUser.
type Authentication[T any] struct {
	common.Base
	authFunc func(ctx context.Context, token string) (*T, error)
	logger   *zap.Logger
}

// NewAuthentication creates an Authentication middleware.
func NewAuthentication[T any](authFunc func(ctx context.Context, token string) (*T, error), logger *zap.Logger) *Authentication[T] {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Authentication[T]{authFunc: authFunc, logger: logger}
}

// Before rejects the request with 401 unless authFunc accepts its bearer token.
// An *common.AppError returned by authFunc is passed through unchanged.
func (a *Authentication[T]) Before(req *common.Request) (*common.Request, error) {
	token, ok := BearerToken(req)
	if !ok {
		return nil, ErrNoCredentials
	}

	user, err := a.authFunc(req.Context(), token)
	if err != nil || user == nil {
		a.logger.Warn("Authentication failed",
			zap.Error(err),
			zap.String("method", req.Method()),
			zap.String("path", req.Path()),
			zap.String("remote_addr", req.RemoteAddr()),
		)
		if appErr, ok := common.AsAppError(err); ok {
			return nil, appErr
		}
		return nil, ErrInvalidToken
	}

	a.logger.Debug("Authentication successful",
		zap.String("method", req.Method()),
		zap.String("path", req.Path()),
	)
	return req.WithValue(userContextKey[T]{}, user), nil
}

// GetUser retrieves the authenticated user from the request context.
// Returns nil if no user of type T was stored.
func GetUser[T any](req *common.Request) *T {
	user, _ := req.Context().Value(userContextKey[T]{}).(*T)
	return user
}

// StaticTokens returns an auth function that accepts a fixed set of tokens,
// mapping each token to its user.
func StaticTokens[T any](tokens map[string]*T) func(context.Context, string) (*T, error) {
	return func(_ context.Context, token string) (*T, error) {
		if user, ok := tokens[token]; ok {
			return user, nil
		}
		return nil, errors.New("unknown token")
	}
}
