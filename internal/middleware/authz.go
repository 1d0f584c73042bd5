package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-faster/errors"

	"github.com/AnandVishesh1301/temboXpoke/internal/auth"
	"github.com/AnandVishesh1301/temboXpoke/internal/observability"
)

// AuthContext identifies the caller of an authorized request.
type AuthContext struct {
	Subject  string
	AuthType string // "jwt" or "none"
}

// Authorizer gates requests behind an HS256 bearer token.
// A nil verifier lets every request through.
type Authorizer struct {
	verifier *auth.Verifier
}

// NewAuthorizer creates a new authorizer.
func NewAuthorizer(verifier *auth.Verifier) *Authorizer {
	return &Authorizer{verifier: verifier}
}

// Enabled reports whether requests must carry a token.
func (a *Authorizer) Enabled() bool {
	return a.verifier != nil
}

// Authorize is HTTP middleware that checks authorization
func (a *Authorizer) Authorize(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authCtx, err := a.ValidateRequest(r)
		if err != nil {
			a.writeErrorResponse(w, err)
			return
		}

		next.ServeHTTP(w, r.WithContext(WithAuthContext(r.Context(), authCtx)))
	})
}

// ValidateRequest validates the request and returns auth context
func (a *Authorizer) ValidateRequest(r *http.Request) (*AuthContext, error) {
	if a.verifier == nil {
		return &AuthContext{AuthType: "none"}, nil
	}

	requestID := GetRequestID(r.Context())
	header := r.Header.Get("Authorization")
	token, found := strings.CutPrefix(header, "Bearer ")
	if !found || strings.TrimSpace(token) == "" {
		observability.LogSecurityEvent(requestID, "missing_bearer_token", map[string]any{
			"remote_addr": r.RemoteAddr,
		})
		return nil, &AuthError{
			Code:    "MISSING_TOKEN",
			Message: "Missing bearer token",
			Status:  http.StatusUnauthorized,
		}
	}

	claims, err := a.verifier.Verify(strings.TrimSpace(token))
	if err != nil {
		observability.LogSecurityEvent(requestID, "invalid_bearer_token", map[string]any{
			"remote_addr": r.RemoteAddr,
			"error":       err.Error(),
		})
		return nil, &AuthError{
			Code:    "INVALID_TOKEN",
			Message: "Invalid bearer token",
			Status:  http.StatusUnauthorized,
		}
	}

	return &AuthContext{Subject: claims.Subject, AuthType: "jwt"}, nil
}

// AuthError represents an authorization error
type AuthError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"-"`
}

func (e *AuthError) Error() string {
	return e.Message
}

// writeErrorResponse writes an authorization error response
func (a *Authorizer) writeErrorResponse(w http.ResponseWriter, err error) {
	var authErr *AuthError
	if !errors.As(err, &authErr) {
		authErr = &AuthError{
			Code:    "AUTHORIZATION_ERROR",
			Message: err.Error(),
			Status:  http.StatusInternalServerError,
		}
	}

	w.Header().Set("Content-Type", "application/json")
	if authErr.Status == http.StatusUnauthorized {
		w.Header().Set("WWW-Authenticate", `Bearer realm="mcp"`)
	}
	w.WriteHeader(authErr.Status)
	json.NewEncoder(w).Encode(map[string]any{
		"error":   authErr.Code,
		"message": authErr.Message,
	})
}

// WithAuthContext returns a copy of ctx carrying the caller identity.
func WithAuthContext(ctx context.Context, authCtx *AuthContext) context.Context {
	return context.WithValue(ctx, AuthContextKey, authCtx)
}

// GetAuthContext extracts auth context from request context
func GetAuthContext(ctx context.Context) *AuthContext {
	authCtx, _ := ctx.Value(AuthContextKey).(*AuthContext)
	return authCtx
}
