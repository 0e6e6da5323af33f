package auth

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/tourguide/tourguide-api/internal/platform/httpx"
)

// Middleware verifies bearer tokens on protected routes.
type Middleware struct {
	Verifier *Verifier
	Logger   *slog.Logger
	Recorder RejectionRecorder
}

// Authenticate rejects the request with 401 unless it carries a valid bearer
// token; on success the identity is attached to the request context.
func (m Middleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, err := BearerToken(r.Header.Get("Authorization"))
		if err == nil {
			var identity Identity
			identity, err = m.Verifier.Verify(token)
			if err == nil {
				next.ServeHTTP(w, r.WithContext(ContextWithIdentity(r.Context(), identity)))
				return
			}
		}
		if m.Logger != nil {
			m.Logger.Debug("token rejected", slog.String("path", r.URL.Path), slog.Any("error", err))
		}
		if m.Recorder != nil {
			m.Recorder.RecordAuthRejection("unauthenticated")
		}
		httpx.Unauthorized(w)
	})
}

// BearerToken extracts the token from an Authorization header value of the
// form "Bearer <token>".
func BearerToken(header string) (string, error) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", ErrMissingCredentials
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return "", ErrMissingCredentials
	}
	return token, nil
}
