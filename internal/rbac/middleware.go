package rbac

import (
	"log/slog"
	"net/http"

	"github.com/tourguide/tourguide-api/internal/auth"
	"github.com/tourguide/tourguide-api/internal/platform/httpx"
)

// Middleware wires role gates for HTTP handlers. It must run behind
// auth.Middleware.Authenticate so a verified identity is present.
type Middleware struct {
	Resolver RoleResolver
	Logger   *slog.Logger
	Recorder auth.RejectionRecorder
}

// RequireRole lets the request through only when the caller's account holds
// exactly the required role. Roles do not inherit: an Admin is rejected by a
// Tourist Guide gate.
func (m Middleware) RequireRole(required Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, ok := auth.IdentityFromContext(r.Context())
			if !ok || identity.Email == "" {
				m.forbid(w)
				return
			}
			role, found, err := m.Resolver.RoleOf(r.Context(), identity.Email)
			if err != nil {
				if m.Logger != nil {
					m.Logger.Error("rbac require role", slog.String("role", string(required)), slog.Any("error", err))
				}
				httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
				return
			}
			if !found || role != required {
				if m.Logger != nil {
					m.Logger.Debug("rbac role mismatch", slog.String("required", string(required)), slog.Bool("found", found))
				}
				m.forbid(w)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (m Middleware) forbid(w http.ResponseWriter) {
	if m.Recorder != nil {
		m.Recorder.RecordAuthRejection("forbidden")
	}
	httpx.Forbidden(w)
}
