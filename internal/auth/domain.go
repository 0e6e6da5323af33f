package auth

import "errors"

// Token errors. Callers over HTTP only ever see a generic 401; the
// distinction exists for logs and metrics.
var (
	ErrMissingCredentials = errors.New("auth: missing credentials")
	ErrInvalidToken       = errors.New("auth: invalid token")
	ErrExpiredToken       = errors.New("auth: token expired")
	ErrMissingClaim       = errors.New("auth: missing required claim")
	ErrMissingSecret      = errors.New("auth: signing secret must be provided")
)

// EmailClaim names the claim carrying the caller's account email.
const EmailClaim = "email"

// Identity is the verified caller attached to a request.
type Identity struct {
	Email  string
	Claims map[string]any
}

// RejectionRecorder observes authentication and authorization rejections.
type RejectionRecorder interface {
	RecordAuthRejection(reason string)
}
