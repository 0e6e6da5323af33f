package auth

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/tourguide/tourguide-api/internal/platform/httpx"
)

// Handler wires the token issuance endpoint.
type Handler struct {
	logger    *slog.Logger
	issuer    *Issuer
	validator *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, issuer *Issuer) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:    logger,
		issuer:    issuer,
		validator: validator.New(),
	}
}

// MountRoutes registers token routes on provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/", h.issueToken)
}

type tokenResponse struct {
	Token string `json:"token"`
}

func (h *Handler) issueToken(w http.ResponseWriter, r *http.Request) {
	var claims map[string]any
	if err := httpx.DecodeJSON(w, r, &claims); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if claims == nil {
		httpx.RespondError(w, fmt.Errorf("%w: claims object required", httpx.ErrValidation))
		return
	}
	email, _ := claims[EmailClaim].(string)
	if err := h.validator.Var(email, "required,email"); err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: email claim must be a valid address", httpx.ErrValidation))
		return
	}

	token, err := h.issuer.Issue(claims)
	if err != nil {
		h.logger.Error("issue token", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, tokenResponse{Token: token})
}
