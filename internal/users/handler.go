package users

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/tourguide/tourguide-api/internal/auth"
	"github.com/tourguide/tourguide-api/internal/platform/httpx"
	"github.com/tourguide/tourguide-api/internal/rbac"
)

// Handler manages account endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	auth      auth.Middleware
	rbac      rbac.Middleware
	validator *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, authMW auth.Middleware, rbacMW rbac.Middleware) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, auth: authMW, rbac: rbacMW, validator: validator.New()}
}

// MountRoutes registers account routes. The {account} parameter is an email
// on role queries and a store identifier on promotions.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/", h.createAccount)
	r.Get("/guides", h.listGuides)

	r.Group(func(r chi.Router) {
		r.Use(h.auth.Authenticate)
		r.Get("/admin/{account}", h.roleQuery(rbac.RoleAdmin, "admin"))
		r.Get("/guide/{account}", h.roleQuery(rbac.RoleGuide, "guide"))
		r.Get("/tourist/{account}", h.roleQuery(rbac.RoleTourist, "tourist"))

		r.Group(func(r chi.Router) {
			r.Use(h.rbac.RequireRole(rbac.RoleAdmin))
			r.Get("/", h.listAccounts)
			r.Patch("/guide/{account}", h.promote(rbac.RoleGuide))
			r.Patch("/admin/{account}", h.promote(rbac.RoleAdmin))
		})
	})
}

type createAccountRequest struct {
	Email string `json:"email" validate:"required,email"`
	Name  string `json:"name" validate:"max=200"`
	Photo string `json:"photo" validate:"omitempty,url"`
}

type messageResponse struct {
	Message string `json:"message"`
}

func (h *Handler) createAccount(w http.ResponseWriter, r *http.Request) {
	var req createAccountRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: %s", httpx.ErrValidation, validationSummary(err)))
		return
	}

	result, err := h.service.Create(r.Context(), Account{Email: req.Email, Name: req.Name, Photo: req.Photo})
	if err != nil {
		if errors.Is(err, ErrAlreadyExists) {
			httpx.JSON(w, http.StatusOK, messageResponse{Message: "user already exist"})
			return
		}
		h.logger.Error("create account failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	h.logger.Info("account created", slog.String("id", result.InsertedID))
	httpx.JSON(w, http.StatusOK, result)
}

func (h *Handler) listAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.service.List(r.Context())
	if err != nil {
		h.logger.Error("list accounts failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, accounts)
}

func (h *Handler) listGuides(w http.ResponseWriter, r *http.Request) {
	guides, err := h.service.ListGuides(r.Context())
	if err != nil {
		h.logger.Error("list guides failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, guides)
}

// roleQuery answers whether the caller holds role. Callers may only ask
// about themselves; the check runs before any store access.
func (h *Handler) roleQuery(role rbac.Role, flag string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity, ok := auth.IdentityFromContext(r.Context())
		email, err := pathParam(r, "account")
		if !ok || err != nil || email == "" || email != identity.Email {
			if h.rbac.Recorder != nil {
				h.rbac.Recorder.RecordAuthRejection("forbidden")
			}
			httpx.Forbidden(w)
			return
		}
		holds, err := h.service.HasRole(r.Context(), email, role)
		if err != nil {
			h.logger.Error("role query failed", slog.String("role", string(role)), slog.Any("error", err))
			httpx.RespondError(w, err)
			return
		}
		httpx.JSON(w, http.StatusOK, map[string]bool{flag: holds})
	}
}

func (h *Handler) promote(role rbac.Role) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathParam(r, "account")
		if err != nil {
			httpx.RespondError(w, fmt.Errorf("%w: invalid account id", httpx.ErrValidation))
			return
		}
		result, err := h.service.Promote(r.Context(), id, role)
		if err != nil {
			if errors.Is(err, ErrInvalidID) {
				httpx.RespondError(w, fmt.Errorf("%w: invalid account id", httpx.ErrValidation))
				return
			}
			h.logger.Error("promote account failed", slog.String("id", id), slog.String("role", string(role)), slog.Any("error", err))
			httpx.RespondError(w, err)
			return
		}
		h.logger.Info("account promoted", slog.String("id", id), slog.String("role", string(role)), slog.Int64("matched", result.MatchedCount))
		httpx.JSON(w, http.StatusOK, result)
	}
}

// pathParam returns the decoded value of a route parameter. chi matches
// against RawPath when it is set, leaving the parameter escaped; otherwise it
// matches the already decoded Path.
func pathParam(r *http.Request, name string) (string, error) {
	value := chi.URLParam(r, name)
	if r.URL.RawPath == "" {
		return value, nil
	}
	return url.PathUnescape(value)
}

func validationSummary(err error) string {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return "invalid body"
	}
	first := fieldErrs[0]
	return fmt.Sprintf("%s failed %s", first.Field(), first.Tag())
}
