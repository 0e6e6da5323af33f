package users

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/tourguide/tourguide-api/internal/rbac"
)

// ServiceConfig tunes directory behaviour.
type ServiceConfig struct {
	// StoreTimeout bounds every repository call. Zero disables the bound.
	StoreTimeout time.Duration
}

// Service is the account directory: lookups, idempotent creation and
// promotion. Roles are always read fresh from the repository.
type Service struct {
	repo Repository
	cfg  ServiceConfig
	now  func() time.Time
}

// NewService builds Service instance.
func NewService(repo Repository, cfg ServiceConfig) *Service {
	return &Service{repo: repo, cfg: cfg, now: time.Now}
}

func (s *Service) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.cfg.StoreTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.cfg.StoreTimeout)
}

// FindByEmail returns the account owning email or ErrNotFound.
func (s *Service) FindByEmail(ctx context.Context, email string) (*Account, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	return s.repo.FindByEmail(ctx, normalizeEmail(email))
}

// Create stores a new account with the default role. It returns
// ErrAlreadyExists, without touching the stored record, when the email is taken.
func (s *Service) Create(ctx context.Context, account Account) (InsertResult, error) {
	account.Email = normalizeEmail(account.Email)
	if _, err := s.FindByEmail(ctx, account.Email); err == nil {
		return InsertResult{}, ErrAlreadyExists
	} else if !errors.Is(err, ErrNotFound) {
		return InsertResult{}, err
	}

	account.ID = ""
	account.Role = rbac.DefaultRole
	account.CreatedAt = s.now().UTC()

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	return s.repo.Insert(ctx, account)
}

// Promote sets the role of the account with id unconditionally.
func (s *Service) Promote(ctx context.Context, id string, role rbac.Role) (UpdateResult, error) {
	if !role.Valid() {
		return UpdateResult{}, errors.New("users: promote to unknown role")
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return UpdateResult{}, ErrInvalidID
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	return s.repo.UpdateRole(ctx, id, role)
}

// List returns every account.
func (s *Service) List(ctx context.Context) ([]Account, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	return s.repo.List(ctx)
}

// ListGuides returns accounts holding the Tourist Guide role.
func (s *Service) ListGuides(ctx context.Context) ([]Account, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	return s.repo.ListByRole(ctx, rbac.RoleGuide)
}

// HasRole reports whether the account owning email holds role. A missing
// account is not an error.
func (s *Service) HasRole(ctx context.Context, email string, role rbac.Role) (bool, error) {
	current, found, err := s.RoleOf(ctx, email)
	if err != nil {
		return false, err
	}
	return found && current == role, nil
}

// RoleOf implements rbac.RoleResolver.
func (s *Service) RoleOf(ctx context.Context, email string) (rbac.Role, bool, error) {
	account, err := s.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return "", false, nil
		}
		return "", false, err
	}
	return account.Role, true, nil
}

var _ rbac.RoleResolver = (*Service)(nil)

func normalizeEmail(email string) string {
	return strings.TrimSpace(email)
}
