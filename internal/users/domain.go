package users

import (
	"errors"
	"time"

	"github.com/tourguide/tourguide-api/internal/rbac"
)

var (
	// ErrNotFound indicates no account matches the lookup.
	ErrNotFound = errors.New("users: account not found")
	// ErrAlreadyExists indicates an account with the same email is stored.
	ErrAlreadyExists = errors.New("users: account already exists")
	// ErrInvalidID indicates the identifier is not valid for the active store.
	ErrInvalidID = errors.New("users: invalid account id")
)

// Account is a stored user identity and its role.
type Account struct {
	ID        string    `json:"_id"`
	Email     string    `json:"email"`
	Name      string    `json:"name,omitempty"`
	Photo     string    `json:"photo,omitempty"`
	Role      rbac.Role `json:"role"`
	CreatedAt time.Time `json:"createdAt,omitzero"`
}

// InsertResult acknowledges a stored account.
type InsertResult struct {
	Acknowledged bool   `json:"acknowledged"`
	InsertedID   string `json:"insertedId"`
}

// UpdateResult acknowledges a targeted update.
type UpdateResult struct {
	Acknowledged  bool  `json:"acknowledged"`
	MatchedCount  int64 `json:"matchedCount"`
	ModifiedCount int64 `json:"modifiedCount"`
}
