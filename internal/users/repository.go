package users

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tourguide/tourguide-api/internal/rbac"
)

// Repository is the account directory backing store. Every method is a
// single atomic store operation.
type Repository interface {
	FindByEmail(ctx context.Context, email string) (*Account, error)
	Insert(ctx context.Context, account Account) (InsertResult, error)
	UpdateRole(ctx context.Context, id string, role rbac.Role) (UpdateResult, error)
	List(ctx context.Context) ([]Account, error)
	ListByRole(ctx context.Context, role rbac.Role) ([]Account, error)
}

const uniqueViolation = "23505"

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewPGRepository constructs a PostgreSQL repository.
func NewPGRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const accountColumns = `id::text, email, name, photo, role, created_at`

// FindByEmail fetches an account by email.
func (r *PGRepository) FindByEmail(ctx context.Context, email string) (*Account, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE email = $1`, email)
	account, err := scanAccount(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("users: find by email: %w", err)
	}
	return account, nil
}

// Insert stores a new account; a taken email yields ErrAlreadyExists.
func (r *PGRepository) Insert(ctx context.Context, account Account) (InsertResult, error) {
	var id string
	err := r.pool.QueryRow(ctx, `
		INSERT INTO accounts (email, name, photo, role)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (email) DO NOTHING
		RETURNING id::text`,
		account.Email, account.Name, account.Photo, string(account.Role),
	).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.Is(err, pgx.ErrNoRows) || (errors.As(err, &pgErr) && pgErr.Code == uniqueViolation) {
			return InsertResult{}, ErrAlreadyExists
		}
		return InsertResult{}, fmt.Errorf("users: insert: %w", err)
	}
	return InsertResult{Acknowledged: true, InsertedID: id}, nil
}

// UpdateRole sets the role of the account with the given id.
func (r *PGRepository) UpdateRole(ctx context.Context, id string, role rbac.Role) (UpdateResult, error) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return UpdateResult{}, ErrInvalidID
	}
	var previous string
	err = r.pool.QueryRow(ctx, `
		WITH target AS (
			SELECT id, role FROM accounts WHERE id = $1 FOR UPDATE
		)
		UPDATE accounts a SET role = $2
		FROM target t
		WHERE a.id = t.id
		RETURNING t.role`,
		parsed.String(), string(role),
	).Scan(&previous)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return UpdateResult{Acknowledged: true}, nil
		}
		return UpdateResult{}, fmt.Errorf("users: update role: %w", err)
	}
	result := UpdateResult{Acknowledged: true, MatchedCount: 1}
	if previous != string(role) {
		result.ModifiedCount = 1
	}
	return result, nil
}

// List returns every account ordered by creation.
func (r *PGRepository) List(ctx context.Context) ([]Account, error) {
	return r.query(ctx, `SELECT `+accountColumns+` FROM accounts ORDER BY created_at, id`)
}

// ListByRole returns accounts holding role.
func (r *PGRepository) ListByRole(ctx context.Context, role rbac.Role) ([]Account, error) {
	return r.query(ctx, `SELECT `+accountColumns+` FROM accounts WHERE role = $1 ORDER BY created_at, id`, string(role))
}

func (r *PGRepository) query(ctx context.Context, sql string, args ...any) ([]Account, error) {
	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("users: list: %w", err)
	}
	defer rows.Close()
	accounts := make([]Account, 0)
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("users: scan: %w", err)
		}
		accounts = append(accounts, *account)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("users: list: %w", err)
	}
	return accounts, nil
}

func scanAccount(row pgx.Row) (*Account, error) {
	var (
		account Account
		role    string
	)
	if err := row.Scan(&account.ID, &account.Email, &account.Name, &account.Photo, &role, &account.CreatedAt); err != nil {
		return nil, err
	}
	parsed, err := rbac.ParseRole(role)
	if err != nil {
		return nil, err
	}
	account.Role = parsed
	return &account, nil
}

var _ Repository = (*PGRepository)(nil)
