package users

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/tourguide/tourguide-api/internal/rbac"
)

const defaultRedisPrefix = "tourguide:accounts"

// RedisRepository implements Repository with one hash per account, an
// email->id key used as the uniqueness guard and an insertion-ordered id list.
type RedisRepository struct {
	client *redis.Client
	prefix string
}

// NewRedisRepository constructs a Redis repository. An empty prefix selects
// the default key namespace.
func NewRedisRepository(client *redis.Client, prefix string) *RedisRepository {
	if prefix == "" {
		prefix = defaultRedisPrefix
	}
	return &RedisRepository{client: client, prefix: prefix}
}

func (r *RedisRepository) accountKey(id string) string { return r.prefix + ":id:" + id }
func (r *RedisRepository) emailKey(email string) string { return r.prefix + ":email:" + email }
func (r *RedisRepository) indexKey() string          { return r.prefix + ":index" }

// FindByEmail fetches an account by email.
func (r *RedisRepository) FindByEmail(ctx context.Context, email string) (*Account, error) {
	id, err := r.client.Get(ctx, r.emailKey(email)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("users: find by email: %w", err)
	}
	account, err := r.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, ErrNotFound
	}
	return account, nil
}

// insertScript claims the email and writes the account hash and index entry
// in one step. It returns 0 when the email is already claimed.
var insertScript = redis.NewScript(`
if redis.call('SETNX', KEYS[1], ARGV[1]) == 0 then
	return 0
end
redis.call('HSET', KEYS[2], 'email', ARGV[2], 'name', ARGV[3], 'photo', ARGV[4], 'role', ARGV[5], 'createdAt', ARGV[6])
redis.call('RPUSH', KEYS[3], ARGV[1])
return 1
`)

// Insert stores a new account; a taken email yields ErrAlreadyExists.
func (r *RedisRepository) Insert(ctx context.Context, account Account) (InsertResult, error) {
	id := uuid.NewString()
	createdAt := account.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	claimed, err := insertScript.Run(ctx, r.client,
		[]string{r.emailKey(account.Email), r.accountKey(id), r.indexKey()},
		id, account.Email, account.Name, account.Photo, string(account.Role), createdAt.Format(time.RFC3339Nano),
	).Int64()
	if err != nil {
		return InsertResult{}, fmt.Errorf("users: insert: %w", err)
	}
	if claimed == 0 {
		return InsertResult{}, ErrAlreadyExists
	}
	return InsertResult{Acknowledged: true, InsertedID: id}, nil
}

// updateRoleScript sets the role field only when the hash exists and returns
// {matched, modified}.
var updateRoleScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
	return {0, 0}
end
local previous = redis.call('HGET', KEYS[1], 'role')
redis.call('HSET', KEYS[1], 'role', ARGV[1])
if previous == ARGV[1] then
	return {1, 0}
end
return {1, 1}
`)

// UpdateRole sets the role of the account with the given id.
func (r *RedisRepository) UpdateRole(ctx context.Context, id string, role rbac.Role) (UpdateResult, error) {
	if _, err := uuid.Parse(id); err != nil {
		return UpdateResult{}, ErrInvalidID
	}
	counts, err := updateRoleScript.Run(ctx, r.client, []string{r.accountKey(id)}, string(role)).Int64Slice()
	if err != nil {
		return UpdateResult{}, fmt.Errorf("users: update role: %w", err)
	}
	if len(counts) != 2 {
		return UpdateResult{}, fmt.Errorf("users: update role: unexpected script reply %v", counts)
	}
	return UpdateResult{Acknowledged: true, MatchedCount: counts[0], ModifiedCount: counts[1]}, nil
}

// List returns every account in insertion order.
func (r *RedisRepository) List(ctx context.Context) ([]Account, error) {
	return r.filter(ctx, func(Account) bool { return true })
}

// ListByRole returns accounts holding role.
func (r *RedisRepository) ListByRole(ctx context.Context, role rbac.Role) ([]Account, error) {
	return r.filter(ctx, func(a Account) bool { return a.Role == role })
}

func (r *RedisRepository) filter(ctx context.Context, keep func(Account) bool) ([]Account, error) {
	ids, err := r.client.LRange(ctx, r.indexKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("users: list: %w", err)
	}
	cmds := make([]*redis.MapStringStringCmd, len(ids))
	_, err = r.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for i, id := range ids {
			cmds[i] = pipe.HGetAll(ctx, r.accountKey(id))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("users: list: %w", err)
	}
	accounts := make([]Account, 0, len(ids))
	for i, cmd := range cmds {
		fields := cmd.Val()
		if len(fields) == 0 {
			continue
		}
		account, err := accountFromHash(ids[i], fields)
		if err != nil {
			return nil, err
		}
		if keep(account) {
			accounts = append(accounts, account)
		}
	}
	return accounts, nil
}

func (r *RedisRepository) load(ctx context.Context, id string) (*Account, error) {
	fields, err := r.client.HGetAll(ctx, r.accountKey(id)).Result()
	if err != nil {
		return nil, fmt.Errorf("users: load account: %w", err)
	}
	if len(fields) == 0 {
		return nil, nil
	}
	account, err := accountFromHash(id, fields)
	if err != nil {
		return nil, err
	}
	return &account, nil
}

func accountFromHash(id string, fields map[string]string) (Account, error) {
	role, err := rbac.ParseRole(fields["role"])
	if err != nil {
		return Account{}, fmt.Errorf("users: account %s: %w", id, err)
	}
	account := Account{
		ID:    id,
		Email: fields["email"],
		Name:  fields["name"],
		Photo: fields["photo"],
		Role:  role,
	}
	if ts, err := time.Parse(time.RFC3339Nano, fields["createdAt"]); err == nil {
		account.CreatedAt = ts
	}
	return account, nil
}

var _ Repository = (*RedisRepository)(nil)
