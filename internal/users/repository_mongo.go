package users

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/tourguide/tourguide-api/internal/rbac"
)

// CollectionName is the Mongo collection holding accounts.
const CollectionName = "users"

type accountDocument struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	Email     string             `bson:"email"`
	Name      string             `bson:"name,omitempty"`
	Photo     string             `bson:"photo,omitempty"`
	Role      string             `bson:"role"`
	CreatedAt time.Time          `bson:"createdAt,omitempty"`
}

func (d accountDocument) toDomain() (Account, error) {
	role, err := rbac.ParseRole(d.Role)
	if err != nil {
		return Account{}, fmt.Errorf("users: account %s: %w", d.ID.Hex(), err)
	}
	return Account{
		ID:        d.ID.Hex(),
		Email:     d.Email,
		Name:      d.Name,
		Photo:     d.Photo,
		Role:      role,
		CreatedAt: d.CreatedAt,
	}, nil
}

// MongoRepository implements Repository on a MongoDB collection.
type MongoRepository struct {
	collection *mongo.Collection
}

// NewMongoRepository binds the repository to the users collection of db.
func NewMongoRepository(db *mongo.Database) *MongoRepository {
	return &MongoRepository{collection: db.Collection(CollectionName)}
}

// EnsureIndexes creates the unique email index backing the one-account-per-email rule.
func (r *MongoRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("uq_users_email"),
	})
	if err != nil {
		return fmt.Errorf("users: ensure indexes: %w", err)
	}
	return nil
}

// FindByEmail fetches an account by email.
func (r *MongoRepository) FindByEmail(ctx context.Context, email string) (*Account, error) {
	var doc accountDocument
	if err := r.collection.FindOne(ctx, bson.M{"email": email}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("users: find by email: %w", err)
	}
	account, err := doc.toDomain()
	if err != nil {
		return nil, err
	}
	return &account, nil
}

// Insert stores a new account; a taken email yields ErrAlreadyExists.
func (r *MongoRepository) Insert(ctx context.Context, account Account) (InsertResult, error) {
	doc := accountDocument{
		Email:     account.Email,
		Name:      account.Name,
		Photo:     account.Photo,
		Role:      string(account.Role),
		CreatedAt: account.CreatedAt,
	}
	res, err := r.collection.InsertOne(ctx, doc)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return InsertResult{}, ErrAlreadyExists
		}
		return InsertResult{}, fmt.Errorf("users: insert: %w", err)
	}
	id, ok := res.InsertedID.(primitive.ObjectID)
	if !ok {
		return InsertResult{}, fmt.Errorf("users: insert: unexpected id type %T", res.InsertedID)
	}
	return InsertResult{Acknowledged: true, InsertedID: id.Hex()}, nil
}

// UpdateRole sets the role of the account with the given ObjectID hex.
func (r *MongoRepository) UpdateRole(ctx context.Context, id string, role rbac.Role) (UpdateResult, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return UpdateResult{}, ErrInvalidID
	}
	res, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": oid},
		bson.M{"$set": bson.M{"role": string(role)}},
	)
	if err != nil {
		return UpdateResult{}, fmt.Errorf("users: update role: %w", err)
	}
	return UpdateResult{
		Acknowledged:  true,
		MatchedCount:  res.MatchedCount,
		ModifiedCount: res.ModifiedCount,
	}, nil
}

// List returns every account.
func (r *MongoRepository) List(ctx context.Context) ([]Account, error) {
	return r.find(ctx, bson.M{})
}

// ListByRole returns accounts holding role.
func (r *MongoRepository) ListByRole(ctx context.Context, role rbac.Role) ([]Account, error) {
	return r.find(ctx, bson.M{"role": string(role)})
}

func (r *MongoRepository) find(ctx context.Context, filter bson.M) ([]Account, error) {
	cursor, err := r.collection.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("users: list: %w", err)
	}
	var docs []accountDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("users: list: %w", err)
	}
	accounts := make([]Account, 0, len(docs))
	for _, doc := range docs {
		account, err := doc.toDomain()
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, account)
	}
	return accounts, nil
}

var _ Repository = (*MongoRepository)(nil)
