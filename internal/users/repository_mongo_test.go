package users

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"

	"github.com/tourguide/tourguide-api/internal/rbac"
)

const usersNamespace = "tourGuideDB.users"

func TestMongoRepository(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	ctx := context.Background()

	mt.Run("insert returns generated id", func(mt *mtest.T) {
		repo := NewMongoRepository(mt.DB)
		mt.AddMockResponses(mtest.CreateSuccessResponse())

		res, err := repo.Insert(ctx, Account{Email: "a@x.com", Role: rbac.RoleTourist})
		require.NoError(mt, err)
		assert.True(mt, res.Acknowledged)
		_, err = primitive.ObjectIDFromHex(res.InsertedID)
		assert.NoError(mt, err)
	})

	mt.Run("duplicate email maps to already exists", func(mt *mtest.T) {
		repo := NewMongoRepository(mt.DB)
		mt.AddMockResponses(mtest.CreateWriteErrorsResponse(mtest.WriteError{
			Index:   0,
			Code:    11000,
			Message: "E11000 duplicate key error collection: tourGuideDB.users index: uq_users_email",
		}))

		_, err := repo.Insert(ctx, Account{Email: "a@x.com", Role: rbac.RoleTourist})
		assert.ErrorIs(mt, err, ErrAlreadyExists)
	})

	mt.Run("other write errors are not duplicates", func(mt *mtest.T) {
		repo := NewMongoRepository(mt.DB)
		mt.AddMockResponses(mtest.CreateWriteErrorsResponse(mtest.WriteError{Index: 0, Code: 121, Message: "Document failed validation"}))

		_, err := repo.Insert(ctx, Account{Email: "a@x.com", Role: rbac.RoleTourist})
		require.Error(mt, err)
		assert.NotErrorIs(mt, err, ErrAlreadyExists)
	})

	mt.Run("find by email", func(mt *mtest.T) {
		repo := NewMongoRepository(mt.DB)
		oid := primitive.NewObjectID()
		mt.AddMockResponses(mtest.CreateCursorResponse(0, usersNamespace, mtest.FirstBatch, bson.D{
			{Key: "_id", Value: oid},
			{Key: "email", Value: "g@x.com"},
			{Key: "role", Value: "Tourist Guide"},
		}))

		account, err := repo.FindByEmail(ctx, "g@x.com")
		require.NoError(mt, err)
		assert.Equal(mt, oid.Hex(), account.ID)
		assert.Equal(mt, rbac.RoleGuide, account.Role)
	})

	mt.Run("find by email without match", func(mt *mtest.T) {
		repo := NewMongoRepository(mt.DB)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, usersNamespace, mtest.FirstBatch))

		_, err := repo.FindByEmail(ctx, "ghost@x.com")
		assert.ErrorIs(mt, err, ErrNotFound)
	})

	mt.Run("find by email with unknown stored role", func(mt *mtest.T) {
		repo := NewMongoRepository(mt.DB)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, usersNamespace, mtest.FirstBatch, bson.D{
			{Key: "_id", Value: primitive.NewObjectID()},
			{Key: "email", Value: "a@x.com"},
			{Key: "role", Value: "Root"},
		}))

		_, err := repo.FindByEmail(ctx, "a@x.com")
		require.Error(mt, err)
		assert.NotErrorIs(mt, err, ErrNotFound)
	})

	mt.Run("update role reports counts", func(mt *mtest.T) {
		repo := NewMongoRepository(mt.DB)
		mt.AddMockResponses(
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}, bson.E{Key: "nModified", Value: 1}),
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 0}, bson.E{Key: "nModified", Value: 0}),
		)

		upd, err := repo.UpdateRole(ctx, primitive.NewObjectID().Hex(), rbac.RoleAdmin)
		require.NoError(mt, err)
		assert.Equal(mt, UpdateResult{Acknowledged: true, MatchedCount: 1, ModifiedCount: 1}, upd)

		upd, err = repo.UpdateRole(ctx, primitive.NewObjectID().Hex(), rbac.RoleAdmin)
		require.NoError(mt, err)
		assert.Equal(mt, UpdateResult{Acknowledged: true}, upd)
	})

	mt.Run("update role rejects malformed id", func(mt *mtest.T) {
		repo := NewMongoRepository(mt.DB)

		_, err := repo.UpdateRole(ctx, "0b0c3f6e-8d0b-4a39-9b36-0d8f8a0c1e11", rbac.RoleAdmin)
		assert.ErrorIs(mt, err, ErrInvalidID)
		assert.Empty(mt, mt.GetAllStartedEvents())
	})

	mt.Run("list by role filters on role", func(mt *mtest.T) {
		repo := NewMongoRepository(mt.DB)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, usersNamespace, mtest.FirstBatch,
			bson.D{{Key: "_id", Value: primitive.NewObjectID()}, {Key: "email", Value: "g1@x.com"}, {Key: "role", Value: "Tourist Guide"}},
			bson.D{{Key: "_id", Value: primitive.NewObjectID()}, {Key: "email", Value: "g2@x.com"}, {Key: "role", Value: "Tourist Guide"}},
		))

		guides, err := repo.ListByRole(ctx, rbac.RoleGuide)
		require.NoError(mt, err)
		require.Len(mt, guides, 2)
		assert.Equal(mt, "g1@x.com", guides[0].Email)

		started := mt.GetStartedEvent()
		require.NotNil(mt, started)
		assert.Equal(mt, "Tourist Guide", started.Command.Lookup("filter", "role").StringValue())
	})

	mt.Run("ensure indexes", func(mt *mtest.T) {
		repo := NewMongoRepository(mt.DB)
		mt.AddMockResponses(mtest.CreateSuccessResponse())

		require.NoError(mt, repo.EnsureIndexes(ctx))
		started := mt.GetStartedEvent()
		require.NotNil(mt, started)
		assert.Equal(mt, "createIndexes", started.CommandName)
	})
}

func TestAccountDocumentToDomain(t *testing.T) {
	oid := primitive.NewObjectID()
	created := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	doc := accountDocument{ID: oid, Email: "a@x.com", Name: "Ayesha", Role: "Tourist Guide", CreatedAt: created}

	account, err := doc.toDomain()
	require.NoError(t, err)
	assert.Equal(t, oid.Hex(), account.ID)
	assert.Equal(t, rbac.RoleGuide, account.Role)
	assert.Equal(t, created, account.CreatedAt)

	doc.Role = "admin"
	_, err = doc.toDomain()
	assert.Error(t, err)
}
