package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/iliyamo/auth-service/internal/model"
)

// MongoTokenRepo stores refresh tokens in the `refresh_tokens` collection.
// A TTL index on expiresAt lets MongoDB purge expired records; validity is
// still decided by RefreshToken.Valid since the TTL monitor runs lazily.
type MongoTokenRepo struct{ Coll *mongo.Collection }

func NewMongoTokenRepo(db *mongo.Database) *MongoTokenRepo {
	return &MongoTokenRepo{Coll: db.Collection("refresh_tokens")}
}

func (r *MongoTokenRepo) EnsureIndexes(ctx context.Context) error {
	_, err := r.Coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "tokenHash", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("token_hash_unique"),
		},
		{
			Keys:    bson.D{{Key: "expiresAt", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(0).SetName("expires_at_ttl"),
		},
		{
			Keys:    bson.D{{Key: "userId", Value: 1}},
			Options: options.Index().SetName("user_id"),
		},
	})
	if err != nil {
		return fmt.Errorf("refresh_tokens indexes: %w", err)
	}
	return nil
}

func (r *MongoTokenRepo) Create(ctx context.Context, t *model.RefreshToken) error {
	t.ID = bson.NewObjectID().Hex()
	if _, err := r.Coll.InsertOne(ctx, t); err != nil {
		t.ID = ""
		return err
	}
	return nil
}

func (r *MongoTokenRepo) FindByHash(ctx context.Context, tokenHash string) (*model.RefreshToken, error) {
	var t model.RefreshToken
	if err := r.Coll.FindOne(ctx, bson.M{"tokenHash": tokenHash}).Decode(&t); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &t, nil
}

// RevokeByHash only matches unrevoked tokens, so revokedAt keeps the
// first revocation time.
func (r *MongoTokenRepo) RevokeByHash(ctx context.Context, tokenHash string, at time.Time) error {
	_, err := r.Coll.UpdateOne(ctx,
		bson.M{"tokenHash": tokenHash, "isRevoked": false},
		bson.M{"$set": bson.M{"isRevoked": true, "revokedAt": at}})
	return err
}

func (r *MongoTokenRepo) RevokeAllForUser(ctx context.Context, userID string, at time.Time) error {
	_, err := r.Coll.UpdateMany(ctx,
		bson.M{"userId": userID, "isRevoked": false},
		bson.M{"$set": bson.M{"isRevoked": true, "revokedAt": at}})
	return err
}
