package mongo

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/s3ui/bucketgate/internal/core/domain"
)

const DefaultUsersCollection = "users"

// MongoAuthRepository is the credential store. Users are keyed by an opaque
// string _id and looked up by a unique email.
type MongoAuthRepository struct {
	coll *mongo.Collection
}

func NewAuthRepository(db *mongo.Database, collection string) *MongoAuthRepository {
	if collection == "" {
		collection = DefaultUsersCollection
	}
	return &MongoAuthRepository{coll: db.Collection(collection)}
}

type mongoUser struct {
	ID             string `bson:"_id"`
	Email          string `bson:"email"`
	Name           string `bson:"name"`
	Password       string `bson:"password"`
	Active         bool   `bson:"active"`
	ChangePassword bool   `bson:"change_password"`
}

func (mu mongoUser) toDomain() *domain.User {
	return &domain.User{
		ID:             mu.ID,
		Email:          mu.Email,
		Name:           mu.Name,
		PasswordHash:   mu.Password,
		Active:         mu.Active,
		ChangePassword: mu.ChangePassword,
	}
}

// EnsureIndexes creates the unique email index. Safe to call on every start.
func (r *MongoAuthRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("email_unique"),
	})
	if err != nil {
		return fmt.Errorf("create email index: %w", err)
	}
	return nil
}

func (r *MongoAuthRepository) FindByID(ctx context.Context, id string) (*domain.User, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *MongoAuthRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.findOne(ctx, bson.M{"email": email})
}

func (r *MongoAuthRepository) findOne(ctx context.Context, filter bson.M) (*domain.User, error) {
	var mu mongoUser
	if err := r.coll.FindOne(ctx, filter).Decode(&mu); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return mu.toDomain(), nil
}

// UpdatePassword sets the new hash and clears change_password in one
// document update.
func (r *MongoAuthRepository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	res, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"password": passwordHash, "change_password": false}},
	)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}
