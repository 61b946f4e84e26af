// Package repository persists and retrieves user records.
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/natthaphon/secretkeeper/internal/model"
)

// ProviderField names the user attribute that carries an external provider's
// subject identifier.
type ProviderField string

const (
	ProviderFieldGoogle   ProviderField = "google_id"
	ProviderFieldFacebook ProviderField = "facebook_id"
)

var (
	// ErrNotFound is returned when no user matches the lookup.
	ErrNotFound = errors.New("user not found")

	// ErrDuplicateUser is returned when a create would violate a
	// uniqueness constraint, such as an already-taken username.
	ErrDuplicateUser = errors.New("user already exists")
)

// UserRepository defines the store contract consumed by the authenticators,
// the session manager and the secret handlers.
type UserRepository interface {
	// GetUser retrieves a user by its opaque identifier.
	GetUser(ctx context.Context, id string) (*model.User, error)

	// GetUserByUsername retrieves a user by its unique username.
	GetUserByUsername(ctx context.Context, username string) (*model.User, error)

	// FindOrCreateByProvider atomically resolves the user holding the given
	// provider subject identifier, creating one with the display name and no
	// password hash when none exists. Repeated calls with the same subject
	// identifier always resolve to the same user.
	FindOrCreateByProvider(
		ctx context.Context,
		field ProviderField,
		subjectID string,
		displayName string,
	) (*model.User, error)

	// CreateUser persists a new user record and assigns its identifier.
	CreateUser(ctx context.Context, user *model.User) (*model.User, error)

	// UpdateSecret overwrites the user's secret in a single atomic update.
	UpdateSecret(ctx context.Context, id string, secret string) (*model.User, error)

	// ListUsersWithSecrets returns every user that has submitted a secret.
	ListUsersWithSecrets(ctx context.Context) ([]*model.User, error)
}

const userCollection = "users"

type userMongoRepository struct {
	db *mongo.Database
}

// NewUserMongoRepository creates a MongoDB-backed UserRepository and ensures
// the uniqueness indexes the data model relies on. The provider-id and
// username indexes are partial so that records without the field do not
// collide on its absence.
func NewUserMongoRepository(ctx context.Context, logger *zerolog.Logger, db *mongo.Database) UserRepository {
	collection := db.Collection(userCollection)

	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "username", Value: 1}},
			Options: options.Index().
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"username": bson.M{"$exists": true}}),
		},
		{
			Keys: bson.D{{Key: "google_id", Value: 1}},
			Options: options.Index().
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"google_id": bson.M{"$exists": true}}),
		},
		{
			Keys: bson.D{{Key: "facebook_id", Value: 1}},
			Options: options.Index().
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"facebook_id": bson.M{"$exists": true}}),
		},
	}

	_, err := collection.Indexes().CreateMany(ctx, indexes)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create user indexes")
	}

	return &userMongoRepository{db: db}
}

func (r *userMongoRepository) GetUser(ctx context.Context, id string) (*model.User, error) {
	objectID, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}

	result := r.db.Collection(userCollection).FindOne(ctx, bson.M{"_id": objectID})
	return decodeUser(result)
}

func (r *userMongoRepository) GetUserByUsername(ctx context.Context, username string) (*model.User, error) {
	result := r.db.Collection(userCollection).FindOne(ctx, bson.M{"username": username})
	return decodeUser(result)
}

func (r *userMongoRepository) FindOrCreateByProvider(
	ctx context.Context,
	field ProviderField,
	subjectID string,
	displayName string,
) (*model.User, error) {
	now := time.Now()

	// The subject id itself is carried into the upserted document by the
	// filter equality match; the remaining defaults go in $setOnInsert, so a
	// matched record comes back untouched.
	result := r.db.Collection(userCollection).FindOneAndUpdate(
		ctx,
		bson.M{string(field): subjectID},
		bson.M{
			"$setOnInsert": bson.M{
				"username":   displayName,
				"created_at": now,
				"updated_at": now,
			},
		},
		options.FindOneAndUpdate().
			SetUpsert(true).
			SetReturnDocument(options.After),
	)

	return decodeUser(result)
}

func (r *userMongoRepository) CreateUser(ctx context.Context, user *model.User) (*model.User, error) {
	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now

	result, err := r.db.Collection(userCollection).InsertOne(ctx, user)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, ErrDuplicateUser
		}

		return nil, err
	}

	if objectID, ok := result.InsertedID.(bson.ObjectID); ok {
		user.ID = objectID
	} else {
		return nil, errors.New("failed to convert inserted ID to ObjectID")
	}

	return user, nil
}

func (r *userMongoRepository) UpdateSecret(ctx context.Context, id string, secret string) (*model.User, error) {
	objectID, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}

	result := r.db.Collection(userCollection).FindOneAndUpdate(
		ctx,
		bson.M{"_id": objectID},
		bson.M{"$set": bson.M{
			"secret":     secret,
			"updated_at": time.Now(),
		}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	)

	return decodeUser(result)
}

func (r *userMongoRepository) ListUsersWithSecrets(ctx context.Context) ([]*model.User, error) {
	cursor, err := r.db.Collection(userCollection).Find(ctx, bson.M{
		"secret": bson.M{"$exists": true, "$ne": ""},
	})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var users []*model.User
	for cursor.Next(ctx) {
		var user model.User
		if err := cursor.Decode(&user); err != nil {
			return nil, err
		}
		users = append(users, &user)
	}

	if err := cursor.Err(); err != nil {
		return nil, err
	}

	return users, nil
}

func decodeUser(result *mongo.SingleResult) (*model.User, error) {
	if err := result.Err(); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}

		return nil, err
	}

	var user model.User
	if err := result.Decode(&user); err != nil {
		return nil, err
	}

	return &user, nil
}
