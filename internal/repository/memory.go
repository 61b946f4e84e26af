package repository

import (
	"context"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/natthaphon/secretkeeper/internal/model"
)

// userMemoryRepository is an in-memory UserRepository. It mirrors the
// uniqueness and find-or-create atomicity guarantees of the MongoDB
// implementation and backs the unit tests, which do not reach a database.
type userMemoryRepository struct {
	mu    sync.Mutex
	users map[string]*model.User
}

// NewUserMemoryRepository creates an empty in-memory UserRepository.
func NewUserMemoryRepository() UserRepository {
	return &userMemoryRepository{users: make(map[string]*model.User)}
}

func (r *userMemoryRepository) GetUser(_ context.Context, id string) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[id]
	if !ok {
		return nil, ErrNotFound
	}

	return copyUser(user), nil
}

func (r *userMemoryRepository) GetUserByUsername(_ context.Context, username string) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, user := range r.users {
		if user.Username == username {
			return copyUser(user), nil
		}
	}

	return nil, ErrNotFound
}

func (r *userMemoryRepository) FindOrCreateByProvider(
	_ context.Context,
	field ProviderField,
	subjectID string,
	displayName string,
) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, user := range r.users {
		if providerID(user, field) == subjectID {
			return copyUser(user), nil
		}
	}

	now := time.Now()
	user := &model.User{
		ID:        bson.NewObjectID(),
		Username:  displayName,
		CreatedAt: now,
		UpdatedAt: now,
	}
	setProviderID(user, field, subjectID)
	r.users[user.ID.Hex()] = user

	return copyUser(user), nil
}

func (r *userMemoryRepository) CreateUser(_ context.Context, user *model.User) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.users {
		if user.Username != "" && existing.Username == user.Username {
			return nil, ErrDuplicateUser
		}
	}

	now := time.Now()
	user.ID = bson.NewObjectID()
	user.CreatedAt = now
	user.UpdatedAt = now
	r.users[user.ID.Hex()] = copyUser(user)

	return user, nil
}

func (r *userMemoryRepository) UpdateSecret(_ context.Context, id string, secret string) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[id]
	if !ok {
		return nil, ErrNotFound
	}

	user.Secret = secret
	user.UpdatedAt = time.Now()

	return copyUser(user), nil
}

func (r *userMemoryRepository) ListUsersWithSecrets(_ context.Context) ([]*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var users []*model.User
	for _, user := range r.users {
		if user.HasSecret() {
			users = append(users, copyUser(user))
		}
	}

	return users, nil
}

func providerID(user *model.User, field ProviderField) string {
	switch field {
	case ProviderFieldGoogle:
		return user.GoogleID
	case ProviderFieldFacebook:
		return user.FacebookID
	default:
		return ""
	}
}

func setProviderID(user *model.User, field ProviderField, subjectID string) {
	switch field {
	case ProviderFieldGoogle:
		user.GoogleID = subjectID
	case ProviderFieldFacebook:
		user.FacebookID = subjectID
	}
}

func copyUser(user *model.User) *model.User {
	clone := *user
	return &clone
}
