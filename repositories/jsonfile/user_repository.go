package jsonfile

import (
	"context"
	"fmt"

	"github.com/upb/audit-trail/models"
	"github.com/upb/audit-trail/repositories"
	"go.uber.org/zap"
)

// UserRepository implements repositories.UserRepository on the users collection
type UserRepository struct {
	store  *Store
	logger *zap.Logger
}

// NewUserRepository creates a new user repository
func NewUserRepository(store *Store, logger *zap.Logger) repositories.UserRepository {
	return &UserRepository{
		store:  store,
		logger: logger,
	}
}

// Create appends a new user
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	err := Mutate(ctx, r.store, UsersCollection, func(users []models.User) ([]models.User, error) {
		if indexOfUser(users, user.ID) >= 0 {
			return nil, fmt.Errorf("user %s: %w", user.ID, repositories.ErrAlreadyExists)
		}
		return append(users, *user), nil
	})
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}

	r.logger.Debug("user created", zap.String("id", user.ID), zap.String("username", user.Username))
	return nil
}

// GetByID retrieves the first user with the given ID
func (r *UserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	users, err := Load[models.User](ctx, r.store, UsersCollection)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	i := indexOfUser(users, id)
	if i < 0 {
		return nil, fmt.Errorf("user %s: %w", id, repositories.ErrNotFound)
	}
	return &users[i], nil
}

// Update applies the patch in place. A missing id leaves the file untouched.
func (r *UserRepository) Update(ctx context.Context, id string, patch models.UserPatch, updatedAt int64) (*models.User, error) {
	var updated models.User
	err := Mutate(ctx, r.store, UsersCollection, func(users []models.User) ([]models.User, error) {
		i := indexOfUser(users, id)
		if i < 0 {
			return nil, fmt.Errorf("user %s: %w", id, repositories.ErrNotFound)
		}
		users[i].Apply(patch, updatedAt)
		updated = users[i]
		return users, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to update user: %w", err)
	}

	r.logger.Debug("user updated", zap.String("id", id))
	return &updated, nil
}

// Exists reports whether the user is present
func (r *UserRepository) Exists(ctx context.Context, id string) (bool, error) {
	users, err := Load[models.User](ctx, r.store, UsersCollection)
	if err != nil {
		return false, fmt.Errorf("failed to check user: %w", err)
	}
	return indexOfUser(users, id) >= 0, nil
}

func indexOfUser(users []models.User, id string) int {
	for i := range users {
		if users[i].ID == id {
			return i
		}
	}
	return -1
}
