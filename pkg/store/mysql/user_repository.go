package mysql

import (
	"context"
	"errors"
	"fmt"

	"revshare/pkg/store/mysql/model"

	"gorm.io/gorm"
)

// UserRepository handles user accounts in MySQL
type UserRepository struct {
	ds *Datastore
}

// NewUserRepository creates a new user repository
func NewUserRepository(ds *Datastore) *UserRepository {
	return &UserRepository{ds: ds}
}

// Create inserts a new user
func (r *UserRepository) Create(ctx context.Context, user *model.User) error {
	if err := r.ds.DB(ctx).Create(user).Error; err != nil {
		return fmt.Errorf("failed to create user %q: %w", user.Username, err)
	}
	return nil
}

// GetByAPIKey resolves an active user from an API key, or ErrNotFound
func (r *UserRepository) GetByAPIKey(ctx context.Context, apiKey string) (*model.User, error) {
	var user model.User
	err := r.ds.DB(ctx).
		Where("api_key = ? AND is_active = ?", apiKey, true).
		First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user by api key: %w", err)
	}
	return &user, nil
}

// GetByID returns one user or ErrNotFound
func (r *UserRepository) GetByID(ctx context.Context, id int64) (*model.User, error) {
	var user model.User
	err := r.ds.DB(ctx).First(&user, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user %d: %w", id, err)
	}
	return &user, nil
}

// GetByUsername returns one user or ErrNotFound
func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	var user model.User
	err := r.ds.DB(ctx).Where("username = ?", username).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user %q: %w", username, err)
	}
	return &user, nil
}

// List returns all users
func (r *UserRepository) List(ctx context.Context) ([]*model.User, error) {
	var users []*model.User
	if err := r.ds.DB(ctx).Order("id").Find(&users).Error; err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}

// Update persists changes to an existing user
func (r *UserRepository) Update(ctx context.Context, user *model.User) error {
	if err := r.ds.DB(ctx).Save(user).Error; err != nil {
		return fmt.Errorf("failed to update user %d: %w", user.ID, err)
	}
	return nil
}

// Count returns the total number of users
func (r *UserRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.ds.DB(ctx).Model(&model.User{}).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count users: %w", err)
	}
	return count, nil
}
