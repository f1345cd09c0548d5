package service

import (
	"context"
	"fmt"
	"strings"

	"revshare/pkg/store/mysql"
	dbmodel "revshare/pkg/store/mysql/model"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// UserService manages API users and their keys.
type UserService struct {
	users *mysql.UserRepository
}

// NewUserService creates a user service
func NewUserService(users *mysql.UserRepository) *UserService {
	return &UserService{users: users}
}

// CreateUserInput carries a new user account.
type CreateUserInput struct {
	Username    string `json:"username" binding:"required"`
	Email       string `json:"email" binding:"required"`
	Password    string `json:"password" binding:"required"`
	Role        string `json:"role"`
	CanViewData bool   `json:"can_view_data"`
}

// hashPassword bcrypt-hashes a password, truncated to bcrypt's 72-byte
// input limit first so long passwords do not error out.
func hashPassword(password string) (string, error) {
	raw := []byte(password)
	if len(raw) > 72 {
		raw = raw[:72]
	}
	hash, err := bcrypt.GenerateFromPassword(raw, bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

// generateAPIKey issues a fresh opaque key.
func generateAPIKey() string {
	return strings.ReplaceAll(uuid.NewString()+uuid.NewString(), "-", "")
}

// Create stores a new user with a freshly issued API key. The plain key is
// returned once; only its holder ever sees it again.
func (s *UserService) Create(ctx context.Context, in CreateUserInput) (*dbmodel.User, string, error) {
	role := dbmodel.UserRole(in.Role)
	if role == "" {
		role = dbmodel.RoleUser
	}
	if role != dbmodel.RoleAdmin && role != dbmodel.RoleUser {
		return nil, "", fmt.Errorf("invalid role %q", in.Role)
	}

	hash, err := hashPassword(in.Password)
	if err != nil {
		return nil, "", err
	}

	apiKey := generateAPIKey()
	user := &dbmodel.User{
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: hash,
		Role:         role,
		CanViewData:  in.CanViewData,
		APIKey:       apiKey,
		IsActive:     true,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, "", err
	}
	return user, apiKey, nil
}

// Authenticate verifies a username/password pair.
func (s *UserService) Authenticate(ctx context.Context, username, password string) (*dbmodel.User, error) {
	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	raw := []byte(password)
	if len(raw) > 72 {
		raw = raw[:72]
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), raw); err != nil {
		return nil, mysql.ErrNotFound
	}
	if !user.IsActive {
		return nil, mysql.ErrNotFound
	}
	return user, nil
}

// ResolveAPIKey maps an API key to its active user.
func (s *UserService) ResolveAPIKey(ctx context.Context, apiKey string) (*dbmodel.User, error) {
	return s.users.GetByAPIKey(ctx, apiKey)
}

// RotateAPIKey issues a new key for a user, invalidating the old one.
func (s *UserService) RotateAPIKey(ctx context.Context, id int64) (string, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return "", err
	}
	apiKey := generateAPIKey()
	user.APIKey = apiKey
	if err := s.users.Update(ctx, user); err != nil {
		return "", err
	}
	return apiKey, nil
}

// List returns all users.
func (s *UserService) List(ctx context.Context) ([]*dbmodel.User, error) {
	return s.users.List(ctx)
}

// SetActive flips a user's active flag.
func (s *UserService) SetActive(ctx context.Context, id int64, active bool) error {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return err
	}
	user.IsActive = active
	return s.users.Update(ctx, user)
}

// HasUsers reports whether any account exists, for bootstrap decisions.
func (s *UserService) HasUsers(ctx context.Context) (bool, error) {
	n, err := s.users.Count(ctx)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
