// Package services – UserService
//
// This file implements the UserService: administrative CRUD over accounts
// and the self-service profile operations (view, edit, change password,
// delete). Missing accounts surface as a 404 failure; duplicate emails or
// usernames surface as unique-constraint failures from the repository.
package services

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/tbourn/go-auth-backend/internal/domain"
	"github.com/tbourn/go-auth-backend/internal/security"
	"github.com/tbourn/go-auth-backend/internal/utils"
)

// Page size bounds for GetAllUsers.
const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// CreateUserInput is the validated admin create payload.
type CreateUserInput struct {
	Username string
	Email    string
	Password string
	Role     domain.Role // empty means RoleUser
}

// UpdateUserInput is an admin patch; nil fields are left unchanged.
type UpdateUserInput struct {
	Username *string
	Email    *string
	Role     *domain.Role
}

// ProfileInput is a self-service patch; nil fields are left unchanged.
type ProfileInput struct {
	Username *string
	Email    *string
}

// UserService provides account management operations.
type UserService struct {
	DB     *gorm.DB
	Repo   UserRepo
	Hasher *security.Hasher
}

// NewUserService constructs a UserService.
func NewUserService(db *gorm.DB, r UserRepo, hasher *security.Hasher) *UserService {
	return &UserService{DB: db, Repo: r, Hasher: hasher}
}

// GetAllUsers returns one page of users and the total count. page is
// 1-based; out-of-range inputs are clamped.
func (s *UserService) GetAllUsers(ctx context.Context, page, pageSize int) ([]domain.User, int64, error) {
	page, pageSize = utils.ClampPage(page, pageSize, DefaultPageSize, MaxPageSize)

	total, err := s.Repo.CountUsers(ctx, s.DB)
	if err != nil {
		return nil, 0, unexpected(err)
	}
	offset := utils.Offset(page, pageSize)
	if int64(offset) >= total {
		return []domain.User{}, total, nil
	}
	users, err := s.Repo.ListUsersPage(ctx, s.DB, offset, pageSize)
	if err != nil {
		return nil, 0, unexpected(err)
	}
	return users, total, nil
}

// GetUser returns the account with the given id.
func (s *UserService) GetUser(ctx context.Context, id string) (*domain.User, error) {
	u, err := s.Repo.GetUserByID(ctx, s.DB, id)
	if err != nil {
		return nil, notFoundAs(err, errUserNotFound)
	}
	return u, nil
}

// CreateUser registers an account on behalf of an admin.
func (s *UserService) CreateUser(ctx context.Context, in CreateUserInput) (*domain.User, error) {
	role := in.Role
	if role == "" {
		role = domain.RoleUser
	}
	hash, err := s.Hasher.Hash(in.Password)
	if err != nil {
		return nil, unexpected(err)
	}
	u, err := s.Repo.CreateUser(ctx, s.DB, &domain.User{
		Username:     NormalizeUsername(in.Username),
		Email:        NormalizeEmail(in.Email),
		PasswordHash: hash,
		Role:         role,
	})
	if err != nil {
		return nil, unexpected(err)
	}
	return u, nil
}

// UpdateUser applies an admin patch and returns the updated account.
func (s *UserService) UpdateUser(ctx context.Context, id string, in UpdateUserInput) (*domain.User, error) {
	fields := profileFields(in.Username, in.Email)
	if in.Role != nil {
		fields["role"] = *in.Role
	}
	return s.patch(ctx, id, fields)
}

// DeleteUser removes the account with the given id.
func (s *UserService) DeleteUser(ctx context.Context, id string) error {
	return notFoundAs(s.Repo.DeleteUser(ctx, s.DB, id), errUserNotFound)
}

// UpdateProfile applies a self-service patch. The role cannot change here.
func (s *UserService) UpdateProfile(ctx context.Context, id string, in ProfileInput) (*domain.User, error) {
	return s.patch(ctx, id, profileFields(in.Username, in.Email))
}

// ChangePassword replaces the password after verifying the current one.
func (s *UserService) ChangePassword(ctx context.Context, id, current, next string) error {
	u, err := s.Repo.GetUserByID(ctx, s.DB, id)
	if err != nil {
		return notFoundAs(err, errUserNotFound)
	}
	if err := s.Hasher.Compare(u.PasswordHash, current); err != nil {
		if errors.Is(err, security.ErrPasswordMismatch) {
			return errWrongPassword()
		}
		return unexpected(err)
	}
	hash, err := s.Hasher.Hash(next)
	if err != nil {
		return unexpected(err)
	}
	err = s.Repo.UpdateUserFields(ctx, s.DB, id, map[string]any{"password_hash": hash})
	return notFoundAs(err, errUserNotFound)
}

// DeleteProfile removes the caller's own account.
func (s *UserService) DeleteProfile(ctx context.Context, id string) error {
	return s.DeleteUser(ctx, id)
}

func (s *UserService) patch(ctx context.Context, id string, fields map[string]any) (*domain.User, error) {
	if err := s.Repo.UpdateUserFields(ctx, s.DB, id, fields); err != nil {
		return nil, notFoundAs(err, errUserNotFound)
	}
	return s.GetUser(ctx, id)
}

func profileFields(username, email *string) map[string]any {
	fields := map[string]any{}
	if username != nil {
		fields["username"] = NormalizeUsername(*username)
	}
	if email != nil {
		fields["email"] = NormalizeEmail(*email)
	}
	return fields
}
