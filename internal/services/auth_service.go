// Package services – AuthService
//
// This file implements the AuthService, which owns the credential flows:
// sign-up, login, forgot/reset password and admin elevation. It hashes and
// verifies passwords, issues access tokens, and coordinates the user and
// password-reset repositories.
//
// Observability: every flow runs in an OpenTelemetry span and is counted in
// authapi_auth_events_total (see metrics.go).
//
// Predictable outcomes are returned as *failure.Failure values (see errors.go)
// so the HTTP layer can classify them without inspecting service internals.
// Repository failures, including unique-constraint violations, pass through
// unchanged.
package services

import (
	"context"
	"crypto/subtle"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"

	"github.com/tbourn/go-auth-backend/internal/domain"
	"github.com/tbourn/go-auth-backend/internal/repo"
	"github.com/tbourn/go-auth-backend/internal/security"
)

// UserRepo defines the repository contract for user accounts.
type UserRepo interface {
	// CreateUser inserts a new account; duplicates yield a unique failure.
	CreateUser(ctx context.Context, db *gorm.DB, u *domain.User) (*domain.User, error)

	// GetUserByID fetches an account by primary key.
	GetUserByID(ctx context.Context, db *gorm.DB, id string) (*domain.User, error)

	// GetUserByEmail fetches an account by normalized email.
	GetUserByEmail(ctx context.Context, db *gorm.DB, email string) (*domain.User, error)

	// CountUsers returns the total number of accounts.
	CountUsers(ctx context.Context, db *gorm.DB) (int64, error)

	// ListUsersPage returns one page of accounts.
	ListUsersPage(ctx context.Context, db *gorm.DB, offset, limit int) ([]domain.User, error)

	// UpdateUserFields patches the given columns.
	UpdateUserFields(ctx context.Context, db *gorm.DB, id string, fields map[string]any) error

	// DeleteUser removes an account.
	DeleteUser(ctx context.Context, db *gorm.DB, id string) error
}

// ResetRepo defines the repository contract for password-reset grants.
type ResetRepo interface {
	CreatePasswordReset(ctx context.Context, db *gorm.DB, userID, tokenHash string, ttl time.Duration) (*domain.PasswordReset, error)
	GetPasswordResetByHash(ctx context.Context, db *gorm.DB, tokenHash string) (*domain.PasswordReset, error)
	MarkPasswordResetUsed(ctx context.Context, db *gorm.DB, id string, at time.Time) error
	DeleteStalePasswordResets(ctx context.Context, db *gorm.DB, now time.Time) (int64, error)
}

// SignUpInput is the validated sign-up payload.
type SignUpInput struct {
	Username string
	Email    string
	Password string
}

// AuthResult is returned by sign-up and login.
type AuthResult struct {
	User      *domain.User `json:"user"`
	Token     string       `json:"token" example:"eyJhbGciOiJIUzI1NiIs..."`
	ExpiresAt time.Time    `json:"expires_at"`
}

// AuthService implements the credential use-cases.
type AuthService struct {
	// DB is the GORM handle used for persistence.
	DB     *gorm.DB
	Users  UserRepo
	Resets ResetRepo

	Hasher *security.Hasher
	Tokens *security.TokenIssuer

	// Notifier delivers reset links; defaults to LogNotifier.
	Notifier Notifier
	// ResetTTL is how long a reset link stays valid.
	ResetTTL time.Duration
	// ResetURLBase is prefixed to the plain reset token to build the link.
	ResetURLBase string
	// AdminSecret gates ElevateToAdmin. Empty disables elevation.
	AdminSecret string

	now func() time.Time
}

// NewAuthService constructs an AuthService with a log notifier and a one
// hour reset window.
func NewAuthService(db *gorm.DB, users UserRepo, resets ResetRepo, hasher *security.Hasher, tokens *security.TokenIssuer) *AuthService {
	return &AuthService{
		DB:       db,
		Users:    users,
		Resets:   resets,
		Hasher:   hasher,
		Tokens:   tokens,
		Notifier: LogNotifier{},
		ResetTTL: time.Hour,
		now:      time.Now,
	}
}

func (s *AuthService) clock() time.Time {
	if s.now != nil {
		return s.now()
	}
	return time.Now()
}

// SignUp registers a regular user and returns a token for it.
func (s *AuthService) SignUp(ctx context.Context, in SignUpInput) (res *AuthResult, err error) {
	ctx, done := track(ctx, "signup")
	defer func() { done(err) }()

	hash, err := s.Hasher.Hash(in.Password)
	if err != nil {
		return nil, unexpected(err)
	}
	u, err := s.Users.CreateUser(ctx, s.DB, &domain.User{
		Username:     NormalizeUsername(in.Username),
		Email:        NormalizeEmail(in.Email),
		PasswordHash: hash,
		Role:         domain.RoleUser,
	})
	if err != nil {
		return nil, unexpected(err)
	}
	return s.issue(u)
}

// Login verifies credentials. Unknown emails and wrong passwords produce the
// same 401 failure.
func (s *AuthService) Login(ctx context.Context, email, password string) (res *AuthResult, err error) {
	ctx, done := track(ctx, "login")
	defer func() { done(err) }()

	u, err := s.Users.GetUserByEmail(ctx, s.DB, NormalizeEmail(email))
	if err != nil {
		return nil, notFoundAs(err, errInvalidCredentials)
	}
	if err := s.Hasher.Compare(u.PasswordHash, password); err != nil {
		if errors.Is(err, security.ErrPasswordMismatch) {
			return nil, errInvalidCredentials()
		}
		return nil, unexpected(err)
	}
	return s.issue(u)
}

// ForgotPassword issues a reset link when the address belongs to an account.
// The returned confirmation is identical either way.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) (msg string, err error) {
	ctx, done := track(ctx, "forgot_password")
	defer func() { done(err) }()

	u, err := s.Users.GetUserByEmail(ctx, s.DB, NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return MsgResetRequested, nil
		}
		return "", unexpected(err)
	}

	token, hash, err := security.NewResetToken()
	if err != nil {
		return "", unexpected(err)
	}
	rec, err := s.Resets.CreatePasswordReset(ctx, s.DB, u.ID, hash, s.ResetTTL)
	if err != nil {
		return "", unexpected(err)
	}

	notifier := s.Notifier
	if notifier == nil {
		notifier = LogNotifier{}
	}
	if err := notifier.SendPasswordReset(ctx, ResetNotice{
		UserID:    u.ID,
		Username:  u.Username,
		Email:     u.Email,
		Link:      s.ResetURLBase + token,
		ExpiresAt: rec.ExpiresAt,
	}); err != nil {
		// Reporting the failure would reveal that the account exists.
		loggerFrom(ctx).Error().Err(err).Str("user_id", u.ID).Msg("send password reset")
	}
	return MsgResetRequested, nil
}

// ResetPassword redeems token and sets newPassword. The hash update and the
// redemption commit together.
func (s *AuthService) ResetPassword(ctx context.Context, token, newPassword string) (msg string, err error) {
	ctx, done := track(ctx, "reset_password")
	defer func() { done(err) }()

	hash, err := s.Hasher.Hash(newPassword)
	if err != nil {
		return "", unexpected(err)
	}
	now := s.clock()

	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rec, err := s.Resets.GetPasswordResetByHash(ctx, tx, security.HashResetToken(token))
		if err != nil {
			return notFoundAs(err, errInvalidResetToken)
		}
		if !rec.Usable(now) {
			return errInvalidResetToken()
		}
		// Losing a race on the same grant reads as an already used token.
		if err := s.Resets.MarkPasswordResetUsed(ctx, tx, rec.ID, now); err != nil {
			return notFoundAs(err, errInvalidResetToken)
		}
		if err := s.Users.UpdateUserFields(ctx, tx, rec.UserID, map[string]any{"password_hash": hash}); err != nil {
			return notFoundAs(err, errInvalidResetToken)
		}
		return nil
	})
	if err != nil {
		return "", unexpected(err)
	}
	return MsgPasswordReset, nil
}

// PurgeResets removes expired and redeemed grants.
func (s *AuthService) PurgeResets(ctx context.Context) (int64, error) {
	return s.Resets.DeleteStalePasswordResets(ctx, s.DB, s.clock())
}

// ElevateToAdmin promotes userID when secret matches the configured admin
// secret and returns a fresh token carrying the admin role. An unset secret
// rejects every attempt.
func (s *AuthService) ElevateToAdmin(ctx context.Context, userID, secret string) (res *AuthResult, err error) {
	ctx, done := track(ctx, "elevate", attribute.String("user.id", userID))
	defer func() { done(err) }()

	if s.AdminSecret == "" || subtle.ConstantTimeCompare([]byte(secret), []byte(s.AdminSecret)) != 1 {
		return nil, errAdminForbidden()
	}
	if err := s.Users.UpdateUserFields(ctx, s.DB, userID, map[string]any{"role": domain.RoleAdmin}); err != nil {
		return nil, notFoundAs(err, errUserNotFound)
	}
	u, err := s.Users.GetUserByID(ctx, s.DB, userID)
	if err != nil {
		return nil, notFoundAs(err, errUserNotFound)
	}
	return s.issue(u)
}

func (s *AuthService) issue(u *domain.User) (*AuthResult, error) {
	token, exp, err := s.Tokens.Issue(u.ID, string(u.Role))
	if err != nil {
		return nil, unexpected(err)
	}
	return &AuthResult{User: u, Token: token, ExpiresAt: exp}, nil
}
