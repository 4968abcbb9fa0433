package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/go-auth-backend/internal/domain"
	"github.com/tbourn/go-auth-backend/internal/repo"
	"github.com/tbourn/go-auth-backend/internal/security"
)

// repoShim adapts the repo free functions to UserRepo and ResetRepo.
type repoShim struct{}

func (repoShim) CreateUser(ctx context.Context, db *gorm.DB, u *domain.User) (*domain.User, error) {
	return repo.CreateUser(ctx, db, u)
}
func (repoShim) GetUserByID(ctx context.Context, db *gorm.DB, id string) (*domain.User, error) {
	return repo.GetUserByID(ctx, db, id)
}
func (repoShim) GetUserByEmail(ctx context.Context, db *gorm.DB, email string) (*domain.User, error) {
	return repo.GetUserByEmail(ctx, db, email)
}
func (repoShim) CountUsers(ctx context.Context, db *gorm.DB) (int64, error) {
	return repo.CountUsers(ctx, db)
}
func (repoShim) ListUsersPage(ctx context.Context, db *gorm.DB, offset, limit int) ([]domain.User, error) {
	return repo.ListUsersPage(ctx, db, offset, limit)
}
func (repoShim) UpdateUserFields(ctx context.Context, db *gorm.DB, id string, fields map[string]any) error {
	return repo.UpdateUserFields(ctx, db, id, fields)
}
func (repoShim) DeleteUser(ctx context.Context, db *gorm.DB, id string) error {
	return repo.DeleteUser(ctx, db, id)
}
func (repoShim) CreatePasswordReset(ctx context.Context, db *gorm.DB, userID, tokenHash string, ttl time.Duration) (*domain.PasswordReset, error) {
	return repo.CreatePasswordReset(ctx, db, userID, tokenHash, ttl)
}
func (repoShim) GetPasswordResetByHash(ctx context.Context, db *gorm.DB, tokenHash string) (*domain.PasswordReset, error) {
	return repo.GetPasswordResetByHash(ctx, db, tokenHash)
}
func (repoShim) MarkPasswordResetUsed(ctx context.Context, db *gorm.DB, id string, at time.Time) error {
	return repo.MarkPasswordResetUsed(ctx, db, id, at)
}
func (repoShim) DeleteStalePasswordResets(ctx context.Context, db *gorm.DB, now time.Time) (int64, error) {
	return repo.DeleteStalePasswordResets(ctx, db, now)
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.Exec("PRAGMA foreign_keys=ON;").Error)
	require.NoError(t, repo.AutoMigrate(db))
	return db
}

// captureNotifier records every notice it is asked to send.
type captureNotifier struct {
	sent []ResetNotice
	err  error
}

func (n *captureNotifier) SendPasswordReset(_ context.Context, rn ResetNotice) error {
	n.sent = append(n.sent, rn)
	return n.err
}

type fixture struct {
	db    *gorm.DB
	auth  *AuthService
	users *UserService
	notes *captureNotifier
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := newTestDB(t)
	hasher := security.NewHasher(bcrypt.MinCost)
	tokens := security.NewTokenIssuer("0123456789abcdef", "tests", time.Hour)

	notes := &captureNotifier{}
	auth := NewAuthService(db, repoShim{}, repoShim{}, hasher, tokens)
	auth.Notifier = notes
	auth.ResetURLBase = "https://app.test/reset/"
	auth.AdminSecret = "s3cret"

	return &fixture{
		db:    db,
		auth:  auth,
		users: NewUserService(db, repoShim{}, hasher),
		notes: notes,
	}
}

func (f *fixture) signUp(t *testing.T, username, email, password string) *AuthResult {
	t.Helper()
	res, err := f.auth.SignUp(context.Background(), SignUpInput{Username: username, Email: email, Password: password})
	require.NoError(t, err)
	return res
}
