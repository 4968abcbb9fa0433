package handlers

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-auth-backend/internal/domain"
	"github.com/tbourn/go-auth-backend/internal/http/middleware"
	"github.com/tbourn/go-auth-backend/internal/services"
)

//
// Service contracts (context-aware)
//

// AuthService defines the credential flows consumed by HTTP handlers.
type AuthService interface {
	SignUp(ctx context.Context, in services.SignUpInput) (*services.AuthResult, error)
	Login(ctx context.Context, email, password string) (*services.AuthResult, error)
	ForgotPassword(ctx context.Context, email string) (string, error)
	ResetPassword(ctx context.Context, token, newPassword string) (string, error)
	ElevateToAdmin(ctx context.Context, userID, secret string) (*services.AuthResult, error)
}

// UserService defines account management operations consumed by HTTP
// handlers. Implementations must honor ctx for cancellation.
type UserService interface {
	GetAllUsers(ctx context.Context, page, pageSize int) ([]domain.User, int64, error)
	GetUser(ctx context.Context, id string) (*domain.User, error)
	CreateUser(ctx context.Context, in services.CreateUserInput) (*domain.User, error)
	UpdateUser(ctx context.Context, id string, in services.UpdateUserInput) (*domain.User, error)
	DeleteUser(ctx context.Context, id string) error
	UpdateProfile(ctx context.Context, id string, in services.ProfileInput) (*domain.User, error)
	ChangePassword(ctx context.Context, id, current, next string) error
	DeleteProfile(ctx context.Context, id string) error
}

//
// Handler wiring
//

// Handlers groups the HTTP endpoints for auth and users.
type Handlers struct {
	authSvc AuthService
	userSvc UserService
}

// New constructs a Handlers instance bound to the given services.
func New(authSvc AuthService, userSvc UserService) *Handlers {
	return &Handlers{authSvc: authSvc, userSvc: userSvc}
}

// currentUserID returns the authenticated caller set by middleware.Authenticate.
func currentUserID(c *gin.Context) string {
	return c.GetString(middleware.UserIDKey)
}
