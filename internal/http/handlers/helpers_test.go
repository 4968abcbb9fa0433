package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-auth-backend/internal/domain"
	"github.com/tbourn/go-auth-backend/internal/failure"
	"github.com/tbourn/go-auth-backend/internal/http/middleware"
	"github.com/tbourn/go-auth-backend/internal/services"
)

// ---------- fakes ----------

type fakeAuth struct {
	signUp   func(ctx context.Context, in services.SignUpInput) (*services.AuthResult, error)
	login    func(ctx context.Context, email, password string) (*services.AuthResult, error)
	forgot   func(ctx context.Context, email string) (string, error)
	reset    func(ctx context.Context, token, newPassword string) (string, error)
	elevate  func(ctx context.Context, userID, secret string) (*services.AuthResult, error)
	lastUser string
}

func (f *fakeAuth) SignUp(ctx context.Context, in services.SignUpInput) (*services.AuthResult, error) {
	return f.signUp(ctx, in)
}

func (f *fakeAuth) Login(ctx context.Context, email, password string) (*services.AuthResult, error) {
	return f.login(ctx, email, password)
}

func (f *fakeAuth) ForgotPassword(ctx context.Context, email string) (string, error) {
	return f.forgot(ctx, email)
}

func (f *fakeAuth) ResetPassword(ctx context.Context, token, newPassword string) (string, error) {
	return f.reset(ctx, token, newPassword)
}

func (f *fakeAuth) ElevateToAdmin(ctx context.Context, userID, secret string) (*services.AuthResult, error) {
	f.lastUser = userID
	return f.elevate(ctx, userID, secret)
}

type fakeUsers struct {
	list       func(ctx context.Context, page, pageSize int) ([]domain.User, int64, error)
	get        func(ctx context.Context, id string) (*domain.User, error)
	create     func(ctx context.Context, in services.CreateUserInput) (*domain.User, error)
	update     func(ctx context.Context, id string, in services.UpdateUserInput) (*domain.User, error)
	del        func(ctx context.Context, id string) error
	profile    func(ctx context.Context, id string, in services.ProfileInput) (*domain.User, error)
	changePass func(ctx context.Context, id, current, next string) error
	delProfile func(ctx context.Context, id string) error
	calls      int
}

func (f *fakeUsers) GetAllUsers(ctx context.Context, page, pageSize int) ([]domain.User, int64, error) {
	f.calls++
	return f.list(ctx, page, pageSize)
}

func (f *fakeUsers) GetUser(ctx context.Context, id string) (*domain.User, error) {
	f.calls++
	return f.get(ctx, id)
}

func (f *fakeUsers) CreateUser(ctx context.Context, in services.CreateUserInput) (*domain.User, error) {
	f.calls++
	return f.create(ctx, in)
}

func (f *fakeUsers) UpdateUser(ctx context.Context, id string, in services.UpdateUserInput) (*domain.User, error) {
	f.calls++
	return f.update(ctx, id, in)
}

func (f *fakeUsers) DeleteUser(ctx context.Context, id string) error {
	f.calls++
	return f.del(ctx, id)
}

func (f *fakeUsers) UpdateProfile(ctx context.Context, id string, in services.ProfileInput) (*domain.User, error) {
	f.calls++
	return f.profile(ctx, id, in)
}

func (f *fakeUsers) ChangePassword(ctx context.Context, id, current, next string) error {
	f.calls++
	return f.changePass(ctx, id, current, next)
}

func (f *fakeUsers) DeleteProfile(ctx context.Context, id string) error {
	f.calls++
	return f.delProfile(ctx, id)
}

// ---------- engine + request helpers ----------

const testUserID = "11111111-1111-4111-8111-111111111111"

// newEngine mounts h behind the error middleware, with the caller already
// authenticated as testUserID.
func newEngine(h *Handlers) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(middleware.Errors(failure.ModeProduction))
	r.Use(func(c *gin.Context) {
		c.Set(middleware.UserIDKey, testUserID)
		c.Next()
	})

	r.POST("/auth/signup", h.SignUp)
	r.POST("/auth/login", h.Login)
	r.POST("/auth/forgot-password", h.ForgotPassword)
	r.POST("/auth/reset-password", h.ResetPassword)
	r.POST("/auth/admin", h.ElevateToAdmin)

	r.GET("/users/me", h.GetMe)
	r.PATCH("/users/me", h.UpdateMe)
	r.DELETE("/users/me", h.DeleteMe)
	r.PUT("/users/me/password", h.ChangePassword)

	r.GET("/users", h.ListUsers)
	r.POST("/users", h.CreateUser)
	r.GET("/users/:id", h.GetUser)
	r.PATCH("/users/:id", h.UpdateUser)
	r.DELETE("/users/:id", h.DeleteUser)
	return r
}

func send(t *testing.T, r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		if err := json.NewEncoder(&buf).Encode(b); err != nil {
			t.Fatalf("encode: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

// expectFailure asserts status and the "data" message of a failure body.
func expectFailure(t *testing.T, w *httptest.ResponseRecorder, status int, data string) {
	t.Helper()
	if w.Code != status {
		t.Fatalf("status=%d want %d body=%s", w.Code, status, w.Body.String())
	}
	var body ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("json: %v (%s)", err, w.Body.String())
	}
	if body.Success || body.Data != data {
		t.Fatalf("body=%+v want data %q", body, data)
	}
}

// decodeData unmarshals the "data" member of a success body into dst.
func decodeData(t *testing.T, w *httptest.ResponseRecorder, dst any) {
	t.Helper()
	var env struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("json: %v (%s)", err, w.Body.String())
	}
	if !env.Success {
		t.Fatalf("expected success body, got %s", w.Body.String())
	}
	if err := json.Unmarshal(env.Data, dst); err != nil {
		t.Fatalf("data: %v (%s)", err, env.Data)
	}
}
