// Package httpapi wires the HTTP transport (Gin) to application services,
// middleware, and route handlers. It centralizes cross-cutting concerns such
// as tracing, correlation IDs, logging/redaction, failure classification,
// panic recovery, metrics, compression, CORS, security headers, and rate
// limiting.
//
// Design goals:
//   - Put observability first (OTel + Prometheus)
//   - One place turns failures into responses (middleware.Errors)
//   - Deterministic, minimal router setup; all dependencies injected
//   - Production-ready CORS and security header posture
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"

	_ "github.com/tbourn/go-auth-backend/docs" // registers the OpenAPI document
	"github.com/tbourn/go-auth-backend/internal/config"
	"github.com/tbourn/go-auth-backend/internal/domain"
	"github.com/tbourn/go-auth-backend/internal/failure"
	"github.com/tbourn/go-auth-backend/internal/http/handlers"
	"github.com/tbourn/go-auth-backend/internal/http/middleware"
	"github.com/tbourn/go-auth-backend/internal/repo"
	"github.com/tbourn/go-auth-backend/internal/security"
	"github.com/tbourn/go-auth-backend/internal/services"
)

// repoShim adapts the repository free functions to the services.UserRepo and
// services.ResetRepo interfaces. This keeps services decoupled from the
// concrete repo package while reusing existing functions.
type repoShim struct{}

// CreateUser proxies repo.CreateUser.
func (repoShim) CreateUser(ctx context.Context, db *gorm.DB, u *domain.User) (*domain.User, error) {
	return repo.CreateUser(ctx, db, u)
}

// GetUserByID proxies repo.GetUserByID.
func (repoShim) GetUserByID(ctx context.Context, db *gorm.DB, id string) (*domain.User, error) {
	return repo.GetUserByID(ctx, db, id)
}

// GetUserByEmail proxies repo.GetUserByEmail.
func (repoShim) GetUserByEmail(ctx context.Context, db *gorm.DB, email string) (*domain.User, error) {
	return repo.GetUserByEmail(ctx, db, email)
}

// CountUsers proxies repo.CountUsers (pagination support).
func (repoShim) CountUsers(ctx context.Context, db *gorm.DB) (int64, error) {
	return repo.CountUsers(ctx, db)
}

// ListUsersPage proxies repo.ListUsersPage (pagination support).
func (repoShim) ListUsersPage(ctx context.Context, db *gorm.DB, offset, limit int) ([]domain.User, error) {
	return repo.ListUsersPage(ctx, db, offset, limit)
}

// UpdateUserFields proxies repo.UpdateUserFields.
func (repoShim) UpdateUserFields(ctx context.Context, db *gorm.DB, id string, fields map[string]any) error {
	return repo.UpdateUserFields(ctx, db, id, fields)
}

// DeleteUser proxies repo.DeleteUser.
func (repoShim) DeleteUser(ctx context.Context, db *gorm.DB, id string) error {
	return repo.DeleteUser(ctx, db, id)
}

// CreatePasswordReset proxies repo.CreatePasswordReset.
func (repoShim) CreatePasswordReset(ctx context.Context, db *gorm.DB, userID, tokenHash string, ttl time.Duration) (*domain.PasswordReset, error) {
	return repo.CreatePasswordReset(ctx, db, userID, tokenHash, ttl)
}

// GetPasswordResetByHash proxies repo.GetPasswordResetByHash.
func (repoShim) GetPasswordResetByHash(ctx context.Context, db *gorm.DB, tokenHash string) (*domain.PasswordReset, error) {
	return repo.GetPasswordResetByHash(ctx, db, tokenHash)
}

// MarkPasswordResetUsed proxies repo.MarkPasswordResetUsed.
func (repoShim) MarkPasswordResetUsed(ctx context.Context, db *gorm.DB, id string, at time.Time) error {
	return repo.MarkPasswordResetUsed(ctx, db, id, at)
}

// DeleteStalePasswordResets proxies repo.DeleteStalePasswordResets.
func (repoShim) DeleteStalePasswordResets(ctx context.Context, db *gorm.DB, now time.Time) (int64, error) {
	return repo.DeleteStalePasswordResets(ctx, db, now)
}

// Services bundles the application services built by RegisterRoutes, so the
// caller can run maintenance (e.g. purging reset grants) on the same
// instances.
type Services struct {
	Auth   *services.AuthService
	Users  *services.UserService
	Tokens *security.TokenIssuer
}

// NewServices builds the application services from cfg.
func NewServices(db *gorm.DB, cfg config.Config) Services {
	hasher := security.NewHasher(cfg.Auth.BcryptCost)
	tokens := security.NewTokenIssuer(cfg.Auth.JWTSecret, cfg.Auth.JWTIssuer, cfg.Auth.JWTTTL)

	auth := services.NewAuthService(db, repoShim{}, repoShim{}, hasher, tokens)
	auth.ResetURLBase = cfg.Auth.ResetURLBase
	auth.AdminSecret = cfg.Auth.AdminSecret
	auth.Notifier = services.LogNotifier{ShowLink: failure.ParseMode(cfg.AppEnv) == failure.ModeDevelopment}
	if cfg.Auth.ResetTokenTTL > 0 {
		auth.ResetTTL = cfg.Auth.ResetTokenTTL
	}

	return Services{
		Auth:   auth,
		Users:  services.NewUserService(db, repoShim{}, hasher),
		Tokens: tokens,
	}
}

// RegisterRoutes attaches all middleware and HTTP endpoints to the given Gin
// engine and returns the services it built.
//
// Middleware order matters:
//  1. OpenTelemetry: trace everything
//  2. RequestID: generate/propagate correlation id
//  3. Logger (development) or RedactingLogger: structured access logs
//  4. Metrics: outside Errors so failures are counted with their final status
//  5. Gzip: outside Errors so failure bodies are compressed too
//  6. Errors: classify the failure attached by any inner handler
//  7. Recovery: panics become unclassified failures
//  8. Body size limiter
//  9. Rate limiter (per user/IP)
//  10. CORS and Security headers
func RegisterRoutes(r *gin.Engine, db *gorm.DB, cfg config.Config) Services {
	r.HandleMethodNotAllowed = true
	mode := failure.ParseMode(cfg.AppEnv)
	apiBase := cfg.APIBasePath // e.g. "/api/v1"

	// 1) Trace all HTTP requests
	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))

	// 2) Correlate requests and logs
	r.Use(middleware.RequestID())

	// 3) Structured logging: verbose in development, redacted otherwise
	if mode == failure.ModeDevelopment {
		r.Use(middleware.Logger())
	} else {
		r.Use(middleware.RedactingLogger(middleware.RedactOptions{
			MaskHeaders: []string{"X-Admin-Secret"},
		}))
	}

	// 4) Prometheus metrics and /metrics endpoint
	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// 5) Response compression
	r.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/metrics"})))

	// 6) Failure classification, 7) panic recovery
	r.Use(middleware.Errors(mode))
	r.Use(middleware.Recovery(mode))

	// 8) Global body size limit (1 MiB)
	r.Use(limitBody(1 << 20))

	// 9) Token-bucket rate limiter per user/IP
	rl := middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByUserOrIP())
	r.Use(rl.Handler())

	// 10) CORS posture (safe defaults: allow all if none configured)
	allowHeaders := []string{"Origin", "Content-Type", "Accept", "Authorization", "If-None-Match"}
	exposeHeaders := []string{"X-Request-ID", "Content-Length", "ETag"}
	if len(cfg.CORS.AllowedOrigins) == 0 {
		// Force ACAO: * even for requests without an Origin header (helps tests and simple health checks).
		r.Use(func(c *gin.Context) {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
			c.Next()
		})
		r.Use(cors.New(cors.Config{
			AllowAllOrigins:  true,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     allowHeaders,
			ExposeHeaders:    exposeHeaders,
			AllowCredentials: false, // must remain false with AllowAllOrigins
			MaxAge:           12 * time.Hour,
		}))
	} else {
		// Echo ACAO with the request Origin when it is in the allowlist (in addition to gin-contrib/cors).
		allowed := make(map[string]struct{}, len(cfg.CORS.AllowedOrigins))
		for _, o := range cfg.CORS.AllowedOrigins {
			allowed[o] = struct{}{}
		}
		r.Use(func(c *gin.Context) {
			if origin := c.GetHeader("Origin"); origin != "" {
				if _, ok := allowed[origin]; ok {
					h := c.Writer.Header()
					h.Set("Access-Control-Allow-Origin", origin)
					h.Add("Vary", "Origin")
				}
			}
			c.Next()
		})
		r.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.CORS.AllowedOrigins,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     allowHeaders,
			ExposeHeaders:    exposeHeaders,
			AllowCredentials: false,
			MaxAge:           12 * time.Hour,
		}))
	}

	// Security headers (HSTS only when enabled and request is HTTPS). Token
	// and account responses are never cached.
	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:   cfg.Security.EnableHSTS,
		HSTSMaxAge:   cfg.Security.HSTSMaxAge,
		NoStorePaths: []string{joinPath(apiBase, "/auth"), joinPath(apiBase, "/users")},
		EnablePolicy: true,
	}))

	// Fallbacks
	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, failure.NotFound(handlers.MsgRouteNotFound))
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, failure.Authentication(http.StatusMethodNotAllowed, handlers.MsgMethodNotAllowed))
	})

	// Liveness/health
	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	// API docs
	if cfg.SwaggerEnabled {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	// Dependency injection: services ← repo/db
	svc := NewServices(db, cfg)
	h := handlers.New(svc.Auth, svc.Users)

	authn := middleware.Authenticate(svc.Tokens)
	adminOnly := middleware.RequireRole(string(domain.RoleAdmin))

	api := groupWithPrefix(r, apiBase)
	{
		// Public auth
		auth := api.Group("/auth")
		auth.POST("/signup", h.SignUp)
		auth.POST("/login", h.Login)
		auth.POST("/forgot-password", h.ForgotPassword)
		auth.POST("/reset-password", h.ResetPassword)
		auth.POST("/admin", authn, h.ElevateToAdmin)

		// Self-service
		me := api.Group("/users/me", authn)
		me.GET("", h.GetMe)
		me.PATCH("", h.UpdateMe)
		me.DELETE("", h.DeleteMe)
		me.PUT("/password", h.ChangePassword)

		// Administration
		users := api.Group("/users", authn, adminOnly)
		users.GET("", h.ListUsers)
		users.POST("", h.CreateUser)
		users.GET("/:id", h.GetUser)
		users.PATCH("/:id", h.UpdateUser)
		users.DELETE("/:id", h.DeleteUser)
	}
	return svc
}

// limitBody returns a Gin middleware that caps the request body size for all
// endpoints to maxBytes using http.MaxBytesReader. Requests exceeding the cap
// will cause downstream body reads to error.
func limitBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

// groupWithPrefix mounts a group at prefix, treating "/" (or empty) as root.
func groupWithPrefix(r *gin.Engine, prefix string) *gin.RouterGroup {
	if prefix == "" || prefix == "/" {
		return r.Group("")
	}
	return r.Group(prefix)
}

// joinPath appends sub to base, treating "/" (or empty) base as root.
func joinPath(base, sub string) string {
	if base == "" || base == "/" {
		return sub
	}
	return base + sub
}
