// User HTTP handlers.
//
// Self-service (bearer token):
//   - GET    /users/me
//   - PATCH  /users/me
//   - PUT    /users/me/password
//   - DELETE /users/me
//
// Administration (admin role):
//   - GET    /users        (paginated, ETag support)
//   - POST   /users
//   - GET    /users/{id}
//   - PATCH  /users/{id}
//   - DELETE /users/{id}
package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/tbourn/go-auth-backend/internal/domain"
	"github.com/tbourn/go-auth-backend/internal/failure"
	"github.com/tbourn/go-auth-backend/internal/repo"
	"github.com/tbourn/go-auth-backend/internal/services"
	"github.com/tbourn/go-auth-backend/internal/utils"
)

//
// DTOs
//

// CreateUserRequest is the admin payload for creating an account.
type CreateUserRequest struct {
	Username string `json:"username" binding:"required,min=3,max=30,alphanum" example:"bob"`
	Email    string `json:"email" binding:"required,email" example:"bob@example.com"`
	Password string `json:"password" binding:"required,min=8,max=72" example:"s3cret-pass"`
	Role     string `json:"role" binding:"omitempty,oneof=user admin" example:"user"`
}

// UpdateUserRequest is the admin patch payload; omitted fields are unchanged.
type UpdateUserRequest struct {
	Username *string `json:"username" binding:"omitempty,min=3,max=30,alphanum" example:"bobby"`
	Email    *string `json:"email" binding:"omitempty,email" example:"bobby@example.com"`
	Role     *string `json:"role" binding:"omitempty,oneof=user admin" example:"admin"`
}

// UpdateProfileRequest is the self-service patch payload.
type UpdateProfileRequest struct {
	Username *string `json:"username" binding:"omitempty,min=3,max=30,alphanum" example:"alice2"`
	Email    *string `json:"email" binding:"omitempty,email" example:"alice2@example.com"`
}

// ChangePasswordRequest is the payload for changing the caller's password.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" binding:"required" example:"s3cret-pass"`
	Password        string `json:"password" binding:"required,min=8,max=72" example:"n3w-pass-123"`
	ConfirmPassword string `json:"confirm_password" binding:"required,eqfield=Password" example:"n3w-pass-123"`
}

// Pagination carries pagination metadata for list responses.
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
}

// ListUsersResponse wraps a page of users and pagination information.
type ListUsersResponse struct {
	Users      []domain.User `json:"users"`
	Pagination Pagination    `json:"pagination"`
}

//
// Helpers
//

// clampPagination parses and bounds page and page_size query params.
func clampPagination(c *gin.Context) (page, pageSize int) {
	return utils.ClampPage(
		utils.AtoiDefault(c.Query("page"), 1),
		utils.AtoiDefault(c.Query("page_size"), services.DefaultPageSize),
		services.DefaultPageSize,
		services.MaxPageSize,
	)
}

func asRole(s *string) *domain.Role {
	if s == nil {
		return nil
	}
	r := domain.Role(*s)
	return &r
}

//
// Self-service
//

// GetMe godoc
// @ID          getMe
// @Summary     Current user
// @Tags        Profile
// @Produce     json
// @Security    BearerAuth
// @Success     200  {object}  handlers.SuccessResponse{data=domain.User}
// @Failure     401  {object}  handlers.ErrorResponse
// @Failure     404  {object}  handlers.ErrorResponse  "User not found."
// @Router      /users/me [get]
func (h *Handlers) GetMe(c *gin.Context) {
	u, err := h.userSvc.GetUser(c.Request.Context(), currentUserID(c))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, u)
}

// UpdateMe godoc
// @ID          updateMe
// @Summary     Edit own profile
// @Tags        Profile
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       body  body      handlers.UpdateProfileRequest  true  "Fields to change"
// @Success     200   {object}  handlers.SuccessResponse{data=domain.User}
// @Failure     401   {object}  handlers.ErrorResponse
// @Failure     422   {object}  handlers.ErrorResponse  "Validation failed or email/username taken"
// @Router      /users/me [patch]
func (h *Handlers) UpdateMe(c *gin.Context) {
	var req UpdateProfileRequest
	if err := bindJSON(c, &req); err != nil {
		fail(c, err)
		return
	}
	if req.Username == nil && req.Email == nil {
		fail(c, failure.Invalid("body", MsgEmptyPatch))
		return
	}
	u, err := h.userSvc.UpdateProfile(c.Request.Context(), currentUserID(c), services.ProfileInput{
		Username: req.Username,
		Email:    req.Email,
	})
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, u)
}

// ChangePassword godoc
// @ID          changePassword
// @Summary     Change own password
// @Tags        Profile
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       body  body      handlers.ChangePasswordRequest  true  "Current and new password"
// @Success     200   {object}  handlers.SuccessResponse{data=string}
// @Failure     401   {object}  handlers.ErrorResponse  "Current password is incorrect."
// @Failure     422   {object}  handlers.ErrorResponse
// @Router      /users/me/password [put]
func (h *Handlers) ChangePassword(c *gin.Context) {
	var req ChangePasswordRequest
	if err := bindJSON(c, &req); err != nil {
		fail(c, err)
		return
	}
	if err := h.userSvc.ChangePassword(c.Request.Context(), currentUserID(c), req.CurrentPassword, req.Password); err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, MsgPasswordChanged)
}

// DeleteMe godoc
// @ID          deleteMe
// @Summary     Delete own account
// @Tags        Profile
// @Produce     json
// @Security    BearerAuth
// @Success     200  {object}  handlers.SuccessResponse{data=string}
// @Failure     401  {object}  handlers.ErrorResponse
// @Failure     404  {object}  handlers.ErrorResponse
// @Router      /users/me [delete]
func (h *Handlers) DeleteMe(c *gin.Context) {
	if err := h.userSvc.DeleteProfile(c.Request.Context(), currentUserID(c)); err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, MsgUserDeleted)
}

//
// Administration
//

// ListUsers godoc
// @ID          listUsers
// @Summary     List users (paginated)
// @Description Returns a page of users. Supports weak ETag via If-None-Match and may return 304.
// @Tags        Users
// @Produce     json
// @Security    BearerAuth
// @Param       If-None-Match  header  string  false "Return 304 if ETag matches"  example(W/\"users:3:1700000000:1:20\")
// @Param       page           query   int     false "Page number"                  minimum(1) default(1)
// @Param       page_size      query   int     false "Items per page"               minimum(1) maximum(100) default(20)
// @Success     200  {object}  handlers.SuccessResponse{data=handlers.ListUsersResponse}
// @Header      200  {string}  ETag  "Weak ETag for current result"
// @Success     304  {string}  string "Not Modified"
// @Failure     401  {object}  handlers.ErrorResponse
// @Failure     403  {object}  handlers.ErrorResponse
// @Router      /users [get]
func (h *Handlers) ListUsers(c *gin.Context) {
	ctx := c.Request.Context()
	page, pageSize := clampPagination(c)

	// ETag pre-check (best effort).
	var db *gorm.DB
	if svc, ok := h.userSvc.(*services.UserService); ok {
		db = svc.DB
	}
	if db != nil {
		count, maxTS, err := repo.UsersStats(ctx, db)
		if err == nil {
			var ts int64
			if maxTS != nil {
				ts = maxTS.UnixNano()
			}
			etag := fmt.Sprintf(`W/"users:%d:%d:%d:%d"`, count, ts, page, pageSize)
			c.Header("ETag", etag)
			if inm := c.GetHeader("If-None-Match"); inm != "" && inm == etag {
				c.Status(http.StatusNotModified)
				return
			}
		}
	}

	items, total, err := h.userSvc.GetAllUsers(ctx, page, pageSize)
	if err != nil {
		fail(c, err)
		return
	}

	totalPages := utils.TotalPages(total, pageSize)
	ok(c, http.StatusOK, ListUsersResponse{
		Users: items,
		Pagination: Pagination{
			Page:       page,
			PageSize:   pageSize,
			Total:      total,
			TotalPages: totalPages,
			HasNext:    page < totalPages,
		},
	})
}

// CreateUser godoc
// @ID          createUser
// @Summary     Create a user
// @Tags        Users
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       body  body      handlers.CreateUserRequest  true  "New account"
// @Success     200   {object}  handlers.SuccessResponse{data=domain.User}
// @Failure     401   {object}  handlers.ErrorResponse
// @Failure     403   {object}  handlers.ErrorResponse
// @Failure     422   {object}  handlers.ErrorResponse  "Validation failed or email/username taken"
// @Router      /users [post]
func (h *Handlers) CreateUser(c *gin.Context) {
	var req CreateUserRequest
	if err := bindJSON(c, &req); err != nil {
		fail(c, err)
		return
	}
	u, err := h.userSvc.CreateUser(c.Request.Context(), services.CreateUserInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
		Role:     domain.Role(req.Role),
	})
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, u)
}

// GetUser godoc
// @ID          getUser
// @Summary     Get a user
// @Tags        Users
// @Produce     json
// @Security    BearerAuth
// @Param       id   path      string  true  "User ID (UUID)"  format(uuid)
// @Success     200  {object}  handlers.SuccessResponse{data=domain.User}
// @Failure     404  {object}  handlers.ErrorResponse  "User not found."
// @Failure     422  {object}  handlers.ErrorResponse  "\"id\" must be a valid UUID"
// @Router      /users/{id} [get]
func (h *Handlers) GetUser(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		fail(c, err)
		return
	}
	u, err := h.userSvc.GetUser(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, u)
}

// UpdateUser godoc
// @ID          updateUser
// @Summary     Update a user
// @Tags        Users
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id    path      string                        true  "User ID (UUID)"  format(uuid)
// @Param       body  body      handlers.UpdateUserRequest  true  "Fields to change"
// @Success     200   {object}  handlers.SuccessResponse{data=domain.User}
// @Failure     404   {object}  handlers.ErrorResponse
// @Failure     422   {object}  handlers.ErrorResponse
// @Router      /users/{id} [patch]
func (h *Handlers) UpdateUser(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		fail(c, err)
		return
	}
	var req UpdateUserRequest
	if err := bindJSON(c, &req); err != nil {
		fail(c, err)
		return
	}
	if req.Username == nil && req.Email == nil && req.Role == nil {
		fail(c, failure.Invalid("body", MsgEmptyPatch))
		return
	}
	u, err := h.userSvc.UpdateUser(c.Request.Context(), id, services.UpdateUserInput{
		Username: req.Username,
		Email:    req.Email,
		Role:     asRole(req.Role),
	})
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, u)
}

// DeleteUser godoc
// @ID          deleteUser
// @Summary     Delete a user
// @Tags        Users
// @Produce     json
// @Security    BearerAuth
// @Param       id   path      string  true  "User ID (UUID)"  format(uuid)
// @Success     200  {object}  handlers.SuccessResponse{data=string}
// @Failure     404  {object}  handlers.ErrorResponse
// @Failure     422  {object}  handlers.ErrorResponse
// @Router      /users/{id} [delete]
func (h *Handlers) DeleteUser(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		fail(c, err)
		return
	}
	if err := h.userSvc.DeleteUser(c.Request.Context(), id); err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, MsgUserDeleted)
}
