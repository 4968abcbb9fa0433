// Auth HTTP handlers.
//
// This file exposes the public credential endpoints:
//   - POST /auth/signup           (register)
//   - POST /auth/login            (obtain a token)
//   - POST /auth/forgot-password  (request a reset link)
//   - POST /auth/reset-password   (redeem a reset link)
//   - POST /auth/admin            (bearer; elevate with the admin secret)
//
// Handlers are transport-thin: they bind and validate input, call the
// AuthService, and wrap results in the success envelope.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-auth-backend/internal/services"
)

//
// DTOs
//

// SignUpRequest is the JSON payload for registration.
type SignUpRequest struct {
	Username        string `json:"username" binding:"required,min=3,max=30,alphanum" example:"alice"`
	Email           string `json:"email" binding:"required,email" example:"alice@example.com"`
	Password        string `json:"password" binding:"required,min=8,max=72" example:"s3cret-pass"`
	ConfirmPassword string `json:"confirm_password" binding:"required,eqfield=Password" example:"s3cret-pass"`
}

// LoginRequest is the JSON payload for login.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email" example:"alice@example.com"`
	Password string `json:"password" binding:"required" example:"s3cret-pass"`
}

// EmailRequest is the JSON payload for forgot-password.
type EmailRequest struct {
	Email string `json:"email" binding:"required,email" example:"alice@example.com"`
}

// ResetPasswordRequest is the JSON payload for reset-password.
type ResetPasswordRequest struct {
	Token           string `json:"token" binding:"required" example:"9f2c…"`
	Password        string `json:"password" binding:"required,min=8,max=72" example:"n3w-pass-123"`
	ConfirmPassword string `json:"confirm_password" binding:"required,eqfield=Password" example:"n3w-pass-123"`
}

// AdminRequest is the JSON payload for admin elevation.
type AdminRequest struct {
	Secret string `json:"secret" binding:"required" example:"let-me-in"`
}

//
// Handlers
//

// SignUp godoc
// @ID          signUp
// @Summary     Register a new account
// @Description Creates a user with the "user" role and returns it with an access token.
// @Tags        Auth
// @Accept      json
// @Produce     json
// @Param       body  body      handlers.SignUpRequest  true  "Sign-up payload"
// @Success     200   {object}  handlers.SuccessResponse{data=services.AuthResult}
// @Failure     422   {object}  handlers.ErrorResponse  "Validation failed or email/username taken"
// @Failure     500   {object}  handlers.InternalErrorResponse
// @Router      /auth/signup [post]
func (h *Handlers) SignUp(c *gin.Context) {
	var req SignUpRequest
	if err := bindJSON(c, &req); err != nil {
		fail(c, err)
		return
	}
	res, err := h.authSvc.SignUp(c.Request.Context(), services.SignUpInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, res)
}

// Login godoc
// @ID          login
// @Summary     Log in
// @Description Verifies credentials and returns an access token.
// @Tags        Auth
// @Accept      json
// @Produce     json
// @Param       body  body      handlers.LoginRequest  true  "Credentials"
// @Success     200   {object}  handlers.SuccessResponse{data=services.AuthResult}
// @Failure     401   {object}  handlers.ErrorResponse  "Invalid email or password."
// @Failure     422   {object}  handlers.ErrorResponse
// @Failure     500   {object}  handlers.InternalErrorResponse
// @Router      /auth/login [post]
func (h *Handlers) Login(c *gin.Context) {
	var req LoginRequest
	if err := bindJSON(c, &req); err != nil {
		fail(c, err)
		return
	}
	res, err := h.authSvc.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, res)
}

// ForgotPassword godoc
// @ID          forgotPassword
// @Summary     Request a password reset link
// @Description Always answers with the same confirmation, whether or not the address is registered.
// @Tags        Auth
// @Accept      json
// @Produce     json
// @Param       body  body      handlers.EmailRequest  true  "Account email"
// @Success     200   {object}  handlers.SuccessResponse{data=string}
// @Failure     422   {object}  handlers.ErrorResponse
// @Failure     500   {object}  handlers.InternalErrorResponse
// @Router      /auth/forgot-password [post]
func (h *Handlers) ForgotPassword(c *gin.Context) {
	var req EmailRequest
	if err := bindJSON(c, &req); err != nil {
		fail(c, err)
		return
	}
	msg, err := h.authSvc.ForgotPassword(c.Request.Context(), req.Email)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, msg)
}

// ResetPassword godoc
// @ID          resetPassword
// @Summary     Reset a password
// @Description Redeems a reset token and sets a new password.
// @Tags        Auth
// @Accept      json
// @Produce     json
// @Param       body  body      handlers.ResetPasswordRequest  true  "Token and new password"
// @Success     200   {object}  handlers.SuccessResponse{data=string}
// @Failure     400   {object}  handlers.ErrorResponse  "Password reset token is invalid or has expired."
// @Failure     422   {object}  handlers.ErrorResponse
// @Failure     500   {object}  handlers.InternalErrorResponse
// @Router      /auth/reset-password [post]
func (h *Handlers) ResetPassword(c *gin.Context) {
	var req ResetPasswordRequest
	if err := bindJSON(c, &req); err != nil {
		fail(c, err)
		return
	}
	msg, err := h.authSvc.ResetPassword(c.Request.Context(), req.Token, req.Password)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, msg)
}

// ElevateToAdmin godoc
// @ID          elevateToAdmin
// @Summary     Become an administrator
// @Description Grants the admin role when the secret matches and returns a fresh token.
// @Tags        Auth
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       body  body      handlers.AdminRequest  true  "Admin secret"
// @Success     200   {object}  handlers.SuccessResponse{data=services.AuthResult}
// @Failure     401   {object}  handlers.ErrorResponse
// @Failure     403   {object}  handlers.ErrorResponse
// @Failure     422   {object}  handlers.ErrorResponse
// @Router      /auth/admin [post]
func (h *Handlers) ElevateToAdmin(c *gin.Context) {
	var req AdminRequest
	if err := bindJSON(c, &req); err != nil {
		fail(c, err)
		return
	}
	res, err := h.authSvc.ElevateToAdmin(c.Request.Context(), currentUserID(c), req.Secret)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, res)
}
