// Package handlers provides HTTP handler implementations for the public API.
//
// This file defines the response envelopes shared by every endpoint and the
// helpers that write them. Success bodies are written here directly; failures
// are never rendered by handlers. They are attached to the Gin context and
// the request is aborted, leaving the error middleware to classify the
// failure and write exactly one response.
//
// Example success response:
//
//	HTTP/1.1 200 OK
//	{ "success": true, "data": { "id": "…", "username": "alice" } }
//
// Example failure response (written by middleware.Errors):
//
//	HTTP/1.1 422 Unprocessable Entity
//	{ "success": false, "data": "\"email\" must be a valid email" }
package handlers

import (
	"github.com/gin-gonic/gin"
)

// SuccessResponse is the envelope for every successful response.
type SuccessResponse struct {
	Success bool `json:"success" example:"true"`
	Data    any  `json:"data"`
}

// ErrorResponse documents the failure envelope for authentication,
// validation, and unique-constraint failures.
type ErrorResponse struct {
	Success bool   `json:"success" example:"false"`
	Data    string `json:"data" example:"Invalid email or password."`
}

// InternalErrorResponse documents the production 500 envelope.
type InternalErrorResponse struct {
	Success bool   `json:"success" example:"false"`
	Message string `json:"message" example:"Something went wrong."`
}

// ok writes {success:true,data} with the given status.
func ok(c *gin.Context, status int, data any) {
	c.JSON(status, SuccessResponse{Success: true, Data: data})
}

// fail hands err to the error middleware and stops the handler chain.
func fail(c *gin.Context, err error) {
	_ = c.Error(err)
	c.Abort()
}

// Fail is the exported variant of fail(), used by router fallbacks.
func Fail(c *gin.Context, err error) { fail(c, err) }
