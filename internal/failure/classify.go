package failure

import (
	"net/http"
	"strings"
)

// Mode is the deployment mode consulted for unclassified failures.
type Mode uint8

const (
	ModeProduction Mode = iota
	ModeDevelopment
)

// ParseMode maps an APP_ENV value to a Mode. Only "development" enables
// verbose errors.
func ParseMode(env string) Mode {
	if strings.EqualFold(strings.TrimSpace(env), "development") {
		return ModeDevelopment
	}
	return ModeProduction
}

// String returns the env spelling of m.
func (m Mode) String() string {
	if m == ModeDevelopment {
		return "development"
	}
	return "production"
}

// Messages surfaced for unique constraint violations.
const (
	MsgUniqueEmail      = "Email is already in use."
	MsgUniqueUsername   = "Username is already in use."
	MsgUniqueConstraint = "A unique constraint was violated."
	MsgSomethingWrong   = "Something went wrong."
)

// uniqueMessages maps a violated field to its client message. Fields not
// listed fall back to MsgUniqueConstraint.
var uniqueMessages = map[string]string{
	"email":    MsgUniqueEmail,
	"username": MsgUniqueUsername,
}

// UniqueMessage returns the message for a unique violation on field.
func UniqueMessage(field string) string {
	if msg, ok := uniqueMessages[field]; ok {
		return msg
	}
	return MsgUniqueConstraint
}

// DataBody is the envelope for authentication, validation, and unique
// constraint failures.
type DataBody struct {
	Success bool   `json:"success"`
	Data    string `json:"data"`
}

// DebugBody is returned for unclassified failures in development.
type DebugBody struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Stack   string `json:"stack"`
}

// OpaqueBody is returned for unclassified failures in production. It uses
// "message" where every other failure body uses "data" or "error"; clients
// depend on that shape.
type OpaqueBody struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// Response is the outcome of classification.
type Response struct {
	Status int
	Body   any
	// Failure is the classified value, for logging and metrics.
	Failure *Failure
}

// Classify maps err to exactly one HTTP response. It never panics; errors that
// carry no Failure (and nil) are treated as unclassified.
func Classify(err error, mode Mode) Response {
	f := From(err)

	switch f.Kind {
	case KindAuthentication:
		status := f.Status
		// net/http panics on codes it cannot write.
		if status < 100 || status > 999 {
			status = http.StatusUnauthorized
		}
		return Response{Status: status, Body: DataBody{Data: f.Message}, Failure: f}

	case KindValidation:
		msg := ""
		if len(f.Violations) > 0 {
			msg = f.Violations[0].Message
		}
		return Response{Status: http.StatusUnprocessableEntity, Body: DataBody{Data: msg}, Failure: f}

	case KindUniqueConstraint:
		field := ""
		if len(f.Fields) > 0 {
			field = f.Fields[0]
		}
		return Response{Status: http.StatusUnprocessableEntity, Body: DataBody{Data: UniqueMessage(field)}, Failure: f}
	}

	if mode == ModeDevelopment {
		return Response{
			Status:  http.StatusInternalServerError,
			Body:    DebugBody{Error: f.Message, Stack: f.Stack},
			Failure: f,
		}
	}
	return Response{
		Status:  http.StatusInternalServerError,
		Body:    OpaqueBody{Message: MsgSomethingWrong},
		Failure: f,
	}
}
