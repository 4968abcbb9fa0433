// Package services defines the business logic for authentication and user
// management. This file centralizes the user-facing messages and the failure
// constructors the services raise for predictable outcomes. Failures are
// built per call so callers can never share or mutate one.
package services

import (
	"errors"

	"github.com/tbourn/go-auth-backend/internal/failure"
	"github.com/tbourn/go-auth-backend/internal/repo"
)

// User-facing messages.
const (
	MsgInvalidCredentials = "Invalid email or password."
	MsgInvalidResetToken  = "Password reset token is invalid or has expired."
	MsgUserNotFound       = "User not found."
	MsgWrongPassword      = "Current password is incorrect."
	MsgAdminForbidden     = "You are not allowed to perform this action."
	MsgResetRequested     = "If an account with that email exists, a password reset link has been sent."
	MsgPasswordReset      = "Your password has been reset."
)

func errInvalidCredentials() error { return failure.Unauthenticated(MsgInvalidCredentials) }
func errInvalidResetToken() error  { return failure.BadRequest(MsgInvalidResetToken) }
func errUserNotFound() error       { return failure.NotFound(MsgUserNotFound) }
func errWrongPassword() error      { return failure.Unauthenticated(MsgWrongPassword) }
func errAdminForbidden() error     { return failure.Forbidden(MsgAdminForbidden) }

// notFoundAs converts repo.ErrNotFound into the given failure. Any other
// error is raised as unexpected.
func notFoundAs(err error, f func() error) error {
	if errors.Is(err, repo.ErrNotFound) {
		return f()
	}
	return unexpected(err)
}

// unexpected raises err as an unclassified failure so its stack trace points
// into the service that first saw it. nil and failures pass through.
func unexpected(err error) error {
	if err == nil {
		return nil
	}
	var f *failure.Failure
	if errors.As(err, &f) && f != nil {
		return err
	}
	return failure.Unclassified(err)
}

// isFailure reports whether err is a classified, caller-facing failure.
func isFailure(err error) bool {
	var f *failure.Failure
	return errors.As(err, &f) && f != nil && f.Kind != failure.KindUnclassified
}
