// Package handlers defines the fixed messages the HTTP layer itself raises.
//
// Service-level messages live in the services package; the ones here cover
// transport concerns: malformed bodies, path parameters, and router fallbacks.
package handlers

const (
	MsgInvalidJSON      = "request body must be a valid JSON object"
	MsgBodyTooLarge     = "request body is too large"
	MsgEmptyPatch       = "request body must contain at least one field"
	MsgInvalidID        = `"id" must be a valid UUID`
	MsgRouteNotFound    = "route not found"
	MsgMethodNotAllowed = "method not allowed"
	MsgUserDeleted      = "User deleted."
	MsgPasswordChanged  = "Password updated."
)
