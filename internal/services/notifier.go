package services

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// ResetNotice is what a Notifier delivers to a user who asked for a reset.
type ResetNotice struct {
	UserID    string
	Username  string
	Email     string
	Link      string
	ExpiresAt time.Time
}

// Notifier delivers password-reset links (e-mail, queue, ...).
type Notifier interface {
	SendPasswordReset(ctx context.Context, n ResetNotice) error
}

// LogNotifier records that a reset was issued. It is the default transport
// when no mail relay is configured. The link carries a live token, so it is
// only written (at debug level) when ShowLink is set.
type LogNotifier struct {
	Logger   *zerolog.Logger
	ShowLink bool
}

// SendPasswordReset logs the notice at info level.
func (n LogNotifier) SendPasswordReset(ctx context.Context, rn ResetNotice) error {
	lg := n.Logger
	if lg == nil {
		lg = loggerFrom(ctx)
	}
	lg.Info().
		Str("user_id", rn.UserID).
		Time("expires_at", rn.ExpiresAt).
		Msg("password reset link issued")
	if n.ShowLink {
		lg.Debug().
			Str("user_id", rn.UserID).
			Str("link", rn.Link).
			Msg("password reset link")
	}
	return nil
}

// loggerFrom returns the request-scoped logger stored in ctx by the HTTP
// logging middleware, or the global logger.
func loggerFrom(ctx context.Context) *zerolog.Logger {
	if l := zerolog.Ctx(ctx); l.GetLevel() != zerolog.Disabled {
		return l
	}
	return &log.Logger
}
