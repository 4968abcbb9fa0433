// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file implements RedactingLogger, the access logger mounted by the
// router. An auth API sees credentials in many places (bearer tokens, reset
// tokens in links, email addresses in lookups), so the logger never records
// bodies and scrubs what it does record:
//
//   - Authorization, Cookie, Set-Cookie, and any configured header are
//     replaced with "[REDACTED]".
//   - Query strings, unmatched raw paths, and remaining header values have
//     JWTs, reset tokens, UUIDs, emails, and phone numbers replaced.
//
// Usage:
//
//	r.Use(middleware.RedactingLogger(middleware.RedactOptions{
//	    MaskHeaders: []string{"X-Admin-Secret"},
//	}))
package middleware

import (
	"regexp"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-auth-backend/internal/failure"
)

// RedactOptions configures RedactingLogger.
//
// MaskHeaders lists extra header names (case-insensitive) whose values are
// always fully masked.
type RedactOptions struct {
	MaskHeaders []string
}

// Order matters: tokens and ids go first so the looser email and phone
// patterns never see their digit runs.
var scrubRules = []struct {
	re   *regexp.Regexp
	repl string
}{
	{regexp.MustCompile(`\beyJ[A-Za-z0-9_-]+\.[A-Za-z0-9_-]+\.[A-Za-z0-9_-]+`), "[REDACTED:jwt]"},
	{regexp.MustCompile(`(?i)\b[0-9a-f]{64}\b`), "[REDACTED:token]"},
	{regexp.MustCompile(`(?i)\b[0-9a-f]{8}-[0-9a-f]{4}-[1-5][0-9a-f]{3}-[89ab][0-9a-f]{3}-[0-9a-f]{12}\b`), "[REDACTED:id]"},
	{regexp.MustCompile(`(?i)\b[a-z0-9._%+\-]+@[a-z0-9.\-]+\.[a-z]{2,}\b`), "[REDACTED:email]"},
	// Digits only, so hex runs never match.
	{regexp.MustCompile(`\b(?:\+?\d{1,3}[ .-]?)?(?:\(?\d{2,4}\)?[ .-]?)?\d{3,4}[ .-]?\d{4}\b`), "[REDACTED:phone]"},
}

// scrub replaces every sensitive pattern in s.
func scrub(s string) string {
	if s == "" {
		return s
	}
	for _, r := range scrubRules {
		s = r.re.ReplaceAllString(s, r.repl)
	}
	return s
}

// headerMask is the case-insensitive set of fully masked headers.
type headerMask map[string]struct{}

func newHeaderMask(extra []string) headerMask {
	m := headerMask{"authorization": {}, "cookie": {}, "set-cookie": {}}
	for _, h := range extra {
		if h = strings.ToLower(strings.TrimSpace(h)); h != "" {
			m[h] = struct{}{}
		}
	}
	return m
}

// apply returns a scrubbed copy of the request headers.
func (m headerMask) apply(h map[string][]string) map[string]string {
	out := make(map[string]string, len(h))
	for k, vv := range h {
		if _, ok := m[strings.ToLower(k)]; ok {
			out[k] = "[REDACTED]"
			continue
		}
		out[k] = scrub(strings.Join(vv, ", "))
	}
	return out
}

// RedactingLogger returns a middleware that writes one structured access log
// line per request, after the response status is final.
//
// It also attaches the request-scoped logger (request_id, trace_id) used by
// LoggerFrom and zerolog.Ctx. Level is INFO, WARN for 4xx, ERROR for 5xx.
// When a failure was attached to the context its kind is logged as
// "failure"; the message is not, since unclassified errors may carry driver
// text.
func RedactingLogger(opts RedactOptions) gin.HandlerFunc {
	mask := newHeaderMask(opts.MaskHeaders)

	return func(c *gin.Context) {
		start := time.Now()

		path := c.FullPath()
		if path == "" {
			path = scrub(c.Request.URL.Path)
		}
		query := scrub(c.Request.URL.RawQuery)
		headers := mask.apply(c.Request.Header)

		l := requestLogger(c)
		attachLogger(c, l)

		c.Next()

		status := c.Writer.Status()
		ev := l.Info()
		switch {
		case status >= 500:
			ev = l.Error()
		case status >= 400:
			ev = l.Warn()
		}

		// Without RequestID mounted, fall back to whatever id is visible.
		if _, ok := c.Get(requestIDKey); !ok {
			reqID := c.Writer.Header().Get("X-Request-ID")
			if reqID == "" {
				reqID = c.GetHeader("X-Request-ID")
			}
			ev = ev.Str("request_id", reqID)
		}
		if last := c.Errors.Last(); last != nil {
			ev = ev.Str("failure", failure.From(last.Err).Kind.String())
		}

		ev.
			Str("user_id", scrub(c.GetString(UserIDKey))).
			Str("method", c.Request.Method).
			Str("path", path).
			Str("query", query).
			Int("status", status).
			Int("bytes", c.Writer.Size()).
			Dur("latency", time.Since(start)).
			Interface("headers", headers).
			Msg("http_request")
	}
}
