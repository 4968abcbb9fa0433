// Package repo implements the data persistence layer for domain entities.
// This file translates driver-specific duplicate-key errors into
// failure.KindUniqueConstraint values carrying the violated fields in the
// order the driver reported them.
package repo

import (
	"errors"
	"strings"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"github.com/tbourn/go-auth-backend/internal/failure"
)

// constraintFields maps named unique indexes to the field they guard, for
// drivers that report the constraint but not the columns.
var constraintFields = map[string]string{
	"ux_users_email":           "email",
	"ux_users_username":        "username",
	"ux_password_resets_token": "token_hash",
}

const sqliteUniquePrefix = "unique constraint failed: "

// UniqueFields reports whether err is a unique violation and, if so, the
// violated fields in detection order. The slice may be empty when the driver
// gives no column detail.
func UniqueFields(err error) ([]string, bool) {
	if err == nil {
		return nil, false
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if pgErr.Code != pgerrcode.UniqueViolation {
			return nil, false
		}
		if fields := pgDetailFields(pgErr.Detail); len(fields) > 0 {
			return fields, true
		}
		if f, ok := constraintFields[pgErr.ConstraintName]; ok {
			return []string{f}, true
		}
		return nil, true
	}

	// glebarez/sqlite returns plain-text errors:
	//   "constraint failed: UNIQUE constraint failed: users.email (2067)"
	low := strings.ToLower(err.Error())
	if i := strings.Index(low, sqliteUniquePrefix); i >= 0 {
		return sqliteFields(err.Error()[i+len(sqliteUniquePrefix):]), true
	}

	if errors.Is(err, gorm.ErrDuplicatedKey) || strings.Contains(low, "duplicate key") {
		return nil, true
	}
	return nil, false
}

// translate converts unique violations into failures and leaves every other
// error untouched.
func translate(err error) error {
	if fields, ok := UniqueFields(err); ok {
		return failure.UniqueConstraint(err, fields...)
	}
	return err
}

// sqliteFields parses "users.email, users.username (2067)" into
// ["email", "username"].
func sqliteFields(s string) []string {
	if i := strings.Index(s, " ("); i >= 0 {
		s = s[:i]
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if dot := strings.LastIndexByte(p, '.'); dot >= 0 {
			p = p[dot+1:]
		}
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// pgDetailFields parses `Key (email)=(a@b.c) already exists.` into ["email"].
func pgDetailFields(detail string) []string {
	start := strings.Index(detail, "Key (")
	if start < 0 {
		return nil
	}
	rest := detail[start+len("Key ("):]
	end := strings.Index(rest, ")=")
	if end < 0 {
		return nil
	}
	var out []string
	for _, p := range strings.Split(rest[:end], ",") {
		p = strings.Trim(strings.TrimSpace(p), `"`)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
