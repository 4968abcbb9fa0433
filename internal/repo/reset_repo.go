// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository helpers for the
// PasswordReset model used by the forgot/reset password flow.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-auth-backend/internal/domain"
)

// CreatePasswordReset stores a reset grant for userID valid for ttl.
func CreatePasswordReset(ctx context.Context, db *gorm.DB, userID, tokenHash string, ttl time.Duration) (*domain.PasswordReset, error) {
	now := time.Now().UTC()
	rec := &domain.PasswordReset{
		ID:        uuid.NewString(),
		UserID:    userID,
		TokenHash: tokenHash,
		ExpiresAt: now.Add(ttl),
		CreatedAt: now,
	}
	if err := db.WithContext(ctx).Create(rec).Error; err != nil {
		return nil, translate(err)
	}
	return rec, nil
}

// GetPasswordResetByHash returns the grant for tokenHash regardless of its
// state, or ErrNotFound.
func GetPasswordResetByHash(ctx context.Context, db *gorm.DB, tokenHash string) (*domain.PasswordReset, error) {
	var rec domain.PasswordReset
	if err := db.WithContext(ctx).Where("token_hash = ?", tokenHash).First(&rec).Error; err != nil {
		return nil, err
	}
	return &rec, nil
}

// MarkPasswordResetUsed stamps the grant as redeemed. Only an unused grant
// can be stamped; a second redemption yields ErrNotFound.
func MarkPasswordResetUsed(ctx context.Context, db *gorm.DB, id string, at time.Time) error {
	res := db.WithContext(ctx).
		Model(&domain.PasswordReset{}).
		Where("id = ? AND used_at IS NULL", id).
		Update("used_at", at.UTC())
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteStalePasswordResets removes grants that expired or were used before
// now, returning the number of rows deleted.
func DeleteStalePasswordResets(ctx context.Context, db *gorm.DB, now time.Time) (int64, error) {
	res := db.WithContext(ctx).
		Where("expires_at <= ? OR used_at IS NOT NULL", now.UTC()).
		Delete(&domain.PasswordReset{})
	return res.RowsAffected, res.Error
}
