package domain

import "time"

// PasswordReset is a single-use reset grant. Only the SHA-256 of the token
// sent to the user is stored.
type PasswordReset struct {
	ID        string     `gorm:"type:char(36);primaryKey"`
	UserID    string     `gorm:"type:char(36);not null;index"`
	TokenHash string     `gorm:"type:char(64);not null;uniqueIndex:ux_password_resets_token"`
	ExpiresAt time.Time  `gorm:"not null;index"`
	UsedAt    *time.Time `gorm:"index"`
	CreatedAt time.Time

	User User `gorm:"foreignKey:UserID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName implements the GORM tabler interface.
func (PasswordReset) TableName() string { return "password_resets" }

// Usable reports whether the grant can still be redeemed at now.
func (p *PasswordReset) Usable(now time.Time) bool {
	return p != nil && p.UsedAt == nil && now.Before(p.ExpiresAt)
}
