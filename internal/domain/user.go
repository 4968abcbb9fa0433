// Package domain defines the persistence models for user accounts and
// password resets. These types are mapped with GORM and shared across the
// repository, service, and HTTP layers.
package domain

import "time"

// Role is the authorization level of a user.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Roles lists every accepted role, lowest privilege first.
var Roles = []Role{RoleUser, RoleAdmin}

// Valid reports whether r is one of Roles.
func (r Role) Valid() bool {
	for _, v := range Roles {
		if r == v {
			return true
		}
	}
	return false
}

// User is an account. Email and Username are unique; the database enforces
// it, so concurrent sign-ups race to the unique index. Deletion is a hard
// delete so the address and handle become available again.
//
// Fields:
//   - ID: UUID primary key (char(36)).
//   - Username: display/login handle, unique.
//   - Email: lower-cased address, unique.
//   - PasswordHash: bcrypt hash, never serialized.
//   - Role: "user" or "admin" (DB check constraint).
//   - CreatedAt / UpdatedAt: timestamps managed by GORM.
type User struct {
	ID           string    `json:"id"         gorm:"type:char(36);primaryKey"`
	Username     string    `json:"username"   gorm:"type:varchar(30);not null;uniqueIndex:ux_users_username"`
	Email        string    `json:"email"      gorm:"type:varchar(255);not null;uniqueIndex:ux_users_email"`
	PasswordHash string    `json:"-"          gorm:"type:varchar(255);not null"`
	Role         Role      `json:"role"       gorm:"type:varchar(16);not null;default:'user';check:role IN ('user','admin')"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// TableName returns the database table name for User.
func (User) TableName() string { return "users" }

// IsAdmin reports whether the user holds the admin role.
func (u *User) IsAdmin() bool { return u != nil && u.Role == RoleAdmin }
