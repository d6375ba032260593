package models

import (
	"time"
)

// Account roles
const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// Account is the actor identity consumed from the authentication layer.
// Credentials and account management live outside this service; the API only
// needs a stable id and role for authorization checks and audit attribution.
type Account struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Email     string    `gorm:"size:255;not null;uniqueIndex" json:"email"`
	FullName  string    `gorm:"size:255" json:"full_name"`
	Role      string    `gorm:"size:20;not null;default:user" json:"role"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName specifies the table name for Account
func (Account) TableName() string {
	return "accounts"
}

// IsAdmin returns true for administrator accounts
func (a *Account) IsAdmin() bool {
	return a.Role == RoleAdmin
}
