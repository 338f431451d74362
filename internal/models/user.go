package models

import "time"

// User mirrors the identity asserted by the authentication provider. Rows are
// upserted from token claims; credentials never live here.
type User struct {
	ID            string    `gorm:"type:varchar(128);primaryKey" json:"id"`
	Email         string    `gorm:"index" json:"email"`
	EmailVerified bool      `gorm:"not null;default:false" json:"email_verified"`
	IsAdmin       bool      `gorm:"not null;default:false" json:"is_admin"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}
