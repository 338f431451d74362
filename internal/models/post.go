// Package models contains data structures for the application's domain models.
package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PostStatus is the lifecycle state of a listing.
type PostStatus string

const (
	StatusActive PostStatus = "active"
	StatusFound  PostStatus = "found"
)

// Valid reports whether s is a known status.
func (s PostStatus) Valid() bool {
	return s == StatusActive || s == StatusFound
}

// PetTypes lists the accepted values for Post.PetType.
var PetTypes = []string{"dog", "cat", "bird", "rabbit", "hamster", "other"}

// Location is the free-form address a post was filed under. The values come
// from the location directory but are stored as plain text.
type Location struct {
	City         string `gorm:"index" json:"city"`
	District     string `gorm:"index" json:"district"`
	Neighborhood string `json:"neighborhood"`
	Street       string `json:"street"`
}

// IsEmpty reports whether no level is set.
func (l Location) IsEmpty() bool {
	return l.City == "" && l.District == "" && l.Neighborhood == "" && l.Street == ""
}

// Post represents a lost or found pet listing.
type Post struct {
	ID               string     `gorm:"type:varchar(36);primaryKey" json:"id"`
	Title            string     `gorm:"not null" json:"title"`
	Description      string     `gorm:"type:text;not null" json:"description"`
	ImageURL         string     `json:"image_url"`
	PassportImageURL string     `json:"passport_image_url,omitempty"`
	Location         Location   `gorm:"embedded;embeddedPrefix:location_" json:"location"`
	PetName          string     `json:"pet_name,omitempty"`
	PetType          string     `json:"pet_type,omitempty"`
	ContactInfo      string     `json:"contact_info,omitempty"`
	OwnerID          string     `gorm:"type:varchar(128);not null;index" json:"owner_id"`
	OwnerEmail       string     `json:"owner_email,omitempty"`
	Status           PostStatus `gorm:"type:varchar(16);not null;default:active;index" json:"status"`
	ViewCount        int64      `gorm:"not null;default:0" json:"view_count"`
	CreatedAt        time.Time  `gorm:"index" json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// BeforeCreate assigns the opaque identifier.
func (p *Post) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.Status == "" {
		p.Status = StatusActive
	}
	return nil
}
