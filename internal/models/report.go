package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ReasonCode classifies a moderation report.
type ReasonCode string

const (
	ReasonCommercial    ReasonCode = "commercial"
	ReasonInappropriate ReasonCode = "inappropriate"
	ReasonSpam          ReasonCode = "spam"
	ReasonOther         ReasonCode = "other"
)

// Valid reports whether r is one of the four accepted reasons.
func (r ReasonCode) Valid() bool {
	switch r {
	case ReasonCommercial, ReasonInappropriate, ReasonSpam, ReasonOther:
		return true
	}
	return false
}

// Report is a moderation report filed against a post. ReporterID is nil for
// anonymous reports and for reporters whose account was deleted.
type Report struct {
	ID         string     `gorm:"type:varchar(36);primaryKey" json:"id"`
	PostID     string     `gorm:"type:varchar(36);not null;index" json:"post_id"`
	ReasonCode ReasonCode `gorm:"type:varchar(32);not null" json:"reason_code"`
	ReporterID *string    `gorm:"type:varchar(128);index" json:"reporter_id,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

func (r *Report) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	return nil
}
