package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// NotificationCommentCreated is sent to a post owner when someone comments.
const NotificationCommentCreated = "comment_created"

// Notification is a per-user message tied to a post.
type Notification struct {
	ID        string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	UserID    string    `gorm:"type:varchar(128);not null;index" json:"user_id"`
	PostID    string    `gorm:"type:varchar(36);index" json:"post_id"`
	Type      string    `gorm:"type:varchar(32);not null" json:"type"`
	Message   string    `json:"message"`
	Read      bool      `gorm:"not null;default:false" json:"read"`
	CreatedAt time.Time `json:"created_at"`
}

func (n *Notification) BeforeCreate(tx *gorm.DB) error {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	return nil
}
