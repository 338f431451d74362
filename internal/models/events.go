package models

// Catalog event types published whenever a post changes.
const (
	EventPostCreated       = "post_created"
	EventPostUpdated       = "post_updated"
	EventPostStatusChanged = "post_status_changed"
	EventPostDeleted       = "post_deleted"
)

// CatalogEvent is the envelope pushed to live catalog subscribers.
type CatalogEvent struct {
	Type    string      `json:"type"`
	PostID  string      `json:"post_id"`
	Payload interface{} `json:"payload,omitempty"`
}
