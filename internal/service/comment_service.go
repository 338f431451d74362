package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"whereismypet/internal/models"
	"whereismypet/internal/observability"
	"whereismypet/internal/repository"
)

const maxCommentLen = 2000

type CommentService struct {
	comments      repository.CommentRepository
	notifications repository.NotificationRepository
	posts         repository.PostRepository
	events        EventPublisher
}

func NewCommentService(
	comments repository.CommentRepository,
	notifications repository.NotificationRepository,
	posts repository.PostRepository,
	events EventPublisher,
) *CommentService {
	return &CommentService{
		comments:      comments,
		notifications: notifications,
		posts:         posts,
		events:        publisherOrNoop(events),
	}
}

// Create adds a comment and tells the post owner about it, unless the owner
// wrote it. The notification is persisted before it is pushed.
func (s *CommentService) Create(ctx context.Context, postID, userID, content string) (*models.Comment, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, models.NewValidationError("content is required")
	}
	if len(content) > maxCommentLen {
		return nil, models.NewValidationError(fmt.Sprintf("content must be at most %d characters", maxCommentLen))
	}

	post, err := s.posts.GetByID(ctx, postID)
	if err != nil {
		return nil, err
	}

	comment := &models.Comment{PostID: postID, UserID: userID, Content: content}
	if err := s.comments.Create(ctx, comment); err != nil {
		return nil, err
	}

	if post.OwnerID != userID {
		s.notifyOwner(ctx, post, comment)
	}
	return comment, nil
}

func (s *CommentService) notifyOwner(ctx context.Context, post *models.Post, comment *models.Comment) {
	n := &models.Notification{
		UserID:  post.OwnerID,
		PostID:  post.ID,
		Type:    models.NotificationCommentCreated,
		Message: fmt.Sprintf("New comment on %q", post.Title),
	}
	if err := s.notifications.Create(ctx, n); err != nil {
		observability.LogAsyncOperationError(ctx, "notify_post_owner", err, map[string]interface{}{
			"post_id":    post.ID,
			"comment_id": comment.ID,
		})
		return
	}

	payload, err := json.Marshal(map[string]interface{}{"type": n.Type, "payload": n})
	if err != nil {
		return
	}
	s.events.PublishUser(ctx, post.OwnerID, payload)
}

func (s *CommentService) ListByPost(ctx context.Context, postID string) ([]models.Comment, error) {
	if _, err := s.posts.GetByID(ctx, postID); err != nil {
		return nil, err
	}
	return s.comments.ListByPost(ctx, postID)
}

func (s *CommentService) ListNotifications(ctx context.Context, userID string) ([]models.Notification, error) {
	return s.notifications.ListByUser(ctx, userID)
}

func (s *CommentService) MarkNotificationRead(ctx context.Context, id, userID string) error {
	return s.notifications.MarkRead(ctx, id, userID)
}
