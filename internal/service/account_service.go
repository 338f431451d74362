package service

import (
	"context"

	"whereismypet/internal/models"
	"whereismypet/internal/repository"
)

type AccountService struct {
	users    repository.UserRepository
	accounts repository.AccountRepository
	events   EventPublisher
}

func NewAccountService(users repository.UserRepository, accounts repository.AccountRepository, events EventPublisher) *AccountService {
	return &AccountService{users: users, accounts: accounts, events: publisherOrNoop(events)}
}

// Sync mirrors the identity asserted by a verified token.
func (s *AccountService) Sync(ctx context.Context, id, email string, emailVerified bool) (*models.User, error) {
	user := &models.User{ID: id, Email: email, EmailVerified: emailVerified}
	if err := s.users.Upsert(ctx, user); err != nil {
		return nil, err
	}
	return s.users.GetByID(ctx, id)
}

func (s *AccountService) IsAdmin(ctx context.Context, id string) (bool, error) {
	if id == "" {
		return false, nil
	}
	return s.users.IsAdmin(ctx, id)
}

// Delete removes the account and everything it owns, then announces each
// removed post.
func (s *AccountService) Delete(ctx context.Context, userID string) ([]string, error) {
	if userID == "" {
		return nil, models.NewUnauthorizedError("Authentication required")
	}
	removed, err := s.accounts.DeleteUserCascade(ctx, userID)
	if err != nil {
		return nil, err
	}
	for _, id := range removed {
		s.events.PublishCatalogEvent(ctx, models.CatalogEvent{Type: models.EventPostDeleted, PostID: id})
	}
	return removed, nil
}
