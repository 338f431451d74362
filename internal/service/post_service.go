package service

import (
	"context"
	"strings"
	"time"

	"whereismypet/internal/featureflags"
	"whereismypet/internal/lifecycle"
	"whereismypet/internal/models"
	"whereismypet/internal/observability"
	"whereismypet/internal/repository"

	"github.com/go-playground/validator/v10"
)

// DefaultRecentLimit is used when no catalog limit is configured.
const DefaultRecentLimit = 10

type PostService struct {
	posts       repository.PostRepository
	users       repository.UserRepository
	flags       *featureflags.Manager
	events      EventPublisher
	validate    *validator.Validate
	recentLimit int
}

// CreatePostInput is the author-supplied part of a new post. Image fields
// hold URLs already resolved by the uploader.
type CreatePostInput struct {
	Title            string          `json:"title" validate:"required"`
	Description      string          `json:"description" validate:"required"`
	ImageURL         string          `json:"image_url" validate:"required,url"`
	PassportImageURL string          `json:"passport_image_url" validate:"required,url"`
	Location         models.Location `json:"location"`
	PetName          string          `json:"pet_name" validate:"omitempty,max=80"`
	PetType          string          `json:"pet_type" validate:"omitempty,oneof=dog cat bird rabbit hamster other"`
	ContactInfo      string          `json:"contact_info" validate:"omitempty,max=200"`
}

// UpdatePostInput carries a partial edit. Nil fields are left untouched.
type UpdatePostInput struct {
	Title            *string          `json:"title"`
	Description      *string          `json:"description"`
	ImageURL         *string          `json:"image_url"`
	PassportImageURL *string          `json:"passport_image_url"`
	Location         *models.Location `json:"location"`
	PetName          *string          `json:"pet_name"`
	PetType          *string          `json:"pet_type"`
	ContactInfo      *string          `json:"contact_info"`
}

func NewPostService(
	posts repository.PostRepository,
	users repository.UserRepository,
	flags *featureflags.Manager,
	events EventPublisher,
	recentLimit int,
) *PostService {
	if recentLimit <= 0 {
		recentLimit = DefaultRecentLimit
	}
	return &PostService{
		posts:       posts,
		users:       users,
		flags:       flags,
		events:      publisherOrNoop(events),
		validate:    newValidator(),
		recentLimit: recentLimit,
	}
}

func (s *PostService) strictLocation(userID string) bool {
	return s.flags.EnabledOr(featureflags.StrictLocation, userID, true)
}

// validateCreate reports the first unmet precondition in field order.
func (s *PostService) validateCreate(in CreatePostInput, ownerID string) error {
	if err := s.validate.StructPartial(in, "Title", "Description", "ImageURL", "PassportImageURL"); err != nil {
		return validationError(err)
	}
	return s.validateAddressAndPet(in, ownerID)
}

func (s *PostService) validateAddressAndPet(in CreatePostInput, ownerID string) error {
	if err := validateLocation(in.Location, s.strictLocation(ownerID)); err != nil {
		return err
	}
	return validationError(s.validate.StructPartial(in, "PetName", "PetType", "ContactInfo"))
}

// ValidateDetails runs every create check except the image URLs. Callers
// that upload files use it to reject a bad form before anything is sent to
// the image host.
func (s *PostService) ValidateDetails(in CreatePostInput, ownerID string) error {
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	if err := s.validate.StructPartial(in, "Title", "Description"); err != nil {
		return validationError(err)
	}
	return s.validateAddressAndPet(in, ownerID)
}

func (s *PostService) Create(ctx context.Context, in CreatePostInput, ownerID string) (*models.Post, error) {
	if ownerID == "" {
		return nil, models.NewUnauthorizedError("Authentication required")
	}

	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)

	var ownerEmail string
	if s.users != nil {
		user, err := s.users.GetByID(ctx, ownerID)
		switch {
		case err == nil:
			ownerEmail = user.Email
			if s.flags.Enabled(featureflags.RequireVerifiedEmail, ownerID) && !user.EmailVerified {
				return nil, models.NewForbiddenError("Verify your email address before posting")
			}
		case models.IsCode(err, models.CodeNotFound):
			if s.flags.Enabled(featureflags.RequireVerifiedEmail, ownerID) {
				return nil, models.NewForbiddenError("Verify your email address before posting")
			}
		default:
			return nil, err
		}
	}

	if err := s.validateCreate(in, ownerID); err != nil {
		return nil, err
	}

	post := &models.Post{
		Title:            in.Title,
		Description:      in.Description,
		ImageURL:         in.ImageURL,
		PassportImageURL: in.PassportImageURL,
		Location:         in.Location,
		PetName:          in.PetName,
		PetType:          in.PetType,
		ContactInfo:      in.ContactInfo,
		OwnerID:          ownerID,
		OwnerEmail:       ownerEmail,
		Status:           models.StatusActive,
		ViewCount:        0,
		CreatedAt:        time.Now().UTC(),
	}
	if err := s.posts.Create(ctx, post); err != nil {
		return nil, err
	}

	s.events.PublishCatalogEvent(ctx, models.CatalogEvent{Type: models.EventPostCreated, PostID: post.ID, Payload: post})
	return post, nil
}

func (s *PostService) Get(ctx context.Context, id string) (*models.Post, error) {
	return s.posts.GetByID(ctx, id)
}

func (s *PostService) ListByOwner(ctx context.Context, ownerID string) ([]models.Post, error) {
	return s.posts.ListByOwner(ctx, ownerID)
}

// ListRecent returns the newest posts. A non-positive limit uses the
// configured catalog size.
func (s *PostService) ListRecent(ctx context.Context, limit int) ([]models.Post, error) {
	if limit <= 0 {
		limit = s.recentLimit
	}
	return s.posts.ListRecent(ctx, limit)
}

func (s *PostService) ListAll(ctx context.Context) ([]models.Post, error) {
	return s.posts.ListAll(ctx)
}

// Update merges the provided fields into the post. Only the owner may edit,
// and lifecycle fields are never touched.
func (s *PostService) Update(ctx context.Context, id, requesterID string, in UpdatePostInput) (*models.Post, error) {
	post, err := s.posts.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := lifecycle.CanEdit(post.OwnerID, lifecycle.Actor{ID: requesterID}); err != nil {
		return nil, err
	}

	edited := *post
	if in.Title != nil {
		edited.Title = strings.TrimSpace(*in.Title)
	}
	if in.Description != nil {
		edited.Description = strings.TrimSpace(*in.Description)
	}
	if in.ImageURL != nil {
		edited.ImageURL = *in.ImageURL
	}
	if in.PassportImageURL != nil {
		edited.PassportImageURL = *in.PassportImageURL
	}
	if in.Location != nil {
		edited.Location = *in.Location
	}
	if in.PetName != nil {
		edited.PetName = *in.PetName
	}
	if in.PetType != nil {
		edited.PetType = *in.PetType
	}
	if in.ContactInfo != nil {
		edited.ContactInfo = *in.ContactInfo
	}

	check := CreatePostInput{
		Title:            edited.Title,
		Description:      edited.Description,
		ImageURL:         edited.ImageURL,
		PassportImageURL: edited.PassportImageURL,
		Location:         edited.Location,
		PetName:          edited.PetName,
		PetType:          edited.PetType,
		ContactInfo:      edited.ContactInfo,
	}
	if err := s.validateCreate(check, requesterID); err != nil {
		return nil, err
	}

	if err := s.posts.Update(ctx, &edited); err != nil {
		return nil, err
	}

	s.events.PublishCatalogEvent(ctx, models.CatalogEvent{Type: models.EventPostUpdated, PostID: edited.ID, Payload: &edited})
	return &edited, nil
}

// SetStatus moves the post through the lifecycle. A no-op transition
// returns the post without writing.
func (s *PostService) SetStatus(ctx context.Context, id string, actor lifecycle.Actor, status models.PostStatus) (*models.Post, error) {
	post, err := s.posts.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	decision, err := lifecycle.Transition(post.Status, status, post.OwnerID, actor)
	if err != nil {
		return nil, err
	}
	if !decision.Changed {
		return post, nil
	}

	if err := s.posts.UpdateStatus(ctx, id, decision.To); err != nil {
		return nil, err
	}
	post.Status = decision.To

	s.events.PublishCatalogEvent(ctx, models.CatalogEvent{
		Type:    models.EventPostStatusChanged,
		PostID:  id,
		Payload: map[string]models.PostStatus{"from": decision.From, "to": decision.To},
	})
	return post, nil
}

// IncrementViewCount never fails the caller.
func (s *PostService) IncrementViewCount(ctx context.Context, id string) {
	if err := s.posts.IncrementViewCount(ctx, id); err != nil {
		observability.GlobalLogger.WarnContext(ctx, "view count increment failed", "post_id", id, "error", err)
	}
}

func (s *PostService) Delete(ctx context.Context, id string, actor lifecycle.Actor) error {
	post, err := s.posts.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := lifecycle.CanDelete(post.OwnerID, actor); err != nil {
		return err
	}
	if _, err := s.posts.DeleteCascade(ctx, id); err != nil {
		return err
	}

	s.events.PublishCatalogEvent(ctx, models.CatalogEvent{Type: models.EventPostDeleted, PostID: id})
	return nil
}
