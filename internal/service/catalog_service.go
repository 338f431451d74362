package service

import (
	"context"

	"whereismypet/internal/catalog"
	"whereismypet/internal/models"
)

// RecentLister is the slice of PostService the catalog reads from.
type RecentLister interface {
	ListRecent(ctx context.Context, limit int) ([]models.Post, error)
	ListByOwner(ctx context.Context, ownerID string) ([]models.Post, error)
}

// CatalogService answers catalog searches by filtering the recent window in
// memory.
type CatalogService struct {
	posts RecentLister
}

func NewCatalogService(posts RecentLister) *CatalogService {
	return &CatalogService{posts: posts}
}

func (s *CatalogService) Browse(ctx context.Context, p catalog.Params) ([]models.Post, error) {
	posts, err := s.posts.ListRecent(ctx, 0)
	if err != nil {
		return nil, err
	}
	return catalog.Apply(posts, p), nil
}

// BrowseOwner applies the same query to one owner's posts.
func (s *CatalogService) BrowseOwner(ctx context.Context, ownerID string, p catalog.Params) ([]models.Post, error) {
	posts, err := s.posts.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	return catalog.Apply(posts, p), nil
}
