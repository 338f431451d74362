package repository

import (
	"context"
	"time"

	"whereismypet/internal/cache"
	"whereismypet/internal/models"
	"whereismypet/internal/observability"

	"gorm.io/gorm"
)

// PostRepository defines the interface for post data operations
type PostRepository interface {
	Create(ctx context.Context, post *models.Post) error
	GetByID(ctx context.Context, id string) (*models.Post, error)
	ListByOwner(ctx context.Context, ownerID string) ([]models.Post, error)
	ListRecent(ctx context.Context, limit int) ([]models.Post, error)
	ListAll(ctx context.Context) ([]models.Post, error)
	Update(ctx context.Context, post *models.Post) error
	UpdateStatus(ctx context.Context, id string, status models.PostStatus) error
	IncrementViewCount(ctx context.Context, id string) error
	DeleteCascade(ctx context.Context, id string) (bool, error)
}

// mutableColumns are the only columns Update may write.
var mutableColumns = []string{
	"title", "description", "image_url", "passport_image_url",
	"location_city", "location_district", "location_neighborhood", "location_street",
	"pet_name", "pet_type", "contact_info", "updated_at",
}

type postRepository struct {
	db    *gorm.DB
	cache *cache.Store
	log   *observability.RepoLogger
}

// NewPostRepository creates a new post repository. store may be a
// pass-through cache.
func NewPostRepository(db *gorm.DB, store *cache.Store) PostRepository {
	return &postRepository{db: db, cache: store, log: observability.NewRepoLogger("posts")}
}

func (r *postRepository) Create(ctx context.Context, post *models.Post) error {
	ctx, span := observability.GetTraceLayer().TraceRepositoryMethod(ctx, "Create", "posts")
	defer span.End()

	if err := r.db.WithContext(ctx).Create(post).Error; err != nil {
		observability.RecordSpanError(span, err)
		r.log.LogError(ctx, err, "create")
		return storeErr(err, "Post", post.ID)
	}
	r.cache.InvalidateRecent(ctx)
	r.log.LogCreate(ctx, map[string]interface{}{"post_id": post.ID, "owner_id": post.OwnerID})
	return nil
}

func (r *postRepository) GetByID(ctx context.Context, id string) (*models.Post, error) {
	ctx, span := observability.GetTraceLayer().TraceRepositoryMethod(ctx, "GetByID", "posts")
	defer span.End()

	var post models.Post
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&post).Error; err != nil {
		observability.RecordSpanError(span, err)
		return nil, storeErr(err, "Post", id)
	}
	return &post, nil
}

func (r *postRepository) ListByOwner(ctx context.Context, ownerID string) ([]models.Post, error) {
	posts := []models.Post{}
	if err := r.db.WithContext(ctx).Where("owner_id = ?", ownerID).Find(&posts).Error; err != nil {
		return nil, storeErr(err, "Post", ownerID)
	}
	return posts, nil
}

// ListRecent returns at most limit posts, newest first, through the cache.
func (r *postRepository) ListRecent(ctx context.Context, limit int) ([]models.Post, error) {
	ctx, span := observability.GetTraceLayer().TraceRepositoryMethod(ctx, "ListRecent", "posts")
	defer span.End()

	posts := []models.Post{}
	err := r.cache.Aside(ctx, "posts", cache.RecentPostsKey(limit), &posts, cache.RecentPostsTTL, func() error {
		return r.db.WithContext(ctx).
			Order("created_at DESC").
			Order("id").
			Limit(limit).
			Find(&posts).Error
	})
	if err != nil {
		observability.RecordSpanError(span, err)
		return nil, storeErr(err, "Post", "recent")
	}
	return posts, nil
}

func (r *postRepository) ListAll(ctx context.Context) ([]models.Post, error) {
	posts := []models.Post{}
	if err := r.db.WithContext(ctx).Order("created_at DESC").Find(&posts).Error; err != nil {
		return nil, storeErr(err, "Post", "all")
	}
	return posts, nil
}

func (r *postRepository) Update(ctx context.Context, post *models.Post) error {
	ctx, span := observability.GetTraceLayer().TraceRepositoryMethod(ctx, "Update", "posts")
	defer span.End()

	post.UpdatedAt = time.Now().UTC()
	res := r.db.WithContext(ctx).
		Model(post).
		Select(mutableColumns).
		Updates(post)
	if res.Error != nil {
		observability.RecordSpanError(span, res.Error)
		r.log.LogError(ctx, res.Error, "update")
		return storeErr(res.Error, "Post", post.ID)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Post", post.ID)
	}
	r.cache.InvalidateRecent(ctx)
	r.log.LogUpdate(ctx, map[string]interface{}{"post_id": post.ID})
	return nil
}

func (r *postRepository) UpdateStatus(ctx context.Context, id string, status models.PostStatus) error {
	ctx, span := observability.GetTraceLayer().TraceRepositoryMethod(ctx, "UpdateStatus", "posts")
	defer span.End()

	res := r.db.WithContext(ctx).
		Model(&models.Post{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{"status": status, "updated_at": time.Now().UTC()})
	if res.Error != nil {
		observability.RecordSpanError(span, res.Error)
		r.log.LogError(ctx, res.Error, "update_status")
		return storeErr(res.Error, "Post", id)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Post", id)
	}
	r.cache.InvalidateRecent(ctx)
	r.log.LogUpdate(ctx, map[string]interface{}{"post_id": id, "status": status})
	return nil
}

// IncrementViewCount adds one to view_count in a single statement so
// concurrent viewers never lose an update. The cache is left alone: view
// counts on cached pages are allowed to lag.
func (r *postRepository) IncrementViewCount(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).
		Model(&models.Post{}).
		Where("id = ?", id).
		UpdateColumn("view_count", gorm.Expr("view_count + ?", 1))
	if res.Error != nil {
		return storeErr(res.Error, "Post", id)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Post", id)
	}
	return nil
}

// DeleteCascade removes the post and everything that references it. It
// reports whether the post existed; deleting a missing post is not an error.
func (r *postRepository) DeleteCascade(ctx context.Context, id string) (bool, error) {
	ctx, span := observability.GetTraceLayer().TraceRepositoryMethod(ctx, "DeleteCascade", "posts")
	defer span.End()

	var existed bool
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		existed, err = deletePostTx(tx, id)
		return err
	})
	if err != nil {
		observability.RecordSpanError(span, err)
		r.log.LogError(ctx, err, "delete")
		return false, storeErr(err, "Post", id)
	}
	if existed {
		r.cache.InvalidateRecent(ctx)
		r.log.LogDelete(ctx, map[string]interface{}{"post_id": id})
	}
	return existed, nil
}

func deletePostTx(tx *gorm.DB, id string) (bool, error) {
	for _, dependent := range []interface{}{&models.Comment{}, &models.Notification{}, &models.Report{}} {
		if err := tx.Where("post_id = ?", id).Delete(dependent).Error; err != nil {
			return false, err
		}
	}
	res := tx.Where("id = ?", id).Delete(&models.Post{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
