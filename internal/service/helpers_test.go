package service

import (
	"context"
	"sync"
	"testing"

	"whereismypet/internal/cache"
	"whereismypet/internal/featureflags"
	"whereismypet/internal/models"
	"whereismypet/internal/repository"
	"whereismypet/internal/testutil"

	"gorm.io/gorm"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []models.CatalogEvent
	users  map[string][][]byte
}

func (p *recordingPublisher) PublishCatalogEvent(_ context.Context, event models.CatalogEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
}

func (p *recordingPublisher) PublishUser(_ context.Context, userID string, payload []byte) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.users == nil {
		p.users = make(map[string][][]byte)
	}
	p.users[userID] = append(p.users[userID], payload)
}

func (p *recordingPublisher) eventTypes() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

type fixture struct {
	db     *gorm.DB
	posts  repository.PostRepository
	users  repository.UserRepository
	events *recordingPublisher
	svc    *PostService
}

func newFixture(t *testing.T, flags string) *fixture {
	t.Helper()
	db := testutil.NewSQLiteDB(t)
	posts := repository.NewPostRepository(db, cache.New(nil))
	users := repository.NewUserRepository(db)
	events := &recordingPublisher{}
	return &fixture{
		db:     db,
		posts:  posts,
		users:  users,
		events: events,
		svc:    NewPostService(posts, users, featureflags.NewManager(flags), events, 10),
	}
}

func validInput() CreatePostInput {
	return CreatePostInput{
		Title:            "Lost tabby near the market",
		Description:      "Orange tabby, answers to Simit, blue collar.",
		ImageURL:         "https://img.example.com/simit.webp",
		PassportImageURL: "https://img.example.com/simit-passport.webp",
		Location: models.Location{
			City:         "Istanbul",
			District:     "Kadikoy",
			Neighborhood: "Moda",
			Street:       "Moda Cd. 12",
		},
		PetName:     "Simit",
		PetType:     "cat",
		ContactInfo: "+90 555 000 0000",
	}
}

func ptr[T any](v T) *T { return &v }
