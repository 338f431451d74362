// Package testutil provides shared test doubles and fixtures for backend tests.
package testutil

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"testing"
	"time"

	"whereismypet/internal/database"
	"whereismypet/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/brianvoe/gofakeit/v6"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewSQLiteDB opens a private in-memory database with the full schema.
// It is pinned to one connection so every goroutine sees the same memory database.
func NewSQLiteDB(t testing.TB) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", gofakeit.UUID())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sqlite pool: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

// NewRedis starts a miniredis server and returns a client bound to it.
func NewRedis(t testing.TB) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

// FakePost returns a valid, unsaved post owned by ownerID.
func FakePost(ownerID string) *models.Post {
	return &models.Post{
		Title:            gofakeit.Sentence(4),
		Description:      gofakeit.Paragraph(1, 2, 12, " "),
		ImageURL:         gofakeit.URL(),
		PassportImageURL: gofakeit.URL(),
		Location: models.Location{
			City:         gofakeit.City(),
			District:     gofakeit.StreetName(),
			Neighborhood: gofakeit.StreetName(),
			Street:       gofakeit.Street(),
		},
		PetName:     gofakeit.PetName(),
		PetType:     gofakeit.RandomString(models.PetTypes),
		ContactInfo: gofakeit.Phone(),
		OwnerID:     ownerID,
		Status:      models.StatusActive,
		CreatedAt:   time.Now().UTC(),
	}
}

// PNGBytes encodes a solid w×h PNG.
func PNGBytes(w, h int) []byte {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: 200, G: 120, B: 40, A: 255})
		}
	}
	var buf bytes.Buffer
	_ = png.Encode(&buf, img)
	return buf.Bytes()
}
