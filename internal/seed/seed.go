// Package seed fills a development database with plausible lost-and-found
// listings. It is not used by the server.
package seed

import (
	"fmt"
	"time"

	"whereismypet/internal/models"

	"github.com/brianvoe/gofakeit/v6"
	"gorm.io/gorm"
)

// Options controls how much data is generated.
type Options struct {
	Users   int
	Posts   int
	MaxDays int
	// Seed makes runs reproducible. Zero picks a random seed.
	Seed int64
}

// Summary reports what a run created.
type Summary struct {
	Users    int
	Posts    int
	Comments int
	Reports  int
}

// districts is a small slice of real addresses so location filters have
// something to match.
var districts = []models.Location{
	{City: "Istanbul", District: "Kadikoy", Neighborhood: "Moda"},
	{City: "Istanbul", District: "Kadikoy", Neighborhood: "Fenerbahce"},
	{City: "Istanbul", District: "Besiktas", Neighborhood: "Levent"},
	{City: "Istanbul", District: "Uskudar", Neighborhood: "Kuzguncuk"},
	{City: "Ankara", District: "Cankaya", Neighborhood: "Kizilay"},
	{City: "Ankara", District: "Yenimahalle", Neighborhood: "Batikent"},
	{City: "Izmir", District: "Karsiyaka", Neighborhood: "Bostanli"},
	{City: "Izmir", District: "Konak", Neighborhood: "Alsancak"},
}

var reasons = []models.ReasonCode{models.ReasonCommercial, models.ReasonInappropriate, models.ReasonSpam, models.ReasonOther}

type Seeder struct {
	db    *gorm.DB
	faker *gofakeit.Faker
}

func NewSeeder(db *gorm.DB, seed int64) *Seeder {
	return &Seeder{db: db, faker: gofakeit.New(seed)}
}

// ClearAll removes every row the seeder may have written.
func (s *Seeder) ClearAll() error {
	for _, m := range []interface{}{&models.Report{}, &models.Notification{}, &models.Comment{}, &models.Post{}, &models.User{}} {
		if err := s.db.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(m).Error; err != nil {
			return fmt.Errorf("clear %T: %w", m, err)
		}
	}
	return nil
}

func (s *Seeder) Run(opts Options) (Summary, error) {
	if opts.Users <= 0 {
		opts.Users = 1
	}
	if opts.MaxDays <= 0 {
		opts.MaxDays = 60
	}

	var sum Summary
	err := s.db.Transaction(func(tx *gorm.DB) error {
		users := make([]models.User, 0, opts.Users)
		for i := 0; i < opts.Users; i++ {
			users = append(users, models.User{
				ID:            s.faker.UUID(),
				Email:         s.faker.Email(),
				EmailVerified: s.faker.Bool(),
				IsAdmin:       i == 0,
			})
		}
		if err := tx.CreateInBatches(&users, 100).Error; err != nil {
			return err
		}
		sum.Users = len(users)

		for i := 0; i < opts.Posts; i++ {
			owner := users[s.faker.Number(0, len(users)-1)]
			post := s.post(owner, opts.MaxDays)
			if err := tx.Create(post).Error; err != nil {
				return err
			}
			sum.Posts++

			for c := 0; c < s.faker.Number(0, 3); c++ {
				commenter := users[s.faker.Number(0, len(users)-1)]
				comment := &models.Comment{
					PostID:    post.ID,
					UserID:    commenter.ID,
					Content:   s.faker.Sentence(s.faker.Number(4, 14)),
					CreatedAt: post.CreatedAt.Add(time.Duration(s.faker.Number(1, 48)) * time.Hour),
				}
				if err := tx.Create(comment).Error; err != nil {
					return err
				}
				sum.Comments++
			}

			if s.faker.Number(1, 10) == 1 {
				report := &models.Report{PostID: post.ID, ReasonCode: reasons[s.faker.Number(0, len(reasons)-1)]}
				if err := tx.Create(report).Error; err != nil {
					return err
				}
				sum.Reports++
			}
		}
		return nil
	})
	return sum, err
}

func (s *Seeder) post(owner models.User, maxDays int) *models.Post {
	loc := districts[s.faker.Number(0, len(districts)-1)]
	loc.Street = s.faker.Street()

	petType := s.faker.RandomString(models.PetTypes)
	petName := s.faker.PetName()
	lost := s.faker.Bool()
	verb := "Found"
	if lost {
		verb = "Lost"
	}

	status := models.StatusActive
	if s.faker.Number(1, 5) == 1 {
		status = models.StatusFound
	}

	created := time.Now().UTC().
		Add(-time.Duration(s.faker.Number(0, maxDays*24)) * time.Hour).
		Add(-time.Duration(s.faker.Number(0, 59)) * time.Minute)

	return &models.Post{
		Title:            fmt.Sprintf("%s %s in %s", verb, petType, loc.Neighborhood),
		Description:      fmt.Sprintf("%s, %s. %s", petName, s.faker.Color(), s.faker.Paragraph(1, 2, 10, " ")),
		ImageURL:         fmt.Sprintf("https://picsum.photos/seed/%s/800/800", s.faker.UUID()),
		PassportImageURL: fmt.Sprintf("https://picsum.photos/seed/passport-%s/600/400", s.faker.UUID()),
		Location:         loc,
		PetName:          petName,
		PetType:          petType,
		ContactInfo:      s.faker.Phone(),
		OwnerID:          owner.ID,
		OwnerEmail:       owner.Email,
		Status:           status,
		ViewCount:        int64(s.faker.Number(0, 400)),
		CreatedAt:        created,
	}
}
