// Command seed fills the database with realistic lost and found listings.
package main

import (
	"errors"
	"flag"
	"log"
	"os"

	"whereismypet/internal/config"
	"whereismypet/internal/database"
	"whereismypet/internal/seed"

	"github.com/joho/godotenv"
)

func main() {
	numUsers := flag.Int("users", 25, "Number of users to create")
	numPosts := flag.Int("posts", 120, "Number of posts to create")
	maxDays := flag.Int("days", 60, "Spread post creation times over this many days")
	randSeed := flag.Int64("seed", 0, "Random seed for reproducible data (0 = random)")
	shouldClean := flag.Bool("clean", true, "Clean database before seeding")
	flag.Parse()

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("Ignoring .env: %v", err)
	}

	log.Printf("Target: %d users, %d posts, clean=%v", *numUsers, *numPosts, *shouldClean)

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	s := seed.NewSeeder(db, *randSeed)
	if *shouldClean {
		if err := s.ClearAll(); err != nil {
			log.Fatalf("Cleanup failed: %v", err)
		}
	}

	summary, err := s.Run(seed.Options{
		Users:   *numUsers,
		Posts:   *numPosts,
		MaxDays: *maxDays,
		Seed:    *randSeed,
	})
	if err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}

	log.Printf("Seeded %d users, %d posts, %d comments, %d reports",
		summary.Users, summary.Posts, summary.Comments, summary.Reports)
	log.Println("The first seeded user is an admin.")
}
