// Command seed fills the configured database with fake Warbler data.
package main

import (
	"context"
	"flag"
	"log"

	"warbler/internal/config"
	"warbler/internal/database"
	"warbler/internal/seed"
)

func main() {
	numUsers := flag.Int("users", 50, "Number of users to create")
	numMessages := flag.Int("messages", 300, "Number of messages to create")
	follows := flag.Int("follows", 10, "Follows per user")
	likes := flag.Int("likes", 15, "Likes per user")
	randSeed := flag.Int64("rand-seed", 0, "Random seed (0 picks one)")
	shouldClean := flag.Bool("clean", true, "Clean database before seeding")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	ctx := context.Background()
	s := seed.NewSeeder(db, seed.Options{
		Users:          *numUsers,
		Messages:       *numMessages,
		FollowsPerUser: *follows,
		LikesPerUser:   *likes,
		BcryptCost:     cfg.BcryptCost,
		RandSeed:       *randSeed,
	})

	if *shouldClean {
		if err := s.ClearAll(ctx); err != nil {
			log.Fatalf("Cleanup failed: %v", err)
		}
	}

	summary, err := s.Run(ctx)
	if err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}

	log.Printf("Created %d users, %d messages, %d follows, %d likes",
		summary.Users, summary.Messages, summary.Follows, summary.Likes)
	log.Printf("All seeded users have the password: %s", seed.DefaultPassword)
}
