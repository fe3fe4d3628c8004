// Command main runs the database seeder for RavenCube.
package main

import (
	"context"
	"flag"
	"log"

	"ravencube/internal/bootstrap"
	"ravencube/internal/config"
	"ravencube/internal/seed"
)

func main() {
	defaults := seed.DefaultOptions()
	numUsers := flag.Int("users", defaults.NumUsers, "Number of users to create")
	numPosts := flag.Int("posts", defaults.NumPosts, "Number of posts to create")
	maxComments := flag.Int("comments", defaults.MaxCommentsPerPost, "Maximum comments per post")
	shouldClean := flag.Bool("clean", defaults.ShouldClean, "Clean database before seeding")
	randSeed := flag.Int64("seed", 0, "Random seed (0 picks one)")
	preset := flag.String("preset", "", "YAML preset file (overrides the other flags)")
	flag.Parse()

	log.Println("🌱 Database Seeder")
	log.Println("==================")

	opts := defaults
	if *preset != "" {
		var err error
		if opts, err = seed.LoadPreset(*preset); err != nil {
			log.Fatalf("❌ %v", err)
		}
		log.Printf("Applying preset: %s (ignoring other flags)", *preset)
	} else {
		opts.NumUsers = *numUsers
		opts.NumPosts = *numPosts
		opts.MaxCommentsPerPost = *maxComments
		opts.ShouldClean = *shouldClean
		opts.RandSeed = *randSeed
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	ctx := context.Background()
	rt, err := bootstrap.InitRuntime(ctx, cfg, bootstrap.Options{ServiceName: "ravencube-seed", SkipRedis: true})
	if err != nil {
		log.Fatalf("Failed to initialize runtime: %v", err)
	}
	defer func() { _ = rt.Close(ctx) }()

	summary, err := seed.NewSeeder(rt.DB, opts.RandSeed).Run(ctx, opts)
	if err != nil {
		log.Printf("❌ Seeding failed: %v", err)
		return
	}

	log.Printf("✨ Done: %d users, %d follows, %d posts, %d comments, %d likes",
		summary.Users, summary.Follows, summary.Posts, summary.Comments, summary.Likes)
	log.Println("🔑 Mint a token for a seeded user with: go run ./cmd/devtoken -sub <auth_subject>")
}
