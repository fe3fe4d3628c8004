// Command migrate applies or inspects the database schema.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"strings"

	"ravencube/internal/config"
	"ravencube/internal/database"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func usage() error {
	return fmt.Errorf("usage: go run ./cmd/migrate <up|status>")
}

func run() error {
	flag.Parse()
	if flag.NArg() < 1 {
		return usage()
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	db, err := database.ConnectWithOptions(cfg, database.ConnectOptions{ApplySchema: false})
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer func() { _ = database.Close(db) }()

	ctx := context.Background()
	switch strings.ToLower(strings.TrimSpace(flag.Arg(0))) {
	case "up":
		if err := database.Migrate(db.WithContext(ctx)); err != nil {
			return err
		}
		log.Println("schema up to date")
	case "status":
		status, err := database.GetSchemaStatus(ctx, db, cfg)
		if err != nil {
			return fmt.Errorf("schema status failed: %w", err)
		}
		log.Printf("mode=%s env=%s migrate_on_connect=%t present=%d missing=%d",
			status.Mode, status.Environment, status.WillMigrate, len(status.PresentTables), len(status.MissingTables))
		for _, table := range status.MissingTables {
			log.Printf("missing: %s", table)
		}
	default:
		return usage()
	}
	return nil
}
