package database

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"ravencube/internal/config"
	"ravencube/internal/middleware"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// maintenanceDB is the database used to issue CREATE DATABASE.
const maintenanceDB = "postgres"

// EnsureDatabase creates cfg.DBName on the server if it does not exist yet.
func EnsureDatabase(ctx context.Context, cfg *config.Config) error {
	conn, err := pgx.Connect(ctx, DSN(cfg, maintenanceDB))
	if err != nil {
		return fmt.Errorf("connect to maintenance database: %w", err)
	}
	defer func() { _ = conn.Close(ctx) }()

	var exists bool
	if err := conn.QueryRow(ctx, "SELECT EXISTS (SELECT 1 FROM pg_database WHERE datname = $1)", cfg.DBName).Scan(&exists); err != nil {
		return fmt.Errorf("check database existence: %w", err)
	}
	if exists {
		return nil
	}

	ident := pgx.Identifier{cfg.DBName}.Sanitize()
	if _, err := conn.Exec(ctx, "CREATE DATABASE "+ident); err != nil {
		// Another instance may have won the race.
		if !IsUniqueViolation(err) && !isDuplicateDatabase(err) {
			return fmt.Errorf("create database %s: %w", ident, err)
		}
	}
	middleware.Logger.Info("Database created", "name", cfg.DBName)
	return nil
}

// IsUniqueViolation reports whether err is a unique-constraint violation from
// PostgreSQL or SQLite.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func isDuplicateDatabase(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "42P04"
}
