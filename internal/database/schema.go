package database

import (
	"context"
	"fmt"
	"log/slog"

	"ravencube/internal/config"
	"ravencube/internal/middleware"

	"gorm.io/gorm"
)

const (
	SchemaModeAuto   = "auto"
	SchemaModeManual = "manual"
)

// SchemaStatus describes which persistent tables exist and what a connect
// would do about the missing ones.
type SchemaStatus struct {
	Mode          string
	Environment   string
	WillMigrate   bool
	PresentTables []string
	MissingTables []string
}

func normalizedSchemaMode(cfg *config.Config) string {
	if cfg.DBSchemaMode == "" {
		return SchemaModeAuto
	}
	return cfg.DBSchemaMode
}

// ApplySchema migrates db when the configured schema mode is auto. It runs in
// every environment, production included.
func ApplySchema(ctx context.Context, db *gorm.DB, cfg *config.Config) error {
	mode := normalizedSchemaMode(cfg)
	switch mode {
	case SchemaModeAuto:
		middleware.Logger.Info("Running GORM AutoMigrate", slog.String("mode", mode), slog.String("env", cfg.Env))
		return Migrate(db.WithContext(ctx))
	case SchemaModeManual:
		middleware.Logger.Info("Skipping schema migration; run cmd/migrate up", slog.String("env", cfg.Env))
		return nil
	default:
		return fmt.Errorf("unsupported DB_SCHEMA_MODE %q", mode)
	}
}

// GetSchemaStatus reports the presence of every table in PersistentModels.
func GetSchemaStatus(ctx context.Context, db *gorm.DB, cfg *config.Config) (*SchemaStatus, error) {
	status := &SchemaStatus{
		Mode:        normalizedSchemaMode(cfg),
		Environment: cfg.Env,
	}
	status.WillMigrate = status.Mode == SchemaModeAuto

	migrator := db.WithContext(ctx).Migrator()
	for _, m := range PersistentModels() {
		stmt := &gorm.Statement{DB: db}
		if err := stmt.Parse(m); err != nil {
			return nil, fmt.Errorf("parse model %T: %w", m, err)
		}
		if migrator.HasTable(m) {
			status.PresentTables = append(status.PresentTables, stmt.Schema.Table)
		} else {
			status.MissingTables = append(status.MissingTables, stmt.Schema.Table)
		}
	}
	return status, nil
}
