package migrate

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/cartflow/pkg/config"
	"github.com/angelmondragon/cartflow/pkg/db"
	"github.com/angelmondragon/cartflow/pkg/logger"
)

// ShouldAutoRun reports whether a service may apply migrations at boot:
// auto-migrate must be on, and either the env is dev or the store is the
// embedded sqlite fallback.
func ShouldAutoRun(cfg *config.Config, driver string) bool {
	if cfg == nil || !cfg.FeatureFlags.AutoMigrate {
		return false
	}
	return cfg.App.IsDev() || driver == db.DriverSQLite
}

// MaybeRunDev validates DefaultDir and applies pending migrations when
// ShouldAutoRun allows it.
func MaybeRunDev(ctx context.Context, cfg *config.Config, logg *logger.Logger, client *db.Client) error {
	if !ShouldAutoRun(cfg, client.Driver()) {
		return nil
	}
	if err := ValidateDir(DefaultDir); err != nil {
		return fmt.Errorf("invalid migrations in %s: %w", DefaultDir, err)
	}

	sqlDB, err := client.SQL()
	if err != nil {
		return fmt.Errorf("extracting sql.DB: %w", err)
	}
	latest, err := LatestVersion(DefaultDir)
	if err != nil {
		return err
	}

	ctx = logg.WithFields(ctx, map[string]any{
		"env":            cfg.App.Env,
		"driver":         client.Driver(),
		"target_version": latest,
	})
	logg.Info(ctx, "migrations.autorun.start")

	start := time.Now()
	if err := Run(ctx, sqlDB, client.Driver(), DefaultDir, "up"); err != nil {
		return fmt.Errorf("running goose up: %w", err)
	}

	logg.Info(logg.WithField(ctx, "duration_ms", time.Since(start).Milliseconds()), "migrations.autorun.done")
	return nil
}
