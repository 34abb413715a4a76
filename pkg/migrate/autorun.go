package migrate

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"

	"github.com/pressly/goose/v3"

	"github.com/angelmondragon/pixcheckout-backend/pkg/config"
	"github.com/angelmondragon/pixcheckout-backend/pkg/db"
	"github.com/angelmondragon/pixcheckout-backend/pkg/logger"
)

// MaybeRunDev applies the embedded migrations on boot in dev when
// PIXCHECKOUT_AUTO_MIGRATE is set. Elsewhere it only warns when the schema
// is behind the binary, since checkout writes would fail on missing columns.
func MaybeRunDev(ctx context.Context, cfg *config.Config, logg *logger.Logger, client *db.Client) error {
	sqlDB, err := client.DB().DB()
	if err != nil {
		return fmt.Errorf("extracting sql.DB: %w", err)
	}
	ctx = logg.WithField(ctx, "env", cfg.App.Env)

	if cfg.App.IsDev() && cfg.FeatureFlags.AutoMigrate {
		logg.Info(ctx, "migrate.autorun.start")
		if err := Run(ctx, sqlDB, Source{}, "up"); err != nil {
			return err
		}
		logg.Info(ctx, "migrate.autorun.done")
		return nil
	}

	current, latest, err := Versions(ctx, sqlDB, Source{})
	if err != nil {
		logg.Warn(logg.WithField(ctx, "error", err.Error()), "migrate.version_check_failed")
		return nil
	}
	if current < latest {
		logg.Warn(logg.WithFields(ctx, map[string]any{
			"db_version":     current,
			"latest_version": latest,
		}), "migrate.schema_behind")
	}
	return nil
}

// Versions reports the applied schema version and the newest one in src.
func Versions(ctx context.Context, sqlDB *sql.DB, src Source) (current, latest int64, err error) {
	latest, err = LatestVersion(src)
	if err != nil {
		return 0, 0, err
	}
	if _, err := prepare(src); err != nil {
		return 0, 0, err
	}
	current, err = goose.GetDBVersionContext(ctx, sqlDB)
	if err != nil {
		return 0, 0, fmt.Errorf("get db version: %w", err)
	}
	return current, latest, nil
}

// LatestVersion is the highest migration version found in src.
func LatestVersion(src Source) (int64, error) {
	versions, err := Validate(src)
	if err != nil {
		return 0, err
	}
	if len(versions) == 0 {
		return 0, nil
	}
	return strconv.ParseInt(versions[len(versions)-1], 10, 64)
}
