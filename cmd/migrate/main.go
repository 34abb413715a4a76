package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"github.com/angelmondragon/pixcheckout-backend/pkg/config"
	"github.com/angelmondragon/pixcheckout-backend/pkg/db"
	"github.com/angelmondragon/pixcheckout-backend/pkg/logger"
	"github.com/angelmondragon/pixcheckout-backend/pkg/migrate"
)

type dbCommand func(ctx context.Context, sqlDB *sql.DB, src migrate.Source) error

func main() {
	cmd := flag.String("cmd", "up", "up|down|redo|status|version|check|create|validate")
	dir := flag.String("dir", "", "read migrations from this directory instead of the embedded set")
	name := flag.String("name", "", "migration name (create)")
	version := flag.String("version", "", "target version YYYYMMDDHHMMSS (version)")
	flag.Parse()

	src := migrate.Source{Dir: *dir}

	// create and validate work on files only.
	switch *cmd {
	case "create":
		if *name == "" {
			exit("missing -name for create")
		}
		path, err := migrate.CreateSQLMigration(*dir, *name)
		if err != nil {
			exit("create migration: %v", err)
		}
		fmt.Println("created migration:", path)
		return
	case "validate":
		versions, err := migrate.Validate(src)
		if err != nil {
			exit("migration validation failed: %v", err)
		}
		fmt.Printf("%d migrations valid\n", len(versions))
		return
	}

	commands := map[string]dbCommand{
		"up":     goose("up"),
		"down":   goose("down"),
		"redo":   goose("redo"),
		"status": goose("status"),
		"version": func(ctx context.Context, sqlDB *sql.DB, src migrate.Source) error {
			if *version == "" {
				return fmt.Errorf("missing -version")
			}
			return migrate.MigrateToVersion(ctx, sqlDB, src, *version)
		},
		"check": func(ctx context.Context, sqlDB *sql.DB, src migrate.Source) error {
			current, latest, err := migrate.Versions(ctx, sqlDB, src)
			if err != nil {
				return err
			}
			if current < latest {
				return fmt.Errorf("schema at %d, migrations go up to %d", current, latest)
			}
			fmt.Println("schema up to date:", current)
			return nil
		},
	}
	run, ok := commands[*cmd]
	if !ok {
		exit("unknown -cmd value: %s", *cmd)
	}

	_ = godotenv.Load()
	logg := logger.New(logger.Options{ServiceName: "migrate"})
	cfg, err := config.Load()
	if err != nil {
		exit("load config: %v", err)
	}
	logg = logger.New(logger.Options{
		ServiceName: "migrate",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
	})
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env": cfg.App.Env,
		"cmd": *cmd,
		"dir": orEmbedded(*dir),
	})

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		exit("connect database: %v", err)
	}
	defer dbClient.Close()

	sqlDB, err := dbClient.DB().DB()
	if err != nil {
		exit("sql database: %v", err)
	}

	logg.Info(ctx, "migrate.start")
	if err := run(ctx, sqlDB, src); err != nil {
		logg.Error(ctx, "migrate.failed", err)
		os.Exit(1)
	}
	logg.Info(ctx, "migrate.done")
}

func goose(command string) dbCommand {
	return func(ctx context.Context, sqlDB *sql.DB, src migrate.Source) error {
		return migrate.Run(ctx, sqlDB, src, command)
	}
}

func orEmbedded(dir string) string {
	if strings.TrimSpace(dir) == "" {
		return "embedded"
	}
	return dir
}

func exit(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
