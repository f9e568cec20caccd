package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "github.com/lib/pq"
	"github.com/rs/zerolog/log"
	"github.com/safar/reseller-store/internal/config"
	"github.com/safar/reseller-store/internal/logger"
	"github.com/safar/reseller-store/internal/store"
)

const usage = "Usage: go run scripts/run_migrations.go [up|down|normalize-line-items]"

func main() {
	if len(os.Args) < 2 {
		log.Fatal().Msg(usage)
	}

	command := os.Args[1]
	if command != "up" && command != "down" && command != "normalize-line-items" {
		log.Fatal().Str("command", command).Msg(usage)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Load config")
	}
	logger.Init(cfg.Log.Env, cfg.Log.Level)

	db, err := sql.Open("postgres", cfg.Database.URL)
	if err != nil {
		log.Fatal().Err(err).Msg("Connect to database")
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		log.Fatal().Err(err).Msg("Ping database")
	}

	if command == "normalize-line-items" {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()

		rewritten, err := store.NormalizeLegacyLineItems(ctx, db)
		if err != nil {
			log.Fatal().Err(err).Msg("Normalize line items")
		}
		log.Info().Int64("orders", rewritten).Msg("Rewrote legacy line items")
		return
	}

	if err := migrate(db, "migrations", command); err != nil {
		log.Fatal().Err(err).Msg("Migration failed")
	}
}

func migrate(db *sql.DB, dir, direction string) error {
	files, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("read migration directory: %w", err)
	}

	var migrationFiles []string
	for _, file := range files {
		if !file.IsDir() && strings.HasSuffix(file.Name(), fmt.Sprintf(".%s.sql", direction)) {
			migrationFiles = append(migrationFiles, file.Name())
		}
	}

	sort.Strings(migrationFiles)
	if direction == "down" {
		for i, j := 0, len(migrationFiles)-1; i < j; i, j = i+1, j-1 {
			migrationFiles[i], migrationFiles[j] = migrationFiles[j], migrationFiles[i]
		}
	}

	for _, filename := range migrationFiles {
		content, err := os.ReadFile(filepath.Join(dir, filename))
		if err != nil {
			return fmt.Errorf("read migration file %s: %w", filename, err)
		}

		log.Info().Str("file", filename).Msg("Running migration")
		if _, err := db.Exec(string(content)); err != nil {
			return fmt.Errorf("execute migration %s: %w", filename, err)
		}
	}

	log.Info().Int("count", len(migrationFiles)).Str("direction", direction).Msg("Migrations applied")
	return nil
}
