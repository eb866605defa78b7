package database

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"
)

// RunMigrations applies every *.up.sql file in migrationsDir in lexical
// order. The SQL files are idempotent (IF NOT EXISTS), so re-running at
// every startup is safe.
func RunMigrations(migrationsDir string) error {
	files, err := os.ReadDir(migrationsDir)
	if err != nil {
		return err
	}

	var upMigrations []string
	for _, file := range files {
		if strings.HasSuffix(file.Name(), ".up.sql") {
			upMigrations = append(upMigrations, file.Name())
		}
	}

	sort.Strings(upMigrations)

	for _, migrationFile := range upMigrations {
		log.Info().Str("file", migrationFile).Msg("Running migration")
		content, err := os.ReadFile(filepath.Join(migrationsDir, migrationFile))
		if err != nil {
			return err
		}

		if _, err := DB.Exec(string(content)); err != nil {
			return fmt.Errorf("migration %s failed: %w", migrationFile, err)
		}
	}

	log.Info().Msg("Migrations completed")
	return nil
}
