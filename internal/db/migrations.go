package db

import (
	"fmt"
	"io/fs"
	"regexp"
	"sort"
	"strconv"
	"strings"

	embeddedmigrations "github.com/terraincognita07/medremind/migrations"
	"gorm.io/gorm"
)

// Migration files are named <version>_<label>.sql; anything else in the
// directory is ignored.
var migrationFileName = regexp.MustCompile(`^(\d+)_[A-Za-z0-9_-]+\.sql$`)

const createMigrationLedgerSQL = `
CREATE TABLE IF NOT EXISTS schema_migrations (
  version TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  applied_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);`

type migration struct {
	version    string
	order      int
	file       string
	statements []string
}

func applyEmbeddedMigrations(database *gorm.DB) error {
	return migrate(database, embeddedmigrations.Files)
}

// migrate runs every migration in files that schema_migrations has not
// recorded yet, oldest first, one transaction per file.
func migrate(database *gorm.DB, files fs.FS) error {
	if err := database.Exec(createMigrationLedgerSQL).Error; err != nil {
		return fmt.Errorf("create schema_migrations table: %w", err)
	}

	available, err := readMigrations(files)
	if err != nil {
		return err
	}
	applied, err := appliedMigrationVersions(database)
	if err != nil {
		return err
	}

	for _, next := range available {
		if applied[next.version] {
			continue
		}
		if err := next.apply(database); err != nil {
			return err
		}
	}
	return nil
}

func loadEmbeddedMigrations() ([]migration, error) {
	return readMigrations(embeddedmigrations.Files)
}

func readMigrations(files fs.FS) ([]migration, error) {
	names, err := fs.Glob(files, "*.sql")
	if err != nil {
		return nil, fmt.Errorf("list migrations: %w", err)
	}

	owners := make(map[string]string, len(names))
	migrations := make([]migration, 0, len(names))
	for _, name := range names {
		matches := migrationFileName.FindStringSubmatch(name)
		if matches == nil {
			continue
		}
		version := matches[1]
		if owner, taken := owners[version]; taken {
			return nil, fmt.Errorf("migration version %s used by both %s and %s", version, owner, name)
		}
		owners[version] = name

		order, err := strconv.Atoi(version)
		if err != nil {
			return nil, fmt.Errorf("migration %s: bad version: %w", name, err)
		}
		raw, err := fs.ReadFile(files, name)
		if err != nil {
			return nil, fmt.Errorf("read migration %s: %w", name, err)
		}
		statements := splitSQLStatements(string(raw))
		if len(statements) == 0 {
			return nil, fmt.Errorf("migration %s has no SQL statements", name)
		}

		migrations = append(migrations, migration{
			version:    version,
			order:      order,
			file:       name,
			statements: statements,
		})
	}

	sort.Slice(migrations, func(i, j int) bool {
		return migrations[i].order < migrations[j].order
	})
	return migrations, nil
}

func appliedMigrationVersions(database *gorm.DB) (map[string]bool, error) {
	var versions []string
	if err := database.Table("schema_migrations").Pluck("version", &versions).Error; err != nil {
		return nil, fmt.Errorf("load applied migration versions: %w", err)
	}

	applied := make(map[string]bool, len(versions))
	for _, version := range versions {
		applied[version] = true
	}
	return applied, nil
}

func (m migration) apply(database *gorm.DB) error {
	return database.Transaction(func(tx *gorm.DB) error {
		for _, statement := range m.statements {
			if err := tx.Exec(statement).Error; err != nil {
				return fmt.Errorf("migration %s: %w", m.file, err)
			}
		}
		if err := tx.Exec(
			`INSERT INTO schema_migrations(version, name) VALUES (?, ?)`,
			m.version,
			m.file,
		).Error; err != nil {
			return fmt.Errorf("record migration %s: %w", m.file, err)
		}
		return nil
	})
}

// splitSQLStatements cuts on semicolons. Migration files must not put a
// semicolon inside a string literal or trigger body.
func splitSQLStatements(sqlText string) []string {
	var statements []string
	for _, part := range strings.Split(sqlText, ";") {
		if statement := strings.TrimSpace(part); statement != "" {
			statements = append(statements, statement)
		}
	}
	return statements
}
