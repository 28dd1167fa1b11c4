package postgres

import (
	"database/sql"
	"fmt"
	"io/fs"

	"github.com/pressly/goose/v3"
)

// Migrate applies all pending goose migrations found under dir in the
// given filesystem. Each service embeds only its own migrations, so the
// services never touch each other's schemas.
func Migrate(db *sql.DB, fsys fs.FS, dir string) error {
	goose.SetBaseFS(fsys)

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("setting migration dialect: %w", err)
	}
	if err := goose.Up(db, dir); err != nil {
		return fmt.Errorf("applying migrations: %w", err)
	}
	return nil
}
