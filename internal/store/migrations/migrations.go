// Package migrations carries the Postgres schema for the Event, Checkpoint,
// and Cache Stores (spec.md §6 "Event persistence schema"), applied through
// github.com/pressly/goose/v3, matching jordigilh-kubernaut's migration
// wiring in the retrieval pack.
package migrations

import (
	"database/sql"
	"embed"
	"fmt"

	"github.com/pressly/goose/v3"
)

//go:embed sql/*.sql
var sqlFiles embed.FS

// Up applies every pending migration to db.
func Up(db *sql.DB) error {
	goose.SetBaseFS(sqlFiles)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("migrations: set dialect: %w", err)
	}
	if err := goose.Up(db, "sql"); err != nil {
		return fmt.Errorf("migrations: up: %w", err)
	}
	return nil
}
