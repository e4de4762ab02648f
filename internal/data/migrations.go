package data

import (
	"context"
	"database/sql"

	"github.com/target/passkey-lab/internal/migrate"
)

// RunMigrations sets up the collection tables and indexes by delegating to the migrate package.
func RunMigrations(ctx context.Context, db *sql.DB) error {
	return migrate.Run(ctx, db)
}
