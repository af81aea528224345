package migrations

import (
	"context"
	"fmt"

	"strataquant/internal/storage/postgres"
)

// ApplyPostgres runs every embedded Postgres file in one Exec each.
// Files use IF NOT EXISTS, so re-running is safe.
func ApplyPostgres(ctx context.Context, pool *postgres.Pool) error {
	files, err := sqlFiles(PostgresFS, "postgres")
	if err != nil {
		return err
	}
	for _, f := range files {
		if _, err := pool.Exec(ctx, f.body); err != nil {
			return fmt.Errorf("apply migration %s: %w", f.name, err)
		}
	}
	return nil
}
