package migrations

import (
	"context"
	"fmt"

	"token-risk-monitor/internal/storage/postgres"
)

// RunPostgresMigrations creates the token_snapshots schema. Each file runs as
// one multi-statement Exec and must be idempotent.
func RunPostgresMigrations(ctx context.Context, pool *postgres.Pool) error {
	files, err := loadScripts(scripts, "postgres")
	if err != nil {
		return err
	}
	for _, f := range files {
		if _, err := pool.Exec(ctx, f.sql); err != nil {
			return fmt.Errorf("apply migration %s: %w", f.name, err)
		}
	}
	return nil
}
