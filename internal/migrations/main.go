package migrations

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/migrate"

	"github.com/simboard/ingest/internal/models"
)

var Migrations = migrate.NewMigrations()

func init() {
	// Migration 1: create tables
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		modelsList := []interface{}{
			(*models.Machine)(nil),
			(*models.Ingestion)(nil),
			(*models.Simulation)(nil),
		}

		for _, model := range modelsList {
			if _, err := db.NewCreateTable().Model(model).IfNotExists().Exec(ctx); err != nil {
				return err
			}
		}

		return nil
	}, func(ctx context.Context, db *bun.DB) error {
		modelsList := []interface{}{
			(*models.Simulation)(nil),
			(*models.Ingestion)(nil),
			(*models.Machine)(nil),
		}

		for _, model := range modelsList {
			if _, err := db.NewDropTable().Model(model).IfExists().Exec(ctx); err != nil {
				return err
			}
		}

		return nil
	})

	// Migration 2: indexes. The unique composite index is the
	// storage-level deduplication constraint; concurrent ingestions of
	// the same run fail on insert instead of double-inserting.
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		indexes := []string{
			"CREATE UNIQUE INDEX IF NOT EXISTS idx_simulations_dedup_key ON simulations(case_name, machine_id, simulation_start_date)",
			"CREATE INDEX IF NOT EXISTS idx_simulations_case_name ON simulations(case_name)",
			"CREATE INDEX IF NOT EXISTS idx_simulations_machine_id ON simulations(machine_id)",
			"CREATE INDEX IF NOT EXISTS idx_simulations_status ON simulations(status)",
			"CREATE INDEX IF NOT EXISTS idx_simulations_git_commit_hash ON simulations(git_commit_hash)",
			"CREATE INDEX IF NOT EXISTS idx_simulations_ingestion_id ON simulations(ingestion_id)",
			"CREATE INDEX IF NOT EXISTS idx_machines_name ON machines(name)",
			"CREATE INDEX IF NOT EXISTS idx_ingestions_created_at ON ingestions(created_at)",
		}

		for _, idx := range indexes {
			if _, err := db.ExecContext(ctx, idx); err != nil {
				return err
			}
		}

		return nil
	}, func(ctx context.Context, db *bun.DB) error {
		indexes := []string{
			"DROP INDEX IF EXISTS idx_simulations_dedup_key",
			"DROP INDEX IF EXISTS idx_simulations_case_name",
			"DROP INDEX IF EXISTS idx_simulations_machine_id",
			"DROP INDEX IF EXISTS idx_simulations_status",
			"DROP INDEX IF EXISTS idx_simulations_git_commit_hash",
			"DROP INDEX IF EXISTS idx_simulations_ingestion_id",
			"DROP INDEX IF EXISTS idx_machines_name",
			"DROP INDEX IF EXISTS idx_ingestions_created_at",
		}

		for _, idx := range indexes {
			if _, err := db.ExecContext(ctx, idx); err != nil {
				return err
			}
		}

		return nil
	})
}

// RunMigrations runs all pending migrations.
func RunMigrations(ctx context.Context, db *bun.DB) error {
	migrator := migrate.NewMigrator(db, Migrations)

	if err := migrator.Init(ctx); err != nil {
		return err
	}

	group, err := migrator.Migrate(ctx)
	if err != nil {
		return err
	}

	if group.IsZero() {
		fmt.Println("No new migrations to run")
		return nil
	}

	fmt.Printf("Migrated to %s\n", group)
	return nil
}
