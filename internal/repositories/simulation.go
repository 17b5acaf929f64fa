package repositories

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/simboard/ingest/internal/ingest"
	"github.com/simboard/ingest/internal/models"
)

// SimulationExists reports whether a simulation with the composite
// natural key (case_name, machine_id, simulation_start_date) is
// already persisted.
func (s *Store) SimulationExists(ctx context.Context, caseName string, machineID uuid.UUID, startDate time.Time) (bool, error) {
	return s.db.NewSelect().
		Model((*models.Simulation)(nil)).
		Where("case_name = ?", caseName).
		Where("machine_id = ?", machineID).
		Where("simulation_start_date = ?", startDate).
		Exists(ctx)
}

// GetSimulationByKey fetches a simulation by its deduplication key
// with its machine loaded.
func (s *Store) GetSimulationByKey(ctx context.Context, caseName string, machineID uuid.UUID, startDate time.Time) (*models.Simulation, error) {
	sim := new(models.Simulation)
	err := s.db.NewSelect().
		Model(sim).
		Where("case_name = ?", caseName).
		Where("machine_id = ?", machineID).
		Where("simulation_start_date = ?", startDate).
		Relation("Machine").
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return sim, nil
}

// PersistResult inserts all canonical simulations from an ingestion
// result together with its audit record in one transaction, and
// returns the audit record.
func (s *Store) PersistResult(ctx context.Context, result *ingest.Result, sourceType models.IngestionSourceType, sourceReference string, archiveSHA256 *string) (*models.Ingestion, error) {
	audit := &models.Ingestion{
		ID:              uuid.New(),
		SourceType:      sourceType,
		SourceReference: sourceReference,
		Status:          result.Status(),
		CreatedCount:    result.CreatedCount,
		DuplicateCount:  result.DuplicateCount,
		SkippedCount:    result.SkippedCount,
		ErrorCount:      len(result.Errors),
		ArchiveSHA256:   archiveSHA256,
	}

	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewInsert().Model(audit).Exec(ctx); err != nil {
			return err
		}

		for _, simCreate := range result.Simulations {
			sim := simCreate.ToSimulation(uuid.New(), &audit.ID)
			if _, err := tx.NewInsert().Model(sim).Exec(ctx); err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return audit, nil
}
