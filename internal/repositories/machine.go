package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/simboard/ingest/internal/ingest"
	"github.com/simboard/ingest/internal/models"
)

// Store backs the ingestion engine's persistence collaborators with a
// bun database.
type Store struct {
	db *bun.DB
}

// NewStore wraps a database handle.
func NewStore(db *bun.DB) *Store {
	return &Store{db: db}
}

// ResolveMachineID looks up a machine by name and returns its ID.
// Unknown names yield ingest.ErrMachineNotFound.
func (s *Store) ResolveMachineID(ctx context.Context, name string) (uuid.UUID, error) {
	machine := new(models.Machine)
	err := s.db.NewSelect().
		Model(machine).
		Where("name = ?", name).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return uuid.Nil, fmt.Errorf("%w: %q, ensure the machine exists before uploading", ingest.ErrMachineNotFound, name)
	}
	if err != nil {
		return uuid.Nil, err
	}

	return machine.ID, nil
}

// CreateMachine registers a machine by name.
func (s *Store) CreateMachine(ctx context.Context, name string) (*models.Machine, error) {
	machine := &models.Machine{ID: uuid.New(), Name: name}
	if _, err := s.db.NewInsert().Model(machine).Exec(ctx); err != nil {
		return nil, err
	}
	return machine, nil
}
