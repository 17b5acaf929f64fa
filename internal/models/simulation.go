package models

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Simulation is a persisted canonical simulation record. The composite
// unique index on (case_name, machine_id, simulation_start_date) is the
// storage-level deduplication constraint.
type Simulation struct {
	bun.BaseModel `bun:"table:simulations,alias:s"`

	ID uuid.UUID `bun:"id,pk,type:uuid" json:"id"`

	// Identification and configuration
	Name           string  `bun:"name,notnull" json:"name"`
	CaseName       string  `bun:"case_name,notnull" json:"case_name"`
	Description    *string `bun:"description" json:"description,omitempty"`
	Compset        *string `bun:"compset" json:"compset,omitempty"`
	CompsetAlias   *string `bun:"compset_alias" json:"compset_alias,omitempty"`
	GridName       *string `bun:"grid_name" json:"grid_name,omitempty"`
	GridResolution *string `bun:"grid_resolution" json:"grid_resolution,omitempty"`

	// Classification
	SimulationType     SimulationType   `bun:"simulation_type,notnull" json:"simulation_type"`
	Status             SimulationStatus `bun:"status,notnull" json:"status"`
	Campaign           *string          `bun:"campaign" json:"campaign,omitempty"`
	ExperimentType     *string          `bun:"experiment_type" json:"experiment_type,omitempty"`
	InitializationType *string          `bun:"initialization_type" json:"initialization_type,omitempty"`
	GroupName          *string          `bun:"group_name" json:"group_name,omitempty"`

	// Timeline
	MachineID           uuid.UUID  `bun:"machine_id,notnull,type:uuid" json:"machine_id"`
	SimulationStartDate time.Time  `bun:"simulation_start_date,notnull" json:"simulation_start_date"`
	SimulationEndDate   *time.Time `bun:"simulation_end_date" json:"simulation_end_date,omitempty"`
	RunStartDate        *time.Time `bun:"run_start_date" json:"run_start_date,omitempty"`
	RunEndDate          *time.Time `bun:"run_end_date" json:"run_end_date,omitempty"`

	// Software and provenance
	Compiler         *string `bun:"compiler" json:"compiler,omitempty"`
	GitRepositoryURL *string `bun:"git_repository_url" json:"git_repository_url,omitempty"`
	GitBranch        *string `bun:"git_branch" json:"git_branch,omitempty"`
	GitTag           *string `bun:"git_tag" json:"git_tag,omitempty"`
	GitCommitHash    *string `bun:"git_commit_hash" json:"git_commit_hash,omitempty"`
	HPCUsername      *string `bun:"hpc_username" json:"hpc_username,omitempty"`

	IngestionID *uuid.UUID `bun:"ingestion_id,type:uuid" json:"ingestion_id,omitempty"`
	Extra       ExtraMap   `bun:"extra,type:json" json:"extra,omitempty"`

	CreatedAt time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"created_at"`
	UpdatedAt time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp" json:"updated_at"`

	Machine *Machine `bun:"rel:belongs-to,join:machine_id=id" json:"machine,omitempty"`
}

// BeforeUpdate updates the timestamp on modifications.
func (s *Simulation) BeforeUpdate(ctx context.Context, query *bun.UpdateQuery) error {
	s.UpdatedAt = time.Now()
	return nil
}
