package models

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// SimulationCreate is the output schema for one canonical simulation
// produced by archive ingestion, ready for persistence.
type SimulationCreate struct {
	Name           string  `json:"name"`
	CaseName       string  `json:"caseName"`
	Compset        *string `json:"compset,omitempty"`
	CompsetAlias   *string `json:"compsetAlias,omitempty"`
	GridName       *string `json:"gridName,omitempty"`
	GridResolution *string `json:"gridResolution,omitempty"`

	SimulationType     SimulationType   `json:"simulationType"`
	Status             SimulationStatus `json:"status"`
	Campaign           *string          `json:"campaign,omitempty"`
	ExperimentType     *string          `json:"experimentType,omitempty"`
	InitializationType *string          `json:"initializationType,omitempty"`
	GroupName          *string          `json:"groupName,omitempty"`

	MachineID           uuid.UUID  `json:"machineId"`
	SimulationStartDate time.Time  `json:"simulationStartDate"`
	SimulationEndDate   *time.Time `json:"simulationEndDate,omitempty"`
	RunStartDate        *time.Time `json:"runStartDate,omitempty"`
	RunEndDate          *time.Time `json:"runEndDate,omitempty"`

	Compiler         *string `json:"compiler,omitempty"`
	GitRepositoryURL *string `json:"gitRepositoryUrl,omitempty"`
	GitBranch        *string `json:"gitBranch,omitempty"`
	GitTag           *string `json:"gitTag,omitempty"`
	GitCommitHash    *string `json:"gitCommitHash,omitempty"`
	HPCUsername      *string `json:"hpcUsername,omitempty"`

	Extra ExtraMap `json:"extra,omitempty"`
}

// Validate checks that the fields every complete run must carry are present.
func (s *SimulationCreate) Validate() error {
	if s.Name == "" {
		return errors.New("name is required")
	}
	if s.CaseName == "" {
		return errors.New("case name is required")
	}
	if s.MachineID == uuid.Nil {
		return errors.New("machine id is required")
	}
	if s.SimulationStartDate.IsZero() {
		return errors.New("simulation start date is required")
	}
	return nil
}

// ToSimulation maps the create schema onto a persistable Simulation row.
func (s *SimulationCreate) ToSimulation(id uuid.UUID, ingestionID *uuid.UUID) *Simulation {
	return &Simulation{
		ID:                  id,
		Name:                s.Name,
		CaseName:            s.CaseName,
		Compset:             s.Compset,
		CompsetAlias:        s.CompsetAlias,
		GridName:            s.GridName,
		GridResolution:      s.GridResolution,
		SimulationType:      s.SimulationType,
		Status:              s.Status,
		Campaign:            s.Campaign,
		ExperimentType:      s.ExperimentType,
		InitializationType:  s.InitializationType,
		GroupName:           s.GroupName,
		MachineID:           s.MachineID,
		SimulationStartDate: s.SimulationStartDate,
		SimulationEndDate:   s.SimulationEndDate,
		RunStartDate:        s.RunStartDate,
		RunEndDate:          s.RunEndDate,
		Compiler:            s.Compiler,
		GitRepositoryURL:    s.GitRepositoryURL,
		GitBranch:           s.GitBranch,
		GitTag:              s.GitTag,
		GitCommitHash:       s.GitCommitHash,
		HPCUsername:         s.HPCUsername,
		IngestionID:         ingestionID,
		Extra:               s.Extra,
	}
}
