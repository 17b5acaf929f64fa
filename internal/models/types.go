package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"strings"
)

// SimulationStatus represents the lifecycle state of a simulation run.
type SimulationStatus string

const (
	StatusUnknown   SimulationStatus = "unknown"
	StatusCreated   SimulationStatus = "created"
	StatusQueued    SimulationStatus = "queued"
	StatusRunning   SimulationStatus = "running"
	StatusFailed    SimulationStatus = "failed"
	StatusCompleted SimulationStatus = "completed"
)

// SimulationType classifies the intent of a simulation.
type SimulationType string

const (
	TypeUnknown      SimulationType = "unknown"
	TypeProduction   SimulationType = "production"
	TypeExperimental SimulationType = "experimental"
	TypeTest         SimulationType = "test"
)

// IngestionStatus summarizes the outcome of one ingestion call.
type IngestionStatus string

const (
	IngestionSuccess IngestionStatus = "success"
	IngestionPartial IngestionStatus = "partial"
	IngestionFailed  IngestionStatus = "failed"
)

// IngestionSourceType records where an ingested archive came from.
type IngestionSourceType string

const (
	SourceHPCPath       IngestionSourceType = "hpc_path"
	SourceHPCUpload     IngestionSourceType = "hpc_upload"
	SourceBrowserUpload IngestionSourceType = "browser_upload"
)

// KnownExperimentTypes is the vocabulary used when deriving an
// experiment type from the trailing segment of a case name.
var KnownExperimentTypes = map[string]bool{
	"piControl":     true,
	"historical":    true,
	"amip":          true,
	"abrupt-4xCO2":  true,
	"1pctCO2":       true,
	"ssp119":        true,
	"ssp126":        true,
	"ssp245":        true,
	"ssp370":        true,
	"ssp585":        true,
	"esm-hist":      true,
	"esm-piControl": true,
}

// ParseSimulationStatus coerces free text to a SimulationStatus.
// Unknown or empty input falls back to StatusCreated; it never fails.
func ParseSimulationStatus(raw string) SimulationStatus {
	normalized := strings.ToLower(strings.TrimSpace(raw))
	switch normalized {
	case string(StatusUnknown):
		return StatusUnknown
	case string(StatusCreated):
		return StatusCreated
	case string(StatusQueued):
		return StatusQueued
	case string(StatusRunning):
		return StatusRunning
	case string(StatusFailed):
		return StatusFailed
	case string(StatusCompleted):
		return StatusCompleted
	default:
		return StatusCreated
	}
}

// ParseSimulationType coerces free text to a SimulationType with an
// unknown fallback; it never fails.
func ParseSimulationType(raw string) SimulationType {
	normalized := strings.ToLower(strings.TrimSpace(raw))
	switch normalized {
	case string(TypeProduction):
		return TypeProduction
	case string(TypeExperimental):
		return TypeExperimental
	case string(TypeTest):
		return TypeTest
	default:
		return TypeUnknown
	}
}

// ExtraMap stores arbitrary structured metadata in SQLite as JSON.
type ExtraMap map[string]any

func (m ExtraMap) Value() (driver.Value, error) {
	if len(m) == 0 {
		return "{}", nil
	}
	return json.Marshal(m)
}

func (m *ExtraMap) Scan(value interface{}) error {
	if value == nil {
		*m = ExtraMap{}
		return nil
	}

	bytes, ok := value.([]byte)
	if !ok {
		return errors.New("failed to scan ExtraMap")
	}

	return json.Unmarshal(bytes, m)
}
