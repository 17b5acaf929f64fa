package ingest

import (
	"github.com/simboard/ingest/internal/models"
)

// FieldDelta records one configuration field differing between a
// canonical run and a later run of the same case.
type FieldDelta struct {
	Canonical *string `json:"canonical"`
	Current   *string `json:"current"`
}

// RunConfigDelta is the configuration difference of one non-canonical
// run relative to its case's canonical run.
type RunConfigDelta struct {
	ExpDir string                `json:"exp_dir"`
	Deltas map[string]FieldDelta `json:"deltas"`
}

// IngestError describes one experiment that failed to parse or
// key-extract. ErrorType carries the error-kind tag exposed to
// callers: ValueError, LookupError, or ValidationError.
type IngestError struct {
	ExpDir    string `json:"exp_dir"`
	ErrorType string `json:"error_type"`
	Error     string `json:"error"`
}

// Result is the structured outcome of one archive ingestion:
// canonical simulations eligible for creation, duplicate and skipped
// counts, and per-experiment errors. It is not mutated after return.
type Result struct {
	Simulations    []*models.SimulationCreate `json:"simulations"`
	CreatedCount   int                        `json:"created_count"`
	DuplicateCount int                        `json:"duplicate_count"`
	SkippedCount   int                        `json:"skipped_count"`
	Errors         []IngestError              `json:"errors"`
}

// Status derives the audit status: no errors means success, some
// created records alongside errors means partial, errors with nothing
// created means failed.
func (r *Result) Status() models.IngestionStatus {
	switch {
	case len(r.Errors) == 0:
		return models.IngestionSuccess
	case r.CreatedCount > 0:
		return models.IngestionPartial
	default:
		return models.IngestionFailed
	}
}
