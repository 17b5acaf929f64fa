// Package ingest turns parsed experiment metadata into canonical,
// deduplicated simulation records.
//
// Within each case, the first complete non-duplicate run (in sorted
// experiment-directory order) is the canonical baseline. Later runs of
// the same case are reduced to configuration deltas attached to the
// canonical record; separate records are not created for them.
// Re-processing the same archive is idempotent thanks to the
// (case_name, machine_id, simulation_start_date) composite key.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/simboard/ingest/internal/models"
	"github.com/simboard/ingest/internal/sources/e3sm"
)

// ErrMachineNotFound is returned by a MachineResolver when the machine
// name from the archive is not registered.
var ErrMachineNotFound = errors.New("machine not found")

// MachineResolver resolves a machine name from archive metadata to its
// stored ID.
type MachineResolver interface {
	ResolveMachineID(ctx context.Context, name string) (uuid.UUID, error)
}

// DuplicateChecker reports whether a simulation with the given
// deduplication key is already persisted.
type DuplicateChecker interface {
	SimulationExists(ctx context.Context, caseName string, machineID uuid.UUID, startDate time.Time) (bool, error)
}

// dedupKey is the composite natural key of a simulation run.
type dedupKey struct {
	caseName  string
	machineID uuid.UUID
	startDate time.Time
}

// Engine ingests archives end to end: parse, group by case, select
// canonical runs, compute configuration deltas, and deduplicate
// against the persisted store.
type Engine struct {
	log         *zap.Logger
	parser      *e3sm.Parser
	machines    MachineResolver
	duplicates  DuplicateChecker
	deltaFields []string
}

// NewEngine wires the engine with its collaborators and the
// configuration-delta field allow-list.
func NewEngine(log *zap.Logger, machines MachineResolver, duplicates DuplicateChecker, deltaFields []string) *Engine {
	return &Engine{
		log:         log,
		parser:      e3sm.NewParser(log),
		machines:    machines,
		duplicates:  duplicates,
		deltaFields: deltaFields,
	}
}

// IngestArchive extracts and parses an archive, then reduces the
// parsed experiments to canonical simulation records. Archive-level
// failures return an error; per-experiment failures are recorded in
// the result and do not stop the batch.
func (e *Engine) IngestArchive(ctx context.Context, archivePath, outputDir string) (*Result, error) {
	experiments, err := e.parser.ParseArchive(archivePath, outputDir)
	if err != nil {
		return nil, err
	}

	result := &Result{}
	if len(experiments) == 0 {
		e.log.Warn("no complete experiments found in archive", zap.String("archive", archivePath))
		return result, nil
	}

	for _, group := range groupByCase(experiments) {
		e.processCaseGroup(ctx, group, result)
	}

	result.CreatedCount = len(result.Simulations)
	return result, nil
}

// caseGroup holds all runs of one case in experiment-directory order.
type caseGroup struct {
	caseName string
	runs     []e3sm.Experiment
}

// groupByCase groups experiments by case name (falling back to the
// name field, then "unknown"), preserving first-seen case order and
// run order within each case.
func groupByCase(experiments []e3sm.Experiment) []caseGroup {
	var groups []caseGroup
	index := make(map[string]int)

	for _, exp := range experiments {
		caseName := exp.Metadata.GetString("case_name")
		if caseName == "" {
			caseName = exp.Metadata.GetString("name")
		}
		if caseName == "" {
			caseName = "unknown"
		}

		i, ok := index[caseName]
		if !ok {
			i = len(groups)
			index[caseName] = i
			groups = append(groups, caseGroup{caseName: caseName})
		}
		groups[i].runs = append(groups[i].runs, exp)
	}

	return groups
}

// processCaseGroup applies canonical-run selection to one case. The
// first complete non-duplicate run becomes canonical; later runs
// contribute only configuration deltas.
func (e *Engine) processCaseGroup(ctx context.Context, group caseGroup, result *Result) {
	var (
		canonicalMeta e3sm.Metadata
		canonicalDir  string
		canonicalSim  *models.SimulationCreate
	)
	seen := make(map[dedupKey]bool)

	for _, run := range group.runs {
		key, err := e.extractSimulationKey(ctx, run.Metadata)
		if err != nil {
			e.log.Error("failed to process simulation",
				zap.String("exp_dir", run.Dir), zap.Error(err))
			result.Errors = append(result.Errors, IngestError{
				ExpDir:    run.Dir,
				ErrorType: classifyError(err),
				Error:     err.Error(),
			})
			continue
		}

		exists, err := e.duplicates.SimulationExists(ctx, key.caseName, key.machineID, key.startDate)
		if err != nil {
			result.Errors = append(result.Errors, IngestError{
				ExpDir:    run.Dir,
				ErrorType: classifyError(err),
				Error:     err.Error(),
			})
			continue
		}

		if exists || seen[key] {
			e.log.Info("simulation already exists, skipping duplicate",
				zap.String("exp_dir", run.Dir),
				zap.String("case_name", key.caseName),
				zap.Time("simulation_start_date", key.startDate))
			result.DuplicateCount++

			// The existing record is this case's canonical; remember
			// its metadata so later runs can still compute deltas.
			if canonicalMeta == nil {
				canonicalMeta = run.Metadata
				canonicalDir = run.Dir
			}
			continue
		}

		if canonicalMeta == nil {
			canonicalMeta = run.Metadata
			canonicalDir = run.Dir

			sim, err := e.mapMetadata(run.Metadata, key.machineID)
			if err != nil {
				result.Errors = append(result.Errors, IngestError{
					ExpDir:    run.Dir,
					ErrorType: "ValidationError",
					Error:     err.Error(),
				})
				continue
			}

			seen[key] = true
			canonicalSim = sim
			result.Simulations = append(result.Simulations, sim)
			e.log.Info("mapped canonical simulation",
				zap.String("exp_dir", run.Dir),
				zap.String("case_name", key.caseName))
			continue
		}

		seen[key] = true
		delta := computeConfigDelta(canonicalMeta, run.Metadata, e.deltaFields)
		if len(delta) > 0 {
			e.log.Info("non-canonical run has config differences from canonical",
				zap.String("exp_dir", run.Dir),
				zap.String("canonical_exp_dir", canonicalDir),
				zap.Int("fields", len(delta)))
			attachConfigDelta(canonicalSim, run.Dir, delta)
		} else {
			e.log.Info("non-canonical run has identical configuration to canonical",
				zap.String("exp_dir", run.Dir),
				zap.String("canonical_exp_dir", canonicalDir))
		}
		result.SkippedCount++
	}
}

// extractSimulationKey resolves the deduplication key components from
// assembled metadata.
func (e *Engine) extractSimulationKey(ctx context.Context, metadata e3sm.Metadata) (dedupKey, error) {
	machineName := metadata.GetString("machine")
	if machineName == "" {
		return dedupKey{}, errors.New("machine name is required but not found in metadata")
	}

	machineID, err := e.machines.ResolveMachineID(ctx, machineName)
	if err != nil {
		return dedupKey{}, fmt.Errorf("resolve machine %q: %w", machineName, err)
	}

	startDate := e.parseDatetimeField(metadata.Get("simulation_start_date"))
	if startDate == nil {
		return dedupKey{}, errors.New("simulation_start_date is required but could not be parsed")
	}

	caseName := metadata.GetString("case_name")
	if caseName == "" {
		caseName = metadata.GetString("name")
	}
	if caseName == "" {
		caseName = "unknown"
	}

	return dedupKey{caseName: caseName, machineID: machineID, startDate: *startDate}, nil
}

// classifyError maps an error to the error-kind tag surfaced in the
// result: unknown machines are lookup failures, everything else from
// key extraction is a value failure.
func classifyError(err error) string {
	if errors.Is(err, ErrMachineNotFound) {
		return "LookupError"
	}
	return "ValueError"
}

// computeConfigDelta compares two runs over the configuration field
// allow-list only; timeline and status fields vary across executions
// and are never compared.
func computeConfigDelta(canonical, other e3sm.Metadata, fields []string) map[string]FieldDelta {
	delta := make(map[string]FieldDelta)

	for _, key := range fields {
		canonicalVal := canonical.Get(key)
		otherVal := other.Get(key)
		if !equalValues(canonicalVal, otherVal) {
			delta[key] = FieldDelta{Canonical: canonicalVal, Current: otherVal}
		}
	}

	return delta
}

func equalValues(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// attachConfigDelta appends a delta record to the canonical
// simulation's extra field. A nil canonical (e.g. one that failed
// validation or already exists in the store) accumulates nothing.
func attachConfigDelta(canonical *models.SimulationCreate, expDir string, delta map[string]FieldDelta) {
	if canonical == nil {
		return
	}

	if canonical.Extra == nil {
		canonical.Extra = models.ExtraMap{}
	}

	deltas, _ := canonical.Extra["run_config_deltas"].([]RunConfigDelta)
	canonical.Extra["run_config_deltas"] = append(deltas, RunConfigDelta{
		ExpDir: expDir,
		Deltas: delta,
	})
}
