package ingest

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/simboard/ingest/internal/models"
	"github.com/simboard/ingest/internal/sources/e3sm"
)

type fakeMachines struct {
	ids map[string]uuid.UUID
}

func (f *fakeMachines) ResolveMachineID(_ context.Context, name string) (uuid.UUID, error) {
	if id, ok := f.ids[name]; ok {
		return id, nil
	}
	return uuid.Nil, fmt.Errorf("%w: %q", ErrMachineNotFound, name)
}

type fakeDuplicates struct {
	existing map[string]bool
}

func dupKey(caseName string, machineID uuid.UUID, startDate time.Time) string {
	return fmt.Sprintf("%s|%s|%s", caseName, machineID, startDate.Format(time.RFC3339))
}

func (f *fakeDuplicates) SimulationExists(_ context.Context, caseName string, machineID uuid.UUID, startDate time.Time) (bool, error) {
	return f.existing[dupKey(caseName, machineID, startDate)], nil
}

var testMachineID = uuid.MustParse("11111111-2222-3333-4444-555555555555")

func newTestEngine(existing map[string]bool) *Engine {
	return NewEngine(zap.NewNop(),
		&fakeMachines{ids: map[string]uuid.UUID{"chrysalis": testMachineID}},
		&fakeDuplicates{existing: existing},
		[]string{"compset", "grid_name", "compiler", "git_commit_hash"})
}

func strp(s string) *string {
	return &s
}

// runMetadata builds assembled metadata for one complete run, with
// overrides applied on top of the baseline.
func runMetadata(overrides map[string]*string) e3sm.Metadata {
	m := e3sm.Metadata{
		"name":                  strp("v3.LR.piControl_0101"),
		"case_name":             strp("v3.LR.piControl_0101"),
		"machine":               strp("chrysalis"),
		"simulation_start_date": strp("0001-01-01"),
		"compset":               strp("WCYCL1850"),
		"grid_name":             strp("ne30pg2_EC30to60E2r2"),
		"compiler":              strp("intel"),
		"git_commit_hash":       strp("ea457362f3"),
		"status":                strp("completed"),
	}
	for key, value := range overrides {
		m[key] = value
	}
	return m
}

func TestProcessCaseGroupCanonicalSelectionAndDelta(t *testing.T) {
	e := newTestEngine(nil)
	result := &Result{}

	group := caseGroup{
		caseName: "v3.LR.piControl_0101",
		runs: []e3sm.Experiment{
			{Dir: "0001.01-00", Metadata: runMetadata(nil)},
			{Dir: "0001.01-01", Metadata: runMetadata(map[string]*string{
				"simulation_start_date": strp("0002-01-01"),
				"compiler":              strp("gnu"),
			})},
		},
	}
	e.processCaseGroup(context.Background(), group, result)

	require.Len(t, result.Simulations, 1)
	require.Equal(t, 1, result.SkippedCount)
	require.Zero(t, result.DuplicateCount)
	require.Empty(t, result.Errors)

	sim := result.Simulations[0]
	require.Equal(t, "v3.LR.piControl_0101", sim.CaseName)
	require.Equal(t, testMachineID, sim.MachineID)
	require.Equal(t, models.StatusCompleted, sim.Status)

	deltas, ok := sim.Extra["run_config_deltas"].([]RunConfigDelta)
	require.True(t, ok, "canonical simulation should carry run config deltas")
	require.Len(t, deltas, 1)
	require.Equal(t, "0001.01-01", deltas[0].ExpDir)
	require.Len(t, deltas[0].Deltas, 1)
	require.Equal(t, "intel", *deltas[0].Deltas["compiler"].Canonical)
	require.Equal(t, "gnu", *deltas[0].Deltas["compiler"].Current)
}

func TestProcessCaseGroupIdenticalConfigNoDelta(t *testing.T) {
	e := newTestEngine(nil)
	result := &Result{}

	group := caseGroup{
		caseName: "v3.LR.piControl_0101",
		runs: []e3sm.Experiment{
			{Dir: "0001.01-00", Metadata: runMetadata(nil)},
			{Dir: "0001.01-01", Metadata: runMetadata(map[string]*string{
				"simulation_start_date": strp("0002-01-01"),
			})},
		},
	}
	e.processCaseGroup(context.Background(), group, result)

	require.Len(t, result.Simulations, 1)
	require.Equal(t, 1, result.SkippedCount)
	require.Nil(t, result.Simulations[0].Extra["run_config_deltas"])
}

func TestProcessCaseGroupStoreDuplicate(t *testing.T) {
	startDate := time.Date(1, 1, 1, 0, 0, 0, 0, time.UTC)
	e := newTestEngine(map[string]bool{
		dupKey("v3.LR.piControl_0101", testMachineID, startDate): true,
	})
	result := &Result{}

	group := caseGroup{
		caseName: "v3.LR.piControl_0101",
		runs: []e3sm.Experiment{
			{Dir: "0001.01-00", Metadata: runMetadata(nil)},
			{Dir: "0001.01-01", Metadata: runMetadata(map[string]*string{
				"simulation_start_date": strp("0002-01-01"),
				"compiler":              strp("gnu"),
			})},
		},
	}
	e.processCaseGroup(context.Background(), group, result)

	// The stored record stays canonical: the first run is a duplicate
	// and the second is reduced to a skip, creating nothing new.
	require.Empty(t, result.Simulations)
	require.Equal(t, 1, result.DuplicateCount)
	require.Equal(t, 1, result.SkippedCount)
	require.Empty(t, result.Errors)
}

func TestProcessCaseGroupInBatchDuplicate(t *testing.T) {
	e := newTestEngine(nil)
	result := &Result{}

	group := caseGroup{
		caseName: "v3.LR.piControl_0101",
		runs: []e3sm.Experiment{
			{Dir: "0001.01-00", Metadata: runMetadata(nil)},
			{Dir: "0001.01-01", Metadata: runMetadata(nil)},
		},
	}
	e.processCaseGroup(context.Background(), group, result)

	require.Len(t, result.Simulations, 1)
	require.Equal(t, 1, result.DuplicateCount)
	require.Zero(t, result.SkippedCount)
}

func TestProcessCaseGroupMissingMachine(t *testing.T) {
	e := newTestEngine(nil)
	result := &Result{}

	group := caseGroup{
		caseName: "v3.LR.piControl_0101",
		runs: []e3sm.Experiment{
			{Dir: "0001.01-00", Metadata: runMetadata(map[string]*string{"machine": nil})},
		},
	}
	e.processCaseGroup(context.Background(), group, result)

	require.Empty(t, result.Simulations)
	require.Len(t, result.Errors, 1)
	require.Equal(t, "ValueError", result.Errors[0].ErrorType)
	require.Equal(t, "0001.01-00", result.Errors[0].ExpDir)
}

func TestProcessCaseGroupUnknownMachine(t *testing.T) {
	e := newTestEngine(nil)
	result := &Result{}

	group := caseGroup{
		caseName: "v3.LR.piControl_0101",
		runs: []e3sm.Experiment{
			{Dir: "0001.01-00", Metadata: runMetadata(map[string]*string{"machine": strp("frontier")})},
		},
	}
	e.processCaseGroup(context.Background(), group, result)

	require.Len(t, result.Errors, 1)
	require.Equal(t, "LookupError", result.Errors[0].ErrorType)
}

func TestProcessCaseGroupUnparseableStartDate(t *testing.T) {
	e := newTestEngine(nil)
	result := &Result{}

	group := caseGroup{
		caseName: "v3.LR.piControl_0101",
		runs: []e3sm.Experiment{
			{Dir: "0001.01-00", Metadata: runMetadata(map[string]*string{
				"simulation_start_date": strp("not a date"),
			})},
		},
	}
	e.processCaseGroup(context.Background(), group, result)

	require.Len(t, result.Errors, 1)
	require.Equal(t, "ValueError", result.Errors[0].ErrorType)
}

func TestProcessCaseGroupValidationError(t *testing.T) {
	e := newTestEngine(nil)
	result := &Result{}

	group := caseGroup{
		caseName: "unknown",
		runs: []e3sm.Experiment{
			{Dir: "0001.01-00", Metadata: runMetadata(map[string]*string{
				"name":      nil,
				"case_name": nil,
			})},
		},
	}
	e.processCaseGroup(context.Background(), group, result)

	require.Empty(t, result.Simulations)
	require.Len(t, result.Errors, 1)
	require.Equal(t, "ValidationError", result.Errors[0].ErrorType)
}

func TestGroupByCasePreservesOrder(t *testing.T) {
	experiments := []e3sm.Experiment{
		{Dir: "a", Metadata: e3sm.Metadata{"case_name": strp("case-b")}},
		{Dir: "b", Metadata: e3sm.Metadata{"case_name": strp("case-a")}},
		{Dir: "c", Metadata: e3sm.Metadata{"case_name": strp("case-b")}},
		{Dir: "d", Metadata: e3sm.Metadata{"name": strp("fallback")}},
		{Dir: "e", Metadata: e3sm.Metadata{}},
	}

	groups := groupByCase(experiments)

	require.Len(t, groups, 4)
	require.Equal(t, "case-b", groups[0].caseName)
	require.Len(t, groups[0].runs, 2)
	require.Equal(t, "case-a", groups[1].caseName)
	require.Equal(t, "fallback", groups[2].caseName)
	require.Equal(t, "unknown", groups[3].caseName)
}

func TestComputeConfigDelta(t *testing.T) {
	canonical := e3sm.Metadata{
		"compiler":  strp("intel"),
		"grid_name": strp("ne30"),
		"compset":   nil,
	}
	other := e3sm.Metadata{
		"compiler":  strp("gnu"),
		"grid_name": strp("ne30"),
		"compset":   strp("WCYCL1850"),
	}

	delta := computeConfigDelta(canonical, other, []string{"compiler", "grid_name", "compset"})

	require.Len(t, delta, 2)
	require.Equal(t, "intel", *delta["compiler"].Canonical)
	require.Equal(t, "gnu", *delta["compiler"].Current)
	require.Nil(t, delta["compset"].Canonical)
	require.Equal(t, "WCYCL1850", *delta["compset"].Current)
}

func TestNormalizeGitURL(t *testing.T) {
	tests := []struct {
		in   *string
		want *string
	}{
		{strp("git@github.com:E3SM-Project/E3SM.git"), strp("https://github.com/E3SM-Project/E3SM.git")},
		{strp("https://github.com/E3SM-Project/E3SM.git"), strp("https://github.com/E3SM-Project/E3SM.git")},
		{strp("http://internal.example/repo.git"), strp("http://internal.example/repo.git")},
		{strp("ssh://weird/form"), strp("ssh://weird/form")},
		{strp(""), nil},
		{nil, nil},
	}

	for _, tt := range tests {
		got := normalizeGitURL(tt.in)
		if tt.want == nil {
			require.Nil(t, got)
			continue
		}
		require.NotNil(t, got)
		require.Equal(t, *tt.want, *got)
	}
}

func TestMapMetadataParsesDatesAndEnums(t *testing.T) {
	e := newTestEngine(nil)

	sim, err := e.mapMetadata(runMetadata(map[string]*string{
		"simulation_end_date": strp("0001-01-06"),
		"run_start_date":      strp("2023-01-10 12:00:00"),
		"run_end_date":        strp("2023-01-10 13:00:00"),
		"status":              strp("completed"),
	}), testMachineID)
	require.NoError(t, err)

	require.Equal(t, time.Date(1, 1, 1, 0, 0, 0, 0, time.UTC), sim.SimulationStartDate)
	require.NotNil(t, sim.SimulationEndDate)
	require.Equal(t, time.Date(1, 1, 6, 0, 0, 0, 0, time.UTC), *sim.SimulationEndDate)
	require.NotNil(t, sim.RunStartDate)
	require.Equal(t, time.Date(2023, 1, 10, 12, 0, 0, 0, time.UTC), *sim.RunStartDate)
	require.Equal(t, models.StatusCompleted, sim.Status)
	require.Equal(t, models.TypeUnknown, sim.SimulationType)
}

func TestResultStatus(t *testing.T) {
	clean := &Result{CreatedCount: 2}
	require.Equal(t, models.IngestionSuccess, clean.Status())

	partial := &Result{CreatedCount: 1, Errors: []IngestError{{ErrorType: "ValueError"}}}
	require.Equal(t, models.IngestionPartial, partial.Status())

	failed := &Result{Errors: []IngestError{{ErrorType: "LookupError"}}}
	require.Equal(t, models.IngestionFailed, failed.Status())
}
