package ingest

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/simboard/ingest/internal/models"
	"github.com/simboard/ingest/internal/sources/e3sm"
)

// datetimeLayouts are tried in order when parsing date fields; parser
// outputs are ISO-ish but timing files may carry their raw format.
var datetimeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"Mon Jan 2 15:04:05 2006",
}

// mapMetadata maps assembled experiment metadata onto the output
// schema, applying datetime parsing, git URL canonicalization, and
// loose enum coercion.
func (e *Engine) mapMetadata(metadata e3sm.Metadata, machineID uuid.UUID) (*models.SimulationCreate, error) {
	// The start date was already validated during key extraction.
	startDate := e.parseDatetimeField(metadata.Get("simulation_start_date"))

	sim := &models.SimulationCreate{
		Name:     metadata.GetString("name"),
		CaseName: metadata.GetString("case_name"),

		Compset:        metadata.Get("compset"),
		CompsetAlias:   metadata.Get("compset_alias"),
		GridName:       metadata.Get("grid_name"),
		GridResolution: metadata.Get("grid_resolution"),

		SimulationType:     models.ParseSimulationType(metadata.GetString("simulation_type")),
		Status:             models.ParseSimulationStatus(metadata.GetString("status")),
		Campaign:           metadata.Get("campaign"),
		ExperimentType:     metadata.Get("experiment_type"),
		InitializationType: metadata.Get("initialization_type"),
		GroupName:          metadata.Get("group_name"),

		MachineID:         machineID,
		SimulationEndDate: e.parseDatetimeField(metadata.Get("simulation_end_date")),
		RunStartDate:      e.parseDatetimeField(metadata.Get("run_start_date")),
		RunEndDate:        e.parseDatetimeField(metadata.Get("run_end_date")),

		Compiler:         metadata.Get("compiler"),
		GitRepositoryURL: normalizeGitURL(metadata.Get("git_repository_url")),
		GitBranch:        metadata.Get("git_branch"),
		GitTag:           metadata.Get("git_tag"),
		GitCommitHash:    metadata.Get("git_commit_hash"),
		HPCUsername:      metadata.Get("hpc_username"),
	}
	if startDate != nil {
		sim.SimulationStartDate = *startDate
	}

	if err := sim.Validate(); err != nil {
		return nil, err
	}
	return sim, nil
}

// parseDatetimeField parses a datetime string flexibly, returning a
// UTC time or nil when the value is absent or unparseable.
func (e *Engine) parseDatetimeField(value *string) *time.Time {
	if value == nil {
		return nil
	}
	raw := strings.TrimSpace(*value)
	if raw == "" {
		return nil
	}

	for _, layout := range datetimeLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			utc := t.UTC()
			return &utc
		}
	}

	e.log.Warn("could not parse date field", zap.String("value", raw))
	return nil
}

// normalizeGitURL converts SSH-form git URLs
// (git@github.com:owner/repo.git) to HTTPS. Anything already HTTP(S)
// or otherwise unrecognized passes through unchanged.
func normalizeGitURL(url *string) *string {
	if url == nil || *url == "" {
		return nil
	}

	raw := *url
	if strings.HasPrefix(raw, "https://") || strings.HasPrefix(raw, "http://") {
		return url
	}

	if strings.HasPrefix(raw, "git@") {
		hostAndPath := raw[len("git@"):]
		host, path, found := strings.Cut(hostAndPath, ":")
		if !found {
			return url
		}
		normalized := "https://" + host + "/" + path
		return &normalized
	}

	return url
}
