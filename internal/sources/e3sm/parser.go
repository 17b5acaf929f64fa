package e3sm

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/simboard/ingest/internal/archive"
)

// Parser extracts an archive and parses every complete experiment
// directory it contains into assembled metadata.
type Parser struct {
	log   *zap.Logger
	specs []FileSpec
}

// NewParser creates a parser with the standard file-spec registry.
func NewParser(log *zap.Logger) *Parser {
	p := &Parser{log: log}
	p.specs = p.fileSpecs()
	return p
}

// ParseArchive extracts archivePath into outputDir and returns one
// Experiment per complete run, ordered by experiment-directory path.
// Incomplete runs (missing required files) are logged and excluded;
// archive-level problems abort the call.
func (p *Parser) ParseArchive(archivePath, outputDir string) ([]Experiment, error) {
	if err := archive.Extract(archivePath, outputDir); err != nil {
		return nil, err
	}

	expDirs, err := FindExperimentDirs(outputDir)
	if err != nil {
		return nil, fmt.Errorf("walk extracted archive: %w", err)
	}
	p.log.Info("found experiment directories", zap.Int("count", len(expDirs)))

	if len(expDirs) == 0 {
		return nil, fmt.Errorf("%w in extracted archive at %q: expected directory names matching <digits>.<digits>-<digits>", ErrNoExperimentDirs, outputDir)
	}

	var experiments []Experiment
	for _, expDir := range expDirs {
		files, missingRequired, err := p.locateFiles(expDir)
		if err != nil {
			return nil, err
		}
		if len(missingRequired) > 0 {
			p.log.Warn("skipping incomplete experiment directory",
				zap.String("exp_dir", expDir),
				zap.Strings("missing_required", missingRequired))
			continue
		}

		experiments = append(experiments, Experiment{
			Dir:      expDir,
			Metadata: p.parseExperimentFiles(files),
		})
	}

	p.log.Info("completed parsing experiment directories",
		zap.Int("complete", len(experiments)))

	return experiments, nil
}

// parseExperimentFiles dispatches every located file to its parser in
// registry order (later outputs win on shared keys) and reduces the
// merged result to the fixed metadata field set.
func (p *Parser) parseExperimentFiles(files map[string]string) Metadata {
	merged := Metadata{}

	for _, spec := range p.specs {
		path := files[spec.Key]
		if path == "" {
			continue
		}

		if spec.SingleValue != "" {
			merged[spec.SingleValue] = spec.ParseValue(path)
			continue
		}
		for key, value := range spec.Parse(path) {
			merged[key] = value
		}
	}

	return assemble(merged)
}

// assemble normalizes merged parser output onto the fixed field set.
// Every recognized key is present; unproduced fields are null.
func assemble(merged Metadata) Metadata {
	out := make(Metadata, len(metadataKeys))
	for _, key := range metadataKeys {
		out[key] = merged[key]
	}

	// The case name doubles as the display name, and the archive's
	// local username is provenance only.
	out["name"] = merged["case_name"]
	out["hpc_username"] = merged["user"]

	return out
}
