// Package e3sm discovers experiment directories inside extracted E3SM
// performance archives and parses their metadata files into flat
// per-experiment records.
package e3sm

import (
	"compress/gzip"
	"errors"
	"io"
	"os"
	"strings"
)

var (
	// ErrNoExperimentDirs is returned when an extracted archive
	// contains no directories matching the run-attempt pattern.
	ErrNoExperimentDirs = errors.New("no experiment directories found")

	// ErrAmbiguousMatch is returned when more than one file matches a
	// single file spec inside one directory.
	ErrAmbiguousMatch = errors.New("ambiguous file match")
)

// Metadata is a flat mapping of field name to value; nil means the
// field was declared but not found.
type Metadata map[string]*string

// Get returns the value for key, or nil when absent or null.
func (m Metadata) Get(key string) *string {
	return m[key]
}

// GetString returns the value for key, or "" when absent or null.
func (m Metadata) GetString(key string) string {
	if v := m[key]; v != nil {
		return *v
	}
	return ""
}

// Experiment pairs a discovered experiment directory with its
// assembled metadata.
type Experiment struct {
	Dir      string
	Metadata Metadata
}

// metadataKeys is the fixed field set of an assembled experiment
// record. Keys with no parser output stay null.
var metadataKeys = []string{
	"name",
	"case_name",
	"compset",
	"compset_alias",
	"grid_name",
	"grid_resolution",
	"campaign",
	"experiment_type",
	"initialization_type",
	"group_name",
	"machine",
	"hpc_username",
	"simulation_start_date",
	"simulation_end_date",
	"run_start_date",
	"run_end_date",
	"status",
	"compiler",
	"mpi_lib",
	"git_repository_url",
	"git_branch",
	"git_tag",
	"git_commit_hash",
}

// openText reads a file (plain or gzip-compressed) as UTF-8 text with
// invalid bytes replaced.
func openText(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer func() {
		_ = f.Close()
	}()

	var r io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return "", err
		}
		defer func() {
			_ = gz.Close()
		}()
		r = gz
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}

	return strings.ToValidUTF8(string(data), "�"), nil
}

func strptr(s string) *string {
	return &s
}
