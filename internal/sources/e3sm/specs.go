package e3sm

import "regexp"

// Location says where a file spec is searched relative to the
// experiment directory.
type Location string

const (
	// LocationRoot matches direct children of the experiment directory.
	LocationRoot Location = "root"
	// LocationCaseDocs matches one level inside any subdirectory whose
	// name starts with the CaseDocs prefix.
	LocationCaseDocs Location = "casedocs"
)

const caseDocsPrefix = "CaseDocs"

// FileSpec declares one expected file: how to find it and how to parse
// it. When SingleValue is set, ParseValue supplies one field instead of
// Parse supplying a record.
type FileSpec struct {
	Key         string
	Pattern     *regexp.Regexp
	Location    Location
	Required    bool
	SingleValue string
	Parse       func(path string) Metadata
	ParseValue  func(path string) *string
}

// fileSpecs builds the declarative registry of expected per-experiment
// files, bound to this parser's logger. Iteration order is the merge
// order of parser outputs.
func (p *Parser) fileSpecs() []FileSpec {
	return []FileSpec{
		{
			Key:      "e3sm_timing",
			Pattern:  regexp.MustCompile(`^e3sm_timing\..*\..*`),
			Location: LocationRoot,
			Required: true,
			Parse:    p.parseTiming,
		},
		{
			Key:      "readme_case",
			Pattern:  regexp.MustCompile(`^README\.case\..*\.gz`),
			Location: LocationCaseDocs,
			Required: true,
			Parse:    p.parseReadmeCase,
		},
		{
			Key:      "case_status",
			Pattern:  regexp.MustCompile(`^CaseStatus\..*\.gz`),
			Location: LocationRoot,
			Required: true,
			Parse:    p.parseCaseStatus,
		},
		{
			Key:      "case_docs_env_case",
			Pattern:  regexp.MustCompile(`^env_case\.xml\..*\.gz`),
			Location: LocationCaseDocs,
			Required: false,
			Parse:    p.parseEnvCase,
		},
		{
			Key:      "case_docs_env_build",
			Pattern:  regexp.MustCompile(`^env_build\.xml\..*\.gz`),
			Location: LocationCaseDocs,
			Required: false,
			Parse:    p.parseEnvBuild,
		},
		{
			Key:      "git_describe",
			Pattern:  regexp.MustCompile(`^GIT_DESCRIBE\..*\.gz`),
			Location: LocationRoot,
			Required: true,
			Parse:    p.parseGitDescribe,
		},
		{
			Key:         "git_config",
			Pattern:     regexp.MustCompile(`^GIT_CONFIG\..*\.gz`),
			Location:    LocationRoot,
			Required:    false,
			SingleValue: "git_repository_url",
			ParseValue:  p.parseGitConfig,
		},
		{
			Key:         "git_status",
			Pattern:     regexp.MustCompile(`^GIT_STATUS\..*\.gz`),
			Location:    LocationRoot,
			Required:    false,
			SingleValue: "git_branch",
			ParseValue:  p.parseGitStatus,
		},
	}
}
