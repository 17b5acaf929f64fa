package e3sm

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"go.uber.org/zap"
)

// expDirPattern matches run-attempt directory names: <digits>.<digits>-<digits>.
var expDirPattern = regexp.MustCompile(`^\d+\.\d+-\d+$`)

// FindExperimentDirs recursively finds directories whose basename
// matches the run-attempt pattern. The result is sorted
// lexicographically; canonical-run selection depends on this order.
func FindExperimentDirs(rootDir string) ([]string, error) {
	var matches []string

	err := filepath.WalkDir(rootDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path == rootDir {
			return nil
		}
		if d.IsDir() && expDirPattern.MatchString(d.Name()) {
			matches = append(matches, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Strings(matches)
	return matches, nil
}

// locateFiles finds the file for every registered spec inside one
// experiment directory. It returns the located paths keyed by spec key
// and the keys of required specs with no match. More than one match
// for a single spec is an error.
func (p *Parser) locateFiles(expDir string) (map[string]string, []string, error) {
	files := make(map[string]string)

	for _, spec := range p.specs {
		var (
			match string
			err   error
		)

		switch spec.Location {
		case LocationRoot:
			match, err = findFileInDir(expDir, spec.Pattern)
		case LocationCaseDocs:
			match, err = p.findCaseDocsFile(expDir, spec.Pattern)
		}
		if err != nil {
			return nil, nil, err
		}
		if match != "" {
			files[spec.Key] = match
		}
	}

	var missingRequired, missingOptional []string
	for _, spec := range p.specs {
		if files[spec.Key] != "" {
			continue
		}
		if spec.Required {
			missingRequired = append(missingRequired, spec.Key)
		} else {
			missingOptional = append(missingOptional, spec.Key)
		}
	}

	if len(missingOptional) > 0 {
		p.log.Debug("optional files missing in experiment directory",
			zap.String("exp_dir", expDir),
			zap.Strings("missing", missingOptional))
	}

	return files, missingRequired, nil
}

// findCaseDocsFile searches one level inside any CaseDocs-prefixed
// subdirectory; the first subdirectory containing a match wins.
func (p *Parser) findCaseDocsFile(expDir string, pattern *regexp.Regexp) (string, error) {
	entries, err := os.ReadDir(expDir)
	if err != nil {
		return "", fmt.Errorf("read experiment directory %s: %w", expDir, err)
	}

	for _, entry := range entries {
		if !entry.IsDir() || !strings.HasPrefix(entry.Name(), caseDocsPrefix) {
			continue
		}

		match, err := findFileInDir(filepath.Join(expDir, entry.Name()), pattern)
		if err != nil {
			return "", err
		}
		if match != "" {
			return match, nil
		}
	}

	return "", nil
}

// findFileInDir returns the single file in dir whose name matches
// pattern, "" when none does, and an error when several do. Silently
// picking one of several matches would hide data.
func findFileInDir(dir string, pattern *regexp.Regexp) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("read directory %s: %w", dir, err)
	}

	var matches []string
	for _, entry := range entries {
		if pattern.MatchString(entry.Name()) {
			matches = append(matches, filepath.Join(dir, entry.Name()))
		}
	}

	if len(matches) > 1 {
		return "", fmt.Errorf("%w: pattern %q in %s: %v", ErrAmbiguousMatch, pattern.String(), dir, matches)
	}
	if len(matches) == 1 {
		return matches[0], nil
	}
	return "", nil
}
