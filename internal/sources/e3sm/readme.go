package e3sm

import (
	"regexp"
	"strings"

	"go.uber.org/zap"
)

var readmeTimestampRe = regexp.MustCompile(`^(\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2})`)

// parseReadmeCase extracts the case creation timestamp and the --res
// and --compset flag values from the create_newcase invocation line.
func (p *Parser) parseReadmeCase(path string) Metadata {
	result := Metadata{
		"creation_date": nil,
		"grid_name":     nil,
		"compset":       nil,
	}

	text, err := openText(path)
	if err != nil {
		p.log.Warn("failed to read README.case file", zap.String("path", path), zap.Error(err))
		return result
	}
	lines := strings.Split(text, "\n")

	result["creation_date"] = extractReadmeTimestamp(lines)
	result["grid_name"] = extractFlagValue(lines, "--res")
	result["compset"] = extractFlagValue(lines, "--compset")

	return result
}

// extractReadmeTimestamp pulls the leading timestamp off the first
// non-empty line.
func extractReadmeTimestamp(lines []string) *string {
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		if m := readmeTimestampRe.FindStringSubmatch(trimmed); m != nil {
			return strptr(m[1])
		}
		return nil
	}
	return nil
}

// extractFlagValue finds a flag value on the create_newcase line,
// accepting both "--res value" and "--res=value" forms.
func extractFlagValue(lines []string, flag string) *string {
	for _, line := range lines {
		if !strings.Contains(line, "create_newcase") {
			continue
		}

		parts := strings.Fields(strings.TrimSpace(line))
		for i, part := range parts {
			if part == flag {
				if i+1 < len(parts) {
					return strptr(parts[i+1])
				}
			} else if strings.HasPrefix(part, flag+"=") {
				return strptr(strings.SplitN(part, "=", 2)[1])
			}
		}
	}

	return nil
}
