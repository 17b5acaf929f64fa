package e3sm

import (
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/simboard/ingest/internal/models"
)

// timingDateLayout is the fixed format of the timing file's Curr Date
// field, e.g. "Tue Jan 10 12:34:56 2023".
const timingDateLayout = "Mon Jan 2 15:04:05 2006"

var (
	timingCaseRe      = regexp.MustCompile(`^Case\s*[:=]\s*(.+)`)
	timingMachineRe   = regexp.MustCompile(`^Machine\s*[:=]\s*(.+)`)
	timingUserRe      = regexp.MustCompile(`^User\s*[:=]\s*(.+)`)
	timingLIDRe       = regexp.MustCompile(`^LID\s*[:=]\s*(.+)`)
	timingCurrDateRe  = regexp.MustCompile(`^Curr Date\s*[:=]\s*(.+)`)
	timingGridRe      = regexp.MustCompile(`^grid\s*[:=]\s*(.+)`)
	timingCompsetRe   = regexp.MustCompile(`^compset\s*[:=]\s*(.+)`)
	timingRunTypeRe   = regexp.MustCompile(`^run type\s*[:=]\s*([^,]+)`)
	timingRunLenRe    = regexp.MustCompile(`^run length\s*[:=]\s*(.+)`)
	timingStopOptRe   = regexp.MustCompile(`^stop option\s*[:=]\s*([^,]+)`)
	timingStopNInline = regexp.MustCompile(`stop_n\s*[=:]\s*(\d+)`)
	timingStopNRe     = regexp.MustCompile(`^stop_n\s*[=:]\s*(.+)`)

	instanceSuffixRe = regexp.MustCompile(`_\d+$`)
)

// parseTiming extracts core metadata from an e3sm_timing file:
// identification, grid, compset, run configuration, and the campaign
// and experiment type derived from the case name.
func (p *Parser) parseTiming(path string) Metadata {
	result := Metadata{
		"case_name":             nil,
		"campaign":              nil,
		"experiment_type":       nil,
		"machine":               nil,
		"user":                  nil,
		"lid":                   nil,
		"simulation_start_date": nil,
		"grid_resolution":       nil,
		"compset_alias":         nil,
		"initialization_type":   nil,
		"stop_option":           nil,
		"stop_n":                nil,
		"run_length":            nil,
	}

	text, err := openText(path)
	if err != nil {
		p.log.Warn("failed to read timing file", zap.String("path", path), zap.Error(err))
		return result
	}
	lines := strings.Split(text, "\n")

	result["case_name"] = firstMatch(lines, timingCaseRe)
	result["machine"] = firstMatch(lines, timingMachineRe)
	result["user"] = firstMatch(lines, timingUserRe)
	result["lid"] = firstMatch(lines, timingLIDRe)
	result["grid_resolution"] = firstMatch(lines, timingGridRe)
	result["compset_alias"] = firstMatch(lines, timingCompsetRe)
	result["initialization_type"] = firstMatch(lines, timingRunTypeRe)
	result["run_length"] = firstMatch(lines, timingRunLenRe)

	campaign, experimentType := campaignAndExperimentType(result["case_name"])
	result["campaign"] = campaign
	result["experiment_type"] = experimentType

	result["simulation_start_date"] = parseTimingDate(firstMatch(lines, timingCurrDateRe))

	stopOption, stopN := extractStopOptionAndStopN(lines)
	result["stop_option"] = stopOption
	result["stop_n"] = stopN

	return result
}

// campaignAndExperimentType derives the campaign from the case name by
// stripping a trailing numeric instance suffix (e.g. _0121), and the
// experiment type from the campaign's last dot-segment when it belongs
// to the known vocabulary. The campaign keeps the experiment-type
// segment; downstream consumers rely on the full string.
func campaignAndExperimentType(caseName *string) (*string, *string) {
	if caseName == nil {
		return nil, nil
	}

	campaign := instanceSuffixRe.ReplaceAllString(*caseName, "")

	segments := strings.Split(campaign, ".")
	candidate := segments[len(segments)-1]

	var experimentType *string
	if models.KnownExperimentTypes[candidate] {
		experimentType = strptr(candidate)
	}

	return strptr(campaign), experimentType
}

// parseTimingDate converts a Curr Date value to ISO-8601. On format
// mismatch the raw string is preserved rather than discarded.
func parseTimingDate(raw *string) *string {
	if raw == nil {
		return nil
	}

	t, err := time.Parse(timingDateLayout, *raw)
	if err != nil {
		return raw
	}
	return strptr(t.Format("2006-01-02T15:04:05"))
}

// extractStopOptionAndStopN handles both the combined
// "stop option : ndays, stop_n = 5" line and the split two-line form.
func extractStopOptionAndStopN(lines []string) (*string, *string) {
	var stopOption, stopN *string

	for _, line := range lines {
		m := timingStopOptRe.FindStringSubmatch(strings.TrimSpace(line))
		if m == nil {
			continue
		}
		stopOption = strptr(strings.TrimSpace(m[1]))

		if m2 := timingStopNInline.FindStringSubmatch(line); m2 != nil {
			stopN = strptr(strings.TrimSpace(m2[1]))
		}
		break
	}

	if stopN == nil {
		stopN = firstMatch(lines, timingStopNRe)
	}

	return stopOption, stopN
}

// firstMatch returns the trimmed first capture group of the first line
// matching re, or nil when no line matches.
func firstMatch(lines []string, re *regexp.Regexp) *string {
	for _, line := range lines {
		if m := re.FindStringSubmatch(strings.TrimSpace(line)); m != nil {
			return strptr(strings.TrimSpace(m[1]))
		}
	}
	return nil
}
