package e3sm

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/simboard/ingest/internal/models"
)

const statusTimestamp = `(\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2})`

var (
	caseRunStartRe    = regexp.MustCompile(`^` + statusTimestamp + `:\s+case\.run\s+starting(?:\s+(\S+))?\s*$`)
	caseRunTerminalRe = regexp.MustCompile(`^` + statusTimestamp + `:\s+case\.run\s+(success|error)\b`)
	runStartDateRe    = regexp.MustCompile(`RUN_STARTDATE=(\d{4}-\d{2}-\d{2})`)
	stopOptionStopNRe = regexp.MustCompile(`STOP_OPTION=([^,\s]+),STOP_N=(\d+)`)
)

// parseCaseStatus scans a CaseStatus file for the declared simulation
// start date and length, and for the latest case.run attempt to derive
// run timestamps and a completed/failed/running status.
func (p *Parser) parseCaseStatus(path string) Metadata {
	result := Metadata{
		"simulation_start_date": nil,
		"simulation_end_date":   nil,
		"run_start_date":        nil,
		"run_end_date":          nil,
		"status":                nil,
	}

	text, err := openText(path)
	if err != nil {
		p.log.Warn("failed to read case status file", zap.String("path", path), zap.Error(err))
		return result
	}
	lines := strings.Split(text, "\n")

	latestStartIdx := p.extractSimulationDates(lines, path, result)
	p.extractLatestRunMetadata(lines, latestStartIdx, result)

	return result
}

// extractSimulationDates walks all lines, recording the last declared
// RUN_STARTDATE, recomputing the simulation end date whenever a
// STOP_OPTION/STOP_N pair appears, and remembering the index of the
// latest case.run starting marker (-1 when absent). Malformed lines
// are logged and skipped.
func (p *Parser) extractSimulationDates(lines []string, path string, result Metadata) int {
	latestStartIdx := -1

	for i, line := range lines {
		startDateMatch := runStartDateRe.FindStringSubmatch(line)
		if strings.Contains(line, "RUN_STARTDATE") && startDateMatch == nil {
			p.log.Warn("malformed RUN_STARTDATE line",
				zap.String("path", path), zap.String("line", strings.TrimSpace(line)))
		} else if startDateMatch != nil {
			result["simulation_start_date"] = strptr(startDateMatch[1])
		}

		stopMatch := stopOptionStopNRe.FindStringSubmatch(line)
		if strings.Contains(line, "STOP_OPTION") && strings.Contains(line, "STOP_N") && stopMatch == nil {
			p.log.Warn("malformed STOP_OPTION/STOP_N line",
				zap.String("path", path), zap.String("line", strings.TrimSpace(line)))
		} else if stopMatch != nil {
			stopN, err := strconv.Atoi(stopMatch[2])
			if err != nil {
				p.log.Warn("malformed STOP_N value",
					zap.String("path", path), zap.String("line", strings.TrimSpace(line)))
			} else {
				result["simulation_end_date"] = calculateSimulationEndDate(
					result["simulation_start_date"], stopMatch[1], stopN)
			}
		}

		if caseRunStartRe.MatchString(strings.TrimSpace(line)) {
			latestStartIdx = i
		}
	}

	return latestStartIdx
}

// extractLatestRunMetadata looks forward from the latest case.run
// starting marker for the next terminal marker. No terminal marker
// means the run is still going.
func (p *Parser) extractLatestRunMetadata(lines []string, latestStartIdx int, result Metadata) {
	if latestStartIdx < 0 {
		return
	}

	startMatch := caseRunStartRe.FindStringSubmatch(strings.TrimSpace(lines[latestStartIdx]))
	result["run_start_date"] = strptr(startMatch[1])

	for _, line := range lines[latestStartIdx+1:] {
		terminalMatch := caseRunTerminalRe.FindStringSubmatch(strings.TrimSpace(line))
		if terminalMatch == nil {
			continue
		}

		result["run_end_date"] = strptr(terminalMatch[1])
		if terminalMatch[2] == "success" {
			result["status"] = strptr(string(models.StatusCompleted))
		} else {
			result["status"] = strptr(string(models.StatusFailed))
		}
		return
	}

	result["status"] = strptr(string(models.StatusRunning))
}

// calculateSimulationEndDate adds STOP_N days/months/years to the
// declared start date. Unrecognized stop options yield nil.
func calculateSimulationEndDate(startDate *string, stopOption string, stopN int) *string {
	if startDate == nil || stopOption == "" || stopN == 0 {
		return nil
	}

	start, err := time.Parse("2006-01-02", *startDate)
	if err != nil {
		return nil
	}

	option := strings.ToLower(stopOption)
	var end time.Time
	switch {
	case strings.Contains(option, "days"):
		end = start.AddDate(0, 0, stopN)
	case strings.Contains(option, "months"):
		end = start.AddDate(0, stopN, 0)
	case strings.Contains(option, "years"):
		end = start.AddDate(stopN, 0, 0)
	default:
		return nil
	}

	return strptr(end.Format("2006-01-02"))
}
