package e3sm

import (
	"regexp"
	"strings"

	"go.uber.org/zap"
)

var (
	// describeRe matches well-formed git describe output like
	// v3.0.2-55-gea457362f3.
	describeRe = regexp.MustCompile(`^(v[\w.\-]+?)(?:-\d+)?-g([0-9a-f]+)$`)
	// Loose fallbacks for describe strings without the v prefix.
	describeTagFallbackRe  = regexp.MustCompile(`^([^-]+)`)
	describeHashFallbackRe = regexp.MustCompile(`-g([0-9a-f]+)$`)

	branchRe       = regexp.MustCompile(`^On branch (.+)`)
	remoteOriginRe = regexp.MustCompile(`^\[remote "origin"\]`)
	remoteURLRe    = regexp.MustCompile(`^url\s*=\s*(.+)`)
)

// parseGitDescribe extracts the tag and commit hash from git describe
// output, preferring the anchored form and falling back to loose
// token extraction.
func (p *Parser) parseGitDescribe(path string) Metadata {
	result := Metadata{
		"git_tag":         nil,
		"git_commit_hash": nil,
	}

	text, err := openText(path)
	if err != nil {
		p.log.Warn("failed to read GIT_DESCRIBE file", zap.String("path", path), zap.Error(err))
		return result
	}

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if m := describeRe.FindStringSubmatch(line); m != nil {
			result["git_tag"] = strptr(m[1])
			result["git_commit_hash"] = strptr(m[2])
			return result
		}

		if m := describeTagFallbackRe.FindStringSubmatch(line); m != nil {
			result["git_tag"] = strptr(m[1])
		}
		if m := describeHashFallbackRe.FindStringSubmatch(line); m != nil {
			result["git_commit_hash"] = strptr(m[1])
		}
		return result
	}

	return result
}

// parseGitStatus returns the current branch from git status output.
func (p *Parser) parseGitStatus(path string) *string {
	text, err := openText(path)
	if err != nil {
		p.log.Warn("failed to read GIT_STATUS file", zap.String("path", path), zap.Error(err))
		return nil
	}

	for _, line := range strings.Split(text, "\n") {
		if m := branchRe.FindStringSubmatch(strings.TrimSpace(line)); m != nil {
			return strptr(strings.TrimSpace(m[1]))
		}
	}

	return nil
}

// parseGitConfig returns the url line inside the [remote "origin"]
// section only; scanning stops at the next section header.
func (p *Parser) parseGitConfig(path string) *string {
	text, err := openText(path)
	if err != nil {
		p.log.Warn("failed to read GIT_CONFIG file", zap.String("path", path), zap.Error(err))
		return nil
	}

	inOrigin := false
	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)

		if remoteOriginRe.MatchString(trimmed) {
			inOrigin = true
			continue
		}
		if inOrigin {
			if m := remoteURLRe.FindStringSubmatch(trimmed); m != nil {
				return strptr(strings.TrimSpace(m[1]))
			}
			if strings.HasPrefix(trimmed, "[") {
				break
			}
		}
	}

	return nil
}
