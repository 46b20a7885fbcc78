package file

import (
	"strconv"
	"strings"
)

// parseLineRange parses the `lines` option's redesigned syntax: `N`, `M..N`
// (inclusive), `N..` (N to EOF), `..N` (start to N). The old dash syntax
// (`L10-20`) is rejected outright — ok is false for any string containing a
// bare hyphen where a range separator was clearly intended.
func parseLineRange(spec string) (start, end int, ok bool) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return 0, 0, false
	}
	if strings.Contains(spec, "-") {
		return 0, 0, false
	}

	if !strings.Contains(spec, "..") {
		n, err := strconv.Atoi(spec)
		if err != nil || n < 1 {
			return 0, 0, false
		}
		return n, n, true
	}

	idx := strings.Index(spec, "..")
	left := spec[:idx]
	right := spec[idx+2:]

	switch {
	case left == "" && right == "":
		return 0, 0, false
	case left == "":
		n, err := strconv.Atoi(right)
		if err != nil || n < 1 {
			return 0, 0, false
		}
		return 1, n, true
	case right == "":
		n, err := strconv.Atoi(left)
		if err != nil || n < 1 {
			return 0, 0, false
		}
		return n, -1, true // -1 means "to EOF", resolved by extractLines
	default:
		m, err1 := strconv.Atoi(left)
		n, err2 := strconv.Atoi(right)
		if err1 != nil || err2 != nil || m < 1 || n < m {
			return 0, 0, false
		}
		return m, n, true
	}
}

// isValidLineRange reports whether spec parses under parseLineRange, for use
// by ValidateDirective before any source content is available.
func isValidLineRange(spec string) bool {
	_, _, ok := parseLineRange(spec)
	return ok
}

// extractLines slices content to the 1-based inclusive [start, end] line
// range. end == -1 means "through the last line". An end beyond EOF is
// clamped to the last line rather than treated as an error; a start beyond
// EOF returns ok=false. The caller validated the syntax already, not the
// bounds.
func extractLines(content, spec string) (string, bool) {
	start, end, ok := parseLineRange(spec)
	if !ok {
		return "", false
	}
	lines := splitLines(content)
	if end == -1 || end > len(lines) {
		end = len(lines)
	}
	if start > len(lines) {
		return "", false
	}
	if start < 1 {
		start = 1
	}
	return strings.Join(lines[start-1:end], "\n"), true
}

func splitLines(content string) []string {
	normalized := strings.ReplaceAll(content, "\r\n", "\n")
	return strings.Split(normalized, "\n")
}
