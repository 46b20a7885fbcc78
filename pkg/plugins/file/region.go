package file

import "strings"

// Default region marker templates, overridable per run via the
// file_region_start / file_region_end config keys, each required to contain
// `{tag}`.
const (
	DefaultRegionStart = "md.start:{tag}"
	DefaultRegionEnd   = "md.end:{tag}"
)

// extractRegion returns the lines strictly between a region's start and end
// markers (exclusive of the marker lines themselves). Marker lines are
// matched case-insensitively after whitespace is stripped, and only against
// the line with its string-literal content removed (so a marker-shaped
// string literal is not mistaken for a real one, when style is known for the
// file's extension). Comment text is kept, since markers are normally
// written inside comments. ok is false if either marker is missing.
func extractRegion(content, tagName, startTemplate, endTemplate string, style commentStyle) (string, bool) {
	startMarker := normalizeMarker(renderTemplate(startTemplate, tagName))
	endMarker := normalizeMarker(renderTemplate(endTemplate, tagName))

	lines := splitLines(content)
	st := &scanState{}
	startIdx, endIdx := -1, -1

	for i, line := range lines {
		code := stripStringLiterals(line, st, style)
		clean := normalizeMarker(code)
		if startIdx == -1 && strings.Contains(clean, startMarker) {
			startIdx = i + 1
			continue
		}
		if startIdx != -1 && strings.Contains(clean, endMarker) {
			endIdx = i
			break
		}
	}

	if startIdx == -1 || endIdx == -1 {
		return "", false
	}
	return strings.Join(lines[startIdx:endIdx], "\n"), true
}

func renderTemplate(template, tag string) string {
	return strings.ReplaceAll(template, "{tag}", strings.TrimSpace(tag))
}

// normalizeMarker strips whitespace and lowercases, so "md.start : Foo" and
// "MD.START:FOO" both match the canonical "md.start:foo" form.
func normalizeMarker(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r == ' ' || r == '\t' || r == '\r' || r == '\n' {
			continue
		}
		b.WriteRune(r)
	}
	return strings.ToLower(b.String())
}
