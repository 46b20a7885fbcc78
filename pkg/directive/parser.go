package directive

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/embedm-dev/embedm/pkg/status"
	"gopkg.in/yaml.v3"
)

const (
	openFence  = "```yaml embedm"
	closeFence = "```"
)

// Parse scans a Markdown string for ```yaml embedm fenced directive blocks
// and returns the ordered fragment list plus any parse errors. baseDir is the
// directory against which relative `source` values in this document resolve.
// Parsing never aborts: every error case is recorded as an ERROR status and
// scanning continues past it, except an unclosed fence, which ends the
// fragment list at the point the fence opened.
func Parse(source string, baseDir string) ([]Fragment, status.List) {
	lines, offsets := splitLinesWithOffsets(source)

	var fragments []Fragment
	var statuses status.List
	literalStart := 0

	i := 0
	for i < len(lines) {
		if !isOpeningFence(lines[i]) {
			i++
			continue
		}
		fenceStart := offsets[i]
		closeIdx := findClosingFence(lines, i+1)
		if closeIdx == -1 {
			if fenceStart > literalStart {
				fragments = append(fragments, NewSpanFragment(Span{Offset: literalStart, Length: fenceStart - literalStart}))
			}
			statuses = append(statuses, status.New(status.ERROR, "unclosed ```yaml embedm fence at offset %d", fenceStart))
			return fragments, statuses
		}

		blockEnd := offsets[closeIdx] + len(lines[closeIdx])
		if fenceStart > literalStart {
			fragments = append(fragments, NewSpanFragment(Span{Offset: literalStart, Length: fenceStart - literalStart}))
		}

		yamlText := joinLines(lines[i+1 : closeIdx])
		d, err := parseDirectiveBlock(yamlText, baseDir)
		if err != nil {
			statuses = append(statuses, status.New(status.ERROR, "%s", err.Error()))
		} else {
			fragments = append(fragments, NewDirectiveFragment(*d))
		}

		literalStart = blockEnd
		i = closeIdx + 1
	}

	if literalStart < len(source) {
		fragments = append(fragments, NewSpanFragment(Span{Offset: literalStart, Length: len(source) - literalStart}))
	}
	return fragments, statuses
}

func splitLinesWithOffsets(source string) ([]string, []int) {
	var lines []string
	var offsets []int
	start := 0
	for i := 0; i < len(source); i++ {
		if source[i] == '\n' {
			lines = append(lines, source[start:i+1])
			offsets = append(offsets, start)
			start = i + 1
		}
	}
	if start < len(source) {
		lines = append(lines, source[start:])
		offsets = append(offsets, start)
	}
	return lines, offsets
}

func joinLines(lines []string) string {
	var b strings.Builder
	for _, l := range lines {
		b.WriteString(l)
	}
	return b.String()
}

func rtrimLineEnding(line string) string {
	return strings.TrimRight(line, " \t\r\n")
}

func isOpeningFence(line string) bool {
	return rtrimLineEnding(line) == openFence
}

func isClosingFence(line string) bool {
	return rtrimLineEnding(line) == closeFence
}

func findClosingFence(lines []string, from int) int {
	for j := from; j < len(lines); j++ {
		if isClosingFence(lines[j]) {
			return j
		}
	}
	return -1
}

func parseDirectiveBlock(yamlText string, baseDir string) (*Directive, error) {
	var raw map[string]interface{}
	if err := yaml.Unmarshal([]byte(yamlText), &raw); err != nil {
		return nil, fmt.Errorf("malformed YAML in directive block: %w", err)
	}
	if raw == nil {
		return nil, fmt.Errorf("directive block is not a YAML mapping")
	}

	typeVal, ok := raw["type"]
	if !ok {
		return nil, fmt.Errorf("directive block missing required 'type' field")
	}
	typeStr, ok := typeVal.(string)
	if !ok {
		return nil, fmt.Errorf("directive 'type' field must be a string")
	}

	d := &Directive{Type: typeStr, Options: map[string]string{}}

	if sourceVal, ok := raw["source"]; ok {
		sourceStr, ok := sourceVal.(string)
		if !ok {
			return nil, fmt.Errorf("directive 'source' field must be a string")
		}
		d.Source = resolveSource(sourceStr, baseDir)
	}

	for k, v := range raw {
		if k == "type" || k == "source" {
			continue
		}
		d.Options[k] = coerceOptionValue(v)
	}

	return d, nil
}

// resolveSource joins a relative source against baseDir and cleans the
// result; absolute sources pass through unchanged.
func resolveSource(source string, baseDir string) string {
	if filepath.IsAbs(source) {
		return filepath.Clean(source)
	}
	return filepath.Clean(filepath.Join(baseDir, source))
}

// coerceOptionValue forces any decoded YAML scalar/value to its textual
// form. Booleans render as "True"/"False" per spec.md's option coercion
// rule, matching the only two spellings a plugin's validate_option accepts.
func coerceOptionValue(v interface{}) string {
	switch t := v.(type) {
	case bool:
		if t {
			return "True"
		}
		return "False"
	case string:
		return t
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case float64:
		return strconv.FormatFloat(t, 'g', -1, 64)
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", t)
	}
}
