// Package file implements the `file` directive: inlining or fencing a
// region, line range, or named code symbol extracted from a source file.
// Grounded on original_source/src/embedm/parsing/symbol_parser.py's
// string/comment state machine and brace-block extraction, and on
// original_source/src/embedm_plugins/file_plugin.py's option dispatch and
// header assembly, reworked into Go value types and explicit state structs
// in the style gardener-docforge's pkg/markdown/parser/charscan.go scans
// Markdown byte-by-byte.
package file

import "strings"

// commentStyle describes how a language spells comments and string
// delimiters, used both to extract named symbols and to keep a region
// marker inside a string or comment from being mistaken for a real one.
type commentStyle struct {
	lineComment       string
	blockCommentStart string
	blockCommentEnd   string
	stringDelimiters  string
}

// scanState tracks comment/string state across lines of a single file.
type scanState struct {
	inBlockComment bool
	inString       bool
	stringChar     byte
}

// realCode strips string and comment content from a line, returning only
// the characters live code scanning should see. State is mutated in place
// so callers can run it line by line across a whole file.
func realCode(line string, st *scanState, style commentStyle) string {
	var b strings.Builder
	i := 0
	n := len(line)
	for i < n {
		if st.inBlockComment {
			if style.blockCommentEnd != "" && hasAt(line, i, style.blockCommentEnd) {
				st.inBlockComment = false
				i += len(style.blockCommentEnd)
			} else {
				i++
			}
			continue
		}
		if st.inString {
			if line[i] == '\\' {
				i += 2
				continue
			}
			if line[i] == st.stringChar {
				st.inString = false
				st.stringChar = 0
			}
			i++
			continue
		}
		if style.lineComment != "" && hasAt(line, i, style.lineComment) {
			break
		}
		if style.blockCommentStart != "" && hasAt(line, i, style.blockCommentStart) {
			st.inBlockComment = true
			i += len(style.blockCommentStart)
			continue
		}
		if strings.IndexByte(style.stringDelimiters, line[i]) >= 0 {
			st.inString = true
			st.stringChar = line[i]
			i++
			continue
		}
		b.WriteByte(line[i])
		i++
	}
	return b.String()
}

// stripStringLiterals removes only string-literal content from a line,
// leaving comment text intact. Used by region-marker scanning: a marker
// written inside a comment (the normal way to annotate source) must still
// be found, but one that merely appears inside a quoted string (sample
// output, documentation text) should not be mistaken for a real marker.
func stripStringLiterals(line string, st *scanState, style commentStyle) string {
	var b strings.Builder
	i := 0
	n := len(line)
	for i < n {
		if st.inString {
			if line[i] == '\\' {
				i += 2
				continue
			}
			if line[i] == st.stringChar {
				st.inString = false
				st.stringChar = 0
			}
			i++
			continue
		}
		if strings.IndexByte(style.stringDelimiters, line[i]) >= 0 {
			st.inString = true
			st.stringChar = line[i]
			i++
			continue
		}
		b.WriteByte(line[i])
		i++
	}
	return b.String()
}

func hasAt(s string, i int, sub string) bool {
	return i+len(sub) <= len(s) && s[i:i+len(sub)] == sub
}

var cStyle = commentStyle{
	lineComment:       "//",
	blockCommentStart: "/*",
	blockCommentEnd:   "*/",
	stringDelimiters:  `"'`,
}

// pythonStyle has no block comments; triple-quoted strings are not
// special-cased here (matching the original C-family-derived parser's own
// scope: Python symbol extraction uses indentation, not braces, and never
// needed brace-aware string skipping for block discovery).
var pythonStyle = commentStyle{
	lineComment:      "#",
	stringDelimiters: `"'`,
}
