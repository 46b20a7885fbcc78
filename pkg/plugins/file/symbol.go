package file

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
)

type blockStyle int

const (
	blockBrace blockStyle = iota
	blockIndent
	blockRestOfFile
)

type symbolPattern struct {
	kind          string
	regexTemplate string
	style         blockStyle
	nestable      bool
}

type languageConfig struct {
	name       string
	extensions []string
	comment    commentStyle
	patterns   []symbolPattern
}

var cCppConfig = languageConfig{
	name:       "C/C++",
	extensions: []string{"c", "cpp", "h", "hpp", "cc", "cxx"},
	comment:    cStyle,
	patterns: []symbolPattern{
		{"namespace", `^\s*namespace\s+{name}\b`, blockBrace, true},
		{"class", `^\s*class\s+{name}\b`, blockBrace, true},
		{"struct", `^\s*(?:typedef\s+)?struct\s+{name}\b`, blockBrace, true},
		{"enum", `^\s*(?:typedef\s+)?enum\s+(?:class\s+)?{name}\b`, blockBrace, false},
		{"function", `^\s*\S+[\s\*]+(?:\w+::)*{name}\s*\(`, blockBrace, false},
	},
}

var csharpConfig = languageConfig{
	name:       "C#",
	extensions: []string{"cs"},
	comment:    cStyle,
	patterns: []symbolPattern{
		{"namespace_file_scoped", `^\s*namespace\s+{name}\s*;`, blockRestOfFile, true},
		{"namespace", `^\s*namespace\s+{name}\b`, blockBrace, true},
		{"class", `^\s*(?:public\s+|private\s+|protected\s+|internal\s+)?(?:static\s+)?(?:abstract\s+)?(?:partial\s+)?class\s+{name}\b`, blockBrace, true},
		{"struct", `^\s*(?:public\s+|private\s+|protected\s+|internal\s+)?(?:readonly\s+)?struct\s+{name}\b`, blockBrace, true},
		{"interface", `^\s*(?:public\s+|private\s+|protected\s+|internal\s+)?interface\s+{name}\b`, blockBrace, true},
		{"enum", `^\s*(?:public\s+|private\s+|protected\s+|internal\s+)?enum\s+{name}\b`, blockBrace, false},
		{"method", `^\s*(?:public\s+|private\s+|protected\s+|internal\s+)?(?:static\s+)?(?:abstract\s+)?(?:virtual\s+)?(?:override\s+)?(?:async\s+)?\S+\s+{name}\s*[\(<]`, blockBrace, false},
	},
}

var javaConfig = languageConfig{
	name:       "Java",
	extensions: []string{"java"},
	comment:    cStyle,
	patterns: []symbolPattern{
		{"class", `^\s*(?:public\s+|private\s+|protected\s+)?(?:static\s+)?(?:abstract\s+)?class\s+{name}\b`, blockBrace, true},
		{"interface", `^\s*(?:public\s+|private\s+|protected\s+)?interface\s+{name}\b`, blockBrace, true},
		{"enum", `^\s*(?:public\s+|private\s+|protected\s+)?enum\s+{name}\b`, blockBrace, false},
		{"method", `^\s*(?:public\s+|private\s+|protected\s+)?(?:static\s+)?(?:abstract\s+)?\S+\s+{name}\s*\(`, blockBrace, false},
	},
}

// pythonConfig uses indentation-delimited blocks (no brace in the grammar),
// the one language config not present in the retrieved original source —
// added here to satisfy spec.md's explicit "C/C++, C#, Java, and Python"
// support list, in the same declarative shape as the other three.
var pythonConfig = languageConfig{
	name:       "Python",
	extensions: []string{"py"},
	comment:    pythonStyle,
	patterns: []symbolPattern{
		{"class", `^\s*class\s+{name}\b`, blockIndent, true},
		{"function", `^\s*(?:async\s+)?def\s+{name}\s*\(`, blockIndent, false},
	},
}

var extensionMap = buildExtensionMap(cCppConfig, csharpConfig, javaConfig, pythonConfig)

func buildExtensionMap(configs ...languageConfig) map[string]languageConfig {
	m := map[string]languageConfig{}
	for _, c := range configs {
		for _, ext := range c.extensions {
			m[ext] = c
		}
	}
	return m
}

// getLanguageConfig returns the config for a file's extension, or false if
// the extension isn't one of the supported languages.
func getLanguageConfig(path string) (languageConfig, bool) {
	ext := strings.TrimPrefix(filepath.Ext(path), ".")
	c, ok := extensionMap[ext]
	return c, ok
}

var paramModifiers = []string{"ref ", "out ", "in ", "params ", "this ", "final "}

func splitParams(paramString string) []string {
	if strings.TrimSpace(paramString) == "" {
		return nil
	}
	var params []string
	var cur strings.Builder
	depth := 0
	for _, ch := range paramString {
		switch {
		case ch == '<':
			depth++
			cur.WriteRune(ch)
		case ch == '>':
			depth--
			cur.WriteRune(ch)
		case ch == ',' && depth == 0:
			params = append(params, strings.TrimSpace(cur.String()))
			cur.Reset()
		default:
			cur.WriteRune(ch)
		}
	}
	if last := strings.TrimSpace(cur.String()); last != "" {
		params = append(params, last)
	}
	return params
}

func extractTypeName(param string) string {
	param = strings.TrimSpace(param)
	angleDepth := 0
	lastSpace := -1
	for i, ch := range param {
		switch {
		case ch == '<':
			angleDepth++
		case ch == '>':
			angleDepth--
		case ch == ' ' && angleDepth == 0:
			lastSpace = i
		}
	}
	if lastSpace > 0 {
		return param[:lastSpace]
	}
	return param
}

func finalizeParams(collected string) []string {
	paramStr := strings.TrimSpace(collected)
	if paramStr == "" {
		return nil
	}
	var types []string
	for _, p := range splitParams(paramStr) {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if eq := strings.Index(p, "="); eq != -1 {
			p = strings.TrimSpace(p[:eq])
		}
		pLower := strings.ToLower(p)
		for _, mod := range paramModifiers {
			if strings.HasPrefix(pLower, mod) {
				p = strings.TrimSpace(p[len(mod):])
				break
			}
		}
		types = append(types, extractTypeName(p))
	}
	return types
}

// extractParamTypes scans forward up to 10 lines from a declaration to
// collect its full parameter list text, honouring nested parens.
func extractParamTypes(lines []string, declIdx int) ([]string, bool) {
	var collected strings.Builder
	foundOpen := false
	depth := 0

	limit := declIdx + 10
	if limit > len(lines) {
		limit = len(lines)
	}
	for idx := declIdx; idx < limit; idx++ {
		for _, ch := range lines[idx] {
			if !foundOpen {
				if ch == '(' {
					foundOpen = true
					depth = 1
				}
				continue
			}
			switch ch {
			case '(':
				depth++
				collected.WriteRune(ch)
			case ')':
				depth--
				if depth == 0 {
					return finalizeParams(collected.String()), true
				}
				collected.WriteRune(ch)
			default:
				collected.WriteRune(ch)
			}
		}
	}
	return nil, false
}

func matchSignature(requested, declared []string) bool {
	if len(requested) != len(declared) {
		return false
	}
	for i, req := range requested {
		reqL := strings.ToLower(strings.TrimSpace(req))
		declL := strings.ToLower(strings.TrimSpace(declared[i]))
		if reqL == declL || strings.HasSuffix(declL, "."+reqL) {
			continue
		}
		return false
	}
	return true
}

type symbolSpec struct {
	parts     []string
	signature *string
	hasParens bool
}

// parseSymbolSpec parses a possibly dotted, possibly overloaded symbol
// request such as `Ns.MyClass.MyMethod(string, int)`.
func parseSymbolSpec(name string) symbolSpec {
	name = strings.TrimSpace(name)
	if strings.HasSuffix(name, ")") {
		depth := 0
		for i := len(name) - 1; i >= 0; i-- {
			switch name[i] {
			case ')':
				depth++
			case '(':
				depth--
				if depth == 0 && i > 0 {
					sig := name[i+1 : len(name)-1]
					return symbolSpec{parts: strings.Split(name[:i], "."), signature: &sig, hasParens: true}
				}
			}
		}
	}
	return symbolSpec{parts: strings.Split(name, "."), hasParens: false}
}

func parseRequestedParams(signature *string, hasParens bool) ([]string, bool) {
	if !hasParens {
		return nil, false
	}
	if signature != nil && *signature != "" {
		return splitParams(*signature), true
	}
	return nil, true
}

func countBraces(real string) int {
	count := 0
	for _, ch := range real {
		if ch == '{' {
			count++
		} else if ch == '}' {
			count--
		}
	}
	return count
}

func extractBlockBrace(lines []string, startIdx int, style commentStyle) (int, bool) {
	depth := 0
	foundOpening := false
	st := &scanState{}
	for i := startIdx; i < len(lines); i++ {
		real := realCode(lines[i], st, style)
		for _, ch := range real {
			if ch == '{' {
				depth++
				foundOpening = true
			} else if ch == '}' {
				depth--
			}
		}
		if foundOpening && depth == 0 {
			return i, true
		}
	}
	return 0, false
}

func extractBlockRestOfFile(lines []string) int {
	return len(lines) - 1
}

// extractBlockIndent returns the last line of a Python-style indented block:
// the declaration's own indent establishes the threshold, and the block
// continues through every following non-blank line indented further than
// that threshold.
func extractBlockIndent(lines []string, startIdx int) int {
	declIndent := indentOf(lines[startIdx])
	end := startIdx
	for i := startIdx + 1; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) == "" {
			end = i
			continue
		}
		if indentOf(lines[i]) <= declIndent {
			break
		}
		end = i
	}
	return end
}

func indentOf(line string) int {
	n := 0
	for _, r := range line {
		if r == ' ' {
			n++
		} else if r == '\t' {
			n += 8
		} else {
			break
		}
	}
	return n
}

func findBlockStart(lines []string, startIdx int, style commentStyle) (int, bool) {
	st := &scanState{}
	for i := startIdx; i < len(lines); i++ {
		real := realCode(lines[i], st, style)
		if strings.Contains(real, "{") {
			return i, true
		}
	}
	return 0, false
}

func extractBlock(lines []string, startIdx int, style commentStyle, bs blockStyle) (int, bool) {
	switch bs {
	case blockBrace:
		return extractBlockBrace(lines, startIdx, style)
	case blockRestOfFile:
		return extractBlockRestOfFile(lines), true
	case blockIndent:
		return extractBlockIndent(lines, startIdx), true
	default:
		return 0, false
	}
}

func tryMatchAtLine(lines []string, lineIdx int, pattern symbolPattern, re *regexp.Regexp, requestedParams []string, requireParams bool, cfg languageConfig) (int, bool) {
	if !re.MatchString(lines[lineIdx]) {
		return 0, false
	}
	if requireParams {
		declared, ok := extractParamTypes(lines, lineIdx)
		if !ok || !matchSignature(requestedParams, declared) {
			return 0, false
		}
	}
	return extractBlock(lines, lineIdx, cfg.comment, pattern.style)
}

type symbolMatch struct {
	startIdx, endIdx int
	style            blockStyle
}

func findSymbolInRange(lines []string, name string, cfg languageConfig, rangeStart, rangeEnd int, signature *string, hasParens, restrictDepth bool) (symbolMatch, bool) {
	requestedParams, requireParams := parseRequestedParams(signature, hasParens)
	escaped := regexp.QuoteMeta(name)

	for _, pattern := range cfg.patterns {
		re := regexp.MustCompile(strings.Replace(pattern.regexTemplate, "{name}", escaped, 1))
		st := &scanState{}
		depth := 0

		for lineIdx := rangeStart; lineIdx <= rangeEnd && lineIdx < len(lines); lineIdx++ {
			atDepth := true
			var real string
			if restrictDepth {
				real = realCode(lines[lineIdx], st, cfg.comment)
				atDepth = depth == 0
			}
			if atDepth {
				endIdx, ok := tryMatchAtLine(lines, lineIdx, pattern, re, requestedParams, requireParams, cfg)
				if ok {
					return symbolMatch{startIdx: lineIdx, endIdx: endIdx, style: pattern.style}, true
				}
			}
			if restrictDepth {
				depth += countBraces(real)
			}
		}
	}
	return symbolMatch{}, false
}

func sigAndParens(spec symbolSpec, isLast bool) (*string, bool) {
	if isLast {
		return spec.signature, spec.hasParens
	}
	return nil, false
}

func findWithCoalescing(lines []string, spec symbolSpec, i int, cfg languageConfig, rangeStart, rangeEnd int) (int, symbolMatch, bool) {
	part := spec.parts[i]
	restrict := i > 0
	sig, parens := sigAndParens(spec, i == len(spec.parts)-1)
	if m, ok := findSymbolInRange(lines, part, cfg, rangeStart, rangeEnd, sig, parens, restrict); ok {
		return i, m, true
	}
	for j := i + 1; j < len(spec.parts); j++ {
		part = part + "." + spec.parts[j]
		sig, parens = sigAndParens(spec, j == len(spec.parts)-1)
		if m, ok := findSymbolInRange(lines, part, cfg, rangeStart, rangeEnd, sig, parens, restrict); ok {
			return j, m, true
		}
	}
	return 0, symbolMatch{}, false
}

// extractSymbol extracts a named code symbol from source content, supporting
// dot-notation scoping and parameter-signature overload disambiguation.
func extractSymbol(content, symbolName string, cfg languageConfig) (string, bool) {
	lines := splitLines(content)
	spec := parseSymbolSpec(symbolName)
	rangeStart, rangeEnd := 0, len(lines)-1

	i := 0
	for i < len(spec.parts) {
		matchedIdx, m, ok := findWithCoalescing(lines, spec, i, cfg, rangeStart, rangeEnd)
		if !ok {
			return "", false
		}
		i = matchedIdx
		if i < len(spec.parts)-1 {
			if m.style == blockBrace {
				braceLine, ok := findBlockStart(lines, m.startIdx, cfg.comment)
				if !ok {
					return "", false
				}
				rangeStart = braceLine + 1
			} else {
				rangeStart = m.startIdx + 1
			}
			rangeEnd = m.endIdx
		} else {
			return strings.Join(lines[m.startIdx:m.endIdx+1], "\n"), true
		}
		i++
	}
	return "", false
}

func unsupportedExtensionError(path string) error {
	return fmt.Errorf("unsupported file extension for symbol extraction: %s", filepath.Ext(path))
}
