// Package toc implements the `toc` directive: a Markdown bulleted list of
// ATX headings scanned from the already-resolved fragments of the enclosing
// document. Grounded on original_source/src/embedm_plugins/toc_transformer.py
// for the fence-tracking/slugify algorithm, re-expressed in the line-oriented
// scanning style docforge's pkg/markdown/parser/charscan.go uses (explicit
// state machine over lines for fence tracking; heading lines are matched
// with a regexp).
package toc

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/embedm-dev/embedm/pkg/directive"
	"github.com/embedm-dev/embedm/pkg/plugin"
	"github.com/embedm-dev/embedm/pkg/status"
)

// Plugin implements the `toc` directive. It carries no source: it scans the
// fragment list of the document it is embedded in.
type Plugin struct{}

func (p *Plugin) Name() string          { return "toc" }
func (p *Plugin) APIVersion() int       { return plugin.APIVersion }
func (p *Plugin) DirectiveType() string { return "toc" }

var headingPattern = regexp.MustCompile(`^(#{1,6})\s+(.+)$`)

// ValidateDirective rejects a `source` (the toc directive has none) and
// checks, when present, that max_depth is an integer 1-6 and add_slugs is
// True or False.
func (p *Plugin) ValidateDirective(d directive.Directive) status.List {
	var errs status.List
	if d.HasSource() {
		errs = append(errs, status.New(status.ERROR, "'toc' directive does not accept a source"))
	}
	if v, ok := d.Option("max_depth"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 6 {
			errs = append(errs, status.New(status.ERROR, "invalid max_depth %q: must be an integer 1-6", v))
		}
	}
	if v, ok := d.Option("add_slugs"); ok && v != "" && v != "True" && v != "False" {
		errs = append(errs, status.New(status.ERROR, "invalid add_slugs %q: must be True or False", v))
	}
	return errs
}

// Transform scans only the already-resolved text fragments preceding and
// following it in the parent document (fragments still pending a later pass
// contribute no headings — this is why toc must run after content-producing
// passes in plugin_sequence).
func (p *Plugin) Transform(node plugin.Node, fragments []plugin.FragmentView, ctx *plugin.Context) (string, error) {
	cd := node.NodeDirective()

	maxDepth := 5
	if v, ok := cd.Option("max_depth"); ok && v != "" {
		maxDepth, _ = strconv.Atoi(v)
	}
	addSlugs := false
	if v, ok := cd.Option("add_slugs"); ok {
		addSlugs = v == "True"
	}

	var lines []tocLine
	seen := map[string]int{}
	inFence := false
	fenceMarker := ""

	for _, f := range fragments {
		if !f.IsText {
			continue
		}
		text := strings.ReplaceAll(f.Text, "\r\n", "\n")
		text = strings.ReplaceAll(text, "\r", "\n")
		for _, line := range strings.Split(text, "\n") {
			isFenceLine, nowInFence, marker := scanFenceLine(line, inFence, fenceMarker)
			inFence, fenceMarker = nowInFence, marker
			if isFenceLine || inFence {
				continue
			}
			m := headingPattern.FindStringSubmatch(line)
			if m == nil {
				continue
			}
			level := len(m[1])
			if level > maxDepth {
				continue
			}
			text := strings.TrimSpace(m[2])
			slug := slugify(text)
			if n, ok := seen[slug]; ok {
				seen[slug] = n + 1
				slug = fmt.Sprintf("%s-%d", slug, n+1)
			} else {
				seen[slug] = 0
			}
			lines = append(lines, tocLine{level: level, text: text, slug: slug})
		}
	}

	if len(lines) == 0 {
		return "> [!NOTE]\n> no headings\n", nil
	}

	var b strings.Builder
	for _, l := range lines {
		b.WriteString(strings.Repeat("  ", l.level-1))
		if addSlugs {
			fmt.Fprintf(&b, "- [%s](#%s)\n", l.text, l.slug)
		} else {
			fmt.Fprintf(&b, "- %s\n", l.text)
		}
	}
	return b.String(), nil
}

type tocLine struct {
	level int
	text  string
	slug  string
}

// scanFenceLine tracks the Markdown code-fence state machine: a line
// starting with three or more backticks opens a fence (recording its exact
// backtick run as the marker); a line whose stripped content starts with
// that marker and has nothing but backticks after it closes it.
func scanFenceLine(line string, inFence bool, marker string) (isFenceLine bool, nowInFence bool, nowMarker string) {
	stripped := strings.TrimSpace(line)
	if !strings.HasPrefix(stripped, "```") {
		return false, inFence, marker
	}
	if !inFence {
		run := stripped[:len(stripped)-len(strings.TrimLeft(stripped, "`"))]
		return true, true, run
	}
	if strings.HasPrefix(stripped, marker) && strings.Trim(stripped, "`") == "" {
		return true, false, marker
	}
	return false, inFence, marker
}

var slugInvalid = regexp.MustCompile(`[^\w\s-]`)
var slugWhitespace = regexp.MustCompile(`[\s_]+`)
var slugEdgeHyphens = regexp.MustCompile(`^-+|-+$`)

// slugify produces a GitHub-style anchor slug from heading text.
func slugify(text string) string {
	s := strings.ToLower(strings.TrimSpace(text))
	s = slugInvalid.ReplaceAllString(s, "")
	s = slugWhitespace.ReplaceAllString(s, "-")
	s = slugEdgeHyphens.ReplaceAllString(s, "")
	return s
}
