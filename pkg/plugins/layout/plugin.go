// Package layout implements the `layout` directive recovered from
// original_source/src/embedm/layout.py: a flexbox row/column of sections,
// each embedding another directive. Grounded on that file's size/border/flex
// CSS-building helpers (parseSize, sizeToFlex, parseBorder), reimplemented
// without a source of its own since all of a layout's data lives in its
// options. Each section's embed is planned with its own planner.Planner and
// then compiled with compiler.Compile, the same recursive Compile call
// pkg/plugins/recall and pkg/plugins/file make on an embedded document.
package layout

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/embedm-dev/embedm/pkg/compiler"
	"github.com/embedm-dev/embedm/pkg/directive"
	"github.com/embedm-dev/embedm/pkg/planner"
	"github.com/embedm-dev/embedm/pkg/plugin"
	"github.com/embedm-dev/embedm/pkg/status"
)

// Plugin implements the `layout` directive.
type Plugin struct {
	// MaxRecursion bounds planning of each section's embed. Defaults to 10
	// when zero.
	MaxRecursion int
}

func (p *Plugin) Name() string          { return "layout" }
func (p *Plugin) APIVersion() int       { return plugin.APIVersion }
func (p *Plugin) DirectiveType() string { return "layout" }

// ValidateDirective rejects a source (layout carries no source of its own)
// and checks `orientation` and `sections` parse.
func (p *Plugin) ValidateDirective(d directive.Directive) status.List {
	var errs status.List
	if d.HasSource() {
		errs = append(errs, status.New(status.ERROR, "'layout' directive does not accept a source"))
	}
	if v, ok := d.Option("orientation"); ok && v != "" && v != "row" && v != "column" {
		errs = append(errs, status.New(status.ERROR, "orientation must be 'row' or 'column', got %q", v))
	}
	sections, ok := d.Option("sections")
	if !ok || strings.TrimSpace(sections) == "" {
		errs = append(errs, status.New(status.ERROR, "'layout' directive requires at least one section"))
		return errs
	}
	parsed, err := parseSections(sections)
	if err != nil {
		errs = append(errs, status.New(status.ERROR, "invalid sections: %v", err))
	} else if len(parsed) == 0 {
		errs = append(errs, status.New(status.ERROR, "'layout' directive requires at least one section"))
	}
	return errs
}

type section struct {
	Size       string                 `yaml:"size"`
	Border     string                 `yaml:"border"`
	Padding    string                 `yaml:"padding"`
	Background string                 `yaml:"background"`
	Embed      map[string]interface{} `yaml:"embed"`
}

func parseSections(raw string) ([]section, error) {
	var sections []section
	if err := yaml.Unmarshal([]byte(raw), &sections); err != nil {
		return nil, err
	}
	return sections, nil
}

// Transform builds the flex container and, for each section, plans and
// compiles its embed directive, resolving relative sources against the
// enclosing document's directory.
func (p *Plugin) Transform(node plugin.Node, _ []plugin.FragmentView, ctx *plugin.Context) (string, error) {
	cd := node.NodeDirective()

	orientation := cd.Options["orientation"]
	if orientation == "" {
		orientation = "row"
	}
	sections, err := parseSections(cd.Options["sections"])
	if err != nil {
		return "", fmt.Errorf("parsing layout sections: %w", err)
	}
	if len(sections) == 0 {
		return "> [!CAUTION]\n> **embedm:** layout requires at least one section\n", nil
	}

	style := fmt.Sprintf("display: flex; flex-direction: %s;", orientation)
	if gap := cd.Options["gap"]; gap != "" && gap != "0" {
		if v, unit := parseSize(gap); v != "auto" {
			style += fmt.Sprintf(" gap: %s%s;", v, unit)
		}
	}
	if border := parseBorder(cd.Options["border"]); border != "" {
		style += fmt.Sprintf(" border: %s;", border)
	}
	if padding := cd.Options["padding"]; padding != "" {
		if v, unit := parseSize(padding); v != "auto" {
			style += fmt.Sprintf(" padding: %s%s;", v, unit)
		}
	}
	if bg := cd.Options["background"]; bg != "" {
		style += fmt.Sprintf(" background: %s;", bg)
	}

	baseDir := filepath.Dir(cd.Source)
	if baseDir == "." {
		if pn, ok := node.(*planner.PlanNode); ok && pn.Document != nil {
			baseDir = filepath.Dir(pn.Document.Path)
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "<div style=\"%s\">\n", style)
	for i, sec := range sections {
		sectionStyle := fmt.Sprintf("flex: %s;", sizeToFlex(sec.Size))
		if border := parseBorder(sec.Border); border != "" {
			sectionStyle += fmt.Sprintf(" border: %s;", border)
		}
		if sec.Padding != "" {
			if v, unit := parseSize(sec.Padding); v != "auto" {
				sectionStyle += fmt.Sprintf(" padding: %s%s;", v, unit)
			}
		}
		if sec.Background != "" {
			sectionStyle += fmt.Sprintf(" background: %s;", sec.Background)
		}

		content, err := p.renderEmbed(sec.Embed, baseDir, ctx)
		if err != nil {
			content = fmt.Sprintf("<em>section %d: %s</em>", i+1, err.Error())
		}
		fmt.Fprintf(&b, "<div style=\"%s\">\n\n%s\n\n</div>\n", sectionStyle, content)
	}
	b.WriteString("</div>")
	return b.String(), nil
}

func (p *Plugin) renderEmbed(embed map[string]interface{}, baseDir string, ctx *plugin.Context) (string, error) {
	if embed == nil {
		return "", fmt.Errorf("no embed specified")
	}
	typ, _ := embed["type"].(string)
	if typ == "" {
		return "", fmt.Errorf("embed requires a type")
	}
	source, _ := embed["source"].(string)
	if source == "" {
		return "", fmt.Errorf("layout embeds require a source")
	}
	if !filepath.IsAbs(source) {
		source = filepath.Clean(filepath.Join(baseDir, source))
	}
	opts := map[string]string{}
	for k, v := range embed {
		if k == "type" || k == "source" {
			continue
		}
		opts[k] = fmt.Sprintf("%v", v)
	}
	d := directive.Directive{Type: typ, Source: source, Options: opts}

	content, errs := ctx.Cache.Get(source)
	if errs.HasErrors() {
		return "", fmt.Errorf("%s", errs[0].Description)
	}

	maxRecursion := p.MaxRecursion
	if maxRecursion <= 0 {
		maxRecursion = 10
	}
	pl := &planner.Planner{Registry: ctx.Registry, Cache: ctx.Cache, MaxRecursion: maxRecursion}
	node := pl.Plan(d, content)

	runOpts, _ := compiler.OptionsFromShared(ctx.Shared)
	out, stats := compiler.Compile(node, ctx.Cache, ctx.Registry, runOpts, ctx.Events, ctx.Shared)
	if stats.HasFatal() {
		return "", fmt.Errorf("%s", stats.Errors()[0].Description)
	}
	return out, nil
}

var sizePattern = regexp.MustCompile(`^(\d+(?:\.\d+)?)\s*(%|px)?$`)

// parseSize splits a size string like "30%" or "300px" into value and unit;
// "auto" (or empty) returns ("auto", "").
func parseSize(s string) (string, string) {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "auto") {
		return "auto", ""
	}
	m := sizePattern.FindStringSubmatch(s)
	if m == nil {
		return "auto", ""
	}
	unit := m[2]
	if unit == "" {
		unit = "px"
	}
	return m[1], unit
}

// sizeToFlex converts a size spec into a CSS flex shorthand.
func sizeToFlex(size string) string {
	v, unit := parseSize(size)
	if v == "auto" {
		return "1 1 auto"
	}
	return fmt.Sprintf("0 0 %s%s", v, unit)
}

// parseBorder normalises a border option into a CSS border value: boolean-
// ish truthy strings become a default border, "<width> <color>" gets
// "solid" inserted, anything else-shaped passes through unchanged.
func parseBorder(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	switch strings.ToLower(s) {
	case "true", "yes", "1":
		return "1px solid #ccc"
	case "false", "no", "0":
		return ""
	}
	parts := strings.Fields(s)
	if len(parts) == 2 && strings.HasSuffix(parts[0], "px") {
		_, err := strconv.Atoi(strings.TrimSuffix(parts[0], "px"))
		if err == nil {
			return fmt.Sprintf("%s solid %s", parts[0], parts[1])
		}
	}
	return s
}
