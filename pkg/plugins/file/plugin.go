package file

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/text"

	"github.com/embedm-dev/embedm/pkg/compiler"
	"github.com/embedm-dev/embedm/pkg/directive"
	"github.com/embedm-dev/embedm/pkg/planner"
	"github.com/embedm-dev/embedm/pkg/plugin"
	"github.com/embedm-dev/embedm/pkg/status"
)

var extractionOptions = []string{"region", "lines", "symbol"}

var gmParser = goldmark.New(goldmark.WithExtensions(extension.GFM))

// Plugin implements the `file` directive: inline a whole source, or a
// region/line-range/symbol slice of it, as a fenced code block (or inlined
// Markdown when the source is itself Markdown).
type Plugin struct {
	// RegionStart and RegionEnd are the configurable marker templates; both
	// must contain "{tag}". Zero value means use the package defaults.
	RegionStart string
	RegionEnd   string
	// CompiledDir is the directory the `link` option's relative path is
	// computed against — normally the orchestrator's output directory.
	CompiledDir string
}

func (p *Plugin) Name() string          { return "file" }
func (p *Plugin) APIVersion() int       { return plugin.APIVersion }
func (p *Plugin) DirectiveType() string { return "file" }

// ValidateDirective requires a source, rejects combining more than one
// extraction option, and checks the `lines`/`symbol` options' own syntax
// before any content is loaded.
func (p *Plugin) ValidateDirective(d directive.Directive) status.List {
	if !d.HasSource() {
		return status.List{status.New(status.ERROR, "'file' directive requires a source")}
	}

	var errs status.List
	active := 0
	for _, k := range extractionOptions {
		if v, ok := d.Option(k); ok && v != "" {
			active++
		}
	}
	if active > 1 {
		errs = append(errs, status.New(status.ERROR, "'file' directive accepts only one of region, lines, symbol"))
	}

	if lines, ok := d.Option("lines"); ok && lines != "" && !isValidLineRange(lines) {
		errs = append(errs, status.New(status.ERROR, "invalid line range %q", lines))
	}
	if symbol, ok := d.Option("symbol"); ok && symbol != "" {
		if _, ok := getLanguageConfig(d.Source); !ok {
			errs = append(errs, status.New(status.ERROR, "symbol extraction unsupported for extension %q", filepath.Ext(d.Source)))
		}
	}
	return errs
}

// ValidateInput parses a whole-document Markdown source with goldmark before
// planning recurses into it, warning when the parse yields no block content
// for a non-blank source — the cheapest signal goldmark's permissive parser
// gives that the source is not actually Markdown (e.g. a binary file with a
// .md extension).
func (p *Plugin) ValidateInput(d directive.Directive, content string) (interface{}, status.List) {
	if !isMarkdownSource(d.Source) {
		return nil, nil
	}
	if region, _ := d.Option("region"); region != "" {
		return nil, nil
	}
	if lines, _ := d.Option("lines"); lines != "" {
		return nil, nil
	}
	if symbol, _ := d.Option("symbol"); symbol != "" {
		return nil, nil
	}
	if strings.TrimSpace(content) == "" {
		return nil, nil
	}
	doc := gmParser.Parser().Parse(text.NewReader([]byte(content)))
	if doc.FirstChild() == nil {
		return nil, status.List{status.New(status.WARNING, "%s: markdown parsed with no block content", d.Source)}
	}
	return nil, nil
}

// Transform renders the node's content — recursively compiled if the child
// is itself Markdown with its own directives — then applies the requested
// extraction, wraps it (fenced, or inlined for Markdown), and prepends the
// optional header.
func (p *Plugin) Transform(node plugin.Node, fragments []plugin.FragmentView, ctx *plugin.Context) (string, error) {
	cd := node.NodeDirective()

	planNode, ok := node.(*planner.PlanNode)
	if !ok || planNode.Document == nil {
		return "", fmt.Errorf("file plugin requires a planned document")
	}

	var registry *plugin.Registry
	if ctx != nil {
		registry = ctx.Registry
	}
	runOpts, _ := compiler.OptionsFromShared(ctx.Shared)
	compiled, _ := compiler.Compile(planNode, ctx.Cache, registry, runOpts, ctx.Events, ctx.Shared)

	region, _ := cd.Option("region")
	lineRange, _ := cd.Option("lines")
	symbol, _ := cd.Option("symbol")

	regionStart := p.RegionStart
	if regionStart == "" {
		regionStart = DefaultRegionStart
	}
	regionEnd := p.RegionEnd
	if regionEnd == "" {
		regionEnd = DefaultRegionEnd
	}

	content, err := p.applyExtraction(compiled, cd.Source, region, lineRange, symbol, regionStart, regionEnd)
	if err != nil {
		return renderErrorNote(err.Error()), nil
	}

	title, _ := cd.Option("title")
	showLink := cd.Option("link")
	showLineRange := cd.Option("line_numbers_range")

	header := buildHeader(cd.Source, p.CompiledDir, title, boolOption(showLineRange), boolOption(showLink), lineRange)

	if !isMarkdownSource(cd.Source) {
		ext := strings.TrimPrefix(filepath.Ext(cd.Source), ".")
		if ext == "" {
			ext = "text"
		}
		return fmt.Sprintf("%s```%s\n%s\n```", header, ext, strings.TrimRight(content, "\n\r\t ")), nil
	}
	return header + content, nil
}

func boolOption(v string) bool {
	return v == "True" || v == "true"
}

func (p *Plugin) applyExtraction(compiled, sourcePath, region, lineRange, symbol, regionStart, regionEnd string) (string, error) {
	switch {
	case region != "":
		style, _ := getLanguageConfig(sourcePath)
		content, ok := extractRegion(compiled, region, regionStart, regionEnd, style.comment)
		if !ok {
			return "", fmt.Errorf("region %q not found in %s", region, sourcePath)
		}
		return content, nil
	case lineRange != "":
		content, ok := extractLines(compiled, lineRange)
		if !ok {
			return "", fmt.Errorf("invalid line range %q", lineRange)
		}
		return content, nil
	case symbol != "":
		cfg, ok := getLanguageConfig(sourcePath)
		if !ok {
			return "", unsupportedExtensionError(sourcePath)
		}
		content, ok := extractSymbol(compiled, symbol, cfg)
		if !ok {
			return "", fmt.Errorf("symbol %q not found in %s", symbol, sourcePath)
		}
		return content, nil
	default:
		return compiled, nil
	}
}

func renderErrorNote(msg string) string {
	return "> [!CAUTION]\n> **embedm:** " + msg + "\n"
}

// ValidatePluginConfig checks region_start/region_end plugin-level settings
// (not a per-directive option) contain the required "{tag}" placeholder.
func ValidatePluginConfig(settings map[string]string) status.List {
	var errs status.List
	for _, key := range []string{"region_start", "region_end"} {
		v, ok := settings[key]
		if ok && !strings.Contains(v, "{tag}") {
			errs = append(errs, status.New(status.ERROR, "file plugin config %q must contain '{tag}'", key))
		}
	}
	return errs
}
