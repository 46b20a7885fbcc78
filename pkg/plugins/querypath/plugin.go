// Package querypath implements the `querypath` directive: evaluate a
// dot/bracket path against a decoded YAML or JSON document and render the
// resolved value. Grounded on docforge's use of gopkg.in/yaml.v3 to decode
// manifests/frontmatter into generic maps (pkg/manifest/node.go,
// pkg/markdown/frontmatter.go) and on
// original_source/src/embedm_plugins/query_path_plugin.py for the
// parse-then-resolve contract, narrowed to YAML/JSON per SPEC_FULL.md.
package querypath

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/embedm-dev/embedm/pkg/directive"
	"github.com/embedm-dev/embedm/pkg/plugin"
	"github.com/embedm-dev/embedm/pkg/status"
)

// Plugin implements the `querypath` directive.
type Plugin struct{}

func (p *Plugin) Name() string          { return "querypath" }
func (p *Plugin) APIVersion() int       { return plugin.APIVersion }
func (p *Plugin) DirectiveType() string { return "querypath" }

var supportedExt = map[string]bool{".yaml": true, ".yml": true, ".json": true}

// ValidateDirective requires a source with a YAML/JSON extension and checks
// the `format` option is one of "raw"/"code".
func (p *Plugin) ValidateDirective(d directive.Directive) status.List {
	if !d.HasSource() {
		return status.List{status.New(status.ERROR, "'querypath' directive requires a source")}
	}
	var errs status.List
	ext := strings.ToLower(filepath.Ext(d.Source))
	if !supportedExt[ext] {
		errs = append(errs, status.New(status.ERROR, "'querypath' directive does not support source extension %q", ext))
	}
	if v, ok := d.Option("format"); ok && v != "" && v != "raw" && v != "code" {
		errs = append(errs, status.New(status.ERROR, "invalid format %q: must be raw or code", v))
	}
	return errs
}

// Transform loads and decodes the source, evaluates the `path` option
// against it, and renders the resolved value per `format`.
func (p *Plugin) Transform(node plugin.Node, _ []plugin.FragmentView, ctx *plugin.Context) (string, error) {
	cd := node.NodeDirective()

	content, errs := ctx.Cache.Get(cd.Source)
	if errs.HasErrors() {
		return "", fmt.Errorf("reading %s: %s", cd.Source, errs[0].Description)
	}

	var doc interface{}
	ext := strings.ToLower(filepath.Ext(cd.Source))
	var err error
	if ext == ".json" {
		err = json.Unmarshal([]byte(content), &doc)
	} else {
		err = yaml.Unmarshal([]byte(content), &doc)
	}
	if err != nil {
		return "", fmt.Errorf("parsing %s: %w", cd.Source, err)
	}

	path, _ := cd.Option("path")
	value := doc
	if path != "" {
		v, ok := resolvePath(doc, path)
		if !ok {
			return fmt.Sprintf("> [!CAUTION]\n> **embedm:** query path %q not found in %s\n", path, cd.Source), nil
		}
		value = v
	}

	format, _ := cd.Option("format")
	if format == "" {
		format = "raw"
	}
	lang, _ := cd.Option("lang")
	if lang == "" {
		lang = strings.TrimPrefix(ext, ".")
	}

	rendered, err := renderValue(value)
	if err != nil {
		return "", fmt.Errorf("rendering query path result: %w", err)
	}

	if format == "code" {
		return fmt.Sprintf("```%s\n%s\n```", lang, strings.TrimRight(rendered, "\n")), nil
	}
	return rendered, nil
}

// renderValue formats a scalar directly and marshals anything else through
// YAML, per spec.md's "raw" contract.
func renderValue(v interface{}) (string, error) {
	switch t := v.(type) {
	case nil:
		return "", nil
	case string:
		return t, nil
	case bool, int, int64, float64:
		return fmt.Sprintf("%v", t), nil
	default:
		out, err := yaml.Marshal(v)
		if err != nil {
			return "", err
		}
		return strings.TrimRight(string(out), "\n"), nil
	}
}

var pathToken = regexp.MustCompile(`([^.\[\]]+)|\[(\d+)\]`)

// resolvePath evaluates a dot/bracket path ("a.b[2].c") against a decoded
// document tree built from either yaml.v3 or encoding/json, both of which
// decode mappings into map[string]interface{} and sequences into
// []interface{}.
func resolvePath(doc interface{}, path string) (interface{}, bool) {
	matches := pathToken.FindAllStringSubmatch(path, -1)
	value := doc
	for _, m := range matches {
		if m[2] != "" {
			idx, _ := strconv.Atoi(m[2])
			arr, ok := value.([]interface{})
			if !ok || idx < 0 || idx >= len(arr) {
				return nil, false
			}
			value = arr[idx]
			continue
		}
		key := m[1]
		m2, ok := value.(map[string]interface{})
		if !ok {
			return nil, false
		}
		v, present := m2[key]
		if !present {
			return nil, false
		}
		value = v
	}
	return value, true
}
