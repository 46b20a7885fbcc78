// Package recall implements the `recall-anchor`/`recall` directive pair:
// recall-anchor compiles its source in place and registers the result under
// a key in a per-run anchor table; recall compiles its own (elsewhere-in-
// the-tree) source to force that file's anchors to register, then renders
// only the content registered under its key. Grounded on the file plugin's
// recursive compiler.Compile call (pkg/plugins/file/plugin.go) for the
// "a directive's source is itself planned Markdown" shape, extended with a
// shared lookup table the way docforge's nodeplugins pass a shared
// worker-pool context (pkg/nodeplugins/markdown/plugin.go) across a run.
package recall

import (
	"fmt"

	"github.com/embedm-dev/embedm/pkg/compiler"
	"github.com/embedm-dev/embedm/pkg/directive"
	"github.com/embedm-dev/embedm/pkg/planner"
	"github.com/embedm-dev/embedm/pkg/plugin"
	"github.com/embedm-dev/embedm/pkg/status"
)

// anchorTableKey is where the per-run anchor table lives inside a
// plugin.Context's Shared map.
const anchorTableKey = "embedm/recall.anchors"

func anchorTable(shared map[string]interface{}) map[string]string {
	if t, ok := shared[anchorTableKey].(map[string]string); ok {
		return t
	}
	t := map[string]string{}
	shared[anchorTableKey] = t
	return t
}

// Anchor implements the `recall-anchor` directive: a normal source embed
// that also registers its compiled content under `key` for later recall.
type Anchor struct{}

func (a *Anchor) Name() string          { return "recall-anchor" }
func (a *Anchor) APIVersion() int       { return plugin.APIVersion }
func (a *Anchor) DirectiveType() string { return "recall-anchor" }

func (a *Anchor) ValidateDirective(d directive.Directive) status.List {
	var errs status.List
	if !d.HasSource() {
		errs = append(errs, status.New(status.ERROR, "'recall-anchor' directive requires a source"))
	}
	if v, ok := d.Option("key"); !ok || v == "" {
		errs = append(errs, status.New(status.ERROR, "'recall-anchor' directive requires a non-empty key"))
	}
	return errs
}

func (a *Anchor) Transform(node plugin.Node, _ []plugin.FragmentView, ctx *plugin.Context) (string, error) {
	planNode, ok := node.(*planner.PlanNode)
	if !ok || planNode.Document == nil {
		return "", fmt.Errorf("recall-anchor plugin requires a planned document")
	}
	runOpts, _ := compiler.OptionsFromShared(ctx.Shared)
	compiled, _ := compiler.Compile(planNode, ctx.Cache, ctx.Registry, runOpts, ctx.Events, ctx.Shared)

	key, _ := node.NodeDirective().Option("key")
	anchorTable(ctx.Shared)[key] = compiled
	return compiled, nil
}

// Recall implements the `recall` directive: force-compile the referenced
// file and render whatever it registered under `key`.
type Recall struct{}

func (r *Recall) Name() string          { return "recall" }
func (r *Recall) APIVersion() int       { return plugin.APIVersion }
func (r *Recall) DirectiveType() string { return "recall" }

func (r *Recall) ValidateDirective(d directive.Directive) status.List {
	var errs status.List
	if !d.HasSource() {
		errs = append(errs, status.New(status.ERROR, "'recall' directive requires a source"))
	}
	if v, ok := d.Option("key"); !ok || v == "" {
		errs = append(errs, status.New(status.ERROR, "'recall' directive requires a non-empty key"))
	}
	return errs
}

func (r *Recall) Transform(node plugin.Node, _ []plugin.FragmentView, ctx *plugin.Context) (string, error) {
	planNode, ok := node.(*planner.PlanNode)
	if !ok || planNode.Document == nil {
		return "", fmt.Errorf("recall plugin requires a planned document")
	}
	runOpts, _ := compiler.OptionsFromShared(ctx.Shared)
	// Compiling the referenced document forces any recall-anchor directives
	// it contains to register themselves before the lookup below — the
	// table is shared across this whole run via ctx.Shared.
	_, _ = compiler.Compile(planNode, ctx.Cache, ctx.Registry, runOpts, ctx.Events, ctx.Shared)

	key, _ := node.NodeDirective().Option("key")
	content, ok := anchorTable(ctx.Shared)[key]
	if !ok {
		return fmt.Sprintf("> [!CAUTION]\n> **embedm:** no recall anchor registered for key %q\n", key), nil
	}
	return content, nil
}
