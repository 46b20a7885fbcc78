// Package compiler walks a planned tree and renders it into the final
// output string: one or more passes over a document's fragment list, each
// pass handing source-bearing and source-less directives alike to their
// plugin's Transform, with FATAL/unresolved-ERROR subtrees rendered as
// inline caution notes instead of expanded. Grounded on docforge's
// nodeplugins/markdown/document worker, which walks a resolved node's
// content in a similar fragment-replace fashion, and on
// nodeplugins/markdown/plugin.go's pass-by-processor dispatch.
package compiler

import (
	"strings"

	"github.com/embedm-dev/embedm/pkg/directive"
	"github.com/embedm-dev/embedm/pkg/planner"
	"github.com/embedm-dev/embedm/pkg/plugin"
	"github.com/embedm-dev/embedm/pkg/status"
)

// Options configures one compile run.
type Options struct {
	// PluginSequence names directive types in the order their pass should
	// run. Empty means a single source-order pass over every directive.
	PluginSequence []string
	// MaxEmbedSize caps a single directive's rendered replacement, in bytes.
	// 0 disables the cap.
	MaxEmbedSize int64
	// AcceptAll is carried through to recursive Compile calls (the file
	// plugin inlining a nested document) via the shared options bag so a
	// nested document's own pass sees the same run-wide setting. ERROR
	// subtrees already render their own caution note inline regardless of
	// this flag; only a FATAL anywhere in a subtree stops it outright.
	AcceptAll bool
	// PluginOptions carries each directive type's own per-run configuration,
	// independent of any individual directive's options.
	PluginOptions map[string]map[string]string
}

// part is one slot of the fragment list being compiled: either already
// resolved to text, or a directive still awaiting its pass.
type part struct {
	text     string
	resolved bool
}

// sharedOptionsKey is where Compile stores the active run's Options inside
// the shared bag so a plugin that recurses into Compile itself (the file
// plugin, inlining a nested Markdown document) can reuse the same
// plugin_sequence, cap, and accept-all settings instead of defaulting.
const sharedOptionsKey = "embedm/compiler.Options"

// OptionsFromShared retrieves the active run's Options from a Context's
// Shared map, if Compile has been called at least once with it.
func OptionsFromShared(shared map[string]interface{}) (Options, bool) {
	if shared == nil {
		return Options{}, false
	}
	opts, ok := shared[sharedOptionsKey].(Options)
	return opts, ok
}

// Compile renders a planned node into its replacement string. It is called
// once by the orchestrator for a run's root node, and again by any plugin
// (the file plugin, principally) whose directive embeds another planned
// document and needs that document's own directives resolved first.
func Compile(node *planner.PlanNode, cache plugin.Cache, registry *plugin.Registry, opts Options, events plugin.EventSink, shared map[string]interface{}) (string, status.List) {
	if node.Document == nil {
		return cautionNote(node.Statuses.Errors()), node.Statuses
	}

	// A FATAL anywhere in the subtree stops the whole document: there is no
	// safe partial rendering to fall back to. A non-fatal ERROR does not —
	// it is confined to whichever fragment's child carries it, rendered
	// inline as that one fragment's caution note below, while the rest of
	// the document compiles normally.
	if subtreeErrors := collectErrors(node); subtreeErrors.HasFatal() {
		return cautionNote(subtreeErrors), subtreeErrors
	}

	source, cacheErrs := cache.Get(node.Directive.Source)
	if cacheErrs.HasErrors() {
		all := append(status.List{}, node.Statuses...)
		all = append(all, cacheErrs...)
		return cautionNote(cacheErrs), all
	}

	if shared == nil {
		shared = map[string]interface{}{}
	}
	shared[sharedOptionsKey] = opts

	fragments := node.Document.Fragments
	parts := make([]part, len(fragments))
	childForFragment := make([]*planner.PlanNode, len(fragments))

	ci := 0
	for i, frag := range fragments {
		if frag.IsDirective() {
			if frag.Directive.HasSource() && ci < len(node.Children) {
				childForFragment[i] = node.Children[ci]
				ci++
			}
			continue
		}
		parts[i] = part{text: frag.Span.Slice(source), resolved: true}
	}

	order, warnings := registry.DispatchOrder(opts.PluginSequence)
	for _, w := range warnings {
		node.Statuses = append(node.Statuses, status.New(status.WARNING, "%s", w))
	}

	resolve := func(i int) {
		frag := fragments[i]
		cd := frag.Directive
		pl, ok := registry.Lookup(cd.Type)
		if !ok {
			parts[i] = part{resolved: true, text: cautionNote(status.List{
				status.New(status.ERROR, "no plugin registered for directive type %q", cd.Type),
			})}
			return
		}

		var nodeArg plugin.Node
		if cd.HasSource() {
			child := childForFragment[i]
			if child == nil || child.Document == nil {
				// A source-bearing directive whose child never reached a
				// buildable document (cycle, depth limit, missing/oversized
				// source) renders its own caution note here instead of
				// calling the plugin; the rest of the document's fragments
				// still resolve normally.
				var errs status.List
				if child != nil {
					errs = child.Statuses.Errors()
				}
				parts[i] = part{resolved: true, text: cautionNote(errs)}
				return
			}
			nodeArg = child
		} else {
			nodeArg = node
		}

		views := buildFragmentViews(fragments, parts)
		ctx := &plugin.Context{
			Cache:    cache,
			Registry: registry,
			Options:  opts.PluginOptions[cd.Type],
			Events:   events,
			Shared:   shared,
		}

		out, err := pl.Transform(nodeArg, views, ctx)
		if err != nil {
			parts[i] = part{resolved: true, text: cautionNote(status.List{
				status.New(status.ERROR, "%s: %v", pl.Name(), err),
			})}
			return
		}
		if opts.MaxEmbedSize > 0 && int64(len(out)) > opts.MaxEmbedSize {
			out = cautionNote(status.List{
				status.New(status.ERROR, "output of %q directive exceeds max_embed_size (%d bytes)", cd.Type, opts.MaxEmbedSize),
			})
		}
		parts[i] = part{resolved: true, text: out}
		if events != nil {
			events.OnDirectiveResolved(cd.Type, cd.Source)
		}
	}

	runPass := func(wantType string, matchAll bool) {
		for i, frag := range fragments {
			if !frag.IsDirective() || parts[i].resolved {
				continue
			}
			if !matchAll && frag.Directive.Type != wantType {
				continue
			}
			resolve(i)
		}
	}

	if order == nil {
		runPass("", true)
	} else {
		for _, t := range order {
			runPass(t, false)
		}
	}

	// Anything left unresolved (a directive type absent from both sequence
	// and registry) renders as a caution note rather than surviving as raw
	// YAML in the output.
	for i, frag := range fragments {
		if frag.IsDirective() && !parts[i].resolved {
			parts[i] = part{resolved: true, text: cautionNote(status.List{
				status.New(status.ERROR, "no plugin registered for directive type %q", frag.Directive.Type),
			})}
		}
	}

	var b strings.Builder
	for _, p := range parts {
		b.WriteString(p.text)
	}

	// The returned status list covers the whole subtree, not just this
	// node's own statuses, so a caller counting problems across a run sees
	// the errors rendered inline above rather than only the ones attached
	// directly to the document's root directive.
	all := append(status.List{}, node.Statuses...)
	for _, child := range node.Children {
		all = append(all, collectErrors(child)...)
	}
	return b.String(), all
}

// buildFragmentViews snapshots the parent document's current resolution
// state for a plugin's Transform: resolved spans/directives as text, and
// still-pending directives as themselves.
func buildFragmentViews(fragments []directive.Fragment, parts []part) []plugin.FragmentView {
	views := make([]plugin.FragmentView, len(fragments))
	for i, frag := range fragments {
		if parts[i].resolved {
			views[i] = plugin.FragmentView{Text: parts[i].text, IsText: true}
			continue
		}
		views[i] = plugin.FragmentView{Directive: frag.Directive}
	}
	return views
}

// collectErrors gathers a node's own error statuses plus every descendant's,
// recursively. Compile uses it to stop a document whose subtree holds a
// FATAL, and to report the subtree's errors to its caller.
func collectErrors(node *planner.PlanNode) status.List {
	var out status.List
	out = append(out, node.Statuses.Errors()...)
	for _, child := range node.Children {
		out = append(out, collectErrors(child)...)
	}
	return out
}

// cautionNote renders the two-line GFM alert embedm substitutes for a
// directive or document that failed to resolve.
func cautionNote(errs status.List) string {
	var b strings.Builder
	b.WriteString("> [!CAUTION]\n")
	if len(errs) == 0 {
		b.WriteString("> **embedm:** unresolved error\n")
		return b.String()
	}
	for _, e := range errs {
		b.WriteString("> **embedm:** ")
		b.WriteString(e.Description)
		b.WriteString("\n")
	}
	return b.String()
}
