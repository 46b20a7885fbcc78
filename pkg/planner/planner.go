// Package planner builds the per-file plan tree: it recursively parses
// directives, validates them against the plugin registry, enforces the
// cycle and recursion-depth limits, and resolves relative source paths.
// Grounded on docforge's pkg/manifest/manifest.go tree-walk style (one
// function per concern, explicit parent/ancestor threading) and
// pkg/core/run.go's processor lookup-by-type pattern.
package planner

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/embedm-dev/embedm/pkg/directive"
	"github.com/embedm-dev/embedm/pkg/plugin"
	"github.com/embedm-dev/embedm/pkg/status"
)

// PlanNode is a directive, the statuses accumulated while planning it, the
// Document it produced (nil iff planning failed outright for this node),
// and the list of children — one per source-bearing directive found in
// that document. It implements plugin.Node so plugins can read it through
// that narrow view without this package depending on plugin internals.
type PlanNode struct {
	Directive directive.Directive
	Statuses  status.List
	Document  *directive.Document
	Children  []*PlanNode
	Artifact  interface{}
}

// NodeDirective implements plugin.Node.
func (n *PlanNode) NodeDirective() directive.Directive { return n.Directive }

// NodeArtifact implements plugin.Node.
func (n *PlanNode) NodeArtifact() interface{} { return n.Artifact }

// NodeStatuses implements plugin.Node.
func (n *PlanNode) NodeStatuses() status.List { return n.Statuses }

// Cache is the subset of the File Cache the planner needs.
type Cache interface {
	Get(path string) (string, status.List)
}

// Planner builds plan trees against a fixed plugin registry and file cache.
type Planner struct {
	Registry     *plugin.Registry
	Cache        Cache
	MaxRecursion int
	Verbose      bool
}

// Plan builds the plan tree rooted at a top-level directive whose content
// has already been loaded (by the orchestrator, from the File Cache).
func (p *Planner) Plan(root directive.Directive, content string) *PlanNode {
	ancestors := map[string]struct{}{root.Source: {}}
	return p.createPlan(root, content, 0, ancestors)
}

// createPlan implements the per-node algorithm from the Planner contract:
// parse, validate every directive, partition source-bearing directives into
// buildable and error children, recurse into buildable ones, and never
// short-circuit on a single failure.
func (p *Planner) createPlan(d directive.Directive, content string, depth int, ancestors map[string]struct{}) *PlanNode {
	node := &PlanNode{Directive: d}

	baseDir := filepath.Dir(d.Source)
	fragments, parseErrs := directive.Parse(content, baseDir)
	node.Statuses = append(node.Statuses, parseErrs...)
	node.Document = &directive.Document{Path: d.Source, Fragments: fragments}

	for _, frag := range fragments {
		if !frag.IsDirective() {
			continue
		}
		p.planDirective(node, frag.Directive, depth, ancestors)
	}

	if !node.Statuses.HasErrors() {
		node.Statuses = append(node.Statuses, status.OKStatus())
	}
	return node
}

// planDirective validates one directive found inside node's document and,
// for source-bearing directives, appends exactly one child to node.Children
// (a full recursive plan, or a leaf error node). Directive-level validation
// errors (unknown plugin, plugin-rejected directive) fold into node's own
// Statuses; directives without a source never get a child of their own —
// they are transformed directly against their enclosing node at compile
// time.
func (p *Planner) planDirective(node *PlanNode, cd directive.Directive, depth int, ancestors map[string]struct{}) {
	pl, ok := p.Registry.Lookup(cd.Type)
	if !ok {
		msg := fmt.Sprintf("no plugin registered for directive type %q", cd.Type)
		if p.Verbose {
			msg = fmt.Sprintf("%s (available: %s)", msg, strings.Join(p.Registry.Types(), ", "))
		}
		node.Statuses = append(node.Statuses, status.New(status.ERROR, "%s", msg))
		if cd.HasSource() {
			node.Children = append(node.Children, errorChild(cd, status.New(status.ERROR, "%s", msg)))
		}
		return
	}

	dstatuses := pl.ValidateDirective(cd)
	node.Statuses = append(node.Statuses, dstatuses...)
	if !cd.HasSource() {
		return
	}
	if dstatuses.HasErrors() {
		node.Children = append(node.Children, &PlanNode{Directive: cd, Statuses: dstatuses})
		return
	}

	if _, isAncestor := ancestors[cd.Source]; isAncestor {
		node.Children = append(node.Children, errorChild(cd, status.New(status.ERROR, "circular dependency detected: %s", cd.Source)))
		return
	}
	if depth >= p.MaxRecursion {
		node.Children = append(node.Children, errorChild(cd, status.New(status.ERROR, "max recursion depth reached")))
		return
	}

	childContent, cacheErrs := p.Cache.Get(cd.Source)
	if cacheErrs.HasErrors() {
		node.Children = append(node.Children, &PlanNode{Directive: cd, Statuses: cacheErrs})
		return
	}

	var artifact interface{}
	if iv, ok := pl.(plugin.InputValidator); ok {
		a, ierrs := iv.ValidateInput(cd, childContent)
		if ierrs.HasErrors() {
			node.Children = append(node.Children, &PlanNode{Directive: cd, Statuses: ierrs})
			return
		}
		artifact = a
	}

	childAncestors := make(map[string]struct{}, len(ancestors)+1)
	for k := range ancestors {
		childAncestors[k] = struct{}{}
	}
	childAncestors[cd.Source] = struct{}{}

	child := p.createPlan(cd, childContent, depth+1, childAncestors)
	child.Artifact = artifact
	node.Children = append(node.Children, child)
}

func errorChild(cd directive.Directive, s status.Status) *PlanNode {
	return &PlanNode{Directive: cd, Statuses: status.List{s}}
}
