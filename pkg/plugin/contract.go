// Package plugin defines the contract every directive-type handler
// implements, and the read-only-after-init registry the Planner and Compiler
// look plugins up through. Modeled on docforge's nodeplugins.Interface and
// manifestplugins.Interface: a closed capability set selected by a type
// string, no subtyping required beyond the one interface.
package plugin

import (
	"github.com/embedm-dev/embedm/pkg/directive"
	"github.com/embedm-dev/embedm/pkg/status"
)

// APIVersion is the contract version plugins declare compatibility with.
const APIVersion = 1

// Node is the minimal view of a plan node a plugin's Transform needs: the
// directive it was planned from, any artifact attached during input
// validation, and the statuses accumulated for its subtree. It is satisfied
// structurally by planner.PlanNode so this package never imports planner.
type Node interface {
	NodeDirective() directive.Directive
	NodeArtifact() interface{}
	NodeStatuses() status.List
}

// Cache is the subset of the File Cache a plugin needs. filecache.Cache
// satisfies this structurally.
type Cache interface {
	Get(path string) (string, status.List)
	GetFiles(pattern string) (map[string]string, status.List)
}

// FragmentView is one element of the "parent fragments so far" list handed
// to Transform: either already-resolved text or a directive that a later
// pass will still transform.
type FragmentView struct {
	Text      string
	IsText    bool
	Directive directive.Directive
}

// Context carries everything a Transform needs beyond its own node: the file
// cache, the plugin registry (so one plugin can look up another, e.g. recall
// looking up recall-anchor's output), this plugin's own per-run option
// overrides, and an optional event sink for progress reporting.
type Context struct {
	Cache    Cache
	Registry *Registry
	Options  map[string]string
	Events   EventSink
	Shared   map[string]interface{}
}

// EventSink receives progress notifications during compilation. nil means no
// reporting.
type EventSink interface {
	OnDirectiveResolved(directiveType string, source string)
}

// Plugin is the capability set every directive handler implements.
type Plugin interface {
	// Name is the plugin's own identifier, independent of directive type.
	Name() string
	// APIVersion is the contract version this plugin was built against.
	APIVersion() int
	// DirectiveType is the `type:` value this plugin handles.
	DirectiveType() string
	// ValidateDirective checks a parsed directive's options before any
	// source is read. Returning a list with an ERROR or FATAL status marks
	// the corresponding plan node unbuildable.
	ValidateDirective(d directive.Directive) status.List
	// Transform turns a planned child node into replacement text.
	Transform(node Node, fragments []FragmentView, ctx *Context) (string, error)
}

// InputValidator is implemented by plugins that want to inspect a
// directive's loaded source content before planning recurses into it, and
// optionally attach an artifact for their own later Transform to reuse. Not
// every plugin needs this, hence the separate, optional interface.
type InputValidator interface {
	ValidateInput(d directive.Directive, content string) (artifact interface{}, errs status.List)
}
