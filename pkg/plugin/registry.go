package plugin

import (
	"fmt"
	"sort"

	"k8s.io/klog/v2"
)

// Registry holds the process's plugins keyed by directive type. It is
// populated once at startup and is read-only thereafter, the same posture
// as docforge's registry.registry: built with NewRegistry(hosts...) and
// never mutated again.
type Registry struct {
	byType map[string]Plugin
}

// NewRegistry builds a registry from a set of plugins, keyed by their
// declared directive type. Later entries in plugins silently override
// earlier ones for the same type, mirroring first-match-wins lookups
// elsewhere in this codebase only in the sense that registration order is
// caller-controlled and explicit, never driven by package init().
func NewRegistry(plugins ...Plugin) *Registry {
	r := &Registry{byType: map[string]Plugin{}}
	for _, p := range plugins {
		r.byType[p.DirectiveType()] = p
	}
	return r
}

// Lookup returns the plugin registered for a directive type, if any.
func (r *Registry) Lookup(directiveType string) (Plugin, bool) {
	p, ok := r.byType[directiveType]
	return p, ok
}

// Types lists every registered directive type, for verbose "unknown plugin"
// diagnostics.
func (r *Registry) Types() []string {
	out := make([]string, 0, len(r.byType))
	for t := range r.byType {
		out = append(out, t)
	}
	return out
}

// DispatchOrder resolves the configured plugin_sequence against the
// registered plugins: named types missing from the registry produce a
// WARNING (returned to the caller to log), registered types not named in
// sequence are appended at the end in sorted (alphabetical) order. An empty sequence
// means "single pass, source order" and is signalled by a nil return.
func (r *Registry) DispatchOrder(sequence []string) (order []string, warnings []string) {
	if len(sequence) == 0 {
		return nil, nil
	}
	seen := map[string]bool{}
	for _, t := range sequence {
		if _, ok := r.byType[t]; !ok {
			warnings = append(warnings, fmt.Sprintf("plugin_sequence names unresolved plugin type %q", t))
			continue
		}
		if !seen[t] {
			order = append(order, t)
			seen[t] = true
		}
	}
	// deterministic-order extras: iterate byType in a stable way by
	// sorting type names so repeated runs produce the same dispatch order.
	extras := []string{}
	for t := range r.byType {
		if !seen[t] {
			extras = append(extras, t)
		}
	}
	sort.Strings(extras)
	order = append(order, extras...)
	return order, warnings
}

// LogRegistered logs every registered plugin at startup, the way
// registry.registry logs rate limits at the end of a run.
func (r *Registry) LogRegistered() {
	for t, p := range r.byType {
		klog.Infof("plugin %s registered for directive type %q (api v%d)\n", p.Name(), t, p.APIVersion())
	}
}
