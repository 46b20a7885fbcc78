// Package directive defines the data model produced by the Directive Parser:
// spans of literal text, typed directive blocks, and the document they form.
package directive

// Directive is an immutable value parsed out of a ```yaml embedm fence.
// Source, once parsed, is always stored in resolved-absolute form.
type Directive struct {
	Type    string
	Source  string
	Options map[string]string
}

// Option returns an option value and whether it was present.
func (d Directive) Option(key string) (string, bool) {
	v, ok := d.Options[key]
	return v, ok
}

// HasSource reports whether the directive names a source file.
func (d Directive) HasSource() bool {
	return d.Source != ""
}

// Span is an immutable (offset, length) pair into the source that produced
// it. Spans own no text; resolve them against a freshly retrieved copy of the
// originating content.
type Span struct {
	Offset int
	Length int
}

// Slice resolves a span against the source string it was computed from.
func (s Span) Slice(source string) string {
	return source[s.Offset : s.Offset+s.Length]
}

// Fragment is either a literal Span or a Directive. Exactly one of the two
// pointer-ish fields is meaningful; IsDirective distinguishes them.
type Fragment struct {
	Span        Span
	Directive   Directive
	isDirective bool
}

// IsDirective reports whether this fragment holds a Directive rather than a
// literal Span.
func (f Fragment) IsDirective() bool {
	return f.isDirective
}

// NewSpanFragment builds a literal-text fragment.
func NewSpanFragment(s Span) Fragment {
	return Fragment{Span: s}
}

// NewDirectiveFragment builds a directive fragment.
func NewDirectiveFragment(d Directive) Fragment {
	return Fragment{Directive: d, isDirective: true}
}

// Document pairs the absolute path of the file a fragment list came from with
// that ordered fragment list.
type Document struct {
	Path      string
	Fragments []Fragment
}
