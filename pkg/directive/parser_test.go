package directive

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_LiteralTextNoDirectives(t *testing.T) {
	src := "# Title\n\nSome text.\n"
	fragments, statuses := Parse(src, "/docs")
	require.Empty(t, statuses)
	require.Len(t, fragments, 1)
	assert.False(t, fragments[0].IsDirective())
	assert.Equal(t, src, fragments[0].Span.Slice(src))
}

func TestParse_SingleDirectiveBlock(t *testing.T) {
	src := "before\n\n```yaml embedm\ntype: file\nsource: ./other.md\n```\n\nafter\n"
	fragments, statuses := Parse(src, "/docs")
	require.Empty(t, statuses)
	require.Len(t, fragments, 3)
	assert.False(t, fragments[0].IsDirective())
	assert.True(t, fragments[1].IsDirective())
	assert.Equal(t, "file", fragments[1].Directive.Type)
	assert.Equal(t, "/docs/other.md", fragments[1].Directive.Source)
	assert.False(t, fragments[2].IsDirective())
}

func TestParse_StrictFenceDoesNotMatchLooserForm(t *testing.T) {
	src := "```yaml\ntype: file\nsource: a.md\n```\n"
	fragments, statuses := Parse(src, "/docs")
	require.Empty(t, statuses)
	require.Len(t, fragments, 1)
	assert.False(t, fragments[0].IsDirective())
}

func TestParse_MissingTypeIsError(t *testing.T) {
	src := "```yaml embedm\nsource: a.md\n```\n"
	_, statuses := Parse(src, "/docs")
	assert.True(t, statuses.HasErrors())
}

func TestParse_MalformedYAMLIsError(t *testing.T) {
	src := "```yaml embedm\ntype: [unterminated\n```\n"
	_, statuses := Parse(src, "/docs")
	assert.True(t, statuses.HasErrors())
}

func TestParse_UnclosedFenceTruncatesAndErrors(t *testing.T) {
	src := "before\n```yaml embedm\ntype: file\n"
	fragments, statuses := Parse(src, "/docs")
	assert.True(t, statuses.HasErrors())
	require.Len(t, fragments, 1)
	assert.Equal(t, "before\n", fragments[0].Span.Slice(src))
}

func TestParse_OtherKeysBecomeStringOptions(t *testing.T) {
	src := "```yaml embedm\ntype: file\nsource: a.md\nlines: 1-3\ninline: true\n```\n"
	fragments, _ := Parse(src, "/docs")
	require.Len(t, fragments, 1)
	d := fragments[0].Directive
	assert.Equal(t, "1-3", d.Options["lines"])
	assert.Equal(t, "True", d.Options["inline"])
}

func TestParse_AbsoluteSourcePassesThrough(t *testing.T) {
	src := "```yaml embedm\ntype: file\nsource: /abs/path.md\n```\n"
	fragments, _ := Parse(src, "/docs")
	require.Len(t, fragments, 1)
	assert.Equal(t, "/abs/path.md", fragments[0].Directive.Source)
}

func TestParse_PathCanonicalisation(t *testing.T) {
	src1 := "```yaml embedm\ntype: file\nsource: ./sub/../other.md\n```\n"
	src2 := "```yaml embedm\ntype: file\nsource: other.md\n```\n"
	f1, _ := Parse(src1, "/docs")
	f2, _ := Parse(src2, "/docs")
	assert.Equal(t, f1[0].Directive.Source, f2[0].Directive.Source)
}
