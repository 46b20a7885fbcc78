package synopsis

import (
	"testing"

	"github.com/embedm-dev/embedm/pkg/directive"
	"github.com/embedm-dev/embedm/pkg/plugin"
	"github.com/embedm-dev/embedm/pkg/status"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type planNode struct {
	d directive.Directive
}

func (n planNode) NodeDirective() directive.Directive { return n.d }
func (n planNode) NodeArtifact() interface{}          { return nil }
func (n planNode) NodeStatuses() status.List          { return nil }

type fakeCache struct {
	content string
}

func (c fakeCache) Get(string) (string, status.List)              { return c.content, nil }
func (c fakeCache) GetFiles(string) (map[string]string, status.List) { return nil, nil }

func TestTransform_FirstParagraphTwoSentences(t *testing.T) {
	p := &Plugin{}
	d := directive.Directive{Type: "synopsis", Source: "/x/a.md"}
	ctx := &plugin.Context{Cache: fakeCache{"# Title\n\nFirst sentence here. Second sentence here. Third sentence here.\n"}}
	out, err := p.Transform(planNode{d}, nil, ctx)
	require.NoError(t, err)
	assert.Equal(t, "First sentence here. Second sentence here.", out)
}

func TestTransform_NoParagraph(t *testing.T) {
	p := &Plugin{}
	d := directive.Directive{Type: "synopsis", Source: "/x/a.md"}
	ctx := &plugin.Context{Cache: fakeCache{"# Title\n\n## Subtitle\n"}}
	out, err := p.Transform(planNode{d}, nil, ctx)
	require.NoError(t, err)
	assert.Equal(t, "> [!NOTE]\n> no synopsis available\n", out)
}

func TestTransform_MaxCharsTruncates(t *testing.T) {
	p := &Plugin{}
	d := directive.Directive{
		Type:    "synopsis",
		Source:  "/x/a.md",
		Options: map[string]string{"sentences": "1", "max_chars": "10"},
	}
	ctx := &plugin.Context{Cache: fakeCache{"This is a very long sentence that exceeds the limit.\n"}}
	out, err := p.Transform(planNode{d}, nil, ctx)
	require.NoError(t, err)
	assert.LessOrEqual(t, len([]rune(out)), 10)
}

func TestTransform_FrontmatterSummaryOverridesFirstParagraph(t *testing.T) {
	p := &Plugin{}
	d := directive.Directive{Type: "synopsis", Source: "/x/a.md"}
	content := "---\nsummary: An explicit summary from frontmatter.\n---\n\n# Title\n\nFirst paragraph text.\n"
	ctx := &plugin.Context{Cache: fakeCache{content}}
	out, err := p.Transform(planNode{d}, nil, ctx)
	require.NoError(t, err)
	assert.Equal(t, "An explicit summary from frontmatter.", out)
}

func TestValidateDirective_RequiresSource(t *testing.T) {
	p := &Plugin{}
	errs := p.ValidateDirective(directive.Directive{Type: "synopsis"})
	require.True(t, errs.HasErrors())
}

func TestValidateDirective_InvalidSentences(t *testing.T) {
	p := &Plugin{}
	d := directive.Directive{Type: "synopsis", Source: "/x/a.md", Options: map[string]string{"sentences": "0"}}
	errs := p.ValidateDirective(d)
	require.True(t, errs.HasErrors())
}
