package compiler

import (
	"testing"

	"github.com/embedm-dev/embedm/pkg/directive"
	"github.com/embedm-dev/embedm/pkg/planner"
	"github.com/embedm-dev/embedm/pkg/plugin"
	"github.com/embedm-dev/embedm/pkg/status"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCache struct {
	files map[string]string
}

func (c *fakeCache) Get(path string) (string, status.List) {
	if content, ok := c.files[path]; ok {
		return content, nil
	}
	return "", status.List{status.New(status.ERROR, "not found: %s", path)}
}

func (c *fakeCache) GetFiles(pattern string) (map[string]string, status.List) {
	return nil, nil
}

type upperPlugin struct{}

func (upperPlugin) Name() string          { return "upper" }
func (upperPlugin) APIVersion() int       { return plugin.APIVersion }
func (upperPlugin) DirectiveType() string { return "upper" }
func (upperPlugin) ValidateDirective(d directive.Directive) status.List { return nil }
func (upperPlugin) Transform(node plugin.Node, fragments []plugin.FragmentView, ctx *plugin.Context) (string, error) {
	content, _ := ctx.Cache.Get(node.NodeDirective().Source)
	out := ""
	for _, r := range content {
		if r >= 'a' && r <= 'z' {
			out += string(r - 32)
		} else {
			out += string(r)
		}
	}
	return out, nil
}

type echoOptionPlugin struct{}

func (echoOptionPlugin) Name() string          { return "echo" }
func (echoOptionPlugin) APIVersion() int       { return plugin.APIVersion }
func (echoOptionPlugin) DirectiveType() string { return "echo" }
func (echoOptionPlugin) ValidateDirective(d directive.Directive) status.List { return nil }
func (echoOptionPlugin) Transform(node plugin.Node, fragments []plugin.FragmentView, ctx *plugin.Context) (string, error) {
	return "echoed", nil
}

func TestCompilePlainTextHasNoDirectives(t *testing.T) {
	reg := plugin.NewRegistry()
	cache := &fakeCache{files: map[string]string{"/a.md": "hello world\n"}}
	p := &planner.Planner{Registry: reg, Cache: cache, MaxRecursion: 5}

	node := p.Plan(directive.Directive{Type: "root", Source: "/a.md"}, "hello world\n")
	out, _ := Compile(node, cache, reg, Options{}, nil, nil)
	assert.Equal(t, "hello world\n", out)
}

func TestCompileResolvesSourceBearingDirective(t *testing.T) {
	reg := plugin.NewRegistry(upperPlugin{})
	cache := &fakeCache{files: map[string]string{
		"/a.md":     "```yaml embedm\ntype: upper\nsource: /child.txt\n```\n",
		"/child.txt": "shout\n",
	}}
	p := &planner.Planner{Registry: reg, Cache: cache, MaxRecursion: 5}

	node := p.Plan(directive.Directive{Type: "root", Source: "/a.md"}, cache.files["/a.md"])
	out, statuses := Compile(node, cache, reg, Options{}, nil, nil)

	assert.False(t, statuses.HasErrors())
	assert.Contains(t, out, "SHOUT")
}

func TestCompileSourcelessDirectiveReceivesEnclosingNode(t *testing.T) {
	reg := plugin.NewRegistry(echoOptionPlugin{})
	content := "before\n```yaml embedm\ntype: echo\n```\nafter\n"
	cache := &fakeCache{files: map[string]string{"/a.md": content}}
	p := &planner.Planner{Registry: reg, Cache: cache, MaxRecursion: 5}

	node := p.Plan(directive.Directive{Type: "root", Source: "/a.md"}, content)
	require.Empty(t, node.Children)

	out, _ := Compile(node, cache, reg, Options{}, nil, nil)
	assert.Contains(t, out, "echoed")
	assert.Contains(t, out, "before")
	assert.Contains(t, out, "after")
}

func TestCompileErrorChildRendersCautionNote(t *testing.T) {
	reg := plugin.NewRegistry(upperPlugin{})
	cache := &fakeCache{files: map[string]string{
		"/a.md": "```yaml embedm\ntype: upper\nsource: /missing.txt\n```\n",
	}}
	p := &planner.Planner{Registry: reg, Cache: cache, MaxRecursion: 5}

	node := p.Plan(directive.Directive{Type: "root", Source: "/a.md"}, cache.files["/a.md"])
	out, statuses := Compile(node, cache, reg, Options{}, nil, nil)

	assert.True(t, statuses.HasErrors())
	assert.Contains(t, out, "[!CAUTION]")
	assert.Contains(t, out, "embedm:")
}

func TestCompileUnregisteredDirectiveTypeRendersCaution(t *testing.T) {
	reg := plugin.NewRegistry()
	content := "```yaml embedm\ntype: mystery\n```\n"
	cache := &fakeCache{files: map[string]string{"/a.md": content}}
	p := &planner.Planner{Registry: reg, Cache: cache, MaxRecursion: 5}

	node := p.Plan(directive.Directive{Type: "root", Source: "/a.md"}, content)
	out, statuses := Compile(node, cache, reg, Options{AcceptAll: true}, nil, nil)

	assert.True(t, statuses.HasErrors())
	assert.Contains(t, out, "[!CAUTION]")
}

func TestCompileEnforcesMaxEmbedSize(t *testing.T) {
	reg := plugin.NewRegistry(echoOptionPlugin{})
	content := "```yaml embedm\ntype: echo\n```\n"
	cache := &fakeCache{files: map[string]string{"/a.md": content}}
	p := &planner.Planner{Registry: reg, Cache: cache, MaxRecursion: 5}

	node := p.Plan(directive.Directive{Type: "root", Source: "/a.md"}, content)
	out, _ := Compile(node, cache, reg, Options{MaxEmbedSize: 2}, nil, nil)

	assert.Contains(t, out, "[!CAUTION]")
	assert.Contains(t, out, "max_embed_size")
}
