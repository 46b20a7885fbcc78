package layout

import (
	"testing"

	"github.com/embedm-dev/embedm/pkg/directive"
	"github.com/stretchr/testify/assert"
)

func TestParseSize(t *testing.T) {
	cases := []struct {
		in   string
		v, u string
	}{
		{"30%", "30", "%"},
		{"300px", "300", "px"},
		{"auto", "auto", ""},
		{"", "auto", ""},
		{"300", "300", "px"},
	}
	for _, c := range cases {
		v, u := parseSize(c.in)
		assert.Equal(t, c.v, v, c.in)
		assert.Equal(t, c.u, u, c.in)
	}
}

func TestSizeToFlex(t *testing.T) {
	assert.Equal(t, "1 1 auto", sizeToFlex(""))
	assert.Equal(t, "0 0 30%", sizeToFlex("30%"))
	assert.Equal(t, "0 0 300px", sizeToFlex("300px"))
}

func TestParseBorder(t *testing.T) {
	assert.Equal(t, "1px solid #ccc", parseBorder("true"))
	assert.Equal(t, "", parseBorder("false"))
	assert.Equal(t, "2px solid #000", parseBorder("2px #000"))
	assert.Equal(t, "2px dashed red", parseBorder("2px dashed red"))
}

func TestParseSections(t *testing.T) {
	raw := "- size: 30%\n  embed:\n    type: file\n    source: a.md\n- size: auto\n  embed:\n    type: file\n    source: b.md\n"
	secs, err := parseSections(raw)
	assert.NoError(t, err)
	assert.Len(t, secs, 2)
	assert.Equal(t, "30%", secs[0].Size)
	assert.Equal(t, "file", secs[0].Embed["type"])
}

func TestValidateDirective_RejectsSource(t *testing.T) {
	p := &Plugin{}
	d := directive.Directive{Type: "layout", Source: "/x/y.md"}
	errs := p.ValidateDirective(d)
	assert.True(t, errs.HasErrors())
}
