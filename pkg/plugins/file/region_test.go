package file

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractRegionBasic(t *testing.T) {
	content := "before\n// md.start:greet\nhello\nworld\n// md.end:greet\nafter\n"
	out, ok := extractRegion(content, "greet", DefaultRegionStart, DefaultRegionEnd, cStyle)
	require.True(t, ok)
	assert.Equal(t, "hello\nworld", out)
}

func TestExtractRegionCaseAndWhitespaceInsensitive(t *testing.T) {
	content := "// MD.START : greet\nbody\n// md.end:greet\n"
	out, ok := extractRegion(content, "greet", DefaultRegionStart, DefaultRegionEnd, cStyle)
	require.True(t, ok)
	assert.Equal(t, "body", out)
}

func TestExtractRegionMissingReturnsFalse(t *testing.T) {
	_, ok := extractRegion("no markers here\n", "greet", DefaultRegionStart, DefaultRegionEnd, cStyle)
	assert.False(t, ok)
}

func TestExtractRegionIgnoresMarkerInsideString(t *testing.T) {
	content := "x = \"md.start:greet\"\nreal_content\n// md.start:greet\nactual\n// md.end:greet\n"
	out, ok := extractRegion(content, "greet", DefaultRegionStart, DefaultRegionEnd, cStyle)
	require.True(t, ok)
	assert.Equal(t, "actual", out)
}

func TestExtractRegionCustomTemplate(t *testing.T) {
	content := "<!-- region:greet -->\nbody\n<!-- endregion:greet -->\n"
	out, ok := extractRegion(content, "greet", "region:{tag}", "endregion:{tag}", commentStyle{})
	require.True(t, ok)
	assert.Equal(t, "body", out)
}
