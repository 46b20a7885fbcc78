package file

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseLineRangeSingle(t *testing.T) {
	start, end, ok := parseLineRange("5")
	assert.True(t, ok)
	assert.Equal(t, 5, start)
	assert.Equal(t, 5, end)
}

func TestParseLineRangeInclusive(t *testing.T) {
	start, end, ok := parseLineRange("3..7")
	assert.True(t, ok)
	assert.Equal(t, 3, start)
	assert.Equal(t, 7, end)
}

func TestParseLineRangeOpenEnded(t *testing.T) {
	start, end, ok := parseLineRange("4..")
	assert.True(t, ok)
	assert.Equal(t, 4, start)
	assert.Equal(t, -1, end)
}

func TestParseLineRangeOpenStarted(t *testing.T) {
	start, end, ok := parseLineRange("..6")
	assert.True(t, ok)
	assert.Equal(t, 1, start)
	assert.Equal(t, 6, end)
}

func TestParseLineRangeRejectsDashSyntax(t *testing.T) {
	_, _, ok := parseLineRange("3-7")
	assert.False(t, ok)
}

func TestParseLineRangeRejectsBackwardsRange(t *testing.T) {
	_, _, ok := parseLineRange("7..3")
	assert.False(t, ok)
}

func TestExtractLinesInclusive(t *testing.T) {
	content := "one\ntwo\nthree\nfour\nfive\n"
	out, ok := extractLines(content, "2..4")
	assert.True(t, ok)
	assert.Equal(t, "two\nthree\nfour", out)
}

func TestExtractLinesOpenEnded(t *testing.T) {
	content := "one\ntwo\nthree\n"
	out, ok := extractLines(content, "2..")
	assert.True(t, ok)
	assert.Equal(t, "two\nthree\n", out)
}
