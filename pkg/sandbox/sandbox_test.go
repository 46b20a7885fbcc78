package sandbox

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-git/go-git/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectRoot_FindsWorktreeRoot(t *testing.T) {
	dir := t.TempDir()
	_, err := git.PlainInit(dir, false)
	require.NoError(t, err)

	sub := filepath.Join(dir, "docs", "nested")
	require.NoError(t, os.MkdirAll(sub, 0o755))

	root, ok := DetectRoot(context.Background(), sub)
	require.True(t, ok)

	wantRoot, err := filepath.EvalSymlinks(dir)
	require.NoError(t, err)
	gotRoot, err := filepath.EvalSymlinks(root)
	require.NoError(t, err)
	assert.Equal(t, wantRoot, gotRoot)
}

func TestDetectRoot_NotAGitWorktree(t *testing.T) {
	dir := t.TempDir()
	_, ok := DetectRoot(context.Background(), dir)
	assert.False(t, ok)
}

func TestMustDetectRoot_ErrorsOutsideWorktree(t *testing.T) {
	dir := t.TempDir()
	_, err := MustDetectRoot(context.Background(), dir)
	assert.Error(t, err)
}
