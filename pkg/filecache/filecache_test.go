package filecache

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestGet_LoadsAndCaches(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "a.md", "hello")

	c := New(Config{MaxFileSize: 1024, MaxMemory: 1024, AllowList: []string{dir}})
	content, errs := c.Get(path)
	require.Empty(t, errs)
	assert.Equal(t, "hello", content)

	content2, errs2 := c.Get(path)
	require.Empty(t, errs2)
	assert.Equal(t, "hello", content2)
}

func TestGet_OutsideAllowListIsFatal(t *testing.T) {
	dir := t.TempDir()
	other := t.TempDir()
	path := writeFile(t, other, "a.md", "hello")

	c := New(Config{MaxFileSize: 1024, MaxMemory: 1024, AllowList: []string{dir}})
	_, errs := c.Get(path)
	require.True(t, errs.HasFatal())
}

func TestGet_MissingFileIsError(t *testing.T) {
	dir := t.TempDir()
	c := New(Config{MaxFileSize: 1024, MaxMemory: 1024, AllowList: []string{dir}})
	_, errs := c.Get(filepath.Join(dir, "missing.md"))
	require.True(t, errs.HasErrors())
	assert.False(t, errs.HasFatal())
}

func TestGet_OversizedFileIsError(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "big.md", "0123456789")

	c := New(Config{MaxFileSize: 5, MaxMemory: 1024, AllowList: []string{dir}})
	_, errs := c.Get(path)
	require.True(t, errs.HasErrors())
}

func TestGetFiles_GlobCollectsMatches(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.md", "A")
	writeFile(t, dir, "b.md", "B")

	c := New(Config{MaxFileSize: 1024, MaxMemory: 1024, AllowList: []string{dir}})
	files, errs := c.GetFiles(filepath.Join(dir, "*.md"))
	require.Empty(t, errs)
	assert.Len(t, files, 2)
}

func TestWrite_OverwriteReplacesExisting(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "out.md", "old")

	c := New(Config{MaxFileSize: 1024, MaxMemory: 1024, AllowList: []string{dir}, WriteMode: Overwrite})
	target, err := c.Write(dir, "out.md", "new")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "out.md"), target)

	got, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, "new", string(got))
}

func TestWrite_CreateNewNumbersSiblings(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "out.md", "old")

	c := New(Config{MaxFileSize: 1024, MaxMemory: 1024, AllowList: []string{dir}, WriteMode: CreateNew})
	target, err := c.Write(dir, "out.md", "new")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "out.0.md"), target)
}

func TestWrite_OutsideAllowListErrors(t *testing.T) {
	dir := t.TempDir()
	other := t.TempDir()

	c := New(Config{MaxFileSize: 1024, MaxMemory: 1024, AllowList: []string{dir}})
	_, err := c.Write(other, "out.md", "new")
	assert.Error(t, err)
}

func TestEviction_KeepsMemoryWithinBudget(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, dir, "a.md", "aaaaaaaaaa")
	b := writeFile(t, dir, "b.md", "bbbbbbbbbb")

	c := New(Config{MaxFileSize: 1024, MaxMemory: 15, AllowList: []string{dir}})
	_, errs := c.Get(a)
	require.Empty(t, errs)
	_, errs = c.Get(b)
	require.Empty(t, errs)

	assert.LessOrEqual(t, c.memUsed, int64(15))
}

func TestEviction_ReaccessAfterEvictionReloadsFromDisk(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, dir, "a.md", "aaaaaaaaaa")
	b := writeFile(t, dir, "b.md", "bbbbbbbbbb")

	c := New(Config{MaxFileSize: 1024, MaxMemory: 15, AllowList: []string{dir}})
	_, _ = c.Get(a)
	_, _ = c.Get(b) // evicts a's content, leaving a tombstone

	content, errs := c.Get(a)
	require.Empty(t, errs)
	assert.Equal(t, "aaaaaaaaaa", content)
}

func TestAllowed_GlobEntry(t *testing.T) {
	dir := t.TempDir()
	c := New(Config{AllowList: []string{filepath.Join(dir, "*.md")}})
	assert.True(t, c.Allowed(filepath.Join(dir, "a.md")))
}

func TestAllowed_PrefixDoesNotMatchSiblingWithSamePrefix(t *testing.T) {
	dir := t.TempDir()
	allowedSub := filepath.Join(dir, "a")
	require.NoError(t, os.Mkdir(allowedSub, 0o755))

	c := New(Config{AllowList: []string{allowedSub}})
	assert.False(t, c.Allowed(filepath.Join(dir, "abc", "file.md")))
}
