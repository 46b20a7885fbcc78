package orchestrator

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/embedm-dev/embedm/pkg/filecache"
	"github.com/embedm-dev/embedm/pkg/plugin"
)

func newCache(t *testing.T, dir string) *filecache.Cache {
	t.Helper()
	return filecache.New(filecache.Config{
		MaxFileSize: 1 << 20,
		MaxMemory:   1 << 24,
		AllowList:   []string{dir},
		WriteMode:   filecache.Overwrite,
	})
}

func TestRun_LiteralPreservationNoDirectives(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "a.md")
	require.NoError(t, os.WriteFile(in, []byte("# hello\n\nno directives here\n"), 0o644))

	outDir := filepath.Join(dir, "out")
	require.NoError(t, os.MkdirAll(outDir, 0o755))

	reg := plugin.NewRegistry()
	o := New(Options{
		WorkerCount: 2,
		OutputDir:   outDir,
		Registry:    reg,
		Cache:       newCache(t, dir),
		AcceptAll:   true,
	})

	summary, err := o.Run(context.Background(), []string{in})
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Files)

	got, err := os.ReadFile(filepath.Join(outDir, "a.md"))
	require.NoError(t, err)
	assert.Equal(t, "# hello\n\nno directives here\n", string(got))
}

func TestRun_DryRunDoesNotWrite(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "a.md")
	require.NoError(t, os.WriteFile(in, []byte("plain text\n"), 0o644))
	outDir := filepath.Join(dir, "out")

	reg := plugin.NewRegistry()
	o := New(Options{
		Mode:      ModeDryRun,
		OutputDir: outDir,
		Registry:  reg,
		Cache:     newCache(t, dir),
		AcceptAll: true,
	})
	_, err := o.Run(context.Background(), []string{in})
	require.NoError(t, err)

	_, statErr := os.Stat(filepath.Join(outDir, "a.md"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestRun_VerifyReportsMissing(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "a.md")
	require.NoError(t, os.WriteFile(in, []byte("plain text\n"), 0o644))

	var got Event
	reg := plugin.NewRegistry()
	o := New(Options{
		Mode:      ModeVerify,
		OutputDir: filepath.Join(dir, "out"),
		Registry:  reg,
		Cache:     newCache(t, dir),
		AcceptAll: true,
		Sink:      SinkFunc(func(e Event) { got = e }),
	})
	_, err := o.Run(context.Background(), []string{in})
	require.NoError(t, err)
	assert.Equal(t, "missing", got.Output)
}

func TestExpandInputs_DeduplicatesGlobMatches(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.md")
	require.NoError(t, os.WriteFile(a, []byte("x"), 0o644))

	files, err := expandInputs([]string{a, filepath.Join(dir, "*.md")}, newCache(t, dir))
	require.NoError(t, err)
	assert.Len(t, files, 1)
}
