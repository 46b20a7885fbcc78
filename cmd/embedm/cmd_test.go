package main

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCommand_FlagsBound(t *testing.T) {
	cmd := NewCommand(context.Background())
	flags := []string{"output-dir", "output-file", "config", "verbosity", "verify", "dry-run", "accept-all", "workers"}
	for _, f := range flags {
		assert.NotNil(t, cmd.Flags().Lookup(f), "expected flag %q to be registered", f)
	}
}

func TestNewOptions_DefaultsToCurrentDirectory(t *testing.T) {
	NewCommand(context.Background())
	opts, err := NewOptions(nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"."}, opts.Inputs)
}

func TestNewOptions_PassesThroughGivenInputs(t *testing.T) {
	NewCommand(context.Background())
	opts, err := NewOptions([]string{"a.md", "b.md"})
	require.NoError(t, err)
	assert.Equal(t, []string{"a.md", "b.md"}, opts.Inputs)
}
