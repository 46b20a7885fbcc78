// Package config loads the top-level YAML configuration file: the pipeline
// hard limits and the plugin dispatch order. Grounded on
// cmd/app/cmd.go's configureConfigFile/NewOptions pair — a package-level
// viper.Viper reading a YAML file, flags (bound separately by cmd/embedm)
// overriding it — and on cmd/configuration/configuration.go's posture of a
// typed Options struct decoded via mapstructure tags.
package config

import (
	"fmt"

	"github.com/spf13/viper"

	"github.com/embedm-dev/embedm/pkg/status"
)

// Config-file key names, matching spec.md §6 exactly, plus the additional
// keys this implementation exposes for plugin-level and sandbox settings.
const (
	KeyMaxFileSize        = "max_file_size"
	KeyMaxRecursion       = "max_recursion"
	KeyMaxMemory          = "max_memory"
	KeyMaxEmbedSize       = "max_embed_size"
	KeyRootDirectiveType  = "root_directive_type"
	KeyPluginSequence     = "plugin_sequence"
	KeyFileRegionStart    = "file_region_start"
	KeyFileRegionEnd      = "file_region_end"
	KeyRequireGitRoot     = "require_git_root"
)

var knownKeys = map[string]bool{
	KeyMaxFileSize:       true,
	KeyMaxRecursion:      true,
	KeyMaxMemory:         true,
	KeyMaxEmbedSize:      true,
	KeyRootDirectiveType: true,
	KeyPluginSequence:    true,
	KeyFileRegionStart:   true,
	KeyFileRegionEnd:     true,
	KeyRequireGitRoot:    true,
}

// Config is the decoded configuration file, with defaults applied for any
// key the file omits.
type Config struct {
	MaxFileSize       int64    `mapstructure:"max_file_size"`
	MaxRecursion      int      `mapstructure:"max_recursion"`
	MaxMemory         int64    `mapstructure:"max_memory"`
	MaxEmbedSize      int64    `mapstructure:"max_embed_size"`
	RootDirectiveType string   `mapstructure:"root_directive_type"`
	PluginSequence    []string `mapstructure:"plugin_sequence"`
	// FileRegionStart and FileRegionEnd override the `file` plugin's region
	// marker templates; both must contain "{tag}" (checked by
	// file.ValidatePluginConfig before the plugin is constructed). Empty
	// means use the plugin's own defaults.
	FileRegionStart string `mapstructure:"file_region_start"`
	FileRegionEnd   string `mapstructure:"file_region_end"`
	// RequireGitRoot fails the run closed when the working directory isn't
	// inside a git worktree, instead of falling back to restricting reads to
	// the current directory.
	RequireGitRoot bool `mapstructure:"require_git_root"`
}

// Default returns the configuration used when no config file is given.
func Default() Config {
	return Config{
		MaxFileSize:       10 * 1024 * 1024,
		MaxRecursion:      10,
		MaxMemory:         100 * 1024 * 1024,
		MaxEmbedSize:      0,
		RootDirectiveType: "file",
	}
}

// Load reads and decodes a YAML config file at path, falling back to
// Default() for any field it doesn't set. Unknown top-level keys produce a
// WARNING; a missing/unreadable file or a field type mismatch produces an
// ERROR. Errors/warnings are returned as a status.List rather than causing a
// bare process exit, so config problems flow through the same reporting
// channel as planning and compilation problems.
func Load(path string) (Config, status.List) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	vip := viper.New()
	vip.SetConfigFile(path)
	vip.SetConfigType("yaml")
	if err := vip.ReadInConfig(); err != nil {
		return cfg, status.List{status.New(status.ERROR, "reading config file %s: %v", path, err)}
	}

	var statuses status.List
	for _, k := range vip.AllKeys() {
		if !knownKeys[k] {
			statuses = append(statuses, status.New(status.WARNING, "unknown configuration key %q", k))
		}
	}

	if err := vip.Unmarshal(&cfg); err != nil {
		return Default(), append(statuses, status.New(status.ERROR, "decoding config file %s: %v", path, err))
	}

	if cfg.RootDirectiveType == "" {
		cfg.RootDirectiveType = "file"
	}
	statuses = append(statuses, validate(cfg)...)
	return cfg, statuses
}

func validate(cfg Config) status.List {
	var errs status.List
	if cfg.MaxRecursion < 1 {
		errs = append(errs, status.New(status.ERROR, "%s must be >= 1, got %d", KeyMaxRecursion, cfg.MaxRecursion))
	}
	if cfg.MaxMemory <= cfg.MaxFileSize {
		errs = append(errs, status.New(status.ERROR,
			"%s (%d) must exceed %s (%d)", KeyMaxMemory, cfg.MaxMemory, KeyMaxFileSize, cfg.MaxFileSize))
	}
	return errs
}

// String renders a Config for diagnostic logging.
func (c Config) String() string {
	return fmt.Sprintf(
		"max_file_size=%d max_recursion=%d max_memory=%d max_embed_size=%d root_directive_type=%s plugin_sequence=%v",
		c.MaxFileSize, c.MaxRecursion, c.MaxMemory, c.MaxEmbedSize, c.RootDirectiveType, c.PluginSequence,
	)
}
