// Command embedm is the EmbedM CLI: plan and compile directive-tagged
// Markdown files. Grounded on cmd/app/cmd.go's cobra+viper wiring style
// (Configure/configureFlags/configureConfigFile, flags bound through
// vip.BindPFlag, MarkFlagRequired where applicable), adapted to the
// embedm-specific flag set from SPEC_FULL.md §9.1 and to an explicit,
// init()-free plugin Register call list instead of blank imports, matching
// cmd/app/factory.go's explicit wiring over package-level init() magic.
package main

import (
	"context"
	goflag "flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"k8s.io/klog/v2"

	"github.com/embedm-dev/embedm/pkg/compiler"
	"github.com/embedm-dev/embedm/pkg/config"
	"github.com/embedm-dev/embedm/pkg/filecache"
	"github.com/embedm-dev/embedm/pkg/orchestrator"
	"github.com/embedm-dev/embedm/pkg/plugin"
	"github.com/embedm-dev/embedm/pkg/plugins/file"
	"github.com/embedm-dev/embedm/pkg/plugins/layout"
	"github.com/embedm-dev/embedm/pkg/plugins/querypath"
	"github.com/embedm-dev/embedm/pkg/plugins/recall"
	"github.com/embedm-dev/embedm/pkg/plugins/synopsis"
	"github.com/embedm-dev/embedm/pkg/plugins/table"
	"github.com/embedm-dev/embedm/pkg/plugins/toc"
	"github.com/embedm-dev/embedm/pkg/sandbox"
	"github.com/embedm-dev/embedm/pkg/status"
)

var vip *viper.Viper

// Options mirrors the flags/config values NewOptions decodes, the same
// mapstructure-tagged shape cmd/app/cmd.go's Options uses.
type Options struct {
	Inputs     []string `mapstructure:"inputs"`
	OutputDir  string   `mapstructure:"output-dir"`
	OutputFile string   `mapstructure:"output-file"`
	ConfigPath string   `mapstructure:"config"`
	Verbosity  int      `mapstructure:"verbosity"`
	Verify     bool     `mapstructure:"verify"`
	DryRun     bool     `mapstructure:"dry-run"`
	AcceptAll  bool     `mapstructure:"accept-all"`
	Workers    int      `mapstructure:"workers"`
}

// registerPlugins builds a plugin.Registry with every built-in plugin. No
// package-level init() is used; every registration is explicit here, the
// same posture cmd/app/factory.go takes toward wiring over blank imports.
func registerPlugins(cacheDir string, cfg config.Config) *plugin.Registry {
	return plugin.NewRegistry(
		&file.Plugin{
			RegionStart: cfg.FileRegionStart,
			RegionEnd:   cfg.FileRegionEnd,
			CompiledDir: cacheDir,
		},
		&toc.Plugin{},
		&table.Plugin{},
		&synopsis.Plugin{},
		&recall.Anchor{},
		&recall.Recall{},
		&querypath.Plugin{},
		&layout.Plugin{},
	)
}

// NewCommand builds the root cobra command.
func NewCommand(ctx context.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "embedm [input...]",
		Short: "Compile EmbedM directive blocks in Markdown files",
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			opts, err := NewOptions(args)
			if err != nil {
				return err
			}
			return run(ctx, opts)
		},
	}
	Configure(cmd)
	klog.InitFlags(nil)
	AddFlags(cmd)
	return cmd
}

// Configure wires the command's flags, the role cmd/app/cmd.go's Configure
// plays. The config file named by --config is not read here; run loads it
// through config.Load.
func Configure(command *cobra.Command) {
	vip = viper.New()
	configureFlags(command)
}

func configureFlags(command *cobra.Command) {
	command.Flags().String("output-dir", "", "Directory to write compiled output into.")
	_ = vip.BindPFlag("output-dir", command.Flags().Lookup("output-dir"))

	command.Flags().String("output-file", "", "File to write compiled output into (single-input only).")
	_ = vip.BindPFlag("output-file", command.Flags().Lookup("output-file"))

	command.MarkFlagsMutuallyExclusive("output-dir", "output-file")

	command.Flags().StringP("config", "c", "", "Path to an embedm YAML configuration file.")
	_ = vip.BindPFlag("config", command.Flags().Lookup("config"))

	command.Flags().CountP("verbosity", "v", "Verbosity level (repeatable: -v, -vv, -vvv).")
	_ = vip.BindPFlag("verbosity", command.Flags().Lookup("verbosity"))

	command.Flags().Bool("verify", false,
		"Compare compiled content against existing output files without writing; reports up-to-date/stale/missing.")
	_ = vip.BindPFlag("verify", command.Flags().Lookup("verify"))

	command.Flags().Bool("dry-run", false, "Compile without writing any output.")
	_ = vip.BindPFlag("dry-run", command.Flags().Lookup("dry-run"))

	command.Flags().Bool("accept-all", false, "Suppress interactive error prompts, treating every ERROR as non-fatal.")
	_ = vip.BindPFlag("accept-all", command.Flags().Lookup("accept-all"))

	command.Flags().Int("workers", 4, "Number of files to plan and compile concurrently.")
	_ = vip.BindPFlag("workers", command.Flags().Lookup("workers"))
}

// AddFlags wires klog's flag.FlagSet into cobra, the same mechanism
// cmd/app/cmd.go's AddFlags uses so klog's own flags (e.g. -logtostderr)
// are available alongside embedm's.
func AddFlags(command *cobra.Command) {
	goflag.CommandLine.VisitAll(func(gf *goflag.Flag) {
		command.Flags().AddGoFlag(gf)
	})
}

// NewOptions decodes bound flags into an Options. The config file itself is
// loaded later, by run.
func NewOptions(inputs []string) (*Options, error) {
	var opts Options
	if err := vip.Unmarshal(&opts); err != nil {
		return nil, fmt.Errorf("decoding CLI options: %w", err)
	}
	opts.Inputs = inputs
	if len(opts.Inputs) == 0 {
		opts.Inputs = []string{"."}
	}
	return &opts, nil
}

// run wires Options into the config loader, sandbox detection, plugin
// registry, file cache, and orchestrator, and executes one pass.
func run(ctx context.Context, opts *Options) error {
	if opts.Verbosity > 0 {
		if v := goflag.Lookup("v"); v != nil {
			_ = v.Value.Set(fmt.Sprintf("%d", opts.Verbosity))
		}
	}

	cfg, cfgStatuses := config.Load(opts.ConfigPath)
	for _, s := range cfgStatuses {
		logStatus(s)
	}
	if cfgStatuses.HasFatal() {
		return fmt.Errorf("fatal configuration error")
	}

	regionSettings := map[string]string{}
	if cfg.FileRegionStart != "" {
		regionSettings["region_start"] = cfg.FileRegionStart
	}
	if cfg.FileRegionEnd != "" {
		regionSettings["region_end"] = cfg.FileRegionEnd
	}
	regionErrs := file.ValidatePluginConfig(regionSettings)
	for _, s := range regionErrs {
		logStatus(s)
	}
	if regionErrs.HasErrors() {
		return fmt.Errorf("invalid file plugin configuration")
	}

	cwd, err := os.Getwd()
	if err != nil {
		return err
	}
	var allowRoot string
	if cfg.RequireGitRoot {
		allowRoot, err = sandbox.MustDetectRoot(ctx, cwd)
		if err != nil {
			return fmt.Errorf("embedm: require_git_root is set: %w", err)
		}
	} else if root, ok := sandbox.DetectRoot(ctx, cwd); ok {
		allowRoot = root
	} else {
		allowRoot = cwd
		klog.Warningf("embedm: %s is not inside a git worktree; restricting reads to %s", cwd, allowRoot)
	}

	cacheDir := filepath.Join(os.TempDir(), "embedm-cache")
	registry := registerPlugins(cacheDir, cfg)
	registry.LogRegistered()

	cache := filecache.New(filecache.Config{
		MaxFileSize:  cfg.MaxFileSize,
		MaxMemory:    cfg.MaxMemory,
		AllowList:    []string{allowRoot},
		WriteMode:    filecache.Overwrite,
		MaxEmbedSize: cfg.MaxEmbedSize,
	})

	mode := orchestrator.ModeWrite
	if opts.DryRun {
		mode = orchestrator.ModeDryRun
	} else if opts.Verify {
		mode = orchestrator.ModeVerify
	}

	o := orchestrator.New(orchestrator.Options{
		WorkerCount:   opts.Workers,
		Mode:          mode,
		AcceptAll:     opts.AcceptAll,
		OutputDir:     opts.OutputDir,
		OutputFile:    opts.OutputFile,
		RootDirective: cfg.RootDirectiveType,
		MaxRecursion:  cfg.MaxRecursion,
		Compiler: compiler.Options{
			PluginSequence: cfg.PluginSequence,
			MaxEmbedSize:   cfg.MaxEmbedSize,
			AcceptAll:      opts.AcceptAll,
		},
		Registry: registry,
		Cache:    cache,
		Sink: orchestrator.SinkFunc(func(e orchestrator.Event) {
			if e.Err != nil {
				klog.Errorf("embedm: %s: %v", e.Path, e.Err)
				return
			}
			klog.Infof("embedm: %s: ok=%d warning=%d error=%d fatal=%d",
				e.Path, e.Counts.OK, e.Counts.Warning, e.Counts.Error, e.Counts.Fatal)
		}),
	})

	summary, err := o.Run(ctx, opts.Inputs)
	if err != nil {
		return err
	}
	klog.Infof("embedm: session %s complete: %d file(s), ok=%d warning=%d error=%d fatal=%d",
		summary.RunID, summary.Files, summary.Counts.OK, summary.Counts.Warning, summary.Counts.Error, summary.Counts.Fatal)
	if summary.Errors != nil && summary.Errors.Len() > 0 {
		klog.Warningf("embedm: run completed with errors:\n%v", summary.Errors)
	}
	return nil
}

func logStatus(s status.Status) {
	switch s.Level {
	case status.WARNING:
		klog.Warningf("embedm: %s", s.Description)
	case status.ERROR, status.FATAL:
		klog.Errorf("embedm: %s", s.Description)
	default:
		klog.Infof("embedm: %s", s.Description)
	}
}
