// Package orchestrator expands CLI input arguments into a deduplicated file
// list, plans and compiles each one on a bounded worker pool, and writes
// results through the file cache's write modes. Grounded on
// pkg/nodeplugins/markdown/plugin.go's NewPlugin(workerCount, failFast, wg,
// ...) constructor shape (a worker pool wrapping a single-threaded per-node
// algorithm) and on pkg/workers/taskqueue/taskqueue_collection.go's
// LogTaskProcessed/GetErrorList pair for the session summary.
package orchestrator

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"k8s.io/klog/v2"

	"github.com/embedm-dev/embedm/pkg/compiler"
	"github.com/embedm-dev/embedm/pkg/directive"
	"github.com/embedm-dev/embedm/pkg/filecache"
	"github.com/embedm-dev/embedm/pkg/planner"
	"github.com/embedm-dev/embedm/pkg/plugin"
	"github.com/embedm-dev/embedm/pkg/status"
)

// Decision is the user's (or --accept-all's) answer to an error prompt.
type Decision int

const (
	// DecisionContinue proceeds to the next file, keeping the errored file's
	// partial output.
	DecisionContinue Decision = iota
	// DecisionSkip discards the errored file's output entirely.
	DecisionSkip
	// DecisionExit aborts the run immediately.
	DecisionExit
	// DecisionAlways behaves like DecisionContinue for this file and all
	// remaining files, without prompting again.
	DecisionAlways
)

// Prompter asks the user how to proceed after a file compiles with ERROR
// (but not FATAL) statuses. AcceptAll skips straight to DecisionAlways.
type Prompter func(path string, statuses status.List) Decision

// Event is a progress notification the orchestrator emits as files finish.
type Event struct {
	RunID  string
	Path   string
	Output string
	Counts status.Counts
	Err    error
}

// Sink receives Events as they occur. Implementations must be safe for
// concurrent use; the orchestrator calls Sink from worker goroutines.
type Sink interface {
	OnEvent(Event)
}

// SinkFunc adapts a plain function to Sink.
type SinkFunc func(Event)

// OnEvent implements Sink.
func (f SinkFunc) OnEvent(e Event) { f(e) }

// Mode selects what the orchestrator does with compiled output.
type Mode int

const (
	// ModeWrite compiles and writes output via the Cache's write mode.
	ModeWrite Mode = iota
	// ModeDryRun compiles but does not write; Events report what would be
	// written.
	ModeDryRun
	// ModeVerify compares compiled content against existing output without
	// writing, reporting up-to-date/stale/missing via Event.Output.
	ModeVerify
)

// Options configures one orchestrator run.
type Options struct {
	WorkerCount  int
	Mode         Mode
	AcceptAll    bool
	Prompter     Prompter
	OutputDir    string
	OutputFile   string
	RootDirective string // directive type synthesized for each root input, e.g. "file"
	MaxRecursion int
	Compiler     compiler.Options
	Registry     *plugin.Registry
	Cache        *filecache.Cache
	Sink         Sink
}

// Orchestrator runs the planning/compilation pipeline across many input
// files on a bounded worker pool.
type Orchestrator struct {
	opts  Options
	runID string
}

// New builds an Orchestrator. WorkerCount <= 0 is treated as 1.
func New(opts Options) *Orchestrator {
	if opts.WorkerCount <= 0 {
		opts.WorkerCount = 1
	}
	if opts.RootDirective == "" {
		opts.RootDirective = "file"
	}
	if opts.MaxRecursion <= 0 {
		opts.MaxRecursion = 10
	}
	return &Orchestrator{opts: opts, runID: uuid.New().String()}
}

// Summary aggregates the outcome of an orchestrator run.
type Summary struct {
	RunID    string
	Counts   status.Counts
	Files    int
	Errors   *multierror.Error
}

// Run expands inputs into a deduplicated file list and processes each one,
// fanning out across a bounded pool of workers the same shape as
// pkg/nodeplugins/markdown/plugin.go's worker pool: one goroutine per slot,
// each doing one file's planning+compilation synchronously, no interleaving
// within a file.
func (o *Orchestrator) Run(ctx context.Context, inputs []string) (Summary, error) {
	files, err := expandInputs(inputs, o.opts.Cache)
	if err != nil {
		return Summary{}, err
	}
	klog.Infof("embedm run %s: %d input file(s) after dedup", o.runID, len(files))

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		summary  = Summary{RunID: o.runID}
		jobs     = make(chan string)
		decision Decision
		exit     bool
	)

	worker := func() {
		defer wg.Done()
		for path := range jobs {
			mu.Lock()
			if exit {
				mu.Unlock()
				continue
			}
			mu.Unlock()

			out, stats, perr := o.compileFile(ctx, path)
			counts := countsFromList(stats)

			mu.Lock()
			summary.Files++
			summary.Counts.OK += counts.OK
			summary.Counts.Warning += counts.Warning
			summary.Counts.Error += counts.Error
			summary.Counts.Fatal += counts.Fatal
			if perr != nil {
				summary.Errors = multierror.Append(summary.Errors, fmt.Errorf("%s: %w", path, perr))
			}
			keep := true
			decideExit := false
			if perr == nil && counts.Error > 0 && counts.Fatal == 0 && decision != DecisionAlways {
				d := DecisionContinue
				if o.opts.Prompter != nil && !o.opts.AcceptAll {
					d = o.opts.Prompter(path, stats)
				} else {
					d = DecisionAlways
				}
				switch d {
				case DecisionSkip:
					keep = false
				case DecisionExit:
					keep = false
					decideExit = true
				case DecisionAlways:
					decision = DecisionAlways
				}
			}
			if decideExit {
				exit = true
			}
			mu.Unlock()

			finalOut := out
			var ferr error
			if perr == nil && keep {
				finalOut, ferr = o.finalize(path, out)
				if ferr != nil {
					mu.Lock()
					summary.Errors = multierror.Append(summary.Errors, fmt.Errorf("%s: %w", path, ferr))
					mu.Unlock()
				}
			}

			if o.opts.Sink != nil {
				evtErr := perr
				if evtErr == nil {
					evtErr = ferr
				}
				o.opts.Sink.OnEvent(Event{RunID: o.runID, Path: path, Output: finalOut, Counts: counts, Err: evtErr})
			}
		}
	}

	for i := 0; i < o.opts.WorkerCount; i++ {
		wg.Add(1)
		go worker()
	}
	for _, f := range files {
		jobs <- f
	}
	close(jobs)
	wg.Wait()

	klog.Infof("embedm run %s processed: %d file(s) (ok=%d warning=%d error=%d fatal=%d)",
		o.runID, summary.Files, summary.Counts.OK, summary.Counts.Warning, summary.Counts.Error, summary.Counts.Fatal)
	return summary, nil
}

// compileFile plans and compiles a single file, without writing or
// comparing anything — the decision of whether the result is kept, skipped,
// or aborts the run is made by the caller (Run's prompt loop) before any
// output is produced on disk.
func (o *Orchestrator) compileFile(ctx context.Context, path string) (string, status.List, error) {
	content, errs := o.opts.Cache.Get(path)
	if errs.HasErrors() {
		return "", errs, fmt.Errorf("reading %s: %s", path, errs[0].Description)
	}

	root := directive.Directive{Type: o.opts.RootDirective, Source: path}
	pl := &planner.Planner{Registry: o.opts.Registry, Cache: o.opts.Cache, MaxRecursion: o.opts.MaxRecursion}
	node := pl.Plan(root, content)

	shared := map[string]interface{}{}
	out, stats := compiler.Compile(node, o.opts.Cache, o.opts.Registry, o.opts.Compiler, nil, shared)
	return out, stats, nil
}

// finalize applies Mode to a compiled result the prompt loop has decided to
// keep: write it, compare it against existing output, or pass it through
// unwritten for a dry run.
func (o *Orchestrator) finalize(path, out string) (string, error) {
	switch o.opts.Mode {
	case ModeDryRun:
		return out, nil
	case ModeVerify:
		return verify(path, out, o.opts.OutputDir, o.opts.OutputFile), nil
	default:
		dest := o.destination(path)
		if _, err := o.opts.Cache.Write(filepath.Dir(dest), filepath.Base(dest), out); err != nil {
			return out, err
		}
		return out, nil
	}
}

func (o *Orchestrator) destination(inputPath string) string {
	if o.opts.OutputFile != "" {
		return o.opts.OutputFile
	}
	if o.opts.OutputDir != "" {
		return filepath.Join(o.opts.OutputDir, filepath.Base(inputPath))
	}
	return inputPath
}

func countsFromList(l status.List) status.Counts {
	var c status.Counts
	c.Add(l)
	return c
}

// expandInputs resolves each input argument through the file cache's
// GetFiles, so a glob that matches a path outside the configured allow-list
// surfaces as a logged warning here rather than failing deep inside a
// worker's plan/compile call. An argument that matches nothing (a literal
// path that doesn't exist yet, or a glob metacharacter-free pattern) is kept
// as-is so the later per-file read still produces its own not-found status.
func expandInputs(inputs []string, cache *filecache.Cache) ([]string, error) {
	seen := map[string]bool{}
	var out []string
	for _, in := range inputs {
		matched, statuses := cache.GetFiles(in)
		for _, s := range statuses {
			klog.Warningf("embedm: %s", s.Description)
		}
		matches := make([]string, 0, len(matched))
		for m := range matched {
			matches = append(matches, m)
		}
		sort.Strings(matches)
		if len(matches) == 0 {
			matches = []string{in}
		}
		for _, m := range matches {
			abs, err := filepath.Abs(m)
			if err != nil {
				return nil, err
			}
			if seen[abs] {
				continue
			}
			seen[abs] = true
			out = append(out, abs)
		}
	}
	sort.Strings(out)
	return out, nil
}

// verify compares compiled content against the existing output file for
// path and reports one of "up-to-date", "stale", "missing" without writing.
func verify(inputPath, compiled, outputDir, outputFile string) string {
	dest := inputPath
	if outputFile != "" {
		dest = outputFile
	} else if outputDir != "" {
		dest = filepath.Join(outputDir, filepath.Base(inputPath))
	}

	existing, err := os.ReadFile(dest)
	if err != nil {
		return "missing"
	}
	if string(existing) == compiled {
		return "up-to-date"
	}
	return "stale"
}

