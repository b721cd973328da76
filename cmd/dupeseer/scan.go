package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/user/dupeseer/internal/config"
	"github.com/user/dupeseer/internal/logging"
	"github.com/user/dupeseer/internal/pipeline"
	"github.com/user/dupeseer/internal/progress"
	"github.com/user/dupeseer/internal/types"
)

// similarPresetThreshold is the threshold the --similar preset applies: a
// separate front-end preset over the same core, not a second configuration
// axis.
const similarPresetThreshold = 9

// scanOptions holds CLI flags for the scan command.
type scanOptions struct {
	algorithm     string
	threshold     int
	includeHidden bool
	workers       int
	deadline      string
	similar       bool
	cacheDir      string
	noProgress    bool
	verbose       bool
}

func newScanCmd() *cobra.Command {
	opts := &scanOptions{
		algorithm: "difference",
		threshold: types.DefaultThreshold,
	}

	cmd := &cobra.Command{
		Use:   "scan [paths...]",
		Short: "Scan one or more directories for duplicate and near-duplicate photos",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScan(cmd, args, opts)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&opts.algorithm, "algorithm", "a", opts.algorithm, "Hash algorithm: average, difference, perceptual, or fusion")
	flags.IntVarP(&opts.threshold, "threshold", "t", opts.threshold, "Hamming distance threshold (0-10)")
	flags.BoolVar(&opts.includeHidden, "include-hidden", false, "Include hidden files and directories")
	flags.IntVarP(&opts.workers, "workers", "w", 0, "Number of parallel workers (0 = logical cores)")
	flags.StringVar(&opts.deadline, "deadline", "", "Abort the scan if it runs longer than this duration (e.g. 30s, 5m)")
	flags.BoolVar(&opts.similar, "similar", false, "Preset for loosely similar photos: fusion algorithm, higher threshold")
	flags.StringVar(&opts.cacheDir, "cache-dir", "", "Directory for the persistent hash cache (empty disables caching)")
	flags.BoolVar(&opts.noProgress, "no-progress", false, "Disable progress bars")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "Enable debug logging")

	return cmd
}

func runScan(cmd *cobra.Command, args []string, opts *scanOptions) error {
	overrides := map[string]any{"paths": args}
	flags := cmd.Flags()
	if flags.Changed("algorithm") {
		overrides["algorithm"] = opts.algorithm
	}
	if flags.Changed("threshold") {
		overrides["threshold"] = opts.threshold
	}
	if flags.Changed("include-hidden") {
		overrides["include_hidden"] = opts.includeHidden
	}
	if flags.Changed("workers") {
		overrides["workers"] = opts.workers
	}
	if flags.Changed("cache-dir") {
		overrides["cache_directory"] = opts.cacheDir
	}
	if flags.Changed("no-progress") {
		overrides["no_progress"] = opts.noProgress
	}
	if flags.Changed("verbose") {
		overrides["verbose"] = opts.verbose
	}
	if opts.similar {
		if !flags.Changed("algorithm") {
			overrides["algorithm"] = types.Fusion.String()
		}
		if !flags.Changed("threshold") {
			overrides["threshold"] = similarPresetThreshold
		}
	}
	if opts.deadline != "" {
		d, err := time.ParseDuration(opts.deadline)
		if err != nil {
			return &types.ScanError{Kind: types.KindConfig, Detail: "invalid --deadline", Cause: err}
		}
		overrides["deadline_ms"] = d.Milliseconds()
	}

	cfg, err := config.NewLoader().Load(overrides)
	if err != nil {
		return err
	}

	logger, err := logging.NewZapLogger(cfg.Verbose)
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	req, err := cfg.ToScanRequest()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	p := pipeline.New(logger, cfg.CacheByteBudget)
	defer func() { _ = p.Close() }()

	sink := newScanProgressSink(!cfg.NoProgress)

	result, err := p.Scan(ctx, req, sink)
	if err != nil {
		return err
	}

	sink.finish()
	printResult(result)

	if result.Cancelled {
		return &types.ScanError{Kind: types.KindCancelled, Detail: "scan interrupted"}
	}
	return nil
}

// scanProgressSink drives one progress bar per pipeline stage, created
// lazily so the Hashing bar can be sized once the candidate count is known.
type scanProgressSink struct {
	enabled bool
	scanBar *progress.Bar
	hashBar *progress.Bar
	compare *progress.Bar
	found   uint64
}

func newScanProgressSink(enabled bool) *scanProgressSink {
	return &scanProgressSink{
		enabled: enabled,
		scanBar: progress.New(enabled, -1),
		compare: progress.New(enabled, -1),
	}
}

func (s *scanProgressSink) Send(e pipeline.Event) {
	switch e.Kind {
	case pipeline.ScanProgress:
		s.scanBar.Set(e.PhotosFound)
		s.scanBar.Describe(fmt.Sprintf("discovering photos (%d found)", e.PhotosFound))
	case pipeline.HashProgress:
		if s.hashBar == nil {
			s.hashBar = progress.New(s.enabled, int64(e.Total))
		}
		s.hashBar.Set(e.Completed)
		s.hashBar.Describe(fmt.Sprintf("hashing (%d/%d)", e.Completed, e.Total))
	case pipeline.CompareProgress:
		s.compare.Describe("comparing hashes")
	case pipeline.CompareDuplicateFound:
		s.found = e.Completed
		s.compare.Describe(fmt.Sprintf("comparing hashes (%d duplicate groups found)", s.found))
	}
}

func (s *scanProgressSink) finish() {
	s.scanBar.Finish("discovery complete")
	if s.hashBar != nil {
		s.hashBar.Finish("hashing complete")
	}
	s.compare.Finish(fmt.Sprintf("comparison complete (%d duplicate groups)", s.found))
}

func printResult(result types.ScanResult) {
	fmt.Printf("scanned %d candidates in %s\n", result.TotalCandidates, time.Duration(result.DurationMS)*time.Millisecond)
	fmt.Printf("%d duplicate groups, %d redundant copies, %s reclaimable\n",
		result.Groups.Len(), result.DuplicateCount, humanize.Bytes(uint64(result.ReclaimableTotal)))

	for _, g := range result.Groups.Items() {
		fmt.Printf("\n[%s] %s (%d members, keeping %s)\n", g.MatchKind, g.ID, g.Members.Len(), g.Representative.Path)
		for _, m := range g.Members.Items() {
			marker := " "
			if m.Path == g.Representative.Path {
				marker = "*"
			}
			fmt.Printf("  %s %s (%s)\n", marker, m.Path, humanize.Bytes(uint64(m.Size)))
		}
	}

	for _, e := range result.Errors {
		fmt.Fprintf(os.Stderr, "warning: %s\n", e.String())
	}
}
