package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/user/dupeseer/internal/config"
	"github.com/user/dupeseer/internal/logging"
	"github.com/user/dupeseer/internal/pipeline"
)

// newCacheCmd exposes the HashCache's inspect and clear operations as two
// subcommands.
func newCacheCmd() *cobra.Command {
	var cacheDir string

	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect or clear the persistent hash cache",
	}
	cmd.PersistentFlags().StringVar(&cacheDir, "cache-dir", "", "Cache directory (defaults to the resolved config value)")

	cmd.AddCommand(&cobra.Command{
		Use:   "info",
		Short: "Show cache entry count, size, and location",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCacheInfo(cacheDir, cmd.Flags().Changed("cache-dir"))
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Remove all cached hashes",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCacheClear(cacheDir, cmd.Flags().Changed("cache-dir"))
		},
	})

	return cmd
}

func resolveCacheDir(cacheDir string, explicit bool) (string, error) {
	overrides := map[string]any{}
	if explicit {
		overrides["cache_directory"] = cacheDir
	}
	cfg, err := config.NewLoader().Load(overrides)
	if err != nil {
		return "", err
	}
	return cfg.CacheDirectory, nil
}

func runCacheInfo(cacheDir string, explicit bool) error {
	dir, err := resolveCacheDir(cacheDir, explicit)
	if err != nil {
		return err
	}
	p := pipeline.New(logging.NopLogger{}, 0)
	defer func() { _ = p.Close() }()

	entries, size, location := p.CacheInfo(dir)
	fmt.Printf("location: %s\n", location)
	fmt.Printf("entries:  %d\n", entries)
	fmt.Printf("size:     %s\n", humanize.Bytes(uint64(size)))
	return nil
}

func runCacheClear(cacheDir string, explicit bool) error {
	dir, err := resolveCacheDir(cacheDir, explicit)
	if err != nil {
		return err
	}
	p := pipeline.New(logging.NopLogger{}, 0)
	defer func() { _ = p.Close() }()

	if err := p.ClearCache(dir); err != nil {
		return err
	}
	fmt.Println("cache cleared")
	return nil
}
