package main

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"shelf/internal/resourcecache"
)

func newCacheCommand(ctx *commandContext) *cobra.Command {
	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "Resource cache utilities",
	}

	cacheCmd.AddCommand(newCacheStatsCommand(ctx))
	cacheCmd.AddCommand(newCachePathCommand(ctx))

	return cacheCmd
}

type shardStats struct {
	entries int
	bytes   int64
}

func newCacheStatsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Summarize on-disk cache usage per shard",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			shards := map[string]*shardStats{}
			var totalEntries int
			var totalBytes int64

			root := cfg.Paths.CacheRoot
			walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
				if err != nil {
					return err
				}
				if d.IsDir() || strings.Contains(d.Name(), ".tmp") {
					return nil
				}
				info, err := d.Info()
				if err != nil {
					return err
				}
				shard := filepath.Base(filepath.Dir(path))
				stats := shards[shard]
				if stats == nil {
					stats = &shardStats{}
					shards[shard] = stats
				}
				stats.entries++
				stats.bytes += info.Size()
				totalEntries++
				totalBytes += info.Size()
				return nil
			})
			if walkErr != nil {
				return fmt.Errorf("walk cache root: %w", walkErr)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Cache root: %s\n", root)
			fmt.Fprintf(out, "Entries:    %d\n", totalEntries)
			fmt.Fprintf(out, "Size:       %.1f MiB\n", float64(totalBytes)/(1<<20))

			if len(shards) == 0 {
				return nil
			}
			names := make([]string, 0, len(shards))
			for name := range shards {
				names = append(names, name)
			}
			sort.Strings(names)
			rows := make([][]string, 0, len(names))
			for _, name := range names {
				stats := shards[name]
				rows = append(rows, []string{
					name,
					fmt.Sprintf("%d", stats.entries),
					fmt.Sprintf("%.1f MiB", float64(stats.bytes)/(1<<20)),
				})
			}
			fmt.Fprintln(out)
			fmt.Fprintln(out, renderTable(out, []string{"Shard", "Entries", "Size"}, rows,
				[]columnAlignment{alignLeft, alignRight, alignRight}))
			return nil
		},
	}
}

func newCachePathCommand(ctx *commandContext) *cobra.Command {
	var extension string

	cmd := &cobra.Command{
		Use:   "path <unique-name>",
		Short: "Print the cache location for a unique name",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			cache, err := resourcecache.New(cfg.Paths.CacheRoot)
			if err != nil {
				return err
			}
			path, err := cache.ResourcePath(args[0], extension)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, path)
			fmt.Fprintf(out, "Exists: %s\n", yesNo(resourcecache.ExistsPath(path)))
			return nil
		},
	}

	cmd.Flags().StringVarP(&extension, "ext", "e", ".json", "Artifact extension")
	return cmd
}
