package main

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"flightstrip/internal/config"
	"flightstrip/internal/namingcache"
	"flightstrip/internal/services"
)

func newCacheCommand(ctx *commandContext) *cobra.Command {
	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and manage the naming scheme cache",
	}

	cacheCmd.AddCommand(newCacheListCommand(ctx))
	cacheCmd.AddCommand(newCacheRemoveCommand(ctx))
	cacheCmd.AddCommand(newCacheClearCommand(ctx))

	return cacheCmd
}

func newCacheListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List cached naming schemes",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withCache(func(_ *config.Config, cache namingcache.Backend, _ *slog.Logger) error {
				entries, err := cache.List()
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					views := make([]cacheEntryView, 0, len(entries))
					for _, e := range entries {
						views = append(views, newCacheEntryView(e))
					}
					return writeJSON(cmd, views)
				}

				out := cmd.OutOrStdout()
				if len(entries) == 0 {
					fmt.Fprintf(out, "Naming cache %s is empty\n", cache.Path())
					return nil
				}
				const stampLayout = "2006-01-02 15:04"
				rows := make([][]string, 0, len(entries))
				for _, e := range entries {
					positions := make([]string, 0, len(e.Scheme.Kept))
					for _, p := range e.Scheme.Positions() {
						positions = append(positions, fmt.Sprintf("%d (%d)", p, e.Scheme.Kept[p]))
					}
					cached := "-"
					if !e.CachedAt.IsZero() {
						cached = e.CachedAt.Local().Format(stampLayout)
					}
					rows = append(rows, []string{e.Key, strings.Join(positions, ", "), fmt.Sprintf("%q", e.Scheme.Separator), cached})
				}
				fmt.Fprintln(out, renderTable(tableSpec{
					title:   fmt.Sprintf("%s cache %s", cache.Kind(), cache.Path()),
					headers: []string{"Block", "Kept positions (matches)", "Separator", "Cached"},
					rows:    rows,
				}))
				return nil
			})
		},
	}
}

func newCacheRemoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <block>...",
		Short: "Forget the cached scheme of one or more blocks",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withCache(func(_ *config.Config, cache namingcache.Backend, _ *slog.Logger) error {
				for _, key := range args {
					if err := cache.Remove(key); err != nil {
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "Removed block %s\n", strings.TrimSpace(key))
				}
				return nil
			})
		},
	}
}

func newCacheClearCommand(ctx *commandContext) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove every cached scheme",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return services.Wrap(services.ErrValidation, "cli", "cache clear", "refusing to clear without --yes", nil)
			}
			return ctx.withCache(func(_ *config.Config, cache namingcache.Backend, _ *slog.Logger) error {
				count, err := cache.Count()
				if err != nil {
					return err
				}
				if err := cache.Clear(); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Cleared %d cached schemes\n", count)
				return nil
			})
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Confirm clearing the cache")
	return cmd
}
