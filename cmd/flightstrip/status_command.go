package main

import (
	"fmt"
	"log/slog"
	"strconv"

	"github.com/spf13/cobra"

	"flightstrip/internal/config"
	"flightstrip/internal/namingcache"
	"flightstrip/internal/preflight"
)

type statusCheckView struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail"`
}

type statusView struct {
	ConfigPath   string            `json:"config_path"`
	ConfigExists bool              `json:"config_exists"`
	Meridian     string            `json:"meridian"`
	Checks       []statusCheckView `json:"checks"`
	CacheBackend string            `json:"cache_backend"`
	CachePath    string            `json:"cache_path"`
	CacheEntries int               `json:"cache_entries"`
	CacheError   string            `json:"cache_error,omitempty"`
}

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show configuration, directory, and naming cache health",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withCache(func(cfg *config.Config, cache namingcache.Backend, _ *slog.Logger) error {
				view := statusView{
					ConfigPath:   ctx.configPath,
					ConfigExists: ctx.configSeen,
					Meridian:     cfg.Survey.Meridian,
					CacheBackend: cache.Kind(),
					CachePath:    cache.Path(),
				}
				for _, r := range preflight.RunAll(cfg) {
					view.Checks = append(view.Checks, statusCheckView{Name: r.Name, Passed: r.Passed, Detail: r.Detail})
				}
				if count, err := cache.Count(); err != nil {
					view.CacheError = err.Error()
				} else {
					view.CacheEntries = count
				}

				if ctx.jsonOutput() {
					return writeJSON(cmd, view)
				}
				printStatus(cmd, view)
				return nil
			})
		},
	}
}

func printStatus(cmd *cobra.Command, view statusView) {
	out := cmd.OutOrStdout()
	colorize := shouldColorize(out)
	var lines []string

	lines = append(lines, renderSectionHeader("Configuration", colorize)...)
	configKind, configDetail := statusOK, view.ConfigPath
	if !view.ConfigExists {
		configKind, configDetail = statusWarn, view.ConfigPath+" (missing, defaults in use)"
	}
	lines = append(lines, renderStatusLine("Config file", configKind, configDetail, colorize))
	lines = append(lines, renderStatusLine("Meridian", statusInfo, view.Meridian, colorize))
	lines = append(lines, "")

	lines = append(lines, renderSectionHeader("Preflight", colorize)...)
	for _, c := range view.Checks {
		kind := statusOK
		if !c.Passed {
			kind = statusError
		}
		lines = append(lines, renderStatusLine(c.Name, kind, c.Detail, colorize))
	}
	lines = append(lines, "")

	lines = append(lines, renderSectionHeader("Naming cache", colorize)...)
	lines = append(lines, renderStatusLine("Backend", statusInfo, view.CacheBackend, colorize))
	lines = append(lines, renderStatusLine("Path", statusInfo, view.CachePath, colorize))
	if view.CacheError != "" {
		lines = append(lines, renderStatusLine("Entries", statusError, view.CacheError, colorize))
	} else {
		lines = append(lines, renderStatusLine("Entries", statusOK, strconv.Itoa(view.CacheEntries), colorize))
	}

	for _, line := range lines {
		fmt.Fprintln(out, line)
	}
}
