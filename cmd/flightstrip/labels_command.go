package main

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"flightstrip/internal/config"
	"flightstrip/internal/namingcache"
	"flightstrip/internal/pointsource"
	"flightstrip/internal/services"
	"flightstrip/internal/strips"
)

type labelView struct {
	Name  string `json:"name"`
	Label string `json:"label"`
}

func newLabelsCommand(ctx *commandContext) *cobra.Command {
	var blockID string
	var showStrips bool

	cmd := &cobra.Command{
		Use:   "labels <points-file>",
		Short: "Label photos with their flight strip using the cached scheme",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := strings.TrimSpace(blockID)
			if key == "" {
				return services.Wrap(services.ErrValidation, "cli", "labels", "--block is required", nil)
			}
			return ctx.withCache(func(_ *config.Config, cache namingcache.Backend, _ *slog.Logger) error {
				scheme, ok := cache.Lookup(key)
				if !ok {
					return services.Wrap(services.ErrNotFound, "cli", "labels",
						fmt.Sprintf("block %s has no cached scheme; run `flightstrip infer --block %s` first", key, key), nil)
				}
				points, err := pointsource.Load(cmd.Context(), args[0])
				if err != nil {
					return services.Wrap(services.ErrValidation, "pointsource", "load", args[0], err)
				}

				if showStrips {
					assembled, err := strips.Assemble(points, scheme)
					if err != nil {
						return services.Wrap(services.ErrValidation, "strips", "assemble", key, err)
					}
					if ctx.jsonOutput() {
						return writeJSON(cmd, assembled)
					}
					fmt.Fprintln(cmd.OutOrStdout(), renderStripsTable(key, assembled))
					return nil
				}

				views := make([]labelView, 0, len(points))
				for _, p := range points {
					label, err := scheme.Label(p.Name)
					if err != nil {
						return services.Wrap(services.ErrValidation, "naming", "label", key, err)
					}
					views = append(views, labelView{Name: p.Name, Label: label})
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, views)
				}
				rows := make([][]string, 0, len(views))
				for _, v := range views {
					rows = append(rows, []string{v.Name, v.Label})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(tableSpec{
					title:   fmt.Sprintf("Block %s: %s", key, scheme),
					headers: []string{"Photo", "Strip"},
					rows:    rows,
				}))
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&blockID, "block", "b", "", "Survey block id whose cached scheme is applied")
	cmd.Flags().BoolVar(&showStrips, "strips", false, "Summarise assembled strips instead of listing photos")
	return cmd
}

func renderStripsTable(key string, assembled []strips.Strip) string {
	rows := make([][]string, 0, len(assembled))
	for _, s := range assembled {
		bearing := "-"
		if s.Orientation != strips.OrientationUndetermined {
			bearing = strconv.FormatFloat(s.Bearing, 'f', 1, 64)
		}
		rows = append(rows, []string{
			s.Label,
			strconv.Itoa(len(s.Points)),
			strconv.FormatFloat(s.Length, 'f', 1, 64),
			bearing,
			string(s.Orientation),
			yesNo(s.Long),
		})
	}
	return renderTable(tableSpec{
		title:   fmt.Sprintf("Block %s: %d strips", key, len(assembled)),
		headers: []string{"Strip", "Photos", "Length", "Bearing", "Orientation", "Long"},
		rows:    rows,
		aligns:  []columnAlignment{alignLeft, alignRight, alignRight, alignRight, alignLeft, alignLeft},
	})
}
