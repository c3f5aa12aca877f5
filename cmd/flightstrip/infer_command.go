package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"flightstrip/internal/config"
	"flightstrip/internal/geometry"
	"flightstrip/internal/logging"
	"flightstrip/internal/naming"
	"flightstrip/internal/namingcache"
	"flightstrip/internal/pointsource"
	"flightstrip/internal/preflight"
	"flightstrip/internal/services"
	"flightstrip/internal/survey"
)

type inferFlags struct {
	block    string
	meridian string
	explain  bool
	force    bool
	jobs     int
}

type inferOutcome struct {
	input   string
	blockID string
	block   *survey.Block
	result  *naming.Result
	// warn is a cache store failure; the scheme is still valid.
	warn error
	err  error
}

func newInferCommand(ctx *commandContext) *cobra.Command {
	var flags inferFlags

	cmd := &cobra.Command{
		Use:   "infer <points-file>...",
		Short: "Infer the flight strip naming scheme of one or more survey blocks",
		Long: "Infer which filename subparts identify the flight strip.\n\n" +
			"With a single input the block id comes from --block. With several inputs\n" +
			"each file's base name (without extension) is the block id.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) > 1 && strings.TrimSpace(flags.block) != "" {
				return services.Wrap(services.ErrValidation, "cli", "infer", "--block cannot be combined with several inputs", nil)
			}
			if len(args) == 1 && strings.TrimSpace(flags.block) == "" {
				return services.Wrap(services.ErrValidation, "cli", "infer", "--block is required", nil)
			}
			return ctx.withCache(func(cfg *config.Config, cache namingcache.Backend, logger *slog.Logger) error {
				if failed := preflight.Failed(preflight.RunAll(cfg)); len(failed) > 0 {
					return services.Wrap(services.ErrConfiguration, "preflight", failed[0].Name, failed[0].Detail, nil)
				}
				inferrer, err := newInferrer(cfg, cache, logger)
				if err != nil {
					return err
				}
				meridian := strings.TrimSpace(flags.meridian)
				if meridian == "" {
					meridian = cfg.Survey.Meridian
				}
				outcomes := runInference(cmd.Context(), cfg, inferrer, args, flags, meridian, logger)
				return reportInference(cmd, ctx.jsonOutput(), flags.explain, outcomes)
			})
		},
	}

	cmd.Flags().StringVarP(&flags.block, "block", "b", "", "Numeric survey block id")
	cmd.Flags().StringVarP(&flags.meridian, "meridian", "m", "", "Meridian zone (M28, M31, M34); defaults to [survey] meridian")
	cmd.Flags().BoolVar(&flags.explain, "explain", false, "Show match counts and every elimination round")
	cmd.Flags().BoolVar(&flags.force, "force", false, "Ignore a cached scheme and infer again")
	cmd.Flags().IntVarP(&flags.jobs, "jobs", "j", 1, "Number of blocks inferred concurrently")
	return cmd
}

func newInferrer(cfg *config.Config, cache naming.Cache, logger *slog.Logger) (*naming.Inferrer, error) {
	engine, err := geometry.NewEngine(cfg.Geometry.Engine, cfg.Geometry.RasterResolution)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "geometry", "engine", "", err)
	}
	verifier := geometry.NewVerifier(engine, cfg.Inference.HullMargin, logger)
	return naming.NewInferrer(cache, verifier, naming.Options{
		SampleLimit:     cfg.Inference.SampleLimit,
		SampleStride:    cfg.Inference.SampleStride,
		MaxEliminations: cfg.Inference.MaxEliminations,
		VerifyRetries:   cfg.Inference.VerifyRetries,
		Timeout:         cfg.InferenceTimeout(),
	}, logger), nil
}

// runInference processes inputs with at most flags.jobs blocks in flight.
// Outcomes keep the order of inputs.
func runInference(ctx context.Context, cfg *config.Config, inferrer *naming.Inferrer, inputs []string, flags inferFlags, meridian string, logger *slog.Logger) []inferOutcome {
	jobs := flags.jobs
	if jobs < 1 {
		jobs = 1
	}
	outcomes := make([]inferOutcome, len(inputs))
	sem := make(chan struct{}, jobs)
	var wg sync.WaitGroup
	for i, input := range inputs {
		blockID := strings.TrimSpace(flags.block)
		if blockID == "" {
			blockID = strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))
		}
		wg.Add(1)
		go func(i int, input, blockID string) {
			defer wg.Done()
			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				outcomes[i] = inferOutcome{input: input, blockID: blockID, err: ctx.Err()}
				return
			}
			defer func() { <-sem }()
			outcomes[i] = inferBlock(ctx, cfg, inferrer, input, blockID, meridian, flags.force, logger)
		}(i, input, blockID)
	}
	wg.Wait()
	return outcomes
}

func inferBlock(ctx context.Context, cfg *config.Config, inferrer *naming.Inferrer, input, blockID, meridian string, force bool, logger *slog.Logger) inferOutcome {
	out := inferOutcome{input: input, blockID: blockID}

	block, err := survey.NewBlock(cfg.Paths.RootDir, meridian, blockID)
	if err != nil {
		out.err = services.Wrap(services.ErrValidation, "survey", "block", input, err)
		return out
	}
	out.block = block

	points, err := pointsource.Load(ctx, input)
	if err != nil {
		marker := services.ErrValidation
		if errors.Is(err, fs.ErrNotExist) {
			marker = services.ErrNotFound
		}
		out.err = services.Wrap(marker, "pointsource", "load", input, err)
		return out
	}

	var opts []naming.InferOption
	if force {
		opts = append(opts, naming.WithForce())
	}
	result, err := inferrer.Infer(ctx, block.Key(), points, opts...)
	out.result = result
	if result != nil && !result.CacheHit && len(result.Counts) > 0 {
		if reportErr := block.WriteMatchReport(result.Counts); reportErr != nil {
			logging.WarnWithContext(logger, "match report not written", "match_report_failed",
				logging.String(logging.FieldBlock, block.ID),
				logging.Error(reportErr),
				logging.String(logging.FieldImpact, "counts are only available in the log"),
			)
		}
	}
	switch {
	case err == nil:
	case errors.Is(err, naming.ErrCacheStore):
		out.warn = err
	default:
		out.err = err
	}
	return out
}

func reportInference(cmd *cobra.Command, jsonOut, explain bool, outcomes []inferOutcome) error {
	var errs []error
	for _, o := range outcomes {
		if o.err != nil {
			errs = append(errs, fmt.Errorf("block %s: %w", o.blockID, o.err))
		}
		if o.warn != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "warning: block %s: %v\n", o.blockID, o.warn)
		}
	}

	if jsonOut {
		views := make([]inferView, 0, len(outcomes))
		for _, o := range outcomes {
			views = append(views, newInferView(o))
		}
		if err := writeJSON(cmd, views); err != nil {
			return err
		}
		return errors.Join(errs...)
	}

	out := cmd.OutOrStdout()
	for _, o := range outcomes {
		printInferOutcome(out, o, explain)
	}
	return errors.Join(errs...)
}

func newInferView(o inferOutcome) inferView {
	view := inferView{Input: o.input, Block: o.blockID}
	if o.block != nil {
		view.Meridian = o.block.Meridian
		view.EPSG = o.block.EPSG
	}
	if r := o.result; r != nil {
		view.RunID = r.RunID
		view.Scheme = newSchemeView(r.Scheme)
		view.CacheHit = r.CacheHit
		view.SampleSize = r.SampleSize
		view.Counts = r.Counts
		view.Steps = r.Steps
		view.DurationMS = r.Duration.Milliseconds()
	}
	if o.warn != nil {
		view.Warning = o.warn.Error()
	}
	if o.err != nil {
		view.Error = o.err.Error()
	}
	return view
}

func printInferOutcome(out io.Writer, o inferOutcome, explain bool) {
	header := "Block " + o.blockID
	if o.block != nil {
		header = fmt.Sprintf("Block %s (%s, EPSG:%d)", o.block.ID, o.block.Meridian, o.block.EPSG)
	}
	switch {
	case o.err != nil:
		fmt.Fprintf(out, "%s: failed\n", header)
	case o.result.CacheHit:
		fmt.Fprintf(out, "%s: %s (cached)\n", header, o.result.Scheme)
	default:
		fmt.Fprintf(out, "%s: %s\n", header, o.result.Scheme)
	}
	if !explain || o.result == nil || o.result.CacheHit {
		return
	}
	fmt.Fprintln(out, renderCountsTable(o.result))
	if len(o.result.Steps) > 0 {
		fmt.Fprintln(out, renderStepsTable(o.result.Steps))
	}
}

func renderCountsTable(r *naming.Result) string {
	headers := make([]string, 0, len(r.Counts)+1)
	row := make([]string, 0, len(r.Counts)+1)
	aligns := make([]columnAlignment, 0, len(r.Counts)+1)
	headers = append(headers, "Position")
	row = append(row, "Matches")
	aligns = append(aligns, alignLeft)
	for i, c := range r.Counts {
		headers = append(headers, strconv.Itoa(i))
		row = append(row, strconv.Itoa(c))
		aligns = append(aligns, alignRight)
	}
	return renderTable(tableSpec{
		title:   fmt.Sprintf("Subpart matches (%d sampled photos)", r.SampleSize),
		headers: headers,
		rows:    [][]string{row},
		aligns:  aligns,
	})
}

func renderStepsTable(steps []naming.Step) string {
	rows := make([][]string, 0, len(steps))
	for _, s := range steps {
		remaining := make([]string, len(s.Remaining))
		for i, p := range s.Remaining {
			remaining[i] = strconv.Itoa(p)
		}
		groups := strconv.Itoa(s.Groups)
		if s.Verdict == naming.VerdictSingle {
			groups = "-"
		}
		rows = append(rows, []string{
			strconv.Itoa(s.Round),
			strconv.Itoa(s.Eliminated),
			strconv.Itoa(s.Count),
			strings.Join(remaining, " "),
			groups,
			string(s.Verdict),
		})
	}
	return renderTable(tableSpec{
		title:   "Eliminations",
		headers: []string{"Round", "Eliminated", "Matches", "Remaining", "Groups", "Verdict"},
		rows:    rows,
		aligns:  []columnAlignment{alignRight, alignRight, alignRight, alignLeft, alignRight, alignLeft},
	})
}
