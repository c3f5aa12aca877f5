package naming

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"flightstrip/internal/geometry"
	"flightstrip/internal/logging"
	"flightstrip/internal/services"
	"flightstrip/internal/survey"
)

const stageName = "naming"

// Cache persists accepted schemes per block key.
type Cache interface {
	Lookup(key string) (Scheme, bool)
	Store(key string, scheme Scheme) error
}

// Options tunes the inference loop. Zero values select defaults.
type Options struct {
	SampleLimit     int
	SampleStride    int
	MaxEliminations int
	VerifyRetries   int
	Timeout         time.Duration
}

// Result describes one inference.
type Result struct {
	Key        string
	RunID      string
	Scheme     Scheme
	CacheHit   bool
	SampleSize int
	Counts     []int
	Steps      []Step
	Duration   time.Duration
}

// Inferrer runs naming inference against a cache and a verifier.
type Inferrer struct {
	cache    Cache
	verifier Verifier
	opts     Options
	logger   *slog.Logger
}

// NewInferrer wires an Inferrer. A nil cache disables persistence.
func NewInferrer(cache Cache, verifier Verifier, opts Options, logger *slog.Logger) *Inferrer {
	return &Inferrer{
		cache:    cache,
		verifier: verifier,
		opts:     opts,
		logger:   logging.NewComponentLogger(logger, stageName),
	}
}

// InferOption adjusts a single Infer call.
type InferOption func(*inferSettings)

type inferSettings struct {
	force  bool
	onStep func(Step)
}

// WithForce skips the cache lookup. The new scheme still replaces the cached one.
func WithForce() InferOption {
	return func(s *inferSettings) { s.force = true }
}

// WithStepHook calls fn after every elimination round.
func WithStepHook(fn func(Step)) InferOption {
	return func(s *inferSettings) { s.onStep = fn }
}

// Infer returns the naming scheme of the block identified by key. A cached
// scheme is returned as-is without touching points. Failures after ranking
// return the partial Result (counts and steps) together with the error; a
// scheme that was inferred but could not be stored comes back with an error
// wrapping ErrCacheStore.
func (inf *Inferrer) Infer(ctx context.Context, key string, points []survey.ImagePoint, opts ...InferOption) (*Result, error) {
	var settings inferSettings
	for _, opt := range opts {
		opt(&settings)
	}

	key = strings.TrimSpace(key)
	if key == "" {
		return nil, services.Wrap(services.ErrValidation, stageName, "infer", "block key is empty", nil)
	}

	runID := uuid.NewString()
	ctx = services.WithBlock(ctx, key)
	ctx = services.WithStage(ctx, stageName)
	ctx = services.WithRequestID(ctx, runID)
	logger := logging.WithContext(ctx, inf.logger)
	started := time.Now()

	if inf.cache != nil && !settings.force {
		if scheme, ok := inf.cache.Lookup(key); ok {
			logger.Info("naming scheme loaded from cache",
				logging.Args(logging.DecisionAttrs("naming_cache", "hit", "block analysed before")...)...)
			return &Result{Key: key, RunID: runID, Scheme: scheme, CacheHit: true, Duration: time.Since(started)}, nil
		}
	}

	if inf.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, inf.opts.Timeout)
		defer cancel()
	}

	tokens, err := Tokenize(survey.Names(points))
	if err != nil {
		logging.ErrorWithContext(logger, "naming convention not supported", "naming_convention_fault",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "filenames need a single separator and a fixed number of subparts"),
		)
		return nil, services.Wrap(services.ErrValidation, stageName, "tokenize", key, err)
	}

	indices := Sample(len(points), inf.opts.SampleLimit, inf.opts.SampleStride)
	sample := make([][]string, len(indices))
	samplePoints := make([]geometry.Point, len(indices))
	for i, idx := range indices {
		sample[i] = tokens.Sequences[idx]
		samplePoints[i] = points[idx].Location
	}
	counts := MatchCounts(sample)
	logger.Debug("subparts ranked",
		logging.Int("points", len(points)),
		logging.Int("sample_size", len(indices)),
		logging.String("separator", tokens.Separator),
		logging.Any("match_counts", counts),
	)

	result := &Result{Key: key, RunID: runID, SampleSize: len(indices), Counts: counts}

	scheme, steps, err := eliminate(ctx, eliminationInput{
		Counts:          counts,
		Sample:          sample,
		Points:          samplePoints,
		Separator:       tokens.Separator,
		Verifier:        inf.verifier,
		VerifyRetries:   inf.opts.VerifyRetries,
		MaxEliminations: inf.opts.MaxEliminations,
		OnStep: func(step Step) {
			logger.Info("subpart eliminated",
				logging.Args(append(logging.DecisionAttrs("subpart_elimination", string(step.Verdict),
					fmt.Sprintf("position %d had the lowest match count %d", step.Eliminated, step.Count)),
					logging.Any("remaining", step.Remaining),
					logging.Int("groups", step.Groups),
				)...)...)
			if settings.onStep != nil {
				settings.onStep(step)
			}
		},
	})
	result.Steps = steps
	result.Duration = time.Since(started)
	if err != nil {
		switch {
		case errors.Is(err, context.DeadlineExceeded):
			err = services.Wrap(services.ErrTimeout, stageName, "eliminate", key, err)
		case errors.Is(err, geometry.ErrGeometry):
			err = services.Wrap(services.ErrExternalTool, stageName, "verify", key, err)
		case errors.Is(err, ErrNamingConvention):
			err = services.Wrap(services.ErrValidation, stageName, "eliminate", key, err)
		}
		logging.ErrorWithContext(logger, "naming inference failed", "naming_inference_failed",
			logging.Error(err),
			logging.Int("eliminations", len(steps)),
		)
		return result, err
	}
	result.Scheme = scheme

	logger.Info("naming scheme inferred",
		logging.Any("kept", scheme.Positions()),
		logging.String("separator", scheme.Separator),
		logging.Int("eliminations", len(steps)),
		logging.Duration("duration", result.Duration),
	)

	if inf.cache != nil {
		if err := inf.cache.Store(key, scheme); err != nil {
			logging.WarnWithContext(logger, "naming scheme not cached", "naming_cache_store_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "the block will be analysed again on the next run"),
				logging.String(logging.FieldErrorHint, "check permissions of the naming cache file"),
			)
			return result, fmt.Errorf("%w: %w", ErrCacheStore, err)
		}
	}
	return result, nil
}
