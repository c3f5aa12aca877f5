package naming

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"flightstrip/internal/geometry"
)

// Verifier decides whether the points of every candidate label group lie on a line.
type Verifier interface {
	Verify(ctx context.Context, groups map[string][]geometry.Point) (bool, error)
}

// Verdict is the outcome of one elimination round.
type Verdict string

const (
	// VerdictSingle means one position was left and was accepted without verification.
	VerdictSingle Verdict = "single_remaining"
	// VerdictCollinear means every candidate group passed verification.
	VerdictCollinear Verdict = "collinear"
	// VerdictNotCollinear means at least one group kept area after shrinking.
	VerdictNotCollinear Verdict = "not_collinear"
)

// Step records one elimination round.
type Step struct {
	Round      int     `json:"round"`
	Eliminated int     `json:"eliminated"`
	Count      int     `json:"count"`
	Remaining  []int   `json:"remaining"`
	Groups     int     `json:"groups"`
	Verdict    Verdict `json:"verdict"`
}

// state is the eliminator's position in init -> ranked -> eliminate -> verify
// -> {accept | eliminate}, with exhausted as the failing terminal state.
type state int

const (
	stateInit state = iota
	stateRanked
	stateEliminate
	stateVerify
	stateAccept
	stateExhausted
)

type eliminator struct {
	counts     []int
	sample     [][]string
	points     []geometry.Point
	separator  string
	verifier   Verifier
	retries    int
	bound      int
	onStep     func(Step)
	candidates map[int]int
	order      []int
	steps      []Step
}

type eliminationInput struct {
	Counts          []int
	Sample          [][]string
	Points          []geometry.Point
	Separator       string
	Verifier        Verifier
	VerifyRetries   int
	MaxEliminations int
	OnStep          func(Step)
}

// eliminate runs the state machine to completion.
func eliminate(ctx context.Context, in eliminationInput) (Scheme, []Step, error) {
	e := &eliminator{
		counts:    in.Counts,
		sample:    in.Sample,
		points:    in.Points,
		separator: in.Separator,
		verifier:  in.Verifier,
		retries:   max(in.VerifyRetries, 0),
		onStep:    in.OnStep,
	}
	e.bound = len(in.Counts) - 1
	if in.MaxEliminations > 0 && in.MaxEliminations < e.bound {
		e.bound = in.MaxEliminations
	}

	st := stateInit
	var last Step
	for {
		switch st {
		case stateInit:
			if len(e.counts) < 2 {
				return Scheme{}, e.steps, &ConventionError{Kind: KindNoSeparator, Detail: "fewer than two subparts"}
			}
			if len(e.sample) != len(e.points) {
				return Scheme{}, e.steps, fmt.Errorf("sample has %d names but %d points", len(e.sample), len(e.points))
			}
			e.candidates = make(map[int]int, len(e.counts))
			for p, c := range e.counts {
				e.candidates[p] = c
			}
			st = stateRanked

		case stateRanked, stateEliminate:
			if err := ctx.Err(); err != nil {
				return Scheme{}, e.steps, err
			}
			if len(e.order) >= e.bound {
				st = stateExhausted
				continue
			}
			p := e.weakest()
			last = Step{Round: len(e.order) + 1, Eliminated: p, Count: e.candidates[p]}
			delete(e.candidates, p)
			e.order = append(e.order, p)
			last.Remaining = e.kept()
			if len(e.candidates) == 1 {
				last.Verdict = VerdictSingle
				e.record(last)
				st = stateAccept
				continue
			}
			st = stateVerify

		case stateVerify:
			groups := e.groups()
			last.Groups = len(groups)
			ok, err := e.verify(ctx, groups)
			if err != nil {
				return Scheme{}, e.steps, err
			}
			if ok {
				last.Verdict = VerdictCollinear
				e.record(last)
				st = stateAccept
				continue
			}
			last.Verdict = VerdictNotCollinear
			e.record(last)
			st = stateEliminate

		case stateAccept:
			// A strip label is one run of adjacent subparts.
			if positions := e.kept(); positions[len(positions)-1]-positions[0] != len(positions)-1 {
				return Scheme{}, e.steps, &ConventionError{
					Kind:   KindNonContiguous,
					Detail: fmt.Sprintf("accepted positions %v are not adjacent", positions),
				}
			}
			kept := make(map[int]int, len(e.candidates))
			for p, c := range e.candidates {
				kept[p] = c
			}
			return Scheme{Kept: kept, Separator: e.separator}, e.steps, nil

		case stateExhausted:
			return Scheme{}, e.steps, fmt.Errorf("%w: %d eliminations, remaining positions %v",
				ErrEliminationExhausted, len(e.order), e.kept())
		}
	}
}

func (e *eliminator) record(step Step) {
	e.steps = append(e.steps, step)
	if e.onStep != nil {
		e.onStep(step)
	}
}

// weakest returns the candidate with the lowest count, preferring the lowest position on ties.
func (e *eliminator) weakest() int {
	best, bestCount := -1, 0
	for _, p := range e.kept() {
		c := e.candidates[p]
		if best < 0 || c < bestCount {
			best, bestCount = p, c
		}
	}
	return best
}

func (e *eliminator) kept() []int {
	positions := make([]int, 0, len(e.candidates))
	for p := range e.candidates {
		positions = append(positions, p)
	}
	sort.Ints(positions)
	return positions
}

// groups rebuilds candidate labels for the sample and groups its points by label.
func (e *eliminator) groups() map[string][]geometry.Point {
	positions := e.kept()
	out := make(map[string][]geometry.Point)
	for i, seq := range e.sample {
		label := joinPositions(seq, positions, e.separator)
		out[label] = append(out[label], e.points[i])
	}
	return out
}

func (e *eliminator) verify(ctx context.Context, groups map[string][]geometry.Point) (bool, error) {
	var lastErr error
	for attempt := 0; attempt <= e.retries; attempt++ {
		ok, err := e.verifier.Verify(ctx, groups)
		if err == nil {
			return ok, nil
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return false, err
		}
		lastErr = err
	}
	if errors.Is(lastErr, geometry.ErrGeometry) {
		return false, lastErr
	}
	return false, fmt.Errorf("%w: %w", geometry.ErrGeometry, lastErr)
}
