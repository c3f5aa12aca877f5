package geometry

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"flightstrip/internal/logging"
)

// DefaultMargin is the inward buffer, in projected units, that a strip
// footprint must vanish under.
const DefaultMargin = 50.0

// Verifier reports whether every group of points lies on a line.
type Verifier struct {
	Engine Engine
	Margin float64
	Logger *slog.Logger
}

// NewVerifier builds a Verifier; a non-positive margin selects DefaultMargin.
func NewVerifier(engine Engine, margin float64, logger *slog.Logger) *Verifier {
	if engine == nil {
		engine = Planar{}
	}
	if margin <= 0 {
		margin = DefaultMargin
	}
	return &Verifier{
		Engine: engine,
		Margin: margin,
		Logger: logging.NewComponentLogger(logger, "geometry"),
	}
}

// Verify shrinks the convex hull of each group by the margin and succeeds only
// when no shrunk hull keeps any area. Groups are processed in key order.
func (v *Verifier) Verify(ctx context.Context, groups map[string][]Point) (bool, error) {
	keys := make([]string, 0, len(groups))
	for key := range groups {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	shrunk := make([]Polygon, 0, len(keys))
	for _, key := range keys {
		if err := ctx.Err(); err != nil {
			return false, err
		}
		hull, err := v.Engine.ConvexHull(groups[key])
		if err != nil {
			return false, wrapEngineError(fmt.Sprintf("convex hull of %q", key), err)
		}
		buffered, err := v.Engine.Buffer(hull, -v.Margin)
		if err != nil {
			return false, wrapEngineError(fmt.Sprintf("buffer of %q", key), err)
		}
		shrunk = append(shrunk, buffered)
	}

	remaining := v.Engine.CountNonEmpty(shrunk)
	if v.Logger != nil {
		v.Logger.Debug("collinearity checked",
			logging.Int("groups", len(keys)),
			logging.Int("remaining_areas", remaining),
			logging.Float64("margin", v.Margin),
		)
	}
	return remaining == 0, nil
}
