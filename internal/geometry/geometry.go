package geometry

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

var (
	// ErrGeometry marks failures raised by a geometry engine.
	ErrGeometry = errors.New("geometry engine failure")
	// ErrEngineUnavailable is returned when the requested engine was not compiled in.
	ErrEngineUnavailable = errors.New("geometry engine unavailable")
)

// Point is a location in projected map units.
type Point struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// Polygon is a closed ring listed counter-clockwise without repeating the
// first vertex. An empty Polygon represents an empty area.
type Polygon []Point

// Area returns the unsigned area of the polygon.
func (p Polygon) Area() float64 {
	if len(p) < 3 {
		return 0
	}
	var sum float64
	for i := range p {
		j := (i + 1) % len(p)
		sum += p[i].X*p[j].Y - p[j].X*p[i].Y
	}
	return math.Abs(sum) / 2
}

// Engine is the narrow set of primitives the collinearity test depends on.
type Engine interface {
	ConvexHull(points []Point) (Polygon, error)
	Buffer(polygon Polygon, distance float64) (Polygon, error)
	CountNonEmpty(polygons []Polygon) int
}

// NewEngine returns the engine registered under name ("planar" or "gocv").
func NewEngine(name string, rasterResolution float64) (Engine, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "planar":
		return Planar{}, nil
	case "gocv":
		engine, err := NewRasterEngine(rasterResolution)
		if err != nil {
			return nil, err
		}
		return engine, nil
	default:
		return nil, fmt.Errorf("%w: unknown engine %q", ErrEngineUnavailable, name)
	}
}

func wrapEngineError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrGeometry) {
		return err
	}
	return fmt.Errorf("%w: %s: %w", ErrGeometry, op, err)
}
