//go:build !gocv

package geometry

import "fmt"

// RasterEngine is unavailable in builds without the gocv tag.
type RasterEngine struct {
	Resolution float64
}

// NewRasterEngine reports that OpenCV support was not compiled in.
func NewRasterEngine(resolution float64) (*RasterEngine, error) {
	_ = resolution
	return nil, fmt.Errorf("%w: gocv build tag is not enabled", ErrEngineUnavailable)
}

func (e *RasterEngine) ConvexHull([]Point) (Polygon, error) {
	return nil, ErrEngineUnavailable
}

func (e *RasterEngine) Buffer(Polygon, float64) (Polygon, error) {
	return nil, ErrEngineUnavailable
}

func (e *RasterEngine) CountNonEmpty([]Polygon) int { return 0 }
