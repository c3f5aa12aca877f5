//go:build gocv

package geometry

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"math"

	"gocv.io/x/gocv"
)

const (
	rasterPadding = 4
	maxRasterSide = 16384
	// hullSubpixels is the grid the hull is computed on, per raster pixel.
	hullSubpixels = 1000
)

// RasterEngine implements Engine with OpenCV. Hull vertices are picked by
// OpenCV on a fine integer grid and returned at their input coordinates;
// buffering rasterizes the polygon at Resolution units per pixel and
// erodes or dilates it with an elliptical kernel.
type RasterEngine struct {
	Resolution float64
}

// NewRasterEngine returns a RasterEngine with the given resolution.
func NewRasterEngine(resolution float64) (*RasterEngine, error) {
	if resolution <= 0 || math.IsNaN(resolution) {
		return nil, fmt.Errorf("%w: raster resolution must be positive", ErrGeometry)
	}
	return &RasterEngine{Resolution: resolution}, nil
}

// ConvexHull returns the input points OpenCV selects as hull vertices.
func (e *RasterEngine) ConvexHull(points []Point) (Polygon, error) {
	if len(points) == 0 {
		return nil, nil
	}
	for _, p := range points {
		if !finite(p) {
			return nil, errors.New("convex hull: non-finite coordinate")
		}
	}

	step := e.Resolution / hullSubpixels
	minX, minY, maxX, maxY := bounds(Polygon(points))
	if (maxX-minX)/step > math.MaxInt32/2 || (maxY-minY)/step > math.MaxInt32/2 {
		return nil, errors.New("convex hull: extent exceeds the integer grid; raise raster_resolution")
	}
	grid := make([]image.Point, len(points))
	for i, p := range points {
		grid[i] = image.Pt(int(math.Round((p.X-minX)/step)), int(math.Round((p.Y-minY)/step)))
	}

	pv := gocv.NewPointVectorFromPoints(grid)
	defer pv.Close()
	indices := gocv.NewMat()
	defer indices.Close()
	gocv.ConvexHull(pv, &indices, false, false)
	if indices.Empty() {
		return nil, nil
	}
	idx, err := indices.DataPtrInt32()
	if err != nil {
		return nil, fmt.Errorf("convex hull: %w", err)
	}

	hull := make(Polygon, 0, len(idx))
	seen := make(map[image.Point]bool, len(idx))
	for _, i := range idx {
		if seen[grid[i]] {
			continue
		}
		seen[grid[i]] = true
		hull = append(hull, points[i])
	}
	if len(hull) < 3 {
		return hull, nil
	}
	return orientCCW(hull), nil
}

// Buffer rasterizes polygon, applies a morphological operation of radius
// |distance|, and traces the outer contour of what remains.
func (e *RasterEngine) Buffer(polygon Polygon, distance float64) (Polygon, error) {
	if distance == 0 {
		return polygon, nil
	}
	if len(polygon) < 3 || polygon.Area() == 0 {
		if distance < 0 {
			return nil, nil
		}
		return nil, errors.New("raster buffer: cannot grow a degenerate polygon")
	}

	radius := int(math.Ceil(math.Abs(distance) / e.Resolution))
	pad := rasterPadding
	if distance > 0 {
		pad += radius
	}

	minX, minY, maxX, maxY := bounds(polygon)
	cols := int(math.Ceil((maxX-minX)/e.Resolution)) + 2*pad + 1
	rows := int(math.Ceil((maxY-minY)/e.Resolution)) + 2*pad + 1
	if cols > maxRasterSide || rows > maxRasterSide {
		return nil, fmt.Errorf("raster buffer: %dx%d pixels exceeds limit; raise raster_resolution", cols, rows)
	}

	toPixel := func(p Point) image.Point {
		return image.Pt(
			int(math.Round((p.X-minX)/e.Resolution))+pad,
			int(math.Round((maxY-p.Y)/e.Resolution))+pad,
		)
	}
	toWorld := func(p image.Point) Point {
		return Point{
			X: float64(p.X-pad)*e.Resolution + minX,
			Y: maxY - float64(p.Y-pad)*e.Resolution,
		}
	}

	mask := gocv.NewMatWithSize(rows, cols, gocv.MatTypeCV8U)
	defer mask.Close()

	ring := make([]image.Point, 0, len(polygon))
	for _, p := range polygon {
		ring = append(ring, toPixel(p))
	}
	pv := gocv.NewPointsVectorFromPoints([][]image.Point{ring})
	defer pv.Close()
	gocv.FillPoly(&mask, pv, color.RGBA{R: 255, G: 255, B: 255, A: 255})

	kernel := gocv.GetStructuringElement(gocv.MorphEllipse, image.Pt(2*radius+1, 2*radius+1))
	defer kernel.Close()

	out := gocv.NewMat()
	defer out.Close()
	if distance < 0 {
		gocv.Erode(mask, &out, kernel)
	} else {
		gocv.Dilate(mask, &out, kernel)
	}
	if gocv.CountNonZero(out) == 0 {
		return nil, nil
	}

	contours := gocv.FindContours(out, gocv.RetrievalExternal, gocv.ChainApproxSimple)
	defer contours.Close()
	var largest []image.Point
	for i := 0; i < contours.Size(); i++ {
		pts := contours.At(i).ToPoints()
		if len(pts) > len(largest) {
			largest = pts
		}
	}
	result := make(Polygon, 0, len(largest))
	for _, p := range largest {
		result = append(result, toWorld(p))
	}
	return result, nil
}

// CountNonEmpty counts polygons with at least one surviving pixel.
func (e *RasterEngine) CountNonEmpty(polygons []Polygon) int {
	count := 0
	for _, p := range polygons {
		if len(p) > 0 {
			count++
		}
	}
	return count
}

func bounds(p Polygon) (minX, minY, maxX, maxY float64) {
	minX, minY = math.Inf(1), math.Inf(1)
	maxX, maxY = math.Inf(-1), math.Inf(-1)
	for _, pt := range p {
		minX = math.Min(minX, pt.X)
		minY = math.Min(minY, pt.Y)
		maxX = math.Max(maxX, pt.X)
		maxY = math.Max(maxY, pt.Y)
	}
	return minX, minY, maxX, maxY
}
