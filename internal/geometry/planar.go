package geometry

import (
	"errors"
	"math"

	"github.com/peterstace/simplefeatures/geom"
)

const areaEpsilon = 1e-9

// Planar implements Engine in pure Go. Hulls come from simplefeatures.
//
// Buffers only shrink: the inward offset of a convex polygon by d is the
// intersection of its edge half-planes each moved inward by d, which is what a
// round-cap negative buffer produces for convex input.
type Planar struct{}

// ConvexHull returns the hull of points as computed by simplefeatures. Fewer
// than three distinct points, or collinear input, yield a degenerate hull
// holding the extreme points.
func (Planar) ConvexHull(points []Point) (Polygon, error) {
	pts := make([]geom.Point, 0, len(points))
	for _, p := range points {
		if !finite(p) {
			return nil, errors.New("convex hull: non-finite coordinate")
		}
		pts = append(pts, geom.XY{X: p.X, Y: p.Y}.AsPoint())
	}
	if len(pts) == 0 {
		return nil, nil
	}

	seq := geom.NewMultiPoint(pts).ConvexHull().DumpCoordinates()
	hull := make(Polygon, 0, seq.Length())
	for i := 0; i < seq.Length(); i++ {
		xy := seq.GetXY(i)
		hull = append(hull, Point{X: xy.X, Y: xy.Y})
	}
	// Polygon rings come back closed.
	if n := len(hull); n > 1 && hull[0] == hull[n-1] {
		hull = hull[:n-1]
	}
	if len(hull) < 3 {
		return hull, nil
	}
	return orientCCW(hull), nil
}

// Buffer offsets polygon by distance. Negative distances shrink it; a zero
// distance returns it unchanged. Growing is not supported.
func (Planar) Buffer(polygon Polygon, distance float64) (Polygon, error) {
	if distance > 0 {
		return nil, errors.New("buffer: planar engine only supports negative distances")
	}
	if distance == 0 {
		return polygon, nil
	}
	if len(polygon) < 3 || polygon.Area() <= areaEpsilon {
		return nil, nil
	}

	ring := orientCCW(polygon)
	result := append(Polygon(nil), ring...)
	inset := -distance
	for i := range ring {
		a := ring[i]
		b := ring[(i+1)%len(ring)]
		dx, dy := b.X-a.X, b.Y-a.Y
		length := math.Hypot(dx, dy)
		if length == 0 {
			continue
		}
		// Inward normal of a counter-clockwise edge.
		nx, ny := -dy/length, dx/length
		origin := Point{X: a.X + nx*inset, Y: a.Y + ny*inset}
		result = clipHalfPlane(result, origin, Point{X: nx, Y: ny})
		if len(result) < 3 {
			return nil, nil
		}
	}
	if result.Area() <= areaEpsilon {
		return nil, nil
	}
	return result, nil
}

// CountNonEmpty counts polygons that still enclose area.
func (Planar) CountNonEmpty(polygons []Polygon) int {
	count := 0
	for _, p := range polygons {
		if len(p) >= 3 && p.Area() > areaEpsilon {
			count++
		}
	}
	return count
}

// clipHalfPlane keeps the part of poly where (p - origin) . normal >= 0
// (Sutherland-Hodgman against a single edge).
func clipHalfPlane(poly Polygon, origin, normal Point) Polygon {
	side := func(p Point) float64 {
		return (p.X-origin.X)*normal.X + (p.Y-origin.Y)*normal.Y
	}
	out := make(Polygon, 0, len(poly)+1)
	for i := range poly {
		cur := poly[i]
		next := poly[(i+1)%len(poly)]
		sc, sn := side(cur), side(next)
		if sc >= 0 {
			out = append(out, cur)
		}
		if (sc >= 0) != (sn >= 0) {
			t := sc / (sc - sn)
			out = append(out, Point{X: cur.X + t*(next.X-cur.X), Y: cur.Y + t*(next.Y-cur.Y)})
		}
	}
	return out
}

func orientCCW(p Polygon) Polygon {
	var sum float64
	for i := range p {
		j := (i + 1) % len(p)
		sum += p[i].X*p[j].Y - p[j].X*p[i].Y
	}
	if sum >= 0 {
		return p
	}
	out := make(Polygon, len(p))
	for i := range p {
		out[i] = p[len(p)-1-i]
	}
	return out
}

func finite(p Point) bool {
	return !math.IsNaN(p.X) && !math.IsNaN(p.Y) && !math.IsInf(p.X, 0) && !math.IsInf(p.Y, 0)
}
