// Package strips groups photo points into flight strips using an inferred
// naming scheme and classifies each strip's direction.
package strips

import (
	"fmt"
	"math"

	"flightstrip/internal/naming"
	"flightstrip/internal/survey"
)

// LongObliqueThreshold is the length, in projected units, above which an
// oblique strip is flagged Long.
const LongObliqueThreshold = 30000.0

// Orientation classifies a strip by its first-to-last bearing.
type Orientation string

const (
	OrientationVertical   Orientation = "vertical"
	OrientationHorizontal Orientation = "horizontal"
	OrientationOblique    Orientation = "oblique"
	// OrientationUndetermined is used for strips with a single photo.
	OrientationUndetermined Orientation = "undetermined"
)

// Strip is the set of photos sharing one strip label.
type Strip struct {
	Label       string              `json:"label"`
	Points      []survey.ImagePoint `json:"points"`
	Length      float64             `json:"length"`
	Bearing     float64             `json:"bearing"`
	Orientation Orientation         `json:"orientation"`
	Long        bool                `json:"long"`
}

// Assemble groups points by their label under scheme. Strips appear in order
// of their first photo and keep photos in input order.
func Assemble(points []survey.ImagePoint, scheme naming.Scheme) ([]Strip, error) {
	index := map[string]int{}
	var out []Strip
	for _, p := range points {
		label, err := scheme.Label(p.Name)
		if err != nil {
			return nil, fmt.Errorf("label %q: %w", p.Name, err)
		}
		i, ok := index[label]
		if !ok {
			i = len(out)
			index[label] = i
			out = append(out, Strip{Label: label})
		}
		out[i].Points = append(out[i].Points, p)
	}
	for i := range out {
		measure(&out[i])
	}
	return out, nil
}

func measure(s *Strip) {
	if len(s.Points) < 2 {
		s.Orientation = OrientationUndetermined
		return
	}
	for i := 1; i < len(s.Points); i++ {
		a, b := s.Points[i-1].Location, s.Points[i].Location
		s.Length += math.Hypot(b.X-a.X, b.Y-a.Y)
	}
	first, last := s.Points[0].Location, s.Points[len(s.Points)-1].Location
	s.Bearing = Bearing(first.X, first.Y, last.X, last.Y)
	s.Orientation = Classify(s.Bearing)
	s.Long = s.Orientation == OrientationOblique && s.Length > LongObliqueThreshold
}

// Bearing returns the compass bearing in degrees from (x0, y0) to (x1, y1):
// 0 is grid north, angles grow clockwise, the result lies in [0, 360).
func Bearing(x0, y0, x1, y1 float64) float64 {
	deg := math.Atan2(x1-x0, y1-y0) * 180 / math.Pi
	if deg < 0 {
		deg += 360
	}
	if deg >= 360 {
		deg -= 360
	}
	return deg
}

// Classify maps a bearing to an orientation with a 3 degree tolerance around
// the grid axes.
func Classify(bearing float64) Orientation {
	switch {
	case bearing >= 357 || bearing <= 3, bearing >= 177 && bearing <= 183:
		return OrientationVertical
	case bearing >= 87 && bearing <= 93, bearing >= 267 && bearing <= 273:
		return OrientationHorizontal
	default:
		return OrientationOblique
	}
}
