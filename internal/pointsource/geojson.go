package pointsource

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"flightstrip/internal/geometry"
	"flightstrip/internal/survey"
)

// GeoJSONReader reads a FeatureCollection of Point features whose properties
// carry the image name under "name" or "img_name".
type GeoJSONReader struct{}

func NewGeoJSONReader() *GeoJSONReader { return &GeoJSONReader{} }

func (g *GeoJSONReader) Name() string { return "geojson" }

func (g *GeoJSONReader) CanHandle(path string) bool { return hasExtension(path, ".geojson", ".json") }

type featureCollection struct {
	Type     string    `json:"type"`
	Features []feature `json:"features"`
}

type feature struct {
	Geometry struct {
		Type        string    `json:"type"`
		Coordinates []float64 `json:"coordinates"`
	} `json:"geometry"`
	Properties map[string]any `json:"properties"`
}

func (g *GeoJSONReader) Read(ctx context.Context, r io.Reader) ([]survey.ImagePoint, error) {
	var fc featureCollection
	if err := json.NewDecoder(r).Decode(&fc); err != nil {
		return nil, fmt.Errorf("decode geojson: %w", err)
	}
	if fc.Type != "FeatureCollection" {
		return nil, fmt.Errorf("expected FeatureCollection, got %q", fc.Type)
	}

	points := make([]survey.ImagePoint, 0, len(fc.Features))
	for i, f := range fc.Features {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if f.Geometry.Type != "Point" || len(f.Geometry.Coordinates) < 2 {
			return nil, fmt.Errorf("feature %d: expected Point geometry", i+1)
		}
		p := survey.ImagePoint{
			Name:     featureName(f.Properties),
			Location: geometry.Point{X: f.Geometry.Coordinates[0], Y: f.Geometry.Coordinates[1]},
		}
		if err := validatePoint(p, i); err != nil {
			return nil, err
		}
		points = append(points, p)
	}
	return points, nil
}

func featureName(props map[string]any) string {
	for _, key := range []string{"name", "img_name"} {
		if v, ok := props[key].(string); ok {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
