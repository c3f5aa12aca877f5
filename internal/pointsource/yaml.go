package pointsource

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/goccy/go-yaml"

	"flightstrip/internal/geometry"
	"flightstrip/internal/survey"
)

// YAMLReader reads a list of {name, x, y} mappings, either at the top level
// or under a "points" key.
type YAMLReader struct{}

func NewYAMLReader() *YAMLReader { return &YAMLReader{} }

func (y *YAMLReader) Name() string { return "yaml" }

func (y *YAMLReader) CanHandle(path string) bool { return hasExtension(path, ".yaml", ".yml") }

type yamlPoint struct {
	Name string   `yaml:"name"`
	X    *float64 `yaml:"x"`
	Y    *float64 `yaml:"y"`
}

func (y *YAMLReader) Read(ctx context.Context, r io.Reader) ([]survey.ImagePoint, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	var list []yamlPoint
	if strings.HasPrefix(strings.TrimSpace(string(data)), "points:") {
		var doc struct {
			Points []yamlPoint `yaml:"points"`
		}
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("failed to unmarshal YAML: %w", err)
		}
		list = doc.Points
	} else if err := yaml.Unmarshal(data, &list); err != nil {
		return nil, fmt.Errorf("failed to unmarshal YAML: %w", err)
	}

	points := make([]survey.ImagePoint, 0, len(list))
	for i, item := range list {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if item.X == nil || item.Y == nil {
			return nil, fmt.Errorf("point %d: x and y are required", i+1)
		}
		p := survey.ImagePoint{Name: strings.TrimSpace(item.Name), Location: geometry.Point{X: *item.X, Y: *item.Y}}
		if err := validatePoint(p, i); err != nil {
			return nil, err
		}
		points = append(points, p)
	}
	return points, nil
}
