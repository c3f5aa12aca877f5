// Package pointsource reads photo points (filename plus projected centre) from
// exported point files. CSV, GeoJSON, and YAML exports are supported; order of
// the input is preserved.
package pointsource

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"flightstrip/internal/survey"
)

// ErrUnsupportedFormat is returned when no reader handles a file.
var ErrUnsupportedFormat = errors.New("unsupported point file format")

// Reader decodes one point file format.
type Reader interface {
	Name() string
	CanHandle(path string) bool
	Read(ctx context.Context, r io.Reader) ([]survey.ImagePoint, error)
}

// Registry picks a Reader by file name.
type Registry struct {
	readers []Reader
}

// NewRegistry returns a registry with the CSV, GeoJSON, and YAML readers.
func NewRegistry() *Registry {
	return &Registry{readers: []Reader{NewCSVReader(), NewGeoJSONReader(), NewYAMLReader()}}
}

// Formats lists the registered reader names.
func (r *Registry) Formats() []string {
	names := make([]string, len(r.readers))
	for i, reader := range r.readers {
		names[i] = reader.Name()
	}
	return names
}

// Load reads all points from path.
func (r *Registry) Load(ctx context.Context, path string) ([]survey.ImagePoint, error) {
	for _, reader := range r.readers {
		if !reader.CanHandle(path) {
			continue
		}
		file, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open point file: %w", err)
		}
		defer file.Close()

		points, err := reader.Read(ctx, file)
		if err != nil {
			return nil, fmt.Errorf("read %s points from %s: %w", reader.Name(), filepath.Base(path), err)
		}
		return points, nil
	}
	return nil, fmt.Errorf("%w: %s (supported: %s)", ErrUnsupportedFormat, filepath.Base(path), strings.Join(r.Formats(), ", "))
}

// Load reads path with the default registry.
func Load(ctx context.Context, path string) ([]survey.ImagePoint, error) {
	return NewRegistry().Load(ctx, path)
}

func hasExtension(path string, exts ...string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range exts {
		if ext == e {
			return true
		}
	}
	return false
}

func validatePoint(p survey.ImagePoint, index int) error {
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("point %d has no name", index+1)
	}
	return nil
}
