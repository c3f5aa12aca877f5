package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateSurvey(); err != nil {
		return err
	}
	if err := c.validateNamingCache(); err != nil {
		return err
	}
	if err := c.validateInference(); err != nil {
		return err
	}
	if err := c.validateGeometry(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateSurvey() error {
	switch c.Survey.Meridian {
	case "M28", "M31", "M34":
		return nil
	default:
		return fmt.Errorf("survey.meridian must be one of %s, got %q", supportedMeridiansForMessage, c.Survey.Meridian)
	}
}

func (c *Config) validateNamingCache() error {
	switch c.NamingCache.Backend {
	case "json", "sqlite":
	default:
		return fmt.Errorf("naming_cache.backend must be \"json\" or \"sqlite\", got %q", c.NamingCache.Backend)
	}
	if c.NamingCache.Path == "" {
		return errors.New("naming_cache.path must be set")
	}
	return nil
}

func (c *Config) validateInference() error {
	if err := ensurePositiveMap(map[string]int{
		"inference.sample_limit":    c.Inference.SampleLimit,
		"inference.sample_stride":   c.Inference.SampleStride,
		"inference.timeout_seconds": c.Inference.TimeoutSeconds,
	}); err != nil {
		return err
	}
	if c.Inference.HullMargin < 0 {
		return errors.New("inference.hull_margin must be positive")
	}
	if c.Inference.MaxEliminations < 0 {
		return errors.New("inference.max_eliminations must be >= 0")
	}
	if c.Inference.VerifyRetries < 0 {
		return errors.New("inference.verify_retries must be >= 0")
	}
	return nil
}

func (c *Config) validateGeometry() error {
	switch c.Geometry.Engine {
	case "planar", "gocv":
		return nil
	default:
		return fmt.Errorf("geometry.engine must be \"planar\" or \"gocv\", got %q", c.Geometry.Engine)
	}
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
