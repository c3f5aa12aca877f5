package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeSurvey()
	if err := c.normalizeNamingCache(); err != nil {
		return err
	}
	c.normalizeInference()
	c.normalizeGeometry()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	if value, ok := os.LookupEnv(envRootDir); ok && strings.TrimSpace(value) != "" {
		c.Paths.RootDir = strings.TrimSpace(value)
	}
	if strings.TrimSpace(c.Paths.RootDir) == "" {
		c.Paths.RootDir = defaultRootDir
	}
	var err error
	if c.Paths.RootDir, err = expandPath(c.Paths.RootDir); err != nil {
		return fmt.Errorf("paths.root_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = filepath.Join(c.Paths.RootDir, "logs")
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeSurvey() {
	c.Survey.Meridian = strings.ToUpper(strings.TrimSpace(c.Survey.Meridian))
	if c.Survey.Meridian == "" {
		c.Survey.Meridian = defaultMeridian
	}
}

func (c *Config) normalizeNamingCache() error {
	if value, ok := os.LookupEnv(envCacheBackend); ok && strings.TrimSpace(value) != "" {
		c.NamingCache.Backend = value
	}
	c.NamingCache.Backend = strings.ToLower(strings.TrimSpace(c.NamingCache.Backend))
	if c.NamingCache.Backend == "" {
		c.NamingCache.Backend = defaultCacheBackend
	}
	if strings.TrimSpace(c.NamingCache.Path) == "" {
		name := defaultJSONCacheName
		if c.NamingCache.Backend == "sqlite" {
			name = defaultSQLiteCacheName
		}
		c.NamingCache.Path = filepath.Join(c.Paths.RootDir, name)
	}
	var err error
	if c.NamingCache.Path, err = expandPath(c.NamingCache.Path); err != nil {
		return fmt.Errorf("naming_cache.path: %w", err)
	}
	return nil
}

func (c *Config) normalizeInference() {
	if c.Inference.SampleLimit <= 0 {
		c.Inference.SampleLimit = defaultSampleLimit
	}
	if c.Inference.SampleStride <= 0 {
		c.Inference.SampleStride = defaultSampleStride
	}
	if c.Inference.HullMargin == 0 {
		c.Inference.HullMargin = defaultHullMargin
	}
	if c.Inference.TimeoutSeconds <= 0 {
		c.Inference.TimeoutSeconds = defaultTimeoutSeconds
	}
}

func (c *Config) normalizeGeometry() {
	c.Geometry.Engine = strings.ToLower(strings.TrimSpace(c.Geometry.Engine))
	if c.Geometry.Engine == "" {
		c.Geometry.Engine = defaultGeometryEngine
	}
	if c.Geometry.RasterResolution <= 0 {
		c.Geometry.RasterResolution = defaultRasterResolution
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	if value, ok := os.LookupEnv(envLogLevel); ok && strings.TrimSpace(value) != "" {
		c.Logging.Level = value
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
