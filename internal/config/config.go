package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains the processing root and log directory.
type Paths struct {
	RootDir string `toml:"root_dir"`
	LogDir  string `toml:"log_dir"`
}

// Survey contains defaults applied to survey blocks when the CLI does not
// name them explicitly.
type Survey struct {
	Meridian string `toml:"meridian"`
}

// NamingCache contains configuration for the persisted naming scheme cache.
type NamingCache struct {
	Backend string `toml:"backend"` // "json" or "sqlite"
	Path    string `toml:"path"`    // Default: <root_dir>/name_flugstreifen.json (json) or naming_cache.db (sqlite)
}

// Inference contains the limits of the naming inference state machine.
type Inference struct {
	SampleLimit  int `toml:"sample_limit"`
	SampleStride int `toml:"sample_stride"`
	// HullMargin is the negative buffer distance, in projected units, that a
	// strip footprint must collapse under to count as a line.
	HullMargin float64 `toml:"hull_margin"`
	// MaxEliminations caps elimination rounds below the natural L-1 bound.
	// Zero means no extra cap.
	MaxEliminations int `toml:"max_eliminations"`
	VerifyRetries   int `toml:"verify_retries"`
	TimeoutSeconds  int `toml:"timeout_seconds"`
}

// Geometry selects the engine backing collinearity verification.
type Geometry struct {
	Engine           string  `toml:"engine"` // "planar" or "gocv"
	RasterResolution float64 `toml:"raster_resolution"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for flightstrip.
//
// Configuration sections by subsystem:
//   - Paths: processing root and log directory
//   - Survey: default meridian zone for survey blocks
//   - NamingCache: naming scheme cache backend and location
//   - Inference: sampling and elimination limits
//   - Geometry: collinearity engine selection
//   - Logging: log format and level
type Config struct {
	Paths       Paths       `toml:"paths"`
	Survey      Survey      `toml:"survey"`
	NamingCache NamingCache `toml:"naming_cache"`
	Inference   Inference   `toml:"inference"`
	Geometry    Geometry    `toml:"geometry"`
	Logging     Logging     `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/flightstrip/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	// A missing .env is the normal case.
	_ = godotenv.Load()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("flightstrip.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the processing root, the log directory, and the
// parent directory of the naming cache.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.RootDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	if strings.TrimSpace(c.NamingCache.Path) != "" {
		dir := filepath.Dir(c.NamingCache.Path)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create naming cache directory %q: %w", dir, err)
		}
	}
	return nil
}

// InferenceTimeout returns the per-block inference budget.
func (c *Config) InferenceTimeout() time.Duration {
	return time.Duration(c.Inference.TimeoutSeconds) * time.Second
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	sample := sampleConfig

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sample), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
