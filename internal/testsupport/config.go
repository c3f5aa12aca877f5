package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"flightstrip/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// The root and log directories exist on return.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.RootDir = filepath.Join(base, "root")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.NamingCache.Path = filepath.Join(cfgVal.Paths.RootDir, "name_flugstreifen.json")
	cfgVal.Logging.Level = "error"

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	if err := builder.cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	return builder.cfg
}

// WithSQLiteCache switches the config to the SQLite cache backend.
func WithSQLiteCache() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.NamingCache.Backend = "sqlite"
		b.cfg.NamingCache.Path = filepath.Join(b.cfg.Paths.RootDir, "naming_cache.db")
	}
}

// WithMeridian overrides the default survey meridian.
func WithMeridian(meridian string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Survey.Meridian = meridian
	}
}

// WithHullMargin overrides the collinearity margin.
func WithHullMargin(margin float64) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Inference.HullMargin = margin
	}
}

// WriteConfigFile serialises the essentials of cfg as TOML under the test's
// base directory and returns its path, for tests that drive the CLI through
// --config.
func WriteConfigFile(t testing.TB, cfg *config.Config) string {
	t.Helper()

	path := filepath.Join(BaseDir(cfg), "config.toml")
	body := "[paths]\n" +
		"root_dir = " + quote(cfg.Paths.RootDir) + "\n" +
		"log_dir = " + quote(cfg.Paths.LogDir) + "\n\n" +
		"[survey]\nmeridian = " + quote(cfg.Survey.Meridian) + "\n\n" +
		"[naming_cache]\n" +
		"backend = " + quote(cfg.NamingCache.Backend) + "\n" +
		"path = " + quote(cfg.NamingCache.Path) + "\n\n" +
		"[logging]\nlevel = " + quote(cfg.Logging.Level) + "\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.RootDir)
}

func quote(value string) string {
	return "'" + value + "'"
}
