package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flightstrip/internal/config"
	"flightstrip/internal/services"
	"flightstrip/internal/survey"
	"flightstrip/internal/testsupport"
)

type cliTestEnv struct {
	cfg        *config.Config
	configPath string
	baseDir    string
}

func setupCLITestEnv(t *testing.T, opts ...testsupport.ConfigOption) *cliTestEnv {
	t.Helper()

	cfg := testsupport.NewConfig(t, opts...)
	base := testsupport.BaseDir(cfg)
	home := filepath.Join(base, "home")
	require.NoError(t, os.MkdirAll(home, 0o755))
	t.Setenv("HOME", home)
	t.Setenv("FLIGHTSTRIP_ROOT", "")
	t.Setenv("FLIGHTSTRIP_LOG_LEVEL", "")
	t.Setenv("FLIGHTSTRIP_CACHE_BACKEND", "")
	t.Chdir(base)

	return &cliTestEnv{
		cfg:        cfg,
		configPath: testsupport.WriteConfigFile(t, cfg),
		baseDir:    base,
	}
}

func (e *cliTestEnv) run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()

	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(append([]string{"--config", e.configPath}, args...))
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func (e *cliTestEnv) pointsFile(t *testing.T, name string) string {
	t.Helper()
	return testsupport.WritePointsCSV(t, e.baseDir, name, testsupport.StripRows("20230611", 4, 30))
}

func TestInferPrintsSchemeAndWritesMatchReport(t *testing.T) {
	env := setupCLITestEnv(t)
	points := env.pointsFile(t, "points.csv")

	out, _, err := env.run(t, "infer", "--block", "1234", points)
	require.NoError(t, err)
	assert.Contains(t, out, "Block 1234 (M31, EPSG:31255)")
	assert.Contains(t, out, `positions [0 1] separator "_"`)
	assert.NotContains(t, out, "(cached)")

	report, err := os.ReadFile(filepath.Join(env.cfg.Paths.RootDir, "M31", "1234", survey.MatchReportName))
	require.NoError(t, err)
	assert.Equal(t, "0;1;2\n36;10;6\n", string(report))

	out, _, err = env.run(t, "infer", "--block", "1234", points)
	require.NoError(t, err)
	assert.Contains(t, out, "(cached)")

	out, _, err = env.run(t, "infer", "--block", "1234", "--force", "--explain", points)
	require.NoError(t, err)
	assert.NotContains(t, out, "(cached)")
	assert.Contains(t, out, "Eliminations")
	assert.Contains(t, out, "collinear")
}

func TestInferJSONOutput(t *testing.T) {
	env := setupCLITestEnv(t)
	points := env.pointsFile(t, "points.csv")

	out, _, err := env.run(t, "--json", "infer", "--block", "77", "--meridian", "m34", points)
	require.NoError(t, err)

	var views []inferView
	require.NoError(t, json.Unmarshal([]byte(out), &views))
	require.Len(t, views, 1)
	view := views[0]
	assert.Equal(t, "77", view.Block)
	assert.Equal(t, "M34", view.Meridian)
	assert.Equal(t, 31256, view.EPSG)
	assert.False(t, view.CacheHit)
	assert.Equal(t, 6, view.SampleSize)
	assert.Equal(t, []int{36, 10, 6}, view.Counts)
	require.NotNil(t, view.Scheme)
	assert.Equal(t, []int{0, 1}, view.Scheme.Positions)
	assert.Equal(t, "_", view.Scheme.Separator)
	require.Len(t, view.Steps, 1)
	assert.Equal(t, 2, view.Steps[0].Eliminated)
	assert.NotEmpty(t, view.RunID)
}

func TestInferSeveralBlocksConcurrently(t *testing.T) {
	env := setupCLITestEnv(t)
	first := env.pointsFile(t, "1001.csv")
	second := env.pointsFile(t, "1002.geojson.csv")
	third := env.pointsFile(t, "1003.csv")

	_, _, err := env.run(t, "infer", "--jobs", "2", first, third)
	require.NoError(t, err)

	out, _, err := env.run(t, "--json", "cache", "list")
	require.NoError(t, err)
	var entries []cacheEntryView
	require.NoError(t, json.Unmarshal([]byte(out), &entries))
	require.Len(t, entries, 2)
	assert.Equal(t, "1001", entries[0].Block)
	assert.Equal(t, "1003", entries[1].Block)
	assert.Nil(t, entries[0].CachedAt)

	// "1002.geojson" is not a numeric block id.
	_, _, err = env.run(t, "infer", first, second)
	require.Error(t, err)
	assert.Equal(t, services.ExitValidation, services.ExitCode(err))
	assert.Contains(t, err.Error(), "block 1002.geojson")
}

func TestInferFlagValidation(t *testing.T) {
	env := setupCLITestEnv(t)
	points := env.pointsFile(t, "points.csv")

	_, _, err := env.run(t, "infer", points)
	require.Error(t, err)
	assert.Equal(t, services.ExitValidation, services.ExitCode(err))

	_, _, err = env.run(t, "infer", "--block", "1", points, points)
	require.Error(t, err)
	assert.Equal(t, services.ExitValidation, services.ExitCode(err))

	_, _, err = env.run(t, "infer", "--block", "1", filepath.Join(env.baseDir, "missing.csv"))
	require.Error(t, err)
	assert.Equal(t, services.ExitNotFound, services.ExitCode(err))
}

func TestInferRejectsUnsupportedNamingConvention(t *testing.T) {
	env := setupCLITestEnv(t)
	points := testsupport.WritePointsCSV(t, env.baseDir, "bad.csv", []testsupport.PointRow{
		{Name: "20230611_FL1_0001", X: 0, Y: 0},
		{Name: "20230611_FL1", X: 10, Y: 0},
	})

	out, _, err := env.run(t, "infer", "--block", "99", points)
	require.Error(t, err)
	assert.Equal(t, services.ExitValidation, services.ExitCode(err))
	assert.Contains(t, out, "failed")

	out, _, err = env.run(t, "--json", "cache", "list")
	require.NoError(t, err)
	assert.Equal(t, "[]\n", out)
}

func TestLabelsUsesCachedScheme(t *testing.T) {
	env := setupCLITestEnv(t)
	points := env.pointsFile(t, "points.csv")

	_, _, err := env.run(t, "labels", "--block", "1234", points)
	require.Error(t, err)
	assert.Equal(t, services.ExitNotFound, services.ExitCode(err))

	_, _, err = env.run(t, "infer", "--block", "1234", points)
	require.NoError(t, err)

	out, _, err := env.run(t, "--json", "labels", "--block", "1234", points)
	require.NoError(t, err)
	var labels []labelView
	require.NoError(t, json.Unmarshal([]byte(out), &labels))
	require.Len(t, labels, 120)
	assert.Equal(t, labelView{Name: "20230611_FL1_0001", Label: "20230611_FL1"}, labels[0])
	assert.Equal(t, "20230611_FL4", labels[119].Label)

	out, _, err = env.run(t, "labels", "--block", "1234", "--strips", points)
	require.NoError(t, err)
	assert.Contains(t, out, "4 strips")
	assert.Contains(t, out, "horizontal")
	assert.Contains(t, out, "7250.0")
}

func TestCacheRemoveAndClear(t *testing.T) {
	env := setupCLITestEnv(t)
	_, _, err := env.run(t, "infer", env.pointsFile(t, "501.csv"), env.pointsFile(t, "502.csv"))
	require.NoError(t, err)

	out, _, err := env.run(t, "cache", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "501")
	assert.Contains(t, out, "502")

	out, _, err = env.run(t, "cache", "remove", "501")
	require.NoError(t, err)
	assert.Contains(t, out, "Removed block 501")

	_, _, err = env.run(t, "cache", "remove", "501")
	require.Error(t, err)
	assert.Equal(t, services.ExitNotFound, services.ExitCode(err))

	_, _, err = env.run(t, "cache", "clear")
	require.Error(t, err)
	assert.Equal(t, services.ExitValidation, services.ExitCode(err))

	out, _, err = env.run(t, "cache", "clear", "--yes")
	require.NoError(t, err)
	assert.Contains(t, out, "Cleared 1 cached schemes")

	out, _, err = env.run(t, "cache", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "is empty")
}

func TestSQLiteBackendRecordsTimestamps(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.WithSQLiteCache())
	_, _, err := env.run(t, "infer", "--block", "4242", env.pointsFile(t, "points.csv"))
	require.NoError(t, err)

	out, _, err := env.run(t, "--json", "cache", "list")
	require.NoError(t, err)
	var entries []cacheEntryView
	require.NoError(t, json.Unmarshal([]byte(out), &entries))
	require.Len(t, entries, 1)
	assert.Equal(t, "4242", entries[0].Block)
	assert.NotNil(t, entries[0].CachedAt)
	assert.Equal(t, map[int]int{0: 36, 1: 10}, entries[0].Scheme.Kept)
}

func TestStatusJSON(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := env.run(t, "--json", "status")
	require.NoError(t, err)
	var view statusView
	require.NoError(t, json.Unmarshal([]byte(out), &view))
	assert.True(t, view.ConfigExists)
	assert.Equal(t, env.configPath, view.ConfigPath)
	assert.Equal(t, "json", view.CacheBackend)
	assert.Equal(t, 0, view.CacheEntries)
	require.NotEmpty(t, view.Checks)
	for _, c := range view.Checks {
		assert.True(t, c.Passed, "%s: %s", c.Name, c.Detail)
	}
}

func TestStatusText(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := env.run(t, "status")
	require.NoError(t, err)
	assert.Contains(t, out, "== Preflight ==")
	assert.Contains(t, out, "[OK]")
	assert.NotContains(t, out, ansiReset, "buffers are never colourised")
}

func TestConfigInitAndValidate(t *testing.T) {
	env := setupCLITestEnv(t)
	target := filepath.Join(env.baseDir, "sample", "config.toml")

	out, _, err := env.run(t, "config", "init", "--path", target)
	require.NoError(t, err)
	assert.Contains(t, out, target)

	_, _, err = env.run(t, "config", "init", "--path", target)
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "already exists"))

	cmd := newRootCommand()
	var stdout bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--config", target, "config", "validate"})
	require.NoError(t, cmd.Execute())
	assert.Contains(t, stdout.String(), "Configuration valid")
	assert.Contains(t, stdout.String(), filepath.Join(env.baseDir, "home", ".local", "share", "flightstrip"))
}

func TestInvalidConfigMapsToConfigurationExit(t *testing.T) {
	env := setupCLITestEnv(t)
	bad := filepath.Join(env.baseDir, "bad.toml")
	require.NoError(t, os.WriteFile(bad, []byte("[survey]\nmeridian = 'M99'\n"), 0o644))

	cmd := newRootCommand()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--config", bad, "status"})
	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, services.ExitConfiguration, services.ExitCode(err))
}
