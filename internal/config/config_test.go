package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "no-such-config.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "./input", cfg.InputDir)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "point", cfg.DecimalSeparator)
	assert.Equal(t, 10, cfg.Limits.MaxFileSizeMB)
	assert.Equal(t, 5000, cfg.Limits.MaxLines)
	assert.Equal(t, 32, cfg.Limits.MaxXMLDepth)
	assert.Equal(t, 30, cfg.Limits.TimeoutSeconds)
	assert.True(t, cfg.PropagationEnabled)
	assert.False(t, cfg.GroupingEnabled)
	assert.True(t, cfg.ContinueOnError)
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
input_dir: /data/in
decimal_separator: comma
propagation_enabled: false
grouping_enabled: true
limits:
  max_lines: 200
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/data/in", cfg.InputDir)
	assert.Equal(t, "comma", cfg.DecimalSeparator)
	assert.False(t, cfg.PropagationEnabled)
	assert.True(t, cfg.GroupingEnabled)
	assert.Equal(t, 200, cfg.Limits.MaxLines)
	// Keys absent from the file keep their defaults.
	assert.Equal(t, 10, cfg.Limits.MaxFileSizeMB)
	assert.Equal(t, "./output", cfg.OutputDir)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := []struct {
		name string
		yaml string
	}{
		{"bad log level", "log_level: loud"},
		{"bad separator", "decimal_separator: space"},
		{"zero concurrency", "max_concurrency: -1"},
		{"negative timeout", "limits:\n  timeout_seconds: -5"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tc.yaml))
			assert.Error(t, err)
		})
	}
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	_, err := Load(writeConfig(t, "input_dir: [unclosed"))
	assert.Error(t, err)
}

func TestEnvOverridesWin(t *testing.T) {
	path := writeConfig(t, "limits:\n  max_lines: 200\n")

	t.Setenv("INVOICECONV_MAX_LINES", "99")
	t.Setenv("INVOICECONV_LOG_LEVEL", "debug")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 99, cfg.Limits.MaxLines)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestEnvOverrideIgnoresGarbage(t *testing.T) {
	t.Setenv("INVOICECONV_TIMEOUT_SECONDS", "soon")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, 30, cfg.Limits.TimeoutSeconds)
}

func TestLimitsConversions(t *testing.T) {
	l := Limits{MaxFileSizeMB: 2, TimeoutSeconds: 45}

	assert.Equal(t, int64(2*1024*1024), l.MaxFileSizeBytes())
	assert.Equal(t, 45*time.Second, l.Timeout())
}

func TestLocationFallsBackToUTC(t *testing.T) {
	cfg := Default()
	cfg.Timezone = "Mars/Olympus_Mons"

	assert.Equal(t, time.UTC, cfg.Location())
}
