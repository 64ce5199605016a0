package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/MuchTitan/go-logwatch/internal"
	"github.com/MuchTitan/go-logwatch/internal/state"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const minimal = `
Watchers:
  - Name: app
    LogFile: /var/log/app.log
    Patterns: ["ERROR"]
    Interval: 30s
`

func TestParse_Defaults(t *testing.T) {
	cfg, err := Parse([]byte(minimal))
	require.NoError(t, err)

	assert.Equal(t, DefaultStateDir, cfg.System.StateDir)
	assert.Equal(t, BackendJSON, cfg.System.StateBackend)
	assert.Equal(t, filepath.Join(DefaultStateDir, "logwatch.db"), cfg.System.DBFile)
	require.Len(t, cfg.Watchers, 1)
	assert.Equal(t, DefaultStateDir, cfg.Watchers[0].StateDir)
	assert.Empty(t, cfg.Watchers[0].Debounce)

	w, ok := cfg.Watcher("app")
	assert.True(t, ok)
	assert.Equal(t, "/var/log/app.log", w.LogFile)
	_, ok = cfg.Watcher("db")
	assert.False(t, ok)
}

func TestParse_ExpandsEnv(t *testing.T) {
	t.Setenv("LOGWATCH_TEST_DIR", "/srv/logs")
	cfg, err := Parse([]byte(`
System:
  stateDir: ${LOGWATCH_TEST_DIR}/state
Watchers:
  - Name: app
    LogFile: ${LOGWATCH_TEST_DIR}/app.log
    Patterns: ["ERROR"]
    FileEvents: true
`))
	require.NoError(t, err)
	assert.Equal(t, "/srv/logs/state", cfg.System.StateDir)
	assert.Equal(t, "/srv/logs/app.log", cfg.Watchers[0].LogFile)
	assert.Equal(t, DefaultDebounce, cfg.Watchers[0].Debounce)
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{"no watchers", `System: {logLevel: INFO}`, "no watchers"},
		{"bad yaml", "Watchers: [", "failed to parse config"},
		{"bad name", `
Watchers:
  - Name: "my app"
    LogFile: /a.log
    Patterns: [x]
    Interval: 1s`, "invalid name"},
		{"no log file", `
Watchers:
  - Name: app
    Patterns: [x]
    Interval: 1s`, "no LogFile"},
		{"no patterns", `
Watchers:
  - Name: app
    LogFile: /a.log
    Interval: 1s`, "pattern"},
		{"bad pattern", `
Watchers:
  - Name: app
    LogFile: /a.log
    Patterns: ["("]
    Interval: 1s`, "pattern"},
		{"no trigger", `
Watchers:
  - Name: app
    LogFile: /a.log
    Patterns: [x]`, "needs an Interval or FileEvents"},
		{"bad interval", `
Watchers:
  - Name: app
    LogFile: /a.log
    Patterns: [x]
    Interval: often`, "invalid interval"},
		{"bad event", `
Watchers:
  - Name: app
    LogFile: /a.log
    Patterns: [x]
    FileEvents: true
    Events: [touched]`, "unknown file event"},
		{"duplicate", `
Watchers:
  - {Name: app, LogFile: /a.log, Patterns: [x], Interval: 1s}
  - {Name: app, LogFile: /b.log, Patterns: [x], Interval: 1s}`, "used twice"},
		{"bad backend", `
System: {stateBackend: redis}
Watchers:
  - {Name: app, LogFile: /a.log, Patterns: [x], Interval: 1s}`, "unknown state backend"},
		{"bad output", `
Watchers:
  - {Name: app, LogFile: /a.log, Patterns: [x], Interval: 1s}
Outputs:
  - Type: kafka`, "unknown output type"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "failed to read config file")
}

func TestGetLogLevel(t *testing.T) {
	tests := map[string]logrus.Level{
		"trace":   logrus.TraceLevel,
		"DEBUG":   logrus.DebugLevel,
		"":        logrus.InfoLevel,
		"INFO":    logrus.InfoLevel,
		"warning": logrus.WarnLevel,
		"ERROR":   logrus.ErrorLevel,
	}
	for level, want := range tests {
		s := SystemConfig{LogLevel: level}
		assert.Equal(t, want, s.GetLogLevel(), level)
	}
}

func TestSetupLogging_LogFile(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "logwatch.log")
	closer, err := SetupLogging(SystemConfig{LogLevel: "DEBUG", LogFile: logFile})
	require.NoError(t, err)
	t.Cleanup(func() {
		logrus.SetOutput(os.Stderr)
		logrus.SetLevel(logrus.InfoLevel)
	})

	logrus.WithField("watcher", "app").Debug("hello")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(logFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"hello"`)
	assert.Contains(t, string(data), `"watcher":"app"`)
}

func parseConfig(t *testing.T, body string) *Config {
	t.Helper()
	cfg, err := Parse([]byte(body))
	require.NoError(t, err)
	return cfg
}

func TestNewPluginEngineFromConfig_JSON(t *testing.T) {
	dir := t.TempDir()
	logFile := filepath.Join(dir, "app.log")
	require.NoError(t, os.WriteFile(logFile, []byte("line 1\nERROR: line 2\nline 3\n"), 0o644))

	cfg := parseConfig(t, `
System:
  stateDir: `+dir+`/state
Watchers:
  - Name: app
    LogFile: `+logFile+`
    Patterns: ["ERROR"]
    Interval: 1h
Outputs:
  - Type: history
    MaxEntries: 5
`)

	e, err := NewPluginEngineFromConfig(cfg)
	require.NoError(t, err)
	assert.Equal(t, []string{"app"}, e.Watchers())
	assert.IsType(t, &state.JSONStore{}, e.Stores["app"])

	observations, err := e.ObserveOnce()
	require.NoError(t, err)
	require.Len(t, observations, 1)
	assert.True(t, observations[0].Matched)
	assert.Equal(t, int64(28), observations[0].Metadata[internal.MetaOffset])

	st, err := e.Stores["app"].Load("app")
	require.NoError(t, err)
	assert.Equal(t, int64(28), st.Offset)

	assert.FileExists(t, filepath.Join(dir, "state", "app.state.json"))
	assert.FileExists(t, filepath.Join(dir, "state", "app.history.json"))
	assert.Equal(t, 1.0, testutil.ToFloat64(e.Metrics.Polls.WithLabelValues("app", "ok")))

	require.NoError(t, e.Stop())
}

func TestNewPluginEngineFromConfig_SQLiteShared(t *testing.T) {
	dir := t.TempDir()
	cfg := parseConfig(t, `
System:
  stateDir: `+dir+`
  stateBackend: sqlite
Watchers:
  - {Name: app, LogFile: `+dir+`/app.log, Patterns: [ERROR], Interval: 1h}
  - {Name: db, LogFile: `+dir+`/db.log, Patterns: [FATAL], FileEvents: true}
`)

	e, err := NewPluginEngineFromConfig(cfg)
	require.NoError(t, err)
	assert.IsType(t, &state.SQLiteStore{}, e.Stores["app"])
	assert.Same(t, e.Stores["app"], e.Stores["db"])
	assert.FileExists(t, filepath.Join(dir, "logwatch.db"))

	observations, err := e.ObserveOnce("db")
	require.NoError(t, err)
	require.Len(t, observations, 1)
	assert.Equal(t, internal.StatusNotFound, observations[0].Metadata[internal.MetaStatus])

	require.NoError(t, e.Stop())
}

func TestNewPluginEngineFromConfig_BadOutput(t *testing.T) {
	dir := t.TempDir()
	cfg := parseConfig(t, `
Watchers:
  - {Name: app, LogFile: `+dir+`/app.log, Patterns: [ERROR], Interval: 1h}
Outputs:
  - {Type: stdout, Format: yaml}
`)
	_, err := NewPluginEngineFromConfig(cfg)
	assert.ErrorContains(t, err, "failed to initialize output")
}
