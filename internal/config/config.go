package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/MuchTitan/go-logwatch/internal/filter"
	"github.com/MuchTitan/go-logwatch/internal/trigger"
	"github.com/sirupsen/logrus"

	"gopkg.in/yaml.v3"
)

const (
	DefaultPath     = "/app/cfg.yaml"
	DefaultStateDir = "/var/lib/logwatch"
	DefaultDebounce = "1s"

	BackendJSON   = "json"
	BackendSQLite = "sqlite"
)

var (
	validName   = regexp.MustCompile(`^[A-Za-z0-9_.-]+$`)
	outputTypes = []string{"stdout", "gelf", "splunk", "history"}
)

// Config represents the complete configuration
type Config struct {
	System   SystemConfig     `yaml:"System"`
	Watchers []WatcherConfig  `yaml:"Watchers"`
	Outputs  []map[string]any `yaml:"Outputs"`
}

// SystemConfig holds system-wide configuration
type SystemConfig struct {
	LogLevel     string `yaml:"logLevel"`
	LogFile      string `yaml:"logFile"`
	StateDir     string `yaml:"stateDir"`
	StateBackend string `yaml:"stateBackend"`
	DBFile       string `yaml:"dbFile"`
	MetricsAddr  string `yaml:"metricsAddr"`
}

// WatcherConfig describes one watched log file and when it is polled.
type WatcherConfig struct {
	Name       string   `yaml:"Name"`
	LogFile    string   `yaml:"LogFile"`
	Patterns   []string `yaml:"Patterns"`
	StateDir   string   `yaml:"StateDir"`
	Interval   string   `yaml:"Interval"`
	FileEvents bool     `yaml:"FileEvents"`
	Events     []string `yaml:"Events"`
	Debounce   string   `yaml:"Debounce"`
}

func (c *SystemConfig) GetLogLevel() logrus.Level {
	switch strings.ToUpper(c.LogLevel) {
	case "TRACE":
		return logrus.TraceLevel
	case "DEBUG":
		return logrus.DebugLevel
	case "WARNING":
		return logrus.WarnLevel
	case "ERROR":
		return logrus.ErrorLevel
	default:
		// Default LogLevel Info
		return logrus.InfoLevel
	}
}

// Load reads a YAML config file, expands environment variables, applies
// defaults and validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

func Parse(data []byte) (*Config, error) {
	// Replace environment variables
	expandedData := os.ExpandEnv(string(data))

	cfg := &Config{}
	if err := yaml.Unmarshal([]byte(expandedData), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.System.StateDir == "" {
		c.System.StateDir = DefaultStateDir
	}
	if c.System.StateBackend == "" {
		c.System.StateBackend = BackendJSON
	}
	c.System.StateBackend = strings.ToLower(c.System.StateBackend)
	if c.System.DBFile == "" {
		c.System.DBFile = filepath.Join(c.System.StateDir, "logwatch.db")
	}

	for i := range c.Watchers {
		w := &c.Watchers[i]
		if w.StateDir == "" {
			w.StateDir = c.System.StateDir
		}
		if w.FileEvents && w.Debounce == "" {
			w.Debounce = DefaultDebounce
		}
	}
}

func (c *Config) Validate() error {
	var errs []error

	switch c.System.StateBackend {
	case BackendJSON, BackendSQLite:
	default:
		errs = append(errs, fmt.Errorf("unknown state backend: %s", c.System.StateBackend))
	}

	if len(c.Watchers) == 0 {
		errs = append(errs, errors.New("no watchers configured"))
	}
	seen := make(map[string]bool)
	for i, w := range c.Watchers {
		if err := w.validate(); err != nil {
			errs = append(errs, fmt.Errorf("watcher %d (%s): %w", i, w.Name, err))
		}
		if seen[w.Name] {
			errs = append(errs, fmt.Errorf("watcher name %q used twice", w.Name))
		}
		seen[w.Name] = true
	}

	for i, out := range c.Outputs {
		typ, _ := out["Type"].(string)
		if !isOutputType(typ) {
			errs = append(errs, fmt.Errorf("output %d: unknown output type: %v", i, out["Type"]))
		}
	}

	return errors.Join(errs...)
}

func (w WatcherConfig) validate() error {
	if !validName.MatchString(w.Name) {
		return fmt.Errorf("invalid name %q, use letters, digits, '_', '.' and '-'", w.Name)
	}
	if w.LogFile == "" {
		return errors.New("no LogFile set")
	}
	if _, err := filter.NewGrep(w.Patterns); err != nil {
		return err
	}
	if w.Interval == "" && !w.FileEvents {
		return errors.New("needs an Interval or FileEvents")
	}
	if w.Interval != "" {
		if _, err := w.IntervalDuration(); err != nil {
			return err
		}
	}
	if w.FileEvents {
		debounce, err := w.DebounceDuration()
		if err != nil {
			return err
		}
		if _, err := trigger.NewFileEvent(w.LogFile, "", w.Events, debounce); err != nil {
			return err
		}
	}
	return nil
}

func (w WatcherConfig) IntervalDuration() (time.Duration, error) {
	d, err := time.ParseDuration(w.Interval)
	if err != nil {
		return 0, fmt.Errorf("invalid interval: %w", err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("interval must be positive, got %s", w.Interval)
	}
	return d, nil
}

func (w WatcherConfig) DebounceDuration() (time.Duration, error) {
	if w.Debounce == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(w.Debounce)
	if err != nil {
		return 0, fmt.Errorf("invalid debounce: %w", err)
	}
	if d < 0 {
		return 0, fmt.Errorf("debounce must not be negative, got %s", w.Debounce)
	}
	return d, nil
}

// Watcher returns the watcher config with the given name.
func (c *Config) Watcher(name string) (WatcherConfig, bool) {
	for _, w := range c.Watchers {
		if w.Name == name {
			return w, true
		}
	}
	return WatcherConfig{}, false
}

func isOutputType(typ string) bool {
	for _, t := range outputTypes {
		if strings.EqualFold(t, typ) {
			return true
		}
	}
	return false
}

// SetupLogging configures the global logrus logger. The returned closer
// releases the log file, if any.
func SetupLogging(system SystemConfig) (io.Closer, error) {
	writers := []io.Writer{os.Stderr}

	var file *os.File
	if system.LogFile != "" {
		var err error
		file, err = os.OpenFile(system.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		writers = append(writers, file)
	}

	// Set log level based on config
	logrus.SetLevel(system.GetLogLevel())

	// Create multi-writer
	writer := io.MultiWriter(writers...)
	logrus.SetOutput(writer)

	logrus.SetFormatter(&logrus.JSONFormatter{
		TimestampFormat: time.RFC3339, // Use RFC3339 format (2006-01-02T15:04:05Z07:00)
	})

	if file == nil {
		return nopCloser{}, nil
	}
	return file, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
