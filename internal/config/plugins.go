package config

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/MuchTitan/go-logwatch/internal/engine"
	"github.com/MuchTitan/go-logwatch/internal/metrics"
	"github.com/MuchTitan/go-logwatch/internal/observer"
	"github.com/MuchTitan/go-logwatch/internal/output"
	outputgelf "github.com/MuchTitan/go-logwatch/internal/output/gelf"
	outputhistory "github.com/MuchTitan/go-logwatch/internal/output/history"
	outputsplunk "github.com/MuchTitan/go-logwatch/internal/output/splunk"
	outputstdout "github.com/MuchTitan/go-logwatch/internal/output/stdout"
	"github.com/MuchTitan/go-logwatch/internal/state"
	"github.com/MuchTitan/go-logwatch/internal/trigger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
)

// Engine is extended to include configuration
type PluginEngine struct {
	*engine.Engine
	Config    *Config
	Metrics   *metrics.Metrics
	Registry  *prometheus.Registry
	Observers map[string]*observer.Observer
	Stores    map[string]state.Store

	stores        []state.Store
	logFile       io.Closer
	metricsServer *metrics.Server
}

// NewPluginEngine creates a new engine with configuration
func NewPluginEngine(configPath string) (*PluginEngine, error) {
	cfg, err := Load(configPath)
	if err != nil {
		return nil, err
	}

	logFile, err := SetupLogging(cfg.System)
	if err != nil {
		return nil, fmt.Errorf("failed to setup logging: %w", err)
	}

	e, err := NewPluginEngineFromConfig(cfg)
	if err != nil {
		logFile.Close()
		return nil, err
	}
	e.logFile = logFile
	return e, nil
}

// NewPluginEngineFromConfig wires an already loaded config without
// touching the global logger.
func NewPluginEngineFromConfig(cfg *Config) (*PluginEngine, error) {
	e := &PluginEngine{
		Engine:    engine.NewEngine(),
		Config:    cfg,
		Metrics:   metrics.New(),
		Registry:  prometheus.NewRegistry(),
		Observers: make(map[string]*observer.Observer),
		Stores:    make(map[string]state.Store),
	}
	if err := e.Metrics.Register(e.Registry); err != nil {
		return nil, fmt.Errorf("failed to register metrics: %w", err)
	}

	if err := e.initializeWatchers(); err != nil {
		e.closeStores()
		return nil, err
	}
	if err := e.initializeOutputs(); err != nil {
		e.closeStores()
		return nil, err
	}
	return e, nil
}

func (e *PluginEngine) initializeWatchers() error {
	// one store per state dir, the sqlite backend shares a single database
	opened := make(map[string]state.Store)

	for _, wc := range e.Config.Watchers {
		key := wc.StateDir
		if e.Config.System.StateBackend == BackendSQLite {
			key = e.Config.System.DBFile
		}
		store, ok := opened[key]
		if !ok {
			var err error
			if store, err = e.Config.OpenStore(wc); err != nil {
				return err
			}
			opened[key] = store
			e.stores = append(e.stores, store)
		}

		target := observer.NewTarget(wc.Name, wc.LogFile, wc.Patterns, wc.StateDir)
		obs, err := observer.New(target, store, observer.WithMetrics(e.Metrics))
		if err != nil {
			return fmt.Errorf("failed to initialize watcher %s: %w", wc.Name, err)
		}

		triggers, err := buildTriggers(wc, target)
		if err != nil {
			return fmt.Errorf("failed to initialize watcher %s: %w", wc.Name, err)
		}

		if err := e.RegisterWatcher(obs, triggers...); err != nil {
			return err
		}
		e.Observers[wc.Name] = obs
		e.Stores[wc.Name] = store
	}
	return nil
}

func buildTriggers(wc WatcherConfig, target observer.Target) ([]trigger.Plugin, error) {
	var triggers []trigger.Plugin

	if wc.Interval != "" {
		period, err := wc.IntervalDuration()
		if err != nil {
			return nil, err
		}
		interval, err := trigger.NewInterval(period)
		if err != nil {
			return nil, err
		}
		triggers = append(triggers, interval)
	}

	if wc.FileEvents {
		debounce, err := wc.DebounceDuration()
		if err != nil {
			return nil, err
		}
		fileEvent, err := trigger.NewFileEvent(target.Path, target.RotatedPath, wc.Events, debounce)
		if err != nil {
			return nil, err
		}
		triggers = append(triggers, fileEvent)
	}

	return triggers, nil
}

func (e *PluginEngine) initializeOutputs() error {
	for _, outputConfig := range e.Config.Outputs {
		if err := e.initializeOutput(outputConfig); err != nil {
			return fmt.Errorf("failed to initialize output: %w", err)
		}
	}
	return nil
}

func (e *PluginEngine) initializeOutput(config map[string]any) error {
	var outputObject output.Plugin

	typ, _ := config["Type"].(string)
	switch strings.ToLower(typ) {
	case "stdout":
		outputObject = &outputstdout.Stdout{}
	case "gelf":
		outputObject = &outputgelf.GELF{}
	case "splunk":
		outputObject = &outputsplunk.Splunk{}
	case "history":
		if _, exists := config["Dir"]; !exists {
			withDir := make(map[string]any, len(config)+1)
			for k, v := range config {
				withDir[k] = v
			}
			withDir["Dir"] = e.Config.System.StateDir
			config = withDir
		}
		outputObject = &outputhistory.History{}
	default:
		return fmt.Errorf("unknown output type: %s", config["Type"])
	}

	if err := outputObject.Init(config); err != nil {
		return err
	}

	e.RegisterOutput(outputObject)
	return nil
}

// OpenStore opens the state store a watcher persists to.
func (c *Config) OpenStore(wc WatcherConfig) (state.Store, error) {
	if c.System.StateBackend == BackendSQLite {
		s, err := state.NewSQLiteStore(c.System.DBFile)
		if err != nil {
			return nil, fmt.Errorf("failed to open state database: %w", err)
		}
		return s, nil
	}
	return state.NewJSONStore(wc.StateDir), nil
}

// Start serves metrics, if configured, and starts every trigger.
func (e *PluginEngine) Start() error {
	if addr := e.Config.System.MetricsAddr; addr != "" {
		e.metricsServer = metrics.Start(addr, e.Registry)
	}
	return e.Engine.Start()
}

// Stop shuts the engine down and releases stores and the log file.
func (e *PluginEngine) Stop() error {
	errs := []error{e.Engine.Stop()}

	if e.metricsServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		errs = append(errs, e.metricsServer.Stop(ctx))
		cancel()
	}

	errs = append(errs, e.closeStores())
	if e.logFile != nil {
		errs = append(errs, e.logFile.Close())
	}
	return errors.Join(errs...)
}

func (e *PluginEngine) closeStores() error {
	var errs []error
	for _, s := range e.stores {
		if err := s.Close(); err != nil {
			logrus.WithError(err).Warn("could not close state store")
			errs = append(errs, err)
		}
	}
	e.stores = nil
	return errors.Join(errs...)
}
