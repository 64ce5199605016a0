package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/MuchTitan/go-logwatch/internal"
	"github.com/MuchTitan/go-logwatch/internal/output"
	"github.com/MuchTitan/go-logwatch/internal/trigger"
	"github.com/sirupsen/logrus"
)

const (
	batchSize     = 100
	flushInterval = 1 * time.Second
)

// Observer is one watched log file.
type Observer interface {
	Name() string
	Observe() internal.Observation
}

type watcher struct {
	observer Observer
	triggers []trigger.Plugin
	// polls of one watcher never overlap
	mu sync.Mutex
}

func (w *watcher) poll() internal.Observation {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.observer.Observe()
}

type Engine struct {
	watchers []*watcher
	outputs  []output.Plugin
	pipeline chan internal.Observation
	wg       sync.WaitGroup
	ctx      context.Context
	cancel   context.CancelFunc
}

func NewEngine() *Engine {
	ctx, cancel := context.WithCancel(context.Background())
	return &Engine{
		pipeline: make(chan internal.Observation, 1000),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// RegisterWatcher adds a watcher and the triggers that poll it
func (e *Engine) RegisterWatcher(observer Observer, triggers ...trigger.Plugin) error {
	for _, w := range e.watchers {
		if w.observer.Name() == observer.Name() {
			return fmt.Errorf("watcher %q registered twice", observer.Name())
		}
	}
	e.watchers = append(e.watchers, &watcher{observer: observer, triggers: triggers})
	return nil
}

// RegisterOutput adds an output plugin to the engine
func (e *Engine) RegisterOutput(output output.Plugin) {
	e.outputs = append(e.outputs, output)
}

func (e *Engine) Watchers() []string {
	names := make([]string, 0, len(e.watchers))
	for _, w := range e.watchers {
		names = append(names, w.observer.Name())
	}
	return names
}

// Start begins the processing pipeline and all triggers
func (e *Engine) Start() error {
	e.wg.Add(1)
	go e.processRecords()

	var errs []error
	for _, w := range e.watchers {
		for _, t := range w.triggers {
			w := w
			if err := t.Start(e.ctx, func() { e.fire(w) }); err != nil {
				logrus.WithFields(logrus.Fields{
					"watcher": w.observer.Name(),
					"trigger": t.Name(),
				}).WithError(err).Error("Could not start trigger")
				errs = append(errs, fmt.Errorf("watcher %s: %w", w.observer.Name(), err))
			}
		}
	}
	return errors.Join(errs...)
}

func (e *Engine) fire(w *watcher) {
	obs := w.poll()
	select {
	case e.pipeline <- obs:
	case <-e.ctx.Done():
	}
}

// processRecords handles the main processing pipeline
func (e *Engine) processRecords() {
	defer e.wg.Done()

	buffer := make([]internal.Observation, 0, 2*batchSize)
	ticker := time.NewTicker(flushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-e.ctx.Done():
			// drain what the triggers already delivered
			for {
				select {
				case obs := <-e.pipeline:
					buffer = append(buffer, obs)
				default:
					if len(buffer) > 0 {
						e.flush(buffer)
					}
					return
				}
			}

		case obs := <-e.pipeline:
			buffer = append(buffer, obs)

			// Flush if buffer is full
			if len(buffer) >= batchSize {
				e.flush(buffer)
				buffer = buffer[:0]
			}

		case <-ticker.C:
			// Periodic flush
			if len(buffer) > 0 {
				e.flush(buffer)
				buffer = buffer[:0]
			}
		}
	}
}

// flush writes observations to all output plugins
func (e *Engine) flush(records []internal.Observation) {
	for _, output := range e.outputs {
		if err := output.Write(records); err != nil {
			logrus.WithField("output", output.Name()).WithError(err).Error("Could not write to output")
		}
	}
}

// ObserveOnce polls the named watchers, or all of them when no name is
// given, and hands the observations to every output.
func (e *Engine) ObserveOnce(names ...string) ([]internal.Observation, error) {
	selected, err := e.selectWatchers(names)
	if err != nil {
		return nil, err
	}

	observations := make([]internal.Observation, 0, len(selected))
	for _, w := range selected {
		observations = append(observations, w.poll())
	}

	e.flush(observations)
	var errs []error
	for _, output := range e.outputs {
		if err := output.Flush(); err != nil {
			errs = append(errs, fmt.Errorf("output %s: %w", output.Name(), err))
		}
	}
	return observations, errors.Join(errs...)
}

func (e *Engine) selectWatchers(names []string) ([]*watcher, error) {
	if len(names) == 0 {
		return e.watchers, nil
	}

	selected := make([]*watcher, 0, len(names))
	for _, name := range names {
		var found *watcher
		for _, w := range e.watchers {
			if w.observer.Name() == name {
				found = w
				break
			}
		}
		if found == nil {
			return nil, fmt.Errorf("unknown watcher %q", name)
		}
		selected = append(selected, found)
	}
	return selected, nil
}

// Stop gracefully shuts down the engine
func (e *Engine) Stop() error {
	e.cancel()

	for _, w := range e.watchers {
		for _, t := range w.triggers {
			t.Exit()
		}
	}
	e.wg.Wait()

	var errs []error
	for _, output := range e.outputs {
		if err := output.Flush(); err != nil {
			logrus.WithField("output", output.Name()).WithError(err).Error("Could not flush output")
			errs = append(errs, err)
		}
		if err := output.Exit(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
