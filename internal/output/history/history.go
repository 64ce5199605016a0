package outputhistory

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/MuchTitan/go-logwatch/internal"
	"github.com/MuchTitan/go-logwatch/internal/util"
	"github.com/sirupsen/logrus"
)

const defaultMaxEntries = 100

// History keeps the most recent observations of every watcher in
// <dir>/<watcher>.history.json for evaluators and operators.
type History struct {
	name       string
	match      string
	dir        string
	maxEntries int
	mu         sync.Mutex
	entries    map[string][]internal.Observation
	dirty      map[string]bool
}

func (h *History) Name() string {
	return h.name
}

func (h *History) Init(config map[string]any) error {
	h.name = util.MustString(config["Name"])
	if h.name == "" {
		h.name = "history"
	}

	h.match = util.MustString(config["Match"])
	if h.match == "" {
		h.match = "*"
	}

	h.dir = util.MustString(config["Dir"])
	if h.dir == "" {
		return errors.New("history output needs a Dir")
	}

	h.maxEntries = defaultMaxEntries
	if maxEntries, exists := config["MaxEntries"]; exists {
		var ok bool
		if h.maxEntries, ok = maxEntries.(int); !ok || h.maxEntries <= 0 {
			return errors.New("MaxEntries must be a positive int")
		}
	}

	h.entries = make(map[string][]internal.Observation)
	h.dirty = make(map[string]bool)
	return nil
}

func (h *History) Path(watcher string) string {
	return filepath.Join(h.dir, watcher+".history.json")
}

// Load returns the stored history of a watcher. Unreadable history is
// logged and treated as empty.
func (h *History) Load(watcher string) []internal.Observation {
	data, err := os.ReadFile(h.Path(watcher))
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			logrus.WithField("watcher", watcher).WithError(err).Warn("could not read history")
		}
		return nil
	}

	var entries []internal.Observation
	if err := json.Unmarshal(data, &entries); err != nil {
		logrus.WithField("watcher", watcher).WithError(err).Warn("could not decode history, starting fresh")
		return nil
	}
	return entries
}

func (h *History) Write(observations []internal.Observation) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, obs := range observations {
		if !util.TagMatch(obs.Watcher, h.match) {
			continue
		}
		entries, loaded := h.entries[obs.Watcher]
		if !loaded {
			entries = h.Load(obs.Watcher)
		}
		entries = append(entries, obs)
		if len(entries) > h.maxEntries {
			entries = entries[len(entries)-h.maxEntries:]
		}
		h.entries[obs.Watcher] = entries
		h.dirty[obs.Watcher] = true
	}
	return h.flush()
}

func (h *History) Flush() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.flush()
}

func (h *History) flush() error {
	if len(h.dirty) == 0 {
		return nil
	}
	if err := os.MkdirAll(h.dir, 0o755); err != nil {
		return fmt.Errorf("could not create history dir: %w", err)
	}

	var errs []error
	for watcher := range h.dirty {
		data, err := json.MarshalIndent(h.entries[watcher], "", "  ")
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if err := os.WriteFile(h.Path(watcher), data, 0o644); err != nil {
			errs = append(errs, fmt.Errorf("could not write history for %s: %w", watcher, err))
			continue
		}
		delete(h.dirty, watcher)
	}
	return errors.Join(errs...)
}

func (h *History) Exit() error {
	return h.Flush()
}
