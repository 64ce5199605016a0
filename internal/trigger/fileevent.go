package trigger

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
)

var eventOps = map[string]fsnotify.Op{
	"modified": fsnotify.Write,
	"created":  fsnotify.Create,
	"deleted":  fsnotify.Remove,
	"moved":    fsnotify.Rename,
}

var DefaultEvents = []string{"modified", "created", "moved"}

// FileEvent fires when the log file or its rotated sibling changes. The
// parent directory is watched so the trigger survives rotation.
type FileEvent struct {
	paths    map[string]bool
	dir      string
	ops      fsnotify.Op
	debounce time.Duration

	watcher *fsnotify.Watcher
	timer   *time.Timer
	mu      sync.Mutex
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

func NewFileEvent(path, rotatedPath string, events []string, debounce time.Duration) (*FileEvent, error) {
	if len(events) == 0 {
		events = DefaultEvents
	}

	var ops fsnotify.Op
	for _, event := range events {
		op, ok := eventOps[strings.ToLower(event)]
		if !ok {
			return nil, fmt.Errorf("unknown file event %q", event)
		}
		ops |= op
	}

	if debounce < 0 {
		return nil, fmt.Errorf("debounce must not be negative, got %s", debounce)
	}

	paths := map[string]bool{filepath.Clean(path): true}
	if rotatedPath != "" {
		paths[filepath.Clean(rotatedPath)] = true
	}

	return &FileEvent{
		paths:    paths,
		dir:      filepath.Dir(filepath.Clean(path)),
		ops:      ops,
		debounce: debounce,
	}, nil
}

func (f *FileEvent) Name() string {
	return "file_event"
}

func (f *FileEvent) Start(parentCtx context.Context, fire func()) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("could not create file watcher: %w", err)
	}
	if err := watcher.Add(f.dir); err != nil {
		watcher.Close()
		return fmt.Errorf("could not watch %s: %w", f.dir, err)
	}
	f.watcher = watcher

	ctx, cancel := context.WithCancel(parentCtx)
	f.cancel = cancel

	f.wg.Add(1)
	go f.loop(ctx, fire)

	logrus.WithField("dir", f.dir).Debug("Starting file event trigger")
	return nil
}

func (f *FileEvent) loop(ctx context.Context, fire func()) {
	defer f.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-f.watcher.Events:
			if !ok {
				return
			}
			if f.relevant(event) {
				f.schedule(ctx, fire)
			}
		case err, ok := <-f.watcher.Errors:
			if !ok {
				return
			}
			logrus.WithField("dir", f.dir).WithError(err).Warn("file watcher error")
		}
	}
}

func (f *FileEvent) relevant(event fsnotify.Event) bool {
	return f.paths[filepath.Clean(event.Name)] && event.Op&f.ops != 0
}

// schedule collapses bursts of events into one fire after the debounce.
func (f *FileEvent) schedule(ctx context.Context, fire func()) {
	if f.debounce == 0 {
		fire()
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.timer != nil {
		f.timer.Stop()
	}
	f.timer = time.AfterFunc(f.debounce, func() {
		select {
		case <-ctx.Done():
			return
		default:
			fire()
		}
	})
}

func (f *FileEvent) Exit() error {
	if f.cancel != nil {
		f.cancel()
	}
	f.wg.Wait()

	f.mu.Lock()
	if f.timer != nil {
		f.timer.Stop()
	}
	f.mu.Unlock()

	if f.watcher != nil {
		return f.watcher.Close()
	}
	return nil
}
