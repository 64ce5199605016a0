package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// JSONStore keeps one <name>.state.json file per watcher inside dir.
type JSONStore struct {
	dir string
}

func NewJSONStore(dir string) *JSONStore {
	return &JSONStore{dir: dir}
}

func (s *JSONStore) Path(name string) string {
	return filepath.Join(s.dir, name+".state.json")
}

func (s *JSONStore) Load(name string) (TailState, error) {
	data, err := os.ReadFile(s.Path(name))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return TailState{}, nil
		}
		return TailState{}, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}

	var st TailState
	if err := json.Unmarshal(data, &st); err != nil {
		return TailState{}, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if err := st.validate(); err != nil {
		return TailState{}, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	return st, nil
}

// Save replaces the state file through a temporary file and rename, a crash
// leaves either the old or the new state behind.
func (s *JSONStore) Save(name string, st TailState) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("could not create state dir: %w", err)
	}

	data, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("could not encode state: %w", err)
	}

	tmp, err := os.CreateTemp(s.dir, name+".state.*.tmp")
	if err != nil {
		return fmt.Errorf("could not create temp state file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("could not write state: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("could not sync state: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("could not close state file: %w", err)
	}
	if err := os.Rename(tmpName, s.Path(name)); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("could not replace state file: %w", err)
	}
	return nil
}

func (s *JSONStore) Delete(name string) error {
	err := os.Remove(s.Path(name))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

func (s *JSONStore) Close() error {
	return nil
}
