// Package state persists per watcher tail state between polls and restarts.
package state

import (
	"errors"

	"github.com/MuchTitan/go-logwatch/internal/fingerprint"
)

// ErrCorrupt is wrapped by Load when persisted state exists but cannot be
// trusted. The returned state is then the zero TailState.
var ErrCorrupt = errors.New("corrupt tail state")

// TailState is the read position of one watcher. Offset is only meaningful
// while the file at the watched path is still MainIdentity.
type TailState struct {
	MainIdentity    *fingerprint.Identity `json:"fingerprint"`
	RotatedIdentity *fingerprint.Identity `json:"rotated_fingerprint"`
	Offset          int64                 `json:"offset"`
}

// Store loads and saves TailState keyed by watcher name.
type Store interface {
	// Load returns the zero TailState when nothing was saved yet.
	Load(name string) (TailState, error)
	Save(name string, st TailState) error
	Delete(name string) error
	Close() error
}

func (s TailState) validate() error {
	if s.Offset < 0 {
		return errors.New("negative offset")
	}
	return nil
}
