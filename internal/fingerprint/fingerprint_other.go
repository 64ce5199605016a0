//go:build !unix && !windows

package fingerprint

import (
	"runtime"
	"sync"

	"github.com/sirupsen/logrus"
)

var warnOnce sync.Once

// Get always returns nil, file identities are not available on this platform.
// Rotation detection degrades to size regression checks.
func Get(path string) *Identity {
	warnOnce.Do(func() {
		logrus.WithField("os", runtime.GOOS).Warn("file fingerprinting unsupported, move/create rotation cannot be detected")
	})
	return nil
}
