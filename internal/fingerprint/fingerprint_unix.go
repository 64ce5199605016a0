//go:build unix

package fingerprint

import (
	"os"
	"syscall"

	"github.com/sirupsen/logrus"
)

// Get returns the (device, inode) pair of path, or nil if the file cannot
// be stat'ed.
func Get(path string) *Identity {
	info, err := os.Stat(path)
	if err != nil {
		if !os.IsNotExist(err) {
			logrus.WithField("path", path).WithError(err).Error("could not stat file for fingerprint")
		}
		return nil
	}

	stat, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		logrus.WithField("path", path).Warn("file info carries no stat data, fingerprint unavailable")
		return nil
	}
	return &Identity{Volume: uint64(stat.Dev), Index: uint64(stat.Ino)}
}
