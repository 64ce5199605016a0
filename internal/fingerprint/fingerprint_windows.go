//go:build windows

package fingerprint

import (
	"errors"

	"github.com/sirupsen/logrus"
	"golang.org/x/sys/windows"
)

// Get returns the volume serial number and file index of path, or nil if
// the file cannot be opened.
func Get(path string) *Identity {
	name, err := windows.UTF16PtrFromString(path)
	if err != nil {
		return nil
	}

	handle, err := windows.CreateFile(
		name,
		windows.GENERIC_READ,
		windows.FILE_SHARE_READ|windows.FILE_SHARE_WRITE|windows.FILE_SHARE_DELETE,
		nil,
		windows.OPEN_EXISTING,
		windows.FILE_ATTRIBUTE_NORMAL,
		0,
	)
	if err != nil {
		if !errors.Is(err, windows.ERROR_FILE_NOT_FOUND) && !errors.Is(err, windows.ERROR_PATH_NOT_FOUND) {
			logrus.WithField("path", path).WithError(err).Error("could not open file for fingerprint")
		}
		return nil
	}
	defer windows.CloseHandle(handle)

	var info windows.ByHandleFileInformation
	if err := windows.GetFileInformationByHandle(handle, &info); err != nil {
		logrus.WithField("path", path).WithError(err).Error("could not read file information")
		return nil
	}

	return &Identity{
		Volume: uint64(info.VolumeSerialNumber),
		Index:  uint64(info.FileIndexHigh)<<32 | uint64(info.FileIndexLow),
	}
}
