// Package rotation decides where to resume reading a log file by comparing
// the stored identities of the file and its ".1" sibling with the current
// ones.
//
//	main same, sibling same     -> NoRotation, keep offset unless the file shrank
//	main same, sibling changed  -> CopyTruncate, offset 0
//	main changed                -> MoveCreate, offset 0, adopt new identity
//
// Copy-truncate keeps the inode of the main file, so the sibling changing
// is the only signal of it.
package rotation

import (
	"os"

	"github.com/MuchTitan/go-logwatch/internal/fingerprint"
	"github.com/MuchTitan/go-logwatch/internal/state"
)

type Kind int

const (
	NoRotation Kind = iota
	CopyTruncate
	MoveCreate
)

func (k Kind) String() string {
	switch k {
	case NoRotation:
		return "none"
	case CopyTruncate:
		return "copytruncate"
	case MoveCreate:
		return "movecreate"
	default:
		return "unknown"
	}
}

type Decision struct {
	Kind Kind
	// Offset is where the next read starts.
	Offset int64
	// State carries the refreshed identities, its Offset is still the
	// stored one.
	State state.TailState
	// SizeRegression is set when the file shrank below the stored offset
	// without any identity change.
	SizeRegression bool
	// Baseline is set on the first sighting of a file, when no main
	// identity had been stored.
	Baseline bool
}

type Classifier struct {
	fingerprint fingerprint.Func
}

// NewClassifier uses fp to identify files, fingerprint.Get when fp is nil.
func NewClassifier(fp fingerprint.Func) *Classifier {
	if fp == nil {
		fp = fingerprint.Get
	}
	return &Classifier{fingerprint: fp}
}

func (c *Classifier) Classify(path, rotatedPath string, stored state.TailState) Decision {
	currentMain := c.fingerprint(path)
	currentRotated := c.fingerprint(rotatedPath)

	d := Decision{State: stored}
	d.State.RotatedIdentity = currentRotated

	switch {
	case !fingerprint.Equal(stored.MainIdentity, currentMain):
		d.Kind = MoveCreate
		d.Baseline = stored.MainIdentity == nil
		d.State.MainIdentity = currentMain
		d.Offset = 0
	case !fingerprint.Equal(stored.RotatedIdentity, currentRotated):
		d.Kind = CopyTruncate
		d.Offset = 0
	default:
		d.Kind = NoRotation
		d.Offset = stored.Offset
		info, err := os.Stat(path)
		if err != nil {
			d.Offset = 0
		} else if info.Size() < stored.Offset {
			d.SizeRegression = true
			d.Offset = 0
		}
	}
	return d
}
