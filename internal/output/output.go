package output

import "github.com/MuchTitan/go-logwatch/internal"

type Plugin interface {
	internal.Plugin
	Write(observations []internal.Observation) error
	Flush() error
}
