package internal

import (
	"time"
)

// Observation is the outcome of one poll of a watched log file.
type Observation struct {
	Watcher      string         `json:"watcher"`
	Matched      bool           `json:"matched"`
	MatchedLines []string       `json:"matched_lines"`
	Timestamp    time.Time      `json:"timestamp"`
	Metadata     map[string]any `json:"metadata"`
}

// Metadata keys set on observations.
const (
	MetaLogFile    = "log_file"
	MetaLinesRead  = "lines_read"
	MetaOffset     = "offset"
	MetaRotation   = "rotation"
	MetaStatus     = "status"
	MetaError      = "error"
	MetaStateError = "state_error"

	StatusNotFound = "not found"
)

// Plugin interface that all plugins must implement
type Plugin interface {
	Name() string
	Init(config map[string]any) error
	Exit() error
}
