// Package trigger decides when a watcher polls its log file.
package trigger

import "context"

// Plugin calls fire whenever a poll is due until ctx ends or Exit is
// called. fire may be called from any goroutine.
type Plugin interface {
	Name() string
	Start(ctx context.Context, fire func()) error
	Exit() error
}
