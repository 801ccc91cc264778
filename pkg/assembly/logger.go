package assembly

import (
	"context"

	"github.com/platinummonkey/hub/pkg/container"
	"github.com/platinummonkey/hub/pkg/observability"
)

// LoggerChunk tags every resolved *observability.Logger with the module that
// requested it. A singleton logger keeps the tag of its first requester, so
// modules should ask for a fresh one with Module$$.
type LoggerChunk struct{}

// Modify implements container.PostChunk
func (LoggerChunk) Modify(_ context.Context, obj any, dep *container.DepID, stack []string) (any, error) {
	logger, ok := obj.(*observability.Logger)
	if !ok || logger == nil {
		return obj, nil
	}

	ns := dep.Module
	if len(stack) > 0 {
		ns = stack[len(stack)-1]
	}
	return logger.WithField("namespace", ns), nil
}
