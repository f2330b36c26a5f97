package notification

import (
	"context"

	"clipwatch/domain/matching"
)

// Sink delivers detection events to an external system
type Sink interface {
	// Name identifies the sink in logs
	Name() string

	// Send delivers one event; failures are reported, never retried by the sink itself
	Send(ctx context.Context, event matching.DetectionEvent) error
}

// Closer is implemented by sinks holding connections that must be released
type Closer interface {
	Close() error
}
