package eventsink

import "context"

// EventSink is the narrow capability the query and registration engines
// depend on; publication is fire-and-forget and must never surface an
// error onto the engine's own call path — sink errors are absorbed and
// logged, never surfaced.
type EventSink interface {
	// Publish blocks until the event is durably sent or publishing gives
	// up, returning the final error for the caller to decide how to log it.
	Publish(ctx context.Context, eventType string, payload interface{}) error

	// PublishAsync hands the event off without blocking the caller; any
	// failure is logged by the sink itself rather than returned. Engines on
	// the request hot path use this so a slow or degraded event backend
	// never adds latency to a query or registration response.
	PublishAsync(eventType string, payload interface{})
}
