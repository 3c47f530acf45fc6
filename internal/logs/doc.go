// Package logs retrieves and tails log events from a log group.
//
// A bounded fetch plans the [start, end) window into page requests, executes
// them against an EventSource and emits the de-duplicated events in timestamp
// order. A tail repeats that on an adaptive interval: each poll re-requests a
// small slice behind the watermark so late events are caught, and the Cursor
// suppresses events already emitted.
//
// Transient backend failures (throttling, unavailability) are retried inside
// the engine with exponential backoff and jitter until the attempt budget is
// spent. Everything else is returned to the caller unchanged.
package logs
