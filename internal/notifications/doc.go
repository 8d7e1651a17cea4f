// Package notifications delivers SAM events via pluggable notifiers.
//
// The default implementation publishes to ntfy using the topic configured in
// config.toml and gracefully degrades to a no-op when notifications are
// disabled. Per-event toggles in the config suppress session, mosaic, and job
// failure events individually.
//
// JobObserver adapts a Service into a jobqueue.Observer so failed session jobs
// raise alerts without the queue knowing about notifications.
package notifications
