// Package services defines shared utilities consumed by the dispatcher, the
// job queue, and the transport adapters.
//
// Key responsibilities:
//   - Context helpers that stamp session IDs, chat message IDs, job IDs, and
//     correlation identifiers for logging.
//   - Structured error markers plus the Wrap helper that classify failures
//     into user-input, I/O, encode, and transport errors so callers can pick
//     the right reply and log level.
//
// Use these helpers when wiring new handlers so failure reporting and
// observability stay uniform across the bot.
package services
