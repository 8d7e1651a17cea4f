// Package chat defines the boundary between SAM and the chat transport.
//
// Message is what the dispatcher consumes: an inbound text or media message
// that can be answered in place. Transports such as internal/bridge provide
// concrete implementations. AllowList filters senders before any message
// reaches the dispatcher.
package chat
