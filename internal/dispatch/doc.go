// Package dispatch routes inbound chat messages to commands or to the
// session's current mode.
//
// The Dispatcher looks at the first whitespace-delimited token of a message.
// A token found in the command table runs that command; anything else goes
// to the mode router, which decides based on the held session whether the
// message is a session name, a structured entry, chat-log text, or media to
// save. Every filesystem write for a session is enqueued on that session's
// job queue, so work for one session happens strictly in arrival order.
//
// Handle never returns an error. Failures end in a log line and, where the
// sender should know, a short reply.
package dispatch
