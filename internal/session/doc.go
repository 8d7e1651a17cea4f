// Package session holds the single active work session and its persisted
// pointer.
//
// A Session binds a sanitized identifier to a directory under the work root,
// the chat address that opened it, an informational image cache, the current
// interaction Mode, and the job queue that serializes its filesystem work.
// The Store keeps at most one session; activating another supersedes the old
// one. Every activation rewrites the pointer file so the last session can be
// reloaded after a restart.
package session
