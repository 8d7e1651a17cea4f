// Package journal records the lifecycle of session jobs in SQLite.
//
// The Store implements jobqueue.Observer: every job enqueued on a session
// queue gets a row that moves from queued to running to succeeded or failed.
// The daemon attaches the store to each queue it creates; the CLI reads it
// back for `sam jobs` and `sam status`. Rows left queued or running by a
// previous process are marked interrupted on open.
package journal
