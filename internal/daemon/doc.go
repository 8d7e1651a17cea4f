// Package daemon coordinates the long-running SAM process.
//
// It wires configuration, the session store, the job journal, notifications,
// and the dispatcher into a single lifecycle with flock-based locking so two
// processes never share a work directory. Inbound messages pass the sender
// allow-list here before reaching the dispatcher, and the bridge connection is
// re-established after a fixed delay whenever it drops.
//
// Keep orchestration logic here: command semantics live in dispatch and media
// work lives in media.
package daemon
