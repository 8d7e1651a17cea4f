// Package preflight provides readiness checks for the filesystem paths and
// the chat bridge that SAM depends on.
//
// These checks run in two contexts:
//   - The daemon calls RunAll before connecting. If a directory check fails,
//     startup aborts instead of accepting media it cannot store.
//   - The CLI "sam status" command renders every Result as a table row.
//
// The bridge check is skipped when no bridge URL is configured.
package preflight
