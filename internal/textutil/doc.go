// Package textutil sanitizes user supplied text for filesystem use.
//
// Chat users name sessions with free text ("Cliente Três", "order 42!"),
// and that text becomes a directory under the work dir. SanitizeSegment
// reduces it to the [A-Za-z0-9_-] alphabet so the result is always a single
// safe path segment; SanitizeID additionally lowercases it for use as a
// session identifier.
package textutil
