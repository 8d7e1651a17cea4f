// Package logs provides file tailing helpers for the CLI.
//
// It reads the trailing lines of a log with bounded memory, locates the newest
// run log in a directory, and follows a file for appended lines until the
// caller's context ends. A file that shrinks while followed is read again from
// the start.
package logs
