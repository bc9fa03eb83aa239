// Package cli holds the shared plumbing of the warden commands: output
// formatting, typed command errors, progress reporting, and signal-aware
// contexts.
package cli
