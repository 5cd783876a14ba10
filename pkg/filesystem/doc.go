// Package filesystem provides the small set of filesystem utility functions
// that the rest of Rojo relies on: atomic file writes, directory listing,
// and the layout of Rojo's per-user data directory.
package filesystem
