// Package rojoerrors defines the sentinel error kinds shared across the
// snapshot, diff, and syncback packages. Call sites wrap these with
// fmt.Errorf("...: %w", ...) so that errors.Is still matches the kind after
// path/context has been layered on.
package rojoerrors

import "errors"

var (
	// ErrUnknownOutputKind indicates that a command was asked to produce an
	// output file extension with no corresponding middleware.
	ErrUnknownOutputKind = errors.New("unknown output kind")

	// ErrDecode indicates that a file's bytes could not be decoded by the
	// middleware selected to read it.
	ErrDecode = errors.New("unable to decode file")

	// ErrMalformedProject indicates that a project file failed schema
	// validation or referenced a path that doesn't exist.
	ErrMalformedProject = errors.New("malformed project file")

	// ErrUnresolvedValue indicates that a $properties/$attributes value in a
	// meta file or project file could not be resolved against the
	// reflection database.
	ErrUnresolvedValue = errors.New("unresolved value")

	// ErrTypeMismatch indicates that a resolved property value's type did
	// not match the type the reflection database expects for that property.
	ErrTypeMismatch = errors.New("property type mismatch")

	// ErrForbiddenEdit indicates a meta file attempted a class-name override
	// on an instance whose class is not the default Folder class, or that
	// syncback attempted to create or remove a project-file node.
	ErrForbiddenEdit = errors.New("forbidden class-name override")

	// ErrAmbiguousClass indicates that a project node specified conflicting
	// class information (e.g. both $className and a $path whose target
	// implies a different class).
	ErrAmbiguousClass = errors.New("ambiguous class")

	// ErrIO wraps filesystem errors encountered while staging or applying an
	// FsSnapshot.
	ErrIO = errors.New("filesystem I/O error")

	// ErrBrokenRef indicates that a ref-linking attribute pointed at a
	// referent no longer present in the tree being synced back.
	ErrBrokenRef = errors.New("broken reference")
)
