// Package housekeeping implements the trash-directory half of spec §6's
// `--no-trash` flag: MoveToTrash relocates a build command's existing
// output file there instead of deleting it outright, and Housekeep (run
// opportunistically alongside a build/syncback invocation, or on a ticker
// for a long-lived watch/serve session) reclaims space by pruning entries
// older than maximumTrashEntryAge. Grounded on teacher housekeep.go's
// age-based directory-pruning idiom, trimmed down from pruning three
// different daemon-owned directories (agent binaries, synchronization
// caches, staging roots) to pruning the one directory this repo actually
// accumulates content in.
package housekeeping

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/rojosync/rojo/pkg/filesystem"
	"github.com/rojosync/rojo/pkg/logging"
	"github.com/rojosync/rojo/pkg/must"
)

// DefaultTrashRetention is the maximum period of time a trashed file or
// directory is allowed to sit in the trash subdirectory before being
// reclaimed, absent a config.Config override.
const DefaultTrashRetention = 7 * 24 * time.Hour

// maximumTrashEntryAge is kept as an internal alias so Housekeep's doc
// comment and call site read naturally.
const maximumTrashEntryAge = DefaultTrashRetention

// Housekeep prunes the trash subdirectory of entries older than
// maximumTrashEntryAge. It's best-effort: a failure to remove an entry is
// logged and skipped, and a failure to locate or list the trash directory
// or to stat an entry is skipped without logging. Nothing is propagated,
// since housekeeping
// runs opportunistically alongside a build or syncback invocation and
// should never block it.
func Housekeep(logger *logging.Logger) {
	HousekeepWithRetention(logger, maximumTrashEntryAge)
}

// HousekeepWithRetention is Housekeep with an explicit retention period,
// used when a loaded config.Config overrides the default via
// TrashRetentionHours.
func HousekeepWithRetention(logger *logging.Logger, retention time.Duration) {
	trashDirectoryPath, err := filesystem.Rojo(false, filesystem.RojoTrashDirectoryName)
	if err != nil {
		return
	}

	entries, err := filesystem.DirectoryContentsByPath(trashDirectoryPath)
	if err != nil {
		return
	}

	now := time.Now()
	for _, entry := range entries {
		fullPath := filepath.Join(trashDirectoryPath, entry.Name())
		stat, err := os.Stat(fullPath)
		if err != nil {
			continue
		}
		if now.Sub(stat.ModTime()) <= retention {
			continue
		}
		must.Succeed(os.RemoveAll(fullPath), "remove stale trash entry "+fullPath, logger)
	}
}

// MoveToTrash moves the file or directory at path into the trash
// subdirectory rather than deleting it outright, satisfying the build
// command's "attempt to move the existing output to the recycle bin before
// writing" contract. A not-found path is a silent no-op, matching the
// error-handling design's blanket rule that not-found is always swallowed
// for removal. The destination name is prefixed with a random id so two
// trashed entries with the same base name never collide.
func MoveToTrash(path string) error {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	trashDirectoryPath, err := filesystem.Rojo(true, filesystem.RojoTrashDirectoryName)
	if err != nil {
		return fmt.Errorf("unable to resolve trash directory: %w", err)
	}

	destination := filepath.Join(trashDirectoryPath, uuid.NewString()+"-"+filepath.Base(path))
	if err := os.Rename(path, destination); err != nil {
		return fmt.Errorf("unable to move %q to trash: %w", path, err)
	}
	return nil
}
