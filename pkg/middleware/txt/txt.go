// Package txt implements the string-value middleware from spec §4.6: a
// plain-text file maps to a StringValue instance whose Value property holds
// the file's text. Grounded on the same extension-dispatch idiom as
// pkg/middleware/script, trimmed to a single property and no sidecar.
package txt

import (
	"fmt"
	"path"
	"strings"

	"github.com/rojosync/rojo/pkg/dom"
	"github.com/rojosync/rojo/pkg/middleware"
	"github.com/rojosync/rojo/pkg/rojoerrors"
)

// ID is this middleware's stable identifier.
const ID = "txt"

// New constructs the string-value middleware.
func New() *middleware.Middleware {
	return &middleware.Middleware{
		ID:           ID,
		IncludeGlobs: []string{"**/*.txt"},
		FilesOnly:    true,
		Snapshot:     snapshot,
		Priority: func(className string, hasDescendants bool) (int, bool) {
			if hasDescendants || className != "StringValue" {
				return 0, false
			}
			return middleware.PrioritySingleReadable, true
		},
		SyncbackCreate: syncback,
		SyncbackUpdate: func(ctx middleware.SyncbackContext, previous, snap *dom.Snapshot) (middleware.SyncbackResult, error) {
			return syncback(ctx, snap)
		},
		SyncbackDestroy: func(ctx middleware.SyncbackContext) error { return nil },
	}
}

func snapshot(ctx middleware.SnapshotContext, filePath string) (*dom.Snapshot, error) {
	if !strings.HasSuffix(strings.ToLower(filePath), ".txt") {
		return nil, nil
	}
	content, err := ctx.FS.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", rojoerrors.ErrIO, filePath, err)
	}
	name := strings.TrimSuffix(path.Base(filePath), ".txt")
	snap := dom.NewSnapshot("StringValue", name)
	snap.Properties["Value"] = dom.NewString(string(content))
	snap.Metadata.MiddlewareID = ID
	snap.Metadata.RelevantPaths = []string{filePath}
	return snap, nil
}

func syncback(ctx middleware.SyncbackContext, snap *dom.Snapshot) (middleware.SyncbackResult, error) {
	value, exists := snap.Properties["Value"]
	if !exists {
		return middleware.SyncbackResult{}, fmt.Errorf("%w: StringValue %q has no Value property", rojoerrors.ErrTypeMismatch, snap.Name)
	}
	filePath := path.Join(ctx.Path, snap.Name+".txt")
	ctx.Builder.SetFile(filePath, []byte(value.String))
	snap.Metadata.MiddlewareID = ID
	return middleware.SyncbackResult{Snapshot: snap}, nil
}
