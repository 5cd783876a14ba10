// Package script implements the source-script middleware from spec §4.6:
// X.lua, X.server.lua, X.client.lua (and the .luau equivalents) map to
// ModuleScript/Script/LocalScript, with file text as the Source property.
// Grounded on the teacher's extension-dispatch idiom in
// `pkg/synchronization/core/entry.go` (a single suffix-keyed switch), now
// driven by `pkg/pathutil`'s `DecomposeScriptName`.
package script

import (
	"fmt"
	"path"
	"strings"

	"github.com/rojosync/rojo/pkg/dom"
	"github.com/rojosync/rojo/pkg/metafile"
	"github.com/rojosync/rojo/pkg/middleware"
	"github.com/rojosync/rojo/pkg/pathutil"
	"github.com/rojosync/rojo/pkg/reflection"
	"github.com/rojosync/rojo/pkg/rojoerrors"
)

// ID is this middleware's stable identifier.
const ID = "script"

var extensions = []string{".lua", ".luau"}

func classForKind(kind pathutil.ScriptKind) string {
	switch kind {
	case pathutil.ScriptKindServer:
		return "Script"
	case pathutil.ScriptKindClient:
		return "LocalScript"
	default:
		return "ModuleScript"
	}
}

func kindForClass(className string) (pathutil.ScriptKind, bool) {
	switch className {
	case "Script":
		return pathutil.ScriptKindServer, true
	case "LocalScript":
		return pathutil.ScriptKindClient, true
	case "ModuleScript":
		return pathutil.ScriptKindModule, true
	default:
		return 0, false
	}
}

// New constructs the source-script middleware.
func New() *middleware.Middleware {
	return &middleware.Middleware{
		ID:           ID,
		IncludeGlobs: []string{"**/*.lua", "**/*.luau"},
		FilesOnly:    true,
		Snapshot:     snapshot,
		Priority: func(className string, hasDescendants bool) (int, bool) {
			if hasDescendants {
				return 0, false
			}
			if _, ok := kindForClass(className); !ok {
				return 0, false
			}
			return middleware.PrioritySingleReadable, true
		},
		SyncbackCreate:  syncbackCreate,
		SyncbackUpdate:  syncbackUpdate,
		SyncbackDestroy: syncbackDestroy,
	}
}

func snapshot(ctx middleware.SnapshotContext, filePath string) (*dom.Snapshot, error) {
	ext := extensionOf(filePath)
	if ext == "" {
		return nil, nil
	}
	stem := strings.TrimSuffix(path.Base(filePath), ext)

	info, err := pathutil.DecomposeScriptName(stem)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", rojoerrors.ErrDecode, filePath, err)
	}

	content, err := ctx.FS.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", rojoerrors.ErrIO, filePath, err)
	}

	metaPath := path.Join(path.Dir(filePath), info.BaseName+".meta.json")
	var metaFile *metafile.File
	if raw, err := ctx.FS.ReadFile(metaPath); err == nil {
		metaFile, err = metafile.Parse(raw, metaPath)
		if err != nil {
			return nil, err
		}
	}

	className := classForKind(info.Kind)
	if ctx.Context.EmitLegacyScripts && info.Kind == pathutil.ScriptKindModule && metaFile != nil {
		if runContext, ok := metaFile.Properties.Get("RunContext"); ok {
			switch runContext.String {
			case "Server":
				className = "Script"
			case "Client":
				className = "LocalScript"
			}
		}
	}

	snap := dom.NewSnapshot(className, info.BaseName)
	snap.Properties["Source"] = dom.NewString(string(content))
	snap.Metadata.MiddlewareID = ID
	snap.Metadata.RelevantPaths = []string{filePath}

	if metaFile != nil {
		if err := metafile.MergeOnto(snap, metaFile, reflection.Default); err != nil {
			return nil, err
		}
		snap.Metadata.RelevantPaths = append(snap.Metadata.RelevantPaths, metaPath)
	}

	return snap, nil
}

func extensionOf(filePath string) string {
	for _, ext := range extensions {
		if strings.HasSuffix(strings.ToLower(filePath), ext) {
			return filePath[len(filePath)-len(ext):]
		}
	}
	return ""
}

func syncbackCreate(ctx middleware.SyncbackContext, snap *dom.Snapshot) (middleware.SyncbackResult, error) {
	return writeScript(ctx, nil, snap)
}

func syncbackUpdate(ctx middleware.SyncbackContext, previous, snap *dom.Snapshot) (middleware.SyncbackResult, error) {
	return writeScript(ctx, previous, snap)
}

func writeScript(ctx middleware.SyncbackContext, previous, snap *dom.Snapshot) (middleware.SyncbackResult, error) {
	kind, ok := kindForClass(snap.ClassName)
	if !ok {
		return middleware.SyncbackResult{}, fmt.Errorf("%w: script middleware cannot produce class %q", rojoerrors.ErrTypeMismatch, snap.ClassName)
	}

	sourceValue, exists := snap.Properties["Source"]
	if !exists {
		return middleware.SyncbackResult{}, fmt.Errorf("%w: script %q has no Source property", rojoerrors.ErrTypeMismatch, snap.Name)
	}
	source := sourceValue.String

	infix := kind.Infix()
	if ctx.Context.EmitLegacyScripts {
		infix = ""
	}
	fileName := snap.Name + infix + ".lua"
	filePath := path.Join(ctx.Path, fileName)
	ctx.Builder.SetFile(filePath, []byte(source))

	var previousMeta *metafile.File
	metaPath := path.Join(ctx.Path, snap.Name+".meta.json")
	if previous != nil && previous.Metadata.MiddlewareID == ID {
		previousMeta = metafile.New()
	}

	properties := withoutSource(snap.Properties)
	if ctx.Context.EmitLegacyScripts {
		switch kind {
		case pathutil.ScriptKindServer:
			properties = withRunContext(properties, "Server")
		case pathutil.ScriptKindClient:
			properties = withRunContext(properties, "Client")
		}
	}

	rebuilt := metafile.Rebuild(snap.ClassName, properties, false, metafile.RebuildOptions{
		Previous:     previousMeta,
		MinimizeDiff: true,
	})
	if !rebuilt.IsEmpty() {
		data, err := rebuilt.Write()
		if err != nil {
			return middleware.SyncbackResult{}, err
		}
		ctx.Builder.SetFile(metaPath, data)
	}

	snap.Metadata.MiddlewareID = ID
	return middleware.SyncbackResult{Snapshot: snap}, nil
}

// withRunContext returns a copy of properties with a RunContext entry added,
// used in place of the client/server filename infix when emitLegacyScripts
// is set: the disambiguation travels in the .meta.json sidecar instead of
// the file name, matching classic Script/LocalScript naming.
func withRunContext(properties map[string]dom.Variant, runContext string) map[string]dom.Variant {
	withContext := make(map[string]dom.Variant, len(properties)+1)
	for key, value := range properties {
		withContext[key] = value
	}
	withContext["RunContext"] = dom.NewString(runContext)
	return withContext
}

func withoutSource(properties map[string]dom.Variant) map[string]dom.Variant {
	filtered := make(map[string]dom.Variant, len(properties))
	for key, value := range properties {
		if key == "Source" {
			continue
		}
		filtered[key] = value
	}
	return filtered
}

func syncbackDestroy(ctx middleware.SyncbackContext) error {
	return nil
}
