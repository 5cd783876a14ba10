package dir

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/rojosync/rojo/pkg/dom"
	"github.com/rojosync/rojo/pkg/logging"
	"github.com/rojosync/rojo/pkg/middleware"
	"github.com/rojosync/rojo/pkg/middleware/script"
	"github.com/rojosync/rojo/pkg/middleware/txt"
	"github.com/rojosync/rojo/pkg/vfs"
)

func newRegistry() *middleware.Registry {
	registry := middleware.NewRegistry()
	registry.Register(script.New())
	registry.Register(txt.New())
	registry.Register(New(registry))
	return registry
}

func writeFile(t *testing.T, fs vfs.FS, path, content string) {
	t.Helper()
	if err := fs.WriteFile(path, []byte(content)); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestSnapshotPlainDirectoryIsFolder(t *testing.T) {
	root := t.TempDir()
	fs := vfs.NewOSFS(logging.NewLogger(logging.LevelError, &bytes.Buffer{}))
	writeFile(t, fs, filepath.Join(root, "Note.txt"), "hello")

	registry := newRegistry()
	snap, err := snapshot(middleware.SnapshotContext{FS: fs}, root, registry)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if snap.ClassName != "Folder" {
		t.Fatalf("expected Folder, got %s", snap.ClassName)
	}
	if len(snap.Children) != 1 || snap.Children[0].Name != "Note" {
		t.Fatalf("expected one StringValue child named Note, got %+v", snap.Children)
	}
}

func TestSnapshotInitScriptRetypesDirectory(t *testing.T) {
	root := t.TempDir()
	fs := vfs.NewOSFS(logging.NewLogger(logging.LevelError, &bytes.Buffer{}))
	writeFile(t, fs, filepath.Join(root, "init.server.lua"), "return 1")

	registry := newRegistry()
	snap, err := snapshot(middleware.SnapshotContext{FS: fs}, root, registry)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if snap.ClassName != "Script" {
		t.Fatalf("expected Script, got %s", snap.ClassName)
	}
	if snap.Properties["Source"].String != "return 1" {
		t.Fatalf("expected init script content as Source")
	}
}

func TestSnapshotRespectsGlobIgnorePaths(t *testing.T) {
	root := t.TempDir()
	fs := vfs.NewOSFS(logging.NewLogger(logging.LevelError, &bytes.Buffer{}))
	writeFile(t, fs, filepath.Join(root, "Keep.txt"), "keep")
	writeFile(t, fs, filepath.Join(root, "Skip.txt"), "skip")

	registry := newRegistry()
	ignorePath := filepath.ToSlash(filepath.Join(root, "Skip.txt"))
	ctx := middleware.SnapshotContext{FS: fs, Context: dom.Context{GlobIgnorePaths: []string{ignorePath}}}

	snap, err := snapshot(ctx, root, registry)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if len(snap.Children) != 1 || snap.Children[0].Name != "Keep" {
		t.Fatalf("expected only Keep to survive glob-ignore, got %+v", snap.Children)
	}
	if snap.Metadata.Context.GlobIgnorePaths == nil {
		t.Fatalf("expected the directory's own metadata to record its context")
	}
}

func TestMatchesIgnoreGlob(t *testing.T) {
	if !matchesIgnoreGlob("/project/src/secret.lua", []string{"**/secret.lua"}) {
		t.Fatalf("expected a doublestar glob match")
	}
	if matchesIgnoreGlob("/project/src/keep.lua", []string{"**/secret.lua"}) {
		t.Fatalf("expected no match for an unrelated path")
	}
}
