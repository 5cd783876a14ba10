package main

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/rojosync/rojo/pkg/logging"
	"github.com/rojosync/rojo/pkg/vfs"
)

func TestSnapshotRootDispatchesPlainDirectoryAsFolder(t *testing.T) {
	dir := t.TempDir()
	fs := vfs.NewOSFS(logging.NewLogger(logging.LevelError, &bytes.Buffer{}))
	if err := fs.WriteFile(filepath.Join(dir, "Note.txt"), []byte("hi")); err != nil {
		t.Fatalf("write: %v", err)
	}

	logger := logging.NewLogger(logging.LevelError, &bytes.Buffer{})
	registry := newRegistry(logger)

	snap, err := snapshotRoot(registry, fs, dir)
	if err != nil {
		t.Fatalf("snapshotRoot: %v", err)
	}
	if snap.ClassName != "Folder" {
		t.Fatalf("expected Folder, got %s", snap.ClassName)
	}
	if len(snap.Children) != 1 || snap.Children[0].Name != "Note" {
		t.Fatalf("expected one StringValue child named Note, got %+v", snap.Children)
	}
}

func TestSnapshotRootMissingPathErrors(t *testing.T) {
	dir := t.TempDir()
	fs := vfs.NewOSFS(logging.NewLogger(logging.LevelError, &bytes.Buffer{}))
	logger := logging.NewLogger(logging.LevelError, &bytes.Buffer{})
	registry := newRegistry(logger)

	if _, err := snapshotRoot(registry, fs, filepath.Join(dir, "missing")); err == nil {
		t.Fatalf("expected an error for a nonexistent root path")
	}
}

func TestLoadTreeAndFilterForRootReflectProjectContext(t *testing.T) {
	dir := t.TempDir()
	fs := vfs.NewOSFS(logging.NewLogger(logging.LevelError, &bytes.Buffer{}))
	if err := fs.WriteFile(filepath.Join(dir, "Greeting.txt"), []byte("hi")); err != nil {
		t.Fatalf("write: %v", err)
	}
	projectJSON := `{
		"name": "Game",
		"globIgnorePaths": ["**/*.ignored"],
		"tree": {
			"$className": "DataModel",
			"Greeting": { "$path": "Greeting.txt" }
		}
	}`
	projectPath := filepath.Join(dir, "default.project.json")
	if err := fs.WriteFile(projectPath, []byte(projectJSON)); err != nil {
		t.Fatalf("write project file: %v", err)
	}

	logger := logging.NewLogger(logging.LevelError, &bytes.Buffer{})
	registry := newRegistry(logger)

	tree, root, err := loadTree(registry, fs, logger, projectPath)
	if err != nil {
		t.Fatalf("loadTree: %v", err)
	}

	instance, _, ok := tree.Get(root)
	if !ok || instance.Name != "Game" {
		t.Fatalf("expected root instance named Game, got %+v", instance)
	}

	paths := globIgnorePathsForRoot(tree, root)
	if len(paths) != 1 || paths[0] != "**/*.ignored" {
		t.Fatalf("expected the project's globIgnorePaths to be recorded, got %v", paths)
	}

	filter := filterForRoot(tree, root)
	if filter == nil {
		t.Fatalf("expected a non-nil filter")
	}
}

func TestOldFootprintRecordsFilesAndDirectories(t *testing.T) {
	dir := t.TempDir()
	fs := vfs.NewOSFS(logging.NewLogger(logging.LevelError, &bytes.Buffer{}))
	if err := fs.WriteFile(filepath.Join(dir, "Note.txt"), []byte("hi")); err != nil {
		t.Fatalf("write: %v", err)
	}

	logger := logging.NewLogger(logging.LevelError, &bytes.Buffer{})
	registry := newRegistry(logger)

	tree, _, err := loadTree(registry, fs, logger, dir)
	if err != nil {
		t.Fatalf("loadTree: %v", err)
	}

	footprint := oldFootprint(fs, tree)
	if !footprint.HasFile(filepath.Join(dir, "Note.txt")) {
		t.Fatalf("expected Note.txt to be recorded in the footprint")
	}
	if !footprint.HasDir(dir) {
		t.Fatalf("expected the root directory to be recorded in the footprint")
	}
}
