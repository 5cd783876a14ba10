package csv

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/rojosync/rojo/pkg/dom"
	"github.com/rojosync/rojo/pkg/fssnapshot"
	"github.com/rojosync/rojo/pkg/logging"
	"github.com/rojosync/rojo/pkg/middleware"
	"github.com/rojosync/rojo/pkg/vfs"
)

func TestSnapshotParsesRowsAndDropsEmpty(t *testing.T) {
	dir := t.TempDir()
	fs := vfs.NewOSFS(logging.NewLogger(logging.LevelError, &bytes.Buffer{}))
	path := filepath.Join(dir, "Strings.csv")
	content := "Key,Source,Context\ngreeting,Hello,ui\n,,\n"
	if err := fs.WriteFile(path, []byte(content)); err != nil {
		t.Fatalf("write: %v", err)
	}

	snap, err := snapshot(middleware.SnapshotContext{FS: fs}, path, nil)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if snap.ClassName != "LocalizationTable" || snap.Name != "Strings" {
		t.Fatalf("unexpected class/name: %s/%s", snap.ClassName, snap.Name)
	}

	var rows []Row
	if err := json.Unmarshal([]byte(snap.Properties["Contents"].String), &rows); err != nil {
		t.Fatalf("unmarshal Contents: %v", err)
	}
	if len(rows) != 1 || rows[0].Key != "greeting" || rows[0].Source != "Hello" {
		t.Fatalf("expected one row surviving the empty-row drop, got %+v", rows)
	}
}

func TestSnapshotMissingRequiredColumnErrors(t *testing.T) {
	dir := t.TempDir()
	fs := vfs.NewOSFS(logging.NewLogger(logging.LevelError, &bytes.Buffer{}))
	path := filepath.Join(dir, "Strings.csv")
	if err := fs.WriteFile(path, []byte("Source\nHello\n")); err != nil {
		t.Fatalf("write: %v", err)
	}

	if _, err := snapshot(middleware.SnapshotContext{FS: fs}, path, nil); err == nil {
		t.Fatalf("expected an error for a CSV missing the Key column")
	}
}

func TestSnapshotSyncbackRoundTripsExtraLocaleColumn(t *testing.T) {
	dir := t.TempDir()
	fs := vfs.NewOSFS(logging.NewLogger(logging.LevelError, &bytes.Buffer{}))
	path := filepath.Join(dir, "foo.csv")
	original := "Key,Source,Context,Example,es\nAck,Ack!,,An exclamation of despair,¡Ay!\n"
	if err := fs.WriteFile(path, []byte(original)); err != nil {
		t.Fatalf("write: %v", err)
	}

	snap, err := snapshot(middleware.SnapshotContext{FS: fs}, path, nil)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if snap.Name != "foo" || snap.ClassName != "LocalizationTable" {
		t.Fatalf("unexpected class/name: %s/%s", snap.ClassName, snap.Name)
	}

	var rows []Row
	if err := json.Unmarshal([]byte(snap.Properties["Contents"].String), &rows); err != nil {
		t.Fatalf("unmarshal Contents: %v", err)
	}
	if len(rows) != 1 || rows[0].Key != "Ack" || rows[0].Values["es"] != "¡Ay!" {
		t.Fatalf("unexpected decoded rows: %+v", rows)
	}

	builder := fssnapshot.New()
	syncbackCtx := middleware.SyncbackContext{Path: dir, Builder: &builder}
	if _, err := syncback(syncbackCtx, snap); err != nil {
		t.Fatalf("syncback: %v", err)
	}

	var data []byte
	for _, entry := range builder.Files() {
		if entry.Path == filepath.Join(dir, "foo.csv") {
			data = entry.Content
		}
	}
	if !bytes.HasPrefix(data, []byte("Key,Source,Context,Example,es\n")) {
		t.Fatalf("expected the original column order to round-trip, got %s", data)
	}
	if !bytes.Contains(data, []byte("Ack,Ack!,,An exclamation of despair,¡Ay!")) {
		t.Fatalf("expected the original row content to round-trip, got %s", data)
	}
}

func TestSyncbackWritesHeaderAndRows(t *testing.T) {
	rows := []Row{{Key: "greeting", Source: "Hello", Context: "ui"}}
	contents, err := json.Marshal(rows)
	if err != nil {
		t.Fatalf("marshal rows: %v", err)
	}

	snap := dom.NewSnapshot("LocalizationTable", "Strings")
	snap.Properties["Contents"] = dom.NewString(string(contents))

	builder := fssnapshot.New()
	ctx := middleware.SyncbackContext{Path: "/project", Builder: &builder}

	if _, err := syncback(ctx, snap); err != nil {
		t.Fatalf("syncback: %v", err)
	}
	if !builder.HasFile("/project/Strings.csv") {
		t.Fatalf("expected Strings.csv to be staged")
	}

	var data []byte
	for _, entry := range builder.Files() {
		if entry.Path == "/project/Strings.csv" {
			data = entry.Content
		}
	}
	if !bytes.Contains(data, []byte("Key,Source,Context,Example")) {
		t.Fatalf("expected a header row, got %s", data)
	}
	if !bytes.Contains(data, []byte("greeting,Hello,ui")) {
		t.Fatalf("expected the row's content, got %s", data)
	}
}
