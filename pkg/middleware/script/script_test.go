package script

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/rojosync/rojo/pkg/dom"
	"github.com/rojosync/rojo/pkg/fssnapshot"
	"github.com/rojosync/rojo/pkg/logging"
	"github.com/rojosync/rojo/pkg/middleware"
	"github.com/rojosync/rojo/pkg/vfs"
)

func writeFile(t *testing.T, fs vfs.FS, path, content string) {
	t.Helper()
	if err := fs.WriteFile(path, []byte(content)); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestSnapshotClassifiesByInfix(t *testing.T) {
	dir := t.TempDir()
	fs := vfs.NewOSFS(logging.NewLogger(logging.LevelError, testWriter{t}))

	cases := []struct {
		file      string
		wantClass string
	}{
		{"Plain.lua", "ModuleScript"},
		{"OnServer.server.lua", "Script"},
		{"OnClient.client.lua", "LocalScript"},
	}
	for _, tc := range cases {
		path := filepath.Join(dir, tc.file)
		writeFile(t, fs, path, "return 1")

		snap, err := snapshot(middleware.SnapshotContext{FS: fs}, path)
		if err != nil {
			t.Fatalf("snapshot(%s): %v", tc.file, err)
		}
		if snap == nil {
			t.Fatalf("snapshot(%s): expected a result", tc.file)
		}
		if snap.ClassName != tc.wantClass {
			t.Fatalf("snapshot(%s): class = %s, want %s", tc.file, snap.ClassName, tc.wantClass)
		}
		if snap.Properties["Source"].String != "return 1" {
			t.Fatalf("snapshot(%s): unexpected Source property", tc.file)
		}
	}
}

func TestSnapshotNonScriptExtensionIgnored(t *testing.T) {
	dir := t.TempDir()
	fs := vfs.NewOSFS(logging.NewLogger(logging.LevelError, testWriter{t}))
	path := filepath.Join(dir, "notes.txt")
	writeFile(t, fs, path, "hello")

	snap, err := snapshot(middleware.SnapshotContext{FS: fs}, path)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if snap != nil {
		t.Fatalf("expected nil for a non-script extension, got %+v", snap)
	}
}

func TestWriteScriptUsesInfixByDefault(t *testing.T) {
	builder := fssnapshot.New()
	ctx := middleware.SyncbackContext{Path: "/project", Builder: &builder}

	snap := dom.NewSnapshot("LocalScript", "Client")
	snap.Properties["Source"] = dom.NewString("print('hi')")

	if _, err := writeScript(ctx, nil, snap); err != nil {
		t.Fatalf("writeScript: %v", err)
	}
	if !builder.HasFile("/project/Client.client.lua") {
		t.Fatalf("expected Client.client.lua to be staged")
	}
}

func TestWriteScriptLegacyOmitsInfixAndRecordsRunContext(t *testing.T) {
	builder := fssnapshot.New()
	ctx := middleware.SyncbackContext{
		Path:    "/project",
		Builder: &builder,
		Context: dom.Context{EmitLegacyScripts: true},
	}

	snap := dom.NewSnapshot("Script", "Server")
	snap.Properties["Source"] = dom.NewString("print('hi')")

	if _, err := writeScript(ctx, nil, snap); err != nil {
		t.Fatalf("writeScript: %v", err)
	}
	if !builder.HasFile("/project/Server.lua") {
		t.Fatalf("expected Server.lua (no infix) to be staged in legacy mode")
	}
	if builder.HasFile("/project/Server.server.lua") {
		t.Fatalf("did not expect a suffixed file name in legacy mode")
	}

	meta, ok := fileContent(builder, "/project/Server.meta.json")
	if !ok {
		t.Fatalf("expected a .meta.json sidecar recording RunContext")
	}
	if !strings.Contains(meta, `"RunContext"`) || !strings.Contains(meta, `"Server"`) {
		t.Fatalf("expected RunContext=Server in sidecar, got %s", meta)
	}
}

func TestSnapshotLegacyBareFileWithRunContext(t *testing.T) {
	dir := t.TempDir()
	fs := vfs.NewOSFS(logging.NewLogger(logging.LevelError, testWriter{t}))
	scriptPath := filepath.Join(dir, "Server.lua")
	writeFile(t, fs, scriptPath, "print('hi')")
	writeFile(t, fs, filepath.Join(dir, "Server.meta.json"), `{"properties":{"RunContext":{"Type":"String","Value":"Server"}}}`)

	ctx := middleware.SnapshotContext{FS: fs, Context: dom.Context{EmitLegacyScripts: true}}
	snap, err := snapshot(ctx, scriptPath)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if snap.ClassName != "Script" {
		t.Fatalf("expected legacy RunContext=Server to reclassify as Script, got %s", snap.ClassName)
	}
}

func fileContent(builder fssnapshot.Snapshot, path string) (string, bool) {
	for _, entry := range builder.Files() {
		if entry.Path == path && entry.HasContent {
			return string(entry.Content), true
		}
	}
	return "", false
}

// testWriter adapts *testing.T to io.Writer for logging.NewLogger.
type testWriter struct{ t *testing.T }

func (w testWriter) Write(p []byte) (int, error) {
	w.t.Log(string(p))
	return len(p), nil
}
