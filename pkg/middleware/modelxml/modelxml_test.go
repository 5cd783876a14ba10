package modelxml

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/rojosync/rojo/pkg/dom"
	"github.com/rojosync/rojo/pkg/fssnapshot"
	"github.com/rojosync/rojo/pkg/logging"
	"github.com/rojosync/rojo/pkg/middleware"
	"github.com/rojosync/rojo/pkg/vfs"
)

func TestEncodeDecodeSnapshotRoundTrips(t *testing.T) {
	snap := dom.NewSnapshot("Model", "Widget")
	snap.Properties["Anchored"] = dom.NewBool(true)
	child := dom.NewSnapshot("Part", "Handle")
	child.Properties["Color"] = dom.NewString("red")
	snap.Children = append(snap.Children, child)

	data, err := EncodeSnapshot(snap)
	if err != nil {
		t.Fatalf("EncodeSnapshot: %v", err)
	}

	decoded, err := DecodeSnapshot(data)
	if err != nil {
		t.Fatalf("DecodeSnapshot: %v", err)
	}
	if decoded.ClassName != "Model" || decoded.Name != "Widget" {
		t.Fatalf("unexpected root: %s/%s", decoded.ClassName, decoded.Name)
	}
	if !decoded.Properties["Anchored"].Bool {
		t.Fatalf("expected Anchored=true to survive the round trip")
	}
	if len(decoded.Children) != 1 || decoded.Children[0].Name != "Handle" || decoded.Children[0].Properties["Color"].String != "red" {
		t.Fatalf("expected child Handle/Color to survive the round trip, got %+v", decoded.Children)
	}
}

func TestDecodeSnapshotRejectsMultipleTopLevelItems(t *testing.T) {
	data := []byte(`<roblox version="4">
		<Item class="Part"><Properties><string name="Name">A</string></Properties></Item>
		<Item class="Part"><Properties><string name="Name">B</string></Properties></Item>
	</roblox>`)
	if _, err := DecodeSnapshot(data); err == nil {
		t.Fatalf("expected an error for multiple top-level items")
	}
}

func TestSnapshotReadsFileAndOverridesNameFromPath(t *testing.T) {
	dir := t.TempDir()
	fs := vfs.NewOSFS(logging.NewLogger(logging.LevelError, &bytes.Buffer{}))
	path := filepath.Join(dir, "Widget.rbxmx")

	original := dom.NewSnapshot("Model", "IgnoredName")
	data, err := EncodeSnapshot(original)
	if err != nil {
		t.Fatalf("EncodeSnapshot: %v", err)
	}
	if err := fs.WriteFile(path, data); err != nil {
		t.Fatalf("write: %v", err)
	}

	snap, err := snapshot(middleware.SnapshotContext{FS: fs}, path)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if snap.Name != "Widget" {
		t.Fatalf("expected the file's base name to win, got %s", snap.Name)
	}
	if snap.ClassName != "Model" {
		t.Fatalf("expected Model, got %s", snap.ClassName)
	}
}

func TestSnapshotNonRbxmxExtensionIsSkipped(t *testing.T) {
	dir := t.TempDir()
	fs := vfs.NewOSFS(logging.NewLogger(logging.LevelError, &bytes.Buffer{}))
	path := filepath.Join(dir, "Widget.txt")
	if err := fs.WriteFile(path, []byte("irrelevant")); err != nil {
		t.Fatalf("write: %v", err)
	}

	snap, err := snapshot(middleware.SnapshotContext{FS: fs}, path)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if snap != nil {
		t.Fatalf("expected a nil snapshot for a non-.rbxmx file, got %+v", snap)
	}
}

func TestSyncbackWritesParsableXML(t *testing.T) {
	snap := dom.NewSnapshot("Model", "Widget")
	snap.Properties["Anchored"] = dom.NewBool(true)

	builder := fssnapshot.New()
	ctx := middleware.SyncbackContext{Path: "/project", Builder: &builder}

	if _, err := syncback(ctx, snap); err != nil {
		t.Fatalf("syncback: %v", err)
	}
	if !builder.HasFile("/project/Widget.rbxmx") {
		t.Fatalf("expected Widget.rbxmx to be staged")
	}

	var data []byte
	for _, entry := range builder.Files() {
		if entry.Path == "/project/Widget.rbxmx" {
			data = entry.Content
		}
	}
	decoded, err := DecodeSnapshot(data)
	if err != nil {
		t.Fatalf("DecodeSnapshot: %v", err)
	}
	if decoded.ClassName != "Model" || !decoded.Properties["Anchored"].Bool {
		t.Fatalf("unexpected decoded snapshot: %+v", decoded)
	}
}

func TestVariantToElementRejectsUnsupportedKind(t *testing.T) {
	snap := dom.NewSnapshot("Model", "Widget")
	snap.Properties["Position"] = dom.Variant{Kind: dom.VariantKindVector3, Vector3: dom.Vector3{X: 1, Y: 2, Z: 3}}

	if _, err := EncodeSnapshot(snap); err == nil {
		t.Fatalf("expected an error for a variant kind this XML codec cannot represent")
	}
}
