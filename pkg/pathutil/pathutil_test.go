package pathutil

import "testing"

func TestDecomposeScriptName(t *testing.T) {
	tests := []struct {
		stem     string
		wantBase string
		wantKind ScriptKind
	}{
		{"a", "a", ScriptKindModule},
		{"a.server", "a", ScriptKindServer},
		{"a.client", "a", ScriptKindClient},
		{"a.SERVER", "a", ScriptKindServer},
		{"a.b.client", "a.b", ScriptKindClient},
		{"a.weird", "a.weird", ScriptKindModule},
	}
	for _, test := range tests {
		info, err := DecomposeScriptName(test.stem)
		if err != nil {
			t.Fatalf("DecomposeScriptName(%q) returned error: %v", test.stem, err)
		}
		if info.BaseName != test.wantBase || info.Kind != test.wantKind {
			t.Errorf("DecomposeScriptName(%q) = (%q, %v), want (%q, %v)",
				test.stem, info.BaseName, info.Kind, test.wantBase, test.wantKind)
		}
	}
}

func TestTrimSuffixes(t *testing.T) {
	stem, ext, ok := TrimSuffixes("foo.server.lua", ".luau", ".lua")
	if !ok || stem != "foo.server" || ext != ".lua" {
		t.Fatalf("TrimSuffixes returned (%q, %q, %v)", stem, ext, ok)
	}
	if _, _, ok := TrimSuffixes("foo.txt", ".lua", ".luau"); ok {
		t.Fatal("TrimSuffixes unexpectedly matched")
	}
}
