// Package pathutil provides the small set of file-name trimming and
// matching primitives that middleware dispatch and script-kind inference
// are built on. It favors plain string surgery over path/filepath helpers
// for the same reason the teacher's core path utilities do: these operate
// on bare file names, not filesystem paths, so there's no separator
// normalization to do.
package pathutil

import (
	"strings"
	"unicode/utf8"

	"github.com/rojosync/rojo/pkg/rojoerrors"
)

// ScriptKind identifies which of the three script classes a source file
// infers, based on its dot-separated suffix.
type ScriptKind uint8

const (
	// ScriptKindModule is the default when no recognized infix is present.
	ScriptKindModule ScriptKind = iota
	// ScriptKindServer corresponds to a ".server." infix.
	ScriptKindServer
	// ScriptKindClient corresponds to a ".client." infix.
	ScriptKindClient
)

// String returns a human-readable label for the script kind.
func (k ScriptKind) String() string {
	switch k {
	case ScriptKindServer:
		return "server"
	case ScriptKindClient:
		return "client"
	default:
		return "module"
	}
}

// TrimExtension removes a known extension (including the leading dot) from
// name, returning the stem and whether the extension was present.
func TrimExtension(name, extension string) (string, bool) {
	if !strings.HasSuffix(name, extension) {
		return name, false
	}
	return strings.TrimSuffix(name, extension), true
}

// TrimSuffixes tries each candidate extension in order and returns the stem
// and the matched extension on the first hit.
func TrimSuffixes(name string, extensions ...string) (stem, extension string, ok bool) {
	for _, candidate := range extensions {
		if trimmed, matched := TrimExtension(name, candidate); matched {
			return trimmed, candidate, true
		}
	}
	return name, "", false
}

// HasSuffixFold reports whether name ends with suffix, ignoring case, and
// returns the untrimmed prefix.
func HasSuffixFold(name, suffix string) (prefix string, ok bool) {
	if len(name) < len(suffix) {
		return "", false
	}
	tail := name[len(name)-len(suffix):]
	if !strings.EqualFold(tail, suffix) {
		return "", false
	}
	return name[:len(name)-len(suffix)], true
}

// ScriptNameInfo is the result of decomposing a script source file's stem
// (the name with its language extension already trimmed).
type ScriptNameInfo struct {
	// BaseName is the instance name: the stem with the kind infix removed.
	BaseName string
	// Kind is the inferred script kind.
	Kind ScriptKind
}

// DecomposeScriptName splits a script stem such as "foo.server" into its
// base name and kind. A stem with no dot is always a module script. The
// kind segment is matched case-insensitively per spec, but BaseName always
// preserves the original case of the surrounding text.
func DecomposeScriptName(stem string) (ScriptNameInfo, error) {
	if !utf8.ValidString(stem) {
		return ScriptNameInfo{}, rojoerrors.ErrDecode
	}

	lastDot := strings.LastIndexByte(stem, '.')
	if lastDot < 0 {
		return ScriptNameInfo{BaseName: stem, Kind: ScriptKindModule}, nil
	}

	infix := strings.ToLower(stem[lastDot+1:])
	switch infix {
	case "server":
		return ScriptNameInfo{BaseName: stem[:lastDot], Kind: ScriptKindServer}, nil
	case "client":
		return ScriptNameInfo{BaseName: stem[:lastDot], Kind: ScriptKindClient}, nil
	default:
		return ScriptNameInfo{BaseName: stem, Kind: ScriptKindModule}, nil
	}
}

// Infix returns the dot-prefixed infix (".server", ".client", or "")
// to splice between a script's base name and its language extension when
// writing it back to disk.
func (k ScriptKind) Infix() string {
	switch k {
	case ScriptKindServer:
		return ".server"
	case ScriptKindClient:
		return ".client"
	default:
		return ""
	}
}
