// Package placefile picks the monolithic place/model codec named by an
// output or input path's extension (spec §6's "output path whose extension
// picks the codec"), for the one whole-tree encode/decode a build or
// syncback invocation does — as opposed to the per-embedded-file codecs
// middleware/modelbinary and middleware/modelxml expose for a .rbxm/.rbxmx
// nested inside a project tree.
package placefile

import (
	"fmt"
	"strings"

	"github.com/rojosync/rojo/pkg/dom"
	"github.com/rojosync/rojo/pkg/middleware/modelbinary"
	"github.com/rojosync/rojo/pkg/middleware/modelxml"
	"github.com/rojosync/rojo/pkg/rojoerrors"
)

// Kind identifies which codec a place/model file's extension selected.
type Kind uint8

const (
	KindBinary Kind = iota
	KindXML
)

// KindForPath classifies path's extension, case-insensitively, per spec
// §6's extension list (.rbxl/.rbxm binary, .rbxlx/.rbxmx XML).
func KindForPath(path string) (Kind, error) {
	lower := strings.ToLower(path)
	switch {
	case strings.HasSuffix(lower, ".rbxl"), strings.HasSuffix(lower, ".rbxm"):
		return KindBinary, nil
	case strings.HasSuffix(lower, ".rbxlx"), strings.HasSuffix(lower, ".rbxmx"):
		return KindXML, nil
	default:
		return 0, fmt.Errorf("%w: %s", rojoerrors.ErrUnknownOutputKind, path)
	}
}

// Encode serializes root (and its subtree) using the codec selected by
// outputPath's extension.
func Encode(root *dom.Snapshot, outputPath string) ([]byte, error) {
	kind, err := KindForPath(outputPath)
	if err != nil {
		return nil, err
	}
	switch kind {
	case KindXML:
		return modelxml.EncodeSnapshot(root)
	default:
		return modelbinary.EncodeSnapshot(root)
	}
}

// Decode parses data using the codec selected by inputPath's extension.
func Decode(data []byte, inputPath string) (*dom.Snapshot, error) {
	kind, err := KindForPath(inputPath)
	if err != nil {
		return nil, err
	}
	switch kind {
	case KindXML:
		return modelxml.DecodeSnapshot(data)
	default:
		return modelbinary.DecodeSnapshot(data)
	}
}
