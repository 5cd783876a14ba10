// Package csv implements the CSV-localization middleware from spec §4.6: a
// localization CSV maps to a LocalizationTable instance whose rows are
// packed into a JSON-encoded structure held by the Contents property, and
// vice versa on syncback. Uses stdlib encoding/csv, justified in DESIGN.md
// (no third-party CSV library appears anywhere in the retrieval pack).
package csv

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/rojosync/rojo/pkg/dom"
	"github.com/rojosync/rojo/pkg/logging"
	"github.com/rojosync/rojo/pkg/middleware"
	"github.com/rojosync/rojo/pkg/rojoerrors"
)

// ID is this middleware's stable identifier.
const ID = "csv"

// Row is one localization entry, matching Roblox's LocalizationTable
// Contents JSON shape closely enough to round-trip through a build/syncback
// cycle.
type Row struct {
	Key     string            `json:"key,omitempty"`
	Source  string            `json:"source"`
	Context string            `json:"context,omitempty"`
	Example string            `json:"example,omitempty"`
	Values  map[string]string `json:"values,omitempty"`
}

var requiredColumns = []string{"Key", "Source"}

// New constructs the CSV-localization middleware. logger is optional; when
// non-nil it receives a debug-level note for rows silently dropped for
// missing Key/Source (spec open-question decision: malformed localization
// rows are dropped with a debug log rather than failing the whole file).
func New(logger *logging.Logger) *middleware.Middleware {
	return &middleware.Middleware{
		ID:           ID,
		IncludeGlobs: []string{"**/*.csv"},
		FilesOnly:    true,
		Snapshot: func(ctx middleware.SnapshotContext, filePath string) (*dom.Snapshot, error) {
			return snapshot(ctx, filePath, logger)
		},
		Priority: func(className string, hasDescendants bool) (int, bool) {
			if hasDescendants || className != "LocalizationTable" {
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

func snapshot(ctx middleware.SnapshotContext, filePath string, logger *logging.Logger) (*dom.Snapshot, error) {
	if !strings.HasSuffix(strings.ToLower(filePath), ".csv") {
		return nil, nil
	}
	content, err := ctx.FS.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", rojoerrors.ErrIO, filePath, err)
	}

	reader := csv.NewReader(bytes.NewReader(content))
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", rojoerrors.ErrDecode, filePath, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: %s: empty CSV file", rojoerrors.ErrDecode, filePath)
	}

	header := records[0]
	columnIndex := make(map[string]int, len(header))
	for i, name := range header {
		columnIndex[name] = i
	}
	for _, required := range requiredColumns {
		if _, ok := columnIndex[required]; !ok {
			if logger != nil {
				logger.Debugf("csv %s: missing required column %q, dropping file", filePath, required)
			}
			return nil, fmt.Errorf("%w: %s: missing required column %q", rojoerrors.ErrDecode, filePath, required)
		}
	}

	var rows []Row
	for _, record := range records[1:] {
		row := Row{Values: make(map[string]string)}
		for column, index := range columnIndex {
			if index >= len(record) {
				continue
			}
			value := record[index]
			switch column {
			case "Key":
				row.Key = value
			case "Source":
				row.Source = value
			case "Context":
				row.Context = value
			case "Example":
				row.Example = value
			default:
				if value != "" {
					row.Values[column] = value
				}
			}
		}
		if row.Key == "" && row.Source == "" {
			if logger != nil {
				logger.Debugf("csv %s: dropping row with empty Key and Source", filePath)
			}
			continue
		}
		rows = append(rows, row)
	}

	contents, err := json.Marshal(rows)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", rojoerrors.ErrDecode, filePath, err)
	}

	name := strings.TrimSuffix(path.Base(filePath), ".csv")
	snap := dom.NewSnapshot("LocalizationTable", name)
	snap.Properties["Contents"] = dom.NewString(string(contents))
	snap.Metadata.MiddlewareID = ID
	snap.Metadata.RelevantPaths = []string{filePath}
	return snap, nil
}

func syncback(ctx middleware.SyncbackContext, snap *dom.Snapshot) (middleware.SyncbackResult, error) {
	contentsValue, exists := snap.Properties["Contents"]
	if !exists {
		return middleware.SyncbackResult{}, fmt.Errorf("%w: LocalizationTable %q has no Contents property", rojoerrors.ErrTypeMismatch, snap.Name)
	}

	var rows []Row
	if err := json.Unmarshal([]byte(contentsValue.String), &rows); err != nil {
		return middleware.SyncbackResult{}, fmt.Errorf("%w: %v", rojoerrors.ErrDecode, err)
	}

	extraColumnSet := make(map[string]bool)
	for _, row := range rows {
		for column := range row.Values {
			extraColumnSet[column] = true
		}
	}
	extraColumns := make([]string, 0, len(extraColumnSet))
	for column := range extraColumnSet {
		extraColumns = append(extraColumns, column)
	}
	sort.Strings(extraColumns)

	var buffer bytes.Buffer
	writer := csv.NewWriter(&buffer)
	header := append([]string{"Key", "Source", "Context", "Example"}, extraColumns...)
	if err := writer.Write(header); err != nil {
		return middleware.SyncbackResult{}, err
	}
	for _, row := range rows {
		record := []string{row.Key, row.Source, row.Context, row.Example}
		for _, column := range extraColumns {
			record = append(record, row.Values[column])
		}
		if err := writer.Write(record); err != nil {
			return middleware.SyncbackResult{}, err
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return middleware.SyncbackResult{}, err
	}

	filePath := path.Join(ctx.Path, snap.Name+".csv")
	ctx.Builder.SetFile(filePath, buffer.Bytes())
	snap.Metadata.MiddlewareID = ID
	return middleware.SyncbackResult{Snapshot: snap}, nil
}
