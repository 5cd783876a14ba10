// Package vfs defines the virtual-filesystem collaborator named in spec
// §1: read/write/list/metadata operations abstracted behind an interface
// so the snapshot/syncback core never calls os directly. The default
// implementation delegates to the adapted teacher pkg/filesystem package
// (atomic writes, directory walking, permission handling).
package vfs

import (
	"errors"
	"os"
	"path/filepath"
	"sort"

	"github.com/rojosync/rojo/pkg/filesystem"
	"github.com/rojosync/rojo/pkg/logging"
)

// EntryKind distinguishes what a directory listing entry names.
type EntryKind uint8

const (
	EntryKindFile EntryKind = iota
	EntryKindDirectory
)

// Entry is one item returned by FS.ReadDir.
type Entry struct {
	Name string
	Kind EntryKind
}

// FS is the virtual-filesystem collaborator interface. Every path it
// accepts is an absolute native path; callers (middlewares, FsSnapshot
// reconciliation) are responsible for joining relative instance paths
// against a project root before calling in.
type FS interface {
	ReadFile(path string) ([]byte, error)
	WriteFile(path string, content []byte) error
	RemoveFile(path string) error
	RemoveAll(path string) error
	MkdirAll(path string) error
	ReadDir(path string) ([]Entry, error)
	Stat(path string) (EntryKind, error, bool)
}

// IsNotExist reports whether err indicates the target path doesn't exist.
func IsNotExist(err error) bool {
	return errors.Is(err, os.ErrNotExist)
}

// osFS is the default FS backed directly by the local filesystem, via the
// adapted teacher pkg/filesystem helpers.
type osFS struct {
	logger *logging.Logger
}

// NewOSFS constructs the default local-disk FS implementation.
func NewOSFS(logger *logging.Logger) FS {
	return &osFS{logger: logger}
}

func (f *osFS) ReadFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}

func (f *osFS) WriteFile(path string, content []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return filesystem.WriteFileAtomic(path, content, 0644, f.logger)
}

func (f *osFS) RemoveFile(path string) error {
	return os.Remove(path)
}

func (f *osFS) RemoveAll(path string) error {
	return os.RemoveAll(path)
}

func (f *osFS) MkdirAll(path string) error {
	return os.MkdirAll(path, 0755)
}

func (f *osFS) ReadDir(path string) ([]Entry, error) {
	items, err := os.ReadDir(path)
	if err != nil {
		return nil, err
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Name() < items[j].Name() })
	entries := make([]Entry, 0, len(items))
	for _, item := range items {
		kind := EntryKindFile
		if item.IsDir() {
			kind = EntryKindDirectory
		}
		entries = append(entries, Entry{Name: item.Name(), Kind: kind})
	}
	return entries, nil
}

func (f *osFS) Stat(path string) (EntryKind, error, bool) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil, false
		}
		return 0, err, false
	}
	if info.IsDir() {
		return EntryKindDirectory, nil, true
	}
	return EntryKindFile, nil, true
}
