// Package fssnapshot implements FsSnapshot: a staged, reversible,
// mergeable description of filesystem mutations, per spec §4.3. It keeps
// insertion order on both its file and directory collections, because
// spec §4.9's determinism requirement depends on stable iteration order
// when a Snapshot is flattened into a sequence of writes.
package fssnapshot

import "github.com/rojosync/rojo/pkg/vfs"

// FileEntry is one staged file mutation. HasContent distinguishes a real
// write from a "file should exist" relevancy placeholder (spec §4.3's
// "missing-content file entries ... never written").
type FileEntry struct {
	Path       string
	Content    []byte
	HasContent bool
}

// Snapshot is an ordered mapping from path to FileEntry, plus an ordered
// set of directory paths to ensure exist.
type Snapshot struct {
	fileOrder []string
	files     map[string]FileEntry
	dirOrder  []string
	dirs      map[string]struct{}
}

// New returns an empty Snapshot.
func New() Snapshot {
	return Snapshot{
		files: make(map[string]FileEntry),
		dirs:  make(map[string]struct{}),
	}
}

// SetFile stages a write of content to path, overwriting any prior staged
// entry for the same path in place (preserving its original position in
// iteration order).
func (s *Snapshot) SetFile(path string, content []byte) {
	s.ensureMaps()
	if _, exists := s.files[path]; !exists {
		s.fileOrder = append(s.fileOrder, path)
	}
	s.files[path] = FileEntry{Path: path, Content: content, HasContent: true}
}

// MarkFileRelevant stages a content-less placeholder entry for path, used
// purely for relevancy tracking (spec §4.3); it's never written to disk.
func (s *Snapshot) MarkFileRelevant(path string) {
	s.ensureMaps()
	if _, exists := s.files[path]; !exists {
		s.fileOrder = append(s.fileOrder, path)
		s.files[path] = FileEntry{Path: path}
	}
}

// EnsureDir stages a directory to be created (and, by extension, to be
// considered present in this Snapshot's footprint).
func (s *Snapshot) EnsureDir(path string) {
	s.ensureMaps()
	if _, exists := s.dirs[path]; !exists {
		s.dirOrder = append(s.dirOrder, path)
		s.dirs[path] = struct{}{}
	}
}

// Files returns the staged file entries in insertion order.
func (s Snapshot) Files() []FileEntry {
	result := make([]FileEntry, 0, len(s.fileOrder))
	for _, path := range s.fileOrder {
		result = append(result, s.files[path])
	}
	return result
}

// Dirs returns the staged directory paths in insertion order.
func (s Snapshot) Dirs() []string {
	result := make([]string, len(s.dirOrder))
	copy(result, s.dirOrder)
	return result
}

// HasFile reports whether path has a staged entry (content or placeholder).
func (s Snapshot) HasFile(path string) bool {
	_, ok := s.files[path]
	return ok
}

// HasDir reports whether path has been staged as a directory.
func (s Snapshot) HasDir(path string) bool {
	_, ok := s.dirs[path]
	return ok
}

// Clone returns a deep copy of the Snapshot.
func (s Snapshot) Clone() Snapshot {
	clone := New()
	for _, path := range s.fileOrder {
		entry := s.files[path]
		content := append([]byte(nil), entry.Content...)
		clone.fileOrder = append(clone.fileOrder, path)
		clone.files[path] = FileEntry{Path: path, Content: content, HasContent: entry.HasContent}
	}
	for _, path := range s.dirOrder {
		clone.dirOrder = append(clone.dirOrder, path)
		clone.dirs[path] = struct{}{}
	}
	return clone
}

// Merge appends other's entries onto s, in other's order, skipping any path
// already present in s. It's used to accumulate per-node FsSnapshot
// fragments from the syncback work queue into one final Snapshot (spec
// §4.9 step 8).
func (s *Snapshot) Merge(other Snapshot) {
	s.ensureMaps()
	for _, path := range other.fileOrder {
		if _, exists := s.files[path]; exists {
			continue
		}
		s.fileOrder = append(s.fileOrder, path)
		s.files[path] = other.files[path]
	}
	for _, path := range other.dirOrder {
		if _, exists := s.dirs[path]; exists {
			continue
		}
		s.dirOrder = append(s.dirOrder, path)
		s.dirs[path] = struct{}{}
	}
}

func (s *Snapshot) ensureMaps() {
	if s.files == nil {
		s.files = make(map[string]FileEntry)
	}
	if s.dirs == nil {
		s.dirs = make(map[string]struct{})
	}
}

// Reconcile applies old→new transition to fs per spec §4.3's fixed
// four-step sequence: remove stale files, remove stale directories, ensure
// new directories, write new files. old may be the zero Snapshot, which is
// equivalent to reconciling against an empty prior state.
func Reconcile(fs vfs.FS, old, new Snapshot) error {
	for _, path := range old.fileOrder {
		if new.HasFile(path) {
			continue
		}
		if err := fs.RemoveFile(path); err != nil && !vfs.IsNotExist(err) {
			return err
		}
	}

	for _, path := range old.dirOrder {
		if new.HasDir(path) {
			continue
		}
		if err := fs.RemoveAll(path); err != nil && !vfs.IsNotExist(err) {
			return err
		}
	}

	for _, path := range new.dirOrder {
		if err := fs.MkdirAll(path); err != nil {
			return err
		}
	}

	for _, path := range new.fileOrder {
		entry := new.files[path]
		if !entry.HasContent {
			continue
		}
		if err := fs.WriteFile(path, entry.Content); err != nil {
			return err
		}
	}

	return nil
}
