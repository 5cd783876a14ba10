// Package watch provides the long-running watch/serve session collaborator
// named in spec §1 and scoped down in SPEC_FULL.md §5: a single interface,
// Session, with one trivial polling implementation good enough for the
// `rojo serve` command stub to compile and run. The message queue and
// session lifetime semantics of a real watch/serve backend are out of
// scope, matching the Non-goal on network protocols.
//
// Grounded on the teacher's pkg/filesystem/watch_poll.go poll/fileInfoEqual
// content-map-diffing idiom, trimmed from a full recursive-walk watcher with
// temporary-file filtering and change-path tracking down to the single
// "did anything under root change" signal a build-on-change loop needs.
package watch

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/rojosync/rojo/pkg/timeutil"
)

// ChangeNotification carries the moment a poll cycle observed a change
// under the watched root. It carries no path-level detail: the consumer
// (rojo serve) responds by re-running a full build, not by patching
// individual files.
type ChangeNotification struct {
	Time time.Time
}

// Session is a live watch over a filesystem root. Events delivers one
// ChangeNotification per detected change; it's closed when the session's
// context is cancelled or Stop is called.
type Session interface {
	Events() <-chan ChangeNotification
	Stop()
}

const defaultPollInterval = 500 * time.Millisecond

// pollSession is the trivial polling Session implementation.
type pollSession struct {
	events chan ChangeNotification
	cancel context.CancelFunc
}

// Watch starts a polling watch of root and returns a Session delivering a
// ChangeNotification whenever the recursive content map (path, mode, size,
// modtime) differs from the previous poll. interval is the time between
// polls; a non-positive value uses defaultPollInterval.
func Watch(ctx context.Context, root string, interval time.Duration) Session {
	if interval <= 0 {
		interval = defaultPollInterval
	}

	ctx, cancel := context.WithCancel(ctx)
	session := &pollSession{
		events: make(chan ChangeNotification, 1),
		cancel: cancel,
	}

	go session.run(ctx, root, interval)

	return session
}

func (s *pollSession) Events() <-chan ChangeNotification { return s.events }

func (s *pollSession) Stop() { s.cancel() }

func (s *pollSession) run(ctx context.Context, root string, interval time.Duration) {
	defer close(s.events)

	timer := time.NewTimer(0)
	defer timeutil.StopAndDrainTimer(timer)

	var contents map[string]os.FileInfo

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
			newContents, changed, err := poll(root, contents)
			if err != nil {
				timer.Reset(interval)
				continue
			}
			contents = newContents

			if changed {
				select {
				case s.events <- ChangeNotification{Time: time.Now()}:
				default:
				}
			}

			timer.Reset(interval)
		}
	}
}

// poll walks root, building a fresh path→FileInfo content map and comparing
// it against existing to decide whether anything changed. A missing root is
// treated as a (possibly unchanged) empty tree rather than an error, since a
// watched directory that hasn't been created yet is a normal transient
// state for rojo serve.
func poll(root string, existing map[string]os.FileInfo) (map[string]os.FileInfo, bool, error) {
	contents := make(map[string]os.FileInfo, len(existing))

	changed := false
	walkErr := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		contents[path] = info
		if previous, ok := existing[path]; !ok || !fileInfoEqual(info, previous) {
			changed = true
		}
		return nil
	})
	if walkErr != nil && !os.IsNotExist(walkErr) {
		return nil, false, walkErr
	}

	if len(contents) != len(existing) {
		changed = true
	}

	return contents, changed, nil
}

// fileInfoEqual reports whether two os.FileInfo values describe the same
// observable state. Directories are compared by mode only: size and
// modtime on a directory entry are noise a metadata-only touch shouldn't
// mask as "no change", but would also flap on every poll for reasons
// unrelated to its children's content.
func fileInfoEqual(first, second os.FileInfo) bool {
	if first.Mode() != second.Mode() {
		return false
	}
	if first.IsDir() {
		return true
	}
	return first.Size() == second.Size() && first.ModTime().Equal(second.ModTime())
}
