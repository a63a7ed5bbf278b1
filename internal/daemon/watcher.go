package daemon

import (
	"context"
	"crypto/sha256"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/kazz187/taskdeps/internal/deps"
	"github.com/kazz187/taskdeps/pkg/clog"
)

// watchDebounceInterval is the delay after an fsnotify event before
// re-reading the tasks file, letting rapid write bursts settle.
const watchDebounceInterval = 500 * time.Millisecond

// Watcher revalidates the tasks file whenever it changes on disk and
// logs any fresh issues. Editors and sync tools often do atomic
// replace (write temp file, rename), which changes the inode, so the
// parent directory is watched rather than the file itself.
type Watcher struct {
	path     string
	service  *deps.Service
	lastHash [sha256.Size]byte
}

// NewWatcher creates a watcher for the given tasks file.
func NewWatcher(path string, service *deps.Service) *Watcher {
	return &Watcher{
		path:    path,
		service: service,
	}
}

// Run blocks until the context is cancelled.
func (w *Watcher) Run(ctx context.Context) {
	if hash, err := hashFile(w.path); err == nil {
		w.lastHash = hash
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		slog.Error("failed to create fsnotify watcher", clog.Err(err))
		return
	}
	defer watcher.Close()

	watchDir := filepath.Dir(w.path)
	fileName := filepath.Base(w.path)

	if err := watcher.Add(watchDir); err != nil {
		slog.Error("failed to watch directory", slog.String("dir", watchDir), clog.Err(err))
		return
	}
	slog.Info("watching tasks file", slog.String("dir", watchDir), slog.String("file", fileName))

	// The debounce fires back into this select loop, so revalidate and
	// the hash state stay on a single goroutine.
	var (
		debounce  *time.Timer
		debounceC <-chan time.Time
	)

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != fileName {
				continue
			}
			// Create catches atomic renames landing on our name.
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
				continue
			}

			if debounce == nil {
				debounce = time.NewTimer(watchDebounceInterval)
				debounceC = debounce.C
			} else {
				if !debounce.Stop() {
					select {
					case <-debounce.C:
					default:
					}
				}
				debounce.Reset(watchDebounceInterval)
			}

		case <-debounceC:
			debounce = nil
			debounceC = nil
			w.revalidate()

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			slog.Warn("fsnotify error", clog.Err(err))

		case <-ctx.Done():
			return
		}
	}
}

// revalidate re-reads the tasks file and logs validation findings. The
// checksum gate skips events that did not actually change the content,
// including our own saves being echoed back by the filesystem. Only the
// Run loop calls it, so lastHash needs no locking.
func (w *Watcher) revalidate() {
	hash, err := hashFile(w.path)
	if err != nil {
		slog.Warn("failed to hash tasks file", clog.Err(err))
		return
	}
	if hash == w.lastHash {
		return
	}
	w.lastHash = hash

	issues, err := w.service.Validate()
	if err != nil {
		slog.Warn("revalidation failed", clog.Err(err))
		return
	}
	if len(issues) == 0 {
		slog.Info("tasks file changed, graph is healthy")
		return
	}
	slog.Warn("tasks file changed, graph has issues", slog.Int("count", len(issues)))
	for _, issue := range issues {
		slog.Warn(issue.Reason,
			slog.String("kind", string(issue.Kind)),
			slog.String("subject", issue.SubjectID))
	}
}

// hashFile computes the SHA256 hash of the file at the given path.
func hashFile(path string) ([sha256.Size]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return [sha256.Size]byte{}, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return [sha256.Size]byte{}, fmt.Errorf("hash %s: %w", path, err)
	}

	var result [sha256.Size]byte
	copy(result[:], h.Sum(nil))
	return result, nil
}
