package ingest

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"

	"github.com/clearstone/finportal/internal/pipeline"
)

// spoolPattern matches ticket files anywhere under the spool directory.
const spoolPattern = "**/*.docid"

// Handler processes a batch of spooled documents. A nil error consumes the
// batch: its ticket files are removed from the spool.
type Handler func(ctx context.Context, docs []pipeline.Document) error

// Watcher tails a spool directory for document tickets. A ticket is a
// *.docid file whose name (minus extension) is the object ID; an optional
// first line holds the client ID.
type Watcher struct {
	dir      string
	debounce time.Duration
	handler  Handler
	logger   *slog.Logger
}

// NewWatcher creates a spool watcher.
func NewWatcher(dir string, debounce time.Duration, handler Handler, logger *slog.Logger) *Watcher {
	if logger == nil {
		logger = slog.Default()
	}
	if debounce <= 0 {
		debounce = 2 * time.Second
	}
	return &Watcher{dir: dir, debounce: debounce, handler: handler, logger: logger}
}

// Run scans the spool once for tickets already present, then watches for new
// ones until the context is cancelled. Bursts of filesystem events are
// coalesced into one batch per debounce window.
func (w *Watcher) Run(ctx context.Context) error {
	if err := w.drainExisting(ctx); err != nil {
		return err
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fw.Close()
	if err := w.addDirs(fw); err != nil {
		return err
	}

	pending := make(map[string]struct{})
	var timer *time.Timer
	var fire <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
				// new subdirectory: watch it too
				_ = fw.Add(event.Name)
				continue
			}
			if !matchesSpool(w.dir, event.Name) {
				continue
			}
			pending[event.Name] = struct{}{}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			fire = timer.C
		case <-fire:
			fire = nil
			paths := make([]string, 0, len(pending))
			for p := range pending {
				paths = append(paths, p)
			}
			pending = make(map[string]struct{})
			w.dispatch(ctx, paths)
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("ingest.watch.error", "error", err)
		}
	}
}

// drainExisting picks up tickets that arrived before the watcher started.
func (w *Watcher) drainExisting(ctx context.Context) error {
	matches, err := doublestar.Glob(os.DirFS(w.dir), spoolPattern)
	if err != nil {
		return err
	}
	if len(matches) == 0 {
		return nil
	}
	paths := make([]string, len(matches))
	for i, m := range matches {
		paths[i] = filepath.Join(w.dir, m)
	}
	w.logger.Info("ingest.scan.found", "count", len(paths))
	w.dispatch(ctx, paths)
	return nil
}

func (w *Watcher) dispatch(ctx context.Context, paths []string) {
	var docs []pipeline.Document
	var consumed []string
	for _, p := range paths {
		doc, err := readTicket(p)
		if err != nil {
			w.logger.Warn("ingest.ticket.unreadable", "path", p, "error", err)
			continue
		}
		docs = append(docs, doc)
		consumed = append(consumed, p)
	}
	if len(docs) == 0 {
		return
	}
	if err := w.handler(ctx, docs); err != nil {
		w.logger.Error("ingest.batch.failed", "count", len(docs), "error", err)
		return
	}
	for _, p := range consumed {
		if err := os.Remove(p); err != nil {
			w.logger.Warn("ingest.ticket.remove_failed", "path", p, "error", err)
		}
	}
	w.logger.Info("ingest.batch.done", "count", len(docs))
}

func (w *Watcher) addDirs(fw *fsnotify.Watcher) error {
	return filepath.WalkDir(w.dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return fw.Add(path)
		}
		return nil
	})
}

func matchesSpool(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	ok, err := doublestar.Match(spoolPattern, filepath.ToSlash(rel))
	return err == nil && ok
}

// readTicket parses one spool file. The filename stem is the object ID; a
// non-empty first line of the file is the client ID.
func readTicket(path string) (pipeline.Document, error) {
	objectID := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	data, err := os.ReadFile(path)
	if err != nil {
		return pipeline.Document{}, err
	}
	clientID := ""
	if lines := strings.SplitN(string(data), "\n", 2); len(lines) > 0 {
		clientID = strings.TrimSpace(lines[0])
	}
	return pipeline.Document{ObjectID: objectID, ClientID: clientID}, nil
}
