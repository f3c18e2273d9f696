// Package workspace resolves which journal is the main file for a validator
// run and watches journal files for changes made outside the editor.
package workspace

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// journalExtensions are the file suffixes treated as beancount journals.
var journalExtensions = []string{".beancount", ".bean"}

type Workspace struct {
	root   string
	config Config
	logger *zap.Logger
}

func New(root string, logger *zap.Logger) *Workspace {
	if logger == nil {
		logger = zap.NewNop()
	}
	w := &Workspace{root: root, logger: logger}
	if root != "" {
		if cfg, ok := LoadConfig(root); ok {
			w.config = cfg
			logger.Info("loaded project config", zap.String("root", root))
		}
	}
	return w
}

func (w *Workspace) Root() string { return w.root }

func (w *Workspace) Config() Config { return w.config }

// MainFile picks the journal the validator should load: the explicit
// override first, then the project config's main entry (resolved against the
// workspace root), then the document itself.
func (w *Workspace) MainFile(override, document string) string {
	if override != "" {
		return w.resolve(override)
	}
	if w.config.Main != "" {
		return w.resolve(w.config.Main)
	}
	return document
}

func (w *Workspace) resolve(path string) string {
	if filepath.IsAbs(path) || w.root == "" {
		return filepath.Clean(path)
	}
	return filepath.Join(w.root, path)
}

func isJournal(path string) bool {
	for _, ext := range journalExtensions {
		if strings.HasSuffix(path, ext) {
			return true
		}
	}
	return false
}

// Watch observes the main file's directory tree and invokes onChange with
// the changed path after a short debounce. Editors save in multiple steps
// (and often atomically via rename), so raw events are both noisy and
// misleading. Watch blocks until ctx is cancelled; run it on its own
// goroutine.
func (w *Workspace) Watch(ctx context.Context, mainFile string, onChange func(path string)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer func() { _ = watcher.Close() }()

	dir := filepath.Dir(mainFile)
	if err := watcher.Add(dir); err != nil {
		return err
	}
	// Watch immediate subdirectories too; split ledgers commonly keep
	// includes one level down.
	if entries, err := os.ReadDir(dir); err == nil {
		for _, entry := range entries {
			if entry.IsDir() && !strings.HasPrefix(entry.Name(), ".") {
				if err := watcher.Add(filepath.Join(dir, entry.Name())); err != nil {
					w.logger.Warn("watch failed", zap.String("dir", entry.Name()), zap.Error(err))
				}
			}
		}
	}

	const debounceDelay = 100 * time.Millisecond
	var debounce *time.Timer
	defer func() {
		if debounce != nil {
			debounce.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if !isJournal(event.Name) {
				continue
			}

			changed := event.Name
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(debounceDelay, func() {
				onChange(changed)
			})

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watcher error", zap.Error(err))
		}
	}
}
