package watch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/platinummonkey/hub/pkg/assembly"
	"github.com/platinummonkey/hub/pkg/observability"
	"github.com/platinummonkey/hub/pkg/plugins"
)

// Builder rebuilds the container from scratch. *assembly.Assembler implements it.
type Builder interface {
	Reset()
	Build(ctx context.Context) (*assembly.Result, error)
}

// BuildFunc receives the outcome of every rebuild
type BuildFunc func(res *assembly.Result, err error)

// Config holds watcher configuration options
type Config struct {
	// Project root followed by the absolute plugin search paths
	Paths    []string
	Debounce time.Duration
}

// DefaultConfig watches paths with a short debounce
func DefaultConfig(paths []string) Config {
	return Config{
		Paths:    paths,
		Debounce: 500 * time.Millisecond,
	}
}

// Watcher rebuilds the container whenever a plugin descriptor changes or a
// plugin directory appears or disappears
type Watcher struct {
	fsw     *fsnotify.Watcher
	cfg     Config
	builder Builder
	log     *observability.Logger
	onBuild BuildFunc
	watched map[string]bool
}

// Option configures a Watcher
type Option func(*Watcher)

// WithLogger sets the watcher logger
func WithLogger(logger *observability.Logger) Option {
	return func(w *Watcher) { w.log = logger }
}

// OnBuild registers fn to receive rebuild results
func OnBuild(fn BuildFunc) Option {
	return func(w *Watcher) { w.onBuild = fn }
}

// New creates a watcher. Nothing is watched until Run.
func New(cfg Config, builder Builder, opts ...Option) (*Watcher, error) {
	if len(cfg.Paths) == 0 {
		return nil, fmt.Errorf("at least the project root must be watched")
	}
	if cfg.Debounce <= 0 {
		cfg.Debounce = DefaultConfig(nil).Debounce
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating fsnotify watcher: %w", err)
	}

	w := &Watcher{
		fsw:     fsw,
		cfg:     cfg,
		builder: builder,
		watched: make(map[string]bool),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.log == nil {
		w.log = observability.Discard()
	}
	return w, nil
}

// Run watches until ctx is done, then releases the watcher
func (w *Watcher) Run(ctx context.Context) error {
	defer w.fsw.Close()

	if err := w.arm(); err != nil {
		return err
	}
	w.log.Infof("Watching %d directories for plugin changes", len(w.watched))

	timer := time.NewTimer(w.cfg.Debounce)
	timer.Stop()
	pending := false

	for {
		select {
		case event, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			if !w.relevant(event) {
				continue
			}
			w.log.WithField("file", event.Name).Debugf("Plugin change: %s", event.Op)

			if pending && !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(w.cfg.Debounce)
			pending = true

		case <-timer.C:
			pending = false
			w.rebuild(ctx)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.log.WithError(err).Warn("File watcher error")

		case <-ctx.Done():
			timer.Stop()
			return nil
		}
	}
}

func (w *Watcher) rebuild(ctx context.Context) {
	defer observability.RecoverPanic(w.log, "watch rebuild")

	w.builder.Reset()
	res, err := w.builder.Build(ctx)
	if err != nil {
		w.log.WithError(err).Warn("Rebuild after plugin change failed, keeping the previous container")
	} else {
		w.log.WithField("run_id", res.RunID).Info("Container rebuilt after plugin change")
	}

	if w.onBuild != nil {
		w.onBuild(res, err)
	}
	if err := w.arm(); err != nil {
		w.log.WithError(err).Warn("Failed to refresh watched directories")
	}
}

// arm watches every current candidate directory that is not watched yet
func (w *Watcher) arm() error {
	current := make(map[string]bool)
	for _, dir := range w.candidates() {
		current[dir] = true
		if w.watched[dir] {
			continue
		}
		if err := w.fsw.Add(dir); err != nil {
			if dir == w.cfg.Paths[0] {
				return fmt.Errorf("watching project root %s: %w", dir, err)
			}
			w.log.WithError(err).Debugf("Cannot watch %s", dir)
			continue
		}
		w.watched[dir] = true
	}

	// fsnotify drops watches of removed directories on its own
	for dir := range w.watched {
		if !current[dir] {
			_ = w.fsw.Remove(dir)
			delete(w.watched, dir)
		}
	}
	return nil
}

// candidates lists the directories a descriptor can appear in: the project
// root, each search path, its plugin directories and its scoped ones
func (w *Watcher) candidates() []string {
	dirs := []string{w.cfg.Paths[0]}
	for _, path := range w.cfg.Paths[1:] {
		if !isDir(path) {
			continue
		}
		dirs = append(dirs, path)
		for _, child := range subdirs(path) {
			dirs = append(dirs, child)
			if strings.HasPrefix(filepath.Base(child), "@") {
				dirs = append(dirs, subdirs(child)...)
			}
		}
	}
	return dirs
}

// relevant reports whether an event can change the discovered registry
func (w *Watcher) relevant(event fsnotify.Event) bool {
	base := filepath.Base(event.Name)
	if strings.HasPrefix(base, ".") {
		return false
	}
	if slices.Contains(plugins.DescriptorFiles, base) {
		return true
	}

	switch {
	case event.Op&fsnotify.Create != 0:
		if !isDir(event.Name) {
			return false
		}
		// a new directory in the root matters only when it is a search path
		if filepath.Dir(event.Name) == w.cfg.Paths[0] {
			return slices.Contains(w.cfg.Paths[1:], event.Name)
		}
		return true
	case event.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
		return w.watched[event.Name]
	}
	return false
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

func subdirs(dir string) []string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	var out []string
	for _, entry := range entries {
		if entry.IsDir() && !strings.HasPrefix(entry.Name(), ".") {
			out = append(out, filepath.Join(dir, entry.Name()))
		}
	}
	return out
}
