package plugins

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// DefaultSearchDirs are the project subdirectories scanned for plugins
var DefaultSearchDirs = []string{"plugins", "node_modules"}

// Report collects the non-fatal findings of one discovery run
type Report struct {
	Candidates  int                          `json:"candidates"`
	FieldErrors []*FieldError                `json:"field_errors,omitempty"`
	Rejected    map[string][]ValidationError `json:"rejected,omitempty"` // keyed by descriptor file
}

// Loader discovers plugin descriptors below a project root
type Loader struct {
	searchDirs  []string
	concurrency int
	log         *logrus.Logger
}

// NewLoader creates a new plugin loader. Empty dirs falls back to DefaultSearchDirs.
func NewLoader(dirs []string, log *logrus.Logger) *Loader {
	if log == nil {
		log = logrus.New()
	}
	if len(dirs) == 0 {
		dirs = DefaultSearchDirs
	}

	return &Loader{
		searchDirs:  dirs,
		concurrency: runtime.GOMAXPROCS(0),
		log:         log,
	}
}

// SetConcurrency bounds the number of descriptors parsed in parallel
func (l *Loader) SetConcurrency(n int) {
	if n < 1 {
		n = 1
	}
	l.concurrency = n
}

// Discover implements Discoverer
func (l *Loader) Discover(ctx context.Context, projectRoot string) (*Registry, error) {
	reg, _, err := l.DiscoverWithReport(ctx, projectRoot)
	return reg, err
}

type parsed struct {
	desc   *Descriptor
	issues []*FieldError
	err    error
}

// DiscoverWithReport scans the project and returns the registry together with
// the skipped entries and rejected descriptors. Descriptor files are read in
// parallel; registration happens afterwards in discovery order.
func (l *Loader) DiscoverWithReport(ctx context.Context, projectRoot string) (*Registry, *Report, error) {
	root, err := filepath.Abs(projectRoot)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to resolve project root: %w", err)
	}

	files, err := l.descriptorFiles(root)
	if err != nil {
		return nil, nil, err
	}

	results := make([]parsed, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(l.concurrency)
	for i, file := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			desc, issues, err := LoadDescriptor(file)
			results[i] = parsed{desc: desc, issues: issues, err: err}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, fmt.Errorf("plugin discovery cancelled: %w", err)
	}

	reg := NewRegistry()
	report := &Report{
		Candidates: len(files),
		Rejected:   make(map[string][]ValidationError),
	}

	for i, res := range results {
		file := files[i]
		if res.err != nil {
			l.log.Warnf("Failed to load plugin descriptor %s: %v", file, res.err)
			report.Rejected[file] = []ValidationError{{Field: "descriptor", Message: res.err.Error(), Severity: "error"}}
			continue
		}

		validation := ValidateDescriptor(res.desc)
		if HasErrors(validation) {
			l.log.Warnf("Skipping plugin at %s: %v", file, validation)
			report.Rejected[file] = validation
			continue
		}
		for _, v := range validation {
			l.log.Warnf("Plugin %s: %s", res.desc.Name, v)
		}

		for _, issue := range res.issues {
			l.log.WithField("plugin", res.desc.Name).Warnf("Skipping descriptor entry: %v", issue)
		}
		report.FieldErrors = append(report.FieldErrors, res.issues...)

		if err := reg.Add(res.desc); err != nil {
			return nil, nil, err
		}
		l.log.Debugf("Discovered plugin: %s (%s)", res.desc.Name, res.desc.Path)
	}

	l.log.Infof("Discovered %d plugins in %s", reg.Count(), root)
	return reg, report, nil
}

// Fingerprint hashes the location, size and modification time of every
// descriptor file. It changes whenever discovery could produce a different
// registry, without parsing anything.
func (l *Loader) Fingerprint(ctx context.Context, projectRoot string) (string, error) {
	root, err := filepath.Abs(projectRoot)
	if err != nil {
		return "", fmt.Errorf("failed to resolve project root: %w", err)
	}

	files, err := l.descriptorFiles(root)
	if err != nil {
		return "", err
	}

	h := sha256.New()
	for _, file := range files {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		info, err := os.Stat(file)
		if err != nil {
			return "", fmt.Errorf("failed to stat descriptor: %w", err)
		}
		fmt.Fprintf(h, "%s|%d|%d\n", file, info.Size(), info.ModTime().UnixNano())
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// SearchPaths returns the absolute directories scanned below projectRoot
func (l *Loader) SearchPaths(projectRoot string) []string {
	paths := make([]string, 0, len(l.searchDirs)+1)
	paths = append(paths, projectRoot)
	for _, dir := range l.searchDirs {
		if filepath.IsAbs(dir) {
			paths = append(paths, dir)
		} else {
			paths = append(paths, filepath.Join(projectRoot, dir))
		}
	}
	return paths
}

// descriptorFiles lists candidate descriptor files in discovery order: the
// project root itself first, then each search dir sorted by name. Scoped
// directories ("@vendor/name") are searched one level deeper.
func (l *Loader) descriptorFiles(root string) ([]string, error) {
	if _, err := os.Stat(root); err != nil {
		return nil, fmt.Errorf("project root is not accessible: %w", err)
	}

	var files []string
	if file, ok := FindDescriptor(root); ok {
		files = append(files, file)
	}

	for _, dir := range l.SearchPaths(root)[1:] {
		found, err := l.scanDir(dir, true)
		if err != nil {
			l.log.Warnf("Failed to read plugin directory %s: %v", dir, err)
			continue
		}
		files = append(files, found...)
	}

	return files, nil
}

func (l *Loader) scanDir(dir string, descendScopes bool) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		l.log.Debugf("Plugin directory does not exist: %s", dir)
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var files []string
	for _, entry := range entries {
		if !entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}

		pluginDir := filepath.Join(dir, entry.Name())
		if file, ok := FindDescriptor(pluginDir); ok {
			files = append(files, file)
			continue
		}

		if descendScopes && strings.HasPrefix(entry.Name(), "@") {
			scoped, err := l.scanDir(pluginDir, false)
			if err != nil {
				l.log.Warnf("Failed to read scope directory %s: %v", pluginDir, err)
				continue
			}
			files = append(files, scoped...)
		}
	}
	return files, nil
}
