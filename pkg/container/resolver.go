package container

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/platinummonkey/hub/pkg/observability"
)

const (
	// DefaultExt is used for namespace roots registered without an extension
	DefaultExt = "js"
	// DefaultCacheSize bounds the number of resolved module paths kept in memory
	DefaultCacheSize = 1024
)

// NamespaceRoot binds a module name prefix to a source directory
type NamespaceRoot struct {
	Namespace string `json:"namespace"`
	Root      string `json:"root"`
	Ext       string `json:"ext"`
}

// Resolver maps module names to source files through registered namespace roots
type Resolver struct {
	mu      sync.RWMutex
	roots   map[string]NamespaceRoot
	cache   *lru.Cache[string, string]
	metrics *observability.Metrics
}

// NewResolver creates a resolver with a path cache of the given size
func NewResolver(cacheSize int, metrics *observability.Metrics) *Resolver {
	if cacheSize <= 0 {
		cacheSize = DefaultCacheSize
	}
	// lru.New only fails for a non-positive size
	cache, _ := lru.New[string, string](cacheSize)

	return &Resolver{
		roots:   make(map[string]NamespaceRoot),
		cache:   cache,
		metrics: metrics,
	}
}

// AddNamespaceRoot registers a namespace. Registering the same root and
// extension again is a no-op; a different one is a *NamespaceConflictError.
func (r *Resolver) AddNamespaceRoot(namespace, root, ext string) error {
	if namespace == "" {
		return fmt.Errorf("namespace is required")
	}
	if ext == "" {
		ext = DefaultExt
	}
	requested := NamespaceRoot{
		Namespace: namespace,
		Root:      filepath.Clean(root),
		Ext:       strings.TrimPrefix(ext, "."),
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.roots[namespace]; ok {
		if existing == requested {
			return nil
		}
		return &NamespaceConflictError{Existing: existing, Requested: requested}
	}

	r.roots[namespace] = requested
	r.cache.Purge()
	return nil
}

// Namespaces returns the registered roots sorted by namespace
func (r *Resolver) Namespaces() []NamespaceRoot {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]NamespaceRoot, 0, len(r.roots))
	for _, root := range r.roots {
		out = append(out, root)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Namespace < out[j].Namespace })
	return out
}

// Lookup returns the namespace root that covers module, by longest prefix
func (r *Resolver) Lookup(module string) (NamespaceRoot, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.lookupLocked(module)
}

func (r *Resolver) lookupLocked(module string) (NamespaceRoot, bool) {
	var best NamespaceRoot
	found := false
	for ns, root := range r.roots {
		if !covers(ns, module) {
			continue
		}
		if !found || len(ns) > len(best.Namespace) {
			best = root
			found = true
		}
	}
	return best, found
}

// Resolve maps Ns_Sub_Name to <root>/Sub/Name.<ext>
func (r *Resolver) Resolve(module string) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if path, ok := r.cache.Get(module); ok {
		r.observeCache(true)
		return path, nil
	}
	r.observeCache(false)

	root, ok := r.lookupLocked(module)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrNamespaceNotFound, module)
	}

	rest := strings.TrimPrefix(strings.TrimPrefix(module, root.Namespace), "_")
	if rest == "" {
		return "", fmt.Errorf("%w: %s names a namespace, not a module", ErrNamespaceNotFound, module)
	}

	parts := strings.Split(rest, "_")
	path := filepath.Join(root.Root, filepath.Join(parts...)) + "." + root.Ext
	r.cache.Add(module, path)
	return path, nil
}

func (r *Resolver) observeCache(hit bool) {
	if r.metrics == nil {
		return
	}
	if hit {
		r.metrics.CacheHitsTotal.WithLabelValues("resolver").Inc()
	} else {
		r.metrics.CacheMissesTotal.WithLabelValues("resolver").Inc()
	}
}

// covers reports whether namespace ns is a prefix of module on a segment boundary
func covers(ns, module string) bool {
	if !strings.HasPrefix(module, ns) {
		return false
	}
	if len(module) == len(ns) || strings.HasSuffix(ns, "_") {
		return true
	}
	return module[len(ns)] == '_'
}
