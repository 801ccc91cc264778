package assembly

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/platinummonkey/hub/pkg/config"
	"github.com/platinummonkey/hub/pkg/container"
	"github.com/platinummonkey/hub/pkg/observability"
	"github.com/platinummonkey/hub/pkg/plugins"
	"github.com/platinummonkey/hub/pkg/storage"
)

// Namespaces of the runtime's own sources
const (
	NamespaceDI   = "Hub_Di_"
	NamespaceCore = "Hub_Core_"
)

// Registry sources reported in Result.Source
const (
	SourceMemory    = "memory"
	SourceSnapshot  = "snapshot"
	SourceDiscovery = "discovery"
)

// Fingerprinter is implemented by discoverers that can tell cheaply whether a
// stored snapshot is still valid
type Fingerprinter interface {
	Fingerprint(ctx context.Context, projectRoot string) (string, error)
}

// Result is one assembled container together with what it was built from
type Result struct {
	RunID     string
	Container *container.Container
	Registry  *plugins.Registry
	Levels    [][]*plugins.Descriptor
	Replaces  *ReplaceChunk
	Proxies   *ProxyChunk
	Source    string
	Duration  time.Duration
}

// Assembler builds containers for one project. The registry found by the
// first build is kept and reused by later builds until Reset.
type Assembler struct {
	cfg         *config.Config
	discoverer  plugins.Discoverer
	log         *observability.Logger
	metrics     *observability.Metrics
	otelMetrics *observability.OTelMetrics
	store       storage.SnapshotStore

	mu       sync.Mutex
	registry *plugins.Registry
}

// Option configures an Assembler
type Option func(*Assembler)

// WithDiscoverer replaces the default plugin loader
func WithDiscoverer(d plugins.Discoverer) Option {
	return func(a *Assembler) { a.discoverer = d }
}

// WithLogger sets the assembly logger
func WithLogger(log *observability.Logger) Option {
	return func(a *Assembler) { a.log = log }
}

// WithMetrics enables Prometheus metrics
func WithMetrics(metrics *observability.Metrics) Option {
	return func(a *Assembler) { a.metrics = metrics }
}

// WithOTelMetrics enables OpenTelemetry metrics
func WithOTelMetrics(metrics *observability.OTelMetrics) Option {
	return func(a *Assembler) { a.otelMetrics = metrics }
}

// WithSnapshotStore enables registry snapshots across processes
func WithSnapshotStore(store storage.SnapshotStore) Option {
	return func(a *Assembler) { a.store = store }
}

// NewAssembler creates an assembler for cfg.ProjectRoot
func NewAssembler(cfg *config.Config, opts ...Option) *Assembler {
	a := &Assembler{cfg: cfg}
	for _, opt := range opts {
		opt(a)
	}

	if a.log == nil {
		a.log = observability.Discard()
	}
	if a.discoverer == nil {
		loader := plugins.NewLoader(cfg.Assembly.SearchDirs, nil)
		if cfg.Assembly.Concurrency > 0 {
			loader.SetConcurrency(cfg.Assembly.Concurrency)
		}
		a.discoverer = loader
	}
	return a
}

// Reset drops the cached registry so the next build discovers again
func (a *Assembler) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.registry = nil
}

// Build assembles a new container. A dependency cycle, a namespace conflict
// or a discovery failure returns no result.
func (a *Assembler) Build(ctx context.Context) (res *Result, err error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	start := time.Now()
	runID := uuid.NewString()
	ctx, span := observability.StartSpan(ctx, "assembly.build",
		attribute.String("project.root", a.cfg.ProjectRoot),
		attribute.String("run.id", runID),
	)
	log := observability.WithTraceContext(ctx, a.log.WithField("run_id", runID))
	ctx = observability.WithRunID(ctx, runID)
	ctx = observability.WithLogger(ctx, log)
	res = &Result{RunID: runID}
	defer func() {
		observability.EndSpan(span, err)
		a.metrics.ObserveBuild(start, err)
		count := 0
		if res != nil && res.Registry != nil {
			count = res.Registry.Count()
		}
		a.otelMetrics.RecordAssembly(ctx, res.sourceOrNone(), count, time.Since(start), err)
		if err != nil {
			log.WithError(err).Error("Container assembly failed")
		}
	}()

	c := container.New(
		container.WithLogger(log),
		container.WithMetrics(a.metrics),
		container.WithCacheSize(a.cfg.Assembly.CacheSize),
	)
	res.Container = c

	err = a.step(ctx, "runtime_namespaces", func(context.Context) error {
		asm := a.cfg.Assembly
		if err := c.Resolver().AddNamespaceRoot(NamespaceDI, a.cfg.Path(asm.DIRoot), asm.DIExt); err != nil {
			return err
		}
		return c.Resolver().AddNamespaceRoot(NamespaceCore, a.cfg.Path(asm.CoreRoot), asm.CoreExt)
	})
	if err != nil {
		return nil, err
	}

	if a.cfg.Assembly.LegacyParser {
		c.Parser().AddChunk(LegacyParser())
	}
	if a.cfg.Assembly.LoggerChunk {
		c.PostProcessor().AddChunk(LoggerChunk{})
	}

	err = a.step(ctx, "registry", func(ctx context.Context) error {
		reg, source, err := a.loadRegistry(ctx, log)
		if err != nil {
			return err
		}
		res.Registry, res.Source = reg, source
		return nil
	})
	if err != nil {
		return nil, err
	}
	if a.metrics != nil {
		a.metrics.RegistrySourceTotal.WithLabelValues(res.Source).Inc()
		a.metrics.PluginsDiscovered.Set(float64(res.Registry.Count()))
	}

	err = a.step(ctx, "levels", func(context.Context) error {
		levels, err := res.Registry.Levels()
		if err != nil {
			return err
		}
		res.Levels = levels
		return nil
	})
	if err != nil {
		return nil, err
	}

	err = a.step(ctx, "namespaces", func(context.Context) error {
		return InitNamespaces(c.Resolver(), res.Registry.Items(), log)
	})
	if err != nil {
		return nil, err
	}
	if a.metrics != nil {
		a.metrics.NamespacesRegistered.Set(float64(len(c.Resolver().Namespaces())))
	}

	var ordered []*plugins.Descriptor
	for _, level := range res.Levels {
		ordered = append(ordered, level...)
	}
	err = a.step(ctx, "rules", func(context.Context) error {
		res.Replaces = InitPreReplaces(c, ordered, log, a.metrics)
		res.Proxies = InitPostProxy(c, ordered, log, a.metrics)
		return nil
	})
	if err != nil {
		return nil, err
	}

	res.Duration = time.Since(start)
	log.WithFields(map[string]interface{}{
		"plugins":  res.Registry.Count(),
		"levels":   len(res.Levels),
		"replaces": res.Replaces.Len(),
		"proxies":  res.Proxies.Len(),
		"source":   res.Source,
	}).Infof("Container assembled in %s", res.Duration)
	return res, nil
}

// loadRegistry returns a private copy of the project registry, taken from
// memory, a snapshot or a fresh discovery in that order of preference
func (a *Assembler) loadRegistry(ctx context.Context, log *observability.Logger) (*plugins.Registry, string, error) {
	if a.registry != nil {
		return a.copyRegistry(), SourceMemory, nil
	}

	root := a.cfg.ProjectRoot
	fingerprint := a.fingerprint(ctx, log)
	if fingerprint != "" {
		snap, err := a.store.Load(ctx, root, fingerprint)
		switch {
		case err == nil:
			a.registry = snap.Registry()
			log.Debugf("Reusing registry snapshot from %s", snap.CreatedAt.Format(time.RFC3339))
			return a.copyRegistry(), SourceSnapshot, nil
		case !errors.Is(err, storage.ErrSnapshotNotFound):
			log.WithError(err).Warn("Failed to load registry snapshot")
		}
	}

	reg, err := a.discoverer.Discover(ctx, root)
	if err != nil {
		return nil, "", fmt.Errorf("plugin discovery failed: %w", err)
	}
	a.registry = reg

	if fingerprint != "" {
		if err := a.store.Save(ctx, storage.NewSnapshot(root, fingerprint, reg)); err != nil {
			log.WithError(err).Warn("Failed to save registry snapshot")
		}
	}
	return a.copyRegistry(), SourceDiscovery, nil
}

// fingerprint is empty when snapshots cannot be used
func (a *Assembler) fingerprint(ctx context.Context, log *observability.Logger) string {
	if a.store == nil {
		return ""
	}
	f, ok := a.discoverer.(Fingerprinter)
	if !ok {
		return ""
	}

	fp, err := f.Fingerprint(ctx, a.cfg.ProjectRoot)
	if err != nil {
		log.WithError(err).Warn("Failed to fingerprint plugin descriptors")
		return ""
	}
	return fp
}

func (a *Assembler) copyRegistry() *plugins.Registry {
	reg := plugins.NewRegistry()
	a.registry.CopyInto(reg)
	return reg
}

func (a *Assembler) step(ctx context.Context, name string, fn func(ctx context.Context) error) error {
	start := time.Now()
	ctx, span := observability.StartSpan(ctx, "assembly."+name)
	err := fn(ctx)
	observability.EndSpan(span, err)
	a.metrics.ObserveStep(name, start)
	return err
}

func (r *Result) sourceOrNone() string {
	if r == nil || r.Source == "" {
		return "none"
	}
	return r.Source
}
