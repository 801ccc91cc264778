package container

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"strings"
	"sync"

	"github.com/platinummonkey/hub/pkg/observability"
)

// Factory builds one export of a module. Dependencies are requested through c
// with the ctx it receives.
type Factory func(ctx context.Context, c *Container) (any, error)

// Wrapper receives a freshly built object and returns its replacement
type Wrapper func(ctx context.Context, c *Container, obj any) (any, error)

// Container resolves dependency identifiers into objects
type Container struct {
	resolver *Resolver
	parser   *Parser
	pre      *PreProcessor
	post     *PostProcessor
	log      *observability.Logger

	mu         sync.RWMutex
	factories  map[string]Factory
	wrappers   map[string]Wrapper
	singletons map[string]any
}

// Option configures a Container
type Option func(*options)

type options struct {
	logger    *observability.Logger
	metrics   *observability.Metrics
	cacheSize int
}

// WithLogger sets the container logger
func WithLogger(logger *observability.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithMetrics enables resolver cache metrics
func WithMetrics(metrics *observability.Metrics) Option {
	return func(o *options) { o.metrics = metrics }
}

// WithCacheSize bounds the resolver path cache
func WithCacheSize(size int) Option {
	return func(o *options) { o.cacheSize = size }
}

// New creates an empty container
func New(opts ...Option) *Container {
	o := &options{cacheSize: DefaultCacheSize}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = observability.Discard()
	}

	return &Container{
		resolver:   NewResolver(o.cacheSize, o.metrics),
		parser:     NewParser(),
		pre:        &PreProcessor{},
		post:       &PostProcessor{},
		log:        o.logger,
		factories:  make(map[string]Factory),
		wrappers:   make(map[string]Wrapper),
		singletons: make(map[string]any),
	}
}

// Resolver returns the namespace resolver
func (c *Container) Resolver() *Resolver { return c.resolver }

// Parser returns the identifier parser
func (c *Container) Parser() *Parser { return c.parser }

// PreProcessor returns the pre-processor
func (c *Container) PreProcessor() *PreProcessor { return c.pre }

// PostProcessor returns the post-processor
func (c *Container) PostProcessor() *PostProcessor { return c.post }

// Register sets the factory of a module's default export
func (c *Container) Register(module string, f Factory) {
	c.RegisterExport(module, DefaultExport, f)
}

// RegisterExport sets the factory of a named export
func (c *Container) RegisterExport(module, export string, f Factory) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.factories[module+"."+export] = f
}

// RegisterWrapper sets the wrapper published by module
func (c *Container) RegisterWrapper(module string, w Wrapper) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.wrappers[module] = w
}

// Wrapper returns the wrapper published by module
func (c *Container) Wrapper(module string) (Wrapper, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	w, ok := c.wrappers[module]
	return w, ok
}

// Modules lists the modules with at least one registered factory
func (c *Container) Modules() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	seen := make(map[string]bool)
	var out []string
	for key := range c.factories {
		module, _, _ := strings.Cut(key, ".")
		if !seen[module] {
			seen[module] = true
			out = append(out, module)
		}
	}
	sort.Strings(out)
	return out
}

// Set places a ready object under id. It is returned by later singleton
// requests without namespace checks.
func (c *Container) Set(id string, value any) error {
	dep, err := c.parser.Parse(id)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.singletons[dep.Key()] = value
	return nil
}

// Get resolves id into an object
func (c *Container) Get(ctx context.Context, id string) (any, error) {
	parsed, err := c.parser.Parse(id)
	if err != nil {
		return nil, err
	}

	stack := stackFrom(ctx)
	dep := c.pre.Modify(parsed, stack)
	if dep.Module != parsed.Module {
		c.log.Debugf("Replaced %s with %s", parsed.Module, dep.Module)
	}

	if dep.Life == LifeSingleton {
		if obj, ok := c.singleton(dep.Key()); ok {
			return obj, nil
		}
	}

	if slices.Contains(stack, dep.Module) {
		chain := append(slices.Clone(stack), dep.Module)
		return nil, &ResolutionCycleError{Chain: chain}
	}

	if _, err := c.resolver.Resolve(dep.Module); err != nil {
		return nil, fmt.Errorf("cannot get %s: %w", id, err)
	}

	obj, err := c.build(ctx, dep, stack)
	if err != nil {
		return nil, err
	}

	if dep.Life == LifeSingleton {
		c.mu.Lock()
		if existing, ok := c.singletons[dep.Key()]; ok {
			obj = existing
		} else {
			c.singletons[dep.Key()] = obj
		}
		c.mu.Unlock()
	}
	return obj, nil
}

func (c *Container) build(ctx context.Context, dep *DepID, stack []string) (obj any, err error) {
	c.mu.RLock()
	factory, ok := c.factories[dep.Key()]
	c.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrModuleNotRegistered, dep)
	}

	defer func() {
		if perr := observability.PanicError(recover()); perr != nil {
			obj, err = nil, fmt.Errorf("failed to create %s: %w", dep, perr)
		}
	}()

	inner := withStack(ctx, append(slices.Clone(stack), dep.Module))
	obj, err = factory(inner, c)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", dep, err)
	}

	obj, err = c.post.Modify(inner, obj, dep, stack)
	if err != nil {
		return nil, fmt.Errorf("failed to post-process %s: %w", dep, err)
	}
	return obj, nil
}

func (c *Container) singleton(key string) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	obj, ok := c.singletons[key]
	return obj, ok
}

type stackKey struct{}

func withStack(ctx context.Context, stack []string) context.Context {
	return context.WithValue(ctx, stackKey{}, stack)
}

func stackFrom(ctx context.Context) []string {
	stack, _ := ctx.Value(stackKey{}).([]string)
	return stack
}

// Stack returns the modules under construction in ctx, outermost first
func Stack(ctx context.Context) []string {
	return slices.Clone(stackFrom(ctx))
}
