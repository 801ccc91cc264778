package assembly

import (
	"context"
	"fmt"

	"github.com/platinummonkey/hub/pkg/container"
	"github.com/platinummonkey/hub/pkg/observability"
	"github.com/platinummonkey/hub/pkg/plugins"
)

// ProxyChunk hands freshly built objects to the wrapper of another module
type ProxyChunk struct {
	c     *container.Container
	rules table
}

// NewProxyChunk creates an empty proxy table that finds wrappers in c
func NewProxyChunk(c *container.Container) *ProxyChunk {
	return &ProxyChunk{c: c}
}

// Map wraps objects of module from with the wrapper of module to
func (p *ProxyChunk) Map(from, to string) {
	p.rules.set(from, to)
}

// Lookup returns the wrapping module of from
func (p *ProxyChunk) Lookup(from string) (string, bool) {
	return p.rules.lookup(from)
}

// Table returns the mappings in first-insertion order
func (p *ProxyChunk) Table() []Mapping {
	return p.rules.snapshot()
}

// Len returns the number of mappings
func (p *ProxyChunk) Len() int {
	return p.rules.len()
}

// Modify implements container.PostChunk
func (p *ProxyChunk) Modify(ctx context.Context, obj any, dep *container.DepID, _ []string) (any, error) {
	to, ok := p.Lookup(dep.Module)
	if !ok {
		return obj, nil
	}

	if _, err := p.c.Resolver().Resolve(to); err != nil {
		return nil, fmt.Errorf("proxy %s for %s: %w", to, dep.Module, err)
	}
	wrap, ok := p.c.Wrapper(to)
	if !ok {
		return nil, fmt.Errorf("proxy %s for %s: %w", to, dep.Module, container.ErrModuleNotRegistered)
	}
	return wrap(ctx, p.c, obj)
}

// InitPostProxy folds the back and shared proxy rules of items, which must be
// in load order, into one table and attaches it to the post-processor.
func InitPostProxy(c *container.Container, items []*plugins.Descriptor, log *observability.Logger, metrics *observability.Metrics) *ProxyChunk {
	if log == nil {
		log = observability.Discard()
	}

	chunk := NewProxyChunk(c)
	fold("proxy", items, (*plugins.Descriptor).Proxies, chunk.Map, log, metrics)
	c.PostProcessor().AddChunk(chunk)
	return chunk
}
