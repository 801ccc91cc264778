package container

import (
	"context"
	"sync"
)

// PreChunk rewrites a dependency before it is resolved. stack lists the
// modules under construction, outermost first.
type PreChunk interface {
	Modify(dep *DepID, stack []string) *DepID
}

// PostChunk transforms an object right after it is built
type PostChunk interface {
	Modify(ctx context.Context, obj any, dep *DepID, stack []string) (any, error)
}

// PreProcessor applies pre-chunks in registration order
type PreProcessor struct {
	mu     sync.RWMutex
	chunks []PreChunk
}

// AddChunk appends a chunk
func (p *PreProcessor) AddChunk(chunk PreChunk) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.chunks = append(p.chunks, chunk)
}

// Chunks returns the registered chunks in order
func (p *PreProcessor) Chunks() []PreChunk {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return append([]PreChunk(nil), p.chunks...)
}

// Modify runs every chunk over a copy of dep
func (p *PreProcessor) Modify(dep *DepID, stack []string) *DepID {
	out := dep.Clone()
	for _, chunk := range p.Chunks() {
		out = chunk.Modify(out, stack)
	}
	return out
}

// PostProcessor applies post-chunks in registration order
type PostProcessor struct {
	mu     sync.RWMutex
	chunks []PostChunk
}

// AddChunk appends a chunk
func (p *PostProcessor) AddChunk(chunk PostChunk) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.chunks = append(p.chunks, chunk)
}

// Chunks returns the registered chunks in order
func (p *PostProcessor) Chunks() []PostChunk {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return append([]PostChunk(nil), p.chunks...)
}

// Modify runs every chunk, stopping at the first error
func (p *PostProcessor) Modify(ctx context.Context, obj any, dep *DepID, stack []string) (any, error) {
	var err error
	for _, chunk := range p.Chunks() {
		obj, err = chunk.Modify(ctx, obj, dep, stack)
		if err != nil {
			return nil, err
		}
	}
	return obj, nil
}
