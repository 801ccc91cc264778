package assembly

import (
	"slices"

	"github.com/platinummonkey/hub/pkg/container"
	"github.com/platinummonkey/hub/pkg/observability"
	"github.com/platinummonkey/hub/pkg/plugins"
)

// ReplaceChunk rewrites requested modules before they are resolved
type ReplaceChunk struct {
	rules table
}

// NewReplaceChunk creates an empty rewrite table
func NewReplaceChunk() *ReplaceChunk {
	return &ReplaceChunk{}
}

// Add maps from to to, overwriting an earlier mapping of from
func (c *ReplaceChunk) Add(from, to string) {
	c.rules.set(from, to)
}

// Lookup returns the replacement of from
func (c *ReplaceChunk) Lookup(from string) (string, bool) {
	return c.rules.lookup(from)
}

// Table returns the mappings in first-insertion order
func (c *ReplaceChunk) Table() []Mapping {
	return c.rules.snapshot()
}

// Len returns the number of mappings
func (c *ReplaceChunk) Len() int {
	return c.rules.len()
}

// Modify implements container.PreChunk. A replacement that is itself under
// construction is not applied, so it can request the module it replaces.
func (c *ReplaceChunk) Modify(dep *container.DepID, stack []string) *container.DepID {
	to, ok := c.Lookup(dep.Module)
	if !ok || slices.Contains(stack, to) {
		return dep
	}
	dep.Module = to
	return dep
}

// InitPreReplaces folds the back and shared replace rules of items, which must
// be in load order, into one table and attaches it to the pre-processor.
// Later plugins override earlier ones.
func InitPreReplaces(c *container.Container, items []*plugins.Descriptor, log *observability.Logger, metrics *observability.Metrics) *ReplaceChunk {
	if log == nil {
		log = observability.Discard()
	}

	chunk := NewReplaceChunk()
	fold("replace", items, (*plugins.Descriptor).Replaces, chunk.Add, log, metrics)
	c.PreProcessor().AddChunk(chunk)
	return chunk
}
