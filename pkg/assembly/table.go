package assembly

import (
	"sync"

	"github.com/platinummonkey/hub/pkg/observability"
	"github.com/platinummonkey/hub/pkg/plugins"
)

// Mapping is one entry of a rewrite or proxy table
type Mapping struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// table is an ordered map. A key keeps the position of its first insertion
// and the value of its last.
type table struct {
	mu      sync.RWMutex
	index   map[string]int
	entries []Mapping
}

func (t *table) set(from, to string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.index == nil {
		t.index = make(map[string]int)
	}
	if i, ok := t.index[from]; ok {
		t.entries[i].To = to
		return
	}
	t.index[from] = len(t.entries)
	t.entries = append(t.entries, Mapping{From: from, To: to})
}

func (t *table) lookup(from string) (string, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	i, ok := t.index[from]
	if !ok {
		return "", false
	}
	return t.entries[i].To, true
}

func (t *table) snapshot() []Mapping {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return append([]Mapping(nil), t.entries...)
}

func (t *table) len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.entries)
}

// fold feeds the backend-eligible rules of items, in order, into add.
// Rules of other spheres are counted as skipped.
func fold(kind string, items []*plugins.Descriptor, rules func(*plugins.Descriptor) []plugins.Rule,
	add func(from, to string), log *observability.Logger, metrics *observability.Metrics) {
	for _, item := range items {
		for _, rule := range rules(item) {
			if !rule.Sphere.Backend() {
				if metrics != nil {
					metrics.RulesSkippedTotal.WithLabelValues(kind, "sphere").Inc()
				}
				continue
			}

			log.WithField("plugin", item.Name).Debugf("Adding %s rule %s -> %s", kind, rule.From, rule.To)
			add(rule.From, rule.To)
			if metrics != nil {
				metrics.RulesAppliedTotal.WithLabelValues(kind).Inc()
			}
		}
	}
}
