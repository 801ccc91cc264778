package assembly

import (
	"fmt"
	"path/filepath"

	"github.com/platinummonkey/hub/pkg/observability"
	"github.com/platinummonkey/hub/pkg/plugins"
)

// NamespaceRegistrar receives namespace roots. *container.Resolver implements it.
type NamespaceRegistrar interface {
	AddNamespaceRoot(ns, root, ext string) error
}

// InitNamespaces registers the autoload root of every plugin that declares a
// namespace. Order does not matter; a prefix claimed with two different roots
// fails with container.ErrNamespaceConflict.
func InitNamespaces(r NamespaceRegistrar, items []*plugins.Descriptor, log *observability.Logger) error {
	if log == nil {
		log = observability.Discard()
	}

	for _, item := range items {
		auto := item.Autoload()
		if auto == nil || auto.Namespace == "" {
			continue
		}

		root := filepath.Join(item.Path, auto.Path)
		if err := r.AddNamespaceRoot(auto.Namespace, root, auto.Extension()); err != nil {
			return fmt.Errorf("plugin %s: %w", item.Name, err)
		}
		log.WithField("plugin", item.Name).
			WithField("namespace", auto.Namespace).
			Debugf("Registered namespace root %s", root)
	}
	return nil
}
