package assembly

import (
	"strings"

	"github.com/platinummonkey/hub/pkg/container"
)

// LegacyParser accepts the older identifier syntax Module#export[$|$$].
// An empty export after '#' selects the default export.
func LegacyParser() container.ParserChunk {
	return container.ParserChunkFunc(parseLegacy)
}

func parseLegacy(id string) (*container.DepID, bool) {
	body, life := container.SplitLife(id)

	module, export, ok := strings.Cut(body, "#")
	if !ok {
		return nil, false
	}
	if export == "" {
		export = container.DefaultExport
	}
	if !container.ValidName(module) || !container.ValidName(export) {
		return nil, false
	}

	return &container.DepID{Value: id, Module: module, Export: export, Life: life}, true
}
