// Package plugins discovers plugin descriptors in a project and keeps them in a registry.
//
// # Overview
//
// A plugin is a directory carrying a descriptor file (plugin.yaml, plugin.yml or
// plugin.json). The descriptor names the plugin, lists the plugins it depends
// on, and declares what it contributes to the DI container:
//
//	name: Mid
//	version: 1.0.0
//	dependencies: [Base]
//	di:
//	  autoload: {ns: Mid_, path: src, ext: mjs}
//	  replaces:
//	    - {from: Logger, to: FileLogger, sphere: back}
//	  proxy:
//	    - {from: Mailer, to: Mailer_Audit, sphere: shared}
//
// # Discovery
//
// Loader scans the project root and its search directories (plugins/ and
// node_modules/ by default, one level into @scope directories). Descriptors
// are parsed in parallel and registered in discovery order. Malformed entries
// inside the di block are skipped and reported as *FieldError; descriptors that
// fail validation are rejected as a whole; two plugins with the same name abort
// discovery with ErrDuplicatePlugin.
//
// # Registry
//
// Registry keeps descriptors by name in discovery order and derives load order
// from the dependency graph:
//
//	loader := plugins.NewLoader(nil, logrus.New())
//	reg, err := loader.Discover(ctx, "/srv/app")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	levels, err := reg.Levels() // dependencies first
//
// # Related Packages
//
//   - pkg/dependencies: Level computation and cycle detection
//   - pkg/assembly: Applies registry declarations to a container
package plugins
