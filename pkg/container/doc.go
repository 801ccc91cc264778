// Package container is the dependency injection container assembled from plugins.
//
// # Overview
//
// Objects are requested by identifier. Identifiers name a module, an optional
// export and a lifetime:
//
//	Mid_Service          default export, singleton
//	Mid_Service$$        default export, new instance per request
//	Mid_Service.helper   named export, singleton
//
// A request goes through four collaborators:
//
//   - Parser turns the identifier into a DepID (chunks first, then the default syntax)
//   - PreProcessor rewrites the DepID, e.g. to replace one module with another
//   - Resolver checks the module lies in a registered namespace and maps it to a source path
//   - PostProcessor transforms the freshly built object, e.g. to wrap it in a proxy
//
// # Usage
//
//	c := container.New(container.WithLogger(logger))
//	_ = c.Resolver().AddNamespaceRoot("Mid_", "/srv/app/plugins/mid/src", "mjs")
//	c.Register("Mid_Service", func(ctx context.Context, c *container.Container) (any, error) {
//		return NewService(), nil
//	})
//
//	svc, err := c.Get(ctx, "Mid_Service")
//
// The container is populated during assembly and is safe for concurrent Get afterwards.
package container
