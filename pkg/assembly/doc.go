// Package assembly turns a project's plugin descriptors into a configured
// dependency container.
//
// An Assembler runs the steps in a fixed order:
//
//  1. Register the namespace roots of the runtime itself (Hub_Di_, Hub_Core_)
//  2. Install the optional legacy identifier parser and logger post-chunk
//  3. Obtain the plugin registry: from memory, from a snapshot, or by discovery
//  4. Order the plugins into dependency levels
//  5. Register every plugin's autoload namespace
//  6. Fold the back and shared replace and proxy rules, in level order
//
// Rules declared by later plugins override earlier ones, so a plugin can
// replace an implementation chosen by any of its dependencies.
//
// # Usage
//
//	asm := assembly.NewAssembler(cfg, assembly.WithLogger(logger))
//	res, err := asm.Build(ctx)
//	if err != nil {
//		return err
//	}
//	svc, err := res.Container.Get(ctx, "Vnd_App_Service$$")
//
// A second Build on the same Assembler reuses the registry found by the first
// one. Reset forgets it.
package assembly
