// Package watch rebuilds the container when plugins change on disk.
//
// The watcher follows the directories plugin discovery reads: the project
// root, every search path, each plugin directory below it and the plugin
// directories of @scope folders. Writes to a descriptor file, and plugin
// directories appearing or disappearing, trigger a debounced Reset and Build.
// A failed rebuild is reported and the caller keeps its previous container.
//
//	w, err := watch.New(watch.DefaultConfig(loader.SearchPaths(root)), asm,
//		watch.OnBuild(func(res *assembly.Result, err error) {
//			if err == nil {
//				srv.Update(res)
//			}
//		}))
//	go w.Run(ctx)
package watch
