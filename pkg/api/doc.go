// Package api serves a read-only view of the assembled container over HTTP.
//
// # Endpoints
//
//	GET  /api/v1/assembly          run id, registry source and counts
//	POST /api/v1/assembly          rebuild (when WithRebuild is set)
//	GET  /api/v1/plugins           descriptors in load order with their level
//	GET  /api/v1/plugins/{name}    one descriptor
//	GET  /api/v1/levels            plugin names grouped by dependency level
//	GET  /api/v1/graph             Cytoscape.js graph, ?external=true adds non-plugin deps
//	GET  /api/v1/namespaces        registered namespace roots
//	GET  /api/v1/rules             replace and proxy tables
//	GET  /api/v1/resolve/{id}      source file an identifier maps to after replacement
//	GET  /health, /health/live, /health/ready
//	GET  /metrics                  Prometheus exposition (when WithMetrics is set)
//
// Every /api/v1 endpoint answers 503 until the first Update.
//
// # Usage
//
//	srv := api.NewServer(api.WithLogger(logger), api.WithRebuild(asm.Build))
//	srv.Update(res)
//	http.ListenAndServe(":8080", srv)
package api
