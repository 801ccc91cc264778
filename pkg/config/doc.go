// Package config provides application configuration management with viper.
//
// # Overview
//
// Settings come, in increasing priority, from built-in defaults, an optional
// hub.yaml in the working directory (or the file given with --config) and
// HUB_* environment variables. Nested keys map to variables by replacing dots
// with underscores:
//
//	HUB_PROJECT_ROOT="/srv/app"
//	HUB_ASSEMBLY_LEGACY_PARSER="false"
//	HUB_ASSEMBLY_SEARCH_DIRS="plugins,node_modules"
//	HUB_SNAPSHOT_BACKEND="redis"
//	HUB_SNAPSHOT_REDIS_URL="redis://localhost:6379/0"
//	HUB_OBSERVABILITY_LOG_LEVEL="debug"
//
// # Configuration File
//
//	project_root: /srv/app
//	server:
//	  port: "8080"
//	assembly:
//	  core_root: node_modules/@hub/core/src
//	  core_ext: mjs
//	snapshot:
//	  backend: file
//	  dir: /var/cache/hub
//
// # Usage
//
//	cfg, err := config.LoadConfig()
//	if err != nil {
//		log.Fatal(err)
//	}
//
// # Local Database Settings
//
// Test databases are described by test/data/cfg/local.json below the project
// root. LoadLocal falls back to DefaultLocal when the file does not exist:
//
//	local, found, err := config.LoadLocal(cfg.ProjectRoot)
//	pg, err := local.For(storage.Postgres)
package config
