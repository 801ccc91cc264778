// Package cli implements the hub command line.
//
//	hub plugins [--json]          list discovered plugins
//	hub levels [--json]           plugin names grouped by dependency level
//	hub assemble [--json|--rules] build the container once and report it
//	hub serve [--watch]           serve the inspection API
//	hub watch                     rebuild whenever plugins change
//	hub db ping [kind]            connect to a test database
//	hub db show [kind]            print test database settings
//
// Configuration comes from hub.yaml (or --config), HUB_* environment
// variables and the persistent flags, in increasing priority.
package cli
