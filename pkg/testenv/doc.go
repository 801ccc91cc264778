// Package testenv prepares an assembled container and test database
// connections for the tests of a hub project.
//
// Environments of one project share an Assembler, so plugin discovery runs
// once per process and later environments reuse the registry:
//
//	env, err := testenv.New(ctx, testenv.WithRoot(root))
//	if err != nil {
//		t.Fatal(err)
//	}
//	db, err := env.DBConnect(ctx, storage.Postgres)
//
// Database settings come from test/data/cfg/local.json below the project
// root. Without that file the built-in defaults are used.
package testenv
