package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/hub/pkg/api"
	"github.com/platinummonkey/hub/pkg/assembly"
	"github.com/platinummonkey/hub/pkg/dependencies"
	"github.com/platinummonkey/hub/pkg/storage"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	if !slices.Contains(args, "--log-level") {
		args = append(args, "--log-level", "off")
	}
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func writePlugin(t *testing.T, dir, body string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "plugin.yaml"), []byte(body), 0644))
}

func newProject(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	writePlugin(t, root, `name: App
dependencies: [Core, lodash]
di:
  autoload: {ns: App_, path: src}
  replaces:
    - {from: App_Logger, to: App_FileLogger, sphere: back}
    - {from: App_Widget, to: App_Dom, sphere: front}
`)
	writePlugin(t, filepath.Join(root, "node_modules", "core"), `name: Core
version: 1.2.0
di:
  autoload: {ns: Core_, path: src, ext: mjs}
  proxy:
    - {from: Core_Db, to: Core_Audit, sphere: shared}
`)
	return root
}

func TestNewRootCommand(t *testing.T) {
	root := NewRootCommand()
	assert.Equal(t, "hub", root.Name())

	var names []string
	for _, cmd := range root.Commands() {
		names = append(names, cmd.Name())
	}
	for _, want := range []string{"plugins", "levels", "assemble", "serve", "watch", "db"} {
		assert.Contains(t, names, want)
	}

	for _, name := range []string{"config", "root", "log-level"} {
		assert.NotNil(t, root.PersistentFlags().Lookup(name), name)
	}
}

func TestPluginsCommand(t *testing.T) {
	root := newProject(t)

	out, err := execute(t, "plugins", "--root", root)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "NAME"))
	assert.Contains(t, lines[1], "App")
	assert.Contains(t, lines[1], "Core,lodash")
	assert.Contains(t, lines[2], "1.2.0")
	assert.Contains(t, lines[2], "Core_")

	out, err = execute(t, "plugins", "--root", root, "--json")
	require.NoError(t, err)
	var items []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &items))
	require.Len(t, items, 2)
	assert.Equal(t, "App", items[0]["name"])
	assert.Equal(t, filepath.Join(root, "node_modules", "core"), items[1]["path"])
}

func TestLevelsCommand(t *testing.T) {
	root := newProject(t)

	out, err := execute(t, "levels", "-r", root, "--json")
	require.NoError(t, err)
	var levels [][]string
	require.NoError(t, json.Unmarshal([]byte(out), &levels))
	assert.Equal(t, [][]string{{"Core"}, {"App"}}, levels)

	out, err = execute(t, "levels", "-r", root)
	require.NoError(t, err)
	assert.Contains(t, out, "LEVEL")
	assert.Contains(t, out, "Core")
}

func TestAssembleCommand(t *testing.T) {
	root := newProject(t)

	out, err := execute(t, "assemble", "-r", root, "--json", "--rules")
	require.NoError(t, err)

	var got struct {
		api.AssemblyInfo
		Rules api.RulesResponse `json:"rules"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, 2, got.Plugins)
	assert.Equal(t, 2, got.Levels)
	assert.Equal(t, 4, got.Namespaces)
	assert.Equal(t, assembly.SourceDiscovery, got.Source)
	assert.Equal(t, []string{"lodash"}, got.Unknown)
	assert.Equal(t, []assembly.Mapping{{From: "App_Logger", To: "App_FileLogger"}}, got.Rules.Replaces)
	assert.Equal(t, []assembly.Mapping{{From: "Core_Db", To: "Core_Audit"}}, got.Rules.Proxies)

	out, err = execute(t, "assemble", "-r", root, "--rules")
	require.NoError(t, err)
	assert.Contains(t, out, "Assembled 2 plugins in 2 levels")
	assert.Contains(t, out, "Hub_Core_")
	assert.Contains(t, out, filepath.Join(root, "src"))
	assert.Contains(t, out, "App_FileLogger")
	assert.NotContains(t, out, "App_Dom")
}

func TestAssembleCommand_Cycle(t *testing.T) {
	root := t.TempDir()
	writePlugin(t, root, "name: A\ndependencies: [B]\n")
	writePlugin(t, filepath.Join(root, "plugins", "b"), "name: B\ndependencies: [A]\n")

	_, err := execute(t, "assemble", "-r", root)
	assert.True(t, errors.Is(err, dependencies.ErrCyclicDependency))
}

func TestAssembleCommand_SnapshotFromConfigFile(t *testing.T) {
	root := newProject(t)
	cfgFile := filepath.Join(t.TempDir(), "hub.yaml")
	require.NoError(t, os.WriteFile(cfgFile, []byte(`project_root: `+root+`
snapshot:
  backend: file
  dir: `+filepath.Join(t.TempDir(), "snapshots")+`
`), 0644))

	var sources []string
	for range 2 {
		out, err := execute(t, "assemble", "--config", cfgFile, "--json")
		require.NoError(t, err)
		var info api.AssemblyInfo
		require.NoError(t, json.Unmarshal([]byte(out), &info))
		sources = append(sources, info.Source)
	}
	assert.Equal(t, []string{assembly.SourceDiscovery, assembly.SourceSnapshot}, sources)
}

func TestConfigErrors(t *testing.T) {
	_, err := execute(t, "plugins", "--config", filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = execute(t, "plugins", "-r", t.TempDir(), "--log-level", "loud")
	assert.Error(t, err)
}

func TestDBCommands(t *testing.T) {
	root := newProject(t)

	out, err := execute(t, "db", "ping", "sqlite", "-r", root)
	require.NoError(t, err)
	assert.Equal(t, "sqlite: ok\n", out)
	assert.FileExists(t, filepath.Join(root, "test", "data", "db.sqlite3"))

	out, err = execute(t, "db", "show", "pg", "-r", root)
	require.NoError(t, err)
	var cfg storage.DBConfig
	require.NoError(t, json.Unmarshal([]byte(out), &cfg))
	assert.Equal(t, "127.0.0.1", cfg.Connection.Host)
	assert.Equal(t, "hub_db_test", cfg.Connection.Database)
	assert.Equal(t, "********", cfg.Connection.Password)

	out, err = execute(t, "db", "show", "-r", root)
	require.NoError(t, err)
	assert.Contains(t, out, "db.sqlite3")

	_, err = execute(t, "db", "ping", "oracle", "-r", root)
	assert.True(t, errors.Is(err, storage.ErrUnknownRDBMS))
}
