package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/platinummonkey/hub/pkg/config"
	"github.com/platinummonkey/hub/pkg/observability"
	"github.com/platinummonkey/hub/pkg/storage"
	"github.com/platinummonkey/hub/pkg/testenv"
)

func newDBCommand(s *state) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "db",
		Short: "Test database commands",
	}
	cmd.AddCommand(newDBPingCommand(s), newDBShowCommand(s))
	return cmd
}

// dbConfig returns the local settings of the kind named in args
func (s *state) dbConfig(args []string) (storage.RDBMS, *storage.DBConfig, error) {
	kind := testenv.DefaultRDBMS
	if len(args) > 0 {
		parsed, err := storage.ParseRDBMS(args[0])
		if err != nil {
			return "", nil, err
		}
		kind = parsed
	}

	local, found, err := config.LoadLocal(s.cfg.ProjectRoot)
	if err != nil {
		return "", nil, err
	}
	if !found {
		s.log.Debugf("No %s, using default connection settings", config.LocalConfigFile)
	}

	cfg, err := local.For(kind)
	if err != nil {
		return "", nil, err
	}
	return kind, cfg, nil
}

func newDBPingCommand(s *state) *cobra.Command {
	return &cobra.Command{
		Use:       "ping [mariadb|pg|sqlite|sqlite_better]",
		Short:     "Connect to a test database",
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: []string{"mariadb", "pg", "sqlite", "sqlite_better"},
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, cfg, err := s.dbConfig(args)
			if err != nil {
				return err
			}

			db, err := storage.Connect(cmd.Context(), kind, cfg, storage.DefaultPoolConfig())
			if err != nil {
				return err
			}
			defer db.Close()

			if err := observability.PingSQL(db)(cmd.Context()); err != nil {
				return fmt.Errorf("%s: query failed: %w", kind, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: ok\n", kind)
			return nil
		},
	}
}

func newDBShowCommand(s *state) *cobra.Command {
	return &cobra.Command{
		Use:   "show [mariadb|pg|sqlite|sqlite_better]",
		Short: "Print the settings of a test database",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, cfg, err := s.dbConfig(args)
			if err != nil {
				return err
			}

			shown := *cfg
			if shown.Connection.Password != "" {
				shown.Connection.Password = "********"
			}
			return writeJSON(cmd.OutOrStdout(), shown)
		},
	}
}
