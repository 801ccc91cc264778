package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/platinummonkey/hub/pkg/assembly"
	"github.com/platinummonkey/hub/pkg/config"
	"github.com/platinummonkey/hub/pkg/observability"
	"github.com/platinummonkey/hub/pkg/plugins"
	"github.com/platinummonkey/hub/pkg/storage"
)

// Version is reported by --version
var Version = "dev"

// state is shared by every command of one root
type state struct {
	cfgFile string
	cfg     *config.Config
	log     *logrus.Logger
	logger  *observability.Logger
}

// NewRootCommand creates the hub command tree
func NewRootCommand() *cobra.Command {
	s := &state{}

	root := &cobra.Command{
		Use:               "hub",
		Short:             "Assemble the dependency injection container of a plugin project",
		Version:           Version,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: s.load,
	}

	root.PersistentFlags().StringVarP(&s.cfgFile, "config", "c", "", "config file (default: ./hub.yaml)")
	root.PersistentFlags().StringP("root", "r", "", "project root (default: current directory)")
	root.PersistentFlags().String("log-level", "", "log level: debug, info, warn, error, off")

	root.AddCommand(
		newPluginsCommand(s),
		newLevelsCommand(s),
		newAssembleCommand(s),
		newServeCommand(s),
		newWatchCommand(s),
		newDBCommand(s),
	)
	return root
}

func (s *state) load(cmd *cobra.Command, _ []string) error {
	v := config.NewViper(s.cfgFile)

	flags := cmd.Root().PersistentFlags()
	if f := flags.Lookup("root"); f.Changed {
		v.Set("project_root", f.Value.String())
	}
	if f := flags.Lookup("log-level"); f.Changed {
		v.Set("observability.log_level", f.Value.String())
	}

	cfg, err := config.Load(v)
	if err != nil {
		return err
	}
	s.cfg = cfg

	s.log = logrus.New()
	s.log.SetOutput(cmd.ErrOrStderr())
	s.log.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})
	if level := strings.ToLower(cfg.Observability.LogLevel); level == "off" {
		s.log.SetOutput(io.Discard)
	} else if lvl, err := logrus.ParseLevel(level); err == nil {
		s.log.SetLevel(lvl)
	}

	s.logger = observability.NewLogger(cfg.LogLevel(), cmd.ErrOrStderr(), observability.WithFormat(cfg.LogFormat()))
	if v.ConfigFileUsed() != "" {
		s.log.Debugf("Using config file %s", v.ConfigFileUsed())
	}
	return nil
}

func (s *state) loader() *plugins.Loader {
	loader := plugins.NewLoader(s.cfg.Assembly.SearchDirs, s.log)
	if s.cfg.Assembly.Concurrency > 0 {
		loader.SetConcurrency(s.cfg.Assembly.Concurrency)
	}
	return loader
}

// instruments holds the optional metrics of long running commands
type instruments struct {
	registry    *prometheus.Registry
	metrics     *observability.Metrics
	otelMetrics *observability.OTelMetrics
}

func (s *state) instruments() (*instruments, error) {
	in := &instruments{}
	if s.cfg.Observability.MetricsEnabled {
		in.registry = prometheus.NewRegistry()
		in.metrics = observability.NewMetrics(in.registry)
	}
	if s.cfg.Observability.OTel.Enabled {
		m, err := observability.NewOTelMetrics()
		if err != nil {
			return nil, fmt.Errorf("failed to create OpenTelemetry metrics: %w", err)
		}
		in.otelMetrics = m
	}
	return in, nil
}

// assembler opens the configured snapshot store and creates an assembler on
// top of it. The caller closes the store when it is not nil.
func (s *state) assembler(ctx context.Context, in *instruments) (*assembly.Assembler, *plugins.Loader, storage.SnapshotStore, error) {
	if in == nil {
		in = &instruments{}
	}

	store, err := storage.Open(ctx, s.cfg.Snapshot, in.metrics, in.otelMetrics)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to open snapshot store: %w", err)
	}

	loader := s.loader()
	asm := assembly.NewAssembler(s.cfg,
		assembly.WithDiscoverer(loader),
		assembly.WithLogger(s.logger),
		assembly.WithMetrics(in.metrics),
		assembly.WithOTelMetrics(in.otelMetrics),
		assembly.WithSnapshotStore(store),
	)
	return asm, loader, store, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
