package cli

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/attribute"

	"github.com/platinummonkey/hub/pkg/api"
	"github.com/platinummonkey/hub/pkg/assembly"
	"github.com/platinummonkey/hub/pkg/observability"
	"github.com/platinummonkey/hub/pkg/watch"
)

func newServeCommand(s *state) *cobra.Command {
	var watchPlugins bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Assemble the container and serve the inspection API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return s.serve(ctx, watchPlugins)
		},
	}

	cmd.Flags().BoolVar(&watchPlugins, "watch", false, "Rebuild the container when plugins change")
	return cmd
}

func (s *state) serve(ctx context.Context, watchPlugins bool) error {
	logger := s.logger

	providers, err := observability.InitOTel(ctx, s.cfg.Observability.OTel, logger,
		attribute.String("hub.project.root", s.cfg.ProjectRoot))
	if err != nil {
		return fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}

	in, err := s.instruments()
	if err != nil {
		return err
	}
	asm, loader, store, err := s.assembler(ctx, in)
	if err != nil {
		return err
	}

	health := observability.NewHealthChecker(Version)
	if store != nil {
		health.AddCheck("snapshot store", store.Ping, false)
	}

	opts := []api.Option{api.WithLogger(logger), api.WithRebuild(asm.Build), api.WithHealthChecker(health)}
	if in.metrics != nil {
		opts = append(opts, api.WithMetrics(in.metrics, in.registry))
	}
	srv := api.NewServer(opts...)

	if res, err := asm.Build(ctx); err != nil {
		logger.WithError(err).Error("Initial assembly failed, serving 503 until a rebuild succeeds")
	} else {
		srv.Update(res)
	}

	addr := net.JoinHostPort(s.cfg.Server.Host, s.cfg.Server.Port)
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      srv,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
		IdleTimeout:  s.cfg.Server.IdleTimeout,
	}

	sm := observability.NewShutdownManager(logger, httpServer, s.cfg.Server.ShutdownTimeout)
	sm.Register("opentelemetry", func(ctx context.Context) error {
		return observability.ShutdownOTel(ctx, providers, logger)
	})
	if store != nil {
		sm.Register("snapshot store", func(context.Context) error { return store.Close() })
	}

	if watchPlugins {
		w, err := watch.New(watch.DefaultConfig(loader.SearchPaths(s.cfg.ProjectRoot)), asm,
			watch.WithLogger(logger),
			watch.OnBuild(func(res *assembly.Result, err error) {
				if err == nil {
					srv.Update(res)
				}
			}))
		if err != nil {
			return err
		}
		go func() {
			if err := w.Run(ctx); err != nil {
				logger.WithError(err).Error("Plugin watcher stopped")
			}
		}()
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Infof("Serving the inspection API on %s", addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		_ = sm.Shutdown()
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}
	return sm.Wait(ctx)
}
