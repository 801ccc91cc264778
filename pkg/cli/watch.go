package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/platinummonkey/hub/pkg/assembly"
	"github.com/platinummonkey/hub/pkg/watch"
)

func newWatchCommand(s *state) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Assemble the container and rebuild it whenever plugins change",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			asm, loader, store, err := s.assembler(ctx, nil)
			if err != nil {
				return err
			}
			if store != nil {
				defer store.Close()
			}

			out := cmd.OutOrStdout()
			report := func(res *assembly.Result, err error) {
				if err != nil {
					fmt.Fprintf(out, "rebuild failed: %v\n", err)
					return
				}
				fmt.Fprintf(out, "%s: %d plugins, %d levels (%s, %s)\n",
					res.RunID, res.Registry.Count(), len(res.Levels), res.Source, res.Duration)
			}
			report(asm.Build(ctx))

			w, err := watch.New(watch.DefaultConfig(loader.SearchPaths(s.cfg.ProjectRoot)), asm,
				watch.WithLogger(s.logger), watch.OnBuild(report))
			if err != nil {
				return err
			}
			return w.Run(ctx)
		},
	}
	return cmd
}
