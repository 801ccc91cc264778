package cli

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newPluginsCommand(s *state) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "plugins",
		Short: "List the plugins discovered in the project",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			reg, report, err := s.loader().DiscoverWithReport(cmd.Context(), s.cfg.ProjectRoot)
			if err != nil {
				return err
			}
			if skipped := len(report.FieldErrors) + len(report.Rejected); skipped > 0 {
				s.log.Warnf("%d of %d descriptors had problems, see the warnings above", skipped, report.Candidates)
			}

			items := reg.Items()
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), items)
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 3, ' ', 0)
			fmt.Fprintln(w, "NAME\tVERSION\tNAMESPACE\tDEPENDENCIES\tPATH")
			for _, desc := range items {
				ns := "-"
				if auto := desc.Autoload(); auto != nil && auto.Namespace != "" {
					ns = auto.Namespace
				}
				version := desc.Version
				if version == "" {
					version = "-"
				}
				deps := strings.Join(desc.Dependencies, ",")
				if deps == "" {
					deps = "-"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", desc.Name, version, ns, deps, desc.Path)
			}
			return w.Flush()
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Output in JSON format")
	return cmd
}

func newLevelsCommand(s *state) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "levels",
		Short: "Show plugins grouped by dependency level, dependencies first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			reg, err := s.loader().Discover(cmd.Context(), s.cfg.ProjectRoot)
			if err != nil {
				return err
			}
			levels, err := reg.Levels()
			if err != nil {
				return err
			}

			names := make([][]string, len(levels))
			for i, level := range levels {
				for _, desc := range level {
					names[i] = append(names[i], desc.Name)
				}
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), names)
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 3, ' ', 0)
			fmt.Fprintln(w, "LEVEL\tPLUGINS")
			for i, level := range names {
				fmt.Fprintf(w, "%d\t%s\n", i, strings.Join(level, ", "))
			}
			return w.Flush()
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Output in JSON format")
	return cmd
}
