package cli

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/platinummonkey/hub/pkg/api"
	"github.com/platinummonkey/hub/pkg/assembly"
)

func newAssembleCommand(s *state) *cobra.Command {
	var (
		asJSON    bool
		showRules bool
	)

	cmd := &cobra.Command{
		Use:   "assemble",
		Short: "Build the container once and report what it holds",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			asm, _, store, err := s.assembler(cmd.Context(), nil)
			if err != nil {
				return err
			}
			if store != nil {
				defer store.Close()
			}

			res, err := asm.Build(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			info := api.Summarize(res)
			if asJSON {
				if showRules {
					return writeJSON(out, struct {
						api.AssemblyInfo
						Rules api.RulesResponse `json:"rules"`
					}{info, api.RulesResponse{Replaces: res.Replaces.Table(), Proxies: res.Proxies.Table()}})
				}
				return writeJSON(out, info)
			}

			fmt.Fprintf(out, "Assembled %d plugins in %d levels (%s, %s)\n", info.Plugins, info.Levels, info.Source, res.Duration)
			fmt.Fprintf(out, "Run ID: %s\n", info.RunID)
			if len(info.Unknown) > 0 {
				fmt.Fprintf(out, "Dependencies outside the project: %v\n", info.Unknown)
			}

			fmt.Fprintln(out)
			w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
			fmt.Fprintln(w, "NAMESPACE\tEXT\tROOT")
			for _, ns := range res.Container.Resolver().Namespaces() {
				fmt.Fprintf(w, "%s\t%s\t%s\n", ns.Namespace, ns.Ext, ns.Root)
			}
			if err := w.Flush(); err != nil {
				return err
			}

			if showRules {
				printRules(out, "REPLACE", res.Replaces.Table())
				printRules(out, "PROXY", res.Proxies.Table())
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Output in JSON format")
	cmd.Flags().BoolVar(&showRules, "rules", false, "Include the replace and proxy tables")
	return cmd
}

func printRules(out io.Writer, title string, rules []assembly.Mapping) {
	fmt.Fprintln(out)
	if len(rules) == 0 {
		fmt.Fprintf(out, "No %s rules\n", title)
		return
	}

	w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
	fmt.Fprintf(w, "%s\tTO\n", title)
	for _, m := range rules {
		fmt.Fprintf(w, "%s\t%s\n", m.From, m.To)
	}
	w.Flush()
}
