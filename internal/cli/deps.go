package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func (a *app) newDepsCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "deps [location]",
		Short: "Print the dependencies a snapshot was recorded with",
		Long: `Print the dependency description stored in the snapshot. A Runner only
recovers from the snapshot when its own dependencies equal these.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			snap, _, err := a.load(cmd, args)
			if err != nil {
				return err
			}

			deps := map[string]interface{}(snap.Dependencies)
			if deps == nil {
				deps = map[string]interface{}{}
			}
			switch output {
			case "yaml":
				return writeYAML(cmd.OutOrStdout(), deps)
			case "json":
				return writeJSON(cmd.OutOrStdout(), deps)
			default:
				return fmt.Errorf("unknown output format %q (yaml, json)", output)
			}
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "yaml", "output format: yaml, json")
	return cmd
}
