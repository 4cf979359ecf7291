package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dshills/recovery-go/recovery/store"
)

func (a *app) newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list [prefix]",
		Short: "List stored snapshot locations",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			prefix := ""
			if len(args) > 0 {
				prefix = args[0]
			}

			t, err := openTarget(cmd.Context(), a.v, "")
			if err != nil {
				return err
			}
			defer func() { _ = t.Close() }()

			lister, ok := t.transport.(store.Lister)
			if !ok {
				return fmt.Errorf("transport %s does not support listing", a.v.GetString("transport"))
			}

			locations, err := lister.List(cmd.Context(), prefix)
			if err != nil {
				return err
			}
			for _, loc := range locations {
				fmt.Fprintln(cmd.OutOrStdout(), loc)
			}
			return nil
		},
	}
}
