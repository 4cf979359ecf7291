package cli

import (
	"errors"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func (a *app) newClearCmd() *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "clear [location]",
		Short: "Delete a snapshot",
		Long:  `Delete the snapshot so the next run starts from scratch. Requires --yes.`,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return errors.New("refusing to delete without --yes")
			}

			location := ""
			if len(args) > 0 {
				location = args[0]
			}
			t, err := openTarget(cmd.Context(), a.v, location)
			if err != nil {
				return err
			}
			defer func() { _ = t.Close() }()

			if err := t.recovery().Remove(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), color.GreenString("Removed %s", t.location))
			return nil
		},
	}

	cmd.Flags().BoolVar(&yes, "yes", false, "confirm deletion")
	return cmd
}
