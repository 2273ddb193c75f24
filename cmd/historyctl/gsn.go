package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

func newGSNCmd(app *appContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "gsn",
		Short: "Inspect or repair the project's GSN counter",
	}

	current := &cobra.Command{
		Use:   "current",
		Short: "Print the current GSN value",
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := app.facade()
			if err != nil {
				return err
			}
			v, err := f.CurrentGSN()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), v)
			return nil
		},
	}

	reset := &cobra.Command{
		Use:   "reset <value>",
		Short: "Overwrite the GSN counter (maintenance only; does not touch the log or index)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := strconv.ParseUint(args[0], 10, 64)
			if err != nil {
				return err
			}
			f, err := app.facade()
			if err != nil {
				return err
			}
			if err := f.ResetGSN(v); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "gsn counter reset to %d\n", v)
			return nil
		},
	}

	cmd.AddCommand(current, reset)
	return cmd
}
