package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newRepairCmd(app *appContext) *cobra.Command {
	return &cobra.Command{
		Use:   "repair",
		Short: "Force a rescan and repair of the active log's offset cache",
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := app.facade()
			if err != nil {
				return err
			}
			if err := f.InvalidateCaches(); err != nil {
				return err
			}
			total, err := f.TotalCount()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "repair complete: %d records retained\n", total)
			return nil
		},
	}
}
