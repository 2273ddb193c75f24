package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newCompactCmd(app *appContext) *cobra.Command {
	return &cobra.Command{
		Use:   "compact",
		Short: "Force a rotation check on the active log without waiting for the next append",
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := app.facade()
			if err != nil {
				return err
			}
			rotated, err := f.Compact()
			if err != nil {
				return err
			}
			if rotated {
				fmt.Fprintln(cmd.OutOrStdout(), "rotated oldest batch into a new archive")
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), "no rotation needed")
			}
			return nil
		},
	}
}
