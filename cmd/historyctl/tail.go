package main

import (
	"github.com/spf13/cobra"
)

func newTailCmd(app *appContext) *cobra.Command {
	var n int
	cmd := &cobra.Command{
		Use:   "tail",
		Short: "Print the most recent records, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := app.facade()
			if err != nil {
				return err
			}
			records, err := f.Latest(n)
			if err != nil {
				return err
			}
			return printRecords(cmd.OutOrStdout(), records)
		},
	}
	cmd.Flags().IntVarP(&n, "n", "n", 20, "number of records to print")
	return cmd
}
