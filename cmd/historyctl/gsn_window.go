package main

import (
	"strconv"

	"github.com/spf13/cobra"
)

func newAfterGSNCmd(app *appContext) *cobra.Command {
	var n int
	cmd := &cobra.Command{
		Use:   "after-gsn <gsn>",
		Short: "Print records appended after the given GSN, oldest-first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			gsnVal, err := strconv.ParseUint(args[0], 10, 64)
			if err != nil {
				return err
			}
			f, err := app.facade()
			if err != nil {
				return err
			}
			records, err := f.AfterGSN(gsnVal, n)
			if err != nil {
				return err
			}
			return printRecords(cmd.OutOrStdout(), records)
		},
	}
	cmd.Flags().IntVarP(&n, "n", "n", 20, "maximum number of records to print")
	return cmd
}

func newBeforeGSNCmd(app *appContext) *cobra.Command {
	var n int
	cmd := &cobra.Command{
		Use:   "before-gsn <gsn>",
		Short: "Print records appended before the given GSN, oldest-first, scanning archives if needed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			gsnVal, err := strconv.ParseUint(args[0], 10, 64)
			if err != nil {
				return err
			}
			f, err := app.facade()
			if err != nil {
				return err
			}
			records, err := f.BeforeGSN(gsnVal, n)
			if err != nil {
				return err
			}
			return printRecords(cmd.OutOrStdout(), records)
		},
	}
	cmd.Flags().IntVarP(&n, "n", "n", 20, "maximum number of records to print")
	return cmd
}
