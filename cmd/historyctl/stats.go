package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newStatsCmd(app *appContext) *cobra.Command {
	var useIndex bool
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Print the total record count and current GSN",
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := app.facade()
			if err != nil {
				return err
			}

			if useIndex {
				if total, current, refreshedAt, ok, err := readStatsCache(f.Dir()); err == nil && ok {
					fmt.Fprintf(cmd.OutOrStdout(), "total=%d current_gsn=%d refreshed_at=%s (cached)\n", total, current, refreshedAt)
					return nil
				}
			}

			total, err := f.TotalCount()
			if err != nil {
				return err
			}
			current, err := f.CurrentGSN()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "total=%d current_gsn=%d\n", total, current)

			if useIndex {
				if err := refreshStatsCache(f.Dir(), total, current); err != nil {
					app.logger.Warn().Err(err).Msg("failed to refresh stats cache")
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&useIndex, "index", false, "maintain and prefer a materialized bbolt-backed stats cache")
	return cmd
}
