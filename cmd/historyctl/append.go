package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/brennhill/gasoline-history/internal/history"
	"github.com/brennhill/gasoline-history/internal/historylog"
)

func newAppendCmd(app *appContext) *cobra.Command {
	var content, sender, messageID string
	cmd := &cobra.Command{
		Use:   "append",
		Short: "Append a synthetic record, useful for manual testing and maintenance drills",
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := app.facade()
			if err != nil {
				return err
			}
			if messageID == "" {
				messageID = history.NewMessageID()
			}
			rec := historylog.Record{
				"message_id": messageID,
				"sender":     sender,
				"content":    content,
			}
			gsnVal, current, err := f.Append(rec)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "appended message_id=%s gsn=%d current_gsn=%d\n", messageID, gsnVal, current)
			return nil
		},
	}
	cmd.Flags().StringVar(&content, "content", "", "record content")
	cmd.Flags().StringVar(&sender, "sender", "cli", "record sender")
	cmd.Flags().StringVar(&messageID, "message-id", "", "explicit message id (default: a generated id via history.NewMessageID)")
	return cmd
}
