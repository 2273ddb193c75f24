package main

import (
	"encoding/json"
	"io"

	"github.com/brennhill/gasoline-history/internal/historylog"
)

func printRecords(w io.Writer, records []historylog.Record) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	for _, r := range records {
		if err := enc.Encode(r); err != nil {
			return err
		}
	}
	return nil
}
