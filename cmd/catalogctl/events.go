package main

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	syncx "github.com/fideprep/fideprep-api/internal/sync"
)

var eventsCmd = &cobra.Command{
	Use:   "events <exam-id>",
	Short: "Print the event log of one mock exam",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil || id <= 0 {
			return fmt.Errorf("invalid exam id %q", args[0])
		}

		ctx := context.Background()
		dbh, err := openDB(ctx, cmd)
		if err != nil {
			return err
		}
		defer dbh.Close()

		evs, err := syncx.NewEventRepo(dbh, "").ListByKey(ctx, fmt.Sprintf("exam:%d", id))
		if err != nil {
			return fmt.Errorf("query events: %w", err)
		}
		if len(evs) == 0 {
			fmt.Println("No events found.")
			return nil
		}
		for _, e := range evs {
			fmt.Printf("%-5d  %-19s  %-20s  %s\n",
				e.Seq,
				time.Unix(e.CreatedAt, 0).Local().Format("2006-01-02 15:04:05"),
				e.Type,
				e.DataJSON,
			)
		}
		return nil
	},
}
