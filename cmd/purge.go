package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/viktsys/taifexbot/models"
)

var purgeCMD = &cobra.Command{
	Use:   "purge <futures|pcratio> <YYYY-MM-DD>",
	Short: "Delete the stored records of one source for one trade date",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		source := args[0]
		if source != models.SourceFutures && source != models.SourcePCRatio {
			return fmt.Errorf("unknown source %q, use futures or pcratio", source)
		}
		date, err := parseTradeDate(args[1])
		if err != nil {
			return err
		}

		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()

		deleted, err := a.store.Purge(context.Background(), source, date)
		if err != nil {
			return err
		}

		a.log.Infow("purged records", "source", source, "date", args[1], "deleted", deleted)
		fmt.Printf("Deleted %d %s record(s) for %s\n", deleted, source, args[1])
		return nil
	},
}

// parseTradeDate reads a YYYY-MM-DD argument into the midnight UTC form
// trade dates are stored in.
func parseTradeDate(s string) (time.Time, error) {
	date, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, use YYYY-MM-DD", s)
	}
	return date, nil
}
