package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/viktsys/taifexbot/ingest"
)

// Exit codes for fetch. ExitNotPublished (EX_TEMPFAIL) lets a scheduler
// tell "try again later" apart from a failure.
const (
	ExitOK           = 0
	ExitFailure      = 1
	ExitNotPublished = 75
)

var fetchForce bool

var fetchCMD = &cobra.Command{
	Use:       "fetch [futures|pcratio|all]",
	Short:     "Fetch today's pages from TAIFEX and store the extracted records",
	Long:      `Download the institutional futures positions and/or put/call ratio pages, extract the daily records and upsert them. Exits 75 when the exchange has not published today's data yet.`,
	Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
	ValidArgs: []string{"futures", "pcratio", "all"},
	Run: func(cmd *cobra.Command, args []string) {
		source := "all"
		if len(args) == 1 {
			source = args[0]
		}

		a, err := newApp()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to initialize: %v\n", err)
			os.Exit(ExitFailure)
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		results, err := a.processor.Run(ctx, source, ingest.Options{Force: fetchForce})
		stop()

		for _, res := range results {
			fmt.Printf("%s %s: stored %d record(s), %d incomplete, %d row(s) skipped\n",
				res.Source, res.Date.Format("2006-01-02"), res.Stored, len(res.Incomplete), res.Skipped)
		}

		code := exitCode(err)
		switch code {
		case ExitNotPublished:
			a.log.Infow("data not yet published, try again later", "source", source)
		case ExitFailure:
			a.log.Errorw("fetch failed", "source", source, "error", err)
		}
		a.close()
		os.Exit(code)
	},
}

func exitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, ingest.ErrNotYetPublished):
		return ExitNotPublished
	default:
		return ExitFailure
	}
}

func init() {
	fetchCMD.Flags().BoolVar(&fetchForce, "force", false, "store the page even if its date is older than today")
}
