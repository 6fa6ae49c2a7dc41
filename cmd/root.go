package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCMD = &cobra.Command{
	Use:   "taifexbot",
	Short: "TAIFEX institutional positions and put/call ratio bot",
	Long: `A CLI application that scrapes the Taiwan Futures Exchange's daily
institutional futures positions and option put/call ratio pages, stores
them in PostgreSQL and serves a daily report through a Telegram bot and a
small REST API.`,
	SilenceUsage: true,
}

func Execute() {
	err := rootCMD.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCMD.AddCommand(fetchCMD, showCMD, serverCMD, purgeCMD)
}
