package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/viktsys/taifexbot/models"
	"github.com/viktsys/taifexbot/taifex"
)

var (
	showDays    int
	showProduct string
)

var showCMD = &cobra.Command{
	Use:       "show [futures|pcratio]",
	Short:     "Print the latest stored records as JSON",
	Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	ValidArgs: []string{models.SourceFutures, models.SourcePCRatio},
	RunE: func(cmd *cobra.Command, args []string) error {
		if showDays < 1 {
			return fmt.Errorf("--days must be at least 1")
		}

		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()

		ctx := context.Background()
		var out interface{}
		switch args[0] {
		case models.SourceFutures:
			product, limit := "", showDays*len(taifex.Products)
			if showProduct != "" {
				code, ok := taifex.LookupProduct(showProduct)
				if !ok {
					return fmt.Errorf("unknown product %q", showProduct)
				}
				product, limit = string(code), showDays
			}
			out, err = a.store.LatestPositions(ctx, product, limit)
		case models.SourcePCRatio:
			out, err = a.store.LatestRatios(ctx, showDays)
		}
		if err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	},
}

func init() {
	showCMD.Flags().IntVar(&showDays, "days", 1, "number of trade dates to print")
	showCMD.Flags().StringVar(&showProduct, "product", "", "futures product (TX, MTX or TMF)")
}
