package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"gridwatch/internal/app"
)

var (
	backfillFrom   string
	backfillTo     string
	backfillSource string
)

var backfillCmd = &cobra.Command{
	Use:   "backfill",
	Short: "Backfill historical data for a date range",
	RunE: func(cmd *cobra.Command, args []string) error {
		if backfillFrom == "" || backfillTo == "" {
			return fmt.Errorf("--from and --to must be provided")
		}

		from, err := time.Parse("2006-01-02", backfillFrom)
		if err != nil {
			return fmt.Errorf("invalid --from value: %w", err)
		}

		to, err := time.Parse("2006-01-02", backfillTo)
		if err != nil {
			return fmt.Errorf("invalid --to value: %w", err)
		}

		sources, err := parseSources(backfillSource)
		if err != nil {
			return err
		}

		return getApp().Backfill(cmd.Context(), app.BackfillOptions{
			From:    from,
			To:      to,
			Sources: sources,
		})
	},
}

func init() {
	backfillCmd.Flags().StringVar(&backfillFrom, "from", "", "Start date (YYYY-MM-DD, inclusive)")
	backfillCmd.Flags().StringVar(&backfillTo, "to", "", "End date (YYYY-MM-DD, inclusive)")
	backfillCmd.Flags().StringVar(&backfillSource, "source", "all", "Source to backfill: all, system, dayahead, carbon or fuelmix")
}
