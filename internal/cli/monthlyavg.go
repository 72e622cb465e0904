package cli

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"gridwatch/internal/market"
)

var monthlyAvgDayAhead bool

var monthlyAvgCmd = &cobra.Command{
	Use:   "monthly-avg YEAR MONTH",
	Short: "Calculate monthly average prices for PPA settlement",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		year, err := strconv.Atoi(args[0])
		if err != nil || year < 2000 || year > 2100 {
			return fmt.Errorf("invalid year %q", args[0])
		}

		month, err := strconv.Atoi(args[1])
		if err != nil || month < 1 || month > 12 {
			return fmt.Errorf("invalid month %q", args[1])
		}

		priceType := market.PriceTypeSystem
		if monthlyAvgDayAhead {
			priceType = market.PriceTypeDayAhead
		}

		return getApp().MonthlyAverage(cmd.Context(), year, time.Month(month), priceType)
	},
}

func init() {
	monthlyAvgCmd.Flags().BoolVar(&monthlyAvgDayAhead, "day-ahead", false, "Use day-ahead prices instead of system prices")
}
