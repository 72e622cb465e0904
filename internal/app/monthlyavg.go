package app

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"gridwatch/internal/market"
)

// ppaDiscount is the illustrative per-MWh discount printed with every
// monthly summary. Real contracts carry their own terms.
var ppaDiscount = decimal.NewFromInt(5)

// MonthlyAverage fetches and prints the monthly price summary used for PPA
// settlement, including a worked settlement example.
func (a *App) MonthlyAverage(ctx context.Context, year int, month time.Month, priceType market.PriceType) error {
	elexon, _ := a.newClients()

	agg, err := elexon.MonthlyAverage(ctx, year, month, priceType)
	if err != nil {
		return fmt.Errorf("monthly average for %d-%02d: %w", year, month, err)
	}

	label := "System Price"
	if priceType == market.PriceTypeDayAhead {
		label = "Day-Ahead Price"
	}

	fmt.Fprintf(os.Stdout, "Monthly %s Summary - %d-%02d\n", label, year, month)
	fmt.Fprintln(os.Stdout, strings.Repeat("=", 50))
	fmt.Fprintf(os.Stdout, "  Average:  £%s/MWh\n", agg.AveragePrice.StringFixed(2))
	fmt.Fprintf(os.Stdout, "  Minimum:  £%s/MWh\n", agg.MinPrice.StringFixed(2))
	fmt.Fprintf(os.Stdout, "  Maximum:  £%s/MWh\n", agg.MaxPrice.StringFixed(2))
	fmt.Fprintf(os.Stdout, "  Periods:  %d\n", agg.NumPeriods)
	fmt.Fprintln(os.Stdout)
	fmt.Fprintln(os.Stdout, "PPA Settlement Example (£5/MWh discount):")
	fmt.Fprintf(os.Stdout, "  Settlement Price = £%s - £%s = £%s/MWh\n",
		agg.AveragePrice.StringFixed(2),
		ppaDiscount.StringFixed(2),
		agg.AveragePrice.Sub(ppaDiscount).StringFixed(2),
	)

	return nil
}
