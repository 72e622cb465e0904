package app

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"time"

	chart "github.com/wcharczuk/go-chart/v2"

	"gridwatch/internal/market"
	"gridwatch/internal/settlement"
)

const defaultExportMaxPoints = 2000

// Export renders stored system prices as CSV and/or a PNG chart.
func (a *App) Export(ctx context.Context, opts ExportOptions) error {
	if opts.CSVPath == "" && opts.PNGPath == "" {
		return errors.New("at least one of --csv or --png must be provided")
	}
	if opts.MaxPoints <= 0 {
		opts.MaxPoints = defaultExportMaxPoints
	}

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	to := settlement.Today()
	if opts.To != nil {
		to = *opts.To
	}

	from := to.AddDate(0, 0, -30)
	if opts.From != nil {
		from = *opts.From
	}

	if from.After(to) {
		return errors.New("from must not be after to")
	}

	prices, err := store.ListSystemPricesBetween(ctx, from, to)
	if err != nil {
		return err
	}
	if len(prices) == 0 {
		a.Logger.Info().Msg("no system prices found for export window")
		return nil
	}

	downsampled := downsamplePrices(prices, opts.MaxPoints)
	a.Logger.Info().Int("total", len(prices)).Int("exported", len(downsampled)).Msg("exporting system prices")

	if opts.CSVPath != "" {
		if err := writePricesCSV(opts.CSVPath, downsampled); err != nil {
			return err
		}
	}

	if opts.PNGPath != "" {
		if err := writePricesPNG(opts.PNGPath, downsampled); err != nil {
			return err
		}
	}

	return nil
}

func downsamplePrices(prices []market.SystemPrice, max int) []market.SystemPrice {
	if max <= 0 || len(prices) <= max {
		return prices
	}

	result := make([]market.SystemPrice, 0, max)
	step := float64(len(prices)-1) / float64(max-1)
	for i := 0; i < max; i++ {
		idx := int(math.Round(step * float64(i)))
		if idx >= len(prices) {
			idx = len(prices) - 1
		}
		result = append(result, prices[idx])
	}
	return result
}

func writePricesCSV(path string, prices []market.SystemPrice) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	header := []string{"settlement_date", "settlement_period", "system_sell_price", "system_buy_price", "price", "data_source"}
	if err := writer.Write(header); err != nil {
		return err
	}

	for _, price := range prices {
		record := []string{
			price.SettlementDate.Format("2006-01-02"),
			strconv.Itoa(price.SettlementPeriod),
			price.SystemSellPrice.String(),
			price.SystemBuyPrice.String(),
			price.Price.String(),
			price.DataSource,
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	return writer.Error()
}

func writePricesPNG(path string, prices []market.SystemPrice) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	x := make([]time.Time, len(prices))
	sell := make([]float64, len(prices))
	buy := make([]float64, len(prices))
	net := make([]float64, len(prices))

	for i, price := range prices {
		ts, err := settlement.PeriodTime(price.SettlementDate, price.SettlementPeriod)
		if err != nil {
			return fmt.Errorf("chart timestamp: %w", err)
		}
		x[i] = ts
		sell[i] = price.SystemSellPrice.InexactFloat64()
		buy[i] = price.SystemBuyPrice.InexactFloat64()
		net[i] = price.Price.InexactFloat64()
	}

	priceFormatter := func(v interface{}) string {
		return chart.FloatValueFormatterWithFormat(v, "%.2f")
	}
	graph := chart.Chart{
		Width:  1280,
		Height: 720,
		XAxis: chart.XAxis{
			ValueFormatter: chart.TimeValueFormatter,
		},
		YAxis: chart.YAxis{
			Name:           "Price (GBP/MWh)",
			ValueFormatter: priceFormatter,
		},
		Series: []chart.Series{
			chart.TimeSeries{
				Name:    "System Sell",
				XValues: x,
				YValues: sell,
			},
			chart.TimeSeries{
				Name:    "System Buy",
				XValues: x,
				YValues: buy,
			},
			chart.TimeSeries{
				Name:    "Net System Price",
				XValues: x,
				YValues: net,
			},
		},
	}
	graph.Elements = []chart.Renderable{chart.Legend(&graph)}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	return graph.Render(chart.PNG, file)
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
