package market

import (
	"errors"
	"time"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

// ErrNoData indicates an aggregation or lookup over an empty result set.
var ErrNoData = errors.New("no price data available")

// PriceAggregate summarises a price series over a date span. PPAs most
// commonly settle on the monthly average.
type PriceAggregate struct {
	StartDate    time.Time
	EndDate      time.Time
	AveragePrice decimal.Decimal
	MinPrice     decimal.Decimal
	MaxPrice     decimal.Decimal
	NumPeriods   int
	PriceType    PriceType
}

// Aggregate computes the simple (not volume-weighted) mean, min and max of a
// price series. The mean is rounded to 2 decimal places half away from zero;
// min and max are reported unrounded. Returns ErrNoData for an empty series.
func Aggregate(values []decimal.Decimal, start, end time.Time, priceType PriceType) (PriceAggregate, error) {
	if len(values) == 0 {
		return PriceAggregate{}, ErrNoData
	}

	sum := decimal.Zero
	minPrice := values[0]
	maxPrice := values[0]
	for _, v := range values {
		sum = sum.Add(v)
		if v.LessThan(minPrice) {
			minPrice = v
		}
		if v.GreaterThan(maxPrice) {
			maxPrice = v
		}
	}

	return PriceAggregate{
		StartDate:    start,
		EndDate:      end,
		AveragePrice: sum.Div(decimal.NewFromInt(int64(len(values)))).Round(2),
		MinPrice:     minPrice,
		MaxPrice:     maxPrice,
		NumPeriods:   len(values),
		PriceType:    priceType,
	}, nil
}

// SystemPriceValues extracts the net price from every record. All periods
// count, including zero-priced ones.
func SystemPriceValues(prices []SystemPrice) []decimal.Decimal {
	return lo.Map(prices, func(p SystemPrice, _ int) decimal.Decimal {
		return p.Price
	})
}

// DayAheadValues extracts prices, dropping zero entries: a zero market index
// price means no trading occurred in that period.
func DayAheadValues(prices []DayAheadPrice) []decimal.Decimal {
	values := lo.Map(prices, func(p DayAheadPrice, _ int) decimal.Decimal {
		return p.Price
	})
	return lo.Filter(values, func(v decimal.Decimal, _ int) bool {
		return v.IsPositive()
	})
}
