package market

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decimals(values ...float64) []decimal.Decimal {
	out := make([]decimal.Decimal, len(values))
	for i, v := range values {
		out[i] = decimal.NewFromFloat(v)
	}
	return out
}

func TestAggregateEmpty(t *testing.T) {
	_, err := Aggregate(nil, time.Time{}, time.Time{}, PriceTypeSystem)
	assert.ErrorIs(t, err, ErrNoData)
}

func TestAggregateUniform(t *testing.T) {
	agg, err := Aggregate(decimals(100, 100, 100), date(2024, 11, 1), date(2024, 11, 1), PriceTypeSystem)
	require.NoError(t, err)
	assert.Equal(t, "100.00", agg.AveragePrice.StringFixed(2))
	assert.Equal(t, "100", agg.MinPrice.String())
	assert.Equal(t, "100", agg.MaxPrice.String())
	assert.Equal(t, 3, agg.NumPeriods)
}

func TestAggregateMeanRounding(t *testing.T) {
	// 10.005 must round half away from zero, not to even.
	agg, err := Aggregate(decimals(10.00, 10.01), date(2024, 11, 1), date(2024, 11, 1), PriceTypeSystem)
	require.NoError(t, err)
	assert.Equal(t, "10.01", agg.AveragePrice.StringFixed(2))
}

func TestAggregateInvariants(t *testing.T) {
	agg, err := Aggregate(decimals(45.5, 120.25, 88.1, -12.4), date(2024, 11, 1), date(2024, 11, 2), PriceTypeSystem)
	require.NoError(t, err)
	assert.True(t, agg.MinPrice.LessThanOrEqual(agg.AveragePrice))
	assert.True(t, agg.AveragePrice.LessThanOrEqual(agg.MaxPrice))
	assert.Equal(t, "-12.4", agg.MinPrice.String())
	assert.Equal(t, "120.25", agg.MaxPrice.String())
}

func TestDayAheadValuesDropZeros(t *testing.T) {
	prices := make([]DayAheadPrice, 0, 3)
	for i, v := range []float64{0, 50, 100} {
		p, err := NewDayAheadPrice(date(2024, 11, 1), i+1, decimal.NewFromFloat(v), "")
		require.NoError(t, err)
		prices = append(prices, p)
	}

	values := DayAheadValues(prices)
	require.Len(t, values, 2)

	agg, err := Aggregate(values, date(2024, 11, 1), date(2024, 11, 1), PriceTypeDayAhead)
	require.NoError(t, err)
	assert.Equal(t, "75.00", agg.AveragePrice.StringFixed(2))
	assert.Equal(t, 2, agg.NumPeriods)
}

func TestSystemPriceValuesKeepAll(t *testing.T) {
	prices := make([]SystemPrice, 0, 2)
	for i, v := range []float64{0, 80} {
		p, err := NewSystemPrice(date(2024, 11, 1), i+1, decimal.NewFromFloat(v), decimal.NewFromFloat(v))
		require.NoError(t, err)
		prices = append(prices, p)
	}
	assert.Len(t, SystemPriceValues(prices), 2)
}
