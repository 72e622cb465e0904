package market

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gridwatch/internal/settlement"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestNewSystemPriceNetPrice(t *testing.T) {
	price, err := NewSystemPrice(date(2024, 11, 1), 1, decimal.NewFromInt(100), decimal.NewFromInt(110))
	require.NoError(t, err)
	assert.Equal(t, "105.00", price.Price.StringFixed(2))

	price, err = NewSystemPrice(date(2024, 11, 1), 1, decimal.NewFromFloat(109.0), decimal.NewFromFloat(109.0))
	require.NoError(t, err)
	assert.Equal(t, "109.00", price.Price.StringFixed(2))
}

func TestNewSystemPriceBoundsPrice(t *testing.T) {
	sell := decimal.NewFromFloat(95.37)
	buy := decimal.NewFromFloat(112.81)
	price, err := NewSystemPrice(date(2024, 11, 1), 10, sell, buy)
	require.NoError(t, err)
	assert.True(t, price.Price.GreaterThanOrEqual(sell))
	assert.True(t, price.Price.LessThanOrEqual(buy))
}

func TestNewSystemPriceInvalidPeriod(t *testing.T) {
	for _, period := range []int{0, 51} {
		_, err := NewSystemPrice(date(2024, 11, 1), period, decimal.Zero, decimal.Zero)
		assert.ErrorIs(t, err, settlement.ErrInvalidPeriod, "period %d", period)
	}
}

func TestParseSystemPrice(t *testing.T) {
	raw := json.RawMessage(`{
		"settlementDate": "2024-11-01",
		"settlementPeriod": 12,
		"systemSellPrice": 85.5,
		"systemBuyPrice": 90.5
	}`)

	price, err := ParseSystemPrice(raw)
	require.NoError(t, err)
	assert.Equal(t, date(2024, 11, 1), price.SettlementDate)
	assert.Equal(t, 12, price.SettlementPeriod)
	assert.Equal(t, "88.00", price.Price.StringFixed(2))
	assert.Equal(t, SourceElexon, price.DataSource)
}

func TestParseSystemPriceBadPayload(t *testing.T) {
	_, err := ParseSystemPrice(json.RawMessage(`{"settlementDate": "not-a-date"}`))
	assert.Error(t, err)

	_, err = ParseSystemPrice(json.RawMessage(`{"settlementDate": "2024-11-01", "settlementPeriod": 99}`))
	assert.ErrorIs(t, err, settlement.ErrInvalidPeriod)
}

func TestParseDayAheadPrice(t *testing.T) {
	raw := json.RawMessage(`{
		"settlementDate": "2024-11-01",
		"settlementPeriod": 3,
		"price": 72.15,
		"dataProvider": "N2EXMIDP"
	}`)

	price, err := ParseDayAheadPrice(raw)
	require.NoError(t, err)
	assert.Equal(t, 3, price.SettlementPeriod)
	assert.Equal(t, "N2EXMIDP", price.DataProvider)
	assert.Equal(t, "72.15", price.Price.StringFixed(2))
}

func TestParseDayAheadPriceDefaultsProvider(t *testing.T) {
	raw := json.RawMessage(`{"settlementDate": "2024-11-01", "settlementPeriod": 3, "price": 10}`)
	price, err := ParseDayAheadPrice(raw)
	require.NoError(t, err)
	assert.Equal(t, DefaultDataProvider, price.DataProvider)
}
