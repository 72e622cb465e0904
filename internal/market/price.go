// Package market defines the normalized record types for UK electricity
// market data and the aggregation used for PPA settlement summaries.
package market

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"gridwatch/internal/settlement"
)

// PriceType distinguishes the price series an aggregate was computed over.
type PriceType string

const (
	PriceTypeSystem   PriceType = "system_price"
	PriceTypeDayAhead PriceType = "day_ahead"
)

const (
	// SourceElexon tags records fetched from the Elexon BMRS API.
	SourceElexon = "elexon_bmrs"
	// SourceNationalGrid tags records fetched from the Carbon Intensity API.
	SourceNationalGrid = "national_grid"
	// DefaultDataProvider is the main UK day-ahead market index.
	DefaultDataProvider = "APXMIDP"
)

var two = decimal.NewFromInt(2)

// SystemPrice is a half-hourly System Sell/Buy Price observation.
//
// Price is the arithmetic mean of SSP and SBP rounded to 2 decimal places,
// matching how the upstream reports the net system price. Real-world PPA
// conventions sometimes use volume-weighted or single-sided prices instead;
// that variance is deliberately not applied here.
type SystemPrice struct {
	SettlementDate   time.Time
	SettlementPeriod int
	SystemSellPrice  decimal.Decimal
	SystemBuyPrice   decimal.Decimal
	Price            decimal.Decimal
	DataSource       string
	FetchedAt        time.Time
}

// NewSystemPrice validates the period and derives the net price.
func NewSystemPrice(date time.Time, period int, sell, buy decimal.Decimal) (SystemPrice, error) {
	if period < 1 || period > settlement.MaxPeriod {
		return SystemPrice{}, fmt.Errorf("%w, got %d", settlement.ErrInvalidPeriod, period)
	}
	return SystemPrice{
		SettlementDate:   date,
		SettlementPeriod: period,
		SystemSellPrice:  sell,
		SystemBuyPrice:   buy,
		Price:            sell.Add(buy).Div(two).Round(2),
		DataSource:       SourceElexon,
		FetchedAt:        time.Now().UTC(),
	}, nil
}

type elexonSystemPrice struct {
	SettlementDate   string          `json:"settlementDate"`
	SettlementPeriod int             `json:"settlementPeriod"`
	SystemSellPrice  decimal.Decimal `json:"systemSellPrice"`
	SystemBuyPrice   decimal.Decimal `json:"systemBuyPrice"`
}

// ParseSystemPrice builds a SystemPrice from one raw Elexon response item.
func ParseSystemPrice(raw json.RawMessage) (SystemPrice, error) {
	var item elexonSystemPrice
	if err := json.Unmarshal(raw, &item); err != nil {
		return SystemPrice{}, fmt.Errorf("decode system price: %w", err)
	}
	date, err := ParseSettlementDate(item.SettlementDate)
	if err != nil {
		return SystemPrice{}, err
	}
	return NewSystemPrice(date, item.SettlementPeriod, item.SystemSellPrice, item.SystemBuyPrice)
}

// DayAheadPrice is a half-hourly day-ahead market index observation.
type DayAheadPrice struct {
	SettlementDate   time.Time
	SettlementPeriod int
	Price            decimal.Decimal
	DataProvider     string
	DataSource       string
	FetchedAt        time.Time
}

// NewDayAheadPrice validates the period and tags provenance.
func NewDayAheadPrice(date time.Time, period int, price decimal.Decimal, provider string) (DayAheadPrice, error) {
	if period < 1 || period > settlement.MaxPeriod {
		return DayAheadPrice{}, fmt.Errorf("%w, got %d", settlement.ErrInvalidPeriod, period)
	}
	if provider == "" {
		provider = DefaultDataProvider
	}
	return DayAheadPrice{
		SettlementDate:   date,
		SettlementPeriod: period,
		Price:            price,
		DataProvider:     provider,
		DataSource:       SourceElexon,
		FetchedAt:        time.Now().UTC(),
	}, nil
}

type elexonMarketIndexPrice struct {
	SettlementDate   string          `json:"settlementDate"`
	SettlementPeriod int             `json:"settlementPeriod"`
	Price            decimal.Decimal `json:"price"`
	DataProvider     string          `json:"dataProvider"`
}

// ParseDayAheadPrice builds a DayAheadPrice from one raw market-index item.
func ParseDayAheadPrice(raw json.RawMessage) (DayAheadPrice, error) {
	var item elexonMarketIndexPrice
	if err := json.Unmarshal(raw, &item); err != nil {
		return DayAheadPrice{}, fmt.Errorf("decode day-ahead price: %w", err)
	}
	date, err := ParseSettlementDate(item.SettlementDate)
	if err != nil {
		return DayAheadPrice{}, err
	}
	return NewDayAheadPrice(date, item.SettlementPeriod, item.Price, item.DataProvider)
}

// ParseSettlementDate parses an ISO calendar date into a UTC midnight instant.
func ParseSettlementDate(value string) (time.Time, error) {
	date, err := time.Parse("2006-01-02", value)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse settlement date %q: %w", value, err)
	}
	return date, nil
}
