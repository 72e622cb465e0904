package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"gridwatch/internal/market"
)

const listSystemPricesBetweenSQL = `SELECT
    settlement_date,
    settlement_period,
    system_sell_price,
    system_buy_price,
    price,
    data_source,
    fetched_at
FROM system_prices
WHERE settlement_date >= $1
  AND settlement_date <= $2
ORDER BY settlement_date, settlement_period;`

// ListSystemPricesBetween returns stored system prices inside a date span,
// ordered by (date, period).
func (s *Store) ListSystemPricesBetween(ctx context.Context, from, to time.Time) ([]market.SystemPrice, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, err := pool.Query(ctx, listSystemPricesBetweenSQL, from, to)
	if err != nil {
		return nil, fmt.Errorf("list system prices: %w", err)
	}
	defer rows.Close()

	prices := make([]market.SystemPrice, 0)
	for rows.Next() {
		var (
			p                       market.SystemPrice
			sellStr, buyStr, netStr string
		)
		if err := rows.Scan(
			&p.SettlementDate,
			&p.SettlementPeriod,
			&sellStr,
			&buyStr,
			&netStr,
			&p.DataSource,
			&p.FetchedAt,
		); err != nil {
			return nil, err
		}

		if p.SystemSellPrice, err = decimal.NewFromString(sellStr); err != nil {
			return nil, fmt.Errorf("parse system sell price: %w", err)
		}
		if p.SystemBuyPrice, err = decimal.NewFromString(buyStr); err != nil {
			return nil, fmt.Errorf("parse system buy price: %w", err)
		}
		if p.Price, err = decimal.NewFromString(netStr); err != nil {
			return nil, fmt.Errorf("parse net price: %w", err)
		}

		prices = append(prices, p)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return prices, nil
}
