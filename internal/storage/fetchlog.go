package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

const (
	startFetchLogSQL = `INSERT INTO fetch_logs (fetch_type, started_at, status, metadata)
    VALUES ($1, $2, $3, $4)
    RETURNING id;`

	completeFetchLogSQL = `UPDATE fetch_logs
    SET completed_at     = $2,
        status           = $3,
        records_fetched  = $4,
        records_inserted = $5,
        records_updated  = $6,
        error_message    = $7
    WHERE id = $1;`

	latestFetchSQL = `SELECT
        id, fetch_type, started_at, completed_at, status,
        records_fetched, records_inserted, records_updated, error_message
    FROM fetch_logs
    WHERE fetch_type = $1 AND status = $2
    ORDER BY completed_at DESC
    LIMIT 1;`

	systemPriceDateRangeSQL = `SELECT MIN(settlement_date), MAX(settlement_date) FROM system_prices;`
)

// FetchLogStore tracks fetch attempts for audit, independently of the data
// writes themselves.
type FetchLogStore interface {
	StartFetchLog(ctx context.Context, fetchType string, metadata map[string]any) (int64, error)
	CompleteFetchLog(ctx context.Context, id int64, completion FetchCompletion) error
}

// FetchCompletion carries the terminal state of a fetch attempt.
type FetchCompletion struct {
	Fetched  int
	Inserted int
	Updated  int
	Status   string
	ErrorMsg string
}

// StartFetchLog records a fetch attempt as running and returns its row id.
func (s *Store) StartFetchLog(ctx context.Context, fetchType string, metadata map[string]any) (int64, error) {
	pool, err := s.getPool()
	if err != nil {
		return 0, err
	}

	var id int64
	err = pool.QueryRow(ctx, startFetchLogSQL, fetchType, time.Now().UTC(), FetchStatusRunning, metadata).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("start fetch log: %w", err)
	}
	return id, nil
}

// CompleteFetchLog mutates a running log entry exactly once with its outcome.
func (s *Store) CompleteFetchLog(ctx context.Context, id int64, completion FetchCompletion) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}

	var errMsg any
	if completion.ErrorMsg != "" {
		errMsg = completion.ErrorMsg
	}

	tag, err := pool.Exec(ctx, completeFetchLogSQL,
		id,
		time.Now().UTC(),
		completion.Status,
		completion.Fetched,
		completion.Inserted,
		completion.Updated,
		errMsg,
	)
	if err != nil {
		return fmt.Errorf("complete fetch log: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// LatestFetch returns the most recent successful fetch for a type, or nil.
func (s *Store) LatestFetch(ctx context.Context, fetchType string) (*FetchLog, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	var (
		log         FetchLog
		completedAt sql.NullTime
		errMsg      sql.NullString
	)
	err = pool.QueryRow(ctx, latestFetchSQL, fetchType, FetchStatusSuccess).Scan(
		&log.ID,
		&log.FetchType,
		&log.StartedAt,
		&completedAt,
		&log.Status,
		&log.RecordsFetched,
		&log.RecordsInserted,
		&log.RecordsUpdated,
		&errMsg,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("latest fetch: %w", err)
	}

	if completedAt.Valid {
		log.CompletedAt = &completedAt.Time
	}
	if errMsg.Valid {
		log.ErrorMessage = &errMsg.String
	}
	return &log, nil
}

// SystemPriceDateRange reports the stored settlement date span, or nils when
// the table is empty.
func (s *Store) SystemPriceDateRange(ctx context.Context) (minDate, maxDate *time.Time, err error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, nil, err
	}

	var minNull, maxNull sql.NullTime
	if err := pool.QueryRow(ctx, systemPriceDateRangeSQL).Scan(&minNull, &maxNull); err != nil {
		return nil, nil, fmt.Errorf("system price date range: %w", err)
	}
	if minNull.Valid {
		minDate = &minNull.Time
	}
	if maxNull.Valid {
		maxDate = &maxNull.Time
	}
	return minDate, maxDate, nil
}
