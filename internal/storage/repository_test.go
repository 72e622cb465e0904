package storage

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRow struct {
	inserted bool
	err      error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	*(dest[0].(*bool)) = r.inserted
	return nil
}

type fakeBatchResults struct {
	rows []fakeRow
	next int
}

func (f *fakeBatchResults) Exec() (pgconn.CommandTag, error) { return pgconn.CommandTag{}, nil }
func (f *fakeBatchResults) Query() (pgx.Rows, error)         { return nil, nil }
func (f *fakeBatchResults) Close() error                     { return nil }

func (f *fakeBatchResults) QueryRow() pgx.Row {
	row := f.rows[f.next]
	f.next++
	return row
}

type fakeBatchSender struct {
	results *fakeBatchResults
}

func (f fakeBatchSender) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults {
	return f.results
}

func queuedBatch(n int) *pgx.Batch {
	batch := &pgx.Batch{}
	for i := 0; i < n; i++ {
		batch.Queue("SELECT 1")
	}
	return batch
}

func TestRunUpsertBatchTally(t *testing.T) {
	sender := fakeBatchSender{results: &fakeBatchResults{
		rows: []fakeRow{{inserted: true}, {inserted: false}, {inserted: true}},
	}}

	store := &Store{}
	result, err := store.runUpsertBatch(context.Background(), sender, queuedBatch(3))
	require.NoError(t, err)
	assert.Equal(t, UpsertResult{Inserted: 2, Updated: 1}, result)
}

func TestRunUpsertBatchFailsWhole(t *testing.T) {
	sender := fakeBatchSender{results: &fakeBatchResults{
		rows: []fakeRow{{inserted: true}, {err: errors.New("constraint violation")}},
	}}

	store := &Store{}
	_, err := store.runUpsertBatch(context.Background(), sender, queuedBatch(2))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "constraint violation")
}

func TestUpsertsRequireConfiguredPool(t *testing.T) {
	var store *Store
	_, err := store.UpsertSystemPrices(context.Background(), nil)
	assert.ErrorIs(t, err, ErrNotConfigured)

	empty := &Store{}
	_, err = empty.StartFetchLog(context.Background(), "system_prices", nil)
	assert.ErrorIs(t, err, ErrNotConfigured)
}
