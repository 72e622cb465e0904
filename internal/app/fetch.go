package app

import (
	"context"
	"fmt"
	"os"
	"sort"
	"text/tabwriter"

	"gridwatch/internal/service"
)

// Fetch runs a one-shot fetch of the trailing window and prints a per-source
// summary. A partial failure still writes the healthy sources before the
// error is reported.
func (a *App) Fetch(ctx context.Context, opts FetchOptions) error {
	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	daysBack := opts.DaysBack
	if daysBack <= 0 {
		daysBack = a.Config.Fetch.DaysBack
	}

	sources := opts.Sources
	if len(sources) == 0 {
		sources = service.AllSources
	}

	results := a.newService(store).FetchSources(ctx, sources, daysBack)
	return reportResults(results)
}

// Backfill re-fetches a historical date range for the requested sources.
func (a *App) Backfill(ctx context.Context, opts BackfillOptions) error {
	if opts.From.After(opts.To) {
		return fmt.Errorf("--from must not be after --to")
	}

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	results := a.newService(store).Backfill(ctx, opts.From, opts.To, opts.Sources)
	return reportResults(results)
}

func reportResults(results map[string]service.Stats) error {
	sources := make([]string, 0, len(results))
	for source := range results {
		sources = append(sources, source)
	}
	sort.Strings(sources)

	writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "Source\tFetched\tInserted\tUpdated\tError")

	failed := 0
	for _, source := range sources {
		stats := results[source]
		if stats.Error != "" {
			failed++
		}
		fmt.Fprintf(writer, "%s\t%d\t%d\t%d\t%s\n",
			source, stats.Fetched, stats.Inserted, stats.Updated, stats.Error)
	}
	writer.Flush()

	if failed > 0 {
		return fmt.Errorf("%d of %d sources failed", failed, len(results))
	}
	return nil
}
