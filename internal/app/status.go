package app

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"gridwatch/internal/service"
)

// Status prints collector health: upstream reachability, the stored date
// span, and the latest successful fetch per source.
func (a *App) Status(ctx context.Context) error {
	elexon, carbon := a.newClients()

	fmt.Fprintln(os.Stdout, "Upstream sources:")
	writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintf(writer, "  elexon_bmrs\t%s\n", healthWord(elexon.HealthCheck(ctx)))
	fmt.Fprintf(writer, "  national_grid\t%s\n", healthWord(carbon.HealthCheck(ctx)))
	writer.Flush()

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	minDate, maxDate, err := store.SystemPriceDateRange(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintln(os.Stdout, "\nStored system prices:")
	if minDate == nil {
		fmt.Fprintln(os.Stdout, "  none")
	} else {
		fmt.Fprintf(os.Stdout, "  %s to %s\n", minDate.Format("2006-01-02"), maxDate.Format("2006-01-02"))
	}

	fmt.Fprintln(os.Stdout, "\nLatest successful fetches:")
	writer = tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "  Source\tCompleted (UTC)\tFetched\tInserted\tUpdated")
	for _, source := range service.AllSources {
		log, err := store.LatestFetch(ctx, source)
		if err != nil {
			return err
		}
		if log == nil {
			fmt.Fprintf(writer, "  %s\tnever\t-\t-\t-\n", source)
			continue
		}
		completed := "-"
		if log.CompletedAt != nil {
			completed = log.CompletedAt.UTC().Format(time.RFC3339)
		}
		fmt.Fprintf(writer, "  %s\t%s\t%d\t%d\t%d\n",
			source, completed, log.RecordsFetched, log.RecordsInserted, log.RecordsUpdated)
	}
	writer.Flush()

	return nil
}

func healthWord(ok bool) string {
	if ok {
		return "reachable"
	}
	return "unreachable"
}
