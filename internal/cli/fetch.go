package cli

import (
	"github.com/spf13/cobra"

	"gridwatch/internal/app"
)

var (
	fetchSource string
	fetchDays   int
)

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Fetch recent data once and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		sources, err := parseSources(fetchSource)
		if err != nil {
			return err
		}

		return getApp().Fetch(cmd.Context(), app.FetchOptions{
			Sources:  sources,
			DaysBack: fetchDays,
		})
	},
}

func init() {
	fetchCmd.Flags().StringVar(&fetchSource, "source", "all", "Source to fetch: all, system, dayahead, carbon or fuelmix")
	fetchCmd.Flags().IntVar(&fetchDays, "days", 0, "Days back to fetch (defaults to config)")
}
