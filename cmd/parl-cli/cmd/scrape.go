package cmd

import (
	"log"
	"os"

	"parlwatch-backend/lib/configutil"
	"parlwatch-backend/lib/telemetry"
	"parlwatch-backend/lib/util/serviceutil"
	"parlwatch-backend/services/legislation"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var (
	force    bool
	maxPages int
)

func init() {
	scrapeCmd.Flags().BoolVar(&force, "force", false, "rescrape items that are already stored")
	scrapeCmd.Flags().IntVar(&maxPages, "max-pages", 0, "override the listing page cap")
	rootCmd.AddCommand(scrapeCmd)
}

var scrapeCmd = &cobra.Command{
	Use:   "scrape",
	Short: "Run one scrape of the current legislative year.",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := serviceutil.SignalContext()
		telemetry.SetupFromEnv(ctx, "parl-cli")

		config, err := configutil.ReadConfig[legislation.Config](configPath)
		if err != nil {
			log.Fatal(err)
		}
		if maxPages > 0 {
			config.MaxPages = maxPages
		}

		service, err := legislation.NewService(config)
		if err != nil {
			log.Fatal(err)
		}

		result, err := service.RunScrape(ctx, force)
		if err != nil {
			log.Fatal(err)
		}

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{"year", "scraped", "skipped", "failed", "pages"})
		t.AppendRow(table.Row{
			result.Year,
			result.ScrapedItems,
			result.SkippedItems,
			result.FailedItems,
			result.TotalPages,
		})
		t.Render()
	},
}
