package cmd

import (
	"log"
	"os"
	"strconv"
	"time"

	"parlwatch-backend/lib/configutil"
	"parlwatch-backend/services/legislation"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var showYear string

func init() {
	showCmd.Flags().StringVar(&showYear, "year", "", "legislative year to show (defaults to the calendar year)")
	rootCmd.AddCommand(showCmd)
}

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the stored dataset for a legislative year.",
	Run: func(cmd *cobra.Command, args []string) {
		config, err := configutil.ReadConfig[legislation.Config](configPath)
		if err != nil {
			log.Fatal(err)
		}

		if config.DataDir == "" {
			config.DataDir = "data"
		}
		year := showYear
		if year == "" {
			year = strconv.Itoa(time.Now().Year())
		}
		dataset, err := legislation.ReadDataset(config.DataDir, year)
		if err != nil {
			log.Fatal(err)
		}

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{"law number", "stage", "commission", "title"})
		for _, item := range dataset.Data {
			t.AppendRow(table.Row{
				item.LawNumber,
				item.Stage,
				item.CommissionId,
				item.Title,
			})
		}
		t.Render()
	},
}
